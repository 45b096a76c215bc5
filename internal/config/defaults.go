package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultAPITimeout          = 30 * time.Second
	DefaultMaxRetries          = 3
	DefaultReconnectBaseDelay  = 1 * time.Second
	DefaultReconnectMaxDelay   = 30 * time.Second
	DefaultMaxAttempts         = 10
	DefaultPingTimeout         = 60 * time.Second
	DefaultWriteTimeout        = 5 * time.Second
	DefaultBufferSize          = 1000
	DefaultPendingInteractions = 50
	DefaultDBPort              = 5432
	DefaultDBSSLMode           = "prefer"
	DefaultMaxConns            = 5
	DefaultMinConns            = 1
	DefaultArchiveBatchSize    = 200
	DefaultFlushInterval       = 2 * time.Second
	DefaultArchiveBufferSize   = 2000
	DefaultRefreshInterval     = 5 * time.Minute
	DefaultRefreshPageSize     = 200
	DefaultRefreshConcurrency  = 8
	DefaultHealthPort          = 8080
	DefaultHealthPath          = "/health"
)

// DefaultConfig returns a config with every optional field at its default.
// Required fields (instance ID, endpoint URLs) stay empty.
func DefaultConfig() *DashboardConfig {
	c := &DashboardConfig{}
	c.applyDefaults()
	return c
}

func (c *DashboardConfig) applyDefaults() {
	// API defaults
	if c.API.Timeout == 0 {
		c.API.Timeout = DefaultAPITimeout
	}
	if c.API.MaxRetries == 0 {
		c.API.MaxRetries = DefaultMaxRetries
	}

	// Connection defaults
	if c.Connection.ReconnectBaseDelay == 0 {
		c.Connection.ReconnectBaseDelay = DefaultReconnectBaseDelay
	}
	if c.Connection.ReconnectMaxDelay == 0 {
		c.Connection.ReconnectMaxDelay = DefaultReconnectMaxDelay
	}
	if c.Connection.MaxAttempts == 0 {
		c.Connection.MaxAttempts = DefaultMaxAttempts
	}
	if c.Connection.PingTimeout == 0 {
		c.Connection.PingTimeout = DefaultPingTimeout
	}
	if c.Connection.WriteTimeout == 0 {
		c.Connection.WriteTimeout = DefaultWriteTimeout
	}
	if c.Connection.BufferSize == 0 {
		c.Connection.BufferSize = DefaultBufferSize
	}

	// Router defaults
	if c.Router.PendingInteractionsPerCall == 0 {
		c.Router.PendingInteractionsPerCall = DefaultPendingInteractions
	}

	// Database defaults (only meaningful when the archive is enabled)
	applyDBDefaults(&c.Database.Postgres)

	// Archive defaults
	if c.Archive.BatchSize == 0 {
		c.Archive.BatchSize = DefaultArchiveBatchSize
	}
	if c.Archive.FlushInterval == 0 {
		c.Archive.FlushInterval = DefaultFlushInterval
	}
	if c.Archive.BufferSize == 0 {
		c.Archive.BufferSize = DefaultArchiveBufferSize
	}

	// Refresher defaults
	if c.Refresher.Interval == 0 {
		c.Refresher.Interval = DefaultRefreshInterval
	}
	if c.Refresher.PageSize == 0 {
		c.Refresher.PageSize = DefaultRefreshPageSize
	}
	if c.Refresher.Concurrency == 0 {
		c.Refresher.Concurrency = DefaultRefreshConcurrency
	}

	// Health defaults
	if c.Health.Port == 0 {
		c.Health.Port = DefaultHealthPort
	}
	if c.Health.Path == "" {
		c.Health.Path = DefaultHealthPath
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}

// ArchiveEnabled reports whether a Postgres archive target is configured.
func (c *DashboardConfig) ArchiveEnabled() bool {
	return c.Database.Postgres.Host != ""
}
