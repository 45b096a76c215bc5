package config

import "time"

// DashboardConfig is the root configuration for a calldeck instance.
type DashboardConfig struct {
	Instance   InstanceConfig   `yaml:"instance"`
	API        APIConfig        `yaml:"api"`
	Connection ConnectionConfig `yaml:"connection"`
	Router     RouterConfig     `yaml:"router"`
	Database   DatabaseConfig   `yaml:"database"`
	Archive    ArchiveConfig    `yaml:"archive"`
	Refresher  RefresherConfig  `yaml:"refresher"`
	Health     HealthConfig     `yaml:"health"`
}

// InstanceConfig identifies this dashboard session.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// APIConfig holds the bulk data API and push channel settings.
type APIConfig struct {
	RestURL    string        `yaml:"rest_url"`
	WSURL      string        `yaml:"ws_url"`
	AuthToken  string        `yaml:"auth_token"` // Opaque bearer token, supports ${VAR} expansion
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
}

// ConnectionConfig holds Connection Supervisor settings.
type ConnectionConfig struct {
	ReconnectBaseDelay time.Duration `yaml:"reconnect_base_delay"`
	ReconnectMaxDelay  time.Duration `yaml:"reconnect_max_delay"`
	MaxAttempts        int           `yaml:"max_attempts"`
	PingTimeout        time.Duration `yaml:"ping_timeout"`
	WriteTimeout       time.Duration `yaml:"write_timeout"`
	BufferSize         int           `yaml:"buffer_size"`
}

// RouterConfig holds Event Router settings.
type RouterConfig struct {
	PendingInteractionsPerCall int `yaml:"pending_interactions_per_call"`
}

// DatabaseConfig holds the optional Postgres connection for the event archive.
// The archive is disabled when Host is empty.
type DatabaseConfig struct {
	Postgres DBConfig `yaml:"postgres"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// ArchiveConfig holds event archive writer settings.
type ArchiveConfig struct {
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	BufferSize    int           `yaml:"buffer_size"`
}

// RefresherConfig holds bulk re-sync settings.
type RefresherConfig struct {
	Interval    time.Duration `yaml:"interval"`
	PageSize    int           `yaml:"page_size"`
	Concurrency int           `yaml:"concurrency"`
}

// HealthConfig holds the local health endpoint settings.
type HealthConfig struct {
	Port int    `yaml:"port"`
	Path string `yaml:"path"`
}
