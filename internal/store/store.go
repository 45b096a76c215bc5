package store

import (
	"sync"

	"github.com/calldeck/calldeck/internal/model"
)

// ChangeBufferSize is the capacity of the CallChange channel.
const ChangeBufferSize = 1000

// Change kinds emitted on the watch channel.
const (
	ChangeCreated     = "created"
	ChangeUpdated     = "updated"
	ChangeEnded       = "ended"
	ChangeInteraction = "interaction"
)

// CallChange describes one applied mutation, for the archive writer and any
// UI surface that wants push-style updates instead of polling accessors.
type CallChange struct {
	CallID      string
	Kind        string            // One of the Change* constants
	Call        *model.CallRecord // Copy of the record after the change
	Interaction *model.Interaction
}

// CallPatch is a partial update to a call record. Nil fields are left
// untouched; UpdatedAt only ever advances.
type CallPatch struct {
	Status           *string
	Sentiment        *string
	QAScore          *float64
	EscalationStatus *string
	AssignedAgent    *string
	StartedAt        *int64
	UpdatedAt        int64
}

// Store is the shared call/notification cache. Created by the application
// root and injected into consumers; there is no ambient singleton.
type Store struct {
	mu sync.RWMutex

	// All cached calls indexed by ID.
	calls map[string]*model.CallRecord

	// Calls currently in flight.
	activeSet map[string]struct{}

	// Interactions per call, in arrival order.
	interactions map[string][]model.Interaction

	// Output channel for watchers (single consumer).
	changes chan CallChange

	// Signal that the notification list is stale.
	notifStale chan struct{}
}

// New creates an empty store.
func New() *Store {
	return &Store{
		calls:        make(map[string]*model.CallRecord),
		activeSet:    make(map[string]struct{}),
		interactions: make(map[string][]model.Interaction),
		changes:      make(chan CallChange, ChangeBufferSize),
		notifStale:   make(chan struct{}, 1),
	}
}

// Get returns a copy of the call record.
func (s *Store) Get(id string) (model.CallRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.calls[id]
	if !ok {
		return model.CallRecord{}, false
	}
	return *c, true
}

// ActiveCalls returns copies of all in-flight calls.
func (s *Store) ActiveCalls() []model.CallRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]model.CallRecord, 0, len(s.activeSet))
	for id := range s.activeSet {
		if c, ok := s.calls[id]; ok {
			result = append(result, *c)
		}
	}
	return result
}

// AllCalls returns copies of every cached call.
func (s *Store) AllCalls() []model.CallRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]model.CallRecord, 0, len(s.calls))
	for _, c := range s.calls {
		result = append(result, *c)
	}
	return result
}

// Interactions returns a copy of a call's interaction list in arrival order.
func (s *Store) Interactions(callID string) []model.Interaction {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := s.interactions[callID]
	result := make([]model.Interaction, len(list))
	copy(result, list)
	return result
}

// Len returns the number of cached calls.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.calls)
}

// Has reports whether a call is cached.
func (s *Store) Has(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.calls[id]
	return ok
}

// Watch returns the change channel. Single consumer; when nobody drains it
// the oldest change is dropped rather than blocking the reconciler.
func (s *Store) Watch() <-chan CallChange {
	return s.changes
}

// NotificationRefresh signals that the notification list should be
// re-fetched through the bulk API. Coalesced: one pending signal at most.
func (s *Store) NotificationRefresh() <-chan struct{} {
	return s.notifStale
}

// SignalNotificationRefresh marks the notification list stale.
func (s *Store) SignalNotificationRefresh() {
	select {
	case s.notifStale <- struct{}{}:
	default:
	}
}

// ApplyPatch merges a partial update into a call record, creating the record
// if absent. Nil patch fields are left untouched and UpdatedAt advances to
// max(existing, incoming). Returns a copy of the merged record and whether
// it was created.
func (s *Store) ApplyPatch(id string, p CallPatch) (model.CallRecord, bool) {
	s.mu.Lock()

	c, ok := s.calls[id]
	created := !ok
	if created {
		c = &model.CallRecord{ID: id}
		s.calls[id] = c
	}

	if p.Status != nil {
		c.Status = *p.Status
	}
	if p.Sentiment != nil {
		c.Sentiment = *p.Sentiment
	}
	if p.QAScore != nil {
		c.QAScore = *p.QAScore
	}
	if p.EscalationStatus != nil {
		c.EscalationStatus = *p.EscalationStatus
	}
	if p.AssignedAgent != nil {
		c.AssignedAgent = *p.AssignedAgent
	}
	if p.StartedAt != nil {
		c.StartedAt = *p.StartedAt
	}
	if p.UpdatedAt > c.UpdatedAt {
		c.UpdatedAt = p.UpdatedAt
	}

	s.updateActiveLocked(c)
	snapshot := *c
	s.mu.Unlock()

	kind := ChangeUpdated
	switch {
	case created:
		kind = ChangeCreated
	case snapshot.Status == model.StatusCompleted:
		kind = ChangeEnded
	}
	s.notifyChange(CallChange{CallID: id, Kind: kind, Call: &snapshot})

	return snapshot, created
}

// UpsertFromSnapshot merges a bulk-loaded record. A snapshot older than the
// cached record (by UpdatedAt) is ignored so that snapshot and event arrival
// order does not matter.
func (s *Store) UpsertFromSnapshot(rec model.CallRecord) bool {
	s.mu.Lock()

	existing, ok := s.calls[rec.ID]
	if ok && existing.UpdatedAt >= rec.UpdatedAt {
		s.mu.Unlock()
		return false
	}

	c := rec
	s.calls[rec.ID] = &c
	s.updateActiveLocked(&c)
	snapshot := c
	s.mu.Unlock()

	kind := ChangeUpdated
	if !ok {
		kind = ChangeCreated
	}
	s.notifyChange(CallChange{CallID: rec.ID, Kind: kind, Call: &snapshot})
	return true
}

// AppendInteraction appends to a call's interaction list. Returns false when
// the call is not cached yet; the router buffers such interactions.
func (s *Store) AppendInteraction(in model.Interaction) bool {
	s.mu.Lock()
	if _, ok := s.calls[in.CallID]; !ok {
		s.mu.Unlock()
		return false
	}
	s.interactions[in.CallID] = append(s.interactions[in.CallID], in)
	s.mu.Unlock()

	inCopy := in
	s.notifyChange(CallChange{CallID: in.CallID, Kind: ChangeInteraction, Interaction: &inCopy})
	return true
}

// Evict removes a call and its interactions. Ended calls stay cached until
// this is called explicitly (e.g. at session end).
func (s *Store) Evict(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.calls, id)
	delete(s.activeSet, id)
	delete(s.interactions, id)
}

// Clear drops the whole cache.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = make(map[string]*model.CallRecord)
	s.activeSet = make(map[string]struct{})
	s.interactions = make(map[string][]model.Interaction)
}

// updateActiveLocked maintains the active set. Caller holds mu.
func (s *Store) updateActiveLocked(c *model.CallRecord) {
	if model.IsActiveStatus(c.Status) {
		s.activeSet[c.ID] = struct{}{}
	} else {
		delete(s.activeSet, c.ID)
	}
}

// notifyChange sends a change to the watch channel (non-blocking).
func (s *Store) notifyChange(change CallChange) {
	select {
	case s.changes <- change:
	default:
		// Channel full, drop oldest by consuming one and retrying.
		select {
		case <-s.changes:
			s.changes <- change
		default:
		}
	}
}
