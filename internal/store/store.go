package store

import (
	"errors"
	"sync"
	"time"

	"github.com/Vinodh-Projects/dxp-component-builder/internal/domain"
)

// ErrNotFound indicates the deployment id was never dispatched or was cleared.
var ErrNotFound = errors.New("deployment not found")

// ErrTerminal indicates an attempt to mutate a record that already finished.
var ErrTerminal = errors.New("deployment already terminal")

// Store is the process-wide map from deployment id to its record. Writers
// are the dispatcher (one create) and the background task that owns the
// deployment (one terminal mutation); readers are the HTTP handlers.
type Store struct {
	mu      sync.RWMutex
	records map[string]*domain.DeploymentRecord
}

// New returns an empty Store.
func New() *Store {
	return &Store{records: make(map[string]*domain.DeploymentRecord)}
}

// Create registers a fresh in-progress record under id.
func (s *Store) Create(rec domain.DeploymentRecord) {
	rec.Status = domain.StatusInProgress
	if rec.StartedAt.IsZero() {
		rec.StartedAt = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.ID] = &rec
}

// Complete applies the single terminal mutation for id. Once a record is
// terminal further mutations are rejected so status never flaps back.
func (s *Store) Complete(id string, outcome domain.DeploymentOutcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return ErrNotFound
	}
	if rec.Terminal() {
		return ErrTerminal
	}
	if outcome.Success {
		rec.Status = domain.StatusCompleted
	} else {
		rec.Status = domain.StatusFailed
	}
	success := outcome.Success
	rec.Success = &success
	rec.Message = outcome.Message
	rec.BuildDuration = outcome.BuildDuration
	rec.DeployDuration = outcome.DeployDuration
	rec.Duration = outcome.Duration
	rec.BuildLog = outcome.BuildLog
	rec.Step = outcome.Step
	if outcome.Success {
		rec.DeployedPackages = append([]string(nil), outcome.DeployedPackages...)
		rec.Error = ""
	} else {
		rec.DeployedPackages = nil
		rec.Error = outcome.Error
	}
	now := time.Now().UTC()
	rec.CompletedAt = &now
	return nil
}

// Get returns a snapshot of the record for id.
func (s *Store) Get(id string) (domain.DeploymentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return domain.DeploymentRecord{}, ErrNotFound
	}
	return snapshot(rec), nil
}

// List returns snapshots of every retained record keyed by id.
func (s *Store) List() map[string]domain.DeploymentRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]domain.DeploymentRecord, len(s.records))
	for id, rec := range s.records {
		out[id] = snapshot(rec)
	}
	return out
}

// Delete removes the record for id. Deleting an absent id is not an error.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, id)
}

// Len reports the number of retained records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func snapshot(rec *domain.DeploymentRecord) domain.DeploymentRecord {
	out := *rec
	if rec.Success != nil {
		success := *rec.Success
		out.Success = &success
	}
	if rec.CompletedAt != nil {
		completed := *rec.CompletedAt
		out.CompletedAt = &completed
	}
	out.DeployedPackages = append([]string(nil), rec.DeployedPackages...)
	return out
}
