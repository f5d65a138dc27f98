// Package memory provides in-memory store implementations for development
// and testing.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/jobradar/harvester/internal/scrape"
)

// JobStore keeps normalized jobs keyed by external ID.
type JobStore struct {
	mu        sync.RWMutex
	jobs      map[string]scrape.NormalizedJob
	firstSeen map[string]time.Time
}

// NewJobStore constructs a JobStore.
func NewJobStore() *JobStore {
	return &JobStore{
		jobs:      make(map[string]scrape.NormalizedJob),
		firstSeen: make(map[string]time.Time),
	}
}

// Upsert inserts or refreshes a job. The external ID and first-seen time of
// an existing row never change; mutable fields take the incoming values.
func (s *JobStore) Upsert(_ context.Context, job scrape.NormalizedJob) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.jobs[job.ExternalID]
	if exists {
		job.Company = existing.Company
		job.DiscoveredAt = s.firstSeen[job.ExternalID]
	} else {
		s.firstSeen[job.ExternalID] = job.DiscoveredAt
	}
	s.jobs[job.ExternalID] = job
	return !exists, nil
}

// Get fetches a job by external ID.
func (s *JobStore) Get(_ context.Context, externalID string) (scrape.NormalizedJob, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[externalID]
	return job, ok
}

// Count returns the stored job count.
func (s *JobStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}

// RunLogStore keeps run log entries in append order.
type RunLogStore struct {
	mu      sync.RWMutex
	entries []scrape.RunLogEntry
}

// NewRunLogStore constructs a RunLogStore.
func NewRunLogStore() *RunLogStore {
	return &RunLogStore{}
}

// Append records one entry.
func (s *RunLogStore) Append(_ context.Context, entry scrape.RunLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *RunLogStore) Recent(_ context.Context, limit int) ([]scrape.RunLogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || limit > len(s.entries) {
		limit = len(s.entries)
	}
	out := make([]scrape.RunLogEntry, 0, limit)
	for i := len(s.entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.entries[i])
	}
	return out, nil
}
