package repositories

import (
	"context"
	"sync"
	"time"

	"github.com/BradenHooton/barberbook/internal/models"
)

type ipAttemptEntry struct {
	record    models.IPAttemptRecord
	expiresAt time.Time
}

// MemoryIPAttemptStore keeps IP attempt records in process memory. It is
// owned by whoever constructs it and is not shared across instances.
// Records are dropped once they have been idle for the guard window.
type MemoryIPAttemptStore struct {
	mu      sync.Mutex
	entries map[string]*ipAttemptEntry
}

func NewMemoryIPAttemptStore() *MemoryIPAttemptStore {
	return &MemoryIPAttemptStore{entries: make(map[string]*ipAttemptEntry)}
}

// Get returns a copy of the record for ip, or nil when there is none
func (s *MemoryIPAttemptStore) Get(_ context.Context, ip string, now time.Time) (*models.IPAttemptRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[ip]
	if !ok {
		return nil, nil
	}
	if !entry.expiresAt.After(now) {
		delete(s.entries, ip)
		return nil, nil
	}
	return copyRecord(entry.record), nil
}

// Increment adds one failure and blocks the ip for window once the count
// reaches maxFailures.
func (s *MemoryIPAttemptStore) Increment(_ context.Context, ip string, maxFailures int, window time.Duration, now time.Time) (*models.IPAttemptRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[ip]
	if !ok || !entry.expiresAt.After(now) {
		entry = &ipAttemptEntry{}
		s.entries[ip] = entry
	}

	entry.record.Count++
	entry.expiresAt = now.Add(window)
	if entry.record.Count >= maxFailures {
		blockedUntil := now.Add(window)
		entry.record.BlockedUntil = &blockedUntil
	}
	return copyRecord(entry.record), nil
}

func (s *MemoryIPAttemptStore) Delete(_ context.Context, ip string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, ip)
	return nil
}

// PruneExpired drops idle records and elapsed blocks, returning how many were removed
func (s *MemoryIPAttemptStore) PruneExpired(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for ip, entry := range s.entries {
		if !entry.expiresAt.After(now) || entry.record.BlockExpired(now) {
			delete(s.entries, ip)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked IPs
func (s *MemoryIPAttemptStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func copyRecord(r models.IPAttemptRecord) *models.IPAttemptRecord {
	out := models.IPAttemptRecord{Count: r.Count}
	if r.BlockedUntil != nil {
		t := *r.BlockedUntil
		out.BlockedUntil = &t
	}
	return &out
}
