package service

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MembershipCacheStore caches the set of club IDs a student actively
// belongs to. Invalidation bumps an epoch instead of deleting keys, so
// stale entries age out under their TTL while reads immediately miss.
type MembershipCacheStore interface {
	Get(ctx context.Context, studentID uint) ([]uint, bool, error)
	Set(ctx context.Context, studentID uint, clubIDs []uint, ttl time.Duration) error
	InvalidateStudent(ctx context.Context, studentID uint) error
	InvalidateAll(ctx context.Context) error
}

type NoopMembershipCacheStore struct{}

func NewNoopMembershipCacheStore() *NoopMembershipCacheStore {
	return &NoopMembershipCacheStore{}
}

func (s *NoopMembershipCacheStore) Get(context.Context, uint) ([]uint, bool, error) {
	return nil, false, nil
}

func (s *NoopMembershipCacheStore) Set(context.Context, uint, []uint, time.Duration) error {
	return nil
}

func (s *NoopMembershipCacheStore) InvalidateStudent(context.Context, uint) error {
	return nil
}

func (s *NoopMembershipCacheStore) InvalidateAll(context.Context) error {
	return nil
}

type membershipCacheEntry struct {
	clubIDs   []uint
	expiresAt time.Time
}

type InMemoryMembershipCacheStore struct {
	mu           sync.RWMutex
	data         map[string]membershipCacheEntry
	globalEpoch  uint64
	studentEpoch map[uint]uint64
}

func NewInMemoryMembershipCacheStore() *InMemoryMembershipCacheStore {
	return &InMemoryMembershipCacheStore{
		data:         make(map[string]membershipCacheEntry),
		studentEpoch: make(map[uint]uint64),
	}
}

func (s *InMemoryMembershipCacheStore) Get(_ context.Context, studentID uint) ([]uint, bool, error) {
	now := time.Now().UTC()
	s.mu.RLock()
	key := s.cacheKeyLocked(studentID)
	entry, ok := s.data[key]
	s.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if now.After(entry.expiresAt) {
		s.mu.Lock()
		delete(s.data, key)
		s.mu.Unlock()
		return nil, false, nil
	}
	return append([]uint(nil), entry.clubIDs...), true, nil
}

func (s *InMemoryMembershipCacheStore) Set(_ context.Context, studentID uint, clubIDs []uint, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := s.cacheKeyLocked(studentID)
	s.data[key] = membershipCacheEntry{
		clubIDs:   append([]uint(nil), clubIDs...),
		expiresAt: time.Now().UTC().Add(ttl),
	}
	return nil
}

func (s *InMemoryMembershipCacheStore) InvalidateStudent(_ context.Context, studentID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.studentEpoch[studentID]++
	return nil
}

func (s *InMemoryMembershipCacheStore) InvalidateAll(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.globalEpoch++
	return nil
}

func (s *InMemoryMembershipCacheStore) cacheKeyLocked(studentID uint) string {
	return buildMembershipCacheKey(s.globalEpoch, s.studentEpoch[studentID], studentID)
}

func buildMembershipCacheKey(globalEpoch, studentEpoch uint64, studentID uint) string {
	return fmt.Sprintf("clubset:g%d:s%d:student:%d", globalEpoch, studentEpoch, studentID)
}
