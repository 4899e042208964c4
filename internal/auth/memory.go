package auth

import (
	"context"
	"sync"
	"time"
)

var _ CrewStore = (*MemoryStore)(nil)

// MemoryStore is the default in-process crew record store. Records are
// stored by normalized employee ID and copied on the way in and out so
// callers never share mutable state with the store.
type MemoryStore struct {
	mu      sync.RWMutex
	members map[string]*CrewMember
}

// NewMemoryStore returns an empty in-memory crew store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{members: make(map[string]*CrewMember)}
}

func (s *MemoryStore) Create(_ context.Context, member *CrewMember) error {
	if member == nil || !ValidEmployeeID(member.EmployeeID) {
		return ErrInvalidInput
	}
	id := NormalizeEmployeeID(member.EmployeeID)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.members[id]; ok {
		return ErrAlreadyExists
	}
	cp := *member
	cp.EmployeeID = id
	now := time.Now().UTC()
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = now
	}
	cp.UpdatedAt = now
	s.members[id] = &cp
	return nil
}

func (s *MemoryStore) Find(_ context.Context, employeeID string) (*CrewMember, error) {
	id := NormalizeEmployeeID(employeeID)
	s.mu.RLock()
	defer s.mu.RUnlock()
	member, ok := s.members[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *member
	return &cp, nil
}

func (s *MemoryStore) Update(_ context.Context, member *CrewMember) error {
	if member == nil {
		return ErrInvalidInput
	}
	id := NormalizeEmployeeID(member.EmployeeID)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.members[id]; !ok {
		return ErrNotFound
	}
	cp := *member
	cp.EmployeeID = id
	cp.UpdatedAt = time.Now().UTC()
	s.members[id] = &cp
	return nil
}

func (s *MemoryStore) List(_ context.Context) ([]*CrewMember, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*CrewMember, 0, len(s.members))
	for _, member := range s.members {
		cp := *member
		out = append(out, &cp)
	}
	return out, nil
}
