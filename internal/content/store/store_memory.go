package store

import (
	"context"
	"errors"
	"sync"

	"certledger/internal/certificate/models"
	"certledger/internal/content"
)

var errOffline = errors.New("memory content store offline")

// InMemoryStore keeps payloads in a map keyed by pointer. It is used by tests
// and the single-process dev mode.
type InMemoryStore struct {
	mu      sync.RWMutex
	blobs   map[models.ContentPointer][]byte
	gateway string
	offline bool
}

// NewInMemory creates an empty in-memory content store.
func NewInMemory(gateway string) *InMemoryStore {
	return &InMemoryStore{
		blobs:   make(map[models.ContentPointer][]byte),
		gateway: gateway,
	}
}

func (s *InMemoryStore) Put(ctx context.Context, data []byte) (models.ContentPointer, error) {
	ptr, err := content.PointerFor(data)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.offline {
		return "", content.Unavailable("put", errOffline)
	}
	if _, ok := s.blobs[ptr]; !ok {
		s.blobs[ptr] = append([]byte(nil), data...)
	}
	return ptr, nil
}

func (s *InMemoryStore) Get(ctx context.Context, ptr models.ContentPointer) ([]byte, error) {
	if _, err := content.ParsePointer(ptr); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.offline {
		return nil, content.Unavailable("get", errOffline)
	}
	data, ok := s.blobs[ptr]
	if !ok {
		return nil, content.NotFound(ptr)
	}
	if err := content.Verify(ptr, data); err != nil {
		return nil, err
	}
	return append([]byte(nil), data...), nil
}

func (s *InMemoryStore) GatewayURL(ptr models.ContentPointer) string {
	return content.GatewayURL(s.gateway, ptr)
}

// SetOffline makes every subsequent call fail as unavailable until reset.
func (s *InMemoryStore) SetOffline(offline bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.offline = offline
}

// Overwrite replaces the bytes held for ptr, simulating a corrupt replica.
func (s *InMemoryStore) Overwrite(ptr models.ContentPointer, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[ptr] = append([]byte(nil), data...)
}

// Len returns the number of distinct payloads held.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}
