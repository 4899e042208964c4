package resource

import (
	"context"
	"sync"

	"crewlink.aero/internal/ids"
)

var (
	_ MessageStore  = (*MemoryMessageStore)(nil)
	_ DocumentStore = (*MemoryDocumentStore)(nil)
)

// MemoryMessageStore is the default in-process message store.
type MemoryMessageStore struct {
	mu       sync.RWMutex
	messages map[string]*Message
}

// NewMemoryMessageStore returns an empty message store.
func NewMemoryMessageStore() *MemoryMessageStore {
	return &MemoryMessageStore{messages: make(map[string]*Message)}
}

func (s *MemoryMessageStore) Create(_ context.Context, msg *Message) error {
	if msg == nil {
		return ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if msg.ID == "" {
		msg.ID = ids.New()
	}
	cp := copyMessage(msg)
	s.messages[cp.ID] = cp
	return nil
}

func (s *MemoryMessageStore) Find(_ context.Context, id string) (*Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msg, ok := s.messages[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyMessage(msg), nil
}

func (s *MemoryMessageStore) Update(_ context.Context, msg *Message) error {
	if msg == nil || msg.ID == "" {
		return ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.messages[msg.ID]; !ok {
		return ErrNotFound
	}
	s.messages[msg.ID] = copyMessage(msg)
	return nil
}

// Mutate applies fn to the stored record while holding the store lock.
func (s *MemoryMessageStore) Mutate(_ context.Context, id string, fn func(*Message) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg, ok := s.messages[id]
	if !ok {
		return ErrNotFound
	}
	return fn(msg)
}

func (s *MemoryMessageStore) List(_ context.Context) ([]*Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Message, 0, len(s.messages))
	for _, msg := range s.messages {
		out = append(out, copyMessage(msg))
	}
	return out, nil
}

func copyMessage(msg *Message) *Message {
	cp := *msg
	cp.Audit = append([]AuditRecord(nil), msg.Audit...)
	if msg.Metadata != nil {
		cp.Metadata = make(map[string]string, len(msg.Metadata))
		for k, v := range msg.Metadata {
			cp.Metadata[k] = v
		}
	}
	return &cp
}

// MemoryDocumentStore is the default in-process document store.
type MemoryDocumentStore struct {
	mu        sync.RWMutex
	documents map[string]*Document
}

// NewMemoryDocumentStore returns an empty document store.
func NewMemoryDocumentStore() *MemoryDocumentStore {
	return &MemoryDocumentStore{documents: make(map[string]*Document)}
}

func (s *MemoryDocumentStore) Create(_ context.Context, doc *Document) error {
	if doc == nil {
		return ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if doc.ID == "" {
		doc.ID = ids.New()
	}
	cp := copyDocument(doc)
	s.documents[cp.ID] = cp
	return nil
}

func (s *MemoryDocumentStore) Find(_ context.Context, id string) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyDocument(doc), nil
}

func (s *MemoryDocumentStore) Update(_ context.Context, doc *Document) error {
	if doc == nil || doc.ID == "" {
		return ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.documents[doc.ID]; !ok {
		return ErrNotFound
	}
	s.documents[doc.ID] = copyDocument(doc)
	return nil
}

// Mutate applies fn to the stored record while holding the store lock.
func (s *MemoryDocumentStore) Mutate(_ context.Context, id string, fn func(*Document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.documents[id]
	if !ok {
		return ErrNotFound
	}
	return fn(doc)
}

func (s *MemoryDocumentStore) List(_ context.Context) ([]*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Document, 0, len(s.documents))
	for _, doc := range s.documents {
		out = append(out, copyDocument(doc))
	}
	return out, nil
}

func copyDocument(doc *Document) *Document {
	cp := *doc
	cp.Audit = append([]AuditRecord(nil), doc.Audit...)
	return &cp
}
