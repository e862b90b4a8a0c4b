package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"chefdeck/internal/core/id"
)

// DraftKey identifies one item's unsaved input.
type DraftKey struct {
	CycleID id.ID
	SheetID id.ID
	ItemID  id.ID
}

func (k DraftKey) String() string {
	return fmt.Sprintf("%s_%s_%s", k.CycleID, k.SheetID, k.ItemID)
}

// DraftStore keeps raw typed input that has not been confirmed durable yet.
// A draft is written on every keystroke batch and cleared only after the
// corresponding save succeeds, so a crash between typing and sync loses
// nothing.
type DraftStore interface {
	Set(key DraftKey, value string) error
	Get(key DraftKey) (string, bool)
	Clear(key DraftKey) error
}

// MemoryDraftStore is an in-process DraftStore for tests and the CLI.
type MemoryDraftStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryDraftStore creates an empty in-memory draft store.
func NewMemoryDraftStore() *MemoryDraftStore {
	return &MemoryDraftStore{values: make(map[string]string)}
}

func (s *MemoryDraftStore) Set(key DraftKey, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key.String()] = value
	return nil
}

func (s *MemoryDraftStore) Get(key DraftKey) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key.String()]
	return v, ok
}

func (s *MemoryDraftStore) Clear(key DraftKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key.String())
	return nil
}

// FileDraftStore persists drafts to one JSON file per tenant scope, so a
// restarted client resumes with its unsynced input intact.
type FileDraftStore struct {
	path string

	mu     sync.Mutex
	values map[string]string
}

// NewFileDraftStore opens (or creates) the draft file for a tenant scope.
func NewFileDraftStore(dir, scope string) (*FileDraftStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create draft dir: %w", err)
	}

	s := &FileDraftStore{
		path:   filepath.Join(dir, scope+"_drafts.json"),
		values: make(map[string]string),
	}

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read drafts: %w", err)
	}
	if err := json.Unmarshal(data, &s.values); err != nil {
		// A corrupt draft file is not worth failing startup over.
		s.values = make(map[string]string)
	}
	return s, nil
}

func (s *FileDraftStore) Set(key DraftKey, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key.String()] = value
	return s.persist()
}

func (s *FileDraftStore) Get(key DraftKey) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key.String()]
	return v, ok
}

func (s *FileDraftStore) Clear(key DraftKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.values[key.String()]; !ok {
		return nil
	}
	delete(s.values, key.String())
	return s.persist()
}

func (s *FileDraftStore) persist() error {
	data, err := json.Marshal(s.values)
	if err != nil {
		return fmt.Errorf("encode drafts: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write drafts: %w", err)
	}
	return nil
}
