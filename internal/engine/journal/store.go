package journal

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const journalFileExtension = ".json"

// Common journal errors.
var (
	ErrJournalDisabled = errors.New("journal is disabled")
	ErrInvalidEntity   = errors.New("journal entity cannot be empty")
)

// Store is a file-backed journal of imported rows. Safe for concurrent use.
type Store struct {
	directory string
	enabled   bool
	ttl       time.Duration

	mu sync.Mutex
}

// NewStore creates a journal rooted at directory, creating it if needed.
// A disabled store accepts every call and remembers nothing.
func NewStore(directory string, enabled bool, ttlSeconds int) (*Store, error) {
	if !enabled {
		return &Store{enabled: false}, nil
	}
	if directory == "" {
		return nil, errors.New("journal directory cannot be empty")
	}
	if err := ValidateTTL(ttlSeconds); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(directory, 0750); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	return &Store{
		directory: directory,
		enabled:   true,
		ttl:       TTLDuration(ttlSeconds),
	}, nil
}

// IsEnabled reports whether the store persists anything.
func (s *Store) IsEnabled() bool {
	return s.enabled
}

// GetDirectory returns the journal directory.
func (s *Store) GetDirectory() string {
	return s.directory
}

// Contains returns the subset of keys already journaled (and not expired) for entity.
func (s *Store) Contains(entity string, keys []string) (map[string]bool, error) {
	found := make(map[string]bool)
	if !s.enabled {
		return found, nil
	}
	if entity == "" {
		return nil, ErrInvalidEntity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.load(entity)
	if err != nil {
		return nil, err
	}
	for _, key := range keys {
		if e, ok := f.Entries[key]; ok && !e.IsExpired() {
			found[key] = true
		}
	}
	return found, nil
}

// Record adds entries for entity and drops expired ones in the same write.
func (s *Store) Record(entity string, entries []Entry) error {
	if !s.enabled {
		return ErrJournalDisabled
	}
	if entity == "" {
		return ErrInvalidEntity
	}
	if len(entries) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.load(entity)
	if err != nil {
		return err
	}
	for key, e := range f.Entries {
		if e.IsExpired() {
			delete(f.Entries, key)
		}
	}
	for _, e := range entries {
		f.Entries[e.Key] = e
	}
	return s.save(entity, f)
}

// NewEntry creates an entry using the store's TTL.
func (s *Store) NewEntry(key string, row int, runID string) Entry {
	return NewEntry(key, row, runID, s.ttl)
}

// Count returns the number of live entries for entity.
func (s *Store) Count(entity string) (int, error) {
	if !s.enabled {
		return 0, ErrJournalDisabled
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.load(entity)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, e := range f.Entries {
		if !e.IsExpired() {
			count++
		}
	}
	return count, nil
}

// Clear forgets everything recorded for entity.
func (s *Store) Clear(entity string) error {
	if !s.enabled {
		return ErrJournalDisabled
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.entityPath(entity))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete journal file: %w", err)
	}
	return nil
}

// load must be called with s.mu held.
func (s *Store) load(entity string) (*entityFile, error) {
	f := &entityFile{Entity: entity, Entries: map[string]Entry{}}

	data, err := os.ReadFile(s.entityPath(entity))
	if err != nil {
		if os.IsNotExist(err) {
			return f, nil
		}
		return nil, fmt.Errorf("failed to read journal file: %w", err)
	}
	if unmarshalErr := json.Unmarshal(data, f); unmarshalErr != nil {
		return nil, fmt.Errorf("failed to unmarshal journal file: %w", unmarshalErr)
	}
	if f.Entries == nil {
		f.Entries = map[string]Entry{}
	}
	return f, nil
}

// save must be called with s.mu held.
func (s *Store) save(entity string, f *entityFile) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal journal: %w", err)
	}

	path := s.entityPath(entity)
	tempPath := path + ".tmp"
	if writeErr := os.WriteFile(tempPath, data, 0600); writeErr != nil {
		return fmt.Errorf("failed to write journal file: %w", writeErr)
	}
	if renameErr := os.Rename(tempPath, path); renameErr != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to rename journal file: %w", renameErr)
	}
	return nil
}

// entityPath sanitizes the entity name for use as a file name.
func (s *Store) entityPath(entity string) string {
	safe := strings.NewReplacer("/", "_", "\\", "_", ":", "_", "..", "_").Replace(entity)
	return filepath.Join(s.directory, safe+journalFileExtension)
}
