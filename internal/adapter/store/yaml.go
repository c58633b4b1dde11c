package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/berfenger/melcloud2mqtt/internal/core/domain"
	"github.com/berfenger/melcloud2mqtt/internal/core/port"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type entriesFile struct {
	Entries []domain.ConfigEntry `yaml:"entries"`
}

// YAMLEntryStore keeps config entries in a YAML file. With an empty path the
// entries only live in memory.
type YAMLEntryStore struct {
	path    string
	logger  *zap.Logger
	mu      sync.Mutex
	entries []domain.ConfigEntry
}

func NewYAMLEntryStore(path string, logger *zap.Logger) (*YAMLEntryStore, error) {
	s := &YAMLEntryStore{
		path:   path,
		logger: logger,
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *YAMLEntryStore) load() error {
	if s.path == "" {
		return nil
	}
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		s.logger.Debug("store: no entries file yet", zap.String("path", s.path))
		return nil
	}
	if err != nil {
		return fmt.Errorf("read entries: %w", err)
	}
	var file entriesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse entries %s: %w", s.path, err)
	}
	s.entries = file.Entries
	return nil
}

// persist writes entries to disk. Callers swap them in only on success.
func (s *YAMLEntryStore) persist(entries []domain.ConfigEntry) error {
	if s.path == "" {
		return nil
	}
	data, err := yaml.Marshal(entriesFile{Entries: entries})
	if err != nil {
		return err
	}
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp := s.path + ".tmp"
	// tokens are secrets
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func (s *YAMLEntryStore) List() ([]domain.ConfigEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.entries), nil
}

func (s *YAMLEntryStore) Get(id string) (*domain.ConfigEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.Id == id {
			entry := e
			return &entry, nil
		}
	}
	return nil, nil
}

func (s *YAMLEntryStore) FindByEmail(email string) (*domain.ConfigEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if strings.EqualFold(e.Email, email) {
			entry := e
			return &entry, nil
		}
	}
	return nil, nil
}

func (s *YAMLEntryStore) Save(entry domain.ConfigEntry) error {
	if entry.Id == "" {
		return fmt.Errorf("%w: entry without id", domain.ErrInvalidArgument)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	next := slices.Clone(s.entries)
	idx := slices.IndexFunc(next, func(e domain.ConfigEntry) bool { return e.Id == entry.Id })
	if idx >= 0 {
		next[idx] = entry
	} else {
		next = append(next, entry)
	}
	if err := s.persist(next); err != nil {
		return err
	}
	s.entries = next
	return nil
}

func (s *YAMLEntryStore) Delete(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := slices.IndexFunc(s.entries, func(e domain.ConfigEntry) bool { return e.Id == id })
	if idx < 0 {
		return false, nil
	}
	next := slices.Delete(slices.Clone(s.entries), idx, idx+1)
	if err := s.persist(next); err != nil {
		return false, err
	}
	s.entries = next
	return true, nil
}

// ensure interface compliance
var _ port.EntryStore = (*YAMLEntryStore)(nil)
