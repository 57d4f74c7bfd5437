package pixelbot

import (
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"sync"

	"go.uber.org/zap"
)

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ProgressStore remembers which cells an account has already repainted
// in the current cycle. Each account gets its own store and its own
// file. Every read and write of the file goes through the store's lock.
type ProgressStore struct {
	path   string
	logger *zap.Logger

	mu      sync.Mutex
	painted map[int]bool
}

// NewProgressStore creates a store for account under dir. A nil logger
// disables logging.
func NewProgressStore(dir, account string, logger *zap.Logger) *ProgressStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProgressStore{
		path:    filepath.Join(dir, progressFileName(account)),
		logger:  logger.With(zap.String("account", account), zap.String("stage", "progress")),
		painted: make(map[int]bool),
	}
}

// progressFileName keeps safe account names as they are. A name that
// needed replacing gets a hash of the raw name, so "a/b" and "a_b" do
// not share a file.
func progressFileName(account string) string {
	name := unsafeFileChars.ReplaceAllString(account, "_")
	if name != account {
		h := fnv.New32a()
		h.Write([]byte(account))
		name = fmt.Sprintf("%s_%08x", name, h.Sum32())
	}
	return "repainted_pixels_" + name + ".json"
}

// Path returns the file backing the store.
func (s *ProgressStore) Path() string {
	return s.path
}

// Load reads the persisted state into memory and returns a copy of it.
// A missing or unreadable file counts as nothing painted yet.
func (s *ProgressStore) Load() map[int]bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.painted = s.readLocked()
	return copyProgress(s.painted)
}

func (s *ProgressStore) readLocked() map[int]bool {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Error("Error reading repaint progress", zap.Error(err))
		}
		return make(map[int]bool)
	}

	var raw map[string]bool
	if err := json.Unmarshal(data, &raw); err != nil {
		s.logger.Error("Error parsing repaint progress", zap.Error(err))
		return make(map[int]bool)
	}

	painted := make(map[int]bool, len(raw))
	for k, v := range raw {
		id, err := strconv.Atoi(k)
		if err != nil {
			s.logger.Warn("Skipping malformed cell id", zap.String("cell", k))
			continue
		}
		painted[id] = v
	}
	return painted
}

// Save replaces the persisted state with progress. The file is
// rewritten wholesale through a temp file and rename; last writer wins.
func (s *ProgressStore) Save(progress map[int]bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.painted = copyProgress(progress)
	return s.writeLocked()
}

func (s *ProgressStore) writeLocked() error {
	raw := make(map[string]bool, len(s.painted))
	for id, v := range s.painted {
		raw[strconv.Itoa(id)] = v
	}
	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return fmt.Errorf("error encoding repaint progress: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("error creating progress directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".repainted_pixels_*.tmp")
	if err != nil {
		return fmt.Errorf("error creating progress file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("error writing progress file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("error writing progress file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("error replacing progress file: %w", err)
	}
	return nil
}

// MarkPainted records a painted cell and persists immediately. The
// in-memory mark survives a failed write.
func (s *ProgressStore) MarkPainted(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.painted[id] = true
	return s.writeLocked()
}

// IsPainted reports whether id is marked painted in memory.
func (s *ProgressStore) IsPainted(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.painted[id]
}

// Len returns the number of cells marked painted.
func (s *ProgressStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, v := range s.painted {
		if v {
			n++
		}
	}
	return n
}

// Reset clears memory and deletes the persisted file.
func (s *ProgressStore) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.painted = make(map[int]bool)
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("error removing progress file: %w", err)
	}
	return nil
}

func copyProgress(m map[int]bool) map[int]bool {
	out := make(map[int]bool, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
