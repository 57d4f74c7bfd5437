package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"go.uber.org/zap"

	"github.com/wbrown/pixelbot"
)

var (
	// ErrNoCredential is returned when an account has no stored entry.
	ErrNoCredential = errors.New("no credential stored for account")
	// ErrStaleCredential is returned by Refresh when the store still holds
	// the credential that was just rejected.
	ErrStaleCredential = errors.New("stored credential unchanged")
)

// Entry is one userdata.json record.
type Entry struct {
	Name          string `json:"name"`
	Authorization string `json:"authorization"`
}

// Store reads userdata.json. Credentials land there from outside the
// bot; Refresh only re-reads the file.
type Store struct {
	path   string
	logger *zap.Logger

	mu sync.Mutex
	// last remembers the credential handed out per account, so Refresh
	// can tell a new credential from the rejected one.
	last map[string]string
}

// NewStore creates a store backed by path.
func NewStore(path string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		path:   path,
		logger: logger.With(zap.String("stage", "auth")),
		last:   make(map[string]string),
	}
}

func (s *Store) readLocked() ([]Entry, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("error reading %s: %w", s.path, err)
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("error parsing %s: %w", s.path, err)
	}
	return entries, nil
}

// Get returns the stored credential for account.
func (s *Store) Get(account string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.readLocked()
	if err != nil {
		return "", err
	}
	for _, e := range entries {
		if e.Name == account && e.Authorization != "" {
			s.last[account] = e.Authorization
			return e.Authorization, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNoCredential, account)
}

// Refresh re-reads the store after the server rejected account's
// credential. It fails when the store has nothing new to offer.
func (s *Store) Refresh(_ context.Context, account string) (string, error) {
	s.mu.Lock()
	rejected := s.last[account]
	s.mu.Unlock()

	fresh, err := s.Get(account)
	if err != nil {
		return "", err
	}
	if fresh == rejected {
		s.logger.Warn("Credential rejected and no replacement stored", zap.String("account", account))
		return "", fmt.Errorf("%w: %s", ErrStaleCredential, account)
	}
	s.logger.Info("Picked up refreshed credential", zap.String("account", account))
	return fresh, nil
}

var _ pixelbot.CredentialRefresher = (*Store)(nil)
