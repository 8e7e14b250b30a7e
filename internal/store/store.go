// Package store owns the persistent user→thread mapping. The mapping
// lives in a single flat JSON file that is loaded once at startup and
// rewritten synchronously on every mutation. One Store instance owns
// the map and the file; callers never see the raw map.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

type Store struct {
	path string

	mu      sync.Mutex
	threads map[string]string

	// group collapses concurrent creations for the same user so a
	// duplicate webhook delivery cannot mint two remote threads.
	group singleflight.Group
}

// Open loads the mapping from path. A missing or corrupt file is
// treated as an empty mapping and never fails startup.
func Open(path string) *Store {
	s := &Store{
		path:    path,
		threads: make(map[string]string),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", path).Msg("thread map unreadable, starting empty")
		}
		return s
	}

	if err := json.Unmarshal(data, &s.threads); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("thread map corrupt, starting empty")
		s.threads = make(map[string]string)
		return s
	}

	log.Info().Int("users", len(s.threads)).Str("path", path).Msg("thread map loaded")
	return s
}

// Lookup returns the thread id mapped to userID, if any.
func (s *Store) Lookup(userID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.threads[userID]
	return id, ok
}

// GetOrCreate returns the thread id for userID, invoking create for a
// new remote thread on first contact and persisting the new mapping
// before returning. In-flight creations are deduplicated per user;
// across restarts the usual last-write-wins caveat applies.
func (s *Store) GetOrCreate(ctx context.Context, userID string, create func(context.Context) (string, error)) (string, error) {
	if id, ok := s.Lookup(userID); ok {
		return id, nil
	}

	v, err, _ := s.group.Do(userID, func() (any, error) {
		// A concurrent flight may have stored the mapping already.
		if id, ok := s.Lookup(userID); ok {
			return id, nil
		}

		id, err := create(ctx)
		if err != nil {
			return "", err
		}

		s.mu.Lock()
		s.threads[userID] = id
		perr := s.persistLocked()
		s.mu.Unlock()

		if perr != nil {
			// The mapping survives in memory; the next successful
			// persist carries it to disk.
			log.Error().Err(perr).Str("userId", userID).Msg("failed to persist thread map")
		}

		log.Info().Str("userId", userID).Str("threadId", id).Msg("thread created for user")
		return id, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Len reports the number of mapped users.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.threads)
}

// persistLocked rewrites the whole file. Must be called with mu held.
// The write goes through a temp file and rename so a crash mid-write
// leaves the previous mapping intact.
func (s *Store) persistLocked() error {
	data, err := json.MarshalIndent(s.threads, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal thread map: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".thread-map-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace thread map: %w", err)
	}
	return nil
}
