// Package cache holds parsed document models keyed by source path. Entries
// are fingerprinted against the container on disk; a stale fingerprint is a
// miss, never a hit — serving a stale model is a correctness bug, not a
// performance nuance.
package cache

import (
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dgallion1/redline/docmodel"
)

// Fingerprint identifies one on-disk revision of a source container.
type Fingerprint struct {
	Size    int64
	ModTime time.Time
	Sum     string // SHA-256 of the container bytes
}

// FingerprintFile computes the current fingerprint of a container.
func FingerprintFile(path string) (Fingerprint, error) {
	f, err := os.Open(path)
	if err != nil {
		return Fingerprint{}, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return Fingerprint{}, err
	}
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return Fingerprint{}, err
	}
	return Fingerprint{
		Size:    info.Size(),
		ModTime: info.ModTime(),
		Sum:     fmt.Sprintf("%x", h.Sum(nil)),
	}, nil
}

type entry struct {
	fp        Fingerprint
	model     *docmodel.DocumentModel
	updatedAt time.Time
}

// Store is a thread-safe model cache with TTL eviction.
type Store struct {
	mu      sync.Mutex
	entries map[string]*entry
	ttl     time.Duration
}

func NewStore(ttl time.Duration) *Store {
	return &Store{
		entries: make(map[string]*entry),
		ttl:     ttl,
	}
}

// Get returns the cached model for path when the fingerprint still matches;
// a mismatched entry is evicted and nil returned.
func (s *Store) Get(path string, fp Fingerprint) *docmodel.DocumentModel {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[path]
	if !ok {
		return nil
	}
	if e.fp.Sum != fp.Sum || e.fp.Size != fp.Size {
		delete(s.entries, path)
		return nil
	}
	return e.model
}

// Put stores a freshly parsed model under its source fingerprint.
func (s *Store) Put(path string, fp Fingerprint, m *docmodel.DocumentModel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[path] = &entry{fp: fp, model: m, updatedAt: time.Now()}
}

// Cleanup removes entries older than the TTL.
func (s *Store) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for path, e := range s.entries {
		if now.Sub(e.updatedAt) > s.ttl {
			delete(s.entries, path)
		}
	}
}

// Len reports the number of live entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
