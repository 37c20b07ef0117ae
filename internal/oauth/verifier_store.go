package oauth

import (
	"context"
	"sync"
	"time"

	"smartlaunch/pkg/logging"
)

// DefaultVerifierTTL bounds how long a pending authorization can be completed.
const DefaultVerifierTTL = 10 * time.Minute

// VerifierStore maps a state value to the PKCE verifier of a pending
// authorization.
//
// Put overwrites any previous value for the same state. Take removes the entry
// in the same operation that reads it, so concurrent Take calls for one state
// see exactly one success; the others get ErrVerifierNotFound.
type VerifierStore interface {
	Put(ctx context.Context, state, verifier string) error
	Take(ctx context.Context, state string) (string, error)
}

type verifierEntry struct {
	verifier string
	storedAt time.Time
}

// MemoryVerifierStore is a process-local VerifierStore.
type MemoryVerifierStore struct {
	mu      sync.Mutex
	entries map[string]verifierEntry

	ttl             time.Duration
	cleanupInterval time.Duration
	now             func() time.Time

	stopCleanup chan struct{}
	stopOnce    sync.Once
}

// NewMemoryVerifierStore creates a store whose entries expire after ttl.
// A non-positive ttl selects DefaultVerifierTTL. Call Stop to end the
// background eviction goroutine.
func NewMemoryVerifierStore(ttl time.Duration) *MemoryVerifierStore {
	if ttl <= 0 {
		ttl = DefaultVerifierTTL
	}
	s := &MemoryVerifierStore{
		entries:         make(map[string]verifierEntry),
		ttl:             ttl,
		cleanupInterval: time.Minute,
		now:             time.Now,
		stopCleanup:     make(chan struct{}),
	}

	go s.cleanupLoop()

	return s
}

// Put stores verifier under state.
func (s *MemoryVerifierStore) Put(_ context.Context, state, verifier string) error {
	s.mu.Lock()
	s.entries[state] = verifierEntry{verifier: verifier, storedAt: s.now()}
	s.mu.Unlock()

	logging.Debug("VerifierStore", "Stored verifier for state=%s", logging.TruncateID(state))
	return nil
}

// Take returns and removes the verifier for state.
func (s *MemoryVerifierStore) Take(_ context.Context, state string) (string, error) {
	s.mu.Lock()
	entry, ok := s.entries[state]
	if ok {
		delete(s.entries, state)
	}
	s.mu.Unlock()

	if !ok {
		return "", ErrVerifierNotFound
	}
	if s.expired(entry) {
		logging.Debug("VerifierStore", "Verifier for state=%s expired", logging.TruncateID(state))
		return "", ErrVerifierNotFound
	}
	return entry.verifier, nil
}

// Len returns the number of stored entries, expired ones included until
// the next eviction.
func (s *MemoryVerifierStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Stop stops the background eviction goroutine. It is safe to call more than once.
func (s *MemoryVerifierStore) Stop() {
	s.stopOnce.Do(func() { close(s.stopCleanup) })
}

func (s *MemoryVerifierStore) expired(e verifierEntry) bool {
	return s.now().Sub(e.storedAt) > s.ttl
}

func (s *MemoryVerifierStore) cleanupLoop() {
	ticker := time.NewTicker(s.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stopCleanup:
			return
		}
	}
}

func (s *MemoryVerifierStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for state, entry := range s.entries {
		if s.expired(entry) {
			delete(s.entries, state)
			count++
		}
	}

	if count > 0 {
		logging.Debug("VerifierStore", "Evicted %d expired verifiers", count)
	}
}
