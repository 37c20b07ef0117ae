package oauth

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"smartlaunch/pkg/logging"
)

// DefaultSessionTTL is how long a credential stays available after the callback.
const DefaultSessionTTL = 30 * time.Minute

// credentialExpiryMargin accounts for clock skew when checking token expiry.
const credentialExpiryMargin = 30 * time.Second

type sessionEntry struct {
	credential *Credential
	createdAt  time.Time
}

// SessionStore holds credentials between the callback and the continuation
// request, keyed by an opaque session id.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*sessionEntry

	ttl             time.Duration
	cleanupInterval time.Duration
	now             func() time.Time

	stopCleanup chan struct{}
	stopOnce    sync.Once
}

// NewSessionStore creates a store whose sessions expire after ttl.
// A non-positive ttl selects DefaultSessionTTL.
func NewSessionStore(ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	s := &SessionStore{
		sessions:        make(map[string]*sessionEntry),
		ttl:             ttl,
		cleanupInterval: 5 * time.Minute,
		now:             time.Now,
		stopCleanup:     make(chan struct{}),
	}

	go s.cleanupLoop()

	return s
}

// Create stores cred under a new random session id and returns the id.
func (s *SessionStore) Create(cred *Credential) string {
	id := uuid.NewString()
	s.Put(id, cred)
	return id
}

// Put stores cred under id, replacing any previous session.
func (s *SessionStore) Put(id string, cred *Credential) {
	s.mu.Lock()
	s.sessions[id] = &sessionEntry{credential: cred, createdAt: s.now()}
	s.mu.Unlock()

	logging.Debug("Sessions", "Stored session=%s (patient=%t, expires: %v)",
		logging.TruncateID(id), cred.HasPatient(), cred.ExpiresAt)
}

// Get returns the credential for id, or nil if the session is unknown,
// older than the TTL, or its access token has expired.
func (s *SessionStore) Get(id string) *Credential {
	s.mu.RLock()
	entry, ok := s.sessions[id]
	s.mu.RUnlock()

	if !ok {
		return nil
	}
	if s.expired(entry) {
		logging.Debug("Sessions", "Session=%s expired", logging.TruncateID(id))
		return nil
	}
	if entry.credential.IsExpired(credentialExpiryMargin) {
		logging.Debug("Sessions", "Access token for session=%s expired", logging.TruncateID(id))
		return nil
	}
	return entry.credential
}

// Delete removes a session.
func (s *SessionStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// Count returns the number of held sessions.
func (s *SessionStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Stop stops the background cleanup goroutine.
func (s *SessionStore) Stop() {
	s.stopOnce.Do(func() { close(s.stopCleanup) })
}

func (s *SessionStore) expired(e *sessionEntry) bool {
	return s.now().Sub(e.createdAt) > s.ttl
}

func (s *SessionStore) cleanupLoop() {
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

func (s *SessionStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for id, entry := range s.sessions {
		if s.expired(entry) || entry.credential.IsExpired(0) {
			delete(s.sessions, id)
			count++
		}
	}

	if count > 0 {
		logging.Debug("Sessions", "Cleaned up %d expired sessions", count)
	}
}
