package session

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	cache "github.com/patrickmn/go-cache"
)

const sessionKeyFmt = "session:%s"

// Store is an in-memory session store backed by patrickmn/go-cache.
// Sessions expire after TTL of inactivity; every Get slides the expiry.
type Store struct {
	sessions *cache.Cache
	ttl      time.Duration
	logger   *slog.Logger
}

// NewStore creates a Store whose sessions live for ttl after their last access
func NewStore(ttl, cleanupInterval time.Duration, logger *slog.Logger) *Store {
	return &Store{
		sessions: cache.New(ttl, cleanupInterval),
		ttl:      ttl,
		logger:   logger,
	}
}

func sessionKey(id string) string {
	return fmt.Sprintf(sessionKeyFmt, id)
}

// Create starts a new empty session
func (s *Store) Create() *Session {
	sess := newSession(uuid.NewString())
	s.sessions.Set(sessionKey(sess.ID()), sess, s.ttl)
	s.logger.Debug("session created", "session_id", sess.ID())
	return sess
}

// Get returns a live session and refreshes its expiry
func (s *Store) Get(id string) (*Session, bool) {
	v, found := s.sessions.Get(sessionKey(id))
	if !found {
		return nil, false
	}
	sess := v.(*Session)
	s.sessions.Set(sessionKey(id), sess, s.ttl)
	return sess, true
}

// Delete drops a session
func (s *Store) Delete(id string) {
	s.sessions.Delete(sessionKey(id))
}

// Len returns the number of live sessions
func (s *Store) Len() int {
	return s.sessions.ItemCount()
}
