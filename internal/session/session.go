// Package session keeps per-user session state shared across requests
package session

import (
	"context"
	"sync"
)

// DisclaimerKey is the property under which the disclaimer marker is stored
const DisclaimerKey = "fileDisclaimer"

// DisclaimerMarker records the record whose license annex the user was shown
type DisclaimerMarker struct {
	ID string
}

// Session is a long-lived user session. All accessors are safe for
// concurrent use by requests of the same session.
type Session struct {
	id string

	mu     sync.RWMutex
	userID string
	props  map[string]any
}

func newSession(id string) *Session {
	return &Session{
		id:    id,
		props: make(map[string]any),
	}
}

// ID returns the session identifier
func (s *Session) ID() string {
	return s.id
}

// UserID returns the authenticated user ID, if any
func (s *Session) UserID() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID, s.userID != ""
}

// SetUserID attaches an authenticated user to the session
func (s *Session) SetUserID(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userID = userID
}

// Property returns the value stored under key
func (s *Session) Property(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.props[key]
	return v, ok
}

// SetProperty stores value under key, replacing any previous value
func (s *Session) SetProperty(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.props[key] = value
}

// MarkDisclaimer records recordID as the record whose disclaimer was shown.
// An existing marker is overwritten in place; only the latest ID is kept.
func (s *Session) MarkDisclaimer(recordID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if marker, ok := s.props[DisclaimerKey].(*DisclaimerMarker); ok {
		marker.ID = recordID
		return
	}
	s.props[DisclaimerKey] = &DisclaimerMarker{ID: recordID}
}

// Disclaimer returns the record ID held by the disclaimer marker
func (s *Session) Disclaimer() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	marker, ok := s.props[DisclaimerKey].(*DisclaimerMarker)
	if !ok || marker.ID == "" {
		return "", false
	}
	return marker.ID, true
}

type contextKey struct{}

// NewContext returns a copy of ctx carrying sess
func NewContext(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, contextKey{}, sess)
}

// FromContext returns the session stored in ctx, if any
func FromContext(ctx context.Context) (*Session, bool) {
	sess, ok := ctx.Value(contextKey{}).(*Session)
	return sess, ok && sess != nil
}
