// Package session holds the per-browser-session context the gateway keeps in
// memory: the raw cookie material forwarded upstream, the anti-forgery token
// accessor, and the session-scoped lookup caches. Nothing here is persisted;
// a session that is torn down or expires is simply rebuilt from scratch by
// the next registration.
package session

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jellydator/ttlcache/v3"

	"github.com/movieverse/movieverse-gateway/upstream"
)

// CSRFCookieName is the cookie the auth layer stores the anti-forgery token
// in. Mutating upstream calls echo its value in the X-CSRF-TOKEN header.
const CSRFCookieName = "csrf_access_token"

// ReadCookie extracts the named cookie's value from a raw Cookie header.
// The header is scanned for a "; name=" delimiter after padding, and the value
// runs up to the next semicolon. Returns false when the cookie is absent or
// appears more than once (a malformed header the auth layer never produces).
func ReadCookie(header, name string) (string, bool) {
	parts := strings.Split("; "+header, "; "+name+"=")
	if len(parts) != 2 {
		return "", false
	}
	value := parts[1]
	if i := strings.IndexByte(value, ';'); i >= 0 {
		value = value[:i]
	}
	return value, true
}

// Session is one registered browser session. All fields behind mu so the
// handler goroutines and background reconciles can share it freely.
type Session struct {
	id     uuid.UUID
	userID int

	mu           sync.RWMutex
	cookieHeader string
	lastSeen     time.Time
	closed       bool

	usernames *ttlcache.Cache[int, string]
	movies    *ttlcache.Cache[int, upstream.MovieRef]
}

// ID returns the session's gateway-assigned identifier.
func (s *Session) ID() uuid.UUID { return s.id }

// UserID returns the authenticated user's id as declared at registration.
func (s *Session) UserID() int { return s.userID }

// CookieHeader returns the raw Cookie header forwarded to upstream services.
func (s *Session) CookieHeader() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cookieHeader
}

// CSRFToken re-reads the anti-forgery token from the cookie material.
// Not cached: the auth layer may rotate the token mid-session and every
// mutation must carry the current value. Returns "" when absent — the
// upstream rejects the mutation and the toggle reconciles as usual.
func (s *Session) CSRFToken() string {
	v, _ := ReadCookie(s.CookieHeader(), CSRFCookieName)
	return v
}

// UpdateCookies replaces the session's cookie material, e.g. after the auth
// layer refreshed the access token.
func (s *Session) UpdateCookies(header string) {
	s.mu.Lock()
	s.cookieHeader = header
	s.mu.Unlock()
}

// Touch records activity so idle eviction leaves the session alone.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastSeen = time.Now()
	s.mu.Unlock()
}

// IdleSince returns the time of the session's last recorded activity.
func (s *Session) IdleSince() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSeen
}

// Closed reports whether the session has been torn down. Reconciles that land
// after teardown consult this and drop their result.
func (s *Session) Closed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// Close tears the session down: both lookup caches are invalidated and
// stopped. Idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.usernames.DeleteAll()
	s.usernames.Stop()
	s.movies.DeleteAll()
	s.movies.Stop()
}

// Username returns the cached username for a user id.
func (s *Session) Username(userID int) (string, bool) {
	if s.Closed() {
		return "", false
	}
	item := s.usernames.Get(userID)
	if item == nil {
		return "", false
	}
	return item.Value(), true
}

// StoreUsername caches a resolved username for reuse by later lookups in the
// same session. Failed lookups are not cached so they are retried.
func (s *Session) StoreUsername(userID int, username string) {
	if s.Closed() {
		return
	}
	s.usernames.Set(userID, username, ttlcache.DefaultTTL)
}

// MovieRef returns the cached minimal movie record for an id.
func (s *Session) MovieRef(movieID int) (upstream.MovieRef, bool) {
	if s.Closed() {
		return upstream.MovieRef{}, false
	}
	item := s.movies.Get(movieID)
	if item == nil {
		return upstream.MovieRef{}, false
	}
	return item.Value(), true
}

// StoreMovieRef caches a movie reference. Refs are immutable once fetched, so
// the TTL only bounds memory, not staleness.
func (s *Session) StoreMovieRef(ref upstream.MovieRef) {
	if s.Closed() {
		return
	}
	s.movies.Set(ref.MovieID, ref, ttlcache.DefaultTTL)
}
