package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jellydator/ttlcache/v3"

	"github.com/movieverse/movieverse-gateway/upstream"
)

// Registry tracks all live sessions by id. One Registry is created at startup
// and shared by the middleware, the handlers and the idle cleaner.
type Registry struct {
	usernameTTL time.Duration
	movieTTL    time.Duration

	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session

	// onClose hooks run whenever a session leaves the registry, letting the
	// preference layer drop its per-session toggle state without the session
	// package importing it.
	onClose []func(*Session)
}

// NewRegistry creates an empty registry. The TTLs bound the per-session
// username and movie caches.
func NewRegistry(usernameTTL, movieTTL time.Duration) *Registry {
	return &Registry{
		usernameTTL: usernameTTL,
		movieTTL:    movieTTL,
		sessions:    make(map[uuid.UUID]*Session),
	}
}

// OnClose registers a hook invoked after a session is removed and closed.
// Must be called during startup wiring, before sessions are registered.
func (r *Registry) OnClose(fn func(*Session)) {
	r.onClose = append(r.onClose, fn)
}

// Register creates a session for the given cookie material and user id and
// starts its cache eviction loops.
func (r *Registry) Register(cookieHeader string, userID int) *Session {
	usernames := ttlcache.New[int, string](
		ttlcache.WithTTL[int, string](r.usernameTTL),
	)
	movies := ttlcache.New[int, upstream.MovieRef](
		ttlcache.WithTTL[int, upstream.MovieRef](r.movieTTL),
		ttlcache.WithDisableTouchOnHit[int, upstream.MovieRef](),
	)
	go usernames.Start()
	go movies.Start()

	s := &Session{
		id:           uuid.New(),
		userID:       userID,
		cookieHeader: cookieHeader,
		lastSeen:     time.Now(),
		usernames:    usernames,
		movies:       movies,
	}

	r.mu.Lock()
	r.sessions[s.id] = s
	r.mu.Unlock()
	return s
}

// Get returns the session with the given id, if it is still live.
func (r *Registry) Get(id uuid.UUID) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Remove tears down one session: it leaves the registry, its caches are
// invalidated, and close hooks fire. Used by logout.
func (r *Registry) Remove(id uuid.UUID) bool {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	r.mu.Unlock()
	if !ok {
		return false
	}
	s.Close()
	for _, fn := range r.onClose {
		fn(s)
	}
	return true
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// EvictIdle removes every session idle for longer than maxIdle and returns
// how many were evicted. A maxIdle of 0 disables eviction.
func (r *Registry) EvictIdle(maxIdle time.Duration) int {
	if maxIdle <= 0 {
		return 0
	}
	cutoff := time.Now().Add(-maxIdle)

	r.mu.Lock()
	var expired []*Session
	for id, s := range r.sessions {
		if s.IdleSince().Before(cutoff) {
			expired = append(expired, s)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, s := range expired {
		s.Close()
		for _, fn := range r.onClose {
			fn(s)
		}
	}
	return len(expired)
}

// CloseAll tears down every session. Called during graceful shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	all := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		all = append(all, s)
	}
	r.sessions = make(map[uuid.UUID]*Session)
	r.mu.Unlock()

	for _, s := range all {
		s.Close()
		for _, fn := range r.onClose {
			fn(s)
		}
	}
}
