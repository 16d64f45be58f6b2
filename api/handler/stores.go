package handler

import (
	"sync"

	"github.com/google/uuid"

	"github.com/movieverse/movieverse-gateway/preference"
	"github.com/movieverse/movieverse-gateway/session"
	"github.com/movieverse/movieverse-gateway/upstream"
)

// PreferenceStores holds one preference.Store per live session. Entries are
// created at session registration and dropped through the registry's close
// hook, so a torn-down session's toggle state disappears with its caches.
type PreferenceStores struct {
	client   *upstream.Client
	notifier preference.Notifier

	mu     sync.RWMutex
	stores map[uuid.UUID]*preference.Store
}

// NewPreferenceStores creates the store collection and hooks it into the
// registry's teardown path.
func NewPreferenceStores(client *upstream.Client, registry *session.Registry, notifier preference.Notifier) *PreferenceStores {
	ps := &PreferenceStores{
		client:   client,
		notifier: notifier,
		stores:   make(map[uuid.UUID]*preference.Store),
	}
	registry.OnClose(func(s *session.Session) {
		ps.mu.Lock()
		delete(ps.stores, s.ID())
		ps.mu.Unlock()
	})
	return ps
}

// Create wires a fresh store for the session.
func (ps *PreferenceStores) Create(sess *session.Session) *preference.Store {
	store := preference.NewStore(ps.client, sess, ps.notifier)
	ps.mu.Lock()
	ps.stores[sess.ID()] = store
	ps.mu.Unlock()
	return store
}

// Get returns the session's store, if the session is still live.
func (ps *PreferenceStores) Get(sess *session.Session) (*preference.Store, bool) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	store, ok := ps.stores[sess.ID()]
	return store, ok
}
