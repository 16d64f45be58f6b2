package preference

import (
	"context"
	"log/slog"

	"github.com/movieverse/movieverse-gateway/session"
	"github.com/movieverse/movieverse-gateway/upstream"
)

// Store bundles one session's togglers, one per relation kind. Created at
// session registration and dropped at teardown.
type Store struct {
	togglers map[Kind]*Toggler
}

// NewStore wires the three relation togglers for a session. The notifier may
// be nil.
func NewStore(client *upstream.Client, sess *session.Session, notifier Notifier) *Store {
	build := func(kind Kind, source Source, setOnly bool) *Toggler {
		return &Toggler{
			kind:     kind,
			source:   source,
			set:      newMembershipSet(),
			sess:     sess,
			notifier: notifier,
			setOnly:  setOnly,
		}
	}
	return &Store{
		togglers: map[Kind]*Toggler{
			KindFavorite: build(KindFavorite, &favoriteSource{client: client, sess: sess}, false),
			KindWatched:  build(KindWatched, &watchedSource{client: client, sess: sess}, true),
			KindFriend:   build(KindFriend, &friendSource{client: client, sess: sess}, false),
		},
	}
}

// Toggler returns the toggler for a relation kind.
func (st *Store) Toggler(kind Kind) (*Toggler, bool) {
	t, ok := st.togglers[kind]
	return t, ok
}

// Refresh loads every relation's membership index. Failures are logged and
// the affected index starts empty; the next toggle's re-read repairs it.
func (st *Store) Refresh(ctx context.Context) {
	for _, kind := range Kinds {
		t := st.togglers[kind]
		if err := t.Refresh(ctx); err != nil {
			slog.Warn("initial preference load failed",
				"session_id", t.sess.ID(), "kind", kind, "error", err)
		}
	}
}
