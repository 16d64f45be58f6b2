package preference

import (
	"context"
	"log/slog"
	"time"

	"github.com/movieverse/movieverse-gateway/session"
)

// reconcileTimeout bounds one background mutate-and-refetch cycle.
const reconcileTimeout = 15 * time.Second

// Source is one relation's upstream binding: the mutation pair and the
// authoritative membership read.
type Source interface {
	// Mutate creates (set) or removes (unset) the membership edge.
	Mutate(ctx context.Context, set bool, target Target) error
	// Fetch returns the full authoritative member set.
	Fetch(ctx context.Context) ([]Target, error)
}

// Notifier receives each installed authoritative snapshot, e.g. to push it to
// the browser over a socket.
type Notifier interface {
	PreferenceChanged(sess *session.Session, kind Kind, members []Target)
}

// Toggler runs the optimistic toggle for one relation kind of one session.
type Toggler struct {
	kind     Kind
	source   Source
	set      *membershipSet
	sess     *session.Session
	notifier Notifier

	// setOnly relations have no removal mutation; toggling a member is a
	// no-op instead of an unset. Watched marks work this way.
	setOnly bool
}

// State returns the target's visible toggle state.
func (t *Toggler) State(id int) State { return t.set.State(id) }

// Contains reports whether the target currently renders as a member.
func (t *Toggler) Contains(id int) bool { return t.set.Contains(id) }

// Members returns the authoritative member set.
func (t *Toggler) Members() []Target { return t.set.Members() }

// Refresh replaces the membership index from a fresh authoritative read.
// On failure the current index is kept and the error returned for logging.
func (t *Toggler) Refresh(ctx context.Context) error {
	seq := t.set.snapshotSeq()
	members, err := t.source.Fetch(ctx)
	if err != nil {
		return err
	}
	if t.sess.Closed() {
		return nil
	}
	if t.set.replace(seq, members) {
		t.notify(members)
	}
	return nil
}

// Toggle flips the target's state optimistically and returns the new visible
// state at once. The upstream mutation and the authoritative re-read run in
// the background on their own context, outliving the request that triggered
// them; the index is replaced (or the flip reverted) when they finish. The
// returned state is what the caller should render immediately.
func (t *Toggler) Toggle(target Target) State {
	current := t.set.State(target.ID)
	turningOn := !current.On()

	if t.setOnly && !turningOn {
		return current
	}

	seq, optimistic := t.set.begin(target.ID, turningOn)
	go t.reconcile(seq, target, turningOn)
	return optimistic
}

// reconcile runs the mutation, then unconditionally re-reads the member set.
// The re-read happens whether the mutation succeeded or failed, so the index
// always converges on what the upstream actually holds.
func (t *Toggler) reconcile(seq uint64, target Target, set bool) {
	ctx, cancel := context.WithTimeout(context.Background(), reconcileTimeout)
	defer cancel()

	if err := t.source.Mutate(ctx, set, target); err != nil {
		slog.Warn("preference mutation rejected",
			"session_id", t.sess.ID(), "kind", t.kind,
			"target_id", target.ID, "set", set, "error", err)
	}

	members, err := t.source.Fetch(ctx)
	if err != nil {
		// Revert the optimistic flip; the last authoritative index stands.
		slog.Warn("preference refetch failed",
			"session_id", t.sess.ID(), "kind", t.kind,
			"target_id", target.ID, "error", err)
		t.set.abandon(seq, target.ID)
		return
	}

	if t.sess.Closed() {
		t.set.abandon(seq, target.ID)
		return
	}

	if t.set.complete(seq, target.ID, members) {
		t.notify(members)
	}
}

func (t *Toggler) notify(members []Target) {
	if t.notifier == nil {
		return
	}
	t.notifier.PreferenceChanged(t.sess, t.kind, members)
}
