// Package preference implements the optimistic preference toggles: favorite
// movies, watched marks and friend edges. Each toggle flips the visible state
// immediately, runs the upstream mutation in the background, and then replaces
// the whole membership index from a fresh authoritative read whether the
// mutation succeeded or not. The index is never patched in place.
package preference

// Kind names one preference relation.
type Kind string

const (
	KindFavorite Kind = "favorite"
	KindWatched  Kind = "watched"
	KindFriend   Kind = "friend"
)

// Kinds lists every preference relation, in refresh order.
var Kinds = []Kind{KindFavorite, KindWatched, KindFriend}

// State is the visible toggle state of one target.
type State string

const (
	// Unset: the target is not a member of the relation.
	Unset State = "unset"
	// Set: the target is a member, per the last authoritative read.
	Set State = "set"
	// PendingSet: optimistically a member; the mutation has not reconciled.
	PendingSet State = "pending_set"
	// PendingUnset: optimistically removed; the mutation has not reconciled.
	PendingUnset State = "pending_unset"
)

// On reports whether the state renders as a member.
func (s State) On() bool { return s == Set || s == PendingSet }

// Target is one member of a preference relation. Favorites and watched marks
// target movies (Name is the title); friend edges target users (Name is the
// username, which is also the key the upstream mutation uses).
type Target struct {
	ID   int    `json:"id"`
	Name string `json:"name,omitempty"`
}
