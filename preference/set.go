package preference

import (
	"sort"
	"sync"
)

// pendingOp is an in-flight optimistic override for one target.
type pendingOp struct {
	seq   uint64
	state State
}

// membershipSet is the membership index for one relation kind. Visible state
// is the last authoritative member set overlaid with per-target pending
// overrides. Every toggle and every refresh draws a sequence number from the
// same monotonic counter; an authoritative snapshot only replaces the index
// if no newer snapshot has been applied, so a slow reconcile can never
// clobber the result of a later one.
type membershipSet struct {
	mu      sync.Mutex
	members map[int]Target
	pending map[int]pendingOp
	nextSeq uint64
	applied uint64
}

func newMembershipSet() *membershipSet {
	return &membershipSet{
		members: make(map[int]Target),
		pending: make(map[int]pendingOp),
	}
}

// State returns the visible state of one target.
func (s *membershipSet) State(id int) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.pending[id]; ok {
		return p.state
	}
	if _, ok := s.members[id]; ok {
		return Set
	}
	return Unset
}

// Contains reports whether the target currently renders as a member.
func (s *membershipSet) Contains(id int) bool {
	return s.State(id).On()
}

// Members returns the authoritative member set, sorted by id. Pending
// overrides are not folded in; callers that render a single target use State.
func (s *membershipSet) Members() []Target {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Target, 0, len(s.members))
	for _, t := range s.members {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// begin records an optimistic override for the target and returns the toggle's
// sequence number with the state now visible.
func (s *membershipSet) begin(id int, set bool) (uint64, State) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextSeq++
	state := PendingUnset
	if set {
		state = PendingSet
	}
	s.pending[id] = pendingOp{seq: s.nextSeq, state: state}
	return s.nextSeq, state
}

// snapshotSeq draws a sequence number for a refresh that has no pending
// override, e.g. the initial load.
func (s *membershipSet) snapshotSeq() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSeq++
	return s.nextSeq
}

// complete clears the toggle's pending override (if it is still the current
// one) and installs the authoritative member set, unless a newer snapshot has
// already been applied. Reports whether the snapshot was installed.
func (s *membershipSet) complete(seq uint64, id int, members []Target) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.pending[id]; ok && p.seq == seq {
		delete(s.pending, id)
	}
	return s.installLocked(seq, members)
}

// replace installs an authoritative member set with no pending override to
// clear. Reports whether the snapshot was installed.
func (s *membershipSet) replace(seq uint64, members []Target) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.installLocked(seq, members)
}

func (s *membershipSet) installLocked(seq uint64, members []Target) bool {
	if seq <= s.applied {
		return false
	}
	s.applied = seq
	s.members = make(map[int]Target, len(members))
	for _, t := range members {
		s.members[t.ID] = t
	}
	return true
}

// abandon clears the toggle's pending override without touching the member
// set, reverting the target to its last authoritative state.
func (s *membershipSet) abandon(seq uint64, id int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.pending[id]; ok && p.seq == seq {
		delete(s.pending, id)
	}
}
