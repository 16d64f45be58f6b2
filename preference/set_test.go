package preference

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("membership set", func() {
	var set *membershipSet

	BeforeEach(func() {
		set = newMembershipSet()
	})

	It("starts every target unset", func() {
		Expect(set.State(5)).To(Equal(Unset))
		Expect(set.Contains(5)).To(BeFalse())
		Expect(set.Members()).To(BeEmpty())
	})

	It("overlays the pending state until the toggle completes", func() {
		seq, state := set.begin(5, true)
		Expect(state).To(Equal(PendingSet))
		Expect(set.State(5)).To(Equal(PendingSet))
		Expect(set.Contains(5)).To(BeTrue())

		Expect(set.complete(seq, 5, []Target{{ID: 5, Name: "Heat"}})).To(BeTrue())
		Expect(set.State(5)).To(Equal(Set))
	})

	It("reverts to the authoritative state on abandon", func() {
		Expect(set.replace(set.snapshotSeq(), []Target{{ID: 5}})).To(BeTrue())

		seq, state := set.begin(5, false)
		Expect(state).To(Equal(PendingUnset))
		Expect(set.Contains(5)).To(BeFalse())

		set.abandon(seq, 5)
		Expect(set.State(5)).To(Equal(Set))
	})

	It("replaces the member set wholesale", func() {
		Expect(set.replace(set.snapshotSeq(), []Target{{ID: 1}, {ID: 2}})).To(BeTrue())
		Expect(set.replace(set.snapshotSeq(), []Target{{ID: 3}})).To(BeTrue())

		Expect(set.Members()).To(HaveLen(1))
		Expect(set.State(1)).To(Equal(Unset))
		Expect(set.State(3)).To(Equal(Set))
	})

	It("rejects a snapshot older than the last applied one", func() {
		oldSeq, _ := set.begin(5, true)
		newSeq, _ := set.begin(5, false)

		Expect(set.complete(newSeq, 5, []Target{})).To(BeTrue())
		Expect(set.State(5)).To(Equal(Unset))

		// The first toggle's reconcile lands late; its snapshot must not win.
		Expect(set.complete(oldSeq, 5, []Target{{ID: 5}})).To(BeFalse())
		Expect(set.State(5)).To(Equal(Unset))
	})

	It("keeps a newer pending override when an older toggle completes", func() {
		oldSeq, _ := set.begin(5, true)
		_, state := set.begin(5, false)
		Expect(state).To(Equal(PendingUnset))

		set.complete(oldSeq, 5, []Target{{ID: 5}})
		// The newer toggle is still in flight; its override stays visible.
		Expect(set.State(5)).To(Equal(PendingUnset))
	})

	It("sorts members by id", func() {
		set.replace(set.snapshotSeq(), []Target{{ID: 9}, {ID: 2}, {ID: 5}})
		members := set.Members()
		Expect(members[0].ID).To(Equal(2))
		Expect(members[1].ID).To(Equal(5))
		Expect(members[2].ID).To(Equal(9))
	})
})
