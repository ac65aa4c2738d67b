package membership

import "time"

// statusPrecedence orders MemberStatus by how "further along" the
// lifecycle it represents, earliest-wins per §4.4:
// Removed > ReadyForShutdown > Down > Exiting > Leaving >
// PreparingForShutdown > Up > WeaklyUp > Joining.
// Lower number means higher precedence (wins the merge).
var statusPrecedence = map[MemberStatus]int{
	Removed:              0,
	ReadyForShutdown:     1,
	Down:                 2,
	Exiting:              3,
	Leaving:              4,
	PreparingForShutdown: 5,
	Up:                   6,
	WeaklyUp:             7,
	Joining:              8,
}

// removeUnreachableWithMemberStatus reports the statuses from which no
// revival is permissible once a peer has pruned them: Down and Exiting.
func removeUnreachableWithMemberStatus(s MemberStatus) bool {
	return s == Down || s == Exiting
}

// highestPriorityOf folds two views of the same member into one. When
// statuses are equal the older member (by AgeOrder) wins, preserving a
// stable up-number; otherwise the member whose status is further along
// the lifecycle wins, per the precedence table above.
func highestPriorityOf(m1, m2 Member) Member {
	if m1.Status == m2.Status {
		older, err := AgeOrder(m1, m2)
		if err != nil {
			// Differing datacenters for the same UniqueAddress cannot
			// happen (a Member's datacenter role is immutable and its
			// identity is its UniqueAddress) but if it ever did, prefer
			// the lower address order deterministically rather than panic.
			if CompareAddress(m1.Address(), m2.Address()) <= 0 {
				return m1
			}
			return m2
		}
		if older {
			return m1
		}
		return m2
	}
	if statusPrecedence[m1.Status] <= statusPrecedence[m2.Status] {
		return m1
	}
	return m2
}

// PickHighestPriority reconciles two member sets and a tombstone map
// into the single, more-advanced view per §4.4. It is pure and
// commutative for any A, B sharing tombstones T. It is associative
// except where the single-sided Down/Exiting drop applies: a member
// known Down to A alone and Up to C alone merges to Up as (A,B),C but
// to Down as A,(B,C) when B lacks it (see DESIGN.md, "View merge").
func PickHighestPriority(a, b map[UniqueAddress]Member, tombstones map[UniqueAddress]time.Time) map[UniqueAddress]Member {
	out := make(map[UniqueAddress]Member, len(a)+len(b))

	seen := make(map[UniqueAddress]bool, len(a)+len(b))
	for ua := range a {
		seen[ua] = true
	}
	for ua := range b {
		seen[ua] = true
	}

	for ua := range seen {
		if _, tombstoned := tombstones[ua]; tombstoned {
			continue
		}

		ma, inA := a[ua]
		mb, inB := b[ua]

		switch {
		case inA && inB:
			out[ua] = highestPriorityOf(ma, mb)
		case inA && !inB:
			if removeUnreachableWithMemberStatus(ma.Status) {
				continue
			}
			out[ua] = ma
		case inB && !inA:
			if removeUnreachableWithMemberStatus(mb.Status) {
				continue
			}
			out[ua] = mb
		}
	}

	return out
}
