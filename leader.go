package membership

import (
	"sort"
	"time"
)

// LeaderActions performs every status advance the leader of each
// datacenter the local node leads is allowed to make on a tick (§4.5).
// Calling this on a node that leads no datacenter is a harmless no-op;
// callers are expected to invoke it periodically on every node (the
// Coordinator itself decides, per datacenter, whether it is entitled to
// act — mirroring how Serf.reconnect() is called on every node but only
// the nodes holding failed members actually do anything).
func (c *Coordinator) LeaderActions(now time.Time) ([]Event, error) {
	c.mu.Lock()
	if err := c.poisonedErr(); err != nil {
		c.mu.Unlock()
		return nil, err
	}

	var events []Event
	for _, dc := range c.knownDataCentersLocked() {
		if !c.isLocalLeaderLocked(dc) {
			continue
		}
		dcEvents, err := c.leaderTickLocked(dc, now)
		if err != nil {
			c.poison(err)
			c.mu.Unlock()
			return nil, err
		}
		events = append(events, dcEvents...)
	}

	events = append(events, c.pruneTombstonesLocked(now)...)
	events = append(events, c.refreshLeadersLocked()...)

	c.mu.Unlock()
	c.publish(events)
	return events, nil
}

// lockedDowningView adapts a Coordinator already held under c.mu to the
// DowningView interface without re-entering the lock (sync.Mutex is not
// reentrant, and Decide is invoked from within leaderTickLocked).
type lockedDowningView struct {
	c *Coordinator
}

func (v lockedDowningView) Members() []Member {
	return v.c.membersLocked()
}

func (v lockedDowningView) IsUnreachable(ua UniqueAddress) bool {
	_, ok := v.c.reachability[ua]
	return ok
}

func (v lockedDowningView) UnreachableSince(ua UniqueAddress) (time.Time, bool) {
	e, ok := v.c.reachability[ua]
	return e.since, ok
}

// leaderTickLocked runs the leader's per-datacenter advances in the
// order given by §4.5. Caller must hold c.mu.
func (c *Coordinator) leaderTickLocked(dc string, now time.Time) ([]Event, error) {
	var events []Event

	if c.downingPolicy != nil {
		for _, ua := range c.downingPolicy.Decide(now, lockedDowningView{c}) {
			m, ok := c.members[ua]
			if !ok || m.DataCenter() != dc || m.Status == Down || m.Status == Removed {
				continue
			}
			next, err := WithStatus(m, Down)
			if err != nil {
				return nil, err
			}
			c.members[ua] = next
			incrCounter(metricMemberDown)
			events = append(events, Event{Type: MemberDownedEvent, Member: next, UniqueAddress: ua})
		}
	}

	fullyReachable := c.isConvergencePossibleLocked() && len(c.reachability) == 0

	if fullyReachable {
		joiningEvents, err := c.promoteJoiningToUpLocked(dc)
		if err != nil {
			return nil, err
		}
		events = append(events, joiningEvents...)
	} else if c.cfg.AllowWeaklyUpMembers != nil {
		weaklyUpEvents, err := c.promoteWeaklyUpLocked(dc, now)
		if err != nil {
			return nil, err
		}
		events = append(events, weaklyUpEvents...)
	}

	convergence := c.isConvergencePossibleLocked()

	for ua, m := range c.members {
		if m.DataCenter() != dc || m.Status != Leaving || !convergence {
			continue
		}
		next, err := WithStatus(m, Exiting)
		if err != nil {
			return nil, err
		}
		c.members[ua] = next
		events = append(events, Event{Type: MemberExitedEvent, Member: next, UniqueAddress: ua})
	}

	for ua, m := range c.members {
		if m.DataCenter() != dc || m.Status != Exiting || !convergence {
			continue
		}
		next, err := WithStatus(m, Removed)
		if err != nil {
			return nil, err
		}
		c.members[ua] = next
		c.tombstones[ua] = now
		incrCounter(metricMemberRemoved)
		events = append(events, Event{Type: MemberRemovedEvent, Member: next, UniqueAddress: ua})
	}

	for ua, m := range c.members {
		if m.DataCenter() != dc || m.Status != Down || !convergence {
			continue
		}
		next, err := WithStatus(m, Removed)
		if err != nil {
			return nil, err
		}
		c.members[ua] = next
		c.tombstones[ua] = now
		incrCounter(metricMemberRemoved)
		events = append(events, Event{Type: MemberRemovedEvent, Member: next, UniqueAddress: ua})
	}

	return events, nil
}

// promoteJoiningToUpLocked promotes every Joining member of dc to Up,
// assigning fresh upNumber values in join order (ties broken by address
// order), per §4.5. Caller must hold c.mu.
func (c *Coordinator) promoteJoiningToUpLocked(dc string) ([]Event, error) {
	candidates := c.joiningLocked(dc)
	var events []Event
	for _, ua := range candidates {
		m := c.members[ua]
		c.upCounters[dc]++
		next, err := PromoteToUp(m, c.upCounters[dc])
		if err != nil {
			return nil, err
		}
		c.members[ua] = next
		incrCounter(metricMemberUp)
		incrCounter(metricLeaderPromotions)
		events = append(events, Event{Type: MemberUpEvent, Member: next, UniqueAddress: ua})
	}
	return events, nil
}

// promoteWeaklyUpLocked promotes up to WeaklyUpBatchLimit Joining
// members of dc to WeaklyUp: those that are themselves reachable and
// have waited longer than AllowWeaklyUpMembers while some other member
// is unreachable. Caller must hold c.mu.
func (c *Coordinator) promoteWeaklyUpLocked(dc string, now time.Time) ([]Event, error) {
	threshold := *c.cfg.AllowWeaklyUpMembers
	candidates := c.joiningLocked(dc)

	var events []Event
	promoted := 0
	for _, ua := range candidates {
		if promoted >= c.cfg.WeaklyUpBatchLimit {
			break
		}
		if _, unreachable := c.reachability[ua]; unreachable {
			continue
		}
		if now.Sub(c.joinedAt[ua]) < threshold {
			continue
		}
		m := c.members[ua]
		next, err := WithStatus(m, WeaklyUp)
		if err != nil {
			return nil, err
		}
		c.members[ua] = next
		promoted++
		incrCounter(metricMemberWeaklyUp)
		events = append(events, Event{Type: MemberWeaklyUpEvent, Member: next, UniqueAddress: ua})
	}
	return events, nil
}

// joiningLocked lists dc's Joining members in join order (ties broken
// by address order). Caller must hold c.mu.
func (c *Coordinator) joiningLocked(dc string) []UniqueAddress {
	var out []UniqueAddress
	for ua, m := range c.members {
		if m.DataCenter() == dc && m.Status == Joining {
			out = append(out, ua)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		si, sj := c.joinSeq[out[i]], c.joinSeq[out[j]]
		if si != sj {
			return si < sj
		}
		return CompareAddress(out[i].Address, out[j].Address) < 0
	})
	return out
}
