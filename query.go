package membership

import (
	"sort"
	"time"
)

// Members returns a point-in-time snapshot of the current view, the
// same posture Serf.Members() takes: copy out from under the lock so
// callers never see torn state (§5).
func (c *Coordinator) Members() []Member {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.membersLocked()
}

func (c *Coordinator) membersLocked() []Member {
	out := make([]Member, 0, len(c.members))
	for _, m := range c.members {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return CompareMember(out[i], out[j]) < 0 })
	return out
}

// MembersInDataCenter restricts Members to dc.
func (c *Coordinator) MembersInDataCenter(dc string) []Member {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []Member
	for _, m := range c.members {
		if m.DataCenter() == dc {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return CompareMember(out[i], out[j]) < 0 })
	return out
}

// MembersWithRole restricts Members to those carrying role.
func (c *Coordinator) MembersWithRole(role string) []Member {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []Member
	for _, m := range c.members {
		if m.HasRole(role) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return CompareMember(out[i], out[j]) < 0 })
	return out
}

// Leader returns the minimum member under LeaderOrder among
// leader-eligible members (Up, Leaving, PreparingForShutdown,
// ReadyForShutdown) within dc. Within a single Coordinator's view this
// is either empty or a singleton (§8 property 8).
func (c *Coordinator) Leader(dc string) (Member, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.leaderLocked(dc)
}

func (c *Coordinator) leaderLocked(dc string) (Member, bool) {
	var best Member
	found := false
	for _, m := range c.members {
		if m.DataCenter() != dc || !leaderEligible[m.Status] {
			continue
		}
		if !found || LeaderOrder(m, best) < 0 {
			best = m
			found = true
		}
	}
	return best, found
}

// Oldest returns the minimum member under AgeOrder within dc, excluding
// Down/Removed members.
func (c *Coordinator) Oldest(dc string) (Member, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.oldestLocked(dc)
}

func (c *Coordinator) oldestLocked(dc string) (Member, bool) {
	var best Member
	found := false
	for _, m := range c.members {
		if m.DataCenter() != dc || m.Status == Down || m.Status == Removed {
			continue
		}
		if !found {
			best, found = m, true
			continue
		}
		older, err := AgeOrder(m, best)
		if err != nil {
			continue
		}
		if older {
			best = m
		}
	}
	return best, found
}

// Unreachable returns the addresses currently flagged unreachable.
func (c *Coordinator) Unreachable() []UniqueAddress {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]UniqueAddress, 0, len(c.reachability))
	for ua := range c.reachability {
		out = append(out, ua)
	}
	return out
}

// IsUnreachable implements DowningView.
func (c *Coordinator) IsUnreachable(ua UniqueAddress) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.reachability[ua]
	return ok
}

// UnreachableSince implements DowningView.
func (c *Coordinator) UnreachableSince(ua UniqueAddress) (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.reachability[ua]
	return e.since, ok
}

// convergenceBlocking are the statuses whose unreachability blocks
// convergence; WeaklyUp is deliberately excluded (§4.5) so a partition
// that only strands WeaklyUp joiners does not stall convergence.
var convergenceBlocking = map[MemberStatus]bool{
	Joining: true,
	Up:      true,
	Leaving: true,
}

// IsConvergencePossible reports whether no member with a
// convergence-blocking status is currently unreachable.
func (c *Coordinator) IsConvergencePossible() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isConvergencePossibleLocked()
}

func (c *Coordinator) isConvergencePossibleLocked() bool {
	for ua := range c.reachability {
		m, ok := c.members[ua]
		if !ok {
			continue
		}
		if convergenceBlocking[m.Status] {
			return false
		}
	}
	return true
}

func (c *Coordinator) knownDataCentersLocked() []string {
	seen := make(map[string]bool)
	var out []string
	for _, m := range c.members {
		dc := m.DataCenter()
		if !seen[dc] {
			seen[dc] = true
			out = append(out, dc)
		}
	}
	return out
}

// refreshLeadersLocked recomputes the leader of every known datacenter
// and emits LeaderChanged for any that moved. Caller must hold c.mu.
func (c *Coordinator) refreshLeadersLocked() []Event {
	var events []Event
	for _, dc := range c.knownDataCentersLocked() {
		newLeader, ok := c.leaderLocked(dc)
		prevUA, hadPrev := c.currentLeader[dc]

		switch {
		case ok && (!hadPrev || prevUA != newLeader.UniqueAddress):
			c.currentLeader[dc] = newLeader.UniqueAddress
			events = append(events, Event{Type: LeaderChangedEvent, Member: newLeader, UniqueAddress: newLeader.UniqueAddress})
		case !ok && hadPrev:
			delete(c.currentLeader, dc)
			events = append(events, Event{Type: LeaderChangedEvent})
		}
	}
	return events
}

// isLocalLeaderLocked reports whether the local node runs dc's leader
// actions: it is dc's leader or, while dc has no leader-eligible member,
// it is the minimum under LeaderOrder among dc's reachable, non-Removed
// members. Caller must hold c.mu.
func (c *Coordinator) isLocalLeaderLocked(dc string) bool {
	if leader, ok := c.leaderLocked(dc); ok {
		return leader.UniqueAddress == c.local
	}
	var best Member
	found := false
	for ua, m := range c.members {
		if m.DataCenter() != dc || m.Status == Removed {
			continue
		}
		if _, unreachable := c.reachability[ua]; unreachable {
			continue
		}
		if !found || LeaderOrder(m, best) < 0 {
			best, found = m, true
		}
	}
	return found && best.UniqueAddress == c.local
}
