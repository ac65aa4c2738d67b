package membership

import (
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
)

// reachEntry is recorded only for addresses currently believed
// unreachable; a reachable address has no entry at all.
type reachEntry struct {
	since time.Time
}

// Coordinator is the single stateful owner of the local membership
// view (§4.5, §5). It is a mutex-guarded object — the same posture
// Serf itself takes with memberLock/stateLock in serf/serf.go — rather
// than a dedicated worker goroutine; §5 permits either realization as
// long as mutating operations are externally observable as atomic and
// in arrival order.
type Coordinator struct {
	mu     sync.Mutex
	cfg    *Config
	local  UniqueAddress
	logger hclog.Logger
	clock  func() time.Time

	members  map[UniqueAddress]Member
	joinSeq  map[UniqueAddress]uint64
	joinedAt map[UniqueAddress]time.Time
	nextSeq  uint64

	reachability map[UniqueAddress]reachEntry
	tombstones   map[UniqueAddress]time.Time

	upCounters    map[string]int32
	currentLeader map[string]UniqueAddress

	downingPolicy DowningPolicy

	subscribers []chan<- Event
	shutdownCh  chan struct{}
	closeOnce   sync.Once

	poisoned error
}

// NewCoordinator constructs a Coordinator for the local node identified
// by local. cfg is validated up front (Config.Validate). logger may be
// nil, in which case a no-op logger is used, mirroring serf.Create's
// own log.New(conf.LogOutput, ...) default when LogOutput is unset.
func NewCoordinator(cfg *Config, local UniqueAddress, logger hclog.Logger) (*Coordinator, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	policy, _ := ResolveDowningPolicy(cfg)

	return &Coordinator{
		cfg:           cfg,
		local:         local,
		logger:        logger.Named("membership"),
		clock:         time.Now,
		members:       make(map[UniqueAddress]Member),
		joinSeq:       make(map[UniqueAddress]uint64),
		joinedAt:      make(map[UniqueAddress]time.Time),
		reachability:  make(map[UniqueAddress]reachEntry),
		tombstones:    make(map[UniqueAddress]time.Time),
		upCounters:    make(map[string]int32),
		currentLeader: make(map[string]UniqueAddress),
		downingPolicy: policy,
		shutdownCh:    make(chan struct{}),
	}, nil
}

// SetClock overrides the wall-clock source, for deterministic tests of
// the weakly-up timer and tombstone TTL.
func (c *Coordinator) SetClock(clock func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clock = clock
}

// Subscribe registers out to receive committed Events in commit order
// (§5). When CoalescePeriod/QuiescentPeriod are configured, reachability
// flaps are coalesced before delivery the way serf's coalescedEventCh
// coalesces MemberEvents: UnreachableMember/ReachableMember events are
// held until the coalescing window closes while every other event is
// passed on at once, so a held reachability event can reach out after
// events committed later, and the reachability events flushed together
// arrive in no defined order.
func (c *Coordinator) Subscribe(out chan<- Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cfg.CoalescePeriod > 0 && c.cfg.QuiescentPeriod > 0 {
		wrapped := coalescedSubscriberCh(out, c.shutdownCh, c.cfg.CoalescePeriod, c.cfg.QuiescentPeriod, newReachabilityCoalescer())
		c.subscribers = append(c.subscribers, wrapped)
		return
	}
	c.subscribers = append(c.subscribers, out)
}

// Close stops the coalescing goroutines backing any coalesced
// subscribers. Safe to call more than once.
func (c *Coordinator) Close() {
	c.closeOnce.Do(func() {
		close(c.shutdownCh)
	})
}

// publish delivers events to every subscriber. Must never be called
// while c.mu is held — the reentrancy rule from §5 — since a
// subscriber's channel may be unbuffered and its reader may itself call
// back into the Coordinator.
func (c *Coordinator) publish(events []Event) {
	if len(events) == 0 {
		return
	}
	c.mu.Lock()
	subs := make([]chan<- Event, len(c.subscribers))
	copy(subs, c.subscribers)
	c.mu.Unlock()

	for _, e := range events {
		for _, s := range subs {
			s <- e
		}
	}
}

func (c *Coordinator) poisonedErr() error {
	if c.poisoned != nil {
		return c.poisoned
	}
	return nil
}

// Join admits the local node itself into the view as a Joining member,
// the same "handle our own node join like any other" posture
// Serf.handleNodeJoin takes (it does not special-case the local node).
func (c *Coordinator) Join() ([]Event, error) {
	local, err := NewJoining(c.local, c.cfg.Roles, c.cfg.AppVersion)
	if err != nil {
		return nil, err
	}
	return c.ObserveGossip(map[UniqueAddress]Member{c.local: local}, nil)
}

// ObserveGossip merges a remote view and its tombstones into the local
// view via PickHighestPriority (§4.4, §4.5) and returns the resulting
// status-change events. Idempotent: observing the same remote view
// twice produces no further events the second time.
func (c *Coordinator) ObserveGossip(remoteMembers map[UniqueAddress]Member, remoteTombstones map[UniqueAddress]time.Time) ([]Event, error) {
	c.mu.Lock()
	if err := c.poisonedErr(); err != nil {
		c.mu.Unlock()
		return nil, err
	}

	now := c.clock()

	for ua, t := range remoteTombstones {
		if existing, ok := c.tombstones[ua]; !ok || t.After(existing) {
			c.tombstones[ua] = t
		}
	}

	filtered := make(map[UniqueAddress]Member, len(remoteMembers))
	for ua, m := range remoteMembers {
		if _, tombstoned := c.tombstones[ua]; tombstoned {
			c.logger.Debug("dropping gossip for tombstoned address", "address", ua.String(), "error", ErrTombstoneViolation)
			continue
		}
		filtered[ua] = m
	}

	merged := PickHighestPriority(c.members, filtered, c.tombstones)

	events := c.admitMerged(merged, now)
	events = append(events, c.pruneTombstonesLocked(now)...)
	events = append(events, c.refreshLeadersLocked()...)

	incrCounter(metricMergeCount)
	setGauge(metricMembersGauge, float32(len(c.members)))

	c.mu.Unlock()
	c.publish(events)
	return events, nil
}

// admitMerged installs merged as the new member set, assigning join
// bookkeeping to newly-seen addresses and collecting the events implied
// by each address's status delta. Caller must hold c.mu.
func (c *Coordinator) admitMerged(merged map[UniqueAddress]Member, now time.Time) []Event {
	var events []Event
	for ua, m := range merged {
		old, existed := c.members[ua]
		if !existed {
			c.joinSeq[ua] = c.nextSeq
			c.nextSeq++
			c.joinedAt[ua] = now
			if e, ok := arrivalEvent(m); ok {
				events = append(events, e)
			}
			continue
		}
		if old.Status != m.Status {
			if e, ok := arrivalEvent(m); ok {
				events = append(events, e)
			}
			if m.Status == Removed {
				c.tombstones[ua] = now
			}
		}
	}
	c.members = merged
	return events
}

func arrivalEvent(m Member) (Event, bool) {
	t, ok := statusEvent[m.Status]
	if !ok {
		return Event{}, false
	}
	return Event{Type: t, Member: m, UniqueAddress: m.UniqueAddress}, true
}

var statusEvent = map[MemberStatus]EventType{
	Joining:  MemberJoinedEvent,
	WeaklyUp: MemberWeaklyUpEvent,
	Up:       MemberUpEvent,
	Leaving:  MemberLeftEvent,
	Exiting:  MemberExitedEvent,
	Down:     MemberDownedEvent,
	Removed:  MemberRemovedEvent,
}

// pruneTombstonesLocked removes tombstones older than TombstoneTTL.
// Caller must hold c.mu.
func (c *Coordinator) pruneTombstonesLocked(now time.Time) []Event {
	for ua, t := range c.tombstones {
		if now.Sub(t) > c.cfg.TombstoneTTL {
			delete(c.tombstones, ua)
		}
	}
	return nil
}

// ObserveReachability updates the reachability map and returns
// UnreachableMember/ReachableMember events on change. A reachability
// update for an address the Coordinator has never seen is
// ErrStaleReachability — silently ignored per §7 (the node may have
// been removed concurrently).
func (c *Coordinator) ObserveReachability(ua UniqueAddress, reachable bool) ([]Event, error) {
	c.mu.Lock()
	if err := c.poisonedErr(); err != nil {
		c.mu.Unlock()
		return nil, err
	}

	if _, known := c.members[ua]; !known {
		c.logger.Debug("stale reachability update", "address", ua.String(), "error", ErrStaleReachability)
		c.mu.Unlock()
		return nil, nil
	}

	var events []Event
	_, wasUnreachable := c.reachability[ua]

	if reachable {
		if wasUnreachable {
			delete(c.reachability, ua)
			events = append(events, Event{Type: ReachableMemberEvent, UniqueAddress: ua, Member: c.members[ua]})
		}
	} else if !wasUnreachable {
		c.reachability[ua] = reachEntry{since: c.clock()}
		events = append(events, Event{Type: UnreachableMemberEvent, UniqueAddress: ua, Member: c.members[ua]})
	}

	c.mu.Unlock()
	c.publish(events)
	return events, nil
}

// MarkNodeAsUnavailable is the external hook a failure detector calls
// to report a node unreachable (§4.5).
func (c *Coordinator) MarkNodeAsUnavailable(ua UniqueAddress) {
	_, _ = c.ObserveReachability(ua, false)
}

// MarkNodeAsAvailable is the external hook a failure detector calls to
// report a node reachable again (§4.5).
func (c *Coordinator) MarkNodeAsAvailable(ua UniqueAddress) {
	_, _ = c.ObserveReachability(ua, true)
}

// ApplyDowning transitions ua to Down if allowed. A downing request for
// an unknown address is ErrDowningOnNonMember — ignored with a debug
// log, not surfaced as an error (§7). Already-Down/Removed members are
// a no-op.
func (c *Coordinator) ApplyDowning(ua UniqueAddress) ([]Event, error) {
	c.mu.Lock()
	if err := c.poisonedErr(); err != nil {
		c.mu.Unlock()
		return nil, err
	}

	m, ok := c.members[ua]
	if !ok {
		c.logger.Debug("downing request for unknown member", "address", ua.String(), "error", ErrDowningOnNonMember)
		c.mu.Unlock()
		return nil, nil
	}
	if m.Status == Down || m.Status == Removed {
		c.mu.Unlock()
		return nil, nil
	}

	next, err := WithStatus(m, Down)
	if err != nil {
		c.poison(err)
		c.mu.Unlock()
		return nil, err
	}
	c.members[ua] = next
	incrCounter(metricMemberDown)

	events := []Event{{Type: MemberDownedEvent, Member: next, UniqueAddress: ua}}
	events = append(events, c.refreshLeadersLocked()...)

	c.mu.Unlock()
	c.publish(events)
	return events, nil
}

func (c *Coordinator) poison(err error) {
	wrapped := Wrap(err, ErrCoordinatorPoisoned.Error())
	c.poisoned = wrapped
	c.logger.Error("coordinator poisoned by invalid transition", "error", err)
}
