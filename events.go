package membership

import "time"

// EventType identifies the kind of Event delivered to subscribers, per
// the "Observable events" table in §6.
type EventType int

const (
	MemberJoinedEvent EventType = iota
	MemberWeaklyUpEvent
	MemberUpEvent
	LeaderChangedEvent
	MemberLeftEvent
	MemberExitedEvent
	MemberDownedEvent
	MemberRemovedEvent
	UnreachableMemberEvent
	ReachableMemberEvent
)

func (t EventType) String() string {
	switch t {
	case MemberJoinedEvent:
		return "MemberJoined"
	case MemberWeaklyUpEvent:
		return "MemberWeaklyUp"
	case MemberUpEvent:
		return "MemberUp"
	case LeaderChangedEvent:
		return "LeaderChanged"
	case MemberLeftEvent:
		return "MemberLeft"
	case MemberExitedEvent:
		return "MemberExited"
	case MemberDownedEvent:
		return "MemberDowned"
	case MemberRemovedEvent:
		return "MemberRemoved"
	case UnreachableMemberEvent:
		return "UnreachableMember"
	case ReachableMemberEvent:
		return "ReachableMember"
	default:
		return "Unknown"
	}
}

// Event is delivered to subscribers after the corresponding state
// commit (§5, §6). Member is populated for per-member events; for
// LeaderChanged it holds the new leader (zero value if there is none).
type Event struct {
	Type          EventType
	Member        Member
	UniqueAddress UniqueAddress
}

// Subscriber receives committed membership Events in the order the
// underlying transitions occurred (§5's ordering guarantee).
type Subscriber chan<- Event

// coalescer mirrors serf's Coalescer interface (coalesce.go) so that
// rapid reachability flaps collapse into a single notification per
// member instead of flooding subscribers during a flapping partition.
type coalescer interface {
	Handle(Event) bool
	Coalesce(Event)
	Flush(out chan<- Event)
}

// coalescedSubscriberCh wraps outCh with a coalescing stage, the same
// shape as serf's coalescedEventCh, generalized from serf's four
// MemberStatus values to this spec's nine plus the two reachability
// events.
func coalescedSubscriberCh(outCh chan<- Event, shutdownCh <-chan struct{}, coalescePeriod, quiescentPeriod time.Duration, c coalescer) chan<- Event {
	inCh := make(chan Event, 1024)
	go coalesceLoop(inCh, outCh, shutdownCh, coalescePeriod, quiescentPeriod, c)
	return inCh
}

func coalesceLoop(inCh <-chan Event, outCh chan<- Event, shutdownCh <-chan struct{}, coalescePeriod, quiescentPeriod time.Duration, c coalescer) {
	var quantum, quiescent <-chan time.Time
	shutdown := false

ingest:
	quantum = nil
	quiescent = nil

	for {
		select {
		case e := <-inCh:
			if !c.Handle(e) {
				outCh <- e
				continue
			}
			if quantum == nil {
				quantum = time.After(coalescePeriod)
			}
			quiescent = time.After(quiescentPeriod)
			c.Coalesce(e)

		case <-quantum:
			goto flush
		case <-quiescent:
			goto flush
		case <-shutdownCh:
			shutdown = true
			goto flush
		}
	}

flush:
	c.Flush(outCh)
	if !shutdown {
		goto ingest
	}
}

// reachabilityCoalescer coalesces UnreachableMember/ReachableMember
// flaps: only the last observed reachability per address within a
// quantum is delivered, matching serf's memberEventCoalescer behavior
// of keeping only the newest event per node and dropping it entirely
// if it nets out to a no-op against the last delivered event.
type reachabilityCoalescer struct {
	last   map[UniqueAddress]EventType
	latest map[UniqueAddress]Event
}

func newReachabilityCoalescer() *reachabilityCoalescer {
	return &reachabilityCoalescer{
		last:   make(map[UniqueAddress]EventType),
		latest: make(map[UniqueAddress]Event),
	}
}

func (c *reachabilityCoalescer) Handle(e Event) bool {
	return e.Type == UnreachableMemberEvent || e.Type == ReachableMemberEvent
}

func (c *reachabilityCoalescer) Coalesce(e Event) {
	c.latest[e.UniqueAddress] = e
}

func (c *reachabilityCoalescer) Flush(out chan<- Event) {
	for ua, e := range c.latest {
		if c.last[ua] == e.Type {
			continue
		}
		c.last[ua] = e.Type
		out <- e
	}
	c.latest = make(map[UniqueAddress]Event)
}
