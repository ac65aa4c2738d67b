package membership

import "fmt"

// MemberStatus is the lifecycle state of a Member. The zero value is
// Joining, the status every Member is constructed into.
type MemberStatus int

const (
	Joining MemberStatus = iota
	WeaklyUp
	Up
	Leaving
	Exiting
	Down
	Removed
	PreparingForShutdown
	ReadyForShutdown
)

func (s MemberStatus) String() string {
	switch s {
	case Joining:
		return "Joining"
	case WeaklyUp:
		return "WeaklyUp"
	case Up:
		return "Up"
	case Leaving:
		return "Leaving"
	case Exiting:
		return "Exiting"
	case Down:
		return "Down"
	case Removed:
		return "Removed"
	case PreparingForShutdown:
		return "PreparingForShutdown"
	case ReadyForShutdown:
		return "ReadyForShutdown"
	default:
		panic(fmt.Sprintf("unknown MemberStatus: %d", int(s)))
	}
}

// transitions is the permitted-transition table from spec §3. It is
// built once at init time, the table-driven style serf's partition.go
// and events.go use for status-dependent dispatch, generalized here to
// the full nine-state machine.
var transitions = map[MemberStatus]map[MemberStatus]bool{
	Joining: {
		WeaklyUp: true,
		Up:       true,
		Leaving:  true,
		Down:     true,
		Removed:  true,
	},
	WeaklyUp: {
		Up:      true,
		Leaving: true,
		Down:    true,
		Removed: true,
	},
	Up: {
		Leaving:              true,
		Down:                 true,
		Removed:              true,
		PreparingForShutdown: true,
	},
	Leaving: {
		Exiting: true,
		Down:    true,
		Removed: true,
	},
	Exiting: {
		Removed: true,
		Down:    true,
	},
	Down: {
		Removed: true,
	},
	PreparingForShutdown: {
		ReadyForShutdown: true,
		Removed:          true,
		Leaving:          true,
		Down:             true,
	},
	ReadyForShutdown: {
		Removed: true,
		Leaving: true,
		Down:    true,
	},
	Removed: {},
}

// CanTransition reports whether from -> to is a permitted move per §3.
// A status may never "transition" to itself; that is handled by callers
// that want idempotent no-ops (e.g. Coordinator.ApplyDowning).
func CanTransition(from, to MemberStatus) bool {
	allowed, ok := transitions[from]
	if !ok {
		return false
	}
	return allowed[to]
}

// TransitionError reports an attempt to move a Member between statuses
// the table in §3 forbids. Per §7 this is the InvalidTransition error
// kind and is fatal to whatever Coordinator observed it.
type TransitionError struct {
	From, To MemberStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("membership: invalid transition %s -> %s", e.From, e.To)
}

// IsInvalidTransition reports whether err is (or wraps) a *TransitionError.
func IsInvalidTransition(err error) bool {
	_, ok := Cause(err).(*TransitionError)
	return ok
}
