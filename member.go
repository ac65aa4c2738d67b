package membership

import (
	"math"
	"sort"

	"github.com/coreos/go-semver/semver"
)

const (
	// DataCenterRolePrefix marks the one role per Member that names its
	// datacenter, e.g. "dc-east". Every Member must carry exactly one.
	DataCenterRolePrefix = "dc-"

	// DefaultDataCenter is used when no dc- role is present at the call
	// site that doesn't enforce MissingDatacenterRole (internal merges
	// operate on already-validated Members, so this is purely the
	// fallback rendered by DataCenter() for a zero-value Member).
	DefaultDataCenter = "default"

	// NotYetUp is the upNumber sentinel meaning "has never reached Up".
	NotYetUp = math.MaxInt32

	// DefaultAppVersion is advertised when a Member is constructed
	// without an explicit version, per §6.
	DefaultAppVersion = "0.0.0"
)

// Member binds a UniqueAddress to its lifecycle status, roles, up-number
// and advertised application version. Member is an immutable value type:
// every mutator returns a new Member rather than editing in place, the
// same posture Serf.Members() takes when it copies Member out from under
// its lock instead of handing out a pointer into live state.
type Member struct {
	UniqueAddress UniqueAddress
	UpNumber      int32
	Status        MemberStatus
	roles         map[string]struct{}
	AppVersion    semver.Version
}

// NewJoining constructs a Member in status Joining with UpNumber
// NotYetUp. roles must contain exactly one role with DataCenterRolePrefix
// or ErrMissingDatacenterRole is returned (§7 MissingDatacenterRole).
func NewJoining(ua UniqueAddress, roles []string, appVersion string) (Member, error) {
	roleSet, err := newRoleSet(roles)
	if err != nil {
		return Member{}, err
	}
	if appVersion == "" {
		appVersion = DefaultAppVersion
	}
	v, err := semver.NewVersion(appVersion)
	if err != nil {
		return Member{}, Wrapf(err, "invalid app-version %q", appVersion)
	}
	return Member{
		UniqueAddress: ua,
		UpNumber:      NotYetUp,
		Status:        Joining,
		roles:         roleSet,
		AppVersion:    *v,
	}, nil
}

// FromWire reconstructs a Member exactly as received from a gossip
// snapshot: status and upNumber are taken as given rather than reached
// via checked transitions, since decoding reconstructs already-committed
// remote state instead of performing a local transition. The datacenter
// role invariant is still enforced (§9's open question on malformed
// role sets resolves to rejecting them here too).
func FromWire(ua UniqueAddress, status MemberStatus, upNumber int32, roles []string, appVersion string) (Member, error) {
	roleSet, err := newRoleSet(roles)
	if err != nil {
		return Member{}, err
	}
	if appVersion == "" {
		appVersion = DefaultAppVersion
	}
	v, err := semver.NewVersion(appVersion)
	if err != nil {
		return Member{}, Wrapf(err, "invalid app-version %q", appVersion)
	}
	return Member{
		UniqueAddress: ua,
		UpNumber:      upNumber,
		Status:        status,
		roles:         roleSet,
		AppVersion:    *v,
	}, nil
}

func newRoleSet(roles []string) (map[string]struct{}, error) {
	set := make(map[string]struct{}, len(roles))
	dcCount := 0
	for _, r := range roles {
		set[r] = struct{}{}
		if len(r) >= len(DataCenterRolePrefix) && r[:len(DataCenterRolePrefix)] == DataCenterRolePrefix {
			dcCount++
		}
	}
	if dcCount != 1 {
		return nil, ErrMissingDatacenterRole
	}
	return set, nil
}

// PromoteToUp assigns upNumber n and transitions the Member to Up.
// Precondition (checked): current status is Joining or WeaklyUp.
func PromoteToUp(m Member, n int32) (Member, error) {
	if m.Status != Joining && m.Status != WeaklyUp {
		return Member{}, &TransitionError{From: m.Status, To: Up}
	}
	next := m
	next.UpNumber = n
	next.Status = Up
	return next, nil
}

// WithStatus returns a copy of m transitioned to s, or a *TransitionError
// if the move is not in the table from §3.
func WithStatus(m Member, s MemberStatus) (Member, error) {
	if !CanTransition(m.Status, s) {
		return Member{}, &TransitionError{From: m.Status, To: s}
	}
	next := m
	next.Status = s
	return next, nil
}

// Address is the Member's node address.
func (m Member) Address() Address { return m.UniqueAddress.Address }

// DataCenter derives the datacenter name from the one dc- role every
// valid Member carries (the bare role "dc-" names the empty-string
// datacenter, matching newRoleSet's own ">=" test for what counts as a
// datacenter role), falling back to DefaultDataCenter for a zero-value
// Member (roles == nil), which occurs only for not-yet-built Members and
// defensive callers.
func (m Member) DataCenter() string {
	for r := range m.roles {
		if len(r) >= len(DataCenterRolePrefix) && r[:len(DataCenterRolePrefix)] == DataCenterRolePrefix {
			return r[len(DataCenterRolePrefix):]
		}
	}
	return DefaultDataCenter
}

// HasRole reports whether m carries role r.
func (m Member) HasRole(r string) bool {
	_, ok := m.roles[r]
	return ok
}

// Roles returns a sorted, defensive copy of m's roles.
func (m Member) Roles() []string {
	out := make([]string, 0, len(m.roles))
	for r := range m.roles {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}

// CompareMember is the canonical Member order: address order, then UID.
func CompareMember(a, b Member) int {
	return CompareUniqueAddress(a.UniqueAddress, b.UniqueAddress)
}

// AgeOrder reports whether a is older than b. Both must share a
// datacenter; cross-DC comparisons fail loudly since UpNumber counters
// from different datacenters are not comparable (§4.1).
func AgeOrder(a, b Member) (bool, error) {
	if a.DataCenter() != b.DataCenter() {
		return false, ErrCrossDatacenterAgeCompare
	}
	if a.UpNumber != b.UpNumber {
		return a.UpNumber < b.UpNumber, nil
	}
	return CompareAddress(a.Address(), b.Address()) < 0, nil
}

// leaderDeprioritized lists statuses that sort strictly after every
// other status under LeaderOrder, in the precedence given by §4.1:
// Down sorts last-most, then Exiting, then Joining, then WeaklyUp.
var leaderDeprioritized = map[MemberStatus]int{
	WeaklyUp: 1,
	Joining:  2,
	Exiting:  3,
	Down:     4,
}

// LeaderOrder is CompareMember except members in Down, Exiting, Joining
// or WeaklyUp sort strictly after any member not in one of those
// statuses, in that precedence. Used to select the leader: the minimum
// element under this order among leader-eligible members.
func LeaderOrder(a, b Member) int {
	ra, da := leaderDeprioritized[a.Status]
	rb, db := leaderDeprioritized[b.Status]
	if da != db {
		if !da {
			return -1
		}
		return 1
	}
	if da && db && ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}
	return CompareMember(a, b)
}

// leaderEligible is the set of statuses LeaderOrder/Coordinator.Leader
// consider when picking a leader (§4.5).
var leaderEligible = map[MemberStatus]bool{
	Up:                   true,
	Leaving:              true,
	PreparingForShutdown: true,
	ReadyForShutdown:     true,
}
