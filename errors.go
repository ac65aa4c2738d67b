package membership

import (
	"github.com/pkg/errors"
)

// Error kinds from spec §7. Only InvalidTransition is fatal to a
// Coordinator; the rest are recoverable and are surfaced so callers
// and tests can assert on them with errors.Is.
var (
	// ErrCrossDatacenterAgeCompare is returned by AgeOrder when asked to
	// compare members from different datacenters; age counters are only
	// comparable within a single datacenter.
	ErrCrossDatacenterAgeCompare = errors.New("membership: cannot compare age across datacenters")

	// ErrMissingDatacenterRole is returned by NewJoining when roles does
	// not contain exactly one role beginning with DataCenterRolePrefix.
	ErrMissingDatacenterRole = errors.New("membership: roles must contain exactly one datacenter role")

	// ErrTombstoneViolation marks a dropped gossip entry for a tombstoned
	// address; never returned to a caller, only logged at debug.
	ErrTombstoneViolation = errors.New("membership: address is tombstoned")

	// ErrStaleReachability marks a reachability update for an unknown
	// UniqueAddress; silently ignored by the Coordinator.
	ErrStaleReachability = errors.New("membership: reachability update for unknown address")

	// ErrDowningOnNonMember marks a downing request for an unknown
	// address; ignored with a debug log by the Coordinator.
	ErrDowningOnNonMember = errors.New("membership: downing request for unknown member")

	// ErrCoordinatorPoisoned's message annotates the error that every
	// mutating Coordinator operation returns once an InvalidTransition has
	// been observed. That error's Cause is the *TransitionError; it does
	// not match ErrCoordinatorPoisoned under errors.Is.
	ErrCoordinatorPoisoned = errors.New("membership: coordinator poisoned by invalid transition")
)

// Cause unwraps err to its root cause, using pkg/errors semantics (the
// same helper serf's own dependency already provides) so callers can
// type-switch on sentinel/typed errors regardless of wrapping depth.
func Cause(err error) error {
	return errors.Cause(err)
}

// Wrap annotates err with a message, preserving Cause(), mirroring the
// wrapping style already present in this repository's go.mod via
// github.com/pkg/errors.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return errors.Wrap(err, msg)
}

// Wrapf is Wrap with a format string.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return errors.Wrapf(err, format, args...)
}
