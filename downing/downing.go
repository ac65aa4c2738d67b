// Package downing provides the built-in "auto-down-unreachable-after"
// implementation of the membership.DowningPolicy collaborator declared
// in spec §6. Serf's own analogue is the probabilistic Serf.reconnect()
// policy in serf/serf.go; this package generalizes that "external
// policy decides, coordinator acts" split into an explicit, registered
// collaborator instead of a single hardwired method.
package downing

import (
	"time"

	"github.com/quorumkit/membership"
)

func init() {
	membership.RegisterDowningPolicy("auto-down-unreachable-after", func(cfg *membership.Config) membership.DowningPolicy {
		return NewAutoDownUnreachableAfter(cfg.AutoDownUnreachableAfter)
	})
}

// AutoDownUnreachableAfter is the built-in policy from §6: it marks any
// member unreachable for longer than After as Down.
type AutoDownUnreachableAfter struct {
	After time.Duration
}

// NewAutoDownUnreachableAfter constructs the built-in auto-downing
// policy with the given threshold.
func NewAutoDownUnreachableAfter(after time.Duration) *AutoDownUnreachableAfter {
	return &AutoDownUnreachableAfter{After: after}
}

// Decide implements membership.DowningPolicy.
func (p *AutoDownUnreachableAfter) Decide(now time.Time, view membership.DowningView) []membership.UniqueAddress {
	var toDown []membership.UniqueAddress
	for _, m := range view.Members() {
		if m.Status == membership.Down || m.Status == membership.Removed {
			continue
		}
		since, unreachable := view.UnreachableSince(m.UniqueAddress)
		if !unreachable {
			continue
		}
		if now.Sub(since) >= p.After {
			toDown = append(toDown, m.UniqueAddress)
		}
	}
	return toDown
}
