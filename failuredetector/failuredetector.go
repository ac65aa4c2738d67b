// Package failuredetector declares the narrow reachability-signal
// collaborator from spec §6 and a "puppet" implementation for tests,
// grounded on the mock EventDelegate/UI patterns of hashicorp/serf
// (command/agent/event_handler_mock.go, cli/ui_mock.go, not part of this
// module):
// a hand-driven stand-in that lets tests script reachability changes
// deterministically instead of running a real probe loop.
package failuredetector

import (
	"sync"

	"github.com/quorumkit/membership"
)

// Signal is a single reachability observation.
type Signal struct {
	UniqueAddress membership.UniqueAddress
	Reachable     bool
}

// Detector emits reachability Signals for a Coordinator to consume via
// ObserveReachability. The core only ever consumes the boolean signal;
// how it is produced (phi-accrual, SWIM, deadline-based) is entirely
// external per §1.
type Detector interface {
	Signals() <-chan Signal
}

// Puppet is a hand-driven Detector: tests call MarkUnreachable/
// MarkReachable directly and the corresponding Signal is delivered on
// the channel returned by Signals. This is the "puppet implementation"
// §6 expects to exist for tests.
type Puppet struct {
	mu sync.Mutex
	ch chan Signal
}

// NewPuppet constructs a Puppet with a reasonably buffered channel so
// test driving code does not need its own goroutine to keep up.
func NewPuppet() *Puppet {
	return &Puppet{ch: make(chan Signal, 256)}
}

// Signals implements Detector.
func (p *Puppet) Signals() <-chan Signal {
	return p.ch
}

// MarkUnreachable injects an unreachable signal for ua.
func (p *Puppet) MarkUnreachable(ua membership.UniqueAddress) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ch <- Signal{UniqueAddress: ua, Reachable: false}
}

// MarkReachable injects a reachable signal for ua.
func (p *Puppet) MarkReachable(ua membership.UniqueAddress) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ch <- Signal{UniqueAddress: ua, Reachable: true}
}

// Close shuts down the Puppet's channel. Safe to call once.
func (p *Puppet) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	close(p.ch)
}
