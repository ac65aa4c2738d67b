package failuredetector

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/quorumkit/membership"
)

func TestPuppetDeliversInjectedSignals(t *testing.T) {
	p := NewPuppet()
	defer p.Close()

	ua := membership.NewUniqueAddress(membership.Address{Host: "n1", Port: 7946})
	p.MarkUnreachable(ua)
	p.MarkReachable(ua)

	select {
	case sig := <-p.Signals():
		require.Equal(t, ua, sig.UniqueAddress)
		require.False(t, sig.Reachable)
	case <-time.After(time.Second):
		t.Fatal("expected an unreachable signal")
	}

	select {
	case sig := <-p.Signals():
		require.True(t, sig.Reachable)
	case <-time.After(time.Second):
		t.Fatal("expected a reachable signal")
	}
}

func TestPuppetImplementsDetector(t *testing.T) {
	var _ Detector = NewPuppet()
}
