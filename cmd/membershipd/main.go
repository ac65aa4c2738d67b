// Command membershipd is a minimal demonstration agent for the
// membership package: it joins a local Coordinator, wires it to a
// puppet failure detector, round-trips its own view once through the
// transport package's snapshot codec, and logs every
// committed event — the same "parse flags, build the runtime, block
// until shutdown" shape cmd/serf/main.go takes for the Serf agent
// itself, scaled down to this package's surface.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/quorumkit/membership"
	_ "github.com/quorumkit/membership/downing"
	"github.com/quorumkit/membership/failuredetector"
	"github.com/quorumkit/membership/transport"
)

func main() {
	os.Exit(realMain())
}

func realMain() int {
	var (
		nodeName   = flag.String("node", "node1", "node name")
		dcRole     = flag.String("dc", "dc-default", "datacenter role, e.g. dc-east")
		logLevel   = flag.String("log-level", "info", "log level: trace, debug, info, warn, error")
		tickPeriod = flag.Duration("tick", time.Second, "leader-action tick period")
	)
	flag.Parse()

	logger := hclog.New(&hclog.LoggerOptions{
		Name:  "membershipd",
		Level: hclog.LevelFromString(*logLevel),
	})

	cfg := membership.DefaultConfig()
	cfg.Roles = []string{*dcRole}

	local := membership.NewUniqueAddress(membership.Address{
		Protocol: "membershipd",
		System:   "demo",
		Host:     *nodeName,
		Port:     7946,
	})

	coord, err := membership.NewCoordinator(cfg, local, logger)
	if err != nil {
		logger.Error("failed to build coordinator", "error", err)
		return 1
	}

	puppet := failuredetector.NewPuppet()
	defer puppet.Close()
	go func() {
		for sig := range puppet.Signals() {
			if sig.Reachable {
				coord.MarkNodeAsAvailable(sig.UniqueAddress)
			} else {
				coord.MarkNodeAsUnavailable(sig.UniqueAddress)
			}
		}
	}()

	events := make(chan membership.Event, 64)
	coord.Subscribe(events)
	go func() {
		for ev := range events {
			logger.Info("event", "type", ev.Type.String(), "member", ev.UniqueAddress.String())
		}
	}()

	if _, err := coord.Join(); err != nil {
		logger.Error("failed to join local node", "error", err)
		return 1
	}

	// Round-trip our own view through the wire codec once at startup and
	// feed it back in as if it had arrived from a peer, exercising the
	// same Encode/Decode/ObserveGossip path a real transport would drive
	// on every gossip round.
	snapshot := transport.Snapshot{SenderUA: local, Members: coord.Members()}
	encoded, err := transport.Encode(snapshot)
	if err != nil {
		logger.Error("failed to encode snapshot", "error", err)
		return 1
	}
	decoded, err := transport.Decode(encoded)
	if err != nil {
		logger.Error("failed to decode snapshot", "error", err)
		return 1
	}
	remote := make(map[membership.UniqueAddress]membership.Member, len(decoded.Members))
	for _, m := range decoded.Members {
		remote[m.UniqueAddress] = m
	}
	if _, err := coord.ObserveGossip(remote, decoded.Tombstones); err != nil {
		logger.Error("failed to observe gossip", "error", err)
		return 1
	}

	ticker := time.NewTicker(*tickPeriod)
	defer ticker.Stop()

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, os.Interrupt)

	fmt.Fprintf(os.Stdout, "membershipd: node %s joined as %s\n", *nodeName, local.String())

	for {
		select {
		case <-ticker.C:
			if _, err := coord.LeaderActions(time.Now()); err != nil {
				logger.Error("leader actions failed", "error", err)
				coord.Close()
				return 1
			}
		case <-shutdownCh:
			coord.Close()
			return 0
		}
	}
}
