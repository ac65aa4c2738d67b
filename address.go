package membership

import (
	"fmt"
	"math/rand"
	"time"
)

func init() {
	rand.Seed(time.Now().UnixNano())
}

// Address is a logical node locator. Two nodes that share the same
// Host:Port across process restarts are the same Address; UniqueAddress
// is what actually distinguishes reincarnations.
type Address struct {
	Protocol string
	System   string
	Host     string
	Port     int
}

// String renders the address as protocol://system@host:port, or as a
// bare host:port (the way serf renders Member.Addr) when both Protocol
// and System are empty.
func (a Address) String() string {
	if a.Protocol == "" && a.System == "" {
		return fmt.Sprintf("%s:%d", a.Host, a.Port)
	}
	return fmt.Sprintf("%s://%s@%s:%d", a.Protocol, a.System, a.Host, a.Port)
}

// CompareAddress orders addresses by host then port, per §3/§4.1. Empty
// host sorts before any non-empty host; port 0 sorts before any other port.
func CompareAddress(a, b Address) int {
	if a.Host != b.Host {
		if a.Host < b.Host {
			return -1
		}
		return 1
	}
	if a.Port != b.Port {
		if a.Port < b.Port {
			return -1
		}
		return 1
	}
	return 0
}

// UniqueAddress is an Address plus a process-lifetime-unique random UID
// that distinguishes reincarnations of the same host:port. Equality (and
// so map-key identity) compares both Address and UID; the UID is what
// tells reincarnations apart, since addresses recur across restarts but
// UIDs do not.
type UniqueAddress struct {
	Address Address
	UID     int64
}

// NewUniqueAddress builds a UniqueAddress for addr with a freshly
// generated UID, the same pattern serf.go's package init() uses to seed
// math/rand once per process before any identity is minted.
func NewUniqueAddress(addr Address) UniqueAddress {
	return UniqueAddress{Address: addr, UID: rand.Int63()}
}

// CompareUniqueAddress orders by address first, then UID ascending.
func CompareUniqueAddress(a, b UniqueAddress) int {
	if c := CompareAddress(a.Address, b.Address); c != 0 {
		return c
	}
	switch {
	case a.UID < b.UID:
		return -1
	case a.UID > b.UID:
		return 1
	default:
		return 0
	}
}

// String renders the Address's String followed by "#uid", e.g.
// "host:port#uid".
func (u UniqueAddress) String() string {
	return fmt.Sprintf("%s#%d", u.Address.String(), u.UID)
}
