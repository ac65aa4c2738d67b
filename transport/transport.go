// Package transport declares the gossip collaborator contracts from
// spec §6 — a sink that accepts a serialized Snapshot and a source that
// yields Snapshots from peers — plus a msgpack codec for Snapshot
// itself. Wire framing (how bytes get from one process to another) is
// explicitly out of scope per §1; only the snapshot's in-memory<->byte
// representation belongs here, the same split serf/messages.go draws
// between encodeMessage/decodeMessage (in scope) and memberlist's wire
// framing (out of scope, a collaborator).
package transport

import (
	"bytes"
	"strconv"
	"time"

	"github.com/hashicorp/go-msgpack/codec"

	"github.com/quorumkit/membership"
)

// Snapshot is the gossip payload exchanged between two Coordinators:
// the sender's identity, its member set, and its tombstones.
type Snapshot struct {
	SenderUA   membership.UniqueAddress
	Members    []membership.Member
	Tombstones map[membership.UniqueAddress]time.Time
}

// Sink accepts an already-encoded Snapshot for delivery to peers. The
// core never constructs a Sink; it is handed one by the runtime that
// owns the actual network transport.
type Sink interface {
	Send(peer membership.Address, encoded []byte) error
}

// Source yields encoded Snapshots received from peers.
type Source interface {
	Receive() (<-chan []byte, error)
}

// wireMember mirrors Member's exported shape for msgpack purposes;
// Member itself is kept free of codec struct tags so the core package
// has no serialization-library dependency at all (only this boundary
// package does), matching the same split serf draws between its
// Member struct and messages.go's wire message types.
type wireMember struct {
	Host       string
	Port       int
	Protocol   string
	System     string
	UID        int64
	UpNumber   int32
	Status     int
	Roles      []string
	AppVersion string
}

type wireSnapshot struct {
	SenderHost     string
	SenderPort     int
	SenderProtocol string
	SenderSystem   string
	SenderUID      int64
	Members        []wireMember
	Tombstones     map[string]int64 // uid -> unix nanos; uid uniquely keys a UniqueAddress on the wire
	TombstoneAddrs map[string]wireAddr
}

type wireAddr struct {
	Host     string
	Port     int
	Protocol string
	System   string
}

// uidKey renders a UniqueAddress's UID as a map key; UID alone is
// sufficient since it is process-lifetime unique (§3).
func uidKey(ua membership.UniqueAddress) string {
	return strconv.FormatInt(ua.UID, 10)
}

func uidFromKey(key string) int64 {
	uid, _ := strconv.ParseInt(key, 10, 64)
	return uid
}

// Encode serializes s with hashicorp/go-msgpack, the same codec
// serf/messages.go's encodeMessage uses for messagePushPull.
func Encode(s Snapshot) ([]byte, error) {
	w := wireSnapshot{
		SenderHost:     s.SenderUA.Address.Host,
		SenderPort:     s.SenderUA.Address.Port,
		SenderProtocol: s.SenderUA.Address.Protocol,
		SenderSystem:   s.SenderUA.Address.System,
		SenderUID:      s.SenderUA.UID,
		Tombstones:     make(map[string]int64, len(s.Tombstones)),
		TombstoneAddrs: make(map[string]wireAddr, len(s.Tombstones)),
	}
	for _, m := range s.Members {
		w.Members = append(w.Members, wireMember{
			Host:       m.Address().Host,
			Port:       m.Address().Port,
			Protocol:   m.Address().Protocol,
			System:     m.Address().System,
			UID:        m.UniqueAddress.UID,
			UpNumber:   m.UpNumber,
			Status:     int(m.Status),
			Roles:      m.Roles(),
			AppVersion: m.AppVersion.String(),
		})
	}
	for ua, t := range s.Tombstones {
		key := uidKey(ua)
		w.Tombstones[key] = t.UnixNano()
		w.TombstoneAddrs[key] = wireAddr{
			Host:     ua.Address.Host,
			Port:     ua.Address.Port,
			Protocol: ua.Address.Protocol,
			System:   ua.Address.System,
		}
	}

	var buf bytes.Buffer
	handle := codec.MsgpackHandle{}
	if err := codec.NewEncoder(&buf, &handle).Encode(&w); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode deserializes a Snapshot previously produced by Encode, then
// reconstructs each Member via the package's exported constructors so
// an invalid wire payload (e.g. a role set lacking a datacenter prefix)
// surfaces as ErrMissingDatacenterRole rather than a silently malformed
// Member (§9's open question on malformed role sets).
func Decode(raw []byte) (Snapshot, error) {
	var w wireSnapshot
	handle := codec.MsgpackHandle{}
	if err := codec.NewDecoder(bytes.NewReader(raw), &handle).Decode(&w); err != nil {
		return Snapshot{}, err
	}

	senderUA := membership.UniqueAddress{
		Address: membership.Address{
			Protocol: w.SenderProtocol,
			System:   w.SenderSystem,
			Host:     w.SenderHost,
			Port:     w.SenderPort,
		},
		UID: w.SenderUID,
	}

	out := Snapshot{
		SenderUA:   senderUA,
		Tombstones: make(map[membership.UniqueAddress]time.Time, len(w.Tombstones)),
	}
	for _, wm := range w.Members {
		ua := membership.UniqueAddress{
			Address: membership.Address{
				Protocol: wm.Protocol,
				System:   wm.System,
				Host:     wm.Host,
				Port:     wm.Port,
			},
			UID: wm.UID,
		}
		m, err := membership.FromWire(ua, membership.MemberStatus(wm.Status), wm.UpNumber, wm.Roles, wm.AppVersion)
		if err != nil {
			return Snapshot{}, err
		}
		out.Members = append(out.Members, m)
	}
	for key, nanos := range w.Tombstones {
		addr := w.TombstoneAddrs[key]
		ua := membership.UniqueAddress{
			Address: membership.Address{
				Protocol: addr.Protocol,
				System:   addr.System,
				Host:     addr.Host,
				Port:     addr.Port,
			},
			UID: uidFromKey(key),
		}
		out.Tombstones[ua] = time.Unix(0, nanos)
	}
	return out, nil
}
