package transport

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/quorumkit/membership"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	sender := membership.NewUniqueAddress(membership.Address{Host: "n1", Port: 7946})
	ua := membership.NewUniqueAddress(membership.Address{Host: "n2", Port: 7946})
	m, err := membership.NewJoining(ua, []string{"dc-east", "storage"}, "1.2.3")
	require.NoError(t, err)
	m, err = membership.PromoteToUp(m, 4)
	require.NoError(t, err)

	tombstoned := membership.NewUniqueAddress(membership.Address{Host: "n3", Port: 7946})
	tombstoneTime := time.Now().Truncate(time.Second)

	snapshot := Snapshot{
		SenderUA: sender,
		Members:  []membership.Member{m},
		Tombstones: map[membership.UniqueAddress]time.Time{
			tombstoned: tombstoneTime,
		},
	}

	encoded, err := Encode(snapshot)
	require.NoError(t, err)

	decoded, err := Decode(encoded)
	require.NoError(t, err)

	require.Equal(t, sender, decoded.SenderUA)
	require.Len(t, decoded.Members, 1)
	require.Equal(t, ua, decoded.Members[0].UniqueAddress)
	require.Equal(t, membership.Up, decoded.Members[0].Status)
	require.Equal(t, int32(4), decoded.Members[0].UpNumber)
	require.Equal(t, "1.2.3", decoded.Members[0].AppVersion.String())
	require.True(t, decoded.Members[0].HasRole("storage"))
	require.Equal(t, "east", decoded.Members[0].DataCenter())

	require.Contains(t, decoded.Tombstones, tombstoned)
	require.True(t, decoded.Tombstones[tombstoned].Equal(tombstoneTime))
}

func TestDecodeRejectsMalformedRoleSet(t *testing.T) {
	sender := membership.NewUniqueAddress(membership.Address{Host: "n1", Port: 7946})
	ua := membership.NewUniqueAddress(membership.Address{Host: "n2", Port: 7946})
	valid, err := membership.NewJoining(ua, []string{"dc-east"}, "")
	require.NoError(t, err)

	snapshot := Snapshot{SenderUA: sender, Members: []membership.Member{valid}}
	encoded, err := Encode(snapshot)
	require.NoError(t, err)
	_, err = Decode(encoded)
	require.NoError(t, err, "a payload whose members carry a datacenter role decodes")

	// Member's roles are unexported, so a Member literal built outside the
	// membership package carries no roles at all; its encoding therefore
	// lacks a datacenter role.
	malformed := Snapshot{SenderUA: sender, Members: []membership.Member{{UniqueAddress: ua}}}
	encoded, err = Encode(malformed)
	require.NoError(t, err)
	_, err = Decode(encoded)
	require.ErrorIs(t, membership.Cause(err), membership.ErrMissingDatacenterRole)
}
