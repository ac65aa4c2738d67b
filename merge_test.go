package membership

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func mustMember(t *testing.T, ua UniqueAddress, status MemberStatus, upNumber int32) Member {
	t.Helper()
	m, err := NewJoining(ua, []string{"dc-east"}, "")
	require.NoError(t, err)
	if status == Joining {
		return m
	}
	if status == Up || status == WeaklyUp {
		if status == WeaklyUp {
			m, err = WithStatus(m, WeaklyUp)
			require.NoError(t, err)
			return m
		}
		m, err = PromoteToUp(m, upNumber)
		require.NoError(t, err)
		return m
	}
	m, err = PromoteToUp(m, upNumber)
	require.NoError(t, err)
	m, err = WithStatus(m, status)
	require.NoError(t, err)
	return m
}

func TestPickHighestPriorityPrefersFurtherAlongStatus(t *testing.T) {
	ua := newTestUA("n1")
	a := map[UniqueAddress]Member{ua: mustMember(t, ua, Up, 1)}
	leaving, err := WithStatus(a[ua], Leaving)
	require.NoError(t, err)
	b := map[UniqueAddress]Member{ua: leaving}

	merged := PickHighestPriority(a, b, nil)
	require.Equal(t, Leaving, merged[ua].Status)

	mergedReversed := PickHighestPriority(b, a, nil)
	require.Equal(t, Leaving, mergedReversed[ua].Status, "merge must be commutative")
}

func TestPickHighestPriorityIsIdempotent(t *testing.T) {
	ua := newTestUA("n1")
	m := mustMember(t, ua, Up, 1)
	a := map[UniqueAddress]Member{ua: m}

	once := PickHighestPriority(a, a, nil)
	twice := PickHighestPriority(once, a, nil)
	require.Equal(t, once[ua].Status, twice[ua].Status)
	require.Equal(t, once[ua].UpNumber, twice[ua].UpNumber)
}

func TestPickHighestPriorityDropsTombstonedAddresses(t *testing.T) {
	ua := newTestUA("n1")
	a := map[UniqueAddress]Member{ua: mustMember(t, ua, Up, 1)}
	tombstones := map[UniqueAddress]time.Time{ua: time.Now()}

	merged := PickHighestPriority(a, nil, tombstones)
	require.Empty(t, merged)
}

func TestPickHighestPrioritySingleSidedDownIsDropped(t *testing.T) {
	ua := newTestUA("n1")
	down := mustMember(t, ua, Down, 1)
	a := map[UniqueAddress]Member{ua: down}

	merged := PickHighestPriority(a, map[UniqueAddress]Member{}, nil)
	require.Empty(t, merged, "a Down member absent from the other side is assumed already removed there")
}

func TestPickHighestPrioritySingleSidedJoiningIsKept(t *testing.T) {
	ua := newTestUA("n1")
	joining := mustMember(t, ua, Joining, 0)
	a := map[UniqueAddress]Member{ua: joining}

	merged := PickHighestPriority(a, map[UniqueAddress]Member{}, nil)
	require.Contains(t, merged, ua)
	require.Equal(t, Joining, merged[ua].Status)
}

func TestPickHighestPriorityEqualStatusPrefersOlder(t *testing.T) {
	ua := newTestUA("n1")
	older := mustMember(t, ua, Up, 1)
	younger := older
	younger.UpNumber = 5

	a := map[UniqueAddress]Member{ua: older}
	b := map[UniqueAddress]Member{ua: younger}

	merged := PickHighestPriority(a, b, nil)
	require.Equal(t, int32(1), merged[ua].UpNumber)
}

func TestPickHighestPriorityUnionsDisjointAddresses(t *testing.T) {
	ua1, ua2 := newTestUA("n1"), newTestUA("n2")
	a := map[UniqueAddress]Member{ua1: mustMember(t, ua1, Up, 1)}
	b := map[UniqueAddress]Member{ua2: mustMember(t, ua2, Up, 1)}

	merged := PickHighestPriority(a, b, nil)
	require.Len(t, merged, 2)
	require.Contains(t, merged, ua1)
	require.Contains(t, merged, ua2)
}
