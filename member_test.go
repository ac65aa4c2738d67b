package membership

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestUA(host string) UniqueAddress {
	return NewUniqueAddress(Address{Host: host, Port: 7946})
}

func TestNewJoiningRequiresExactlyOneDatacenterRole(t *testing.T) {
	_, err := NewJoining(newTestUA("n1"), []string{"storage"}, "")
	require.ErrorIs(t, Cause(err), ErrMissingDatacenterRole)

	_, err = NewJoining(newTestUA("n1"), []string{"dc-east", "dc-west"}, "")
	require.ErrorIs(t, Cause(err), ErrMissingDatacenterRole)

	m, err := NewJoining(newTestUA("n1"), []string{"dc-east", "storage"}, "")
	require.NoError(t, err)
	require.Equal(t, "east", m.DataCenter())
	require.True(t, m.HasRole("storage"))
	require.Equal(t, Joining, m.Status)
	require.Equal(t, int32(NotYetUp), m.UpNumber)
}

func TestNewJoiningDefaultsAppVersion(t *testing.T) {
	m, err := NewJoining(newTestUA("n1"), []string{"dc-east"}, "")
	require.NoError(t, err)
	require.Equal(t, DefaultAppVersion, m.AppVersion.String())
}

func TestNewJoiningRejectsInvalidAppVersion(t *testing.T) {
	_, err := NewJoining(newTestUA("n1"), []string{"dc-east"}, "not-a-version")
	require.Error(t, err)
}

func TestPromoteToUpRequiresJoiningOrWeaklyUp(t *testing.T) {
	m, err := NewJoining(newTestUA("n1"), []string{"dc-east"}, "")
	require.NoError(t, err)

	up, err := PromoteToUp(m, 1)
	require.NoError(t, err)
	require.Equal(t, Up, up.Status)
	require.Equal(t, int32(1), up.UpNumber)

	_, err = PromoteToUp(up, 2)
	require.Error(t, err)
}

func TestAgeOrderRejectsCrossDatacenter(t *testing.T) {
	a, err := NewJoining(newTestUA("n1"), []string{"dc-east"}, "")
	require.NoError(t, err)
	a, err = PromoteToUp(a, 1)
	require.NoError(t, err)

	b, err := NewJoining(newTestUA("n2"), []string{"dc-west"}, "")
	require.NoError(t, err)
	b, err = PromoteToUp(b, 1)
	require.NoError(t, err)

	_, err = AgeOrder(a, b)
	require.ErrorIs(t, err, ErrCrossDatacenterAgeCompare)
}

func TestAgeOrderComparesByUpNumberThenAddress(t *testing.T) {
	older, err := NewJoining(newTestUA("n1"), []string{"dc-east"}, "")
	require.NoError(t, err)
	older, err = PromoteToUp(older, 1)
	require.NoError(t, err)

	younger, err := NewJoining(newTestUA("n2"), []string{"dc-east"}, "")
	require.NoError(t, err)
	younger, err = PromoteToUp(younger, 2)
	require.NoError(t, err)

	isOlder, err := AgeOrder(older, younger)
	require.NoError(t, err)
	require.True(t, isOlder)

	isOlder, err = AgeOrder(younger, older)
	require.NoError(t, err)
	require.False(t, isOlder)

	sameUpNumber := younger
	sameUpNumber.UpNumber = older.UpNumber
	isOlder, err = AgeOrder(older, sameUpNumber)
	require.NoError(t, err)
	require.True(t, isOlder, "equal upNumbers fall back to address order (n1 before n2)")
}

func TestLeaderOrderDeprioritizesJoiningWeaklyUpExitingDown(t *testing.T) {
	up, err := NewJoining(newTestUA("n1"), []string{"dc-east"}, "")
	require.NoError(t, err)
	up, err = PromoteToUp(up, 1)
	require.NoError(t, err)

	joining, err := NewJoining(newTestUA("n2"), []string{"dc-east"}, "")
	require.NoError(t, err)

	require.Negative(t, LeaderOrder(up, joining), "an Up member must sort before a Joining member")
	require.Positive(t, LeaderOrder(joining, up))

	weaklyUp, err := WithStatus(joining, WeaklyUp)
	require.NoError(t, err)
	exiting, err := WithStatus(up, Leaving)
	require.NoError(t, err)
	exiting, err = WithStatus(exiting, Exiting)
	require.NoError(t, err)

	require.Negative(t, LeaderOrder(weaklyUp, exiting), "WeaklyUp outranks Exiting within the deprioritized group")
}

func TestFromWireReconstructsArbitraryStatus(t *testing.T) {
	ua := newTestUA("n1")
	m, err := FromWire(ua, Down, 3, []string{"dc-east"}, "1.2.3")
	require.NoError(t, err)
	require.Equal(t, Down, m.Status)
	require.Equal(t, int32(3), m.UpNumber)
	require.Equal(t, "1.2.3", m.AppVersion.String())
}

func TestRolesReturnsSortedDefensiveCopy(t *testing.T) {
	m, err := NewJoining(newTestUA("n1"), []string{"dc-east", "storage", "cache"}, "")
	require.NoError(t, err)
	roles := m.Roles()
	require.Equal(t, []string{"cache", "dc-east", "storage"}, roles)
	roles[0] = "mutated"
	require.True(t, m.HasRole("cache"), "mutating the returned slice must not affect the Member")
}
