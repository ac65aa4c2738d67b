package membership

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCanTransitionPermittedMoves(t *testing.T) {
	cases := []struct {
		from, to MemberStatus
	}{
		{Joining, WeaklyUp},
		{Joining, Up},
		{Joining, Down},
		{WeaklyUp, Up},
		{Up, Leaving},
		{Up, PreparingForShutdown},
		{Leaving, Exiting},
		{Exiting, Removed},
		{Down, Removed},
		{PreparingForShutdown, ReadyForShutdown},
		{ReadyForShutdown, Leaving},
	}
	for _, c := range cases {
		require.Truef(t, CanTransition(c.from, c.to), "%s -> %s should be permitted", c.from, c.to)
	}
}

func TestCanTransitionForbiddenMoves(t *testing.T) {
	cases := []struct {
		from, to MemberStatus
	}{
		{Up, Joining},
		{Removed, Up},
		{Down, Up},
		{Exiting, WeaklyUp},
		{Leaving, Up},
		{Joining, Exiting},
	}
	for _, c := range cases {
		require.Falsef(t, CanTransition(c.from, c.to), "%s -> %s should be forbidden", c.from, c.to)
	}
}

func TestWithStatusReturnsTransitionError(t *testing.T) {
	m, err := NewJoining(NewUniqueAddress(Address{Host: "n1"}), []string{"dc-east"}, "")
	require.NoError(t, err)

	_, err = WithStatus(m, Exiting)
	require.Error(t, err)
	require.True(t, IsInvalidTransition(err))

	var transitionErr *TransitionError
	require.ErrorAs(t, err, &transitionErr)
	require.Equal(t, Joining, transitionErr.From)
	require.Equal(t, Exiting, transitionErr.To)
}

func TestMemberStatusStringPanicsOnUnknownValue(t *testing.T) {
	require.Panics(t, func() {
		_ = MemberStatus(99).String()
	})
}
