package errkind

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSentinelMatchesAnyDetail(t *testing.T) {
	err := New(Duplicate, "track already queued by this user")
	require.True(t, errors.Is(err, Sentinel(Duplicate)))
	require.False(t, errors.Is(err, Sentinel(FairnessPending)))
}

func TestOfRecoversKindThroughWrap(t *testing.T) {
	cause := errors.New("dial tcp: timeout")
	err := Wrap(Network, "resolve_playable", cause)

	kind, ok := Of(err)
	require.True(t, ok)
	require.Equal(t, Network, kind)
	require.ErrorIs(t, err, cause)
}

func TestOfFalseForPlainError(t *testing.T) {
	_, ok := Of(errors.New("plain"))
	require.False(t, ok)
}
