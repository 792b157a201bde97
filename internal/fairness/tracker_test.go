package fairness

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sonanterra/queueengine/internal/errkind"
	"github.com/sonanterra/queueengine/internal/track"
)

func entry(guild, user string) track.Entry {
	return track.Entry{GuildID: guild, RequesterID: user, RequesterDisplay: user}
}

func TestRule2PendingCapRejectsSecondSubmission(t *testing.T) {
	tr := New(Config{MaxPendingPerUser: 1, DupThreshold: 5, Mode: ModeStrict})

	k1 := track.Key{NormalizedTitle: "u1", DurationMS: 1}
	require.NoError(t, tr.CanAdmit("g1", "alice", 0, track.Descriptor{}, k1))
	tr.OnEnqueued(entry("g1", "alice"), k1)

	k2 := track.Key{NormalizedTitle: "u2", DurationMS: 1}
	err := tr.CanAdmit("g1", "alice", 1, track.Descriptor{}, k2)
	require.Error(t, err)
	kind, ok := errkind.Of(err)
	require.True(t, ok)
	require.Equal(t, errkind.FairnessPending, kind)
}

func TestRule1DuplicateRejectedAboveThreshold(t *testing.T) {
	tr := New(Config{MaxPendingPerUser: 10, DupThreshold: 5, Mode: ModeStrict})

	k := track.Key{NormalizedTitle: "same", DurationMS: 1}
	tr.OnEnqueued(entry("g1", "alice"), k)

	err := tr.CanAdmit("g1", "alice", 5, track.Descriptor{}, k)
	require.Error(t, err)
	kind, _ := errkind.Of(err)
	require.Equal(t, errkind.Duplicate, kind)
}

func TestRule4ExemptionBelowThreshold(t *testing.T) {
	tr := New(Config{MaxPendingPerUser: 10, DupThreshold: 5, Mode: ModeStrict})

	k := track.Key{NormalizedTitle: "same", DurationMS: 1}
	tr.OnEnqueued(entry("g1", "alice"), k)

	// pendingLen=2 < DupThreshold=5: exemption applies.
	err := tr.CanAdmit("g1", "alice", 2, track.Descriptor{}, k)
	require.NoError(t, err)
}

func TestRule4NeverOverridesRule2(t *testing.T) {
	// Rule 4's exemption applies only to rule 1, never to rules 2-3: an
	// exempted duplicate still falls through to the pending cap and is
	// rejected fairness_pending if that cap is already hit.
	tr := New(Config{MaxPendingPerUser: 1, DupThreshold: 5, Mode: ModeStrict})

	k := track.Key{NormalizedTitle: "same", DurationMS: 1}
	tr.OnEnqueued(entry("g1", "alice"), k)

	err := tr.CanAdmit("g1", "alice", 1, track.Descriptor{}, k)
	require.Error(t, err)
	kind, _ := errkind.Of(err)
	require.Equal(t, errkind.FairnessPending, kind, "exemption must not bypass rule 2's pending cap")
}

func TestDuplicateRejectedAboveThresholdEvenWhenAlsoOverPendingCap(t *testing.T) {
	// When a non-exempt duplicate and a pending-cap violation both apply,
	// rule 1 is checked first and reports duplicate, never fairness_pending.
	tr := New(Config{MaxPendingPerUser: 2, DupThreshold: 5, Mode: ModeStrict})

	k := track.Key{NormalizedTitle: "same", DurationMS: 1}
	other := track.Key{NormalizedTitle: "other", DurationMS: 1}
	tr.OnEnqueued(entry("g1", "alice"), k)
	tr.OnEnqueued(entry("g1", "alice"), other)

	err := tr.CanAdmit("g1", "alice", 5, track.Descriptor{}, k)
	require.Error(t, err)
	kind, _ := errkind.Of(err)
	require.Equal(t, errkind.Duplicate, kind)
}

func TestRule3StrictModeRejectsCurrentlyPlayingUser(t *testing.T) {
	tr := New(Config{MaxPendingPerUser: 5, DupThreshold: 5, Mode: ModeStrict})

	e := entry("g1", "alice")
	k := track.Key{NormalizedTitle: "playing", DurationMS: 1}
	tr.OnEnqueued(e, k)
	tr.OnStartPlay(e, k)

	k2 := track.Key{NormalizedTitle: "other", DurationMS: 2}
	err := tr.CanAdmit("g1", "alice", 0, track.Descriptor{}, k2)
	require.Error(t, err)
	kind, _ := errkind.Of(err)
	require.Equal(t, errkind.FairnessPlaying, kind)
}

func TestRule3LenientModeAllowsCurrentlyPlayingUser(t *testing.T) {
	tr := New(Config{MaxPendingPerUser: 5, DupThreshold: 5, Mode: ModeLenient})

	e := entry("g1", "alice")
	k := track.Key{NormalizedTitle: "playing", DurationMS: 1}
	tr.OnEnqueued(e, k)
	tr.OnStartPlay(e, k)

	k2 := track.Key{NormalizedTitle: "other", DurationMS: 2}
	require.NoError(t, tr.CanAdmit("g1", "alice", 0, track.Descriptor{}, k2))
}

func TestInverseInvariantHoldsAcrossLifecycle(t *testing.T) {
	tr := New(DefaultConfig())

	e1 := entry("g1", "alice")
	k1 := track.Key{NormalizedTitle: "a", DurationMS: 1}
	tr.OnEnqueued(e1, k1)
	require.True(t, tr.CheckInverseInvariant("g1"))

	e2 := entry("g1", "bob")
	k2 := track.Key{NormalizedTitle: "b", DurationMS: 1}
	tr.OnEnqueued(e2, k2)
	require.True(t, tr.CheckInverseInvariant("g1"))

	tr.OnStartPlay(e1, k1)
	require.True(t, tr.CheckInverseInvariant("g1"))
	require.Equal(t, "alice", tr.CurrentlyPlaying("g1"))

	tr.OnFinished(e1, k1, true)
	require.True(t, tr.CheckInverseInvariant("g1"))
	require.Equal(t, "", tr.CurrentlyPlaying("g1"))

	// Key count equals |pending| + (1 if current else 0). Only bob's
	// key remains, nothing is current.
	require.Equal(t, 1, tr.KeyCount("g1"))
}

func TestAliceMustWaitForHerTrackToFinishBeforeResubmitting(t *testing.T) {
	tr := New(Config{MaxPendingPerUser: 1, DupThreshold: 5, Mode: ModeStrict})

	u1 := track.Key{NormalizedTitle: "u1", DurationMS: 1}
	u2 := track.Key{NormalizedTitle: "u2", DurationMS: 1}

	require.NoError(t, tr.CanAdmit("g1", "alice", 0, track.Descriptor{}, u1))
	e1 := entry("g1", "alice")
	tr.OnEnqueued(e1, u1)

	err := tr.CanAdmit("g1", "alice", 1, track.Descriptor{}, u2)
	kind, _ := errkind.Of(err)
	require.Equal(t, errkind.FairnessPending, kind)

	tr.OnStartPlay(e1, u1)
	tr.OnFinished(e1, u1, true)

	require.NoError(t, tr.CanAdmit("g1", "alice", 0, track.Descriptor{}, u2))
}

func TestDuplicateExemptionThenRejectionOnceQueueGrows(t *testing.T) {
	tr := New(Config{MaxPendingPerUser: 10, DupThreshold: 5, Mode: ModeStrict})

	k := track.Key{NormalizedTitle: "k", DurationMS: 1}
	tr.OnEnqueued(entry("g1", "alice"), k)
	tr.OnEnqueued(entry("g1", "bob"), k) // bob also owns a different entry with same key? not needed

	// 2 pending total, alice submits again with key K: exempt.
	require.NoError(t, tr.CanAdmit("g1", "alice", 2, track.Descriptor{}, k))
	tr.OnEnqueued(entry("g1", "alice"), k)

	// 4 more enqueues by other users -> 6 pending total now.
	for i := 0; i < 4; i++ {
		other := track.Key{NormalizedTitle: "other", DurationMS: int64(i)}
		tr.OnEnqueued(entry("g1", "carol"), other)
	}

	err := tr.CanAdmit("g1", "alice", 6, track.Descriptor{}, k)
	require.Error(t, err)
	kind, _ := errkind.Of(err)
	require.Equal(t, errkind.Duplicate, kind)
}
