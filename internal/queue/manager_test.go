package queue

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sonanterra/queueengine/internal/persistence"
	"github.com/sonanterra/queueengine/internal/track"
)

type hookCall struct {
	kind string // "enqueued", "start", "finished"
	user string
	was  bool
}

type fakeHooks struct {
	calls []hookCall
}

func (f *fakeHooks) OnEnqueued(e track.Entry, key track.Key) {
	f.calls = append(f.calls, hookCall{kind: "enqueued", user: e.RequesterID})
}
func (f *fakeHooks) OnStartPlay(e track.Entry, key track.Key) {
	f.calls = append(f.calls, hookCall{kind: "start", user: e.RequesterID})
}
func (f *fakeHooks) OnFinished(e track.Entry, key track.Key, wasCurrent bool) {
	f.calls = append(f.calls, hookCall{kind: "finished", user: e.RequesterID, was: wasCurrent})
}

func newTestManager(t *testing.T) (*Manager, *fakeHooks) {
	t.Helper()
	store, err := persistence.NewFileStore(t.TempDir())
	require.NoError(t, err)
	hooks := &fakeHooks{}
	return New(store, hooks, 0), hooks
}

func entryFor(guild, user, title string) track.Entry {
	return track.Entry{
		Descriptor:  track.Descriptor{Title: title, DurationMS: 1000, CanonicalURL: "https://example.com/" + title},
		RequesterID: user, RequesterDisplay: user, GuildID: guild,
	}
}

func TestEnqueueReturnsSequentialPositions(t *testing.T) {
	m, hooks := newTestManager(t)

	pos1, err := m.Enqueue("g1", entryFor("g1", "alice", "a"))
	require.NoError(t, err)
	require.Equal(t, 1, pos1)

	pos2, err := m.Enqueue("g1", entryFor("g1", "bob", "b"))
	require.NoError(t, err)
	require.Equal(t, 2, pos2)

	require.Len(t, hooks.calls, 2)
	require.Equal(t, "enqueued", hooks.calls[0].kind)
}

func TestPeekNextDoesNotMutateOrAdvanceRevision(t *testing.T) {
	m, _ := newTestManager(t)
	_, err := m.Enqueue("g1", entryFor("g1", "alice", "a"))
	require.NoError(t, err)

	before := m.Status("g1").Revision

	peeked, ok := m.PeekNext("g1")
	require.True(t, ok)
	require.Equal(t, "a", peeked.Descriptor.Title)

	after := m.Status("g1").Revision
	require.Equal(t, before, after, "PeekNext must not advance revision")

	// Peeking again returns the same head — it never consumes.
	peeked2, ok := m.PeekNext("g1")
	require.True(t, ok)
	require.Equal(t, peeked.Descriptor.Title, peeked2.Descriptor.Title)
}

func TestAdvanceConsumesHeadAndFinishesPrevious(t *testing.T) {
	m, hooks := newTestManager(t)
	_, err := m.Enqueue("g1", entryFor("g1", "alice", "a"))
	require.NoError(t, err)
	_, err = m.Enqueue("g1", entryFor("g1", "bob", "b"))
	require.NoError(t, err)

	first, ok := m.Advance("g1")
	require.True(t, ok)
	require.Equal(t, "a", first.Descriptor.Title)

	st := m.Status("g1")
	require.Equal(t, 1, st.PendingLen)
	require.NotNil(t, st.Current)
	require.Equal(t, "a", st.Current.Descriptor.Title)

	second, ok := m.Advance("g1")
	require.True(t, ok)
	require.Equal(t, "b", second.Descriptor.Title)

	// alice's track should have been reported finished (wasCurrent=true)
	// before bob's start.
	finishAlice, startBob := -1, -1
	for i, c := range hooks.calls {
		if c.kind == "finished" && c.user == "alice" && c.was {
			finishAlice = i
		}
		if c.kind == "start" && c.user == "bob" {
			startBob = i
		}
	}
	require.GreaterOrEqual(t, finishAlice, 0)
	require.Greater(t, startBob, finishAlice)
}

func TestAdvanceOnEmptyPendingClearsCurrentAndReturnsFalse(t *testing.T) {
	m, hooks := newTestManager(t)
	_, err := m.Enqueue("g1", entryFor("g1", "alice", "a"))
	require.NoError(t, err)
	_, ok := m.Advance("g1")
	require.True(t, ok)

	_, ok = m.Advance("g1")
	require.False(t, ok)

	st := m.Status("g1")
	require.Nil(t, st.Current)

	var sawFinishAlice bool
	for _, c := range hooks.calls {
		if c.kind == "finished" && c.user == "alice" {
			sawFinishAlice = true
		}
	}
	require.True(t, sawFinishAlice)
}

func TestSkipCurrentFinishesButDoesNotAdvance(t *testing.T) {
	m, hooks := newTestManager(t)
	_, err := m.Enqueue("g1", entryFor("g1", "alice", "a"))
	require.NoError(t, err)
	_, err = m.Enqueue("g1", entryFor("g1", "bob", "b"))
	require.NoError(t, err)
	_, _ = m.Advance("g1")

	m.SkipCurrent("g1")

	st := m.Status("g1")
	require.Nil(t, st.Current, "skip must not auto-advance")
	require.Equal(t, 1, st.PendingLen)

	var sawFinishAlice bool
	for _, c := range hooks.calls {
		if c.kind == "finished" && c.user == "alice" && c.was {
			sawFinishAlice = true
		}
	}
	require.True(t, sawFinishAlice)

	next, ok := m.Advance("g1")
	require.True(t, ok)
	require.Equal(t, "b", next.Descriptor.Title)
}

func TestRemoveAtOutOfRangeErrors(t *testing.T) {
	m, _ := newTestManager(t)
	_, err := m.Enqueue("g1", entryFor("g1", "alice", "a"))
	require.NoError(t, err)

	require.Error(t, m.RemoveAt("g1", 5))
	require.Error(t, m.RemoveAt("g1", 0))
	require.NoError(t, m.RemoveAt("g1", 1))
	require.Equal(t, 0, m.Status("g1").PendingLen)
}

func TestClearDropsPendingKeepsCurrent(t *testing.T) {
	m, _ := newTestManager(t)
	_, err := m.Enqueue("g1", entryFor("g1", "alice", "a"))
	require.NoError(t, err)
	_, _ = m.Advance("g1")
	_, err = m.Enqueue("g1", entryFor("g1", "bob", "b"))
	require.NoError(t, err)

	m.Clear("g1")

	st := m.Status("g1")
	require.Equal(t, 0, st.PendingLen)
	require.NotNil(t, st.Current)
}

func TestStopDropsEverything(t *testing.T) {
	m, _ := newTestManager(t)
	_, err := m.Enqueue("g1", entryFor("g1", "alice", "a"))
	require.NoError(t, err)
	_, _ = m.Advance("g1")
	_, err = m.Enqueue("g1", entryFor("g1", "bob", "b"))
	require.NoError(t, err)

	m.Stop("g1")

	st := m.Status("g1")
	require.Equal(t, 0, st.PendingLen)
	require.Nil(t, st.Current)
}

func TestEnqueueRejectsAtMaxQueueLength(t *testing.T) {
	store, err := persistence.NewFileStore(t.TempDir())
	require.NoError(t, err)
	m := New(store, nil, 1)

	_, err = m.Enqueue("g1", entryFor("g1", "alice", "a"))
	require.NoError(t, err)

	_, err = m.Enqueue("g1", entryFor("g1", "bob", "b"))
	require.Error(t, err)
}

func TestRestoreRehydratesStateAndReemitsHooks(t *testing.T) {
	m, hooks := newTestManager(t)

	snap := persistence.Snapshot{
		Schema: persistence.CurrentSchema,
		Current: &persistence.EntryRecord{
			Title: "now playing", DurationMS: 500, CanonicalURL: "https://example.com/np",
			SourceTag: "generic", RequesterID: "alice", RequesterDisplay: "alice",
		},
		Pending: []*persistence.EntryRecord{
			{Title: "next", DurationMS: 500, CanonicalURL: "https://example.com/next", SourceTag: "generic", RequesterID: "bob", RequesterDisplay: "bob"},
		},
	}

	require.NoError(t, m.Restore("g1", snap))

	st := m.Status("g1")
	require.NotNil(t, st.Current)
	require.Equal(t, "now playing", st.Current.Descriptor.Title)
	require.Equal(t, 1, st.PendingLen)

	var sawEnqueuedBob, sawStartAlice bool
	for _, c := range hooks.calls {
		if c.kind == "enqueued" && c.user == "bob" {
			sawEnqueuedBob = true
		}
		if c.kind == "start" && c.user == "alice" {
			sawStartAlice = true
		}
	}
	require.True(t, sawEnqueuedBob)
	require.True(t, sawStartAlice)
}

func TestRestoreRejectsUnknownSchema(t *testing.T) {
	m, _ := newTestManager(t)
	err := m.Restore("g1", persistence.Snapshot{Schema: 999})
	require.Error(t, err)
}

func TestStatusNextReflectsPendingHeadWithoutConsuming(t *testing.T) {
	m, _ := newTestManager(t)
	_, err := m.Enqueue("g1", entryFor("g1", "alice", "a"))
	require.NoError(t, err)
	_, err = m.Enqueue("g1", entryFor("g1", "bob", "b"))
	require.NoError(t, err)

	st := m.Status("g1")
	require.NotNil(t, st.Next)
	require.Equal(t, "a", st.Next.Descriptor.Title)
	require.Equal(t, 2, st.PendingLen)
}
