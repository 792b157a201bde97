// Package queue implements the authoritative per-guild queue state machine.
// Every state-changing operation is serialized behind a per-guild lock,
// increments that guild's revision counter, and writes a persisted
// snapshot, with two exceptions: Restore, which loads state from a
// snapshot, writes none; and SetSuspended only flips an in-memory flag,
// without advancing the revision or writing a snapshot. Peek and consume are deliberately distinct operations —
// PeekNext never mutates state or advances the revision; only the
// Playback Pump calls Advance, and only after the previous track's stream
// has ended. Any other caller that needs to inspect what plays next
// (status views, "up next" notifications) MUST use PeekNext.
package queue

import (
	"sync"

	"github.com/sonanterra/queueengine/internal/errkind"
	"github.com/sonanterra/queueengine/internal/identity"
	"github.com/sonanterra/queueengine/internal/log"
	"github.com/sonanterra/queueengine/internal/persistence"
	"github.com/sonanterra/queueengine/internal/track"
)

// Hooks receives the three lifecycle events the Queue Manager emits as the
// sole mutator of queue state. Implemented by *fairness.Tracker; kept as a
// local interface so this package does not import fairness and create a
// cycle.
type Hooks interface {
	OnEnqueued(e track.Entry, key track.Key)
	OnStartPlay(e track.Entry, key track.Key)
	OnFinished(e track.Entry, key track.Key, wasCurrent bool)
}

// Status is the immutable view returned by Status.
type Status struct {
	Revision         uint64
	PendingLen       int
	TotalDurationMS  int64
	Current          *track.Entry
	Next             *track.Entry
	PausedSuspended  bool
}

type entryWithKey struct {
	entry track.Entry
	key   track.Key
}

type guildQueue struct {
	mu              sync.Mutex
	pending         []entryWithKey
	current         *entryWithKey
	revision        uint64
	pausedSuspended bool
}

// Manager owns every guild's queue state and drives persistence + tracker
// notification on every mutation.
type Manager struct {
	store       persistence.Store
	hooks       Hooks
	maxQueueLen int

	mapMu  sync.Mutex
	guilds map[string]*guildQueue
}

// New creates a Manager. maxQueueLen <= 0 means unbounded.
func New(store persistence.Store, hooks Hooks, maxQueueLen int) *Manager {
	return &Manager{store: store, hooks: hooks, maxQueueLen: maxQueueLen, guilds: make(map[string]*guildQueue)}
}

func (m *Manager) guild(guildID string) *guildQueue {
	m.mapMu.Lock()
	defer m.mapMu.Unlock()
	g, ok := m.guilds[guildID]
	if !ok {
		g = &guildQueue{}
		m.guilds[guildID] = g
	}
	return g
}

func (g *guildQueue) snapshotLocked(guildID string) persistence.Snapshot {
	snap := persistence.Snapshot{Schema: persistence.CurrentSchema, GuildID: guildID}
	if g.current != nil {
		snap.Current = persistence.ToEntryRecord(g.current.entry)
	}
	snap.Pending = make([]*persistence.EntryRecord, len(g.pending))
	for i, ek := range g.pending {
		snap.Pending[i] = persistence.ToEntryRecord(ek.entry)
	}
	return snap
}

// Enqueue appends entry to guildID's pending list and returns its 1-based
// position.
func (m *Manager) Enqueue(guildID string, e track.Entry) (int, error) {
	g := m.guild(guildID)

	g.mu.Lock()
	if m.maxQueueLen > 0 && len(g.pending) >= m.maxQueueLen {
		g.mu.Unlock()
		return 0, errkind.New(errkind.QueueFull, "guild queue is at max_queue_length")
	}

	key := identity.KeyOf(e.Descriptor)
	g.pending = append(g.pending, entryWithKey{entry: e, key: key})
	g.revision++
	position := len(g.pending)
	snap := g.snapshotLocked(guildID)
	g.mu.Unlock()

	if m.hooks != nil {
		m.hooks.OnEnqueued(e, key)
	}
	if err := m.store.Save(guildID, snap); err != nil {
		logger := log.WithComponent("queue")
		logger.Error().Err(err).Str(log.FieldGuildID, guildID).Msg("snapshot save failed after enqueue")
	}

	return position, nil
}

// PeekNext returns the head of pending without mutating state. It is the
// only operation callers other than the pump may use to inspect what plays
// next.
func (m *Manager) PeekNext(guildID string) (track.Entry, bool) {
	g := m.guild(guildID)
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.pending) == 0 {
		return track.Entry{}, false
	}
	return g.pending[0].entry, true
}

// Advance moves the head of pending into current, finishing whatever was
// previously current. Only the Playback Pump may call this.
func (m *Manager) Advance(guildID string) (track.Entry, bool) {
	g := m.guild(guildID)

	g.mu.Lock()
	var finished *entryWithKey
	if g.current != nil {
		finished = g.current
		g.current = nil
	}

	if len(g.pending) == 0 {
		g.revision++
		snap := g.snapshotLocked(guildID)
		g.mu.Unlock()

		if finished != nil && m.hooks != nil {
			m.hooks.OnFinished(finished.entry, finished.key, true)
		}
		if err := m.store.Save(guildID, snap); err != nil {
			logger := log.WithComponent("queue")
			logger.Error().Err(err).Str(log.FieldGuildID, guildID).Msg("snapshot save failed after advance (empty)")
		}
		return track.Entry{}, false
	}

	next := g.pending[0]
	g.pending = g.pending[1:]
	g.current = &next
	g.revision++
	snap := g.snapshotLocked(guildID)
	g.mu.Unlock()

	if finished != nil && m.hooks != nil {
		m.hooks.OnFinished(finished.entry, finished.key, true)
	}
	if m.hooks != nil {
		m.hooks.OnStartPlay(next.entry, next.key)
	}
	if err := m.store.Save(guildID, snap); err != nil {
		logger := log.WithComponent("queue")
		logger.Error().Err(err).Str(log.FieldGuildID, guildID).Msg("snapshot save failed after advance")
	}

	return next.entry, true
}

// SkipCurrent discards current, if any. The caller (the pump) subsequently
// calls Advance to start the next track; this is a no-op if there is no
// current.
func (m *Manager) SkipCurrent(guildID string) {
	g := m.guild(guildID)

	g.mu.Lock()
	if g.current == nil {
		g.mu.Unlock()
		return
	}
	skipped := g.current
	g.current = nil
	g.revision++
	snap := g.snapshotLocked(guildID)
	g.mu.Unlock()

	if m.hooks != nil {
		m.hooks.OnFinished(skipped.entry, skipped.key, true)
	}
	if err := m.store.Save(guildID, snap); err != nil {
		logger := log.WithComponent("queue")
		logger.Error().Err(err).Str(log.FieldGuildID, guildID).Msg("snapshot save failed after skip")
	}
}

// RemoveAt removes the 1-based position pos from pending.
func (m *Manager) RemoveAt(guildID string, pos int) error {
	g := m.guild(guildID)

	g.mu.Lock()
	idx := pos - 1
	if idx < 0 || idx >= len(g.pending) {
		g.mu.Unlock()
		return errkind.New(errkind.OutOfRange, "position out of range")
	}
	removed := g.pending[idx]
	g.pending = append(g.pending[:idx], g.pending[idx+1:]...)
	g.revision++
	snap := g.snapshotLocked(guildID)
	g.mu.Unlock()

	if m.hooks != nil {
		m.hooks.OnFinished(removed.entry, removed.key, false)
	}
	if err := m.store.Save(guildID, snap); err != nil {
		logger := log.WithComponent("queue")
		logger.Error().Err(err).Str(log.FieldGuildID, guildID).Msg("snapshot save failed after remove_at")
	}
	return nil
}

// Clear drops all pending entries, keeping current untouched.
func (m *Manager) Clear(guildID string) {
	g := m.guild(guildID)

	g.mu.Lock()
	dropped := g.pending
	g.pending = nil
	g.revision++
	snap := g.snapshotLocked(guildID)
	g.mu.Unlock()

	if m.hooks != nil {
		for _, ek := range dropped {
			m.hooks.OnFinished(ek.entry, ek.key, false)
		}
	}
	if err := m.store.Save(guildID, snap); err != nil {
		logger := log.WithComponent("queue")
		logger.Error().Err(err).Str(log.FieldGuildID, guildID).Msg("snapshot save failed after clear")
	}
}

// Stop drops current and all pending entries, writing an empty snapshot.
func (m *Manager) Stop(guildID string) {
	g := m.guild(guildID)

	g.mu.Lock()
	current := g.current
	dropped := g.pending
	g.current = nil
	g.pending = nil
	g.revision++
	snap := g.snapshotLocked(guildID)
	g.mu.Unlock()

	if m.hooks != nil {
		if current != nil {
			m.hooks.OnFinished(current.entry, current.key, true)
		}
		for _, ek := range dropped {
			m.hooks.OnFinished(ek.entry, ek.key, false)
		}
	}
	if err := m.store.Save(guildID, snap); err != nil {
		logger := log.WithComponent("queue")
		logger.Error().Err(err).Str(log.FieldGuildID, guildID).Msg("snapshot save failed after stop")
	}
}

// Restore hydrates guildID's in-memory state from a persisted snapshot,
// re-emitting OnEnqueued/OnStartPlay for every restored entry so the
// fairness tracker's state matches what C5 now holds.
func (m *Manager) Restore(guildID string, snap persistence.Snapshot) error {
	if snap.Schema != persistence.CurrentSchema {
		return errkind.New(errkind.SchemaMismatch, "snapshot schema does not match current schema")
	}

	g := m.guild(guildID)

	g.mu.Lock()
	pending := make([]entryWithKey, 0, len(snap.Pending))
	for _, rec := range snap.Pending {
		e := rec.ToEntry(guildID)
		pending = append(pending, entryWithKey{entry: e, key: identity.KeyOf(e.Descriptor)})
	}
	g.pending = pending

	var current *entryWithKey
	if snap.Current != nil {
		e := snap.Current.ToEntry(guildID)
		current = &entryWithKey{entry: e, key: identity.KeyOf(e.Descriptor)}
	}
	g.current = current
	g.revision++
	g.mu.Unlock()

	if m.hooks != nil {
		for _, ek := range pending {
			m.hooks.OnEnqueued(ek.entry, ek.key)
		}
		if current != nil {
			m.hooks.OnEnqueued(current.entry, current.key)
			m.hooks.OnStartPlay(current.entry, current.key)
		}
	}
	return nil
}

// Status returns an immutable snapshot view of guildID's queue.
func (m *Manager) Status(guildID string) Status {
	g := m.guild(guildID)
	g.mu.Lock()
	defer g.mu.Unlock()

	st := Status{Revision: g.revision, PendingLen: len(g.pending), PausedSuspended: g.pausedSuspended}
	for _, ek := range g.pending {
		st.TotalDurationMS += ek.entry.Descriptor.DurationMS
	}
	if g.current != nil {
		e := g.current.entry
		st.Current = &e
		st.TotalDurationMS += e.Descriptor.DurationMS
	}
	if len(g.pending) > 0 {
		e := g.pending[0].entry
		st.Next = &e
	}
	return st
}

// PendingForUser returns userID's own pending entries in guildID, in FIFO
// order, plus whether userID's entry is the one currently playing.
func (m *Manager) PendingForUser(guildID, userID string) (pending []track.Entry, currentlyPlaying bool) {
	g := m.guild(guildID)
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, ek := range g.pending {
		if ek.entry.RequesterID == userID {
			pending = append(pending, ek.entry)
		}
	}
	if g.current != nil && g.current.entry.RequesterID == userID {
		currentlyPlaying = true
	}
	return pending, currentlyPlaying
}

// SetSuspended sets the paused_suspended flag.
func (m *Manager) SetSuspended(guildID string, suspended bool) {
	g := m.guild(guildID)
	g.mu.Lock()
	g.pausedSuspended = suspended
	g.mu.Unlock()
}
