// Package engine implements the Engine Facade: the single entry point that
// wires the Provider Registry, the fairness Tracker, the Queue Manager, the
// Voice Session, and the Playback Pump into the five operations the rest of
// the system calls (submit, skip, stop, status, my_status) plus the
// process-lifecycle operations (start, shutdown).
package engine

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sonanterra/queueengine/internal/errkind"
	"github.com/sonanterra/queueengine/internal/fairness"
	"github.com/sonanterra/queueengine/internal/identity"
	"github.com/sonanterra/queueengine/internal/log"
	"github.com/sonanterra/queueengine/internal/metrics"
	"github.com/sonanterra/queueengine/internal/persistence"
	"github.com/sonanterra/queueengine/internal/provider"
	"github.com/sonanterra/queueengine/internal/pump"
	"github.com/sonanterra/queueengine/internal/queue"
	"github.com/sonanterra/queueengine/internal/track"
	"github.com/sonanterra/queueengine/internal/voice"
)

// MyStatus is the per-requester view returned by MyStatus: their own
// pending entries in FIFO order plus whether one of them is currently
// playing.
type MyStatus struct {
	Pending          []track.Entry
	CurrentlyPlaying bool
}

// Engine is the facade consumed by the chat-platform command layer. It is
// safe for concurrent use; all per-guild synchronization happens inside the
// components it wires together.
type Engine struct {
	registry           *provider.Registry
	tracker            *fairness.Tracker
	queue              *queue.Manager
	voice              voice.Session
	pump               *pump.Manager
	store              persistence.Store
	maxTrackDurationMS int64
}

// New wires the full stack. idleDetachAfter is forwarded to the pump
// manager; callers typically derive it from config.AppConfig.
// maxTrackDurationSeconds <= 0 means unbounded, matching config.Validate's
// treatment of the value.
func New(store persistence.Store, registry *provider.Registry, fairnessCfg fairness.Config, maxQueueLen int, session voice.Session, idleDetachAfter time.Duration, maxTrackDurationSeconds int) *Engine {
	tracker := fairness.New(fairnessCfg)
	q := queue.New(store, tracker, maxQueueLen)
	p := pump.New(q, registry, session, idleDetachAfter)
	return &Engine{
		registry:           registry,
		tracker:            tracker,
		queue:              q,
		voice:              session,
		pump:               p,
		store:              store,
		maxTrackDurationMS: int64(maxTrackDurationSeconds) * 1000,
	}
}

// Start hydrates every persisted guild's in-memory queue state from disk.
// Call once before accepting submissions.
func (e *Engine) Start() error {
	guildIDs, err := e.store.ListGuilds()
	if err != nil {
		return errkind.Wrap(errkind.CorruptSnapshot, "list persisted guilds", err)
	}
	for _, guildID := range guildIDs {
		logger := log.WithGuild(guildID)
		snap, ok, err := e.store.Load(guildID)
		if err != nil {
			logger.Error().Err(err).Msg("failed to load persisted snapshot, starting guild empty")
			continue
		}
		if !ok {
			continue
		}
		if err := e.queue.Restore(guildID, *snap); err != nil {
			logger.Error().Err(err).Msg("failed to restore persisted snapshot, starting guild empty")
			continue
		}
		if st := e.queue.Status(guildID); st.Current != nil || st.PendingLen > 0 {
			e.pump.EnsureRunning(guildID)
		}
	}
	metrics.GuildCount.Set(float64(len(guildIDs)))
	return nil
}

// Shutdown stops every running pump and detaches every guild's voice
// session. Per-guild queue state is already durably persisted as of each
// mutation, so no extra snapshot pass is needed here. Detaches run
// concurrently, bounded by ctx.
func (e *Engine) Shutdown(ctx context.Context) error {
	guildIDs := e.pump.StopAll()

	g, ctx := errgroup.WithContext(ctx)
	for _, guildID := range guildIDs {
		guildID := guildID
		g.Go(func() error {
			if err := e.voice.Detach(guildID); err != nil {
				logger := log.WithGuild(guildID)
				logger.Warn().Err(err).Msg("failed to detach voice session during shutdown")
			}
			return nil
		})
	}
	return g.Wait()
}

// Submit resolves url to a Track Descriptor, applies the fairness/duplicate
// policy, enqueues it, and ensures guildID's pump is running. It returns the
// entry's 1-based queue position.
func (e *Engine) Submit(ctx context.Context, guildID, userID, userDisplay, url string) (int, error) {
	descriptor, err := e.registry.Extract(ctx, url)
	if err != nil {
		e.recordSubmitFailure(err)
		return 0, err
	}

	if e.maxTrackDurationMS > 0 && descriptor.DurationMS > e.maxTrackDurationMS {
		err := errkind.New(errkind.TrackTooLong, "track exceeds configured maximum duration")
		e.recordSubmitFailure(err)
		return 0, err
	}

	key := identity.KeyOf(descriptor)
	status := e.queue.Status(guildID)

	if err := e.tracker.CanAdmit(guildID, userID, status.PendingLen, descriptor, key); err != nil {
		e.recordSubmitFailure(err)
		return 0, err
	}

	entry := track.Entry{
		Descriptor:       descriptor,
		RequesterID:      userID,
		RequesterDisplay: userDisplay,
		GuildID:          guildID,
	}

	position, err := e.queue.Enqueue(guildID, entry)
	if err != nil {
		e.recordSubmitFailure(err)
		return 0, err
	}

	metrics.RecordSubmit("admitted", "")
	metrics.RecordQueueLength(e.queue.Status(guildID).PendingLen)
	e.pump.EnsureRunning(guildID)
	return position, nil
}

func (e *Engine) recordSubmitFailure(err error) {
	kind, ok := errkind.Of(err)
	if !ok {
		metrics.RecordSubmit("rejected", "unknown")
		return
	}
	metrics.RecordSubmit("rejected", string(kind))
}

// Skip interrupts the currently playing track, if any, by stopping its
// voice stream. The pump then finishes the entry with its own deferred
// queue.SkipCurrent and advances to the next track; Skip never calls
// queue.SkipCurrent itself, since doing
// so here and again from the pump would be redundant (though harmless,
// since SkipCurrent is idempotent).
func (e *Engine) Skip(guildID string) {
	e.voice.Stop(guildID)
}

// Stop clears guildID's entire queue (current and pending) and interrupts
// any active stream.
func (e *Engine) Stop(guildID string) {
	e.queue.Stop(guildID)
	e.voice.Stop(guildID)
	e.pump.Stop(guildID)
}

// Status returns guildID's current queue view.
func (e *Engine) Status(guildID string) queue.Status {
	return e.queue.Status(guildID)
}

// MyStatus returns userID's own pending entries in guildID, in FIFO order,
// plus whether one of them is the currently playing entry.
func (e *Engine) MyStatus(guildID, userID string) MyStatus {
	pending, currentlyPlaying := e.queue.PendingForUser(guildID, userID)
	return MyStatus{Pending: pending, CurrentlyPlaying: currentlyPlaying}
}
