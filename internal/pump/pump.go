// Package pump implements the Playback Pump: the single-flight, per-guild
// loop that advances a guild's queue, resolves the head entry to a playable
// URL, and drives the voice session until the stream ends, looping back to
// the next entry. A guild has at most one pump goroutine running at any
// time; EnsureRunning is the only entry point that starts one, and it is
// safe to call repeatedly and concurrently.
package pump

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/sonanterra/queueengine/internal/errkind"
	"github.com/sonanterra/queueengine/internal/log"
	"github.com/sonanterra/queueengine/internal/metrics"
	"github.com/sonanterra/queueengine/internal/provider"
	"github.com/sonanterra/queueengine/internal/queue"
	"github.com/sonanterra/queueengine/internal/track"
	"github.com/sonanterra/queueengine/internal/voice"
)

// maxResolveAttempts bounds how many times the pump will retry resolving and
// playing a single entry when the voice session reports the playable URL
// expired mid-stream. Any other transport failure is never retried; the
// entry is finished and the loop moves on.
const maxResolveAttempts = 2

// defaultIdleDetachAfter is how long the pump waits on an empty queue before
// detaching the voice session and exiting the loop, if no idle duration is
// supplied to New.
const defaultIdleDetachAfter = 5 * time.Minute

type guildPump struct {
	cancel context.CancelFunc
	wake   chan struct{}
}

// Manager owns the pump goroutine for every active guild.
type Manager struct {
	queue    *queue.Manager
	registry *provider.Registry
	voice    voice.Session

	idleDetachAfter time.Duration

	sf singleflight.Group

	mu     sync.Mutex
	guilds map[string]*guildPump
}

// New creates a Manager. idleDetachAfter <= 0 uses the default of 5 minutes.
func New(q *queue.Manager, registry *provider.Registry, session voice.Session, idleDetachAfter time.Duration) *Manager {
	if idleDetachAfter <= 0 {
		idleDetachAfter = defaultIdleDetachAfter
	}
	return &Manager{
		queue:           q,
		registry:        registry,
		voice:           session,
		idleDetachAfter: idleDetachAfter,
		guilds:          make(map[string]*guildPump),
	}
}

// EnsureRunning starts guildID's pump loop if it is not already running.
// Concurrent calls for the same guild collapse into a single start via
// singleflight, so callers never need to coordinate among themselves.
func (m *Manager) EnsureRunning(guildID string) {
	m.mu.Lock()
	if _, ok := m.guilds[guildID]; ok {
		m.mu.Unlock()
		m.wake(guildID)
		return
	}
	m.mu.Unlock()

	_, _, _ = m.sf.Do(guildID, func() (interface{}, error) {
		m.mu.Lock()
		if _, ok := m.guilds[guildID]; ok {
			m.mu.Unlock()
			return nil, nil
		}
		ctx, cancel := context.WithCancel(context.Background())
		gp := &guildPump{cancel: cancel, wake: make(chan struct{}, 1)}
		m.guilds[guildID] = gp
		m.mu.Unlock()

		go m.runLoop(ctx, guildID, gp)
		return nil, nil
	})
}

// wake nudges an idle-waiting pump for guildID so it re-checks the queue
// immediately instead of sitting out the rest of its idle timeout. It is a
// no-op if no pump is running for guildID.
func (m *Manager) wake(guildID string) {
	m.mu.Lock()
	gp, ok := m.guilds[guildID]
	m.mu.Unlock()
	if !ok {
		return
	}
	select {
	case gp.wake <- struct{}{}:
	default:
	}
}

// Stop cancels guildID's pump loop, if running, and removes it from the
// active set. The loop exits asynchronously once it sees the cancellation;
// it does not detach the voice session on that path (runLoop detaches only
// on its idle timeout).
func (m *Manager) Stop(guildID string) {
	m.mu.Lock()
	gp, ok := m.guilds[guildID]
	if ok {
		delete(m.guilds, guildID)
	}
	m.mu.Unlock()
	if ok {
		gp.cancel()
	}
}

// StopAll cancels every running pump loop and returns the guild ids that
// were running, for a caller (the Engine Facade's Shutdown) that needs to
// detach voice sessions for each of them afterward.
func (m *Manager) StopAll() []string {
	m.mu.Lock()
	guildIDs := make([]string, 0, len(m.guilds))
	cancels := make([]context.CancelFunc, 0, len(m.guilds))
	for guildID, gp := range m.guilds {
		guildIDs = append(guildIDs, guildID)
		cancels = append(cancels, gp.cancel)
	}
	m.guilds = make(map[string]*guildPump)
	m.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
	return guildIDs
}

func (m *Manager) forget(guildID string, gp *guildPump) {
	m.mu.Lock()
	if current, ok := m.guilds[guildID]; ok && current == gp {
		delete(m.guilds, guildID)
	}
	m.mu.Unlock()
}

func (m *Manager) runLoop(ctx context.Context, guildID string, gp *guildPump) {
	logger := log.WithGuild(guildID)
	defer m.forget(guildID, gp)

	for {
		next, ok := m.queue.PeekNext(guildID)
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-gp.wake:
				continue
			case <-time.After(m.idleDetachAfter):
				logger.Debug().Msg("pump idle timeout, detaching")
				_ = m.voice.Detach(guildID)
				return
			}
		}

		entry, advanced := m.queue.Advance(guildID)
		if !advanced {
			// Another goroutine drained pending between PeekNext and
			// Advance; loop back and re-check.
			continue
		}

		m.play(ctx, guildID, entry)

		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

// play resolves entry to a playable URL and streams it to completion,
// retrying exactly once on an expired playable URL. It always finishes the
// entry exactly once via queue.SkipCurrent, which is a safe no-op if
// engine.Stop already finished it first. engine.Skip only interrupts the
// voice stream, so a skipped entry is finished by this deferred call.
func (m *Manager) play(ctx context.Context, guildID string, entry track.Entry) {
	logger := log.WithGuild(guildID).With().Str(log.FieldTrackTitle, entry.Descriptor.Title).Logger()
	defer m.queue.SkipCurrent(guildID)

	finishReason := "unreachable"
	defer func() { metrics.RecordPumpTrack(finishReason) }()

	if !m.voice.IsReachable(guildID, entry.RequesterID) {
		logger.Info().Str(log.FieldUserID, entry.RequesterID).Msg("requester unreachable, skipping track")
		return
	}

	for attempt := 1; attempt <= maxResolveAttempts; attempt++ {
		entry.Attempts = attempt

		select {
		case <-ctx.Done():
			finishReason = string(voice.ReasonCancelled)
			return
		default:
		}

		playURL, err := m.registry.ResolvePlayable(ctx, entry.Descriptor)
		if err != nil {
			logger.Warn().Err(err).Int("attempt", attempt).Msg("resolve_playable failed")
			kind, ok := errkind.Of(err)
			if ok {
				metrics.RecordExtractFailure(string(entry.Descriptor.Source), string(kind))
			}
			finishReason = "resolve_failed"
			if ok && kind == errkind.Expired && attempt < maxResolveAttempts {
				continue
			}
			return
		}

		reason, streamErr := m.playOnce(ctx, guildID, playURL)
		finishReason = string(reason)
		switch reason {
		case voice.ReasonCompleted:
			return
		case voice.ReasonCancelled:
			return
		case voice.ReasonExpired:
			logger.Info().Int("attempt", attempt).Msg("playable url expired mid-stream")
			if attempt < maxResolveAttempts {
				continue
			}
			return
		case voice.ReasonTransport:
			logger.Warn().Err(streamErr).Msg("voice transport error, not retrying")
			return
		default:
			return
		}
	}
}

// playOnce drives a single Play call to completion and returns its
// classification.
func (m *Manager) playOnce(ctx context.Context, guildID, playURL string) (voice.Reason, error) {
	done := make(chan struct{})
	var reason voice.Reason
	var streamErr error

	err := m.voice.Play(ctx, guildID, playURL, func(r voice.Reason, e error) {
		reason, streamErr = r, e
		close(done)
	})
	if err != nil {
		return voice.ReasonTransport, err
	}

	// Play derives its own cancellable context from ctx, so cancelling ctx
	// (Stop, shutdown) still reaches onDone with ReasonCancelled; waiting on
	// done alone is always correct.
	<-done
	return reason, streamErr
}
