// Package voice implements per-guild attach/detach/play against a voice
// transport. It owns no queue state: it only reports stream completion and
// transport errors back to its caller, the Playback Pump. The package is
// process-wide and internally synchronized, guarded by one mutex per guild
// rather than a single global lock, mirroring the per-guild locking used by
// the queue package.
package voice

import (
	"context"
	"sync"

	"github.com/sonanterra/queueengine/internal/errkind"
	"github.com/sonanterra/queueengine/internal/log"
)

// Reason classifies why a Play call's completion callback fired.
type Reason string

const (
	ReasonCompleted Reason = "completed"
	ReasonCancelled Reason = "cancelled"
	ReasonExpired   Reason = "expired"
	ReasonTransport Reason = "transport_error"
)

// OnDone is invoked exactly once per Play call, from a background goroutine,
// when the stream ends for any reason.
type OnDone func(reason Reason, err error)

// Streamer performs the actual media transport for one track. Implementations
// must return promptly when ctx is cancelled. The reference MemorySession
// ships no Streamer of its own: it delegates to the one passed to
// NewMemorySession, and production wiring passes one backed by a voice
// gateway client.
type Streamer interface {
	Stream(ctx context.Context, channelHandle, url string) error
}

// FuncStreamer adapts a plain function to the Streamer interface, the way
// http.HandlerFunc adapts a function to http.Handler. Useful for tests and
// for small production streamers that need no extra state.
type FuncStreamer func(ctx context.Context, channelHandle, url string) error

func (f FuncStreamer) Stream(ctx context.Context, channelHandle, url string) error {
	return f(ctx, channelHandle, url)
}

// Session is the contract consumed by the Playback Pump.
type Session interface {
	Attach(guildID, channelHandle string) error
	Detach(guildID string) error
	Play(ctx context.Context, guildID, url string, onDone OnDone) error
	Stop(guildID string)
	IsAttached(guildID string) bool
	IsReachable(guildID, userID string) bool
}

type guildVoice struct {
	mu            sync.Mutex
	attached      bool
	channelHandle string
	cancel        context.CancelFunc
	playing       bool
	reachable     map[string]bool // user_id -> present in the channel, absent means "assume reachable"
}

// MemorySession is the reference Session implementation: per-guild state
// lives entirely in the process, and the actual streaming work is delegated
// to an injected Streamer.
type MemorySession struct {
	streamer Streamer

	mu     sync.Mutex
	guilds map[string]*guildVoice
}

// NewMemorySession creates a Session backed by streamer.
func NewMemorySession(streamer Streamer) *MemorySession {
	return &MemorySession{streamer: streamer, guilds: make(map[string]*guildVoice)}
}

func (s *MemorySession) guild(guildID string) *guildVoice {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.guilds[guildID]
	if !ok {
		g = &guildVoice{}
		s.guilds[guildID] = g
	}
	return g
}

// Attach marks guildID as connected to channelHandle. Re-attaching to a
// different channel simply overwrites the handle.
func (s *MemorySession) Attach(guildID, channelHandle string) error {
	g := s.guild(guildID)
	g.mu.Lock()
	defer g.mu.Unlock()
	g.attached = true
	g.channelHandle = channelHandle
	return nil
}

// Detach disconnects guildID. It is idempotent and also stops any active
// stream.
func (s *MemorySession) Detach(guildID string) error {
	g := s.guild(guildID)
	g.mu.Lock()
	cancel := g.cancel
	g.attached = false
	g.channelHandle = ""
	g.cancel = nil
	g.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	return nil
}

// IsAttached reports whether guildID currently has a voice transport
// connected.
func (s *MemorySession) IsAttached(guildID string) bool {
	g := s.guild(guildID)
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.attached
}

// SetReachable records whether userID is currently present on guildID's
// voice transport. A production wiring calls this from voice-state-update
// gateway events; tests call it directly.
func (s *MemorySession) SetReachable(guildID, userID string, reachable bool) {
	g := s.guild(guildID)
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.reachable == nil {
		g.reachable = make(map[string]bool)
	}
	g.reachable[userID] = reachable
}

// IsReachable reports whether userID is reachable on guildID's voice
// transport. A user with no roster entry is assumed reachable: this covers
// both a fresh guild that has never received a presence update and a
// requester restored from a snapshot who has not yet re-attached.
func (s *MemorySession) IsReachable(guildID, userID string) bool {
	g := s.guild(guildID)
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.reachable == nil {
		return true
	}
	reachable, ok := g.reachable[userID]
	if !ok {
		return true
	}
	return reachable
}

// Play streams url to guildID's transport, invoking onDone exactly once when
// the stream ends. Play returns immediately; the stream runs on a background
// goroutine. Stop or the caller cancelling ctx interrupts the stream and
// reports ReasonCancelled.
func (s *MemorySession) Play(ctx context.Context, guildID, url string, onDone OnDone) error {
	g := s.guild(guildID)

	g.mu.Lock()
	if !g.attached {
		g.mu.Unlock()
		return errkind.New(errkind.Network, "voice session not attached for guild")
	}
	if g.playing {
		g.mu.Unlock()
		return errkind.New(errkind.TransportError, "a stream is already in flight for this guild")
	}

	streamCtx, cancel := context.WithCancel(ctx)
	g.cancel = cancel
	g.playing = true
	g.mu.Unlock()

	go func() {
		err := s.streamer.Stream(streamCtx, g.channelHandle, url)

		g.mu.Lock()
		g.playing = false
		g.cancel = nil
		g.mu.Unlock()

		reason, reportErr := classify(streamCtx, err)
		if reason == ReasonCancelled {
			log.WithComponent("voice").Debug().Str(log.FieldGuildID, guildID).Msg("stream cancelled")
		}
		onDone(reason, reportErr)
	}()

	return nil
}

// Stop interrupts guildID's active stream, if any. It is a no-op if nothing
// is playing. Stop returns immediately; the interrupted Play's onDone fires
// asynchronously with ReasonCancelled.
func (s *MemorySession) Stop(guildID string) {
	g := s.guild(guildID)
	g.mu.Lock()
	cancel := g.cancel
	g.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func classify(ctx context.Context, err error) (Reason, error) {
	if err == nil {
		if ctx.Err() != nil {
			return ReasonCancelled, errkind.New(errkind.Cancelled, "stream interrupted")
		}
		return ReasonCompleted, nil
	}
	if ctx.Err() != nil {
		return ReasonCancelled, errkind.New(errkind.Cancelled, "stream interrupted")
	}
	if kind, ok := errkind.Of(err); ok && kind == errkind.Expired {
		return ReasonExpired, err
	}
	return ReasonTransport, errkind.Wrap(errkind.TransportError, "stream failed", err)
}
