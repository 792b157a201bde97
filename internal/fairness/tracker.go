// Package fairness implements the per-guild admission policy and the
// duplicate/user index that backs it. The Tracker never initiates removals —
// it is a passive witness of the Queue Manager's decisions, updated solely
// through the three lifecycle hooks OnEnqueued/OnStartPlay/OnFinished.
package fairness

import (
	"sync"

	"github.com/sonanterra/queueengine/internal/errkind"
	"github.com/sonanterra/queueengine/internal/track"
)

// Mode controls whether a user may submit while their own track is
// currently playing.
type Mode string

const (
	ModeStrict  Mode = "strict"
	ModeLenient Mode = "lenient"
)

// Config holds the tunables for admission rules.
type Config struct {
	MaxPendingPerUser int
	DupThreshold      int // 0 disables the short-queue exemption
	Mode              Mode
}

// DefaultConfig returns the documented default admission policy.
func DefaultConfig() Config {
	return Config{MaxPendingPerUser: 1, DupThreshold: 5, Mode: ModeStrict}
}

// guildState is the per-guild index: a pair of maps that are exact inverses
// of each other, plus the currently-playing requester slot.
type guildState struct {
	userKeys          map[string]map[track.Key]struct{} // user_id -> keys
	keyUsers          map[track.Key]map[string]struct{} // key -> user_ids
	pendingCountByUsr map[string]int
	currentlyPlaying  string // requester user_id, "" if none
}

func newGuildState() *guildState {
	return &guildState{
		userKeys:          make(map[string]map[track.Key]struct{}),
		keyUsers:          make(map[track.Key]map[string]struct{}),
		pendingCountByUsr: make(map[string]int),
	}
}

// Tracker is the process-wide, per-guild fairness and duplicate index.
type Tracker struct {
	cfg Config

	mu     sync.Mutex
	guilds map[string]*guildState
}

// New creates a Tracker with the given admission configuration.
func New(cfg Config) *Tracker {
	return &Tracker{cfg: cfg, guilds: make(map[string]*guildState)}
}

func (t *Tracker) guild(guildID string) *guildState {
	g, ok := t.guilds[guildID]
	if !ok {
		g = newGuildState()
		t.guilds[guildID] = g
	}
	return g
}

// CanAdmit applies the four admission rules in the literal order they are
// documented. A non-exempt duplicate (rule 1, when rule 4's short-queue
// exemption does not apply) is rejected immediately, taking priority over
// rules 2-3. An exempted duplicate is not a final verdict by itself — rule 4
// applies only to rule 1 and never to rules 2-3 — so it falls through to the
// pending cap (rule 2) and the currently-playing check (rule 3), admitting
// only once those also pass.
func (t *Tracker) CanAdmit(guildID, userID string, pendingLen int, d track.Descriptor, key track.Key) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	g := t.guild(guildID)

	_, hasDup := g.userKeys[userID][key]
	exempted := hasDup && t.cfg.DupThreshold > 0 && pendingLen < t.cfg.DupThreshold

	// Rule 1: exact duplicate. A non-exempt duplicate is rejected here,
	// before rules 2-3 are even evaluated.
	if hasDup && !exempted {
		return errkind.New(errkind.Duplicate, "user already has this track queued")
	}

	// Rule 2: per-user pending cap.
	maxPending := t.cfg.MaxPendingPerUser
	if maxPending <= 0 {
		maxPending = 1
	}
	if g.pendingCountByUsr[userID] >= maxPending {
		return errkind.New(errkind.FairnessPending, "user already at pending cap for this guild")
	}

	// Rule 3: currently playing, strict mode only.
	if t.cfg.Mode == ModeStrict && g.currentlyPlaying == userID {
		return errkind.New(errkind.FairnessPlaying, "user's track is currently playing")
	}

	// Rule 4: an exempted duplicate that passed rules 2-3 independently
	// admits here.
	return nil
}

// OnEnqueued records that entry has been admitted into pending.
func (t *Tracker) OnEnqueued(e track.Entry, key track.Key) {
	t.mu.Lock()
	defer t.mu.Unlock()

	g := t.guild(e.GuildID)
	t.addKey(g, e.RequesterID, key)
	g.pendingCountByUsr[e.RequesterID]++
}

// OnStartPlay moves entry's requester into the currently-playing slot and
// out of the pending count.
func (t *Tracker) OnStartPlay(e track.Entry, key track.Key) {
	t.mu.Lock()
	defer t.mu.Unlock()

	g := t.guild(e.GuildID)
	if g.pendingCountByUsr[e.RequesterID] > 0 {
		g.pendingCountByUsr[e.RequesterID]--
	}
	g.currentlyPlaying = e.RequesterID
}

// OnFinished clears entry's key from the index and, if it was the currently
// playing entry, clears that slot too.
func (t *Tracker) OnFinished(e track.Entry, key track.Key, wasCurrent bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	g := t.guild(e.GuildID)
	t.removeKey(g, e.RequesterID, key)
	if !wasCurrent && g.pendingCountByUsr[e.RequesterID] > 0 {
		g.pendingCountByUsr[e.RequesterID]--
	}
	if wasCurrent && g.currentlyPlaying == e.RequesterID {
		g.currentlyPlaying = ""
	}
}

func (t *Tracker) addKey(g *guildState, userID string, key track.Key) {
	if g.userKeys[userID] == nil {
		g.userKeys[userID] = make(map[track.Key]struct{})
	}
	g.userKeys[userID][key] = struct{}{}

	if g.keyUsers[key] == nil {
		g.keyUsers[key] = make(map[string]struct{})
	}
	g.keyUsers[key][userID] = struct{}{}
}

func (t *Tracker) removeKey(g *guildState, userID string, key track.Key) {
	if users, ok := g.userKeys[userID]; ok {
		delete(users, key)
		if len(users) == 0 {
			delete(g.userKeys, userID)
		}
	}
	if keys, ok := g.keyUsers[key]; ok {
		delete(keys, userID)
		if len(keys) == 0 {
			delete(g.keyUsers, key)
		}
	}
}

// CurrentlyPlaying returns the requester_id currently occupying the
// currently-playing slot for guildID, or "" if none.
func (t *Tracker) CurrentlyPlaying(guildID string) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.guild(guildID).currentlyPlaying
}

// KeyCount returns the number of distinct keys tracked for guildID, which
// should equal the guild's pending length plus one if a track is current.
func (t *Tracker) KeyCount(guildID string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.guild(guildID).keyUsers)
}

// CheckInverseInvariant verifies that the user->keys map and key->users map
// are exact inverses. Exported for use by property tests outside this
// package.
func (t *Tracker) CheckInverseInvariant(guildID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	g := t.guild(guildID)
	for user, keys := range g.userKeys {
		for key := range keys {
			users, ok := g.keyUsers[key]
			if !ok {
				return false
			}
			if _, ok := users[user]; !ok {
				return false
			}
		}
	}
	for key, users := range g.keyUsers {
		for user := range users {
			keys, ok := g.userKeys[user]
			if !ok {
				return false
			}
			if _, ok := keys[key]; !ok {
				return false
			}
		}
	}
	return true
}
