package persistence

import (
	"time"

	"github.com/sonanterra/queueengine/internal/track"
)

func msToTime(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

// CurrentSchema is the schema version this module writes and accepts. Any
// on-disk document carrying a different value is treated as corrupt: the
// identity-key normalization rules are part of this contract, so widening
// them requires bumping CurrentSchema.
const CurrentSchema = 1

// Snapshot is the self-contained, per-guild persisted document.
type Snapshot struct {
	Schema  int             `json:"schema"`
	GuildID string          `json:"guild_id"`
	Current *EntryRecord    `json:"current"`
	Pending []*EntryRecord  `json:"pending"`
}

// EntryRecord is the on-disk representation of a track.Entry.
type EntryRecord struct {
	Title            string `json:"title"`
	DurationMS       int64  `json:"duration_ms"`
	CanonicalURL     string `json:"canonical_url"`
	Uploader         string `json:"uploader,omitempty"`
	SourceTag        string `json:"source_tag"`
	ThumbnailURL     string `json:"thumbnail_url,omitempty"`
	RequesterID      string `json:"requester_id"`
	RequesterDisplay string `json:"requester_display"`
	EnqueuedAtMS     int64  `json:"enqueued_at_ms"`
}

// ToEntryRecord converts an in-memory Entry to its on-disk record.
func ToEntryRecord(e track.Entry) *EntryRecord {
	return &EntryRecord{
		Title:            e.Descriptor.Title,
		DurationMS:       e.Descriptor.DurationMS,
		CanonicalURL:     e.Descriptor.CanonicalURL,
		Uploader:         e.Descriptor.Uploader,
		SourceTag:        string(e.Descriptor.Source),
		ThumbnailURL:     e.Descriptor.ThumbnailURL,
		RequesterID:      e.RequesterID,
		RequesterDisplay: e.RequesterDisplay,
		EnqueuedAtMS:     e.EnqueuedAtWall.UnixMilli(),
	}
}

// ToEntry converts an on-disk record back to an in-memory Entry for the
// given guild. EnqueuedAtMono is left zero — a restored entry has no
// meaningful monotonic timestamp from a prior process.
func (r *EntryRecord) ToEntry(guildID string) track.Entry {
	return track.Entry{
		Descriptor: track.Descriptor{
			Title:        r.Title,
			DurationMS:   r.DurationMS,
			CanonicalURL: r.CanonicalURL,
			Uploader:     r.Uploader,
			ThumbnailURL: r.ThumbnailURL,
			Source:       track.SourceTag(r.SourceTag),
		},
		RequesterID:      r.RequesterID,
		RequesterDisplay: r.RequesterDisplay,
		GuildID:          guildID,
		EnqueuedAtWall:   msToTime(r.EnqueuedAtMS),
	}
}
