package provider

import (
	"context"
	"regexp"

	"github.com/sonanterra/queueengine/internal/track"
)

var bilibiliURLRE = regexp.MustCompile(`(?i)^https?://(www\.)?bilibili\.com/video/(BV[\w]+|av\d+)`)

// Bilibili recognizes bilibili.com/video/BV... and .../av... links. Bilibili
// has no public, keyless metadata endpoint, so Extract returns a bare
// descriptor carrying only the canonical URL and source tag (no title,
// duration or thumbnail). The injected Resolver is used only for
// playable-URL resolution; it does not supply metadata.
type Bilibili struct {
	Resolver
}

func NewBilibili(resolver Resolver) *Bilibili {
	if resolver == nil {
		resolver = UnsupportedResolver{SourceName: "bilibili"}
	}
	return &Bilibili{Resolver: resolver}
}

func (b *Bilibili) Name() string               { return "bilibili" }
func (b *Bilibili) Source() track.SourceTag     { return track.SourceBilibili }
func (b *Bilibili) Recognize(rawURL string) bool { return bilibiliURLRE.MatchString(rawURL) }

func (b *Bilibili) Extract(_ context.Context, rawURL string) (track.Descriptor, error) {
	return track.Descriptor{CanonicalURL: rawURL, Source: track.SourceBilibili}, nil
}
