package provider

import (
	"context"
	"net/http"
	"net/url"
	"regexp"
	"time"

	"github.com/sonanterra/queueengine/internal/track"
)

var youtubeURLRE = regexp.MustCompile(`(?i)^https?://(www\.)?(youtube\.com/watch\?.*\bv=[\w-]+|youtu\.be/[\w-]+)`)

// YouTube recognizes youtube.com/watch and youtu.be links and extracts
// title/uploader/thumbnail via YouTube's public, keyless oEmbed endpoint.
// Resolving a playable stream URL needs an external extractor, so
// ResolvePlayable delegates to an injected Resolver (UnsupportedResolver by
// default).
type YouTube struct {
	client *http.Client
	Resolver
}

// NewYouTube creates a YouTube provider. A nil resolver defaults to
// UnsupportedResolver.
func NewYouTube(resolver Resolver) *YouTube {
	if resolver == nil {
		resolver = UnsupportedResolver{SourceName: "youtube"}
	}
	return &YouTube{client: newHardenedClient(8 * time.Second), Resolver: resolver}
}

func (y *YouTube) Name() string               { return "youtube" }
func (y *YouTube) Source() track.SourceTag     { return track.SourceYouTube }
func (y *YouTube) Recognize(rawURL string) bool { return youtubeURLRE.MatchString(rawURL) }

func (y *YouTube) Extract(ctx context.Context, rawURL string) (track.Descriptor, error) {
	endpoint := "https://www.youtube.com/oembed?format=json&url=" + url.QueryEscape(rawURL)
	resp, err := fetchOEmbed(ctx, y.client, endpoint)
	if err != nil {
		return track.Descriptor{}, err
	}
	return track.Descriptor{
		Title:        resp.Title,
		CanonicalURL: rawURL,
		Uploader:     resp.AuthorName,
		ThumbnailURL: resp.ThumbnailURL,
		Source:       track.SourceYouTube,
	}, nil
}
