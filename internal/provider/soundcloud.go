package provider

import (
	"context"
	"net/http"
	"net/url"
	"regexp"
	"time"

	"github.com/sonanterra/queueengine/internal/track"
)

var soundcloudURLRE = regexp.MustCompile(`(?i)^https?://(www\.)?soundcloud\.com/[\w-]+/[\w-]+`)

// SoundCloud recognizes soundcloud.com/<user>/<track> links and extracts
// metadata via SoundCloud's public oEmbed endpoint.
type SoundCloud struct {
	client *http.Client
	Resolver
}

func NewSoundCloud(resolver Resolver) *SoundCloud {
	if resolver == nil {
		resolver = UnsupportedResolver{SourceName: "soundcloud"}
	}
	return &SoundCloud{client: newHardenedClient(8 * time.Second), Resolver: resolver}
}

func (s *SoundCloud) Name() string               { return "soundcloud" }
func (s *SoundCloud) Source() track.SourceTag     { return track.SourceSoundCloud }
func (s *SoundCloud) Recognize(rawURL string) bool { return soundcloudURLRE.MatchString(rawURL) }

func (s *SoundCloud) Extract(ctx context.Context, rawURL string) (track.Descriptor, error) {
	endpoint := "https://soundcloud.com/oembed?format=json&url=" + url.QueryEscape(rawURL)
	resp, err := fetchOEmbed(ctx, s.client, endpoint)
	if err != nil {
		return track.Descriptor{}, err
	}
	return track.Descriptor{
		Title:        resp.Title,
		CanonicalURL: rawURL,
		Uploader:     resp.AuthorName,
		ThumbnailURL: resp.ThumbnailURL,
		Source:       track.SourceSoundCloud,
	}, nil
}
