package provider

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/sonanterra/queueengine/internal/errkind"
)

// oembedResponse covers the fields every oEmbed provider (YouTube,
// SoundCloud, ...) returns in common; duration is not part of the oEmbed
// spec, so DurationMS is always left at zero here. Nothing later fills it
// in: the Resolver interface only resolves playable URLs.
type oembedResponse struct {
	Title        string `json:"title"`
	AuthorName   string `json:"author_name"`
	ThumbnailURL string `json:"thumbnail_url"`
}

func fetchOEmbed(ctx context.Context, client *http.Client, endpoint string) (oembedResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return oembedResponse{}, errkind.Wrap(errkind.Malformed, "build oembed request", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return oembedResponse{}, errkind.Wrap(errkind.Network, "oembed request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return oembedResponse{}, errkind.New(errkind.RateLimited, "oembed endpoint rate limited us")
	}
	if resp.StatusCode == http.StatusNotFound {
		return oembedResponse{}, errkind.New(errkind.NotFound, "oembed endpoint returned not found")
	}
	if resp.StatusCode != http.StatusOK {
		return oembedResponse{}, errkind.New(errkind.TransportError, "oembed endpoint returned unexpected status")
	}

	body, err := readLimited(resp.Body)
	if err != nil {
		return oembedResponse{}, errkind.Wrap(errkind.Network, "read oembed body", err)
	}

	var out oembedResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return oembedResponse{}, errkind.Wrap(errkind.Malformed, "decode oembed body", err)
	}
	return out, nil
}
