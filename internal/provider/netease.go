package provider

import (
	"context"
	"net/http"
	"regexp"

	"github.com/sonanterra/queueengine/internal/track"
)

var neteaseURLRE = regexp.MustCompile(`(?i)^https?://[\w.-]*(music\.163\.com|music\.126\.net)/.*[?&]id=\d+`)

// NeteaseConfig holds the two knobs netease commonly needs in deployments
// outside mainland China: an HTTP proxy for reaching the API at all, and a
// logged-in member cookie for tracks that are region- or membership-gated.
type NeteaseConfig struct {
	ProxyURL     string
	MemberCookie string
}

// Netease recognizes music.163.com/music.126.net links carrying an id=
// query parameter. Like Bilibili, it has no public keyless metadata API;
// Extract returns a bare descriptor carrying only the canonical URL and
// source tag, and the injected Resolver is used only for playable-URL
// resolution.
type Netease struct {
	cfg NeteaseConfig
	Resolver
}

func NewNetease(cfg NeteaseConfig, resolver Resolver) *Netease {
	if resolver == nil {
		resolver = UnsupportedResolver{SourceName: "netease"}
	}
	return &Netease{cfg: cfg, Resolver: resolver}
}

func (n *Netease) Name() string               { return "netease" }
func (n *Netease) Source() track.SourceTag     { return track.SourceNetease }
func (n *Netease) Recognize(rawURL string) bool { return neteaseURLRE.MatchString(rawURL) }

func (n *Netease) Extract(_ context.Context, rawURL string) (track.Descriptor, error) {
	return track.Descriptor{CanonicalURL: rawURL, Source: track.SourceNetease}, nil
}

// authenticatedRequest attaches the configured member cookie to req, for a
// Resolver implementation that wants to make its own calls through this
// provider's configuration.
func (n *Netease) authenticatedRequest(req *http.Request) *http.Request {
	if n.cfg.MemberCookie != "" {
		req.Header.Set("Cookie", n.cfg.MemberCookie)
	}
	return req
}
