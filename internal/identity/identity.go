// Package identity derives the Track Identity Key from a Track Descriptor.
// It is a pure, deterministic function: the regex and platform-ID
// extraction rules here are part of the on-disk contract, since the
// Fairness Tracker's admission decisions and reconstructed state depend on
// keys remaining stable across restarts. Changing the normalization rules
// requires a persisted-snapshot schema bump.
package identity

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/sonanterra/queueengine/internal/track"
)

// annotationRE strips bracketed annotations such as "(Official Video)",
// "[HD]", "{Remastered}", "(MV)" from a title before lower-casing it.
var annotationRE = regexp.MustCompile(`(?i)\s*[\(\[\{]\s*(official\s+(audio|video|mv)|lyrics?|hd|4k|remastered|m/?v)\s*[\)\]\}]`)

var whitespaceRE = regexp.MustCompile(`\s+`)

// youtubeVRE extracts the v= query parameter from a youtube.com/watch URL.
var youtubeVRE = regexp.MustCompile(`[?&]v=([A-Za-z0-9_-]+)`)

// youtubeShortRE extracts the path segment from a youtu.be short link.
var youtubeShortRE = regexp.MustCompile(`youtu\.be/([A-Za-z0-9_-]+)`)

// bilibiliRE extracts a BVxxxx or avNNN identifier from a bilibili URL.
var bilibiliRE = regexp.MustCompile(`(?i)/(BV[A-Za-z0-9]+|av\d+)`)

// neteaseIDRE extracts the numeric id= query parameter used by netease URLs.
var neteaseIDRE = regexp.MustCompile(`[?&]id=(\d+)`)

// catboxFileRE extracts the filename segment of a catbox.moe URL.
var catboxFileRE = regexp.MustCompile(`files\.catbox\.moe/([^/?#]+)`)

// NormalizeTitle lower-cases title after stripping bracketed annotations and
// collapsing redundant whitespace.
func NormalizeTitle(title string) string {
	stripped := annotationRE.ReplaceAllString(title, " ")
	lowered := strings.ToLower(stripped)
	collapsed := whitespaceRE.ReplaceAllString(lowered, " ")
	return strings.TrimSpace(collapsed)
}

// URLKey extracts the platform ID used as the URL component of the Track
// Identity Key, falling back to the canonical URL itself when no
// platform-specific ID can be extracted.
func URLKey(d track.Descriptor) string {
	switch d.Source {
	case track.SourceYouTube:
		if m := youtubeVRE.FindStringSubmatch(d.CanonicalURL); len(m) == 2 {
			return "yt:" + m[1]
		}
		if m := youtubeShortRE.FindStringSubmatch(d.CanonicalURL); len(m) == 2 {
			return "yt:" + m[1]
		}
	case track.SourceBilibili:
		if m := bilibiliRE.FindStringSubmatch(d.CanonicalURL); len(m) == 2 {
			return "bili:" + strings.ToUpper(m[1])
		}
	case track.SourceNetease:
		if m := neteaseIDRE.FindStringSubmatch(d.CanonicalURL); len(m) == 2 {
			return "netease:" + m[1]
		}
	case track.SourceCatbox:
		if m := catboxFileRE.FindStringSubmatch(d.CanonicalURL); len(m) == 2 {
			return "catbox:" + m[1]
		}
	}
	if u, err := url.Parse(d.CanonicalURL); err == nil && u.String() != "" {
		return d.CanonicalURL
	}
	return d.CanonicalURL
}

// KeyOf derives the Track Identity Key for a descriptor.
func KeyOf(d track.Descriptor) track.Key {
	return track.Key{
		NormalizedTitle: NormalizeTitle(d.Title),
		DurationMS:      d.DurationMS,
		URLKey:          URLKey(d),
	}
}
