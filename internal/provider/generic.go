package provider

import (
	"context"
	"path"
	"regexp"
	"strings"

	"github.com/sonanterra/queueengine/internal/track"
)

var genericExtensionRE = regexp.MustCompile(`(?i)\.(mp3|wav|ogg|m4a|flac|aac|opus|wma)$`)
var genericURLRE = regexp.MustCompile(`(?i)^https?://`)

// Generic is the catch-all provider for direct media links ending in one of
// the recognized audio extensions. It must be registered last: every other
// provider's URL pattern is more specific and should win first.
type Generic struct{}

func NewGeneric() *Generic { return &Generic{} }

func (g *Generic) Name() string { return "generic" }
func (g *Generic) Source() track.SourceTag { return track.SourceGeneric }

func (g *Generic) Recognize(rawURL string) bool {
	return genericURLRE.MatchString(rawURL) && genericExtensionRE.MatchString(rawURL)
}

func (g *Generic) Extract(_ context.Context, rawURL string) (track.Descriptor, error) {
	title := path.Base(strings.SplitN(rawURL, "?", 2)[0])
	return track.Descriptor{
		Title:        title,
		CanonicalURL: rawURL,
		Source:       track.SourceGeneric,
	}, nil
}

func (g *Generic) ResolvePlayable(_ context.Context, d track.Descriptor) (string, error) {
	return d.CanonicalURL, nil
}
