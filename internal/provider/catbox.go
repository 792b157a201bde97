package provider

import (
	"context"
	"path"
	"regexp"
	"strings"

	"github.com/sonanterra/queueengine/internal/track"
)

var catboxURLRE = regexp.MustCompile(`(?i)^https?://files\.catbox\.moe/[^/?#]+`)

// Catbox recognizes files.catbox.moe links. The canonical URL already
// points at the raw file, so ResolvePlayable is the identity function; no
// external resolver is needed.
type Catbox struct{}

func NewCatbox() *Catbox { return &Catbox{} }

func (c *Catbox) Name() string                { return "catbox" }
func (c *Catbox) Source() track.SourceTag      { return track.SourceCatbox }
func (c *Catbox) Recognize(rawURL string) bool { return catboxURLRE.MatchString(rawURL) }

// Extract derives a title from the filename; catbox serves plain files with
// no embedded track length, so DurationMS stays zero and a configured
// max_track_duration_seconds guard has nothing to enforce for this source.
func (c *Catbox) Extract(_ context.Context, rawURL string) (track.Descriptor, error) {
	title := path.Base(strings.TrimRight(rawURL, "/"))
	return track.Descriptor{
		Title:        title,
		CanonicalURL: rawURL,
		Source:       track.SourceCatbox,
	}, nil
}

func (c *Catbox) ResolvePlayable(_ context.Context, d track.Descriptor) (string, error) {
	return d.CanonicalURL, nil
}
