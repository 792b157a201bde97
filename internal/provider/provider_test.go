package provider

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sonanterra/queueengine/internal/errkind"
	"github.com/sonanterra/queueengine/internal/track"
)

func testRegistry() *Registry {
	return NewRegistry(nil,
		NewYouTube(nil),
		NewBilibili(nil),
		NewNetease(NeteaseConfig{}, nil),
		NewSoundCloud(nil),
		NewCatbox(),
		NewGeneric(),
	)
}

func TestRecognizeMatchesInRegistrationOrder(t *testing.T) {
	r := testRegistry()

	cases := []struct {
		url  string
		name string
	}{
		{"https://www.youtube.com/watch?v=abc123", "youtube"},
		{"https://youtu.be/abc123", "youtube"},
		{"https://www.bilibili.com/video/BV1xx411c7mD", "bilibili"},
		{"https://music.163.com/song?id=12345", "netease"},
		{"https://soundcloud.com/someone/atrack", "soundcloud"},
		{"https://files.catbox.moe/abcd1234.mp3", "catbox"},
		{"https://cdn.example.com/path/song.flac", "generic"},
	}

	for _, c := range cases {
		p, ok := r.Recognize(c.url)
		require.True(t, ok, c.url)
		require.Equal(t, c.name, p.Name(), c.url)
	}
}

func TestRecognizeRejectsUnrelatedURL(t *testing.T) {
	r := testRegistry()
	_, ok := r.Recognize("https://example.com/not-audio")
	require.False(t, ok)
}

func TestExtractUnsupportedURLReturnsUnsupportedKind(t *testing.T) {
	r := testRegistry()
	_, err := r.Extract(context.Background(), "https://example.com/nope")
	require.Error(t, err)
	kind, ok := errkind.Of(err)
	require.True(t, ok)
	require.Equal(t, errkind.Unsupported, kind)
}

func TestCatboxExtractAndResolveRoundTrip(t *testing.T) {
	r := testRegistry()
	d, err := r.Extract(context.Background(), "https://files.catbox.moe/xyz789.mp3")
	require.NoError(t, err)
	require.Equal(t, track.SourceCatbox, d.Source)
	require.Equal(t, "xyz789.mp3", d.Title)

	playURL, err := r.ResolvePlayable(context.Background(), d)
	require.NoError(t, err)
	require.Equal(t, d.CanonicalURL, playURL)
}

func TestGenericExtractAndResolveRoundTrip(t *testing.T) {
	r := testRegistry()
	d, err := r.Extract(context.Background(), "https://cdn.example.com/tracks/song.opus")
	require.NoError(t, err)
	require.Equal(t, track.SourceGeneric, d.Source)

	playURL, err := r.ResolvePlayable(context.Background(), d)
	require.NoError(t, err)
	require.Equal(t, d.CanonicalURL, playURL)
}

func TestBilibiliResolvePlayableUnsupportedByDefault(t *testing.T) {
	r := testRegistry()
	d, err := r.Extract(context.Background(), "https://www.bilibili.com/video/av98765")
	require.NoError(t, err)

	_, err = r.ResolvePlayable(context.Background(), d)
	require.Error(t, err)
	kind, _ := errkind.Of(err)
	require.Equal(t, errkind.Unsupported, kind)
}

func TestNeteaseResolvePlayableUnsupportedByDefault(t *testing.T) {
	r := testRegistry()
	d, err := r.Extract(context.Background(), "https://music.163.com/song?id=555")
	require.NoError(t, err)

	_, err = r.ResolvePlayable(context.Background(), d)
	require.Error(t, err)
	kind, _ := errkind.Of(err)
	require.Equal(t, errkind.Unsupported, kind)
}

func TestBreakerOpenSurfacesAsRateLimited(t *testing.T) {
	r := NewRegistry(nil, NewGeneric())
	g := r.guards["generic"]
	g.breaker = NewBreaker("generic", 1, 1, 0, 0, nil)

	boom := errkind.New(errkind.Network, "down")
	err := r.guarded(context.Background(), "generic", func() error { return boom })
	require.Error(t, err)

	err = r.guarded(context.Background(), "generic", func() error { return nil })
	require.Error(t, err)
	kind, _ := errkind.Of(err)
	require.Equal(t, errkind.RateLimited, kind)
}
