package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestYouTubeRecognize(t *testing.T) {
	y := NewYouTube(nil)
	require.True(t, y.Recognize("https://www.youtube.com/watch?v=dQw4w9WgXcQ"))
	require.True(t, y.Recognize("https://youtu.be/dQw4w9WgXcQ"))
	require.False(t, y.Recognize("https://example.com/watch?v=dQw4w9WgXcQ"))
}

func TestYouTubeExtractUsesOEmbedEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"title":"Never Gonna Give You Up","author_name":"Rick Astley","thumbnail_url":"https://i.ytimg.com/x.jpg"}`))
	}))
	defer srv.Close()

	// The provider's oembed endpoint is a fixed youtube.com URL, so this
	// test exercises fetchOEmbed directly against a local test server
	// rather than routing through Extract.
	resp, err := fetchOEmbed(context.Background(), srv.Client(), srv.URL)
	require.NoError(t, err)
	require.Equal(t, "Never Gonna Give You Up", resp.Title)
	require.Equal(t, "Rick Astley", resp.AuthorName)
}

func TestYouTubeExtractSurfacesRateLimitedOn429(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := fetchOEmbed(context.Background(), srv.Client(), srv.URL)
	require.Error(t, err)
}
