package hls

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustURL(t *testing.T, s string) *url.URL {
	t.Helper()
	u, err := url.Parse(s)
	require.NoError(t, err)
	return u
}

func TestParse_Master(t *testing.T) {
	body := "#EXTM3U\n" +
		"#EXT-X-VERSION:3\n" +
		"#EXT-X-STREAM-INF:BANDWIDTH=800000,RESOLUTION=640x360\n" +
		"low/index.m3u8\n" +
		"#EXT-X-STREAM-INF:BANDWIDTH=2400000,RESOLUTION=1280x720\n" +
		"https://cdn.example/high/index.m3u8\n"

	p, err := Parse([]byte(body), mustURL(t, "http://origin.example/live/master.m3u8"))
	require.NoError(t, err)

	assert.Equal(t, KindMaster, p.Kind)
	assert.Equal(t, []Variant{
		{Bandwidth: 800000, URI: "http://origin.example/live/low/index.m3u8"},
		{Bandwidth: 2400000, URI: "https://cdn.example/high/index.m3u8"},
	}, p.Variants)

	next, err := p.Next()
	require.NoError(t, err)
	assert.Equal(t, "http://origin.example/live/low/index.m3u8", next)
}

func TestParse_Media(t *testing.T) {
	body := "\xef\xbb\xbf#EXTM3U\r\n" +
		"#EXT-X-TARGETDURATION:6\r\n" +
		"#EXTINF:6.0,\r\n" +
		"seg-100.ts\r\n" +
		"#EXTINF:6.0,\r\n" +
		"/abs/seg-101.ts\r\n"

	p, err := Parse([]byte(body), mustURL(t, "http://origin.example/live/chunks.m3u8?token=1"))
	require.NoError(t, err)

	assert.Equal(t, KindMedia, p.Kind)
	assert.Equal(t, []string{
		"http://origin.example/live/seg-100.ts",
		"http://origin.example/abs/seg-101.ts",
	}, p.Segments)
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse([]byte("<html>nope</html>"), nil)
	assert.ErrorIs(t, err, ErrNotPlaylist)

	p, err := Parse([]byte("#EXTM3U\n#EXT-X-ENDLIST\n"), nil)
	require.NoError(t, err)
	_, err = p.Next()
	assert.ErrorIs(t, err, ErrNoReference)

	p, err = Parse([]byte("#EXTM3U\n#EXT-X-STREAM-INF:BANDWIDTH=1\n"), nil)
	require.NoError(t, err)
	assert.Equal(t, KindMaster, p.Kind)
	_, err = p.Next()
	assert.ErrorIs(t, err, ErrNoReference)
}

func TestLooksLikePlaylist(t *testing.T) {
	tests := []struct {
		contentType string
		uri         string
		want        bool
	}{
		{"application/vnd.apple.mpegurl", "http://a/live", true},
		{"audio/x-mpegURL", "http://a/live", true},
		{"", "http://a/live/index.M3U8?x=1", true},
		{"", "http://a/list.m3u", true},
		{"video/mp2t", "http://a/seg.ts", false},
		{"", "http://a/live.flv", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LooksLikePlaylist(tt.contentType, tt.uri), tt.uri)
	}
}
