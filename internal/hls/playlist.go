// Package hls reads just enough of an HLS playlist to find the next URI to
// probe: the first variant of a master playlist, or the first media segment.
package hls

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strconv"
	"strings"
)

const (
	headerTag    = "#EXTM3U"
	streamInfTag = "#EXT-X-STREAM-INF:"
)

var (
	ErrNotPlaylist = errors.New("content is not an m3u8 playlist")
	ErrNoReference = errors.New("playlist has no usable variant or segment")
)

// Kind tells master playlists from media playlists.
type Kind int

const (
	KindMedia Kind = iota
	KindMaster
)

func (k Kind) String() string {
	if k == KindMaster {
		return "master"
	}
	return "media"
}

// Variant is one #EXT-X-STREAM-INF entry of a master playlist.
type Variant struct {
	Bandwidth int
	URI       string
}

// Playlist is a parsed playlist with every reference resolved against the
// playlist's own URL.
type Playlist struct {
	Kind     Kind
	Variants []Variant
	Segments []string
}

// Next returns the URI the cascade should follow: the first variant of a
// master playlist or the first segment of a media playlist.
func (p Playlist) Next() (string, error) {
	switch {
	case p.Kind == KindMaster && len(p.Variants) > 0:
		return p.Variants[0].URI, nil
	case p.Kind == KindMedia && len(p.Segments) > 0:
		return p.Segments[0], nil
	}
	return "", ErrNoReference
}

// Parse reads a playlist body. Relative references are resolved against base.
func Parse(body []byte, base *url.URL) (Playlist, error) {
	if !HasPlaylistHeader(body) {
		return Playlist{}, ErrNotPlaylist
	}

	lines := strings.Split(strings.ReplaceAll(string(body), "\r\n", "\n"), "\n")

	var p Playlist
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), streamInfTag) {
			p.Kind = KindMaster
			break
		}
	}

	var pending *Variant
	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#") {
			if p.Kind == KindMaster && strings.HasPrefix(line, streamInfTag) {
				pending = &Variant{Bandwidth: bandwidth(line)}
			}
			continue
		}

		ref, err := resolve(base, line)
		if err != nil {
			continue
		}
		if p.Kind == KindMaster {
			if pending == nil {
				continue
			}
			pending.URI = ref
			p.Variants = append(p.Variants, *pending)
			pending = nil
			continue
		}
		p.Segments = append(p.Segments, ref)
	}

	return p, nil
}

// HasPlaylistHeader reports whether body starts with #EXTM3U, ignoring a
// UTF-8 byte order mark and leading whitespace.
func HasPlaylistHeader(body []byte) bool {
	body = bytes.TrimPrefix(body, []byte("\xef\xbb\xbf"))
	body = bytes.TrimLeft(body, " \t\r\n")
	return bytes.HasPrefix(body, []byte(headerTag))
}

// LooksLikePlaylist guesses from a content type or URI whether a resource
// is an HLS playlist.
func LooksLikePlaylist(contentType, uri string) bool {
	ct := strings.ToLower(contentType)
	if strings.Contains(ct, "mpegurl") {
		return true
	}
	u, err := url.Parse(uri)
	if err != nil {
		return false
	}
	ext := strings.ToLower(path.Ext(u.Path))
	return ext == ".m3u8" || ext == ".m3u"
}

func resolve(base *url.URL, ref string) (string, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("invalid playlist reference %q: %w", ref, err)
	}
	if base == nil {
		return u.String(), nil
	}
	return base.ResolveReference(u).String(), nil
}

func bandwidth(streamInf string) int {
	attrs := strings.TrimPrefix(streamInf, streamInfTag)
	for _, attr := range strings.Split(attrs, ",") {
		key, val, ok := strings.Cut(strings.TrimSpace(attr), "=")
		if !ok || key != "BANDWIDTH" {
			continue
		}
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return 0
}
