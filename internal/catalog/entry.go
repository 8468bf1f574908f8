package catalog

import (
	"net/url"
	"strings"
)

const (
	// Marker is the reserved token that turns a line into a group header.
	Marker = "#genre#"
	// Separator splits a name from its URI and a tag from the marker.
	Separator = ","
)

var supportedSchemes = []string{"http://", "https://", "udp://", "rtmp://", "rtsp://"}

// Entry is a single named stream endpoint.
type Entry struct {
	Name string
	URI  string
}

// NewEntry creates an entry with validation. Name and URI are trimmed.
func NewEntry(name, uri string) (Entry, error) {
	name = strings.TrimSpace(name)
	uri = strings.TrimSpace(uri)
	if name == "" {
		return Entry{}, ErrEmptyName
	}
	if !HasSupportedScheme(uri) {
		return Entry{}, ErrUnsupportedScheme
	}
	return Entry{Name: name, URI: uri}, nil
}

// Line renders the entry in catalog form.
func (e Entry) Line() string { return e.Name + Separator + e.URI }

// Scheme returns the lower-cased URI scheme, or "" when it cannot be parsed.
func (e Entry) Scheme() string {
	i := strings.Index(e.URI, "://")
	if i <= 0 {
		return ""
	}
	return strings.ToLower(e.URI[:i])
}

// Host returns the URI host without port, or "" when it cannot be parsed.
func (e Entry) Host() string {
	u, err := url.Parse(e.URI)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// HasSupportedScheme reports whether uri starts with one of the recognized
// schemes. The comparison is case-insensitive.
func HasSupportedScheme(uri string) bool {
	lower := strings.ToLower(uri)
	for _, s := range supportedSchemes {
		if strings.HasPrefix(lower, s) && len(lower) > len(s) {
			return true
		}
	}
	return false
}
