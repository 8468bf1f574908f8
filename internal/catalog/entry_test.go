package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEntry(t *testing.T) {
	tests := []struct {
		name    string
		inName  string
		inURI   string
		want    Entry
		wantErr error
	}{
		{"valid http", "CCTV1", "http://example.com/1.m3u8", Entry{"CCTV1", "http://example.com/1.m3u8"}, nil},
		{"trims both", "  CCTV1 ", " rtsp://cam.local/live ", Entry{"CCTV1", "rtsp://cam.local/live"}, nil},
		{"upper-case scheme", "X", "HTTPS://example.com", Entry{"X", "HTTPS://example.com"}, nil},
		{"empty name", " ", "http://example.com", Entry{}, ErrEmptyName},
		{"ftp scheme", "X", "ftp://example.com", Entry{}, ErrUnsupportedScheme},
		{"scheme only", "X", "udp://", Entry{}, ErrUnsupportedScheme},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewEntry(tt.inName, tt.inURI)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEntry_Helpers(t *testing.T) {
	e := Entry{Name: "翡翠台", URI: "HTTP://hk.example:8080/jade.m3u8"}

	assert.Equal(t, "翡翠台,HTTP://hk.example:8080/jade.m3u8", e.Line())
	assert.Equal(t, "http", e.Scheme())
	assert.Equal(t, "hk.example", e.Host())

	assert.Equal(t, "", Entry{URI: "no-scheme"}.Scheme())
	assert.Equal(t, "", Entry{URI: "http://[::1"}.Host())
}
