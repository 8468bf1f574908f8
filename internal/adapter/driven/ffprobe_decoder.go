package driven

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"time"

	"github.com/goccy/go-json"
)

// runFunc executes a command and returns its stdout.
type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

func execOutput(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// FFProbeDecoder implements the DecoderProbe port by shelling out to ffprobe.
type FFProbeDecoder struct {
	path      string
	available bool
	run       runFunc
	logger    *slog.Logger
}

// NewFFProbeDecoder looks command up on PATH once. A missing binary is not an
// error: the decoder simply reports itself unavailable.
func NewFFProbeDecoder(command string, logger *slog.Logger) *FFProbeDecoder {
	d := &FFProbeDecoder{run: execOutput, logger: logger}
	path, err := exec.LookPath(command)
	if err != nil {
		logger.Warn("deep decode disabled, decoder not found", "command", command, "error", err)
		return d
	}
	d.path = path
	d.available = true
	return d
}

// Available reports whether ffprobe was found.
func (d *FFProbeDecoder) Available() bool { return d.available }

type ffprobeOutput struct {
	Streams []struct {
		CodecType string `json:"codec_type"`
		CodecName string `json:"codec_name"`
	} `json:"streams"`
}

// Probe asks ffprobe to identify the media streams of uri. budget bounds
// both the analysis window and network reads; the process gets twice the
// budget before it is killed.
func (d *FFProbeDecoder) Probe(ctx context.Context, uri string, budget time.Duration) (bool, error) {
	if !d.available {
		return false, errors.New("ffprobe not available")
	}

	ctx, cancel := context.WithTimeout(ctx, 2*budget)
	defer cancel()

	us := strconv.FormatInt(budget.Microseconds(), 10)
	out, err := d.run(ctx, d.path,
		"-v", "error",
		"-analyzeduration", us,
		"-probesize", "5000000",
		"-rw_timeout", us,
		"-show_streams",
		"-of", "json",
		uri,
	)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return false, fmt.Errorf("ffprobe did not finish: %w", ctxErr)
		}
		return false, fmt.Errorf("ffprobe failed: %w", err)
	}

	var parsed ffprobeOutput
	if err := json.Unmarshal(out, &parsed); err != nil {
		return false, fmt.Errorf("failed to decode ffprobe output: %w", err)
	}

	for _, s := range parsed.Streams {
		if s.CodecType == "video" || s.CodecType == "audio" {
			d.logger.Debug("ffprobe recognized stream", "uri", uri, "codec", s.CodecName, "type", s.CodecType)
			return true, nil
		}
	}
	return false, nil
}
