package driven

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/alorle/iptv-livecheck/fetcher"
	"github.com/alorle/iptv-livecheck/internal/catalog"
)

// ListCandidateSource reads candidate lists from local files or HTTP(S)
// URLs configured per group tag.
type ListCandidateSource struct {
	sources map[string][]string
	fetcher fetcher.Interface
	logger  *slog.Logger
}

// NewListCandidateSource creates a source. fetcher may be nil when no
// source is remote.
func NewListCandidateSource(sources map[string][]string, f fetcher.Interface, logger *slog.Logger) *ListCandidateSource {
	return &ListCandidateSource{sources: sources, fetcher: f, logger: logger}
}

// Candidates implements driven.CandidateSource. Unreadable sources are
// logged and skipped; an error is returned only when every source failed.
func (s *ListCandidateSource) Candidates(ctx context.Context, tag string) ([]catalog.Entry, error) {
	locations := s.sources[tag]
	var (
		entries []catalog.Entry
		errs    []error
	)
	for _, loc := range locations {
		text, err := s.read(ctx, loc)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.logger.Warn("candidate source unavailable", "group", tag, "source", loc, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", loc, err))
			continue
		}
		found := catalog.ExtractCandidates(text, tag)
		s.logger.Debug("candidate source read", "group", tag, "source", loc, "entries", len(found))
		entries = append(entries, found...)
	}
	if len(locations) > 0 && len(errs) == len(locations) {
		return nil, errors.Join(errs...)
	}
	return entries, nil
}

func (s *ListCandidateSource) read(ctx context.Context, loc string) (string, error) {
	lower := strings.ToLower(loc)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		if s.fetcher == nil {
			return "", errors.New("remote sources are not configured")
		}
		res, err := s.fetcher.Fetch(ctx, loc)
		if err != nil {
			return "", err
		}
		if res.Stale {
			s.logger.Warn("using stale candidate list", "source", loc, "fetched_at", res.FetchedAt)
		}
		return string(res.Content), nil
	}
	data, err := os.ReadFile(loc)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
