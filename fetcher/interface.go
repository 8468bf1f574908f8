package fetcher

import "context"

// Interface downloads candidate lists with a cache in front.
type Interface interface {
	// Fetch returns the body of url, served from cache while fresh and
	// from stale cache when the upstream cannot be reached.
	Fetch(ctx context.Context, url string) (Result, error)
}
