package driven

import (
	"context"

	"github.com/alorle/iptv-livecheck/internal/catalog"
)

// CatalogRepository loads and persists the catalog document.
type CatalogRepository interface {
	// Load reads and parses the persisted catalog. Returns
	// catalog.ErrCatalogNotFound if the document does not exist.
	Load(ctx context.Context) (*catalog.Catalog, error)

	// Save replaces the persisted catalog atomically: readers see either the
	// old document or the new one, never a partial write.
	Save(ctx context.Context, c *catalog.Catalog) error
}
