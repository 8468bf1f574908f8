package driven

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/alorle/iptv-livecheck/internal/catalog"
)

// CatalogFileRepository implements the CatalogRepository port on a single
// UTF-8 text file.
type CatalogFileRepository struct {
	path            string
	createIfMissing bool
	logger          *slog.Logger
}

// NewCatalogFileRepository creates a file-backed catalog repository. When
// createIfMissing is false a missing file is reported as
// catalog.ErrCatalogNotFound; otherwise it loads as an empty catalog.
func NewCatalogFileRepository(path string, createIfMissing bool, logger *slog.Logger) *CatalogFileRepository {
	return &CatalogFileRepository{path: path, createIfMissing: createIfMissing, logger: logger}
}

// Path returns the catalog file path.
func (r *CatalogFileRepository) Path() string { return r.path }

// Load reads and parses the catalog file.
func (r *CatalogFileRepository) Load(ctx context.Context) (*catalog.Catalog, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		if r.createIfMissing {
			r.logger.Warn("catalog file missing, starting empty", "path", r.path)
			return catalog.Parse(""), nil
		}
		return nil, fmt.Errorf("%w: %s", catalog.ErrCatalogNotFound, r.path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", r.path, err)
	}

	return catalog.Parse(string(data)), nil
}

// Save writes the catalog atomically, keeping the existing file mode.
func (r *CatalogFileRepository) Save(ctx context.Context, c *catalog.Catalog) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	perm := os.FileMode(0644)
	if fi, err := os.Stat(r.path); err == nil {
		perm = fi.Mode().Perm()
	}

	if err := writeFileAtomic(r.path, c.Bytes(), perm); err != nil {
		return fmt.Errorf("failed to save catalog: %w", err)
	}
	return nil
}
