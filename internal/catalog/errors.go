package catalog

import "errors"

var (
	ErrEmptyName         = errors.New("entry name cannot be empty")
	ErrUnsupportedScheme = errors.New("entry uri has an unsupported scheme")
	ErrEmptyTag          = errors.New("group tag cannot be empty")
	ErrGroupNotFound     = errors.New("group not found")
	ErrGroupExists       = errors.New("group already exists")
	ErrCatalogNotFound   = errors.New("catalog not found")
)
