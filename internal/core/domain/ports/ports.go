package ports

import (
	"context"

	"bibscout/internal/core/domain/models"
)

// WorkSource is the paginated search API capability. One invocation makes
// exactly one logical network call (the transport may retry transient
// errors). The returned error is non-nil only for a hard API failure
// (auth, rate limit) or context cancellation; all other failures come back
// as a page with OK=false so the resolver can apply its boundary handling.
type WorkSource interface {
	FetchPage(ctx context.Context, author models.AuthorIdentity, offset, pageSize int) (models.FetchPage, error)
}

// CatalogIndex is a read-only view of the existing bibliography, keyed by
// models.WorkKey. It must stay immutable while resolutions run.
type CatalogIndex interface {
	Has(key string) bool
	Len() int
}

// CatalogStore is the persistent bibliography store. Append is invoked by
// the caller after reconciliation, never by the core.
type CatalogStore interface {
	Index(ctx context.Context) (CatalogIndex, error)
	Append(ctx context.Context, works []models.NewWork) error
	Close() error
}
