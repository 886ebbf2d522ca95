package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"bibscout/internal/core/domain/models"
	"bibscout/internal/core/domain/ports"
)

// Ensure Store implements CatalogStore
var _ ports.CatalogStore = (*Store)(nil)

// Entry is one work already present in the bibliography store.
type Entry struct {
	bun.BaseModel `bun:"table:works,alias:w"`

	ID           int64     `bun:",pk,autoincrement"`
	Key          string    `bun:",unique,notnull"`
	Title        string    `bun:",notnull"`
	Author       string    `bun:",nullzero"`
	SourceID     string    `bun:"source_id,nullzero"`
	URL          string    `bun:",nullzero"`
	Downloadable bool      `bun:",notnull,default:false"`
	CreatedAt    time.Time `bun:",nullzero,notnull,default:current_timestamp"`
}

// Store is the sqlite-backed bibliography store.
type Store struct {
	db *bun.DB
}

// Open opens (or creates) the catalog database at path.
func Open(path string) (*Store, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog database: %w", err)
	}

	db := bun.NewDB(sqldb, sqlitedialect.New())

	ctx := context.Background()
	if _, err := db.NewCreateTable().Model((*Entry)(nil)).IfNotExists().Exec(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create works table: %w", err)
	}

	return &Store{db: db}, nil
}

// keyIndex is the in-memory read-only view used during resolution.
type keyIndex map[string]struct{}

func (k keyIndex) Has(key string) bool {
	_, ok := k[key]
	return ok
}

func (k keyIndex) Len() int { return len(k) }

// Index loads every dedup key into memory. The snapshot is immutable, so
// concurrent resolutions can consult it without locking.
func (s *Store) Index(ctx context.Context) (ports.CatalogIndex, error) {
	var keys []string
	if err := s.db.NewSelect().Model((*Entry)(nil)).Column("key").Scan(ctx, &keys); err != nil {
		return nil, fmt.Errorf("failed to load catalog keys: %w", err)
	}

	idx := make(keyIndex, len(keys))
	for _, k := range keys {
		idx[k] = struct{}{}
	}
	return idx, nil
}

// Append inserts reconciled new works. Conflicting keys are ignored so a
// rerun against an already-updated catalog stays idempotent.
func (s *Store) Append(ctx context.Context, works []models.NewWork) error {
	if len(works) == 0 {
		return nil
	}

	entries := make([]Entry, 0, len(works))
	for _, w := range works {
		entries = append(entries, Entry{
			Key:          w.Key,
			Title:        w.Title,
			Author:       models.NormalizeAuthorName(w.PrimaryAuthor()),
			SourceID:     w.ID,
			URL:          w.URL,
			Downloadable: w.Downloadable,
		})
	}

	if _, err := s.db.NewInsert().
		Model(&entries).
		On("CONFLICT (key) DO NOTHING").
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to append works: %w", err)
	}
	return nil
}

// All returns every catalog entry, oldest first.
func (s *Store) All(ctx context.Context) ([]Entry, error) {
	var entries []Entry
	if err := s.db.NewSelect().Model(&entries).Order("id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return entries, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
