// Package catalog owns the product catalog database: categories, brands,
// products and recorded orders. The default backend is a SQLite file; a
// postgres:// DSN switches the store to PostgreSQL.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/driver/sqliteshim"

	logx "github.com/trungdn/milk-sell-agent/pkg/logger"
)

type Config struct {
	DSN string `envconfig:"DSN" split_words:"true" default:"data/sql/milk_database.db"`
}

// Store is the catalog handle. Connect must complete before any other
// method is used; after that reads may run concurrently while writes are
// serialized per instance.
type Store struct {
	dsn string
	log zerolog.Logger

	mu sync.Mutex // serializes Connect/Close and all writes
	db *bun.DB
}

func NewStore(cfg Config) *Store {
	return &Store{
		dsn: strings.TrimSpace(cfg.DSN),
		log: logx.Component("catalog"),
	}
}

// Connect opens the database and, when the primary table is absent, creates
// the schema. Calling it on a connected store is a no-op.
func (s *Store) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		return nil
	}
	if s.dsn == "" {
		return fmt.Errorf("%w: empty dsn", ErrValidation)
	}

	db, err := open(s.dsn)
	if err != nil {
		return &StorageError{Op: "connect", Err: err}
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return &StorageError{Op: "connect", Err: err}
	}
	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return &StorageError{Op: "migrate", Err: err}
	}

	s.db = db
	s.log.Info().Str("dialect", db.Dialect().Name().String()).Msg("catalog store connected")
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *Store) handle() (*bun.DB, error) {
	if s.db == nil {
		return nil, ErrNotConnected
	}
	return s.db, nil
}

func open(dsn string) (*bun.DB, error) {
	if isPostgres(dsn) {
		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
		return bun.NewDB(sqldb, pgdialect.New()), nil
	}

	if dir := filepath.Dir(dsn); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	sqldb, err := sql.Open(sqliteshim.ShimName, sqliteDSN(dsn))
	if err != nil {
		return nil, err
	}
	// One connection keeps SQLite free of writer lock contention.
	sqldb.SetMaxOpenConns(1)
	return bun.NewDB(sqldb, sqlitedialect.New()), nil
}

func isPostgres(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

func sqliteDSN(path string) string {
	if strings.HasPrefix(path, "file:") {
		return path
	}
	return "file:" + path + "?cache=shared"
}

var indexes = []struct {
	model   any
	name    string
	columns []string
}{
	{(*Product)(nil), "idx_products_name", []string{"product_name"}},
	{(*Product)(nil), "idx_products_active", []string{"is_active"}},
	{(*Product)(nil), "idx_products_brand", []string{"brand_id"}},
	{(*Product)(nil), "idx_products_category", []string{"category_id"}},
	{(*Product)(nil), "idx_products_price", []string{"price_per_unit"}},
	{(*Product)(nil), "idx_products_stock", []string{"stock_quantity"}},
	{(*Product)(nil), "idx_products_age_range", []string{"age_range_from", "age_range_to"}},
	{(*Product)(nil), "idx_products_active_price", []string{"is_active", "price_per_unit"}},
	{(*Brand)(nil), "idx_brands_name", []string{"brand_name"}},
	{(*Brand)(nil), "idx_brands_country", []string{"country_of_origin"}},
	{(*Brand)(nil), "idx_brands_premium", []string{"is_premium"}},
	{(*Category)(nil), "idx_categories_name", []string{"category_name"}},
	{(*Order)(nil), "idx_orders_product", []string{"product_id"}},
}

// migrate creates tables and indexes, guarded on the primary table so an
// existing database is never touched. This is a migration guard, not a
// migration system.
func migrate(ctx context.Context, db *bun.DB) error {
	exists, err := tableExists(ctx, db, "milk_products")
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	for _, model := range []any{(*Category)(nil), (*Brand)(nil), (*Product)(nil), (*Order)(nil)} {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return err
		}
	}
	for _, idx := range indexes {
		_, err := db.NewCreateIndex().
			Model(idx.model).
			Index(idx.name).
			Column(idx.columns...).
			IfNotExists().
			Exec(ctx)
		if err != nil {
			return err
		}
	}
	return nil
}

func tableExists(ctx context.Context, db *bun.DB, name string) (bool, error) {
	var query string
	switch db.Dialect().Name() {
	case dialect.SQLite:
		query = "SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?"
	case dialect.PG:
		query = "SELECT COUNT(*) FROM information_schema.tables WHERE table_name = ?"
	default:
		return false, fmt.Errorf("unsupported dialect %s", db.Dialect().Name().String())
	}

	var count int
	if err := db.NewRaw(query, name).Scan(ctx, &count); err != nil {
		return false, err
	}
	return count > 0, nil
}
