package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
)

// PgStore is a Postgres-backed ProductStore using pgx/v4, matching the
// library the teacher declares but does not exercise in this retrieval.
// It expects a single "products" table with columns (bank, category,
// name, description).
type PgStore struct {
	pool *pgxpool.Pool
}

// NewPgStore opens a pooled connection using the given DSN.
func NewPgStore(ctx context.Context, dsn string) (*PgStore, error) {
	pool, err := pgxpool.Connect(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to product store: %w", err)
	}
	return &PgStore{pool: pool}, nil
}

// Close releases the underlying connection pool.
func (s *PgStore) Close() {
	s.pool.Close()
}

func (s *PgStore) Count(ctx context.Context, bank, category, productName string) (int, error) {
	query := `SELECT count(*) FROM products WHERE
		($1 = '' OR lower(bank) = lower($1)) AND
		($2 = '' OR lower(category) = lower($2)) AND
		($3 = '' OR lower(name) = lower($3))`
	var n int
	if err := s.pool.QueryRow(ctx, query, bank, category, productName).Scan(&n); err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return n, nil
}

func (s *PgStore) List(ctx context.Context, bank, category string) ([]ProductRecord, error) {
	query := `SELECT bank, category, name, description FROM products WHERE
		lower(bank) = lower($1) AND lower(category) = lower($2) ORDER BY name`
	rows, err := s.pool.Query(ctx, query, bank, category)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	out := make([]ProductRecord, 0)
	for rows.Next() {
		var r ProductRecord
		if err := rows.Scan(&r.Bank, &r.Category, &r.Name, &r.Description); err != nil {
			return nil, fmt.Errorf("scan product row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *PgStore) Get(ctx context.Context, bank, name string) (ProductRecord, bool, error) {
	query := `SELECT bank, category, name, description FROM products WHERE
		lower(bank) = lower($1) AND lower(name) = lower($2) LIMIT 1`
	var r ProductRecord
	err := s.pool.QueryRow(ctx, query, bank, name).Scan(&r.Bank, &r.Category, &r.Name, &r.Description)
	if err != nil {
		return ProductRecord{}, false, nil
	}
	return r, true, nil
}

func (s *PgStore) DistinctBanks(ctx context.Context) ([]string, error) {
	return s.distinctColumn(ctx, "bank")
}

func (s *PgStore) DistinctCategories(ctx context.Context) ([]string, error) {
	return s.distinctColumn(ctx, "category")
}

func (s *PgStore) DistinctProductNames(ctx context.Context) ([]string, error) {
	return s.distinctColumn(ctx, "name")
}

func (s *PgStore) distinctColumn(ctx context.Context, column string) ([]string, error) {
	query := fmt.Sprintf(`SELECT DISTINCT %s FROM products ORDER BY %s`, column, column)
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("distinct %s: %w", column, err)
	}
	defer rows.Close()

	out := make([]string, 0)
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan distinct %s: %w", column, err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
