//go:build integration

package store_test

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v4"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/txplain/bankrouter/internal/store"
)

const schemaDDL = `
CREATE TABLE products (
	bank        text NOT NULL,
	category    text NOT NULL,
	name        text NOT NULL,
	description text NOT NULL DEFAULT ''
);
INSERT INTO products (bank, category, name, description) VALUES
	('SBI', 'Credit Card', 'SBI Prime Credit Card', 'cashback card'),
	('HDFC', 'Home Loan', 'HDFC Home Loan', 'home loan');
`

// TestPgStore_Integration exercises PgStore against a real Postgres
// instance. It only runs with `go test -tags integration ./...` and a
// working Docker daemon; it is excluded from the default test run the
// way the teacher's container-backed tests are.
func TestPgStore_Integration(t *testing.T) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "bankrouter",
			"POSTGRES_PASSWORD": "bankrouter",
			"POSTGRES_DB":       "bankrouter",
		},
		WaitingFor: wait.ForListeningPort("5432/tcp"),
	}
	pg, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}
	defer func() { _ = pg.Terminate(ctx) }()

	host, err := pg.Host(ctx)
	if err != nil {
		t.Fatalf("container host: %v", err)
	}
	port, err := pg.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("container port: %v", err)
	}

	dsn := "postgres://bankrouter:bankrouter@" + host + ":" + port.Port() + "/bankrouter?sslmode=disable"

	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		t.Fatalf("connect for schema setup: %v", err)
	}
	if _, err := conn.Exec(ctx, schemaDDL); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
	_ = conn.Close(ctx)

	ps, err := store.NewPgStore(ctx, dsn)
	if err != nil {
		t.Fatalf("connect pg store: %v", err)
	}

	banks, err := ps.DistinctBanks(ctx)
	if err != nil {
		t.Fatalf("distinct banks: %v", err)
	}
	if len(banks) != 2 {
		t.Fatalf("got %d banks, want 2: %v", len(banks), banks)
	}

	count, err := ps.Count(ctx, "SBI", "Credit Card", "")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("got count %d, want 1", count)
	}
}
