package health

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/lib/pq"
)

func TestDBChecker(t *testing.T) {
	conn, err := sql.Open("postgres", "postgres://u:p@127.0.0.1:1/db?sslmode=disable&connect_timeout=1")
	if err != nil {
		t.Fatalf("sql.Open() error = %v", err)
	}
	defer conn.Close()

	checker := NewDBChecker(conn)
	if checker.Name() != "database" {
		t.Errorf("Name() = %q, want database", checker.Name())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := checker.HealthCheck(ctx); err == nil {
		t.Error("expected error for unreachable database")
	}
}
