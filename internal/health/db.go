package health

import (
	"context"
	"database/sql"
)

// DBChecker pings the post store's database.
type DBChecker struct {
	db *sql.DB
}

// NewDBChecker creates a new database health checker.
func NewDBChecker(db *sql.DB) *DBChecker {
	return &DBChecker{db: db}
}

// Name implements Checker.
func (d *DBChecker) Name() string { return "database" }

// HealthCheck pings the database within ctx.
func (d *DBChecker) HealthCheck(ctx context.Context) error {
	return d.db.PingContext(ctx)
}
