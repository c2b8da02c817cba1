// Package database provides SQLite connectivity for Storefront Core.
//
// It wraps database/sql with:
//   - WAL mode and busy-timeout configuration
//   - A single-writer connection pool (SQLite's concurrency model)
//   - Embedded SQL migrations with per-migration transactions
//   - Health checks for readiness probes
//
// Migrations are registered by the top-level migrations package via
// MigrationsFS and applied at startup with DB.Migrate.
package database
