// Package pgstore persists user subscriptions in PostgreSQL using pgx/v5.
//
// The schema lives in the repository's migrations directory and is applied
// with pkg/pg.Migrate at startup. Correctness under concurrency comes from
// the service's per-user locking, not from database transactions: every row
// write here is a single upsert.
package pgstore
