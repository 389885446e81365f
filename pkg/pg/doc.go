// Package pg bootstraps the PostgreSQL layer: a pgx/v5 connection pool with
// retrying startup, goose schema migrations, and a health check closure.
//
// Config is populated from environment variables (github.com/caarlos0/env)
// so pool sizing and the migrations path can be tuned per deployment. Connect
// retries with a growing backoff until the database answers, which keeps
// container restarts from flapping when Postgres comes up slower than the app.
//
// Typical startup:
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, cfg, slog.Default()); err != nil {
//		return err
//	}
package pg
