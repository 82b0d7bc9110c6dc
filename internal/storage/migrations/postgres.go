package migrations

import (
	"context"
	"fmt"

	"team-stock-exchange/internal/storage/postgres"
)

// RunPostgresMigrations creates the instrument document table. Every file
// is idempotent, so this runs on each start.
func RunPostgresMigrations(ctx context.Context, pool *postgres.Pool) error {
	files, err := load(PostgresFS, "postgres")
	if err != nil {
		return err
	}

	for _, m := range files {
		if _, err := pool.Exec(ctx, m.sql); err != nil {
			return fmt.Errorf("apply migration %s: %w", m.name, err)
		}
	}
	return nil
}
