package db

import (
	"context"
	"database/sql"
	"time"
)

const (
	createUsernameUniqueIndex = `CREATE UNIQUE INDEX IF NOT EXISTS users_username_key ON users (username)`
	dropUsernameUniqueIndex   = `DROP INDEX IF EXISTS users_username_key`
)

// ApplyUsernameConstraint makes username uniqueness follow configuration.
// Enabling it fails while duplicate usernames are stored.
func ApplyUsernameConstraint(ctx context.Context, store Store, sqlDB *sql.DB, unique bool) error {
	stmt := dropUsernameUniqueIndex
	operation := "drop username unique index"
	if unique {
		stmt = createUsernameUniqueIndex
		operation = "create username unique index"
	}

	start := time.Now()
	_, err := sqlDB.ExecContext(ctx, stmt)
	return HandleExecError(store, err, operation, start)
}
