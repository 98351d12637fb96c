package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/AlibekovAA/defis-users/internal/common/clock"
	"github.com/AlibekovAA/defis-users/internal/common/db"
	"github.com/AlibekovAA/defis-users/internal/observability/metrics"
	"github.com/AlibekovAA/defis-users/internal/user/domain"
)

// sqliteTimeLayout matches the driver's own write format so values read back
// identically whether the driver or sqliteTime does the parsing.
const sqliteTimeLayout = "2006-01-02 15:04:05.999999999-07:00"

type SQLiteRepository struct {
	db   *sql.DB
	opts Options
}

func NewSQLiteRepository(sqlDB *sql.DB, opts Options) *SQLiteRepository {
	return &SQLiteRepository{db: sqlDB, opts: opts.withDefaults()}
}

func (r *SQLiteRepository) Save(ctx context.Context, user domain.User) (domain.User, error) {
	return r.saveInTx(ctx, user, r.opts.SaveMode)
}

func (r *SQLiteRepository) Update(ctx context.Context, user domain.User) (domain.User, error) {
	if user.IsNew() {
		return domain.User{}, ErrUserNotFound
	}
	return r.saveInTx(ctx, user, domain.SaveModeStrict)
}

func (r *SQLiteRepository) saveInTx(ctx context.Context, user domain.User, mode domain.SaveMode) (domain.User, error) {
	var saved domain.User
	err := db.WithSQLTx(ctx, r.db, func(ctx context.Context, tx *sql.Tx) error {
		var err error
		saved, err = r.save(ctx, tx, user, mode)
		return err
	})
	if err != nil {
		return domain.User{}, err
	}
	return saved, nil
}

func (r *SQLiteRepository) SaveAll(ctx context.Context, users []domain.User) ([]domain.User, error) {
	saved := make([]domain.User, 0, len(users))
	if len(users) == 0 {
		return saved, nil
	}

	err := db.WithSQLTx(ctx, r.db, func(ctx context.Context, tx *sql.Tx) error {
		for _, u := range users {
			s, err := r.save(ctx, tx, u, r.opts.SaveMode)
			if err != nil {
				return err
			}
			saved = append(saved, s)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

func (r *SQLiteRepository) save(ctx context.Context, q db.SQLQuerier, user domain.User, mode domain.SaveMode) (domain.User, error) {
	now := clock.StorageNow(r.opts.Clock)

	if !user.IsNew() {
		start := time.Now()
		res, err := q.ExecContext(
			ctx,
			`UPDATE users SET username = ?, email = ?, updated_at = ? WHERE id = ?`,
			user.Username,
			user.Email,
			now.Format(sqliteTimeLayout),
			int64(user.ID),
		)
		if err != nil {
			return domain.User{}, r.writeError(err, "update user", start)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return domain.User{}, db.HandleExecError(db.StoreSQLite, err, "update user", start)
		}
		db.MeasureQueryDuration(db.StoreSQLite, "update user", start)

		if affected > 0 {
			var createdAt sqliteTime
			start = time.Now()
			err := q.QueryRowContext(ctx, `SELECT created_at FROM users WHERE id = ?`, int64(user.ID)).Scan(&createdAt)
			if err := db.HandleQueryError(db.StoreSQLite, err, nil, "find user by id", start); err != nil {
				return domain.User{}, err
			}
			metrics.UsersSavedTotal.WithLabelValues(string(db.StoreSQLite), "update").Inc()
			user.CreatedAt = createdAt.Time
			user.UpdatedAt = now
			return normalize(user), nil
		}

		if mode == domain.SaveModeStrict {
			return domain.User{}, ErrUserNotFound
		}
	}

	start := time.Now()
	res, err := q.ExecContext(
		ctx,
		`INSERT INTO users (username, email, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		user.Username,
		user.Email,
		now.Format(sqliteTimeLayout),
		now.Format(sqliteTimeLayout),
	)
	if err != nil {
		return domain.User{}, r.writeError(err, "insert user", start)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.User{}, db.HandleExecError(db.StoreSQLite, err, "insert user", start)
	}
	db.MeasureQueryDuration(db.StoreSQLite, "insert user", start)
	metrics.UsersSavedTotal.WithLabelValues(string(db.StoreSQLite), "insert").Inc()

	user.ID = domain.ID(id)
	user.CreatedAt = now
	user.UpdatedAt = now
	return user, nil
}

func (r *SQLiteRepository) writeError(err error, operation string, start time.Time) error {
	if isSQLiteUniqueViolation(err) {
		db.MeasureQueryDuration(db.StoreSQLite, operation, start)
		return fmt.Errorf("%w: %w", ErrUsernameAlreadyExists, err)
	}
	return db.HandleExecError(db.StoreSQLite, err, operation, start)
}

func isSQLiteUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	code := se.Code()
	if code == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
		return true
	}
	return code&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(se.Error(), "UNIQUE")
}

func (r *SQLiteRepository) FindByID(ctx context.Context, id domain.ID) (domain.User, error) {
	start := time.Now()
	row := r.db.QueryRowContext(
		ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`,
		int64(id),
	)

	user, err := scanSQLiteUser(row)
	if err := db.HandleQueryError(db.StoreSQLite, err, ErrUserNotFound, "find user by id", start); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

func (r *SQLiteRepository) FindAll(ctx context.Context) ([]domain.User, error) {
	return r.queryUsers(ctx, "find all users", `SELECT `+userColumns+` FROM users ORDER BY id ASC`)
}

func (r *SQLiteRepository) FindPage(ctx context.Context, offset, limit int) ([]domain.User, error) {
	return r.queryUsers(
		ctx,
		"find users page",
		`SELECT `+userColumns+` FROM users ORDER BY id ASC LIMIT ? OFFSET ?`,
		limit,
		offset,
	)
}

func (r *SQLiteRepository) FindAllByID(ctx context.Context, ids []domain.ID) ([]domain.User, error) {
	if len(ids) == 0 {
		return []domain.User{}, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = int64(id)
	}

	return r.queryUsers(
		ctx,
		"find users by id",
		`SELECT `+userColumns+` FROM users WHERE id IN (`+placeholders+`) ORDER BY id ASC`,
		args...,
	)
}

func (r *SQLiteRepository) FindAllByUsername(ctx context.Context, username string) ([]domain.User, error) {
	users, err := r.queryUsers(
		ctx,
		"find users by username",
		`SELECT `+userColumns+` FROM users WHERE username = ? ORDER BY id ASC`,
		username,
	)
	if err != nil {
		return nil, err
	}
	metrics.UsernameLookupsTotal.WithLabelValues(string(db.StoreSQLite), lookupResult(users)).Inc()
	return users, nil
}

func (r *SQLiteRepository) queryUsers(ctx context.Context, operation, query string, args ...any) ([]domain.User, error) {
	start := time.Now()
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, db.HandleQueryError(db.StoreSQLite, err, nil, operation, start)
	}
	defer rows.Close()

	users := []domain.User{}
	for rows.Next() {
		u, err := scanSQLiteUser(rows)
		if err != nil {
			return nil, db.HandleQueryError(db.StoreSQLite, err, nil, operation, start)
		}
		users = append(users, u)
	}

	if err := db.HandleQueryError(db.StoreSQLite, rows.Err(), nil, operation, start); err != nil {
		return nil, err
	}
	return users, nil
}

func (r *SQLiteRepository) Count(ctx context.Context) (int64, error) {
	start := time.Now()
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	if err := db.HandleQueryError(db.StoreSQLite, err, nil, "count users", start); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *SQLiteRepository) ExistsByID(ctx context.Context, id domain.ID) (bool, error) {
	start := time.Now()
	var exists int64
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = ?)`, int64(id)).Scan(&exists)
	if err := db.HandleQueryError(db.StoreSQLite, err, nil, "check user exists", start); err != nil {
		return false, err
	}
	return exists == 1, nil
}

func (r *SQLiteRepository) DeleteByID(ctx context.Context, id domain.ID) error {
	return r.exec(ctx, "delete user", `DELETE FROM users WHERE id = ?`, int64(id))
}

func (r *SQLiteRepository) Delete(ctx context.Context, user domain.User) error {
	if user.IsNew() {
		return nil
	}
	return r.DeleteByID(ctx, user.ID)
}

func (r *SQLiteRepository) DeleteAll(ctx context.Context) error {
	return r.exec(ctx, "delete all users", `DELETE FROM users`)
}

func (r *SQLiteRepository) exec(ctx context.Context, operation, query string, args ...any) error {
	start := time.Now()
	res, err := r.db.ExecContext(ctx, query, args...)
	if err := db.HandleExecError(db.StoreSQLite, err, operation, start); err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil {
		metrics.UsersDeletedTotal.WithLabelValues(string(db.StoreSQLite)).Add(float64(n))
	}
	return nil
}

func scanSQLiteUser(row rowScanner) (domain.User, error) {
	var (
		id                   int64
		user                 domain.User
		createdAt, updatedAt sqliteTime
	)
	if err := row.Scan(&id, &user.Username, &user.Email, &createdAt, &updatedAt); err != nil {
		return domain.User{}, err
	}
	user.ID = domain.ID(id)
	user.CreatedAt = createdAt.Time
	user.UpdatedAt = updatedAt.Time
	return normalize(user), nil
}

// sqliteTime accepts DATETIME columns whether the driver hands them over
// parsed or as text.
type sqliteTime struct {
	time.Time
}

var sqliteReadLayouts = []string{
	sqliteTimeLayout,
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02T15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

func (t *sqliteTime) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		t.Time = v
		return nil
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	case nil:
		t.Time = time.Time{}
		return nil
	default:
		return fmt.Errorf("cannot scan %T into timestamp", src)
	}
}

func (t *sqliteTime) parse(s string) error {
	for _, layout := range sqliteReadLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("cannot parse timestamp %q", s)
}
