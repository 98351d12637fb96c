package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgconn"
	pgx "github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/AlibekovAA/defis-users/internal/common/clock"
	"github.com/AlibekovAA/defis-users/internal/common/db"
	"github.com/AlibekovAA/defis-users/internal/observability/metrics"
	"github.com/AlibekovAA/defis-users/internal/user/domain"
)

const pgUniqueViolation = "23505"

type PgRepository struct {
	pool *pgxpool.Pool
	opts Options
}

func NewPgRepository(pool *pgxpool.Pool, opts Options) *PgRepository {
	return &PgRepository{pool: pool, opts: opts.withDefaults()}
}

func (r *PgRepository) Save(ctx context.Context, user domain.User) (domain.User, error) {
	return r.save(ctx, r.pool, user, r.opts.SaveMode)
}

func (r *PgRepository) Update(ctx context.Context, user domain.User) (domain.User, error) {
	if user.IsNew() {
		return domain.User{}, ErrUserNotFound
	}
	return r.save(ctx, r.pool, user, domain.SaveModeStrict)
}

func (r *PgRepository) SaveAll(ctx context.Context, users []domain.User) ([]domain.User, error) {
	saved := make([]domain.User, 0, len(users))
	if len(users) == 0 {
		return saved, nil
	}

	err := db.WithPgTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
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

func (r *PgRepository) save(ctx context.Context, q db.PgQuerier, user domain.User, mode domain.SaveMode) (domain.User, error) {
	now := clock.StorageNow(r.opts.Clock)

	if !user.IsNew() {
		start := time.Now()
		var createdAt time.Time
		err := q.QueryRow(
			ctx,
			`UPDATE users SET username = $2, email = $3, updated_at = $4 WHERE id = $1 RETURNING created_at`,
			int64(user.ID),
			user.Username,
			user.Email,
			now,
		).Scan(&createdAt)
		switch {
		case err == nil:
			db.MeasureQueryDuration(db.StorePostgres, "update user", start)
			metrics.UsersSavedTotal.WithLabelValues(string(db.StorePostgres), "update").Inc()
			user.CreatedAt = createdAt
			user.UpdatedAt = now
			return normalize(user), nil
		case !db.IsNoRows(err):
			return domain.User{}, r.writeError(err, "update user", start)
		}
		db.MeasureQueryDuration(db.StorePostgres, "update user", start)
		if mode == domain.SaveModeStrict {
			return domain.User{}, ErrUserNotFound
		}
	}

	start := time.Now()
	var id int64
	err := q.QueryRow(
		ctx,
		`INSERT INTO users (username, email, created_at, updated_at) VALUES ($1, $2, $3, $3) RETURNING id`,
		user.Username,
		user.Email,
		now,
	).Scan(&id)
	if err != nil {
		return domain.User{}, r.writeError(err, "insert user", start)
	}
	db.MeasureQueryDuration(db.StorePostgres, "insert user", start)
	metrics.UsersSavedTotal.WithLabelValues(string(db.StorePostgres), "insert").Inc()

	user.ID = domain.ID(id)
	user.CreatedAt = now
	user.UpdatedAt = now
	return user, nil
}

func (r *PgRepository) writeError(err error, operation string, start time.Time) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		db.MeasureQueryDuration(db.StorePostgres, operation, start)
		return fmt.Errorf("%w: %w", ErrUsernameAlreadyExists, err)
	}
	return db.HandleExecError(db.StorePostgres, err, operation, start)
}

func (r *PgRepository) FindByID(ctx context.Context, id domain.ID) (domain.User, error) {
	start := time.Now()
	row := r.pool.QueryRow(
		ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`,
		int64(id),
	)

	user, err := scanPgUser(row)
	if err := db.HandleQueryError(db.StorePostgres, err, ErrUserNotFound, "find user by id", start); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

func (r *PgRepository) FindAll(ctx context.Context) ([]domain.User, error) {
	return r.queryUsers(ctx, "find all users", `SELECT `+userColumns+` FROM users ORDER BY id ASC`)
}

func (r *PgRepository) FindPage(ctx context.Context, offset, limit int) ([]domain.User, error) {
	return r.queryUsers(
		ctx,
		"find users page",
		`SELECT `+userColumns+` FROM users ORDER BY id ASC LIMIT $1 OFFSET $2`,
		limit,
		offset,
	)
}

func (r *PgRepository) FindAllByID(ctx context.Context, ids []domain.ID) ([]domain.User, error) {
	if len(ids) == 0 {
		return []domain.User{}, nil
	}
	return r.queryUsers(
		ctx,
		"find users by id",
		`SELECT `+userColumns+` FROM users WHERE id = ANY($1) ORDER BY id ASC`,
		idsToInt64(ids),
	)
}

func (r *PgRepository) FindAllByUsername(ctx context.Context, username string) ([]domain.User, error) {
	users, err := r.queryUsers(
		ctx,
		"find users by username",
		`SELECT `+userColumns+` FROM users WHERE username = $1 ORDER BY id ASC`,
		username,
	)
	if err != nil {
		return nil, err
	}
	metrics.UsernameLookupsTotal.WithLabelValues(string(db.StorePostgres), lookupResult(users)).Inc()
	return users, nil
}

func (r *PgRepository) queryUsers(ctx context.Context, operation, query string, args ...interface{}) ([]domain.User, error) {
	start := time.Now()
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, db.HandleQueryError(db.StorePostgres, err, nil, operation, start)
	}
	defer rows.Close()

	users := []domain.User{}
	for rows.Next() {
		u, err := scanPgUser(rows)
		if err != nil {
			return nil, db.HandleQueryError(db.StorePostgres, err, nil, operation, start)
		}
		users = append(users, u)
	}

	if err := db.HandleQueryError(db.StorePostgres, rows.Err(), nil, operation, start); err != nil {
		return nil, err
	}
	return users, nil
}

func (r *PgRepository) Count(ctx context.Context) (int64, error) {
	start := time.Now()
	var n int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	if err := db.HandleQueryError(db.StorePostgres, err, nil, "count users", start); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *PgRepository) ExistsByID(ctx context.Context, id domain.ID) (bool, error) {
	start := time.Now()
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, int64(id)).Scan(&exists)
	if err := db.HandleQueryError(db.StorePostgres, err, nil, "check user exists", start); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *PgRepository) DeleteByID(ctx context.Context, id domain.ID) error {
	start := time.Now()
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, int64(id))
	if err := db.HandleExecError(db.StorePostgres, err, "delete user", start); err != nil {
		return err
	}
	metrics.UsersDeletedTotal.WithLabelValues(string(db.StorePostgres)).Add(float64(tag.RowsAffected()))
	return nil
}

func (r *PgRepository) Delete(ctx context.Context, user domain.User) error {
	if user.IsNew() {
		return nil
	}
	return r.DeleteByID(ctx, user.ID)
}

func (r *PgRepository) DeleteAll(ctx context.Context) error {
	start := time.Now()
	tag, err := r.pool.Exec(ctx, `DELETE FROM users`)
	if err := db.HandleExecError(db.StorePostgres, err, "delete all users", start); err != nil {
		return err
	}
	metrics.UsersDeletedTotal.WithLabelValues(string(db.StorePostgres)).Add(float64(tag.RowsAffected()))
	return nil
}

func scanPgUser(row rowScanner) (domain.User, error) {
	var (
		id   int64
		user domain.User
	)
	if err := row.Scan(&id, &user.Username, &user.Email, &user.CreatedAt, &user.UpdatedAt); err != nil {
		return domain.User{}, err
	}
	user.ID = domain.ID(id)
	return normalize(user), nil
}
