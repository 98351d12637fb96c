package repository

import (
	"context"
	"errors"

	"github.com/AlibekovAA/defis-users/internal/common/clock"
	"github.com/AlibekovAA/defis-users/internal/user/domain"
)

// Repository is the persistence capability set for users. FindAll* and
// FindPage return an empty, non-nil slice when nothing matches.
type Repository interface {
	Save(ctx context.Context, user domain.User) (domain.User, error)
	SaveAll(ctx context.Context, users []domain.User) ([]domain.User, error)
	// Update overwrites an existing row and returns ErrUserNotFound when the
	// ID has no row, whatever the configured SaveMode.
	Update(ctx context.Context, user domain.User) (domain.User, error)
	FindByID(ctx context.Context, id domain.ID) (domain.User, error)
	FindAll(ctx context.Context) ([]domain.User, error)
	// FindPage returns at most limit users ordered by ID, skipping offset.
	FindPage(ctx context.Context, offset, limit int) ([]domain.User, error)
	FindAllByID(ctx context.Context, ids []domain.ID) ([]domain.User, error)
	FindAllByUsername(ctx context.Context, username string) ([]domain.User, error)
	Count(ctx context.Context) (int64, error)
	ExistsByID(ctx context.Context, id domain.ID) (bool, error)
	DeleteByID(ctx context.Context, id domain.ID) error
	Delete(ctx context.Context, user domain.User) error
	DeleteAll(ctx context.Context) error
}

type Options struct {
	Clock    clock.Clock
	SaveMode domain.SaveMode
}

func (o Options) withDefaults() Options {
	if o.Clock == nil {
		o.Clock = clock.NewRealClock()
	}
	if o.SaveMode == "" {
		o.SaveMode = domain.SaveModeUpsert
	}
	return o
}

const userColumns = `id, username, email, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func lookupResult(users []domain.User) string {
	if len(users) == 0 {
		return "miss"
	}
	return "hit"
}

func normalize(u domain.User) domain.User {
	u.CreatedAt = u.CreatedAt.UTC()
	u.UpdatedAt = u.UpdatedAt.UTC()
	return u
}

func idsToInt64(ids []domain.ID) []int64 {
	out := make([]int64, len(ids))
	for i, id := range ids {
		out[i] = int64(id)
	}
	return out
}

var (
	ErrUserNotFound          = errors.New("user not found")
	ErrUsernameAlreadyExists = errors.New("username already exists")
)

