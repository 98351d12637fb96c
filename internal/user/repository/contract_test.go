package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlibekovAA/defis-users/internal/common/clock"
	"github.com/AlibekovAA/defis-users/internal/user/domain"
)

// repoFactory returns an empty, migrated repository. unique toggles the
// username unique index.
type repoFactory func(t *testing.T, opts Options, unique bool) Repository

var baseTime = time.Date(2024, 3, 1, 10, 0, 0, 123456789, time.UTC)

func runRepositoryContract(t *testing.T, newRepo repoFactory) {
	ctx := context.Background()

	fresh := func(t *testing.T) (Repository, *clock.MockClock) {
		clk := clock.NewMockClock(baseTime)
		return newRepo(t, Options{Clock: clk}, false), clk
	}

	t.Run("save assigns id and timestamps", func(t *testing.T) {
		repo, _ := fresh(t)

		saved, err := repo.Save(ctx, domain.User{Username: "alice", Email: "alice@example.com"})
		require.NoError(t, err)
		assert.NotZero(t, saved.ID)
		assert.Equal(t, baseTime.Truncate(time.Microsecond), saved.CreatedAt)
		assert.Equal(t, saved.CreatedAt, saved.UpdatedAt)

		found, err := repo.FindByID(ctx, saved.ID)
		require.NoError(t, err)
		assert.Equal(t, saved, found)
	})

	t.Run("ids are distinct", func(t *testing.T) {
		repo, _ := fresh(t)

		a, err := repo.Save(ctx, domain.User{Username: "a"})
		require.NoError(t, err)
		b, err := repo.Save(ctx, domain.User{Username: "b"})
		require.NoError(t, err)
		assert.NotEqual(t, a.ID, b.ID)
	})

	t.Run("update keeps created_at and bumps updated_at", func(t *testing.T) {
		repo, clk := fresh(t)

		saved, err := repo.Save(ctx, domain.User{Username: "alice"})
		require.NoError(t, err)

		clk.Advance(time.Minute)
		saved.Username = "alice2"
		updated, err := repo.Save(ctx, saved)
		require.NoError(t, err)

		assert.Equal(t, saved.ID, updated.ID)
		assert.Equal(t, saved.CreatedAt, updated.CreatedAt)
		assert.Equal(t, saved.CreatedAt.Add(time.Minute), updated.UpdatedAt)

		n, err := repo.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		found, err := repo.FindByID(ctx, saved.ID)
		require.NoError(t, err)
		assert.Equal(t, "alice2", found.Username)
	})

	t.Run("update overwrites existing row", func(t *testing.T) {
		repo, clk := fresh(t)

		saved, err := repo.Save(ctx, domain.User{Username: "alice"})
		require.NoError(t, err)

		clk.Advance(time.Second)
		updated, err := repo.Update(ctx, domain.User{ID: saved.ID, Username: "alice2", Email: "a2@example.com"})
		require.NoError(t, err)
		assert.Equal(t, saved.CreatedAt, updated.CreatedAt)
		assert.Equal(t, saved.CreatedAt.Add(time.Second), updated.UpdatedAt)

		found, err := repo.FindByID(ctx, saved.ID)
		require.NoError(t, err)
		assert.Equal(t, updated, found)
	})

	t.Run("update of missing id never inserts", func(t *testing.T) {
		repo, _ := fresh(t)

		saved, err := repo.Save(ctx, domain.User{Username: "alice"})
		require.NoError(t, err)
		require.NoError(t, repo.DeleteByID(ctx, saved.ID))

		_, err = repo.Update(ctx, domain.User{ID: saved.ID, Username: "alice2"})
		assert.ErrorIs(t, err, ErrUserNotFound)
		_, err = repo.Update(ctx, domain.User{Username: "nobody"})
		assert.ErrorIs(t, err, ErrUserNotFound)

		n, err := repo.Count(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("find page", func(t *testing.T) {
		repo, _ := fresh(t)

		saved, err := repo.SaveAll(ctx, []domain.User{{Username: "a"}, {Username: "b"}, {Username: "c"}, {Username: "d"}})
		require.NoError(t, err)

		page, err := repo.FindPage(ctx, 1, 2)
		require.NoError(t, err)
		assert.Equal(t, saved[1:3], page)

		page, err = repo.FindPage(ctx, 3, 10)
		require.NoError(t, err)
		assert.Equal(t, saved[3:], page)

		page, err = repo.FindPage(ctx, 10, 10)
		require.NoError(t, err)
		assert.NotNil(t, page)
		assert.Empty(t, page)
	})

	t.Run("find by id missing", func(t *testing.T) {
		repo, _ := fresh(t)

		_, err := repo.FindByID(ctx, 4242)
		assert.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("find all by username exact match", func(t *testing.T) {
		repo, _ := fresh(t)

		var bobs []domain.User
		for _, u := range []domain.User{
			{Username: "bob", Email: "bob@example.com"},
			{Username: "Bob"},
			{Username: "bobby"},
			{Username: "bob", Email: "bob2@example.com"},
		} {
			saved, err := repo.Save(ctx, u)
			require.NoError(t, err)
			if saved.Username == "bob" {
				bobs = append(bobs, saved)
			}
		}

		users, err := repo.FindAllByUsername(ctx, "bob")
		require.NoError(t, err)
		assert.Equal(t, bobs, users)
	})

	t.Run("find all by username returns the stored record", func(t *testing.T) {
		repo, _ := fresh(t)

		alice, err := repo.Save(ctx, domain.User{Username: "alice", Email: "alice@example.com"})
		require.NoError(t, err)
		_, err = repo.Save(ctx, domain.User{Username: "bob", Email: "bob@example.com"})
		require.NoError(t, err)

		users, err := repo.FindAllByUsername(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, []domain.User{alice}, users)
	})

	t.Run("find all by username no match is empty", func(t *testing.T) {
		repo, _ := fresh(t)

		users, err := repo.FindAllByUsername(ctx, "ghost")
		require.NoError(t, err)
		assert.NotNil(t, users)
		assert.Empty(t, users)

		users, err = repo.FindAllByUsername(ctx, "")
		require.NoError(t, err)
		assert.Empty(t, users)
	})

	t.Run("username lookup tracks renames", func(t *testing.T) {
		repo, _ := fresh(t)

		u, err := repo.Save(ctx, domain.User{Username: "carol"})
		require.NoError(t, err)
		u.Username = "caroline"
		_, err = repo.Save(ctx, u)
		require.NoError(t, err)

		old, err := repo.FindAllByUsername(ctx, "carol")
		require.NoError(t, err)
		assert.Empty(t, old)

		renamed, err := repo.FindAllByUsername(ctx, "caroline")
		require.NoError(t, err)
		require.Len(t, renamed, 1)
		assert.Equal(t, u.ID, renamed[0].ID)
	})

	t.Run("find all and find all by id", func(t *testing.T) {
		repo, _ := fresh(t)

		all, err := repo.FindAll(ctx)
		require.NoError(t, err)
		assert.NotNil(t, all)
		assert.Empty(t, all)

		saved, err := repo.SaveAll(ctx, []domain.User{{Username: "a"}, {Username: "b"}, {Username: "c"}})
		require.NoError(t, err)
		require.Len(t, saved, 3)

		all, err = repo.FindAll(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 3)

		some, err := repo.FindAllByID(ctx, []domain.ID{saved[0].ID, saved[2].ID, 9999})
		require.NoError(t, err)
		require.Len(t, some, 2)
		assert.Equal(t, saved[0].ID, some[0].ID)
		assert.Equal(t, saved[2].ID, some[1].ID)

		none, err := repo.FindAllByID(ctx, nil)
		require.NoError(t, err)
		assert.NotNil(t, none)
		assert.Empty(t, none)
	})

	t.Run("count and exists", func(t *testing.T) {
		repo, _ := fresh(t)

		u, err := repo.Save(ctx, domain.User{Username: "dave"})
		require.NoError(t, err)

		ok, err := repo.ExistsByID(ctx, u.ID)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = repo.ExistsByID(ctx, u.ID+100)
		require.NoError(t, err)
		assert.False(t, ok)

		n, err := repo.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("delete removes and tolerates missing", func(t *testing.T) {
		repo, _ := fresh(t)

		u, err := repo.Save(ctx, domain.User{Username: "erin"})
		require.NoError(t, err)
		other, err := repo.Save(ctx, domain.User{Username: "erin"})
		require.NoError(t, err)

		require.NoError(t, repo.DeleteByID(ctx, u.ID))
		require.NoError(t, repo.DeleteByID(ctx, u.ID))
		require.NoError(t, repo.Delete(ctx, domain.User{Username: "never saved"}))

		_, err = repo.FindByID(ctx, u.ID)
		assert.ErrorIs(t, err, ErrUserNotFound)

		left, err := repo.FindAllByUsername(ctx, "erin")
		require.NoError(t, err)
		require.Len(t, left, 1)
		assert.Equal(t, other.ID, left[0].ID)

		require.NoError(t, repo.Delete(ctx, other))
		require.NoError(t, repo.DeleteAll(ctx))
		n, err := repo.Count(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("upsert inserts unknown id as new row", func(t *testing.T) {
		repo, _ := fresh(t)

		saved, err := repo.Save(ctx, domain.User{ID: 777, Username: "frank"})
		require.NoError(t, err)
		assert.NotZero(t, saved.ID)

		found, err := repo.FindByID(ctx, saved.ID)
		require.NoError(t, err)
		assert.Equal(t, "frank", found.Username)
	})

	t.Run("strict mode rejects unknown id", func(t *testing.T) {
		repo := newRepo(t, Options{Clock: clock.NewMockClock(baseTime), SaveMode: domain.SaveModeStrict}, false)

		_, err := repo.Save(ctx, domain.User{ID: 777, Username: "frank"})
		assert.ErrorIs(t, err, ErrUserNotFound)

		n, err := repo.Count(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)

		saved, err := repo.Save(ctx, domain.User{Username: "frank"})
		require.NoError(t, err)
		saved.Email = "frank@example.com"
		_, err = repo.Save(ctx, saved)
		assert.NoError(t, err)
	})

	t.Run("unique usernames when enabled", func(t *testing.T) {
		repo := newRepo(t, Options{Clock: clock.NewMockClock(baseTime)}, true)

		first, err := repo.Save(ctx, domain.User{Username: "grace"})
		require.NoError(t, err)

		_, err = repo.Save(ctx, domain.User{Username: "grace"})
		assert.True(t, errors.Is(err, ErrUsernameAlreadyExists), "got %v", err)

		second, err := repo.Save(ctx, domain.User{Username: "heidi"})
		require.NoError(t, err)
		second.Username = first.Username
		_, err = repo.Save(ctx, second)
		assert.ErrorIs(t, err, ErrUsernameAlreadyExists)
	})

	t.Run("save all is atomic", func(t *testing.T) {
		repo := newRepo(t, Options{Clock: clock.NewMockClock(baseTime)}, true)

		_, err := repo.SaveAll(ctx, []domain.User{{Username: "ivan"}, {Username: "judy"}, {Username: "ivan"}})
		assert.ErrorIs(t, err, ErrUsernameAlreadyExists)

		n, err := repo.Count(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)

		empty, err := repo.SaveAll(ctx, nil)
		require.NoError(t, err)
		assert.NotNil(t, empty)
		assert.Empty(t, empty)
	})
}
