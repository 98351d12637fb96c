package service

import (
	"context"

	"github.com/AlibekovAA/defis-users/internal/user/domain"
	userrepo "github.com/AlibekovAA/defis-users/internal/user/repository"
)

type mockUserRepo struct {
	saveFunc              func(ctx context.Context, user domain.User) (domain.User, error)
	saveAllFunc           func(ctx context.Context, users []domain.User) ([]domain.User, error)
	updateFunc            func(ctx context.Context, user domain.User) (domain.User, error)
	findPageFunc          func(ctx context.Context, offset, limit int) ([]domain.User, error)
	findByIDFunc          func(ctx context.Context, id domain.ID) (domain.User, error)
	findAllFunc           func(ctx context.Context) ([]domain.User, error)
	findAllByIDFunc       func(ctx context.Context, ids []domain.ID) ([]domain.User, error)
	findAllByUsernameFunc func(ctx context.Context, username string) ([]domain.User, error)
	countFunc             func(ctx context.Context) (int64, error)
	existsByIDFunc        func(ctx context.Context, id domain.ID) (bool, error)
	deleteByIDFunc        func(ctx context.Context, id domain.ID) error
}

func (m *mockUserRepo) Save(ctx context.Context, user domain.User) (domain.User, error) {
	if m.saveFunc != nil {
		return m.saveFunc(ctx, user)
	}
	if user.IsNew() {
		user.ID = 1
	}
	return user, nil
}

func (m *mockUserRepo) SaveAll(ctx context.Context, users []domain.User) ([]domain.User, error) {
	if m.saveAllFunc != nil {
		return m.saveAllFunc(ctx, users)
	}
	return users, nil
}

func (m *mockUserRepo) Update(ctx context.Context, user domain.User) (domain.User, error) {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, user)
	}
	return domain.User{}, userrepo.ErrUserNotFound
}

func (m *mockUserRepo) FindPage(ctx context.Context, offset, limit int) ([]domain.User, error) {
	if m.findPageFunc != nil {
		return m.findPageFunc(ctx, offset, limit)
	}
	return []domain.User{}, nil
}

func (m *mockUserRepo) FindByID(ctx context.Context, id domain.ID) (domain.User, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return domain.User{}, userrepo.ErrUserNotFound
}

func (m *mockUserRepo) FindAll(ctx context.Context) ([]domain.User, error) {
	if m.findAllFunc != nil {
		return m.findAllFunc(ctx)
	}
	return []domain.User{}, nil
}

func (m *mockUserRepo) FindAllByID(ctx context.Context, ids []domain.ID) ([]domain.User, error) {
	if m.findAllByIDFunc != nil {
		return m.findAllByIDFunc(ctx, ids)
	}
	return []domain.User{}, nil
}

func (m *mockUserRepo) FindAllByUsername(ctx context.Context, username string) ([]domain.User, error) {
	if m.findAllByUsernameFunc != nil {
		return m.findAllByUsernameFunc(ctx, username)
	}
	return []domain.User{}, nil
}

func (m *mockUserRepo) Count(ctx context.Context) (int64, error) {
	if m.countFunc != nil {
		return m.countFunc(ctx)
	}
	return 0, nil
}

func (m *mockUserRepo) ExistsByID(ctx context.Context, id domain.ID) (bool, error) {
	if m.existsByIDFunc != nil {
		return m.existsByIDFunc(ctx, id)
	}
	return false, nil
}

func (m *mockUserRepo) DeleteByID(ctx context.Context, id domain.ID) error {
	if m.deleteByIDFunc != nil {
		return m.deleteByIDFunc(ctx, id)
	}
	return nil
}

func (m *mockUserRepo) Delete(ctx context.Context, user domain.User) error {
	return m.DeleteByID(ctx, user.ID)
}

func (m *mockUserRepo) DeleteAll(ctx context.Context) error {
	return nil
}
