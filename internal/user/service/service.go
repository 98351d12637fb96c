package service

import (
	"context"
	"errors"

	"github.com/AlibekovAA/defis-users/internal/common/constants"
	commonerrors "github.com/AlibekovAA/defis-users/internal/common/errors"
	"github.com/AlibekovAA/defis-users/internal/common/logger"
	"github.com/AlibekovAA/defis-users/internal/common/resilience"
	"github.com/AlibekovAA/defis-users/internal/user/domain"
	userrepo "github.com/AlibekovAA/defis-users/internal/user/repository"
)

type Service interface {
	Create(ctx context.Context, in UserInput) (domain.User, error)
	CreateBatch(ctx context.Context, in []UserInput) ([]domain.User, error)
	Update(ctx context.Context, id domain.ID, in UserInput) (domain.User, error)
	Get(ctx context.Context, id domain.ID) (domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
	ListPage(ctx context.Context, offset, limit int) ([]domain.User, error)
	ListByIDs(ctx context.Context, ids []domain.ID) ([]domain.User, error)
	FindByUsername(ctx context.Context, username string) ([]domain.User, error)
	Count(ctx context.Context) (int64, error)
	Exists(ctx context.Context, id domain.ID) (bool, error)
	Delete(ctx context.Context, id domain.ID) error
}

type UserService struct {
	repo      userrepo.Repository
	breaker   *resilience.CircuitBreaker
	validator InputValidator
	log       *logger.Logger
}

type Config struct {
	Breaker *resilience.CircuitBreaker
}

func NewUserService(repo userrepo.Repository, cfg Config, log *logger.Logger) *UserService {
	breaker := cfg.Breaker
	if breaker == nil {
		breaker = NewRepositoryBreaker(resilience.CircuitBreakerConfig{
			Threshold:  constants.DefaultCircuitBreakerThreshold,
			Timeout:    constants.DefaultCircuitBreakerTimeout,
			ResetAfter: constants.DefaultCircuitBreakerReset,
			Name:       "users_repository",
			Logger:     log,
		})
	}
	return &UserService{
		repo:      repo,
		breaker:   breaker,
		validator: NewInputValidator(),
		log:       log,
	}
}

// NewRepositoryBreaker builds a circuit breaker that ignores not-found and
// conflict outcomes.
func NewRepositoryBreaker(cfg resilience.CircuitBreakerConfig) *resilience.CircuitBreaker {
	cfg.IsFailure = countsAsFailure
	return resilience.NewCircuitBreaker(cfg)
}

func (s *UserService) call(ctx context.Context, fn func(context.Context) error) error {
	return mapRepositoryError(s.breaker.Call(ctx, fn))
}

func (s *UserService) Create(ctx context.Context, in UserInput) (domain.User, error) {
	if err := s.validator.Validate(in); err != nil {
		s.log.WithFields(ctx, logger.Fields{
			"username": in.Username,
			"action":   "create_user_invalid",
		}).Warnf("create user failed: %v", err)
		return domain.User{}, err
	}

	var saved domain.User
	err := s.call(ctx, func(ctx context.Context) error {
		var err error
		saved, err = s.repo.Save(ctx, domain.User{Username: in.Username, Email: in.Email})
		return err
	})
	if err != nil {
		s.logWriteError(ctx, "create_user", in.Username, err)
		return domain.User{}, err
	}

	s.log.WithFields(ctx, logger.Fields{
		"user_id": saved.ID,
		"action":  "user_created",
	}).Info("user created")
	return saved, nil
}

func (s *UserService) CreateBatch(ctx context.Context, in []UserInput) ([]domain.User, error) {
	if len(in) == 0 {
		return []domain.User{}, nil
	}
	if len(in) > constants.MaxBatchSize {
		s.log.WithFields(ctx, logger.Fields{
			"batch_size": len(in),
			"action":     "create_users_batch_too_large",
		}).Warn("create users failed: batch too large")
		return nil, commonerrors.ErrBatchTooLarge
	}

	users := make([]domain.User, 0, len(in))
	for i, item := range in {
		if err := s.validator.Validate(item); err != nil {
			s.log.WithFields(ctx, logger.Fields{
				"index":  i,
				"action": "create_users_invalid",
			}).Warnf("create users failed: %v", err)
			return nil, err
		}
		users = append(users, domain.User{Username: item.Username, Email: item.Email})
	}

	var saved []domain.User
	err := s.call(ctx, func(ctx context.Context) error {
		var err error
		saved, err = s.repo.SaveAll(ctx, users)
		return err
	})
	if err != nil {
		s.logWriteError(ctx, "create_users", "", err)
		return nil, err
	}

	s.log.WithFields(ctx, logger.Fields{
		"count":  len(saved),
		"action": "users_created",
	}).Info("users created")
	return saved, nil
}

func (s *UserService) Update(ctx context.Context, id domain.ID, in UserInput) (domain.User, error) {
	if id <= 0 {
		return domain.User{}, commonerrors.ErrInvalidUserID
	}
	if err := s.validator.Validate(in); err != nil {
		s.log.WithFields(ctx, logger.Fields{
			"user_id": id,
			"action":  "update_user_invalid",
		}).Warnf("update user failed: %v", err)
		return domain.User{}, err
	}

	var saved domain.User
	err := s.call(ctx, func(ctx context.Context) error {
		var err error
		saved, err = s.repo.Update(ctx, domain.User{ID: id, Username: in.Username, Email: in.Email})
		return err
	})
	if err != nil {
		s.logWriteError(ctx, "update_user", in.Username, err)
		return domain.User{}, err
	}

	s.log.WithFields(ctx, logger.Fields{
		"user_id": saved.ID,
		"action":  "user_updated",
	}).Info("user updated")
	return saved, nil
}

func (s *UserService) Get(ctx context.Context, id domain.ID) (domain.User, error) {
	if id <= 0 {
		return domain.User{}, commonerrors.ErrInvalidUserID
	}

	var user domain.User
	err := s.call(ctx, func(ctx context.Context) error {
		var err error
		user, err = s.repo.FindByID(ctx, id)
		return err
	})
	if err != nil {
		s.logReadError(ctx, "get_user", logger.Fields{"user_id": id}, err)
		return domain.User{}, err
	}
	return user, nil
}

func (s *UserService) List(ctx context.Context) ([]domain.User, error) {
	var users []domain.User
	err := s.call(ctx, func(ctx context.Context) error {
		var err error
		users, err = s.repo.FindAll(ctx)
		return err
	})
	if err != nil {
		s.logReadError(ctx, "list_users", logger.Fields{}, err)
		return nil, err
	}
	return users, nil
}

// ListPage returns up to limit users ordered by ID starting at offset. A zero
// limit means constants.DefaultPageSize.
func (s *UserService) ListPage(ctx context.Context, offset, limit int) ([]domain.User, error) {
	if limit == 0 {
		limit = constants.DefaultPageSize
	}
	if offset < 0 || limit < 0 || limit > constants.MaxPageSize {
		return nil, commonerrors.ErrInvalidPage
	}

	var users []domain.User
	err := s.call(ctx, func(ctx context.Context) error {
		var err error
		users, err = s.repo.FindPage(ctx, offset, limit)
		return err
	})
	if err != nil {
		s.logReadError(ctx, "list_users_page", logger.Fields{"offset": offset, "limit": limit}, err)
		return nil, err
	}
	return users, nil
}

func (s *UserService) ListByIDs(ctx context.Context, ids []domain.ID) ([]domain.User, error) {
	if len(ids) > constants.MaxBatchSize {
		return nil, commonerrors.ErrBatchTooLarge
	}

	var users []domain.User
	err := s.call(ctx, func(ctx context.Context) error {
		var err error
		users, err = s.repo.FindAllByID(ctx, ids)
		return err
	})
	if err != nil {
		s.logReadError(ctx, "list_users_by_id", logger.Fields{"ids": len(ids)}, err)
		return nil, err
	}
	return users, nil
}

func (s *UserService) FindByUsername(ctx context.Context, username string) ([]domain.User, error) {
	if username == "" {
		return nil, commonerrors.ErrEmptyQuery
	}

	s.log.WithFields(ctx, logger.Fields{
		"username": username,
		"action":   "find_users_by_username",
	}).Debug("username lookup requested")

	var users []domain.User
	err := s.call(ctx, func(ctx context.Context) error {
		var err error
		users, err = s.repo.FindAllByUsername(ctx, username)
		return err
	})
	if err != nil {
		s.logReadError(ctx, "find_users_by_username", logger.Fields{"username": username}, err)
		return nil, err
	}
	return users, nil
}

func (s *UserService) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.call(ctx, func(ctx context.Context) error {
		var err error
		n, err = s.repo.Count(ctx)
		return err
	})
	if err != nil {
		s.logReadError(ctx, "count_users", logger.Fields{}, err)
		return 0, err
	}
	return n, nil
}

func (s *UserService) Exists(ctx context.Context, id domain.ID) (bool, error) {
	if id <= 0 {
		return false, commonerrors.ErrInvalidUserID
	}

	var ok bool
	err := s.call(ctx, func(ctx context.Context) error {
		var err error
		ok, err = s.repo.ExistsByID(ctx, id)
		return err
	})
	if err != nil {
		s.logReadError(ctx, "user_exists", logger.Fields{"user_id": id}, err)
		return false, err
	}
	return ok, nil
}

func (s *UserService) Delete(ctx context.Context, id domain.ID) error {
	if id <= 0 {
		return commonerrors.ErrInvalidUserID
	}

	err := s.call(ctx, func(ctx context.Context) error {
		return s.repo.DeleteByID(ctx, id)
	})
	if err != nil {
		s.log.WithFields(ctx, logger.Fields{
			"user_id": id,
			"action":  "delete_user_failed",
		}).Errorf("delete user failed: %v", err)
		return err
	}

	s.log.WithFields(ctx, logger.Fields{
		"user_id": id,
		"action":  "user_deleted",
	}).Info("user deleted")
	return nil
}

func (s *UserService) logWriteError(ctx context.Context, action, username string, err error) {
	fields := logger.Fields{"action": action + "_failed"}
	if username != "" {
		fields["username"] = username
	}

	switch {
	case errors.Is(err, commonerrors.ErrUsernameAlreadyExists):
		fields["action"] = action + "_conflict"
		s.log.WithFields(ctx, fields).Warn("write rejected: username already exists")
	case errors.Is(err, commonerrors.ErrUserNotFound):
		fields["action"] = action + "_not_found"
		s.log.WithFields(ctx, fields).Warn("write rejected: user not found")
	default:
		s.log.WithFields(ctx, fields).Errorf("write failed: %v", err)
	}
}

func (s *UserService) logReadError(ctx context.Context, action string, fields logger.Fields, err error) {
	if errors.Is(err, commonerrors.ErrUserNotFound) {
		fields["action"] = action + "_not_found"
		s.log.WithFields(ctx, fields).Debug("user not found")
		return
	}
	fields["action"] = action + "_failed"
	s.log.WithFields(ctx, fields).Errorf("read failed: %v", err)
}
