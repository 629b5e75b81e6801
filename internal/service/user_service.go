package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/survey-api/internal/models"
	"github.com/noah-isme/survey-api/internal/repository"
	appErrors "github.com/noah-isme/survey-api/pkg/errors"
)

type userRepository interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id string) error
	RevokeUserRefreshTokens(ctx context.Context, userID string) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// CreateUserRequest provisions an account on behalf of an administrator.
type CreateUserRequest struct {
	Email    string          `json:"email" validate:"required,email"`
	FullName string          `json:"full_name" validate:"required,max=120"`
	Role     models.UserRole `json:"role" validate:"required,oneof=ADMIN USER"`
	Active   bool            `json:"active"`
	Password string          `json:"password" validate:"required,min=6"`
}

// UpdateUserRequest carries the fields an administrator may change. Nil
// fields are left untouched.
type UpdateUserRequest struct {
	FullName *string          `json:"full_name" validate:"omitempty,min=1,max=120"`
	Role     *models.UserRole `json:"role" validate:"omitempty,oneof=ADMIN USER"`
	Active   *bool            `json:"active"`
}

// UserService backs the user directory and account administration.
type UserService struct {
	repo      userRepository
	validator *validator.Validate
	logger    *zap.Logger
}

func NewUserService(repo userRepository, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &UserService{repo: repo, validator: validate, logger: logger}
}

func (s *UserService) List(ctx context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list users")
	}
	return users, paginationFor(filter.Page, filter.PageSize, total), nil
}

func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "user")
	}
	return user, nil
}

// Create provisions a new account. Emails are stored lower-cased.
func (s *UserService) Create(ctx context.Context, actor Actor, req CreateUserRequest) (*models.User, error) {
	req.Email = normalizeEmail(req.Email)
	if err := s.validator.Struct(req); err != nil {
		return nil, invalidPayload(err, "create user")
	}

	email := req.Email
	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email already exists")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, internalError(err, "failed to check email uniqueness")
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, internalError(err, "failed to hash password")
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Email:        email,
		FullName:     strings.TrimSpace(req.FullName),
		Role:         req.Role,
		Active:       req.Active,
		PasswordHash: string(passwordHash),
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "email already exists")
		}
		return nil, internalError(err, "failed to create user")
	}

	recordAudit(ctx, s.repo, s.logger, actor, models.AuditActionUserCreate, models.AuditResourceUsers, user.ID, nil, userSnapshot(user))
	return user, nil
}

// Update applies req to a user. Administrators may not demote or
// deactivate their own account.
func (s *UserService) Update(ctx context.Context, actor Actor, id string, req UpdateUserRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalidPayload(err, "update user")
	}

	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if id == actor.UserID && ((req.Active != nil && !*req.Active) || (req.Role != nil && *req.Role != user.Role)) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "administrators cannot demote or deactivate themselves")
	}

	before := userSnapshot(user)
	if req.FullName != nil {
		user.FullName = strings.TrimSpace(*req.FullName)
	}
	if req.Role != nil {
		user.Role = *req.Role
	}
	if req.Active != nil {
		user.Active = *req.Active
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, internalError(err, "failed to update user")
	}
	if !user.Active && before["active"] == true {
		s.revokeSessions(ctx, user.ID)
	}

	recordAudit(ctx, s.repo, s.logger, actor, models.AuditActionUserUpdate, models.AuditResourceUsers, user.ID, before, userSnapshot(user))
	return user, nil
}

// Delete deactivates a user and ends their sessions.
func (s *UserService) Delete(ctx context.Context, actor Actor, id string) error {
	if id == actor.UserID {
		return appErrors.Clone(appErrors.ErrForbidden, "administrators cannot delete themselves")
	}
	user, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return internalError(err, "failed to delete user")
	}
	s.revokeSessions(ctx, id)

	recordAudit(ctx, s.repo, s.logger, actor, models.AuditActionUserDelete, models.AuditResourceUsers, user.ID,
		map[string]interface{}{"active": user.Active}, map[string]interface{}{"active": false})
	return nil
}

func (s *UserService) revokeSessions(ctx context.Context, userID string) {
	if err := s.repo.RevokeUserRefreshTokens(ctx, userID); err != nil {
		s.logger.Warn("failed to revoke refresh tokens", zap.String("user_id", userID), zap.Error(err))
	}
}

func userSnapshot(u *models.User) map[string]interface{} {
	return map[string]interface{}{"email": u.Email, "full_name": u.FullName, "role": u.Role, "active": u.Active}
}

// paginationFor normalises the requested page the same way repositories do.
func paginationFor(page, size, total int) *models.Pagination {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	return &models.Pagination{Page: page, PageSize: size, TotalCount: total}
}
