package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/rowanmckenna/marketstead-backend/internal/users"
	pkgauth "github.com/rowanmckenna/marketstead-backend/pkg/auth"
	"github.com/rowanmckenna/marketstead-backend/pkg/config"
	"github.com/rowanmckenna/marketstead-backend/pkg/db"
	"github.com/rowanmckenna/marketstead-backend/pkg/db/models"
	"github.com/rowanmckenna/marketstead-backend/pkg/enums"
	pkgerrors "github.com/rowanmckenna/marketstead-backend/pkg/errors"
	"github.com/rowanmckenna/marketstead-backend/pkg/security"
)

// RegisterInput carries a validated registration request.
type RegisterInput struct {
	Username string
	Email    string
	Password string
	Role     enums.UserRole
}

// LoginInput carries a validated login request.
type LoginInput struct {
	Email    string
	Password string
}

// Session is the result of a successful register or login.
type Session struct {
	User        *models.User
	AccessToken string
	ExpiresAt   time.Time
}

// ServiceParams groups dependencies for the auth service.
type ServiceParams struct {
	UserRepo *users.Repository
	JWT      config.JWTConfig
	Password config.PasswordConfig
}

// Service exposes registration and login.
type Service interface {
	Register(ctx context.Context, input RegisterInput) (*Session, error)
	Login(ctx context.Context, input LoginInput) (*Session, error)
}

type service struct {
	userRepo *users.Repository
	jwtCfg   config.JWTConfig
	pwCfg    config.PasswordConfig
	now      func() time.Time
}

// NewService builds an auth service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.UserRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user repo is required")
	}
	if params.JWT.Secret == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "jwt secret is required")
	}
	return &service{
		userRepo: params.UserRepo,
		jwtCfg:   params.JWT,
		pwCfg:    params.Password,
		now:      time.Now,
	}, nil
}

// Register creates a customer or vendor account and signs them in. Admin
// accounts are provisioned out of band, never through this endpoint.
func (s *service) Register(ctx context.Context, input RegisterInput) (*Session, error) {
	if input.Role != enums.UserRoleCustomer && input.Role != enums.UserRoleVendor {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "role must be customer or vendor")
	}

	hash, err := security.HashPassword(input.Password, s.pwCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	user := &models.User{
		Username:     strings.TrimSpace(input.Username),
		Email:        strings.ToLower(strings.TrimSpace(input.Email)),
		PasswordHash: hash,
		Role:         input.Role,
		IsActive:     true,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "username or email already taken")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create user")
	}

	return s.startSession(user)
}

// Login verifies credentials against the stored argon2id hash. Missing users
// and bad passwords are indistinguishable to the caller.
func (s *service) Login(ctx context.Context, input LoginInput) (*Session, error) {
	user, err := s.userRepo.FindByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}

	ok, err := security.VerifyPassword(input.Password, user.PasswordHash)
	if err != nil || !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
	}
	if !user.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "account is deactivated")
	}

	if err := s.userRepo.TouchLastLogin(ctx, user.ID, s.now()); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record login")
	}

	return s.startSession(user)
}

func (s *service) startSession(user *models.User) (*Session, error) {
	now := s.now()
	token, err := pkgauth.MintAccessToken(s.jwtCfg, now, pkgauth.AccessTokenPayload{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint token")
	}
	return &Session{
		User:        user,
		AccessToken: token,
		ExpiresAt:   now.Add(s.jwtCfg.AccessTokenTTL()),
	}, nil
}
