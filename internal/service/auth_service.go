package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"

	"go-inventory-sales/internal/apperror"
	"go-inventory-sales/internal/config"
	"go-inventory-sales/internal/model"
	"go-inventory-sales/internal/repository"
	"go-inventory-sales/pkg/jwt"
)

const invalidCredentialsMessage = "Invalid credentials"

type AuthService interface {
	Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error)
	Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error)
	Me(ctx context.Context, userID uuid.UUID) (*model.UserResponse, error)
	ValidateToken(ctx context.Context, tokenString string) (*Identity, error)
	ResetPassword(ctx context.Context, email, newPassword string) error
	SeedOwner(ctx context.Context, owner config.OwnerConfig) (bool, error)
}

type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=255"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=6"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type AuthResponse struct {
	Token string             `json:"token"`
	User  model.UserResponse `json:"user"`
}

type authService struct {
	userRepo repository.UserRepository
	tokens   *jwt.Manager
}

func NewAuthService(userRepo repository.UserRepository, tokens *jwt.Manager) AuthService {
	return &authService{
		userRepo: userRepo,
		tokens:   tokens,
	}
}

func (s *authService) Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = normalizeEmail(req.Email)
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	// 1. Uniqueness, reported per field
	if _, err := s.userRepo.FindByEmail(ctx, req.Email); err == nil {
		return nil, apperror.Conflict("Email already registered")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.FromDB(err)
	}
	if _, err := s.userRepo.FindByUsername(ctx, req.Username); err == nil {
		return nil, apperror.Conflict("Username already taken")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.FromDB(err)
	}

	// 2. Store the hash only
	user := &model.User{
		Username: req.Username,
		Email:    req.Email,
		Role:     model.DefaultRole,
	}
	if err := user.SetPassword(req.Password); err != nil {
		return nil, apperror.Internal(pkgerrors.Wrap(err, "hash password"))
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		err = apperror.FromDB(err)
		if apperror.Is(err, apperror.KindConflict) {
			return nil, apperror.Conflict("Email or username already registered")
		}
		return nil, err
	}

	return s.issue(user)
}

func (s *authService) Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error) {
	req.Email = normalizeEmail(req.Email)
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	user, err := s.userRepo.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.Authentication(apperror.CodeInvalidCredentials, invalidCredentialsMessage)
		}
		return nil, apperror.FromDB(err)
	}
	if !user.CheckPassword(req.Password) {
		return nil, apperror.Authentication(apperror.CodeInvalidCredentials, invalidCredentialsMessage)
	}

	return s.issue(user)
}

func (s *authService) Me(ctx context.Context, userID uuid.UUID) (*model.UserResponse, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, notFoundAs(err, "User not found")
	}
	resp := user.ToResponse()
	return &resp, nil
}

// ValidateToken verifies the signature and expiry, then resolves the caller from the
// stored account so role changes and deletions apply to tokens already issued.
func (s *authService) ValidateToken(ctx context.Context, tokenString string) (*Identity, error) {
	claims, err := s.tokens.ValidateToken(tokenString)
	switch {
	case errors.Is(err, jwt.ErrMissingToken):
		return nil, apperror.Authentication(apperror.CodeTokenMissing, "Access token required")
	case errors.Is(err, jwt.ErrExpiredToken):
		return nil, apperror.Authentication(apperror.CodeTokenExpired, "Authentication token has expired")
	case err != nil:
		return nil, apperror.Authentication(apperror.CodeTokenInvalid, "Invalid authentication token")
	}

	user, err := s.userRepo.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.Authentication(apperror.CodeTokenInvalid, "User not found")
		}
		return nil, apperror.FromDB(err)
	}
	if !user.Role.Valid() {
		return nil, apperror.Authentication(apperror.CodeTokenInvalid, "Invalid authentication token")
	}
	return &Identity{UserID: user.ID, Username: user.Username, Role: user.Role}, nil
}

func (s *authService) ResetPassword(ctx context.Context, email, newPassword string) error {
	if len(newPassword) < 6 {
		return apperror.Validation("Password must be at least 6 characters",
			apperror.FieldError{Field: "password", Tag: "min", Param: "6"})
	}

	user, err := s.userRepo.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return notFoundAs(err, "User not found")
	}
	if err := user.SetPassword(newPassword); err != nil {
		return apperror.Internal(pkgerrors.Wrap(err, "hash password"))
	}
	if err := s.userRepo.UpdatePassword(ctx, user.ID, user.Password); err != nil {
		return notFoundAs(err, "User not found")
	}
	return nil
}

// SeedOwner creates the configured owner account unless one with that email exists.
// It reports whether an account was created.
func (s *authService) SeedOwner(ctx context.Context, owner config.OwnerConfig) (bool, error) {
	email := normalizeEmail(owner.Email)
	if email == "" {
		return false, nil
	}
	if owner.Password == "" {
		return false, apperror.Validation("OWNER_PASSWORD is required when OWNER_EMAIL is set")
	}

	if _, err := s.userRepo.FindByEmail(ctx, email); err == nil {
		return false, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, apperror.FromDB(err)
	}

	user := &model.User{
		Username: strings.TrimSpace(owner.Username),
		Email:    email,
		Role:     model.RoleOwner,
	}
	if user.Username == "" {
		user.Username = "owner"
	}
	if err := user.SetPassword(owner.Password); err != nil {
		return false, apperror.Internal(pkgerrors.Wrap(err, "hash owner password"))
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return false, apperror.FromDB(err)
	}
	return true, nil
}

func (s *authService) issue(user *model.User) (*AuthResponse, error) {
	token, err := s.tokens.GenerateToken(user.ID, user.Username, user.Role.String())
	if err != nil {
		return nil, apperror.Internal(pkgerrors.Wrap(err, "sign token"))
	}
	return &AuthResponse{Token: token, User: user.ToResponse()}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
