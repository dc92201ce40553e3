package service

import (
	"context"

	"github.com/google/uuid"

	"go-inventory-sales/internal/apperror"
	"go-inventory-sales/internal/model"
	"go-inventory-sales/internal/repository"
)

// UserService is owner-only account administration.
type UserService interface {
	GetAllUsers(ctx context.Context) ([]model.UserResponse, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*model.UserResponse, error)
	UpdateUserRole(ctx context.Context, id uuid.UUID, req *UpdateRoleRequest, actor Identity) (*model.UserResponse, error)
	DeleteUser(ctx context.Context, id uuid.UUID, actor Identity) error
}

type UpdateRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=owner staff"`
}

type userService struct {
	userRepo repository.UserRepository
}

func NewUserService(userRepo repository.UserRepository) UserService {
	return &userService{userRepo: userRepo}
}

func (s *userService) GetAllUsers(ctx context.Context) ([]model.UserResponse, error) {
	users, err := s.userRepo.FindAll(ctx)
	if err != nil {
		return nil, apperror.FromDB(err)
	}

	resp := make([]model.UserResponse, 0, len(users))
	for i := range users {
		resp = append(resp, users[i].ToResponse())
	}
	return resp, nil
}

func (s *userService) GetUserByID(ctx context.Context, id uuid.UUID) (*model.UserResponse, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundAs(err, "User not found")
	}
	resp := user.ToResponse()
	return &resp, nil
}

// UpdateUserRole promotes or demotes an account. Owners cannot change their own role,
// so at least one owner always remains.
func (s *userService) UpdateUserRole(ctx context.Context, id uuid.UUID, req *UpdateRoleRequest, actor Identity) (*model.UserResponse, error) {
	if err := Authorize(actor, model.RoleOwner); err != nil {
		return nil, err
	}
	role, _ := model.ParseRole(req.Role)
	req.Role = role.String()
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if id == actor.UserID {
		return nil, apperror.Validation("You cannot change your own role")
	}

	if err := s.userRepo.UpdateRole(ctx, id, role); err != nil {
		return nil, notFoundAs(err, "User not found")
	}
	return s.GetUserByID(ctx, id)
}

func (s *userService) DeleteUser(ctx context.Context, id uuid.UUID, actor Identity) error {
	if err := Authorize(actor, model.RoleOwner); err != nil {
		return err
	}
	if id == actor.UserID {
		return apperror.Validation("You cannot delete your own account")
	}
	if err := s.userRepo.Delete(ctx, id); err != nil {
		return notFoundAs(err, "User not found")
	}
	return nil
}
