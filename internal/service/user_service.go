package service

import (
	"context"
	"fmt"
	"strings"

	"pms/internal/auth"
	"pms/internal/model"
	"pms/internal/policy"
	"pms/internal/repository"
	"pms/internal/validation"
)

type UserService struct {
	users  repository.UserRepositoryInterface
	tokens *auth.TokenManager
}

func NewUserService(users repository.UserRepositoryInterface, tokens *auth.TokenManager) *UserService {
	return &UserService{users: users, tokens: tokens}
}

type RegisterInput struct {
	Email     string
	Username  string
	Password  string
	Password2 string
	Role      string
}

// Register creates a user account. A manager account is always staff.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (user *model.User, err error) {
	ctx, span := startSpan(ctx, "UserService.Register", policy.Actor{})
	defer func() { endSpan(span, err) }()

	if in.Password != in.Password2 {
		return nil, validation.Errors{"password": {"Password fields didn't match."}}
	}

	email := strings.ToLower(strings.TrimSpace(in.Email))
	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if existing != nil {
		return nil, validation.Errors{"email": {"user with this email already exists."}}
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user = &model.User{
		Email:          email,
		Username:       in.Username,
		HashedPassword: hash,
		Role:           in.Role,
		IsActive:       true,
		IsStaff:        in.Role == model.UserRoleManager,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// Login checks the credentials and issues an access token.
func (s *UserService) Login(ctx context.Context, email, password string) (token string, user *model.User, err error) {
	ctx, span := startSpan(ctx, "UserService.Login", policy.Actor{})
	defer func() { endSpan(span, err) }()

	user, err = s.users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return "", nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil || !user.IsActive || !auth.CheckPassword(user.HashedPassword, password) {
		return "", nil, ErrInvalidCredentials
	}

	token, err = s.tokens.GenerateToken(user.ID.String())
	if err != nil {
		return "", nil, fmt.Errorf("generate token: %w", err)
	}
	return token, user, nil
}
