package auth

import (
	"database/sql"
	"errors"
	"fmt"
	"ms-booking/internal/config"
	"ms-booking/internal/models"
	"time"
)

type UserStore interface {
	GetUserByEmail(email string) (*models.User, error)
	CreateUser(user models.User) error
}

// AuthService handles registration and login. The single admin identity is
// a fixed credential from configuration and never lives in the users table,
// so it cannot be registered over or locked out.
type AuthService struct {
	Users UserStore
	Cfg   config.AuthConfig
}

func NewAuthService(users UserStore, cfg config.AuthConfig) *AuthService {
	return &AuthService{Users: users, Cfg: cfg}
}

// Register creates a regular user account. The role is always "user";
// there is no path to register an admin.
func (s *AuthService) Register(email, password string) (*models.User, error) {
	if email == "" || password == "" {
		return nil, errors.New("email and password are required")
	}
	if email == s.Cfg.AdminEmail {
		return nil, models.ErrDuplicateUser
	}

	existing, err := s.Users.GetUserByEmail(email)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if existing != nil {
		return nil, models.ErrDuplicateUser
	}

	hash, err := HashPassword(password, s.Cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := models.User{
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleUser,
		CreatedAt:    time.Now(),
	}
	if err := s.Users.CreateUser(user); err != nil {
		// A register racing this one past the existence check loses at
		// the unique constraint instead.
		if errors.Is(err, models.ErrDuplicateUser) {
			return nil, models.ErrDuplicateUser
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return &user, nil
}

// Login checks the credential and returns a signed session token. The
// fixed admin credential is checked first, then the users table.
func (s *AuthService) Login(email, password string) (*models.LoginResponse, error) {
	if email == s.Cfg.AdminEmail {
		if password != s.Cfg.AdminPassword {
			return nil, models.ErrUnauthorized
		}
		token, err := IssueToken(email, models.RoleAdmin, s.Cfg.JWTSecret, s.Cfg.TokenTTL)
		if err != nil {
			return nil, fmt.Errorf("failed to sign token: %w", err)
		}
		return &models.LoginResponse{Token: token, Email: email, Role: models.RoleAdmin}, nil
	}

	user, err := s.Users.GetUserByEmail(email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if !CheckPassword(user.PasswordHash, password) {
		return nil, models.ErrUnauthorized
	}

	token, err := IssueToken(user.Email, user.Role, s.Cfg.JWTSecret, s.Cfg.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}
	return &models.LoginResponse{Token: token, Email: user.Email, Role: user.Role}, nil
}
