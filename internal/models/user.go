package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

type User struct {
	bun.BaseModel `bun:"table:users"`

	Email        string    `bun:"email,pk" json:"email"`
	PasswordHash string    `bun:"password_hash,notnull" json:"-"`
	Role         string    `bun:"role,notnull" json:"role"`
	CreatedAt    time.Time `bun:"created_at,notnull" json:"created_at"`
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string `json:"token"`
	Email string `json:"email"`
	Role  string `json:"role"`
}
