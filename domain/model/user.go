package model

import (
	"time"

	"github.com/golang-jwt/jwt"
)

type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	UserName     string     `json:"user_name"`
	FullName     string     `json:"full_name"`
	PasswordHash string     `json:"-"`
	Role         string     `json:"role"`
	IsActive     bool       `json:"is_active"`
	CreatedAt    time.Time  `json:"created_at"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
}

// UserClaims are the claims of the bearer tokens issued by the auth service.
type UserClaims struct {
	jwt.StandardClaims
	UserName string `json:"user_name"`
}
