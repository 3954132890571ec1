package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ClientInfo identifies the device behind an auth call. It is filled from the
// HTTP request, never from the payload.
type ClientInfo struct {
	IP        string
	UserAgent string
}

// SignupRequest registers a new account. An ADMIN role is only granted when
// InviteCode matches the configured admin invite code.
type SignupRequest struct {
	Email      string     `json:"email" validate:"required,email"`
	Password   string     `json:"password" validate:"required,min=6"`
	FullName   string     `json:"full_name" validate:"required"`
	Role       UserRole   `json:"role" validate:"omitempty,oneof=ADMIN STUDENT"`
	InviteCode string     `json:"invite_code,omitempty"`
	Client     ClientInfo `json:"-"`
}

type LoginRequest struct {
	Email    string     `json:"email" validate:"required,email"`
	Password string     `json:"password" validate:"required"`
	Client   ClientInfo `json:"-"`
}

type RefreshTokenRequest struct {
	RefreshToken string     `json:"refresh_token" validate:"required"`
	Client       ClientInfo `json:"-"`
}

// LogoutRequest ends the session behind RefreshToken.
type LogoutRequest struct {
	RefreshToken string     `json:"refresh_token" validate:"required"`
	Client       ClientInfo `json:"-"`
}

type ChangePasswordRequest struct {
	OldPassword string     `json:"current_password" validate:"required"`
	NewPassword string     `json:"new_password" validate:"required,min=6,nefield=OldPassword"`
	Client      ClientInfo `json:"-"`
}

// TokenPair is a freshly issued access token with its rotating refresh token.
type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresIn    int64     `json:"expires_in"`
	IssuedAt     time.Time `json:"issued_at"`
}

// Session is returned by signup and login.
type Session struct {
	TokenPair
	User UserInfo `json:"user"`
}

// UserInfo describes the authenticated user in responses.
type UserInfo struct {
	ID       string   `json:"id"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	Role     UserRole `json:"role"`
}

// JWTClaims is the access token payload.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	Role     UserRole `json:"role"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	jwt.RegisteredClaims
}

// RefreshToken is a server-side session. Only the SHA-256 of the token the
// client holds is stored.
type RefreshToken struct {
	ID        string     `db:"id" json:"id"`
	UserID    string     `db:"user_id" json:"user_id"`
	TokenHash string     `db:"token_hash" json:"-"`
	ExpiresAt time.Time  `db:"expires_at" json:"expires_at"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	Revoked   bool       `db:"revoked" json:"revoked"`
	RevokedAt *time.Time `db:"revoked_at" json:"revoked_at,omitempty"`
	IPAddress string     `db:"ip_address" json:"ip_address"`
	UserAgent string     `db:"user_agent" json:"user_agent"`
}

// Usable reports whether the session can still be exchanged at now.
func (t *RefreshToken) Usable(now time.Time) bool {
	return !t.Revoked && now.Before(t.ExpiresAt)
}
