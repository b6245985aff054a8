package pasetotoken

import (
	"time"

	"github.com/google/uuid"
)

type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Claims is the app-facing token payload.
type Claims struct {
	Type TokenType

	UserID    uuid.UUID
	SessionID *uuid.UUID
	Role      string
	UserType  string

	Issuer   string
	Audience string

	IssuedAt    time.Time
	NotBefore   time.Time
	ExpiresAt   time.Time
	TokenID     string // jti
	Subject     string
	RawFooter   []byte
	RawClaimsJS []byte
}

// GetUserID implements authorize.ClaimsProvider.
func (c *Claims) GetUserID() uuid.UUID {
	return c.UserID
}

// GetRole implements authorize.ClaimsProvider.
func (c *Claims) GetRole() string {
	return c.Role
}

func (c *Claims) GetSessionID() *uuid.UUID {
	return c.SessionID
}

func (c *Claims) GetTokenType() string {
	return string(c.Type)
}

func (c *Claims) IsExpired() bool {
	return time.Now().After(c.ExpiresAt)
}
