package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/ataa-platform/ataa_backend/config"
	"github.com/ataa-platform/ataa_backend/internal/service/challenge"
	"github.com/ataa-platform/ataa_backend/internal/service/user"
	"github.com/ataa-platform/ataa_backend/pkg/crypto"
	pasetotoken "github.com/ataa-platform/ataa_backend/pkg/paseto"
	"github.com/ataa-platform/ataa_backend/pkg/phone"
	"github.com/ataa-platform/ataa_backend/pkg/util/password"
)

const (
	maxLoginAttempts = 5
	accountLockMins  = 15
)

// redisKeySession returns the Redis key for a session.
func redisKeySession(sessionID string) string { return "session:" + sessionID }

// Palestinian ID numbers are 9 digits.
var reNationalID = regexp.MustCompile(`^\d{9}$`)

// ---------------------------------------------------------------------------
// DTOs
// ---------------------------------------------------------------------------

type RegisterRequest struct {
	Phone      string
	Password   string
	FirstName  string
	LastName   string
	Role       string
	NationalID string // optional; raw digits
}

type VerifyOTPRequest struct {
	Phone string
	Code  string
}

type LoginRequest struct {
	Phone      string // one of Phone or NationalID must be set
	NationalID string
	Password   string
}

type ResetPasswordRequest struct {
	Phone       string
	Code        string
	NewPassword string
}

type AuthTokens struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64 // seconds until access token expires
}

// ---------------------------------------------------------------------------
// Service interface
// ---------------------------------------------------------------------------

type Service interface {
	Register(ctx context.Context, req RegisterRequest) error
	VerifyOTP(ctx context.Context, req VerifyOTPRequest) (*AuthTokens, error)
	Login(ctx context.Context, req LoginRequest) (*AuthTokens, error)
	RefreshTokens(ctx context.Context, refreshToken string) (*AuthTokens, error)
	Logout(ctx context.Context, sessionID uuid.UUID) error
	RequestPasswordReset(ctx context.Context, rawPhone string) error
	ResetPassword(ctx context.Context, req ResetPasswordRequest) error

	// MarkPhoneVerified satisfies challenge.PhoneVerifier.
	MarkPhoneVerified(ctx context.Context, phoneNumber string) error
}

// ---------------------------------------------------------------------------
// Implementation
// ---------------------------------------------------------------------------

type authService struct {
	users      user.Store
	challenges *challenge.Service
	rdb        *redis.Client
	paseto     *pasetotoken.Manager
	cfg        *config.Config
	encKey     []byte // AES-256 key for national_id encryption
}

func New(
	users user.Store,
	challenges *challenge.Service,
	rdb *redis.Client,
	paseto *pasetotoken.Manager,
	cfg *config.Config,
) (Service, error) {
	encKey, err := crypto.KeyFromHex(cfg.Authentication.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("auth service: invalid encryption key: %w", err)
	}
	return &authService{
		users:      users,
		challenges: challenges,
		rdb:        rdb,
		paseto:     paseto,
		cfg:        cfg,
		encKey:     encKey,
	}, nil
}

// ---------------------------------------------------------------------------
// Register
// ---------------------------------------------------------------------------

func (s *authService) Register(ctx context.Context, req RegisterRequest) error {
	normPhone, err := phone.Normalize(req.Phone)
	if err != nil {
		return ErrInvalidPhone
	}
	req.NationalID = strings.TrimSpace(req.NationalID)

	if req.NationalID != "" && !reNationalID.MatchString(req.NationalID) {
		return ErrInvalidNationalID
	}
	if len(req.Password) < 8 {
		return ErrPasswordTooShort
	}

	// Check phone uniqueness
	if _, err := s.users.GetByPhone(ctx, normPhone); err == nil {
		return ErrPhoneAlreadyExists
	} else if !errors.Is(err, user.ErrNotFound) {
		return fmt.Errorf("check phone: %w", err)
	}

	passHash, err := password.Hash(req.Password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	// Encrypt national_id + compute hash for lookups
	var encNatID, natIDHash *string
	if req.NationalID != "" {
		h := crypto.Hash(req.NationalID)
		if _, err := s.users.GetByNationalIDHash(ctx, h); err == nil {
			return ErrNationalIDExists
		} else if !errors.Is(err, user.ErrNotFound) {
			return fmt.Errorf("check national_id: %w", err)
		}

		enc, err := crypto.Encrypt(s.encKey, req.NationalID)
		if err != nil {
			return fmt.Errorf("encrypt national_id: %w", err)
		}
		encNatID = &enc
		natIDHash = &h
	}

	role := req.Role
	if role == "" {
		role = "volunteer"
	}

	u := &user.User{
		ID:             uuid.Must(uuid.NewV7()),
		Phone:          normPhone,
		PasswordHash:   passHash,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Role:           role,
		UserType:       user.TypeStaff,
		NationalID:     encNatID,
		NationalIDHash: natIDHash,
		PhoneVerified:  false,
		Status:         user.StatusActive,
	}
	if err := s.users.Create(ctx, u); err != nil {
		switch {
		case errors.Is(err, user.ErrDuplicatePhone):
			return ErrPhoneAlreadyExists
		case errors.Is(err, user.ErrDuplicateNationalID):
			return ErrNationalIDExists
		}
		return fmt.Errorf("create user: %w", err)
	}

	// Issue the phone verification challenge. Delivery failure does not block
	// registration; the client retries through resend.
	_, err = s.challenges.Issue(ctx, normPhone, u.ID, u.UserType, challenge.PurposePhoneVerification)
	if err != nil && !errors.Is(err, challenge.ErrDeliveryFailed) {
		return fmt.Errorf("issue challenge: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// VerifyOTP
// ---------------------------------------------------------------------------

func (s *authService) VerifyOTP(ctx context.Context, req VerifyOTPRequest) (*AuthTokens, error) {
	normPhone, err := phone.Normalize(req.Phone)
	if err != nil {
		return nil, ErrInvalidPhone
	}
	code := strings.TrimSpace(req.Code)

	ok, err := s.challenges.Verify(ctx, normPhone, code, challenge.PurposePhoneVerification)
	switch {
	case err == nil && ok:
		// Phone flagged verified through the challenge service's verifier.
	case errors.Is(err, challenge.ErrAttemptsExhausted):
		return nil, ErrOTPMaxAttempts
	case errors.Is(err, challenge.ErrInvalidOrExpired), errors.Is(err, challenge.ErrNoChallenge):
		return nil, ErrOTPExpired
	case err == nil && !ok:
		if incErr := s.challenges.IncrementAttempts(ctx, normPhone, code); incErr != nil {
			return nil, incErr
		}
		return nil, ErrOTPInvalid
	default:
		return nil, err
	}

	u, err := s.users.GetByPhone(ctx, normPhone)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return s.createSession(ctx, u)
}

// ---------------------------------------------------------------------------
// Login
// ---------------------------------------------------------------------------

func (s *authService) Login(ctx context.Context, req LoginRequest) (*AuthTokens, error) {
	var u *user.User
	var err error

	switch {
	case strings.TrimSpace(req.Phone) != "":
		normPhone, perr := phone.Normalize(req.Phone)
		if perr != nil {
			return nil, ErrInvalidCredentials
		}
		u, err = s.users.GetByPhone(ctx, normPhone)
	case strings.TrimSpace(req.NationalID) != "":
		natID := strings.TrimSpace(req.NationalID)
		if !reNationalID.MatchString(natID) {
			return nil, ErrInvalidCredentials
		}
		u, err = s.users.GetByNationalIDHash(ctx, crypto.Hash(natID))
	default:
		return nil, ErrInvalidCredentials
	}

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	if u.Status == user.StatusSuspended {
		return nil, ErrAccountSuspended
	}
	if !u.PhoneVerified {
		return nil, ErrPhoneNotVerified
	}
	if u.LockedUntil != nil && time.Now().Before(*u.LockedUntil) {
		return nil, ErrAccountLocked
	}

	if err := password.Verify(u.PasswordHash, req.Password); err != nil {
		s.recordFailedLogin(ctx, u)
		return nil, ErrInvalidCredentials
	}

	// Opportunistic rehash when parameters have moved on.
	if password.NeedsRehash(u.PasswordHash) {
		if newHash, err := password.Hash(req.Password); err == nil {
			u.PasswordHash = newHash
		}
	}

	// Reset failure counters
	now := time.Now()
	u.FailedLoginAttempts = 0
	u.LockedUntil = nil
	u.LastLoginAt = &now
	if err := s.users.Update(ctx, u); err != nil {
		slog.Warn("reset login counters failed", "user_id", u.ID, "error", err)
	}

	return s.createSession(ctx, u)
}

// ---------------------------------------------------------------------------
// RefreshTokens
// ---------------------------------------------------------------------------

func (s *authService) RefreshTokens(ctx context.Context, refreshToken string) (*AuthTokens, error) {
	claims, err := s.paseto.Verify(refreshToken)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if claims.Type != pasetotoken.TokenTypeRefresh {
		return nil, ErrInvalidToken
	}
	if claims.SessionID == nil {
		return nil, ErrInvalidToken
	}

	sessionKey := redisKeySession(claims.SessionID.String())

	// Check session exists
	if err := s.rdb.Get(ctx, sessionKey).Err(); err == redis.Nil {
		return nil, ErrSessionNotFound
	} else if err != nil {
		return nil, fmt.Errorf("redis get session: %w", err)
	}

	// Extend session TTL
	refreshTTL := time.Duration(s.cfg.Authentication.Paseto.RefreshTTLDays) * 24 * time.Hour
	s.rdb.Expire(ctx, sessionKey, refreshTTL)

	// Issue new access token only (refresh token stays the same until logout)
	accessTTL := time.Duration(s.cfg.Authentication.Paseto.AccessTTLMinutes) * time.Minute
	accessToken, err := s.paseto.IssueAccess(pasetotoken.Identity{
		UserID:    claims.UserID,
		SessionID: claims.SessionID,
		Role:      claims.Role,
		UserType:  claims.UserType,
	})
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}

	return &AuthTokens{
		AccessToken:  accessToken,
		RefreshToken: refreshToken, // unchanged
		ExpiresIn:    int64(accessTTL.Seconds()),
	}, nil
}

// ---------------------------------------------------------------------------
// Logout
// ---------------------------------------------------------------------------

func (s *authService) Logout(ctx context.Context, sessionID uuid.UUID) error {
	deleted, err := s.rdb.Del(ctx, redisKeySession(sessionID.String())).Result()
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if deleted == 0 {
		// Session already expired, not an error from the client's perspective
		slog.Debug("logout: session not found in Redis (already expired)", "session_id", sessionID)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Password reset
// ---------------------------------------------------------------------------

func (s *authService) RequestPasswordReset(ctx context.Context, rawPhone string) error {
	normPhone, err := phone.Normalize(rawPhone)
	if err != nil {
		return ErrInvalidPhone
	}
	u, err := s.users.GetByPhone(ctx, normPhone)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			// Do not reveal whether the phone is registered.
			return nil
		}
		return fmt.Errorf("find user: %w", err)
	}

	_, err = s.challenges.Issue(ctx, normPhone, u.ID, u.UserType, challenge.PurposePasswordReset)
	if err != nil && !errors.Is(err, challenge.ErrDeliveryFailed) {
		return fmt.Errorf("issue challenge: %w", err)
	}
	return nil
}

func (s *authService) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	normPhone, err := phone.Normalize(req.Phone)
	if err != nil {
		return ErrInvalidPhone
	}
	if len(req.NewPassword) < 8 {
		return ErrPasswordTooShort
	}
	code := strings.TrimSpace(req.Code)

	ok, err := s.challenges.Verify(ctx, normPhone, code, challenge.PurposePasswordReset)
	switch {
	case err == nil && ok:
	case errors.Is(err, challenge.ErrAttemptsExhausted):
		return ErrOTPMaxAttempts
	case errors.Is(err, challenge.ErrInvalidOrExpired), errors.Is(err, challenge.ErrNoChallenge):
		return ErrOTPExpired
	case err == nil && !ok:
		if incErr := s.challenges.IncrementAttempts(ctx, normPhone, code); incErr != nil {
			return incErr
		}
		return ErrOTPInvalid
	default:
		return err
	}

	u, err := s.users.GetByPhone(ctx, normPhone)
	if err != nil {
		return fmt.Errorf("find user: %w", err)
	}
	newHash, err := password.Hash(req.NewPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	u.PasswordHash = newHash
	u.FailedLoginAttempts = 0
	u.LockedUntil = nil
	return s.users.Update(ctx, u)
}

// ---------------------------------------------------------------------------
// PhoneVerifier
// ---------------------------------------------------------------------------

func (s *authService) MarkPhoneVerified(ctx context.Context, phoneNumber string) error {
	u, err := s.users.GetByPhone(ctx, phoneNumber)
	if err != nil {
		return err
	}
	if u.PhoneVerified {
		return nil
	}
	u.PhoneVerified = true
	return s.users.Update(ctx, u)
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func (s *authService) createSession(ctx context.Context, u *user.User) (*AuthTokens, error) {
	sessionID := uuid.Must(uuid.NewV7())

	refreshTTL := time.Duration(s.cfg.Authentication.Paseto.RefreshTTLDays) * 24 * time.Hour
	accessTTL := time.Duration(s.cfg.Authentication.Paseto.AccessTTLMinutes) * time.Minute

	sessionKey := redisKeySession(sessionID.String())
	if err := s.rdb.Set(ctx, sessionKey, u.ID.String(), refreshTTL).Err(); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}

	id := pasetotoken.Identity{
		UserID:    u.ID,
		SessionID: &sessionID,
		Role:      u.Role,
		UserType:  u.UserType,
	}
	access, err := s.paseto.IssueAccess(id)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	refresh, err := s.paseto.IssueRefresh(id)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}

	return &AuthTokens{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(accessTTL.Seconds()),
	}, nil
}

func (s *authService) recordFailedLogin(ctx context.Context, u *user.User) {
	now := time.Now()
	u.FailedLoginAttempts++
	u.LastFailedLoginAt = &now
	if u.FailedLoginAttempts >= maxLoginAttempts {
		lockUntil := now.Add(accountLockMins * time.Minute)
		u.LockedUntil = &lockUntil
	}
	if err := s.users.Update(ctx, u); err != nil {
		slog.Warn("record failed login", "user_id", u.ID, "error", err)
	}
}
