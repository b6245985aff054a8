package handler

import (
	"errors"

	"github.com/gofiber/fiber/v3"

	"github.com/ataa-platform/ataa_backend/internal/service/auth"
	pasetotoken "github.com/ataa-platform/ataa_backend/pkg/paseto"
)

type AuthHandler struct {
	svc auth.Service
}

func NewAuthHandler(svc auth.Service) *AuthHandler {
	return &AuthHandler{svc: svc}
}

// POST /api/v1/auth/register
func (h *AuthHandler) Register(c fiber.Ctx) error {
	var body struct {
		Phone      string `json:"phone"`
		Password   string `json:"password"`
		FirstName  string `json:"first_name"`
		LastName   string `json:"last_name"`
		Role       string `json:"role"`
		NationalID string `json:"national_id"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}

	if err := h.svc.Register(c.Context(), auth.RegisterRequest{
		Phone:      body.Phone,
		Password:   body.Password,
		FirstName:  body.FirstName,
		LastName:   body.LastName,
		Role:       body.Role,
		NationalID: body.NationalID,
	}); err != nil {
		return mapAuthError(c, err)
	}

	return created(c, fiber.Map{"message": "verification code sent to your phone"})
}

// POST /api/v1/auth/verify-otp
func (h *AuthHandler) VerifyOTP(c fiber.Ctx) error {
	var body struct {
		Phone string `json:"phone"`
		Code  string `json:"code"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}

	tokens, err := h.svc.VerifyOTP(c.Context(), auth.VerifyOTPRequest{
		Phone: body.Phone,
		Code:  body.Code,
	})
	if err != nil {
		return mapAuthError(c, err)
	}

	return ok(c, fiber.Map{
		"access_token":  tokens.AccessToken,
		"refresh_token": tokens.RefreshToken,
		"expires_in":    tokens.ExpiresIn,
	})
}

// POST /api/v1/auth/login
func (h *AuthHandler) Login(c fiber.Ctx) error {
	var body struct {
		Phone      string `json:"phone"`
		NationalID string `json:"national_id"`
		Password   string `json:"password"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}

	tokens, err := h.svc.Login(c.Context(), auth.LoginRequest{
		Phone:      body.Phone,
		NationalID: body.NationalID,
		Password:   body.Password,
	})
	if err != nil {
		return mapAuthError(c, err)
	}

	return ok(c, fiber.Map{
		"access_token":  tokens.AccessToken,
		"refresh_token": tokens.RefreshToken,
		"expires_in":    tokens.ExpiresIn,
	})
}

// POST /api/v1/auth/refresh
func (h *AuthHandler) Refresh(c fiber.Ctx) error {
	var body struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	if body.RefreshToken == "" {
		return badRequest(c, "refresh_token is required")
	}

	tokens, err := h.svc.RefreshTokens(c.Context(), body.RefreshToken)
	if err != nil {
		return mapAuthError(c, err)
	}

	return ok(c, fiber.Map{
		"access_token":  tokens.AccessToken,
		"refresh_token": tokens.RefreshToken,
		"expires_in":    tokens.ExpiresIn,
	})
}

// POST /api/v1/auth/logout  (requires AuthRequired middleware)
func (h *AuthHandler) Logout(c fiber.Ctx) error {
	claims, valid := pasetotoken.ClaimsFromFiber(c)
	if !valid || claims.SessionID == nil {
		return unauthorized(c)
	}

	if err := h.svc.Logout(c.Context(), *claims.SessionID); err != nil {
		return internalError(c)
	}

	return noContent(c)
}

// POST /api/v1/auth/password-reset/request
func (h *AuthHandler) RequestPasswordReset(c fiber.Ctx) error {
	var body struct {
		Phone string `json:"phone"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}

	if err := h.svc.RequestPasswordReset(c.Context(), body.Phone); err != nil {
		return mapAuthError(c, err)
	}

	// Same response whether or not the phone is registered.
	return ok(c, fiber.Map{"message": "if the phone is registered, a code was sent"})
}

// POST /api/v1/auth/password-reset/confirm
func (h *AuthHandler) ResetPassword(c fiber.Ctx) error {
	var body struct {
		Phone       string `json:"phone"`
		Code        string `json:"code"`
		NewPassword string `json:"new_password"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}

	if err := h.svc.ResetPassword(c.Context(), auth.ResetPasswordRequest{
		Phone:       body.Phone,
		Code:        body.Code,
		NewPassword: body.NewPassword,
	}); err != nil {
		return mapAuthError(c, err)
	}

	return ok(c, fiber.Map{"message": "password updated"})
}

// ---------------------------------------------------------------------------
// Error mapping
// ---------------------------------------------------------------------------

func mapAuthError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, auth.ErrPhoneAlreadyExists):
		return conflict(c, err.Error())
	case errors.Is(err, auth.ErrNationalIDExists):
		return conflict(c, err.Error())
	case errors.Is(err, auth.ErrInvalidPhone):
		return badRequest(c, err.Error())
	case errors.Is(err, auth.ErrInvalidNationalID):
		return badRequest(c, err.Error())
	case errors.Is(err, auth.ErrPasswordTooShort):
		return badRequest(c, err.Error())
	case errors.Is(err, auth.ErrOTPExpired):
		return badRequest(c, err.Error())
	case errors.Is(err, auth.ErrOTPInvalid):
		return badRequest(c, err.Error())
	case errors.Is(err, auth.ErrOTPMaxAttempts):
		return tooManyRequests(c, err.Error())
	case errors.Is(err, auth.ErrInvalidCredentials):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, auth.ErrAccountSuspended):
		return forbidden(c)
	case errors.Is(err, auth.ErrPhoneNotVerified):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, auth.ErrAccountLocked):
		return tooManyRequests(c, err.Error())
	case errors.Is(err, auth.ErrSessionNotFound):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, auth.ErrInvalidToken):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
	default:
		return internalError(c)
	}
}
