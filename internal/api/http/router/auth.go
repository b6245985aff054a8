package router

import (
	"github.com/gofiber/fiber/v3"

	"github.com/ataa-platform/ataa_backend/internal/api/http/handler"
)

func (r *Router) registerAuthRoutes(api fiber.Router, h *handler.AuthHandler, authRequired, otpLimiter fiber.Handler) {
	group := api.Group("/auth")
	group.Post("/register", otpLimiter, h.Register)
	group.Post("/verify-otp", otpLimiter, h.VerifyOTP)
	group.Post("/login", h.Login)
	group.Post("/refresh", h.Refresh)
	group.Post("/logout", authRequired, h.Logout)
	group.Post("/password-reset/request", otpLimiter, h.RequestPasswordReset)
	group.Post("/password-reset/confirm", otpLimiter, h.ResetPassword)
}
