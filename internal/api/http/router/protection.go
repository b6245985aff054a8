package router

import (
	"github.com/gofiber/fiber/v3"

	"github.com/ataa-platform/ataa_backend/internal/api/http/handler"
)

func (r *Router) registerProtectionRoutes(api fiber.Router, ph *handler.ProtectionHandler, authRequired fiber.Handler) {
	// Read-only policy resolution; any authenticated user may ask what a
	// field requires for their own role.
	api.Get("/protection/fields/:field", authRequired, ph.ResolveField)
}
