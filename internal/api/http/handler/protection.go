package handler

import (
	"github.com/gofiber/fiber/v3"

	"github.com/ataa-platform/ataa_backend/internal/service/protection"
	pasetotoken "github.com/ataa-platform/ataa_backend/pkg/paseto"
)

type ProtectionHandler struct {
	prot *protection.Service
}

func NewProtectionHandler(prot *protection.Service) *ProtectionHandler {
	return &ProtectionHandler{prot: prot}
}

// GET /api/v1/protection/fields/:field
//
// Lets the client decide up front whether to render the plain editor, the
// OTP flow, or a disabled control for the current user.
func (h *ProtectionHandler) ResolveField(c fiber.Ctx) error {
	claims, valid := pasetotoken.ClaimsFromFiber(c)
	if !valid {
		return unauthorized(c)
	}
	field := c.Params("field")
	if field == "" {
		return badRequest(c, "field is required")
	}

	res := h.prot.Resolve(field, claims.Role)
	return ok(c, res)
}
