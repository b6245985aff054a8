package handler

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/ataa-platform/ataa_backend/internal/service/protection"
	"github.com/ataa-platform/ataa_backend/internal/service/user"
	pasetotoken "github.com/ataa-platform/ataa_backend/pkg/paseto"
)

type ApprovalHandler struct {
	prot  *protection.Service
	users user.Store
}

func NewApprovalHandler(prot *protection.Service, users user.Store) *ApprovalHandler {
	return &ApprovalHandler{prot: prot, users: users}
}

// GET /api/v1/approvals
func (h *ApprovalHandler) ListPending(c fiber.Ctx) error {
	changes, err := h.prot.ListPendingApprovals(c.Context())
	if err != nil {
		return internalError(c)
	}
	return ok(c, changes)
}

// POST /api/v1/approvals/:id/approve
func (h *ApprovalHandler) Approve(c fiber.Ctx) error {
	return h.decide(c, true)
}

// POST /api/v1/approvals/:id/reject
func (h *ApprovalHandler) Reject(c fiber.Ctx) error {
	return h.decide(c, false)
}

func (h *ApprovalHandler) decide(c fiber.Ctx, approve bool) error {
	claims, valid := pasetotoken.ClaimsFromFiber(c)
	if !valid {
		return unauthorized(c)
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid change id")
	}

	u, err := h.users.GetByID(c.Context(), claims.UserID)
	if err != nil {
		return unauthorized(c)
	}
	approver := protection.Actor{
		UserID:   u.ID,
		UserType: u.UserType,
		Role:     u.Role,
		Phone:    u.Phone,
	}

	var qc *protection.QueuedChange
	if approve {
		qc, err = h.prot.Approve(c.Context(), id, approver)
	} else {
		qc, err = h.prot.Reject(c.Context(), id, approver)
	}
	if err != nil {
		switch {
		case errors.Is(err, protection.ErrChangeNotFound):
			return notFound(c, err.Error())
		case errors.Is(err, protection.ErrAlreadyDecided):
			return conflict(c, err.Error())
		default:
			return internalError(c)
		}
	}
	return ok(c, qc)
}
