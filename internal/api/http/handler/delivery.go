package handler

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/ataa-platform/ataa_backend/internal/service/beneficiary"
	"github.com/ataa-platform/ataa_backend/internal/service/delivery"
	"github.com/ataa-platform/ataa_backend/internal/service/organization"
	pasetotoken "github.com/ataa-platform/ataa_backend/pkg/paseto"
)

type DeliveryHandler struct {
	svc *delivery.Service
}

func NewDeliveryHandler(svc *delivery.Service) *DeliveryHandler {
	return &DeliveryHandler{svc: svc}
}

// POST /api/v1/deliveries
func (h *DeliveryHandler) Create(c fiber.Ctx) error {
	claims, valid := pasetotoken.ClaimsFromFiber(c)
	if !valid {
		return unauthorized(c)
	}

	var body struct {
		BeneficiaryID string    `json:"beneficiary_id"`
		OrgID         string    `json:"org_id"`
		AidType       string    `json:"aid_type"`
		Quantity      int       `json:"quantity"`
		Unit          string    `json:"unit"`
		ScheduledFor  time.Time `json:"scheduled_for"`
		Notes         string    `json:"notes"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}

	benID, err := uuid.Parse(body.BeneficiaryID)
	if err != nil {
		return badRequest(c, "invalid beneficiary_id")
	}
	orgID, err := uuid.Parse(body.OrgID)
	if err != nil {
		return badRequest(c, "invalid org_id")
	}

	d, err := h.svc.Create(c.Context(), delivery.CreateRequest{
		BeneficiaryID: benID,
		OrgID:         orgID,
		AidType:       body.AidType,
		Quantity:      body.Quantity,
		Unit:          body.Unit,
		ScheduledFor:  body.ScheduledFor,
		Notes:         body.Notes,
		CreatedBy:     claims.UserID,
	})
	if err != nil {
		return mapDeliveryError(c, err)
	}
	return created(c, d)
}

// GET /api/v1/deliveries/:id
func (h *DeliveryHandler) Get(c fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid delivery id")
	}
	d, err := h.svc.Get(c.Context(), id)
	if err != nil {
		return mapDeliveryError(c, err)
	}
	return ok(c, d)
}

// GET /api/v1/beneficiaries/:id/deliveries
func (h *DeliveryHandler) ListByBeneficiary(c fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid beneficiary id")
	}
	var q struct {
		Limit  int `query:"limit"`
		Offset int `query:"offset"`
	}
	_ = c.Bind().Query(&q)

	ds, err := h.svc.ListByBeneficiary(c.Context(), id, q.Limit, q.Offset)
	if err != nil {
		return mapDeliveryError(c, err)
	}
	return ok(c, ds)
}

// GET /api/v1/organizations/:id/deliveries
func (h *DeliveryHandler) ListByOrg(c fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid organization id")
	}
	var q struct {
		Limit  int `query:"limit"`
		Offset int `query:"offset"`
	}
	_ = c.Bind().Query(&q)

	ds, err := h.svc.ListByOrg(c.Context(), id, q.Limit, q.Offset)
	if err != nil {
		return mapDeliveryError(c, err)
	}
	return ok(c, ds)
}

// POST /api/v1/deliveries/:id/status
func (h *DeliveryHandler) Transition(c fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid delivery id")
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	if body.Status == "" {
		return badRequest(c, "status is required")
	}

	d, err := h.svc.Transition(c.Context(), id, body.Status)
	if err != nil {
		return mapDeliveryError(c, err)
	}
	return ok(c, d)
}

func mapDeliveryError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, delivery.ErrNotFound),
		errors.Is(err, beneficiary.ErrNotFound),
		errors.Is(err, organization.ErrNotFound):
		return notFound(c, err.Error())
	case errors.Is(err, delivery.ErrInvalidTransition):
		return conflict(c, err.Error())
	default:
		return badRequest(c, err.Error())
	}
}
