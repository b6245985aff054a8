package handler

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/ataa-platform/ataa_backend/internal/service/organization"
)

type OrganizationHandler struct {
	svc *organization.Service
}

func NewOrganizationHandler(svc *organization.Service) *OrganizationHandler {
	return &OrganizationHandler{svc: svc}
}

// POST /api/v1/organizations
func (h *OrganizationHandler) Create(c fiber.Ctx) error {
	var body struct {
		Name          string `json:"name"`
		LicenseNumber string `json:"license_number"`
		ContactPhone  string `json:"contact_phone"`
		ContactName   string `json:"contact_name"`
		Address       string `json:"address"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}

	o, err := h.svc.Create(c.Context(), organization.CreateRequest{
		Name:          body.Name,
		LicenseNumber: body.LicenseNumber,
		ContactPhone:  body.ContactPhone,
		ContactName:   body.ContactName,
		Address:       body.Address,
	})
	if err != nil {
		return mapOrganizationError(c, err)
	}
	return created(c, o)
}

// GET /api/v1/organizations
func (h *OrganizationHandler) List(c fiber.Ctx) error {
	var q struct {
		Limit  int `query:"limit"`
		Offset int `query:"offset"`
	}
	_ = c.Bind().Query(&q)

	orgs, err := h.svc.List(c.Context(), q.Limit, q.Offset)
	if err != nil {
		return mapOrganizationError(c, err)
	}
	return ok(c, orgs)
}

// GET /api/v1/organizations/:id
func (h *OrganizationHandler) Get(c fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid organization id")
	}
	o, err := h.svc.Get(c.Context(), id)
	if err != nil {
		return mapOrganizationError(c, err)
	}
	return ok(c, o)
}

// PATCH /api/v1/organizations/:id
func (h *OrganizationHandler) Update(c fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid organization id")
	}

	var body struct {
		Name         *string `json:"name"`
		ContactPhone *string `json:"contact_phone"`
		ContactName  *string `json:"contact_name"`
		Address      *string `json:"address"`
		Status       *string `json:"status"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}

	o, err := h.svc.Update(c.Context(), id, organization.UpdateRequest{
		Name:         body.Name,
		ContactPhone: body.ContactPhone,
		ContactName:  body.ContactName,
		Address:      body.Address,
		Status:       body.Status,
	})
	if err != nil {
		return mapOrganizationError(c, err)
	}
	return ok(c, o)
}

func mapOrganizationError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, organization.ErrNotFound):
		return notFound(c, err.Error())
	case errors.Is(err, organization.ErrDuplicateLicense):
		return conflict(c, err.Error())
	case errors.Is(err, organization.ErrInvalidPhone):
		return badRequest(c, err.Error())
	default:
		return badRequest(c, err.Error())
	}
}
