package router

import (
	"github.com/gofiber/fiber/v3"

	"github.com/ataa-platform/ataa_backend/internal/api/http/handler"
	"github.com/ataa-platform/ataa_backend/pkg/authorize"
)

func (r *Router) registerBeneficiaryRoutes(
	api fiber.Router,
	bh *handler.BeneficiaryHandler,
	dh *handler.DeliveryHandler,
	authRequired, otpLimiter fiber.Handler,
	requirePerm func(authorize.Resource, authorize.Action) fiber.Handler,
) {
	beneficiaries := api.Group("/beneficiaries", authRequired)

	beneficiaries.Get("/", requirePerm(authorize.ResourceBeneficiary, authorize.ActionList), bh.List)
	beneficiaries.Post("/", requirePerm(authorize.ResourceBeneficiary, authorize.ActionCreate), bh.Create)
	beneficiaries.Get("/lookup", requirePerm(authorize.ResourceBeneficiary, authorize.ActionRead), bh.Lookup)

	b := beneficiaries.Group("/:id")
	b.Get("/", requirePerm(authorize.ResourceBeneficiary, authorize.ActionRead), bh.Get)
	b.Patch("/", requirePerm(authorize.ResourceBeneficiary, authorize.ActionUpdate), bh.Update)
	b.Delete("/", requirePerm(authorize.ResourceBeneficiary, authorize.ActionDelete), bh.Delete)
	b.Get("/deliveries", requirePerm(authorize.ResourceDelivery, authorize.ActionList), dh.ListByBeneficiary)

	// Protected field edits: starting one opens an OTP session (or queues an
	// approval); the session endpoints live under /field-edits.
	b.Post("/field-edits", requirePerm(authorize.ResourceFieldEdit, authorize.ActionCreate), otpLimiter, bh.StartFieldEdit)

	edits := api.Group("/field-edits", authRequired)
	edits.Get("/:sid", bh.FieldEditStatus)
	edits.Post("/:sid/verify", otpLimiter, bh.VerifyFieldEdit)
	edits.Post("/:sid/resend", otpLimiter, bh.ResendFieldEdit)
	edits.Delete("/:sid", bh.CancelFieldEdit)
}
