package router

import (
	"github.com/gofiber/fiber/v3"

	"github.com/ataa-platform/ataa_backend/internal/api/http/handler"
	"github.com/ataa-platform/ataa_backend/pkg/authorize"
)

func (r *Router) registerApprovalRoutes(
	api fiber.Router,
	ah *handler.ApprovalHandler,
	authRequired fiber.Handler,
	requirePerm func(authorize.Resource, authorize.Action) fiber.Handler,
) {
	approvals := api.Group("/approvals", authRequired)

	approvals.Get("/", requirePerm(authorize.ResourceApproval, authorize.ActionList), ah.ListPending)
	approvals.Post("/:id/approve", requirePerm(authorize.ResourceApproval, authorize.ActionApprove), ah.Approve)
	approvals.Post("/:id/reject", requirePerm(authorize.ResourceApproval, authorize.ActionApprove), ah.Reject)
}
