package router

import (
	"github.com/gofiber/fiber/v3"

	"github.com/ataa-platform/ataa_backend/internal/api/http/handler"
	"github.com/ataa-platform/ataa_backend/pkg/authorize"
)

func (r *Router) registerOrganizationRoutes(
	api fiber.Router,
	oh *handler.OrganizationHandler,
	dh *handler.DeliveryHandler,
	authRequired fiber.Handler,
	requirePerm func(authorize.Resource, authorize.Action) fiber.Handler,
) {
	orgs := api.Group("/organizations", authRequired)

	orgs.Get("/", requirePerm(authorize.ResourceOrganization, authorize.ActionList), oh.List)
	orgs.Post("/", requirePerm(authorize.ResourceOrganization, authorize.ActionCreate), oh.Create)

	o := orgs.Group("/:id")
	o.Get("/", requirePerm(authorize.ResourceOrganization, authorize.ActionRead), oh.Get)
	o.Patch("/", requirePerm(authorize.ResourceOrganization, authorize.ActionUpdate), oh.Update)
	o.Get("/deliveries", requirePerm(authorize.ResourceDelivery, authorize.ActionList), dh.ListByOrg)
}
