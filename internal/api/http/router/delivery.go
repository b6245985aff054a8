package router

import (
	"github.com/gofiber/fiber/v3"

	"github.com/ataa-platform/ataa_backend/internal/api/http/handler"
	"github.com/ataa-platform/ataa_backend/pkg/authorize"
)

func (r *Router) registerDeliveryRoutes(
	api fiber.Router,
	dh *handler.DeliveryHandler,
	authRequired fiber.Handler,
	requirePerm func(authorize.Resource, authorize.Action) fiber.Handler,
) {
	deliveries := api.Group("/deliveries", authRequired)

	deliveries.Post("/", requirePerm(authorize.ResourceDelivery, authorize.ActionCreate), dh.Create)

	d := deliveries.Group("/:id")
	d.Get("/", requirePerm(authorize.ResourceDelivery, authorize.ActionRead), dh.Get)
	d.Post("/status", requirePerm(authorize.ResourceDelivery, authorize.ActionUpdate), dh.Transition)
}
