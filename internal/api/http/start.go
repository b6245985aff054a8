package http

import (
	"time"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/fx"

	"github.com/ataa-platform/ataa_backend/config"
	"github.com/ataa-platform/ataa_backend/internal/api/http/router"
	"github.com/ataa-platform/ataa_backend/internal/app"
)

func Start(cfg *config.Config, timeout time.Duration) {
	fx.New(
		fx.Supply(cfg),
		app.InfraModule,
		app.ServiceModule,
		router.Module,
		Module,

		// Invoking *fiber.App forces its construction, which registers the
		// lifecycle hooks that actually start listening.
		fx.Invoke(func(*fiber.App) {}),

		fx.StopTimeout(timeout),
	).Run()
}
