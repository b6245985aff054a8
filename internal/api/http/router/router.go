package router

import (
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"github.com/ataa-platform/ataa_backend/config"
	"github.com/ataa-platform/ataa_backend/internal/api/http/handler"
	"github.com/ataa-platform/ataa_backend/internal/api/http/middleware"
	"github.com/ataa-platform/ataa_backend/internal/service/auth"
	"github.com/ataa-platform/ataa_backend/internal/service/beneficiary"
	"github.com/ataa-platform/ataa_backend/internal/service/delivery"
	"github.com/ataa-platform/ataa_backend/internal/service/organization"
	"github.com/ataa-platform/ataa_backend/internal/service/protection"
	"github.com/ataa-platform/ataa_backend/internal/service/user"
	"github.com/ataa-platform/ataa_backend/pkg/authorize"
	pasetotoken "github.com/ataa-platform/ataa_backend/pkg/paseto"
)

// Module provides the Router to the fx graph.
var Module = fx.Module("router", fx.Provide(NewRouter))

type Params struct {
	fx.In

	Cfg            *config.Config
	Redis          *redis.Client
	Auth           authorize.IAuthorization
	Users          user.Store
	AuthSvc        auth.Service
	BeneficiarySvc *beneficiary.Service
	ProtectionSvc  *protection.Service
	OrgSvc         *organization.Service
	DeliverySvc    *delivery.Service
	PasetoMgr      *pasetotoken.Manager
}

type Router struct {
	p Params
}

func NewRouter(p Params) *Router {
	return &Router{p: p}
}

func (r *Router) Register(app *fiber.App) {
	r.registerSystemRoutes(app)

	authRequired := middleware.AuthRequired(r.p.PasetoMgr, r.p.Redis)
	otpLimiter := middleware.NewOTPLimiter(r.p.Redis)

	requirePerm := func(res authorize.Resource, act authorize.Action) fiber.Handler {
		return middleware.RequirePermission(r.p.Auth, res, act)
	}

	authH := handler.NewAuthHandler(r.p.AuthSvc)
	benH := handler.NewBeneficiaryHandler(r.p.BeneficiarySvc, r.p.ProtectionSvc, r.p.Users, r.p.Cfg)
	orgH := handler.NewOrganizationHandler(r.p.OrgSvc)
	delH := handler.NewDeliveryHandler(r.p.DeliverySvc)
	approvalH := handler.NewApprovalHandler(r.p.ProtectionSvc, r.p.Users)
	protH := handler.NewProtectionHandler(r.p.ProtectionSvc)

	api := app.Group("/api/v1")

	r.registerAuthRoutes(api, authH, authRequired, otpLimiter)
	r.registerBeneficiaryRoutes(api, benH, delH, authRequired, otpLimiter, requirePerm)
	r.registerOrganizationRoutes(api, orgH, delH, authRequired, requirePerm)
	r.registerDeliveryRoutes(api, delH, authRequired, requirePerm)
	r.registerApprovalRoutes(api, approvalH, authRequired, requirePerm)
	r.registerProtectionRoutes(api, protH, authRequired)
}

func (r *Router) registerSystemRoutes(app *fiber.App) {
	app.Get(healthcheck.LivenessEndpoint, healthcheck.New())
	app.Get(healthcheck.ReadinessEndpoint, healthcheck.New())
	app.Get(healthcheck.StartupEndpoint, healthcheck.New())
}
