package app

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"github.com/ataa-platform/ataa_backend/config"
	"github.com/ataa-platform/ataa_backend/internal/service/auth"
	"github.com/ataa-platform/ataa_backend/internal/service/beneficiary"
	"github.com/ataa-platform/ataa_backend/internal/service/challenge"
	"github.com/ataa-platform/ataa_backend/internal/service/delivery"
	"github.com/ataa-platform/ataa_backend/internal/service/organization"
	"github.com/ataa-platform/ataa_backend/internal/service/protection"
	"github.com/ataa-platform/ataa_backend/internal/service/user"
	postgresstore "github.com/ataa-platform/ataa_backend/internal/store/postgres"
	pasetotoken "github.com/ataa-platform/ataa_backend/pkg/paseto"
	"github.com/ataa-platform/ataa_backend/pkg/sms"
	"github.com/ataa-platform/ataa_backend/pkg/util/otp"
)

// ServiceModule provides all application service dependencies.
var ServiceModule = fx.Module("services",
	fx.Provide(
		ProvideUserStore,
		ProvideChallengeService,
		ProvideProtectionService,
		ProvideAuthService,
		ProvideBeneficiaryService,
		ProvideOrganizationService,
		ProvideDeliveryService,
		ProvidePasetoManager,
	),
	// The account service marks phones verified; the beneficiary service
	// applies cleared field changes. Both references close construction
	// cycles, so they bind after the graph is built.
	fx.Invoke(func(challenges *challenge.Service, authSvc auth.Service) {
		challenges.BindPhoneVerifier(authSvc)
	}),
	fx.Invoke(func(bens *beneficiary.Service, prot *protection.Service) {
		bens.BindProtection(prot)
	}),
)

func ProvideUserStore(db *pgxpool.Pool) user.Store {
	return postgresstore.NewUserStore(db)
}

func ProvideChallengeService(rdb *redis.Client, smsCli *sms.Client, cfg *config.Config) (*challenge.Service, error) {
	return challenge.New(challenge.NewRedisStore(rdb), smsCli, otp.FromCentralConfig(cfg.OTP))
}

func ProvideProtectionService(
	db *pgxpool.Pool,
	challenges *challenge.Service,
	bens *beneficiary.Service,
	cfg *config.Config,
) (*protection.Service, error) {
	policy, err := protection.NewPolicy(cfg.Protection)
	if err != nil {
		return nil, err
	}
	return protection.NewService(policy, challenges, postgresstore.NewApprovalQueue(db), bens), nil
}

func ProvideAuthService(
	users user.Store,
	challenges *challenge.Service,
	rdb *redis.Client,
	paseto *pasetotoken.Manager,
	cfg *config.Config,
) (auth.Service, error) {
	return auth.New(users, challenges, rdb, paseto, cfg)
}

func ProvideBeneficiaryService(db *pgxpool.Pool, cfg *config.Config) (*beneficiary.Service, error) {
	return beneficiary.NewService(postgresstore.NewBeneficiaryStore(db), cfg)
}

func ProvideOrganizationService(db *pgxpool.Pool) *organization.Service {
	return organization.NewService(postgresstore.NewOrganizationStore(db))
}

func ProvideDeliveryService(db *pgxpool.Pool, bens *beneficiary.Service, orgs *organization.Service) *delivery.Service {
	return delivery.NewService(postgresstore.NewDeliveryStore(db), bens, orgs)
}

func ProvidePasetoManager(cfg *config.Config) (*pasetotoken.Manager, error) {
	return pasetotoken.NewPasetoManager(cfg)
}
