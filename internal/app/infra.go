package app

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"github.com/ataa-platform/ataa_backend/config"
	postgresstore "github.com/ataa-platform/ataa_backend/internal/store/postgres"
	"github.com/ataa-platform/ataa_backend/pkg/authorize"
	"github.com/ataa-platform/ataa_backend/pkg/logs"
	postgrespkg "github.com/ataa-platform/ataa_backend/pkg/postgres"
	redispkg "github.com/ataa-platform/ataa_backend/pkg/redis"
	"github.com/ataa-platform/ataa_backend/pkg/sms"
)

// InfraModule provides all infrastructure dependencies.
var InfraModule = fx.Module("infra",
	fx.Provide(ProvidePostgresPool),
	fx.Provide(ProvideRedis),
	fx.Provide(ProvideAuthorization),
	fx.Provide(ProvideSMSClient),
	fx.Invoke(ConfigureLogging),
)

func ConfigureLogging(cfg *config.Config) {
	slog.SetDefault(logs.New(cfg))
}

func ProvidePostgresPool(lc fx.Lifecycle, cfg *config.Config) (*pgxpool.Pool, error) {
	pool, err := postgrespkg.NewPool(context.Background(), cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := postgresstore.Migrate(context.Background(), pool); err != nil {
		pool.Close()
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			slog.Debug("closing database pool")
			pool.Close()
			return nil
		},
	})
	return pool, nil
}

func ProvideRedis(lc fx.Lifecycle, cfg *config.Config) (*redis.Client, error) {
	rdb, err := redispkg.NewRedisFromCentral(cfg.Redis)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			slog.Debug("closing Redis connection")
			return rdb.Close()
		},
	})
	return rdb, nil
}

func ProvideAuthorization(cfg *config.Config) (authorize.IAuthorization, error) {
	return authorize.NewFromConfig(cfg.Authorization)
}

func ProvideSMSClient(cfg *config.Config) (*sms.Client, error) {
	return sms.NewFromConfig(cfg.SMS)
}
