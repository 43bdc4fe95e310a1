package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// MaybeRunDev migrates the schema at startup in dev when the feature flag is
// enabled. SQLite databases are always bootstrapped from the models since the
// goose files target Postgres.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if client == nil {
		return fmt.Errorf("db client is required")
	}
	if cfg.DB.IsSQLite() {
		logg.Info(logg.WithField(ctx, "dialect", client.Dialect()), "bootstrapping sqlite schema from models")
		if err := client.DB().WithContext(ctx).AutoMigrate(models.All()...); err != nil {
			return fmt.Errorf("sqlite auto-migrate: %w", err)
		}
		return nil
	}
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "dir": DefaultDir})
	logg.Info(ctx, "applying pending migrations on startup")

	runner, err := NewRunner(sqlDB, DefaultDir, logg)
	if err != nil {
		return err
	}
	if err := runner.Run(ctx, "up"); err != nil {
		return fmt.Errorf("dev auto-migrate: %w", err)
	}

	logg.Info(ctx, "migrations up to date")
	return nil
}
