package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/policy-register/internal"
	"github.com/frahmantamala/policy-register/internal/auth"
	authPostgres "github.com/frahmantamala/policy-register/internal/auth/postgres"
	"github.com/frahmantamala/policy-register/internal/taxonomy"
	taxonomyPostgres "github.com/frahmantamala/policy-register/internal/taxonomy/postgres"
	"github.com/frahmantamala/policy-register/pkg/logger"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the default admin, category and policy types",
	Long:  `Create the bootstrap administrator, the default category and the built-in policy types. Existing records are left alone.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		db, err := initDB(cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to init db: %w", err)
		}
		defer db.Close()

		gormDB, err := initGorm(db)
		if err != nil {
			return fmt.Errorf("failed to init orm: %w", err)
		}

		return seedDefaults(cmd.Context(), gormDB, cfg, logger.Service("seed"))
	},
}

// seedDefaults is idempotent; the server runs it on every boot.
func seedDefaults(ctx context.Context, db *gorm.DB, cfg *internal.Config, lg *slog.Logger) error {
	authService := auth.NewService(
		authPostgres.NewRepository(db),
		auth.NewJWTTokenGenerator(cfg.Security.JWTSecret, cfg.Security.AccessTokenDuration),
		auth.NewBcryptHasher(cfg.Security.BCryptCost),
		lg,
	)
	created, err := authService.EnsureAdmin(ctx, auth.BootstrapAdmin{
		Username: cfg.Bootstrap.AdminUsername,
		Email:    cfg.Bootstrap.AdminEmail,
		FullName: cfg.Bootstrap.AdminFullName,
		Password: cfg.Bootstrap.AdminPassword,
	})
	if err != nil {
		return fmt.Errorf("failed to seed admin: %w", err)
	}
	if created {
		lg.Warn("default admin seeded, change its password", "username", cfg.Bootstrap.AdminUsername)
	}

	categories := taxonomy.NewService(taxonomy.CategoryKind, taxonomyPostgres.NewTermRepository(db, taxonomy.CategoryKind), lg)
	n, err := categories.EnsureBuiltins(ctx, []taxonomy.Builtin{
		{Name: cfg.Bootstrap.CategoryName, Code: cfg.Bootstrap.CategoryCode, Description: "Default category"},
	})
	if err != nil {
		return fmt.Errorf("failed to seed default category: %w", err)
	}
	lg.Info("categories seeded", "created", n)

	if cfg.Bootstrap.SeedPolicyTypes {
		policyTypes := taxonomy.NewService(taxonomy.PolicyTypeKind, taxonomyPostgres.NewTermRepository(db, taxonomy.PolicyTypeKind), lg)
		n, err := policyTypes.EnsureBuiltins(ctx, taxonomy.PolicyTypeBuiltins)
		if err != nil {
			return fmt.Errorf("failed to seed policy types: %w", err)
		}
		lg.Info("policy types seeded", "created", n)
	}

	return nil
}
