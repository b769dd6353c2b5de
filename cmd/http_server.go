package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/frahmantamala/policy-register/internal"
	"github.com/frahmantamala/policy-register/internal/access"
	"github.com/frahmantamala/policy-register/internal/audit"
	auditPostgres "github.com/frahmantamala/policy-register/internal/audit/postgres"
	"github.com/frahmantamala/policy-register/internal/auth"
	authPostgres "github.com/frahmantamala/policy-register/internal/auth/postgres"
	"github.com/frahmantamala/policy-register/internal/core/events"
	"github.com/frahmantamala/policy-register/internal/document"
	documentPostgres "github.com/frahmantamala/policy-register/internal/document/postgres"
	"github.com/frahmantamala/policy-register/internal/group"
	groupPostgres "github.com/frahmantamala/policy-register/internal/group/postgres"
	"github.com/frahmantamala/policy-register/internal/storage"
	"github.com/frahmantamala/policy-register/internal/taxonomy"
	taxonomyPostgres "github.com/frahmantamala/policy-register/internal/taxonomy/postgres"
	"github.com/frahmantamala/policy-register/internal/transport"
	"github.com/frahmantamala/policy-register/internal/transport/middleware"
	"github.com/frahmantamala/policy-register/internal/transport/rest"
	"github.com/frahmantamala/policy-register/internal/transport/swagger"
	"github.com/frahmantamala/policy-register/internal/user"
	userPostgres "github.com/frahmantamala/policy-register/internal/user/postgres"
	"github.com/frahmantamala/policy-register/pkg/logger"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config *internal.Config
	DB     *sqlx.DB
	Gorm   *gorm.DB
	Redis  *redis.Client
	Blobs  storage.Blob
	Bus    *events.EventBus
	Router *chi.Mux
	Logger *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	if err := seedDefaults(context.Background(), deps.Gorm, deps.Config, logger.Service("seed")); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to seed defaults: %v\n", err)
		os.Exit(1)
	}

	if err := setupRoutes(deps); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up routes: %v\n", err)
		os.Exit(1)
	}

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	slog.Info("Starting HTTP server", "address", addr, "storage", deps.Blobs.Name())

	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	// Signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		slog.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}
		if err := deps.Bus.Drain(ctx); err != nil {
			slog.Warn("Event bus did not drain", "error", err)
		}
		deps.Close()
	case err := <-serverErrChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}

	slog.Info("Server stopped")
}

func setupRoutes(deps *Dependencies) error {
	cfg := deps.Config
	lg := deps.Logger
	base := transport.NewBaseHandler(lg)

	authz, err := access.NewAuthorizer()
	if err != nil {
		return err
	}

	authService := auth.NewService(
		authPostgres.NewRepository(deps.Gorm),
		auth.NewJWTTokenGenerator(cfg.Security.JWTSecret, cfg.Security.AccessTokenDuration),
		auth.NewBcryptHasher(cfg.Security.BCryptCost),
		logger.Service("auth"),
	)
	groupService := group.NewService(groupPostgres.NewGroupRepository(deps.Gorm), logger.Service("group"))
	userService := user.NewService(userPostgres.NewUserRepository(deps.Gorm), groupService, logger.Service("user"))
	categories := taxonomy.NewService(taxonomy.CategoryKind, taxonomyPostgres.NewTermRepository(deps.Gorm, taxonomy.CategoryKind), logger.Service("category"))
	policyTypes := taxonomy.NewService(taxonomy.PolicyTypeKind, taxonomyPostgres.NewTermRepository(deps.Gorm, taxonomy.PolicyTypeKind), logger.Service("policy_type"))

	auditService := audit.NewService(auditPostgres.NewAuditRepository(deps.Gorm), logger.Service("audit"))
	audit.NewEventHandler(auditService, logger.Service("audit")).RegisterEventHandlers(deps.Bus)

	docDeps := document.Dependencies{
		Repo:        documentPostgres.NewDocumentRepository(deps.Gorm),
		Categories:  categories,
		PolicyTypes: policyTypes,
		Blobs:       deps.Blobs,
		Events:      deps.Bus,
	}
	docOpts := document.Options{
		PolicyExtensions:   cfg.Documents.PolicyExtensions,
		DocumentExtensions: cfg.Documents.DocumentExtensions,
	}
	policies := document.NewService(document.PolicyCollection, docDeps, docOpts, logger.Service("policies"))
	documents := document.NewService(document.DocumentCollection, docDeps, docOpts, logger.Service("documents"))

	opts := rest.Options{AllowedOrigins: cfg.Server.AllowedOrigins}
	if deps.Redis != nil {
		opts.LoginLimiter = middleware.NewRateLimiter(deps.Redis, middleware.RateLimiterConfig{
			MaxRequests: cfg.RateLimit.MaxAttempts,
			Window:      cfg.RateLimit.Window,
			Prefix:      "ratelimit:login",
		}, logger.Service("ratelimit"))
	}
	spec, err := swagger.LoadSpec(context.Background(), cfg.Server.OpenAPIPath)
	if err != nil {
		lg.Warn("OpenAPI spec unavailable, docs routes disabled", "error", err)
	} else {
		opts.Spec = spec
	}

	rest.RegisterAllRoutes(deps.Router, rest.Handlers{
		Health:      rest.NewHealthHandler(deps.DB.DB, deps.Blobs, deps.Redis),
		Auth:        auth.NewHandler(base, authService, authz),
		RBAC:        auth.NewRBACAuthorization(base, lg),
		User:        user.NewHandler(base, userService),
		Group:       group.NewHandler(base, groupService),
		Categories:  taxonomy.NewHandler(base, categories),
		PolicyTypes: taxonomy.NewHandler(base, policyTypes),
		Policies:    document.NewHandler(base, policies, cfg.Storage.MaxUploadSize),
		Documents:   document.NewHandler(base, documents, cfg.Storage.MaxUploadSize),
		Audit:       audit.NewHandler(base, auditService),
	}, opts, lg)
	return nil
}

func initializeDependencies(ctx context.Context) (*Dependencies, error) {
	config, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	lg := logger.LoggerWrapper()

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gormDB, err := initGorm(db)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize orm: %w", err)
	}

	blobs, err := storage.New(ctx, config.Storage, logger.Service("storage"))
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	deps := &Dependencies{
		Config: config,
		DB:     db,
		Gorm:   gormDB,
		Blobs:  blobs,
		Bus:    events.NewEventBus(logger.Service("events")),
		Router: chi.NewRouter(),
		Logger: lg,
	}

	if config.RateLimit.Enabled {
		client, err := initRedis(ctx, config.RateLimit.RedisURL)
		if err != nil {
			// the limiter fails open, so a missing redis only disables it
			lg.Warn("redis unavailable, login rate limiting disabled", "error", err)
		} else {
			deps.Redis = client
		}
	}

	return deps, nil
}

func (d *Dependencies) Close() {
	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			slog.Error("Redis close error", "error", err)
		}
	}
	if err := d.DB.Close(); err != nil {
		slog.Error("Database close error", "error", err)
	}
}

// initDB initializes the database connection
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// verify connection; close underlying *sql.DB on failure
	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}

// initGorm shares the sqlx pool with the repositories.
func initGorm(db *sqlx.DB) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{Conn: db.DB}), &gorm.Config{
		Logger:         gormLogger.Default.LogMode(gormLogger.Warn),
		TranslateError: true,
	})
}

func initRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}
