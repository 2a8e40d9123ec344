package main

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

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/campushub/campus-events-backend/internal/app"
	"github.com/campushub/campus-events-backend/internal/config"
	"github.com/campushub/campus-events-backend/internal/domain"
	"github.com/campushub/campus-events-backend/internal/health"
	"github.com/campushub/campus-events-backend/internal/http/handler"
	"github.com/campushub/campus-events-backend/internal/http/router"
	"github.com/campushub/campus-events-backend/internal/notify"
	"github.com/campushub/campus-events-backend/internal/observability"
	"github.com/campushub/campus-events-backend/internal/repository"
	"github.com/campushub/campus-events-backend/internal/security"
	"github.com/campushub/campus-events-backend/internal/service"
	"github.com/campushub/campus-events-backend/internal/tools/common"
	"github.com/campushub/campus-events-backend/internal/tools/smokecheck"
)

func main() {
	root := &cobra.Command{
		Use:           "campus-events-backend",
		Short:         "Campus events and club membership backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCommand(), newSeedCommand(), smokecheck.NewRootCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newServeCommand() *cobra.Command {
	var envFile string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := common.LoadEnvFile(envFile); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx)
		},
	}
	cmd.Flags().StringVar(&envFile, "env-file", ".env", "path to a dotenv file, missing is ignored")
	return cmd
}

func serve(ctx context.Context) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	slog.SetDefault(logger)

	runtime, err := observability.InitRuntime(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("init observability: %w", err)
	}

	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	if err := migrate(db); err != nil {
		return err
	}

	var redisClient redis.UniversalClient
	if cfg.RedisEnabled {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable at startup, continuing without it",
				"addr", cfg.RedisAddr, "error", err)
		}
	}

	principals := repository.NewPrincipalRepository(db)
	sessions := repository.NewSessionRepository(db)
	memberships := repository.NewMembershipRepository(db)
	events := repository.NewEventRepository(db)

	tokens := security.NewTokenManager(cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTSecret)
	credentials := service.NewCredentialStore(principals, cfg.BcryptCost)
	registry := service.NewSessionRegistry(sessions, principals, tokens,
		cfg.TokenPepper, cfg.TokenTTL, cfg.CouncilSessionLimit)
	authSvc := service.NewAuthService(credentials, registry)

	var cache service.MembershipCacheStore
	if redisClient != nil {
		cache = service.NewRedisMembershipCacheStore(redisClient, cfg.RedisPrefix)
	} else {
		cache = service.NewInMemoryMembershipCacheStore()
	}
	authorizer := service.NewRoleAuthorizer()
	ledger := service.NewMembershipLedger(memberships, authorizer, cache, cfg.MembershipCacheTTL)
	eventSvc := service.NewEventService(events, memberships, authorizer, notify.NewLogNotifier(logger))

	checks := []health.Check{{
		Name: "db",
		Probe: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}}
	if redisClient != nil {
		checks = append(checks, health.Check{
			Name:  "redis",
			Probe: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		})
	}
	readiness := health.NewProbeRunner(2*time.Second, checks...)

	mux := router.NewRouter(router.Dependencies{
		AuthHandler:      handler.NewAuthHandler(authSvc),
		ClubHandler:      handler.NewClubHandler(ledger),
		EventHandler:     handler.NewEventHandler(eventSvc),
		Auth:             authSvc,
		CORSOrigins:      cfg.CORSOrigins,
		APIRateLimitRPM:  cfg.APIRateLimitRPM,
		AuthRateLimitRPM: cfg.AuthRateLimitRPM,
		Readiness:        readiness,
		EnableOTelHTTP:   cfg.EnableOTelHTTP,
	})

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: cfg.HTTPReadHeaderTimeout,
	}

	// periodic removal of long-expired session rows
	janitorCtx, stopJanitor := context.WithCancel(context.Background())
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-janitorCtx.Done():
				return
			case <-ticker.C:
				n, err := sessions.CleanupExpired()
				if err != nil {
					logger.Warn("session cleanup failed", "error", err)
				} else if n > 0 {
					logger.Info("expired sessions removed", "count", n)
				}
			}
		}
	}()

	a := app.New(cfg, logger, server, runtime, readiness, func() {
		stopJanitor()
		if redisClient != nil {
			_ = redisClient.Close()
		}
	})

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", cfg.HTTPAddr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutdown signal received")
	if err := a.Shutdown(context.Background()); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("shutdown complete")
	return nil
}

func newSeedCommand() *cobra.Command {
	var envFile string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create bootstrap clubs and accounts with default credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := common.LoadEnvFile(envFile); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg, err := config.Load(ctx)
			if err != nil {
				return err
			}
			logger := newLogger(cfg)

			db, err := openDatabase(cfg)
			if err != nil {
				return err
			}
			if err := migrate(db); err != nil {
				return err
			}
			return seed(cfg, logger, db)
		},
	}
	cmd.Flags().StringVar(&envFile, "env-file", ".env", "path to a dotenv file, missing is ignored")
	return cmd
}

type seedAccount struct {
	identifier  string
	displayName string
	role        domain.Role
	club        string
}

// seed is idempotent: existing identifiers and clubs are left alone, so
// re-running after a partial failure only fills in the gaps. Every
// seeded account starts with a bootstrap password and must change it on
// first login.
func seed(cfg *config.Config, logger *slog.Logger, db *gorm.DB) error {
	principals := repository.NewPrincipalRepository(db)
	memberships := repository.NewMembershipRepository(db)

	accounts := []seedAccount{
		{identifier: "admin", displayName: "Administrator", role: domain.RoleAdmin},
		{identifier: "oc.lead", displayName: "Organizing Committee Lead", role: domain.RoleOC},
		{identifier: "pr.lead", displayName: "PR Lead", role: domain.RolePR},
		{identifier: "head.coding", displayName: "Coding Club Head", role: domain.RoleClubHead, club: "Coding Club"},
		{identifier: "head.music", displayName: "Music Club Head", role: domain.RoleClubHead, club: "Music Club"},
		{identifier: "head.drama", displayName: "Drama Club Head", role: domain.RoleClubHead, club: "Drama Club"},
		{identifier: "22bd1a0501", displayName: "Sample Student One", role: domain.RoleStudent},
		{identifier: "22bd1a0502", displayName: "Sample Student Two", role: domain.RoleStudent},
	}

	for _, acc := range accounts {
		existing, err := principals.FindByIdentifier(acc.identifier)
		if err != nil && !errors.Is(err, repository.ErrPrincipalNotFound) {
			return err
		}
		if existing == nil {
			password := cfg.CouncilBootstrapPassword
			if acc.role == domain.RoleStudent {
				password = cfg.StudentBootstrapPassword
			}
			hash, err := security.HashPassword(password, cfg.BcryptCost)
			if err != nil {
				return fmt.Errorf("hash bootstrap password: %w", err)
			}
			existing = &domain.Principal{
				ExternalID:          uuid.NewString(),
				Identifier:          acc.identifier,
				DisplayName:         acc.displayName,
				Role:                acc.role,
				PasswordHash:        hash,
				ForcePasswordChange: true,
			}
			if err := principals.Create(existing); err != nil {
				return fmt.Errorf("seed principal %s: %w", acc.identifier, err)
			}
			logger.Info("seeded principal", "identifier", acc.identifier, "role", acc.role)
		}

		if acc.club == "" {
			continue
		}
		clubs, err := memberships.ListClubs()
		if err != nil {
			return err
		}
		found := false
		for _, c := range clubs {
			if c.Name == acc.club {
				found = true
				break
			}
		}
		if found {
			continue
		}
		club := &domain.Club{
			ExternalID:      uuid.NewString(),
			Name:            acc.club,
			HeadPrincipalID: existing.ID,
		}
		if err := memberships.CreateClub(club); err != nil {
			return fmt.Errorf("seed club %s: %w", acc.club, err)
		}
		logger.Info("seeded club", "name", acc.club, "head", acc.identifier)
	}
	return nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	if cfg.Env == "dev" {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}

func openDatabase(cfg *config.Config) (*gorm.DB, error) {
	gormCfg := &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)}
	switch cfg.DBDriver {
	case "postgres":
		db, err := gorm.Open(postgres.Open(cfg.DBDSN), gormCfg)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		return db, nil
	default:
		db, err := gorm.Open(sqlite.Open(cfg.DBDSN), gormCfg)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		return db, nil
	}
}

func migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&domain.Principal{},
		&domain.Session{},
		&domain.Club{},
		&domain.Membership{},
		&domain.Event{},
	); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}
