package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"icesos/familyhub/internal/config"
	"icesos/familyhub/internal/handler"
	"icesos/familyhub/internal/model"
	"icesos/familyhub/internal/repository"
	"icesos/familyhub/internal/service"
	jwtpkg "icesos/familyhub/pkg/jwt"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// 2. Initialize logger
	var logger *zap.Logger
	if cfg.Log.Format == "json" {
		logger, _ = zap.NewProduction()
	} else {
		logger, _ = zap.NewDevelopment()
	}
	defer logger.Sync()

	// 3. Connect to PostgreSQL
	db, err := config.NewPostgresDB(cfg.Database.Postgres)
	if err != nil {
		logger.Fatal("failed to connect to postgres", zap.Error(err))
	}

	// 4. Auto-migrate if enabled
	if cfg.Database.Postgres.AutoMigrate {
		if err := model.AutoMigrate(db); err != nil {
			logger.Fatal("failed to auto-migrate", zap.Error(err))
		}
		logger.Info("database migration completed")
	}

	// 5. Initialize state store (Redis or in-memory)
	var stateStore repository.StateStore
	switch cfg.State.Backend {
	case "redis":
		redisClient, err := config.NewRedisClient(cfg.Database.Redis)
		if err != nil {
			logger.Fatal("failed to connect to redis", zap.Error(err))
		}
		stateStore = repository.NewRedisStateStore(redisClient)
		logger.Info("using Redis state store")
	case "memory":
		stateStore = repository.NewMemoryStateStore()
		logger.Info("using in-memory state store")
	default:
		logger.Fatal("unknown state backend", zap.String("backend", cfg.State.Backend))
	}

	// 6. Initialize repositories
	groupRepo := repository.NewPGFamilyGroupRepository(db)
	inviteRepo := repository.NewPGInviteRepository(db)
	contactRepo := repository.NewPGContactRepository(db)
	membershipRepo := repository.NewPGMembershipRepository(db)

	// 7. Initialize JWT manager
	jwtManager := jwtpkg.NewManager(cfg.JWT.SigningKey, cfg.JWT.Issuer, cfg.JWT.AccessTokenTTL)

	// 8. Mail sender: SMTP when configured, logging no-op otherwise
	var mailSender service.MailSender
	if cfg.SMTP.Host != "" {
		mailSender, err = service.NewSMTPSender(cfg.SMTP)
		if err != nil {
			logger.Fatal("failed to init smtp sender", zap.Error(err))
		}
		logger.Info("SMTP sender initialized", zap.String("host", cfg.SMTP.Host))
	} else {
		mailSender = service.NewLogSender(logger)
		logger.Info("SMTP not configured, invite mail is log-only")
	}

	// 9. Initialize services and handlers
	familyService := service.NewFamilyService(
		groupRepo, inviteRepo, contactRepo, membershipRepo,
		stateStore, mailSender, logger,
		service.FamilyOptions{
			LinkBaseURL:    cfg.Invite.LinkBaseURL,
			InviteTTL:      cfg.Invite.TokenTTL,
			ContactLimit:   cfg.Invite.ContactLimit,
			ResendCooldown: cfg.Invite.ResendCooldown,
		},
	)
	familyHandler := handler.NewFamilyHandler(familyService)

	// 10. Setup router
	router := handler.SetupRouter(cfg, logger, jwtManager, familyHandler)

	// 11. Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// 12. Start server with graceful shutdown
	go func() {
		logger.Info("server starting", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	// 13. Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}
	logger.Info("server exited gracefully")
}
