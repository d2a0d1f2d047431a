package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"google.golang.org/grpc/reflection"

	grpcctx "github.com/dtroode/appauth-server/internal/api/grpc/context"
	grpcrouter "github.com/dtroode/appauth-server/internal/api/grpc/router"
	grpcserver "github.com/dtroode/appauth-server/internal/api/grpc/server"
	httprouter "github.com/dtroode/appauth-server/internal/api/http/router"
	httpserver "github.com/dtroode/appauth-server/internal/api/http/server"
	"github.com/dtroode/appauth-server/internal/authz"
	"github.com/dtroode/appauth-server/internal/config"
	"github.com/dtroode/appauth-server/internal/logger"
	"github.com/dtroode/appauth-server/internal/metrics"
	"github.com/dtroode/appauth-server/internal/model"
	"github.com/dtroode/appauth-server/internal/password"
	"github.com/dtroode/appauth-server/internal/repository/postgres"
	"github.com/dtroode/appauth-server/internal/server"
	"github.com/dtroode/appauth-server/internal/service"
	"github.com/dtroode/appauth-server/internal/token"
	"github.com/dtroode/appauth-server/internal/vault"
)

var (
	buildVersion = "N/A" // set by ldflags
	buildDate    = "N/A" // set by ldflags
	buildCommit  = "N/A" // set by ldflags
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, os.Interrupt)
	defer stop()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	logger := logger.New(cfg.LogLevel, cfg.LogFormat)

	secretVault, err := vault.New(cfg.Crypto.MasterKey)
	if err != nil {
		logger.Fatal("failed to initialize secret vault", "error", err)
	}
	hasher, err := password.NewHasher(cfg.Password.Cost, cfg.Password.Workers)
	if err != nil {
		logger.Fatal("failed to initialize password hasher", "error", err)
	}

	db, err := postgres.NewConnection(ctx, cfg.Database.DSN, cfg.Database.MaxOpenConns)
	if err != nil {
		logger.Fatal("failed to initialize storage", "error", err)
	}
	defer db.Close()

	userRepo := postgres.NewUserRepository(db)
	appRepo := postgres.NewApplicationRepository(db)
	roleRepo := postgres.NewRoleRepository(db)
	recoveryRepo := postgres.NewRecoveryRepository(db)
	refreshTokenRepo := postgres.NewRefreshTokenRepository(db)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.New(registry)

	resolver := token.NewSecretResolver(cfg.JWT.Secret, appRepo, secretVault)
	tokenManager := token.NewJWT(resolver, cfg.JWT.AccessTTL)

	tokenService := service.NewTokenService(tokenManager, refreshTokenRepo, userRepo, db, cfg.JWT.RefreshTTL, appMetrics, logger)
	authService := service.NewAuth(userRepo, appRepo, hasher, tokenService, db, cfg.Password.MinLength, appMetrics, logger)
	recoveryService := service.NewRecovery(userRepo, recoveryRepo, hasher, tokenService, db, appMetrics, logger)
	applicationService := service.NewApplications(appRepo, refreshTokenRepo, secretVault, db, logger)
	roleService := service.NewRoles(userRepo, roleRepo, db, logger)
	guard := authz.NewGuard(userRepo, roleRepo, logger)

	if cfg.LogLevel >= 0 {
		gin.SetMode(gin.ReleaseMode)
	}
	httpRouter := httprouter.New(httprouter.Services{
		Auth:         authService,
		Tokens:       tokenService,
		Recovery:     recoveryService,
		Applications: applicationService,
		Roles:        roleService,
		Guard:        guard,
		DB:           db,
	}, appMetrics, logger)
	httpSrv := httpserver.NewHTTPServer(httpRouter.Register(), cfg.HTTP.Address, cfg.HTTP.ReadTimeout, cfg.HTTP.WriteTimeout)

	grpcRouter := grpcrouter.New(tokenService, guard, appMetrics, grpcctx.NewManager(), logger)
	grpcSrv := grpcRouter.Register()
	reflection.Register(grpcSrv)
	rpcSrv := grpcserver.NewGRPCServer(grpcSrv, grpcRouter.Health(), fmt.Sprintf(":%s", cfg.GRPC.Port))

	sl := server.NewSecurityLayer(cfg.GRPC.EnableHTTPS, cfg.GRPC.CertFileName, cfg.GRPC.PrivateKeyFileName)
	servers := []model.Server{httpSrv, rpcSrv}

	var wg sync.WaitGroup
	for _, s := range servers {
		wg.Add(1)
		go func(s model.Server) {
			defer wg.Done()
			logger.Info("Starting server on", "address", s.Address())
			if err := s.Start(sl); err != nil {
				logger.Error("failed to start server", "error", err, "address", s.Address())
				stop()
			}
		}(s)
	}

	logAppVersion()

	<-ctx.Done()
	logger.Info("received interruption signal, shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	for _, s := range servers {
		if err := s.Stop(shutdownCtx); err != nil {
			logger.Error("error during server shutdown", "error", err, "address", s.Address())
		}
	}

	wg.Wait()
	logger.Info("shutdown complete")
}

func logAppVersion() {
	tmpl := `
Build version: %s
Build date: %s
Build commit: %s
`

	fmt.Printf(tmpl, buildVersion, buildDate, buildCommit)
}
