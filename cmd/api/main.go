package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"go-inventory-sales/internal/config"
	"go-inventory-sales/internal/handler"
	"go-inventory-sales/internal/repository"
	"go-inventory-sales/internal/service"
	"go-inventory-sales/internal/ws"
	"go-inventory-sales/pkg/database"
	"go-inventory-sales/pkg/jwt"
	"go-inventory-sales/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		reportError(os.Stderr, err)
		os.Exit(1)
	}
}

// reportError logs through the global zap logger once it is installed. Failures
// before that point (config, logger setup) go to stderr.
func reportError(stderr io.Writer, err error) {
	if zap.L().Core().Enabled(zapcore.ErrorLevel) {
		zap.L().Error("server exited with error", zap.Error(err))
		_ = zap.L().Sync()
		return
	}
	fmt.Fprintf(stderr, "inventory-sales-api: %v\n", err)
}

func run() error {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		return errors.Wrap(err, "load config")
	}

	log, err := logger.New(logger.Options{Mode: cfg.Env, Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		return errors.Wrap(err, "init logger")
	}
	defer func() { _ = log.Sync() }()

	// 2. Setup Database
	db, err := database.Connect(cfg.Database, log)
	if err != nil {
		return err
	}
	defer func() { _ = database.Close(db) }()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(db); err != nil {
			return err
		}
		log.Info("database migrated")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Wire layers
	productRepo := repository.NewProductRepo(db)
	saleRepo := repository.NewSaleRepo(db)
	userRepo := repository.NewUserRepo(db)
	uploadRepo := repository.NewUploadRepo(db)

	var hub *ws.Hub
	var events service.EventPublisher
	if cfg.WSEnabled {
		hub = ws.NewHub(log)
		events = hub
	}

	tokens := jwt.NewManager(cfg.JWT.Secret, cfg.JWT.ExpiresIn, cfg.JWT.Issuer)
	authService := service.NewAuthService(userRepo, tokens)
	productService := service.NewProductService(productRepo, db, events)
	saleService := service.NewSaleService(productRepo, saleRepo, db, events)
	reportService := service.NewReportService(saleRepo)
	uploadService := service.NewUploadService(uploadRepo, productService, cfg.UploadMaxBytes)
	userService := service.NewUserService(userRepo)

	// 4. Seed the owner account
	seedCtx, cancelSeed := context.WithTimeout(ctx, cfg.Database.AcquireTimeout)
	created, err := authService.SeedOwner(seedCtx, cfg.Owner)
	cancelSeed()
	if err != nil {
		return errors.Wrap(err, "seed owner")
	}
	if created {
		log.Info("owner account created", zap.String("email", cfg.Owner.Email))
	}

	g, gctx := errgroup.WithContext(ctx)

	app := handler.NewApp(handler.Deps{
		Config:     cfg,
		Log:        log,
		Auth:       authService,
		Products:   productService,
		Sales:      saleService,
		Reports:    reportService,
		Uploads:    uploadService,
		Users:      userService,
		Hub:        hub,
		HubContext: gctx,
	})

	if hub != nil {
		g.Go(func() error {
			hub.Run(gctx)
			return nil
		})
	}

	g.Go(func() error {
		addr := net.JoinHostPort("", cfg.Port)
		log.Info("server listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := app.Listen(addr); err != nil {
			return errors.Wrap(err, "listen")
		}
		return nil
	})

	// 5. Graceful Shutdown
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server")
		return app.ShutdownWithTimeout(shutdownTimeout)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("server exited")
	return nil
}
