package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ogurasousui/resignation-grpc-clean-arch/internal/adapters/holiday"
	"github.com/ogurasousui/resignation-grpc-clean-arch/internal/adapters/notification"
	"github.com/ogurasousui/resignation-grpc-clean-arch/internal/adapters/repository/memory"
	"github.com/ogurasousui/resignation-grpc-clean-arch/internal/adapters/repository/postgres"
	"github.com/ogurasousui/resignation-grpc-clean-arch/internal/core/resignation"
	"github.com/ogurasousui/resignation-grpc-clean-arch/internal/platform/config"
	pg "github.com/ogurasousui/resignation-grpc-clean-arch/internal/platform/db/postgres"
	"github.com/ogurasousui/resignation-grpc-clean-arch/internal/platform/logging"
	"github.com/ogurasousui/resignation-grpc-clean-arch/internal/platform/metrics"
	"github.com/ogurasousui/resignation-grpc-clean-arch/internal/platform/server"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "assets/local.yaml"
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("server stopped with error", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	repo, tx, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	dispatcher := notification.NewDispatcher(
		newSender(cfg.Notification.SMTP, logger),
		notification.NewAddressBook(cfg.Notification.DefaultDomain),
		cfg.Notification.QueueSize,
		cfg.Notification.Workers,
		logger.Named("notification"),
	)
	if err := dispatcher.Start(); err != nil {
		return fmt.Errorf("start notification dispatcher: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := dispatcher.Close(shutdownCtx); err != nil {
			logger.Warn("notification dispatcher did not drain", zap.Error(err))
		}
	}()

	validator := resignation.NewValidator(newHolidayOracle(cfg.Holiday, logger), cfg.Holiday.Timeout, logger.Named("validator"))
	svc := resignation.NewService(repo, validator, dispatcher, nil, tx, cfg.Notification.HRAddress,
		resignation.WithLogger(logger.Named("resignation")))

	registry := metrics.NewRegistry(validator, dispatcher)
	requests := metrics.NewRequestCounter(registry)

	grpcServer := server.New(cfg.Server.ListenAddr, svc, logger.Named("grpc"),
		grpc.ChainUnaryInterceptor(metrics.UnaryServerInterceptor(requests)))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return grpcServer.Run(gctx) })
	if cfg.Server.MetricsAddr != "" {
		metricsServer := metrics.NewServer(cfg.Server.MetricsAddr, registry, logger.Named("metrics"))
		g.Go(func() error { return metricsServer.Run(gctx) })
	}
	return g.Wait()
}

func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (resignation.Repository, resignation.TransactionManager, func(), error) {
	switch cfg.Storage.Driver {
	case config.StorageDriverMemory:
		logger.Warn("using in-memory storage; data is lost on restart")
		return memory.NewResignationRepository(), nil, func() {}, nil
	default:
		dbPool, err := pg.NewPool(ctx, cfg.Database)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("initialize database pool: %w", err)
		}
		return postgres.NewResignationRepository(dbPool), pg.NewTransactionManager(dbPool), dbPool.Close, nil
	}
}

func newHolidayOracle(cfg config.HolidayConfig, logger *zap.Logger) resignation.HolidayOracle {
	if cfg.Provider == config.HolidayProviderNone {
		logger.Warn("holiday check disabled; only weekends are rejected")
		return holiday.NewStaticOracle(nil)
	}
	if cfg.APIKey == "" {
		logger.Warn("holiday.api_key is empty; holiday check will fail open")
	}
	return holiday.NewCalendarificOracle(cfg.APIKey,
		holiday.WithBaseURL(cfg.BaseURL),
		holiday.WithHolidayType(cfg.Type),
		holiday.WithLogger(logger.Named("holiday")),
	)
}

func newSender(cfg config.SMTPConfig, logger *zap.Logger) notification.Sender {
	if cfg.Host == "" {
		logger.Warn("notification.smtp.host is empty; notifications are logged only")
		return notification.NewLogSender(logger.Named("notification"))
	}
	return notification.NewSMTPSender(notification.SMTPConfig{
		Host:     cfg.Host,
		Port:     cfg.Port,
		Username: cfg.Username,
		Password: cfg.Password,
		From:     cfg.From,
	})
}
