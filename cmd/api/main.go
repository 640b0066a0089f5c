package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"tienda-marketplace/internal/config"
	"tienda-marketplace/internal/db"
	"tienda-marketplace/internal/httpserver"
	"tienda-marketplace/internal/notify"
	orderrepo "tienda-marketplace/internal/repository/order"
	productrepo "tienda-marketplace/internal/repository/product"
	userrepo "tienda-marketplace/internal/repository/user"
	cartsvc "tienda-marketplace/internal/service/cart"
	catalogsvc "tienda-marketplace/internal/service/catalog"
	ordersvc "tienda-marketplace/internal/service/order"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()
	cfg := config.FromEnv()

	logger, err := newLogger(cfg.Env)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx := context.Background()
	dbpool, err := db.Connect(ctx, cfg.DBConnString, cfg.DBMaxConns)
	if err != nil {
		logger.Fatal("connect to db", zap.Error(err))
	}
	defer dbpool.Close()

	productRepo := productrepo.NewPostgres(dbpool, logger)
	orderRepo := orderrepo.NewPostgres(dbpool, logger)
	userRepo := userrepo.NewPostgres(dbpool, logger)

	var notifier ordersvc.Notifier
	if len(cfg.KafkaBrokers) > 0 {
		producer := notify.NewKafkaProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer producer.Close()
		notifier = producer
	} else {
		notifier = notify.NewLogNotifier(logger)
	}

	catalogService := catalogsvc.New(productRepo)
	cartService := cartsvc.New(orderRepo, productRepo, userRepo, cfg.DefaultCommissionRate, logger)
	orderService := ordersvc.New(orderRepo, notifier, logger)

	srv, err := httpserver.New(cfg.HTTPAddr, logger, dbpool, httpserver.Deps{
		CatalogSvc: catalogService,
		CartSvc:    cartService,
		OrderSvc:   orderService,
		PaymentInfo: httpserver.PaymentInfo{
			BankAccountHolder: cfg.BankAccountHolder,
			BankAccountNumber: cfg.BankAccountNumber,
		},
	})
	if err != nil {
		logger.Fatal("init server", zap.Error(err))
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting http server", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopCh:
		logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
	case err := <-serverErr:
		logger.Error("server error", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	} else {
		logger.Info("server stopped")
	}
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
