package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/cristianortiz/vendorAuctions/internal/auction/application"
	"github.com/cristianortiz/vendorAuctions/internal/auction/domain"
	"github.com/cristianortiz/vendorAuctions/internal/auction/infra/events"
	auctionrepo "github.com/cristianortiz/vendorAuctions/internal/auction/infra/repository/postgres"
	"github.com/cristianortiz/vendorAuctions/internal/auction/infra/rest"
	catalogrepo "github.com/cristianortiz/vendorAuctions/internal/catalog/infra/repository/postgres"
	"github.com/cristianortiz/vendorAuctions/internal/shared/config"
	"github.com/cristianortiz/vendorAuctions/internal/shared/db"
	"github.com/cristianortiz/vendorAuctions/internal/shared/db/migrations"
	"github.com/cristianortiz/vendorAuctions/internal/shared/httpserver"
	"github.com/cristianortiz/vendorAuctions/internal/shared/logger"
	userrepo "github.com/cristianortiz/vendorAuctions/internal/user/infra/repository/postgres"
	"go.uber.org/zap"
)

func main() {
	// init logger
	logger := logger.GetLogger()
	defer logger.Sync()

	logger.Info("Starting vendor auctions server...")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// run database migrations
	logger.Info("Running database migrations...")
	if err := migrations.RunMigrations(cfg); err != nil {
		logger.Fatal("Database migration failed", zap.Error(err))
	}
	logger.Info("Database migrations completed successfully.")

	// database connection pool (singleton)
	pool, err := db.GetPostgresDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal("Database connection failed", zap.Error(err))
	}
	defer pool.Close()

	var publisher domain.EventPublisher = events.NopPublisher{}
	if cfg.NatsURL != "" {
		js, err := events.NewJetStreamPublisher(ctx, cfg.NatsURL, cfg.NatsStream)
		if err != nil {
			logger.Fatal("Event bus connection failed", zap.Error(err))
		}
		defer js.Close()
		publisher = js
	} else {
		logger.Info("NATS_URL not set, auction events are not published")
	}

	auctions := auctionrepo.NewAuctionRepository(pool)
	bids := auctionrepo.NewBidRepository(pool)
	users := userrepo.NewUserRepository(pool)
	products := catalogrepo.NewProductRepository(pool)
	policy := application.TxPolicy{Timeout: cfg.BidTxTimeout, MaxRetries: cfg.BidMaxRetries}

	lifecycle := application.NewLifecycleSynchronizer(auctions, bids, pool, publisher, policy)
	auctionService := application.NewAuctionService(
		application.NewPlaceBidUseCase(lifecycle, auctions, bids, users, pool, publisher, policy),
		application.NewCreateAuctionUseCase(auctions, products, users, pool),
		application.NewChangeStatusUseCase(lifecycle, auctions, bids, users, pool, publisher, policy),
		application.NewQueryUseCase(lifecycle, auctions, bids, users, cfg.SweepBatch),
		nil,
	)

	go application.NewSweeper(lifecycle, cfg.SweepInterval, cfg.SweepBatch).Run(ctx)

	// start HTTP server
	server := httpserver.NewServer(rest.ErrorHandler, rest.NewAuctionHandler(auctionService))
	if err := server.Start(ctx, cfg.HTTPAddr); err != nil {
		logger.Fatal("HTTP server failed", zap.Error(err))
	}
	logger.Info("Server stopped")
}
