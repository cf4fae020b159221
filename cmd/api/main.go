package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/example/shoporder/internal/auth"
	"github.com/example/shoporder/internal/catalog"
	"github.com/example/shoporder/internal/config"
	"github.com/example/shoporder/internal/httpx"
	kafkax "github.com/example/shoporder/internal/kafka"
	"github.com/example/shoporder/internal/orders"
	"github.com/example/shoporder/internal/postgres"
	"github.com/example/shoporder/internal/redisx"
)

func main() {
	_ = godotenv.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producers
	createdProd := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderCreated, 1024, logger)
	createdProd.Start(ctx)
	statusProd := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderStatusUpdated, 1024, logger)
	statusProd.Start(ctx)

	// Services
	tokens := &auth.TokenStore{Redis: rdb, TTL: cfg.TokenTTL}
	authSvc := &auth.Service{
		Users:      &auth.Repo{DB: db},
		Tokens:     tokens,
		Log:        logger,
		BcryptCost: cfg.BcryptCost,
	}
	orderSvc := &orders.Service{
		Store:         &orders.Repo{DB: db},
		CreatedEvents: createdProd,
		StatusEvents:  statusProd,
		Log:           logger,
		ServiceName:   cfg.ServiceName,
	}

	// Handlers
	ah := &httpx.AuthHandler{Service: authSvc}
	ph := &httpx.ProductsHandler{Store: &catalog.Repo{DB: db}}
	oh := &httpx.OrdersHandler{Service: orderSvc, Redis: rdb}

	router := httpx.NewRouter(logger)
	ah.RegisterPublic(router)
	router.Group(func(pr chi.Router) {
		pr.Use(auth.RequireAuth(tokens))
		ah.RegisterProtected(pr)
		ph.Register(pr)
		oh.Register(pr)
	})

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		logger.Info("HTTP listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	// wait signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	createdProd.Close() // close inbox -> flush & close writer
	statusProd.Close()
	cancel() // stop producer loops
	createdProd.WaitClosed()
	statusProd.WaitClosed()
}
