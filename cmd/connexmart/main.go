package main

import (
	"context"
	"errors"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rookgm/connexmart/config"
	"github.com/rookgm/connexmart/internal/auth"
	handler "github.com/rookgm/connexmart/internal/handler/http"
	"github.com/rookgm/connexmart/internal/logger"
	"github.com/rookgm/connexmart/internal/middleware"
	"github.com/rookgm/connexmart/internal/mpesa"
	"github.com/rookgm/connexmart/internal/repository"
	"github.com/rookgm/connexmart/internal/repository/postgres"
	"github.com/rookgm/connexmart/internal/service"
	"github.com/rookgm/connexmart/internal/sms"
	"github.com/rookgm/connexmart/internal/worker"
	"go.uber.org/zap"
	"log"
	"net/http"
	"os/signal"
	"syscall"
)

func main() {

	// create new config
	cfg, err := config.New()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	// initialize logger
	err = logger.Initialize(cfg.Log.Level, logger.FileConfig{
		Path:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	if err != nil {
		log.Fatalf("Error initializing logger: %v", err)
	}
	defer logger.Log.Sync()

	// create context
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// initialize database
	db, err := postgres.New(ctx, cfg.Database.DSN)
	if err != nil {
		logger.Log.Fatal("Error initializing database", zap.Error(err))
	}
	defer db.Close()

	// migrate database
	err = db.Migrate()
	if err != nil {
		logger.Log.Fatal("Error migrating database", zap.Error(err))
	}

	// redis is optional, it shares provider token and sweep lock between replicas
	var (
		tokenCache mpesa.TokenCache = mpesa.NewMemoryTokenCache()
		locker     worker.Locker
	)
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()

		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Log.Fatal("Error connecting to redis", zap.Error(err))
		}

		tokenCache = mpesa.NewRedisTokenCache(rdb)
		locker = worker.NewRedisLocker(redsync.New(goredis.NewPool(rdb)), 2*cfg.Sweep.Timeout)
	}

	token := auth.NewAuthToken([]byte(cfg.Auth.JWTSecret))

	// dependency injection
	// payment provider
	gateway := mpesa.NewClient(mpesa.Config{
		BaseURL:        cfg.Mpesa.BaseURL,
		ConsumerKey:    cfg.Mpesa.ConsumerKey,
		ConsumerSecret: cfg.Mpesa.ConsumerSecret,
		ShortCode:      cfg.Mpesa.ShortCode,
		Passkey:        cfg.Mpesa.Passkey,
		CallbackURL:    cfg.Mpesa.CallbackURL,
		Timeout:        cfg.Mpesa.Timeout,
	}, tokenCache)

	// notifications
	notifier := sms.NewSender(sms.Config{
		BaseURL:       cfg.SMS.BaseURL,
		APIKey:        cfg.SMS.APIKey,
		Username:      cfg.SMS.Username,
		SenderID:      cfg.SMS.SenderID,
		StoreName:     cfg.SMS.StoreName,
		Timeout:       cfg.SMS.Timeout,
		RatePerSecond: cfg.SMS.RatePerSecond,
		Burst:         cfg.SMS.Burst,
	})

	// order
	orderRepo := repository.NewOrderRepository(db)
	orderService := service.NewOrderService(orderRepo, gateway, notifier, cfg.Sweep.GracePeriod)
	orderHandler := handler.NewOrderHandler(orderService)
	paymentHandler := handler.NewPaymentHandler(orderService)

	// cart
	cartRepo := repository.NewCartRepository(db)
	cartService := service.NewCartService(cartRepo)
	cartHandler := handler.NewCartHandler(cartService)

	// quote requests
	quoteRepo := repository.NewQuoteRepository(db)
	quoteService := service.NewQuoteService(quoteRepo)
	quoteHandler := handler.NewQuoteHandler(quoteService)

	router := chi.NewRouter()

	router.Use(chimw.Recoverer)
	router.Use(middleware.Logging(logger.Log))
	router.Use(middleware.Metrics)

	router.Handle("/metrics", promhttp.Handler())
	router.Get("/healthz", handler.Health(db))

	// public routes
	router.Post("/api/mpesa/callback", paymentHandler.PaymentCallback())
	router.Get("/api/orders/status/{orderID}", orderHandler.GetOrderStatus())
	router.Post("/api/quote", quoteHandler.SubmitQuote())

	// routes that require authentication
	router.Group(func(group chi.Router) {
		group.Use(handler.AuthMiddleware(token))
		group.Post("/api/orders/create", orderHandler.CreateOrder())
		group.Post("/api/orders/bulk", orderHandler.CreateBulkOrder())
		group.Get("/api/orders", orderHandler.ListUserOrders())
		group.Post("/api/mpesa/stkpush", paymentHandler.InitiatePayment())
		group.Get("/api/cart", cartHandler.GetItems())
		group.Post("/api/cart", cartHandler.AddItem())
	})

	// ready orders sweep
	processor := worker.NewOrderProcessor(orderService, cfg.Sweep.Schedule, cfg.Sweep.Timeout, locker)
	if err := processor.Start(); err != nil {
		logger.Log.Fatal("Error starting order processor", zap.Error(err))
	}

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Log.Info("Running server", zap.String("addr", cfg.Server.Addr))

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Error("Error starting server", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("Error shutting down server", zap.Error(err))
	}
	processor.Stop(shutdownCtx)
}
