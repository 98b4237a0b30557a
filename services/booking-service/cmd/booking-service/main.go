package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/Nuthana-am/careslot/libs/config"
	"github.com/Nuthana-am/careslot/libs/db"
	"github.com/Nuthana-am/careslot/libs/httpx"
	"github.com/Nuthana-am/careslot/libs/kafkax"
	otelx "github.com/Nuthana-am/careslot/libs/otel"
	"github.com/Nuthana-am/careslot/libs/runtime"
	"github.com/Nuthana-am/careslot/services/booking-service/internal/availability"
	"github.com/Nuthana-am/careslot/services/booking-service/internal/booking"
	"github.com/Nuthana-am/careslot/services/booking-service/internal/handlers"
	"github.com/Nuthana-am/careslot/services/booking-service/internal/outbox"
	"github.com/Nuthana-am/careslot/services/booking-service/internal/reminder"
	"github.com/Nuthana-am/careslot/services/booking-service/internal/storage"
)

func main() {
	service := config.String("SERVICE_NAME", "booking-service")
	port, err := config.Port("PORT", "8080")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}
	jwtSecret, err := config.RequiredString("JWT_SECRET")
	if err != nil {
		panic(err)
	}

	pool, err := db.Open(ctx, dbURL)
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	userRepo := storage.NewUserRepository(pool)
	ruleRepo := storage.NewRuleRepository(pool)
	outboxRepo := outbox.NewRepository(pool)
	bookingRepo := storage.NewBookingRepository(pool, outboxRepo)

	engine := booking.NewEngine(bookingRepo, userRepo, logger)
	resolver := availability.NewResolver(ruleRepo)

	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   config.String("KAFKA_BROKERS", ""),
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go outboxPublisher.Run(ctx)

	reminderWorker := reminder.NewWorker(bookingRepo, userRepo, outboxRepo, logger, reminder.WorkerConfig{
		Every:  config.Minutes("REMINDER_SWEEP_MINUTES", time.Minute),
		Window: config.Minutes("REMINDER_WINDOW_MINUTES", 24*time.Hour),
	})
	go reminderWorker.Run(ctx)

	tokenTTL := config.Minutes("TOKEN_TTL_MINUTES", time.Hour)
	authHandler := handlers.NewAuthHandler(userRepo, jwtSecret, tokenTTL)
	rulesHandler := handlers.NewRulesHandler(ruleRepo, jwtSecret)
	bookingHandler := handlers.NewBookingHandler(engine, resolver, bookingRepo, userRepo, jwtSecret)

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(config.String("KAFKA_BROKERS", ""))},
	)
	mux.HandleFunc("/api/v1/auth/register", authHandler.Register)
	mux.HandleFunc("/api/v1/auth/login", authHandler.Login)
	mux.HandleFunc("/api/v1/me", authHandler.Me)
	mux.HandleFunc("/api/v1/providers", authHandler.ListProviders)
	mux.HandleFunc("/api/v1/availability/rules", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			rulesHandler.Create(w, r)
		case http.MethodDelete:
			rulesHandler.Delete(w, r)
		default:
			rulesHandler.List(w, r)
		}
	})
	mux.HandleFunc("/api/v1/slots", bookingHandler.Slots)
	mux.HandleFunc("/api/v1/appointments", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			bookingHandler.Create(w, r)
			return
		}
		bookingHandler.List(w, r)
	})
	mux.HandleFunc("/api/v1/appointments/cancel", bookingHandler.Cancel)
	mux.HandleFunc("/api/v1/appointments/ics", bookingHandler.ICS)

	middlewares := []httpx.Middleware{
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(1 << 20),
		httpx.WithTimeout(15 * time.Second),
	}
	if origins := config.String("CORS_ALLOWED_ORIGINS", ""); origins != "" {
		middlewares = append(middlewares, httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins: strings.Split(origins, ","),
			AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Authorization", "Content-Type"},
			MaxAge:         10 * time.Minute,
		}))
	}
	if redisAddr := config.String("REDIS_ADDR", ""); redisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
		limiter := httpx.NewRedisRateLimiter(rdb, config.Int("RATE_LIMIT", 120), time.Minute, service)
		middlewares = append(middlewares, limiter.Middleware(logger, true))
	} else {
		limiter := httpx.NewRateLimiter(config.Int("RATE_LIMIT", 120), time.Minute)
		middlewares = append(middlewares, limiter.Middleware())
	}
	httpHandler := httpx.Chain(mux, middlewares...)
	httpHandler = otelhttp.NewHandler(httpHandler, "booking")

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}
