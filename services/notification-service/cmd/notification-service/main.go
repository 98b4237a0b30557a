package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/Nuthana-am/careslot/libs/config"
	"github.com/Nuthana-am/careslot/libs/db"
	"github.com/Nuthana-am/careslot/libs/httpx"
	"github.com/Nuthana-am/careslot/libs/kafkax"
	otelx "github.com/Nuthana-am/careslot/libs/otel"
	"github.com/Nuthana-am/careslot/libs/runtime"
	"github.com/Nuthana-am/careslot/services/notification-service/internal/consumer"
	"github.com/Nuthana-am/careslot/services/notification-service/internal/delivery"
	"github.com/Nuthana-am/careslot/services/notification-service/internal/dispatch"
	"github.com/Nuthana-am/careslot/services/notification-service/internal/email"
	"github.com/Nuthana-am/careslot/services/notification-service/internal/inbox"
	"github.com/Nuthana-am/careslot/services/notification-service/internal/storage"
)

func main() {
	service := config.String("SERVICE_NAME", "notification-service")
	port, err := config.Port("PORT", "8081")
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

	pool, err := db.Open(ctx, dbURL)
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	inboxRepo := inbox.NewRepository(pool)
	notificationsRepo := storage.NewRepository(pool)

	smtpHost := config.String("SMTP_HOST", "mailpit")
	smtpPort := config.String("SMTP_PORT", "1025")
	smtpFrom := config.String("SMTP_FROM", "no-reply@careslot.local")
	emailSender := email.NewSMTPSender(smtpHost, smtpPort, smtpFrom)
	deliverer := delivery.New(emailSender, notificationsRepo, logger)

	handle := func(ctx context.Context, msg kafka.Message) error {
		return deliverer.Handle(ctx, msg.Topic, msg.Value)
	}

	brokers := config.String("KAFKA_BROKERS", "")
	groupID := config.String("KAFKA_GROUP_ID", "notification-service")
	topics := config.String("KAFKA_CONSUME_TOPICS",
		strings.Join([]string{
			dispatch.EventAppointmentBooked,
			dispatch.EventAppointmentCancelled,
			dispatch.EventReminderDue,
		}, ","))
	for _, topic := range strings.Split(topics, ",") {
		topic = strings.TrimSpace(topic)
		if topic == "" {
			continue
		}
		eventConsumer := consumer.New(logger, inboxRepo, consumer.Config{
			Brokers: brokers,
			GroupID: groupID,
			Topic:   topic,
		}, handle)
		go eventConsumer.Run(ctx)
	}

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)},
	)
	handler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
	)
	handler = otelhttp.NewHandler(handler, "notification")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
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
