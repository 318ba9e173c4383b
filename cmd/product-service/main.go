package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/iyhunko/product-catalog/internal/config"
	httpAPI "github.com/iyhunko/product-catalog/internal/http"
	"github.com/iyhunko/product-catalog/internal/http/controller"
	"github.com/iyhunko/product-catalog/internal/logger"
	"github.com/iyhunko/product-catalog/internal/metrics"
	"github.com/iyhunko/product-catalog/internal/repository/sql"
	"github.com/iyhunko/product-catalog/internal/service"
	"github.com/iyhunko/product-catalog/internal/slug"
	sqspkg "github.com/iyhunko/product-catalog/internal/sqs"
)

const shutdownTimeout = 10 * time.Second

func main() {
	conf, err := config.LoadFromEnv()
	handleErr("loading config", err)

	logger.InitJSONLogger("product-service", conf.DebugMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := sql.StartDB(ctx, conf.Database)
	handleErr("starting database", err)
	defer db.Close()

	store := sql.NewTransactionalRepository(db)
	productService := service.NewProductService(store, slug.NewGenerator(nil), conf.Catalog.SlugMaxAttempts)

	if conf.PublishingEnabled() {
		sqsClient, err := sqspkg.NewClientFromConfig(ctx, conf.AWS)
		handleErr("creating SQS client", err)

		publisher := sqspkg.NewPublisher(sqsClient, conf.AWS.SQSQueueURL)
		outboxWorker := service.NewOutboxWorker(store.Repositories().Events, publisher, conf.Outbox.Interval, conf.Outbox.BatchSize)
		go outboxWorker.Start(ctx)
		defer outboxWorker.Stop()
	} else {
		slog.Warn("SQS queue URL is not set, outbox events will not be published")
	}

	metrics.StartMetricsServer(ctx, conf)

	if !conf.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}
	router, err := httpAPI.InitRouter(gin.New(), controller.New(db), controller.NewProductController(productService))
	handleErr("initializing router", err)

	httpServer := &http.Server{
		Addr:              ":" + conf.HTTPServer.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		slog.Info("HTTP server starting", slog.String("port", conf.HTTPServer.Port))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			handleErr("listening to HTTP requests", err)
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown failed", slog.Any("err", err))
	}
}

func handleErr(msg string, err error) {
	if err != nil {
		slog.Error("error while "+msg, slog.Any("err", err))
		os.Exit(1)
	}
}
