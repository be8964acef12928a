package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mahirjain10/image-handlers/internal/app"
	"github.com/mahirjain10/image-handlers/internal/handlers"
	"github.com/mahirjain10/image-handlers/internal/queue"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	amqp "github.com/rabbitmq/amqp091-go"
)

type Worker struct {
	app             *app.App
	rabbitMqConn    *amqp.Connection
	statusChannel   *amqp.Channel
	rabbitMqService *queue.RabbitMqService
	metricsServer   *http.Server
}

// NewWorker creates the handlers and connects them to their queues.
func NewWorker(ctx context.Context) (*Worker, error) {
	registry := prometheus.NewRegistry()
	a, err := app.NewApp(ctx, registry)
	if err != nil {
		return nil, err
	}
	if err := a.Config.ValidateWorker(); err != nil {
		return nil, err
	}

	conn, err := queue.NewRabbitMQClient(a.Config.RabbitMqURL)
	if err != nil {
		return nil, err
	}

	statusChannel, err := queue.NewChannel(conn)
	if err != nil {
		conn.Close()
		return nil, err
	}
	publisher, err := queue.NewChannelPublisher(statusChannel, a.Config.StatusExchange)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to set up status publisher: %w", err)
	}

	queues := map[string]handlers.Handler{}
	if a.Config.OptimizeQueue != "" {
		queues[a.Config.OptimizeQueue] = a.Optimize
	}
	if a.Config.ResizeQueue != "" {
		queues[a.Config.ResizeQueue] = a.Resize
	}
	rabbitMqService := queue.NewRabbitMqService(a.Config, queues, publisher, a.Logger)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	return &Worker{
		app:             a,
		rabbitMqConn:    conn,
		statusChannel:   statusChannel,
		rabbitMqService: rabbitMqService,
		metricsServer:   &http.Server{Addr: a.Config.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second},
	}, nil
}

// Close gracefully shuts down the worker
func (w *Worker) Close() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := w.metricsServer.Shutdown(shutdownCtx); err != nil {
		w.app.Logger.Warnw("Error stopping metrics server", "Error", err.Error())
	}
	if err := w.statusChannel.Close(); err != nil {
		w.app.Logger.Warnw("Error closing channel", "Error", err.Error())
	}
	if err := w.rabbitMqConn.Close(); err != nil {
		w.app.Logger.Warnw("Error closing RabbitMQ connection", "Error", err.Error())
	}
	w.app.Logger.Sync()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	worker, err := NewWorker(ctx)
	if err != nil {
		log.Fatalf("Failed to initialize worker: %v", err)
	}
	defer worker.Close()

	go func() {
		worker.app.Logger.Infow("Serving metrics", "addr", worker.metricsServer.Addr)
		if err := worker.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			worker.app.Logger.Errorw("Metrics server stopped", "Error", err.Error())
		}
	}()

	if err := worker.rabbitMqService.Start(ctx, worker.rabbitMqConn); err != nil {
		worker.app.Logger.Errorw("Worker stopped", "Error", err.Error())
		worker.Close()
		os.Exit(1)
	}
}
