package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/mahirjain10/image-handlers/config"
	"github.com/mahirjain10/image-handlers/internal/handlers"
	"github.com/mahirjain10/image-handlers/internal/queue/models"
	"github.com/mahirjain10/image-handlers/internal/types"
	"github.com/mahirjain10/image-handlers/internal/utils"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// ErrConsumersStopped is returned by Start when every consumer stopped
// while the worker was still meant to run.
var ErrConsumersStopped = errors.New("all consumers stopped: connection closed")

// RabbitMqService consumes S3-format bucket notifications from one queue
// per handler.
type RabbitMqService struct {
	config    *config.Config
	handlers  map[string]handlers.Handler
	publisher StatusPublisher
	logger    *zap.SugaredLogger
}

// NewRabbitMqService wires each queue name to the handler that serves it.
// publisher may be nil, in which case no status is published.
func NewRabbitMqService(cfg *config.Config, queues map[string]handlers.Handler, publisher StatusPublisher, logger *zap.SugaredLogger) *RabbitMqService {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &RabbitMqService{
		config:    cfg,
		handlers:  queues,
		publisher: publisher,
		logger:    logger,
	}
}

func (rabbitMqService *RabbitMqService) publishStatus(ctx context.Context, result types.Result, handleErr error) {
	if rabbitMqService.publisher == nil {
		return
	}
	statusData := utils.InitStatusData(result, handleErr)
	statusMessage := utils.InitStatusMessage(statusData)
	if err := rabbitMqService.publisher.Publish(ctx, statusMessage); err != nil {
		rabbitMqService.logger.Warnw("Failed to publish status",
			"key", result.Key,
			"status", statusData.Status,
			"Error", err.Error(),
		)
	}
}

// ProcessMessage runs h for every record in the delivery body. The
// returned error is a models.ProcessingError when any record failed.
func (rabbitMqService *RabbitMqService) ProcessMessage(ctx context.Context, h handlers.Handler, d amqp.Delivery) error {
	var event events.S3Event
	if err := utils.ParseJSON(d.Body, &event); err != nil {
		return models.ProcessingError{Err: fmt.Errorf("failed to parse message: %w", err), Requeue: false}
	}

	notifications := types.NotificationsFromS3Event(event)
	if len(notifications) == 0 {
		rabbitMqService.logger.Infow("Message carries no records", "handler", h.Name())
		return nil
	}

	var errs []error
	requeue := false
	for _, n := range notifications {
		result, err := h.Handle(ctx, n)
		rabbitMqService.publishStatus(ctx, result, err)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s/%s: %w", n.Bucket, n.Key, err))
			requeue = requeue || (errors.Is(err, handlers.ErrStorage) && IsTransientError(err))
			continue
		}
		rabbitMqService.logger.Infow("Handled record",
			"handler", h.Name(),
			"bucket", result.Bucket,
			"key", result.Key,
			"outcome", result.Outcome,
			"reason", result.Reason,
		)
	}

	if len(errs) > 0 {
		return models.ProcessingError{Err: errors.Join(errs...), Requeue: requeue}
	}
	return nil
}

// settle acks or nacks a delivery according to the processing error.
func settle(d amqp.Delivery, err error) {
	if err == nil {
		d.Ack(false)
		return
	}
	var procErr models.ProcessingError
	if errors.As(err, &procErr) {
		d.Nack(false, procErr.Requeue)
		return
	}
	d.Nack(false, IsTransientError(err))
}

func (rabbitMqService *RabbitMqService) consume(ctx context.Context, conn *amqp.Connection, queueName string, h handlers.Handler, worker int) {
	logctx := rabbitMqService.logger.With("queue", queueName, "worker", worker)

	var consumerCh *amqp.Channel
	defer func() {
		if consumerCh != nil {
			consumerCh.Close()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			logctx.Infow("Shutting down")
			return
		default:
		}

		if consumerCh == nil || consumerCh.IsClosed() {
			if conn.IsClosed() {
				logctx.Errorw("Connection closed, stopping consumer")
				return
			}
			newCh, err := NewChannel(conn)
			if err != nil {
				logctx.Warnw("Failed to create channel", "Error", err.Error())
				if !sleepCtx(ctx, 5*time.Second) {
					return
				}
				continue
			}
			consumerCh = newCh
		}

		msgs, err := NewQueueConsumer(consumerCh, queueName)
		if err != nil {
			logctx.Warnw("Failed to start consumer", "Error", err.Error())
			consumerCh.Close()
			consumerCh = nil
			if !sleepCtx(ctx, 5*time.Second) {
				return
			}
			continue
		}
		logctx.Infow("Worker started, waiting for messages")

		channelClosed := false
		for !channelClosed {
			select {
			case <-ctx.Done():
				logctx.Infow("Shutting down")
				return
			case d, ok := <-msgs:
				if !ok {
					logctx.Warnw("Channel closed, will recreate")
					consumerCh = nil
					channelClosed = true
					if !sleepCtx(ctx, 2*time.Second) {
						return
					}
					break
				}
				err := rabbitMqService.ProcessMessage(ctx, h, d)
				if err != nil {
					logctx.Errorw("Error processing message", "Error", err.Error())
				}
				settle(d, err)
			}
		}
	}
}

// Start declares every queue, starts config.Worker[queue] consumers for each
// and blocks until ctx is cancelled and the consumers returned.
func (rabbitMqService *RabbitMqService) Start(ctx context.Context, conn *amqp.Connection) error {
	ch, err := NewChannel(conn)
	if err != nil {
		return err
	}
	for queueName := range rabbitMqService.handlers {
		if _, err := NewQueue(ch, queueName); err != nil {
			ch.Close()
			return err
		}
		rabbitMqService.logger.Infow("Declared queue", "queue", queueName)
	}
	ch.Close()

	var consumers []func(context.Context)
	for queueName, h := range rabbitMqService.handlers {
		count, ok := config.Worker[queueName]
		if !ok {
			count = 1
		}
		for i := range count {
			consumers = append(consumers, func(ctx context.Context) {
				rabbitMqService.consume(ctx, conn, queueName, h, i+1)
			})
		}
	}

	err = superviseConsumers(ctx, consumers)
	if err == nil {
		rabbitMqService.logger.Infow("Shutting down all consumers gracefully")
	}
	return err
}

// superviseConsumers runs every consumer and waits for them. It returns nil
// once ctx is cancelled and they stopped, and ErrConsumersStopped when all
// of them returned on their own, e.g. after the connection closed.
func superviseConsumers(ctx context.Context, consumers []func(context.Context)) error {
	var wg sync.WaitGroup
	for _, consumer := range consumers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			consumer(ctx)
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		<-done
		return nil
	case <-done:
		if ctx.Err() != nil {
			return nil
		}
		return ErrConsumersStopped
	}
}

// sleepCtx waits for d and reports false when ctx was cancelled first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
