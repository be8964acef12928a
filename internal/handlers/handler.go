package handlers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/mahirjain10/image-handlers/internal/types"
	"go.uber.org/zap"
)

// ObjectStore is the storage the handlers read from and write to.
type ObjectStore interface {
	Get(ctx context.Context, bucket string, key string) (*types.ImageObject, error)
	Put(ctx context.Context, bucket string, key string, body []byte, contentType string, metadata map[string]string) error
	Copy(ctx context.Context, bucket string, sourceKey string, destKey string) error
}

// Codec decodes, re-encodes and resizes images.
type Codec interface {
	Identify(buffer []byte) (types.ImageInfo, error)
	Encode(buffer []byte, opts types.EncodeOptions) ([]byte, error)
	Resize(buffer []byte, width int, height int) ([]byte, error)
}

// Observer receives one call per handled record.
type Observer interface {
	RecordOutcome(handler string, outcome string, duration time.Duration)
	RecordBytesSaved(handler string, n int64)
}

// Handler processes a single upload notification record.
type Handler interface {
	Name() string
	Handle(ctx context.Context, n types.UploadNotification) (types.Result, error)
}

// HasMarker reports whether metadata carries key with a truthy value.
// Anything non-empty that does not parse as false counts, so a marker
// written by an older deployment still stops the loop.
func HasMarker(metadata map[string]string, key string) bool {
	for k, v := range metadata {
		if !strings.EqualFold(k, key) {
			continue
		}
		v = strings.TrimSpace(v)
		if v == "" {
			return false
		}
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
		return true
	}
	return false
}

// HandleS3Event runs h for every record of the event. Records are
// independent: a failure is reported after the remaining records ran.
func HandleS3Event(ctx context.Context, h Handler, logger *zap.SugaredLogger, event events.S3Event) error {
	logger = nopIfNil(logger)
	notifications := types.NotificationsFromS3Event(event)
	if len(notifications) == 0 {
		logger.Infow("Cancelling as there is no information to use", "handler", h.Name())
		return nil
	}

	var errs []error
	for i, n := range notifications {
		result, err := h.Handle(ctx, n)
		if err != nil {
			errs = append(errs, fmt.Errorf("record %d (%s/%s): %w", i, n.Bucket, n.Key, err))
			continue
		}
		logger.Infow("Handled record",
			"handler", h.Name(),
			"bucket", result.Bucket,
			"key", result.Key,
			"outcome", result.Outcome,
			"reason", result.Reason,
			"written", result.Written,
		)
	}
	return errors.Join(errs...)
}

func record(o Observer, handler string, result types.Result, err error, start time.Time) {
	if o == nil {
		return
	}
	outcome := result.Outcome
	if err != nil {
		outcome = types.OutcomeFailed
	}
	o.RecordOutcome(handler, outcome, time.Since(start))
}

func nopIfNil(logger *zap.SugaredLogger) *zap.SugaredLogger {
	if logger == nil {
		return zap.NewNop().Sugar()
	}
	return logger
}
