package handlers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mahirjain10/image-handlers/internal/types"
	"github.com/mahirjain10/image-handlers/internal/utils"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	HandlerResize = "resize"

	// ResizedMarker is set on every variant the resize handler writes.
	ResizedMarker = "resized"
)

// ResizeHandler writes the scaled variants of an uploaded image next to it.
type ResizeHandler struct {
	store    ObjectStore
	codec    Codec
	logger   *zap.SugaredLogger
	observer Observer
}

func NewResizeHandler(store ObjectStore, codec Codec, logger *zap.SugaredLogger, observer Observer) *ResizeHandler {
	return &ResizeHandler{
		store:    store,
		codec:    codec,
		logger:   nopIfNil(logger),
		observer: observer,
	}
}

func (h *ResizeHandler) Name() string {
	return HandlerResize
}

func (h *ResizeHandler) Handle(ctx context.Context, n types.UploadNotification) (types.Result, error) {
	start := time.Now()
	result, err := h.handle(ctx, n)
	record(h.observer, HandlerResize, result, err, start)
	return result, err
}

type presetResult struct {
	variant types.TransformResult
	skipped bool
	err     error
}

func (h *ResizeHandler) handle(ctx context.Context, n types.UploadNotification) (types.Result, error) {
	result := types.Result{Handler: HandlerResize, Bucket: n.Bucket, Key: n.Key}

	key, err := utils.DecodeKey(n.Key)
	if err != nil {
		result.Outcome = types.OutcomeFailed
		return result, fmt.Errorf("%w: %w", ErrInvalidNotification, err)
	}
	result.Key = key

	logctx := h.logger.With(
		"func", "ResizeHandler.Handle",
		"bucket", n.Bucket,
		"key", key,
	)

	if ok, reason := ResizeEligible(key); !ok {
		logctx.Infow("Skipping object", "reason", reason)
		result.Outcome, result.Reason = types.OutcomeSkipped, reason
		return result, nil
	}

	obj, err := h.store.Get(ctx, n.Bucket, key)
	if err != nil {
		result.Outcome = types.OutcomeFailed
		return result, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	if HasMarker(obj.Metadata, ResizedMarker) {
		logctx.Infow("Stopping as object is a resized variant")
		result.Outcome, result.Reason = types.OutcomeSkipped, "already resized"
		return result, nil
	}

	// No shared context: one failing preset never cancels the others.
	// Wait reports whether any failed; every error is collected below.
	results := make([]presetResult, len(presets))
	var g errgroup.Group
	for i, preset := range presets {
		g.Go(func() error {
			variant, skipped, err := h.writePreset(ctx, n.Bucket, key, obj.ContentType, preset, logctx)
			if err != nil {
				err = fmt.Errorf("preset %s: %w", preset.Suffix, err)
			}
			results[i] = presetResult{variant: variant, skipped: skipped, err: err}
			return err
		})
	}
	waitErr := g.Wait()

	var errs []error
	for _, r := range results {
		switch {
		case r.err != nil:
			errs = append(errs, r.err)
		case !r.skipped:
			result.Written = append(result.Written, r.variant.Key)
		}
	}

	if waitErr != nil {
		result.Outcome = types.OutcomeFailed
		return result, errors.Join(errs...)
	}
	if len(result.Written) == 0 {
		result.Outcome, result.Reason = types.OutcomeSkipped, "source too small for every preset"
		return result, nil
	}
	result.Outcome = types.OutcomeWritten
	return result, nil
}

// writePreset scales the source for one preset and stores the variant.
// skipped is true when the scaled size rounds to zero.
func (h *ResizeHandler) writePreset(ctx context.Context, bucket string, key string, contentType string, preset types.ScalePreset, logctx *zap.SugaredLogger) (types.TransformResult, bool, error) {
	logctx = logctx.With("preset", preset.Suffix)

	variant, skipped, err := h.resizePreset(ctx, bucket, key, preset, logctx)
	if err != nil || skipped {
		return variant, skipped, err
	}

	if err := h.store.Put(ctx, bucket, variant.Key, variant.Body, contentType, map[string]string{ResizedMarker: "true"}); err != nil {
		return variant, false, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	logctx.Infow("Uploaded variant", "outputKey", variant.Key, "size", len(variant.Body))
	return variant, false, nil
}

// resizePreset fetches the source again and scales it for one preset.
func (h *ResizeHandler) resizePreset(ctx context.Context, bucket string, key string, preset types.ScalePreset, logctx *zap.SugaredLogger) (types.TransformResult, bool, error) {
	variant := types.TransformResult{Key: OutputKey(key, preset)}

	obj, err := h.store.Get(ctx, bucket, key)
	if err != nil {
		return variant, false, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	info, err := h.codec.Identify(obj.Body)
	if err != nil {
		return variant, false, fmt.Errorf("%w: identify: %w", ErrCodec, err)
	}

	width, height := TargetDimensions(info.Width, info.Height, preset)
	if width < 1 || height < 1 {
		logctx.Warnw("Skipping preset, scaled size is empty",
			"sourceWidth", info.Width,
			"sourceHeight", info.Height,
			"divisor", preset.Divisor,
		)
		return variant, true, nil
	}

	variant.Body, err = h.codec.Resize(obj.Body, width, height)
	if err != nil {
		return variant, false, fmt.Errorf("%w: resize: %w", ErrCodec, err)
	}
	logctx.Debugw("Scaled variant", "width", width, "height", height)
	return variant, false, nil
}
