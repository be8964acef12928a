package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/mahirjain10/image-handlers/config"
	"github.com/mahirjain10/image-handlers/internal/transformation"
	"github.com/mahirjain10/image-handlers/internal/types"
	"github.com/mahirjain10/image-handlers/internal/utils"
	"go.uber.org/zap"
)

const (
	HandlerOptimize = "optimize"

	// OptimisedMarker is set on every object the optimize handler writes.
	OptimisedMarker = "optimised"

	// ArchiveSuffix is inserted before the extension of the archived copy.
	ArchiveSuffix = "_orginal"
)

// OptimizeHandler recompresses an uploaded image in place when that makes
// it smaller.
type OptimizeHandler struct {
	store         ObjectStore
	codec         Codec
	targetQuality int
	keepOriginal  bool
	logger        *zap.SugaredLogger
	observer      Observer
}

func NewOptimizeHandler(store ObjectStore, codec Codec, cfg *config.Config, logger *zap.SugaredLogger, observer Observer) *OptimizeHandler {
	return &OptimizeHandler{
		store:         store,
		codec:         codec,
		targetQuality: cfg.TargetQuality,
		keepOriginal:  cfg.KeepOriginal,
		logger:        nopIfNil(logger),
		observer:      observer,
	}
}

func (h *OptimizeHandler) Name() string {
	return HandlerOptimize
}

// OptimizeOptions picks the re-encode settings: the lower of the source and
// target quality, and the source compression or JPEG when it has none.
// A source quality of 0 means it could not be determined.
func OptimizeOptions(source types.ImageInfo, targetQuality int) types.EncodeOptions {
	quality := targetQuality
	if source.Quality > 0 && source.Quality < targetQuality {
		quality = source.Quality
	}
	compression := source.Compression
	if compression == "" {
		compression = transformation.CompressionJPEG
	}
	return types.EncodeOptions{Quality: quality, Compression: compression}
}

func (h *OptimizeHandler) Handle(ctx context.Context, n types.UploadNotification) (types.Result, error) {
	start := time.Now()
	result, err := h.handle(ctx, n)
	record(h.observer, HandlerOptimize, result, err, start)
	return result, err
}

func (h *OptimizeHandler) handle(ctx context.Context, n types.UploadNotification) (types.Result, error) {
	result := types.Result{Handler: HandlerOptimize, Bucket: n.Bucket, Key: n.Key}

	key, err := utils.DecodeKey(n.Key)
	if err != nil {
		result.Outcome = types.OutcomeFailed
		return result, fmt.Errorf("%w: %w", ErrInvalidNotification, err)
	}
	result.Key = key

	logctx := h.logger.With(
		"func", "OptimizeHandler.Handle",
		"bucket", n.Bucket,
		"key", key,
	)

	if ok, reason := OptimizeEligible(key); !ok {
		logctx.Infow("Skipping object", "reason", reason)
		result.Outcome, result.Reason = types.OutcomeSkipped, reason
		return result, nil
	}

	logctx.Infow("Downloading object")
	obj, err := h.store.Get(ctx, n.Bucket, key)
	if err != nil {
		result.Outcome = types.OutcomeFailed
		return result, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	// The put below re-triggers this handler for the same key.
	if HasMarker(obj.Metadata, OptimisedMarker) {
		logctx.Infow("Stopping as object has been previously optimised")
		result.Outcome, result.Reason = types.OutcomeSkipped, "already optimised"
		return result, nil
	}

	original, err := h.codec.Identify(obj.Body)
	if err != nil {
		result.Outcome = types.OutcomeFailed
		return result, fmt.Errorf("%w: identify source: %w", ErrCodec, err)
	}

	opts := OptimizeOptions(original, h.targetQuality)
	buffer, err := h.codec.Encode(obj.Body, opts)
	if err != nil {
		result.Outcome = types.OutcomeFailed
		return result, fmt.Errorf("%w: encode: %w", ErrCodec, err)
	}

	optimised, err := h.codec.Identify(buffer)
	if err != nil {
		result.Outcome = types.OutcomeFailed
		return result, fmt.Errorf("%w: identify optimised: %w", ErrCodec, err)
	}

	logctx.Infow("Compared filesizes",
		"optimisedSize", optimised.Filesize,
		"originalSize", original.Filesize,
		"quality", opts.Quality,
		"compression", opts.Compression,
	)

	if optimised.Filesize >= original.Filesize {
		logctx.Infow("Not saving the new file as the original is smaller")
		result.Outcome, result.Reason = types.OutcomeKeptOriginal, "original is smaller"
		return result, nil
	}

	if h.keepOriginal {
		archiveKey := utils.InsertSuffix(key, ArchiveSuffix)
		logctx.Infow("Saving copy of original", "archiveKey", archiveKey)
		if err := h.store.Copy(ctx, n.Bucket, key, archiveKey); err != nil {
			logctx.Warnw("Could not archive original, overwriting anyway",
				"archiveKey", archiveKey,
				"Error", err.Error(),
			)
		} else {
			result.Written = append(result.Written, archiveKey)
		}
	}

	contentType := obj.ContentType
	if opts.Compression == transformation.CompressionJPEG && original.Format != "jpeg" {
		contentType = "image/jpeg"
	}

	logctx.Infow("Overwriting object with smaller version")
	err = h.store.Put(ctx, n.Bucket, key, buffer, contentType, map[string]string{OptimisedMarker: "true"})
	if err != nil {
		result.Outcome = types.OutcomeFailed
		return result, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	if h.observer != nil {
		h.observer.RecordBytesSaved(HandlerOptimize, original.Filesize-optimised.Filesize)
	}
	result.Outcome = types.OutcomeWritten
	result.Written = append(result.Written, key)
	return result, nil
}
