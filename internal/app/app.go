package app

import (
	"context"
	"fmt"

	"github.com/mahirjain10/image-handlers/config"
	"github.com/mahirjain10/image-handlers/internal/aws"
	"github.com/mahirjain10/image-handlers/internal/handlers"
	"github.com/mahirjain10/image-handlers/internal/logging"
	"github.com/mahirjain10/image-handlers/internal/metrics"
	"github.com/mahirjain10/image-handlers/internal/transformation"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// App holds the dependencies shared by the queue worker and the function
// entry points.
type App struct {
	Config   *config.Config
	Logger   *zap.SugaredLogger
	Optimize *handlers.OptimizeHandler
	Resize   *handlers.ResizeHandler
}

// NewApp loads the environment, builds the S3 service and codec and wires
// both handlers to them.
func NewApp(ctx context.Context, reg prometheus.Registerer) (*App, error) {
	envConfig, err := config.InitializeEnvs()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize environment config: %w", err)
	}

	logger, err := logging.NewLogger(envConfig.LogLevel)
	if err != nil {
		return nil, err
	}

	observer, err := metrics.NewPrometheusObserver("", reg)
	if err != nil {
		return nil, err
	}

	awsConfig, err := config.InitializeAws(ctx, envConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize AWS config: %w", err)
	}
	s3Service := aws.NewS3Service(aws.NewS3Client(awsConfig, envConfig.S3Endpoint))
	codec := transformation.NewCodec()

	logger.Infow("Application initialized",
		"targetQuality", envConfig.TargetQuality,
		"keepOriginal", envConfig.KeepOriginal,
		"region", awsConfig.Region,
	)

	return &App{
		Config:   envConfig,
		Logger:   logger,
		Optimize: handlers.NewOptimizeHandler(s3Service, codec, envConfig, logger, observer),
		Resize:   handlers.NewResizeHandler(s3Service, codec, logger, observer),
	}, nil
}
