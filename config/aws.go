package config

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
)

// InitializeAws loads the default AWS configuration, overriding region and
// credentials when they were provided explicitly.
func InitializeAws(ctx context.Context, c *Config) (aws.Config, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if c.AwsRegion != "" {
		opts = append(opts, awsconfig.WithRegion(c.AwsRegion))
	}
	if c.AwsAccessKey != "" && c.AwsSecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(c.AwsAccessKey, c.AwsSecretKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("error while initializing aws: %w", err)
	}
	return cfg, nil
}
