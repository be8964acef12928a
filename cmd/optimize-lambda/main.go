package main

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/mahirjain10/image-handlers/internal/app"
	"github.com/mahirjain10/image-handlers/internal/handlers"
)

func main() {
	a, err := app.NewApp(context.Background(), nil)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}
	defer a.Logger.Sync()

	lambda.Start(func(ctx context.Context, event events.S3Event) error {
		return handlers.HandleS3Event(ctx, a.Optimize, a.Logger, event)
	})
}
