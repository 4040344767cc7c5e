package main

import (
	"context"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/imrishuroy/tracksync/internal/app"
	"github.com/imrishuroy/tracksync/internal/config"
	"github.com/imrishuroy/tracksync/internal/logging"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		logging.New(os.Stderr, logging.Options{}).Fatal("failed to load config", "err", err)
	}
	logger := logging.New(os.Stderr, logging.Options{Level: cfg.Log.Level, JSON: cfg.Log.JSON})
	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid config", "err", err)
	}

	a, err := app.New(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal("failed to init app", "err", err)
	}
	p := NewProcessor(a.Sweeper, logger.WithPrefix("worker"))

	// RUN_LOCAL=true runs one sweep message from LOCAL_SQS_BODY and exits.
	if cfg.Server.RunLocal {
		body := os.Getenv("LOCAL_SQS_BODY")
		if body == "" {
			logger.Fatal("LOCAL_SQS_BODY is required when RUN_LOCAL=true")
		}
		resp, err := p.Handle(context.Background(), events.SQSEvent{
			Records: []events.SQSMessage{{MessageId: "local", Body: body}},
		})
		if err != nil || len(resp.BatchItemFailures) > 0 {
			logger.Fatal("local sweep failed", "err", err)
		}
		return
	}

	lambda.Start(p.Handle)
}
