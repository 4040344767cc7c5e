package main

import (
	"context"
	"os"

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

	p := NewProcessor(ProcessorConfig{
		PurchasesTable: cfg.Tables.Purchases,
		TracksTable:    cfg.Tables.Tracks,
		FanOut:         a.FanOut,
		Reconciler:     a.Driver,
		Logger:         logger.WithPrefix("trigger"),
	})

	lambda.Start(p.Handle)
}
