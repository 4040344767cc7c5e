package main

import (
	"context"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"

	"github.com/imrishuroy/tracksync/internal/app"
	"github.com/imrishuroy/tracksync/internal/config"
	"github.com/imrishuroy/tracksync/internal/handlers"
	"github.com/imrishuroy/tracksync/internal/logging"
)

func main() {
	logger := logging.New(os.Stderr, logging.Options{})

	cfg, err := config.Load("")
	if err != nil {
		logger.Fatal("failed to load config", "err", err)
	}
	logger = logging.New(os.Stderr, logging.Options{Level: cfg.Log.Level, JSON: cfg.Log.JSON})
	if err := cfg.ValidateQueue(); err != nil {
		logger.Fatal("invalid config", "err", err)
	}

	a, err := app.New(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal("failed to init app", "err", err)
	}

	r := handlers.NewRouter(handlers.HandlerConfig{
		Purchases:  a.Purchases,
		Candidates: a.Sweeper,
		Queue:      a.Publisher,
		Logger:     logger.WithPrefix("http"),
	})

	// RUN_LOCAL=true serves plain HTTP for development.
	if cfg.Server.RunLocal {
		logger.Info("running local server", "addr", cfg.Server.Addr)
		if err := r.Run(cfg.Server.Addr); err != nil {
			logger.Fatal("failed to run local server", "err", err)
		}
		return
	}

	adapter := ginadapter.New(r)

	lambda.Start(func(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		return adapter.ProxyWithContext(ctx, req)
	})
}
