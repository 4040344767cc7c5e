package main

import (
	"context"
	"encoding/json"

	"github.com/aws/aws-lambda-go/events"
	"github.com/charmbracelet/log"

	"github.com/imrishuroy/tracksync/internal/reconcile"
)

// SweepRunner reconciles a fixed set of records.
type SweepRunner interface {
	RunIDs(ctx context.Context, itemIDs []string) (reconcile.SweepReport, error)
}

// Processor consumes queued sweep requests.
type Processor struct {
	sweeper SweepRunner
	logger  *log.Logger
}

func NewProcessor(sweeper SweepRunner, logger *log.Logger) *Processor {
	return &Processor{sweeper: sweeper, logger: logger}
}

// Handle runs each queued sweep in turn. Messages that cannot be decoded are
// dropped; sweeps that could not finish are reported back for redelivery.
func (p *Processor) Handle(ctx context.Context, ev events.SQSEvent) (events.SQSEventResponse, error) {
	var resp events.SQSEventResponse
	for _, rec := range ev.Records {
		var msg reconcile.SweepMessage
		if err := json.Unmarshal([]byte(rec.Body), &msg); err != nil {
			p.logger.Error("dropping undecodable sweep message", "message_id", rec.MessageId, "err", err)
			continue
		}

		logger := p.logger.With("sweep_id", msg.SweepID, "message_id", rec.MessageId)
		logger.Info("sweep started", "count", len(msg.ItemIDs))

		report, err := p.sweeper.RunIDs(ctx, msg.ItemIDs)
		if err != nil {
			logger.Error("sweep did not finish", "err", err)
			resp.BatchItemFailures = append(resp.BatchItemFailures, events.SQSBatchItemFailure{
				ItemIdentifier: rec.MessageId,
			})
			continue
		}
		logger.Info("sweep done", "succeeded", report.Succeeded, "failed", report.Failed)
	}
	return resp, nil
}
