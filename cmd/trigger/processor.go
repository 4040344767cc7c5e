package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/imrishuroy/tracksync/internal/aws"
	"github.com/imrishuroy/tracksync/internal/purchases"
	"github.com/imrishuroy/tracksync/internal/tracks"
)

const eventInsert = "INSERT"

// PurchaseFanOut creates track records for a recorded purchase.
type PurchaseFanOut interface {
	Process(ctx context.Context, p purchases.Purchase) (int, error)
}

// TrackReconciler reconciles a newly created track record.
type TrackReconciler interface {
	Reconcile(ctx context.Context, itemID string, rec tracks.Record) error
}

type ProcessorConfig struct {
	PurchasesTable string
	TracksTable    string
	FanOut         PurchaseFanOut
	Reconciler     TrackReconciler
	Logger         *log.Logger
}

// Processor reacts to record creation on the purchases and tracks tables.
type Processor struct {
	cfg ProcessorConfig
}

func NewProcessor(cfg ProcessorConfig) *Processor {
	return &Processor{cfg: cfg}
}

// Handle processes every INSERT in the batch concurrently.
//
// A failed purchase fan-out is reported back so the stream redelivers it; the
// created track records are the only input a later sweep can see. A failed
// track reconciliation is only logged since the sweep retries it.
func (p *Processor) Handle(ctx context.Context, ev events.DynamoDBEvent) (events.DynamoDBEventResponse, error) {
	var (
		g        errgroup.Group
		mu       sync.Mutex
		failures []events.DynamoDBBatchItemFailure
	)
	for _, rec := range ev.Records {
		if rec.EventName != eventInsert {
			continue
		}
		g.Go(func() error {
			if err := p.handleRecord(ctx, rec); err != nil {
				p.cfg.Logger.Error("stream record failed", "event_id", rec.EventID, "err", err)
				mu.Lock()
				failures = append(failures, events.DynamoDBBatchItemFailure{ItemIdentifier: rec.Change.SequenceNumber})
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return events.DynamoDBEventResponse{BatchItemFailures: failures}, nil
}

func (p *Processor) handleRecord(ctx context.Context, rec events.DynamoDBEventRecord) error {
	item, err := aws.StreamImage(rec.Change.NewImage)
	if err != nil {
		return fmt.Errorf("decode image: %w", err)
	}

	switch table := aws.TableFromStreamARN(rec.EventSourceArn); table {
	case p.cfg.PurchasesTable:
		purchase, err := purchases.Decode(item)
		if err != nil {
			// never going to decode on redelivery either
			p.cfg.Logger.Error("dropping malformed purchase", "err", err)
			return nil
		}
		n, err := p.cfg.FanOut.Process(ctx, *purchase)
		if err != nil {
			return fmt.Errorf("fan out order %s: %w", purchase.OrderID, err)
		}
		p.cfg.Logger.Info("purchase fanned out", "order_id", purchase.OrderID, "created", n)
		return nil

	case p.cfg.TracksTable:
		track, err := tracks.Decode(item)
		if err != nil {
			p.cfg.Logger.Error("dropping malformed track", "err", err)
			return nil
		}
		if err := p.cfg.Reconciler.Reconcile(ctx, track.ItemID, *track); err != nil {
			p.cfg.Logger.Warn("reconcile failed, left for sweep", "item_id", track.ItemID, "err", err)
		}
		return nil

	default:
		p.cfg.Logger.Warn("ignoring record from unknown table", "table", table)
		return nil
	}
}
