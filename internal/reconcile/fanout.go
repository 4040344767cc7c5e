package reconcile

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/imrishuroy/tracksync/internal/purchases"
	"github.com/imrishuroy/tracksync/internal/tracks"
)

// TrackCreator creates track records idempotently.
type TrackCreator interface {
	CreateIfNotExists(ctx context.Context, rec tracks.Record) (bool, error)
}

// FanOut turns a recorded purchase into one track record per item.
type FanOut struct {
	store  TrackCreator
	logger *log.Logger
}

func NewFanOut(store TrackCreator, logger *log.Logger) *FanOut {
	return &FanOut{store: store, logger: logger}
}

// Process creates the purchase's track records concurrently and returns how
// many were new. Malformed item ids are skipped.
func (f *FanOut) Process(ctx context.Context, p purchases.Purchase) (int, error) {
	var (
		g       errgroup.Group
		created atomic.Int64
	)
	for itemID, payload := range p.Tracks {
		if !tracks.ValidItemID(itemID) {
			f.logger.Warn("skipping malformed item id", "order_id", p.OrderID, "item_id", itemID)
			continue
		}
		g.Go(func() error {
			ok, err := f.store.CreateIfNotExists(ctx, tracks.Record{
				ItemID:  itemID,
				OrderID: p.OrderID,
				Track:   payload,
			})
			if err != nil {
				return fmt.Errorf("create track %s: %w", itemID, err)
			}
			if ok {
				created.Add(1)
			} else {
				f.logger.Debug("track already known", "item_id", itemID)
			}
			return nil
		})
	}
	err := g.Wait()
	return int(created.Load()), err
}
