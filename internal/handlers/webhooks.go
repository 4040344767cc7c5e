package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/imrishuroy/tracksync/internal/purchases"
	"github.com/imrishuroy/tracksync/internal/reconcile"
	"github.com/imrishuroy/tracksync/internal/tracks"
	"github.com/imrishuroy/tracksync/internal/validation"
)

// PurchaseStore records purchases.
type PurchaseStore interface {
	Create(ctx context.Context, p purchases.Purchase) error
}

// CandidateSource lists records a sweep should retry.
type CandidateSource interface {
	Candidates(ctx context.Context) ([]tracks.Record, error)
}

// Enqueuer hands a JSON message to the background queue.
type Enqueuer interface {
	SendJSON(ctx context.Context, v any, attributes map[string]string) (string, error)
}

// HandlerConfig groups dependencies for the webhook handlers.
type HandlerConfig struct {
	Purchases  PurchaseStore
	Candidates CandidateSource
	Queue      Enqueuer
	Logger     *log.Logger
}

// RegisterWebhookRoutes registers the inbound webhook routes.
func RegisterWebhookRoutes(r *gin.Engine, cfg HandlerConfig) {
	v := validation.New()

	r.POST("/webhooks/purchase", func(c *gin.Context) {
		ctx := c.Request.Context()
		logger := cfg.Logger.With("request_id", requestID(c))

		var req validation.PurchaseWebhookRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			// BindAndValidate already wrote a 400
			logger.Warn("rejected purchase webhook", "err", err)
			return
		}

		items, skipped := validation.NormalizeTracks(req.Tracks)
		if skipped > 0 {
			logger.Warn("skipped tracks with malformed item ids", "order_id", req.OrderID, "skipped", skipped)
		}

		err := cfg.Purchases.Create(ctx, purchases.Purchase{
			OrderID:   req.OrderID,
			Tracks:    items,
			CreatedAt: time.Now().UTC(),
		})
		duplicate := errors.Is(err, purchases.ErrDuplicate)
		if err != nil && !duplicate {
			logger.Error("store purchase failed", "order_id", req.OrderID, "err", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "store_failed"})
			return
		}
		if duplicate {
			logger.Info("purchase already recorded", "order_id", req.OrderID)
		} else {
			logger.Info("purchase recorded", "order_id", req.OrderID, "tracks", len(items))
		}

		c.JSON(http.StatusOK, gin.H{
			"order_id":  req.OrderID,
			"accepted":  len(items),
			"skipped":   skipped,
			"duplicate": duplicate,
		})
	})

	r.POST("/webhooks/sweep", func(c *gin.Context) {
		ctx := c.Request.Context()
		logger := cfg.Logger.With("request_id", requestID(c))

		var req validation.SweepRequest
		if c.Request.ContentLength > 0 {
			if err := validation.BindAndValidate(c, &req, v); err != nil {
				return
			}
		}

		recs, err := cfg.Candidates.Candidates(ctx)
		if err != nil {
			logger.Error("list sweep candidates failed", "err", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "candidates_failed"})
			return
		}
		if req.Limit > 0 && len(recs) > req.Limit {
			recs = recs[:req.Limit]
		}

		msg := reconcile.SweepMessage{
			SweepID:     uuid.NewString(),
			ItemIDs:     make([]string, 0, len(recs)),
			RequestedAt: time.Now().UTC(),
		}
		for _, rec := range recs {
			msg.ItemIDs = append(msg.ItemIDs, rec.ItemID)
		}

		if len(msg.ItemIDs) > 0 {
			attrs := map[string]string{
				"sweep_id":       msg.SweepID,
				"correlation_id": requestID(c),
			}
			if _, err := cfg.Queue.SendJSON(ctx, msg, attrs); err != nil {
				logger.Error("enqueue sweep failed", "sweep_id", msg.SweepID, "err", err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "enqueue_failed"})
				return
			}
		}
		logger.Info("sweep enqueued", "sweep_id", msg.SweepID, "count", len(msg.ItemIDs))

		c.JSON(http.StatusOK, gin.H{
			"sweep_id": msg.SweepID,
			"count":    len(msg.ItemIDs),
			"item_ids": msg.ItemIDs,
		})
	})
}
