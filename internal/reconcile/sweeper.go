package reconcile

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/imrishuroy/tracksync/internal/tracks"
)

// DefaultBatchSize is the number of unresolved records one sweep processes.
const DefaultBatchSize = 10

// Reconciler reconciles one track record.
type Reconciler interface {
	Reconcile(ctx context.Context, itemID string, rec tracks.Record) error
}

// CandidateStore finds records a sweep should retry.
type CandidateStore interface {
	Get(ctx context.Context, itemID string) (*tracks.Record, error)
	ListUnresolved(ctx context.Context, limit int) ([]tracks.Record, error)
}

type SweeperConfig struct {
	Reconciler Reconciler
	Store      CandidateStore
	BatchSize  int
	// RatePerSecond paces reconciliations. Zero or less means unpaced.
	RatePerSecond float64
	Logger        *log.Logger
}

// SweepReport summarises one sweep.
type SweepReport struct {
	Candidates int      `json:"candidates"`
	Succeeded  int      `json:"succeeded"`
	Failed     int      `json:"failed"`
	FailedIDs  []string `json:"failed_ids,omitempty"`
}

// Sweeper retries reconciliation for records that never got a catalog URI.
// Records are processed one at a time.
type Sweeper struct {
	reconciler Reconciler
	store      CandidateStore
	batchSize  int
	limiter    *rate.Limiter
	logger     *log.Logger
}

func NewSweeper(cfg SweeperConfig) *Sweeper {
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = DefaultBatchSize
	}
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	return &Sweeper{
		reconciler: cfg.Reconciler,
		store:      cfg.Store,
		batchSize:  batch,
		limiter:    rate.NewLimiter(limit, 1),
		logger:     cfg.Logger,
	}
}

// Candidates returns up to one batch of unresolved records.
func (s *Sweeper) Candidates(ctx context.Context) ([]tracks.Record, error) {
	recs, err := s.store.ListUnresolved(ctx, s.batchSize)
	if err != nil {
		return nil, fmt.Errorf("list unresolved: %w", err)
	}
	return recs, nil
}

// Run reconciles recs sequentially. A failure on one record is logged and the
// sweep moves on. The error is non-nil only if ctx ends before the batch does.
func (s *Sweeper) Run(ctx context.Context, recs []tracks.Record) (SweepReport, error) {
	report := SweepReport{Candidates: len(recs)}
	for _, rec := range recs {
		if err := s.limiter.Wait(ctx); err != nil {
			return report, fmt.Errorf("sweep interrupted: %w", err)
		}
		if err := s.reconciler.Reconcile(ctx, rec.ItemID, rec); err != nil {
			s.logger.Error("reconcile failed", "item_id", rec.ItemID, "err", err)
			report.Failed++
			report.FailedIDs = append(report.FailedIDs, rec.ItemID)
			continue
		}
		report.Succeeded++
	}
	s.logger.Info("sweep finished", "candidates", report.Candidates, "succeeded", report.Succeeded, "failed", report.Failed)
	return report, nil
}

// Sweep reads one batch of candidates and runs it to completion.
func (s *Sweeper) Sweep(ctx context.Context) (SweepReport, error) {
	recs, err := s.Candidates(ctx)
	if err != nil {
		return SweepReport{}, err
	}
	return s.Run(ctx, recs)
}

// RunIDs loads each record by id and runs the ones still present.
func (s *Sweeper) RunIDs(ctx context.Context, itemIDs []string) (SweepReport, error) {
	recs := make([]tracks.Record, 0, len(itemIDs))
	for _, id := range itemIDs {
		rec, err := s.store.Get(ctx, id)
		if err != nil {
			return SweepReport{}, fmt.Errorf("load %s: %w", id, err)
		}
		if rec == nil {
			s.logger.Warn("sweep candidate vanished", "item_id", id)
			continue
		}
		recs = append(recs, *rec)
	}
	return s.Run(ctx, recs)
}
