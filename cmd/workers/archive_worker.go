package main

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"fleetops/fleet-portal/fleet-portal-backend/internal/documents"
	"fleetops/fleet-portal/fleet-portal-backend/internal/inspection"
	"fleetops/fleet-portal/fleet-portal-backend/internal/workorders"
)

// ArchiveWorker stores PDFs for inspections and work orders that were
// written while the archive was unavailable.
type ArchiveWorker struct {
	documents   documents.Service
	inspections interface {
		ListInspections(ctx context.Context, filter inspection.ListFilter) ([]inspection.Record, error)
	}
	workOrders interface {
		List(ctx context.Context, trailerID string) ([]workorders.WorkOrder, error)
	}
	logger *zap.Logger
	config ArchiveWorkerConfig
}

type ArchiveWorkerConfig struct {
	PollInterval  time.Duration
	MaxConcurrent int
	Lookback      time.Duration
}

func DefaultArchiveWorkerConfig() ArchiveWorkerConfig {
	return ArchiveWorkerConfig{
		PollInterval:  10 * time.Minute,
		MaxConcurrent: 4,
		Lookback:      30 * 24 * time.Hour,
	}
}

// Start runs a backfill pass immediately and then on every tick until ctx ends.
func (w *ArchiveWorker) Start(ctx context.Context) {
	w.logger.Info("Starting archive worker",
		zap.Duration("poll_interval", w.config.PollInterval),
		zap.Int("max_concurrent", w.config.MaxConcurrent))

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	w.backfill(ctx)
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Archive worker shutting down")
			return
		case <-ticker.C:
			w.backfill(ctx)
		}
	}
}

func (w *ArchiveWorker) backfill(ctx context.Context) {
	since := time.Now().Add(-w.config.Lookback)
	records, err := w.inspections.ListInspections(ctx, inspection.ListFilter{Since: &since})
	if err != nil {
		w.logger.Error("Failed to list inspections", zap.Error(err))
		return
	}
	orders, err := w.workOrders.List(ctx, "")
	if err != nil {
		w.logger.Error("Failed to list work orders", zap.Error(err))
		return
	}

	var jobs []func(context.Context) error
	for i := range records {
		rec := records[i]
		if rec.ReportKey != "" {
			continue
		}
		jobs = append(jobs, func(ctx context.Context) error {
			_, err := w.documents.ArchiveInspection(ctx, &rec)
			return err
		})
	}
	for i := range orders {
		wo := orders[i]
		if wo.PDFKey != "" || wo.Date.Before(since) {
			continue
		}
		jobs = append(jobs, func(ctx context.Context) error {
			_, err := w.documents.ArchiveWorkOrder(ctx, &wo)
			return err
		})
	}
	if len(jobs) == 0 {
		return
	}

	w.logger.Info("Archiving missing reports", zap.Int("count", len(jobs)))
	sem := make(chan struct{}, w.config.MaxConcurrent)
	var wg sync.WaitGroup
	for _, job := range jobs {
		if ctx.Err() != nil {
			break
		}
		sem <- struct{}{}
		wg.Add(1)
		go func(job func(context.Context) error) {
			defer func() {
				<-sem
				wg.Done()
			}()
			if err := job(ctx); err != nil {
				w.logger.Warn("Archive failed", zap.Error(err))
			}
		}(job)
	}
	wg.Wait()
}
