package documents

import (
	"context"
	"time"

	"go.uber.org/zap"

	"fleetops/fleet-portal/fleet-portal-backend/internal/inspection"
	"fleetops/fleet-portal/fleet-portal-backend/internal/workorders"
)

// Archiver archives reports as inspections and work orders are written.
// Completed work orders are archived again so the stored copy carries the final status.
type Archiver struct {
	service Service
	logger  *zap.Logger
	timeout time.Duration
}

func NewArchiver(service Service, logger *zap.Logger) *Archiver {
	return &Archiver{service: service, logger: logger, timeout: time.Minute}
}

func (a *Archiver) detached(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), a.timeout)
}

func (a *Archiver) InspectionSubmitted(ctx context.Context, rec inspection.Record) {
	actx, cancel := a.detached(ctx)
	defer cancel()
	if _, err := a.service.ArchiveInspection(actx, &rec); err != nil {
		a.logger.Error("Failed to archive inspection report", zap.String("inspection_id", rec.ID), zap.Error(err))
	}
}

func (a *Archiver) WorkOrderCreated(ctx context.Context, wo workorders.WorkOrder) {
	a.archiveWorkOrder(ctx, wo)
}

func (a *Archiver) WorkOrderStatusChanged(ctx context.Context, wo workorders.WorkOrder, from workorders.Status) {
	if wo.Status != workorders.StatusCompleted {
		return
	}
	a.archiveWorkOrder(ctx, wo)
}

func (a *Archiver) archiveWorkOrder(ctx context.Context, wo workorders.WorkOrder) {
	actx, cancel := a.detached(ctx)
	defer cancel()
	if _, err := a.service.ArchiveWorkOrder(actx, &wo); err != nil {
		a.logger.Error("Failed to archive work order", zap.String("wo_number", wo.Number), zap.Error(err))
	}
}
