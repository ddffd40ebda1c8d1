package dashboard

import (
	"context"

	"fleetops/fleet-portal/fleet-portal-backend/internal/inspection"
	"fleetops/fleet-portal/fleet-portal-backend/internal/workorders"
)

// Invalidator clears cached stats whenever an inspection or work order is written.
type Invalidator struct {
	aggregator *Aggregator
}

func NewInvalidator(aggregator *Aggregator) *Invalidator {
	return &Invalidator{aggregator: aggregator}
}

func (i *Invalidator) InspectionSubmitted(ctx context.Context, rec inspection.Record) {
	i.aggregator.Invalidate()
}

func (i *Invalidator) WorkOrderCreated(ctx context.Context, wo workorders.WorkOrder) {
	i.aggregator.Invalidate()
}

func (i *Invalidator) WorkOrderStatusChanged(ctx context.Context, wo workorders.WorkOrder, from workorders.Status) {
	i.aggregator.Invalidate()
}

// InventoryChanged matches the inventory service change hook.
func (i *Invalidator) InventoryChanged() {
	i.aggregator.Invalidate()
}
