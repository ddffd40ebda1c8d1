package notifications

import (
	"context"
	"time"

	"go.uber.org/zap"

	"fleetops/fleet-portal/fleet-portal-backend/internal/inspection"
	"fleetops/fleet-portal/fleet-portal-backend/internal/notifications/websocket"
	"fleetops/fleet-portal/fleet-portal-backend/internal/workorders"
)

// Broadcaster pushes a message to every connected client.
type Broadcaster interface {
	Broadcast(msg websocket.Message) int
}

// DefectAlerter delivers failed-inspection alerts out of band.
type DefectAlerter interface {
	PublishDefect(ctx context.Context, alert DefectAlert) (string, error)
}

// Notifier turns inspection and work order events into websocket pushes
// and, for failed inspections, defect alerts.
type Notifier struct {
	hub     Broadcaster
	alerter DefectAlerter
	logger  *zap.Logger
	timeout time.Duration
}

// NewNotifier builds a notifier. alerter may be nil.
func NewNotifier(hub Broadcaster, alerter DefectAlerter, logger *zap.Logger) *Notifier {
	return &Notifier{hub: hub, alerter: alerter, logger: logger, timeout: 15 * time.Second}
}

func (n *Notifier) push(eventType string, data interface{}) {
	sent := n.hub.Broadcast(websocket.Message{Type: eventType, Data: data, Timestamp: time.Now()})
	n.logger.Debug("Event broadcast", zap.String("type", eventType), zap.Int("clients", sent))
}

func (n *Notifier) InspectionSubmitted(ctx context.Context, rec inspection.Record) {
	n.push(EventInspectionSubmitted, newInspectionEvent(rec))

	if rec.Outcome != inspection.OutcomeFailed || n.alerter == nil {
		return
	}
	// The request context is gone by the time listeners run.
	actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.timeout)
	defer cancel()

	id, err := n.alerter.PublishDefect(actx, DefectAlert{
		InspectionID:  rec.ID,
		TrailerNumber: rec.TrailerNumber,
		Technician:    rec.OperatorName,
		Defects:       rec.Defects,
		IssueCount:    rec.IssueCount,
		InspectedAt:   rec.InspectionDate,
	})
	if err != nil {
		n.logger.Error("Failed to send defect alert", zap.String("inspection_id", rec.ID), zap.Error(err))
		return
	}
	n.logger.Info("Defect alert sent",
		zap.String("inspection_id", rec.ID),
		zap.String("trailer_number", rec.TrailerNumber),
		zap.String("message_id", id))
}

func (n *Notifier) WorkOrderCreated(ctx context.Context, wo workorders.WorkOrder) {
	n.push(EventWorkOrderCreated, newWorkOrderEvent(wo))
}

func (n *Notifier) WorkOrderStatusChanged(ctx context.Context, wo workorders.WorkOrder, from workorders.Status) {
	ev := newWorkOrderEvent(wo)
	ev.PreviousStatus = from
	n.push(EventWorkOrderStatusChanged, ev)
}
