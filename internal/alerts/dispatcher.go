package alerts

import (
	"context"
	"time"

	"go.uber.org/zap"

	"fleetops/fleet-portal/fleet-portal-backend/internal/notifications/websocket"
)

const EventAlertRaised = "alert.raised"

type Broadcaster interface {
	Broadcast(msg websocket.Message) int
}

// Dispatch drains the engine queue onto the hub until ctx ends.
func Dispatch(ctx context.Context, engine *Engine, hub Broadcaster, logger *zap.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case a := <-engine.Queue():
			sent := hub.Broadcast(websocket.Message{Type: EventAlertRaised, Data: a, Timestamp: time.Now()})
			logger.Debug("Alert dispatched", zap.String("rule_id", a.RuleID), zap.String("subject", a.Subject), zap.Int("clients", sent))
		}
	}
}
