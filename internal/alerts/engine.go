package alerts

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"fleetops/fleet-portal/fleet-portal-backend/internal/dashboard"
	"fleetops/fleet-portal/fleet-portal-backend/internal/inspection"
	"fleetops/fleet-portal/fleet-portal-backend/internal/inventory"
)

const historySize = 100

// Sources are the read paths rules are evaluated against.
type Sources struct {
	Inventory interface {
		ListItems(ctx context.Context) (*inventory.ListResponse, error)
	}
	Inspections interface {
		ListInspections(ctx context.Context, filter inspection.ListFilter) ([]inspection.Record, error)
	}
}

// Engine evaluates maintenance rules and queues alerts for delivery.
// A rule fires at most once per subject within its cooldown.
type Engine struct {
	sources   Sources
	rules     []Rule
	cooldowns *cache.Cache
	queue     chan *Alert
	logger    *zap.Logger
	now       func() time.Time

	mu      sync.RWMutex
	history []Alert
}

func NewEngine(sources Sources, rules []Rule, logger *zap.Logger) *Engine {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &Engine{
		sources:   sources,
		rules:     rules,
		cooldowns: cache.New(cache.NoExpiration, 30*time.Minute),
		queue:     make(chan *Alert, 1000),
		logger:    logger,
		now:       time.Now,
	}
}

func (e *Engine) Rules() []Rule {
	return append([]Rule(nil), e.rules...)
}

// Evaluate runs every active rule and returns the alerts it raised.
func (e *Engine) Evaluate(ctx context.Context) ([]Alert, error) {
	var raised []Alert
	for _, rule := range e.rules {
		if !rule.IsActive {
			continue
		}
		candidates, err := e.evaluateRule(ctx, rule)
		if err != nil {
			return raised, fmt.Errorf("rule %s: %w", rule.ID, err)
		}
		for _, a := range candidates {
			if e.inCooldown(rule, a.Subject) {
				continue
			}
			raised = append(raised, a)
			e.record(a)

			alert := a
			select {
			case e.queue <- &alert:
			default:
				e.logger.Warn("Alert queue full, alert not queued", zap.String("alert_id", a.ID.String()))
			}
		}
	}
	if len(raised) > 0 {
		e.logger.Info("Maintenance alerts raised", zap.Int("count", len(raised)))
	}
	return raised, nil
}

// PublishStats lets the dashboard scheduler drive rule evaluation.
func (e *Engine) PublishStats(ctx context.Context, _ *dashboard.Stats) error {
	_, err := e.Evaluate(ctx)
	return err
}

// inCooldown claims the rule/subject slot. Add fails when the key exists, so
// concurrent evaluations raise an alert at most once.
func (e *Engine) inCooldown(rule Rule, subject string) bool {
	if rule.CooldownMinutes <= 0 {
		return false
	}
	key := rule.ID + ":" + subject
	return e.cooldowns.Add(key, struct{}{}, time.Duration(rule.CooldownMinutes)*time.Minute) != nil
}

func (e *Engine) evaluateRule(ctx context.Context, rule Rule) ([]Alert, error) {
	switch rule.Condition {
	case ConditionLowStock:
		return e.evaluateLowStock(ctx, rule)
	case ConditionInspectionOverdue, ConditionInspectionDueSoon:
		return e.evaluateDueDates(ctx, rule)
	default:
		return nil, fmt.Errorf("unknown condition: %s", rule.Condition)
	}
}

func (e *Engine) evaluateLowStock(ctx context.Context, rule Rule) ([]Alert, error) {
	resp, err := e.sources.Inventory.ListItems(ctx)
	if err != nil {
		return nil, err
	}
	threshold := int(rule.Threshold)
	if threshold <= 0 {
		threshold = resp.LowStockThreshold
	}

	var out []Alert
	for _, item := range resp.Items {
		if !item.LowStock(threshold) {
			continue
		}
		out = append(out, e.newAlert(rule, item.Name,
			fmt.Sprintf("%s: %s has %d left (threshold %d)", rule.Name, item.Name, item.Available, threshold),
			map[string]interface{}{
				"item_id":   item.ID,
				"available": item.Available,
				"threshold": threshold,
				"shelf":     item.ShelfLocation,
			}))
	}
	return out, nil
}

// evaluateDueDates looks only at the latest inspection of each trailer.
func (e *Engine) evaluateDueDates(ctx context.Context, rule Rule) ([]Alert, error) {
	records, err := e.sources.Inspections.ListInspections(ctx, inspection.ListFilter{})
	if err != nil {
		return nil, err
	}
	latest := make(map[string]inspection.Record)
	for _, r := range records {
		if cur, ok := latest[r.TrailerID]; !ok || r.InspectionDate.After(cur.InspectionDate) {
			latest[r.TrailerID] = r
		}
	}

	now := e.now()
	horizon := now.Add(time.Duration(rule.Threshold * float64(24*time.Hour)))
	var out []Alert
	for _, r := range latest {
		if r.NextDueDate.IsZero() {
			continue
		}
		var hit bool
		var message string
		switch rule.Condition {
		case ConditionInspectionOverdue:
			hit = r.NextDueDate.Before(now)
			message = fmt.Sprintf("%s: %s was due %s", rule.Name, r.TrailerNumber, r.NextDueDate.Format("2006-01-02"))
		case ConditionInspectionDueSoon:
			hit = !r.NextDueDate.Before(now) && r.NextDueDate.Before(horizon)
			message = fmt.Sprintf("%s: %s is due %s", rule.Name, r.TrailerNumber, r.NextDueDate.Format("2006-01-02"))
		}
		if !hit {
			continue
		}
		out = append(out, e.newAlert(rule, r.TrailerNumber, message, map[string]interface{}{
			"trailer_id":      r.TrailerID,
			"inspection_id":   r.ID,
			"inspection_type": r.InspectionType,
			"next_due_date":   r.NextDueDate.Format("2006-01-02"),
		}))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Subject < out[j].Subject })
	return out, nil
}

func (e *Engine) newAlert(rule Rule, subject, message string, details map[string]interface{}) Alert {
	return Alert{
		ID:          uuid.New(),
		RuleID:      rule.ID,
		Subject:     subject,
		Severity:    rule.Severity,
		Title:       rule.Name,
		Message:     message,
		Details:     details,
		TriggeredAt: e.now(),
	}
}

func (e *Engine) record(a Alert) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.history = append(e.history, a)
	if len(e.history) > historySize {
		e.history = e.history[len(e.history)-historySize:]
	}
}

// Recent returns raised alerts, newest first.
func (e *Engine) Recent(limit int) []Alert {
	e.mu.RLock()
	defer e.mu.RUnlock()
	n := len(e.history)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]Alert, 0, limit)
	for i := n - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, e.history[i])
	}
	return out
}

// Queue returns the delivery queue.
func (e *Engine) Queue() <-chan *Alert {
	return e.queue
}
