package alerts

import (
	"time"

	"github.com/google/uuid"
)

type Condition string

const (
	ConditionLowStock          Condition = "low_stock"
	ConditionInspectionOverdue Condition = "inspection_overdue"
	ConditionInspectionDueSoon Condition = "inspection_due_soon"
)

type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// Rule is a maintenance alert rule. Threshold is the stock level for
// low_stock (zero uses the inventory threshold) and the look-ahead in days
// for inspection_due_soon.
type Rule struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Condition       Condition `json:"condition"`
	Severity        Severity  `json:"severity"`
	Threshold       float64   `json:"threshold"`
	CooldownMinutes int       `json:"cooldown_minutes"`
	IsActive        bool      `json:"is_active"`
}

// Alert is one triggered rule for one subject (a part or a trailer).
type Alert struct {
	ID          uuid.UUID              `json:"id"`
	RuleID      string                 `json:"rule_id"`
	Subject     string                 `json:"subject"`
	Severity    Severity               `json:"severity"`
	Title       string                 `json:"title"`
	Message     string                 `json:"message"`
	Details     map[string]interface{} `json:"details,omitempty"`
	TriggeredAt time.Time              `json:"triggered_at"`
}

// DefaultRules are evaluated when no rules are configured.
func DefaultRules() []Rule {
	return []Rule{
		{ID: "low-stock", Name: "Low stock", Condition: ConditionLowStock, Severity: SeverityWarning, CooldownMinutes: 24 * 60, IsActive: true},
		{ID: "inspection-overdue", Name: "Inspection overdue", Condition: ConditionInspectionOverdue, Severity: SeverityCritical, CooldownMinutes: 12 * 60, IsActive: true},
		{ID: "inspection-due-soon", Name: "Inspection due soon", Condition: ConditionInspectionDueSoon, Severity: SeverityInfo, Threshold: 14, CooldownMinutes: 24 * 60, IsActive: true},
	}
}
