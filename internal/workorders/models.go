package workorders

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

func (p Priority) Valid() bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

var (
	ErrWorkOrderNotFound = errors.New("work order not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrValidation        = errors.New("invalid work order")
)

// ValidationError names the field that failed.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"error"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Item is a part consumed by a work order.
type Item struct {
	ItemName string `json:"item_name"`
	Quantity int    `json:"quantity"`
}

// WorkOrder is a repair job against one trailer.
type WorkOrder struct {
	ID             string                    `gorm:"type:varchar(64);primaryKey" json:"id"`
	Number         string                    `gorm:"column:wo_number;uniqueIndex;not null" json:"wo_number"`
	TrailerID      string                    `gorm:"index;not null" json:"trailer_id"`
	TrailerNumber  string                    `gorm:"not null" json:"trailer_number"`
	TechnicianName string                    `gorm:"not null" json:"technician_name"`
	Date           time.Time                 `gorm:"not null" json:"date"`
	IssueNotes     string                    `gorm:"type:text;not null" json:"issue_notes"`
	Items          datatypes.JSONSlice[Item] `gorm:"type:jsonb" json:"items"`
	Status         Status                    `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	Priority       Priority                  `gorm:"type:varchar(10);not null;default:'medium'" json:"priority"`
	PDFKey         string                    `json:"pdf_key,omitempty"`
	CreatedBy      string                    `json:"created_by,omitempty"`
	CreatedAt      time.Time                 `json:"created_at"`
	UpdatedAt      time.Time                 `json:"updated_at"`
}

func (WorkOrder) TableName() string {
	return "work_orders"
}

// CreateRequest opens a work order.
type CreateRequest struct {
	TrailerID      string   `json:"trailer_id"`
	TechnicianName string   `json:"technician_name"`
	Date           string   `json:"date"`
	IssueNotes     string   `json:"issue_notes"`
	Items          []Item   `json:"items"`
	Priority       Priority `json:"priority"`
}

// StatusRequest moves a work order through its lifecycle.
type StatusRequest struct {
	Status Status `json:"status" binding:"required"`
}

// CreateResult is the stored order plus any inventory warnings.
type CreateResult struct {
	WorkOrder *WorkOrder `json:"work_order"`
	Warnings  []string   `json:"warnings,omitempty"`
}

func seedDate(s string) time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return t
}

// SeedWorkOrders is the history loaded in local mode.
func SeedWorkOrders() []WorkOrder {
	return []WorkOrder{
		{
			ID:             "1",
			Number:         "WO-2026-001",
			TrailerID:      "1",
			TrailerNumber:  "TRL-001",
			TechnicianName: "John Smith",
			Date:           seedDate("2026-02-10"),
			IssueNotes:     "Brake system maintenance and inspection",
			Items:          datatypes.JSONSlice[Item]{{ItemName: "Brake Pads", Quantity: 4}, {ItemName: "Oil Filter", Quantity: 1}},
			Status:         StatusCompleted,
			Priority:       PriorityMedium,
			CreatedAt:      seedDate("2026-02-10"),
		},
		{
			ID:             "2",
			Number:         "WO-2026-002",
			TrailerID:      "3",
			TrailerNumber:  "TRL-003",
			TechnicianName: "Maria Garcia",
			Date:           seedDate("2026-02-11"),
			IssueNotes:     "Replace damaged tires and check alignment",
			Items:          datatypes.JSONSlice[Item]{{ItemName: "Tires - 11R22.5", Quantity: 2}},
			Status:         StatusCompleted,
			Priority:       PriorityMedium,
			CreatedAt:      seedDate("2026-02-11"),
		},
	}
}
