package notifications

import (
	"time"

	"fleetops/fleet-portal/fleet-portal-backend/internal/inspection"
	"fleetops/fleet-portal/fleet-portal-backend/internal/workorders"
)

// Event types pushed over the websocket.
const (
	EventInspectionSubmitted    = "inspection.submitted"
	EventWorkOrderCreated       = "workorder.created"
	EventWorkOrderStatusChanged = "workorder.status_changed"
)

type InspectionEvent struct {
	ID             string             `json:"id"`
	TrailerID      string             `json:"trailer_id"`
	TrailerNumber  string             `json:"trailer_number"`
	InspectionType string             `json:"inspection_type"`
	OperatorName   string             `json:"technician_name"`
	Outcome        inspection.Outcome `json:"overall_status"`
	Defects        string             `json:"defects_found,omitempty"`
	InspectionDate time.Time          `json:"inspection_date"`
}

func newInspectionEvent(r inspection.Record) InspectionEvent {
	return InspectionEvent{
		ID:             r.ID,
		TrailerID:      r.TrailerID,
		TrailerNumber:  r.TrailerNumber,
		InspectionType: r.InspectionType,
		OperatorName:   r.OperatorName,
		Outcome:        r.Outcome,
		Defects:        r.Defects,
		InspectionDate: r.InspectionDate,
	}
}

type WorkOrderEvent struct {
	ID             string              `json:"id"`
	Number         string              `json:"wo_number"`
	TrailerNumber  string              `json:"trailer_number"`
	Status         workorders.Status   `json:"status"`
	Priority       workorders.Priority `json:"priority"`
	PreviousStatus workorders.Status   `json:"previous_status,omitempty"`
}

func newWorkOrderEvent(wo workorders.WorkOrder) WorkOrderEvent {
	return WorkOrderEvent{
		ID:            wo.ID,
		Number:        wo.Number,
		TrailerNumber: wo.TrailerNumber,
		Status:        wo.Status,
		Priority:      wo.Priority,
	}
}

// DefectAlert is the body published for a failed inspection.
type DefectAlert struct {
	InspectionID  string    `json:"inspection_id"`
	TrailerNumber string    `json:"trailer_number"`
	Technician    string    `json:"technician_name"`
	Defects       string    `json:"defects"`
	IssueCount    int       `json:"issue_count"`
	InspectedAt   time.Time `json:"inspected_at"`
}
