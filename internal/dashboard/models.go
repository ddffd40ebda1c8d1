package dashboard

import (
	"time"

	"fleetops/fleet-portal/fleet-portal-backend/internal/inspection"
)

// Stats is the fleet overview shown on the dashboard.
type Stats struct {
	TotalTrailers      int       `json:"total_trailers"`
	InspectionsPending int       `json:"inspections_pending"`
	UsedInventory      int       `json:"used_inventory"`
	PendingInventory   int       `json:"pending_inventory"`
	PassedInspections  int       `json:"passed_inspections"`
	FailedInspections  int       `json:"failed_inspections"`
	OpenWorkOrders     int       `json:"open_work_orders"`
	LowStockItems      int       `json:"low_stock_items"`
	ComputedAt         time.Time `json:"computed_at"`
}

// RecentInspection is the condensed row of the recent activity list.
type RecentInspection struct {
	ID             string             `json:"id"`
	TrailerNumber  string             `json:"trailer_number"`
	InspectionType string             `json:"inspection_type"`
	OperatorName   string             `json:"technician_name"`
	Outcome        inspection.Outcome `json:"overall_status"`
	InspectionDate time.Time          `json:"inspection_date"`
}

func toRecent(r inspection.Record) RecentInspection {
	return RecentInspection{
		ID:             r.ID,
		TrailerNumber:  r.TrailerNumber,
		InspectionType: r.InspectionType,
		OperatorName:   r.OperatorName,
		Outcome:        r.Outcome,
		InspectionDate: r.InspectionDate,
	}
}
