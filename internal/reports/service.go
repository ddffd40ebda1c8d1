package reports

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"fleetops/fleet-portal/fleet-portal-backend/internal/assets"
	"fleetops/fleet-portal/fleet-portal-backend/internal/inspection"
	"fleetops/fleet-portal/fleet-portal-backend/internal/inventory"
	"fleetops/fleet-portal/fleet-portal-backend/internal/reports/export"
	"fleetops/fleet-portal/fleet-portal-backend/internal/workorders"
)

type Dataset string

const (
	DatasetInspections Dataset = "inspections"
	DatasetInventory   Dataset = "inventory"
	DatasetWorkOrders  Dataset = "work-orders"
	DatasetTrailers    Dataset = "trailers"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

var (
	ErrUnknownDataset = errors.New("unknown dataset")
	ErrUnknownFormat  = errors.New("unknown export format")
)

// Exporter writes a table in one file format.
type Exporter interface {
	Export(w io.Writer, table *export.Table) error
	ContentType() string
	Extension() string
}

// Sources are the read paths exports draw from.
type Sources struct {
	Trailers interface {
		ListTrailers(ctx context.Context, query string) ([]assets.Trailer, error)
	}
	Inspections interface {
		ListInspections(ctx context.Context, filter inspection.ListFilter) ([]inspection.Record, error)
	}
	Inventory interface {
		ListItems(ctx context.Context) (*inventory.ListResponse, error)
	}
	WorkOrders interface {
		List(ctx context.Context, trailerID string) ([]workorders.WorkOrder, error)
	}
}

// ExportRequest selects a dataset, a format and optional filters.
type ExportRequest struct {
	Dataset   Dataset
	Format    Format
	TrailerID string
	Since     *time.Time
}

// ExportResult describes the written file.
type ExportResult struct {
	Filename    string
	ContentType string
	Rows        int
}

type Service struct {
	sources   Sources
	exporters map[Format]Exporter
	logger    *zap.Logger
	now       func() time.Time
}

func NewService(sources Sources, logger *zap.Logger) *Service {
	return &Service{
		sources: sources,
		exporters: map[Format]Exporter{
			FormatCSV:  export.NewCSVExporter(export.DefaultCSVOptions()),
			FormatXLSX: export.NewExcelExporter(export.DefaultExcelOptions()),
		},
		logger: logger,
		now:    time.Now,
	}
}

// Export builds the dataset and writes it to w.
func (s *Service) Export(ctx context.Context, w io.Writer, req ExportRequest) (*ExportResult, error) {
	exporter, ok := s.exporters[req.Format]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, req.Format)
	}

	table, err := s.BuildTable(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := exporter.Export(w, table); err != nil {
		return nil, fmt.Errorf("failed to export %s: %w", req.Dataset, err)
	}

	s.logger.Info("Dataset exported",
		zap.String("dataset", string(req.Dataset)),
		zap.String("format", string(req.Format)),
		zap.Int("rows", len(table.Rows)))
	return &ExportResult{
		Filename:    fmt.Sprintf("%s-%s.%s", req.Dataset, s.now().Format("20060102"), exporter.Extension()),
		ContentType: exporter.ContentType(),
		Rows:        len(table.Rows),
	}, nil
}

// BuildTable loads the rows of a dataset.
func (s *Service) BuildTable(ctx context.Context, req ExportRequest) (*export.Table, error) {
	switch req.Dataset {
	case DatasetInspections:
		return s.inspectionTable(ctx, req)
	case DatasetInventory:
		return s.inventoryTable(ctx)
	case DatasetWorkOrders:
		return s.workOrderTable(ctx, req)
	case DatasetTrailers:
		return s.trailerTable(ctx)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDataset, req.Dataset)
	}
}

func (s *Service) inspectionTable(ctx context.Context, req ExportRequest) (*export.Table, error) {
	records, err := s.sources.Inspections.ListInspections(ctx, inspection.ListFilter{TrailerID: req.TrailerID, Since: req.Since})
	if err != nil {
		return nil, fmt.Errorf("failed to list inspections: %w", err)
	}
	table := &export.Table{
		Name: "Inspections",
		Columns: []export.Column{
			{Key: "id", Label: "Inspection"},
			{Key: "type", Label: "Type"},
			{Key: "trailer", Label: "Trailer"},
			{Key: "technician", Label: "Technician"},
			{Key: "date", Label: "Date"},
			{Key: "next_due", Label: "Next Due"},
			{Key: "outcome", Label: "Outcome"},
			{Key: "issues", Label: "Issues"},
			{Key: "progress", Label: "Progress %"},
			{Key: "defects", Label: "Defects", Width: 60},
		},
	}
	for _, r := range records {
		table.Rows = append(table.Rows, map[string]interface{}{
			"id":         r.ID,
			"type":       r.InspectionType,
			"trailer":    r.TrailerNumber,
			"technician": r.OperatorName,
			"date":       r.InspectionDate,
			"next_due":   r.NextDueDate,
			"outcome":    string(r.Outcome),
			"issues":     r.IssueCount,
			"progress":   r.ProgressPercent,
			"defects":    r.Defects,
		})
	}
	return table, nil
}

func (s *Service) inventoryTable(ctx context.Context) (*export.Table, error) {
	resp, err := s.sources.Inventory.ListItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list inventory: %w", err)
	}
	table := &export.Table{
		Name: "Inventory",
		Columns: []export.Column{
			{Key: "name", Label: "Part Name"},
			{Key: "type", Label: "Type"},
			{Key: "manufacturer", Label: "Manufacturer"},
			{Key: "available", Label: "Available"},
			{Key: "used", Label: "Used"},
			{Key: "pending", Label: "Pending"},
			{Key: "price", Label: "Price per Part"},
			{Key: "shelf", Label: "Shelf Location"},
			{Key: "low_stock", Label: "Low Stock"},
			{Key: "date_added", Label: "Date Added"},
		},
	}
	for _, it := range resp.Items {
		table.Rows = append(table.Rows, map[string]interface{}{
			"name":         it.Name,
			"type":         it.Type,
			"manufacturer": it.Manufacturer,
			"available":    it.Available,
			"used":         it.Used,
			"pending":      it.Pending,
			"price":        it.PricePerPart,
			"shelf":        it.ShelfLocation,
			"low_stock":    it.LowStock(resp.LowStockThreshold),
			"date_added":   it.DateAdded,
		})
	}
	return table, nil
}

func (s *Service) workOrderTable(ctx context.Context, req ExportRequest) (*export.Table, error) {
	orders, err := s.sources.WorkOrders.List(ctx, req.TrailerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list work orders: %w", err)
	}
	table := &export.Table{
		Name: "Work Orders",
		Columns: []export.Column{
			{Key: "number", Label: "Work Order"},
			{Key: "trailer", Label: "Trailer"},
			{Key: "technician", Label: "Technician"},
			{Key: "date", Label: "Date"},
			{Key: "status", Label: "Status"},
			{Key: "priority", Label: "Priority"},
			{Key: "parts", Label: "Parts Used"},
			{Key: "issue", Label: "Issue", Width: 60},
		},
	}
	for _, wo := range orders {
		if req.Since != nil && wo.Date.Before(*req.Since) {
			continue
		}
		parts := 0
		for _, it := range wo.Items {
			parts += it.Quantity
		}
		table.Rows = append(table.Rows, map[string]interface{}{
			"number":     wo.Number,
			"trailer":    wo.TrailerNumber,
			"technician": wo.TechnicianName,
			"date":       wo.Date,
			"status":     string(wo.Status),
			"priority":   string(wo.Priority),
			"parts":      parts,
			"issue":      wo.IssueNotes,
		})
	}
	return table, nil
}

func (s *Service) trailerTable(ctx context.Context) (*export.Table, error) {
	trailers, err := s.sources.Trailers.ListTrailers(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("failed to list trailers: %w", err)
	}
	table := &export.Table{
		Name: "Trailers",
		Columns: []export.Column{
			{Key: "number", Label: "Trailer"},
			{Key: "make", Label: "Make"},
			{Key: "model", Label: "Model"},
			{Key: "year", Label: "Year"},
		},
	}
	for _, t := range trailers {
		table.Rows = append(table.Rows, map[string]interface{}{
			"number": t.Number,
			"make":   t.Make,
			"model":  t.Model,
			"year":   t.Year,
		})
	}
	return table, nil
}
