package reports

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"fleetops/fleet-portal/fleet-portal-backend/internal/inspection"
	"fleetops/fleet-portal/fleet-portal-backend/internal/workorders"
	"fleetops/fleet-portal/fleet-portal-backend/pkg/pdf"
)

const dateFormat = "2006-01-02"

// Renderer produces printable PDFs for inspections and work orders.
type Renderer struct {
	company string
	now     func() time.Time
}

func NewRenderer(company string) *Renderer {
	if company == "" {
		company = "Fleet Maintenance"
	}
	return &Renderer{company: company, now: time.Now}
}

func (r *Renderer) options(title, subtitle string) pdf.Options {
	opts := pdf.DefaultOptions()
	opts.Title = title
	opts.Subtitle = subtitle
	opts.Author = r.company
	opts.Now = r.now
	return opts
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(dateFormat)
}

func statusBadge(s inspection.Status) (string, pdf.Color) {
	switch s {
	case inspection.StatusPass:
		return "PASS", pdf.ColorPass
	case inspection.StatusFail:
		return "FAIL", pdf.ColorFail
	case inspection.StatusNA:
		return "N/A", pdf.ColorMuted
	default:
		return "NOT CHECKED", pdf.ColorMuted
	}
}

// RenderInspection lays the record out in catalog order. Records whose
// catalog is unknown fall back to the stored item ids in sorted order.
func (r *Renderer) RenderInspection(ctx context.Context, rec *inspection.Record) ([]byte, error) {
	outcome := "Passed"
	if rec.Outcome == inspection.OutcomeFailed {
		outcome = "Failed"
	}

	doc := pdf.New(r.options(
		fmt.Sprintf("%s Inspection Report", rec.InspectionType),
		fmt.Sprintf("%s - %s", rec.TrailerNumber, rec.ID),
	))

	doc.Section("Inspection Details")
	fields := []pdf.Field{
		{Label: "Inspection", Value: rec.ID},
		{Label: "Trailer", Value: rec.TrailerNumber},
		{Label: "Technician", Value: rec.OperatorName},
		{Label: "Date", Value: formatDate(rec.InspectionDate)},
		{Label: "Next Due", Value: formatDate(rec.NextDueDate)},
		{Label: "Outcome", Value: outcome},
		{Label: "Progress", Value: strconv.Itoa(rec.ProgressPercent) + "%"},
		{Label: "Issues", Value: strconv.Itoa(rec.IssueCount)},
	}
	if rec.Kind == inspection.KindQuick {
		fields = append(fields, pdf.Field{Label: "Score", Value: strconv.Itoa(rec.Score) + "%"})
	}
	for _, aux := range []struct{ key, label string }{
		{inspection.FieldVIN, "VIN"},
		{inspection.FieldDOTNumber, "DOT Number"},
		{inspection.FieldLicensePlate, "License Plate"},
	} {
		if v := rec.AuxiliaryFields[aux.key]; v != "" {
			fields = append(fields, pdf.Field{Label: aux.label, Value: v})
		}
	}
	doc.Fields(fields...)

	sections := inspection.NewSections(rec.Kind)
	if sections == nil {
		sections = []inspection.Section{{Title: "Checklist", Items: storedItems(rec)}}
	}
	for _, section := range sections {
		doc.Section(section.Title)
		for i, item := range section.Items {
			label, color := statusBadge(rec.ItemStatuses[item.ID])
			doc.StatusRow(item.Label, label, color, rec.ItemNotes[item.ID], i%2 == 1)
		}
	}

	if rec.Defects != "" {
		doc.Section("Defects Found")
		doc.Paragraph(rec.Defects)
	}
	if n := len(rec.Attachments); n > 0 {
		doc.Section("Photos")
		doc.Paragraph(fmt.Sprintf("%d photo(s) attached to the stored record.", n))
	}

	doc.SignatureBlock("Technician")
	return doc.Bytes()
}

func storedItems(rec *inspection.Record) []inspection.Item {
	ids := make([]string, 0, len(rec.ItemStatuses))
	for id := range rec.ItemStatuses {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	items := make([]inspection.Item, len(ids))
	for i, id := range ids {
		items[i] = inspection.Item{ID: id, Label: id}
	}
	return items
}

func (r *Renderer) RenderWorkOrder(ctx context.Context, wo *workorders.WorkOrder) ([]byte, error) {
	doc := pdf.New(r.options(
		fmt.Sprintf("Work Order %s", wo.Number),
		fmt.Sprintf("Trailer %s", wo.TrailerNumber),
	))

	doc.Section("Work Order Details")
	doc.Fields(
		pdf.Field{Label: "Number", Value: wo.Number},
		pdf.Field{Label: "Trailer", Value: wo.TrailerNumber},
		pdf.Field{Label: "Technician", Value: wo.TechnicianName},
		pdf.Field{Label: "Date", Value: formatDate(wo.Date)},
		pdf.Field{Label: "Status", Value: string(wo.Status)},
		pdf.Field{Label: "Priority", Value: string(wo.Priority)},
	)

	doc.Section("Issue")
	doc.Paragraph(wo.IssueNotes)

	doc.Section("Parts Used")
	if len(wo.Items) == 0 {
		doc.Paragraph("No parts used.")
	} else {
		rows := make([][]string, len(wo.Items))
		for i, item := range wo.Items {
			rows[i] = []string{item.ItemName, strconv.Itoa(item.Quantity)}
		}
		doc.Table([]string{"Part", "Quantity"}, []float64{140, 40}, rows)
	}

	doc.SignatureBlock("Technician", "Supervisor")
	return doc.Bytes()
}
