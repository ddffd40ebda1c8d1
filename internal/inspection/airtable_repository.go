package inspection

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"fleetops/fleet-portal/fleet-portal-backend/pkg/airtable"
)

// Airtable column names in the Inspections table.
const (
	fieldInspectionNumber = "inspection_number"
	fieldAssetID          = "asset_id"
	fieldTrailerNumber    = "trailer_number"
	fieldTechnicianName   = "technician_name"
	fieldInspectionDate   = "inspection_date"
	fieldInspectionType   = "inspection_type"
	fieldNextDueDate      = "next_due_date"
	fieldOverallStatus    = "overall_status"
	fieldDefectsFound     = "defects_found"
	fieldScore            = "score"
	fieldIssueCount       = "issue_count"
	fieldProgress         = "progress_percent"
	fieldSubmittedBy      = "submitted_by"
	fieldPhotos           = "inspection_photos"
	fieldReportKey        = "report_key"
	fieldCreatedAt        = "created_at"
	fieldUpdatedAt        = "updated_at"
	notesSuffix           = "_notes"
)

type airtableRepository struct {
	client *airtable.Client
	table  string
}

// NewAirtableRepository stores inspections in an Airtable base.
func NewAirtableRepository(client *airtable.Client, table string) Repository {
	if table == "" {
		table = "Inspections"
	}
	return &airtableRepository{client: client, table: table}
}

// recordFields maps a record onto the base's flat column layout. Unset items
// are written as "na" because the base has no empty option.
func recordFields(rec *Record, attachments []Attachment) map[string]interface{} {
	now := time.Now().UTC().Format(time.RFC3339)
	fields := map[string]interface{}{
		fieldInspectionNumber: rec.ID,
		fieldAssetID:          rec.TrailerID,
		fieldTrailerNumber:    rec.TrailerNumber,
		fieldTechnicianName:   rec.OperatorName,
		fieldInspectionDate:   rec.InspectionDate.UTC().Format(time.RFC3339),
		fieldInspectionType:   rec.InspectionType,
		fieldNextDueDate:      rec.NextDueDate.UTC().Format("2006-01-02"),
		fieldOverallStatus:    string(rec.Outcome),
		fieldDefectsFound:     rec.Defects,
		fieldScore:            rec.Score,
		fieldIssueCount:       rec.IssueCount,
		fieldProgress:         rec.ProgressPercent,
		fieldSubmittedBy:      rec.SubmittedBy,
		fieldCreatedAt:        now,
		fieldUpdatedAt:        now,
	}
	for k, v := range rec.AuxiliaryFields {
		fields[k] = v
	}
	for id, status := range rec.ItemStatuses {
		if status == StatusUnset {
			status = StatusNA
		}
		fields[id] = string(status)
	}
	for id, note := range rec.ItemNotes {
		fields[id+notesSuffix] = note
	}
	photos := make([]map[string]string, 0, len(attachments))
	for _, a := range attachments {
		photos = append(photos, map[string]string{"url": a.URL, "filename": a.Filename})
	}
	fields[fieldPhotos] = photos
	return fields
}

func kindFromLabel(label string) Kind {
	if strings.EqualFold(label, KindQuick.Label()) {
		return KindQuick
	}
	return KindDOTAnnual
}

func fieldsRecord(r airtable.Record) *Record {
	f := r.Fields
	kind := kindFromLabel(airtable.String(f, fieldInspectionType))
	rec := &Record{
		ID:              airtable.String(f, fieldInspectionNumber),
		ExternalID:      r.ID,
		Kind:            kind,
		InspectionType:  kind.Label(),
		TrailerID:       airtable.String(f, fieldAssetID),
		TrailerNumber:   airtable.String(f, fieldTrailerNumber),
		OperatorName:    airtable.String(f, fieldTechnicianName),
		SubmittedBy:     airtable.String(f, fieldSubmittedBy),
		InspectionDate:  airtable.Time(f, fieldInspectionDate),
		NextDueDate:     airtable.Time(f, fieldNextDueDate),
		Defects:         airtable.String(f, fieldDefectsFound),
		Outcome:         Outcome(strings.ToLower(airtable.String(f, fieldOverallStatus))),
		ProgressPercent: airtable.Int(f, fieldProgress),
		Score:           airtable.Int(f, fieldScore),
		IssueCount:      airtable.Int(f, fieldIssueCount),
		ReportKey:       airtable.String(f, fieldReportKey),
		CreatedAt:       airtable.Time(f, fieldCreatedAt),
		ItemStatuses:    map[string]Status{},
		ItemNotes:       map[string]string{},
		AuxiliaryFields: map[string]string{},
	}
	if rec.ID == "" {
		rec.ID = r.ID
	}
	for _, s := range NewSections(kind) {
		for _, item := range s.Items {
			rec.ItemStatuses[item.ID] = Status(airtable.String(f, item.ID))
			if note := airtable.String(f, item.ID+notesSuffix); note != "" {
				rec.ItemNotes[item.ID] = note
			}
		}
	}
	for key := range auxiliaryFields {
		if v := airtable.String(f, key); v != "" {
			rec.AuxiliaryFields[key] = v
		}
	}
	if photos, ok := f[fieldPhotos].([]interface{}); ok {
		for _, p := range photos {
			m, ok := p.(map[string]interface{})
			if !ok {
				continue
			}
			rec.Attachments = append(rec.Attachments, Attachment{
				Filename:    airtable.String(m, "filename"),
				ContentType: airtable.String(m, "type"),
				URL:         airtable.String(m, "url"),
			})
		}
	}
	return rec
}

func (r *airtableRepository) SubmitInspection(ctx context.Context, record *Record, attachments []Attachment) (string, error) {
	created, err := r.client.Create(ctx, r.table, recordFields(record, attachments))
	if err != nil {
		return "", err
	}
	return created.ID, nil
}

func (r *airtableRepository) ListInspections(ctx context.Context, filter ListFilter) ([]Record, error) {
	opts := airtable.ListOptions{SortField: fieldInspectionDate, SortDesc: true}
	if filter.TrailerID != "" {
		opts.FilterByFormula = fmt.Sprintf("{%s} = '%s'", fieldAssetID, escapeFormula(filter.TrailerID))
	}
	rows, err := r.client.List(ctx, r.table, opts)
	if err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(rows))
	for _, row := range rows {
		rec := fieldsRecord(row)
		if !filter.matches(rec) {
			continue
		}
		out = append(out, *rec)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

// GetInspection accepts either the inspection number or the Airtable record id.
func (r *airtableRepository) GetInspection(ctx context.Context, id string) (*Record, error) {
	row, err := r.find(ctx, id)
	if err != nil || row == nil {
		return nil, err
	}
	return fieldsRecord(*row), nil
}

func (r *airtableRepository) DeleteInspection(ctx context.Context, id string) error {
	row, err := r.find(ctx, id)
	if err != nil {
		return err
	}
	if row == nil {
		return nil
	}
	return r.client.Delete(ctx, r.table, row.ID)
}

func (r *airtableRepository) SetReportKey(ctx context.Context, id, key string) error {
	row, err := r.find(ctx, id)
	if err != nil {
		return err
	}
	if row == nil {
		return ErrRecordNotFound
	}
	_, err = r.client.Update(ctx, r.table, row.ID, map[string]interface{}{
		fieldReportKey: key,
		fieldUpdatedAt: time.Now().UTC().Format(time.RFC3339),
	})
	return err
}

func (r *airtableRepository) find(ctx context.Context, id string) (*airtable.Record, error) {
	if strings.HasPrefix(id, "rec") {
		row, err := r.client.Get(ctx, r.table, id)
		if errors.Is(err, airtable.ErrNotFound) {
			return nil, nil
		}
		return row, err
	}
	rows, err := r.client.List(ctx, r.table, airtable.ListOptions{
		FilterByFormula: fmt.Sprintf("{%s} = '%s'", fieldInspectionNumber, escapeFormula(id)),
		MaxRecords:      1,
	})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func escapeFormula(s string) string {
	return strings.ReplaceAll(s, "'", "\\'")
}
