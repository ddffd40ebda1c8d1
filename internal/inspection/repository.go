package inspection

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// Repository is the full inspection store. SubmitInspection is the only write
// the wizard performs; the rest serve record listings and reports.
type Repository interface {
	Persistence
	ListInspections(ctx context.Context, filter ListFilter) ([]Record, error)
	GetInspection(ctx context.Context, id string) (*Record, error)
	DeleteInspection(ctx context.Context, id string) error
	SetReportKey(ctx context.Context, id, key string) error
}

// Schema creates the inspections table.
const Schema = `
CREATE TABLE IF NOT EXISTS inspections (
	id               TEXT PRIMARY KEY,
	external_id      TEXT NOT NULL DEFAULT '',
	kind             TEXT NOT NULL,
	inspection_type  TEXT NOT NULL,
	trailer_id       TEXT NOT NULL,
	trailer_number   TEXT NOT NULL,
	technician_name  TEXT NOT NULL,
	submitted_by     TEXT NOT NULL DEFAULT '',
	inspection_date  TIMESTAMPTZ NOT NULL,
	next_due_date    TIMESTAMPTZ NOT NULL,
	item_statuses    JSONB NOT NULL DEFAULT '{}',
	item_notes       JSONB NOT NULL DEFAULT '{}',
	defects_found    TEXT NOT NULL DEFAULT '',
	overall_status   TEXT NOT NULL,
	progress_percent INTEGER NOT NULL DEFAULT 0,
	score            INTEGER NOT NULL DEFAULT 0,
	issue_count      INTEGER NOT NULL DEFAULT 0,
	auxiliary_fields JSONB NOT NULL DEFAULT '{}',
	attachments      JSONB NOT NULL DEFAULT '[]',
	report_key       TEXT NOT NULL DEFAULT '',
	created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_inspections_trailer ON inspections (trailer_id, inspection_date DESC);
`

type inspectionRow struct {
	ID              string          `db:"id"`
	ExternalID      string          `db:"external_id"`
	Kind            string          `db:"kind"`
	InspectionType  string          `db:"inspection_type"`
	TrailerID       string          `db:"trailer_id"`
	TrailerNumber   string          `db:"trailer_number"`
	OperatorName    string          `db:"technician_name"`
	SubmittedBy     string          `db:"submitted_by"`
	InspectionDate  time.Time       `db:"inspection_date"`
	NextDueDate     time.Time       `db:"next_due_date"`
	ItemStatuses    json.RawMessage `db:"item_statuses"`
	ItemNotes       json.RawMessage `db:"item_notes"`
	Defects         string          `db:"defects_found"`
	Outcome         string          `db:"overall_status"`
	ProgressPercent int             `db:"progress_percent"`
	Score           int             `db:"score"`
	IssueCount      int             `db:"issue_count"`
	AuxiliaryFields json.RawMessage `db:"auxiliary_fields"`
	Attachments     json.RawMessage `db:"attachments"`
	ReportKey       string          `db:"report_key"`
	CreatedAt       time.Time       `db:"created_at"`
}

func toRow(r *Record, attachments []Attachment) (*inspectionRow, error) {
	statuses, err := json.Marshal(r.ItemStatuses)
	if err != nil {
		return nil, err
	}
	notes, err := json.Marshal(nonNilMap(r.ItemNotes))
	if err != nil {
		return nil, err
	}
	aux, err := json.Marshal(nonNilMap(r.AuxiliaryFields))
	if err != nil {
		return nil, err
	}
	if attachments == nil {
		attachments = []Attachment{}
	}
	atts, err := json.Marshal(attachments)
	if err != nil {
		return nil, err
	}
	return &inspectionRow{
		ID:              r.ID,
		ExternalID:      r.ExternalID,
		Kind:            string(r.Kind),
		InspectionType:  r.InspectionType,
		TrailerID:       r.TrailerID,
		TrailerNumber:   r.TrailerNumber,
		OperatorName:    r.OperatorName,
		SubmittedBy:     r.SubmittedBy,
		InspectionDate:  r.InspectionDate,
		NextDueDate:     r.NextDueDate,
		ItemStatuses:    statuses,
		ItemNotes:       notes,
		Defects:         r.Defects,
		Outcome:         string(r.Outcome),
		ProgressPercent: r.ProgressPercent,
		Score:           r.Score,
		IssueCount:      r.IssueCount,
		AuxiliaryFields: aux,
		Attachments:     atts,
		ReportKey:       r.ReportKey,
		CreatedAt:       r.CreatedAt,
	}, nil
}

func (row *inspectionRow) toRecord() (*Record, error) {
	r := &Record{
		ID:              row.ID,
		ExternalID:      row.ExternalID,
		Kind:            Kind(row.Kind),
		InspectionType:  row.InspectionType,
		TrailerID:       row.TrailerID,
		TrailerNumber:   row.TrailerNumber,
		OperatorName:    row.OperatorName,
		SubmittedBy:     row.SubmittedBy,
		InspectionDate:  row.InspectionDate,
		NextDueDate:     row.NextDueDate,
		Defects:         row.Defects,
		Outcome:         Outcome(row.Outcome),
		ProgressPercent: row.ProgressPercent,
		Score:           row.Score,
		IssueCount:      row.IssueCount,
		ReportKey:       row.ReportKey,
		CreatedAt:       row.CreatedAt,
	}
	if err := unmarshalColumn(row.ItemStatuses, &r.ItemStatuses); err != nil {
		return nil, fmt.Errorf("item_statuses: %w", err)
	}
	if err := unmarshalColumn(row.ItemNotes, &r.ItemNotes); err != nil {
		return nil, fmt.Errorf("item_notes: %w", err)
	}
	if err := unmarshalColumn(row.AuxiliaryFields, &r.AuxiliaryFields); err != nil {
		return nil, fmt.Errorf("auxiliary_fields: %w", err)
	}
	if err := unmarshalColumn(row.Attachments, &r.Attachments); err != nil {
		return nil, fmt.Errorf("attachments: %w", err)
	}
	return r, nil
}

func unmarshalColumn(raw json.RawMessage, dst interface{}) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dst)
}

func nonNilMap(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}

type postgresRepository struct {
	db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) SubmitInspection(ctx context.Context, record *Record, attachments []Attachment) (string, error) {
	row, err := toRow(record, attachments)
	if err != nil {
		return "", fmt.Errorf("failed to encode inspection: %w", err)
	}
	query := `
		INSERT INTO inspections (
			id, external_id, kind, inspection_type, trailer_id, trailer_number,
			technician_name, submitted_by, inspection_date, next_due_date,
			item_statuses, item_notes, defects_found, overall_status,
			progress_percent, score, issue_count, auxiliary_fields, attachments,
			report_key, created_at
		) VALUES (
			:id, :external_id, :kind, :inspection_type, :trailer_id, :trailer_number,
			:technician_name, :submitted_by, :inspection_date, :next_due_date,
			:item_statuses, :item_notes, :defects_found, :overall_status,
			:progress_percent, :score, :issue_count, :auxiliary_fields, :attachments,
			:report_key, :created_at
		)`
	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		return "", fmt.Errorf("failed to insert inspection: %w", err)
	}
	return record.ID, nil
}

func (r *postgresRepository) ListInspections(ctx context.Context, filter ListFilter) ([]Record, error) {
	query := "SELECT * FROM inspections WHERE 1=1"
	var args []interface{}
	argCount := 1

	if filter.TrailerID != "" {
		query += fmt.Sprintf(" AND trailer_id = $%d", argCount)
		args = append(args, filter.TrailerID)
		argCount++
	}
	if filter.Outcome != "" {
		query += fmt.Sprintf(" AND overall_status = $%d", argCount)
		args = append(args, string(filter.Outcome))
		argCount++
	}
	if filter.Since != nil {
		query += fmt.Sprintf(" AND inspection_date >= $%d", argCount)
		args = append(args, *filter.Since)
		argCount++
	}
	query += " ORDER BY inspection_date DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argCount)
		args = append(args, filter.Limit)
	}

	var rows []inspectionRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	records := make([]Record, 0, len(rows))
	for i := range rows {
		rec, err := rows[i].toRecord()
		if err != nil {
			return nil, fmt.Errorf("inspection %s: %w", rows[i].ID, err)
		}
		records = append(records, *rec)
	}
	return records, nil
}

func (r *postgresRepository) GetInspection(ctx context.Context, id string) (*Record, error) {
	var row inspectionRow
	err := r.db.GetContext(ctx, &row, "SELECT * FROM inspections WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return row.toRecord()
}

func (r *postgresRepository) DeleteInspection(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM inspections WHERE id = $1", id)
	return err
}

func (r *postgresRepository) SetReportKey(ctx context.Context, id, key string) error {
	_, err := r.db.ExecContext(ctx, "UPDATE inspections SET report_key = $1 WHERE id = $2", key, id)
	return err
}
