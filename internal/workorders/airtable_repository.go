package workorders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"gorm.io/datatypes"

	"fleetops/fleet-portal/fleet-portal-backend/pkg/airtable"
)

// Column names in the Work Orders table.
const (
	fieldNumber      = "work_order_number"
	fieldAssetID     = "asset_id"
	fieldTrailerNum  = "trailer_number"
	fieldTechnician  = "technician_name"
	fieldIssue       = "issue_description"
	fieldStatus      = "status"
	fieldPriority    = "priority"
	fieldRepairDate  = "repair_date"
	fieldPartsUsed   = "parts_used"
	fieldPDFKey      = "report_key"
	fieldCreatedBy   = "created_by"
	fieldCreatedAt   = "created_at"
	fieldUpdatedAt   = "updated_at"
	repairDateLayout = "2006-01-02"
)

type airtableRepository struct {
	client *airtable.Client
	table  string
}

func NewAirtableRepository(client *airtable.Client, table string) Repository {
	if table == "" {
		table = "Work Orders"
	}
	return &airtableRepository{client: client, table: table}
}

func workOrderFields(wo *WorkOrder) (map[string]interface{}, error) {
	parts, err := json.Marshal(wo.Items)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC().Format(time.RFC3339)
	return map[string]interface{}{
		fieldNumber:     wo.Number,
		fieldAssetID:    wo.TrailerID,
		fieldTrailerNum: wo.TrailerNumber,
		fieldTechnician: wo.TechnicianName,
		fieldIssue:      wo.IssueNotes,
		fieldStatus:     string(wo.Status),
		fieldPriority:   string(wo.Priority),
		fieldRepairDate: wo.Date.Format(repairDateLayout),
		fieldPartsUsed:  string(parts),
		fieldCreatedBy:  wo.CreatedBy,
		fieldCreatedAt:  now,
		fieldUpdatedAt:  now,
	}, nil
}

func workOrderFromRecord(r airtable.Record) WorkOrder {
	f := r.Fields
	wo := WorkOrder{
		ID:             r.ID,
		Number:         airtable.String(f, fieldNumber),
		TrailerID:      airtable.String(f, fieldAssetID),
		TrailerNumber:  airtable.String(f, fieldTrailerNum),
		TechnicianName: airtable.String(f, fieldTechnician),
		IssueNotes:     airtable.String(f, fieldIssue),
		Status:         Status(airtable.String(f, fieldStatus)),
		Priority:       Priority(airtable.String(f, fieldPriority)),
		Date:           airtable.Time(f, fieldRepairDate),
		PDFKey:         airtable.String(f, fieldPDFKey),
		CreatedBy:      airtable.String(f, fieldCreatedBy),
		CreatedAt:      airtable.Time(f, fieldCreatedAt),
		UpdatedAt:      airtable.Time(f, fieldUpdatedAt),
		Items:          datatypes.JSONSlice[Item]{},
	}
	if wo.Status == "" {
		wo.Status = StatusPending
	}
	if wo.Priority == "" {
		wo.Priority = PriorityMedium
	}
	if raw := airtable.String(f, fieldPartsUsed); raw != "" {
		var items []Item
		if err := json.Unmarshal([]byte(raw), &items); err == nil {
			wo.Items = items
		}
	}
	return wo
}

func (r *airtableRepository) Create(ctx context.Context, wo *WorkOrder) error {
	fields, err := workOrderFields(wo)
	if err != nil {
		return err
	}
	created, err := r.client.Create(ctx, r.table, fields)
	if err != nil {
		return err
	}
	wo.ID = created.ID
	return nil
}

func (r *airtableRepository) List(ctx context.Context, trailerID string) ([]WorkOrder, error) {
	opts := airtable.ListOptions{}
	if trailerID != "" {
		opts.FilterByFormula = fmt.Sprintf("{%s} = '%s'", fieldAssetID, strings.ReplaceAll(trailerID, "'", "\\'"))
	}
	rows, err := r.client.List(ctx, r.table, opts)
	if err != nil {
		return nil, err
	}
	out := make([]WorkOrder, 0, len(rows))
	for _, row := range rows {
		out = append(out, workOrderFromRecord(row))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func (r *airtableRepository) Get(ctx context.Context, id string) (*WorkOrder, error) {
	if strings.HasPrefix(id, "rec") {
		row, err := r.client.Get(ctx, r.table, id)
		if errors.Is(err, airtable.ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		wo := workOrderFromRecord(*row)
		return &wo, nil
	}
	rows, err := r.client.List(ctx, r.table, airtable.ListOptions{
		FilterByFormula: fmt.Sprintf("{%s} = '%s'", fieldNumber, strings.ReplaceAll(id, "'", "\\'")),
		MaxRecords:      1,
	})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	wo := workOrderFromRecord(rows[0])
	return &wo, nil
}

// UpdateStatus re-reads the row before patching. Airtable has no conditional
// update, so callers serialize status changes.
func (r *airtableRepository) UpdateStatus(ctx context.Context, id string, from, to Status) error {
	current, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	if current == nil {
		return ErrWorkOrderNotFound
	}
	if current.Status != from {
		return fmt.Errorf("%w: status is no longer %s", ErrInvalidTransition, from)
	}
	return r.patch(ctx, id, map[string]interface{}{fieldStatus: string(to)})
}

func (r *airtableRepository) SetPDFKey(ctx context.Context, id, key string) error {
	return r.patch(ctx, id, map[string]interface{}{fieldPDFKey: key})
}

func (r *airtableRepository) patch(ctx context.Context, id string, fields map[string]interface{}) error {
	fields[fieldUpdatedAt] = time.Now().UTC().Format(time.RFC3339)
	_, err := r.client.Update(ctx, r.table, id, fields)
	if errors.Is(err, airtable.ErrNotFound) {
		return ErrWorkOrderNotFound
	}
	return err
}

func (r *airtableRepository) Count(ctx context.Context) (int, error) {
	rows, err := r.client.List(ctx, r.table, airtable.ListOptions{PageSize: 100})
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}
