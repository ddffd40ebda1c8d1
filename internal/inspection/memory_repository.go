package inspection

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
)

type memoryRepository struct {
	mu      sync.RWMutex
	records map[string]*Record
}

// NewMemoryRepository keeps records in process memory for local mode.
func NewMemoryRepository() Repository {
	return &memoryRepository{records: make(map[string]*Record)}
}

func (r *memoryRepository) SubmitInspection(ctx context.Context, record *Record, attachments []Attachment) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	stored, err := copyRecord(record)
	if err != nil {
		return "", err
	}
	stored.Attachments = append([]Attachment(nil), attachments...)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[stored.ID] = stored
	return stored.ID, nil
}

func (r *memoryRepository) ListInspections(ctx context.Context, filter ListFilter) ([]Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Record, 0, len(r.records))
	for _, rec := range r.records {
		if filter.matches(rec) {
			out = append(out, *rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].InspectionDate.After(out[j].InspectionDate)
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *memoryRepository) GetInspection(ctx context.Context, id string) (*Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[id]
	if !ok {
		return nil, nil
	}
	return copyRecord(rec)
}

func (r *memoryRepository) DeleteInspection(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.records, id)
	return nil
}

func (r *memoryRepository) SetReportKey(ctx context.Context, id, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.records[id]; ok {
		rec.ReportKey = key
	}
	return nil
}

// copyRecord deep copies through JSON so callers never share maps.
func copyRecord(rec *Record) (*Record, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	var out Record
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
