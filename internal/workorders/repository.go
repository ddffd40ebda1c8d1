package workorders

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, wo *WorkOrder) error
	List(ctx context.Context, trailerID string) ([]WorkOrder, error)
	// Get accepts the id or the WO number.
	Get(ctx context.Context, id string) (*WorkOrder, error)
	// UpdateStatus writes to only when the stored status is still from,
	// otherwise it fails with ErrInvalidTransition.
	UpdateStatus(ctx context.Context, id string, from, to Status) error
	SetPDFKey(ctx context.Context, id, key string) error
	Count(ctx context.Context) (int, error)
}

type gormRepository struct {
	db *gorm.DB
}

func NewGormRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Create(ctx context.Context, wo *WorkOrder) error {
	return r.db.WithContext(ctx).Create(wo).Error
}

func (r *gormRepository) List(ctx context.Context, trailerID string) ([]WorkOrder, error) {
	var orders []WorkOrder
	q := r.db.WithContext(ctx).Order("date DESC, created_at DESC")
	if trailerID != "" {
		q = q.Where("trailer_id = ?", trailerID)
	}
	err := q.Find(&orders).Error
	return orders, err
}

func (r *gormRepository) Get(ctx context.Context, id string) (*WorkOrder, error) {
	var wo WorkOrder
	err := r.db.WithContext(ctx).Where("id = ? OR wo_number = ?", id, id).First(&wo).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &wo, nil
}

func (r *gormRepository) UpdateStatus(ctx context.Context, id string, from, to Status) error {
	res := r.db.WithContext(ctx).Model(&WorkOrder{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: status is no longer %s", ErrInvalidTransition, from)
	}
	return nil
}

func (r *gormRepository) SetPDFKey(ctx context.Context, id, key string) error {
	return r.db.WithContext(ctx).Model(&WorkOrder{}).Where("id = ?", id).Update("pdf_key", key).Error
}

func (r *gormRepository) Count(ctx context.Context) (int, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&WorkOrder{}).Count(&n).Error
	return int(n), err
}

type memoryRepository struct {
	mu     sync.RWMutex
	orders map[string]WorkOrder
}

func NewMemoryRepository(seed ...WorkOrder) Repository {
	r := &memoryRepository{orders: make(map[string]WorkOrder, len(seed))}
	for _, wo := range seed {
		r.orders[wo.ID] = wo
	}
	return r
}

func (r *memoryRepository) Create(ctx context.Context, wo *WorkOrder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *wo
	stored.Items = append(stored.Items[:0:0], wo.Items...)
	r.orders[wo.ID] = stored
	return nil
}

func (r *memoryRepository) List(ctx context.Context, trailerID string) ([]WorkOrder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]WorkOrder, 0, len(r.orders))
	for _, wo := range r.orders {
		if trailerID == "" || wo.TrailerID == trailerID {
			out = append(out, wo)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].Number > out[j].Number
	})
	return out, nil
}

func (r *memoryRepository) Get(ctx context.Context, id string) (*WorkOrder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if wo, ok := r.orders[id]; ok {
		return &wo, nil
	}
	for _, wo := range r.orders {
		if wo.Number == id {
			found := wo
			return &found, nil
		}
	}
	return nil, nil
}

func (r *memoryRepository) UpdateStatus(ctx context.Context, id string, from, to Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	wo, ok := r.orders[id]
	if !ok {
		return ErrWorkOrderNotFound
	}
	if wo.Status != from {
		return fmt.Errorf("%w: status is no longer %s", ErrInvalidTransition, from)
	}
	wo.Status = to
	wo.UpdatedAt = time.Now().UTC()
	r.orders[id] = wo
	return nil
}

func (r *memoryRepository) SetPDFKey(ctx context.Context, id, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if wo, ok := r.orders[id]; ok {
		wo.PDFKey = key
		r.orders[id] = wo
	}
	return nil
}

func (r *memoryRepository) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.orders), nil
}
