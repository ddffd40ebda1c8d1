package inventory

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/jmoiron/sqlx"
)

type Repository interface {
	List(ctx context.Context) ([]Item, error)
	Get(ctx context.Context, id string) (*Item, error)
	GetByName(ctx context.Context, name string) (*Item, error)
	Create(ctx context.Context, item *Item) error
	Update(ctx context.Context, item *Item) error
	Delete(ctx context.Context, id string) error
	// Consume moves qty from available to used, failing without change when
	// stock is short.
	Consume(ctx context.Context, name string, qty int) (*Item, error)
}

// Schema creates the inventory table.
const Schema = `
CREATE TABLE IF NOT EXISTS inventory_items (
	id             TEXT PRIMARY KEY,
	name           TEXT NOT NULL,
	description    TEXT NOT NULL DEFAULT '',
	type           TEXT NOT NULL DEFAULT '',
	manufacturer   TEXT NOT NULL DEFAULT '',
	available      INTEGER NOT NULL DEFAULT 0 CHECK (available >= 0),
	used           INTEGER NOT NULL DEFAULT 0,
	pending        INTEGER NOT NULL DEFAULT 0,
	price_per_part NUMERIC(12,2) NOT NULL DEFAULT 0,
	shelf_location TEXT NOT NULL DEFAULT '',
	barcode        TEXT NOT NULL DEFAULT '',
	date_added     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	notes          TEXT NOT NULL DEFAULT ''
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_inventory_items_name ON inventory_items (LOWER(name));
`

type postgresRepository struct {
	db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) List(ctx context.Context) ([]Item, error) {
	var items []Item
	err := r.db.SelectContext(ctx, &items, "SELECT * FROM inventory_items ORDER BY name")
	return items, err
}

func (r *postgresRepository) Get(ctx context.Context, id string) (*Item, error) {
	return r.getOne(ctx, "SELECT * FROM inventory_items WHERE id = $1", id)
}

func (r *postgresRepository) GetByName(ctx context.Context, name string) (*Item, error) {
	return r.getOne(ctx, "SELECT * FROM inventory_items WHERE LOWER(name) = LOWER($1)", name)
}

func (r *postgresRepository) getOne(ctx context.Context, query string, arg string) (*Item, error) {
	var item Item
	err := r.db.GetContext(ctx, &item, query, arg)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *postgresRepository) Create(ctx context.Context, item *Item) error {
	query := `
		INSERT INTO inventory_items (
			id, name, description, type, manufacturer, available, used, pending,
			price_per_part, shelf_location, barcode, date_added, notes
		) VALUES (
			:id, :name, :description, :type, :manufacturer, :available, :used, :pending,
			:price_per_part, :shelf_location, :barcode, :date_added, :notes
		)`
	_, err := r.db.NamedExecContext(ctx, query, item)
	return err
}

func (r *postgresRepository) Update(ctx context.Context, item *Item) error {
	query := `
		UPDATE inventory_items SET
			name = :name, description = :description, available = :available,
			used = :used, pending = :pending, price_per_part = :price_per_part,
			shelf_location = :shelf_location, notes = :notes
		WHERE id = :id`
	_, err := r.db.NamedExecContext(ctx, query, item)
	return err
}

func (r *postgresRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM inventory_items WHERE id = $1", id)
	return err
}

func (r *postgresRepository) Consume(ctx context.Context, name string, qty int) (*Item, error) {
	var item Item
	err := r.db.GetContext(ctx, &item, `
		UPDATE inventory_items
		SET available = available - $2, used = used + $2
		WHERE LOWER(name) = LOWER($1) AND available >= $2
		RETURNING *`, name, qty)
	if err == nil {
		return &item, nil
	}
	if err != sql.ErrNoRows {
		return nil, err
	}
	existing, err := r.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, fmt.Errorf("%s: %w", name, ErrItemNotFound)
	}
	return nil, fmt.Errorf("%s: %w (available %d, requested %d)", name, ErrInsufficientStock, existing.Available, qty)
}

type memoryRepository struct {
	mu    sync.RWMutex
	items map[string]Item
}

func NewMemoryRepository(seed ...Item) Repository {
	r := &memoryRepository{items: make(map[string]Item, len(seed))}
	for _, it := range seed {
		r.items[it.ID] = it
	}
	return r
}

func (r *memoryRepository) List(ctx context.Context) ([]Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Item, 0, len(r.items))
	for _, it := range r.items {
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *memoryRepository) Get(ctx context.Context, id string) (*Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	it, ok := r.items[id]
	if !ok {
		return nil, nil
	}
	return &it, nil
}

func (r *memoryRepository) GetByName(ctx context.Context, name string) (*Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byName(name), nil
}

func (r *memoryRepository) byName(name string) *Item {
	for _, it := range r.items {
		if strings.EqualFold(it.Name, name) {
			found := it
			return &found
		}
	}
	return nil
}

func (r *memoryRepository) Create(ctx context.Context, item *Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[item.ID] = *item
	return nil
}

func (r *memoryRepository) Update(ctx context.Context, item *Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[item.ID]; !ok {
		return ErrItemNotFound
	}
	r.items[item.ID] = *item
	return nil
}

func (r *memoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, id)
	return nil
}

func (r *memoryRepository) Consume(ctx context.Context, name string, qty int) (*Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	it := r.byName(name)
	if it == nil {
		return nil, fmt.Errorf("%s: %w", name, ErrItemNotFound)
	}
	if it.Available < qty {
		return nil, fmt.Errorf("%s: %w (available %d, requested %d)", name, ErrInsufficientStock, it.Available, qty)
	}
	it.Available -= qty
	it.Used += qty
	r.items[it.ID] = *it
	return it, nil
}
