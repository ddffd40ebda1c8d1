package assets

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type Repository interface {
	List(ctx context.Context) ([]Trailer, error)
	Get(ctx context.Context, id string) (*Trailer, error)
	Create(ctx context.Context, t *Trailer) error
}

// Schema creates the trailers table.
const Schema = `
CREATE TABLE IF NOT EXISTS trailers (
	id         TEXT PRIMARY KEY,
	number     TEXT NOT NULL UNIQUE,
	make       TEXT NOT NULL DEFAULT '',
	model      TEXT NOT NULL DEFAULT '',
	year       INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

type postgresRepository struct {
	db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) List(ctx context.Context) ([]Trailer, error) {
	var trailers []Trailer
	err := r.db.SelectContext(ctx, &trailers, "SELECT * FROM trailers ORDER BY number")
	return trailers, err
}

func (r *postgresRepository) Get(ctx context.Context, id string) (*Trailer, error) {
	var t Trailer
	err := r.db.GetContext(ctx, &t, "SELECT * FROM trailers WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *postgresRepository) Create(ctx context.Context, t *Trailer) error {
	query := `
		INSERT INTO trailers (id, number, make, model, year, created_at)
		VALUES (:id, :number, :make, :model, :year, :created_at)`
	_, err := r.db.NamedExecContext(ctx, query, t)
	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
		return ErrDuplicateNumber
	}
	if err != nil {
		return fmt.Errorf("failed to insert trailer: %w", err)
	}
	return nil
}

type memoryRepository struct {
	mu       sync.RWMutex
	trailers map[string]Trailer
}

// NewMemoryRepository returns an in-process store holding seed.
func NewMemoryRepository(seed ...Trailer) Repository {
	r := &memoryRepository{trailers: make(map[string]Trailer, len(seed))}
	for _, t := range seed {
		r.trailers[t.ID] = t
	}
	return r
}

func (r *memoryRepository) List(ctx context.Context) ([]Trailer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Trailer, 0, len(r.trailers))
	for _, t := range r.trailers {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (r *memoryRepository) Get(ctx context.Context, id string) (*Trailer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.trailers[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (r *memoryRepository) Create(ctx context.Context, t *Trailer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.trailers {
		if strings.EqualFold(existing.Number, t.Number) {
			return ErrDuplicateNumber
		}
	}
	r.trailers[t.ID] = *t
	return nil
}
