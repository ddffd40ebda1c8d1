package documents

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type Repository interface {
	CreateDocument(ctx context.Context, doc *Document) error
	GetDocumentByID(ctx context.Context, id uuid.UUID) (*Document, error)
	ListDocuments(ctx context.Context, filter ListFilter) ([]Document, error)
	// LatestVersion returns 0 when nothing was archived for the subject yet.
	LatestVersion(ctx context.Context, kind Kind, subjectID string) (int, error)
}

// Schema creates the documents table.
const Schema = `
CREATE TABLE IF NOT EXISTS documents (
	id           UUID PRIMARY KEY,
	kind         TEXT NOT NULL,
	subject_id   TEXT NOT NULL,
	name         TEXT NOT NULL,
	version      INTEGER NOT NULL,
	s3_bucket    TEXT NOT NULL,
	s3_key       TEXT NOT NULL,
	content_type TEXT NOT NULL,
	file_size    BIGINT NOT NULL DEFAULT 0,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (kind, subject_id, version)
);
`

type postgresRepository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) CreateDocument(ctx context.Context, doc *Document) error {
	query := `
		INSERT INTO documents (
			id, kind, subject_id, name, version, s3_bucket, s3_key, content_type, file_size, created_at
		) VALUES (
			:id, :kind, :subject_id, :name, :version, :s3_bucket, :s3_key, :content_type, :file_size, :created_at
		)`
	_, err := r.db.NamedExecContext(ctx, query, doc)
	return err
}

func (r *postgresRepository) GetDocumentByID(ctx context.Context, id uuid.UUID) (*Document, error) {
	var doc Document
	err := r.db.GetContext(ctx, &doc, "SELECT * FROM documents WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *postgresRepository) ListDocuments(ctx context.Context, filter ListFilter) ([]Document, error) {
	docs := []Document{}
	query := "SELECT * FROM documents WHERE 1=1"
	var args []interface{}
	argCount := 1

	if filter.Kind != "" {
		query += fmt.Sprintf(" AND kind = $%d", argCount)
		args = append(args, filter.Kind)
		argCount++
	}
	if filter.SubjectID != "" {
		query += fmt.Sprintf(" AND subject_id = $%d", argCount)
		args = append(args, filter.SubjectID)
		argCount++
	}
	query += " ORDER BY created_at DESC, version DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argCount)
		args = append(args, filter.Limit)
	}

	err := r.db.SelectContext(ctx, &docs, query, args...)
	return docs, err
}

func (r *postgresRepository) LatestVersion(ctx context.Context, kind Kind, subjectID string) (int, error) {
	var version int
	err := r.db.GetContext(ctx, &version,
		"SELECT COALESCE(MAX(version), 0) FROM documents WHERE kind = $1 AND subject_id = $2", kind, subjectID)
	return version, err
}

type memoryRepository struct {
	mu   sync.RWMutex
	docs map[uuid.UUID]Document
}

func NewMemoryRepository() Repository {
	return &memoryRepository{docs: make(map[uuid.UUID]Document)}
}

func (r *memoryRepository) CreateDocument(ctx context.Context, doc *Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs[doc.ID] = *doc
	return nil
}

func (r *memoryRepository) GetDocumentByID(ctx context.Context, id uuid.UUID) (*Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.docs[id]
	if !ok {
		return nil, nil
	}
	return &doc, nil
}

func (r *memoryRepository) ListDocuments(ctx context.Context, filter ListFilter) ([]Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []Document{}
	for _, d := range r.docs {
		if filter.matches(&d) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Version > out[j].Version
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *memoryRepository) LatestVersion(ctx context.Context, kind Kind, subjectID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	latest := 0
	for _, d := range r.docs {
		if d.Kind == kind && d.SubjectID == subjectID && d.Version > latest {
			latest = d.Version
		}
	}
	return latest, nil
}
