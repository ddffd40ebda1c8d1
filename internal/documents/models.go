package documents

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Kind is the record a document was rendered from.
type Kind string

const (
	KindInspection Kind = "inspection"
	KindWorkOrder  Kind = "work_order"
)

func (k Kind) Valid() bool {
	return k == KindInspection || k == KindWorkOrder
}

const ContentTypePDF = "application/pdf"

var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrArchiveDisabled  = errors.New("report archive is not configured")
)

// Document is one archived report version.
type Document struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Kind        Kind      `json:"kind" db:"kind"`
	SubjectID   string    `json:"subject_id" db:"subject_id"`
	Name        string    `json:"name" db:"name"`
	Version     int       `json:"version" db:"version"`
	S3Bucket    string    `json:"s3_bucket" db:"s3_bucket"`
	S3Key       string    `json:"s3_key" db:"s3_key"`
	ContentType string    `json:"content_type" db:"content_type"`
	FileSize    int64     `json:"file_size" db:"file_size"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// ListFilter narrows document listings.
type ListFilter struct {
	Kind      Kind
	SubjectID string
	Limit     int
}

func (f ListFilter) matches(d *Document) bool {
	if f.Kind != "" && d.Kind != f.Kind {
		return false
	}
	if f.SubjectID != "" && d.SubjectID != f.SubjectID {
		return false
	}
	return true
}
