package documents

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"fleetops/fleet-portal/fleet-portal-backend/internal/inspection"
	"fleetops/fleet-portal/fleet-portal-backend/internal/workorders"
	"fleetops/fleet-portal/fleet-portal-backend/pkg/storage"
)

type InspectionRenderer interface {
	RenderInspection(ctx context.Context, rec *inspection.Record) ([]byte, error)
}

type WorkOrderRenderer interface {
	RenderWorkOrder(ctx context.Context, wo *workorders.WorkOrder) ([]byte, error)
}

// InspectionKeys stores the archive key back on the inspection record.
type InspectionKeys interface {
	SetReportKey(ctx context.Context, id, key string) error
}

// WorkOrderKeys stores the archive key back on the work order.
type WorkOrderKeys interface {
	SetPDFKey(ctx context.Context, id, key string) error
}

type Service interface {
	ArchiveInspection(ctx context.Context, rec *inspection.Record) (*Document, error)
	ArchiveWorkOrder(ctx context.Context, wo *workorders.WorkOrder) (*Document, error)
	ListDocuments(ctx context.Context, filter ListFilter) ([]Document, error)
	GetDocument(ctx context.Context, id uuid.UUID) (*Document, error)
	DownloadDocument(ctx context.Context, id uuid.UUID) (io.ReadCloser, *Document, error)
	DownloadURL(ctx context.Context, id uuid.UUID) (string, error)
}

// Config wires the archive collaborators. Storage may be nil, which
// disables archiving while keeping listings available.
type Config struct {
	Repository         Repository
	Storage            *StorageProvider
	InspectionRenderer InspectionRenderer
	WorkOrderRenderer  WorkOrderRenderer
	InspectionKeys     InspectionKeys
	WorkOrderKeys      WorkOrderKeys
	URLTTL             time.Duration
}

type documentService struct {
	repo        Repository
	storage     *StorageProvider
	inspections InspectionRenderer
	workOrders  WorkOrderRenderer
	inspKeys    InspectionKeys
	woKeys      WorkOrderKeys
	urlTTL      time.Duration
	logger      *zap.Logger
	now         func() time.Time
}

func NewService(cfg Config, logger *zap.Logger) Service {
	if cfg.URLTTL <= 0 {
		cfg.URLTTL = 15 * time.Minute
	}
	return &documentService{
		repo:        cfg.Repository,
		storage:     cfg.Storage,
		inspections: cfg.InspectionRenderer,
		workOrders:  cfg.WorkOrderRenderer,
		inspKeys:    cfg.InspectionKeys,
		woKeys:      cfg.WorkOrderKeys,
		urlTTL:      cfg.URLTTL,
		logger:      logger,
		now:         time.Now,
	}
}

func (s *documentService) ArchiveInspection(ctx context.Context, rec *inspection.Record) (*Document, error) {
	if s.storage == nil || s.inspections == nil {
		return nil, ErrArchiveDisabled
	}
	pdf, err := s.inspections.RenderInspection(ctx, rec)
	if err != nil {
		return nil, fmt.Errorf("failed to render inspection %s: %w", rec.ID, err)
	}
	doc, err := s.store(ctx, KindInspection, rec.ID, fmt.Sprintf("%s %s.pdf", rec.TrailerNumber, rec.ID), pdf)
	if err != nil {
		return nil, err
	}
	if s.inspKeys != nil {
		if err := s.inspKeys.SetReportKey(ctx, rec.ID, doc.S3Key); err != nil {
			s.logger.Warn("Failed to record report key", zap.String("inspection_id", rec.ID), zap.Error(err))
		}
	}
	return doc, nil
}

func (s *documentService) ArchiveWorkOrder(ctx context.Context, wo *workorders.WorkOrder) (*Document, error) {
	if s.storage == nil || s.workOrders == nil {
		return nil, ErrArchiveDisabled
	}
	pdf, err := s.workOrders.RenderWorkOrder(ctx, wo)
	if err != nil {
		return nil, fmt.Errorf("failed to render work order %s: %w", wo.Number, err)
	}
	doc, err := s.store(ctx, KindWorkOrder, wo.ID, wo.Number+".pdf", pdf)
	if err != nil {
		return nil, err
	}
	if s.woKeys != nil {
		if err := s.woKeys.SetPDFKey(ctx, wo.ID, doc.S3Key); err != nil {
			s.logger.Warn("Failed to record work order pdf key", zap.String("wo_number", wo.Number), zap.Error(err))
		}
	}
	return doc, nil
}

// store uploads data as the next version for the subject and records it.
func (s *documentService) store(ctx context.Context, kind Kind, subjectID, name string, data []byte) (*Document, error) {
	latest, err := s.repo.LatestVersion(ctx, kind, subjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to read document versions: %w", err)
	}
	version := latest + 1
	key := s.storage.GenerateKey(kind, subjectID, version)

	if err := s.storage.Upload(ctx, key, data, ContentTypePDF); err != nil {
		return nil, err
	}

	doc := &Document{
		ID:          uuid.New(),
		Kind:        kind,
		SubjectID:   subjectID,
		Name:        name,
		Version:     version,
		S3Bucket:    s.storage.Bucket(),
		S3Key:       key,
		ContentType: ContentTypePDF,
		FileSize:    int64(len(data)),
		CreatedAt:   s.now().UTC(),
	}
	if err := s.repo.CreateDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to record document: %w", err)
	}

	s.logger.Info("Report archived",
		zap.String("kind", string(kind)),
		zap.String("subject_id", subjectID),
		zap.String("key", key),
		zap.Int("version", version))
	return doc, nil
}

func (s *documentService) ListDocuments(ctx context.Context, filter ListFilter) ([]Document, error) {
	return s.repo.ListDocuments(ctx, filter)
}

func (s *documentService) GetDocument(ctx context.Context, id uuid.UUID) (*Document, error) {
	doc, err := s.repo.GetDocumentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, ErrDocumentNotFound
	}
	return doc, nil
}

func (s *documentService) DownloadDocument(ctx context.Context, id uuid.UUID) (io.ReadCloser, *Document, error) {
	doc, err := s.GetDocument(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if s.storage == nil {
		return nil, nil, ErrArchiveDisabled
	}
	body, err := s.storage.Download(ctx, doc.S3Key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil, ErrDocumentNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	return body, doc, nil
}

func (s *documentService) DownloadURL(ctx context.Context, id uuid.UUID) (string, error) {
	doc, err := s.GetDocument(ctx, id)
	if err != nil {
		return "", err
	}
	if s.storage == nil {
		return "", ErrArchiveDisabled
	}
	return s.storage.PresignedURL(ctx, doc.S3Key, s.urlTTL)
}
