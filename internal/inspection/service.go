package inspection

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MaxAssetMatches caps the trailer search shown on the first wizard step.
const MaxAssetMatches = 8

// AssetDirectory lists the trailers a wizard can select.
type AssetDirectory interface {
	List(ctx context.Context) ([]AssetRef, error)
}

// Renderer produces the printable report of a stored inspection.
type Renderer interface {
	RenderInspection(ctx context.Context, rec *Record) ([]byte, error)
}

// SubmitListener is told about every stored inspection.
type SubmitListener interface {
	InspectionSubmitted(ctx context.Context, rec Record)
}

// Operator is the authenticated user driving a wizard.
type Operator struct {
	ID   string
	Name string
}

// PhotoUpload is a raw file received on the photos step.
type PhotoUpload struct {
	Filename string
	Data     []byte
}

type Service interface {
	StartWizard(ctx context.Context, op Operator, kind Kind) (*WizardView, error)
	GetWizard(ctx context.Context, op Operator, id string) (*WizardView, error)
	SearchAssets(ctx context.Context, query string) ([]AssetRef, error)
	SelectAsset(ctx context.Context, op Operator, id, assetID string) (*WizardView, error)
	UpdateDetails(ctx context.Context, op Operator, id string, req DetailsRequest) (*WizardView, error)
	Next(ctx context.Context, op Operator, id string) (*WizardView, error)
	Back(ctx context.Context, op Operator, id string) (*WizardView, error)
	SetActiveSection(ctx context.Context, op Operator, id string, index int) (*WizardView, error)
	UpdateItem(ctx context.Context, op Operator, id, itemID string, req ItemRequest) (*WizardView, error)
	AttachPhotos(ctx context.Context, op Operator, id string, uploads []PhotoUpload) (*WizardView, []string, error)
	RemovePhoto(ctx context.Context, op Operator, id string, index int) (*WizardView, error)
	Submit(ctx context.Context, op Operator, id string) (*SubmitResult, error)
	CancelWizard(ctx context.Context, op Operator, id string) error

	ListRecords(ctx context.Context, filter ListFilter) ([]Record, error)
	GetRecord(ctx context.Context, id string) (*Record, error)
	DeleteRecord(ctx context.Context, id string) error
	RecordPDF(ctx context.Context, id string) ([]byte, *Record, error)
}

type ServiceOptions struct {
	MaxPhotoBytes int
}

type inspectionService struct {
	repo      Repository
	assets    AssetDirectory
	sessions  *SessionStore
	assembler *Assembler
	renderer  Renderer
	listeners []SubmitListener
	opts      ServiceOptions
	logger    *zap.Logger
}

func NewService(repo Repository, assets AssetDirectory, sessions *SessionStore, assembler *Assembler, renderer Renderer, opts ServiceOptions, logger *zap.Logger, listeners ...SubmitListener) Service {
	if opts.MaxPhotoBytes <= 0 {
		opts.MaxPhotoBytes = DefaultMaxPhotoBytes
	}
	return &inspectionService{
		repo:      repo,
		assets:    assets,
		sessions:  sessions,
		assembler: assembler,
		renderer:  renderer,
		listeners: listeners,
		opts:      opts,
		logger:    logger,
	}
}

func view(w *Wizard) *WizardView {
	snap := w.Snapshot()
	return &WizardView{
		State:      snap,
		Summary:    Summarize(snap.Sections),
		CanAdvance: snap.CanAdvance(snap.CurrentStep),
		Submitting: w.Submitting(),
		StepName:   snap.CurrentStep.String(),
	}
}

func (s *inspectionService) wizard(op Operator, id string) (*Wizard, error) {
	w, ok := s.sessions.Get(id)
	if !ok {
		return nil, ErrWizardNotFound
	}
	if w.OwnerID() != op.ID {
		return nil, ErrNotOwner
	}
	return w, nil
}

func (s *inspectionService) mutate(op Operator, id string, fn func(w *Wizard) error) (*WizardView, error) {
	w, err := s.wizard(op, id)
	if err != nil {
		return nil, err
	}
	if err := fn(w); err != nil {
		return nil, err
	}
	return view(w), nil
}

func (s *inspectionService) StartWizard(ctx context.Context, op Operator, kind Kind) (*WizardView, error) {
	if kind == "" {
		kind = KindDOTAnnual
	}
	if !kind.Valid() {
		return nil, validationErr("kind", fmt.Sprintf("unknown inspection kind %q", kind))
	}
	w := NewWizard(uuid.New().String(), kind, op.ID, op.Name, time.Now())
	s.sessions.Save(w)

	s.logger.Info("Inspection wizard started",
		zap.String("wizard_id", w.ID()),
		zap.String("kind", string(kind)),
		zap.String("user_id", op.ID),
	)
	return view(w), nil
}

func (s *inspectionService) GetWizard(ctx context.Context, op Operator, id string) (*WizardView, error) {
	w, err := s.wizard(op, id)
	if err != nil {
		return nil, err
	}
	return view(w), nil
}

// SearchAssets matches query against trailer numbers, case-insensitively.
// An empty query returns the first MaxAssetMatches trailers.
func (s *inspectionService) SearchAssets(ctx context.Context, query string) ([]AssetRef, error) {
	all, err := s.assets.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load trailers: %w", err)
	}
	return FilterAssets(all, query, MaxAssetMatches), nil
}

// FilterAssets keeps assets whose number contains query, ignoring case.
func FilterAssets(assets []AssetRef, query string, limit int) []AssetRef {
	q := strings.ToLower(strings.TrimSpace(query))
	out := []AssetRef{}
	for _, a := range assets {
		if q != "" && !strings.Contains(strings.ToLower(a.Number), q) {
			continue
		}
		out = append(out, a)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

func (s *inspectionService) SelectAsset(ctx context.Context, op Operator, id, assetID string) (*WizardView, error) {
	w, err := s.wizard(op, id)
	if err != nil {
		return nil, err
	}
	all, err := s.assets.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load trailers: %w", err)
	}
	for _, a := range all {
		if a.ID == assetID {
			if err := w.SelectAsset(a); err != nil {
				return nil, err
			}
			return view(w), nil
		}
	}
	return nil, ErrAssetNotFound
}

func (s *inspectionService) UpdateDetails(ctx context.Context, op Operator, id string, req DetailsRequest) (*WizardView, error) {
	return s.mutate(op, id, func(w *Wizard) error {
		if req.OperatorName != nil {
			if err := w.SetOperatorName(*req.OperatorName); err != nil {
				return err
			}
		}
		fields := []struct {
			key   string
			value *string
		}{
			{FieldDOTNumber, req.DOTNumber},
			{FieldVIN, req.VIN},
			{FieldLicensePlate, req.LicensePlate},
		}
		for _, f := range fields {
			if f.value == nil {
				continue
			}
			if err := w.SetAuxiliaryField(f.key, strings.TrimSpace(*f.value)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *inspectionService) Next(ctx context.Context, op Operator, id string) (*WizardView, error) {
	return s.mutate(op, id, func(w *Wizard) error {
		_, err := w.Next()
		return err
	})
}

func (s *inspectionService) Back(ctx context.Context, op Operator, id string) (*WizardView, error) {
	return s.mutate(op, id, func(w *Wizard) error {
		_, err := w.Back()
		return err
	})
}

func (s *inspectionService) SetActiveSection(ctx context.Context, op Operator, id string, index int) (*WizardView, error) {
	return s.mutate(op, id, func(w *Wizard) error {
		return w.SetActiveSection(index)
	})
}

func (s *inspectionService) UpdateItem(ctx context.Context, op Operator, id, itemID string, req ItemRequest) (*WizardView, error) {
	return s.mutate(op, id, func(w *Wizard) error {
		return w.UpdateItem(itemID, req.Status, req.Notes)
	})
}

// AttachPhotos validates each upload on its own. Rejected files become
// warnings; the valid ones are still attached.
func (s *inspectionService) AttachPhotos(ctx context.Context, op Operator, id string, uploads []PhotoUpload) (*WizardView, []string, error) {
	w, err := s.wizard(op, id)
	if err != nil {
		return nil, nil, err
	}
	var warnings []string
	photos := make([]Photo, 0, len(uploads))
	for _, u := range uploads {
		p, err := ValidatePhoto(u.Filename, u.Data, s.opts.MaxPhotoBytes)
		if err != nil {
			warnings = append(warnings, err.Error())
			continue
		}
		photos = append(photos, p)
	}
	if len(photos) > 0 {
		if err := w.AttachPhotos(photos...); err != nil {
			return nil, nil, err
		}
	}
	return view(w), warnings, nil
}

func (s *inspectionService) RemovePhoto(ctx context.Context, op Operator, id string, index int) (*WizardView, error) {
	return s.mutate(op, id, func(w *Wizard) error {
		return w.RemovePhoto(index)
	})
}

func (s *inspectionService) Submit(ctx context.Context, op Operator, id string) (*SubmitResult, error) {
	w, err := s.wizard(op, id)
	if err != nil {
		return nil, err
	}
	result, err := s.assembler.Submit(ctx, w, op.ID)
	if err != nil {
		return nil, err
	}

	rec := *result.Record
	for _, l := range s.listeners {
		go l.InspectionSubmitted(context.Background(), rec)
	}
	return result, nil
}

func (s *inspectionService) CancelWizard(ctx context.Context, op Operator, id string) error {
	w, err := s.wizard(op, id)
	if err != nil {
		return err
	}
	if err := w.Reset(); err != nil {
		return err
	}
	s.sessions.Delete(id)
	return nil
}

func (s *inspectionService) ListRecords(ctx context.Context, filter ListFilter) ([]Record, error) {
	records, err := s.repo.ListInspections(ctx, filter)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].InspectionDate.After(records[j].InspectionDate)
	})
	return records, nil
}

func (s *inspectionService) GetRecord(ctx context.Context, id string) (*Record, error) {
	rec, err := s.repo.GetInspection(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrRecordNotFound
	}
	return rec, nil
}

func (s *inspectionService) DeleteRecord(ctx context.Context, id string) error {
	if _, err := s.GetRecord(ctx, id); err != nil {
		return err
	}
	return s.repo.DeleteInspection(ctx, id)
}

func (s *inspectionService) RecordPDF(ctx context.Context, id string) ([]byte, *Record, error) {
	rec, err := s.GetRecord(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	data, err := s.renderer.RenderInspection(ctx, rec)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to render inspection report: %w", err)
	}
	return data, rec, nil
}
