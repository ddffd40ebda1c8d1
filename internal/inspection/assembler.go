package inspection

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Persistence stores submitted inspections. It returns the identifier the
// backend assigned and rejects with a descriptive error on any failure.
type Persistence interface {
	SubmitInspection(ctx context.Context, record *Record, attachments []Attachment) (string, error)
}

const (
	dotAnnualInterval = 365 * 24 * time.Hour
	quickInterval     = 90 * 24 * time.Hour
)

// Assembler turns wizard state into a Record and hands it to persistence.
type Assembler struct {
	persistence Persistence
	encoder     PhotoEncoder
	logger      *zap.Logger
	now         func() time.Time
}

func NewAssembler(persistence Persistence, encoder PhotoEncoder, logger *zap.Logger) *Assembler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Assembler{
		persistence: persistence,
		encoder:     encoder,
		logger:      logger,
		now:         time.Now,
	}
}

// Assemble builds the record for state. Photos that fail to encode are
// dropped and reported as warnings.
func (a *Assembler) Assemble(ctx context.Context, state State, submittedBy string) (*Record, []Attachment, []string) {
	now := a.now()
	summary := Summarize(state.Sections)

	prefix := "INS"
	interval := dotAnnualInterval
	if state.Kind == KindQuick {
		prefix = "QINS"
		interval = quickInterval
	}

	statuses := make(map[string]Status, summary.TotalItems)
	notes := map[string]string{}
	for _, s := range state.Sections {
		for _, item := range s.Items {
			statuses[item.ID] = item.Status
			if item.Notes != "" {
				notes[item.ID] = item.Notes
			}
		}
	}

	aux := make(map[string]string, len(state.AuxiliaryFields))
	for k, v := range state.AuxiliaryFields {
		aux[k] = v
	}

	record := &Record{
		ID:              fmt.Sprintf("%s-%d", prefix, now.UnixMilli()),
		Kind:            state.Kind,
		InspectionType:  state.Kind.Label(),
		OperatorName:    strings.TrimSpace(state.OperatorName),
		SubmittedBy:     submittedBy,
		InspectionDate:  now,
		NextDueDate:     now.Add(interval),
		ItemStatuses:    statuses,
		ItemNotes:       notes,
		Defects:         strings.Join(summary.Defects, "\n"),
		Outcome:         summary.Outcome,
		ProgressPercent: summary.ProgressPercent,
		Score:           summary.Score,
		IssueCount:      summary.FailCount,
		AuxiliaryFields: aux,
		CreatedAt:       now,
	}
	if state.SelectedAsset != nil {
		record.TrailerID = state.SelectedAsset.ID
		record.TrailerNumber = state.SelectedAsset.Number
	}

	var warnings []string
	attachments := make([]Attachment, 0, len(state.Photos))
	for _, photo := range state.Photos {
		att, err := a.encoder.Encode(ctx, photo)
		if err != nil {
			a.logger.Warn("Dropping photo that could not be encoded",
				zap.String("filename", photo.Filename),
				zap.Error(err),
			)
			warnings = append(warnings, fmt.Sprintf("photo %s was not attached: %v", photo.Filename, err))
			continue
		}
		attachments = append(attachments, att)
	}
	record.Attachments = attachments

	return record, attachments, warnings
}

// Submit persists the wizard's inspection exactly once. A second call while
// the first is in flight fails with ErrSubmitInFlight. On failure the wizard
// is left untouched so the operator can retry; on success it is reset.
func (a *Assembler) Submit(ctx context.Context, w *Wizard, submittedBy string) (*SubmitResult, error) {
	state, err := w.beginSubmit()
	if err != nil {
		return nil, err
	}

	success := false
	defer func() { w.finishSubmit(success) }()

	record, attachments, warnings := a.Assemble(ctx, state, submittedBy)

	// A started submit runs to completion; the persistence client owns the timeout.
	storedID, err := a.persistence.SubmitInspection(context.WithoutCancel(ctx), record, attachments)
	if err != nil {
		a.logger.Error("Failed to submit inspection",
			zap.String("wizard_id", state.ID),
			zap.String("trailer_id", record.TrailerID),
			zap.Error(err),
		)
		return nil, &PersistenceError{Err: err}
	}
	if storedID != "" && storedID != record.ID {
		record.ExternalID = storedID
	}

	success = true
	a.logger.Info("Inspection submitted",
		zap.String("inspection_id", record.ID),
		zap.String("trailer_number", record.TrailerNumber),
		zap.String("outcome", string(record.Outcome)),
		zap.Int("attachments", len(attachments)),
	)
	return &SubmitResult{Record: record, Warnings: warnings}, nil
}
