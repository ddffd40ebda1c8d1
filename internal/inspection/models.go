package inspection

import (
	"time"
)

// Attachment is a photo in its portable, embeddable form.
type Attachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	URL         string `json:"url"`
}

// Record is a submitted inspection as handed to persistence.
type Record struct {
	ID              string            `json:"id"`
	ExternalID      string            `json:"external_id,omitempty"`
	Kind            Kind              `json:"kind"`
	InspectionType  string            `json:"inspection_type"`
	TrailerID       string            `json:"trailer_id"`
	TrailerNumber   string            `json:"trailer_number"`
	OperatorName    string            `json:"technician_name"`
	SubmittedBy     string            `json:"submitted_by"`
	InspectionDate  time.Time         `json:"inspection_date"`
	NextDueDate     time.Time         `json:"next_due_date"`
	ItemStatuses    map[string]Status `json:"item_statuses"`
	ItemNotes       map[string]string `json:"item_notes,omitempty"`
	Defects         string            `json:"defects_found"`
	Outcome         Outcome           `json:"overall_status"`
	ProgressPercent int               `json:"progress_percent"`
	Score           int               `json:"score"`
	IssueCount      int               `json:"issue_count"`
	AuxiliaryFields map[string]string `json:"auxiliary_fields,omitempty"`
	Attachments     []Attachment      `json:"attachments,omitempty"`
	ReportKey       string            `json:"report_key,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
}

// SubmitResult is returned to the operator after a successful submit.
type SubmitResult struct {
	Record   *Record  `json:"record"`
	Warnings []string `json:"warnings,omitempty"`
}

// ListFilter narrows record listings.
type ListFilter struct {
	TrailerID string
	Outcome   Outcome
	Since     *time.Time
	Limit     int
}

func (f ListFilter) matches(r *Record) bool {
	if f.TrailerID != "" && r.TrailerID != f.TrailerID {
		return false
	}
	if f.Outcome != "" && r.Outcome != f.Outcome {
		return false
	}
	if f.Since != nil && r.InspectionDate.Before(*f.Since) {
		return false
	}
	return true
}

// WizardView is the wizard state plus its live aggregates.
type WizardView struct {
	State
	Summary    Summary `json:"summary"`
	CanAdvance bool    `json:"can_advance"`
	Submitting bool    `json:"submitting"`
	StepName   string  `json:"step_name"`
}

// CreateWizardRequest starts a wizard.
type CreateWizardRequest struct {
	Kind Kind `json:"kind"`
}

// SelectAssetRequest picks the trailer by id.
type SelectAssetRequest struct {
	AssetID string `json:"asset_id" binding:"required"`
}

// DetailsRequest updates the technician details step. Nil fields are left alone.
type DetailsRequest struct {
	OperatorName *string `json:"operator_name"`
	DOTNumber    *string `json:"dot_number"`
	VIN          *string `json:"vin"`
	LicensePlate *string `json:"license_plate"`
}

// SectionRequest jumps to a checklist section.
type SectionRequest struct {
	Index *int `json:"index" binding:"required"`
}

// ItemRequest sets an item's status and/or notes.
type ItemRequest struct {
	Status *Status `json:"status"`
	Notes  *string `json:"notes"`
}
