package inspection

import (
	"strings"
	"sync"
	"time"
)

// Step is a position in the linear inspection wizard.
type Step int

const (
	StepTrailerSelect Step = iota + 1
	StepDetails
	StepInspect
	StepPhotos
	StepReview
)

func (s Step) String() string {
	switch s {
	case StepTrailerSelect:
		return "trailer"
	case StepDetails:
		return "details"
	case StepInspect:
		return "inspect"
	case StepPhotos:
		return "photos"
	case StepReview:
		return "review"
	}
	return "unknown"
}

// Direction of the last step transition. Presentation only.
type Direction string

const (
	DirectionForward  Direction = "forward"
	DirectionBackward Direction = "backward"
)

// Auxiliary detail fields collected on the details step.
const (
	FieldDOTNumber    = "dot_number"
	FieldVIN          = "vin"
	FieldLicensePlate = "license_plate"
)

var auxiliaryFields = map[string]bool{
	FieldDOTNumber:    true,
	FieldVIN:          true,
	FieldLicensePlate: true,
}

// AssetRef is a read-only reference to the trailer under inspection.
type AssetRef struct {
	ID     string `json:"id"`
	Number string `json:"number"`
	Make   string `json:"make,omitempty"`
	Model  string `json:"model,omitempty"`
	Year   int    `json:"year,omitempty"`
}

// Photo is an image attached on the photos step.
type Photo struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Size        int    `json:"size"`
	Data        []byte `json:"-"`
}

// State is a snapshot of everything a wizard holds.
type State struct {
	ID              string            `json:"id"`
	Kind            Kind              `json:"kind"`
	OwnerID         string            `json:"owner_id"`
	CurrentStep     Step              `json:"current_step"`
	Direction       Direction         `json:"direction"`
	SelectedAsset   *AssetRef         `json:"selected_asset,omitempty"`
	OperatorName    string            `json:"operator_name"`
	AuxiliaryFields map[string]string `json:"auxiliary_fields"`
	Sections        []Section         `json:"sections"`
	ActiveSection   int               `json:"active_section"`
	Photos          []Photo           `json:"photos"`
	CreatedAt       time.Time         `json:"created_at"`
}

func (s State) clone() State {
	out := s
	if s.SelectedAsset != nil {
		asset := *s.SelectedAsset
		out.SelectedAsset = &asset
	}
	out.AuxiliaryFields = make(map[string]string, len(s.AuxiliaryFields))
	for k, v := range s.AuxiliaryFields {
		out.AuxiliaryFields[k] = v
	}
	out.Sections = cloneSections(s.Sections)
	if s.Photos != nil {
		out.Photos = make([]Photo, len(s.Photos))
		for i, p := range s.Photos {
			p.Data = append([]byte(nil), p.Data...)
			out.Photos[i] = p
		}
	}
	return out
}

// CanAdvance reports whether forward navigation out of step is allowed.
// The review step is a submit action rather than a gate and never advances.
func (s State) CanAdvance(step Step) bool {
	return s.gate(step) == nil
}

func (s State) gate(step Step) error {
	switch step {
	case StepTrailerSelect:
		if s.SelectedAsset == nil {
			return validationErr("trailer", "select a trailer before continuing")
		}
	case StepDetails:
		if strings.TrimSpace(s.OperatorName) == "" {
			return validationErr("technician_name", "enter the technician name before continuing")
		}
	case StepInspect, StepPhotos:
	case StepReview:
		return validationErr("step", "review is the last step; submit the inspection instead")
	default:
		return validationErr("step", "unknown wizard step")
	}
	return nil
}

// Wizard is one operator's in-progress inspection. All methods are safe for
// concurrent use; mutations are refused while a submission is in flight.
type Wizard struct {
	mu         sync.Mutex
	state      State
	submitting bool
	// operator name pre-filled on every fresh state
	ownerName string
}

// NewWizard starts a fresh wizard on the first step.
func NewWizard(id string, kind Kind, ownerID, operatorName string, now time.Time) *Wizard {
	w := &Wizard{ownerName: operatorName}
	w.state = initialState(id, kind, ownerID, operatorName, now)
	return w
}

func initialState(id string, kind Kind, ownerID, operatorName string, now time.Time) State {
	return State{
		ID:              id,
		Kind:            kind,
		OwnerID:         ownerID,
		CurrentStep:     StepTrailerSelect,
		Direction:       DirectionForward,
		OperatorName:    operatorName,
		AuxiliaryFields: map[string]string{},
		Sections:        NewSections(kind),
		Photos:          []Photo{},
		CreatedAt:       now,
	}
}

// ID returns the wizard identifier.
func (w *Wizard) ID() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state.ID
}

// OwnerID returns the user that started the wizard.
func (w *Wizard) OwnerID() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state.OwnerID
}

// Snapshot returns a deep copy of the current state.
func (w *Wizard) Snapshot() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state.clone()
}

// Submitting reports whether a submission is in flight.
func (w *Wizard) Submitting() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.submitting
}

func (w *Wizard) mutate(fn func(s *State) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.submitting {
		return ErrSubmitInFlight
	}
	return fn(&w.state)
}

// SelectAsset sets the trailer under inspection.
func (w *Wizard) SelectAsset(asset AssetRef) error {
	return w.mutate(func(s *State) error {
		s.SelectedAsset = &asset
		return nil
	})
}

// ClearAsset drops the selected trailer.
func (w *Wizard) ClearAsset() error {
	return w.mutate(func(s *State) error {
		s.SelectedAsset = nil
		return nil
	})
}

// SetOperatorName records the technician name as typed.
func (w *Wizard) SetOperatorName(name string) error {
	return w.mutate(func(s *State) error {
		s.OperatorName = name
		return nil
	})
}

// SetAuxiliaryField records an optional detail such as the DOT number or VIN.
func (w *Wizard) SetAuxiliaryField(key, value string) error {
	return w.mutate(func(s *State) error {
		if !auxiliaryFields[key] {
			return validationErr(key, "unknown detail field")
		}
		if value == "" {
			delete(s.AuxiliaryFields, key)
			return nil
		}
		s.AuxiliaryFields[key] = value
		return nil
	})
}

// Next moves forward one step when the current step's gate is met. On a
// failed gate the step is left unchanged and a ValidationError is returned.
func (w *Wizard) Next() (Step, error) {
	var step Step
	err := w.mutate(func(s *State) error {
		if err := s.gate(s.CurrentStep); err != nil {
			step = s.CurrentStep
			return err
		}
		s.CurrentStep++
		s.Direction = DirectionForward
		step = s.CurrentStep
		return nil
	})
	return step, err
}

// Back moves to the previous step, keeping all entered data.
func (w *Wizard) Back() (Step, error) {
	var step Step
	err := w.mutate(func(s *State) error {
		if s.CurrentStep <= StepTrailerSelect {
			step = s.CurrentStep
			return validationErr("step", "already on the first step")
		}
		s.CurrentStep--
		s.Direction = DirectionBackward
		step = s.CurrentStep
		return nil
	})
	return step, err
}

// SetActiveSection jumps to a checklist section on the inspect step.
func (w *Wizard) SetActiveSection(index int) error {
	return w.mutate(func(s *State) error {
		if index < 0 || index >= len(s.Sections) {
			return ErrSectionOutOfRange
		}
		s.ActiveSection = index
		return nil
	})
}

// UpdateItem sets the status and/or notes of the item with itemID. Nil
// arguments leave the corresponding field untouched.
func (w *Wizard) UpdateItem(itemID string, status *Status, notes *string) error {
	return w.mutate(func(s *State) error {
		if status != nil && !status.Valid() {
			return validationErr("status", "status must be one of pass, fail, na or empty")
		}
		for si := range s.Sections {
			for ii := range s.Sections[si].Items {
				item := &s.Sections[si].Items[ii]
				if item.ID != itemID {
					continue
				}
				if status != nil {
					item.Status = *status
				}
				if notes != nil {
					item.Notes = *notes
				}
				return nil
			}
		}
		return ErrUnknownItem
	})
}

// AttachPhotos appends photos in order.
func (w *Wizard) AttachPhotos(photos ...Photo) error {
	return w.mutate(func(s *State) error {
		s.Photos = append(s.Photos, photos...)
		return nil
	})
}

// RemovePhoto drops the photo at index.
func (w *Wizard) RemovePhoto(index int) error {
	return w.mutate(func(s *State) error {
		if index < 0 || index >= len(s.Photos) {
			return ErrPhotoOutOfRange
		}
		s.Photos = append(s.Photos[:index], s.Photos[index+1:]...)
		return nil
	})
}

// Reset discards all entered data and returns to the first step.
func (w *Wizard) Reset() error {
	return w.mutate(func(s *State) error {
		*s = initialState(s.ID, s.Kind, s.OwnerID, w.ownerName, time.Now())
		return nil
	})
}

// beginSubmit marks the wizard busy and returns the state to submit.
func (w *Wizard) beginSubmit() (State, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.submitting {
		return State{}, ErrSubmitInFlight
	}
	if err := w.state.submitGate(); err != nil {
		return State{}, err
	}
	w.submitting = true
	return w.state.clone(), nil
}

// finishSubmit clears the busy flag. A successful submit resets the wizard;
// a failed one leaves it exactly as it was.
func (w *Wizard) finishSubmit(success bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.submitting = false
	if success {
		w.state = initialState(w.state.ID, w.state.Kind, w.state.OwnerID, w.ownerName, time.Now())
	}
}

func (s State) submitGate() error {
	if s.CurrentStep != StepReview {
		return validationErr("step", "complete the wizard through the review step before submitting")
	}
	if err := s.gate(StepTrailerSelect); err != nil {
		return err
	}
	if err := s.gate(StepDetails); err != nil {
		return err
	}
	if s.Kind.RequiresCompleteChecklist() && CompletedItemCount(s.Sections) < TotalItemCount(s.Sections) {
		return validationErr("checklist", "check all items before submitting")
	}
	return nil
}
