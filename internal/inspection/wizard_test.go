package inspection

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var trl001 = AssetRef{ID: "1", Number: "TRL-001", Make: "Utility", Model: "3000R", Year: 2020}

func newTestWizard(kind Kind) *Wizard {
	return NewWizard("wiz-1", kind, "user-1", "", time.Now())
}

func statusPtr(s Status) *Status { return &s }
func strPtr(s string) *string    { return &s }

func TestCanAdvanceTrailerStep(t *testing.T) {
	w := newTestWizard(KindDOTAnnual)
	assert.False(t, w.Snapshot().CanAdvance(StepTrailerSelect))

	require.NoError(t, w.SetOperatorName("J. Smith"))
	assert.False(t, w.Snapshot().CanAdvance(StepTrailerSelect), "operator name must not satisfy the trailer gate")

	require.NoError(t, w.SelectAsset(trl001))
	assert.True(t, w.Snapshot().CanAdvance(StepTrailerSelect))
}

func TestCanAdvanceDetailsStep(t *testing.T) {
	tests := []struct {
		name     string
		operator string
		want     bool
	}{
		{"empty", "", false},
		{"whitespace", "   \t", false},
		{"name", "J. Smith", true},
		{"padded name", "  J. Smith  ", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newTestWizard(KindDOTAnnual)
			require.NoError(t, w.SetOperatorName(tt.operator))
			assert.Equal(t, tt.want, w.Snapshot().CanAdvance(StepDetails))
		})
	}
}

func TestInspectAndPhotoStepsAlwaysAdvance(t *testing.T) {
	s := newTestWizard(KindDOTAnnual).Snapshot()
	assert.True(t, s.CanAdvance(StepInspect))
	assert.True(t, s.CanAdvance(StepPhotos))
	assert.False(t, s.CanAdvance(StepReview))
}

func TestNextBlockedDoesNotMutate(t *testing.T) {
	w := newTestWizard(KindDOTAnnual)
	before := w.Snapshot()

	step, err := w.Next()

	require.Error(t, err)
	assert.True(t, IsValidation(err))
	assert.Contains(t, err.Error(), "trailer")
	assert.Equal(t, StepTrailerSelect, step)
	assert.Equal(t, before, w.Snapshot())
}

func TestLinearNavigation(t *testing.T) {
	w := newTestWizard(KindDOTAnnual)
	require.NoError(t, w.SelectAsset(trl001))

	step, err := w.Next()
	require.NoError(t, err)
	assert.Equal(t, StepDetails, step)

	_, err = w.Next()
	require.Error(t, err, "details gate requires an operator name")

	require.NoError(t, w.SetOperatorName("J. Smith"))
	for _, want := range []Step{StepInspect, StepPhotos, StepReview} {
		step, err = w.Next()
		require.NoError(t, err)
		assert.Equal(t, want, step)
	}
	assert.Equal(t, DirectionForward, w.Snapshot().Direction)

	_, err = w.Next()
	assert.True(t, IsValidation(err), "review never advances")
}

func TestBackPreservesDataAndIsIdempotent(t *testing.T) {
	w := newTestWizard(KindDOTAnnual)
	require.NoError(t, w.SelectAsset(trl001))
	_, _ = w.Next()
	require.NoError(t, w.SetOperatorName("J. Smith"))
	_, _ = w.Next()
	require.NoError(t, w.UpdateItem("brake_hoses", statusPtr(StatusFail), strPtr("cracked housing")))

	before := w.Snapshot()

	step, err := w.Back()
	require.NoError(t, err)
	assert.Equal(t, StepDetails, step)
	assert.Equal(t, DirectionBackward, w.Snapshot().Direction)

	step, err = w.Next()
	require.NoError(t, err)
	assert.Equal(t, StepInspect, step)

	after := w.Snapshot()
	assert.Equal(t, before.Sections, after.Sections)
	assert.Equal(t, before.SelectedAsset, after.SelectedAsset)
	assert.Equal(t, before.OperatorName, after.OperatorName)
}

func TestBackFromFirstStep(t *testing.T) {
	w := newTestWizard(KindDOTAnnual)
	_, err := w.Back()
	assert.True(t, IsValidation(err))
	assert.Equal(t, StepTrailerSelect, w.Snapshot().CurrentStep)
}

func TestSetActiveSection(t *testing.T) {
	w := newTestWizard(KindDOTAnnual)

	require.NoError(t, w.SetActiveSection(12))
	assert.Equal(t, 12, w.Snapshot().ActiveSection)

	assert.ErrorIs(t, w.SetActiveSection(13), ErrSectionOutOfRange)
	assert.ErrorIs(t, w.SetActiveSection(-1), ErrSectionOutOfRange)
	assert.Equal(t, 12, w.Snapshot().ActiveSection)
}

func TestUpdateItem(t *testing.T) {
	w := newTestWizard(KindDOTAnnual)

	require.NoError(t, w.UpdateItem("horn", statusPtr(StatusPass), nil))
	require.NoError(t, w.UpdateItem("horn", nil, strPtr("loud")))

	var found Item
	for _, s := range w.Snapshot().Sections {
		for _, it := range s.Items {
			if it.ID == "horn" {
				found = it
			}
		}
	}
	assert.Equal(t, StatusPass, found.Status)
	assert.Equal(t, "loud", found.Notes)

	assert.ErrorIs(t, w.UpdateItem("warp_drive", statusPtr(StatusPass), nil), ErrUnknownItem)
	assert.True(t, IsValidation(w.UpdateItem("horn", statusPtr("broken"), nil)))
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	w := newTestWizard(KindDOTAnnual)
	require.NoError(t, w.SelectAsset(trl001))
	require.NoError(t, w.AttachPhotos(Photo{Filename: "a.png", Data: []byte{1, 2, 3}}))

	snap := w.Snapshot()
	snap.Sections[0].Items[0].Status = StatusFail
	snap.SelectedAsset.Number = "changed"
	snap.Photos[0].Data[0] = 9

	fresh := w.Snapshot()
	assert.Equal(t, StatusUnset, fresh.Sections[0].Items[0].Status)
	assert.Equal(t, "TRL-001", fresh.SelectedAsset.Number)
	assert.Equal(t, byte(1), fresh.Photos[0].Data[0])
}

func TestPhotos(t *testing.T) {
	w := newTestWizard(KindDOTAnnual)
	require.NoError(t, w.AttachPhotos(Photo{Filename: "a.jpg"}, Photo{Filename: "b.jpg"}, Photo{Filename: "c.jpg"}))

	require.NoError(t, w.RemovePhoto(1))
	photos := w.Snapshot().Photos
	require.Len(t, photos, 2)
	assert.Equal(t, "a.jpg", photos[0].Filename)
	assert.Equal(t, "c.jpg", photos[1].Filename)

	assert.ErrorIs(t, w.RemovePhoto(2), ErrPhotoOutOfRange)
}

func TestAuxiliaryFields(t *testing.T) {
	w := newTestWizard(KindDOTAnnual)
	require.NoError(t, w.SetAuxiliaryField(FieldVIN, "1UYVS2530AM000001"))
	require.NoError(t, w.SetAuxiliaryField(FieldDOTNumber, "123456"))
	assert.Equal(t, "1UYVS2530AM000001", w.Snapshot().AuxiliaryFields[FieldVIN])

	require.NoError(t, w.SetAuxiliaryField(FieldVIN, ""))
	_, ok := w.Snapshot().AuxiliaryFields[FieldVIN]
	assert.False(t, ok)

	assert.True(t, IsValidation(w.SetAuxiliaryField("color", "red")))
}

func TestMutationsRefusedWhileSubmitting(t *testing.T) {
	w := reviewReadyWizard(t, KindDOTAnnual)
	_, err := w.beginSubmit()
	require.NoError(t, err)

	assert.ErrorIs(t, w.SetOperatorName("x"), ErrSubmitInFlight)
	assert.ErrorIs(t, w.UpdateItem("horn", statusPtr(StatusPass), nil), ErrSubmitInFlight)
	_, err = w.Back()
	assert.ErrorIs(t, err, ErrSubmitInFlight)
	_, err = w.beginSubmit()
	assert.ErrorIs(t, err, ErrSubmitInFlight)

	w.finishSubmit(false)
	assert.False(t, w.Submitting())
	assert.NoError(t, w.SetOperatorName("x"))
}

func TestSubmitGate(t *testing.T) {
	w := newTestWizard(KindDOTAnnual)
	_, err := w.beginSubmit()
	assert.True(t, IsValidation(err), "cannot submit before the review step")

	quick := reviewReadyWizard(t, KindQuick)
	_, err = quick.beginSubmit()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "check all items")
}

func TestReset(t *testing.T) {
	w := reviewReadyWizard(t, KindDOTAnnual)
	require.NoError(t, w.Reset())

	s := w.Snapshot()
	assert.Equal(t, StepTrailerSelect, s.CurrentStep)
	assert.Nil(t, s.SelectedAsset)
	assert.Equal(t, "", s.OperatorName)
	assert.Equal(t, 0, CompletedItemCount(s.Sections))
	assert.Equal(t, "wiz-1", s.ID)
	assert.Equal(t, "user-1", s.OwnerID)
}

// reviewReadyWizard walks a wizard to the review step with a trailer and
// operator set and no checklist items touched.
func TestResetKeepsPrefilledOperator(t *testing.T) {
	w := NewWizard("wiz-2", KindDOTAnnual, "user-1", "Maria Garcia", time.Now())
	require.NoError(t, w.SetOperatorName("Someone Else"))
	require.NoError(t, w.SelectAsset(trl001))

	require.NoError(t, w.Reset())
	assert.Equal(t, "Maria Garcia", w.Snapshot().OperatorName)

	w.submitting = true
	w.finishSubmit(true)
	s := w.Snapshot()
	assert.Equal(t, "Maria Garcia", s.OperatorName)
	assert.Nil(t, s.SelectedAsset)
}

func reviewReadyWizard(t *testing.T, kind Kind) *Wizard {
	t.Helper()
	w := newTestWizard(kind)
	require.NoError(t, w.SelectAsset(trl001))
	require.NoError(t, w.SetOperatorName("J. Smith"))
	for i := 0; i < 4; i++ {
		_, err := w.Next()
		require.NoError(t, err)
	}
	require.Equal(t, StepReview, w.Snapshot().CurrentStep)
	return w
}
