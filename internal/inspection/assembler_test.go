package inspection

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockPersistence is a mock implementation of the Persistence interface
type MockPersistence struct {
	mock.Mock
}

func (m *MockPersistence) SubmitInspection(ctx context.Context, record *Record, attachments []Attachment) (string, error) {
	args := m.Called(ctx, record, attachments)
	return args.String(0), args.Error(1)
}

type failingEncoder struct {
	failOn string
}

func (e failingEncoder) Encode(ctx context.Context, p Photo) (Attachment, error) {
	if p.Filename == e.failOn {
		return Attachment{}, errors.New("unreadable")
	}
	return Attachment{Filename: p.Filename, URL: "data:image/png;base64,AA=="}, nil
}

var fixedNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func newTestAssembler(p Persistence, enc PhotoEncoder) *Assembler {
	a := NewAssembler(p, enc, zap.NewNop())
	a.now = func() time.Time { return fixedNow }
	return a
}

func TestSubmitFailedBrakeHoseScenario(t *testing.T) {
	persistence := new(MockPersistence)
	a := newTestAssembler(persistence, NewDataURLEncoder())
	ctx := context.Background()

	w := reviewReadyWizard(t, KindDOTAnnual)
	require.NoError(t, w.UpdateItem("brake_hoses", statusPtr(StatusFail), strPtr("cracked housing")))

	persistence.On("SubmitInspection", mock.Anything, mock.AnythingOfType("*inspection.Record"), mock.Anything).Return("INS-stored", nil)

	result, err := a.Submit(ctx, w, "user-1")

	require.NoError(t, err)
	rec := result.Record
	assert.Equal(t, OutcomeFailed, rec.Outcome)
	assert.Equal(t, "Brake Hoses: cracked housing", rec.Defects)
	assert.Equal(t, 3, rec.ProgressPercent) // round(100 * 1/38)
	assert.Equal(t, "1", rec.TrailerID)
	assert.Equal(t, "TRL-001", rec.TrailerNumber)
	assert.Equal(t, "J. Smith", rec.OperatorName)
	assert.Equal(t, "DOT Annual", rec.InspectionType)
	assert.Equal(t, StatusFail, rec.ItemStatuses["brake_hoses"])
	assert.Equal(t, StatusUnset, rec.ItemStatuses["horn"])
	assert.Equal(t, "cracked housing", rec.ItemNotes["brake_hoses"])
	assert.Equal(t, 1, rec.IssueCount)
	assert.True(t, strings.HasPrefix(rec.ID, "INS-"))
	assert.Equal(t, fixedNow.AddDate(0, 0, 365), rec.NextDueDate)
	assert.Equal(t, "INS-stored", rec.ExternalID)

	persistence.AssertNumberOfCalls(t, "SubmitInspection", 1)

	s := w.Snapshot()
	assert.Equal(t, StepTrailerSelect, s.CurrentStep, "successful submit resets the wizard")
	assert.Equal(t, 0, CompletedItemCount(s.Sections))
}

func TestSubmitRejectionLeavesStateUnchanged(t *testing.T) {
	persistence := new(MockPersistence)
	a := newTestAssembler(persistence, NewDataURLEncoder())
	ctx := context.Background()

	w := reviewReadyWizard(t, KindDOTAnnual)
	require.NoError(t, w.UpdateItem("horn", statusPtr(StatusPass), nil))
	require.NoError(t, w.SetAuxiliaryField(FieldVIN, "1UYVS2530AM000001"))
	before := w.Snapshot()

	persistence.On("SubmitInspection", mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("Failed to create inspection: INVALID_PERMISSIONS"))

	result, err := a.Submit(ctx, w, "user-1")

	assert.Nil(t, result)
	var pe *PersistenceError
	require.True(t, errors.As(err, &pe))
	assert.Contains(t, err.Error(), "INVALID_PERMISSIONS")
	assert.Equal(t, before, w.Snapshot())
	assert.False(t, w.Submitting())
}

func TestDoubleSubmitReachesPersistenceOnce(t *testing.T) {
	persistence := new(MockPersistence)
	a := newTestAssembler(persistence, NewDataURLEncoder())
	ctx := context.Background()
	w := reviewReadyWizard(t, KindDOTAnnual)

	entered := make(chan struct{})
	release := make(chan struct{})
	persistence.On("SubmitInspection", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			close(entered)
			<-release
		}).
		Return("rec1", nil).Once()

	done := make(chan error, 1)
	go func() {
		_, err := a.Submit(ctx, w, "user-1")
		done <- err
	}()

	<-entered
	_, err := a.Submit(ctx, w, "user-1")
	assert.ErrorIs(t, err, ErrSubmitInFlight)

	close(release)
	require.NoError(t, <-done)
	persistence.AssertNumberOfCalls(t, "SubmitInspection", 1)
}

func TestSubmitSurvivesCallerCancel(t *testing.T) {
	persistence := new(MockPersistence)
	a := newTestAssembler(persistence, NewDataURLEncoder())
	w := reviewReadyWizard(t, KindDOTAnnual)
	ctx, cancel := context.WithCancel(context.Background())

	entered := make(chan struct{})
	var callErr error
	persistence.On("SubmitInspection", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			callCtx := args.Get(0).(context.Context)
			close(entered)
			select {
			case <-callCtx.Done():
			case <-time.After(50 * time.Millisecond):
			}
			callErr = callCtx.Err()
		}).
		Return("rec1", nil).Once()

	done := make(chan error, 1)
	go func() {
		_, err := a.Submit(ctx, w, "user-1")
		done <- err
	}()

	<-entered
	cancel()

	require.NoError(t, <-done)
	assert.NoError(t, callErr, "persistence must not see the caller's cancellation")
	persistence.AssertExpectations(t)
	assert.Equal(t, StepTrailerSelect, w.Snapshot().CurrentStep)
}

func TestAssembleDropsPhotosThatFailToEncode(t *testing.T) {
	a := newTestAssembler(new(MockPersistence), failingEncoder{failOn: "bad.jpg"})
	w := reviewReadyWizard(t, KindDOTAnnual)
	require.NoError(t, w.AttachPhotos(
		Photo{Filename: "good.jpg", Data: []byte{1}},
		Photo{Filename: "bad.jpg", Data: []byte{2}},
		Photo{Filename: "also-good.jpg", Data: []byte{3}},
	))

	rec, attachments, warnings := a.Assemble(context.Background(), w.Snapshot(), "user-1")

	require.Len(t, attachments, 2)
	assert.Equal(t, "good.jpg", attachments[0].Filename)
	assert.Equal(t, "also-good.jpg", attachments[1].Filename)
	assert.Equal(t, attachments, rec.Attachments)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "bad.jpg")
}

func TestAssembleQuickCheck(t *testing.T) {
	a := newTestAssembler(new(MockPersistence), NewDataURLEncoder())
	w := reviewReadyWizard(t, KindQuick)
	for i, s := range []Status{StatusPass, StatusPass, StatusPass, StatusFail, StatusNA, StatusPass, StatusPass} {
		id := NewSections(KindQuick)[0].Items[i].ID
		require.NoError(t, w.UpdateItem(id, statusPtr(s), nil))
	}

	rec, _, _ := a.Assemble(context.Background(), w.Snapshot(), "user-1")

	assert.True(t, strings.HasPrefix(rec.ID, "QINS-"))
	assert.Equal(t, "Quick", rec.InspectionType)
	assert.Equal(t, 83, rec.Score) // round(100 * 5/6)
	assert.Equal(t, 1, rec.IssueCount)
	assert.Equal(t, fixedNow.AddDate(0, 0, 90), rec.NextDueDate)
	assert.Equal(t, OutcomeFailed, rec.Outcome)
}

func TestSubmitUnsetChecklistPasses(t *testing.T) {
	persistence := new(MockPersistence)
	a := newTestAssembler(persistence, NewDataURLEncoder())
	ctx := context.Background()
	w := reviewReadyWizard(t, KindDOTAnnual)

	persistence.On("SubmitInspection", mock.Anything, mock.Anything, mock.Anything).Return("rec1", nil)

	result, err := a.Submit(ctx, w, "user-1")

	require.NoError(t, err)
	// An untouched checklist reports passed; kept as-is and flagged in review.
	assert.Equal(t, OutcomePassed, result.Record.Outcome)
	assert.Equal(t, 0, result.Record.ProgressPercent)
}

func TestDataURLEncoder(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	att, err := NewDataURLEncoder().Encode(context.Background(), Photo{Filename: "a.png", Data: png})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(att.URL, "data:image/png;base64,"))

	_, err = NewDataURLEncoder().Encode(context.Background(), Photo{Filename: "empty.png"})
	assert.Error(t, err)
}

func TestValidatePhoto(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

	p, err := ValidatePhoto("a.png", png, 0)
	require.NoError(t, err)
	assert.Equal(t, "image/png", p.ContentType)

	_, err = ValidatePhoto("notes.txt", []byte("hello world"), 0)
	assert.True(t, IsValidation(err))

	_, err = ValidatePhoto("big.png", png, 4)
	assert.True(t, IsValidation(err))
}
