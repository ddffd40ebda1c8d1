package pdf

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentBytes(t *testing.T) {
	opts := DefaultOptions()
	opts.Title = "DOT Annual Inspection"
	opts.Subtitle = "TRL-001"
	opts.Now = func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) }

	doc := New(opts)
	doc.Section("Details")
	doc.Fields(Field{"Trailer", "TRL-001"}, Field{"Technician", "José Pérez"}, Field{"Outcome", "Failed"})
	doc.Section("Brake System")
	doc.StatusRow("Brake Hoses", "FAIL", ColorFail, "cracked housing", false)
	doc.StatusRow("Air Lines", "PASS", ColorPass, "", true)
	doc.Table([]string{"Part", "Qty"}, []float64{120, 30}, [][]string{{"Brake Pads", "4"}})
	doc.Paragraph("Replace brake hose before return to service.")
	doc.SignatureBlock("Technician", "Supervisor")

	out, err := doc.Bytes()
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
	assert.Greater(t, len(out), 1000)
}
