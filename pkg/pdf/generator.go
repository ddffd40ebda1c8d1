package pdf

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// Color is an RGB triple.
type Color struct {
	R, G, B int
}

var (
	ColorHeader = Color{31, 56, 100}
	ColorPass   = Color{22, 128, 61}
	ColorFail   = Color{185, 28, 28}
	ColorMuted  = Color{107, 114, 128}
	ColorStripe = Color{243, 244, 246}
)

// Margins in millimetres.
type Margins struct {
	Left, Right, Top, Bottom float64
}

type Options struct {
	PageSize   string
	Title      string
	Subtitle   string
	Author     string
	FontFamily string
	FontSize   float64
	DateFormat string
	Margins    Margins
	// Now stamps the footer; defaults to time.Now.
	Now func() time.Time
}

func DefaultOptions() Options {
	return Options{
		PageSize:   "Letter",
		FontFamily: "Helvetica",
		FontSize:   10,
		DateFormat: "2006-01-02",
		Margins:    Margins{Left: 15, Right: 15, Top: 18, Bottom: 18},
		Now:        time.Now,
	}
}

// Document is a single-column report built top to bottom.
type Document struct {
	pdf     *gofpdf.Fpdf
	options Options
	tr      func(string) string
}

func New(options Options) *Document {
	if options.Now == nil {
		options.Now = time.Now
	}
	p := gofpdf.New("P", "mm", options.PageSize, "")
	p.SetMargins(options.Margins.Left, options.Margins.Top, options.Margins.Right)
	p.SetAutoPageBreak(true, options.Margins.Bottom)
	p.SetTitle(options.Title, true)
	if options.Author != "" {
		p.SetAuthor(options.Author, true)
	}

	d := &Document{pdf: p, options: options, tr: p.UnicodeTranslatorFromDescriptor("")}
	d.setFooter()
	p.AddPage()
	d.header()
	return d
}

func (d *Document) contentWidth() float64 {
	w, _ := d.pdf.GetPageSize()
	return w - d.options.Margins.Left - d.options.Margins.Right
}

func (d *Document) header() {
	d.pdf.SetFillColor(ColorHeader.R, ColorHeader.G, ColorHeader.B)
	d.pdf.SetTextColor(255, 255, 255)
	d.pdf.SetFont(d.options.FontFamily, "B", 16)
	d.pdf.CellFormat(0, 12, d.tr(d.options.Title), "", 1, "L", true, 0, "")
	if d.options.Subtitle != "" {
		d.pdf.SetFont(d.options.FontFamily, "", d.options.FontSize+1)
		d.pdf.CellFormat(0, 7, d.tr(d.options.Subtitle), "", 1, "L", true, 0, "")
	}
	d.pdf.SetTextColor(0, 0, 0)
	d.pdf.Ln(4)
}

func (d *Document) setFooter() {
	d.pdf.SetFooterFunc(func() {
		d.pdf.SetY(-12)
		d.pdf.SetFont(d.options.FontFamily, "", 8)
		d.pdf.SetTextColor(ColorMuted.R, ColorMuted.G, ColorMuted.B)
		generated := fmt.Sprintf("Generated %s", d.options.Now().Format(d.options.DateFormat+" 15:04"))
		d.pdf.CellFormat(d.contentWidth()/2, 6, generated, "", 0, "L", false, 0, "")
		d.pdf.CellFormat(d.contentWidth()/2, 6, fmt.Sprintf("Page %d", d.pdf.PageNo()), "", 0, "R", false, 0, "")
	})
}

// Section starts a titled block.
func (d *Document) Section(title string) {
	d.pdf.Ln(2)
	d.pdf.SetFont(d.options.FontFamily, "B", d.options.FontSize+2)
	d.pdf.SetTextColor(ColorHeader.R, ColorHeader.G, ColorHeader.B)
	d.pdf.CellFormat(0, 8, d.tr(title), "B", 1, "L", false, 0, "")
	d.pdf.SetTextColor(0, 0, 0)
	d.pdf.Ln(1)
}

// Field is a label/value pair.
type Field struct {
	Label string
	Value string
}

// Fields renders label/value pairs two per row.
func (d *Document) Fields(fields ...Field) {
	half := d.contentWidth() / 2
	labelW := 32.0
	for i, f := range fields {
		d.pdf.SetFont(d.options.FontFamily, "B", d.options.FontSize)
		d.pdf.CellFormat(labelW, 6, d.tr(f.Label+":"), "", 0, "L", false, 0, "")
		d.pdf.SetFont(d.options.FontFamily, "", d.options.FontSize)
		ln := 0
		if i%2 == 1 || i == len(fields)-1 {
			ln = 1
		}
		d.pdf.CellFormat(half-labelW, 6, d.tr(f.Value), "", ln, "L", false, 0, "")
	}
	d.pdf.Ln(1)
}

// StatusRow renders a checklist line with a colored status badge.
func (d *Document) StatusRow(label, status string, color Color, notes string, stripe bool) {
	width := d.contentWidth()
	statusW := 24.0
	fill := stripe
	if stripe {
		d.pdf.SetFillColor(ColorStripe.R, ColorStripe.G, ColorStripe.B)
	}

	d.pdf.SetFont(d.options.FontFamily, "", d.options.FontSize)
	d.pdf.SetTextColor(0, 0, 0)
	d.pdf.CellFormat(width-statusW, 6, d.tr(label), "", 0, "L", fill, 0, "")
	d.pdf.SetFont(d.options.FontFamily, "B", d.options.FontSize)
	d.pdf.SetTextColor(color.R, color.G, color.B)
	d.pdf.CellFormat(statusW, 6, d.tr(status), "", 1, "C", fill, 0, "")
	d.pdf.SetTextColor(0, 0, 0)

	if notes != "" {
		d.pdf.SetFont(d.options.FontFamily, "I", d.options.FontSize-1)
		d.pdf.SetTextColor(ColorMuted.R, ColorMuted.G, ColorMuted.B)
		d.pdf.SetX(d.options.Margins.Left + 6)
		d.pdf.MultiCell(width-6, 5, d.tr(notes), "", "L", false)
		d.pdf.SetTextColor(0, 0, 0)
	}
}

// Paragraph writes wrapped text.
func (d *Document) Paragraph(text string) {
	d.pdf.SetFont(d.options.FontFamily, "", d.options.FontSize)
	d.pdf.MultiCell(0, 5, d.tr(text), "", "L", false)
	d.pdf.Ln(1)
}

// Table renders a bordered table with a header row and striped body.
func (d *Document) Table(headers []string, widths []float64, rows [][]string) {
	d.pdf.SetFont(d.options.FontFamily, "B", d.options.FontSize)
	d.pdf.SetFillColor(ColorHeader.R, ColorHeader.G, ColorHeader.B)
	d.pdf.SetTextColor(255, 255, 255)
	for i, h := range headers {
		d.pdf.CellFormat(widths[i], 7, d.tr(h), "1", 0, "C", true, 0, "")
	}
	d.pdf.Ln(-1)

	d.pdf.SetFont(d.options.FontFamily, "", d.options.FontSize)
	d.pdf.SetTextColor(0, 0, 0)
	for r, row := range rows {
		if r%2 == 1 {
			d.pdf.SetFillColor(ColorStripe.R, ColorStripe.G, ColorStripe.B)
		} else {
			d.pdf.SetFillColor(255, 255, 255)
		}
		for i, cell := range row {
			d.pdf.CellFormat(widths[i], 6, d.tr(cell), "1", 0, "L", true, 0, "")
		}
		d.pdf.Ln(-1)
	}
	d.pdf.Ln(2)
}

// SignatureBlock draws signature and date lines for each signer.
func (d *Document) SignatureBlock(signers ...string) {
	d.pdf.Ln(8)
	width := d.contentWidth()/2 - 5
	for _, s := range signers {
		y := d.pdf.GetY() + 8
		x := d.pdf.GetX()
		d.pdf.Line(x, y, x+width, y)
		d.pdf.Line(x+width+10, y, x+2*width+10, y)
		d.pdf.SetY(y + 1)
		d.pdf.SetFont(d.options.FontFamily, "", d.options.FontSize-1)
		d.pdf.SetTextColor(ColorMuted.R, ColorMuted.G, ColorMuted.B)
		d.pdf.CellFormat(width+10, 5, d.tr(s+" signature"), "", 0, "L", false, 0, "")
		d.pdf.CellFormat(width, 5, "Date", "", 1, "L", false, 0, "")
		d.pdf.SetTextColor(0, 0, 0)
		d.pdf.Ln(4)
	}
}

// Bytes finalizes the document.
func (d *Document) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := d.pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to write pdf: %w", err)
	}
	return buf.Bytes(), nil
}
