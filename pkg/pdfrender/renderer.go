package pdfrender

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/jung-kurt/gofpdf/contrib/gofpdi"
)

// Field names every certificate template must map. Coordinates are PDF points
// with the origin at the top-left of the page; Y is the text baseline.
const (
	FieldRecipientName  = "recipient_name"
	FieldProgramTitle   = "program_title"
	FieldCompletionDate = "completion_date"
	FieldQRCode         = "qr_code"
)

// Alignment controls where a text field's anchor point sits relative to the
// rendered string.
type Alignment string

const (
	AlignLeft   Alignment = "left"
	AlignCenter Alignment = "center"
	AlignRight  Alignment = "right"
)

// FieldKind distinguishes drawable field types.
type FieldKind string

const (
	KindText  FieldKind = "text"
	KindImage FieldKind = "image"
)

// FieldConfig places one dynamic value on a template page.
type FieldConfig struct {
	Kind   FieldKind `json:"kind"`
	X      float64   `json:"x"`
	Y      float64   `json:"y"`
	Page   int       `json:"page"`
	Align  Alignment `json:"align"`
	Font   string    `json:"font,omitempty"`
	Size   float64   `json:"size,omitempty"`
	Width  float64   `json:"width,omitempty"`
	Height float64   `json:"height,omitempty"`
}

// Signatory is one rendered signature block. SignOrder, not slice position,
// decides layout order so edits to the signatory list never reshuffle output.
type Signatory struct {
	Name      string
	Title     string
	SignOrder int
	Signature []byte // PNG image, may be nil
}

// Template couples the base PDF with its field map.
type Template struct {
	BasePDF []byte
	Fields  map[string]FieldConfig
}

// Input carries the resolved values for one certificate render.
type Input struct {
	// Values holds every text placeholder, already locale-formatted.
	Values map[string]string
	// QRImage is the PNG verification QR drawn at the qr_code field box.
	QRImage []byte
	// Signatories are drawn in SignOrder.
	Signatories []Signatory
	// CreatedAt pins the PDF creation date so identical inputs produce
	// identical bytes. Zero falls back to a fixed date.
	CreatedAt time.Time
}

// RenderError reports a failed render with the stage that broke.
type RenderError struct {
	Stage string
	Err   error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render failed at %s: %v", e.Stage, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

const (
	defaultFont     = "Helvetica"
	defaultFontSize = 14.0

	signatureWidth  = 120.0
	signatureHeight = 48.0
	signatoryLineGap = 16.0
)

// Render draws the resolved certificate values onto a copy of the template
// PDF and returns the result. The template bytes are never mutated; no
// partial output is returned on failure.
func Render(tpl Template, in Input) (out []byte, err error) {
	if len(tpl.BasePDF) == 0 {
		return nil, &RenderError{Stage: "load-template", Err: fmt.Errorf("template PDF is empty")}
	}
	for _, name := range []string{FieldRecipientName, FieldProgramTitle, FieldCompletionDate} {
		if _, ok := tpl.Fields[name]; !ok {
			return nil, &RenderError{Stage: "field-map", Err: fmt.Errorf("required field %q missing from field map", name)}
		}
	}

	// The gofpdi importer panics on unparseable PDFs.
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = &RenderError{Stage: "parse-template", Err: fmt.Errorf("%v", r)}
		}
	}()

	pdf := gofpdf.NewCustom(&gofpdf.InitType{UnitStr: "pt", Size: gofpdf.SizeType{Wd: 841.89, Ht: 595.28}})
	created := in.CreatedAt
	if created.IsZero() {
		created = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	pdf.SetCreationDate(created)
	pdf.SetModificationDate(created)

	imp := gofpdi.NewImporter()
	var rs io.ReadSeeker = bytes.NewReader(tpl.BasePDF)

	// Import page 1 first so page sizes are known before any page is added.
	firstTpl := imp.ImportPageFromStream(pdf, &rs, 1, "/MediaBox")
	sizes := imp.GetPageSizes()
	pageCount := len(sizes)
	if pageCount == 0 {
		return nil, &RenderError{Stage: "parse-template", Err: fmt.Errorf("template has no pages")}
	}

	pageDims := make([]gofpdf.SizeType, pageCount+1)
	for page := 1; page <= pageCount; page++ {
		box, ok := sizes[page]["/MediaBox"]
		if !ok {
			return nil, &RenderError{Stage: "parse-template", Err: fmt.Errorf("page %d has no media box", page)}
		}
		pageDims[page] = gofpdf.SizeType{Wd: box["w"], Ht: box["h"]}
	}

	for page := 1; page <= pageCount; page++ {
		tplID := firstTpl
		if page > 1 {
			tplID = imp.ImportPageFromStream(pdf, &rs, page, "/MediaBox")
		}
		dim := pageDims[page]
		orientation := "P"
		if dim.Wd > dim.Ht {
			orientation = "L"
		}
		pdf.AddPageFormat(orientation, dim)
		imp.UseImportedTemplate(pdf, tplID, 0, 0, dim.Wd, dim.Ht)
	}

	pdf.SetTextColor(0, 0, 0)

	// Field draw order is sorted by name so output bytes are reproducible.
	names := make([]string, 0, len(tpl.Fields))
	for name := range tpl.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		cfg := tpl.Fields[name]
		if cfg.Page < 1 || cfg.Page > pageCount {
			return nil, &RenderError{Stage: "field-map", Err: fmt.Errorf("field %q targets page %d of a %d-page template", name, cfg.Page, pageCount)}
		}
		pdf.SetPage(cfg.Page)

		switch cfg.Kind {
		case KindImage:
			if name == FieldQRCode {
				if err := drawImage(pdf, "qr:"+name, in.QRImage, cfg); err != nil {
					return nil, err
				}
			}
		default:
			value, ok := in.Values[name]
			if !ok || value == "" {
				continue
			}
			drawText(pdf, value, cfg)
		}
	}

	if err := drawSignatories(pdf, tpl, in.Signatories, pageDims[pageCount], pageCount); err != nil {
		return nil, err
	}

	if pdf.Err() {
		return nil, &RenderError{Stage: "draw", Err: pdf.Error()}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, &RenderError{Stage: "output", Err: err}
	}
	return buf.Bytes(), nil
}

func drawText(pdf *gofpdf.Fpdf, value string, cfg FieldConfig) {
	font := normalizeFont(cfg.Font)
	size := cfg.Size
	if size <= 0 {
		size = defaultFontSize
	}
	pdf.SetFont(font, "", size)
	width := pdf.GetStringWidth(value)
	pdf.Text(alignedX(cfg.X, width, cfg.Align), cfg.Y, value)
}

func drawImage(pdf *gofpdf.Fpdf, name string, img []byte, cfg FieldConfig) error {
	if len(img) == 0 {
		return &RenderError{Stage: "draw", Err: fmt.Errorf("image field %q has no image data", name)}
	}
	opts := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: false}
	pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(img))
	w, h := cfg.Width, cfg.Height
	if w <= 0 {
		w = signatureWidth
	}
	if h <= 0 {
		h = 0 // keep aspect ratio
	}
	pdf.ImageOptions(name, cfg.X, cfg.Y, w, h, false, opts, 0, "")
	return nil
}

// alignedX shifts the draw origin so the anchor X lands on the left edge,
// center, or right edge of the measured text.
func alignedX(x, textWidth float64, align Alignment) float64 {
	switch align {
	case AlignCenter:
		return x - textWidth/2
	case AlignRight:
		return x - textWidth
	default:
		return x
	}
}

// drawSignatories renders each signatory block in SignOrder. A block uses the
// template's explicit signatory_N_* slots when present, otherwise slots are
// spread evenly across the bottom of the last page.
func drawSignatories(pdf *gofpdf.Fpdf, tpl Template, signatories []Signatory, lastPage gofpdf.SizeType, pageCount int) error {
	if len(signatories) == 0 {
		return nil
	}
	ordered := sortSignatories(signatories)

	for i, s := range ordered {
		slot := i + 1
		defaultX := lastPage.Wd * float64(slot) / float64(len(ordered)+1)
		defaultY := lastPage.Ht - 90

		nameCfg, ok := tpl.Fields[fmt.Sprintf("signatory_%d_name", slot)]
		if !ok {
			nameCfg = FieldConfig{Kind: KindText, X: defaultX, Y: defaultY, Page: pageCount, Align: AlignCenter, Size: 12}
		}
		titleCfg, ok := tpl.Fields[fmt.Sprintf("signatory_%d_title", slot)]
		if !ok {
			titleCfg = FieldConfig{Kind: KindText, X: nameCfg.X, Y: nameCfg.Y + signatoryLineGap, Page: nameCfg.Page, Align: nameCfg.Align, Size: 10}
		}
		sigCfg, ok := tpl.Fields[fmt.Sprintf("signatory_%d_signature", slot)]
		if !ok {
			sigCfg = FieldConfig{
				Kind: KindImage,
				X:    nameCfg.X - signatureWidth/2,
				Y:    nameCfg.Y - signatureHeight - 8,
				Page: nameCfg.Page, Width: signatureWidth, Height: signatureHeight,
			}
		}

		pdf.SetPage(nameCfg.Page)
		drawText(pdf, s.Name, nameCfg)
		if s.Title != "" {
			pdf.SetPage(titleCfg.Page)
			drawText(pdf, s.Title, titleCfg)
		}
		if len(s.Signature) > 0 {
			pdf.SetPage(sigCfg.Page)
			if err := drawImage(pdf, fmt.Sprintf("sig:%d", slot), s.Signature, sigCfg); err != nil {
				return err
			}
		}
	}
	return nil
}

// sortSignatories orders by SignOrder with name as a stable tiebreak.
func sortSignatories(in []Signatory) []Signatory {
	out := make([]Signatory, len(in))
	copy(out, in)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].SignOrder != out[j].SignOrder {
			return out[i].SignOrder < out[j].SignOrder
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// normalizeFont maps configured font names onto the PDF core fonts gofpdf
// ships with.
func normalizeFont(name string) string {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "helvetica", "arial":
		return "Helvetica"
	case "times", "times new roman", "serif":
		return "Times"
	case "courier", "mono", "monospace":
		return "Courier"
	default:
		return defaultFont
	}
}
