package service

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"

	"github.com/yourusername/recruitai-api/internal/model"
)

type rgb struct{ r, g, b int }

type pdfTemplate struct {
	primary     rgb
	secondary   rgb
	accent      rgb
	nameSize    float64
	headingSize float64
	bodySize    float64
}

var pdfTemplates = map[string]pdfTemplate{
	model.TemplateMinimalist: {
		primary:     rgb{0x33, 0x33, 0x33},
		secondary:   rgb{0x66, 0x66, 0x66},
		accent:      rgb{0x00, 0x00, 0x00},
		nameSize:    20,
		headingSize: 12,
		bodySize:    10,
	},
	model.TemplateExecutive: {
		primary:     rgb{0x1a, 0x36, 0x5d},
		secondary:   rgb{0x4a, 0x55, 0x68},
		accent:      rgb{0x2b, 0x6c, 0xb0},
		nameSize:    22,
		headingSize: 13,
		bodySize:    10,
	},
	model.TemplateClassic: {
		primary:     rgb{0x2d, 0x37, 0x48},
		secondary:   rgb{0x71, 0x80, 0x96},
		accent:      rgb{0x2b, 0x6c, 0xb0},
		nameSize:    20,
		headingSize: 12,
		bodySize:    10,
	},
}

// PDFRenderer turns an optimized CV into an ATS-friendly PDF: text only,
// no images, clear section headers. Pure function of its inputs.
type PDFRenderer struct{}

func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{}
}

// Render produces A4 PDF bytes for the CV in the given template style.
// Unknown template names fall back to classic. Empty sections are omitted.
func (r *PDFRenderer) Render(cv *model.OptimizedCV, template string) ([]byte, error) {
	t, ok := pdfTemplates[template]
	if !ok {
		t = pdfTemplates[model.TemplateClassic]
	}

	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetMargins(20, 20, 20)
	doc.SetAutoPageBreak(true, 20)
	doc.AddPage()

	pageWidth, _ := doc.GetPageSize()
	contentWidth := pageWidth - 40

	// Header: name, contact line, link
	if cv.ContactName != "" {
		doc.SetFont("Helvetica", "B", t.nameSize)
		doc.SetTextColor(t.primary.r, t.primary.g, t.primary.b)
		doc.CellFormat(contentWidth, 10, cv.ContactName, "", 1, "C", false, 0, "")
	}

	contactParts := []string{}
	for _, p := range []string{cv.ContactEmail, cv.ContactPhone, cv.ContactLocation} {
		if p != "" {
			contactParts = append(contactParts, p)
		}
	}
	if len(contactParts) > 0 {
		doc.SetFont("Helvetica", "", 9)
		doc.SetTextColor(t.secondary.r, t.secondary.g, t.secondary.b)
		doc.CellFormat(contentWidth, 5, strings.Join(contactParts, " | "), "", 1, "C", false, 0, "")
	}
	if cv.ContactLinkedin != "" {
		doc.SetFont("Helvetica", "", 9)
		doc.SetTextColor(t.secondary.r, t.secondary.g, t.secondary.b)
		doc.CellFormat(contentWidth, 5, cv.ContactLinkedin, "", 1, "C", false, 0, "")
	}

	drawDivider(doc, t, contentWidth, 0.5)

	// Summary
	if cv.Summary != "" {
		sectionHeading(doc, t, "PROFESSIONAL SUMMARY")
		bodyText(doc, t, contentWidth, cv.Summary)
	}

	// Experience
	if len(cv.Experience) > 0 {
		sectionHeading(doc, t, "EXPERIENCE")
		drawDivider(doc, t, contentWidth, 0.3)
		for _, exp := range cv.Experience {
			entryHeading(doc, t, contentWidth, exp.Title, exp.Organization)
			if exp.Period != "" {
				doc.SetFont("Helvetica", "", t.bodySize-1)
				doc.SetTextColor(t.secondary.r, t.secondary.g, t.secondary.b)
				doc.CellFormat(contentWidth, 4.5, exp.Period, "", 1, "L", false, 0, "")
			}
			for _, bullet := range exp.Bullets {
				bulletText(doc, t, contentWidth, bullet)
			}
			doc.Ln(2)
		}
	}

	// Education
	if len(cv.Education) > 0 {
		sectionHeading(doc, t, "EDUCATION")
		drawDivider(doc, t, contentWidth, 0.3)
		for _, edu := range cv.Education {
			entryHeading(doc, t, contentWidth, edu.Title, edu.Organization)
			if edu.Period != "" {
				doc.SetFont("Helvetica", "", t.bodySize-1)
				doc.SetTextColor(t.secondary.r, t.secondary.g, t.secondary.b)
				doc.CellFormat(contentWidth, 4.5, edu.Period, "", 1, "L", false, 0, "")
			}
			if edu.Details != "" {
				bodyText(doc, t, contentWidth, edu.Details)
			}
			doc.Ln(2)
		}
	}

	// Skills
	if len(cv.Skills) > 0 {
		sectionHeading(doc, t, "SKILLS")
		drawDivider(doc, t, contentWidth, 0.3)
		bodyText(doc, t, contentWidth, strings.Join(cv.Skills, " • "))
	}

	// Certifications
	if len(cv.Certifications) > 0 {
		sectionHeading(doc, t, "CERTIFICATIONS")
		drawDivider(doc, t, contentWidth, 0.3)
		for _, cert := range cv.Certifications {
			bulletText(doc, t, contentWidth, cert)
		}
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("rendering PDF: %w", err)
	}
	return buf.Bytes(), nil
}

func sectionHeading(doc *fpdf.Fpdf, t pdfTemplate, title string) {
	doc.Ln(4)
	doc.SetFont("Helvetica", "B", t.headingSize)
	doc.SetTextColor(t.accent.r, t.accent.g, t.accent.b)
	doc.CellFormat(0, 6, title, "", 1, "L", false, 0, "")
}

func entryHeading(doc *fpdf.Fpdf, t pdfTemplate, width float64, title, organization string) {
	line := title
	if organization != "" {
		line += " - " + organization
	}
	doc.SetFont("Helvetica", "B", t.bodySize+1)
	doc.SetTextColor(t.primary.r, t.primary.g, t.primary.b)
	doc.MultiCell(width, 5, line, "", "L", false)
}

func bodyText(doc *fpdf.Fpdf, t pdfTemplate, width float64, text string) {
	doc.SetFont("Helvetica", "", t.bodySize)
	doc.SetTextColor(t.primary.r, t.primary.g, t.primary.b)
	doc.MultiCell(width, 5, text, "", "L", false)
}

func bulletText(doc *fpdf.Fpdf, t pdfTemplate, width float64, text string) {
	doc.SetFont("Helvetica", "", t.bodySize)
	doc.SetTextColor(t.primary.r, t.primary.g, t.primary.b)
	doc.SetX(doc.GetX() + 4)
	doc.MultiCell(width-4, 5, "• "+text, "", "L", false)
}

func drawDivider(doc *fpdf.Fpdf, t pdfTemplate, width, thickness float64) {
	doc.Ln(1.5)
	doc.SetDrawColor(t.secondary.r, t.secondary.g, t.secondary.b)
	doc.SetLineWidth(thickness)
	x := doc.GetX()
	y := doc.GetY()
	doc.Line(x, y, x+width, y)
	doc.Ln(2.5)
}
