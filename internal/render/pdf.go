package render

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/go-pdf/fpdf"
)

// PDFRenderer 把快讯排版到A4页面.
// 内置字体只支持cp1252字符, 其他文字需要通过 NewUTF8PDFRenderer 提供TrueType字体.
type PDFRenderer struct {
	FontFamily string
	utf8Font   []byte
}

func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{FontFamily: "Helvetica"}
}

// NewUTF8PDFRenderer 读取一个UTF-8 TrueType字体, 常规/粗体/斜体共用同一字形
func NewUTF8PDFRenderer(fontPath string) (*PDFRenderer, error) {
	data, err := os.ReadFile(fontPath)
	if err != nil {
		return nil, fmt.Errorf("read pdf font: %w", err)
	}
	return &PDFRenderer{FontFamily: "reliefutf8", utf8Font: data}, nil
}

func (r *PDFRenderer) Render(doc *FlashUpdateDocument) (*Artifact, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	if r.utf8Font != nil {
		for _, style := range []string{"", "B", "I"} {
			pdf.AddUTF8FontFromBytes(r.FontFamily, style, r.utf8Font)
		}
		tr = func(s string) string { return s }
	}
	pdf.SetTitle(doc.Title, true)
	pdf.SetCreator("go-relief-hub", true)
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont(r.FontFamily, "I", 8)
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d - generated %s", pdf.PageNo(), doc.GeneratedAt.Format("2006-01-02 15:04 MST")), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	heading := func(text string) {
		pdf.Ln(4)
		pdf.SetFont(r.FontFamily, "B", 13)
		pdf.MultiCell(0, 7, tr(text), "", "L", false)
	}
	body := func(text string) {
		pdf.SetFont(r.FontFamily, "", 10)
		pdf.MultiCell(0, 5, tr(text), "", "L", false)
	}

	pdf.SetFont(r.FontFamily, "B", 18)
	pdf.MultiCell(0, 9, tr(doc.Title), "", "L", false)
	pdf.SetFont(r.FontFamily, "", 9)
	meta := "Share with: " + doc.ShareWith
	if doc.HazardType != "" {
		meta += "    Hazard: " + doc.HazardType
	}
	pdf.MultiCell(0, 5, tr(meta), "", "L", false)

	if len(doc.Countries) > 0 {
		heading("Affected areas")
		for _, c := range doc.Countries {
			line := c.Name
			if len(c.Districts) > 0 {
				line += ": " + strings.Join(c.Districts, ", ")
			}
			body(line)
		}
	}

	heading("Situational overview")
	body(doc.SituationalOverview)

	if len(doc.ActionsTaken) > 0 {
		heading("Actions taken")
		for _, a := range doc.ActionsTaken {
			pdf.SetFont(r.FontFamily, "B", 10)
			pdf.MultiCell(0, 5, tr(a.Organization), "", "L", false)
			body(a.Summary)
			for _, act := range a.Actions {
				body("  - " + act)
			}
		}
	}

	if len(doc.References) > 0 {
		heading("References")
		for _, ref := range doc.References {
			body(strings.TrimSpace(fmt.Sprintf("%s %s %s", ref.Date, ref.SourceDescription, ref.URL)))
		}
	}

	heading("Contacts")
	for _, c := range []struct {
		label   string
		contact DocumentContact
	}{{"Originator", doc.Originator}, {"IFRC", doc.IFRC}} {
		if c.contact.Name == "" && c.contact.Email == "" {
			continue
		}
		body(fmt.Sprintf("%s: %s, %s, %s, %s", c.label, c.contact.Name, c.contact.Title, c.contact.Email, c.contact.Phone))
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return &Artifact{
		Filename:    fileName(doc, "pdf"),
		ContentType: "application/pdf",
		Data:        buf.Bytes(),
	}, nil
}
