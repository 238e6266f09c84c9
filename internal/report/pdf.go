package report

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// SaveSessionPDF renders the given decode session report into a PDF
// document: a summary block, an error-kind breakdown table, and a
// findings listing.
func SaveSessionPDF(rep SessionReport, out string) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Decode Session Report", false)
	pdf.SetAuthor("atpdecode", false)
	pdf.SetCreator("atpdecode", false)
	pdf.SetMargins(15, 20, 15)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()

	addPDFTitle(pdf, "Decode Session Report")
	addSummarySection(pdf, rep)
	addErrorsSection(pdf, rep.ErrorsByKind)
	addFindingsSection(pdf, rep.Findings)

	if pdf.Err() {
		return pdf.Error()
	}
	return pdf.OutputFileAndClose(out)
}

func addPDFTitle(pdf *gofpdf.Fpdf, title string) {
	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, title)
	pdf.Ln(12)
}

func addSummarySection(pdf *gofpdf.Fpdf, rep SessionReport) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Summary")
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "", 11)
	items := []struct {
		label string
		value string
	}{
		{label: "Input File", value: emptyFallback(rep.InputPath, "-")},
		{label: "Fingerprint", value: emptyFallback(rep.Fingerprint, "-")},
		{label: "Frames Decoded", value: strconv.Itoa(rep.Frames)},
		{label: "Resyncs Performed", value: strconv.Itoa(rep.Resyncs)},
		{label: "Bytes Skipped on Resync", value: strconv.Itoa(rep.BytesSkipped)},
		{label: "Telegrams Reassembled", value: strconv.Itoa(rep.Telegrams)},
		{label: "Partial Telegrams Evicted", value: strconv.Itoa(rep.Evictions)},
	}
	for _, item := range items {
		pdf.CellFormat(60, 6, item.label, "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 6, item.value, "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)
}

func addErrorsSection(pdf *gofpdf.Fpdf, errsByKind map[string]int) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Errors by Kind")
	pdf.Ln(9)

	if len(errsByKind) == 0 {
		pdf.SetFont("Helvetica", "", 11)
		pdf.MultiCell(0, 6, "No errors recorded.", "", "L", false)
		pdf.Ln(4)
		return
	}

	headers := []string{"Kind", "Count"}
	widths := []float64{130, 30}

	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Helvetica", "B", 10)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 7, h, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	for _, kind := range sortedKeys(errsByKind) {
		renderTableRow(pdf, widths, []string{kind, strconv.Itoa(errsByKind[kind])}, 5.0)
	}
	pdf.Ln(4)
}

func addFindingsSection(pdf *gofpdf.Fpdf, findings []Finding) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Findings")
	pdf.Ln(9)

	if len(findings) == 0 {
		pdf.SetFont("Helvetica", "", 11)
		pdf.MultiCell(0, 6, "No findings recorded.", "", "L", false)
		return
	}

	for i, f := range findings {
		pdf.SetFont("Helvetica", "B", 10)
		header := fmt.Sprintf("%d. %s (offset %d)", i+1, f.Kind, f.Offset)
		pdf.MultiCell(0, 5, header, "", "L", false)

		if msg := strings.TrimSpace(f.Message); msg != "" {
			pdf.SetFont("Helvetica", "", 10)
			pdf.MultiCell(0, 5, msg, "", "L", false)
		}
		pdf.Ln(2)
	}
}

func renderTableRow(pdf *gofpdf.Fpdf, widths []float64, values []string, lineHeight float64) {
	xStart := pdf.GetX()
	yStart := pdf.GetY()
	maxLines := 1
	splitCols := make([][]string, len(values))
	for i, val := range values {
		text := strings.TrimSpace(val)
		if text == "" {
			text = "-"
		}
		lines := pdf.SplitText(text, widths[i]-2)
		if len(lines) == 0 {
			lines = []string{""}
		}
		splitCols[i] = lines
		if len(lines) > maxLines {
			maxLines = len(lines)
		}
	}
	rowHeight := float64(maxLines) * lineHeight
	x := xStart
	for i, lines := range splitCols {
		pdf.SetXY(x, yStart)
		cellText := strings.Join(lines, "\n")
		pdf.MultiCell(widths[i], lineHeight, cellText, "1", "L", false)
		x += widths[i]
	}
	pdf.SetXY(xStart, yStart+rowHeight)
}

func emptyFallback(val, fallback string) string {
	if strings.TrimSpace(val) == "" {
		return fallback
	}
	return val
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
