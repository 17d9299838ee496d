package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"paperflow_go_backend/internal/models"
	"paperflow_go_backend/internal/workflow"
)

// Summary is the content of a paper's review summary document. Reviews must
// already be filtered for the reader.
type Summary struct {
	Paper       models.Paper
	Scores      workflow.ScoreSummary
	Reviews     []models.Review
	GeneratedAt time.Time
}

// WriteSummaryPDF renders s as a single PDF document to w.
func WriteSummaryPDF(w io.Writer, s Summary) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(tr(s.Paper.Title), false)
	pdf.SetCreator("paperflow", false)
	pdf.SetCreationDate(s.GeneratedAt)
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Arial", "I", 8)
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.MultiCell(0, 8, tr(s.Paper.Title), "", "L", false)
	pdf.Ln(2)

	pdf.SetFont("Arial", "", 10)
	if names := authorNames(s.Paper.Authors); names != "" {
		pdf.MultiCell(0, 5, tr(names), "", "L", false)
	}
	if s.Paper.Conference != nil {
		pdf.CellFormat(0, 5, tr(fmt.Sprintf("%s %d", s.Paper.Conference.Name, s.Paper.Conference.Year)), "", 1, "L", false, 0, "")
	}
	pdf.CellFormat(0, 5, "Status: "+string(s.Paper.Status), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 5, "Generated: "+s.GeneratedAt.UTC().Format(time.RFC1123), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	section(pdf, "Scores")
	scoreRow(pdf, "Completed reviews", fmt.Sprintf("%d", s.Scores.CompletedReviews))
	scoreRow(pdf, "Average overall score", formatMean(s.Scores.AverageScore))
	scoreRow(pdf, "Technical quality", formatMean(s.Scores.Dimensions.TechnicalQuality))
	scoreRow(pdf, "Novelty", formatMean(s.Scores.Dimensions.Novelty))
	scoreRow(pdf, "Clarity", formatMean(s.Scores.Dimensions.Clarity))
	scoreRow(pdf, "Significance", formatMean(s.Scores.Dimensions.Significance))
	pdf.Ln(2)
	for _, rec := range models.AllRecommendations {
		scoreRow(pdf, humanize(string(rec)), fmt.Sprintf("%d", s.Scores.Recommendations[rec]))
	}
	pdf.Ln(4)

	section(pdf, "Reviews")
	if len(s.Reviews) == 0 {
		pdf.SetFont("Arial", "I", 10)
		pdf.CellFormat(0, 6, "No completed reviews.", "", 1, "L", false, 0, "")
	}
	for i, r := range s.Reviews {
		pdf.SetFont("Arial", "B", 11)
		heading := fmt.Sprintf("Review %d", i+1)
		if r.Recommendation != nil {
			heading += " - " + humanize(string(*r.Recommendation))
		}
		pdf.CellFormat(0, 6, heading, "", 1, "L", false, 0, "")

		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(0, 5, fmt.Sprintf("Overall %s  Technical %s  Novelty %s  Clarity %s  Significance %s",
			formatScore(r.OverallScore), formatScore(r.TechnicalQuality), formatScore(r.Novelty),
			formatScore(r.Clarity), formatScore(r.Significance)), "", 1, "L", false, 0, "")
		pdf.MultiCell(0, 5, tr(r.Comments), "", "L", false)
		if r.ConfidentialComments != "" {
			pdf.SetFont("Arial", "I", 10)
			pdf.MultiCell(0, 5, tr("Confidential: "+r.ConfidentialComments), "", "L", false)
		}
		pdf.Ln(3)
	}

	return pdf.Output(w)
}

func section(pdf *gofpdf.Fpdf, title string) {
	pdf.SetFont("Arial", "B", 13)
	pdf.CellFormat(0, 8, title, "B", 1, "L", false, 0, "")
	pdf.Ln(1)
}

func scoreRow(pdf *gofpdf.Fpdf, label, value string) {
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(60, 6, label, "", 0, "L", false, 0, "")
	pdf.CellFormat(0, 6, value, "", 1, "L", false, 0, "")
}

func formatMean(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", *v)
}

func formatScore(v *int) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *v)
}

// humanize turns MINOR_REVISION into "Minor revision".
func humanize(s string) string {
	s = strings.ToLower(strings.ReplaceAll(s, "_", " "))
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func authorNames(authors []models.User) string {
	names := make([]string, 0, len(authors))
	for _, a := range authors {
		names = append(names, a.Name)
	}
	return strings.Join(names, ", ")
}
