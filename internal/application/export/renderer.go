// Package export renders finished results to PDF and publishes them to
// object storage.
package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/turtacn/PersonaQuiz/internal/domain/catalog"
	"github.com/turtacn/PersonaQuiz/internal/domain/quiz"
	"github.com/turtacn/PersonaQuiz/internal/domain/scoring"
	"github.com/turtacn/PersonaQuiz/pkg/errors"
)

const (
	pageMargin = 15.0
	barWidth   = 70.0
	rowHeight  = 8.0
)

// ContentType is the MIME type of rendered documents.
const ContentType = "application/pdf"

// Render lays r out as a one-page PDF in lang. A profile key that the
// catalog does not know is reported as invalid test data.
func Render(r quiz.Result, lang quiz.Language) ([]byte, error) {
	def, err := catalog.Lookup(r.TestType)
	if err != nil {
		return nil, err
	}
	var profile *scoring.Profile
	if r.HasProfile() {
		p, err := scoring.LookupProfile(r.TestType, r.ProfileKey)
		if err != nil {
			return nil, err
		}
		profile = &p
	}

	title := catalog.Message(lang, def.Copy.Title)
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetTitle(title, true)
	pdf.SetCreator("PersonaQuiz", true)
	pdf.SetCreationDate(r.CompletedAt)
	pdf.SetModificationDate(r.CompletedAt)
	pdf.AddPage()

	// Core fonts are cp1252; accented pt/es strings need translating.
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Helvetica", "B", 20)
	pdf.CellFormat(0, 12, tr(title), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	if profile != nil {
		pdf.SetFont("Helvetica", "B", 14)
		heading := fmt.Sprintf("%s: %s", catalog.Message(lang, catalog.MsgProfile), profile.Name.In(lang))
		pdf.CellFormat(0, 9, tr(heading), "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 11)
		pdf.MultiCell(0, 6, tr(profile.Summary.In(lang)), "", "L", false)
		pdf.Ln(4)
	}

	writeScoreTable(pdf, tr, r, lang)

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "I", 9)
	stamp := fmt.Sprintf("%s %s", catalog.Message(lang, catalog.MsgCompletedAt),
		r.CompletedAt.UTC().Format(time.RFC1123))
	pdf.CellFormat(0, 6, tr(stamp), "", 1, "L", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeRenderFailed, "failed to render result")
	}
	return buf.Bytes(), nil
}

func writeScoreTable(pdf *fpdf.Fpdf, tr func(string) string, r quiz.Result, lang quiz.Language) {
	cols := []float64{50, 20, 20, barWidth + 10}
	pdf.SetFont("Helvetica", "B", 11)
	pdf.SetFillColor(230, 230, 230)
	headers := []string{
		catalog.Message(lang, catalog.MsgFactor),
		catalog.Message(lang, catalog.MsgScore),
		catalog.Message(lang, catalog.MsgMax),
		catalog.Message(lang, catalog.MsgPercent),
	}
	for i, h := range headers {
		pdf.CellFormat(cols[i], rowHeight, tr(h), "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 11)
	for _, m := range magnitudes(r) {
		pdf.CellFormat(cols[0], rowHeight, tr(catalog.FactorName(r.TestType, m.Factor, lang)), "1", 0, "L", false, 0, "")
		pdf.CellFormat(cols[1], rowHeight, fmt.Sprintf("%d", m.Score), "1", 0, "R", false, 0, "")
		limit := "-"
		if m.Max > 0 {
			limit = fmt.Sprintf("%d", m.Max)
		}
		pdf.CellFormat(cols[2], rowHeight, limit, "1", 0, "R", false, 0, "")

		x, y := pdf.GetX(), pdf.GetY()
		pdf.CellFormat(cols[3], rowHeight, "", "1", 0, "L", false, 0, "")
		pct := m.Percent()
		if pct > 0 {
			pdf.SetFillColor(66, 133, 244)
			pdf.Rect(x+2, y+2, barWidth*pct/100, rowHeight-4, "F")
		}
		pdf.SetXY(x+barWidth+2, y)
		pdf.SetFont("Helvetica", "", 8)
		pdf.CellFormat(cols[3]-barWidth-2, rowHeight, fmt.Sprintf("%.0f", pct), "", 0, "R", false, 0, "")
		pdf.SetFont("Helvetica", "", 11)
		pdf.Ln(-1)
	}
}

// magnitudes falls back to raw scores, in catalog order, when the result
// carries no finalized magnitudes.
func magnitudes(r quiz.Result) []quiz.FactorScore {
	if len(r.Magnitudes) > 0 {
		return r.Magnitudes
	}
	def, err := catalog.Lookup(r.TestType)
	if err != nil {
		return nil
	}
	out := make([]quiz.FactorScore, 0, len(def.Factors))
	for _, f := range def.Factors {
		out = append(out, quiz.FactorScore{Factor: f, Score: r.Scores[f]})
	}
	return out
}
