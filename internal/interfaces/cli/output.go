package cli

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/turtacn/PersonaQuiz/internal/application/wire"
	"github.com/turtacn/PersonaQuiz/internal/domain/catalog"
	"github.com/turtacn/PersonaQuiz/internal/domain/quiz"
	"github.com/turtacn/PersonaQuiz/internal/domain/scoring"
)

var (
	headingColor = color.New(color.FgCyan, color.Bold)
	profileColor = color.New(color.Bold)
	highColor    = color.New(color.FgGreen)
	midColor     = color.New(color.FgYellow)
	lowColor     = color.New(color.FgHiBlack)
	warnColor    = color.New(color.FgRed, color.Bold)
)

const barWidth = 20

// printResult writes r as JSON or as a table, depending on format.
func printResult(w io.Writer, format string, r quiz.Result, lang quiz.Language) error {
	if format != "json" {
		return writeResult(w, r, lang)
	}
	out, err := wire.ResultToDTO(r, lang)
	if err != nil {
		return err
	}
	return printJSON(w, out)
}

// writeResult prints the profile of r followed by one table row per factor.
// An uncatalogued profile key aborts before anything is written.
func writeResult(w io.Writer, r quiz.Result, lang quiz.Language) error {
	def, err := catalog.Lookup(r.TestType)
	if err != nil {
		return err
	}
	var profile *scoring.Profile
	if r.HasProfile() {
		p, err := scoring.LookupProfile(r.TestType, r.ProfileKey)
		if err != nil {
			return err
		}
		profile = &p
	}

	fmt.Fprintln(w, headingColor.Sprint(catalog.Message(lang, def.Copy.ResultHeading)))
	if profile != nil {
		fmt.Fprintf(w, "%s: %s (%s)\n", catalog.Message(lang, catalog.MsgProfile),
			profileColor.Sprint(profile.Name.In(lang)), profile.Key)
		fmt.Fprintln(w, profile.Summary.In(lang))
	}
	fmt.Fprintln(w)

	table := tablewriter.NewWriter(w)
	table.Header([]string{
		catalog.Message(lang, catalog.MsgFactor),
		catalog.Message(lang, catalog.MsgScore),
		catalog.Message(lang, catalog.MsgMax),
		catalog.Message(lang, catalog.MsgPercent),
		"",
	})
	for _, m := range factorScores(def, r) {
		table.Append([]string{
			catalog.FactorName(r.TestType, m.Factor, lang),
			strconv.Itoa(m.Score),
			strconv.Itoa(m.Max),
			fmt.Sprintf("%.0f", m.Percent()),
			bar(m.Percent()),
		})
	}
	if err := table.Render(); err != nil {
		return err
	}

	fmt.Fprintf(w, "%s: %s\n", catalog.Message(lang, catalog.MsgCompletedAt),
		r.CompletedAt.Local().Format(time.RFC1123))
	return nil
}

// factorScores falls back to raw tallies in catalog order for results saved
// without magnitudes.
func factorScores(def catalog.Definition, r quiz.Result) []quiz.FactorScore {
	if len(r.Magnitudes) > 0 {
		return r.Magnitudes
	}
	out := make([]quiz.FactorScore, 0, len(def.Factors))
	for _, f := range def.Factors {
		out = append(out, quiz.FactorScore{Factor: f, Score: r.Scores[f]})
	}
	return out
}

func bar(percent float64) string {
	n := int(math.Round(percent * barWidth / 100))
	if n < 0 {
		n = 0
	}
	if n > barWidth {
		n = barWidth
	}
	s := strings.Repeat("#", n) + strings.Repeat(".", barWidth-n)
	switch {
	case percent >= 70:
		return highColor.Sprint(s)
	case percent >= 40:
		return midColor.Sprint(s)
	default:
		return lowColor.Sprint(s)
	}
}
