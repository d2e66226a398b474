package cli

import (
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/turtacn/PersonaQuiz/internal/domain/catalog"
	"github.com/turtacn/PersonaQuiz/internal/domain/quiz"
	dto "github.com/turtacn/PersonaQuiz/pkg/types/quiz"
)

func newTypesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "List the available tests",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			infos := testInfos(cc.Lang)
			out := cmd.OutOrStdout()
			if cc.OutputFormat == "json" {
				return printJSON(out, infos)
			}

			table := tablewriter.NewWriter(out)
			table.Header([]string{"ID", "Title", "Format", "Factors", "Scale"})
			for _, info := range infos {
				scale := "-"
				if info.ScaleMax > 0 {
					scale = strconv.Itoa(info.ScaleMin) + "-" + strconv.Itoa(info.ScaleMax)
				}
				table.Append([]string{
					info.ID,
					info.Title,
					info.Format,
					strings.Join(info.Factors, " "),
					scale,
				})
			}
			return table.Render()
		},
	}
}

func testInfos(lang quiz.Language) []dto.TestInfo {
	defs := catalog.All()
	out := make([]dto.TestInfo, 0, len(defs))
	for _, def := range defs {
		info := dto.TestInfo{
			ID:       string(def.Type),
			Title:    catalog.Message(lang, def.Copy.Title),
			Format:   string(def.Format),
			ScaleMin: def.Scale.Min,
			ScaleMax: def.Scale.Max,
		}
		for _, f := range def.Factors {
			info.Factors = append(info.Factors, string(f))
		}
		out = append(out, info)
	}
	return out
}
