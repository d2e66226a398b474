package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/turtacn/PersonaQuiz/internal/application/export"
	"github.com/turtacn/PersonaQuiz/internal/application/wire"
	"github.com/turtacn/PersonaQuiz/internal/domain/catalog"
	"github.com/turtacn/PersonaQuiz/internal/domain/quiz"
	"github.com/turtacn/PersonaQuiz/pkg/errors"
)

func newResultCmd() *cobra.Command {
	var sessionID string

	cmd := &cobra.Command{
		Use:   "result <disc|mbti|bigfive>",
		Short: "Show the latest result of a test",
		Long:  "Show the latest local result of a test, or with --session the result stored on the server.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			t, err := parseTestType(args[0])
			if err != nil {
				return err
			}
			res, err := loadResult(cmd.Context(), cc, t, sessionID)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if err := printResult(out, cc.OutputFormat, *res, cc.Lang); err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), catalog.UserMessage(cc.Lang, err))
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "fetch the result of this session from the server")
	return cmd
}

func newExportCmd() *cobra.Command {
	var (
		outPath   string
		sessionID string
	)

	cmd := &cobra.Command{
		Use:   "export <disc|mbti|bigfive>",
		Short: "Export a result as PDF",
		Long: "Render the latest local result as a PDF file. With --session the server\n" +
			"renders the stored result and a download link is printed instead.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			t, err := parseTestType(args[0])
			if err != nil {
				return err
			}
			if sessionID != "" {
				return exportRemote(cmd, cc, t, sessionID)
			}

			res, err := loadResult(cmd.Context(), cc, t, "")
			if err != nil {
				return err
			}
			doc, err := export.Render(*res, cc.Lang)
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), catalog.UserMessage(cc.Lang, err))
				return err
			}
			if outPath == "" {
				outPath = fmt.Sprintf("%s-%s.pdf", t, cc.Lang)
			}
			if err := os.WriteFile(outPath, doc, 0o644); err != nil {
				return errors.Wrap(err, errors.ErrCodeInternal, "write "+outPath)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d bytes)\n", outPath, len(doc))
			return nil
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "f", "", "PDF file to write (default: <type>-<lang>.pdf)")
	cmd.Flags().StringVar(&sessionID, "session", "", "export the server-side result of this session")
	return cmd
}

func exportRemote(cmd *cobra.Command, cc *CLIContext, t quiz.TestType, sessionID string) error {
	if cc.Client == nil {
		return errors.InvalidParam("--session requires --server")
	}
	ctx, cancel := commandTimeout(cmd.Context(), cc.Config.Quiz.RemoteTimeout)
	defer cancel()

	resp, err := cc.Client.ExportResult(ctx, sessionID, string(t), string(cc.Lang))
	if err != nil {
		return err
	}
	if cc.OutputFormat == "json" {
		return printJSON(cmd.OutOrStdout(), resp)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s\n%s\n", resp.ObjectKey, resp.URL)
	return nil
}

// loadResult reads the latest local result of t, or the server copy of
// sessionID when one is given.
func loadResult(ctx context.Context, cc *CLIContext, t quiz.TestType, sessionID string) (*quiz.Result, error) {
	if sessionID != "" {
		if cc.Client == nil {
			return nil, errors.InvalidParam("--session requires --server")
		}
		ctx, cancel := commandTimeout(ctx, cc.Config.Quiz.RemoteTimeout)
		defer cancel()
		r, err := cc.Client.GetResult(ctx, sessionID, string(t), string(cc.Lang))
		if err != nil {
			return nil, err
		}
		res := wire.ResultFromDTO(*r)
		return &res, nil
	}

	store, err := cc.Store()
	if err != nil {
		return nil, err
	}
	res, err := store.LoadResult(ctx, t)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, errors.NotFound("no saved result").WithDetail("run `quiz take " + string(t) + "` first")
	}
	return res, nil
}
