package cli

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/PersonaQuiz/internal/application/runner"
	"github.com/turtacn/PersonaQuiz/internal/domain/catalog"
	"github.com/turtacn/PersonaQuiz/internal/domain/quiz"
	"github.com/turtacn/PersonaQuiz/internal/domain/session"
	"github.com/turtacn/PersonaQuiz/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/PersonaQuiz/pkg/errors"
)

// errInputClosed ends a session whose input ran out; progress stays saved.
var errInputClosed = errors.New(errors.ErrCodeBadRequest, "input closed before the test was completed")

func newTakeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "take <disc|mbti|bigfive>",
		Short: "Take a test interactively",
		Long: "Take a test in the terminal. Answers are saved after every question, so an\n" +
			"interrupted test resumes where it stopped if taken again within the\n" +
			"freshness window.",
		Args:      cobra.ExactArgs(1),
		ValidArgs: testTypeNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			t, err := parseTestType(args[0])
			if err != nil {
				return err
			}
			return runTake(cmd, cc, t)
		},
	}
}

func runTake(cmd *cobra.Command, cc *CLIContext, t quiz.TestType) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	provider, err := cc.Questions()
	if err != nil {
		return err
	}
	store, err := cc.Store()
	if err != nil {
		return err
	}
	r := runner.New(provider, store,
		runner.WithFreshnessWindow(cc.Config.Quiz.FreshnessWindow),
		runner.WithLogger(cc.Logger))

	outcome, err := r.Start(ctx, t, cc.Lang)
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), catalog.UserMessage(cc.Lang, err))
		return err
	}
	lang := r.Language()
	def := r.State().Test

	fmt.Fprintln(out, headingColor.Sprint(catalog.Message(lang, def.Copy.Title)))
	fmt.Fprintln(out, catalog.Message(lang, def.Copy.Intro))
	switch outcome {
	case session.ResumeRestored:
		fmt.Fprintln(out, catalog.Message(lang, catalog.MsgResumed))
	case session.ResumeExpired:
		fmt.Fprintln(out, catalog.Message(lang, catalog.MsgRestarted))
	}
	fmt.Fprintln(out, catalog.Message(lang, def.Copy.Prompt))

	in := bufio.NewScanner(cmd.InOrStdin())
	for {
		q, ok := r.Current()
		if !ok {
			break
		}
		answered, total := r.Progress()
		fmt.Fprintf(out, "\n%s %d/%d\n", catalog.Message(lang, catalog.MsgProgress), answered+1, total)

		a, err := ask(in, out, def, q, lang)
		if err != nil {
			return err
		}
		done, err := r.Answer(ctx, a)
		if errors.IsCode(err, errors.ErrCodeInvalidAnswer) {
			fmt.Fprintln(out, midColor.Sprint(err.Error()))
			continue
		}
		if err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), catalog.UserMessage(lang, err))
			return err
		}
		if done {
			break
		}
	}

	res, ok := r.Result()
	if !ok {
		return errors.New(errors.ErrCodeInternal, "test finished without a result")
	}
	cc.Logger.Info("Test completed", logging.String("session_id", res.SessionID), logging.String("source", r.Source()))

	fmt.Fprintln(out)
	fmt.Fprintln(out, catalog.Message(lang, catalog.MsgCompleted))
	if err := printResult(out, cc.OutputFormat, *res, lang); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), catalog.UserMessage(lang, err))
		return err
	}
	return nil
}

// ask prompts until the participant gives a well-formed answer to q.
func ask(in *bufio.Scanner, out io.Writer, def catalog.Definition, q quiz.Question, lang quiz.Language) (quiz.Answer, error) {
	for {
		if q.Format() == quiz.FormatForcedChoice {
			fmt.Fprintln(out, q.Text.In(lang))
			for i, o := range q.Options {
				fmt.Fprintf(out, "  %c) %s\n", 'A'+i, o.Text.In(lang))
			}
		} else {
			fmt.Fprintf(out, "%s [%d-%d]\n", q.Text.In(lang), def.Scale.Min, def.Scale.Max)
		}
		fmt.Fprint(out, "> ")

		if !in.Scan() {
			if err := in.Err(); err != nil {
				return quiz.Answer{}, err
			}
			return quiz.Answer{}, errInputClosed
		}
		if a, ok := parseAnswer(strings.TrimSpace(in.Text()), def, q); ok {
			return a, nil
		}
		fmt.Fprintln(out, catalog.Message(lang, def.Copy.Prompt))
	}
}

// parseAnswer accepts a rating within the scale for scale items, and a
// letter or 1-based option number for forced-choice items.
func parseAnswer(input string, def catalog.Definition, q quiz.Question) (quiz.Answer, bool) {
	if input == "" {
		return quiz.Answer{}, false
	}
	if q.Format() == quiz.FormatForcedChoice {
		idx := -1
		if n, err := strconv.Atoi(input); err == nil {
			idx = n - 1
		} else if len(input) == 1 {
			idx = int(strings.ToUpper(input)[0] - 'A')
		}
		if idx < 0 || idx >= len(q.Options) {
			return quiz.Answer{}, false
		}
		return quiz.Answer{QuestionID: q.ID, Factor: q.Options[idx].Factor}, true
	}
	n, err := strconv.Atoi(input)
	if err != nil || !def.Scale.Contains(n) {
		return quiz.Answer{}, false
	}
	return quiz.Answer{QuestionID: q.ID, Rating: n}, true
}

func parseTestType(s string) (quiz.TestType, error) {
	t, ok := quiz.ParseTestType(s)
	if !ok {
		return "", errors.New(errors.ErrCodeUnknownTestType, "unknown test type").
			WithDetail(s + " (expected one of " + strings.Join(testTypeNames(), ", ") + ")")
	}
	return t, nil
}

func testTypeNames() []string {
	defs := catalog.All()
	out := make([]string, 0, len(defs))
	for _, d := range defs {
		out = append(out, string(d.Type))
	}
	return out
}
