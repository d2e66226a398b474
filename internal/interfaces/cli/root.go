// Package cli implements the quiz command line: taking a test in the
// terminal, inspecting and exporting results, and the operator commands that
// prepare the server database.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/turtacn/PersonaQuiz/internal/application/persistence"
	"github.com/turtacn/PersonaQuiz/internal/application/questions"
	"github.com/turtacn/PersonaQuiz/internal/config"
	"github.com/turtacn/PersonaQuiz/internal/domain/quiz"
	"github.com/turtacn/PersonaQuiz/internal/infrastructure/database/sqlite"
	"github.com/turtacn/PersonaQuiz/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/PersonaQuiz/pkg/client"
	"github.com/turtacn/PersonaQuiz/pkg/errors"
)

// cliContextKey is the context key for CLIContext.
type cliContextKey struct{}

// RootOptions holds global CLI flags.
type RootOptions struct {
	ConfigPath   string
	ServerAddr   string
	Lang         string
	DBPath       string
	LogLevel     string
	OutputFormat string
	NoColor      bool
	Verbose      bool
}

// CLIContext carries initialized dependencies through the command tree.
type CLIContext struct {
	Config       *config.Config
	Logger       logging.Logger
	// Client is nil when no server is configured.
	Client       *client.Client
	Lang         quiz.Language
	OutputFormat string
	NoColor      bool

	dbPath string
	local  *sqlite.Store
}

// Bootstrap builds the CLIContext of a command invocation.
type Bootstrap func(opts *RootOptions) (*CLIContext, error)

// NewRootCommand creates the root command with every subcommand attached.
func NewRootCommand() *cobra.Command {
	return newRootCommand(defaultBootstrap)
}

func newRootCommand(boot Bootstrap) *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:     "quiz",
		Short:   "PersonaQuiz: DISC, MBTI and Big Five personality tests",
		Long:    "PersonaQuiz runs DISC, MBTI and Big Five personality tests in English,\nPortuguese and Spanish, keeping progress locally and syncing with a\nPersonaQuiz server when one is configured.",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", config.Version, config.GitCommit, config.BuildDate),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cc, err := boot(opts)
			if err != nil {
				return err
			}
			color.NoColor = color.NoColor || cc.NoColor
			cmd.SetContext(context.WithValue(cmd.Context(), cliContextKey{}, cc))
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if cc, err := GetCLIContext(cmd); err == nil {
				return cc.Close()
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.ConfigPath, "config", "c", "", "config file path (default: environment only)")
	pf.StringVar(&opts.ServerAddr, "server", "", "PersonaQuiz API base URL; empty runs fully local")
	pf.StringVar(&opts.Lang, "lang", "", "language: en, pt or es (default from config, then $LANG)")
	pf.StringVar(&opts.DBPath, "db", "", "local SQLite path (default: $XDG_DATA_HOME/personaquiz/local.db)")
	pf.StringVar(&opts.LogLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	pf.StringVarP(&opts.OutputFormat, "output", "o", "table", "output format (table, json)")
	pf.BoolVar(&opts.NoColor, "no-color", false, "disable colored output")
	pf.BoolVarP(&opts.Verbose, "verbose", "v", false, "enable verbose output")

	cmd.AddCommand(
		newTakeCmd(),
		newResultCmd(),
		newExportCmd(),
		newTypesCmd(),
		newSeedCmd(),
		newMigrateCmd(),
	)
	return cmd
}

// defaultBootstrap resolves config with priority flags > env > file > defaults.
func defaultBootstrap(opts *RootOptions) (*CLIContext, error) {
	cfg, err := config.LoadOrDefault(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("config initialization failed: %w", err)
	}

	level := opts.LogLevel
	if opts.Verbose {
		level = "debug"
	}
	logger, err := logging.NewLogger(logging.LogConfig{
		Level:            level,
		Format:           "console",
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	})
	if err != nil {
		return nil, fmt.Errorf("logger initialization failed: %w", err)
	}

	addr := opts.ServerAddr
	if addr == "" {
		addr = cfg.Quiz.APIBaseURL
	}
	var apiClient *client.Client
	if addr != "" {
		apiClient, err = client.NewClient(addr,
			client.WithTimeout(cfg.Quiz.RemoteTimeout),
			client.WithUserAgent("personaquiz-cli/"+config.Version))
		if err != nil {
			return nil, err
		}
	}

	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = cfg.Quiz.LocalDBPath
	}
	if dbPath == "" {
		dbPath = sqlite.DefaultPath()
	}

	return &CLIContext{
		Config:       cfg,
		Logger:       logger,
		Client:       apiClient,
		Lang:         resolveLanguage(opts.Lang, envLocale(), cfg.Quiz.DefaultLanguage),
		OutputFormat: opts.OutputFormat,
		NoColor:      opts.NoColor,
		dbPath:       dbPath,
	}, nil
}

// resolveLanguage returns the first supported candidate, falling back to
// English.
func resolveLanguage(candidates ...string) quiz.Language {
	for _, c := range candidates {
		if c == "" {
			continue
		}
		// Locales look like pt_BR.UTF-8.
		c = strings.SplitN(strings.SplitN(c, ".", 2)[0], "_", 2)[0]
		if l, ok := quiz.ParseLanguage(c); ok {
			return l
		}
	}
	return quiz.DefaultLanguage
}

func envLocale() string {
	for _, k := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		if v := os.Getenv(k); v != "" && v != "C" && v != "POSIX" {
			return v
		}
	}
	return ""
}

// Local opens the on-device store on first use.
func (c *CLIContext) Local() (*sqlite.Store, error) {
	if c.local != nil {
		return c.local, nil
	}
	s, err := sqlite.Open(c.dbPath, c.Logger)
	if err != nil {
		return nil, err
	}
	c.local = s
	return s, nil
}

// Close releases the local store.
func (c *CLIContext) Close() error {
	if c.local == nil {
		return nil
	}
	err := c.local.Close()
	c.local = nil
	return err
}

// Questions returns the remote-first question provider.
func (c *CLIContext) Questions() (*questions.Provider, error) {
	bundled, err := questions.NewBundled()
	if err != nil {
		return nil, err
	}
	opts := []questions.Option{
		questions.WithLogger(c.Logger),
		questions.WithTimeout(c.Config.Quiz.RemoteTimeout),
	}
	if c.Client != nil {
		opts = append(opts, questions.WithRemote(questions.NewRemote(c.Client)))
	}
	return questions.NewProvider(bundled, opts...), nil
}

// Store returns the local store, tiered behind the server when one is set.
func (c *CLIContext) Store() (persistence.LocalStore, error) {
	kv, err := c.Local()
	if err != nil {
		return nil, err
	}
	local := persistence.NewLocal(kv,
		persistence.WithFreshnessWindow(c.Config.Quiz.FreshnessWindow),
		persistence.WithLocalLogger(c.Logger))
	if c.Client == nil {
		return local, nil
	}
	return persistence.NewTiered(persistence.NewRemote(c.Client), local,
		persistence.WithRemoteTimeout(c.Config.Quiz.RemoteTimeout),
		persistence.WithLogger(c.Logger)), nil
}

// GetCLIContext extracts CLIContext from a cobra command's context.
func GetCLIContext(cmd *cobra.Command) (*CLIContext, error) {
	ctx := cmd.Context()
	if ctx == nil {
		return nil, errors.New(errors.ErrCodeInternal, "command context is nil")
	}
	cc, ok := ctx.Value(cliContextKey{}).(*CLIContext)
	if !ok || cc == nil {
		return nil, errors.New(errors.ErrCodeInternal, "CLIContext not found in command context")
	}
	return cc, nil
}

// Execute is the main entry point for the CLI application.
func Execute() error {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		PrintError(rootCmd, err)
		return err
	}
	return nil
}

// PrintError writes a formatted error message to stderr.
func PrintError(cmd *cobra.Command, err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%s %s\n", color.RedString("Error:"), err.Error())
}

// printJSON outputs data as indented JSON.
func printJSON(w io.Writer, data interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

func commandTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
