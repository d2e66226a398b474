package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/turtacn/PersonaQuiz/internal/application/questions"
	"github.com/turtacn/PersonaQuiz/internal/domain/quiz"
	"github.com/turtacn/PersonaQuiz/internal/infrastructure/database/postgres"
	"github.com/turtacn/PersonaQuiz/internal/infrastructure/database/postgres/repositories"
	"github.com/turtacn/PersonaQuiz/internal/infrastructure/database/redis"
	"github.com/turtacn/PersonaQuiz/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/PersonaQuiz/pkg/errors"
)

const adminTimeout = 2 * time.Minute

func newSeedCmd() *cobra.Command {
	var types string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load the bundled question sets into PostgreSQL",
		Long: "Replace the server's stored question sets with the ones bundled in this\n" +
			"binary and drop the cached copies in Redis when it is configured.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			selected, err := parseTypeList(types)
			if err != nil {
				return err
			}
			bundled, err := questions.NewBundled()
			if err != nil {
				return err
			}

			ctx, cancel := commandTimeout(cmd.Context(), adminTimeout)
			defer cancel()

			conn, err := postgres.NewConnection(cc.Config.Database.Postgres(), cc.Logger)
			if err != nil {
				return err
			}
			defer conn.Close()
			repo := repositories.NewQuestionRepo(conn, cc.Logger, nil)

			var cache *questions.CachedSource
			if cc.Config.Redis.Addr != "" {
				rc, err := redis.NewClient(cc.Config.Redis.Client(), cc.Logger)
				if err != nil {
					cc.Logger.Warn("Redis unavailable, cached question sets expire on their own", logging.Err(err))
				} else {
					defer rc.Close()
					cache = questions.NewCachedSource(repo,
						redis.NewQuestionCache(rc, cc.Logger, cc.Config.Redis.KeyPrefix, cc.Config.Redis.QuestionTTL),
						cc.Logger, nil)
				}
			}

			sets := bundled.Sets()
			for _, t := range selected {
				qs := sets[t]
				if err := repo.ReplaceSet(ctx, t, qs); err != nil {
					return err
				}
				stored, err := repo.Count(ctx, t)
				if err != nil {
					return err
				}
				if stored != len(qs) {
					return errors.New(errors.ErrCodeDatabaseError, "seeded question count mismatch").
						WithDetail(fmt.Sprintf("%s: stored %d of %d", t, stored, len(qs)))
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d questions\n", t, stored)
			}

			if cache != nil {
				// An empty --types seeds every set, so drop the whole namespace.
				var err error
				if strings.TrimSpace(types) == "" {
					err = cache.Invalidate(ctx)
				} else {
					err = cache.Invalidate(ctx, selected...)
				}
				if err != nil {
					cc.Logger.Warn("Question cache not invalidated", logging.Err(err))
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&types, "types", "", "comma-separated test types to seed (default: all)")
	return cmd
}

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the PostgreSQL schema",
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply every pending migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd, func(m *postgres.Migrator) error {
				if err := m.Up(); err != nil {
					return err
				}
				return printVersion(cmd, m)
			})
		},
	}

	down := &cobra.Command{
		Use:   "down <steps>",
		Short: "Roll back the given number of migrations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			steps, err := strconv.Atoi(args[0])
			if err != nil || steps <= 0 {
				return errors.InvalidParam("steps must be a positive integer").WithDetail(args[0])
			}
			return withMigrator(cmd, func(m *postgres.Migrator) error {
				if err := m.Rollback(steps); err != nil {
					return err
				}
				return printVersion(cmd, m)
			})
		},
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Print the applied schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd, func(m *postgres.Migrator) error {
				return printVersion(cmd, m)
			})
		},
	}

	force := &cobra.Command{
		Use:   "force <version>",
		Short: "Mark a version as applied to recover from a failed migration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := strconv.Atoi(args[0])
			if err != nil || version < 0 {
				return errors.InvalidParam("version must be a non-negative integer").WithDetail(args[0])
			}
			return withMigrator(cmd, func(m *postgres.Migrator) error {
				if err := m.Force(version); err != nil {
					return err
				}
				return printVersion(cmd, m)
			})
		},
	}

	cmd.AddCommand(up, down, status, force)
	return cmd
}

func withMigrator(cmd *cobra.Command, fn func(*postgres.Migrator) error) error {
	cc, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	m, err := postgres.NewMigrator(postgres.BuildDSN(cc.Config.Database.Postgres()))
	if err != nil {
		return err
	}
	defer m.Close()
	return fn(m)
}

func printVersion(cmd *cobra.Command, m *postgres.Migrator) error {
	version, dirty, err := m.Status()
	if err != nil {
		return err
	}
	state := "clean"
	if dirty {
		state = warnColor.Sprint("dirty")
	}
	fmt.Fprintf(cmd.OutOrStdout(), "schema version %d (%s)\n", version, state)
	return nil
}

// parseTypeList resolves a comma-separated list; empty means every test.
func parseTypeList(s string) ([]quiz.TestType, error) {
	if strings.TrimSpace(s) == "" {
		return append([]quiz.TestType(nil), quiz.TestTypes...), nil
	}
	var out []quiz.TestType
	for _, part := range strings.Split(s, ",") {
		t, err := parseTestType(part)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}
