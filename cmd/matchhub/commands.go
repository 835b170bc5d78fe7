package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	crerr "github.com/cockroachdb/errors"
	"github.com/urfave/cli/v2"

	"github.com/riskibarqy/match-hub/internal/app"
	"github.com/riskibarqy/match-hub/internal/config"
	"github.com/riskibarqy/match-hub/internal/export"
	"github.com/riskibarqy/match-hub/internal/platform/logging"
	"github.com/riskibarqy/match-hub/internal/platform/migration"
	"github.com/riskibarqy/match-hub/internal/usecase"
)

func newProcessCommand() *cli.Command {
	return &cli.Command{
		Name:      "process",
		Usage:     "fetch, normalize and store matches",
		ArgsUsage: "<match id or url>...",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "csv", Usage: "write the score rows to this CSV file"},
			&cli.StringFlag{Name: "xlsx", Usage: "write the score rows to this XLSX file"},
		},
		Action: func(c *cli.Context) error {
			ids := usecase.ExtractMatchIDs(strings.Join(c.Args().Slice(), " "))
			if len(ids) == 0 {
				return cli.Exit("no match ids found in arguments", 2)
			}

			service, cleanup, err := buildService(c.Context)
			if err != nil {
				return err
			}
			defer func() { _ = cleanup() }()

			return runProcess(c.Context, service, ids, exportTargets{
				CSVPath:  c.String("csv"),
				XLSXPath: c.String("xlsx"),
			}, c.App.Writer)
		},
	}
}

func newScoresCommand() *cli.Command {
	return &cli.Command{
		Name:      "scores",
		Usage:     "print the stored scores of one match",
		ArgsUsage: "<match id>",
		Action: func(c *cli.Context) error {
			matchID, err := strconv.ParseInt(strings.TrimSpace(c.Args().First()), 10, 64)
			if err != nil {
				return cli.Exit("a numeric match id is required", 2)
			}

			service, cleanup, err := buildService(c.Context)
			if err != nil {
				return err
			}
			defer func() { _ = cleanup() }()

			return runScores(c.Context, service, matchID, c.App.Writer)
		},
	}
}

func newMigrateCommand() *cli.Command {
	withMigrator := func(fn func(m *migration.Migrator, c *cli.Context) error) cli.ActionFunc {
		return func(c *cli.Context) error {
			db, err := config.LoadDatabase()
			if err != nil {
				return err
			}
			dir, err := migration.ResolveDir()
			if err != nil {
				return err
			}
			m, err := migration.New(db.URL, dir)
			if err != nil {
				return err
			}
			defer func() { _ = m.Close() }()
			return fn(m, c)
		}
	}

	return &cli.Command{
		Name:  "migrate",
		Usage: "database migrations",
		Subcommands: []*cli.Command{
			{
				Name:  "up",
				Usage: "apply all pending migrations",
				Action: withMigrator(func(m *migration.Migrator, c *cli.Context) error {
					changed, err := m.Up()
					if err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "migrations applied from %s (changed=%t)\n", m.Source(), changed)
					return nil
				}),
			},
			{
				Name:      "down",
				Usage:     "roll back migrations",
				ArgsUsage: "[steps]",
				Action: withMigrator(func(m *migration.Migrator, c *cli.Context) error {
					steps, err := migration.ParseSteps(c.Args().Slice())
					if err != nil {
						return err
					}
					changed, err := m.Down(steps)
					if err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "migrations rolled back (changed=%t)\n", changed)
					return nil
				}),
			},
			{
				Name:  "version",
				Usage: "print the current schema version",
				Action: withMigrator(func(m *migration.Migrator, c *cli.Context) error {
					v, err := m.Version()
					if err != nil {
						return err
					}
					if !v.Applied {
						fmt.Fprintln(c.App.Writer, "no migration applied")
						return nil
					}
					fmt.Fprintf(c.App.Writer, "version=%d dirty=%t\n", v.Version, v.Dirty)
					return nil
				}),
			},
		},
	}
}

func buildService(ctx context.Context) (*usecase.MatchService, func() error, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	logger := logging.NewJSONTo(os.Stderr, cfg.LogLevel)
	return app.NewMatchService(ctx, cfg, logger, nil)
}

type exportTargets struct {
	CSVPath  string
	XLSXPath string
}

func runProcess(ctx context.Context, service *usecase.MatchService, ids []int64, targets exportTargets, out io.Writer) error {
	batch, batchErr := service.ProcessBatch(ctx, ids)
	if batchErr != nil && batch.RunID == "" {
		return batchErr
	}

	printBatch(out, batch)
	if batchErr != nil {
		if crerr.Is(batchErr, usecase.ErrNotFound) {
			return cli.Exit("no valid match data fetched", 1)
		}
		return batchErr
	}

	rows := export.Rows(batch.Matches)
	if path := strings.TrimSpace(targets.CSVPath); path != "" {
		if err := writeExportFile(path, rows, export.WriteCSV); err != nil {
			return err
		}
		fmt.Fprintf(out, "wrote %d rows to %s\n", len(rows), path)
	}
	if path := strings.TrimSpace(targets.XLSXPath); path != "" {
		if err := writeExportFile(path, rows, export.WriteXLSX); err != nil {
			return err
		}
		fmt.Fprintf(out, "wrote %d rows to %s\n", len(rows), path)
	}
	return nil
}

func runScores(ctx context.Context, service *usecase.MatchService, matchID int64, out io.Writer) error {
	records, err := service.ListScores(ctx, matchID)
	if err != nil {
		return err
	}
	for _, record := range records {
		fmt.Fprintf(out, "%s\t%s\t%d\n", record.PlayerName, record.Beatmap, record.Score)
	}
	return nil
}

func printBatch(out io.Writer, batch usecase.BatchResult) {
	fmt.Fprintf(out, "run %s: %d requested, %d stored, %d empty, %d not found, %d failed\n",
		batch.RunID, batch.Requested, batch.SuccessCount, batch.EmptyCount, batch.NotFoundCount, batch.FailedCount)
	for _, row := range batch.Matches {
		line := fmt.Sprintf("  %d %-9s rows=%d", row.MatchID, row.Status, row.Rows)
		if row.MatchName != "" {
			line += " " + strconv.Quote(row.MatchName)
		}
		if row.Error != "" {
			line += " error=" + row.Error
		}
		fmt.Fprintln(out, line)
	}
}

func writeExportFile(path string, rows []export.Row, write func(io.Writer, []export.Row) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return crerr.Wrapf(err, "create %s", path)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			err = crerr.CombineErrors(err, crerr.Wrapf(closeErr, "close %s", path))
		}
	}()

	return write(f, rows)
}
