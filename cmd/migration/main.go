package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/riskibarqy/match-hub/internal/config"
	"github.com/riskibarqy/match-hub/internal/platform/logging"
	"github.com/riskibarqy/match-hub/internal/platform/migration"
)

func main() {
	logger := logging.NewJSON(logging.ParseLevel(os.Getenv("LOG_LEVEL")))
	defer func() {
		_ = logger.Sync()
	}()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(2)
	}

	db, err := config.LoadDatabase()
	if err != nil {
		fatal(logger, "load database config", err)
	}

	migrationsDir, err := migration.ResolveDir()
	if err != nil {
		fatal(logger, "resolve migrations dir", err)
	}

	m, err := migration.New(db.URL, migrationsDir)
	if err != nil {
		fatal(logger, "create migrator", err)
	}
	defer func() {
		if err := m.Close(); err != nil {
			logger.Warn("close migrator", "error", err)
		}
	}()

	cmd := strings.ToLower(strings.TrimSpace(os.Args[1]))
	switch cmd {
	case "up":
		changed, err := m.Up()
		if err != nil {
			fatal(logger, "apply migrations", err)
		}
		logger.Info("migrations applied", "source", m.Source(), "changed", changed)
	case "down":
		steps, err := migration.ParseSteps(os.Args[2:])
		if err != nil {
			fatal(logger, "parse steps", err)
		}
		changed, err := m.Down(steps)
		if err != nil {
			fatal(logger, "roll back migrations", err)
		}
		logger.Info("migrations rolled back", "steps", steps, "changed", changed)
	case "version":
		v, err := m.Version()
		if err != nil {
			fatal(logger, "read version", err)
		}
		if !v.Applied {
			fmt.Println("version: none")
			fmt.Println("dirty: false")
			return
		}
		fmt.Printf("version: %d\n", v.Version)
		fmt.Printf("dirty: %t\n", v.Dirty)
	case "force":
		if len(os.Args) < 3 {
			fatal(logger, "force requires a version argument", nil)
		}
		version, err := migration.ParseVersion(os.Args[2])
		if err != nil {
			fatal(logger, "parse version", err)
		}
		if err := m.Force(version); err != nil {
			fatal(logger, "force version", err)
		}
		logger.Info("forced version", "version", version)
	case "goto", "migrate":
		if len(os.Args) < 3 {
			fatal(logger, "goto requires a target version argument", nil)
		}
		target, err := migration.ParseTarget(os.Args[2])
		if err != nil {
			fatal(logger, "parse target", err)
		}
		changed, err := m.Goto(target)
		if err != nil {
			fatal(logger, "migrate to target", err)
		}
		logger.Info("migrated to version", "version", target, "changed", changed)
	default:
		printUsage()
		os.Exit(2)
	}
}

func fatal(logger *logging.Logger, msg string, err error) {
	if err != nil {
		logger.Error(msg, "error", err)
	} else {
		logger.Error(msg)
	}
	_ = logger.Sync()
	os.Exit(1)
}

func printUsage() {
	name := filepath.Base(os.Args[0])
	fmt.Fprintf(os.Stderr, "usage: %s <up|down|version|force|goto> [args]\n", name)
	fmt.Fprintln(os.Stderr, "examples:")
	fmt.Fprintf(os.Stderr, "  %s up\n", name)
	fmt.Fprintf(os.Stderr, "  %s down 1\n", name)
	fmt.Fprintf(os.Stderr, "  %s version\n", name)
	fmt.Fprintf(os.Stderr, "  %s force 1\n", name)
	fmt.Fprintf(os.Stderr, "  %s goto 1\n", name)
}
