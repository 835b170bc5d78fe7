// Package migration applies the SQL files under db/migrations with
// golang-migrate.
package migration

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	crerr "github.com/cockroachdb/errors"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

type Migrator struct {
	m      *migrate.Migrate
	source string
}

// Version is the schema version; Applied is false on an empty database.
type Version struct {
	Version uint
	Dirty   bool
	Applied bool
}

func New(dbURL, dir string) (*Migrator, error) {
	if strings.TrimSpace(dbURL) == "" {
		return nil, crerr.New("database url is required")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, crerr.Wrapf(err, "resolve migrations dir %q", dir)
	}

	source := "file://" + filepath.ToSlash(abs)
	m, err := migrate.New(source, dbURL)
	if err != nil {
		return nil, crerr.Wrap(err, "create migrator")
	}
	return &Migrator{m: m, source: source}, nil
}

func (mg *Migrator) Source() string {
	return mg.source
}

// Up applies all pending migrations. changed is false when nothing was pending.
func (mg *Migrator) Up() (changed bool, err error) {
	return ignoreNoChange(mg.m.Up())
}

func (mg *Migrator) Down(steps int) (bool, error) {
	if steps <= 0 {
		return false, crerr.New("down steps must be > 0")
	}
	return ignoreNoChange(mg.m.Steps(-steps))
}

func (mg *Migrator) Goto(target uint) (bool, error) {
	return ignoreNoChange(mg.m.Migrate(target))
}

func (mg *Migrator) Force(version int) error {
	if err := mg.m.Force(version); err != nil {
		return crerr.Wrapf(err, "force version %d", version)
	}
	return nil
}

func (mg *Migrator) Version() (Version, error) {
	version, dirty, err := mg.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return Version{}, nil
	}
	if err != nil {
		return Version{}, crerr.Wrap(err, "read version")
	}
	return Version{Version: version, Dirty: dirty, Applied: true}, nil
}

func (mg *Migrator) Close() error {
	srcErr, dbErr := mg.m.Close()
	return crerr.CombineErrors(srcErr, dbErr)
}

func ignoreNoChange(err error) (bool, error) {
	if err == nil {
		return true, nil
	}
	if errors.Is(err, migrate.ErrNoChange) {
		return false, nil
	}
	return false, err
}

// ResolveDir returns the first existing migrations directory out of
// MIGRATIONS_DIR, MIGRATIONS_PATH, ./db/migrations and /app/db/migrations.
func ResolveDir() (string, error) {
	candidates := []string{
		strings.TrimSpace(os.Getenv("MIGRATIONS_DIR")),
		strings.TrimSpace(os.Getenv("MIGRATIONS_PATH")),
		"./db/migrations",
		"/app/db/migrations",
	}

	for _, candidate := range candidates {
		if candidate == "" {
			continue
		}
		abs, err := filepath.Abs(candidate)
		if err != nil {
			continue
		}
		info, err := os.Stat(abs)
		if err != nil || !info.IsDir() {
			continue
		}
		return abs, nil
	}

	return "", crerr.New("migration directory not found (checked MIGRATIONS_DIR, MIGRATIONS_PATH, ./db/migrations, /app/db/migrations)")
}

// RepoDir locates db/migrations relative to this source file. Tests use it to
// provision throwaway databases.
func RepoDir() (string, error) {
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		return "", crerr.New("could not get caller file path")
	}
	return filepath.Clean(filepath.Join(filepath.Dir(file), "..", "..", "..", "db", "migrations")), nil
}

func ParseSteps(args []string) (int, error) {
	if len(args) == 0 {
		return 1, nil
	}

	steps, err := strconv.Atoi(strings.TrimSpace(args[0]))
	if err != nil {
		return 0, crerr.Wrapf(err, "invalid down steps %q", args[0])
	}
	if steps <= 0 {
		return 0, crerr.New("down steps must be > 0")
	}

	return steps, nil
}

func ParseVersion(raw string) (int, error) {
	value, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, crerr.Wrapf(err, "invalid version %q", raw)
	}
	if value < 0 {
		return 0, crerr.New("version must be >= 0")
	}
	if value > int64(^uint(0)>>1) {
		return 0, crerr.New("version is too large for this platform")
	}

	return int(value), nil
}

func ParseTarget(raw string) (uint, error) {
	value, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, crerr.Wrapf(err, "invalid target version %q", raw)
	}
	return uint(value), nil
}
