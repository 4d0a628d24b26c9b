package storage

import (
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// MigrateUp brings the settings schema to the latest embedded step. The
// applied step number is kept in SQLite's user_version pragma, so opening
// an up-to-date database reapplies nothing.
func MigrateUp(db *sql.DB) error {
	current, err := schemaVersion(db)
	if err != nil {
		return err
	}
	steps, err := migrationSteps(".up.sql")
	if err != nil {
		return err
	}
	for _, step := range steps {
		if step.version <= current {
			continue
		}
		if err := applyStep(db, step, step.version); err != nil {
			return err
		}
	}
	return nil
}

// MigrateDown unwinds every applied step, newest first.
func MigrateDown(db *sql.DB) error {
	current, err := schemaVersion(db)
	if err != nil {
		return err
	}
	steps, err := migrationSteps(".down.sql")
	if err != nil {
		return err
	}
	for i := len(steps) - 1; i >= 0; i-- {
		if steps[i].version > current {
			continue
		}
		if err := applyStep(db, steps[i], steps[i].version-1); err != nil {
			return err
		}
	}
	return nil
}

type migrationStep struct {
	name    string
	version int
}

func migrationSteps(suffix string) ([]migrationStep, error) {
	entries, err := fs.Glob(migrationFiles, "migrations/*"+suffix)
	if err != nil {
		return nil, fmt.Errorf("glob migrations: %w", err)
	}
	sort.Strings(entries)
	steps := make([]migrationStep, 0, len(entries))
	for _, name := range entries {
		numeric, _, ok := strings.Cut(path.Base(name), "_")
		if !ok {
			return nil, fmt.Errorf("migration %s has no numeric prefix", name)
		}
		version, convErr := strconv.Atoi(numeric)
		if convErr != nil {
			return nil, fmt.Errorf("migration %s has no numeric prefix: %w", name, convErr)
		}
		steps = append(steps, migrationStep{name: name, version: version})
	}
	return steps, nil
}

func applyStep(db *sql.DB, step migrationStep, nextVersion int) error {
	sqlBytes, err := migrationFiles.ReadFile(step.name)
	if err != nil {
		return fmt.Errorf("read migration %s: %w", step.name, err)
	}
	if _, err := db.Exec(string(sqlBytes)); err != nil {
		return fmt.Errorf("apply migration %s: %w", step.name, err)
	}
	return setSchemaVersion(db, nextVersion)
}

func schemaVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return version, nil
}

func setSchemaVersion(db *sql.DB, version int) error {
	// PRAGMA does not take bound parameters; version is always an integer
	// derived from the embedded file names.
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", version)); err != nil {
		return fmt.Errorf("record schema version %d: %w", version, err)
	}
	return nil
}
