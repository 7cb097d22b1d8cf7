package sqldb

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/pkg/logger"
)

//go:embed migrations
var embeddedMigrations embed.FS

// MigrationSource returns the migrations for the connection's dialect. A
// non-empty dir overrides the embedded files with a directory on disk.
func MigrationSource(dialect Dialect, dir string) (fs.FS, error) {
	if dir != "" {
		return os.DirFS(dir), nil
	}
	return fs.Sub(embeddedMigrations, path.Join("migrations", string(dialect)))
}

// RunMigrations applies every *.up.sql file in lexical order, each in its own
// transaction, and records applied names in the migrations table.
func RunMigrations(ctx context.Context, conn *Connection, migrations fs.FS, log *logger.Logger) error {
	db := conn.db

	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS migrations (
			name       VARCHAR(255) PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	var names []string
	if err := db.SelectContext(ctx, &names, "SELECT name FROM migrations"); err != nil {
		return fmt.Errorf("failed to query migrations table: %w", err)
	}
	applied := make(map[string]bool, len(names))
	for _, name := range names {
		applied[name] = true
	}

	entries, err := fs.ReadDir(migrations, ".")
	if err != nil {
		return fmt.Errorf("failed to read migrations: %w", err)
	}

	var pending []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".up.sql") && !applied[entry.Name()] {
			pending = append(pending, entry.Name())
		}
	}
	sort.Strings(pending)

	for _, name := range pending {
		content, err := fs.ReadFile(migrations, name)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", name, err)
		}

		tx, err := db.BeginTxx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}

		if _, err := tx.ExecContext(ctx, string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("error executing migration %s: %w", name, err)
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind("INSERT INTO migrations (name) VALUES (?)"), name); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %s: %w", name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %s: %w", name, err)
		}

		log.Info("Applied migration", "name", name, "dialect", string(conn.dialect))
	}

	return nil
}
