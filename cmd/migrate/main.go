package main

import (
	"bufio"
	"database/sql"
	"flag"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/booksexchange/booksexchange-api/internal/config"
	"github.com/booksexchange/booksexchange-api/internal/pkg/database"
)

// Applies pending SQL migrations in filename order. Each file may carry a
// "-- +migrate Down" marker; everything below it is ignored here and exists
// for manual rollback.
func main() {
	dir := flag.String("dir", "migrations", "directory containing *.sql migration files")
	flag.Parse()

	cfg := config.Load()

	db, err := database.NewPostgres(cfg.DatabaseURL, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (filename text PRIMARY KEY, applied_at timestamptz DEFAULT now())`); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure schema_migrations table")
	}

	files, err := filepath.Glob(filepath.Join(*dir, "*.sql"))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list migration files")
	}
	sort.Strings(files)

	applied := 0
	for _, file := range files {
		filename := filepath.Base(file)

		var exists bool
		if err := db.Get(&exists, `SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE filename = $1)`, filename); err != nil {
			log.Fatal().Err(err).Msg("Failed to read migration state")
		}
		if exists {
			continue
		}

		if err := applyFile(db, file); err != nil {
			log.Fatal().Err(err).Str("file", filename).Msg("Migration failed")
		}
		if _, err := db.Exec(`INSERT INTO schema_migrations (filename) VALUES ($1)`, filename); err != nil {
			log.Fatal().Err(err).Str("file", filename).Msg("Failed to record migration")
		}

		log.Info().Str("file", filename).Msg("Applied migration")
		applied++
	}

	log.Info().Int("applied", applied).Int("total", len(files)).Msg("Migrations up to date")
}

func applyFile(db execer, path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	// Only the section above the down marker is executed.
	up, _, _ := strings.Cut(string(content), "-- +migrate Down")

	for _, stmt := range splitSQL(up) {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// splitSQL breaks a migration section into individual statements. Full-line
// comments are dropped; a statement ends on the first line containing a
// semicolon, so function bodies with embedded semicolons are not supported.
func splitSQL(sqlText string) []string {
	var statements []string
	var current strings.Builder

	scanner := bufio.NewScanner(strings.NewReader(sqlText))
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		current.WriteString(line)
		current.WriteRune('\n')
		if strings.Contains(line, ";") {
			statements = append(statements, current.String())
			current.Reset()
		}
	}
	if strings.TrimSpace(current.String()) != "" {
		statements = append(statements, current.String())
	}
	return statements
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}
