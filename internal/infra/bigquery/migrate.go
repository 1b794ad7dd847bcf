package bigquery

import (
	"context"
	"crypto/sha256"
	"embed"
	"fmt"
	"io/fs"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/rutwin/cashflow/internal/logger"
)

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

const schemaMigrationsTable = "schema_migrations"

// migrationName matches files such as 0001_create_transactions.sql.
var migrationName = regexp.MustCompile(`^(\d{4})_(.+)\.sql$`)

// Migration is one versioned DDL file.
type Migration struct {
	Version  int
	Name     string
	SQL      string
	Checksum string
}

// AppliedMigration is a row of schema_migrations.
type AppliedMigration struct {
	Version   int
	Name      string
	AppliedAt time.Time
	Checksum  string
	AppliedBy string
}

// Migrations returns the schema migrations shipped with the binary.
func Migrations(projectID, datasetID string) ([]Migration, error) {
	sub, err := fs.Sub(embeddedMigrations, "migrations")
	if err != nil {
		return nil, fmt.Errorf("Migrations: %w", err)
	}
	return LoadMigrations(sub, projectID, datasetID)
}

// LoadMigrations reads every NNNN_name.sql file at the root of fsys, sorted
// by version. {{PROJECT_ID}} and {{DATASET_ID}} are substituted; the checksum
// is taken before substitution so it does not depend on the target dataset.
func LoadMigrations(fsys fs.FS, projectID, datasetID string) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("LoadMigrations: %w", err)
	}

	seen := make(map[int]string)
	var migrations []Migration
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		m := migrationName.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		version, err := strconv.Atoi(m[1])
		if err != nil {
			return nil, fmt.Errorf("LoadMigrations: %s: %w", entry.Name(), err)
		}
		if prev, dup := seen[version]; dup {
			return nil, fmt.Errorf("LoadMigrations: version %04d used by %s and %s", version, prev, entry.Name())
		}
		seen[version] = entry.Name()

		content, err := fs.ReadFile(fsys, entry.Name())
		if err != nil {
			return nil, fmt.Errorf("LoadMigrations: reading %s: %w", entry.Name(), err)
		}
		sql := strings.ReplaceAll(string(content), "{{PROJECT_ID}}", projectID)
		sql = strings.ReplaceAll(sql, "{{DATASET_ID}}", datasetID)

		migrations = append(migrations, Migration{
			Version:  version,
			Name:     m[2],
			SQL:      sql,
			Checksum: fmt.Sprintf("%x", sha256.Sum256(content)),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}

// PendingMigrations returns the migrations whose version has not been
// applied. A recorded checksum that no longer matches its file is an error:
// applied migrations must not be edited.
func PendingMigrations(all []Migration, applied []AppliedMigration) ([]Migration, error) {
	done := make(map[int]AppliedMigration, len(applied))
	for _, a := range applied {
		done[a.Version] = a
	}

	var pending []Migration
	for _, m := range all {
		a, ok := done[m.Version]
		if !ok {
			pending = append(pending, m)
			continue
		}
		if a.Checksum != "" && a.Checksum != m.Checksum {
			return nil, fmt.Errorf("PendingMigrations: %04d_%s changed after it was applied", m.Version, m.Name)
		}
	}
	return pending, nil
}

// Migrate applies every pending embedded migration and records it in
// schema_migrations. With dryRun set nothing is executed. It returns the
// migrations that were (or would be) applied.
func (s *Store) Migrate(ctx context.Context, appliedBy string, dryRun bool) ([]Migration, error) {
	log := logger.FromContext(ctx)

	all, err := Migrations(s.projectID, s.datasetID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureSchemaMigrationsTable(ctx); err != nil {
		return nil, fmt.Errorf("Migrate: %w", err)
	}
	applied, err := s.appliedMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("Migrate: %w", err)
	}
	pending, err := PendingMigrations(all, applied)
	if err != nil {
		return nil, err
	}

	for _, m := range pending {
		l := log.With().Int("version", m.Version).Str("name", m.Name).Logger()
		if dryRun {
			l.Info().Msg("Would apply migration")
			continue
		}
		if err := runAndWait(ctx, s.client.Query(m.SQL)); err != nil {
			return nil, fmt.Errorf("Migrate: %04d_%s: %w", m.Version, m.Name, err)
		}
		if err := s.recordMigration(ctx, m, appliedBy); err != nil {
			return nil, fmt.Errorf("Migrate: recording %04d_%s: %w", m.Version, m.Name, err)
		}
		l.Info().Msg("Applied migration")
	}
	return pending, nil
}

func (s *Store) ensureSchemaMigrationsTable(ctx context.Context) error {
	q := s.client.Query(fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			version    INT64 NOT NULL,
			name       STRING NOT NULL,
			applied_at TIMESTAMP NOT NULL,
			checksum   STRING,
			applied_by STRING
		)
	`, s.table(schemaMigrationsTable)))
	return runAndWait(ctx, q)
}

func (s *Store) appliedMigrations(ctx context.Context) ([]AppliedMigration, error) {
	q := s.client.Query(fmt.Sprintf(`
		SELECT version, name, applied_at, checksum, applied_by
		FROM %s
		ORDER BY version ASC
	`, s.table(schemaMigrationsTable)))

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading applied migrations: %w", err)
	}

	var applied []AppliedMigration
	for {
		var row struct {
			Version   int64               `bigquery:"version"`
			Name      string              `bigquery:"name"`
			AppliedAt time.Time           `bigquery:"applied_at"`
			Checksum  bigquery.NullString `bigquery:"checksum"`
			AppliedBy bigquery.NullString `bigquery:"applied_by"`
		}
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterating applied migrations: %w", err)
		}
		applied = append(applied, AppliedMigration{
			Version:   int(row.Version),
			Name:      row.Name,
			AppliedAt: row.AppliedAt,
			Checksum:  row.Checksum.StringVal,
			AppliedBy: row.AppliedBy.StringVal,
		})
	}
	return applied, nil
}

func (s *Store) recordMigration(ctx context.Context, m Migration, appliedBy string) error {
	q := s.client.Query(fmt.Sprintf(`
		INSERT INTO %s (version, name, applied_at, checksum, applied_by)
		VALUES (@version, @name, CURRENT_TIMESTAMP(), @checksum, @applied_by)
	`, s.table(schemaMigrationsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "version", Value: m.Version},
		{Name: "name", Value: m.Name},
		{Name: "checksum", Value: m.Checksum},
		{Name: "applied_by", Value: appliedBy},
	}
	return runAndWait(ctx, q)
}
