package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kirillkom/bpx-import-service/internal/core/domain"
)

// ImportRepository stores import records directly in PostgreSQL, using the
// same tables the PostgREST record store writes to.
type ImportRepository struct {
	db *sql.DB
}

func NewImportRepository(db *sql.DB) *ImportRepository {
	return &ImportRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *ImportRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026101801)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS bluebeam_profiles (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	project_id TEXT NOT NULL,
	source_filename TEXT NOT NULL,
	created_by TEXT,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS bluebeam_toolsets (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	profile_id UUID NOT NULL REFERENCES bluebeam_profiles(id) ON DELETE CASCADE,
	title TEXT NOT NULL,
	sort_index INTEGER NOT NULL,
	source_path TEXT,
	UNIQUE (profile_id, sort_index)
);

CREATE TABLE IF NOT EXISTS bluebeam_tools (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	toolset_id UUID NOT NULL REFERENCES bluebeam_toolsets(id) ON DELETE CASCADE,
	name TEXT NOT NULL,
	tool_kind TEXT NOT NULL CHECK (tool_kind IN ('length', 'area', 'count')),
	sort_index INTEGER NOT NULL,
	raw_decoded TEXT,
	style_json JSONB NOT NULL DEFAULT '{}'::jsonb,
	mapping_json JSONB NOT NULL DEFAULT '{}'::jsonb,
	UNIQUE (toolset_id, sort_index)
);

CREATE TABLE IF NOT EXISTS presets (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	project_id TEXT NOT NULL,
	source_profile_id UUID,
	source_tool_id UUID REFERENCES bluebeam_tools(id) ON DELETE SET NULL,
	name TEXT NOT NULL,
	tool_type TEXT NOT NULL,
	category TEXT,
	style_json JSONB NOT NULL DEFAULT '{}'::jsonb,
	default_tags_json JSONB NOT NULL DEFAULT '{}'::jsonb,
	sort_index INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_profiles_project ON bluebeam_profiles(project_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_presets_project_sort ON presets(project_id, sort_index);
CREATE INDEX IF NOT EXISTS idx_presets_source_profile ON presets(source_profile_id);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *ImportRepository) CreateProfile(ctx context.Context, profile *domain.Profile) error {
	err := r.db.QueryRowContext(ctx, `
INSERT INTO bluebeam_profiles (project_id, source_filename, created_by, created_at)
VALUES ($1,$2,$3,$4)
RETURNING id
`, profile.ProjectID, profile.SourceFilename, nullIfEmpty(profile.CreatedBy), profile.CreatedAt).Scan(&profile.ID)
	if err != nil {
		return fmt.Errorf("insert profile: %w", err)
	}
	return nil
}

func (r *ImportRepository) CreateToolset(ctx context.Context, toolset *domain.Toolset) error {
	err := r.db.QueryRowContext(ctx, `
INSERT INTO bluebeam_toolsets (profile_id, title, sort_index)
VALUES ($1,$2,$3)
RETURNING id
`, toolset.ProfileID, toolset.Title, toolset.SortIndex).Scan(&toolset.ID)
	if err != nil {
		return fmt.Errorf("insert toolset: %w", err)
	}
	return nil
}

func (r *ImportRepository) CreateTool(ctx context.Context, tool *domain.Tool) error {
	styleJSON, err := json.Marshal(tool.Style)
	if err != nil {
		return fmt.Errorf("marshal tool style: %w", err)
	}
	mappingJSON, err := json.Marshal(tool.Mapping)
	if err != nil {
		return fmt.Errorf("marshal tool mapping: %w", err)
	}

	err = r.db.QueryRowContext(ctx, `
INSERT INTO bluebeam_tools (toolset_id, name, tool_kind, sort_index, raw_decoded, style_json, mapping_json)
VALUES ($1,$2,$3,$4,$5,$6,$7)
RETURNING id
`, tool.ToolsetID, tool.Name, string(tool.Kind), tool.SortIndex, tool.RawDecoded, styleJSON, mappingJSON).Scan(&tool.ID)
	if err != nil {
		return fmt.Errorf("insert tool: %w", err)
	}
	return nil
}

func (r *ImportRepository) CreatePreset(ctx context.Context, preset *domain.Preset) error {
	styleJSON, err := json.Marshal(preset.Style)
	if err != nil {
		return fmt.Errorf("marshal preset style: %w", err)
	}
	tagsJSON, err := json.Marshal(preset.DefaultTags)
	if err != nil {
		return fmt.Errorf("marshal preset tags: %w", err)
	}

	err = r.db.QueryRowContext(ctx, `
INSERT INTO presets (project_id, source_profile_id, source_tool_id, name, tool_type, category, style_json, default_tags_json, sort_index)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
RETURNING id
`, preset.ProjectID, preset.ProfileID, preset.ToolID, preset.Name, string(preset.Kind), preset.Category,
		styleJSON, tagsJSON, preset.SortIndex,
	).Scan(&preset.ID)
	if err != nil {
		return fmt.Errorf("insert preset: %w", err)
	}
	return nil
}

// DeleteProfileImports removes a profile and everything imported under it in
// one transaction. Tools go with their toolsets through the cascade.
func (r *ImportRepository) DeleteProfileImports(ctx context.Context, profileID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	statements := []struct {
		name  string
		query string
	}{
		{"presets", `DELETE FROM presets WHERE source_profile_id = $1`},
		{"toolsets", `DELETE FROM bluebeam_toolsets WHERE profile_id = $1`},
		{"profile", `DELETE FROM bluebeam_profiles WHERE id = $1`},
	}
	for _, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt.query, profileID); err != nil {
			return fmt.Errorf("delete %s: %w", stmt.name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete tx: %w", err)
	}
	return nil
}

func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
