package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/kirillkom/bpx-import-service/internal/core/domain"
)

const (
	profilesTable = "bluebeam_profiles"
	toolsetsTable = "bluebeam_toolsets"
	toolsTable    = "bluebeam_tools"
	presetsTable  = "presets"
)

// RecordStore writes import records through PostgREST.
type RecordStore struct {
	client *Client
}

func NewRecordStore(client *Client) *RecordStore {
	return &RecordStore{client: client}
}

type profileRow struct {
	ProjectID      string    `json:"project_id"`
	SourceFilename string    `json:"source_filename"`
	CreatedBy      string    `json:"created_by,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

type toolsetRow struct {
	ProfileID  string  `json:"profile_id"`
	Title      string  `json:"title"`
	SortIndex  int     `json:"sort_index"`
	SourcePath *string `json:"source_path"`
}

type toolRow struct {
	ToolsetID  string             `json:"toolset_id"`
	Name       string             `json:"name"`
	Kind       string             `json:"tool_kind"`
	SortIndex  int                `json:"sort_index"`
	RawDecoded string             `json:"raw_decoded"`
	Style      domain.Style       `json:"style_json"`
	Mapping    domain.ToolMapping `json:"mapping_json"`
}

type presetRow struct {
	ProjectID   string             `json:"project_id"`
	ProfileID   string             `json:"source_profile_id"`
	ToolID      string             `json:"source_tool_id"`
	Name        string             `json:"name"`
	Kind        string             `json:"tool_type"`
	Category    string             `json:"category"`
	Style       domain.PresetStyle `json:"style_json"`
	DefaultTags domain.PresetTags  `json:"default_tags_json"`
	SortIndex   int                `json:"sort_index"`
}

func (s *RecordStore) CreateProfile(ctx context.Context, profile *domain.Profile) error {
	id, err := s.insert(ctx, profilesTable, profileRow{
		ProjectID:      profile.ProjectID,
		SourceFilename: profile.SourceFilename,
		CreatedBy:      profile.CreatedBy,
		CreatedAt:      profile.CreatedAt,
	})
	if err != nil {
		return err
	}
	profile.ID = id
	return nil
}

func (s *RecordStore) CreateToolset(ctx context.Context, toolset *domain.Toolset) error {
	id, err := s.insert(ctx, toolsetsTable, toolsetRow{
		ProfileID: toolset.ProfileID,
		Title:     toolset.Title,
		SortIndex: toolset.SortIndex,
	})
	if err != nil {
		return err
	}
	toolset.ID = id
	return nil
}

func (s *RecordStore) CreateTool(ctx context.Context, tool *domain.Tool) error {
	id, err := s.insert(ctx, toolsTable, toolRow{
		ToolsetID:  tool.ToolsetID,
		Name:       tool.Name,
		Kind:       string(tool.Kind),
		SortIndex:  tool.SortIndex,
		RawDecoded: tool.RawDecoded,
		Style:      tool.Style,
		Mapping:    tool.Mapping,
	})
	if err != nil {
		return err
	}
	tool.ID = id
	return nil
}

func (s *RecordStore) CreatePreset(ctx context.Context, preset *domain.Preset) error {
	id, err := s.insert(ctx, presetsTable, presetRow{
		ProjectID:   preset.ProjectID,
		ProfileID:   preset.ProfileID,
		ToolID:      preset.ToolID,
		Name:        preset.Name,
		Kind:        string(preset.Kind),
		Category:    preset.Category,
		Style:       preset.Style,
		DefaultTags: preset.DefaultTags,
		SortIndex:   preset.SortIndex,
	})
	if err != nil {
		return err
	}
	preset.ID = id
	return nil
}

// DeleteProfileImports relies on the toolset -> tool cascade of the schema.
func (s *RecordStore) DeleteProfileImports(ctx context.Context, profileID string) error {
	id := url.QueryEscape(profileID)
	steps := []struct {
		table  string
		filter string
	}{
		{presetsTable, "source_profile_id=eq." + id},
		{toolsetsTable, "profile_id=eq." + id},
		{profilesTable, "id=eq." + id},
	}
	for _, step := range steps {
		if err := s.delete(ctx, step.table, step.filter); err != nil {
			return err
		}
	}
	return nil
}

func (s *RecordStore) insert(ctx context.Context, table string, row any) (string, error) {
	// A replayed insert after a 5xx or timeout could duplicate the row.
	body, err := s.client.do(ctx, request{
		operation:     "insert." + table,
		method:        http.MethodPost,
		url:           s.client.baseURL + "/rest/v1/" + table,
		payload:       row,
		headers:       map[string]string{"Prefer": "return=representation"},
		nonIdempotent: true,
	})
	if err != nil {
		return "", fmt.Errorf("insert %s: %w", table, err)
	}
	id, err := createdID(body)
	if err != nil {
		return "", fmt.Errorf("insert %s: %w", table, err)
	}
	return id, nil
}

func (s *RecordStore) delete(ctx context.Context, table, filter string) error {
	_, err := s.client.do(ctx, request{
		operation: "delete." + table,
		method:    http.MethodDelete,
		url:       s.client.baseURL + "/rest/v1/" + table + "?" + filter,
	})
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("delete %s: %w", table, err)
	}
	return nil
}

// createdID reads the id of the first row PostgREST returned. IDs may be
// UUID strings or integers.
func createdID(body []byte) (string, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var rows []map[string]any
	if err := dec.Decode(&rows); err != nil {
		return "", fmt.Errorf("decode created row: %w", err)
	}
	if len(rows) == 0 {
		return "", errors.New("no row returned")
	}
	switch id := rows[0]["id"].(type) {
	case string:
		if id != "" {
			return id, nil
		}
	case json.Number:
		return id.String(), nil
	}
	return "", errors.New("created row has no id")
}
