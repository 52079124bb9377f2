package domain

import "time"

// MeasurementKind is the semantic category an imported tool maps to.
type MeasurementKind string

const (
	KindLength MeasurementKind = "length"
	KindArea   MeasurementKind = "area"
	KindCount  MeasurementKind = "count"
	KindSkip   MeasurementKind = "skip"
)

func (k MeasurementKind) Valid() bool {
	switch k {
	case KindLength, KindArea, KindCount, KindSkip:
		return true
	default:
		return false
	}
}

// ReimportPolicy decides what happens to earlier imports of the same profile.
type ReimportPolicy string

const (
	// PolicyVersion always creates a fresh profile and keeps prior imports as history.
	PolicyVersion ReimportPolicy = "version"
	// PolicyReplace clears the prior profile's toolsets and presets before importing.
	PolicyReplace ReimportPolicy = "replace"
)

// ImportJob is one import request. It lives only for the duration of a run.
type ImportJob struct {
	ID             string `json:"id"`
	ProjectID      string `json:"project_id"`
	PriorProfileID string `json:"profile_id,omitempty"`
	StorageBucket  string `json:"storage_bucket"`
	StoragePath    string `json:"storage_path"`
	CreatedBy      string `json:"created_by,omitempty"`
	// RequestedAt is set when the job is queued for a worker.
	RequestedAt time.Time `json:"requested_at,omitzero"`
}

type Profile struct {
	ID             string    `json:"id"`
	ProjectID      string    `json:"project_id"`
	SourceFilename string    `json:"source_filename"`
	CreatedBy      string    `json:"created_by,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

type Toolset struct {
	ID        string `json:"id"`
	ProfileID string `json:"profile_id"`
	Title     string `json:"title"`
	SortIndex int    `json:"sort_index"`
}

// Style is the appearance subset kept from an annotation dictionary.
type Style struct {
	StrokeRGB []float64 `json:"stroke_rgb,omitempty"`
	FillRGB   []float64 `json:"fill_rgb,omitempty"`
	Opacity   *float64  `json:"opacity,omitempty"`
	LineWidth *float64  `json:"line_width,omitempty"`
	Dash      []float64 `json:"dash,omitempty"`
}

// ToolMapping records where a tool's classification came from.
type ToolMapping struct {
	TypeToken string `json:"it,omitempty"`
	Source    string `json:"source"`
	Toolset   string `json:"toolset"`
}

type Tool struct {
	ID         string          `json:"id"`
	ToolsetID  string          `json:"toolset_id"`
	Name       string          `json:"name"`
	Kind       MeasurementKind `json:"tool_kind"`
	SortIndex  int             `json:"sort_index"`
	RawDecoded string          `json:"raw_decoded"`
	Style      Style           `json:"style_json"`
	Mapping    ToolMapping     `json:"mapping_json"`
}

// PresetStyle is a tool style tagged with its import origin.
type PresetStyle struct {
	Style
	ImportedFrom string `json:"imported_from"`
}

type PresetTags struct {
	ImportedFrom string `json:"imported_from"`
	Toolset      string `json:"toolset"`
}

type Preset struct {
	ID          string          `json:"id"`
	ProjectID   string          `json:"project_id"`
	ProfileID   string          `json:"source_profile_id"`
	ToolID      string          `json:"source_tool_id"`
	Name        string          `json:"name"`
	Kind        MeasurementKind `json:"tool_type"`
	Category    string          `json:"category"`
	Style       PresetStyle     `json:"style_json"`
	DefaultTags PresetTags      `json:"default_tags_json"`
	SortIndex   int             `json:"sort_index"`
}

// PresetSortStride separates toolsets in the global preset ordering.
const PresetSortStride = 1000

// PresetSortIndex orders presets across toolsets without collisions below PresetSortStride tools.
func PresetSortIndex(toolsetIndex, toolIndex int) int {
	return toolsetIndex*PresetSortStride + toolIndex
}

type ImportSummary struct {
	ProfileID    string   `json:"profile_id"`
	ToolsetCount int      `json:"toolsets_imported"`
	ToolCount    int      `json:"tools_imported"`
	PresetCount  int      `json:"presets_created"`
	Warnings     []string `json:"warnings"`
}
