package bpx

import (
	"reflect"
	"testing"
)

func TestExtractAllFields(t *testing.T) {
	fields := Extract("/Subj(Wall Area) /IT/AnnotationPolygon /CA 0.5 /LW 2 /C [1 0 0] /IC [0 1 0] /D [2 2]")

	if fields.Subject == nil || *fields.Subject != "Wall Area" {
		t.Fatalf("unexpected subject: %v", fields.Subject)
	}
	if fields.TypeToken == nil || *fields.TypeToken != "AnnotationPolygon" {
		t.Fatalf("unexpected type token: %v", fields.TypeToken)
	}
	style := fields.Style
	if !reflect.DeepEqual(style.StrokeRGB, []float64{1, 0, 0}) {
		t.Fatalf("unexpected stroke: %v", style.StrokeRGB)
	}
	if !reflect.DeepEqual(style.FillRGB, []float64{0, 1, 0}) {
		t.Fatalf("unexpected fill: %v", style.FillRGB)
	}
	if style.Opacity == nil || *style.Opacity != 0.5 {
		t.Fatalf("unexpected opacity: %v", style.Opacity)
	}
	if style.LineWidth == nil || *style.LineWidth != 2 {
		t.Fatalf("unexpected line width: %v", style.LineWidth)
	}
	if !reflect.DeepEqual(style.Dash, []float64{2, 2}) {
		t.Fatalf("unexpected dash: %v", style.Dash)
	}
	if got := NewClassifier().Classify(fields.TypeToken); got != "area" {
		t.Fatalf("expected area, got %s", got)
	}
}

func TestExtractCompactDictionary(t *testing.T) {
	fields := Extract("<</Type/Annot/Subj(Duct Run)/IT/PolyLineDimension/C[0.25 0.5 0.75 1]/CA 1/BS<</W 3/D[6 3 1]>>/LW 1.5>>")

	if fields.Subject == nil || *fields.Subject != "Duct Run" {
		t.Fatalf("unexpected subject: %v", fields.Subject)
	}
	if !reflect.DeepEqual(fields.Style.StrokeRGB, []float64{0.25, 0.5, 0.75}) {
		t.Fatalf("expected stroke truncated to three components, got %v", fields.Style.StrokeRGB)
	}
	if !reflect.DeepEqual(fields.Style.Dash, []float64{6, 3, 1}) {
		t.Fatalf("unexpected dash: %v", fields.Style.Dash)
	}
	if fields.Style.LineWidth == nil || *fields.Style.LineWidth != 1.5 {
		t.Fatalf("unexpected line width: %v", fields.Style.LineWidth)
	}
}

func TestExtractMissingKeys(t *testing.T) {
	fields := Extract("<</Type/Annot/Rect[0 0 10 10]>>")
	if fields.Subject != nil || fields.TypeToken != nil {
		t.Fatalf("expected no subject/type, got %v %v", fields.Subject, fields.TypeToken)
	}
	if !reflect.DeepEqual(fields.Style, Extract("").Style) {
		t.Fatalf("expected empty style, got %+v", fields.Style)
	}
}

func TestExtractShortColorArrayIsNotPadded(t *testing.T) {
	fields := Extract("/IC [0.5]")
	if !reflect.DeepEqual(fields.Style.FillRGB, []float64{0.5}) {
		t.Fatalf("expected single component, got %v", fields.Style.FillRGB)
	}
}

func TestExtractMalformedNumbersDropKey(t *testing.T) {
	fields := Extract("/C [1 x 0] /CA 0.5.1 /LW 3 /D []")
	if fields.Style.StrokeRGB != nil {
		t.Fatalf("expected stroke dropped, got %v", fields.Style.StrokeRGB)
	}
	if fields.Style.Opacity != nil {
		t.Fatalf("expected opacity dropped, got %v", *fields.Style.Opacity)
	}
	if fields.Style.Dash != nil {
		t.Fatalf("expected empty dash dropped, got %v", fields.Style.Dash)
	}
	if fields.Style.LineWidth == nil || *fields.Style.LineWidth != 3 {
		t.Fatalf("expected line width kept, got %v", fields.Style.LineWidth)
	}
}

func TestExtractSubjectStopsAtFirstCloseParen(t *testing.T) {
	fields := Extract(`/Subj(Door \(Single\) Count)`)
	if fields.Subject == nil || *fields.Subject != `Door \(Single\` {
		t.Fatalf("expected truncated subject, got %v", fields.Subject)
	}
}
