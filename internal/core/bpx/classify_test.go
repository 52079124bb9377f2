package bpx

import (
	"testing"

	"github.com/kirillkom/bpx-import-service/internal/core/domain"
)

func strPtr(s string) *string { return &s }

func TestClassifyBuiltInTable(t *testing.T) {
	c := NewClassifier()
	cases := map[string]domain.MeasurementKind{
		"PolyLine":              domain.KindLength,
		"AnnotationPolyLine":    domain.KindLength,
		"PolyLineDimension":     domain.KindLength,
		"LineDimension":         domain.KindLength,
		"Polygon":               domain.KindArea,
		"AnnotationPolygon":     domain.KindArea,
		"Square":                domain.KindArea,
		"PolygonCloud":          domain.KindCount,
		"Count":                 domain.KindCount,
		"Stamp":                 domain.KindSkip,
		"FreeTextCallout":       domain.KindSkip,
		"Circle":                domain.KindSkip,
		"SomethingNew":          domain.KindCount,
		"Bluebeam.Revu.Polygon": domain.KindArea,
		"vendor.annot.STAMP":    domain.KindSkip,
	}
	for token, want := range cases {
		if got := c.Classify(strPtr(token)); got != want {
			t.Fatalf("Classify(%q) = %s, want %s", token, got, want)
		}
	}
}

func TestClassifyMissingToken(t *testing.T) {
	c := NewClassifier()
	if got := c.Classify(nil); got != domain.KindCount {
		t.Fatalf("Classify(nil) = %s, want count", got)
	}
	if got := c.Classify(strPtr("")); got != domain.KindCount {
		t.Fatalf("Classify(\"\") = %s, want count", got)
	}
}

func TestClassifyIgnoresCaseOfLastSegment(t *testing.T) {
	c := NewClassifier()
	for _, token := range []string{"image", "IMAGE", "Image", "x.y.iMaGe"} {
		if got := c.Classify(strPtr(token)); got != domain.KindSkip {
			t.Fatalf("Classify(%q) = %s, want skip", token, got)
		}
	}
}

func TestClassifierOverrides(t *testing.T) {
	c, err := NewClassifierWithOverrides(ClassifierOverrides{
		Exclude: []string{"PolygonCloud"},
		Kinds: map[string]domain.MeasurementKind{
			"Ellipse":  domain.KindArea,
			"Arc":      domain.KindLength,
			"Polyline": domain.KindSkip,
		},
	})
	if err != nil {
		t.Fatalf("NewClassifierWithOverrides() error = %v", err)
	}
	cases := map[string]domain.MeasurementKind{
		"PolygonCloud": domain.KindSkip,
		"Ellipse":      domain.KindArea,
		"Arc":          domain.KindLength,
		"PolyLine":     domain.KindSkip,
		"Polygon":      domain.KindArea,
	}
	for token, want := range cases {
		if got := c.Classify(strPtr(token)); got != want {
			t.Fatalf("Classify(%q) = %s, want %s", token, got, want)
		}
	}

	if NewClassifier().Classify(strPtr("Ellipse")) != domain.KindSkip {
		t.Fatalf("overrides must not leak into the default classifier")
	}
}

func TestClassifierOverridesRejectUnknownKind(t *testing.T) {
	_, err := NewClassifierWithOverrides(ClassifierOverrides{
		Kinds: map[string]domain.MeasurementKind{"Arc": "volume"},
	})
	if err == nil {
		t.Fatalf("expected error for unknown kind")
	}
}
