package bpx

import (
	"fmt"
	"strings"

	"github.com/kirillkom/bpx-import-service/internal/core/domain"
)

// defaultExcluded lists annotation types that are not measurements.
var defaultExcluded = []string{
	"stamp", "annotationstamp",
	"circle", "annotationcircle", "ellipse",
	"image", "annotationimage",
	"freetext", "annotationfreetext", "freetextcallout", "freetexttypewriter",
	"callout", "annotationcallout",
	"text", "annotationtext", "note",
	"ink", "annotationink", "pen",
	"highlight", "underline", "strikeout", "squiggly",
	"linearrow", "arrow",
	"fileattachment", "sound", "link",
}

var defaultKinds = map[string]domain.MeasurementKind{
	"polyline":            domain.KindLength,
	"annotationpolyline":  domain.KindLength,
	"polylinedimension":   domain.KindLength,
	"line":                domain.KindLength,
	"annotationline":      domain.KindLength,
	"linedimension":       domain.KindLength,
	"length":              domain.KindLength,
	"measurelength":       domain.KindLength,
	"perimeter":           domain.KindLength,
	"measureperimeter":    domain.KindLength,
	"polygon":             domain.KindArea,
	"annotationpolygon":   domain.KindArea,
	"polygondimension":    domain.KindArea,
	"area":                domain.KindArea,
	"measurearea":         domain.KindArea,
	"rectangle":           domain.KindArea,
	"annotationrectangle": domain.KindArea,
	"square":              domain.KindArea,
	"annotationsquare":    domain.KindArea,
	"count":               domain.KindCount,
	"measurecount":        domain.KindCount,
	"polygoncloud":        domain.KindCount,
	"cloud":               domain.KindCount,
	"annotationcloud":     domain.KindCount,
}

// ClassifierOverrides extends the built-in tables. Keys are normalized the
// same way as type tokens.
type ClassifierOverrides struct {
	Exclude []string                          `yaml:"exclude"`
	Kinds   map[string]domain.MeasurementKind `yaml:"kinds"`
}

// Classifier maps annotation type tokens to measurement kinds. It is immutable
// after construction and safe for concurrent use.
type Classifier struct {
	excluded map[string]struct{}
	kinds    map[string]domain.MeasurementKind
}

func NewClassifier() *Classifier {
	c, _ := NewClassifierWithOverrides(ClassifierOverrides{})
	return c
}

func NewClassifierWithOverrides(overrides ClassifierOverrides) (*Classifier, error) {
	c := &Classifier{
		excluded: make(map[string]struct{}, len(defaultExcluded)+len(overrides.Exclude)),
		kinds:    make(map[string]domain.MeasurementKind, len(defaultKinds)+len(overrides.Kinds)),
	}
	for _, key := range defaultExcluded {
		c.excluded[key] = struct{}{}
	}
	for key, kind := range defaultKinds {
		c.kinds[key] = kind
	}

	for key, kind := range overrides.Kinds {
		if !kind.Valid() {
			return nil, fmt.Errorf("classifier override %q: unknown kind %q", key, kind)
		}
		norm := normalizeTypeToken(key)
		if kind == domain.KindSkip {
			c.excluded[norm] = struct{}{}
			continue
		}
		delete(c.excluded, norm)
		c.kinds[norm] = kind
	}
	for _, key := range overrides.Exclude {
		c.excluded[normalizeTypeToken(key)] = struct{}{}
	}
	return c, nil
}

// Classify returns the kind for an annotation type token. A missing token and
// any unknown token are counts.
func (c *Classifier) Classify(typeToken *string) domain.MeasurementKind {
	if typeToken == nil {
		return domain.KindCount
	}
	key := normalizeTypeToken(*typeToken)
	if key == "" {
		return domain.KindCount
	}
	if _, ok := c.excluded[key]; ok {
		return domain.KindSkip
	}
	if kind, ok := c.kinds[key]; ok {
		return kind
	}
	return domain.KindCount
}

func normalizeTypeToken(token string) string {
	token = strings.TrimSpace(token)
	if i := strings.LastIndex(token, "."); i >= 0 {
		token = token[i+1:]
	}
	return strings.ToLower(token)
}
