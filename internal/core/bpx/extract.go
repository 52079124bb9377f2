package bpx

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/kirillkom/bpx-import-service/internal/core/domain"
)

// Fields is what Extract finds in an annotation dictionary fragment.
type Fields struct {
	Subject   *string
	TypeToken *string
	Style     domain.Style
}

// The subject literal ends at the first ')', so escaped or nested parentheses
// truncate it.
var (
	subjectPattern   = regexp.MustCompile(`/Subj\s*\(([^)]*)\)`)
	typeTokenPattern = regexp.MustCompile(`/IT/([A-Za-z0-9]+)`)
	strokePattern    = arrayPattern("C")
	fillPattern      = arrayPattern("IC")
	dashPattern      = arrayPattern("D")
	opacityPattern   = scalarPattern("CA")
	lineWidthPattern = scalarPattern("LW")
	decimalPattern   = regexp.MustCompile(`^[-+]?(?:[0-9]+(?:\.[0-9]*)?|\.[0-9]+)$`)
)

func arrayPattern(key string) *regexp.Regexp {
	return regexp.MustCompile(`/` + key + `\s*\[([^\]]*)\]`)
}

func scalarPattern(key string) *regexp.Regexp {
	return regexp.MustCompile(`/` + key + `\s*([-+]?[0-9.]+)`)
}

// Extract scans dictionary text for the known keys. A missing key, or one whose
// numbers do not parse, is left out of the result.
func Extract(dictText string) Fields {
	var fields Fields

	if m := subjectPattern.FindStringSubmatch(dictText); m != nil {
		subject := m[1]
		fields.Subject = &subject
	}
	if m := typeTokenPattern.FindStringSubmatch(dictText); m != nil {
		token := m[1]
		fields.TypeToken = &token
	}

	if rgb, ok := findArray(strokePattern, dictText); ok {
		fields.Style.StrokeRGB = firstN(rgb, 3)
	}
	if rgb, ok := findArray(fillPattern, dictText); ok {
		fields.Style.FillRGB = firstN(rgb, 3)
	}
	if v, ok := findScalar(opacityPattern, dictText); ok {
		fields.Style.Opacity = &v
	}
	if v, ok := findScalar(lineWidthPattern, dictText); ok {
		fields.Style.LineWidth = &v
	}
	if dash, ok := findArray(dashPattern, dictText); ok {
		fields.Style.Dash = dash
	}

	return fields
}

func findArray(pattern *regexp.Regexp, text string) ([]float64, bool) {
	m := pattern.FindStringSubmatch(text)
	if m == nil {
		return nil, false
	}
	parts := strings.Fields(m[1])
	if len(parts) == 0 {
		return nil, false
	}
	values := make([]float64, 0, len(parts))
	for _, part := range parts {
		v, ok := parseDecimal(part)
		if !ok {
			return nil, false
		}
		values = append(values, v)
	}
	return values, true
}

func findScalar(pattern *regexp.Regexp, text string) (float64, bool) {
	m := pattern.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	return parseDecimal(m[1])
}

func parseDecimal(s string) (float64, bool) {
	if !decimalPattern.MatchString(s) {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func firstN(values []float64, n int) []float64 {
	if len(values) > n {
		return values[:n]
	}
	return values
}
