package bpx

import (
	"bytes"
	"compress/zlib"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/kirillkom/bpx-import-service/internal/core/domain"
)

func encodePayload(t *testing.T, text string) string {
	t.Helper()
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write([]byte(text)); err != nil {
		t.Fatalf("zlib write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("zlib close: %v", err)
	}
	return hex.EncodeToString(buf.Bytes())
}

func TestDecodeRoundTrip(t *testing.T) {
	inputs := []string{
		"Markups",
		"<</Subj(Wall Area)/IT/AnnotationPolygon/CA 0.5>>",
		"Größe – 面積",
	}
	for _, in := range inputs {
		encoded := encodePayload(t, in)
		for _, variant := range []string{encoded, strings.ToUpper(encoded), "  \n" + encoded + "\t "} {
			got, err := Decode(variant)
			if err != nil {
				t.Fatalf("Decode(%q) error = %v", in, err)
			}
			if got != in {
				t.Fatalf("Decode() = %q, want %q", got, in)
			}
			if reencoded := encodePayload(t, got); reencoded != encoded {
				t.Fatalf("re-encoding changed bytes for %q", in)
			}
		}
	}
}

func TestDecodeEmptyInput(t *testing.T) {
	for _, in := range []string{"", "   ", "\n\t"} {
		got, err := Decode(in)
		if err != nil {
			t.Fatalf("Decode(%q) error = %v", in, err)
		}
		if got != "" {
			t.Fatalf("Decode(%q) = %q, want empty", in, got)
		}
	}
}

func TestDecodeInvalidHex(t *testing.T) {
	for _, in := range []string{"zz", "abc", "0g"} {
		_, err := Decode(in)
		if !domain.IsKind(err, domain.ErrDecode) {
			t.Fatalf("Decode(%q) expected ErrDecode, got %v", in, err)
		}
	}
}

func TestDecodeNonZlibBytes(t *testing.T) {
	_, err := Decode(hex.EncodeToString([]byte("definitely not zlib")))
	if !domain.IsKind(err, domain.ErrInflate) {
		t.Fatalf("expected ErrInflate, got %v", err)
	}
	if domain.IsKind(err, domain.ErrDecode) {
		t.Fatalf("inflate failure must not be reported as hex failure: %v", err)
	}
}

func TestDecodeTruncatedStream(t *testing.T) {
	encoded := encodePayload(t, strings.Repeat("toolchest ", 50))
	truncated := encoded[:len(encoded)/2]
	if len(truncated)%2 != 0 {
		truncated = truncated[:len(truncated)-1]
	}
	_, err := Decode(truncated)
	if !domain.IsKind(err, domain.ErrInflate) {
		t.Fatalf("expected ErrInflate, got %v", err)
	}
}

func TestDecodeReplacesInvalidUTF8(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{name: "single byte", in: "ok\xffok", want: "ok\uFFFDok"},
		{name: "run of stray bytes", in: "a\xff\xfe\xfdb", want: "a\uFFFD\uFFFD\uFFFDb"},
		{name: "truncated sequence", in: "\xe2\x82x", want: "\uFFFDx"},
		{name: "truncated four byte", in: "\xf0\x9f\x98 end", want: "\uFFFD end"},
		{name: "surrogate half", in: "\xed\xa0\x80", want: "\uFFFD\uFFFD\uFFFD"},
		{name: "overlong", in: "\xc0\xafz", want: "\uFFFD\uFFFDz"},
		{name: "valid replacement kept", in: "\uFFFD\u20ac", want: "\uFFFD\u20ac"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Decode(encodePayload(t, tc.in))
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}
