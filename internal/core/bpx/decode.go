// Package bpx holds the pure transforms of a BPX tool-chest import: payload
// decoding, annotation field extraction, tool classification and document parsing.
package bpx

import (
	"bytes"
	"compress/zlib"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/kirillkom/bpx-import-service/internal/core/domain"
)

// MaxInflatedBytes caps a single decompressed payload.
const MaxInflatedBytes = 16 << 20

// Decode reverses the hex encoding of a payload, inflates the zlib stream and
// returns it as UTF-8 text. Invalid UTF-8 sequences become U+FFFD.
func Decode(hexText string) (string, error) {
	hexText = strings.TrimSpace(hexText)
	if hexText == "" {
		return "", nil
	}

	compressed, err := hex.DecodeString(hexText)
	if err != nil {
		return "", domain.WrapError(domain.ErrDecode, "decode hex payload", err)
	}

	raw, err := inflate(compressed)
	if err != nil {
		return "", domain.WrapError(domain.ErrInflate, "inflate payload", err)
	}

	return toValidUTF8(raw), nil
}

// toValidUTF8 writes one U+FFFD per maximal invalid subpart, so every stray
// byte is replaced on its own while a truncated sequence counts once.
func toValidUTF8(raw []byte) string {
	if utf8.Valid(raw) {
		return string(raw)
	}
	var b strings.Builder
	b.Grow(len(raw) + 8)
	for i := 0; i < len(raw); {
		r, size := utf8.DecodeRune(raw[i:])
		if r != utf8.RuneError || size > 1 {
			b.Write(raw[i : i+size])
			i += size
			continue
		}
		b.WriteRune(utf8.RuneError)
		i += invalidPrefixLen(raw[i:])
	}
	return b.String()
}

// invalidPrefixLen returns how many bytes of p start a well-formed sequence
// that never completes. It is at least 1.
func invalidPrefixLen(p []byte) int {
	lo, hi := byte(0x80), byte(0xBF)
	var need int
	switch c := p[0]; {
	case c >= 0xC2 && c <= 0xDF:
		need = 1
	case c == 0xE0:
		need, lo = 2, 0xA0
	case c == 0xED:
		need, hi = 2, 0x9F
	case c >= 0xE1 && c <= 0xEF:
		need = 2
	case c == 0xF0:
		need, lo = 3, 0x90
	case c >= 0xF1 && c <= 0xF3:
		need = 3
	case c == 0xF4:
		need, hi = 3, 0x8F
	default:
		return 1
	}
	n := 1
	for ; n <= need && n < len(p); n++ {
		if p[n] < lo || p[n] > hi {
			break
		}
		lo, hi = 0x80, 0xBF
	}
	return n
}

func inflate(compressed []byte) ([]byte, error) {
	reader, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	raw, err := io.ReadAll(io.LimitReader(reader, MaxInflatedBytes+1))
	if err != nil {
		return nil, err
	}
	if len(raw) > MaxInflatedBytes {
		return nil, fmt.Errorf("inflated payload exceeds %d bytes", MaxInflatedBytes)
	}
	return raw, nil
}
