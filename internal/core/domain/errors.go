package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrTemporary     = errors.New("temporary failure")
	ErrDownload      = errors.New("download failed")
	ErrDocumentParse = errors.New("malformed bpx document")
	ErrDecode        = errors.New("hex decode failed")
	ErrInflate       = errors.New("zlib inflate failed")
	ErrRecordCreate  = errors.New("record create failed")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
