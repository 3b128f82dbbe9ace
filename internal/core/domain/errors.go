package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrResultNotFound      = errors.New("processing result not found")
	ErrObjectNotFound      = errors.New("stored object not found")
	ErrTemporary           = errors.New("temporary failure")
	ErrProviderUnavailable = errors.New("provider unavailable")
	ErrParse               = errors.New("unparseable provider response")
	ErrModelUnavailable    = errors.New("summarization model unavailable")
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
