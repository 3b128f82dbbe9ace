package ocr

import (
	"context"
	"errors"
	"unicode/utf8"
)

type plainText struct{}

func (plainText) method() string      { return "plaintext" }
func (plainText) confidence() float64 { return 0.95 }

func (plainText) extract(_ context.Context, content []byte) (string, error) {
	if !utf8.Valid(content) {
		return "", errors.New("content is not valid UTF-8")
	}
	return string(content), nil
}
