// Package translation wraps the external translation provider behind a
// narrow interface and memoizes its answers.
package translation

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrTranslationFailed is returned when the provider errors, times out or
	// rejects the language pair.
	ErrTranslationFailed = errors.New("translation failed")
	// ErrUnsupportedLanguage marks a language outside the supported table.
	ErrUnsupportedLanguage = errors.New("unsupported language")
)

// Translator turns text in src into text in dst.
type Translator interface {
	Translate(ctx context.Context, text, src, dst string) (string, error)
}

// Func adapts a plain function to Translator.
type Func func(ctx context.Context, text, src, dst string) (string, error)

// Translate calls f.
func (f Func) Translate(ctx context.Context, text, src, dst string) (string, error) {
	return f(ctx, text, src, dst)
}

// Error describes a failed translation. It matches ErrTranslationFailed with errors.Is.
type Error struct {
	Text string
	Src  string
	Dst  string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("translation %s->%s failed: %v", e.Src, e.Dst, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports ErrTranslationFailed for every Error.
func (e *Error) Is(target error) bool { return target == ErrTranslationFailed }

func failed(text, src, dst string, err error) error {
	var te *Error
	if errors.As(err, &te) {
		return err
	}
	return &Error{Text: text, Src: src, Dst: dst, Err: err}
}
