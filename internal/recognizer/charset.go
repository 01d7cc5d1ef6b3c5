package recognizer

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
)

// Charset maps CTC class indices to text tokens. Class 0 is the CTC blank and
// class i (i >= 1) is Tokens[i-1].
type Charset struct {
	Tokens []string
}

// NewCharset builds a charset from tokens, optionally appending a space token.
func NewCharset(tokens []string, withSpace bool) *Charset {
	t := append([]string(nil), tokens...)
	if withSpace {
		t = append(t, " ")
	}
	return &Charset{Tokens: t}
}

// LoadCharset reads a dictionary file with one token per line. Empty lines
// and a leading UTF-8 BOM are ignored.
func LoadCharset(path string, withSpace bool) (*Charset, error) {
	if path == "" {
		return nil, errors.New("dictionary path cannot be empty")
	}
	f, err := os.Open(path) //nolint:gosec // G304: dictionary path comes from configuration
	if err != nil {
		return nil, fmt.Errorf("failed to open dictionary: %w", err)
	}
	defer func() { _ = f.Close() }()

	var tokens []string
	scanner := bufio.NewScanner(f)
	first := true
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n")
		if first {
			line = strings.TrimPrefix(line, "\uFEFF")
			first = false
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		tokens = append(tokens, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed reading dictionary: %w", err)
	}
	if len(tokens) == 0 {
		return nil, fmt.Errorf("dictionary is empty: %s", path)
	}
	return NewCharset(tokens, withSpace), nil
}

// Classes returns the number of model output classes, blank included.
func (c *Charset) Classes() int { return len(c.Tokens) + 1 }

// Token returns the token for class idx, or "" for the blank or out-of-range indices.
func (c *Charset) Token(idx int) string {
	if idx <= 0 || idx > len(c.Tokens) {
		return ""
	}
	return c.Tokens[idx-1]
}
