package recognizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanText(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"  hello\t\nworld  ", "hello world"},
		{"zero\u200bwidth", "zerowidth"},
		{"ctrl\x07char", "ctrlchar"},
		{"é", "é"},
		{"なに？！", "なに？！"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CleanText(tt.in), tt.in)
	}
}
