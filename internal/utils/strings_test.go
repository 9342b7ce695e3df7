package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCSV(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "empty string",
			input:    "",
			expected: nil,
		},
		{
			name:     "single value",
			input:    "https://app.example.com",
			expected: []string{"https://app.example.com"},
		},
		{
			name:     "multiple values",
			input:    "https://app.example.com,https://admin.example.com",
			expected: []string{"https://app.example.com", "https://admin.example.com"},
		},
		{
			name:     "values with whitespace",
			input:    " a , b ,c ",
			expected: []string{"a", "b", "c"},
		},
		{
			name:     "skips empty segments",
			input:    "a,,b,",
			expected: []string{"a", "b"},
		},
		{
			name:     "only commas and spaces",
			input:    " , , ",
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseCSV(tt.input))
		})
	}
}
