package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "fenced block with language tag",
			input:    "```json\n{\"status\": \"success\"}\n```",
			expected: `{"status": "success"}`,
		},
		{
			name:     "fenced block without language tag",
			input:    "```\nплов из курицы\n```",
			expected: "плов из курицы",
		},
		{
			name:     "multiline content inside fence",
			input:    "```\nстрока один\nстрока два\n```",
			expected: "строка один\nстрока два",
		},
		{
			name:     "plain text passthrough",
			input:    "обычный ответ без форматирования",
			expected: "обычный ответ без форматирования",
		},
		{
			name:     "surrounding whitespace trimmed",
			input:    "  \n  ответ  \n ",
			expected: "ответ",
		},
		{
			name:     "opening fence without closing is untouched",
			input:    "```json\nнезакрытый блок",
			expected: "```json\nнезакрытый блок",
		},
		{
			name:     "inner fences are preserved",
			input:    "```\nвот код: ```go```\n```",
			expected: "вот код: ```go```",
		},
		{
			name:     "empty input",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, StripCodeFences(tt.input))
		})
	}
}

func TestStripCodeFences_Idempotent(t *testing.T) {
	inputs := []string{
		"```json\n{\"a\": 1}\n```",
		"обычный текст",
		"```\nтекст\n```",
	}

	for _, input := range inputs {
		once := StripCodeFences(input)
		twice := StripCodeFences(once)
		assert.Equal(t, once, twice, "input: %q", input)
	}
}
