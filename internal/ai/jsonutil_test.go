package ai

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "plain object",
			input: `{"risk_level":"high"}`,
			want:  `{"risk_level":"high"}`,
		},
		{
			name:  "fenced block",
			input: "Here you go:\n```json\n{\"answer\": \"yes\"}\n```\nThanks",
			want:  `{"answer": "yes"}`,
		},
		{
			name:  "surrounding prose",
			input: `Sure. {"confidence": 0.7} hope that helps`,
			want:  `{"confidence": 0.7}`,
		},
		{
			name:  "trailing comma",
			input: `{"citations": ["D1", "D2",],}`,
			want:  `{"citations": ["D1", "D2"]}`,
		},
		{
			name:  "no object",
			input: "I cannot answer that.",
			want:  "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractJSON(tt.input))
		})
	}
}

func TestExtractJSONStripsCommentsOutsideStrings(t *testing.T) {
	input := "{\n  \"link\": \"https://example.gov/a\", // source\n  \"n\": 1\n}"
	out := ExtractJSON(input)

	var parsed map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &parsed))
	assert.Equal(t, "https://example.gov/a", parsed["link"])
}
