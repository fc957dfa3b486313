package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitProviderID(t *testing.T) {
	tests := []struct {
		id         string
		wantVendor string
		wantModel  string
	}{
		{id: "gemini/gemini-2.5-pro", wantVendor: "gemini", wantModel: "gemini-2.5-pro"},
		{id: "OpenAI/gpt-4o-mini", wantVendor: "openai", wantModel: "gpt-4o-mini"},
		{id: "ollama/library/llama3", wantVendor: "ollama", wantModel: "library/llama3"},
		{id: "llama3", wantVendor: "", wantModel: "llama3"},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			vendor, model := SplitProviderID(tt.id)
			assert.Equal(t, tt.wantVendor, vendor)
			assert.Equal(t, tt.wantModel, model)
		})
	}
}

func TestSystemPrompt(t *testing.T) {
	system, rest := SystemPrompt([]Message{
		{Role: RoleSystem, Content: "persona"},
		{Role: RoleUser, Content: "hi"},
		{Role: RoleSystem, Content: "rules"},
	})
	assert.Equal(t, "persona\n\nrules", system)
	assert.Equal(t, []Message{{Role: RoleUser, Content: "hi"}}, rest)
}

func TestResolve(t *testing.T) {
	opts := Resolve(Options{Temperature: 0.3, MaxTokens: 2000}, []Option{WithMaxTokens(8000), WithJSONMode()})
	assert.Equal(t, 0.3, opts.Temperature)
	assert.Equal(t, 8000, opts.MaxTokens)
	assert.True(t, opts.JSONMode)
}
