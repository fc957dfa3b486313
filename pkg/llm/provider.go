package llm

import (
	"context"
	"strings"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message represents a chat message in a provider-agnostic format
type Message struct {
	Role    string // "user", "assistant", "system"
	Content string
	Images  []Image // Only honoured on user messages
}

// Image is an inline, base64 encoded picture attached to a message.
type Image struct {
	MimeType string
	Base64   string
}

// Option allows for optional parameters like Temperature, MaxTokens, etc.
type Option func(*Options)

type Options struct {
	Temperature float64
	MaxTokens   int
	Model       string // Override default model
	JSONMode    bool   // Ask the backend for a JSON object when it supports it
}

func WithTemperature(temp float64) Option {
	return func(o *Options) {
		o.Temperature = temp
	}
}

func WithMaxTokens(n int) Option {
	return func(o *Options) {
		o.MaxTokens = n
	}
}

func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

func WithJSONMode() Option {
	return func(o *Options) {
		o.JSONMode = true
	}
}

// Resolve applies options on top of defaults.
func Resolve(defaults Options, options []Option) Options {
	opts := defaults
	for _, o := range options {
		o(&opts)
	}
	return opts
}

// LLMProvider defines the contract for any LLM backend
type LLMProvider interface {
	// Chat sends a chat history to the model and returns the response
	Chat(ctx context.Context, history []Message, options ...Option) (string, error)

	// Generate sends a single prompt to the model (convenience method)
	Generate(ctx context.Context, prompt string, options ...Option) (string, error)
}

// SplitProviderID splits "gemini/gemini-2.5-pro" into vendor and model.
// An id without a slash is treated as a bare model name with no vendor.
func SplitProviderID(id string) (vendor, model string) {
	vendor, model, found := strings.Cut(id, "/")
	if !found {
		return "", id
	}
	return strings.ToLower(vendor), model
}

// SystemPrompt joins all system messages and returns the rest unchanged.
func SystemPrompt(history []Message) (string, []Message) {
	var system []string
	rest := make([]Message, 0, len(history))
	for _, m := range history {
		if m.Role == RoleSystem {
			system = append(system, m.Content)
			continue
		}
		rest = append(rest, m)
	}
	return strings.Join(system, "\n\n"), rest
}
