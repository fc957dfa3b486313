package structured

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"blueprint-research-be/internal/pkg/errcode"
	"blueprint-research-be/internal/pkg/logger"
	"blueprint-research-be/pkg/llm"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
)

const logModule = "GATEWAY"

// Caller is the text completion surface the validator retries through.
type Caller interface {
	Call(ctx context.Context, messages []llm.Message, journeyID string) (string, error)
}

// SchemaValidationError is returned when the retry output still does not fit the schema.
// RawOutput holds the retry response, not the first one.
type SchemaValidationError struct {
	RawOutput string
	Schema    string
	Err       error
}

func (e *SchemaValidationError) Error() string {
	return fmt.Sprintf("LLM validation failed: %v", e.Err)
}

func (e *SchemaValidationError) Unwrap() error {
	return e.Err
}

// Validator parses model output into typed values and retries once with a fix prompt.
type Validator struct {
	caller   Caller
	log      logger.ILogger
	validate *validator.Validate
}

func NewValidator(caller Caller, log logger.ILogger) *Validator {
	return &Validator{
		caller:   caller,
		log:      log,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

var fencePattern = regexp.MustCompile("(?s)^```(?:json)?\\s*\\n?(.*?)\\n?```\\s*$")

// StripCodeFences removes a single outer ```json or ``` fence.
func StripCodeFences(text string) string {
	trimmed := strings.TrimSpace(text)
	if m := fencePattern.FindStringSubmatch(trimmed); m != nil {
		return strings.TrimSpace(m[1])
	}
	return trimmed
}

// SchemaFor renders the JSON schema of T as indented JSON.
func SchemaFor[T any]() string {
	r := &jsonschema.Reflector{DoNotReference: true, ExpandedStruct: true}
	var zero T
	schema := r.Reflect(&zero)
	out, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(out)
}

func decode[T any](v *Validator, raw string) (T, error) {
	var out T
	if err := json.Unmarshal([]byte(StripCodeFences(raw)), &out); err != nil {
		return out, err
	}
	if err := v.validate.Struct(&out); err != nil {
		var invalid *validator.InvalidValidationError
		if errors.As(err, &invalid) {
			return out, nil
		}
		return out, err
	}
	return out, nil
}

// Generate calls the model and decodes its answer into T.
func Generate[T any](ctx context.Context, v *Validator, messages []llm.Message, journeyID string) (T, error) {
	var zero T

	raw, err := v.caller.Call(ctx, messages, journeyID)
	if err != nil {
		return zero, err
	}

	out, err := decode[T](v, raw)
	if err == nil {
		return out, nil
	}

	schema := SchemaFor[T]()
	v.log.Error(logModule, "LLM output validation failed", map[string]interface{}{
		"journey_id":       journeyID,
		"raw_output":       truncate(raw, 500),
		"schema":           fmt.Sprintf("%T", zero),
		"validation_error": truncate(err.Error(), 300),
		"error_code":       errcode.New(),
	})

	retryRaw, callErr := v.caller.Call(ctx, fixMessages(messages, raw, err, schema), journeyID)
	if callErr != nil {
		return zero, callErr
	}

	out, retryErr := decode[T](v, retryRaw)
	if retryErr != nil {
		return zero, &SchemaValidationError{RawOutput: retryRaw, Schema: schema, Err: retryErr}
	}
	return out, nil
}

func fixMessages(messages []llm.Message, raw string, cause error, schema string) []llm.Message {
	fix := fmt.Sprintf("\n\n---\n\n"+
		"Your previous response had a JSON error. Here is what you returned:\n\n"+
		"```\n%s\n```\n\n"+
		"The error was: %s\n\n"+
		"Please output ONLY valid JSON matching this schema (no markdown, no explanation):\n%s",
		raw, cause.Error(), schema)

	retry := make([]llm.Message, len(messages))
	copy(retry, messages)
	if n := len(retry); n > 0 && retry[n-1].Role == llm.RoleUser {
		retry[n-1].Content += fix
		return retry
	}
	return append(retry, llm.Message{Role: llm.RoleUser, Content: fix})
}

// truncate keeps the first n runes of s.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
