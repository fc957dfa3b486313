package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"blueprint-research-be/internal/pkg/errcode"
	"blueprint-research-be/internal/pkg/logger"
	"blueprint-research-be/pkg/llm"
	"blueprint-research-be/pkg/metrics"
)

const logModule = "GATEWAY"

var ErrAllProvidersFailed = errors.New("all LLM providers failed")

// CooldownTracker remembers which providers recently hit a rate limit.
type CooldownTracker interface {
	InCooldown(provider string) bool
	Until(provider string) (time.Time, bool)
	MarkRateLimited(provider string)
	Reset()
}

// PreferenceStore persists the provider that future calls should report as active.
type PreferenceStore interface {
	ActiveProvider(ctx context.Context) (string, error)
	SaveActiveProvider(ctx context.Context, provider, reason string) error
}

type Config struct {
	Chain           []string
	VisionChain     []string
	Persona         string
	Temperature     float64
	MaxTokens       int
	VisionMaxTokens int
	CallTimeout     time.Duration
}

// Gateway walks an ordered provider chain with cooldown-based skipping.
type Gateway struct {
	cfg       Config
	providers map[string]llm.LLMProvider
	cooldowns CooldownTracker
	prefs     PreferenceStore
	log       logger.ILogger
	metrics   *metrics.Metrics

	mu             sync.Mutex
	initialized    bool
	activeProvider string
}

func NewGateway(
	cfg Config,
	providers map[string]llm.LLMProvider,
	cooldowns CooldownTracker,
	prefs PreferenceStore,
	log logger.ILogger,
	m *metrics.Metrics,
) *Gateway {
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 90 * time.Second
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 2000
	}
	if cfg.VisionMaxTokens <= 0 {
		cfg.VisionMaxTokens = 8000
	}
	return &Gateway{
		cfg:       cfg,
		providers: providers,
		cooldowns: cooldowns,
		prefs:     prefs,
		log:       log,
		metrics:   m,
	}
}

// IsRateLimitError reports whether err looks transient (rate limit, quota or timeout).
func IsRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, kw := range []string{"rate_limit", "ratelimit", "429", "quota", "resource_exhausted", "timeout", "timed out"} {
		if strings.Contains(msg, kw) {
			return true
		}
	}
	return false
}

// ActiveProvider returns the persisted preference, loading it on first use.
func (g *Gateway) ActiveProvider(ctx context.Context) string {
	g.ensureInitialized(ctx)
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.activeProvider
}

func (g *Gateway) ensureInitialized(ctx context.Context) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.initialized {
		return
	}
	g.initialized = true
	if len(g.cfg.Chain) > 0 {
		g.activeProvider = g.cfg.Chain[0]
	}
	if g.prefs == nil {
		return
	}
	active, err := g.prefs.ActiveProvider(ctx)
	if err != nil {
		g.log.Warn(logModule, "Failed to load provider preference", map[string]interface{}{"error": err.Error()})
		return
	}
	if active != "" {
		g.activeProvider = active
	}
}

// Call sends messages through the text chain with the persona prompt prepended.
func (g *Gateway) Call(ctx context.Context, messages []llm.Message, journeyID string) (string, error) {
	g.ensureInitialized(ctx)
	full := make([]llm.Message, 0, len(messages)+1)
	if g.cfg.Persona != "" {
		full = append(full, llm.Message{Role: llm.RoleSystem, Content: g.cfg.Persona})
	}
	full = append(full, messages...)

	content, err := g.call(ctx, full, journeyID, false)
	if errors.Is(err, errNothingAttempted) {
		g.log.Warn(logModule, "All providers in cooldown, clearing cooldowns for retry", map[string]interface{}{
			"journey_id": journeyID,
		})
		g.cooldowns.Reset()
		content, err = g.call(ctx, full, journeyID, false)
		if errors.Is(err, errNothingAttempted) {
			return "", ErrAllProvidersFailed
		}
	}
	return content, err
}

// CallVision sends messages through the vision chain. When imageBase64 is set
// the image is attached to the first user message. No persona is injected.
func (g *Gateway) CallVision(ctx context.Context, messages []llm.Message, imageBase64, sessionID string) (string, error) {
	final := make([]llm.Message, len(messages))
	copy(final, messages)
	if imageBase64 != "" {
		for i, m := range final {
			if m.Role == llm.RoleUser {
				images := append([]llm.Image{{MimeType: "image/png", Base64: imageBase64}}, m.Images...)
				final[i].Images = images
				break
			}
		}
	}

	content, err := g.call(ctx, final, sessionID, true)
	if errors.Is(err, errNothingAttempted) {
		return "", ErrAllProvidersFailed
	}
	return content, err
}

var errNothingAttempted = errors.New("every provider was in cooldown")

func (g *Gateway) call(ctx context.Context, messages []llm.Message, correlationID string, vision bool) (string, error) {
	chain := g.cfg.Chain
	opts := []llm.Option{llm.WithTemperature(g.cfg.Temperature), llm.WithMaxTokens(g.cfg.MaxTokens)}
	kind := "completion"
	if vision {
		chain = g.cfg.VisionChain
		opts = []llm.Option{llm.WithTemperature(g.cfg.Temperature), llm.WithMaxTokens(g.cfg.VisionMaxTokens)}
		kind = "vision"
	}

	var lastErr error
	triedAny := false

	for idx, provider := range chain {
		if until, cooling := g.cooldowns.Until(provider); cooling {
			g.log.Info(logModule, "Skipping rate-limited provider", map[string]interface{}{
				"journey_id":     correlationID,
				"provider":       provider,
				"cooldown_until": until.Format(time.RFC3339),
			})
			g.metrics.RecordLLMCall(provider, metrics.OutcomeSkipped, 0)
			continue
		}

		triedAny = true
		g.log.Info(logModule, "LLM call started", map[string]interface{}{
			"journey_id":  correlationID,
			"provider":    provider,
			"prompt_type": kind,
		})

		callOpts := opts
		if !vision && strings.Contains(provider, "gemini-2.5") {
			callOpts = append(append([]llm.Option{}, opts...), llm.WithJSONMode())
		}

		start := time.Now()
		content, err := g.invoke(ctx, provider, messages, callOpts)
		duration := time.Since(start)

		empty := err == nil && content == ""
		if empty {
			g.log.Warn(logModule, "LLM returned empty content, will try next provider", map[string]interface{}{
				"journey_id":  correlationID,
				"provider":    provider,
				"duration_ms": duration.Milliseconds(),
			})
			g.metrics.RecordLLMCall(provider, metrics.OutcomeEmpty, duration)
			err = fmt.Errorf("provider %s returned empty content", provider)
		}

		if err == nil {
			g.metrics.RecordLLMCall(provider, metrics.OutcomeSuccess, duration)
			g.log.Info(logModule, "LLM call succeeded", map[string]interface{}{
				"journey_id":    correlationID,
				"provider":      provider,
				"duration_ms":   duration.Milliseconds(),
				"output_length": len(content),
			})
			if !vision && idx > 0 && lastErr != nil && !IsRateLimitError(lastErr) {
				g.switchProvider(ctx, provider, lastErr)
			}
			return content, nil
		}

		code := errcode.New()
		g.log.Error(logModule, "LLM call failed", map[string]interface{}{
			"journey_id": correlationID,
			"provider":   provider,
			"error":      err.Error(),
			"error_code": code,
		})
		lastErr = err

		if IsRateLimitError(err) {
			g.cooldowns.MarkRateLimited(provider)
			g.metrics.RecordLLMCall(provider, metrics.OutcomeRateLimited, duration)
			g.log.Warn(logModule, "Provider rate-limited, will skip for cooldown", map[string]interface{}{
				"provider": provider,
			})
		} else if !empty {
			g.metrics.RecordLLMCall(provider, metrics.OutcomeError, duration)
		}

		if next := g.nextAvailable(chain[idx+1:]); next != "" {
			g.log.Warn(logModule, "LLM provider fallback", map[string]interface{}{
				"journey_id":    correlationID,
				"from_provider": provider,
				"to_provider":   next,
				"reason":        err.Error(),
			})
		}
	}

	if !triedAny {
		return "", errNothingAttempted
	}
	return "", fmt.Errorf("%w: last error: %v", ErrAllProvidersFailed, lastErr)
}

func (g *Gateway) invoke(ctx context.Context, provider string, messages []llm.Message, opts []llm.Option) (string, error) {
	p, ok := g.providers[provider]
	if !ok {
		return "", fmt.Errorf("provider %s is not registered", provider)
	}
	callCtx, cancel := context.WithTimeout(ctx, g.cfg.CallTimeout)
	defer cancel()

	content, err := p.Chat(callCtx, messages, opts...)
	if err != nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return "", fmt.Errorf("provider %s timed out after %s: %w", provider, g.cfg.CallTimeout, err)
	}
	return content, err
}

func (g *Gateway) nextAvailable(rest []string) string {
	for _, p := range rest {
		if !g.cooldowns.InCooldown(p) {
			return p
		}
	}
	return ""
}

func (g *Gateway) switchProvider(ctx context.Context, provider string, cause error) {
	g.mu.Lock()
	g.activeProvider = provider
	g.mu.Unlock()

	if g.prefs == nil {
		return
	}
	reason := fmt.Sprintf("Fallback after: %v", cause)
	if err := g.prefs.SaveActiveProvider(context.WithoutCancel(ctx), provider, reason); err != nil {
		g.log.Warn(logModule, "Failed to persist provider preference", map[string]interface{}{
			"provider": provider,
			"error":    err.Error(),
		})
	}
}
