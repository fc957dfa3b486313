package gateway

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"blueprint-research-be/internal/pkg/logger"
	"blueprint-research-be/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	mu      sync.Mutex
	replies []reply
	calls   int
	seen    [][]llm.Message
	opts    []llm.Options
}

type reply struct {
	content string
	err     error
}

func (f *fakeProvider) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = append(f.seen, history)
	f.opts = append(f.opts, llm.Resolve(llm.Options{}, options))
	r := f.replies[0]
	if len(f.replies) > 1 {
		f.replies = f.replies[1:]
	}
	f.calls++
	return r.content, r.err
}

func (f *fakeProvider) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return f.Chat(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}}, options...)
}

type mapCooldowns struct {
	mu     sync.Mutex
	marked map[string]bool
	resets int
}

func newMapCooldowns() *mapCooldowns {
	return &mapCooldowns{marked: map[string]bool{}}
}

func (m *mapCooldowns) InCooldown(p string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.marked[p]
}

var cooldownDeadline = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func (m *mapCooldowns) Until(p string) (time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.marked[p] {
		return time.Time{}, false
	}
	return cooldownDeadline, true
}

func (m *mapCooldowns) MarkRateLimited(p string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.marked[p] = true
}

func (m *mapCooldowns) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.marked = map[string]bool{}
	m.resets++
}

type infoRecorder struct {
	*logger.ZapLogger
	mu      sync.Mutex
	entries []map[string]interface{}
}

func (r *infoRecorder) Info(module, message string, details map[string]interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, map[string]interface{}{"message": message, "details": details})
}

type fakePrefs struct {
	active   string
	saved    []string
	reasons  []string
	saveErr  error
	loadHits int
}

func (f *fakePrefs) ActiveProvider(ctx context.Context) (string, error) {
	f.loadHits++
	return f.active, nil
}

func (f *fakePrefs) SaveActiveProvider(ctx context.Context, provider, reason string) error {
	f.saved = append(f.saved, provider)
	f.reasons = append(f.reasons, reason)
	return f.saveErr
}

var rateLimited = errors.New("429 RESOURCE_EXHAUSTED: quota exceeded")

func newTestGateway(chain []string, providers map[string]llm.LLMProvider, cd CooldownTracker, prefs PreferenceStore) *Gateway {
	return NewGateway(Config{
		Chain:       chain,
		VisionChain: []string{"vision/a", "vision/b"},
		Persona:     "You are Blueprint.",
		Temperature: 0.3,
	}, providers, cd, prefs, logger.NewNopLogger(), nil)
}

func TestCallAllRateLimited(t *testing.T) {
	a := &fakeProvider{replies: []reply{{err: rateLimited}}}
	b := &fakeProvider{replies: []reply{{err: rateLimited}}}
	c := &fakeProvider{replies: []reply{{err: rateLimited}}}
	cd := newMapCooldowns()
	g := newTestGateway([]string{"x/a", "x/b", "x/c"}, map[string]llm.LLMProvider{"x/a": a, "x/b": b, "x/c": c}, cd, nil)

	_, err := g.Call(context.Background(), []llm.Message{{Role: llm.RoleUser, Content: "hi"}}, "j1")

	require.ErrorIs(t, err, ErrAllProvidersFailed)
	assert.Equal(t, 1, a.calls)
	assert.Equal(t, 1, b.calls)
	assert.Equal(t, 1, c.calls)
	assert.True(t, cd.InCooldown("x/a"))
	assert.True(t, cd.InCooldown("x/c"))
}

func TestCallStopsAtFirstSuccess(t *testing.T) {
	a := &fakeProvider{replies: []reply{{err: rateLimited}}}
	b := &fakeProvider{replies: []reply{{err: errors.New("timed out waiting for headers")}}}
	c := &fakeProvider{replies: []reply{{content: `{"ok":true}`}}}
	d := &fakeProvider{replies: []reply{{content: "never"}}}
	prefs := &fakePrefs{}
	g := newTestGateway([]string{"x/a", "x/b", "x/c", "x/d"},
		map[string]llm.LLMProvider{"x/a": a, "x/b": b, "x/c": c, "x/d": d}, newMapCooldowns(), prefs)

	out, err := g.Call(context.Background(), []llm.Message{{Role: llm.RoleUser, Content: "hi"}}, "")

	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, out)
	assert.Equal(t, 0, d.calls)
	assert.Empty(t, prefs.saved, "rate-limit fallbacks do not change the preference")
}

func TestCallPersistsPreferenceAfterHardFailure(t *testing.T) {
	a := &fakeProvider{replies: []reply{{err: errors.New("invalid api key")}}}
	b := &fakeProvider{replies: []reply{{content: "answer"}}}
	prefs := &fakePrefs{saveErr: errors.New("db down")}
	g := newTestGateway([]string{"x/a", "x/b"}, map[string]llm.LLMProvider{"x/a": a, "x/b": b}, newMapCooldowns(), prefs)

	out, err := g.Call(context.Background(), []llm.Message{{Role: llm.RoleUser, Content: "hi"}}, "")

	require.NoError(t, err, "a failing preference write is not fatal")
	assert.Equal(t, "answer", out)
	assert.Equal(t, []string{"x/b"}, prefs.saved)
	assert.Equal(t, "Fallback after: invalid api key", prefs.reasons[0])
	assert.Equal(t, "x/b", g.ActiveProvider(context.Background()))
}

func TestCallTreatsEmptyContentAsFailure(t *testing.T) {
	a := &fakeProvider{replies: []reply{{content: ""}}}
	b := &fakeProvider{replies: []reply{{content: "filled"}}}
	cd := newMapCooldowns()
	g := newTestGateway([]string{"x/a", "x/b"}, map[string]llm.LLMProvider{"x/a": a, "x/b": b}, cd, nil)

	out, err := g.Call(context.Background(), []llm.Message{{Role: llm.RoleUser, Content: "hi"}}, "")

	require.NoError(t, err)
	assert.Equal(t, "filled", out)
	assert.False(t, cd.InCooldown("x/a"))
}

func TestCallClearsCooldownsWhenAllSkipped(t *testing.T) {
	a := &fakeProvider{replies: []reply{{content: "back"}}}
	cd := newMapCooldowns()
	cd.MarkRateLimited("x/a")
	cd.MarkRateLimited("x/b")
	b := &fakeProvider{replies: []reply{{content: "unused"}}}
	g := newTestGateway([]string{"x/a", "x/b"}, map[string]llm.LLMProvider{"x/a": a, "x/b": b}, cd, nil)

	out, err := g.Call(context.Background(), []llm.Message{{Role: llm.RoleUser, Content: "hi"}}, "")

	require.NoError(t, err)
	assert.Equal(t, "back", out)
	assert.Equal(t, 1, cd.resets)
	assert.Equal(t, 0, b.calls)
}

func TestCallInjectsPersonaAndJSONMode(t *testing.T) {
	p := &fakeProvider{replies: []reply{{content: "{}"}}}
	prefs := &fakePrefs{active: "gemini/gemini-2.5-flash"}
	g := newTestGateway([]string{"gemini/gemini-2.5-flash"}, map[string]llm.LLMProvider{"gemini/gemini-2.5-flash": p}, newMapCooldowns(), prefs)

	_, err := g.Call(context.Background(), []llm.Message{{Role: llm.RoleUser, Content: "hi"}}, "")
	require.NoError(t, err)
	_, err = g.Call(context.Background(), []llm.Message{{Role: llm.RoleUser, Content: "again"}}, "")
	require.NoError(t, err)

	require.Len(t, p.seen, 2)
	assert.Equal(t, llm.RoleSystem, p.seen[0][0].Role)
	assert.Equal(t, "You are Blueprint.", p.seen[0][0].Content)
	assert.True(t, p.opts[0].JSONMode)
	assert.Equal(t, 2000, p.opts[0].MaxTokens)
	assert.Equal(t, 1, prefs.loadHits, "preference is loaded once")
}

func TestCallVision(t *testing.T) {
	a := &fakeProvider{replies: []reply{{err: errors.New("model not found")}}}
	b := &fakeProvider{replies: []reply{{content: "<div/>"}}}
	prefs := &fakePrefs{}
	g := newTestGateway(nil, map[string]llm.LLMProvider{"vision/a": a, "vision/b": b}, newMapCooldowns(), prefs)

	msgs := []llm.Message{
		{Role: llm.RoleSystem, Content: "code generator"},
		{Role: llm.RoleUser, Content: "convert"},
	}
	out, err := g.CallVision(context.Background(), msgs, "iVBORw0KGgo=", "s1")

	require.NoError(t, err)
	assert.Equal(t, "<div/>", out)
	sent := b.seen[0]
	require.Len(t, sent, 2)
	assert.Equal(t, "code generator", sent[0].Content)
	require.Len(t, sent[1].Images, 1)
	assert.Equal(t, "image/png", sent[1].Images[0].MimeType)
	assert.Empty(t, msgs[1].Images, "caller messages are not mutated")
	assert.Equal(t, 8000, b.opts[0].MaxTokens)
	assert.False(t, b.opts[0].JSONMode)
	assert.Empty(t, prefs.saved)
}

func TestIsRateLimitError(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{errors.New("Error 429 Too Many Requests"), true},
		{errors.New("RateLimitError"), true},
		{errors.New("quota exceeded"), true},
		{errors.New("request timed out"), true},
		{context.DeadlineExceeded, true},
		{errors.New("invalid api key"), false},
		{nil, false},
	}
	for _, tc := range cases {
		name := "nil"
		if tc.err != nil {
			name = tc.err.Error()
		}
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsRateLimitError(tc.err))
		})
	}
}

func TestCallLogsCooldownDeadlineOfSkippedProvider(t *testing.T) {
	a := &fakeProvider{replies: []reply{{content: "unused"}}}
	b := &fakeProvider{replies: []reply{{content: "ok"}}}
	cd := newMapCooldowns()
	cd.MarkRateLimited("x/a")
	rec := &infoRecorder{ZapLogger: logger.NewNopLogger()}
	g := NewGateway(Config{Chain: []string{"x/a", "x/b"}, Temperature: 0.3},
		map[string]llm.LLMProvider{"x/a": a, "x/b": b}, cd, nil, rec, nil)

	out, err := g.Call(context.Background(), []llm.Message{{Role: llm.RoleUser, Content: "hi"}}, "j1")

	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, 0, a.calls)

	var skipped map[string]interface{}
	for _, e := range rec.entries {
		if e["message"] == "Skipping rate-limited provider" {
			skipped = e["details"].(map[string]interface{})
		}
	}
	require.NotNil(t, skipped)
	assert.Equal(t, "x/a", skipped["provider"])
	assert.Equal(t, "2026-01-01T12:00:00Z", skipped["cooldown_until"])
}
