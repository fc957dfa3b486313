package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"blueprint-research-be/internal/pkg/logger"
	"blueprint-research-be/pkg/llm"
	"blueprint-research-be/pkg/llm/structured"
	"blueprint-research-be/pkg/search"
)

type memStore struct {
	mu        sync.Mutex
	seq       int
	journeys  map[string]*Journey
	createErr error
}

func newMemStore() *memStore {
	return &memStore{journeys: make(map[string]*Journey)}
}

func (s *memStore) CreateJourney(_ context.Context, prompt, intent string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return "", s.createErr
	}
	s.seq++
	id := fmt.Sprintf("journey-%d", s.seq)
	s.journeys[id] = &Journey{ID: id, InitialPrompt: prompt, IntentType: intent, Status: StatusActive, CreatedAt: time.Now()}
	return id, nil
}

func (s *memStore) GetJourney(_ context.Context, id string) (*Journey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.journeys[id]
	if !ok {
		return nil, nil
	}
	cp := *j
	cp.Steps = append(Steps(nil), j.Steps...)
	return &cp, nil
}

func encodePart(v interface{}) json.RawMessage {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

func (s *memStore) SaveStep(_ context.Context, journeyID string, number int, payload StepPayload) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.journeys[journeyID]
	if !ok {
		return "", errors.New("journey not found")
	}
	in, out, sel := payload.Parts()
	rec := StepRecord{
		ID:        fmt.Sprintf("%s-step-%d", journeyID, number),
		Number:    number,
		Type:      payload.StepType(),
		Input:     encodePart(in),
		Output:    encodePart(out),
		Selection: encodePart(sel),
	}
	j.Steps = append(j.Steps, rec)
	return rec.ID, nil
}

func (s *memStore) NextStepNumber(_ context.Context, journeyID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	max := 0
	for _, st := range s.journeys[journeyID].Steps {
		if st.Number > max {
			max = st.Number
		}
	}
	return max + 1, nil
}

func (s *memStore) UpdateStatus(_ context.Context, journeyID, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.journeys[journeyID].Status = status
	return nil
}

type memCache struct {
	mu           sync.Mutex
	products     map[string]*CachedProduct
	stored       []string
	alternatives map[string][]Alternative
	altSources   map[string]string
}

func newMemCache() *memCache {
	return &memCache{
		products:     make(map[string]*CachedProduct),
		alternatives: map[string][]Alternative{"note-taking": {{Name: "Notion"}}},
		altSources:   make(map[string]string),
	}
}

func (c *memCache) GetCachedProduct(_ context.Context, name string) (*CachedProduct, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.products[name], nil
}

func (c *memCache) StoreProduct(_ context.Context, name, _ string, _ ProductProfile) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stored = append(c.stored, name)
	return nil
}

func (c *memCache) GetCachedAlternatives(_ context.Context, name string) ([]Alternative, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.alternatives[name], nil
}

func (c *memCache) StoreAlternatives(_ context.Context, name string, alts []Alternative, sourceURL string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.alternatives[NormalizeProductName(name)] = alts
	c.altSources[NormalizeProductName(name)] = sourceURL
	return nil
}

type fakeSearcher struct {
	mu            sync.Mutex
	queries       []string
	emptyRedditOf map[string]bool
	panicOn       map[string]bool
}

func (s *fakeSearcher) Search(_ context.Context, query string, _ int) []search.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries = append(s.queries, query)
	if s.panicOn[query] {
		panic("search backend crashed")
	}
	return []search.Result{{Title: "Best note apps", URL: "https://example.com/notes", Snippet: "roundup"}}
}

func (s *fakeSearcher) SearchReddit(ctx context.Context, query string, limit int) []search.Result {
	if s.emptyRedditOf[query] {
		return []search.Result{}
	}
	return s.Search(ctx, "site:reddit.com "+query, limit)
}

var errScrapeFake = errors.New("scrape failed")

type fakeScraper struct {
	mu        sync.Mutex
	failing   map[string]bool
	panicking map[string]bool
	calls     []string
}

func (s *fakeScraper) Scrape(_ context.Context, url string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, url)
	if s.panicking[url] {
		var broken map[string]int
		broken[url]++
	}
	if s.failing[url] {
		return "", errScrapeFake
	}
	return "Homepage of " + url, nil
}

// scriptedLLM answers by recognising which prompt it was given.
type scriptedLLM struct {
	mu       sync.Mutex
	classify string
	failing  map[string]error
	calls    []string
}

const (
	markClassify    = "gatekeeper of a product research tool"
	markCompetitors = "You find competitors"
	markProfile     = "You profile one product"
	markOverview    = "You write a market overview"
	markGaps        = "You identify market gaps"
	markProblem     = "You turn the market gaps"
)

const (
	buildClassification = `{"intent_type":"build","domain":"note-taking","clarification_questions":[{"id":"platform","label":"Which platforms?","options":[{"id":"mobile","label":"Mobile","description":"Phones"}],"allow_multiple":true}]}`
	competitorsReply    = `{"competitors":[{"id":"alpha","name":"Alpha","description":"First","url":"https://alpha.io"},{"id":"beta","name":"Beta","description":"Second","url":"https://beta.io"},{"id":"gamma","name":"Gamma","description":"Third","url":"https://gamma.io"},{"id":"delta","name":"Delta","description":"Fourth","url":"https://alpha.io"}],"sources":[]}`
	overviewReply       = `{"title":"Market Overview: note-taking","content":"A crowded market.","sources":["https://example.com"]}`
	gapsReply           = "```json\n" + `{"title":"Market Gaps","problems":[{"id":"gap-1","title":"Offline sync","description":"Sync breaks offline","evidence":["reddit"]},{"id":"gap-2","title":"Pricing","description":"Too expensive","evidence":["reviews"]}],"sources":[]}` + "\n```"
	problemReply        = `{"title":"Your Problem Statement","content":"Students lose notes when offline.","target_user":"Students","key_differentiators":["offline first"],"validation_questions":["Would you pay?"]}`
)

func newScriptedLLM(classify string) *scriptedLLM {
	return &scriptedLLM{classify: classify, failing: make(map[string]error)}
}

func (s *scriptedLLM) Call(_ context.Context, messages []llm.Message, _ string) (string, error) {
	content := messages[len(messages)-1].Content

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, mark := range []string{markClassify, markCompetitors, markProfile, markOverview, markGaps, markProblem} {
		if !strings.Contains(content, mark) {
			continue
		}
		s.calls = append(s.calls, mark)
		if err := s.failing[mark]; err != nil {
			return "", err
		}
		switch mark {
		case markClassify:
			return s.classify, nil
		case markCompetitors:
			return competitorsReply, nil
		case markProfile:
			name := productNameIn(content)
			return fmt.Sprintf(`{"name":%q,"content":"%s profile","features_summary":["notes"],"strengths":["fast"],"weaknesses":["pricey"],"sources":["https://%s.io"]}`,
				name, name, strings.ToLower(name)), nil
		case markOverview:
			return overviewReply, nil
		case markGaps:
			return gapsReply, nil
		case markProblem:
			return problemReply, nil
		}
	}
	return "", errors.New("unexpected prompt")
}

func (s *scriptedLLM) count(mark string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if c == mark {
			n++
		}
	}
	return n
}

func productNameIn(content string) string {
	const header = "# Product\n"
	i := strings.Index(content, header)
	if i < 0 {
		return "Unknown"
	}
	rest := content[i+len(header):]
	if j := strings.Index(rest, "\n"); j >= 0 {
		return rest[:j]
	}
	return rest
}

type recordedChoice struct {
	journeyID string
	stepID    string
	selected  interface{}
}

type choiceLog struct {
	mu      sync.Mutex
	choices []recordedChoice
}

func (c *choiceLog) RecordChoice(_ context.Context, journeyID, stepID string, _, selected interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.choices = append(c.choices, recordedChoice{journeyID: journeyID, stepID: stepID, selected: selected})
}

type harness struct {
	store    *memStore
	cache    *memCache
	searcher *fakeSearcher
	scraper  *fakeScraper
	llm      *scriptedLLM
	choices  *choiceLog
	orch     *Orchestrator
}

func newHarness(classify string) *harness {
	h := &harness{
		store:    newMemStore(),
		cache:    newMemCache(),
		searcher: &fakeSearcher{emptyRedditOf: make(map[string]bool), panicOn: make(map[string]bool)},
		scraper:  &fakeScraper{failing: make(map[string]bool), panicking: make(map[string]bool)},
		llm:      newScriptedLLM(classify),
		choices:  &choiceLog{},
	}
	log := logger.NewNopLogger()
	v := structured.NewValidator(h.llm, log)
	h.orch = NewOrchestrator(h.store, h.cache, h.searcher, h.scraper, v, log, nil)
	h.orch.SetChoiceRecorder(h.choices)
	return h
}

func drain(ch <-chan Event) []Event {
	var out []Event
	for ev := range ch {
		out = append(out, ev)
	}
	return out
}

func eventTypes(events []Event) []string {
	out := make([]string, 0, len(events))
	for _, ev := range events {
		out = append(out, ev.EventType())
	}
	return out
}

func resultsOfType(events []Event, kind string) []Result {
	var out []Result
	for _, ev := range events {
		if rr, ok := ev.(ResultReady); ok && rr.Result.Type == kind {
			out = append(out, rr.Result)
		}
	}
	return out
}

func resultErrors(events []Event) []ResultError {
	var out []ResultError
	for _, ev := range events {
		if re, ok := ev.(ResultError); ok {
			out = append(out, re)
		}
	}
	return out
}
