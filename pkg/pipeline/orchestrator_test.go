package pipeline

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"testing"
	"time"

	"blueprint-research-be/pkg/llm/gateway"
	"blueprint-research-be/pkg/prompt"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var codePattern = regexp.MustCompile(`^BP-[0-9A-F]{6}$`)

func clarifySelection() map[string]interface{} {
	return map[string]interface{}{
		"answers": []interface{}{
			map[string]interface{}{"question_id": "platform", "selected_option_ids": []interface{}{"mobile"}},
		},
	}
}

// startJourney runs classification and returns the created journey id.
func startJourney(t *testing.T, h *harness) string {
	t.Helper()
	events := drain(h.orch.Start(context.Background(), "I want to build a note-taking app"))
	for _, ev := range events {
		if js, ok := ev.(JourneyStarted); ok {
			return js.JourneyID
		}
	}
	t.Fatalf("no journey started in %v", eventTypes(events))
	return ""
}

func resume(t *testing.T, h *harness, journeyID, stepType string, sel map[string]interface{}) []Event {
	t.Helper()
	j, err := h.store.GetJourney(context.Background(), journeyID)
	require.NoError(t, err)
	require.NotNil(t, j)
	return drain(h.orch.Resume(context.Background(), j, stepType, sel))
}

func TestStartBuildPromptAsksForClarification(t *testing.T) {
	h := newHarness(buildClassification)

	events := drain(h.orch.Start(context.Background(), "I want to build a note-taking app"))

	assert.Equal(t, []string{
		EventPhaseStarted,
		EventPhaseCompleted,
		EventJourneyStarted,
		EventClarificationNeeded,
		EventAwaitingSelection,
	}, eventTypes(events))

	started := events[0].(PhaseStarted)
	assert.Equal(t, PhaseClassifying, started.Phase)
	js := events[2].(JourneyStarted)
	assert.Equal(t, IntentBuild, js.IntentType)
	assert.NotEmpty(t, events[3].(ClarificationNeeded).Questions)
	assert.Equal(t, SelectionClarification, events[4].(AwaitingSelection).SelectionType)

	j, _ := h.store.GetJourney(context.Background(), js.JourneyID)
	require.Len(t, j.Steps, 1)
	assert.Equal(t, StepClassify, j.Steps[0].Type)
	assert.Equal(t, 1, j.Steps[0].Number)
	assert.Equal(t, "note-taking", j.Steps.Classification().Domain)
}

func TestStartQuickReply(t *testing.T) {
	tests := []struct {
		name     string
		classify string
		want     string
	}{
		{"model reply", `{"intent_type":"small_talk","quick_response":"Hi! Ask me about a market."}`, "Hi! Ask me about a market."},
		{"default reply", `{"intent_type":"off_topic"}`, prompt.DefaultQuickReply},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(tt.classify)

			events := drain(h.orch.Start(context.Background(), "hello"))

			assert.Equal(t, []string{EventPhaseStarted, EventPhaseCompleted, EventQuickReply}, eventTypes(events))
			assert.Equal(t, tt.want, events[2].(QuickReply).Message)
			assert.Empty(t, h.store.journeys)
		})
	}
}

func TestStartImproveRedirectsToExplore(t *testing.T) {
	h := newHarness(`{"intent_type":"improve","domain":"note-taking","clarification_questions":[]}`)

	events := drain(h.orch.Start(context.Background(), "How do I make my notes app better?"))

	assert.Equal(t, []string{
		EventPhaseStarted,
		EventPhaseCompleted,
		EventJourneyStarted,
		EventIntentRedirect,
		EventAwaitingSelection,
	}, eventTypes(events))
	assert.Equal(t, IntentExplore, events[2].(JourneyStarted).IntentType)

	redirect := events[3].(IntentRedirect)
	assert.Equal(t, IntentImprove, redirect.OriginalIntent)
	assert.Equal(t, IntentExplore, redirect.RedirectedTo)
	assert.Equal(t, prompt.ImproveRedirect, redirect.Message)

	j, _ := h.store.GetJourney(context.Background(), events[2].(JourneyStarted).JourneyID)
	assert.Equal(t, IntentExplore, j.IntentType)
}

func TestStartFailures(t *testing.T) {
	t.Run("providers exhausted", func(t *testing.T) {
		h := newHarness(buildClassification)
		h.llm.failing[markClassify] = fmt.Errorf("%w: last error: quota", gateway.ErrAllProvidersFailed)

		events := drain(h.orch.Start(context.Background(), "build a notes app"))

		assert.Equal(t, []string{EventPhaseStarted, EventError}, eventTypes(events))
		errEv := events[1].(ErrorEvent)
		assert.Equal(t, MsgGenerationFailed, errEv.Message)
		assert.False(t, errEv.Recoverable)
		assert.Regexp(t, codePattern, errEv.ErrorCode)
	})

	t.Run("schema exhausted", func(t *testing.T) {
		h := newHarness(`{"intent_type":"astrology"}`)

		events := drain(h.orch.Start(context.Background(), "build a notes app"))

		require.Equal(t, EventError, events[len(events)-1].EventType())
		assert.Equal(t, MsgGenerationFailed, events[len(events)-1].(ErrorEvent).Message)
		assert.Equal(t, 2, h.llm.count(markClassify))
	})

	t.Run("journey not saved", func(t *testing.T) {
		h := newHarness(buildClassification)
		h.store.createErr = errors.New("connection refused")

		events := drain(h.orch.Start(context.Background(), "build a notes app"))

		assert.Equal(t, []string{EventPhaseStarted, EventPhaseCompleted, EventError}, eventTypes(events))
		assert.Equal(t, MsgSaveFailed, events[2].(ErrorEvent).Message)
	})
}

func TestResumeClarifyFindsCompetitors(t *testing.T) {
	h := newHarness(buildClassification)
	id := startJourney(t, h)

	events := resume(t, h, id, string(StepClarify), clarifySelection())

	assert.Equal(t, []string{
		EventPhaseStarted,
		EventResultReady,
		EventPhaseCompleted,
		EventAwaitingSelection,
	}, eventTypes(events))
	assert.Equal(t, PhaseFindingCompetitors, events[0].(PhaseStarted).Phase)
	assert.Equal(t, SelectionCompetitors, events[3].(AwaitingSelection).SelectionType)

	list := events[1].(ResultReady).Result
	assert.Equal(t, ResultCompetitorList, list.Type)
	assert.Equal(t, "Competitors", list.Title)
	assert.Contains(t, list.Content, "**Alpha**: First\n\n**Beta**: Second")
	assert.Equal(t, []string{"https://alpha.io", "https://beta.io", "https://gamma.io"}, list.Sources)

	assert.Contains(t, h.searcher.queries, "note-taking mobile competitors")
	assert.Contains(t, h.searcher.queries, "site:reddit.com note-taking mobile")

	j, _ := h.store.GetJourney(context.Background(), id)
	require.Len(t, j.Steps, 3)
	assert.Equal(t, StepClarify, j.Steps[1].Type)
	assert.Equal(t, StepFindCompetitors, j.Steps[2].Type)
	assert.Equal(t, map[string][]string{"platform": {"mobile"}}, j.Steps.ClarificationContext())
	assert.Len(t, j.Steps.Competitors(), 4)

	require.Len(t, h.choices.choices, 1)
	assert.Equal(t, j.Steps[1].ID, h.choices.choices[0].stepID)
}

func TestExploreUnitFailsWhenScrapeFailsAndReviewsEmpty(t *testing.T) {
	h := newHarness(buildClassification)
	h.scraper.failing["https://gamma.io"] = true
	h.searcher.emptyRedditOf["Gamma review"] = true
	id := startJourney(t, h)
	resume(t, h, id, string(StepClarify), clarifySelection())

	events := resume(t, h, id, string(StepSelectCompetitors), map[string]interface{}{
		"competitor_ids": []interface{}{"alpha", "beta", "gamma"},
	})

	assert.Len(t, resultsOfType(events, ResultProductProfile), 2)
	errs := resultErrors(events)
	require.Len(t, errs, 1)
	assert.Equal(t, "Gamma", errs[0].ResultName)
	assert.Equal(t, MsgProductUnavailable, errs[0].Error)
	assert.Regexp(t, codePattern, errs[0].ErrorCode)
	assert.Len(t, resultsOfType(events, ResultMarketOverview), 1)

	types := eventTypes(events)
	assert.Equal(t, EventPhaseStarted, types[0])
	overviewAt := indexOfResult(events, ResultMarketOverview)
	for i, ev := range events[:overviewAt] {
		if rr, ok := ev.(ResultReady); ok {
			assert.Equal(t, ResultProductProfile, rr.Result.Type, "event %d", i)
		}
	}
	assert.Equal(t, EventPhaseCompleted, types[overviewAt+1])
	assert.Equal(t, EventAwaitingSelection, types[len(types)-1])
	assert.Equal(t, SelectionProblems, events[len(events)-1].(AwaitingSelection).SelectionType)
	assert.Len(t, resultsOfType(events, ResultGapAnalysis), 1)
}

func TestExploreUnitSurvivesScrapeFailureWithReviews(t *testing.T) {
	h := newHarness(buildClassification)
	h.scraper.failing["https://gamma.io"] = true
	id := startJourney(t, h)
	resume(t, h, id, string(StepClarify), clarifySelection())

	events := resume(t, h, id, string(StepSelectCompetitors), map[string]interface{}{
		"competitor_ids": []interface{}{"alpha", "beta", "gamma"},
	})

	assert.Len(t, resultsOfType(events, ResultProductProfile), 3)
	assert.Empty(t, resultErrors(events))
}

func indexOfResult(events []Event, kind string) int {
	for i, ev := range events {
		if rr, ok := ev.(ResultReady); ok && rr.Result.Type == kind {
			return i
		}
	}
	return -1
}

func TestBuildJourneyEndToEnd(t *testing.T) {
	h := newHarness(buildClassification)
	id := startJourney(t, h)
	resume(t, h, id, string(StepClarify), clarifySelection())
	resume(t, h, id, string(StepSelectCompetitors), map[string]interface{}{
		"selected_competitor_ids": []interface{}{"alpha", "beta"},
	})

	events := resume(t, h, id, string(StepSelectProblems), map[string]interface{}{
		"problem_ids": []interface{}{"gap-1"},
	})

	assert.Equal(t, []string{
		EventPhaseStarted,
		EventResultReady,
		EventPhaseCompleted,
		EventJourneyComplete,
	}, eventTypes(events))
	statement := events[1].(ResultReady).Result
	assert.Equal(t, ResultProblemStatement, statement.Type)
	assert.Equal(t, "Your Problem Statement", statement.Title)
	assert.Empty(t, statement.Sources)
	assert.Equal(t, id, events[3].(JourneyComplete).JourneyID)

	j, _ := h.store.GetJourney(context.Background(), id)
	assert.Equal(t, StatusCompleted, j.Status)

	wantTypes := []StepType{
		StepClassify, StepClarify, StepFindCompetitors, StepSelectCompetitors,
		StepExplore, StepSelectProblems, StepDefineProblem,
	}
	require.Len(t, j.Steps, len(wantTypes))
	for i, st := range j.Steps {
		assert.Equal(t, i+1, st.Number)
		assert.Equal(t, wantTypes[i], st.Type)
	}
	assert.Len(t, j.Steps.GapProblems(), 2)
	assert.Len(t, h.choices.choices, 3)
	assert.ElementsMatch(t, []string{"alpha", "beta"}, h.cache.stored)
}

func TestExploreIntentCompletesAfterOverview(t *testing.T) {
	h := newHarness(`{"intent_type":"explore","domain":"note-taking","clarification_questions":[]}`)
	id := startJourney(t, h)
	resume(t, h, id, string(StepClarify), map[string]interface{}{"answers": []interface{}{}})

	events := resume(t, h, id, string(StepSelectCompetitors), map[string]interface{}{
		"competitor_ids": []interface{}{"alpha"},
	})

	assert.Equal(t, []string{
		EventPhaseStarted,
		EventResultReady,
		EventResultReady,
		EventPhaseCompleted,
		EventJourneyComplete,
	}, eventTypes(events))
	assert.Equal(t, "Research complete", events[4].(JourneyComplete).Summary)
	assert.Equal(t, 0, h.llm.count(markGaps))

	j, _ := h.store.GetJourney(context.Background(), id)
	assert.Equal(t, StatusCompleted, j.Status)
	last := j.Steps[len(j.Steps)-1]
	assert.Equal(t, StepExplore, last.Type)
	assert.Contains(t, string(last.Output), `"market_overview"`)
	assert.Contains(t, string(last.Input), `"products_to_explore":["Alpha"]`)
}

func TestExploreUsesFreshCache(t *testing.T) {
	h := newHarness(`{"intent_type":"explore","domain":"note-taking"}`)
	scrapedAt := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	h.cache.products["alpha"] = &CachedProduct{
		Name:          "Alpha",
		Description:   "Cached description",
		Category:      "Students",
		PricingModel:  "Freemium",
		LastScrapedAt: scrapedAt,
	}
	id := startJourney(t, h)
	resume(t, h, id, string(StepClarify), clarifySelection())

	events := resume(t, h, id, string(StepSelectCompetitors), map[string]interface{}{
		"competitor_ids": []interface{}{"alpha"},
	})

	profiles := resultsOfType(events, ResultProductProfile)
	require.Len(t, profiles, 1)
	assert.True(t, profiles[0].Cached)
	require.NotNil(t, profiles[0].CachedAt)
	assert.True(t, scrapedAt.Equal(*profiles[0].CachedAt))
	assert.Equal(t, "Cached description", profiles[0].Content)

	view := profiles[0].OutputData["profile"].(ProfileView)
	assert.Equal(t, "Freemium", view.PricingTiers)
	assert.Equal(t, "Students", view.TargetAudience)
	assert.Empty(t, h.scraper.calls)
	assert.Equal(t, 0, h.llm.count(markProfile))
}

func TestGapFailureEndsJourney(t *testing.T) {
	h := newHarness(buildClassification)
	h.llm.failing[markGaps] = gateway.ErrAllProvidersFailed
	id := startJourney(t, h)
	resume(t, h, id, string(StepClarify), clarifySelection())

	events := resume(t, h, id, string(StepSelectCompetitors), map[string]interface{}{
		"competitor_ids": []interface{}{"alpha"},
	})

	errs := resultErrors(events)
	require.Len(t, errs, 1)
	assert.Equal(t, "Gap Analysis", errs[0].ResultName)
	assert.Equal(t, MsgGapFailed, errs[0].Error)
	assert.Equal(t, EventJourneyComplete, events[len(events)-1].EventType())

	j, _ := h.store.GetJourney(context.Background(), id)
	assert.Equal(t, StatusCompleted, j.Status)
	assert.Empty(t, j.Steps.GapProblems())
}

func TestOverviewFailureIsPartial(t *testing.T) {
	h := newHarness(`{"intent_type":"explore","domain":"note-taking"}`)
	h.llm.failing[markOverview] = errors.New("boom")
	id := startJourney(t, h)
	resume(t, h, id, string(StepClarify), clarifySelection())

	events := resume(t, h, id, string(StepSelectCompetitors), map[string]interface{}{
		"competitor_ids": []interface{}{"alpha"},
	})

	errs := resultErrors(events)
	require.Len(t, errs, 1)
	assert.Equal(t, "Market Overview", errs[0].ResultName)
	assert.Equal(t, MsgOverviewFailed, errs[0].Error)
	assert.Equal(t, EventJourneyComplete, events[len(events)-1].EventType())
}

func TestResumeInvalidStepType(t *testing.T) {
	h := newHarness(buildClassification)
	id := startJourney(t, h)

	events := resume(t, h, id, "classify", map[string]interface{}{})

	require.Len(t, events, 1)
	errEv := events[0].(ErrorEvent)
	assert.Equal(t, MsgInvalidStepType, errEv.Message)
	assert.False(t, errEv.Recoverable)
	assert.Regexp(t, codePattern, errEv.ErrorCode)
}

func TestResumeSurvivesCancelledRequest(t *testing.T) {
	h := newHarness(buildClassification)
	id := startJourney(t, h)
	j, _ := h.store.GetJourney(context.Background(), id)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	events := drain(h.orch.Resume(ctx, j, string(StepClarify), clarifySelection()))

	assert.Equal(t, EventAwaitingSelection, events[len(events)-1].EventType())
	after, _ := h.store.GetJourney(context.Background(), id)
	assert.Len(t, after.Steps, 3)
}

func TestResumeRejectsSelectionOutOfOrder(t *testing.T) {
	h := newHarness(buildClassification)
	id := startJourney(t, h)

	events := resume(t, h, id, string(StepSelectProblems), map[string]interface{}{
		"problem_ids": []interface{}{"gap-1"},
	})

	require.Len(t, events, 1)
	errEv := events[0].(ErrorEvent)
	assert.Equal(t, MsgSelectionOutOfOrder, errEv.Message)
	assert.Regexp(t, codePattern, errEv.ErrorCode)

	j, _ := h.store.GetJourney(context.Background(), id)
	assert.Equal(t, StatusActive, j.Status)
	require.Len(t, j.Steps, 1)
	assert.Equal(t, StepClassify, j.Steps[0].Type)
	assert.Zero(t, h.llm.count(markProblem))
}

func TestExploreUnitPanicIsPartialFailure(t *testing.T) {
	h := newHarness(buildClassification)
	h.scraper.panicking["https://gamma.io"] = true
	id := startJourney(t, h)
	resume(t, h, id, string(StepClarify), clarifySelection())

	events := resume(t, h, id, string(StepSelectCompetitors), map[string]interface{}{
		"competitor_ids": []interface{}{"alpha", "beta", "gamma"},
	})

	assert.Len(t, resultsOfType(events, ResultProductProfile), 2)
	errs := resultErrors(events)
	require.Len(t, errs, 1)
	assert.Equal(t, "Gamma", errs[0].ResultName)
	assert.Equal(t, MsgProductUnavailable, errs[0].Error)
	assert.Len(t, resultsOfType(events, ResultMarketOverview), 1)
	assert.Equal(t, EventAwaitingSelection, events[len(events)-1].EventType())
}

func TestCompetitorLookupPanicIsTolerated(t *testing.T) {
	h := newHarness(buildClassification)
	h.searcher.panicOn["note-taking mobile competitors"] = true
	id := startJourney(t, h)

	events := resume(t, h, id, string(StepClarify), clarifySelection())

	assert.Len(t, resultsOfType(events, ResultCompetitorList), 1)
	assert.Empty(t, resultErrors(events))
	assert.Equal(t, EventAwaitingSelection, events[len(events)-1].EventType())
	assert.Equal(t, 1, h.llm.count(markCompetitors))
}

func TestFindCompetitorsSeedsAlternativesOnMiss(t *testing.T) {
	tests := []struct {
		name      string
		seeded    bool
		wantNames []string
		wantURL   string
	}{
		{name: "miss stores discovered list", wantNames: []string{"Alpha", "Beta", "Gamma", "Delta"}, wantURL: "https://example.com/notes"},
		{name: "existing entry is kept", seeded: true, wantNames: []string{"Notion"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(buildClassification)
			if !tt.seeded {
				delete(h.cache.alternatives, "note-taking")
			}
			id := startJourney(t, h)
			resume(t, h, id, string(StepClarify), clarifySelection())

			var names []string
			for _, a := range h.cache.alternatives["note-taking"] {
				names = append(names, a.Name)
			}
			assert.Equal(t, tt.wantNames, names)
			assert.Equal(t, tt.wantURL, h.cache.altSources["note-taking"])
		})
	}
}
