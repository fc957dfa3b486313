package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"blueprint-research-be/internal/pkg/errcode"
	"blueprint-research-be/internal/pkg/logger"
	"blueprint-research-be/pkg/llm/gateway"
	"blueprint-research-be/pkg/llm/structured"
	"blueprint-research-be/pkg/metrics"
)

const logModule = "RESEARCH"

// Phases as reported in phase_started and phase_completed.
const (
	PhaseClassifying        = "classifying"
	PhaseFindingCompetitors = "finding_competitors"
	PhaseExploring          = "exploring"
	PhaseGapAnalyzing       = "gap_analyzing"
	PhaseDefiningProblem    = "defining_problem"
)

// Selection types announced by awaiting_selection.
const (
	SelectionClarification = "clarification"
	SelectionCompetitors   = "competitors"
	SelectionProblems      = "problems"
)

// User-facing messages. Internal errors never reach the client.
const (
	MsgGenerationFailed    = "We're having trouble generating results right now. Please try again in a moment."
	MsgUnexpected          = "Something unexpected happened. Please try again."
	MsgSaveFailed          = "Something went wrong saving your research. Please try again."
	MsgInvalidStepType     = "Invalid selection step type."
	MsgSelectionOutOfOrder = "This journey isn't waiting for that selection."
	MsgProductUnavailable  = "We couldn't access this product's website. Other results are still available."
	MsgOverviewFailed      = "We couldn't generate the market overview. Other results are still available."
	MsgGapFailed           = "We couldn't identify market gaps. Other results are still available."

	researchCompleteSummary = "Research complete"
)

var errCreateJourney = errors.New("create journey")

// ChoiceRecorder receives every selection the user makes, with what was on offer.
type ChoiceRecorder interface {
	RecordChoice(ctx context.Context, journeyID, stepID string, presented, selected interface{})
}

// Orchestrator runs one pipeline phase per request and streams its events.
type Orchestrator struct {
	journeys JourneyStore
	products ProductCache
	searcher Searcher
	scraper  Scraper
	llm      *structured.Validator
	choices  ChoiceRecorder
	log      logger.ILogger
	metrics  *metrics.Metrics
}

func NewOrchestrator(
	journeys JourneyStore,
	products ProductCache,
	searcher Searcher,
	scraper Scraper,
	llm *structured.Validator,
	log logger.ILogger,
	m *metrics.Metrics,
) *Orchestrator {
	return &Orchestrator{
		journeys: journeys,
		products: products,
		searcher: searcher,
		scraper:  scraper,
		llm:      llm,
		log:      log,
		metrics:  m,
	}
}

// SetChoiceRecorder enables the user choice log.
func (o *Orchestrator) SetChoiceRecorder(r ChoiceRecorder) {
	o.choices = r
}

type emitFunc func(Event)

// Start classifies a fresh prompt. The returned channel is closed when the phase ends
// and must be drained by the caller.
func (o *Orchestrator) Start(ctx context.Context, userPrompt string) <-chan Event {
	return o.run(ctx, "", PhaseClassifying, func(ctx context.Context, emit emitFunc) error {
		return o.classify(ctx, emit, userPrompt)
	})
}

// Resume continues journey j with the selection submitted for stepType.
func (o *Orchestrator) Resume(ctx context.Context, j *Journey, stepType string, raw map[string]interface{}) <-chan Event {
	sel, err := DecodeSelection(stepType, raw)
	if err != nil {
		return o.run(ctx, j.ID, stepType, func(context.Context, emitFunc) error {
			return err
		})
	}

	if err := j.CheckSelection(stepType); err != nil {
		return o.run(ctx, j.ID, stepType, func(context.Context, emitFunc) error {
			return err
		})
	}

	switch s := sel.(type) {
	case ClarifySelection:
		return o.run(ctx, j.ID, PhaseFindingCompetitors, func(ctx context.Context, emit emitFunc) error {
			return o.findCompetitors(ctx, emit, j, s)
		})
	case CompetitorSelection:
		return o.run(ctx, j.ID, PhaseExploring, func(ctx context.Context, emit emitFunc) error {
			return o.explore(ctx, emit, j, s)
		})
	case ProblemSelection:
		return o.run(ctx, j.ID, PhaseDefiningProblem, func(ctx context.Context, emit emitFunc) error {
			return o.defineProblem(ctx, emit, j, s)
		})
	}
	return o.run(ctx, j.ID, stepType, func(context.Context, emitFunc) error {
		return fmt.Errorf("%w: %q", ErrInvalidStepType, stepType)
	})
}

// run executes phase on its own goroutine. The phase context is detached from the
// request so that a client disconnect never leaves a step half written.
func (o *Orchestrator) run(ctx context.Context, journeyID, pipeline string, phase func(context.Context, emitFunc) error) <-chan Event {
	events := make(chan Event, 16)
	emit := func(ev Event) { events <- ev }

	go func() {
		defer close(events)
		start := time.Now()
		defer func() {
			if r := recover(); r != nil {
				o.fail(emit, journeyID, pipeline, fmt.Errorf("panic: %v", r))
			}
			o.metrics.RecordPhase(pipeline, time.Since(start))
		}()

		o.log.Info(logModule, "pipeline started", map[string]interface{}{
			"journey_id": journeyID,
			"pipeline":   pipeline,
		})
		if err := phase(context.WithoutCancel(ctx), emit); err != nil {
			o.fail(emit, journeyID, pipeline, err)
			return
		}
		o.log.Info(logModule, "pipeline completed", map[string]interface{}{
			"journey_id":  journeyID,
			"pipeline":    pipeline,
			"duration_ms": time.Since(start).Milliseconds(),
		})
	}()
	return events
}

// recovered runs fn and reports a panic inside it as an error.
func recovered(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}

// tolerate runs an optional lookup. Its failure, panics included, is logged and
// the lookup contributes nothing.
func (o *Orchestrator) tolerate(journeyID, lookup string, fn func() error) error {
	if err := recovered(fn); err != nil {
		o.log.Warn(logModule, lookup+" failed", map[string]interface{}{
			"journey_id": journeyID,
			"error":      err.Error(),
		})
	}
	return nil
}

// fail maps a phase-fatal error to the terminal error event.
func (o *Orchestrator) fail(emit emitFunc, journeyID, pipeline string, err error) {
	code := errcode.New()
	message := MsgUnexpected

	var schemaErr *structured.SchemaValidationError
	switch {
	case errors.Is(err, gateway.ErrAllProvidersFailed), errors.As(err, &schemaErr):
		message = MsgGenerationFailed
	case errors.Is(err, errCreateJourney):
		message = MsgSaveFailed
	case errors.Is(err, ErrInvalidStepType):
		message = MsgInvalidStepType
	case errors.Is(err, ErrSelectionOutOfOrder):
		message = MsgSelectionOutOfOrder
	}

	o.log.Error(logModule, "pipeline error", map[string]interface{}{
		"journey_id": journeyID,
		"pipeline":   pipeline,
		"error":      err.Error(),
		"error_code": code,
	})
	emit(NewErrorEvent(message, code))
}

// saveStep appends payload as the journey's next step.
func (o *Orchestrator) saveStep(ctx context.Context, journeyID string, payload StepPayload) (string, error) {
	n, err := o.journeys.NextStepNumber(ctx, journeyID)
	if err != nil {
		return "", fmt.Errorf("next step number: %w", err)
	}
	id, err := o.journeys.SaveStep(ctx, journeyID, n, payload)
	if err != nil {
		return "", fmt.Errorf("save %s step: %w", payload.StepType(), err)
	}
	return id, nil
}

func (o *Orchestrator) complete(ctx context.Context, emit emitFunc, journeyID string) error {
	if err := o.journeys.UpdateStatus(ctx, journeyID, StatusCompleted); err != nil {
		return fmt.Errorf("complete journey: %w", err)
	}
	emit(NewJourneyComplete(journeyID, researchCompleteSummary))
	return nil
}

func (o *Orchestrator) recordChoice(ctx context.Context, journeyID, stepID string, presented, selected interface{}) {
	if o.choices == nil {
		return
	}
	o.choices.RecordChoice(ctx, journeyID, stepID, presented, selected)
}

// partialFailure reports one failed result unit without ending the phase.
func (o *Orchestrator) partialFailure(emit emitFunc, journeyID, name, message string, err error) {
	code := errcode.New()
	o.log.Warn(logModule, "result failed", map[string]interface{}{
		"journey_id":  journeyID,
		"result_name": name,
		"error":       err.Error(),
		"error_code":  code,
	})
	emit(NewResultError(name, message, code))
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
