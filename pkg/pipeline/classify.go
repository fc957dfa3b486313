package pipeline

import (
	"context"
	"fmt"

	"blueprint-research-be/pkg/llm/structured"
	"blueprint-research-be/pkg/prompt"
)

func (o *Orchestrator) classify(ctx context.Context, emit emitFunc, userPrompt string) error {
	emit(NewPhaseStarted(PhaseClassifying, "Understanding your query"))

	res, err := structured.Generate[ClassifyResult](ctx, o.llm, prompt.Classify(userPrompt), "")
	if err != nil {
		return err
	}
	emit(NewPhaseCompleted(PhaseClassifying))

	if res.IntentType == IntentSmallTalk || res.IntentType == IntentOffTopic {
		msg := res.QuickResponse
		if msg == "" {
			msg = prompt.DefaultQuickReply
		}
		emit(NewQuickReply(msg))
		return nil
	}

	// improve has no path of its own yet and runs as explore.
	intent := res.IntentType
	if intent == IntentImprove {
		intent = IntentExplore
	}

	journeyID, err := o.journeys.CreateJourney(ctx, userPrompt, intent)
	if err != nil {
		return fmt.Errorf("%w: %v", errCreateJourney, err)
	}
	emit(NewJourneyStarted(journeyID, intent))

	if res.IntentType == IntentImprove {
		emit(NewIntentRedirect(IntentImprove, IntentExplore, prompt.ImproveRedirect))
	}

	step := ClassifyStep{
		Input: ClassifyInput{Prompt: userPrompt},
		Output: ClassifyOutput{
			IntentType:             intent,
			Domain:                 res.Domain,
			ClarificationQuestions: res.ClarificationQuestions,
		},
	}
	if _, err := o.saveStep(ctx, journeyID, step); err != nil {
		return err
	}

	if len(res.ClarificationQuestions) > 0 {
		emit(NewClarificationNeeded(res.ClarificationQuestions))
	}
	emit(NewAwaitingSelection(SelectionClarification))
	return nil
}
