package pipeline

import (
	"context"

	"blueprint-research-be/pkg/llm/structured"
	"blueprint-research-be/pkg/prompt"
)

func (o *Orchestrator) defineProblem(ctx context.Context, emit emitFunc, j *Journey, sel ProblemSelection) error {
	problems := j.Steps.GapProblems()

	ids := sel.IDs()
	refs := make([]ProblemRef, 0, len(problems))
	selected := make([]ProblemArea, 0, len(ids))
	for _, p := range problems {
		refs = append(refs, ProblemRef{ID: p.ID, Title: p.Title})
		if containsID(ids, p.ID) {
			selected = append(selected, p)
		}
	}

	var analyzed []string
	for _, c := range j.Steps.Competitors() {
		if c.Name != "" {
			analyzed = append(analyzed, c.Name)
		}
	}
	research := ProblemContext{
		Domain:               j.Steps.Classification().Domain,
		CompetitorsAnalyzed:  nonNil(analyzed),
		ClarificationContext: j.Steps.ClarificationContext(),
	}

	stepID, err := o.saveStep(ctx, j.ID, SelectProblemsStep{
		Input:     SelectProblemsInput{ProblemsPresented: refs},
		Selection: sel,
	})
	if err != nil {
		return err
	}
	o.recordChoice(ctx, j.ID, stepID, refs, sel)

	emit(NewPhaseStarted(PhaseDefiningProblem, "Defining your problem"))

	statement, err := structured.Generate[ProblemStatement](ctx, o.llm, prompt.ProblemStatement(selected, research), j.ID)
	if err != nil {
		return err
	}
	result := newResult(
		ResultProblemStatement,
		statement.Title,
		statement.Content,
		map[string]interface{}{"statement": statement},
		nil,
	)

	_, err = o.saveStep(ctx, j.ID, DefineProblemStep{
		Input:  DefineProblemInput{SelectedProblems: selected, CompetitorContext: research},
		Output: DefineProblemOutput{ProblemStatement: statement},
	})
	if err != nil {
		return err
	}

	emit(NewResultReady(result))
	emit(NewPhaseCompleted(PhaseDefiningProblem))
	return o.complete(ctx, emit, j.ID)
}
