package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
)

type StepType string

const (
	StepClassify          StepType = "classify"
	StepClarify           StepType = "clarify"
	StepFindCompetitors   StepType = "find_competitors"
	StepSelectCompetitors StepType = "select_competitors"
	StepExplore           StepType = "explore"
	StepSelectProblems    StepType = "select_problems"
	StepDefineProblem     StepType = "define_problem"
)

var (
	ErrInvalidStepType     = errors.New("invalid selection step type")
	ErrSelectionOutOfOrder = errors.New("selection does not match the pending step")
)

// StepPayload is the closed set of step records a phase can persist.
// Each variant fixes the input, output and selection shapes for its step type.
type StepPayload interface {
	StepType() StepType
	// Parts returns the values stored as input_data, output_data and user_selection.
	// A nil part is stored as NULL.
	Parts() (input, output, selection interface{})
	isStepPayload()
}

type ClassifyInput struct {
	Prompt string `json:"prompt"`
}

type ClassifyOutput struct {
	IntentType             string                  `json:"intent_type"`
	Domain                 string                  `json:"domain"`
	ClarificationQuestions []ClarificationQuestion `json:"clarification_questions"`
}

type ClassifyStep struct {
	Input  ClassifyInput
	Output ClassifyOutput
}

type ClarifyInput struct {
	QuestionsPresented []ClarificationQuestion `json:"questions_presented"`
}

type ClarifyStep struct {
	Input     ClarifyInput
	Selection ClarifySelection
}

type FindCompetitorsInput struct {
	Domain               string              `json:"domain"`
	ClarificationContext map[string][]string `json:"clarification_context"`
	SearchQuery          string              `json:"search_query"`
}

type FindCompetitorsOutput struct {
	Competitors []CompetitorInfo `json:"competitors"`
	Sources     []string         `json:"sources"`
}

type FindCompetitorsStep struct {
	Input  FindCompetitorsInput
	Output FindCompetitorsOutput
}

type CompetitorRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type SelectCompetitorsInput struct {
	CompetitorsPresented []CompetitorRef `json:"competitors_presented"`
}

type SelectCompetitorsStep struct {
	Input     SelectCompetitorsInput
	Selection CompetitorSelection
}

// ProfileView is a product profile as shown to the user, with cache provenance.
type ProfileView struct {
	ProductProfile
	Cached   bool       `json:"cached"`
	CachedAt *time.Time `json:"cached_at"`
}

// Explore step recorded on the build path, where gap analysis follows the profiles.
type GapExploreInput struct {
	Profiles []ProfileView `json:"profiles"`
	Domain   string        `json:"domain"`
}

type GapExploreOutput struct {
	GapAnalysis     *GapAnalysis  `json:"gap_analysis"`
	ProductProfiles []ProfileView `json:"product_profiles"`
}

type GapExploreStep struct {
	Input  GapExploreInput
	Output GapExploreOutput
}

// Explore step recorded on the explore path, which ends with the market overview.
type MarketExploreInput struct {
	ProductsToExplore []string `json:"products_to_explore"`
	Domain            string   `json:"domain"`
}

type MarketExploreOutput struct {
	ProductProfiles []ProfileView   `json:"product_profiles"`
	MarketOverview  *MarketOverview `json:"market_overview"`
}

type MarketExploreStep struct {
	Input  MarketExploreInput
	Output MarketExploreOutput
}

type ProblemRef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type SelectProblemsInput struct {
	ProblemsPresented []ProblemRef `json:"problems_presented"`
}

type SelectProblemsStep struct {
	Input     SelectProblemsInput
	Selection ProblemSelection
}

type ProblemContext struct {
	Domain               string              `json:"domain"`
	CompetitorsAnalyzed  []string            `json:"competitors_analyzed"`
	ClarificationContext map[string][]string `json:"clarification_context"`
}

type DefineProblemInput struct {
	SelectedProblems  []ProblemArea  `json:"selected_problems"`
	CompetitorContext ProblemContext `json:"competitor_context"`
}

type DefineProblemOutput struct {
	ProblemStatement ProblemStatement `json:"problem_statement"`
}

type DefineProblemStep struct {
	Input  DefineProblemInput
	Output DefineProblemOutput
}

func (ClassifyStep) StepType() StepType          { return StepClassify }
func (ClarifyStep) StepType() StepType           { return StepClarify }
func (FindCompetitorsStep) StepType() StepType   { return StepFindCompetitors }
func (SelectCompetitorsStep) StepType() StepType { return StepSelectCompetitors }
func (GapExploreStep) StepType() StepType        { return StepExplore }
func (MarketExploreStep) StepType() StepType     { return StepExplore }
func (SelectProblemsStep) StepType() StepType    { return StepSelectProblems }
func (DefineProblemStep) StepType() StepType     { return StepDefineProblem }

func (s ClassifyStep) Parts() (interface{}, interface{}, interface{}) {
	return s.Input, s.Output, nil
}
func (s ClarifyStep) Parts() (interface{}, interface{}, interface{}) {
	return s.Input, nil, s.Selection
}
func (s FindCompetitorsStep) Parts() (interface{}, interface{}, interface{}) {
	return s.Input, s.Output, nil
}
func (s SelectCompetitorsStep) Parts() (interface{}, interface{}, interface{}) {
	return s.Input, nil, s.Selection
}
func (s GapExploreStep) Parts() (interface{}, interface{}, interface{}) {
	return s.Input, s.Output, nil
}
func (s MarketExploreStep) Parts() (interface{}, interface{}, interface{}) {
	return s.Input, s.Output, nil
}
func (s SelectProblemsStep) Parts() (interface{}, interface{}, interface{}) {
	return s.Input, nil, s.Selection
}
func (s DefineProblemStep) Parts() (interface{}, interface{}, interface{}) {
	return s.Input, s.Output, nil
}

func (ClassifyStep) isStepPayload()          {}
func (ClarifyStep) isStepPayload()           {}
func (FindCompetitorsStep) isStepPayload()   {}
func (SelectCompetitorsStep) isStepPayload() {}
func (GapExploreStep) isStepPayload()        {}
func (MarketExploreStep) isStepPayload()     {}
func (SelectProblemsStep) isStepPayload()    {}
func (DefineProblemStep) isStepPayload()     {}

// Selection is the decoded body of a selection request.
type Selection interface {
	StepType() StepType
}

type ClarifySelection struct {
	Answers []ClarificationAnswer `json:"answers" mapstructure:"answers"`
}

type CompetitorSelection struct {
	CompetitorIDs         []string `json:"competitor_ids,omitempty" mapstructure:"competitor_ids"`
	SelectedCompetitorIDs []string `json:"selected_competitor_ids,omitempty" mapstructure:"selected_competitor_ids"`
}

type ProblemSelection struct {
	ProblemIDs         []string `json:"problem_ids,omitempty" mapstructure:"problem_ids"`
	SelectedProblemIDs []string `json:"selected_problem_ids,omitempty" mapstructure:"selected_problem_ids"`
}

func (ClarifySelection) StepType() StepType    { return StepClarify }
func (CompetitorSelection) StepType() StepType { return StepSelectCompetitors }
func (ProblemSelection) StepType() StepType    { return StepSelectProblems }

// IDs prefers competitor_ids and falls back to selected_competitor_ids.
func (s CompetitorSelection) IDs() []string {
	if len(s.CompetitorIDs) > 0 {
		return s.CompetitorIDs
	}
	return s.SelectedCompetitorIDs
}

func (s ProblemSelection) IDs() []string {
	if len(s.ProblemIDs) > 0 {
		return s.ProblemIDs
	}
	return s.SelectedProblemIDs
}

// Context maps each answered question id to the chosen option ids.
func (s ClarifySelection) Context() map[string][]string {
	ctx := make(map[string][]string, len(s.Answers))
	for _, a := range s.Answers {
		if a.QuestionID == "" {
			continue
		}
		opts := a.SelectedOptionIDs
		if opts == nil {
			opts = []string{}
		}
		ctx[a.QuestionID] = opts
	}
	return ctx
}

// DecodeSelection turns the opaque selection object into the variant for stepType.
func DecodeSelection(stepType string, raw map[string]interface{}) (Selection, error) {
	var target Selection
	switch StepType(stepType) {
	case StepClarify:
		target = &ClarifySelection{}
	case StepSelectCompetitors:
		target = &CompetitorSelection{}
	case StepSelectProblems:
		target = &ProblemSelection{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidStepType, stepType)
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("decode %s selection: %w", stepType, err)
	}

	switch v := target.(type) {
	case *ClarifySelection:
		return *v, nil
	case *CompetitorSelection:
		return *v, nil
	case *ProblemSelection:
		return *v, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrInvalidStepType, stepType)
}

// Journey is the snapshot of a journey the orchestrator works from.
type Journey struct {
	ID            string
	Title         string
	InitialPrompt string
	IntentType    string
	Status        string
	Steps         Steps
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// StepRecord is a persisted step with its payload parts still encoded.
type StepRecord struct {
	ID        string
	Number    int
	Type      StepType
	Input     json.RawMessage
	Output    json.RawMessage
	Selection json.RawMessage
	CreatedAt time.Time
}

// Steps is the ordered step list of a journey.
type Steps []StepRecord

// First returns the earliest step of type t.
func (s Steps) First(t StepType) (StepRecord, bool) {
	for _, st := range s {
		if st.Type == t {
			return st, true
		}
	}
	return StepRecord{}, false
}

// Last returns the latest step of type t. A phase that failed after saving its
// selection is resubmitted, so later records win over earlier ones.
func (s Steps) Last(t StepType) (StepRecord, bool) {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i].Type == t {
			return s[i], true
		}
	}
	return StepRecord{}, false
}

func decodePart(raw json.RawMessage, v interface{}) bool {
	if len(raw) == 0 || string(raw) == "null" {
		return false
	}
	return json.Unmarshal(raw, v) == nil
}

// Classification returns the classify step output, or the zero value.
func (s Steps) Classification() ClassifyOutput {
	var out ClassifyOutput
	if st, ok := s.First(StepClassify); ok {
		decodePart(st.Output, &out)
	}
	return out
}

// ClarificationContext returns the answers recorded on the clarify step.
func (s Steps) ClarificationContext() map[string][]string {
	var sel ClarifySelection
	if st, ok := s.Last(StepClarify); ok {
		decodePart(st.Selection, &sel)
	}
	return sel.Context()
}

// Competitors returns the competitor list presented for selection.
func (s Steps) Competitors() []CompetitorInfo {
	var out FindCompetitorsOutput
	if st, ok := s.Last(StepFindCompetitors); ok {
		decodePart(st.Output, &out)
	}
	return out.Competitors
}

// GapProblems returns the problem areas found by gap analysis.
func (s Steps) GapProblems() []ProblemArea {
	var out GapExploreOutput
	if st, ok := s.Last(StepExplore); ok {
		decodePart(st.Output, &out)
	}
	if out.GapAnalysis == nil {
		return nil
	}
	return out.GapAnalysis.Problems
}

// AwaitedSelection reports which selection the journey is waiting for. The latest
// step decides: a phase that stopped after recording its selection takes the same
// selection again.
func (j *Journey) AwaitedSelection() (StepType, bool) {
	if j.Status == StatusCompleted || len(j.Steps) == 0 {
		return "", false
	}
	switch j.Steps[len(j.Steps)-1].Type {
	case StepClassify, StepClarify:
		return StepClarify, true
	case StepFindCompetitors, StepSelectCompetitors:
		return StepSelectCompetitors, true
	case StepExplore:
		if len(j.Steps.GapProblems()) > 0 {
			return StepSelectProblems, true
		}
	case StepSelectProblems:
		return StepSelectProblems, true
	}
	return "", false
}

// CheckSelection returns ErrInvalidStepType when stepType is not a selection and
// ErrSelectionOutOfOrder when the journey is not waiting for it.
func (j *Journey) CheckSelection(stepType string) error {
	switch StepType(stepType) {
	case StepClarify, StepSelectCompetitors, StepSelectProblems:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidStepType, stepType)
	}
	awaited, ok := j.AwaitedSelection()
	if !ok {
		return fmt.Errorf("%w: journey %s awaits no selection, got %s", ErrSelectionOutOfOrder, j.ID, stepType)
	}
	if string(awaited) != stepType {
		return fmt.Errorf("%w: journey %s awaits %s, got %s", ErrSelectionOutOfOrder, j.ID, awaited, stepType)
	}
	return nil
}
