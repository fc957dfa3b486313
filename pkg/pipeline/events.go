package pipeline

import (
	"time"

	"github.com/google/uuid"
)

// Event names on the wire
const (
	EventPhaseStarted        = "phase_started"
	EventPhaseCompleted      = "phase_completed"
	EventResultReady         = "result_ready"
	EventResultError         = "result_error"
	EventJourneyStarted      = "journey_started"
	EventIntentRedirect      = "intent_redirect"
	EventQuickReply          = "quick_reply"
	EventClarificationNeeded = "clarification_needed"
	EventAwaitingSelection   = "awaiting_selection"
	EventJourneyComplete     = "journey_complete"
	EventError               = "error"
)

// Event is one typed message in a research stream. Every implementation
// serializes with a "type" field equal to EventType().
type Event interface {
	EventType() string
}

type PhaseStarted struct {
	Type  string `json:"type"`
	Phase string `json:"phase"`
	Label string `json:"label"`
}

type PhaseCompleted struct {
	Type  string `json:"type"`
	Phase string `json:"phase"`
}

type ResultReady struct {
	Type   string `json:"type"`
	Result Result `json:"result"`
}

type ResultError struct {
	Type       string `json:"type"`
	ResultName string `json:"result_name"`
	Error      string `json:"error"`
	ErrorCode  string `json:"error_code"`
}

type JourneyStarted struct {
	Type       string `json:"type"`
	JourneyID  string `json:"journey_id"`
	IntentType string `json:"intent_type"`
}

type IntentRedirect struct {
	Type           string `json:"type"`
	OriginalIntent string `json:"original_intent"`
	RedirectedTo   string `json:"redirected_to"`
	Message        string `json:"message"`
}

type QuickReply struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type ClarificationNeeded struct {
	Type      string                  `json:"type"`
	Questions []ClarificationQuestion `json:"questions"`
}

type AwaitingSelection struct {
	Type          string `json:"type"`
	SelectionType string `json:"selection_type"`
}

type JourneyComplete struct {
	Type      string `json:"type"`
	JourneyID string `json:"journey_id"`
	Summary   string `json:"summary"`
}

type ErrorEvent struct {
	Type        string `json:"type"`
	Message     string `json:"message"`
	Recoverable bool   `json:"recoverable"`
	ErrorCode   string `json:"error_code"`
}

func (PhaseStarted) EventType() string        { return EventPhaseStarted }
func (PhaseCompleted) EventType() string      { return EventPhaseCompleted }
func (ResultReady) EventType() string         { return EventResultReady }
func (ResultError) EventType() string         { return EventResultError }
func (JourneyStarted) EventType() string      { return EventJourneyStarted }
func (IntentRedirect) EventType() string      { return EventIntentRedirect }
func (QuickReply) EventType() string          { return EventQuickReply }
func (ClarificationNeeded) EventType() string { return EventClarificationNeeded }
func (AwaitingSelection) EventType() string   { return EventAwaitingSelection }
func (JourneyComplete) EventType() string     { return EventJourneyComplete }
func (ErrorEvent) EventType() string          { return EventError }

func NewPhaseStarted(phase, label string) PhaseStarted {
	return PhaseStarted{Type: EventPhaseStarted, Phase: phase, Label: label}
}

func NewPhaseCompleted(phase string) PhaseCompleted {
	return PhaseCompleted{Type: EventPhaseCompleted, Phase: phase}
}

func NewResultReady(r Result) ResultReady {
	return ResultReady{Type: EventResultReady, Result: r}
}

func NewResultError(name, message, code string) ResultError {
	return ResultError{Type: EventResultError, ResultName: name, Error: message, ErrorCode: code}
}

func NewJourneyStarted(journeyID, intent string) JourneyStarted {
	return JourneyStarted{Type: EventJourneyStarted, JourneyID: journeyID, IntentType: intent}
}

func NewIntentRedirect(from, to, message string) IntentRedirect {
	return IntentRedirect{Type: EventIntentRedirect, OriginalIntent: from, RedirectedTo: to, Message: message}
}

func NewQuickReply(message string) QuickReply {
	return QuickReply{Type: EventQuickReply, Message: message}
}

func NewClarificationNeeded(questions []ClarificationQuestion) ClarificationNeeded {
	return ClarificationNeeded{Type: EventClarificationNeeded, Questions: questions}
}

func NewAwaitingSelection(selectionType string) AwaitingSelection {
	return AwaitingSelection{Type: EventAwaitingSelection, SelectionType: selectionType}
}

func NewJourneyComplete(journeyID, summary string) JourneyComplete {
	return JourneyComplete{Type: EventJourneyComplete, JourneyID: journeyID, Summary: summary}
}

func NewErrorEvent(message, code string) ErrorEvent {
	return ErrorEvent{Type: EventError, Message: message, Recoverable: false, ErrorCode: code}
}

// Result types
const (
	ResultCompetitorList   = "competitor_list"
	ResultProductProfile   = "product_profile"
	ResultMarketOverview   = "market_overview"
	ResultGapAnalysis      = "gap_analysis"
	ResultProblemStatement = "problem_statement"
)

// Result is one discrete unit of research output shown to the user.
type Result struct {
	ID         string                 `json:"id"`
	Type       string                 `json:"type"`
	Title      string                 `json:"title"`
	Content    string                 `json:"content"`
	OutputData map[string]interface{} `json:"output_data,omitempty"`
	Sources    []string               `json:"sources"`
	Cached     bool                   `json:"cached"`
	CachedAt   *time.Time             `json:"cached_at"`
}

func newResult(kind, title, content string, data map[string]interface{}, sources []string) Result {
	if sources == nil {
		sources = []string{}
	}
	return Result{
		ID:         uuid.NewString(),
		Type:       kind,
		Title:      title,
		Content:    content,
		OutputData: data,
		Sources:    sources,
	}
}
