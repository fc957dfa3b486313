package pipeline

import "encoding/json"

// Model output shapes. Each is decoded by the structured validator, so the
// validate tags are the acceptance rules for a model answer.

type ClarificationOption struct {
	ID          string `json:"id" validate:"required"`
	Label       string `json:"label" validate:"required"`
	Description string `json:"description"`
}

type ClarificationQuestion struct {
	ID            string                `json:"id" validate:"required"`
	Label         string                `json:"label" validate:"required"`
	Options       []ClarificationOption `json:"options" validate:"required,dive"`
	AllowMultiple bool                  `json:"allow_multiple"`
	AllowOther    bool                  `json:"allow_other"`
}

// UnmarshalJSON accepts "text" as an alias of "label"; models use both.
func (q *ClarificationQuestion) UnmarshalJSON(data []byte) error {
	type plain ClarificationQuestion
	var aux struct {
		plain
		Text string `json:"text"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*q = ClarificationQuestion(aux.plain)
	if q.Label == "" {
		q.Label = aux.Text
	}
	return nil
}

type ClassifyResult struct {
	IntentType             string                  `json:"intent_type" validate:"required,oneof=build explore improve small_talk off_topic"`
	Domain                 string                  `json:"domain,omitempty"`
	QuickResponse          string                  `json:"quick_response,omitempty"`
	ClarificationQuestions []ClarificationQuestion `json:"clarification_questions,omitempty" validate:"omitempty,dive"`
}

type CompetitorInfo struct {
	ID           string `json:"id" validate:"required"`
	Name         string `json:"name" validate:"required"`
	Description  string `json:"description"`
	URL          string `json:"url,omitempty"`
	Category     string `json:"category,omitempty"`
	PricingModel string `json:"pricing_model,omitempty"`
}

type CompetitorList struct {
	Competitors []CompetitorInfo `json:"competitors" validate:"required,dive"`
	Sources     []string         `json:"sources,omitempty"`
}

type ProductProfile struct {
	Name            string   `json:"name" validate:"required"`
	Content         string   `json:"content" validate:"required"`
	FeaturesSummary []string `json:"features_summary"`
	PricingTiers    string   `json:"pricing_tiers,omitempty"`
	TargetAudience  string   `json:"target_audience,omitempty"`
	Strengths       []string `json:"strengths"`
	Weaknesses      []string `json:"weaknesses"`
	RedditSentiment string   `json:"reddit_sentiment,omitempty"`
	Sources         []string `json:"sources"`
}

type MarketOverview struct {
	Title   string   `json:"title" validate:"required"`
	Content string   `json:"content" validate:"required"`
	Sources []string `json:"sources"`
}

type ProblemArea struct {
	ID              string   `json:"id" validate:"required"`
	Title           string   `json:"title" validate:"required"`
	Description     string   `json:"description" validate:"required"`
	Evidence        []string `json:"evidence"`
	OpportunitySize string   `json:"opportunity_size,omitempty"`
}

type GapAnalysis struct {
	Title    string        `json:"title" validate:"required"`
	Problems []ProblemArea `json:"problems" validate:"required,dive"`
	Sources  []string      `json:"sources"`
}

type ProblemStatement struct {
	Title               string   `json:"title" validate:"required"`
	Content             string   `json:"content" validate:"required"`
	TargetUser          string   `json:"target_user,omitempty"`
	KeyDifferentiators  []string `json:"key_differentiators"`
	ValidationQuestions []string `json:"validation_questions"`
}

// ClarificationAnswer is one answer inside a clarify selection.
type ClarificationAnswer struct {
	QuestionID        string   `json:"question_id" mapstructure:"question_id"`
	SelectedOptionIDs []string `json:"selected_option_ids" mapstructure:"selected_option_ids"`
	OtherText         string   `json:"other_text,omitempty" mapstructure:"other_text"`
}
