package dto

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type JourneySummaryResponse struct {
	Id         uuid.UUID `json:"id"`
	Title      string    `json:"title"`
	IntentType string    `json:"intent_type"`
	Status     string    `json:"status"`
	StepCount  int64     `json:"step_count"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type JourneyStepResponse struct {
	Id            uuid.UUID       `json:"id"`
	StepNumber    int             `json:"step_number"`
	StepType      string          `json:"step_type"`
	InputData     json.RawMessage `json:"input_data"`
	OutputData    json.RawMessage `json:"output_data"`
	UserSelection json.RawMessage `json:"user_selection"`
	CreatedAt     time.Time       `json:"created_at"`
}

type JourneyDetailResponse struct {
	Id            uuid.UUID             `json:"id"`
	Title         string                `json:"title"`
	InitialPrompt string                `json:"initial_prompt"`
	IntentType    string                `json:"intent_type"`
	Status        string                `json:"status"`
	CreatedAt     time.Time             `json:"created_at"`
	UpdatedAt     time.Time             `json:"updated_at"`
	Steps         []JourneyStepResponse `json:"steps"`
}
