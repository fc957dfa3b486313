package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type Journey struct {
	Id            uuid.UUID
	Title         string
	InitialPrompt string
	IntentType    string
	Status        string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type JourneyStep struct {
	Id            uuid.UUID
	JourneyId     uuid.UUID
	StepNumber    int
	StepType      string
	InputData     json.RawMessage
	OutputData    json.RawMessage
	UserSelection json.RawMessage
	CreatedAt     time.Time
}

// JourneySummary is a journey as shown in listings.
type JourneySummary struct {
	Journey
	StepCount int64
}
