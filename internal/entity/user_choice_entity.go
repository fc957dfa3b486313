package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type UserChoice struct {
	Id               uuid.UUID
	JourneyId        uuid.UUID
	StepId           *uuid.UUID
	OptionsPresented json.RawMessage
	OptionsSelected  json.RawMessage
	CreatedAt        time.Time
}
