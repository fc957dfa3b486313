package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type JourneyStep struct {
	Id            uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	JourneyId     uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_journey_step_number"`
	StepNumber    int            `gorm:"not null;uniqueIndex:idx_journey_step_number"`
	StepType      string         `gorm:"type:varchar(40);not null"`
	InputData     datatypes.JSON `gorm:"type:jsonb"`
	OutputData    datatypes.JSON `gorm:"type:jsonb"`
	UserSelection datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt     time.Time      `gorm:"autoCreateTime"`
}

func (JourneyStep) TableName() string {
	return "journey_steps"
}
