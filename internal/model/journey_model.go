package model

import (
	"time"

	"github.com/google/uuid"
)

type Journey struct {
	Id            uuid.UUID     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Title         string        `gorm:"type:varchar(120);not null"`
	InitialPrompt string        `gorm:"type:text;not null"`
	IntentType    string        `gorm:"type:varchar(20);not null"`
	Status        string        `gorm:"type:varchar(20);not null;default:active;index"`
	Steps         []JourneyStep `gorm:"foreignKey:JourneyId;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time     `gorm:"autoCreateTime"`
	UpdatedAt     time.Time     `gorm:"autoUpdateTime;index"`
}

func (Journey) TableName() string {
	return "journeys"
}

// JourneyStepCount is a journey row with its number of steps, for listings.
type JourneyStepCount struct {
	Id         uuid.UUID
	Title      string
	IntentType string
	Status     string
	StepCount  int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
