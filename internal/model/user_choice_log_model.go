package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type UserChoiceLog struct {
	Id               uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	JourneyId        uuid.UUID      `gorm:"type:uuid;not null;index"`
	StepId           *uuid.UUID     `gorm:"type:uuid"`
	OptionsPresented datatypes.JSON `gorm:"type:jsonb"`
	OptionsSelected  datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt        time.Time      `gorm:"autoCreateTime"`
}

func (UserChoiceLog) TableName() string {
	return "user_choices_log"
}
