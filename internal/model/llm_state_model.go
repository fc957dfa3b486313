package model

import "time"

// LlmState is a single row (id = 1) holding the preferred model provider.
type LlmState struct {
	Id             int       `gorm:"primaryKey;autoIncrement:false"`
	ActiveProvider string    `gorm:"type:varchar(100);not null"`
	SwitchedAt     time.Time `gorm:"not null"`
	SwitchReason   string    `gorm:"type:text"`
}

func (LlmState) TableName() string {
	return "llm_state"
}
