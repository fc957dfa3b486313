package entity

import "time"

type LlmState struct {
	ActiveProvider string
	SwitchedAt     time.Time
	SwitchReason   string
}
