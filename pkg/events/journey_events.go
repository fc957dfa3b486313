package events

import "time"

const (
	JourneyStartedType   = "JOURNEY_STARTED"
	JourneyCompletedType = "JOURNEY_COMPLETED"
	JourneyFailedType    = "JOURNEY_FAILED"
)

func NewJourneyStarted(journeyID, intentType string) Event {
	return BaseEvent{
		Type: JourneyStartedType,
		Data: map[string]interface{}{
			"journey_id":  journeyID,
			"intent_type": intentType,
		},
		OccurredAt: time.Now(),
	}
}

func NewJourneyCompleted(journeyID string) Event {
	return BaseEvent{
		Type:       JourneyCompletedType,
		Data:       map[string]interface{}{"journey_id": journeyID},
		OccurredAt: time.Now(),
	}
}

// NewJourneyFailed carries the correlation code shown to the user, never the cause.
func NewJourneyFailed(journeyID, phase, errorCode string) Event {
	return BaseEvent{
		Type: JourneyFailedType,
		Data: map[string]interface{}{
			"journey_id": journeyID,
			"phase":      phase,
			"error_code": errorCode,
		},
		OccurredAt: time.Now(),
	}
}
