package dto

type StartResearchRequest struct {
	Prompt string `json:"prompt" validate:"required,min=1,max=500"`
}

type SelectionRequest struct {
	StepType  string                 `json:"step_type" validate:"required"`
	Selection map[string]interface{} `json:"selection" validate:"required"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}
