package mapper

import (
	"encoding/json"

	"blueprint-research-be/internal/entity"
	"blueprint-research-be/internal/model"

	"gorm.io/datatypes"
)

type JourneyMapper struct{}

func NewJourneyMapper() *JourneyMapper {
	return &JourneyMapper{}
}

func (m *JourneyMapper) ToEntity(j *model.Journey) *entity.Journey {
	if j == nil {
		return nil
	}
	return &entity.Journey{
		Id:            j.Id,
		Title:         j.Title,
		InitialPrompt: j.InitialPrompt,
		IntentType:    j.IntentType,
		Status:        j.Status,
		CreatedAt:     j.CreatedAt,
		UpdatedAt:     j.UpdatedAt,
	}
}

func (m *JourneyMapper) ToModel(j *entity.Journey) *model.Journey {
	if j == nil {
		return nil
	}
	return &model.Journey{
		Id:            j.Id,
		Title:         j.Title,
		InitialPrompt: j.InitialPrompt,
		IntentType:    j.IntentType,
		Status:        j.Status,
		CreatedAt:     j.CreatedAt,
		UpdatedAt:     j.UpdatedAt,
	}
}

func (m *JourneyMapper) ToSummaries(rows []*model.JourneyStepCount) []*entity.JourneySummary {
	summaries := make([]*entity.JourneySummary, len(rows))
	for i, r := range rows {
		summaries[i] = &entity.JourneySummary{
			Journey: entity.Journey{
				Id:         r.Id,
				Title:      r.Title,
				IntentType: r.IntentType,
				Status:     r.Status,
				CreatedAt:  r.CreatedAt,
				UpdatedAt:  r.UpdatedAt,
			},
			StepCount: r.StepCount,
		}
	}
	return summaries
}

type JourneyStepMapper struct{}

func NewJourneyStepMapper() *JourneyStepMapper {
	return &JourneyStepMapper{}
}

func (m *JourneyStepMapper) ToEntity(s *model.JourneyStep) *entity.JourneyStep {
	if s == nil {
		return nil
	}
	return &entity.JourneyStep{
		Id:            s.Id,
		JourneyId:     s.JourneyId,
		StepNumber:    s.StepNumber,
		StepType:      s.StepType,
		InputData:     json.RawMessage(s.InputData),
		OutputData:    json.RawMessage(s.OutputData),
		UserSelection: json.RawMessage(s.UserSelection),
		CreatedAt:     s.CreatedAt,
	}
}

func (m *JourneyStepMapper) ToModel(s *entity.JourneyStep) *model.JourneyStep {
	if s == nil {
		return nil
	}
	return &model.JourneyStep{
		Id:            s.Id,
		JourneyId:     s.JourneyId,
		StepNumber:    s.StepNumber,
		StepType:      s.StepType,
		InputData:     datatypes.JSON(s.InputData),
		OutputData:    datatypes.JSON(s.OutputData),
		UserSelection: datatypes.JSON(s.UserSelection),
		CreatedAt:     s.CreatedAt,
	}
}

func (m *JourneyStepMapper) ToEntities(steps []*model.JourneyStep) []*entity.JourneyStep {
	entities := make([]*entity.JourneyStep, len(steps))
	for i, s := range steps {
		entities[i] = m.ToEntity(s)
	}
	return entities
}
