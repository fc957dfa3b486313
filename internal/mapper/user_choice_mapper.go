package mapper

import (
	"blueprint-research-be/internal/entity"
	"blueprint-research-be/internal/model"

	"gorm.io/datatypes"
)

type UserChoiceMapper struct{}

func NewUserChoiceMapper() *UserChoiceMapper {
	return &UserChoiceMapper{}
}

func (m *UserChoiceMapper) ToModel(c *entity.UserChoice) *model.UserChoiceLog {
	if c == nil {
		return nil
	}
	return &model.UserChoiceLog{
		Id:               c.Id,
		JourneyId:        c.JourneyId,
		StepId:           c.StepId,
		OptionsPresented: datatypes.JSON(c.OptionsPresented),
		OptionsSelected:  datatypes.JSON(c.OptionsSelected),
		CreatedAt:        c.CreatedAt,
	}
}
