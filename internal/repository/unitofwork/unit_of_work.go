package unitofwork

import (
	"context"

	"blueprint-research-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	JourneyRepository() contract.JourneyRepository
	JourneyStepRepository() contract.JourneyStepRepository
	ProductRepository() contract.ProductRepository
	AlternativesRepository() contract.AlternativesRepository
	LlmStateRepository() contract.LlmStateRepository
	UserChoiceRepository() contract.UserChoiceRepository
}
