package contract

import (
	"context"

	"blueprint-research-be/internal/entity"
	"blueprint-research-be/internal/repository/specification"

	"github.com/google/uuid"
)

type JourneyStepRepository interface {
	Create(ctx context.Context, step *entity.JourneyStep) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.JourneyStep, error)
	// MaxStepNumber returns 0 for a journey without steps.
	MaxStepNumber(ctx context.Context, journeyId uuid.UUID) (int, error)
}
