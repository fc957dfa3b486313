package contract

import (
	"context"

	"blueprint-research-be/internal/entity"
	"blueprint-research-be/internal/repository/specification"

	"github.com/google/uuid"
)

type JourneyRepository interface {
	Create(ctx context.Context, journey *entity.Journey) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	// Touch bumps updated_at so listings surface the most recently advanced journey.
	Touch(ctx context.Context, id uuid.UUID) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Journey, error)
	FindSummaries(ctx context.Context, specs ...specification.Specification) ([]*entity.JourneySummary, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
