package contract

import (
	"context"

	"blueprint-research-be/internal/entity"
)

type LlmStateRepository interface {
	// Get returns nil, nil until a provider has been saved.
	Get(ctx context.Context) (*entity.LlmState, error)
	Save(ctx context.Context, state *entity.LlmState) error
}
