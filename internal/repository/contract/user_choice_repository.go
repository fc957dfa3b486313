package contract

import (
	"context"

	"blueprint-research-be/internal/entity"
)

type UserChoiceRepository interface {
	Create(ctx context.Context, choice *entity.UserChoice) error
}
