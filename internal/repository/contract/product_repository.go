package contract

import (
	"context"

	"blueprint-research-be/internal/entity"
	"blueprint-research-be/internal/repository/specification"
)

type ProductRepository interface {
	// Upsert inserts the product or replaces the row with the same normalized name.
	Upsert(ctx context.Context, product *entity.Product) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Product, error)
}

type AlternativesRepository interface {
	Upsert(ctx context.Context, alternatives *entity.AlternativesCache) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.AlternativesCache, error)
}
