package implementation

import (
	"context"
	"errors"

	"blueprint-research-be/internal/entity"
	"blueprint-research-be/internal/mapper"
	"blueprint-research-be/internal/model"
	"blueprint-research-be/internal/repository/contract"
	"blueprint-research-be/internal/repository/specification"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProductRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ProductMapper
}

func NewProductRepository(db *gorm.DB) contract.ProductRepository {
	return &ProductRepositoryImpl{
		db:     db,
		mapper: mapper.NewProductMapper(),
	}
}

func (r *ProductRepositoryImpl) Upsert(ctx context.Context, product *entity.Product) error {
	m := r.mapper.ToModel(product)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "normalized_name"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"name", "url", "description", "category", "pricing_model",
				"features_summary", "strengths", "weaknesses", "sources",
				"last_scraped_at", "updated_at",
			}),
		}).
		Create(m).Error
}

func (r *ProductRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Product, error) {
	var m model.Product
	query := applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

type AlternativesRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.AlternativesMapper
}

func NewAlternativesRepository(db *gorm.DB) contract.AlternativesRepository {
	return &AlternativesRepositoryImpl{
		db:     db,
		mapper: mapper.NewAlternativesMapper(),
	}
}

func (r *AlternativesRepositoryImpl) Upsert(ctx context.Context, alternatives *entity.AlternativesCache) error {
	m := r.mapper.ToModel(alternatives)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "normalized_name"}},
			DoUpdates: clause.AssignmentColumns([]string{"product_name", "alternatives", "source_url", "scraped_at"}),
		}).
		Create(m).Error
}

func (r *AlternativesRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.AlternativesCache, error) {
	var m model.AlternativesCache
	query := applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}
