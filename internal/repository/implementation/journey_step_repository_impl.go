package implementation

import (
	"context"

	"blueprint-research-be/internal/entity"
	"blueprint-research-be/internal/mapper"
	"blueprint-research-be/internal/model"
	"blueprint-research-be/internal/repository/contract"
	"blueprint-research-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type JourneyStepRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.JourneyStepMapper
}

func NewJourneyStepRepository(db *gorm.DB) contract.JourneyStepRepository {
	return &JourneyStepRepositoryImpl{
		db:     db,
		mapper: mapper.NewJourneyStepMapper(),
	}
}

func (r *JourneyStepRepositoryImpl) Create(ctx context.Context, step *entity.JourneyStep) error {
	m := r.mapper.ToModel(step)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*step = *r.mapper.ToEntity(m)
	return nil
}

func (r *JourneyStepRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.JourneyStep, error) {
	var models []*model.JourneyStep
	query := applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *JourneyStepRepositoryImpl) MaxStepNumber(ctx context.Context, journeyId uuid.UUID) (int, error) {
	var max int
	err := r.db.WithContext(ctx).
		Model(&model.JourneyStep{}).
		Where("journey_id = ?", journeyId).
		Select("COALESCE(MAX(step_number), 0)").
		Scan(&max).Error
	return max, err
}
