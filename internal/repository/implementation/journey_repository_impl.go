package implementation

import (
	"context"
	"errors"
	"time"

	"blueprint-research-be/internal/entity"
	"blueprint-research-be/internal/mapper"
	"blueprint-research-be/internal/model"
	"blueprint-research-be/internal/repository/contract"
	"blueprint-research-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const stepCountColumn = "(SELECT COUNT(*) FROM journey_steps WHERE journey_steps.journey_id = journeys.id) AS step_count"

type JourneyRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.JourneyMapper
}

func NewJourneyRepository(db *gorm.DB) contract.JourneyRepository {
	return &JourneyRepositoryImpl{
		db:     db,
		mapper: mapper.NewJourneyMapper(),
	}
}

func (r *JourneyRepositoryImpl) Create(ctx context.Context, journey *entity.Journey) error {
	m := r.mapper.ToModel(journey)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*journey = *r.mapper.ToEntity(m)
	return nil
}

func (r *JourneyRepositoryImpl) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	return r.db.WithContext(ctx).
		Model(&model.Journey{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"status": status, "updated_at": time.Now()}).Error
}

func (r *JourneyRepositoryImpl) Touch(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&model.Journey{}).
		Where("id = ?", id).
		Update("updated_at", time.Now()).Error
}

func (r *JourneyRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Journey, error) {
	var m model.Journey
	query := applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *JourneyRepositoryImpl) FindSummaries(ctx context.Context, specs ...specification.Specification) ([]*entity.JourneySummary, error) {
	var rows []*model.JourneyStepCount
	query := r.db.WithContext(ctx).Model(&model.Journey{}).Select("journeys.id, journeys.title, journeys.intent_type, journeys.status, journeys.created_at, journeys.updated_at, " + stepCountColumn)
	if err := applySpecifications(query, specs...).Find(&rows).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToSummaries(rows), nil
}

func (r *JourneyRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := applySpecifications(r.db.WithContext(ctx).Model(&model.Journey{}), specs...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
