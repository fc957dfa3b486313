package implementation

import (
	"context"

	"blueprint-research-be/internal/entity"
	"blueprint-research-be/internal/mapper"
	"blueprint-research-be/internal/repository/contract"

	"gorm.io/gorm"
)

type UserChoiceRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.UserChoiceMapper
}

func NewUserChoiceRepository(db *gorm.DB) contract.UserChoiceRepository {
	return &UserChoiceRepositoryImpl{
		db:     db,
		mapper: mapper.NewUserChoiceMapper(),
	}
}

func (r *UserChoiceRepositoryImpl) Create(ctx context.Context, choice *entity.UserChoice) error {
	return r.db.WithContext(ctx).Create(r.mapper.ToModel(choice)).Error
}
