package implementation

import (
	"context"
	"errors"

	"blueprint-research-be/internal/entity"
	"blueprint-research-be/internal/model"
	"blueprint-research-be/internal/repository/contract"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const llmStateRowID = 1

type LlmStateRepositoryImpl struct {
	db *gorm.DB
}

func NewLlmStateRepository(db *gorm.DB) contract.LlmStateRepository {
	return &LlmStateRepositoryImpl{db: db}
}

func (r *LlmStateRepositoryImpl) Get(ctx context.Context) (*entity.LlmState, error) {
	var m model.LlmState
	if err := r.db.WithContext(ctx).Where("id = ?", llmStateRowID).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entity.LlmState{
		ActiveProvider: m.ActiveProvider,
		SwitchedAt:     m.SwitchedAt,
		SwitchReason:   m.SwitchReason,
	}, nil
}

func (r *LlmStateRepositoryImpl) Save(ctx context.Context, state *entity.LlmState) error {
	m := &model.LlmState{
		Id:             llmStateRowID,
		ActiveProvider: state.ActiveProvider,
		SwitchedAt:     state.SwitchedAt,
		SwitchReason:   state.SwitchReason,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"active_provider", "switched_at", "switch_reason"}),
		}).
		Create(m).Error
}
