package service

import (
	"context"
	"time"

	"blueprint-research-be/internal/entity"
	"blueprint-research-be/internal/repository/unitofwork"
	"blueprint-research-be/pkg/llm/gateway"
)

type llmStateService struct {
	uowFactory unitofwork.RepositoryFactory
}

// NewLlmStateService persists the gateway's preferred provider in the llm_state row.
func NewLlmStateService(uowFactory unitofwork.RepositoryFactory) gateway.PreferenceStore {
	return &llmStateService{uowFactory: uowFactory}
}

func (s *llmStateService) ActiveProvider(ctx context.Context) (string, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	state, err := uow.LlmStateRepository().Get(ctx)
	if err != nil || state == nil {
		return "", err
	}
	return state.ActiveProvider, nil
}

func (s *llmStateService) SaveActiveProvider(ctx context.Context, provider, reason string) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	return uow.LlmStateRepository().Save(ctx, &entity.LlmState{
		ActiveProvider: provider,
		SwitchedAt:     time.Now(),
		SwitchReason:   reason,
	})
}
