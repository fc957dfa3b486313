package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
	"unicode/utf8"

	"blueprint-research-be/internal/dto"
	"blueprint-research-be/internal/entity"
	"blueprint-research-be/internal/pkg/serverutils"
	"blueprint-research-be/internal/repository/specification"
	"blueprint-research-be/internal/repository/unitofwork"
	"blueprint-research-be/pkg/pipeline"

	"github.com/google/uuid"
)

const (
	journeyTitleLimit   = 100
	defaultJourneyLimit = 50
)

type IJourneyService interface {
	pipeline.JourneyStore
	List(ctx context.Context, limit, offset int) ([]*dto.JourneySummaryResponse, error)
	Detail(ctx context.Context, id uuid.UUID) (*dto.JourneyDetailResponse, error)
}

type journeyService struct {
	uowFactory unitofwork.RepositoryFactory
}

func NewJourneyService(uowFactory unitofwork.RepositoryFactory) IJourneyService {
	return &journeyService{uowFactory: uowFactory}
}

// JourneyTitle is the prompt cut to 100 characters, with an ellipsis when cut.
func JourneyTitle(prompt string) string {
	if utf8.RuneCountInString(prompt) <= journeyTitleLimit {
		return prompt
	}
	return string([]rune(prompt)[:journeyTitleLimit]) + "…"
}

func (s *journeyService) CreateJourney(ctx context.Context, prompt, intent string) (string, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	journey := entity.Journey{
		Id:            uuid.New(),
		Title:         JourneyTitle(prompt),
		InitialPrompt: prompt,
		IntentType:    intent,
		Status:        pipeline.StatusActive,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
	if err := uow.JourneyRepository().Create(ctx, &journey); err != nil {
		return "", err
	}
	return journey.Id.String(), nil
}

func (s *journeyService) GetJourney(ctx context.Context, id string) (*pipeline.Journey, error) {
	journeyID, err := uuid.Parse(id)
	if err != nil {
		return nil, nil
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	journey, err := uow.JourneyRepository().FindOne(ctx, specification.ByID{ID: journeyID})
	if err != nil || journey == nil {
		return nil, err
	}
	steps, err := uow.JourneyStepRepository().FindAll(ctx,
		specification.ByJourneyID{JourneyID: journeyID},
		specification.OrderBy{Field: "step_number"},
	)
	if err != nil {
		return nil, err
	}

	records := make(pipeline.Steps, 0, len(steps))
	for _, st := range steps {
		records = append(records, pipeline.StepRecord{
			ID:        st.Id.String(),
			Number:    st.StepNumber,
			Type:      pipeline.StepType(st.StepType),
			Input:     st.InputData,
			Output:    st.OutputData,
			Selection: st.UserSelection,
			CreatedAt: st.CreatedAt,
		})
	}
	return &pipeline.Journey{
		ID:            journey.Id.String(),
		Title:         journey.Title,
		InitialPrompt: journey.InitialPrompt,
		IntentType:    journey.IntentType,
		Status:        journey.Status,
		Steps:         records,
		CreatedAt:     journey.CreatedAt,
		UpdatedAt:     journey.UpdatedAt,
	}, nil
}

func encodeStepPart(v interface{}) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

// SaveStep writes the step and bumps the journey's updated_at in one transaction.
func (s *journeyService) SaveStep(ctx context.Context, journeyID string, number int, payload pipeline.StepPayload) (string, error) {
	id, err := uuid.Parse(journeyID)
	if err != nil {
		return "", fmt.Errorf("journey id %q: %w", journeyID, err)
	}

	input, output, selection := payload.Parts()
	step := entity.JourneyStep{
		Id:         uuid.New(),
		JourneyId:  id,
		StepNumber: number,
		StepType:   string(payload.StepType()),
		CreatedAt:  time.Now(),
	}
	if step.InputData, err = encodeStepPart(input); err != nil {
		return "", fmt.Errorf("encode %s input: %w", step.StepType, err)
	}
	if step.OutputData, err = encodeStepPart(output); err != nil {
		return "", fmt.Errorf("encode %s output: %w", step.StepType, err)
	}
	if step.UserSelection, err = encodeStepPart(selection); err != nil {
		return "", fmt.Errorf("encode %s selection: %w", step.StepType, err)
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return "", err
	}
	defer uow.Rollback()

	if err := uow.JourneyStepRepository().Create(ctx, &step); err != nil {
		return "", err
	}
	if err := uow.JourneyRepository().Touch(ctx, id); err != nil {
		return "", err
	}
	if err := uow.Commit(); err != nil {
		return "", err
	}
	return step.Id.String(), nil
}

func (s *journeyService) NextStepNumber(ctx context.Context, journeyID string) (int, error) {
	id, err := uuid.Parse(journeyID)
	if err != nil {
		return 0, fmt.Errorf("journey id %q: %w", journeyID, err)
	}
	uow := s.uowFactory.NewUnitOfWork(ctx)
	max, err := uow.JourneyStepRepository().MaxStepNumber(ctx, id)
	if err != nil {
		return 0, err
	}
	return max + 1, nil
}

func (s *journeyService) UpdateStatus(ctx context.Context, journeyID, status string) error {
	id, err := uuid.Parse(journeyID)
	if err != nil {
		return fmt.Errorf("journey id %q: %w", journeyID, err)
	}
	uow := s.uowFactory.NewUnitOfWork(ctx)
	return uow.JourneyRepository().UpdateStatus(ctx, id, status)
}

func (s *journeyService) List(ctx context.Context, limit, offset int) ([]*dto.JourneySummaryResponse, error) {
	if limit <= 0 {
		limit = defaultJourneyLimit
	}
	if offset < 0 {
		offset = 0
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	summaries, err := uow.JourneyRepository().FindSummaries(ctx,
		specification.OrderBy{Field: "updated_at", Desc: true},
		specification.Pagination{Limit: limit, Offset: offset},
	)
	if err != nil {
		return nil, err
	}

	result := make([]*dto.JourneySummaryResponse, 0, len(summaries))
	for _, j := range summaries {
		result = append(result, &dto.JourneySummaryResponse{
			Id:         j.Id,
			Title:      j.Title,
			IntentType: j.IntentType,
			Status:     j.Status,
			StepCount:  j.StepCount,
			CreatedAt:  j.CreatedAt,
			UpdatedAt:  j.UpdatedAt,
		})
	}
	return result, nil
}

func (s *journeyService) Detail(ctx context.Context, id uuid.UUID) (*dto.JourneyDetailResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	journey, err := uow.JourneyRepository().FindOne(ctx, specification.ByID{ID: id})
	if err != nil {
		return nil, err
	}
	if journey == nil {
		return nil, serverutils.NotFound("Journey not found")
	}

	steps, err := uow.JourneyStepRepository().FindAll(ctx,
		specification.ByJourneyID{JourneyID: id},
		specification.OrderBy{Field: "step_number"},
	)
	if err != nil {
		return nil, err
	}

	res := &dto.JourneyDetailResponse{
		Id:            journey.Id,
		Title:         journey.Title,
		InitialPrompt: journey.InitialPrompt,
		IntentType:    journey.IntentType,
		Status:        journey.Status,
		CreatedAt:     journey.CreatedAt,
		UpdatedAt:     journey.UpdatedAt,
		Steps:         make([]dto.JourneyStepResponse, 0, len(steps)),
	}
	for _, st := range steps {
		res.Steps = append(res.Steps, dto.JourneyStepResponse{
			Id:            st.Id,
			StepNumber:    st.StepNumber,
			StepType:      st.StepType,
			InputData:     st.InputData,
			OutputData:    st.OutputData,
			UserSelection: st.UserSelection,
			CreatedAt:     st.CreatedAt,
		})
	}
	return res, nil
}
