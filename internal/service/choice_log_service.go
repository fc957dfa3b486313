package service

import (
	"context"
	"encoding/json"
	"time"

	"blueprint-research-be/internal/entity"
	"blueprint-research-be/internal/pkg/logger"
	"blueprint-research-be/internal/repository/unitofwork"
	"blueprint-research-be/pkg/pipeline"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
)

const (
	UserChoiceTopic = "USER_CHOICE_LOGGED"
	choiceLogModule = "CHOICE_LOG"
)

type UserChoiceMessage struct {
	JourneyId        uuid.UUID       `json:"journey_id"`
	StepId           *uuid.UUID      `json:"step_id,omitempty"`
	OptionsPresented json.RawMessage `json:"options_presented"`
	OptionsSelected  json.RawMessage `json:"options_selected"`
	LoggedAt         time.Time       `json:"logged_at"`
}

// IChoiceLogService publishes selection submissions and persists them from a consumer.
type IChoiceLogService interface {
	pipeline.ChoiceRecorder
	Consume(ctx context.Context) error
}

type choiceLogService struct {
	pubSub     *gochannel.GoChannel
	topicName  string
	uowFactory unitofwork.RepositoryFactory
	log        logger.ILogger
}

func NewChoiceLogService(
	pubSub *gochannel.GoChannel,
	uowFactory unitofwork.RepositoryFactory,
	log logger.ILogger,
) IChoiceLogService {
	return &choiceLogService{
		pubSub:     pubSub,
		topicName:  UserChoiceTopic,
		uowFactory: uowFactory,
		log:        log,
	}
}

// RecordChoice never blocks the pipeline; failures are logged and dropped.
func (s *choiceLogService) RecordChoice(ctx context.Context, journeyID, stepID string, presented, selected interface{}) {
	jid, err := uuid.Parse(journeyID)
	if err != nil {
		s.warn("invalid journey id", journeyID, err)
		return
	}
	payload := UserChoiceMessage{JourneyId: jid, LoggedAt: time.Now()}
	if sid, err := uuid.Parse(stepID); err == nil {
		payload.StepId = &sid
	}
	if payload.OptionsPresented, err = json.Marshal(presented); err != nil {
		s.warn("encode presented options", journeyID, err)
		return
	}
	if payload.OptionsSelected, err = json.Marshal(selected); err != nil {
		s.warn("encode selected options", journeyID, err)
		return
	}

	body, err := json.Marshal(payload)
	if err != nil {
		s.warn("encode choice message", journeyID, err)
		return
	}
	if err := s.pubSub.Publish(s.topicName, message.NewMessage(watermill.NewUUID(), body)); err != nil {
		s.warn("publish choice", journeyID, err)
	}
}

func (s *choiceLogService) Consume(ctx context.Context) error {
	messages, err := s.pubSub.Subscribe(ctx, s.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			s.processMessage(msg)
		}
	}()

	return nil
}

func (s *choiceLogService) processMessage(msg *message.Message) {
	// The log is best effort, so every message is acked.
	defer msg.Ack()

	var payload UserChoiceMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		s.warn("decode choice message", "", err)
		return
	}

	ctx := context.Background()
	uow := s.uowFactory.NewUnitOfWork(ctx)
	err := uow.UserChoiceRepository().Create(ctx, &entity.UserChoice{
		Id:               uuid.New(),
		JourneyId:        payload.JourneyId,
		StepId:           payload.StepId,
		OptionsPresented: payload.OptionsPresented,
		OptionsSelected:  payload.OptionsSelected,
		CreatedAt:        payload.LoggedAt,
	})
	if err != nil {
		s.warn("persist choice", payload.JourneyId.String(), err)
	}
}

func (s *choiceLogService) warn(msg, journeyID string, err error) {
	s.log.Warn(choiceLogModule, msg, map[string]interface{}{
		"journey_id": journeyID,
		"error":      err.Error(),
	})
}
