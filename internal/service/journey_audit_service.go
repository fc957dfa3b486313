package service

import (
	"context"
	"fmt"

	"blueprint-research-be/internal/pkg/logger"
	"blueprint-research-be/pkg/events"
	pktNats "blueprint-research-be/pkg/nats"
)

const (
	auditSubject = "events.>"
	auditDurable = "journey-audit-worker"
)

// EventSubscriber is the durable side of the lifecycle event stream.
type EventSubscriber interface {
	Subscribe(ctx context.Context, subject, durableName string, handler pktNats.EventHandler) error
}

type IJourneyAuditService interface {
	Start(ctx context.Context) error
	HandleEvent(ctx context.Context, event events.Event) error
}

// journeyAuditService writes every journey lifecycle event to the system log.
type journeyAuditService struct {
	subscriber EventSubscriber
	log        logger.ILogger
}

func NewJourneyAuditService(sub EventSubscriber, log logger.ILogger) IJourneyAuditService {
	return &journeyAuditService{subscriber: sub, log: log}
}

func (s *journeyAuditService) Start(ctx context.Context) error {
	if err := s.subscriber.Subscribe(ctx, auditSubject, auditDurable, s.HandleEvent); err != nil {
		return fmt.Errorf("subscribe journey events: %w", err)
	}
	return nil
}

func (s *journeyAuditService) HandleEvent(_ context.Context, event events.Event) error {
	fields := map[string]interface{}{"type": event.EventType()}
	for k, v := range event.Payload() {
		fields[k] = v
	}
	fields["occurred_at"] = event.Timestamp()

	switch event.EventType() {
	case events.JourneyStartedType:
		s.log.Info(researchLogModule, "Journey started", fields)
	case events.JourneyCompletedType:
		s.log.Info(researchLogModule, "Journey completed", fields)
	case events.JourneyFailedType:
		s.log.Warn(researchLogModule, "Journey failed", fields)
	default:
		s.log.Debug(researchLogModule, "Ignoring event", fields)
	}
	return nil
}
