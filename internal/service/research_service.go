package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"blueprint-research-be/internal/dto"
	"blueprint-research-be/internal/pkg/logger"
	"blueprint-research-be/internal/pkg/serverutils"
	"blueprint-research-be/pkg/events"
	"blueprint-research-be/pkg/metrics"
	"blueprint-research-be/pkg/pipeline"
)

const (
	researchLogModule = "JOURNEY"
	publishTimeout    = 5 * time.Second
)

// Pipeline is the part of the orchestrator the research endpoints drive.
type Pipeline interface {
	Start(ctx context.Context, prompt string) <-chan pipeline.Event
	Resume(ctx context.Context, j *pipeline.Journey, stepType string, raw map[string]interface{}) <-chan pipeline.Event
}

// InflightGuard is the dedup set for running phases, in memory or in Redis.
type InflightGuard interface {
	Acquire(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type IResearchService interface {
	// Start opens the event stream for a fresh prompt. The caller must drain it.
	Start(ctx context.Context, req *dto.StartResearchRequest) (<-chan pipeline.Event, error)
	// Select resumes journeyID with a selection. The caller must drain the stream.
	Select(ctx context.Context, journeyID string, req *dto.SelectionRequest) (<-chan pipeline.Event, error)
}

type researchService struct {
	pipeline  Pipeline
	journeys  pipeline.JourneyStore
	inflight  InflightGuard
	publisher EventPublisher
	log       logger.ILogger
	metrics   *metrics.Metrics
}

// NewResearchService wires the research endpoints. publisher may be nil.
func NewResearchService(
	p Pipeline,
	journeys pipeline.JourneyStore,
	inflight InflightGuard,
	publisher EventPublisher,
	log logger.ILogger,
	m *metrics.Metrics,
) IResearchService {
	return &researchService{
		pipeline:  p,
		journeys:  journeys,
		inflight:  inflight,
		publisher: publisher,
		log:       log,
		metrics:   m,
	}
}

// PromptKey is the dedup key of a fresh prompt: a short hash of its normalized text.
func PromptKey(prompt string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(prompt)), " ")
	sum := sha256.Sum256([]byte(normalized))
	return "prompt:" + hex.EncodeToString(sum[:])[:16]
}

func JourneyKey(journeyID string) string {
	return "journey:" + journeyID
}

func (s *researchService) Start(ctx context.Context, req *dto.StartResearchRequest) (<-chan pipeline.Event, error) {
	key := PromptKey(req.Prompt)
	if err := s.acquire(ctx, key); err != nil {
		return nil, err
	}
	return s.track(key, "", pipeline.PhaseClassifying, s.pipeline.Start(ctx, req.Prompt)), nil
}

func (s *researchService) Select(ctx context.Context, journeyID string, req *dto.SelectionRequest) (<-chan pipeline.Event, error) {
	key := JourneyKey(journeyID)
	if err := s.acquire(ctx, key); err != nil {
		return nil, err
	}

	// The snapshot is read under the key so it cannot miss a step written by a prior phase.
	j, err := s.journeys.GetJourney(ctx, journeyID)
	if err == nil && j == nil {
		err = serverutils.NotFound("Journey not found")
	}
	if err == nil && j.Status == pipeline.StatusCompleted {
		err = serverutils.Conflict("This journey is already complete")
	}
	if err == nil {
		// Unknown step types are reported in the stream.
		if cerr := j.CheckSelection(req.StepType); errors.Is(cerr, pipeline.ErrSelectionOutOfOrder) {
			err = serverutils.Conflict("This journey is not waiting for that selection")
		}
	}
	if err != nil {
		s.release(key)
		return nil, err
	}

	return s.track(key, j.ID, req.StepType, s.pipeline.Resume(ctx, j, req.StepType, req.Selection)), nil
}

func (s *researchService) acquire(ctx context.Context, key string) error {
	ok, err := s.inflight.Acquire(ctx, key)
	if err != nil {
		// A broken dedup backend must not take research down with it.
		s.log.Warn(researchLogModule, "dedup guard unavailable", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
		return nil
	}
	if !ok {
		s.metrics.DedupRejected()
		return serverutils.Conflict("This research step is already running")
	}
	return nil
}

func (s *researchService) release(key string) {
	if err := s.inflight.Release(context.Background(), key); err != nil {
		s.log.Warn(researchLogModule, "dedup release failed", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
	}
}

// track forwards in unchanged and releases key once the phase has ended,
// before the returned channel closes.
func (s *researchService) track(key, journeyID, phase string, in <-chan pipeline.Event) <-chan pipeline.Event {
	out := make(chan pipeline.Event)
	s.metrics.StreamOpened()

	go func() {
		defer close(out)
		defer s.metrics.StreamClosed()
		defer s.release(key)

		for ev := range in {
			switch e := ev.(type) {
			case pipeline.JourneyStarted:
				journeyID = e.JourneyID
				s.publish(events.NewJourneyStarted(e.JourneyID, e.IntentType))
			case pipeline.JourneyComplete:
				s.publish(events.NewJourneyCompleted(e.JourneyID))
			case pipeline.ErrorEvent:
				if journeyID != "" {
					s.publish(events.NewJourneyFailed(journeyID, phase, e.ErrorCode))
				}
			}
			out <- ev
		}
	}()
	return out
}

func (s *researchService) publish(event events.Event) {
	if s.publisher == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.log.Warn(researchLogModule, "lifecycle event not published", map[string]interface{}{
				"event": event.EventType(),
				"error": err.Error(),
			})
		}
	}()
}
