package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"blueprint-research-be/internal/pkg/logger"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChoiceLogService_PersistsPublishedChoices(t *testing.T) {
	db := newMemDB()
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubSub.Close()

	svc := NewChoiceLogService(pubSub, memFactory{db}, logger.NewNopLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, svc.Consume(ctx))

	journeyID := uuid.New()
	stepID := uuid.New()
	svc.RecordChoice(ctx, journeyID.String(), stepID.String(),
		[]map[string]string{{"id": "alpha"}, {"id": "beta"}},
		map[string][]string{"competitor_ids": {"alpha"}},
	)

	require.Eventually(t, func() bool { return db.choiceCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	db.mu.Lock()
	got := db.choices[0]
	db.mu.Unlock()
	assert.Equal(t, journeyID, got.JourneyId)
	require.NotNil(t, got.StepId)
	assert.Equal(t, stepID, *got.StepId)

	var selected map[string][]string
	require.NoError(t, json.Unmarshal(got.OptionsSelected, &selected))
	assert.Equal(t, []string{"alpha"}, selected["competitor_ids"])
}

func TestChoiceLogService_DropsInvalidJourney(t *testing.T) {
	db := newMemDB()
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubSub.Close()

	svc := NewChoiceLogService(pubSub, memFactory{db}, logger.NewNopLogger())
	require.NoError(t, svc.Consume(context.Background()))

	svc.RecordChoice(context.Background(), "journey-1", "", nil, nil)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, db.choiceCount())
}
