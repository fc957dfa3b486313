package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"blueprint-research-be/internal/entity"
	"blueprint-research-be/internal/repository/contract"
	"blueprint-research-be/internal/repository/specification"
	"blueprint-research-be/internal/repository/unitofwork"

	"github.com/google/uuid"
)

// memDB backs every repository handed out by memFactory.
type memDB struct {
	mu           sync.Mutex
	journeys     map[uuid.UUID]*entity.Journey
	steps        []*entity.JourneyStep
	products     map[string]*entity.Product
	alternatives map[string]*entity.AlternativesCache
	llmState     *entity.LlmState
	choices      []*entity.UserChoice
	commits      int
}

func newMemDB() *memDB {
	return &memDB{
		journeys:     make(map[uuid.UUID]*entity.Journey),
		products:     make(map[string]*entity.Product),
		alternatives: make(map[string]*entity.AlternativesCache),
	}
}

type memFactory struct{ db *memDB }

func (f memFactory) NewUnitOfWork(context.Context) unitofwork.UnitOfWork {
	return &memUow{db: f.db}
}

type memUow struct {
	db   *memDB
	inTx bool
}

func (u *memUow) Begin(context.Context) error { u.inTx = true; return nil }
func (u *memUow) Rollback() error             { u.inTx = false; return nil }
func (u *memUow) Commit() error {
	u.db.mu.Lock()
	u.db.commits++
	u.db.mu.Unlock()
	u.inTx = false
	return nil
}

func (u *memUow) JourneyRepository() contract.JourneyRepository         { return memJourneys{u.db} }
func (u *memUow) JourneyStepRepository() contract.JourneyStepRepository { return memSteps{u.db} }
func (u *memUow) ProductRepository() contract.ProductRepository         { return memProducts{u.db} }
func (u *memUow) AlternativesRepository() contract.AlternativesRepository {
	return memAlternatives{u.db}
}
func (u *memUow) LlmStateRepository() contract.LlmStateRepository     { return memLlmState{u.db} }
func (u *memUow) UserChoiceRepository() contract.UserChoiceRepository { return memChoices{u.db} }

// row is the subset of columns the fake repositories filter on.
type row struct {
	id, journeyID uuid.UUID
	name          string
	times         map[string]time.Time
}

func matches(r row, specs []specification.Specification) bool {
	for _, spec := range specs {
		switch s := spec.(type) {
		case specification.ByID:
			if r.id != s.ID {
				return false
			}
		case specification.ByJourneyID:
			if r.journeyID != s.JourneyID {
				return false
			}
		case specification.ByNormalizedName:
			if r.name != s.Name {
				return false
			}
		case specification.FreshSince:
			if r.times[s.Field].Before(s.Since) {
				return false
			}
		}
	}
	return true
}

type memJourneys struct{ db *memDB }

func (r memJourneys) Create(_ context.Context, j *entity.Journey) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	cp := *j
	r.db.journeys[j.Id] = &cp
	return nil
}

func (r memJourneys) UpdateStatus(_ context.Context, id uuid.UUID, status string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if j, ok := r.db.journeys[id]; ok {
		j.Status = status
		j.UpdatedAt = time.Now()
	}
	return nil
}

func (r memJourneys) Touch(_ context.Context, id uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if j, ok := r.db.journeys[id]; ok {
		j.UpdatedAt = time.Now()
	}
	return nil
}

func (r memJourneys) FindOne(_ context.Context, specs ...specification.Specification) (*entity.Journey, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, j := range r.db.journeys {
		if matches(row{id: j.Id}, specs) {
			cp := *j
			return &cp, nil
		}
	}
	return nil, nil
}

func (r memJourneys) FindSummaries(_ context.Context, _ ...specification.Specification) ([]*entity.JourneySummary, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*entity.JourneySummary
	for _, j := range r.db.journeys {
		s := &entity.JourneySummary{Journey: *j}
		for _, st := range r.db.steps {
			if st.JourneyId == j.Id {
				s.StepCount++
			}
		}
		out = append(out, s)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].UpdatedAt.After(out[b].UpdatedAt) })
	return out, nil
}

func (r memJourneys) Count(_ context.Context, _ ...specification.Specification) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return int64(len(r.db.journeys)), nil
}

type memSteps struct{ db *memDB }

func (r memSteps) Create(_ context.Context, s *entity.JourneyStep) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	cp := *s
	r.db.steps = append(r.db.steps, &cp)
	return nil
}

func (r memSteps) FindAll(_ context.Context, specs ...specification.Specification) ([]*entity.JourneyStep, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*entity.JourneyStep
	for _, s := range r.db.steps {
		if matches(row{id: s.Id, journeyID: s.JourneyId}, specs) {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].StepNumber < out[b].StepNumber })
	return out, nil
}

func (r memSteps) MaxStepNumber(_ context.Context, journeyID uuid.UUID) (int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	max := 0
	for _, s := range r.db.steps {
		if s.JourneyId == journeyID && s.StepNumber > max {
			max = s.StepNumber
		}
	}
	return max, nil
}

type memProducts struct{ db *memDB }

func (r memProducts) Upsert(_ context.Context, p *entity.Product) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	cp := *p
	r.db.products[p.NormalizedName] = &cp
	return nil
}

func (r memProducts) FindOne(_ context.Context, specs ...specification.Specification) (*entity.Product, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, p := range r.db.products {
		if matches(row{name: p.NormalizedName, times: map[string]time.Time{"last_scraped_at": p.LastScrapedAt}}, specs) {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

type memAlternatives struct{ db *memDB }

func (r memAlternatives) Upsert(_ context.Context, a *entity.AlternativesCache) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	cp := *a
	r.db.alternatives[a.NormalizedName] = &cp
	return nil
}

func (r memAlternatives) FindOne(_ context.Context, specs ...specification.Specification) (*entity.AlternativesCache, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, a := range r.db.alternatives {
		if matches(row{name: a.NormalizedName, times: map[string]time.Time{"scraped_at": a.ScrapedAt}}, specs) {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

type memLlmState struct{ db *memDB }

func (r memLlmState) Get(context.Context) (*entity.LlmState, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return r.db.llmState, nil
}

func (r memLlmState) Save(_ context.Context, s *entity.LlmState) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	cp := *s
	r.db.llmState = &cp
	return nil
}

type memChoices struct{ db *memDB }

func (r memChoices) Create(_ context.Context, c *entity.UserChoice) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	cp := *c
	r.db.choices = append(r.db.choices, &cp)
	return nil
}

func (db *memDB) choiceCount() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return len(db.choices)
}
