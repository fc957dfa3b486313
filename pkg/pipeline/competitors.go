package pipeline

import (
	"context"
	"fmt"
	"strings"

	"blueprint-research-be/pkg/llm/structured"
	"blueprint-research-be/pkg/prompt"
	"blueprint-research-be/pkg/search"

	"golang.org/x/sync/errgroup"
)

const maxCompetitorSources = 10

func (o *Orchestrator) findCompetitors(ctx context.Context, emit emitFunc, j *Journey, sel ClarifySelection) error {
	classification := j.Steps.Classification()
	domain := classification.Domain
	clarification := sel.Context()

	questions := classification.ClarificationQuestions
	if questions == nil {
		questions = []ClarificationQuestion{}
	}
	stepID, err := o.saveStep(ctx, j.ID, ClarifyStep{
		Input:     ClarifyInput{QuestionsPresented: questions},
		Selection: sel,
	})
	if err != nil {
		return err
	}
	o.recordChoice(ctx, j.ID, stepID, questions, sel)

	emit(NewPhaseStarted(PhaseFindingCompetitors, "Finding competitors"))

	var answered []string
	for _, a := range sel.Answers {
		if a.QuestionID != "" {
			answered = append(answered, a.SelectedOptionIDs...)
		}
	}
	contextTerms := strings.Join(answered, " ")
	query := strings.TrimSpace(fmt.Sprintf("%s %s competitors", domain, contextTerms))

	lookupName := domain
	if lookupName == "" {
		lookupName = "general"
	}

	var (
		alternatives []Alternative
		web, reddit  []search.Result
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return o.tolerate(j.ID, "alternatives lookup", func() error {
			alts, err := o.products.GetCachedAlternatives(gctx, NormalizeProductName(lookupName))
			if err != nil {
				return err
			}
			alternatives = alts
			return nil
		})
	})
	g.Go(func() error {
		return o.tolerate(j.ID, "web search", func() error {
			web = o.searcher.Search(gctx, query, 10)
			return nil
		})
	})
	g.Go(func() error {
		return o.tolerate(j.ID, "reddit search", func() error {
			reddit = o.searcher.SearchReddit(gctx, domain+" "+contextTerms, 5)
			return nil
		})
	})
	if err := g.Wait(); err != nil {
		return err
	}

	messages := prompt.Competitors(domain, clarification, prompt.CompetitorSources{
		Alternatives: alternatives,
		Search:       web,
		Reddit:       reddit,
	})
	list, err := structured.Generate[CompetitorList](ctx, o.llm, messages, j.ID)
	if err != nil {
		return err
	}

	sources := competitorURLs(list.Competitors, maxCompetitorSources)
	lines := make([]string, 0, len(list.Competitors))
	for _, c := range list.Competitors {
		lines = append(lines, fmt.Sprintf("**%s**: %s", c.Name, c.Description))
	}
	result := newResult(
		ResultCompetitorList,
		"Competitors",
		strings.Join(lines, "\n\n"),
		map[string]interface{}{"competitors": list.Competitors},
		sources,
	)

	_, err = o.saveStep(ctx, j.ID, FindCompetitorsStep{
		Input: FindCompetitorsInput{
			Domain:               domain,
			ClarificationContext: clarification,
			SearchQuery:          query,
		},
		Output: FindCompetitorsOutput{Competitors: list.Competitors, Sources: sources},
	})
	if err != nil {
		return err
	}
	if len(alternatives) == 0 {
		o.storeAlternatives(ctx, j.ID, lookupName, list.Competitors, web)
	}

	emit(NewResultReady(result))
	emit(NewPhaseCompleted(PhaseFindingCompetitors))
	emit(NewAwaitingSelection(SelectionCompetitors))
	return nil
}

// competitorURLs returns the distinct competitor URLs in list order.
func competitorURLs(competitors []CompetitorInfo, limit int) []string {
	seen := make(map[string]struct{}, len(competitors))
	urls := make([]string, 0, limit)
	for _, c := range competitors {
		if c.URL == "" {
			continue
		}
		if _, ok := seen[c.URL]; ok {
			continue
		}
		seen[c.URL] = struct{}{}
		urls = append(urls, c.URL)
		if len(urls) == limit {
			break
		}
	}
	return urls
}

// storeAlternatives seeds the alternatives cache for a domain that had no
// entry, so the next journey in the same domain starts from this list.
func (o *Orchestrator) storeAlternatives(ctx context.Context, journeyID, domain string, competitors []CompetitorInfo, web []search.Result) {
	if len(competitors) == 0 {
		return
	}
	alts := make([]Alternative, 0, len(competitors))
	for _, c := range competitors {
		alts = append(alts, Alternative{Name: c.Name, Description: c.Description, URL: c.URL})
	}
	var sourceURL string
	if len(web) > 0 {
		sourceURL = web[0].URL
	}
	if err := o.products.StoreAlternatives(ctx, domain, alts, sourceURL); err != nil {
		o.log.Warn(logModule, "alternatives cache write failed", map[string]interface{}{
			"journey_id": journeyID,
			"domain":     domain,
			"error":      err.Error(),
		})
	}
}
