package pipeline

import (
	"context"
	"fmt"
	"strings"

	"blueprint-research-be/pkg/llm/structured"
	"blueprint-research-be/pkg/prompt"
)

type unitOutcome struct {
	name    string
	profile ProfileView
	err     error
}

func (o *Orchestrator) explore(ctx context.Context, emit emitFunc, j *Journey, sel CompetitorSelection) error {
	domain := j.Steps.Classification().Domain
	presented := j.Steps.Competitors()

	ids := sel.IDs()
	refs := make([]CompetitorRef, 0, len(presented))
	var selected []CompetitorInfo
	for _, c := range presented {
		refs = append(refs, CompetitorRef{ID: c.ID, Name: c.Name})
		if containsID(ids, c.ID) {
			selected = append(selected, c)
		}
	}

	stepID, err := o.saveStep(ctx, j.ID, SelectCompetitorsStep{
		Input:     SelectCompetitorsInput{CompetitorsPresented: refs},
		Selection: sel,
	})
	if err != nil {
		return err
	}
	o.recordChoice(ctx, j.ID, stepID, refs, sel)

	emit(NewPhaseStarted(PhaseExploring, "Analyzing products"))

	// Units report in completion order.
	outcomes := make(chan unitOutcome, len(selected))
	for _, c := range selected {
		go func(c CompetitorInfo) {
			var out unitOutcome
			if err := recovered(func() error {
				out = o.exploreUnit(ctx, j.ID, c)
				return nil
			}); err != nil {
				out = unitOutcome{name: c.Name, err: err}
			}
			outcomes <- out
		}(c)
	}

	profiles := make([]ProfileView, 0, len(selected))
	for range selected {
		out := <-outcomes
		if out.err != nil {
			o.partialFailure(emit, j.ID, out.name, MsgProductUnavailable, out.err)
			continue
		}
		profiles = append(profiles, out.profile)
		emit(NewResultReady(profileResult(out.profile)))
	}

	var overview *MarketOverview
	mo, err := structured.Generate[MarketOverview](ctx, o.llm, prompt.MarketOverview(domain, profiles), j.ID)
	if err != nil {
		o.partialFailure(emit, j.ID, "Market Overview", MsgOverviewFailed, err)
	} else {
		overview = &mo
		title := mo.Title
		if title == "" {
			title = "Market Overview"
		}
		emit(NewResultReady(newResult(
			ResultMarketOverview,
			title,
			mo.Content,
			map[string]interface{}{"overview": mo},
			mo.Sources,
		)))
	}
	emit(NewPhaseCompleted(PhaseExploring))

	if j.IntentType == IntentBuild {
		return o.gapAnalysis(ctx, emit, j, domain, profiles, overview)
	}

	names := make([]string, 0, len(profiles))
	for _, p := range profiles {
		names = append(names, p.Name)
	}
	_, err = o.saveStep(ctx, j.ID, MarketExploreStep{
		Input:  MarketExploreInput{ProductsToExplore: names, Domain: domain},
		Output: MarketExploreOutput{ProductProfiles: profiles, MarketOverview: overview},
	})
	if err != nil {
		return err
	}
	return o.complete(ctx, emit, j.ID)
}

// exploreUnit builds one competitor profile, from the cache when it is fresh.
// A unit fails when there is nothing to ground a profile on: the site could not
// be scraped and no review discussion was found.
func (o *Orchestrator) exploreUnit(ctx context.Context, journeyID string, c CompetitorInfo) unitOutcome {
	out := unitOutcome{name: c.Name}
	normalized := NormalizeProductName(c.Name)

	cached, err := o.products.GetCachedProduct(ctx, normalized)
	if err != nil {
		o.log.Warn(logModule, "product cache lookup failed", map[string]interface{}{
			"journey_id": journeyID,
			"product":    c.Name,
			"error":      err.Error(),
		})
	}
	if cached != nil {
		out.profile = profileFromCache(c.Name, cached)
		return out
	}

	var scraped string
	var scrapeErr error
	if c.URL != "" {
		scraped, scrapeErr = o.scraper.Scrape(ctx, c.URL)
		if scrapeErr != nil {
			o.log.Warn(logModule, "scrape failed", map[string]interface{}{
				"journey_id": journeyID,
				"product":    c.Name,
				"url":        c.URL,
				"error":      scrapeErr.Error(),
			})
		}
	}

	reviews := o.searcher.SearchReddit(ctx, c.Name+" review", 5)
	snippets := make([]string, 0, len(reviews))
	for _, r := range reviews {
		snippets = append(snippets, r.Snippet)
	}
	reddit := strings.Join(snippets, "\n\n")

	if scrapeErr != nil && reddit == "" {
		out.err = fmt.Errorf("no content for %s: %w", c.Name, scrapeErr)
		return out
	}

	profile, err := structured.Generate[ProductProfile](ctx, o.llm, prompt.Explore(c.Name, scraped, reddit), journeyID)
	if err != nil {
		out.err = err
		return out
	}

	if err := o.products.StoreProduct(ctx, normalized, c.URL, profile); err != nil {
		o.log.Warn(logModule, "product cache write failed", map[string]interface{}{
			"journey_id": journeyID,
			"product":    c.Name,
			"error":      err.Error(),
		})
	}
	out.profile = ProfileView{ProductProfile: profile}
	return out
}

func profileFromCache(fallbackName string, c *CachedProduct) ProfileView {
	name := c.Name
	if name == "" {
		name = fallbackName
	}
	cachedAt := c.LastScrapedAt
	return ProfileView{
		ProductProfile: ProductProfile{
			Name:            name,
			Content:         c.Description,
			FeaturesSummary: nonNil(c.FeaturesSummary),
			PricingTiers:    c.PricingModel,
			TargetAudience:  c.Category,
			Strengths:       nonNil(c.Strengths),
			Weaknesses:      nonNil(c.Weaknesses),
			Sources:         nonNil(c.Sources),
		},
		Cached:   true,
		CachedAt: &cachedAt,
	}
}

func profileResult(p ProfileView) Result {
	title := p.Name
	if title == "" {
		title = "Product"
	}
	r := newResult(ResultProductProfile, title, p.Content, map[string]interface{}{"profile": p}, p.Sources)
	r.Cached = p.Cached
	r.CachedAt = p.CachedAt
	return r
}

func (o *Orchestrator) gapAnalysis(ctx context.Context, emit emitFunc, j *Journey, domain string, profiles []ProfileView, overview *MarketOverview) error {
	emit(NewPhaseStarted(PhaseGapAnalyzing, "Finding market gaps"))

	clarification := j.Steps.ClarificationContext()
	messages := prompt.GapAnalysis(domain, profiles, clarification, overview)
	gap, err := structured.Generate[GapAnalysis](ctx, o.llm, messages, j.ID)
	if err != nil {
		// Without gaps there is nothing to select, so the journey ends on its profiles.
		o.partialFailure(emit, j.ID, "Gap Analysis", MsgGapFailed, err)
		_, err = o.saveStep(ctx, j.ID, GapExploreStep{
			Input:  GapExploreInput{Profiles: profiles, Domain: domain},
			Output: GapExploreOutput{ProductProfiles: profiles},
		})
		if err != nil {
			return err
		}
		return o.complete(ctx, emit, j.ID)
	}

	lines := make([]string, 0, len(gap.Problems))
	for _, p := range gap.Problems {
		lines = append(lines, fmt.Sprintf("**%s**: %s", p.Title, p.Description))
	}
	result := newResult(
		ResultGapAnalysis,
		gap.Title,
		strings.Join(lines, "\n\n"),
		map[string]interface{}{"problems": gap.Problems},
		gap.Sources,
	)

	_, err = o.saveStep(ctx, j.ID, GapExploreStep{
		Input:  GapExploreInput{Profiles: profiles, Domain: domain},
		Output: GapExploreOutput{GapAnalysis: &gap, ProductProfiles: profiles},
	})
	if err != nil {
		return err
	}

	emit(NewResultReady(result))
	emit(NewPhaseCompleted(PhaseGapAnalyzing))
	emit(NewAwaitingSelection(SelectionProblems))
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
