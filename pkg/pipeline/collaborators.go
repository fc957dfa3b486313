package pipeline

import (
	"context"
	"regexp"
	"strings"
	"time"

	"blueprint-research-be/pkg/search"
)

const (
	StatusActive    = "active"
	StatusCompleted = "completed"

	IntentBuild     = "build"
	IntentExplore   = "explore"
	IntentImprove   = "improve"
	IntentSmallTalk = "small_talk"
	IntentOffTopic  = "off_topic"
)

// JourneyStore persists journeys and their ordered steps.
type JourneyStore interface {
	CreateJourney(ctx context.Context, prompt, intent string) (string, error)
	// GetJourney returns nil, nil when the journey does not exist.
	GetJourney(ctx context.Context, id string) (*Journey, error)
	SaveStep(ctx context.Context, journeyID string, number int, payload StepPayload) (string, error)
	NextStepNumber(ctx context.Context, journeyID string) (int, error)
	UpdateStatus(ctx context.Context, journeyID, status string) error
}

// CachedProduct is a product row from the product cache.
type CachedProduct struct {
	Name            string
	URL             string
	Description     string
	Category        string
	PricingModel    string
	FeaturesSummary []string
	Strengths       []string
	Weaknesses      []string
	Sources         []string
	LastScrapedAt   time.Time
}

// Alternative is one entry of a cached alternatives list.
type Alternative struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url,omitempty"`
}

// ProductCache reads and writes product profiles keyed by normalized name.
// Getters return nil, nil on a miss or when the entry is older than its window.
type ProductCache interface {
	GetCachedProduct(ctx context.Context, normalizedName string) (*CachedProduct, error)
	StoreProduct(ctx context.Context, normalizedName, url string, profile ProductProfile) error
	GetCachedAlternatives(ctx context.Context, normalizedName string) ([]Alternative, error)
	StoreAlternatives(ctx context.Context, productName string, alternatives []Alternative, sourceURL string) error
}

// Searcher never fails; an exhausted provider chain yields an empty list.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) []search.Result
	SearchReddit(ctx context.Context, query string, limit int) []search.Result
}

type Scraper interface {
	Scrape(ctx context.Context, url string) (string, error)
}

var whitespace = regexp.MustCompile(`\s+`)

// NormalizeProductName lowercases, trims and collapses internal whitespace.
func NormalizeProductName(name string) string {
	return whitespace.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), " ")
}
