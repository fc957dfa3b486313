package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type Product struct {
	Id              uuid.UUID
	NormalizedName  string
	Name            string
	Url             *string
	Description     string
	Category        *string
	PricingModel    *string
	FeaturesSummary []string
	Strengths       []string
	Weaknesses      []string
	Sources         []string
	LastScrapedAt   time.Time
}

type AlternativesCache struct {
	Id             uuid.UUID
	ProductName    string
	NormalizedName string
	Alternatives   json.RawMessage
	SourceUrl      *string
	ScrapedAt      time.Time
}
