package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Product struct {
	Id              uuid.UUID                   `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	NormalizedName  string                      `gorm:"type:varchar(255);not null;uniqueIndex"`
	Name            string                      `gorm:"type:varchar(255);not null"`
	Url             *string                     `gorm:"type:text"`
	Description     string                      `gorm:"type:text"`
	Category        *string                     `gorm:"type:text"`
	PricingModel    *string                     `gorm:"type:text"`
	FeaturesSummary datatypes.JSONSlice[string] `gorm:"type:jsonb"`
	Strengths       datatypes.JSONSlice[string] `gorm:"type:jsonb"`
	Weaknesses      datatypes.JSONSlice[string] `gorm:"type:jsonb"`
	Sources         datatypes.JSONSlice[string] `gorm:"type:jsonb"`
	LastScrapedAt   time.Time                   `gorm:"not null;index"`
	CreatedAt       time.Time                   `gorm:"autoCreateTime"`
	UpdatedAt       time.Time                   `gorm:"autoUpdateTime"`
}

func (Product) TableName() string {
	return "products"
}

type AlternativesCache struct {
	Id             uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProductName    string         `gorm:"type:varchar(255);not null"`
	NormalizedName string         `gorm:"type:varchar(255);not null;uniqueIndex"`
	Alternatives   datatypes.JSON `gorm:"type:jsonb;not null"`
	SourceUrl      *string        `gorm:"type:text"`
	ScrapedAt      time.Time      `gorm:"not null;index"`
}

func (AlternativesCache) TableName() string {
	return "alternatives_cache"
}
