package mapper

import (
	"encoding/json"

	"blueprint-research-be/internal/entity"
	"blueprint-research-be/internal/model"

	"gorm.io/datatypes"
)

type ProductMapper struct{}

func NewProductMapper() *ProductMapper {
	return &ProductMapper{}
}

func (m *ProductMapper) ToEntity(p *model.Product) *entity.Product {
	if p == nil {
		return nil
	}
	return &entity.Product{
		Id:              p.Id,
		NormalizedName:  p.NormalizedName,
		Name:            p.Name,
		Url:             p.Url,
		Description:     p.Description,
		Category:        p.Category,
		PricingModel:    p.PricingModel,
		FeaturesSummary: []string(p.FeaturesSummary),
		Strengths:       []string(p.Strengths),
		Weaknesses:      []string(p.Weaknesses),
		Sources:         []string(p.Sources),
		LastScrapedAt:   p.LastScrapedAt,
	}
}

func (m *ProductMapper) ToModel(p *entity.Product) *model.Product {
	if p == nil {
		return nil
	}
	return &model.Product{
		Id:              p.Id,
		NormalizedName:  p.NormalizedName,
		Name:            p.Name,
		Url:             p.Url,
		Description:     p.Description,
		Category:        p.Category,
		PricingModel:    p.PricingModel,
		FeaturesSummary: datatypes.NewJSONSlice(p.FeaturesSummary),
		Strengths:       datatypes.NewJSONSlice(p.Strengths),
		Weaknesses:      datatypes.NewJSONSlice(p.Weaknesses),
		Sources:         datatypes.NewJSONSlice(p.Sources),
		LastScrapedAt:   p.LastScrapedAt,
	}
}

type AlternativesMapper struct{}

func NewAlternativesMapper() *AlternativesMapper {
	return &AlternativesMapper{}
}

func (m *AlternativesMapper) ToEntity(a *model.AlternativesCache) *entity.AlternativesCache {
	if a == nil {
		return nil
	}
	return &entity.AlternativesCache{
		Id:             a.Id,
		ProductName:    a.ProductName,
		NormalizedName: a.NormalizedName,
		Alternatives:   json.RawMessage(a.Alternatives),
		SourceUrl:      a.SourceUrl,
		ScrapedAt:      a.ScrapedAt,
	}
}

func (m *AlternativesMapper) ToModel(a *entity.AlternativesCache) *model.AlternativesCache {
	if a == nil {
		return nil
	}
	return &model.AlternativesCache{
		Id:             a.Id,
		ProductName:    a.ProductName,
		NormalizedName: a.NormalizedName,
		Alternatives:   datatypes.JSON(a.Alternatives),
		SourceUrl:      a.SourceUrl,
		ScrapedAt:      a.ScrapedAt,
	}
}
