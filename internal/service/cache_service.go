package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
	"unicode/utf8"

	"blueprint-research-be/internal/entity"
	"blueprint-research-be/internal/repository/specification"
	"blueprint-research-be/internal/repository/unitofwork"
	"blueprint-research-be/pkg/pipeline"

	"github.com/google/uuid"
)

const (
	productCacheWindow      = 7 * 24 * time.Hour
	alternativesCacheWindow = 30 * 24 * time.Hour
	maxCachedDescription    = 50000
)

type ICacheService interface {
	pipeline.ProductCache
	StoreAlternatives(ctx context.Context, productName string, alternatives []pipeline.Alternative, sourceURL string) error
}

type cacheService struct {
	uowFactory unitofwork.RepositoryFactory
	now        func() time.Time
}

func NewCacheService(uowFactory unitofwork.RepositoryFactory) ICacheService {
	return &cacheService{uowFactory: uowFactory, now: time.Now}
}

func (s *cacheService) GetCachedProduct(ctx context.Context, normalizedName string) (*pipeline.CachedProduct, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	product, err := uow.ProductRepository().FindOne(ctx,
		specification.ByNormalizedName{Name: normalizedName},
		specification.FreshSince{Field: "last_scraped_at", Since: s.now().Add(-productCacheWindow)},
	)
	if err != nil || product == nil {
		return nil, err
	}
	return &pipeline.CachedProduct{
		Name:            product.Name,
		URL:             deref(product.Url),
		Description:     product.Description,
		Category:        deref(product.Category),
		PricingModel:    deref(product.PricingModel),
		FeaturesSummary: product.FeaturesSummary,
		Strengths:       product.Strengths,
		Weaknesses:      product.Weaknesses,
		Sources:         product.Sources,
		LastScrapedAt:   product.LastScrapedAt,
	}, nil
}

func (s *cacheService) StoreProduct(ctx context.Context, normalizedName, url string, profile pipeline.ProductProfile) error {
	description := profile.Content
	if utf8.RuneCountInString(description) > maxCachedDescription {
		description = string([]rune(description)[:maxCachedDescription])
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	return uow.ProductRepository().Upsert(ctx, &entity.Product{
		NormalizedName:  normalizedName,
		Name:            profile.Name,
		Url:             optional(url),
		Description:     description,
		Category:        optional(profile.TargetAudience),
		PricingModel:    optional(profile.PricingTiers),
		FeaturesSummary: orEmpty(profile.FeaturesSummary),
		Strengths:       orEmpty(profile.Strengths),
		Weaknesses:      orEmpty(profile.Weaknesses),
		Sources:         orEmpty(profile.Sources),
		LastScrapedAt:   s.now(),
	})
}

func (s *cacheService) GetCachedAlternatives(ctx context.Context, normalizedName string) ([]pipeline.Alternative, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	cached, err := uow.AlternativesRepository().FindOne(ctx,
		specification.ByNormalizedName{Name: normalizedName},
		specification.FreshSince{Field: "scraped_at", Since: s.now().Add(-alternativesCacheWindow)},
	)
	if err != nil || cached == nil {
		return nil, err
	}

	var alternatives []pipeline.Alternative
	if err := json.Unmarshal(cached.Alternatives, &alternatives); err != nil {
		return nil, fmt.Errorf("decode alternatives for %q: %w", normalizedName, err)
	}
	return alternatives, nil
}

func (s *cacheService) StoreAlternatives(ctx context.Context, productName string, alternatives []pipeline.Alternative, sourceURL string) error {
	if alternatives == nil {
		alternatives = []pipeline.Alternative{}
	}
	raw, err := json.Marshal(alternatives)
	if err != nil {
		return err
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	return uow.AlternativesRepository().Upsert(ctx, &entity.AlternativesCache{
		Id:             uuid.New(),
		ProductName:    productName,
		NormalizedName: pipeline.NormalizeProductName(productName),
		Alternatives:   raw,
		SourceUrl:      optional(sourceURL),
		ScrapedAt:      s.now(),
	})
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
