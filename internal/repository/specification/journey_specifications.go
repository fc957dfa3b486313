package specification

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ByJourneyID struct {
	JourneyID uuid.UUID
}

func (s ByJourneyID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("journey_id = ?", s.JourneyID)
}

type ByStatus struct {
	Status string
}

func (s ByStatus) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("status = ?", s.Status)
}

type ByNormalizedName struct {
	Name string
}

func (s ByNormalizedName) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("normalized_name = ?", s.Name)
}

// FreshSince keeps rows whose Field timestamp is not older than Since.
type FreshSince struct {
	Field string
	Since time.Time
}

func (s FreshSince) Apply(db *gorm.DB) *gorm.DB {
	return db.Where(s.Field+" >= ?", s.Since)
}
