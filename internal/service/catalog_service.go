package service

import (
	"context"
	"time"

	"github.com/noah-isme/sims-enrollment-api/pkg/config"
	"github.com/noah-isme/sims-enrollment-api/pkg/timetable"
)

const (
	catalogCacheKey = "catalog:v1"
	catalogCacheTTL = 24 * time.Hour
)

// Catalog is the read-only lookup data the scheduling screens are built from.
type Catalog struct {
	Days                []timetable.Day    `json:"days"`
	Periods             []timetable.Period `json:"periods"`
	Semesters           []string           `json:"semesters"`
	Departments         []string           `json:"departments"`
	CurrentSemester     string             `json:"current_semester"`
	CurrentAcademicYear string             `json:"current_academic_year"`
	MaxSpanPeriods      int                `json:"max_span_periods"`
}

// CatalogService serves the day/period tables together with the configured enrollment periods.
type CatalogService struct {
	cache    *CacheService
	academic config.AcademicConfig
}

// NewCatalogService constructs CatalogService.
func NewCatalogService(cacheSvc *CacheService, academic config.AcademicConfig) *CatalogService {
	return &CatalogService{cache: cacheSvc, academic: academic}
}

// Catalog returns the lookup tables, served from cache when available.
func (s *CatalogService) Catalog(ctx context.Context) *Catalog {
	var cached Catalog
	if s.cache.Get(ctx, catalogCacheKey, &cached) {
		return &cached
	}
	catalog := BuildCatalog(s.academic)
	s.cache.Set(ctx, catalogCacheKey, catalog, catalogCacheTTL)
	return catalog
}

// BuildCatalog assembles the catalog without touching the cache.
func BuildCatalog(academic config.AcademicConfig) *Catalog {
	return &Catalog{
		Days:                timetable.Days(),
		Periods:             timetable.Periods(),
		Semesters:           append([]string(nil), academic.Semesters...),
		Departments:         append([]string(nil), academic.Departments...),
		CurrentSemester:     academic.CurrentSemester,
		CurrentAcademicYear: academic.CurrentAcademicYear,
		MaxSpanPeriods:      timetable.MaxConsecutivePeriods,
	}
}
