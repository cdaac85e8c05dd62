package services

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"rentloop-server/models"
)

// Relevance score weights. The score is an additive heuristic, not a ranking
// model; ties keep the order of the underlying fetch.
const (
	scoreTitle       = 10
	scoreCategory    = 7
	scoreDescription = 5
	scoreTag         = 5
)

// RelevanceScore computes the heuristic match score of a listing against a
// free-text query. An empty query scores zero everywhere.
func RelevanceScore(query, title, description string, tags []string, category string) int {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return 0
	}

	score := 0
	if strings.Contains(strings.ToLower(title), q) {
		score += scoreTitle
	}
	if strings.Contains(strings.ToLower(description), q) {
		score += scoreDescription
	}
	for _, tag := range tags {
		if strings.Contains(strings.ToLower(tag), q) {
			score += scoreTag
			break
		}
	}
	if category != "" && strings.Contains(strings.ToLower(category), q) {
		score += scoreCategory
	}
	return score
}

// ScoreListing applies RelevanceScore to a loaded listing row.
func ScoreListing(query string, listing *models.Listing) int {
	category := ""
	if listing.Category != nil {
		category = listing.Category.Name
	}
	return RelevanceScore(query, listing.Title, listing.Description, listing.TagList(), category)
}

// Haversine returns the great-circle distance in meters.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	const R = 6371000.0
	dLat := (lat2 - lat1) * math.Pi / 180.0
	dLon := (lon2 - lon1) * math.Pi / 180.0
	la1 := lat1 * math.Pi / 180.0
	la2 := lat2 * math.Pi / 180.0
	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Sin(dLon/2)*math.Sin(dLon/2)*math.Cos(la1)*math.Cos(la2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return R * c
}

// ParsePoint extracts lat/lng from the point encodings the persistence layer
// may hand back: WKT "POINT(lng lat)" or GeoJSON {"coordinates":[lng,lat]}.
// Both encodings carry longitude first.
func ParsePoint(raw string) (lat, lng float64, err error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, 0, fmt.Errorf("empty point")
	}

	if strings.HasPrefix(strings.ToUpper(s), "POINT") {
		open := strings.Index(s, "(")
		closing := strings.Index(s, ")")
		if open == -1 || closing == -1 || closing <= open {
			return 0, 0, fmt.Errorf("malformed WKT point %q", raw)
		}
		fields := strings.Fields(s[open+1 : closing])
		if len(fields) != 2 {
			return 0, 0, fmt.Errorf("malformed WKT point %q", raw)
		}
		lng, err = strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return 0, 0, fmt.Errorf("malformed WKT point %q", raw)
		}
		lat, err = strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return 0, 0, fmt.Errorf("malformed WKT point %q", raw)
		}
		return lat, lng, nil
	}

	var geo struct {
		Coordinates []float64 `json:"coordinates"`
	}
	if err := json.Unmarshal([]byte(s), &geo); err != nil || len(geo.Coordinates) != 2 {
		return 0, 0, fmt.Errorf("unrecognized point encoding %q", raw)
	}
	return geo.Coordinates[1], geo.Coordinates[0], nil
}

// SearchService runs the candidate fetches behind /api/search.
type SearchService struct {
	DB *gorm.DB
}

func NewSearchService(db *gorm.DB) *SearchService {
	return &SearchService{DB: db}
}

// SearchFilters narrows the candidate set before any scoring happens.
type SearchFilters struct {
	CategoryID uint
	MinPrice   float64
	MaxPrice   float64
	Limit      int
}

func (f SearchFilters) apply(q *gorm.DB) *gorm.DB {
	if f.CategoryID > 0 {
		q = q.Where("category_id = ?", f.CategoryID)
	}
	if f.MinPrice > 0 {
		q = q.Where("price_per_day >= ?", f.MinPrice)
	}
	if f.MaxPrice > 0 {
		q = q.Where("price_per_day <= ?", f.MaxPrice)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	return q
}

// ActiveListings fetches active candidates in default (newest first) order.
func (s *SearchService) ActiveListings(f SearchFilters) ([]models.Listing, error) {
	var listings []models.Listing
	q := s.DB.Model(&models.Listing{}).
		Preload("Category").
		Where("status = ?", models.ListingStatusActive).
		Order("created_at DESC")
	if err := f.apply(q).Find(&listings).Error; err != nil {
		return nil, err
	}
	return listings, nil
}

// ListingWithDistance carries the distance computed by the radius query.
type ListingWithDistance struct {
	models.Listing
	DistanceMeters float64 `json:"distanceMeters" gorm:"column:distance_meters"`
}

// WithinRadius returns active listings inside radiusMeters of (lat, lng),
// nearest first. The great-circle distance is computed in SQL so the database
// does the filtering.
func (s *SearchService) WithinRadius(lat, lng, radiusMeters float64, f SearchFilters) ([]ListingWithDistance, error) {
	sub := s.DB.Model(&models.Listing{}).
		Select(`listings.*, (6371000 * acos(least(1.0,
			cos(radians(?)) * cos(radians(lat)) * cos(radians(lng) - radians(?)) +
			sin(radians(?)) * sin(radians(lat))))) AS distance_meters`, lat, lng, lat).
		Where("status = ?", models.ListingStatusActive)
	sub = f.apply(sub)

	var rows []ListingWithDistance
	err := s.DB.Table("(?) AS nearby", sub).
		Where("distance_meters <= ?", radiusMeters).
		Order("distance_meters ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	// Preload does not run through raw subqueries; resolve categories in one
	// extra fetch for scoring.
	ids := make([]uint, 0, len(rows))
	for _, r := range rows {
		if r.CategoryID != nil {
			ids = append(ids, *r.CategoryID)
		}
	}
	if len(ids) > 0 {
		var cats []models.Category
		if err := s.DB.Where("id IN ?", ids).Find(&cats).Error; err == nil {
			byID := make(map[uint]*models.Category, len(cats))
			for i := range cats {
				byID[cats[i].ID] = &cats[i]
			}
			for i := range rows {
				if rows[i].CategoryID != nil {
					rows[i].Category = byID[*rows[i].CategoryID]
				}
			}
		}
	}

	return rows, nil
}
