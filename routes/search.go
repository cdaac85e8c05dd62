package routes

import (
	"sort"
	"strings"

	"github.com/kataras/iris/v12"
	"gorm.io/gorm"

	"rentloop-server/services"
	"rentloop-server/utils"
)

// SearchHandler combines text relevance, filters and optional geography.
type SearchHandler struct {
	DB     *gorm.DB
	Search *services.SearchService
}

func NewSearchHandler(db *gorm.DB, search *services.SearchService) *SearchHandler {
	return &SearchHandler{DB: db, Search: search}
}

// SearchListings handles GET /api/search.
//
// Sorting: "relevance" orders by the heuristic score (requires q),
// "distance" orders nearest first (requires lat/lng), default is newest
// first. Ties keep the fetch order.
func (h *SearchHandler) SearchListings(ctx iris.Context) {
	query := strings.TrimSpace(ctx.URLParam("q"))
	sortMode := strings.ToLower(strings.TrimSpace(ctx.URLParamDefault("sort", "")))

	filters := services.SearchFilters{Limit: 200}
	if categoryID, err := ctx.URLParamInt("category"); err == nil && categoryID > 0 {
		filters.CategoryID = uint(categoryID)
	}
	if minPrice, err := ctx.URLParamFloat64("minPrice"); err == nil && minPrice > 0 {
		filters.MinPrice = minPrice
	}
	if maxPrice, err := ctx.URLParamFloat64("maxPrice"); err == nil && maxPrice > 0 {
		filters.MaxPrice = maxPrice
	}

	lat, latErr := ctx.URLParamFloat64("lat")
	lng, lngErr := ctx.URLParamFloat64("lng")
	hasPoint := latErr == nil && lngErr == nil

	if sortMode == "relevance" && query == "" {
		utils.Error(ctx, iris.StatusBadRequest, "Validation Error", "relevance sorting requires a q parameter")
		return
	}
	if sortMode == "distance" && !hasPoint {
		utils.Error(ctx, iris.StatusBadRequest, "Validation Error", "distance sorting requires lat and lng")
		return
	}

	var results []SearchResultResponse
	var err error

	if radius, radiusErr := ctx.URLParamFloat64("radius"); radiusErr == nil && radius > 0 && hasPoint {
		results, err = h.radiusResults(lat, lng, radius, filters)
	} else {
		results, err = h.allResults(filters, hasPoint, lat, lng)
	}
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	if query != "" {
		for i := range results {
			results[i].Score = scoreResult(query, &results[i])
		}
	}

	switch sortMode {
	case "relevance":
		sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	case "distance":
		sort.SliceStable(results, func(i, j int) bool {
			di, dj := results[i].DistanceMeters, results[j].DistanceMeters
			if di == nil || dj == nil {
				return dj == nil && di != nil
			}
			return *di < *dj
		})
	}

	utils.Success(ctx, iris.Map{
		"results": results,
		"count":   len(results),
	})
}

func (h *SearchHandler) radiusResults(lat, lng, radius float64, filters services.SearchFilters) ([]SearchResultResponse, error) {
	rows, err := h.Search.WithinRadius(lat, lng, radius, filters)
	if err != nil {
		return nil, err
	}

	results := make([]SearchResultResponse, 0, len(rows))
	for i := range rows {
		distance := rows[i].DistanceMeters
		results = append(results, SearchResultResponse{
			Listing:        newListingResponse(&rows[i].Listing),
			DistanceMeters: &distance,
		})
	}
	return results, nil
}

func (h *SearchHandler) allResults(filters services.SearchFilters, hasPoint bool, lat, lng float64) ([]SearchResultResponse, error) {
	listings, err := h.Search.ActiveListings(filters)
	if err != nil {
		return nil, err
	}

	results := make([]SearchResultResponse, 0, len(listings))
	for i := range listings {
		result := SearchResultResponse{Listing: newListingResponse(&listings[i])}
		if hasPoint {
			d := services.Haversine(lat, lng, listings[i].Lat, listings[i].Lng)
			result.DistanceMeters = &d
		}
		results = append(results, result)
	}
	return results, nil
}

func scoreResult(query string, result *SearchResultResponse) int {
	return services.RelevanceScore(query, result.Listing.Title, result.Listing.Description,
		result.Listing.Tags, result.Listing.CategoryName)
}
