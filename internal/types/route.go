package types

import "strings"

// CityCandidate is one city proposed by a travel-style source as a possible
// stop. Identity is the lowercase-trimmed name; coordinates may be missing
// when the upstream response was sloppy, in which case the optimizer treats
// the candidate as unplaceable.
type CityCandidate struct {
	Name          string   `json:"name"`
	Latitude      float64  `json:"latitude"`
	Longitude     float64  `json:"longitude"`
	Description   string   `json:"description"`
	Activities    []string `json:"activities,omitempty"`
	Duration      string   `json:"duration,omitempty"`
	CurrentEvents string   `json:"current_events,omitempty"`

	// Themes is filled during merging: the ids of every source that
	// recommended this city.
	Themes       []string `json:"themes,omitempty"`
	ThemeDisplay string   `json:"theme_display,omitempty"`
}

// Key returns the identity key used for deduplication across sources.
func (c CityCandidate) Key() string {
	return strings.ToLower(strings.TrimSpace(c.Name))
}

// RouteRecommendation is one source's validated route: the endpoints it
// proposed plus the optimizer's selected waypoints and ranked alternatives.
type RouteRecommendation struct {
	Origin       *CityCandidate  `json:"origin,omitempty"`
	Destination  *CityCandidate  `json:"destination,omitempty"`
	Waypoints    []CityCandidate `json:"waypoints"`
	Alternatives []CityCandidate `json:"alternatives,omitempty"`
}

// TripMetrics is the flat, best-effort metrics object mined from a source's
// free-text response (ratings, percentage splits, lists).
type TripMetrics map[string]any

// SourceResult is the per-source outcome of one generation job. It is created
// once the source's pipeline stage completes, success or failure, and is
// never mutated afterwards. A failed source keeps its display metadata and
// carries the failure in Error with empty waypoints.
type SourceResult struct {
	SourceID        string              `json:"source_id"`
	Name            string              `json:"name"`
	Color           string              `json:"color,omitempty"`
	Icon            string              `json:"icon,omitempty"`
	Description     string              `json:"description,omitempty"`
	Recommendations RouteRecommendation `json:"recommendations"`
	Metrics         TripMetrics         `json:"metrics,omitempty"`
	Error           string              `json:"error,omitempty"`
}

// RoutePlan is the final payload of a completed job: the combined results of
// every requested source, with the merged best-overall entry at index 0 when
// two or more sources were requested.
type RoutePlan struct {
	Origin      *CityCandidate `json:"origin,omitempty"`
	Destination string         `json:"destination"`
	TotalStops  int            `json:"total_stops"`
	Budget      string         `json:"budget,omitempty"`
	Results     []SourceResult `json:"results"`
}
