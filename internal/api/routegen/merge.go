package routegen

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tripforge/tripforge/internal/types"
)

// The merge engine is the only place multi-source signals combine. It pools
// every selected and alternative city across the per-source results, tags
// each pooled city with the sources that proposed it, and produces one
// "best overall" route. Failed sources contribute nothing but never break
// the merge.

const (
	mergedSourceID = "best-overall"
	mergedColor    = "#1971C2"
	mergedIcon     = "route"
)

type pooledCity struct {
	city  types.CityCandidate
	order int
}

// MergeResults builds the combined best-overall entry from all per-source
// results. Call it only when two or more sources were requested.
func MergeResults(results []types.SourceResult, requestedStops int) *types.SourceResult {
	pool := make(map[string]*pooledCity)
	var keys []string

	for _, result := range results {
		for _, city := range append(append([]types.CityCandidate{}, result.Recommendations.Waypoints...), result.Recommendations.Alternatives...) {
			key := city.Key()
			if key == "" {
				continue
			}
			entry, exists := pool[key]
			if !exists {
				tagged := cloneCity(city)
				tagged.Themes = []string{result.SourceID}
				pool[key] = &pooledCity{city: tagged, order: len(keys)}
				keys = append(keys, key)
				continue
			}
			mergeInto(&entry.city, city, result.SourceID)
		}
	}

	origin, destination := firstValidEndpoints(results)

	pooled := make([]types.CityCandidate, 0, len(keys))
	for _, key := range keys {
		pooled = append(pooled, pool[key].city)
	}
	// A source with different endpoints may have proposed the winning origin
	// or destination city as a stop; waypoints must stay distinct from the
	// endpoints by name.
	pooled = dropEndpointCollisions(pooled, origin, destination)

	var selected, alternatives []types.CityCandidate
	if origin != nil && destination != nil {
		selected, alternatives = SelectStops(pooled, *origin, *destination, requestedStops)
	} else {
		// No usable endpoints anywhere: rank by how many sources agree.
		selected, alternatives = rankByPopularity(pooled, requestedStops)
	}

	for i := range selected {
		selected[i].ThemeDisplay = themeDisplay(selected[i].Themes)
	}
	for i := range alternatives {
		alternatives[i].ThemeDisplay = themeDisplay(alternatives[i].Themes)
	}

	return &types.SourceResult{
		SourceID:    mergedSourceID,
		Name:        "Best Overall",
		Color:       mergedColor,
		Icon:        mergedIcon,
		Description: mergedDescription(selected),
		Recommendations: types.RouteRecommendation{
			Origin:       origin,
			Destination:  destination,
			Waypoints:    selected,
			Alternatives: alternatives,
		},
	}
}

// mergeInto folds a repeated sighting of a city into the pooled entry:
// themes and activities union (deduplicated), and a real current_events
// value wins over "None".
func mergeInto(dst *types.CityCandidate, src types.CityCandidate, sourceID string) {
	hasTheme := false
	for _, t := range dst.Themes {
		if t == sourceID {
			hasTheme = true
			break
		}
	}
	if !hasTheme {
		dst.Themes = append(dst.Themes, sourceID)
	}

	known := make(map[string]bool, len(dst.Activities))
	for _, a := range dst.Activities {
		known[strings.ToLower(a)] = true
	}
	for _, a := range src.Activities {
		if !known[strings.ToLower(a)] {
			dst.Activities = append(dst.Activities, a)
			known[strings.ToLower(a)] = true
		}
	}

	if isNoneEvent(dst.CurrentEvents) && !isNoneEvent(src.CurrentEvents) {
		dst.CurrentEvents = src.CurrentEvents
	}
	if dst.Description == "" {
		dst.Description = src.Description
	}
}

func isNoneEvent(s string) bool {
	s = strings.TrimSpace(s)
	return s == "" || strings.EqualFold(s, "none")
}

// firstValidEndpoints takes origin/destination from the first source result
// that supplies both with valid coordinates.
func firstValidEndpoints(results []types.SourceResult) (origin, destination *types.CityCandidate) {
	for _, r := range results {
		o, d := r.Recommendations.Origin, r.Recommendations.Destination
		if o == nil || d == nil {
			continue
		}
		if validCoordinate(o.Latitude, o.Longitude) && validCoordinate(d.Latitude, d.Longitude) {
			oc, dc := cloneCity(*o), cloneCity(*d)
			return &oc, &dc
		}
	}
	return nil, nil
}

// rankByPopularity sorts the pool by source-count descending, stable on pool
// order for ties, and splits at requestedStops.
func rankByPopularity(pooled []types.CityCandidate, requestedStops int) (selected, alternatives []types.CityCandidate) {
	ranked := append([]types.CityCandidate(nil), pooled...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return len(ranked[i].Themes) > len(ranked[j].Themes)
	})
	if requestedStops > len(ranked) {
		requestedStops = len(ranked)
	}
	return ranked[:requestedStops], ranked[requestedStops:]
}

func themeDisplay(themes []string) string {
	names := make([]string, 0, len(themes))
	for _, id := range themes {
		if p, ok := ProfileByID(id); ok {
			names = append(names, p.Name)
		} else {
			names = append(names, id)
		}
	}
	return strings.Join(names, " · ")
}

// mergedDescription names the distinct source display-names represented
// among the selected cities.
func mergedDescription(selected []types.CityCandidate) string {
	seen := make(map[string]bool)
	var names []string
	for _, city := range selected {
		for _, id := range city.Themes {
			if seen[id] {
				continue
			}
			seen[id] = true
			if p, ok := ProfileByID(id); ok {
				names = append(names, p.Name)
			} else {
				names = append(names, id)
			}
		}
	}
	if len(names) == 0 {
		return "Best overall route"
	}
	return fmt.Sprintf("Best overall route combining %s picks", strings.Join(names, ", "))
}
