package routegen

import (
	"errors"

	"github.com/tripforge/tripforge/internal/types"
)

// The optimizer narrows a source's candidate set down to the requested stop
// count by greedy nearest-insertion: each round it tries every remaining
// candidate at every position of the working route and commits the single
// (city, position) pair with the smallest detour. Ties resolve to the first
// candidate in input order. Candidates without usable coordinates are never
// placed and come back as alternatives.

var ErrNoInsertableCity = errors.New("no candidate city with valid coordinates")

// SelectStops picks exactly count cities from candidates that minimize the
// total detour between origin and destination. Selected cities come back in
// route order; everything else comes back as alternatives in input order.
func SelectStops(candidates []types.CityCandidate, origin, destination types.CityCandidate, count int) (selected, alternatives []types.CityCandidate) {
	placeable := make([]types.CityCandidate, 0, len(candidates))
	for _, c := range candidates {
		if validCoordinate(c.Latitude, c.Longitude) {
			placeable = append(placeable, c)
		}
	}

	if len(placeable) <= count {
		return placeable, remainder(candidates, placeable)
	}

	route := []types.CityCandidate{origin, destination}
	pool := placeable
	for i := 0; i < count; i++ {
		var chosen int
		route, chosen = insertBest(route, pool)
		pool = append(pool[:chosen:chosen], pool[chosen+1:]...)
	}

	// Strip the endpoints; what is left is the selected set in route order.
	selected = route[1 : len(route)-1]
	return selected, remainder(candidates, selected)
}

// ExtendRoute inserts the single cheapest candidate into an existing
// waypoint sequence. The working route is the full sequence, not just the
// endpoints, so the insertion respects every leg already committed.
func ExtendRoute(route []types.CityCandidate, candidates []types.CityCandidate) ([]types.CityCandidate, *types.CityCandidate, float64, error) {
	placeable := make([]types.CityCandidate, 0, len(candidates))
	for _, c := range candidates {
		if validCoordinate(c.Latitude, c.Longitude) {
			placeable = append(placeable, c)
		}
	}
	if len(route) < 2 || len(placeable) == 0 {
		return route, nil, 0, ErrNoInsertableCity
	}

	bestCity, bestPos, bestCost := bestInsertion(route, placeable)
	extended := make([]types.CityCandidate, 0, len(route)+1)
	extended = append(extended, route[:bestPos]...)
	extended = append(extended, placeable[bestCity])
	extended = append(extended, route[bestPos:]...)
	return extended, &placeable[bestCity], bestCost, nil
}

// InsertionCost reports the detour a single city would add at its cheapest
// position, without changing the route.
func InsertionCost(route []types.CityCandidate, city types.CityCandidate) (float64, int, error) {
	if len(route) < 2 {
		return 0, 0, ErrNoInsertableCity
	}
	if !validCoordinate(city.Latitude, city.Longitude) {
		return 0, 0, ErrNoInsertableCity
	}
	_, pos, cost := bestInsertion(route, []types.CityCandidate{city})
	return cost, pos, nil
}

// insertBest commits the globally cheapest (city, position) pair from pool
// into route and returns the new route plus the pool index consumed.
func insertBest(route []types.CityCandidate, pool []types.CityCandidate) ([]types.CityCandidate, int) {
	bestCity, bestPos, _ := bestInsertion(route, pool)
	next := make([]types.CityCandidate, 0, len(route)+1)
	next = append(next, route[:bestPos]...)
	next = append(next, pool[bestCity])
	next = append(next, route[bestPos:]...)
	return next, bestCity
}

// bestInsertion scans every candidate at every insertion position and
// returns the pair with the minimal detour. Strict less-than keeps the
// tie-break stable on input order.
func bestInsertion(route []types.CityCandidate, pool []types.CityCandidate) (cityIdx, pos int, cost float64) {
	first := true
	for ci, city := range pool {
		for i := 1; i < len(route); i++ {
			prev, next := route[i-1], route[i]
			detour := haversineKm(prev.Latitude, prev.Longitude, city.Latitude, city.Longitude) +
				haversineKm(city.Latitude, city.Longitude, next.Latitude, next.Longitude) -
				haversineKm(prev.Latitude, prev.Longitude, next.Latitude, next.Longitude)
			if first || detour < cost {
				first = false
				cityIdx, pos, cost = ci, i, detour
			}
		}
	}
	return cityIdx, pos, cost
}

// remainder returns every candidate not present in selected, preserving the
// original input order. Name keys decide membership, matching the identity
// rule used everywhere else.
func remainder(candidates, selected []types.CityCandidate) []types.CityCandidate {
	taken := make(map[string]bool, len(selected))
	for _, c := range selected {
		taken[c.Key()] = true
	}
	var rest []types.CityCandidate
	for _, c := range candidates {
		if !taken[c.Key()] {
			rest = append(rest, c)
		}
	}
	return rest
}

// totalRouteDistance sums the leg distances of a full route. Used by the
// merge description and exercised heavily in tests.
func totalRouteDistance(route []types.CityCandidate) float64 {
	var total float64
	for i := 1; i < len(route); i++ {
		total += haversineKm(route[i-1].Latitude, route[i-1].Longitude, route[i].Latitude, route[i].Longitude)
	}
	return total
}
