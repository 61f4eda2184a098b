package itinerary

import (
	"fmt"
	"strings"

	"github.com/tripforge/tripforge/internal/types"
)

func buildItineraryPrompt(req types.ItineraryRequest) string {
	stops := make([]string, 0, len(req.Waypoints))
	for _, w := range req.Waypoints {
		stops = append(stops, w.Name)
	}

	origin := "the traveler's starting point"
	if req.Origin != nil {
		origin = req.Origin.Name
	}
	destination := "the final destination"
	if req.Destination != nil {
		destination = req.Destination.Name
	}
	budget := req.Budget
	if budget == "" {
		budget = "medium"
	}

	return fmt.Sprintf(`
            Create a day-by-day road trip itinerary from %s to %s with stops in: %s.
            The traveler has a %s budget. Allocate at least one day per stop and include driving legs.
            Return the response STRICTLY as a JSON object with:
            {
            "name": "A short evocative name for the trip",
            "description": "A 2-3 sentence overview of the itinerary.",
            "days": [
                {
                "day": <int, starting at 1>,
                "city": "City for this day",
                "morning": "Morning plan",
                "afternoon": "Afternoon plan",
                "evening": "Evening plan",
                "driving_time": "Driving for this day, e.g. '2h30', or '' for none"
                }
            ]
            }`, origin, destination, strings.Join(stops, ", "), budget)
}
