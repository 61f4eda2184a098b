package types

// ItineraryRequest asks for a day-by-day plan over an already generated
// route. This is a synchronous call, not a job.
type ItineraryRequest struct {
	Origin      *CityCandidate  `json:"origin,omitempty"`
	Destination *CityCandidate  `json:"destination,omitempty"`
	Waypoints   []CityCandidate `json:"waypoints"`
	Budget      string          `json:"budget,omitempty"`
}

// DayPlan is one day of a generated itinerary.
type DayPlan struct {
	Day         int    `json:"day"`
	City        string `json:"city"`
	Morning     string `json:"morning"`
	Afternoon   string `json:"afternoon"`
	Evening     string `json:"evening"`
	DrivingTime string `json:"driving_time,omitempty"`
}

// Itinerary is the parsed day-by-day plan for a route.
type Itinerary struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Days        []DayPlan `json:"days"`
}
