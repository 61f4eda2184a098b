package types

import "time"

type JobStatus string

const (
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Terminal reports whether the status can no longer change.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// JobProgress is the live progress of a generation job. Completed never
// exceeds Total and only ever grows; it is written by the single orchestrator
// goroutine owning the job.
type JobProgress struct {
	Total                int       `json:"total"`
	Completed            int       `json:"completed"`
	CurrentSource        string    `json:"current_source,omitempty"`
	PercentComplete      int       `json:"percent_complete"`
	StartedAt            time.Time `json:"started_at"`
	EstimatedRemainingMs int64     `json:"estimated_remaining_ms"`
}

// GenerationJob is one asynchronous route-generation request's full lifecycle
// record, kept in the in-memory job store and polled by clients.
type GenerationJob struct {
	ID              string         `json:"id"`
	Status          JobStatus      `json:"status"`
	Destination     string         `json:"destination"`
	RequestedStops  int            `json:"requested_stops"`
	SelectedSources []string       `json:"selected_sources"`
	BudgetTier      string         `json:"budget_tier,omitempty"`
	Progress        JobProgress    `json:"progress"`
	Results         []SourceResult `json:"results,omitempty"`
	Error           string         `json:"error,omitempty"`
	CompletedAt     time.Time      `json:"completed_at,omitempty"`
}

// CreateRouteRequest is the client request that starts a generation job.
type CreateRouteRequest struct {
	Destination string   `json:"destination"`
	Stops       int      `json:"stops"`
	Sources     []string `json:"sources"`
	Budget      string   `json:"budget,omitempty"`
}

// JobAcceptedResponse acknowledges job creation; clients poll with the id.
type JobAcceptedResponse struct {
	JobID  string    `json:"job_id"`
	Status JobStatus `json:"status"`
}

// JobStatusResponse is the polling read shape. Route is populated only once
// the job has completed.
type JobStatusResponse struct {
	ID       string      `json:"id"`
	Status   JobStatus   `json:"status"`
	Progress JobProgress `json:"progress"`
	Route    *RoutePlan  `json:"route,omitempty"`
	Error    string      `json:"error,omitempty"`
}

// ExpandRouteRequest asks for one extra landmark to be folded into an
// existing waypoint sequence at the cheapest insertion point.
type ExpandRouteRequest struct {
	Route      []CityCandidate `json:"route"`
	Candidates []CityCandidate `json:"candidates"`
}

type ExpandRouteResponse struct {
	Route    []CityCandidate `json:"route"`
	Inserted *CityCandidate  `json:"inserted,omitempty"`
	DetourKm float64         `json:"detour_km"`
}

// InsertionCostRequest asks what adding one city to an existing route would
// cost, without mutating anything.
type InsertionCostRequest struct {
	Route []CityCandidate `json:"route"`
	City  CityCandidate   `json:"city"`
}

type InsertionCostResponse struct {
	DetourKm float64 `json:"detour_km"`
	Position int     `json:"position"`
}
