package routegen

import (
	"errors"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/tripforge/tripforge/internal/types"
)

// ErrJobNotFound distinguishes an unknown (or already evicted) job id from a
// job that is still processing.
var ErrJobNotFound = errors.New("generation job not found")

// DefaultJobRetention is how long a terminal job stays readable before
// eviction reclaims it.
const DefaultJobRetention = 5 * time.Minute

// JobStore is the in-memory registry of generation jobs. Jobs stay pinned
// while processing; when they reach a terminal state they are re-set with the
// retention TTL so go-cache's lazy expiry reclaims them on a later read; no
// dedicated eviction timer runs.
//
// Only the orchestrator goroutine owning a job ever mutates it; pollers get
// deep copies so the two never share mutable state.
type JobStore struct {
	mu        sync.Mutex
	jobs      *cache.Cache
	retention time.Duration
}

func NewJobStore(retention time.Duration) *JobStore {
	if retention <= 0 {
		retention = DefaultJobRetention
	}
	return &JobStore{
		// Cleanup interval 0: expiry is checked lazily on read.
		jobs:      cache.New(cache.NoExpiration, 0),
		retention: retention,
	}
}

// Create registers a new job under its id.
func (s *JobStore) Create(job *types.GenerationJob) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs.Set(job.ID, job, cache.NoExpiration)
}

// Get returns a snapshot of the job, or ErrJobNotFound for unknown or
// already-evicted ids.
func (s *JobStore) Get(jobID string) (*types.GenerationJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, found := s.jobs.Get(jobID)
	if !found {
		return nil, ErrJobNotFound
	}
	job := entry.(*types.GenerationJob)
	return cloneJob(job), nil
}

// Update applies mutate to the stored job under the store lock. When the
// mutation moves the job into a terminal state the retention TTL starts.
func (s *JobStore) Update(jobID string, mutate func(*types.GenerationJob)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, found := s.jobs.Get(jobID)
	if !found {
		return ErrJobNotFound
	}
	job := entry.(*types.GenerationJob)
	wasTerminal := job.Status.Terminal()
	mutate(job)
	if job.Status.Terminal() && !wasTerminal {
		job.CompletedAt = time.Now()
		s.jobs.Set(jobID, job, s.retention)
	}
	return nil
}

// cloneJob deep-copies a job so pollers never alias slices the orchestrator
// is still appending to.
func cloneJob(job *types.GenerationJob) *types.GenerationJob {
	out := *job
	out.SelectedSources = append([]string(nil), job.SelectedSources...)
	if job.Results != nil {
		out.Results = make([]types.SourceResult, len(job.Results))
		for i, r := range job.Results {
			out.Results[i] = cloneSourceResult(r)
		}
	}
	return &out
}

func cloneSourceResult(r types.SourceResult) types.SourceResult {
	out := r
	out.Recommendations.Waypoints = cloneCities(r.Recommendations.Waypoints)
	out.Recommendations.Alternatives = cloneCities(r.Recommendations.Alternatives)
	if r.Recommendations.Origin != nil {
		origin := cloneCity(*r.Recommendations.Origin)
		out.Recommendations.Origin = &origin
	}
	if r.Recommendations.Destination != nil {
		dest := cloneCity(*r.Recommendations.Destination)
		out.Recommendations.Destination = &dest
	}
	if r.Metrics != nil {
		out.Metrics = make(types.TripMetrics, len(r.Metrics))
		for k, v := range r.Metrics {
			out.Metrics[k] = v
		}
	}
	return out
}

func cloneCities(cities []types.CityCandidate) []types.CityCandidate {
	if cities == nil {
		return nil
	}
	out := make([]types.CityCandidate, len(cities))
	for i, c := range cities {
		out[i] = cloneCity(c)
	}
	return out
}

func cloneCity(c types.CityCandidate) types.CityCandidate {
	out := c
	out.Activities = append([]string(nil), c.Activities...)
	out.Themes = append([]string(nil), c.Themes...)
	return out
}
