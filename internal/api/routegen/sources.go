package routegen

import (
	"fmt"
	"regexp"
	"sort"
)

// SourceProfile is one named travel-style recommendation source: its display
// metadata, its prompt, and the rule tables used to mine metrics out of its
// response text. The set is fixed; sources are not a plugin system.
type SourceProfile struct {
	ID    string
	Name  string
	Color string
	Icon  string

	BuildPrompt func(destination string, stops int, budget string) string

	MetricRules       []MetricRule
	DistributionRules []DistributionRule
}

var sourceProfiles = map[string]SourceProfile{
	"adventure": {
		ID:          "adventure",
		Name:        "Adventure",
		Color:       "#E8590C",
		Icon:        "mountain",
		BuildPrompt: adventurePrompt,
		MetricRules: []MetricRule{
			{
				Field:   "difficulty",
				Pattern: regexp.MustCompile(`(?i)difficulty:\s*(\w+)`),
				Kind:    ruleLevel,
				Levels:  []string{"easy", "moderate", "challenging", "extreme"},
				Default: "moderate",
			},
			{
				Field:   "outdoor_rating",
				Pattern: regexp.MustCompile(`(?i)outdoor rating:\s*(\d+)`),
				Kind:    ruleInt,
				Default: 7,
			},
			{
				Field:   "gear",
				Pattern: regexp.MustCompile(`(?i)recommended gear:\s*([^\n]+)`),
				Kind:    ruleList,
				Default: []string{"hiking boots", "water bottle"},
			},
		},
		DistributionRules: []DistributionRule{
			{
				Field: "activity_split",
				Parts: [3]DistributionPart{
					{Label: "hiking", Pattern: regexp.MustCompile(`(?i)hiking:\s*(\d+)\s*%`), Default: 40},
					{Label: "water", Pattern: regexp.MustCompile(`(?i)water:\s*(\d+)\s*%`), Default: 30},
					{Label: "climbing", Pattern: regexp.MustCompile(`(?i)climbing:\s*(\d+)\s*%`), Default: 30},
				},
			},
		},
	},
	"culture": {
		ID:          "culture",
		Name:        "Culture",
		Color:       "#7048E8",
		Icon:        "landmark",
		BuildPrompt: culturePrompt,
		MetricRules: []MetricRule{
			{
				Field:   "museum_rating",
				Pattern: regexp.MustCompile(`(?i)museum rating:\s*(\d+)`),
				Kind:    ruleInt,
				Default: 8,
			},
			{
				Field:   "best_season",
				Pattern: regexp.MustCompile(`(?i)best season:\s*(\w+)`),
				Kind:    ruleLevel,
				Levels:  []string{"spring", "summer", "autumn", "winter"},
				Default: "spring",
			},
		},
		DistributionRules: []DistributionRule{
			{
				Field: "interest_split",
				Parts: [3]DistributionPart{
					{Label: "art", Pattern: regexp.MustCompile(`(?i)art:\s*(\d+)\s*%`), Default: 34},
					{Label: "history", Pattern: regexp.MustCompile(`(?i)history:\s*(\d+)\s*%`), Default: 33},
					{Label: "architecture", Pattern: regexp.MustCompile(`(?i)architecture:\s*(\d+)\s*%`), Default: 33},
				},
			},
		},
	},
	"food": {
		ID:          "food",
		Name:        "Food & Wine",
		Color:       "#C2255C",
		Icon:        "utensils",
		BuildPrompt: foodPrompt,
		MetricRules: []MetricRule{
			{
				Field:   "meal_budget",
				Pattern: regexp.MustCompile(`(?i)average meal:\s*([^\n]+)`),
				Kind:    ruleRange,
				Default: "€20-€40",
			},
			{
				Field:   "specialties",
				Pattern: regexp.MustCompile(`(?i)regional specialties:\s*([^\n]+)`),
				Kind:    ruleList,
				Default: []string{"local cheese", "regional wine"},
			},
		},
		DistributionRules: []DistributionRule{
			{
				Field: "dining_split",
				Parts: [3]DistributionPart{
					{Label: "street", Pattern: regexp.MustCompile(`(?i)street food:\s*(\d+)\s*%`), Default: 30},
					{Label: "casual", Pattern: regexp.MustCompile(`(?i)casual dining:\s*(\d+)\s*%`), Default: 50},
					{Label: "fine", Pattern: regexp.MustCompile(`(?i)fine dining:\s*(\d+)\s*%`), Default: 20},
				},
			},
		},
	},
	"hidden-gems": {
		ID:          "hidden-gems",
		Name:        "Hidden Gems",
		Color:       "#0B7285",
		Icon:        "gem",
		BuildPrompt: hiddenGemsPrompt,
		MetricRules: []MetricRule{
			{
				Field:   "crowd_level",
				Pattern: regexp.MustCompile(`(?i)crowd level:\s*(\w+)`),
				Kind:    ruleLevel,
				Levels:  []string{"empty", "quiet", "busy", "packed"},
				Default: "quiet",
			},
			{
				Field:   "authenticity",
				Pattern: regexp.MustCompile(`(?i)authenticity:\s*(\d+)`),
				Kind:    ruleInt,
				Default: 8,
			},
			{
				Field:   "local_tips",
				Pattern: regexp.MustCompile(`(?i)local tips:\s*([^\n]+)`),
				Kind:    ruleList,
				Default: []string{"visit on weekdays"},
			},
		},
	},
	"nature": {
		ID:          "nature",
		Name:        "Nature",
		Color:       "#2B8A3E",
		Icon:        "tree",
		BuildPrompt: naturePrompt,
		MetricRules: []MetricRule{
			{
				Field:   "scenery_rating",
				Pattern: regexp.MustCompile(`(?i)scenery rating:\s*(\d+)`),
				Kind:    ruleInt,
				Default: 8,
			},
			{
				Field:   "trail_level",
				Pattern: regexp.MustCompile(`(?i)trail level:\s*(\w+)`),
				Kind:    ruleLevel,
				Levels:  []string{"easy", "moderate", "hard"},
				Default: "moderate",
			},
			{
				Field:   "parks",
				Pattern: regexp.MustCompile(`(?i)notable parks:\s*([^\n]+)`),
				Kind:    ruleList,
				Default: []string{"regional nature park"},
			},
		},
	},
}

// ProfileByID resolves a configured source profile.
func ProfileByID(id string) (SourceProfile, bool) {
	p, ok := sourceProfiles[id]
	return p, ok
}

// AvailableSourceIDs lists the configured source ids, sorted for stable
// validation messages.
func AvailableSourceIDs() []string {
	ids := make([]string, 0, len(sourceProfiles))
	for id := range sourceProfiles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ResolveProfiles maps requested source ids onto profiles, failing on the
// first unknown id.
func ResolveProfiles(ids []string) ([]SourceProfile, error) {
	profiles := make([]SourceProfile, 0, len(ids))
	for _, id := range ids {
		p, ok := sourceProfiles[id]
		if !ok {
			return nil, fmt.Errorf("unknown source %q (available: %v)", id, AvailableSourceIDs())
		}
		profiles = append(profiles, p)
	}
	return profiles, nil
}
