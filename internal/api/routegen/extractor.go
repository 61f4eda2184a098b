package routegen

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/tripforge/tripforge/internal/types"
)

// Metric extraction is best-effort structured data mining over the model's
// free text. Every source declares a rule table (pattern -> field -> default)
// so the rules stay testable and source-agnostic; a rule that does not match,
// or whose capture fails to parse as the declared kind, falls back to its
// default. No I/O, fully deterministic.

type ruleKind int

const (
	ruleInt ruleKind = iota
	ruleLevel
	ruleRange
	ruleList
)

// MetricRule extracts one metric field from response text. Pattern must have
// a single capture group.
type MetricRule struct {
	Field   string
	Pattern *regexp.Regexp
	Kind    ruleKind
	Default any
	// Levels enumerates the accepted values for ruleLevel, lowercase.
	Levels []string
}

// DistributionPart is one leg of a 100%-summing split.
type DistributionPart struct {
	Label   string
	Pattern *regexp.Regexp
	Default int
}

// DistributionRule extracts a three-way percentage split (e.g. art/history/
// architecture). Each part matches independently with its own default and
// the raw values are rescaled proportionally to sum to 100.
type DistributionRule struct {
	Field string
	Parts [3]DistributionPart
}

var rangeRe = regexp.MustCompile(`^\s*[€$£]?\d+\s*[-–]\s*[€$£]?\d+\s*$`)

// ExtractMetrics applies a source's rule tables to sanitized response text
// and returns the flat metrics object.
func ExtractMetrics(text string, rules []MetricRule, dists []DistributionRule) types.TripMetrics {
	metrics := make(types.TripMetrics, len(rules)+len(dists))

	for _, r := range rules {
		metrics[r.Field] = r.extract(text)
	}
	for _, d := range dists {
		metrics[d.Field] = d.extract(text)
	}
	return metrics
}

func (r MetricRule) extract(text string) any {
	m := r.Pattern.FindStringSubmatch(text)
	if len(m) < 2 {
		return r.Default
	}
	captured := strings.TrimSpace(m[1])

	switch r.Kind {
	case ruleInt:
		v, err := strconv.Atoi(captured)
		if err != nil {
			return r.Default
		}
		return v
	case ruleLevel:
		lowered := strings.ToLower(captured)
		for _, lvl := range r.Levels {
			if lowered == lvl {
				return lvl
			}
		}
		return r.Default
	case ruleRange:
		if !rangeRe.MatchString(captured) {
			return r.Default
		}
		return captured
	case ruleList:
		items := splitList(captured)
		if len(items) == 0 {
			return r.Default
		}
		return items
	}
	return r.Default
}

func (d DistributionRule) extract(text string) map[string]int {
	var raw [3]int
	for i, part := range d.Parts {
		raw[i] = part.Default
		if m := part.Pattern.FindStringSubmatch(text); len(m) >= 2 {
			if v, err := strconv.Atoi(strings.TrimSpace(m[1])); err == nil && v >= 0 {
				raw[i] = v
			}
		}
	}
	normalized := normalizeDistribution(raw)

	out := make(map[string]int, 3)
	for i, part := range d.Parts {
		out[part.Label] = normalized[i]
	}
	return out
}

// normalizeDistribution rescales three raw values so they sum to 100.
// Rounding to nearest integer means the rescaled sum may drift by ±1; that
// drift is accepted rather than fudged into one of the parts.
func normalizeDistribution(raw [3]int) [3]int {
	total := raw[0] + raw[1] + raw[2]
	if total <= 0 {
		// Nothing matched and defaults were zero: split evenly.
		return [3]int{34, 33, 33}
	}
	var out [3]int
	for i, v := range raw {
		out[i] = int(math.Round(float64(v) * 100 / float64(total)))
	}
	return out
}

// splitList splits a comma-separated capture into trimmed, non-empty items.
func splitList(s string) []string {
	parts := strings.Split(s, ",")
	items := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
