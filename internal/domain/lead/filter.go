package lead

import (
	"fmt"
	"sort"
	"strings"
)

// Criteria narrows a batch of leads. Empty text fields impose no constraint.
type Criteria struct {
	Industry string
	Role     string
	Location string
	// MinScore applies only to Scored batches.
	MinScore float64
}

// SortOrder controls ordering of a scored batch.
type SortOrder string

// Supported sort orders.
const (
	SortNone SortOrder = "none"
	SortDesc SortOrder = "desc"
	SortAsc  SortOrder = "asc"
)

// ParseSortOrder validates s. The empty string means SortNone.
func ParseSortOrder(s string) (SortOrder, error) {
	switch SortOrder(strings.ToLower(strings.TrimSpace(s))) {
	case "", SortNone:
		return SortNone, nil
	case SortDesc:
		return SortDesc, nil
	case SortAsc:
		return SortAsc, nil
	default:
		return "", fmt.Errorf("unknown sort order %q", s)
	}
}

// matcher holds the lowered needles so each row is compared without
// re-lowering the criteria.
type matcher struct {
	industry, role, location string
}

func newMatcher(c Criteria) matcher {
	return matcher{
		industry: strings.ToLower(c.Industry),
		role:     strings.ToLower(c.Role),
		location: strings.ToLower(c.Location),
	}
}

func (m matcher) match(l *Lead) bool {
	return containsFold(l.Industry, m.industry) &&
		containsFold(l.Role, m.role) &&
		containsFold(l.Location, m.location)
}

// containsFold reports whether value contains needle, ignoring case.
// An empty needle always matches; a missing value never matches a needle.
func containsFold(value, needle string) bool {
	if needle == "" {
		return true
	}
	if value == "" {
		return false
	}
	return strings.Contains(strings.ToLower(value), needle)
}

// Filter returns the leads matching the textual criteria, in their original
// order. MinScore is not applied because the batch carries no score.
func (u Unscored) Filter(c Criteria) Unscored {
	m := newMatcher(c)
	out := make(Unscored, 0, len(u))
	for i := range u {
		if m.match(&u[i]) {
			out = append(out, u[i].clone())
		}
	}
	return out
}

// Filter returns the leads matching the textual criteria whose
// PredictedScore is at least c.MinScore, in their original order.
func (s Scored) Filter(c Criteria) Scored {
	m := newMatcher(c)
	out := make(Scored, 0, len(s))
	for i := range s {
		if s[i].PredictedScore < c.MinScore || !m.match(&s[i].Lead) {
			continue
		}
		sl := s[i]
		sl.Lead = sl.Lead.clone()
		out = append(out, sl)
	}
	return out
}

// SortByScore returns a copy of s ordered by PredictedScore. Ties keep
// their relative order.
func (s Scored) SortByScore(order SortOrder) Scored {
	out := make(Scored, len(s))
	copy(out, s)
	switch order {
	case SortDesc:
		sort.SliceStable(out, func(i, j int) bool { return out[i].PredictedScore > out[j].PredictedScore })
	case SortAsc:
		sort.SliceStable(out, func(i, j int) bool { return out[i].PredictedScore < out[j].PredictedScore })
	}
	return out
}
