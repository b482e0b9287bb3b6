package paramstore

import (
	"time"

	"github.com/go-openapi/strfmt"

	"github.com/oqtopus-team/calibration-engine/core"
)

// Filter narrows a Query. Filters combine with AND.
type Filter func(*queryPlan)

type queryPlan struct {
	scope      *string
	group      *string
	name       *string
	validation *core.Validation
	since      *time.Time
}

func WithScope(scopeID string) Filter {
	return func(p *queryPlan) { p.scope = &scopeID }
}

func WithGroup(group string) Filter {
	return func(p *queryPlan) { p.group = &group }
}

func WithName(name string) Filter {
	return func(p *queryPlan) { p.name = &name }
}

func WithValidation(v core.Validation) Filter {
	return func(p *queryPlan) { p.validation = &v }
}

func Since(t strfmt.DateTime) Filter {
	tt := time.Time(t)
	return func(p *queryPlan) { p.since = &tt }
}

// Query returns the records matching all filters, in insertion order. The
// scope and group indices narrow the scan when present.
func (s *Store) Query(filters ...Filter) []Record {
	plan := &queryPlan{}
	for _, f := range filters {
		f(plan)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var indices []int
	switch {
	case plan.scope != nil:
		indices = s.byScope[*plan.scope]
	case plan.group != nil:
		indices = s.byGroup[*plan.group]
	default:
		indices = make([]int, len(s.records))
		for i := range s.records {
			indices[i] = i
		}
	}

	var out []Record
	for _, i := range indices {
		rec := s.records[i]
		if plan.scope != nil && rec.Scope != *plan.scope {
			continue
		}
		if plan.group != nil && rec.Group != *plan.group {
			continue
		}
		if plan.name != nil && rec.Name != *plan.name {
			continue
		}
		if plan.validation != nil && rec.Validation != *plan.validation {
			continue
		}
		if plan.since != nil && time.Time(rec.Timestamp).Before(*plan.since) {
			continue
		}
		out = append(out, rec)
	}
	return out
}
