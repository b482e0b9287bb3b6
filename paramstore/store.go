package paramstore

import (
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/go-openapi/strfmt"
	"go.uber.org/zap"

	"github.com/oqtopus-team/calibration-engine/core"
	"github.com/oqtopus-team/calibration-engine/scope"
)

const (
	DefaultGroup = "default"

	// KeyDuration values are truncated to whole samples on read.
	KeyDuration = "duration"
)

// Record is one immutable calibration entry. Records are never overwritten;
// a new measurement of the same parameter appends a fresh record and lookups
// pick the effective one by timestamp.
type Record struct {
	Scope      string          `json:"scope"`
	Name       string          `json:"name"`
	Value      core.ParamValue `json:"-"`
	Validation core.Validation `json:"-"`
	Timestamp  strfmt.DateTime `json:"timestamp"`
	ExpID      string          `json:"exp_id"`
	Group      string          `json:"group"`
}

type key struct {
	scope string
	name  string
	group string
}

// Store is the append-only parameter table with secondary indices on scope id
// and calibration group.
type Store struct {
	mu      sync.RWMutex
	records []Record
	byKey   map[key][]int
	byScope map[string][]int
	byGroup map[string][]int
}

func NewStore() *Store {
	return &Store{
		byKey:   make(map[key][]int),
		byScope: make(map[string][]int),
		byGroup: make(map[string][]int),
	}
}

// Set appends a record and returns its index. A zero timestamp is stamped
// with the current time and an empty group falls back to DefaultGroup.
func (s *Store) Set(rec Record) (int, error) {
	if rec.Scope == "" {
		return 0, fmt.Errorf("record of parameter %s has no scope", rec.Name)
	}
	if rec.Name == "" {
		return 0, fmt.Errorf("record in scope %s has no parameter name", rec.Scope)
	}
	if rec.Group == "" {
		rec.Group = DefaultGroup
	}
	if time.Time(rec.Timestamp).IsZero() {
		rec.Timestamp = strfmt.DateTime(time.Now())
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	index := len(s.records)
	s.records = append(s.records, rec)
	k := key{scope: rec.Scope, name: rec.Name, group: rec.Group}
	s.byKey[k] = append(s.byKey[k], index)
	s.byScope[rec.Scope] = append(s.byScope[rec.Scope], index)
	s.byGroup[rec.Group] = append(s.byGroup[rec.Group], index)
	zap.L().Debug(fmt.Sprintf("set parameter %s in scope %s at index %d", rec.Name, rec.Scope, index))
	return index, nil
}

// Get returns the effective value of a parameter in the default calibration
// group.
func (s *Store) Get(scopeID, name string) (core.ParamValue, error) {
	return s.GetInGroup(scopeID, name, DefaultGroup)
}

// GetInGroup returns the effective value of a parameter in a scope and
// calibration group: the latest non-FAIL record, falling back once to the
// global scope when the scope has no usable record at all. Records of other
// groups never shadow the requested one.
func (s *Store) GetInGroup(scopeID, name, group string) (core.ParamValue, error) {
	if group == "" {
		group = DefaultGroup
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if rec, ok := s.effective(scopeID, name, group); ok {
		return coerce(name, rec.Value), nil
	}
	if scopeID != scope.GlobalScope {
		if rec, ok := s.effective(scope.GlobalScope, name, group); ok {
			return coerce(name, rec.Value), nil
		}
	}
	return core.ParamValue{}, core.NewScopeError(
		fmt.Sprintf("parameter %s is not calibrated in scope %s", name, scopeID))
}

// GetRecord returns the record behind an index.
func (s *Store) GetRecord(index int) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if index < 0 || index >= len(s.records) {
		return Record{}, core.NewIndexRangeError(
			fmt.Sprintf("record index %d is out of range (table size %d)", index, len(s.records)))
	}
	return s.records[index], nil
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// MarkValidation sets the validation status of an existing record. Only PASS
// and FAIL are acceptable; records start in NONE and never return to it.
func (s *Store) MarkValidation(index int, status core.Validation) error {
	if status != core.PASS && status != core.FAIL {
		return core.NewInvalidStatusError(
			fmt.Sprintf("validation status %s cannot be assigned", status))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.records) {
		return core.NewIndexRangeError(
			fmt.Sprintf("record index %d is out of range (table size %d)", index, len(s.records)))
	}
	s.records[index].Validation = status
	return nil
}

// effective picks the latest non-FAIL record of (scope, name, group). Ties
// on timestamp break toward the later insertion.
func (s *Store) effective(scopeID, name, group string) (Record, bool) {
	indices := s.byKey[key{scope: scopeID, name: name, group: group}]
	best := -1
	for _, i := range indices {
		if s.records[i].Validation == core.FAIL {
			continue
		}
		if best < 0 || !time.Time(s.records[i].Timestamp).Before(time.Time(s.records[best].Timestamp)) {
			best = i
		}
	}
	if best < 0 {
		return Record{}, false
	}
	return s.records[best], true
}

func coerce(name string, v core.ParamValue) core.ParamValue {
	if name != KeyDuration && !strings.HasSuffix(name, "."+KeyDuration) {
		return v
	}
	f, err := v.Float()
	if err != nil {
		return v
	}
	return core.FloatValue(math.Trunc(f))
}
