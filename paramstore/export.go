package paramstore

import (
	"github.com/go-faster/jx"

	"github.com/oqtopus-team/calibration-engine/core"
)

// Export renders the whole table as a JSON array in insertion order, using
// a streaming encoder so large tables avoid intermediate maps.
func (s *Store) Export() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var e jx.Encoder
	e.ArrStart()
	for _, rec := range s.records {
		e.ObjStart()
		e.FieldStart("scope")
		e.Str(rec.Scope)
		e.FieldStart("name")
		e.Str(rec.Name)
		encodeValue(&e, rec.Value)
		e.FieldStart("validation")
		e.Str(rec.Validation.String())
		e.FieldStart("timestamp")
		e.Str(rec.Timestamp.String())
		e.FieldStart("exp_id")
		e.Str(rec.ExpID)
		e.FieldStart("group")
		e.Str(rec.Group)
		e.ObjEnd()
	}
	e.ArrEnd()
	return e.Bytes()
}

func encodeValue(e *jx.Encoder, v core.ParamValue) {
	switch v.Kind() {
	case core.FloatKind:
		f, _ := v.Float()
		e.FieldStart("value")
		e.Float64(f)
	case core.ComplexKind:
		c, _ := v.Complex()
		e.FieldStart("value")
		e.ObjStart()
		e.FieldStart("re")
		e.Float64(real(c))
		e.FieldStart("im")
		e.Float64(imag(c))
		e.ObjEnd()
	default:
		t, _ := v.Text()
		e.FieldStart("value")
		e.Str(t)
	}
}
