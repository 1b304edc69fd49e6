// Package profile normalizes loosely-typed identity records from the
// document store into a canonical, fully-populated profile shape.
//
// The store imposes no schema: any field may be absent, null, or of an
// unexpected type. Normalization is total: malformed input degrades to
// an unset optional field, never to an error.
package profile

import "strconv"

// NotSynced is the display marker for a field that has not been
// synchronised into the store yet (or could not be coerced). It is a
// presentation concern only: core types carry explicit optionality and
// render this marker at the boundary.
const NotSynced = "NOT_SYNCED"

// OptString is an optional string field of a profile.
type OptString struct {
	Value string
	Set   bool
}

// String returns a set OptString.
func String(v string) OptString {
	return OptString{Value: v, Set: true}
}

// Display renders the field for presentation, substituting the
// NotSynced marker when unset.
func (o OptString) Display() string {
	if !o.Set {
		return NotSynced
	}
	return o.Value
}

// OptInt is an optional integer metric of a profile.
type OptInt struct {
	Value int64
	Set   bool
}

// Int returns a set OptInt.
func Int(v int64) OptInt {
	return OptInt{Value: v, Set: true}
}

// Display renders the metric for presentation, substituting the
// NotSynced marker when unset.
func (o OptInt) Display() string {
	if !o.Set {
		return NotSynced
	}
	return strconv.FormatInt(o.Value, 10)
}

// OrZero returns the value, treating unset as zero. Threshold filters
// use this so an unsynced metric only excludes a record when an
// explicit numeric floor is in force.
func (o OptInt) OrZero() int64 {
	if !o.Set {
		return 0
	}
	return o.Value
}

// ValidityKind classifies an email-validity signal.
type ValidityKind int

const (
	// ValidityNotSynced means no validity signal was present.
	ValidityNotSynced ValidityKind = iota
	ValidityValid
	ValidityInvalid
	ValidityUnknown
	// ValidityOther carries a vendor label outside the known vocabulary.
	ValidityOther
)

// Validity is an open classification: the three canonical outcomes, an
// absent state, and a pass-through for unrecognized vendor labels so a
// new validation provider's vocabulary is absorbed without a schema
// change.
type Validity struct {
	Kind  ValidityKind
	Label string // set only for ValidityOther; lowercased and trimmed
}

// Display renders the classification for presentation and filtering.
func (v Validity) Display() string {
	switch v.Kind {
	case ValidityValid:
		return "valid"
	case ValidityInvalid:
		return "invalid"
	case ValidityUnknown:
		return "unknown"
	case ValidityOther:
		return v.Label
	default:
		return NotSynced
	}
}

// Profile is the canonical view of one identity record. It is built
// fresh on every normalization call and is never mutated afterwards.
type Profile struct {
	Email        OptString
	ClientIDRaw  OptString
	ClientIDs    []string
	LastClientID OptString

	EngagementTime  OptString // clock-formatted engagement duration
	EngagedSessions OptInt
	Leads           OptInt
	Validity        Validity

	// Raw is the original store document, retained for audit/export.
	Raw map[string]any
}
