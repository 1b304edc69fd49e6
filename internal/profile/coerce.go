package profile

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// CoerceInt attempts integer coercion of an arbitrary store value.
// Numeric types and digit strings succeed; anything else (nil, bool,
// free text, nested structures) reports ok=false. Floats truncate
// toward zero, matching plain int() coercion of the source feeds.
func CoerceInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case float32:
		return int64(n), true
	case float64:
		return int64(n), true
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		if f, err := n.Float64(); err == nil {
			return int64(f), true
		}
		return 0, false
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		if err != nil {
			return 0, false
		}
		return i, true
	default:
		return 0, false
	}
}

// FormatDurationMs coerces a millisecond count and renders it as a
// clock string: "H:MM:SS", with a day component once the duration
// reaches 24h ("1 day, 2:03:04") and a microsecond suffix when the
// count is not a whole number of seconds. ok=false when the value does
// not coerce to an integer.
func FormatDurationMs(v any) (string, bool) {
	ms, ok := CoerceInt(v)
	if !ok {
		return "", false
	}
	return formatClockMs(ms), true
}

func formatClockMs(ms int64) string {
	micros := ms * 1000
	days := floorDiv(micros, 86400_000_000)
	rem := micros - days*86400_000_000

	hours := rem / 3600_000_000
	rem -= hours * 3600_000_000
	mins := rem / 60_000_000
	rem -= mins * 60_000_000
	secs := rem / 1_000_000
	rem -= secs * 1_000_000

	clock := fmt.Sprintf("%d:%02d:%02d", hours, mins, secs)
	if rem != 0 {
		clock += fmt.Sprintf(".%06d", rem)
	}
	if days == 0 {
		return clock
	}
	unit := "days"
	if days == 1 || days == -1 {
		unit = "day"
	}
	return fmt.Sprintf("%d %s, %s", days, unit, clock)
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

// Vendor vocabularies for email-validity signals. Deliberately
// permissive: each set absorbs the labels seen across validation
// providers so a feed switch does not require a schema change.
var (
	validLabels = map[string]struct{}{
		"valid": {}, "true": {}, "yes": {}, "1": {},
		"ok": {}, "deliverable": {}, "clean": {}, "good": {},
	}
	invalidLabels = map[string]struct{}{
		"invalid": {}, "false": {}, "no": {}, "0": {},
		"undeliverable": {}, "bounced": {}, "bad": {},
	}
	unknownLabels = map[string]struct{}{
		"unknown": {}, "unchecked": {}, "n/a": {}, "na": {},
		"null": {}, "none": {},
	}
)

// ClassifyValidity maps a boolean or string validity signal onto the
// canonical classification. Labels outside the known vocabulary pass
// through verbatim (lowercased, trimmed) as ValidityOther; nil and
// empty input classify as not synced.
func ClassifyValidity(v any) Validity {
	switch b := v.(type) {
	case nil:
		return Validity{Kind: ValidityNotSynced}
	case bool:
		if b {
			return Validity{Kind: ValidityValid}
		}
		return Validity{Kind: ValidityInvalid}
	}

	label := strings.ToLower(strings.TrimSpace(fmt.Sprint(v)))
	if label == "" {
		return Validity{Kind: ValidityNotSynced}
	}
	if _, ok := validLabels[label]; ok {
		return Validity{Kind: ValidityValid}
	}
	if _, ok := invalidLabels[label]; ok {
		return Validity{Kind: ValidityInvalid}
	}
	if _, ok := unknownLabels[label]; ok {
		return Validity{Kind: ValidityUnknown}
	}
	return Validity{Kind: ValidityOther, Label: label}
}
