package profile

import "strings"

// Raw document field names as written by the warehouse export job.
const (
	fieldEmail         = "email"
	fieldClientID      = "client_id"
	fieldLastClientID  = "last_client_id"
	fieldEngagementMs  = "engagement_time_msec"
	fieldEngagedSess   = "engaged_sessions"
	fieldLeads         = "leads"
	fieldEmailValidity = "email_valid"
)

// Normalize maps one raw store document (plus the identity key it was
// fetched under) into a canonical Profile. It never fails: a missing or
// malformed field degrades to its unset state independently of every
// other field. The raw map is retained but not copied; callers treat
// store documents as read-only.
func Normalize(key string, raw map[string]any) Profile {
	p := Profile{Raw: raw}

	p.Email = stringField(raw, fieldEmail)
	if !p.Email.Set && strings.TrimSpace(key) != "" {
		p.Email = String(key)
	}

	p.ClientIDRaw = stringField(raw, fieldClientID)
	p.ClientIDs = splitClientIDs(p.ClientIDRaw)
	p.LastClientID = stringField(raw, fieldLastClientID)

	if clock, ok := FormatDurationMs(raw[fieldEngagementMs]); ok {
		p.EngagementTime = String(clock)
	}
	if n, ok := CoerceInt(raw[fieldEngagedSess]); ok {
		p.EngagedSessions = Int(n)
	}
	if n, ok := CoerceInt(raw[fieldLeads]); ok {
		p.Leads = Int(n)
	}
	p.Validity = ClassifyValidity(raw[fieldEmailValidity])

	return p
}

// stringField reads a field as a non-blank string. Non-string and
// whitespace-only values count as absent.
func stringField(raw map[string]any, name string) OptString {
	s, ok := raw[name].(string)
	if !ok || strings.TrimSpace(s) == "" {
		return OptString{}
	}
	return String(s)
}

// splitClientIDs parses the comma-joined client_id field into a
// trimmed, duplicate-free list. First occurrence wins and order is
// preserved, so the earliest-seen device stays first.
func splitClientIDs(raw OptString) []string {
	if !raw.Set {
		return nil
	}
	var ids []string
	seen := make(map[string]struct{})
	for _, part := range strings.Split(raw.Value, ",") {
		id := strings.TrimSpace(part)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}
