// Package segment selects a capped audience out of a document-store
// collection by streaming records through the normalizer and a set of
// validity/engagement predicates.
package segment

import (
	"context"
	"strings"

	"github.com/ignite/cdp-console/internal/profile"
	"github.com/ignite/cdp-console/internal/store"
)

// DefaultLimit caps a segment when the caller does not specify one.
// The cap bounds both store reads and response size.
const DefaultLimit = 25

// Row is the tabular projection of a normalized profile used for
// segment display and as the recipient source for outreach.
type Row struct {
	Email           string
	Validity        profile.Validity
	EngagedSessions profile.OptInt
	Leads           profile.OptInt
	EngagementTime  profile.OptString
}

// Criteria are the segment predicates. An empty Validities list means
// no filter on that axis; entries match the rendered validity label
// case-insensitively, so "NOT_SYNCED" selects records that carry no
// validity signal at all. Metrics that never synced compare as zero,
// so a record is only excluded by an explicit numeric floor, not by
// missing data alone.
type Criteria struct {
	Validities  []string
	MinSessions int64
	MinLeads    int64
	Limit       int
}

// Filter scans records in store order, normalizes each, and collects
// rows matching the criteria. It stops consuming the iterator the
// moment Limit rows are collected; the source is never drained past
// what the cap requires. A scan error aborts the filter and returns
// the rows collected so far alongside the error, so callers can
// distinguish a partial result from a clean zero-match scan.
func Filter(ctx context.Context, it store.Iterator, c Criteria) ([]Row, error) {
	limit := c.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	whitelist := make(map[string]struct{}, len(c.Validities))
	for _, v := range c.Validities {
		label := strings.ToLower(strings.TrimSpace(v))
		if label != "" {
			whitelist[label] = struct{}{}
		}
	}

	var rows []Row
	for len(rows) < limit {
		rec, ok, err := it.Next(ctx)
		if err != nil {
			return rows, err
		}
		if !ok {
			break
		}

		p := profile.Normalize(rec.Key, rec.Fields)
		if len(whitelist) > 0 {
			label := strings.ToLower(p.Validity.Display())
			if _, match := whitelist[label]; !match {
				continue
			}
		}
		if p.EngagedSessions.OrZero() < c.MinSessions {
			continue
		}
		if p.Leads.OrZero() < c.MinLeads {
			continue
		}
		rows = append(rows, project(p))
	}
	return rows, nil
}

func project(p profile.Profile) Row {
	return Row{
		Email:           p.Email.Display(),
		Validity:        p.Validity,
		EngagedSessions: p.EngagedSessions,
		Leads:           p.Leads,
		EngagementTime:  p.EngagementTime,
	}
}
