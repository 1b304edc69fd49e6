package segment

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/ignite/cdp-console/internal/store"
)

// fakeIterator feeds a fixed record list and enforces a consumption
// budget: reading past maxReads fails the test, which is how the
// early-stop guarantee is verified.
type fakeIterator struct {
	t        *testing.T
	records  []store.Record
	pos      int
	maxReads int
	failAt   int // 1-based read index that returns an error; 0 = never
	closed   bool
}

func (it *fakeIterator) Next(ctx context.Context) (store.Record, bool, error) {
	it.pos++
	if it.maxReads > 0 && it.pos > it.maxReads {
		it.t.Fatalf("iterator over-consumed: read %d, budget %d", it.pos, it.maxReads)
	}
	if it.failAt > 0 && it.pos == it.failAt {
		return store.Record{}, false, errors.New("connection reset")
	}
	if it.pos > len(it.records) {
		return store.Record{}, false, nil
	}
	return it.records[it.pos-1], true, nil
}

func (it *fakeIterator) Close() error {
	it.closed = true
	return nil
}

func validRecord(i int) store.Record {
	return store.Record{
		Key: fmt.Sprintf("user%d@example.com", i),
		Fields: map[string]any{
			"email_valid":      "valid",
			"engaged_sessions": 10,
			"leads":            5,
		},
	}
}

func TestFilterCapsAndShortCircuits(t *testing.T) {
	records := make([]store.Record, 20)
	for i := range records {
		records[i] = validRecord(i)
	}
	// Collecting 3 rows must read exactly 3 records and no more.
	it := &fakeIterator{t: t, records: records, maxReads: 3}

	rows, err := Filter(context.Background(), it, Criteria{Limit: 3})
	if err != nil {
		t.Fatalf("Filter returned error: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}
	if rows[0].Email != "user0@example.com" {
		t.Errorf("rows out of store order: first = %s", rows[0].Email)
	}
}

func TestFilterDefaultLimit(t *testing.T) {
	records := make([]store.Record, DefaultLimit+10)
	for i := range records {
		records[i] = validRecord(i)
	}
	it := &fakeIterator{t: t, records: records, maxReads: DefaultLimit}

	rows, err := Filter(context.Background(), it, Criteria{})
	if err != nil {
		t.Fatalf("Filter returned error: %v", err)
	}
	if len(rows) != DefaultLimit {
		t.Errorf("got %d rows, want default limit %d", len(rows), DefaultLimit)
	}
}

func TestFilterValidityWhitelist(t *testing.T) {
	records := []store.Record{
		{Key: "a@x.com", Fields: map[string]any{"email_valid": "valid"}},
		{Key: "b@x.com", Fields: map[string]any{"email_valid": "bounced"}},
		{Key: "c@x.com", Fields: map[string]any{"email_valid": "weird-status"}},
		{Key: "d@x.com", Fields: map[string]any{}},
	}

	tests := []struct {
		name       string
		validities []string
		want       []string
	}{
		{"empty whitelist matches everything", nil, []string{"a@x.com", "b@x.com", "c@x.com", "d@x.com"}},
		{"valid only", []string{"valid"}, []string{"a@x.com"}},
		{"whitelist input is canonicalized", []string{" VALID "}, []string{"a@x.com"}},
		{"vendor label matches pass-through", []string{"weird-status"}, []string{"c@x.com"}},
		{"multiple labels", []string{"valid", "invalid"}, []string{"a@x.com", "b@x.com"}},
		{"sentinel label selects unsynced records", []string{"NOT_SYNCED"}, []string{"d@x.com"}},
		{"sentinel label is case-insensitive", []string{"not_synced"}, []string{"d@x.com"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			it := &fakeIterator{t: t, records: records}
			rows, err := Filter(context.Background(), it, Criteria{Validities: tt.validities, Limit: 10})
			if err != nil {
				t.Fatalf("Filter returned error: %v", err)
			}
			var got []string
			for _, row := range rows {
				got = append(got, row.Email)
			}
			if fmt.Sprint(got) != fmt.Sprint(tt.want) {
				t.Errorf("emails = %v, want %v", got, tt.want)
			}
		})
	}
}

// Records whose metrics never synced compare as zero: they pass a zero
// floor and fail any positive one.
func TestFilterThresholdsTreatUnsetAsZero(t *testing.T) {
	records := []store.Record{
		{Key: "synced@x.com", Fields: map[string]any{"engaged_sessions": 9, "leads": 2}},
		{Key: "unsynced@x.com", Fields: map[string]any{}},
		{Key: "garbage@x.com", Fields: map[string]any{"engaged_sessions": "lots"}},
	}

	it := &fakeIterator{t: t, records: records}
	rows, err := Filter(context.Background(), it, Criteria{Limit: 10})
	if err != nil {
		t.Fatalf("Filter returned error: %v", err)
	}
	if len(rows) != 3 {
		t.Errorf("zero floor should admit unsynced metrics, got %d rows", len(rows))
	}

	it = &fakeIterator{t: t, records: records}
	rows, err = Filter(context.Background(), it, Criteria{MinSessions: 1, Limit: 10})
	if err != nil {
		t.Fatalf("Filter returned error: %v", err)
	}
	if len(rows) != 1 || rows[0].Email != "synced@x.com" {
		t.Errorf("positive floor should exclude unsynced metrics, got %v", rows)
	}
}

func TestFilterPartialResultsOnScanError(t *testing.T) {
	records := []store.Record{validRecord(0), validRecord(1), validRecord(2)}
	it := &fakeIterator{t: t, records: records, failAt: 3}

	rows, err := Filter(context.Background(), it, Criteria{Limit: 10})
	if err == nil {
		t.Fatal("expected scan error to surface")
	}
	if len(rows) != 2 {
		t.Errorf("got %d rows before the failure, want 2", len(rows))
	}
}

func TestFilterProjectsRow(t *testing.T) {
	it := &fakeIterator{t: t, records: []store.Record{{
		Key: "u@x.com",
		Fields: map[string]any{
			"email_valid":          "Bounced",
			"engaged_sessions":     7,
			"leads":                1,
			"engagement_time_msec": 65000,
		},
	}}}

	rows, err := Filter(context.Background(), it, Criteria{Limit: 1})
	if err != nil {
		t.Fatalf("Filter returned error: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows", len(rows))
	}
	row := rows[0]
	if row.Email != "u@x.com" || row.Validity.Display() != "invalid" ||
		row.EngagedSessions.Value != 7 || row.Leads.Value != 1 ||
		row.EngagementTime.Value != "0:01:05" {
		t.Errorf("unexpected projection: %+v", row)
	}
}
