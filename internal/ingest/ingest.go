// Package ingest loads identity documents into the store from a
// newline-delimited JSON stream, the format the export job produces.
// Each line is one document; the key is taken from a configured field
// of the document itself. Writes are merges, so re-importing a feed
// overlays fields without wiping what earlier syncs wrote.
package ingest

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/ignite/cdp-console/internal/pkg/logger"
	"github.com/ignite/cdp-console/internal/store"
)

// maxLineBytes bounds a single document line. Export rows are small;
// anything past this is a malformed feed, not data.
const maxLineBytes = 1 << 20

// Failure records one line the import could not load.
type Failure struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

// Report is the outcome of one import run.
type Report struct {
	Imported int       `json:"imported"`
	Failures []Failure `json:"failures"`
}

// Importer writes documents from a feed into one collection.
type Importer struct {
	store      store.Store
	collection string
	keyField   string
}

// NewImporter wires an importer for the given collection. keyField
// names the document field that becomes the store key.
func NewImporter(st store.Store, collection, keyField string) *Importer {
	return &Importer{store: st, collection: collection, keyField: keyField}
}

// Run streams JSON lines from r into the store. Blank lines are
// skipped. A line that cannot be parsed, lacks the key field, or fails
// to write is recorded as a failure and the run continues; only a
// broken stream aborts, returning the report accumulated so far
// alongside the error.
func (im *Importer) Run(ctx context.Context, r io.Reader) (*Report, error) {
	report := &Report{}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	line := 0
	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}

		var fields map[string]any
		if err := json.Unmarshal([]byte(raw), &fields); err != nil {
			report.fail(line, "not a JSON object")
			continue
		}
		key, ok := im.documentKey(fields)
		if !ok {
			report.fail(line, fmt.Sprintf("missing key field %q", im.keyField))
			continue
		}

		if err := im.store.Merge(ctx, im.collection, key, fields); err != nil {
			logger.Error("import write failed",
				"collection", im.collection,
				"key", logger.RedactEmail(key),
				"error", err.Error())
			report.fail(line, "store write failed")
			continue
		}
		report.Imported++
	}
	if err := scanner.Err(); err != nil {
		return report, fmt.Errorf("ingest: read feed: %w", err)
	}

	logger.Info("import complete",
		"collection", im.collection,
		"imported", report.Imported,
		"failed", len(report.Failures))
	return report, nil
}

// documentKey extracts and sanitizes the store key. Slashes are
// stripped because the original store treated them as path separators;
// keys stay comparable across both backends by keeping the rule.
func (im *Importer) documentKey(fields map[string]any) (string, bool) {
	v, ok := fields[im.keyField].(string)
	if !ok {
		return "", false
	}
	key := strings.ReplaceAll(strings.TrimSpace(v), "/", "")
	if key == "" {
		return "", false
	}
	return key, true
}

func (r *Report) fail(line int, reason string) {
	r.Failures = append(r.Failures, Failure{Line: line, Reason: reason})
}
