// Package store provides key-based access to the identity document
// collections. Documents are schemaless JSON objects; readers get them
// back as loose field maps and normalize downstream.
package store

import "context"

// Record is one raw identity document and the key it lives under.
// Fields is nil when the stored value is not a JSON object; the
// normalizer treats that the same as an empty document.
type Record struct {
	Key    string
	Fields map[string]any
}

// Iterator is a lazy, finite cursor over a collection. It is not
// restartable: once consumed (or abandoned early) a new Scan is
// required. Callers must Close it on every path so early termination
// releases the underlying cursor.
type Iterator interface {
	// Next returns the next record. ok=false means the collection is
	// exhausted; a non-nil error means the scan failed mid-way and no
	// further records will be produced.
	Next(ctx context.Context) (rec Record, ok bool, err error)
	Close() error
}

// Store is the document-store surface the core depends on. Lookup
// misses are reported via found=false, never as an error; errors mean
// the store could not be queried at all.
//
// Merge upserts one document: fields land on top of whatever is
// already stored under the key, so a partial import never wipes fields
// a previous sync wrote. A stored value that is not a JSON object is
// replaced outright.
type Store interface {
	Get(ctx context.Context, collection, key string) (rec Record, found bool, err error)
	Scan(ctx context.Context, collection string) (Iterator, error)
	Merge(ctx context.Context, collection, key string, fields map[string]any) error
}
