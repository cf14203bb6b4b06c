// Package bookregistry declares the pluggable metadata-store sink the
// pipeline reports completed books to. The store itself (a SQL
// database, typically) is an external collaborator out of scope for
// this engine; only its call shape lives here.
package bookregistry

// Entry is the metadata the pipeline has about a book once it has been
// chunked and indexed.
type Entry struct {
	BookID      string
	Title       string
	SegmentName string
	BaseDocID   uint32
	NumChunks   uint32
}

// Sink receives a completed Entry for persistence in whatever external
// metadata store the caller wires up. Implementations are expected to
// be idempotent under duplicate Record calls for the same BookID.
type Sink interface {
	Record(Entry) error
}

// NopSink discards every entry. Useful as the default when no external
// metadata store is configured.
type NopSink struct{}

// Record implements Sink by doing nothing.
func (NopSink) Record(Entry) error { return nil }
