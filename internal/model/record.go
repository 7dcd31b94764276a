package model

import "sync"

// FunctionRecord is one function extracted from a source file. Records are
// immutable once created; a re-index produces fresh records that supersede
// prior ones under the same identity.
type FunctionRecord struct {
	Path          string
	QualifiedName string
	Language      string
	StartLine     int // 1-based, inclusive
	EndLine       int // 1-based, inclusive
	RawBody       string
	// Callees holds bare identifier names found in call position inside the
	// body, in source order. Duplicates are kept: call multiplicity feeds
	// statistics even though edge topology deduplicates.
	Callees []string

	fpOnce      sync.Once
	fingerprint string
}

// Identity returns the record's (path, qualified name) pair.
func (r *FunctionRecord) Identity() Identity {
	return Identity{Path: r.Path, QualifiedName: r.QualifiedName}
}

// Name returns the bare function name.
func (r *FunctionRecord) Name() string {
	return r.Identity().Name()
}

// Fingerprint returns the digest of the whitespace-normalized body. The
// value is computed on first use and cached; records are never mutated after
// extraction so the cache cannot go stale. Safe for concurrent use: queries
// may touch the same record from several goroutines.
func (r *FunctionRecord) Fingerprint() string {
	r.fpOnce.Do(func() {
		r.fingerprint = ComputeFingerprint(r.RawBody)
	})
	return r.fingerprint
}
