package model

import "time"

// AbstractionLevel places a function on the entry→system axis.
type AbstractionLevel string

const (
	LevelEntry  AbstractionLevel = "entry"
	LevelHigh   AbstractionLevel = "high"
	LevelMedium AbstractionLevel = "medium"
	LevelLow    AbstractionLevel = "low"
	LevelSystem AbstractionLevel = "system"
)

// ValidLevel reports whether l is one of the five defined levels.
func ValidLevel(l AbstractionLevel) bool {
	switch l {
	case LevelEntry, LevelHigh, LevelMedium, LevelLow, LevelSystem:
		return true
	}
	return false
}

// Contract is a human-authored behavioral expectation recorded against a
// function identity. Contracts are written only through explicit user action
// and always as full replacements; staleness is derived at read time, never
// stored, so the original text is never silently discarded.
type Contract struct {
	Identity            Identity
	ExpectedBehavior    string
	Preconditions       []string
	Postconditions      []string
	Level               AbstractionLevel
	RecordedFingerprint string // body fingerprint at the moment of saving
	RecordedAt          time.Time
}

// Classification is the derived validity state of a contract relative to the
// current snapshot.
type Classification string

const (
	// ClassNoContract: no contract exists for the identity.
	ClassNoContract Classification = "no_contract"
	// ClassFresh: contract exists and the recorded fingerprint matches the
	// function's current body.
	ClassFresh Classification = "fresh"
	// ClassStale: contract exists but the body changed since recording.
	ClassStale Classification = "stale"
	// ClassOrphaned: contract exists but its identity is absent from the
	// current registry (function deleted or renamed).
	ClassOrphaned Classification = "orphaned"
)

// Classify derives a contract's validity against the function currently
// registered under its identity. record is nil when the identity is absent
// from the snapshot; contract is nil when none was saved. Orphaned wins over
// any fingerprint state. Pure function: no caching, no side effects.
func Classify(record *FunctionRecord, contract *Contract) Classification {
	if contract == nil {
		return ClassNoContract
	}
	if record == nil {
		return ClassOrphaned
	}
	if contract.RecordedFingerprint == record.Fingerprint() {
		return ClassFresh
	}
	return ClassStale
}
