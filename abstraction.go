package abstraction

import (
	"github.com/Jaeyong-Cho/abstraction/internal/index"
	"github.com/Jaeyong-Cho/abstraction/internal/model"
	"github.com/Jaeyong-Cho/abstraction/internal/store"
)

// Public type aliases for internal types used in the Engine and QueryBuilder
// APIs. These are Go type aliases (=) — identical to the internal types at
// compile time. External consumers use these names; no conversion is needed.

type Store = store.Store
type Identity = model.Identity
type FunctionRecord = model.FunctionRecord
type CallEdge = model.CallEdge
type Contract = model.Contract
type Classification = model.Classification
type AbstractionLevel = model.AbstractionLevel
type Diagnostic = model.Diagnostic
type Snapshot = index.Snapshot
type TreeNode = index.TreeNode
type EgoGraph = index.EgoGraph

// Re-exported constants so callers don't import internal packages.

const (
	ClassNoContract = model.ClassNoContract
	ClassFresh      = model.ClassFresh
	ClassStale      = model.ClassStale
	ClassOrphaned   = model.ClassOrphaned

	LevelEntry  = model.LevelEntry
	LevelHigh   = model.LevelHigh
	LevelMedium = model.LevelMedium
	LevelLow    = model.LevelLow
	LevelSystem = model.LevelSystem

	ResolutionResolved  = model.ResolutionResolved
	ResolutionExternal  = model.ResolutionExternal
	ResolutionAmbiguous = model.ResolutionAmbiguous
)

// ParseToken decodes an identity token produced by Identity.Token.
func ParseToken(token string) (Identity, error) {
	return model.ParseToken(token)
}

// ValidLevel reports whether l is one of the five defined abstraction levels.
func ValidLevel(l AbstractionLevel) bool {
	return model.ValidLevel(l)
}
