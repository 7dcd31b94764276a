package model

// ResolutionKind describes how a call site was bound to its callee.
type ResolutionKind string

const (
	// ResolutionResolved means exactly one candidate matched, either in the
	// caller's own file or uniquely across the project.
	ResolutionResolved ResolutionKind = "resolved"
	// ResolutionExternal means no indexed function matched; the edge points
	// at a synthetic identity under ExternalPath.
	ResolutionExternal ResolutionKind = "external"
	// ResolutionAmbiguous means several candidates matched and the edge
	// points at the first by deterministic sort order. The ambiguity is
	// surfaced, not hidden.
	ResolutionAmbiguous ResolutionKind = "ambiguous"
)

// CallEdge is a directed caller→callee relationship. Edges are derived data,
// rebuilt in full on every index run. The edge set is deduplicated per
// (caller, callee) pair; Count carries call-site multiplicity for statistics
// and plays no part in edge identity.
type CallEdge struct {
	Caller Identity
	Callee Identity
	Kind   ResolutionKind
	Count  int
}
