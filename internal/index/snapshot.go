package index

import (
	"time"

	"github.com/Jaeyong-Cho/abstraction/internal/model"
)

// Snapshot is the immutable result of one complete index run: the registry,
// the resolved call graph, and the diagnostics collected along the way.
// A run builds a snapshot off to the side and publishes it atomically, so
// readers never observe a partially built graph.
type Snapshot struct {
	Registry    *Registry
	Graph       *Graph
	Workspace   string
	FileCount   int
	BuiltAt     time.Time
	Diagnostics []model.Diagnostic
}

// NewSnapshot resolves the graph for records extracted from fileCount files
// under workspace. extractionDiags are merged with the registry's own
// duplicate-identity diagnostics.
func NewSnapshot(workspace string, fileCount int, records []*model.FunctionRecord, extractionDiags []model.Diagnostic) *Snapshot {
	reg := BuildRegistry(records)
	diags := append(append([]model.Diagnostic{}, extractionDiags...), reg.Diagnostics()...)
	return &Snapshot{
		Registry:    reg,
		Graph:       Resolve(reg),
		Workspace:   workspace,
		FileCount:   fileCount,
		BuiltAt:     time.Now(),
		Diagnostics: diags,
	}
}
