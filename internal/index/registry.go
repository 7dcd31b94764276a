package index

import (
	"fmt"
	"sort"

	"github.com/Jaeyong-Cho/abstraction/internal/model"
)

// Registry is the addressable set of functions produced by one index run.
// It is immutable after Build: readers share it freely.
type Registry struct {
	records    []*model.FunctionRecord
	byIdentity map[model.Identity]*model.FunctionRecord
	// byName maps bare names to candidate records, sorted by (path, start
	// line) so ambiguity tie-breaks are deterministic.
	byName      map[string][]*model.FunctionRecord
	diagnostics []model.Diagnostic
}

// BuildRegistry aggregates extractor output into a registry. Identity
// collisions keep the first record and surface a duplicate_identity
// diagnostic instead of failing the run.
func BuildRegistry(records []*model.FunctionRecord) *Registry {
	r := &Registry{
		byIdentity: make(map[model.Identity]*model.FunctionRecord, len(records)),
		byName:     make(map[string][]*model.FunctionRecord),
	}
	for _, rec := range records {
		id := rec.Identity()
		if _, exists := r.byIdentity[id]; exists {
			r.diagnostics = append(r.diagnostics, model.Diagnostic{
				Kind:   model.DiagDuplicateIdentity,
				Path:   rec.Path,
				Detail: fmt.Sprintf("duplicate function %s, keeping first definition", id.QualifiedName),
			})
			continue
		}
		r.byIdentity[id] = rec
		r.records = append(r.records, rec)
		r.byName[rec.Name()] = append(r.byName[rec.Name()], rec)
	}
	for _, candidates := range r.byName {
		sort.Slice(candidates, func(i, j int) bool {
			if candidates[i].Path != candidates[j].Path {
				return candidates[i].Path < candidates[j].Path
			}
			return candidates[i].StartLine < candidates[j].StartLine
		})
	}
	return r
}

// Lookup returns the record registered under id, or nil.
func (r *Registry) Lookup(id model.Identity) *model.FunctionRecord {
	return r.byIdentity[id]
}

// ByName returns all records whose bare name matches, in deterministic
// (path, line) order. Used as the call-site resolution fallback.
func (r *Registry) ByName(name string) []*model.FunctionRecord {
	return r.byName[name]
}

// Records returns all registered records in first-seen order.
func (r *Registry) Records() []*model.FunctionRecord {
	return r.records
}

// Len returns the number of registered functions.
func (r *Registry) Len() int {
	return len(r.records)
}

// Diagnostics returns issues recorded while building, duplicate identities
// among them.
func (r *Registry) Diagnostics() []model.Diagnostic {
	return r.diagnostics
}
