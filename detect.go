package abstraction

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Jaeyong-Cho/abstraction/internal/index"
	"github.com/Jaeyong-Cho/abstraction/internal/model"
)

// ChangeReport describes how the function population moved between two index
// runs, plus the contract fallout: every recorded contract re-classified
// against the new snapshot.
type ChangeReport struct {
	BuiltAt  time.Time
	Added    []Identity
	Modified []Identity
	Deleted  []Identity
	// Contracts holds one entry per recorded contract, in (path, name)
	// order, classified against the new snapshot.
	Contracts []ContractImpact
}

// ContractImpact pairs a contract with its validity after a run.
type ContractImpact struct {
	Contract *Contract
	Status   Classification
}

// CompareSnapshots diffs the function populations of two snapshots. A nil
// prev means first run: everything in next is added. Functions present in
// both count as modified only when their body fingerprints differ.
func CompareSnapshots(prev, next *Snapshot) *ChangeReport {
	report := &ChangeReport{BuiltAt: next.BuiltAt}

	var prevReg *index.Registry
	if prev != nil {
		prevReg = prev.Registry
	}

	for _, rec := range next.Registry.Records() {
		id := rec.Identity()
		if prevReg == nil {
			report.Added = append(report.Added, id)
			continue
		}
		old := prevReg.Lookup(id)
		switch {
		case old == nil:
			report.Added = append(report.Added, id)
		case old.Fingerprint() != rec.Fingerprint():
			report.Modified = append(report.Modified, id)
		}
	}
	if prevReg != nil {
		for _, rec := range prevReg.Records() {
			if next.Registry.Lookup(rec.Identity()) == nil {
				report.Deleted = append(report.Deleted, rec.Identity())
			}
		}
	}

	sortIDs(report.Added)
	sortIDs(report.Modified)
	sortIDs(report.Deleted)
	return report
}

func sortIDs(ids []Identity) {
	sort.Slice(ids, func(i, j int) bool {
		if ids[i].Path != ids[j].Path {
			return ids[i].Path < ids[j].Path
		}
		return ids[i].QualifiedName < ids[j].QualifiedName
	})
}

// DetectChanges re-indexes the workspace and reports what moved since the
// previously persisted snapshot. The fresh snapshot is published as usual.
func (e *Engine) DetectChanges(ctx context.Context) (*ChangeReport, error) {
	prev, err := e.store.LoadSnapshot()
	if err != nil {
		return nil, fmt.Errorf("load previous snapshot: %w", err)
	}

	next, err := e.Index(ctx)
	if err != nil {
		return nil, err
	}

	report := CompareSnapshots(prev, next)

	contracts, err := e.store.ListContracts("")
	if err != nil {
		return nil, fmt.Errorf("list contracts: %w", err)
	}
	for _, c := range contracts {
		report.Contracts = append(report.Contracts, ContractImpact{
			Contract: c,
			Status:   model.Classify(next.Registry.Lookup(c.Identity), c),
		})
	}
	return report, nil
}
