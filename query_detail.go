package abstraction

import (
	"fmt"
	"time"

	"github.com/Jaeyong-Cho/abstraction/internal/model"
)

// FunctionSource is the full detail view of one indexed function.
type FunctionSource struct {
	Identity    Identity
	Language    string
	Code        string
	StartLine   int
	EndLine     int
	Fingerprint string
	Callers     []Identity
	Callees     []Identity
}

// FunctionSource returns the stored body and direct neighbors of id.
func (q *QueryBuilder) FunctionSource(id Identity) (*FunctionSource, error) {
	rec := q.snap.Registry.Lookup(id)
	if rec == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFunction, id)
	}
	return &FunctionSource{
		Identity:    id,
		Language:    rec.Language,
		Code:        rec.RawBody,
		StartLine:   rec.StartLine,
		EndLine:     rec.EndLine,
		Fingerprint: rec.Fingerprint(),
		Callers:     q.snap.Graph.Callers(id),
		Callees:     q.snap.Graph.Callees(id),
	}, nil
}

// Contract returns the recorded contract for id, or nil when none exists.
func (q *QueryBuilder) Contract(id Identity) (*Contract, error) {
	return q.store.GetContract(id)
}

// SaveContract records a contract against id as a full replacement of any
// earlier one. The function must exist in the pinned snapshot: the contract
// captures the fingerprint of the body the author was looking at.
func (q *QueryBuilder) SaveContract(id Identity, behavior string, pre, post []string, level AbstractionLevel) (*Contract, error) {
	rec := q.snap.Registry.Lookup(id)
	if rec == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFunction, id)
	}
	c := &Contract{
		Identity:            id,
		ExpectedBehavior:    behavior,
		Preconditions:       pre,
		Postconditions:      post,
		Level:               level,
		RecordedFingerprint: rec.Fingerprint(),
		RecordedAt:          time.Now(),
	}
	if err := q.store.PutContract(c); err != nil {
		return nil, err
	}
	return c, nil
}

// DeleteContract removes the contract for id, reporting whether one existed.
func (q *QueryBuilder) DeleteContract(id Identity) (bool, error) {
	return q.store.DeleteContract(id)
}

// ContractStatus is a contract's validity against the pinned snapshot.
type ContractStatus struct {
	Identity Identity
	Status   Classification
	Contract *Contract // nil when Status is no_contract
	// CurrentFingerprint is the live body's fingerprint; empty when the
	// function is absent from the snapshot.
	CurrentFingerprint string
}

// ContractStatus classifies the contract recorded for id.
func (q *QueryBuilder) ContractStatus(id Identity) (*ContractStatus, error) {
	c, err := q.store.GetContract(id)
	if err != nil {
		return nil, err
	}
	rec := q.snap.Registry.Lookup(id)
	st := &ContractStatus{
		Identity: id,
		Status:   model.Classify(rec, c),
		Contract: c,
	}
	if rec != nil {
		st.CurrentFingerprint = rec.Fingerprint()
	}
	return st, nil
}

// ListContracts returns every contract under pathPrefix, classified against
// the pinned snapshot.
func (q *QueryBuilder) ListContracts(pathPrefix string) ([]ContractImpact, error) {
	contracts, err := q.store.ListContracts(normalizeScope(pathPrefix))
	if err != nil {
		return nil, err
	}
	out := make([]ContractImpact, 0, len(contracts))
	for _, c := range contracts {
		out = append(out, ContractImpact{
			Contract: c,
			Status:   model.Classify(q.snap.Registry.Lookup(c.Identity), c),
		})
	}
	return out, nil
}
