package server

import (
	"time"

	"github.com/Jaeyong-Cho/abstraction"
)

// JSON view types. Identities always carry both the structured form and the
// opaque token clients pass back in URLs.

type identityView struct {
	Path          string `json:"path"`
	QualifiedName string `json:"qualified_name"`
	Token         string `json:"token"`
}

func newIdentityView(id abstraction.Identity) identityView {
	return identityView{Path: id.Path, QualifiedName: id.QualifiedName, Token: id.Token()}
}

type workspaceView struct {
	Workspace string    `json:"workspace"`
	Indexed   bool      `json:"indexed"`
	BuiltAt   time.Time `json:"built_at,omitzero"`
	FileCount int       `json:"file_count"`
	Functions int       `json:"functions"`
	Edges     int       `json:"edges"`
}

type indexView struct {
	FileCount   int       `json:"file_count"`
	Functions   int       `json:"functions"`
	Edges       int       `json:"edges"`
	Diagnostics int       `json:"diagnostics"`
	BuiltAt     time.Time `json:"built_at"`
}

func newIndexView(snap *abstraction.Snapshot) indexView {
	return indexView{
		FileCount:   snap.FileCount,
		Functions:   snap.Registry.Len(),
		Edges:       len(snap.Graph.Edges()),
		Diagnostics: len(snap.Diagnostics),
		BuiltAt:     snap.BuiltAt,
	}
}

type functionView struct {
	identityView
	Language  string `json:"language"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
	Level     string `json:"abstraction_level,omitempty"`
	Status    string `json:"status"`
}

func newFunctionView(fn abstraction.FunctionSummary) functionView {
	return functionView{
		identityView: newIdentityView(fn.Identity),
		Language:     fn.Language,
		StartLine:    fn.StartLine,
		EndLine:      fn.EndLine,
		Level:        string(fn.Level),
		Status:       string(fn.Status),
	}
}

// listingView is the /api/functions payload: the flat rows plus the same
// listing grouped into a directory tree.
type listingView struct {
	Functions []functionView `json:"functions"`
	Tree      dirView        `json:"tree"`
}

type dirView struct {
	Name  string     `json:"name"`
	Path  string     `json:"path"`
	Dirs  []dirView  `json:"dirs,omitempty"`
	Files []fileView `json:"files,omitempty"`
}

type fileView struct {
	Name      string         `json:"name"`
	Path      string         `json:"path"`
	Functions []functionView `json:"functions"`
}

func newDirView(d *abstraction.DirNode) dirView {
	v := dirView{Name: d.Name, Path: d.Path}
	for _, sub := range d.Dirs {
		v.Dirs = append(v.Dirs, newDirView(sub))
	}
	for _, f := range d.Files {
		fv := fileView{Name: f.Name, Path: f.Path}
		for _, fn := range f.Functions {
			fv.Functions = append(fv.Functions, newFunctionView(fn))
		}
		v.Files = append(v.Files, fv)
	}
	return v
}

type edgeView struct {
	Caller identityView `json:"caller"`
	Callee identityView `json:"callee"`
	Kind   string       `json:"kind"`
	Count  int          `json:"count"`
}

type egoView struct {
	Center identityView   `json:"center"`
	Nodes  []identityView `json:"nodes"`
	Edges  []edgeView     `json:"edges"`
}

func newEgoView(ego *abstraction.EgoGraph) egoView {
	v := egoView{Center: newIdentityView(ego.Center)}
	for _, n := range ego.Nodes {
		v.Nodes = append(v.Nodes, newIdentityView(n))
	}
	for _, e := range ego.Edges {
		v.Edges = append(v.Edges, edgeView{
			Caller: newIdentityView(e.Caller),
			Callee: newIdentityView(e.Callee),
			Kind:   string(e.Kind),
			Count:  e.Count,
		})
	}
	return v
}

type sourceView struct {
	identityView
	Language    string         `json:"language"`
	Code        string         `json:"code"`
	StartLine   int            `json:"start_line"`
	EndLine     int            `json:"end_line"`
	Fingerprint string         `json:"fingerprint"`
	Callers     []identityView `json:"callers"`
	Callees     []identityView `json:"callees"`
}

func newSourceView(src *abstraction.FunctionSource) sourceView {
	v := sourceView{
		identityView: newIdentityView(src.Identity),
		Language:     src.Language,
		Code:         src.Code,
		StartLine:    src.StartLine,
		EndLine:      src.EndLine,
		Fingerprint:  src.Fingerprint,
		Callers:      []identityView{},
		Callees:      []identityView{},
	}
	for _, id := range src.Callers {
		v.Callers = append(v.Callers, newIdentityView(id))
	}
	for _, id := range src.Callees {
		v.Callees = append(v.Callees, newIdentityView(id))
	}
	return v
}

type treeView struct {
	identityView
	Depth    int        `json:"depth"`
	Kind     string     `json:"kind"`
	BackRef  bool       `json:"back_ref,omitempty"`
	Children []treeView `json:"children,omitempty"`
}

func newTreeView(node *abstraction.TreeNode) treeView {
	v := treeView{
		identityView: newIdentityView(node.Identity),
		Depth:        node.Depth,
		Kind:         string(node.Kind),
		BackRef:      node.BackRef,
	}
	for _, child := range node.Children {
		v.Children = append(v.Children, newTreeView(child))
	}
	return v
}

type contractRequest struct {
	ExpectedBehavior string   `json:"expected_behavior"`
	Preconditions    []string `json:"preconditions"`
	Postconditions   []string `json:"postconditions"`
	AbstractionLevel string   `json:"abstraction_level"`
}

type contractView struct {
	identityView
	ExpectedBehavior    string    `json:"expected_behavior"`
	Preconditions       []string  `json:"preconditions"`
	Postconditions      []string  `json:"postconditions"`
	AbstractionLevel    string    `json:"abstraction_level"`
	RecordedFingerprint string    `json:"recorded_fingerprint"`
	RecordedAt          time.Time `json:"recorded_at"`
}

func newContractView(c *abstraction.Contract) contractView {
	return contractView{
		identityView:        newIdentityView(c.Identity),
		ExpectedBehavior:    c.ExpectedBehavior,
		Preconditions:       c.Preconditions,
		Postconditions:      c.Postconditions,
		AbstractionLevel:    string(c.Level),
		RecordedFingerprint: c.RecordedFingerprint,
		RecordedAt:          c.RecordedAt,
	}
}

type statusView struct {
	identityView
	Status             string        `json:"status"`
	CurrentFingerprint string        `json:"current_fingerprint,omitempty"`
	Contract           *contractView `json:"contract,omitempty"`
}

func newStatusView(st *abstraction.ContractStatus) statusView {
	v := statusView{
		identityView:       newIdentityView(st.Identity),
		Status:             string(st.Status),
		CurrentFingerprint: st.CurrentFingerprint,
	}
	if st.Contract != nil {
		cv := newContractView(st.Contract)
		v.Contract = &cv
	}
	return v
}

type statsView struct {
	Files       int          `json:"files"`
	Functions   int          `json:"functions"`
	Edges       int          `json:"edges"`
	Resolved    int          `json:"resolved"`
	External    int          `json:"external"`
	Ambiguous   int          `json:"ambiguous"`
	EntryPoints int          `json:"entry_points"`
	MostCalled  []calleeView `json:"most_called"`
}

type calleeView struct {
	identityView
	Callers int `json:"callers"`
}

func newStatsView(stats *abstraction.GraphStats) statsView {
	v := statsView{
		Files:       stats.Files,
		Functions:   stats.Functions,
		Edges:       stats.Edges,
		Resolved:    stats.Resolved,
		External:    stats.External,
		Ambiguous:   stats.Ambiguous,
		EntryPoints: stats.EntryPoints,
		MostCalled:  []calleeView{},
	}
	for _, mc := range stats.MostCalled {
		v.MostCalled = append(v.MostCalled, calleeView{
			identityView: newIdentityView(mc.Identity),
			Callers:      mc.Callers,
		})
	}
	return v
}

type changeView struct {
	Added     []identityView       `json:"added"`
	Modified  []identityView       `json:"modified"`
	Deleted   []identityView       `json:"deleted"`
	Contracts []contractImpactView `json:"contracts"`
}

type contractImpactView struct {
	contractView
	Status string `json:"status"`
}

func newChangeView(report *abstraction.ChangeReport) changeView {
	v := changeView{
		Added:     []identityView{},
		Modified:  []identityView{},
		Deleted:   []identityView{},
		Contracts: []contractImpactView{},
	}
	for _, id := range report.Added {
		v.Added = append(v.Added, newIdentityView(id))
	}
	for _, id := range report.Modified {
		v.Modified = append(v.Modified, newIdentityView(id))
	}
	for _, id := range report.Deleted {
		v.Deleted = append(v.Deleted, newIdentityView(id))
	}
	for _, impact := range report.Contracts {
		v.Contracts = append(v.Contracts, contractImpactView{
			contractView: newContractView(impact.Contract),
			Status:       string(impact.Status),
		})
	}
	return v
}
