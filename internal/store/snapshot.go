package store

import (
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/Jaeyong-Cho/abstraction/internal/index"
	"github.com/Jaeyong-Cho/abstraction/internal/model"
)

const (
	metaWorkspace = "workspace"
	metaFileCount = "file_count"
	metaBuiltAt   = "built_at"
)

// SaveSnapshot replaces the persisted snapshot with snap in one transaction.
// A reader opening the database never sees functions from one run mixed with
// edges from another.
func (s *Store) SaveSnapshot(snap *index.Snapshot) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("save snapshot: begin: %w", err)
	}
	defer tx.Rollback()

	for _, q := range []string{
		"DELETE FROM functions",
		"DELETE FROM call_edges",
		"DELETE FROM diagnostics",
	} {
		if _, err := tx.Exec(q); err != nil {
			return fmt.Errorf("save snapshot: clear: %w", err)
		}
	}

	insFn, err := tx.Prepare(
		"INSERT INTO functions(path, qualified_name, language, start_line, end_line, body, fingerprint) VALUES(?, ?, ?, ?, ?, ?, ?)",
	)
	if err != nil {
		return fmt.Errorf("save snapshot: prepare functions: %w", err)
	}
	defer insFn.Close()
	for _, rec := range snap.Registry.Records() {
		if _, err := insFn.Exec(rec.Path, rec.QualifiedName, rec.Language, rec.StartLine, rec.EndLine, rec.RawBody, rec.Fingerprint()); err != nil {
			return fmt.Errorf("save snapshot: function %s: %w", rec.Identity(), err)
		}
	}

	insEdge, err := tx.Prepare(
		"INSERT INTO call_edges(caller_path, caller_name, callee_path, callee_name, kind, count) VALUES(?, ?, ?, ?, ?, ?)",
	)
	if err != nil {
		return fmt.Errorf("save snapshot: prepare edges: %w", err)
	}
	defer insEdge.Close()
	for _, e := range snap.Graph.Edges() {
		if _, err := insEdge.Exec(e.Caller.Path, e.Caller.QualifiedName, e.Callee.Path, e.Callee.QualifiedName, string(e.Kind), e.Count); err != nil {
			return fmt.Errorf("save snapshot: edge %s -> %s: %w", e.Caller, e.Callee, err)
		}
	}

	for _, d := range snap.Diagnostics {
		if _, err := tx.Exec("INSERT INTO diagnostics(kind, path, detail) VALUES(?, ?, ?)", string(d.Kind), d.Path, d.Detail); err != nil {
			return fmt.Errorf("save snapshot: diagnostic: %w", err)
		}
	}

	meta := map[string]string{
		metaWorkspace: snap.Workspace,
		metaFileCount: strconv.Itoa(snap.FileCount),
		metaBuiltAt:   snap.BuiltAt.UTC().Format(time.RFC3339Nano),
	}
	for key, value := range meta {
		if _, err := tx.Exec(
			"INSERT INTO metadata(key, value) VALUES(?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
			key, value,
		); err != nil {
			return fmt.Errorf("save snapshot: metadata %q: %w", key, err)
		}
	}

	return tx.Commit()
}

// LoadSnapshot reads the persisted snapshot back, or returns (nil, nil) when
// no run has been saved yet. Edges are reattached directly; callee names are
// not re-resolved.
func (s *Store) LoadSnapshot() (*index.Snapshot, error) {
	builtAt, err := s.GetMetadata(metaBuiltAt)
	if err != nil {
		return nil, err
	}
	if builtAt == "" {
		return nil, nil
	}
	ts, err := time.Parse(time.RFC3339Nano, builtAt)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: parse built_at: %w", err)
	}

	records, err := s.loadFunctions()
	if err != nil {
		return nil, err
	}
	edges, err := s.loadEdges()
	if err != nil {
		return nil, err
	}
	diags, err := s.loadDiagnostics()
	if err != nil {
		return nil, err
	}

	workspace, err := s.GetMetadata(metaWorkspace)
	if err != nil {
		return nil, err
	}
	fileCount := 0
	if raw, err := s.GetMetadata(metaFileCount); err != nil {
		return nil, err
	} else if raw != "" {
		if fileCount, err = strconv.Atoi(raw); err != nil {
			return nil, fmt.Errorf("load snapshot: parse file_count: %w", err)
		}
	}

	return &index.Snapshot{
		Registry:    index.BuildRegistry(records),
		Graph:       index.GraphFromEdges(edges),
		Workspace:   workspace,
		FileCount:   fileCount,
		BuiltAt:     ts,
		Diagnostics: diags,
	}, nil
}

func (s *Store) loadFunctions() ([]*model.FunctionRecord, error) {
	rows, err := s.db.Query(
		"SELECT path, qualified_name, language, start_line, end_line, body FROM functions ORDER BY path, start_line",
	)
	if err != nil {
		return nil, fmt.Errorf("load functions: %w", err)
	}
	defer rows.Close()

	var records []*model.FunctionRecord
	for rows.Next() {
		rec := &model.FunctionRecord{}
		if err := rows.Scan(&rec.Path, &rec.QualifiedName, &rec.Language, &rec.StartLine, &rec.EndLine, &rec.RawBody); err != nil {
			return nil, fmt.Errorf("scan function: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *Store) loadEdges() ([]*model.CallEdge, error) {
	rows, err := s.db.Query(
		"SELECT caller_path, caller_name, callee_path, callee_name, kind, count FROM call_edges ORDER BY id",
	)
	if err != nil {
		return nil, fmt.Errorf("load edges: %w", err)
	}
	defer rows.Close()

	var edges []*model.CallEdge
	for rows.Next() {
		e := &model.CallEdge{}
		var kind string
		if err := rows.Scan(&e.Caller.Path, &e.Caller.QualifiedName, &e.Callee.Path, &e.Callee.QualifiedName, &kind, &e.Count); err != nil {
			return nil, fmt.Errorf("scan edge: %w", err)
		}
		e.Kind = model.ResolutionKind(kind)
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

func (s *Store) loadDiagnostics() ([]model.Diagnostic, error) {
	rows, err := s.db.Query("SELECT kind, path, detail FROM diagnostics ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("load diagnostics: %w", err)
	}
	defer rows.Close()

	var diags []model.Diagnostic
	for rows.Next() {
		var d model.Diagnostic
		var kind string
		var path, detail sql.NullString
		if err := rows.Scan(&kind, &path, &detail); err != nil {
			return nil, fmt.Errorf("scan diagnostic: %w", err)
		}
		d.Kind = model.DiagnosticKind(kind)
		d.Path = path.String
		d.Detail = detail.String
		diags = append(diags, d)
	}
	return diags, rows.Err()
}
