// Package server exposes the index and contract queries over a JSON HTTP
// API. It is a thin presentation boundary: every handler delegates to the
// engine's QueryBuilder and reports errors as {"error": ...} bodies.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Jaeyong-Cho/abstraction"
)

// Server wraps an Engine with an http.Handler.
type Server struct {
	engine *abstraction.Engine
	logger *slog.Logger
	mux    *http.ServeMux
}

// New builds a Server around engine.
func New(engine *abstraction.Engine, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{engine: engine, logger: logger, mux: http.NewServeMux()}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /api/workspace", s.handleWorkspace)
	s.mux.HandleFunc("POST /api/index", s.handleIndex)
	s.mux.HandleFunc("POST /api/check", s.handleCheck)
	s.mux.HandleFunc("GET /api/stats", s.handleStats)
	s.mux.HandleFunc("GET /api/functions", s.handleFunctions)
	s.mux.HandleFunc("GET /api/entry-points", s.handleEntryPoints)
	s.mux.HandleFunc("GET /api/graph.dot", s.handleDOT)
	s.mux.HandleFunc("GET /api/function-graph/{token...}", s.handleFunctionGraph)
	s.mux.HandleFunc("GET /api/function-code/{token...}", s.handleFunctionCode)
	s.mux.HandleFunc("GET /api/call-tree/{token...}", s.handleCallTree)
	s.mux.HandleFunc("GET /api/contract-status/{token...}", s.handleContractStatus)
	s.mux.HandleFunc("GET /api/contract/{token...}", s.handleContractGet)
	s.mux.HandleFunc("POST /api/contract/{token...}", s.handleContractPut)
	s.mux.HandleFunc("DELETE /api/contract/{token...}", s.handleContractDelete)
}

// ServeHTTP logs each request around the mux dispatch.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	s.mux.ServeHTTP(rec, r)
	s.logger.Info("server.request",
		"method", r.Method,
		"path", r.URL.Path,
		"status", rec.status,
		"elapsed", time.Since(started).Round(time.Microsecond),
	)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("server.encode", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

// query builds a QueryBuilder, translating the no-snapshot case to 409.
func (s *Server) query(w http.ResponseWriter) (*abstraction.QueryBuilder, bool) {
	q, err := s.engine.Query()
	if err != nil {
		s.writeError(w, http.StatusConflict, err)
		return nil, false
	}
	return q, true
}

// pathIdentity decodes the {token...} path segment into an Identity.
func (s *Server) pathIdentity(w http.ResponseWriter, r *http.Request) (abstraction.Identity, bool) {
	id, err := abstraction.ParseToken(r.PathValue("token"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return abstraction.Identity{}, false
	}
	return id, true
}

func (s *Server) handleWorkspace(w http.ResponseWriter, r *http.Request) {
	resp := workspaceView{Workspace: s.engine.Workspace()}
	if snap := s.engine.Snapshot(); snap != nil {
		resp.Indexed = true
		resp.BuiltAt = snap.BuiltAt
		resp.FileCount = snap.FileCount
		resp.Functions = snap.Registry.Len()
		resp.Edges = len(snap.Graph.Edges())
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	snap, err := s.engine.Index(r.Context())
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, abstraction.ErrFileLimitExceeded) || errors.Is(err, abstraction.ErrBuildTimeout) {
			status = http.StatusUnprocessableEntity
		}
		s.writeError(w, status, err)
		return
	}
	s.writeJSON(w, http.StatusOK, newIndexView(snap))
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	report, err := s.engine.DetectChanges(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, newChangeView(report))
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	q, ok := s.query(w)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, newStatsView(q.Stats()))
}

func (s *Server) handleFunctions(w http.ResponseWriter, r *http.Request) {
	q, ok := s.query(w)
	if !ok {
		return
	}
	fns, err := q.ListFunctions(r.URL.Query().Get("scope"))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	views := make([]functionView, 0, len(fns))
	for _, fn := range fns {
		views = append(views, newFunctionView(fn))
	}
	s.writeJSON(w, http.StatusOK, listingView{
		Functions: views,
		Tree:      newDirView(abstraction.BuildFunctionTree(fns)),
	})
}

func (s *Server) handleEntryPoints(w http.ResponseWriter, r *http.Request) {
	q, ok := s.query(w)
	if !ok {
		return
	}
	entries := q.EntryPoints()
	views := make([]identityView, 0, len(entries))
	for _, id := range entries {
		views = append(views, newIdentityView(id))
	}
	s.writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleDOT(w http.ResponseWriter, r *http.Request) {
	q, ok := s.query(w)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/vnd.graphviz")
	fmt.Fprint(w, q.DOT())
}

func (s *Server) handleFunctionGraph(w http.ResponseWriter, r *http.Request) {
	q, ok := s.query(w)
	if !ok {
		return
	}
	id, ok := s.pathIdentity(w, r)
	if !ok {
		return
	}
	ego, err := q.FunctionGraph(id)
	if err != nil {
		s.writeQueryError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, newEgoView(ego))
}

func (s *Server) handleFunctionCode(w http.ResponseWriter, r *http.Request) {
	q, ok := s.query(w)
	if !ok {
		return
	}
	id, ok := s.pathIdentity(w, r)
	if !ok {
		return
	}
	src, err := q.FunctionSource(id)
	if err != nil {
		s.writeQueryError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, newSourceView(src))
}

func (s *Server) handleCallTree(w http.ResponseWriter, r *http.Request) {
	q, ok := s.query(w)
	if !ok {
		return
	}
	id, ok := s.pathIdentity(w, r)
	if !ok {
		return
	}
	depth := 0
	if raw := r.URL.Query().Get("depth"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid depth %q", raw))
			return
		}
		depth = n
	}
	tree, err := q.CallTree(id, depth)
	if err != nil {
		s.writeQueryError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, newTreeView(tree))
}

func (s *Server) handleContractGet(w http.ResponseWriter, r *http.Request) {
	q, ok := s.query(w)
	if !ok {
		return
	}
	id, ok := s.pathIdentity(w, r)
	if !ok {
		return
	}
	c, err := q.Contract(id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if c == nil {
		s.writeError(w, http.StatusNotFound, fmt.Errorf("no contract for %s", id))
		return
	}
	s.writeJSON(w, http.StatusOK, newContractView(c))
}

func (s *Server) handleContractPut(w http.ResponseWriter, r *http.Request) {
	q, ok := s.query(w)
	if !ok {
		return
	}
	id, ok := s.pathIdentity(w, r)
	if !ok {
		return
	}
	var req contractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("decode body: %w", err))
		return
	}
	level := abstraction.AbstractionLevel(req.AbstractionLevel)
	if !abstraction.ValidLevel(level) {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid abstraction_level %q", req.AbstractionLevel))
		return
	}
	c, err := q.SaveContract(id, req.ExpectedBehavior, req.Preconditions, req.Postconditions, level)
	if err != nil {
		s.writeQueryError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, newContractView(c))
}

func (s *Server) handleContractDelete(w http.ResponseWriter, r *http.Request) {
	q, ok := s.query(w)
	if !ok {
		return
	}
	id, ok := s.pathIdentity(w, r)
	if !ok {
		return
	}
	existed, err := q.DeleteContract(id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if !existed {
		s.writeError(w, http.StatusNotFound, fmt.Errorf("no contract for %s", id))
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

func (s *Server) handleContractStatus(w http.ResponseWriter, r *http.Request) {
	q, ok := s.query(w)
	if !ok {
		return
	}
	id, ok := s.pathIdentity(w, r)
	if !ok {
		return
	}
	st, err := q.ContractStatus(id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, newStatusView(st))
}

func (s *Server) writeQueryError(w http.ResponseWriter, err error) {
	if errors.Is(err, abstraction.ErrUnknownFunction) {
		s.writeError(w, http.StatusNotFound, err)
		return
	}
	s.writeError(w, http.StatusInternalServerError, err)
}
