package tools

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Jaeyong-Cho/abstraction"
)

func (s *Server) handleGetContract(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}
	q, errRes := s.query()
	if errRes != nil {
		return errRes, nil
	}
	id, errRes := tokenIdentity(args)
	if errRes != nil {
		return errRes, nil
	}

	c, err := q.Contract(id)
	if err != nil {
		return errResult(err.Error()), nil
	}
	if c == nil {
		return errResult(fmt.Sprintf("no contract for %s", id)), nil
	}
	return jsonResult(contractMap(c)), nil
}

func (s *Server) handleSaveContract(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}
	q, errRes := s.query()
	if errRes != nil {
		return errRes, nil
	}
	id, errRes := tokenIdentity(args)
	if errRes != nil {
		return errRes, nil
	}

	behavior := getStringArg(args, "expected_behavior")
	if behavior == "" {
		return errResult("expected_behavior is required"), nil
	}
	level := abstraction.AbstractionLevel(getStringArg(args, "abstraction_level"))
	if !abstraction.ValidLevel(level) {
		return errResult(fmt.Sprintf("invalid abstraction_level %q", level)), nil
	}

	c, err := q.SaveContract(id, behavior,
		getStringsArg(args, "preconditions"),
		getStringsArg(args, "postconditions"),
		level,
	)
	if err != nil {
		return errResult(err.Error()), nil
	}
	return jsonResult(contractMap(c)), nil
}

func (s *Server) handleContractStatus(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}
	q, errRes := s.query()
	if errRes != nil {
		return errRes, nil
	}
	id, errRes := tokenIdentity(args)
	if errRes != nil {
		return errRes, nil
	}

	st, err := q.ContractStatus(id)
	if err != nil {
		return errResult(err.Error()), nil
	}
	out := map[string]any{
		"token":  id.Token(),
		"status": st.Status,
	}
	if st.CurrentFingerprint != "" {
		out["current_fingerprint"] = st.CurrentFingerprint
	}
	if st.Contract != nil {
		out["contract"] = contractMap(st.Contract)
	}
	return jsonResult(out), nil
}

func contractMap(c *abstraction.Contract) map[string]any {
	return map[string]any{
		"token":                c.Identity.Token(),
		"expected_behavior":    c.ExpectedBehavior,
		"preconditions":        c.Preconditions,
		"postconditions":       c.Postconditions,
		"abstraction_level":    c.Level,
		"recorded_fingerprint": c.RecordedFingerprint,
		"recorded_at":          c.RecordedAt,
	}
}
