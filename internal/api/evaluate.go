package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/patternforge/patternforge/internal/store"
	"github.com/patternforge/patternforge/pkg/forge/boolexpr"
	"github.com/patternforge/patternforge/pkg/forge/glob"
	"github.com/patternforge/patternforge/pkg/forge/pattern"
	"github.com/patternforge/patternforge/pkg/forge/solve"
	"github.com/patternforge/patternforge/pkg/forge/structured"
)

// evaluateRequest tests a string (single mode) or a row (structured
// mode) against either a previously saved session or an inline
// expression. Exactly one of SessionID or Expr must be set.
type evaluateRequest struct {
	SessionID string              `json:"session_id,omitempty"`
	Expr      string              `json:"expr,omitempty"`
	Patterns  []pattern.Pattern   `json:"patterns,omitempty"`
	Value     string              `json:"value,omitempty"`
	Row       map[string]*string  `json:"row,omitempty"`
}

// POST /v1/evaluate
func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if req.SessionID != "" {
		sess, err := s.store.GetSession(r.Context(), req.SessionID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				respondError(w, http.StatusNotFound, "session not found")
				return
			}
			respondError(w, http.StatusInternalServerError, err.Error())
			return
		}

		switch sess.Mode {
		case store.ModeStructured:
			var result structured.Result
			if err := json.Unmarshal(sess.Result, &result); err != nil {
				respondError(w, http.StatusInternalServerError, "corrupt stored result: "+err.Error())
				return
			}
			s.evaluateStructuredRow(w, result.Terms, req.Row)
			return
		default:
			var result solve.Result
			if err := json.Unmarshal(sess.Result, &result); err != nil {
				respondError(w, http.StatusInternalServerError, "corrupt stored result: "+err.Error())
				return
			}
			s.evaluateSingle(w, result.Expr, result.Patterns, req.Value)
			return
		}
	}

	if req.Expr == "" {
		respondError(w, http.StatusBadRequest, "one of session_id or expr must be set")
		return
	}
	s.evaluateSingle(w, req.Expr, req.Patterns, req.Value)
}

func (s *Server) evaluateSingle(w http.ResponseWriter, expr string, patterns []pattern.Pattern, value string) {
	e, err := boolexpr.Parse(expr)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid expr: "+err.Error())
		return
	}

	byID := make(map[string]pattern.Pattern, len(patterns))
	for _, p := range patterns {
		byID[p.ID] = p
	}

	catalog := boolexpr.Catalog{}
	for _, label := range boolexpr.Labels(e) {
		p, ok := byID[label]
		if !ok {
			respondError(w, http.StatusBadRequest, "expr references unknown pattern id "+label)
			return
		}
		text := p.Text
		catalog[label] = func(s string) bool { return glob.Match(text, s) }
	}

	matched := boolexpr.Match(e, catalog, strings.ToLower(value))
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"value":   value,
		"matched": matched,
	})
}

func (s *Server) evaluateStructuredRow(w http.ResponseWriter, terms []structured.Term, row map[string]*string) {
	matched := structured.MatchRow(terms, structured.Row(row))
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"row":     row,
		"matched": matched,
	})
}
