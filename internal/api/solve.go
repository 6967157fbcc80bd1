package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/patternforge/patternforge/internal/store"
	"github.com/patternforge/patternforge/pkg/forge/solve"
	"github.com/patternforge/patternforge/pkg/forge/structured"
)

// solveRequest is the single-field solve payload. Mode/Effort may
// override the server's configured defaults; every other tunable
// (weights, bounds, budgets) is taken from the run configuration loaded
// at startup, keeping the HTTP surface small.
type solveRequest struct {
	Include     []string     `json:"include"`
	Exclude     []string     `json:"exclude"`
	Mode        solve.Mode   `json:"mode,omitempty"`
	Effort      solve.Effort `json:"effort,omitempty"`
	Save        bool         `json:"save,omitempty"`
	Description string       `json:"description,omitempty"`
}

// POST /v1/solve
func (s *Server) handleSolve(w http.ResponseWriter, r *http.Request) {
	var req solveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if len(req.Include) == 0 {
		respondError(w, http.StatusBadRequest, "include must be non-empty")
		return
	}

	cfg := s.cfg.Solve
	if req.Mode != "" {
		cfg.Mode = req.Mode
	}
	if req.Effort != "" {
		cfg.Effort = req.Effort
	}

	result, err := solve.Solve(req.Include, req.Exclude, cfg)
	if err != nil {
		respondSolveError(w, err)
		return
	}

	resp := map[string]interface{}{"result": result}
	if req.Save {
		id, saveErr := s.saveSession(r, store.ModeSingle, req.Description, req, result)
		if saveErr != nil {
			respondError(w, http.StatusInternalServerError, "solved but failed to save session: "+saveErr.Error())
			return
		}
		resp["session_id"] = id
	}

	respondJSON(w, http.StatusOK, resp)
}

// structuredSolveRequest is the multi-field solve payload. Rows are
// plain string-keyed maps; a nil value at a key marks a don't-care
// field for that row, matching structured.Row's json.RawMessage-free
// shape once decoded.
type structuredSolveRequest struct {
	Include     []map[string]*string `json:"include"`
	Exclude     []map[string]*string `json:"exclude"`
	Save        bool                 `json:"save,omitempty"`
	Description string               `json:"description,omitempty"`
}

// POST /v1/solve/structured
func (s *Server) handleSolveStructured(w http.ResponseWriter, r *http.Request) {
	var req structuredSolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if len(req.Include) == 0 {
		respondError(w, http.StatusBadRequest, "include must be non-empty")
		return
	}

	include := make([]structured.Row, len(req.Include))
	for i, r := range req.Include {
		include[i] = structured.Row(r)
	}
	exclude := make([]structured.Row, len(req.Exclude))
	for i, r := range req.Exclude {
		exclude[i] = structured.Row(r)
	}

	result, err := structured.Solve(include, exclude, s.cfg.Structured)
	if err != nil {
		respondSolveError(w, err)
		return
	}
	structured.AssignIDs(result.Terms)

	resp := map[string]interface{}{
		"result":   result,
		"raw_expr": structured.RawExpr(result.Terms),
		"expr":     structured.SymbolicExpr(result.Terms),
	}
	if req.Save {
		id, saveErr := s.saveSession(r, store.ModeStructured, req.Description, req, result)
		if saveErr != nil {
			respondError(w, http.StatusInternalServerError, "solved but failed to save session: "+saveErr.Error())
			return
		}
		resp["session_id"] = id
	}

	respondJSON(w, http.StatusOK, resp)
}

// respondSolveError maps the pipeline's typed config/input errors to the
// matching HTTP status: config errors are 400, while input errors and
// any other error come back as 422 since the request itself was
// well-formed. An unsolvable input is not an error and returns 200.
func respondSolveError(w http.ResponseWriter, err error) {
	var solveErr *solve.Error
	if errors.As(err, &solveErr) {
		switch solveErr.Kind {
		case solve.ErrConfig:
			respondError(w, http.StatusBadRequest, err.Error())
		default:
			respondError(w, http.StatusUnprocessableEntity, err.Error())
		}
		return
	}
	var structuredErr *structured.Error
	if errors.As(err, &structuredErr) {
		switch structuredErr.Kind {
		case structured.ErrConfig:
			respondError(w, http.StatusBadRequest, err.Error())
		default:
			respondError(w, http.StatusUnprocessableEntity, err.Error())
		}
		return
	}
	respondError(w, http.StatusUnprocessableEntity, err.Error())
}

// saveSession persists the request/result pair and returns the new
// session's ID, minted from the current time the way the teacher's
// session store keys snapshots by creation order.
func (s *Server) saveSession(r *http.Request, mode store.Mode, description string, req, result interface{}) (string, error) {
	reqJSON, err := json.Marshal(req)
	if err != nil {
		return "", err
	}
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return "", err
	}

	now := time.Now().UTC()
	id := fmt.Sprintf("sess-%d", now.UnixNano())

	sess := &store.Session{
		ID:          id,
		Description: description,
		Mode:        mode,
		CreatedAt:   now,
		Request:     reqJSON,
		Result:      resultJSON,
	}
	if err := s.store.SaveSession(r.Context(), sess); err != nil {
		return "", err
	}
	return id, nil
}
