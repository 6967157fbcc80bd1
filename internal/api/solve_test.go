package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHandleSolve(t *testing.T) {
	s, _ := testServer(t)

	body := `{"include":["checkout-fail","checkout-timeout"],"exclude":["billing-fail"]}`
	req := httptest.NewRequest(http.MethodPost, "/v1/solve", bytes.NewBufferString(body))
	rr := httptest.NewRecorder()
	s.handleSolve(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rr.Code, rr.Body.String())
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if _, ok := resp["result"]; !ok {
		t.Error("expected a result field in the response")
	}
}

func TestHandleSolveRejectsEmptyInclude(t *testing.T) {
	s, _ := testServer(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/solve", bytes.NewBufferString(`{"include":[]}`))
	rr := httptest.NewRecorder()
	s.handleSolve(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}

func TestHandleSolveSavesSession(t *testing.T) {
	s, st := testServer(t)

	body := `{"include":["checkout-fail"],"save":true,"description":"demo"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/solve", bytes.NewBufferString(body))
	rr := httptest.NewRecorder()
	s.handleSolve(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rr.Code, rr.Body.String())
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	id, ok := resp["session_id"].(string)
	if !ok || id == "" {
		t.Fatalf("expected a session_id in the response, got %v", resp["session_id"])
	}

	if _, err := st.GetSession(req.Context(), id); err != nil {
		t.Errorf("GetSession(%q) failed: %v", id, err)
	}
}

func TestHandleSolveStructured(t *testing.T) {
	s, _ := testServer(t)

	body := `{"include":[{"service":"checkout","stage":"fail"}],"exclude":[{"service":"billing","stage":"fail"}]}`
	req := httptest.NewRequest(http.MethodPost, "/v1/solve/structured", bytes.NewBufferString(body))
	rr := httptest.NewRecorder()
	s.handleSolveStructured(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rr.Code, rr.Body.String())
	}
}
