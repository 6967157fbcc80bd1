package memory

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/patternforge/patternforge/internal/store"
)

func testSession(id string) *store.Session {
	return &store.Session{
		ID:        id,
		Mode:      store.ModeSingle,
		CreatedAt: time.Now().UTC(),
		Request:   json.RawMessage(`{"include":["a"]}`),
		Result:    json.RawMessage(`{"expr":"P1"}`),
	}
}

func TestSaveAndGetSession(t *testing.T) {
	s := New()
	ctx := context.Background()

	if err := s.SaveSession(ctx, testSession("checkout-fail")); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}

	got, err := s.GetSession(ctx, "checkout-fail")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got.ID != "checkout-fail" || got.Mode != store.ModeSingle {
		t.Errorf("unexpected session: %+v", got)
	}
}

func TestGetSessionNotFound(t *testing.T) {
	s := New()
	if _, err := s.GetSession(context.Background(), "missing"); err == nil {
		t.Fatal("expected an error for a missing session")
	}
}

func TestSaveSessionRejectsInvalidID(t *testing.T) {
	s := New()
	if err := s.SaveSession(context.Background(), testSession("Not Valid!")); err == nil {
		t.Fatal("expected an error for an invalid session id")
	}
}

func TestListSessionsSortedNewestFirst(t *testing.T) {
	s := New()
	ctx := context.Background()

	older := testSession("older")
	older.CreatedAt = time.Now().Add(-time.Hour).UTC()
	newer := testSession("newer")
	newer.CreatedAt = time.Now().UTC()

	_ = s.SaveSession(ctx, older)
	_ = s.SaveSession(ctx, newer)

	list, err := s.ListSessions(ctx)
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if len(list) != 2 || list[0].ID != "newer" || list[1].ID != "older" {
		t.Errorf("unexpected order: %+v", list)
	}
}

func TestDeleteSession(t *testing.T) {
	s := New()
	ctx := context.Background()

	_ = s.SaveSession(ctx, testSession("to-delete"))
	if err := s.DeleteSession(ctx, "to-delete"); err != nil {
		t.Fatalf("DeleteSession failed: %v", err)
	}
	if _, err := s.GetSession(ctx, "to-delete"); err == nil {
		t.Fatal("expected the deleted session to be gone")
	}
}

func TestClear(t *testing.T) {
	s := New()
	ctx := context.Background()

	_ = s.SaveSession(ctx, testSession("a"))
	_ = s.SaveSession(ctx, testSession("b"))
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	list, _ := s.ListSessions(ctx)
	if len(list) != 0 {
		t.Errorf("expected no sessions after Clear, got %d", len(list))
	}
}
