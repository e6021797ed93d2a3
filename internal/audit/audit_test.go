package audit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/ziadkadry99/macbot/internal/db"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return NewStore(database)
}

func TestRecordAndGet(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	event := Event{
		ID:       "evt-1",
		Actor:    ActorAdmin,
		Action:   ActionUpload,
		FileName: "macbeth.pdf",
		FileID:   "a1b2c3d4e5",
		Chunks:   42,
		Detail:   "title=Macbeth",
	}
	if err := store.Record(ctx, event); err != nil {
		t.Fatalf("Record: %v", err)
	}

	got, err := store.Get(ctx, "evt-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Actor != ActorAdmin {
		t.Errorf("Actor = %q, want %q", got.Actor, ActorAdmin)
	}
	if got.Action != ActionUpload {
		t.Errorf("Action = %q, want %q", got.Action, ActionUpload)
	}
	if got.FileName != "macbeth.pdf" || got.FileID != "a1b2c3d4e5" {
		t.Errorf("file = %q/%q", got.FileName, got.FileID)
	}
	if got.Chunks != 42 {
		t.Errorf("Chunks = %d, want 42", got.Chunks)
	}
	if got.Status != StatusOK {
		t.Errorf("Status = %q, want ok", got.Status)
	}
	if got.Timestamp.IsZero() {
		t.Error("Timestamp should be populated")
	}
}

func TestRecordGeneratesUUID(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	if err := store.Record(ctx, Event{Actor: ActorCLI, Action: ActionSeed, Chunks: 20}); err != nil {
		t.Fatalf("Record: %v", err)
	}

	events, err := store.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if len(events[0].ID) != 36 {
		t.Errorf("expected UUID id, got %q", events[0].ID)
	}
}

func TestListFilters(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	for _, e := range []Event{
		{Actor: ActorUser, Action: ActionUpload, FileName: "a.txt"},
		{Actor: ActorAdmin, Action: ActionUpload, FileName: "b.pdf"},
		{Actor: ActorAdmin, Action: ActionDelete, FileName: "a.txt"},
		{Actor: ActorAdmin, Action: ActionSeed, Status: StatusFailed, Detail: "index unavailable"},
	} {
		if err := store.Record(ctx, e); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{"all", Filter{}, 4},
		{"by action", Filter{Action: ActionUpload}, 2},
		{"by actor", Filter{Actor: ActorAdmin}, 3},
		{"by file", Filter{FileName: "a.txt"}, 2},
		{"combined", Filter{Actor: ActorAdmin, FileName: "a.txt"}, 1},
		{"limit", Filter{Limit: 3}, 3},
		{"offset", Filter{Offset: 3}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events, err := store.List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(events) != tt.want {
				t.Errorf("got %d events, want %d", len(events), tt.want)
			}
		})
	}
}

func TestListNewestFirst(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	for _, name := range []string{"first.txt", "second.txt"} {
		if err := store.Record(ctx, Event{Actor: ActorUser, Action: ActionUpload, FileName: name}); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	events, err := store.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(events) != 2 || events[0].FileName != "second.txt" {
		t.Errorf("unexpected order: %+v", events)
	}
}

func TestDeleteBefore(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	if err := store.Record(ctx, Event{Actor: ActorUser, Action: ActionUpload}); err != nil {
		t.Fatalf("Record: %v", err)
	}

	n, err := store.DeleteBefore(ctx, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("DeleteBefore: %v", err)
	}
	if n != 0 {
		t.Errorf("deleted %d recent events", n)
	}

	n, err = store.DeleteBefore(ctx, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("DeleteBefore: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted %d events, want 1", n)
	}
}

func TestGetNotFound(t *testing.T) {
	store := setupStore(t)
	if _, err := store.Get(context.Background(), "nonexistent"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func setupRouter(t *testing.T) (chi.Router, *Store) {
	t.Helper()
	store := setupStore(t)
	r := chi.NewRouter()
	RegisterRoutes(r, store)
	return r, store
}

func TestHTTPList(t *testing.T) {
	r, store := setupRouter(t)
	ctx := context.Background()

	store.Record(ctx, Event{Actor: ActorAdmin, Action: ActionUpload, FileName: "macbeth.pdf", Chunks: 7})
	store.Record(ctx, Event{Actor: ActorAdmin, Action: ActionDelete, FileName: "macbeth.pdf", Chunks: 7})

	req := httptest.NewRequest(http.MethodGet, "/api/admin/audit/?action=delete", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var body struct {
		Events []Event `json:"events"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Events) != 1 || body.Events[0].Action != ActionDelete {
		t.Errorf("unexpected events: %+v", body.Events)
	}
}

func TestHTTPListEmpty(t *testing.T) {
	r, _ := setupRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/audit/", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if got := w.Body.String(); got != "{\"events\":[]}\n" {
		t.Errorf("body = %q", got)
	}
}

func TestHTTPGet(t *testing.T) {
	r, store := setupRouter(t)
	store.Record(context.Background(), Event{ID: "evt-http", Actor: ActorCLI, Action: ActionSeed, Chunks: 20})

	req := httptest.NewRequest(http.MethodGet, "/api/admin/audit/evt-http", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var got Event
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Chunks != 20 || got.Action != ActionSeed {
		t.Errorf("unexpected event: %+v", got)
	}
}

func TestHTTPGetNotFound(t *testing.T) {
	r, _ := setupRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/audit/missing", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}
