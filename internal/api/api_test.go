package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/starford/notekeep/internal/models"
	"github.com/starford/notekeep/internal/noteservice"
	"github.com/starford/notekeep/internal/testutil"
)

// testEnv builds an in-memory store, service, and router for testing.
// An empty authToken means disabled mode.
func testEnv(t *testing.T, authToken string) (*noteservice.Service, http.Handler) {
	t.Helper()
	return testEnvWithSSE(t, authToken, nil)
}

func testEnvWithSSE(t *testing.T, authToken string, sseHandler http.Handler) (*noteservice.Service, http.Handler) {
	t.Helper()
	store, _ := testutil.MemoryStore(t)
	svc := noteservice.NewService(store, nil, testutil.Logger())
	router := NewRouter(svc, authToken != "", authToken, sseHandler)
	return svc, router
}

func do(t *testing.T, router http.Handler, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// loggedIn registers a user through the API and returns the router.
func loggedIn(t *testing.T) http.Handler {
	t.Helper()
	_, router := testEnv(t, "")
	w := do(t, router, http.MethodPost, "/auth/register", map[string]string{
		"email": "ann@example.com", "password": "secret", "username": "ann",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("register status = %d, body = %s", w.Code, w.Body.String())
	}
	return router
}

func createNote(t *testing.T, router http.Handler, title, content, category string) models.Note {
	t.Helper()
	w := do(t, router, http.MethodPost, "/notes", map[string]string{
		"title": title, "content": content, "category": category,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	var n models.Note
	if err := json.Unmarshal(w.Body.Bytes(), &n); err != nil {
		t.Fatal(err)
	}
	return n
}

func TestRegisterAndMe(t *testing.T) {
	router := loggedIn(t)

	w := do(t, router, http.MethodGet, "/auth/me", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("me status = %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "password") {
		t.Errorf("profile leaks password field: %s", w.Body.String())
	}
	var p models.Profile
	_ = json.Unmarshal(w.Body.Bytes(), &p)
	if p.Email != "ann@example.com" || p.Username != "ann" {
		t.Errorf("profile = %+v", p)
	}
}

func TestRegisterDuplicate(t *testing.T) {
	router := loggedIn(t)
	w := do(t, router, http.MethodPost, "/auth/register", map[string]string{
		"email": "ann@example.com", "password": "other", "username": "x",
	})
	if w.Code != http.StatusConflict {
		t.Errorf("duplicate register = %d, want 409", w.Code)
	}
}

func TestRegisterInvalid(t *testing.T) {
	_, router := testEnv(t, "")
	w := do(t, router, http.MethodPost, "/auth/register", map[string]string{
		"email": "nope", "password": "x", "username": "x",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid register = %d, want 400", w.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("malformed JSON = %d, want 400", rec.Code)
	}
}

func TestLoginLogout(t *testing.T) {
	router := loggedIn(t)

	if w := do(t, router, http.MethodPost, "/auth/logout", nil); w.Code != http.StatusNoContent {
		t.Fatalf("logout = %d", w.Code)
	}
	if w := do(t, router, http.MethodGet, "/auth/me", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("me after logout = %d, want 401", w.Code)
	}
	if w := do(t, router, http.MethodGet, "/notes", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("notes after logout = %d, want 401", w.Code)
	}

	w := do(t, router, http.MethodPost, "/auth/login", map[string]string{"email": "ann@example.com", "password": "bad"})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("bad login = %d, want 401", w.Code)
	}
	w = do(t, router, http.MethodPost, "/auth/login", map[string]string{"email": "ann@example.com", "password": "secret"})
	if w.Code != http.StatusOK {
		t.Errorf("login = %d, body = %s", w.Code, w.Body.String())
	}
}

func TestUpdateProfileAndPassword(t *testing.T) {
	router := loggedIn(t)

	w := do(t, router, http.MethodPut, "/auth/me", map[string]string{"email": "new@example.com", "username": "anne"})
	if w.Code != http.StatusOK {
		t.Fatalf("update profile = %d, body = %s", w.Code, w.Body.String())
	}

	w = do(t, router, http.MethodPut, "/auth/me/password", map[string]string{
		"currentPassword": "secret", "newPassword": "next", "confirmPassword": "nope",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("mismatched confirm = %d, want 400", w.Code)
	}
	w = do(t, router, http.MethodPut, "/auth/me/password", map[string]string{
		"currentPassword": "secret", "newPassword": "next", "confirmPassword": "next",
	})
	if w.Code != http.StatusNoContent {
		t.Fatalf("change password = %d, body = %s", w.Code, w.Body.String())
	}

	do(t, router, http.MethodPost, "/auth/logout", nil)
	w = do(t, router, http.MethodPost, "/auth/login", map[string]string{"email": "new@example.com", "password": "next"})
	if w.Code != http.StatusOK {
		t.Errorf("login with new credentials = %d", w.Code)
	}
}

func TestCreateAndGetNote(t *testing.T) {
	router := loggedIn(t)
	created := createNote(t, router, "Hello", "World", "Work")

	w := do(t, router, http.MethodGet, "/notes/"+created.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	if w.Header().Get("ETag") == "" {
		t.Error("missing ETag header")
	}
	var note models.Note
	_ = json.Unmarshal(w.Body.Bytes(), &note)
	if note.Title != "Hello" || note.Content != "World" {
		t.Errorf("note = %+v", note)
	}
}

func TestCreateNote_Invalid(t *testing.T) {
	router := loggedIn(t)
	w := do(t, router, http.MethodPost, "/notes", map[string]string{"content": "  ", "category": "Work"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("blank content = %d, want 400", w.Code)
	}
}

func TestUpdateWithOptimisticLocking(t *testing.T) {
	router := loggedIn(t)
	created := createNote(t, router, "", "v1", "Work")

	w := do(t, router, http.MethodGet, "/notes/"+created.ID, nil)
	etag := w.Header().Get("ETag")

	w = do(t, router, http.MethodPatch, "/notes/"+created.ID, map[string]string{"content": "v2"}, "If-Match", etag)
	if w.Code != http.StatusOK {
		t.Fatalf("update with current etag = %d, body = %s", w.Code, w.Body.String())
	}
	var updated models.Note
	_ = json.Unmarshal(w.Body.Bytes(), &updated)
	if updated.Content != "v2" || updated.DateEdited == nil {
		t.Errorf("updated = %+v", updated)
	}

	w = do(t, router, http.MethodPatch, "/notes/"+created.ID, map[string]string{"content": "v3"}, "If-Match", etag)
	if w.Code != http.StatusConflict {
		t.Errorf("update with stale etag = %d, want 409", w.Code)
	}
}

func TestUpdateWithoutIfMatch(t *testing.T) {
	router := loggedIn(t)
	created := createNote(t, router, "", "v1", "Work")

	w := do(t, router, http.MethodPatch, "/notes/"+created.ID, map[string]string{"category": "Study"})
	if w.Code != http.StatusOK {
		t.Fatalf("update without If-Match = %d", w.Code)
	}
	var n models.Note
	_ = json.Unmarshal(w.Body.Bytes(), &n)
	if n.Category != "Study" || n.Content != "v1" {
		t.Errorf("note = %+v", n)
	}
}

func TestUpdateNote_NotFound(t *testing.T) {
	router := loggedIn(t)
	w := do(t, router, http.MethodPatch, "/notes/ghost", map[string]string{"content": "x"})
	if w.Code != http.StatusNotFound {
		t.Errorf("update missing = %d, want 404", w.Code)
	}
}

func TestGetNote_NotFound(t *testing.T) {
	router := loggedIn(t)
	w := do(t, router, http.MethodGet, "/notes/nope", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing note = %d, want 404", w.Code)
	}
}

func TestNotesAreScopedToSessionUser(t *testing.T) {
	router := loggedIn(t)
	n := createNote(t, router, "", "private", "Work")

	do(t, router, http.MethodPost, "/auth/register", map[string]string{
		"email": "eve@example.com", "password": "pw", "username": "eve",
	})
	if w := do(t, router, http.MethodGet, "/notes/"+n.ID, nil); w.Code != http.StatusNotFound {
		t.Errorf("other user's note = %d, want 404", w.Code)
	}
	if w := do(t, router, http.MethodDelete, "/notes/"+n.ID, nil); w.Code != http.StatusNotFound {
		t.Errorf("delete other user's note = %d, want 404", w.Code)
	}
}

func TestDeleteNote(t *testing.T) {
	router := loggedIn(t)
	n := createNote(t, router, "", "bye", "Work")

	for i := 0; i < 2; i++ {
		if w := do(t, router, http.MethodDelete, "/notes/"+n.ID, nil); w.Code != http.StatusNoContent {
			t.Errorf("delete #%d = %d, want 204", i+1, w.Code)
		}
	}
	if w := do(t, router, http.MethodGet, "/notes/"+n.ID, nil); w.Code != http.StatusNotFound {
		t.Errorf("get after delete = %d, want 404", w.Code)
	}
}

func TestListNotes(t *testing.T) {
	router := loggedIn(t)
	createNote(t, router, "groceries", "milk", "Personal")
	time.Sleep(2 * time.Millisecond)
	createNote(t, router, "standup", "sprint", "Work")

	w := do(t, router, http.MethodGet, "/notes?order=asc", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list = %d", w.Code)
	}
	var resp NoteListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Total != 2 || resp.Notes[0].Title != "groceries" {
		t.Errorf("asc list = %+v", resp)
	}

	w = do(t, router, http.MethodGet, "/notes?category=Work&q=SPRINT", nil)
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Total != 1 || resp.Notes[0].Title != "standup" {
		t.Errorf("filtered list = %+v", resp)
	}

	if w := do(t, router, http.MethodGet, "/notes?order=sideways", nil); w.Code != http.StatusBadRequest {
		t.Errorf("bad order = %d, want 400", w.Code)
	}
}

func TestCategories(t *testing.T) {
	router := loggedIn(t)

	w := do(t, router, http.MethodGet, "/categories", nil)
	var list CategoryListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &list)
	if len(list.Categories) != 3 {
		t.Fatalf("default categories = %d, want 3", len(list.Categories))
	}

	if w := do(t, router, http.MethodPost, "/categories", map[string]string{"name": "WORK"}); w.Code != http.StatusConflict {
		t.Errorf("duplicate category = %d, want 409", w.Code)
	}
	w = do(t, router, http.MethodPost, "/categories", map[string]string{"name": "Ideas"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create category = %d", w.Code)
	}
	var c models.Category
	_ = json.Unmarshal(w.Body.Bytes(), &c)

	if w := do(t, router, http.MethodDelete, "/categories/"+c.ID, nil); w.Code != http.StatusNoContent {
		t.Errorf("delete category = %d", w.Code)
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	_, router := testEnv(t, "secret123")
	w := do(t, router, http.MethodPost, "/auth/register", map[string]string{
		"email": "a@example.com", "password": "pw", "username": "a",
	}, "Authorization", "Bearer secret123")
	if w.Code != http.StatusCreated {
		t.Errorf("authed register = %d, want 201", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	_, router := testEnv(t, "secret123")
	if w := do(t, router, http.MethodGet, "/notes", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("unauthed = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	_, router := testEnv(t, "secret123")
	w := do(t, router, http.MethodGet, "/notes", nil, "Authorization", "Bearer wrong")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
}

// SSE endpoint auth tests.

func sseStub() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		<-r.Context().Done()
	})
}

func TestSSEEvents_AuthProtected(t *testing.T) {
	_, router := testEnvWithSSE(t, "secret", sseStub())
	if w := do(t, router, http.MethodGet, "/events", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("SSE no auth = %d, want 401", w.Code)
	}
}

func TestSSEEvents_NoSessionRequired(t *testing.T) {
	_, router := testEnvWithSSE(t, "tok", sseStub())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("SSE with valid token = %d, want 200", w.Code)
	}
}
