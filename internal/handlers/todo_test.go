package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/3alqassab/todo-app/internal/auth"
	dom "github.com/3alqassab/todo-app/internal/domain"
	"github.com/3alqassab/todo-app/internal/dto"
	"github.com/3alqassab/todo-app/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type memTodoRepo struct {
	todos map[uuid.UUID]dom.Todo
}

func newMemTodoRepo() *memTodoRepo {
	return &memTodoRepo{todos: make(map[uuid.UUID]dom.Todo)}
}

func (r *memTodoRepo) Create(_ context.Context, t dom.Todo) (dom.Todo, error) {
	t.ID = uuid.New()
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now
	r.todos[t.ID] = t
	return t, nil
}

func (r *memTodoRepo) GetByID(_ context.Context, id uuid.UUID) (dom.Todo, error) {
	t, ok := r.todos[id]
	if !ok {
		return dom.Todo{}, pgx.ErrNoRows
	}
	return t, nil
}

func (r *memTodoRepo) ListByOwner(_ context.Context, ownerID uuid.UUID) ([]dom.Todo, error) {
	var list []dom.Todo
	for _, t := range r.todos {
		if t.OwnerID == ownerID {
			list = append(list, t)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Deadline.Before(list[j].Deadline) })
	return list, nil
}

func (r *memTodoRepo) Overdue(ctx context.Context, ownerID uuid.UUID) ([]dom.Todo, error) {
	all, _ := r.ListByOwner(ctx, ownerID)
	var list []dom.Todo
	for _, t := range all {
		if t.Status == dom.StatusNotCompleted && t.Deadline.Before(time.Now()) {
			list = append(list, t)
		}
	}
	return list, nil
}

func (r *memTodoRepo) Update(_ context.Context, id uuid.UUID, patch dom.Todo) (dom.Todo, error) {
	existing, ok := r.todos[id]
	if !ok {
		return dom.Todo{}, pgx.ErrNoRows
	}
	patch.ID = existing.ID
	patch.OwnerID = existing.OwnerID
	patch.CreatedAt = existing.CreatedAt
	patch.UpdatedAt = time.Now().UTC()
	r.todos[id] = patch
	return patch, nil
}

func (r *memTodoRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.todos, id)
	return nil
}

type fakeSessions map[string]uuid.UUID

func (f fakeSessions) GetUserID(_ context.Context, sessionID string) (uuid.UUID, bool) {
	id, ok := f[sessionID]
	return id, ok
}

// todoTestEnv wires the real service over in-memory storage behind the
// real session middleware, the same shape app.Setup builds.
type todoTestEnv struct {
	router   *gin.Engine
	sessions fakeSessions
}

func newTodoTestEnv() *todoTestEnv {
	gin.SetMode(gin.TestMode)
	sessions := fakeSessions{}
	svc := service.NewTodoService(newMemTodoRepo(), nil)
	h := NewTodoHandler(svc)

	r := gin.New()
	r.HandleMethodNotAllowed = true
	protected := r.Group("", auth.RequireSession(sessions))
	protected.POST("/todos", h.Create)
	protected.GET("/todos", h.List)
	protected.GET("/todos/overdue", h.Overdue)
	protected.GET("/todos/:id", h.GetByID)
	protected.PUT("/todos/:id", h.Update)
	protected.DELETE("/todos/:id", h.Delete)
	return &todoTestEnv{router: r, sessions: sessions}
}

// loginAs registers a fake session and returns its cookie value.
func (e *todoTestEnv) loginAs(userID uuid.UUID) string {
	sid := "sess-" + userID.String()
	e.sessions[sid] = userID
	return sid
}

func (e *todoTestEnv) do(t *testing.T, method, path, sessionID, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if sessionID != "" {
		req.AddCookie(&http.Cookie{Name: "session_id", Value: sessionID})
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *todoTestEnv) createTodo(t *testing.T, sessionID, title, deadline string) dto.TodoResponse {
	t.Helper()
	w := e.do(t, http.MethodPost, "/todos", sessionID,
		`{"title":"`+title+`","deadline":"`+deadline+`"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create todo: status = %d, body %s", w.Code, w.Body.String())
	}
	var resp dto.TodoResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("create todo: %v", err)
	}
	return resp
}

func TestTodoRoutesRequireSession(t *testing.T) {
	env := newTodoTestEnv()
	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/todos"},
		{http.MethodGet, "/todos/overdue"},
		{http.MethodGet, "/todos/" + uuid.NewString()},
		{http.MethodPost, "/todos"},
		{http.MethodPut, "/todos/" + uuid.NewString()},
		{http.MethodDelete, "/todos/" + uuid.NewString()},
	}
	for _, p := range paths {
		t.Run(p.method+" "+p.path, func(t *testing.T) {
			w := env.do(t, p.method, p.path, "", "")
			if w.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", w.Code)
			}
		})
	}
}

func TestTodoMethodNotAllowed(t *testing.T) {
	env := newTodoTestEnv()
	w := env.do(t, http.MethodPatch, "/todos", "", "")
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", w.Code)
	}
}

func TestListEmpty(t *testing.T) {
	env := newTodoTestEnv()
	sid := env.loginAs(uuid.New())

	w := env.do(t, http.MethodGet, "/todos", sid, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if got := strings.TrimSpace(w.Body.String()); got != "[]" {
		t.Errorf("body = %s, want empty JSON array", got)
	}
}

func TestCreateTodo(t *testing.T) {
	env := newTodoTestEnv()
	sid := env.loginAs(uuid.New())

	t.Run("created with defaults", func(t *testing.T) {
		resp := env.createTodo(t, sid, "Buy milk", "2027-01-02")
		if resp.Status != string(dom.StatusNotCompleted) {
			t.Errorf("status = %q, want NOT_COMPLETED", resp.Status)
		}
		if resp.ID == uuid.Nil {
			t.Error("id not assigned")
		}
	})

	t.Run("missing title", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/todos", sid, `{"deadline":"2027-01-02"}`)
		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", w.Code)
		}
	})

	t.Run("missing deadline", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/todos", sid, `{"title":"No deadline"}`)
		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", w.Code)
		}
	})

	t.Run("bad deadline format", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/todos", sid, `{"title":"x","deadline":"next tuesday"}`)
		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", w.Code)
		}
	})
}

func TestListOrderedByDeadline(t *testing.T) {
	env := newTodoTestEnv()
	sid := env.loginAs(uuid.New())

	env.createTodo(t, sid, "Third", "2027-03-01")
	env.createTodo(t, sid, "First", "2027-01-01")
	env.createTodo(t, sid, "Second", "2027-02-01")

	w := env.do(t, http.MethodGet, "/todos", sid, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var list []dto.TodoResponse
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	want := []string{"First", "Second", "Third"}
	if len(list) != 3 {
		t.Fatalf("len = %d, want 3", len(list))
	}
	for i, title := range want {
		if list[i].Title != title {
			t.Errorf("list[%d].Title = %q, want %q", i, list[i].Title, title)
		}
	}
}

func TestUpdateTransitions(t *testing.T) {
	env := newTodoTestEnv()
	sid := env.loginAs(uuid.New())
	todo := env.createTodo(t, sid, "Buy milk", "2027-01-02")
	path := "/todos/" + todo.ID.String()

	put := func(t *testing.T, body string) *httptest.ResponseRecorder {
		t.Helper()
		return env.do(t, http.MethodPut, path, sid, body)
	}

	t.Run("archive before completion", func(t *testing.T) {
		if w := put(t, `{"status":"ARCHIVED"}`); w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", w.Code)
		}
	})

	t.Run("complete then archive", func(t *testing.T) {
		if w := put(t, `{"status":"COMPLETED"}`); w.Code != http.StatusCreated {
			t.Fatalf("complete: status = %d, body %s", w.Code, w.Body.String())
		}
		w := put(t, `{"status":"ARCHIVED"}`)
		if w.Code != http.StatusCreated {
			t.Fatalf("archive: status = %d", w.Code)
		}
		var resp dto.TodoResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatal(err)
		}
		if resp.Status != string(dom.StatusArchived) {
			t.Errorf("status = %q, want ARCHIVED", resp.Status)
		}
	})

	t.Run("second archive", func(t *testing.T) {
		if w := put(t, `{"status":"ARCHIVED"}`); w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", w.Code)
		}
	})

	t.Run("unknown status value", func(t *testing.T) {
		if w := put(t, `{"status":"DONE"}`); w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", w.Code)
		}
	})
}

func TestOwnershipOnWire(t *testing.T) {
	env := newTodoTestEnv()
	aliceSid := env.loginAs(uuid.New())
	bobSid := env.loginAs(uuid.New())

	todo := env.createTodo(t, aliceSid, "Alice's todo", "2027-01-02")
	path := "/todos/" + todo.ID.String()

	t.Run("get", func(t *testing.T) {
		if w := env.do(t, http.MethodGet, path, bobSid, ""); w.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", w.Code)
		}
	})
	t.Run("update", func(t *testing.T) {
		if w := env.do(t, http.MethodPut, path, bobSid, `{"title":"mine now"}`); w.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", w.Code)
		}
	})
	t.Run("delete", func(t *testing.T) {
		if w := env.do(t, http.MethodDelete, path, bobSid, ""); w.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", w.Code)
		}
	})
	t.Run("list", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/todos", bobSid, "")
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
		if got := strings.TrimSpace(w.Body.String()); got != "[]" {
			t.Errorf("bob sees alice's todos: %s", got)
		}
	})
	t.Run("owner still has it", func(t *testing.T) {
		if w := env.do(t, http.MethodGet, path, aliceSid, ""); w.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", w.Code)
		}
	})
}

func TestDeleteTodo(t *testing.T) {
	env := newTodoTestEnv()
	sid := env.loginAs(uuid.New())
	todo := env.createTodo(t, sid, "Delete me", "2027-01-02")
	path := "/todos/" + todo.ID.String()

	w := env.do(t, http.MethodDelete, path, sid, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", w.Code)
	}
	var resp dto.TodoResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.ID != todo.ID || resp.Title != "Delete me" {
		t.Errorf("delete response = %+v, want the deleted record", resp)
	}

	if w := env.do(t, http.MethodGet, path, sid, ""); w.Code != http.StatusNotFound {
		t.Errorf("get after delete: status = %d, want 404", w.Code)
	}
}

func TestInvalidID(t *testing.T) {
	env := newTodoTestEnv()
	sid := env.loginAs(uuid.New())

	if w := env.do(t, http.MethodPut, "/todos/not-a-uuid", sid, `{"title":"x"}`); w.Code != http.StatusBadRequest {
		t.Errorf("put: status = %d, want 400", w.Code)
	}
	if w := env.do(t, http.MethodGet, "/todos/"+uuid.NewString(), sid, ""); w.Code != http.StatusNotFound {
		t.Errorf("get unknown: status = %d, want 404", w.Code)
	}
}

func TestOverdueRoute(t *testing.T) {
	env := newTodoTestEnv()
	sid := env.loginAs(uuid.New())

	past := time.Now().UTC().Add(-48 * time.Hour).Format(time.RFC3339)
	env.createTodo(t, sid, "Late", past)
	env.createTodo(t, sid, "Future", "2099-01-01")

	w := env.do(t, http.MethodGet, "/todos/overdue", sid, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var list []dto.TodoResponse
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].Title != "Late" {
		t.Errorf("overdue = %+v, want only the late todo", list)
	}
}
