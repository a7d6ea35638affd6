package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/odyssey-erp/odyssey-hr/internal/app"
	"github.com/odyssey-erp/odyssey-hr/internal/audit"
	audithttp "github.com/odyssey-erp/odyssey-hr/internal/audit/http"
	"github.com/odyssey-erp/odyssey-hr/internal/auth"
	"github.com/odyssey-erp/odyssey-hr/internal/employees"
	"github.com/odyssey-erp/odyssey-hr/internal/rbac"
	"github.com/odyssey-erp/odyssey-hr/internal/shared"
	"github.com/odyssey-erp/odyssey-hr/internal/token"
	"github.com/odyssey-erp/odyssey-hr/jobs"
	_ "github.com/odyssey-erp/odyssey-hr/testing"
)

// world is an in-memory stand-in for Postgres shared by every repository.
type world struct {
	mu        sync.Mutex
	users     map[string]auth.User
	employees map[int64]employees.Employee
	logs      []shared.AuditLog
	nextUser  int64
	nextEmp   int64
}

func newWorld() *world {
	return &world{users: map[string]auth.User{}, employees: map[int64]employees.Employee{}}
}

func (w *world) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	u, ok := w.users[email]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &u, nil
}

func (w *world) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.users[email]
	return ok, nil
}

func (w *world) Create(ctx context.Context, u auth.User) (auth.User, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.nextUser++
	u.ID = w.nextUser
	u.IsActive = true
	w.users[u.Email] = u
	return u, nil
}

func (w *world) Record(ctx context.Context, log shared.AuditLog) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if log.At.IsZero() {
		log.At = time.Now().UTC()
	}
	w.logs = append(w.logs, log)
	return nil
}

func (w *world) Prune(ctx context.Context, before time.Time) (int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	kept := w.logs[:0]
	var removed int64
	for _, l := range w.logs {
		if l.At.Before(before) {
			removed++
			continue
		}
		kept = append(kept, l)
	}
	w.logs = kept
	return removed, nil
}

func (w *world) TimelineWindow(ctx context.Context, arg audit.WindowParams) ([]audit.TimelineRow, error) {
	rows, _ := w.TimelineAll(ctx, arg)
	start := int(arg.OffsetRows)
	if start > len(rows) {
		return nil, nil
	}
	end := start + int(arg.LimitRows)
	if end > len(rows) {
		end = len(rows)
	}
	return rows[start:end], nil
}

func (w *world) TimelineAll(ctx context.Context, arg audit.WindowParams) ([]audit.TimelineRow, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	var rows []audit.TimelineRow
	for _, l := range w.logs {
		if arg.FromAt.Valid && l.At.Before(arg.FromAt.Time) {
			continue
		}
		if arg.ToAt.Valid && !l.At.Before(arg.ToAt.Time) {
			continue
		}
		if arg.Entity.Valid && l.Entity != arg.Entity.String {
			continue
		}
		if arg.Actor.Valid && l.ActorID != arg.Actor.String {
			continue
		}
		if arg.Action.Valid && l.Action != arg.Action.String {
			continue
		}
		rows = append(rows, audit.TimelineRow{At: l.At, Actor: l.ActorID, Action: l.Action, Entity: l.Entity, EntityID: l.EntityID, Meta: l.Meta})
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].At.After(rows[j].At) })
	return rows, nil
}

// employeeStore implements employees.Repository against the world.
type employeeStore struct{ *world }

func (s employeeStore) userExists(id int64) bool {
	for _, u := range s.users {
		if u.ID == id {
			return true
		}
	}
	return false
}

func (s employeeStore) List(ctx context.Context, limit, offset int) ([]employees.Employee, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := make([]employees.Employee, 0, len(s.employees))
	for _, e := range s.employees {
		items = append(items, e)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	total := len(items)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return items[offset:end], total, nil
}

func (s employeeStore) Get(ctx context.Context, id int64) (employees.Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.employees[id]
	if !ok {
		return employees.Employee{}, shared.ErrNotFound
	}
	return e, nil
}

func (s employeeStore) Create(ctx context.Context, in employees.Input) (employees.Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.userExists(in.UserID) {
		return employees.Employee{}, shared.ErrNotFound
	}
	s.nextEmp++
	now := time.Now().UTC()
	e := employees.Employee{ID: s.nextEmp, UserID: in.UserID, Department: in.Department, Allowances: in.Allowances,
		PayDate: in.PayDate, BasicSalary: in.BasicSalary, CreatedAt: now, UpdatedAt: now}
	s.employees[e.ID] = e
	return e, nil
}

func (s employeeStore) Update(ctx context.Context, id int64, in employees.Input) (employees.Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.employees[id]
	if !ok {
		return employees.Employee{}, shared.ErrNotFound
	}
	e.Department, e.Allowances, e.PayDate, e.BasicSalary = in.Department, in.Allowances, in.PayDate, in.BasicSalary
	e.UpdatedAt = time.Now().UTC()
	s.employees[id] = e
	return e, nil
}

func (s employeeStore) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.employees[id]; !ok {
		return shared.ErrNotFound
	}
	delete(s.employees, id)
	return nil
}

// inlineQueue runs enqueued tasks immediately, the way the worker would.
type inlineQueue struct {
	tasks *jobs.Tasks
	mux   *asynq.ServeMux
}

func newInlineQueue(tasks *jobs.Tasks) *inlineQueue {
	mux := asynq.NewServeMux()
	for _, h := range tasks.Handlers() {
		mux.HandleFunc(h.Type, h.Handler)
	}
	return &inlineQueue{tasks: tasks, mux: mux}
}

func (q *inlineQueue) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if err := q.mux.ProcessTask(ctx, task); err != nil {
		return nil, err
	}
	return &asynq.TaskInfo{Type: task.Type(), Queue: jobs.QueueDefault}, nil
}

func (q *inlineQueue) Close() error { return nil }

type client struct {
	t       *testing.T
	handler http.Handler
}

func (c client) do(method, target, body, bearer string) *httptest.ResponseRecorder {
	c.t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rr := httptest.NewRecorder()
	c.handler.ServeHTTP(rr, req)
	return rr
}

func (c client) signupAndLogin(name, email, role string) string {
	c.t.Helper()
	body := fmt.Sprintf(`{"userName":%q,"email":%q,"password":"s3cret-pass","role":%q}`, name, email, role)
	rr := c.do(http.MethodPost, "/auth/signup", body, "")
	require.Equal(c.t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = c.do(http.MethodPost, "/auth/login", fmt.Sprintf(`{"email":%q,"password":"s3cret-pass"}`, email), "")
	require.Equal(c.t, http.StatusOK, rr.Code, rr.Body.String())
	var login struct {
		Token string `json:"token"`
	}
	require.NoError(c.t, json.Unmarshal(rr.Body.Bytes(), &login))
	return login.Token
}

func newClient(t *testing.T, w *world) client {
	t.Helper()
	registry := rbac.NewRegistry(rbac.BuiltinModels()...)
	for role, rules := range rbac.DefaultProfiles() {
		require.NoError(t, registry.Register(role, rules))
	}
	enforcer := rbac.NewEnforcer(registry, nil, nil)
	mw := rbac.Middleware{Enforcer: enforcer}

	codec, err := token.NewCodec("e2e-secret-e2e-secret-e2e-secret")
	require.NoError(t, err)

	queue := newInlineQueue(&jobs.Tasks{Audit: w, Retention: 24 * time.Hour})
	authService := auth.NewService(w, codec, auth.ServiceConfig{
		BcryptCost: bcrypt.MinCost,
		Notifier:   jobs.NewClientWith(queue),
	})
	employeesService := employees.NewService(employeeStore{w}, enforcer, w, nil)
	auditService := audit.NewService(w, enforcer)

	handler := app.NewRouter(app.RouterParams{
		Config:             &app.Config{AppEnv: "test"},
		Resolver:           auth.NewResolver(codec, rbac.Anonymous(), nil),
		AuthHandler:        auth.NewHandler(nil, authService, mw, 0),
		EmployeesHandler:   employees.NewHandler(nil, employeesService),
		PermissionsHandler: rbac.NewPermissionsHandler(registry, mw),
		AuditHandler:       audithttp.NewHandler(nil, auditService, mw),
	})
	return client{t: t, handler: handler}
}

func TestEmployeeLifecycleIsAudited(t *testing.T) {
	w := newWorld()
	c := newClient(t, w)

	userToken := c.signupAndLogin("Ana", "ana@odyssey.local", "")
	adminToken := c.signupAndLogin("Root", "root@odyssey.local", "ADMIN")

	rr := c.do(http.MethodPost, "/employees", `{"userId":1,"department":"Finance","allowances":100,"payDate":25,"basicSalary":5000}`, userToken)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var created employees.Employee
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))

	assert.Equal(t, http.StatusForbidden, c.do(http.MethodPut, fmt.Sprintf("/employees/%d", created.ID), `{"userId":1,"department":"Ops","payDate":1}`, userToken).Code)
	assert.Equal(t, http.StatusForbidden, c.do(http.MethodGet, "/audit", "", userToken).Code)

	rr = c.do(http.MethodPut, fmt.Sprintf("/employees/%d", created.ID), `{"userId":1,"department":"Ops","payDate":1}`, adminToken)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, http.StatusNoContent, c.do(http.MethodDelete, fmt.Sprintf("/employees/%d", created.ID), "", adminToken).Code)
	assert.Equal(t, http.StatusNotFound, c.do(http.MethodGet, fmt.Sprintf("/employees/%d", created.ID), "", userToken).Code)

	rr = c.do(http.MethodGet, "/audit?entity=Employee", "", adminToken)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var timeline audit.Result
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &timeline))
	actions := make([]string, 0, len(timeline.Rows))
	for _, row := range timeline.Rows {
		actions = append(actions, row.Action)
	}
	assert.ElementsMatch(t, []string{"employee.create", "employee.update", "employee.delete"}, actions)

	rr = c.do(http.MethodGet, "/audit?action=user.welcome", "", adminToken)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &timeline))
	assert.Len(t, timeline.Rows, 2, "every signup triggers a welcome task")

	rr = c.do(http.MethodGet, "/audit/export.csv?entity=Employee", "", adminToken)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 4, strings.Count(rr.Body.String(), "\n"), "header plus three rows")
}

func TestAnonymousCallerCannotReachGuardedData(t *testing.T) {
	c := newClient(t, newWorld())

	for _, target := range []string{"/employees", "/employees/1", "/audit", "/audit/export.csv"} {
		rr := c.do(http.MethodGet, target, "", "")
		assert.Equal(t, http.StatusForbidden, rr.Code, target)
	}
	assert.Equal(t, http.StatusUnauthorized, c.do(http.MethodGet, "/permissions", "", "").Code)
}
