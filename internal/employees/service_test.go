package employees

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-hr/internal/rbac"
	"github.com/odyssey-erp/odyssey-hr/internal/shared"
	_ "github.com/odyssey-erp/odyssey-hr/testing"
)

type memoryRepo struct {
	mu     sync.Mutex
	items  map[int64]Employee
	users  map[int64]bool
	nextID int64
	err    error
	calls  int
}

func newMemoryRepo(userIDs ...int64) *memoryRepo {
	users := make(map[int64]bool, len(userIDs))
	for _, id := range userIDs {
		users[id] = true
	}
	return &memoryRepo{items: map[int64]Employee{}, users: users, nextID: 1}
}

func (m *memoryRepo) List(ctx context.Context, limit, offset int) ([]Employee, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, 0, m.err
	}
	ids := make([]int64, 0, len(m.items))
	for id := range m.items {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := []Employee{}
	for i := offset; i < len(ids) && len(out) < limit; i++ {
		out = append(out, m.items[ids[i]])
	}
	return out, len(ids), nil
}

func (m *memoryRepo) Get(ctx context.Context, id int64) (Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return Employee{}, m.err
	}
	e, ok := m.items[id]
	if !ok {
		return Employee{}, shared.ErrNotFound
	}
	return e, nil
}

func (m *memoryRepo) Create(ctx context.Context, in Input) (Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return Employee{}, m.err
	}
	if !m.users[in.UserID] {
		return Employee{}, shared.ErrNotFound
	}
	e := fromInput(m.nextID, in)
	m.items[e.ID] = e
	m.nextID++
	return e, nil
}

func (m *memoryRepo) Update(ctx context.Context, id int64, in Input) (Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return Employee{}, m.err
	}
	if _, ok := m.items[id]; !ok {
		return Employee{}, shared.ErrNotFound
	}
	e := fromInput(id, in)
	m.items[id] = e
	return e, nil
}

func (m *memoryRepo) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return m.err
	}
	if _, ok := m.items[id]; !ok {
		return shared.ErrNotFound
	}
	delete(m.items, id)
	return nil
}

func fromInput(id int64, in Input) Employee {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return Employee{
		ID:          id,
		UserID:      in.UserID,
		Department:  in.Department,
		Allowances:  in.Allowances,
		PayDate:     in.PayDate,
		BasicSalary: in.BasicSalary,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

type memoryAudit struct {
	logs []shared.AuditLog
	err  error
}

func (a *memoryAudit) Record(ctx context.Context, log shared.AuditLog) error {
	a.logs = append(a.logs, log)
	return a.err
}

var (
	admin = rbac.Principal{ID: "1", Role: rbac.RoleAdmin}
	user  = rbac.Principal{ID: "2", Role: rbac.RoleUser}
)

func newEnforcer(t *testing.T) *rbac.Enforcer {
	t.Helper()
	registry := rbac.NewRegistry(rbac.BuiltinModels()...)
	for role, rules := range rbac.DefaultProfiles() {
		require.NoError(t, registry.Register(role, rules))
	}
	return rbac.NewEnforcer(registry, nil, nil)
}

func validInput() Input {
	return Input{UserID: 2, Department: "Engineering", Allowances: 1500, PayDate: 25, BasicSalary: 42000}
}

func TestServiceCreateAndGet(t *testing.T) {
	repo := newMemoryRepo(2)
	audit := &memoryAudit{}
	svc := NewService(repo, newEnforcer(t), audit, nil)
	ctx := context.Background()

	in := validInput()
	in.Department = "  Engineering "
	created, err := svc.Create(ctx, user, in)
	require.NoError(t, err)
	assert.Equal(t, "Engineering", created.Department)

	got, err := svc.Get(ctx, user, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)

	require.Len(t, audit.logs, 1)
	assert.Equal(t, "2", audit.logs[0].ActorID)
	assert.Equal(t, "employee.create", audit.logs[0].Action)
	assert.Equal(t, "Employee", audit.logs[0].Entity)
}

func TestServiceDeniesBeforeTouchingData(t *testing.T) {
	repo := newMemoryRepo(2)
	svc := NewService(repo, newEnforcer(t), nil, nil)
	ctx := context.Background()

	_, err := svc.Update(ctx, user, 1, validInput())
	assert.Same(t, shared.ErrForbidden, err)
	assert.Same(t, shared.ErrForbidden, svc.Delete(ctx, user, 1))

	anon := rbac.Anonymous()
	_, err = svc.List(ctx, anon, 1, 10)
	assert.ErrorIs(t, err, shared.ErrDenied)
	_, err = svc.Create(ctx, anon, validInput())
	assert.ErrorIs(t, err, shared.ErrDenied)

	assert.Zero(t, repo.calls)
}

func TestServiceAdminLifecycle(t *testing.T) {
	repo := newMemoryRepo(2)
	svc := NewService(repo, newEnforcer(t), nil, nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, admin, validInput())
	require.NoError(t, err)

	in := validInput()
	in.BasicSalary = 50000
	updated, err := svc.Update(ctx, admin, created.ID, in)
	require.NoError(t, err)
	assert.Equal(t, 50000.0, updated.BasicSalary)

	require.NoError(t, svc.Delete(ctx, admin, created.ID))
	_, err = svc.Get(ctx, admin, created.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, admin, created.ID), shared.ErrNotFound)
}

func TestServiceCreateRequiresExistingUser(t *testing.T) {
	svc := NewService(newMemoryRepo(2), newEnforcer(t), nil, nil)
	in := validInput()
	in.UserID = 99

	_, err := svc.Create(context.Background(), admin, in)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestServiceValidation(t *testing.T) {
	repo := newMemoryRepo(2)
	svc := NewService(repo, newEnforcer(t), nil, nil)
	cases := map[string]func(*Input){
		"missing user":        func(in *Input) { in.UserID = 0 },
		"blank department":    func(in *Input) { in.Department = "   " },
		"negative allowances": func(in *Input) { in.Allowances = -1 },
		"negative salary":     func(in *Input) { in.BasicSalary = -0.01 },
		"pay date zero":       func(in *Input) { in.PayDate = 0 },
		"pay date too late":   func(in *Input) { in.PayDate = 32 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := validInput()
			mutate(&in)
			_, err := svc.Create(context.Background(), admin, in)
			assert.ErrorIs(t, err, shared.ErrValidation)
		})
	}
	assert.Zero(t, repo.calls)
}

func TestServiceListPaginates(t *testing.T) {
	repo := newMemoryRepo(2)
	svc := NewService(repo, newEnforcer(t), nil, nil)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := svc.Create(ctx, admin, validInput())
		require.NoError(t, err)
	}

	page, err := svc.List(ctx, user, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, 5, page.Total)
	assert.Equal(t, 3, page.TotalPages)
	require.Len(t, page.Items, 2)
	assert.Equal(t, int64(3), page.Items[0].ID)

	page, err = svc.List(ctx, user, 0, 1000)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, maxPerPage, page.PerPage)
	assert.Len(t, page.Items, 5)
}

func TestServiceMapsDataLayerFailure(t *testing.T) {
	repo := newMemoryRepo(2)
	repo.err = errors.New("connection refused")
	svc := NewService(repo, newEnforcer(t), nil, nil)

	_, err := svc.Get(context.Background(), admin, 1)
	assert.ErrorIs(t, err, shared.ErrServiceUnavailable)
}

func TestServiceIgnoresAuditFailure(t *testing.T) {
	audit := &memoryAudit{err: errors.New("audit table missing")}
	svc := NewService(newMemoryRepo(2), newEnforcer(t), audit, nil)

	_, err := svc.Create(context.Background(), admin, validInput())
	assert.NoError(t, err)
	assert.Len(t, audit.logs, 1)
}
