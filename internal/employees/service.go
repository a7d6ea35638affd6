package employees

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/odyssey-hr/internal/rbac"
	"github.com/odyssey-erp/odyssey-hr/internal/shared"
)

const maxPerPage = 100

// Authorizer decides whether a principal may run an operation on a model.
type Authorizer interface {
	Enforce(ctx context.Context, p rbac.Principal, model string, op rbac.Operation) error
}

// AuditRecorder persists mutation history.
type AuditRecorder interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service applies access checks and validation around the employee repository.
type Service struct {
	repo     Repository
	authz    Authorizer
	audit    AuditRecorder
	logger   *slog.Logger
	validate *validator.Validate
}

// NewService constructs a Service. audit may be nil.
func NewService(repo Repository, authz Authorizer, audit AuditRecorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, authz: authz, audit: audit, logger: logger, validate: validator.New()}
}

// List returns one page of employees ordered by id.
func (s *Service) List(ctx context.Context, p rbac.Principal, page, perPage int) (Page, error) {
	if err := s.authz.Enforce(ctx, p, rbac.ModelEmployee, rbac.OpRead); err != nil {
		return Page{}, err
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	meta := shared.NewPagination(page, perPage, 0)
	items, total, err := s.repo.List(ctx, meta.PerPage, (meta.Page-1)*meta.PerPage)
	if err != nil {
		return Page{}, dataErr(err)
	}
	meta = shared.NewPagination(meta.Page, meta.PerPage, total)
	return Page{
		Items:      items,
		Page:       meta.Page,
		PerPage:    meta.PerPage,
		Total:      meta.Total,
		TotalPages: meta.TotalPages,
	}, nil
}

// Get returns a single employee.
func (s *Service) Get(ctx context.Context, p rbac.Principal, id int64) (Employee, error) {
	if err := s.authz.Enforce(ctx, p, rbac.ModelEmployee, rbac.OpRead); err != nil {
		return Employee{}, err
	}
	e, err := s.repo.Get(ctx, id)
	if err != nil {
		return Employee{}, dataErr(err)
	}
	return e, nil
}

// Create stores a new employee for an existing user.
func (s *Service) Create(ctx context.Context, p rbac.Principal, in Input) (Employee, error) {
	if err := s.authz.Enforce(ctx, p, rbac.ModelEmployee, rbac.OpCreate); err != nil {
		return Employee{}, err
	}
	in, err := s.clean(in)
	if err != nil {
		return Employee{}, err
	}
	created, err := s.repo.Create(ctx, in)
	if err != nil {
		return Employee{}, dataErr(err)
	}
	s.record(ctx, p, "employee.create", created.ID, map[string]any{"userId": created.UserID})
	return created, nil
}

// Update replaces the writable fields of an employee.
func (s *Service) Update(ctx context.Context, p rbac.Principal, id int64, in Input) (Employee, error) {
	if err := s.authz.Enforce(ctx, p, rbac.ModelEmployee, rbac.OpUpdate); err != nil {
		return Employee{}, err
	}
	in, err := s.clean(in)
	if err != nil {
		return Employee{}, err
	}
	updated, err := s.repo.Update(ctx, id, in)
	if err != nil {
		return Employee{}, dataErr(err)
	}
	s.record(ctx, p, "employee.update", id, nil)
	return updated, nil
}

// Delete removes an employee.
func (s *Service) Delete(ctx context.Context, p rbac.Principal, id int64) error {
	if err := s.authz.Enforce(ctx, p, rbac.ModelEmployee, rbac.OpDelete); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return dataErr(err)
	}
	s.record(ctx, p, "employee.delete", id, nil)
	return nil
}

func (s *Service) clean(in Input) (Input, error) {
	in.Department = strings.TrimSpace(in.Department)
	if err := s.validate.Struct(in); err != nil {
		return Input{}, shared.ValidationFromStruct(err)
	}
	return in, nil
}

func (s *Service) record(ctx context.Context, p rbac.Principal, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  p.ID,
		Action:   action,
		Entity:   rbac.ModelEmployee,
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
	})
	if err != nil {
		s.logger.WarnContext(ctx, "audit record failed", slog.String("action", action), slog.Any("error", err))
	}
}

func dataErr(err error) error {
	if errors.Is(err, shared.ErrNotFound) || errors.Is(err, shared.ErrDenied) {
		return err
	}
	return shared.Unavailable(err)
}
