package users

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

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

// Service handles user business logic.
type Service struct {
	repo   RepositoryPort
	authz  Authorizer
	audit  AuditRecorder
	logger *slog.Logger
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, authz Authorizer, audit AuditRecorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, authz: authz, audit: audit, logger: logger}
}

// List returns one page of users.
func (s *Service) List(ctx context.Context, p rbac.Principal, page, perPage int) (Page, error) {
	if err := s.authz.Enforce(ctx, p, rbac.ModelUser, rbac.OpRead); err != nil {
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
	return Page{Items: items, Page: meta.Page, PerPage: meta.PerPage, Total: meta.Total, TotalPages: meta.TotalPages}, nil
}

// Get returns a single user.
func (s *Service) Get(ctx context.Context, p rbac.Principal, id int64) (User, error) {
	if err := s.authz.Enforce(ctx, p, rbac.ModelUser, rbac.OpRead); err != nil {
		return User{}, err
	}
	user, err := s.repo.Get(ctx, id)
	if err != nil {
		return User{}, dataErr(err)
	}
	return user, nil
}

// UpdateRole assigns a new role. Tokens issued earlier keep their old role until they expire.
func (s *Service) UpdateRole(ctx context.Context, p rbac.Principal, id int64, raw string) (User, error) {
	if err := s.authz.Enforce(ctx, p, rbac.ModelUser, rbac.OpUpdate); err != nil {
		return User{}, err
	}
	role, err := rbac.ParseRole(raw)
	if err != nil {
		return User{}, shared.Validation("role must be USER or ADMIN")
	}
	user, err := s.repo.UpdateRole(ctx, id, role)
	if err != nil {
		return User{}, dataErr(err)
	}
	s.record(ctx, p, "user.role_update", id, map[string]any{"role": role})
	return user, nil
}

// Delete removes a user account.
func (s *Service) Delete(ctx context.Context, p rbac.Principal, id int64) error {
	if err := s.authz.Enforce(ctx, p, rbac.ModelUser, rbac.OpDelete); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return dataErr(err)
	}
	s.record(ctx, p, "user.delete", id, nil)
	return nil
}

func (s *Service) record(ctx context.Context, p rbac.Principal, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  p.ID,
		Action:   action,
		Entity:   rbac.ModelUser,
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
	})
	if err != nil {
		s.logger.WarnContext(ctx, "audit record failed", slog.String("action", action), slog.Any("error", err))
	}
}

func dataErr(err error) error {
	if errors.Is(err, shared.ErrNotFound) {
		return err
	}
	return shared.Unavailable(err)
}
