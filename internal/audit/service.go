package audit

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/odyssey-erp/odyssey-hr/internal/rbac"
	"github.com/odyssey-erp/odyssey-hr/internal/shared"
)

const (
	defaultPageSize = 20
	maxPageSize     = 50
)

// Authorizer memutuskan apakah principal boleh membaca audit trail.
type Authorizer interface {
	Enforce(ctx context.Context, p rbac.Principal, model string, op rbac.Operation) error
}

// Service mengoordinasikan pengambilan data audit.
type Service struct {
	repo  Repository
	authz Authorizer
}

// NewService membuat service audit timeline baru.
func NewService(repo Repository, authz Authorizer) *Service {
	return &Service{repo: repo, authz: authz}
}

// Timeline mengambil data audit dengan paging.
func (s *Service) Timeline(ctx context.Context, p rbac.Principal, filters TimelineFilters) (Result, error) {
	if err := s.authz.Enforce(ctx, p, rbac.ModelAuditLog, rbac.OpRead); err != nil {
		return Result{}, err
	}
	if s.repo == nil {
		return Result{}, shared.Unavailable(errors.New("audit: repository not configured"))
	}
	pageSize := filters.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	page := filters.Page
	if page <= 0 {
		page = 1
	}
	offset := int64(page-1) * int64(pageSize)
	if offset > math.MaxInt32-int64(pageSize)-1 {
		return Result{}, shared.Validation("page out of range")
	}
	params := windowParams(filters)
	params.OffsetRows = int32(offset)
	params.LimitRows = int32(pageSize + 1)

	rows, err := s.repo.TimelineWindow(ctx, params)
	if err != nil {
		return Result{}, shared.Unavailable(err)
	}
	hasNext := len(rows) > pageSize
	if hasNext {
		rows = rows[:pageSize]
	}
	if rows == nil {
		rows = []TimelineRow{}
	}
	paging := PagingInfo{Page: page, PageSize: pageSize, HasNext: hasNext}
	if page > 1 {
		paging.PrevPage = page - 1
	}
	if hasNext {
		paging.NextPage = page + 1
	}
	return Result{Rows: rows, Paging: paging}, nil
}

// Export mengambil seluruh data timeline tanpa paging.
func (s *Service) Export(ctx context.Context, p rbac.Principal, filters TimelineFilters) ([]TimelineRow, error) {
	if err := s.authz.Enforce(ctx, p, rbac.ModelAuditLog, rbac.OpRead); err != nil {
		return nil, err
	}
	if s.repo == nil {
		return nil, shared.Unavailable(errors.New("audit: repository not configured"))
	}
	rows, err := s.repo.TimelineAll(ctx, windowParams(filters))
	if err != nil {
		return nil, shared.Unavailable(err)
	}
	return rows, nil
}

func windowParams(filters TimelineFilters) WindowParams {
	return WindowParams{
		FromAt: toPgTime(filters.From),
		ToAt:   toPgTime(filters.To),
		Actor:  optionalText(filters.Actor),
		Entity: optionalText(filters.Entity),
		Action: optionalText(filters.Action),
	}
}

func toPgTime(t time.Time) pgtype.Timestamptz {
	if t.IsZero() {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: t, Valid: true}
}

func optionalText(value string) pgtype.Text {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: trimmed, Valid: true}
}
