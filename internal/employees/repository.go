package employees

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-hr/internal/platform/db"
	"github.com/odyssey-erp/odyssey-hr/internal/shared"
)

const pgForeignKeyViolation = "23503"

const employeeColumns = `id, user_id, department, allowances, pay_date, basic_salary, created_at, updated_at`

// Repository is the persistence port of Service.
type Repository interface {
	List(ctx context.Context, limit, offset int) ([]Employee, int, error)
	Get(ctx context.Context, id int64) (Employee, error)
	Create(ctx context.Context, in Input) (Employee, error)
	Update(ctx context.Context, id int64, in Input) (Employee, error)
	Delete(ctx context.Context, id int64) error
}

// PGRepository stores employees in PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewPGRepository constructs a PostgreSQL backed repository.
func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

func (r *PGRepository) List(ctx context.Context, limit, offset int) ([]Employee, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM employees`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("employees: count: %w", err)
	}
	rows, err := r.pool.Query(ctx, `SELECT `+employeeColumns+` FROM employees ORDER BY id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("employees: list: %w", err)
	}
	defer rows.Close()
	items := make([]Employee, 0, limit)
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *PGRepository) Get(ctx context.Context, id int64) (Employee, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+employeeColumns+` FROM employees WHERE id = $1`, id)
	return mapNoRows(scanEmployee(row))
}

// Create inserts the employee once the referenced user is known to exist.
func (r *PGRepository) Create(ctx context.Context, in Input) (Employee, error) {
	var created Employee
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, in.UserID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return shared.ErrNotFound
		}
		row := tx.QueryRow(ctx, `INSERT INTO employees (user_id, department, allowances, pay_date, basic_salary)
VALUES ($1, $2, $3, $4, $5)
RETURNING `+employeeColumns, in.UserID, in.Department, in.Allowances, in.PayDate, in.BasicSalary)
		e, err := scanEmployee(row)
		if err != nil {
			return err
		}
		created = e
		return nil
	})
	if err != nil {
		return Employee{}, mapWriteErr(err)
	}
	return created, nil
}

func (r *PGRepository) Update(ctx context.Context, id int64, in Input) (Employee, error) {
	row := r.pool.QueryRow(ctx, `UPDATE employees
SET user_id = $2, department = $3, allowances = $4, pay_date = $5, basic_salary = $6, updated_at = NOW()
WHERE id = $1
RETURNING `+employeeColumns, id, in.UserID, in.Department, in.Allowances, in.PayDate, in.BasicSalary)
	e, err := mapNoRows(scanEmployee(row))
	if err != nil {
		return Employee{}, mapWriteErr(err)
	}
	return e, nil
}

func (r *PGRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM employees WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func scanEmployee(row pgx.Row) (Employee, error) {
	var e Employee
	err := row.Scan(&e.ID, &e.UserID, &e.Department, &e.Allowances, &e.PayDate, &e.BasicSalary, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

func mapNoRows(e Employee, err error) (Employee, error) {
	if errors.Is(err, pgx.ErrNoRows) {
		return Employee{}, shared.ErrNotFound
	}
	return e, err
}

func mapWriteErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
		return shared.ErrNotFound
	}
	return err
}

var _ Repository = (*PGRepository)(nil)
