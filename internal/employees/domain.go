package employees

import "time"

// Employee is the payroll record attached to a user account.
type Employee struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"userId"`
	Department  string    `json:"department"`
	Allowances  float64   `json:"allowances"`
	PayDate     int       `json:"payDate"`
	BasicSalary float64   `json:"basicSalary"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Input carries the writable fields of an Employee.
type Input struct {
	UserID      int64   `json:"userId" validate:"gt=0"`
	Department  string  `json:"department" validate:"required,max=120"`
	Allowances  float64 `json:"allowances" validate:"gte=0"`
	PayDate     int     `json:"payDate" validate:"min=1,max=31"`
	BasicSalary float64 `json:"basicSalary" validate:"gte=0"`
}

// Page is one slice of a listing.
type Page struct {
	Items      []Employee `json:"items"`
	Page       int        `json:"page"`
	PerPage    int        `json:"perPage"`
	Total      int        `json:"total"`
	TotalPages int        `json:"totalPages"`
}
