package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/sysu-ecnc-dev/shift-coordinator/backend/internal/domain"
)

func (r *Repository) GetEmployeeByID(tenantID int64, id int64) (*domain.Employee, error) {
	query := `
		SELECT username, full_name, email, role, access_level, is_active, created_at, version
		FROM employees
		WHERE id = $1 AND tenant_id = $2 AND deleted_at IS NULL
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	employee := &domain.Employee{
		ID:       id,
		TenantID: tenantID,
	}

	dst := []any{
		&employee.Username,
		&employee.FullName,
		&employee.Email,
		&employee.Role,
		&employee.AccessLevel,
		&employee.IsActive,
		&employee.CreatedAt,
		&employee.Version,
	}
	if err := r.dbpool.QueryRowContext(ctx, query, id, tenantID).Scan(dst...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewNotFoundError("员工不存在")
		}
		return nil, err
	}

	return employee, nil
}

// GetActiveEmployeesByRole 返回租户内指定岗位的所有在职员工，excludeID 用于排除申请人自己。
func (r *Repository) GetActiveEmployeesByRole(tenantID int64, role string, excludeID int64) ([]*domain.Employee, error) {
	query := `
		SELECT id, username, full_name, email, role, access_level, is_active, created_at, version
		FROM employees
		WHERE tenant_id = $1 AND role = $2 AND id <> $3 AND is_active = TRUE AND deleted_at IS NULL
		ORDER BY id
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, tenantID, role, excludeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	employees := []*domain.Employee{}
	for rows.Next() {
		employee := &domain.Employee{TenantID: tenantID}
		dst := []any{
			&employee.ID,
			&employee.Username,
			&employee.FullName,
			&employee.Email,
			&employee.Role,
			&employee.AccessLevel,
			&employee.IsActive,
			&employee.CreatedAt,
			&employee.Version,
		}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}
		employees = append(employees, employee)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return employees, nil
}

func (r *Repository) CreateEmployee(employee *domain.Employee) error {
	query := `
		INSERT INTO employees (tenant_id, username, password_hash, full_name, email, role, access_level)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, is_active, created_at, version
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	args := []any{
		employee.TenantID,
		employee.Username,
		employee.PasswordHash,
		employee.FullName,
		employee.Email,
		employee.Role,
		employee.AccessLevel,
	}
	dst := []any{&employee.ID, &employee.IsActive, &employee.CreatedAt, &employee.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(dst...); err != nil {
		return err
	}

	return nil
}
