package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/sysu-ecnc-dev/shift-coordinator/backend/internal/domain"
)

func (r *Repository) CreateTenant(tenant *domain.Tenant) error {
	query := `
		INSERT INTO tenants (name)
		VALUES ($1)
		RETURNING id, created_at
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	if err := r.dbpool.QueryRowContext(ctx, query, tenant.Name).Scan(&tenant.ID, &tenant.CreatedAt); err != nil {
		return err
	}

	return nil
}

func (r *Repository) GetTenantByName(name string) (*domain.Tenant, error) {
	query := `
		SELECT id, created_at
		FROM tenants
		WHERE name = $1
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	tenant := &domain.Tenant{Name: name}
	if err := r.dbpool.QueryRowContext(ctx, query, name).Scan(&tenant.ID, &tenant.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewNotFoundError("租户不存在")
		}
		return nil, err
	}

	return tenant, nil
}
