package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/sysu-ecnc-dev/shift-coordinator/backend/internal/domain"
)

const scheduleColumns = `
	title,
	department_id,
	location,
	notes,
	start_date,
	end_date,
	status,
	published_at,
	published_by,
	locked_at,
	locked_by,
	lock_reason,
	unlock_reason,
	created_at,
	version
`

func scheduleDst(s *domain.Schedule) []any {
	return []any{
		&s.Title,
		&s.DepartmentID,
		&s.Location,
		&s.Notes,
		&s.StartDate,
		&s.EndDate,
		&s.Status,
		&s.PublishedAt,
		&s.PublishedBy,
		&s.LockedAt,
		&s.LockedBy,
		&s.LockReason,
		&s.UnlockReason,
		&s.CreatedAt,
		&s.Version,
	}
}

func (r *Repository) CreateSchedule(s *domain.Schedule) error {
	query := `
		INSERT INTO schedules (tenant_id, title, department_id, location, notes, start_date, end_date, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, version
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	args := []any{s.TenantID, s.Title, s.DepartmentID, s.Location, s.Notes, s.StartDate, s.EndDate, s.Status}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(&s.ID, &s.CreatedAt, &s.Version); err != nil {
		return err
	}

	return nil
}

func (r *Repository) GetScheduleByID(tenantID int64, id int64) (*domain.Schedule, error) {
	query := `
		SELECT ` + scheduleColumns + `
		FROM schedules
		WHERE id = $1 AND tenant_id = $2 AND deleted_at IS NULL
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	s := &domain.Schedule{
		ID:       id,
		TenantID: tenantID,
	}

	if err := r.dbpool.QueryRowContext(ctx, query, id, tenantID).Scan(scheduleDst(s)...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewNotFoundError("班表不存在")
		}
		return nil, err
	}

	return s, nil
}

func (r *Repository) GetAllSchedules(tenantID int64) ([]*domain.Schedule, error) {
	query := `
		SELECT id, ` + scheduleColumns + `
		FROM schedules
		WHERE tenant_id = $1 AND deleted_at IS NULL
		ORDER BY start_date DESC
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	schedules := []*domain.Schedule{}
	for rows.Next() {
		s := &domain.Schedule{TenantID: tenantID}
		dst := append([]any{&s.ID}, scheduleDst(s)...)
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}
		schedules = append(schedules, s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return schedules, nil
}

// UpdateSchedule 带乐观锁更新，version 不匹配说明班表已被其他操作修改。
func (r *Repository) UpdateSchedule(s *domain.Schedule) error {
	query := `
		UPDATE schedules
		SET
			title = $1,
			department_id = $2,
			location = $3,
			notes = $4,
			start_date = $5,
			end_date = $6,
			status = $7,
			published_at = $8,
			published_by = $9,
			locked_at = $10,
			locked_by = $11,
			lock_reason = $12,
			unlock_reason = $13,
			version = version + 1
		WHERE id = $14 AND tenant_id = $15 AND version = $16 AND deleted_at IS NULL
		RETURNING version
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	args := []any{
		s.Title,
		s.DepartmentID,
		s.Location,
		s.Notes,
		s.StartDate,
		s.EndDate,
		s.Status,
		s.PublishedAt,
		s.PublishedBy,
		s.LockedAt,
		s.LockedBy,
		s.LockReason,
		s.UnlockReason,
		s.ID,
		s.TenantID,
		s.Version,
	}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(&s.Version); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NewStateConflictError("班表已被其他操作修改，请刷新后重试")
		}
		return err
	}

	return nil
}

func (r *Repository) SoftDeleteSchedule(s *domain.Schedule) error {
	// 级联软删除班表下的所有班次，保证班次不会脱离班表单独存在
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.TransactionTimeout)*time.Second)
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `
		UPDATE schedules
		SET deleted_at = NOW(), version = version + 1
		WHERE id = $1 AND tenant_id = $2 AND version = $3 AND deleted_at IS NULL
		RETURNING version
	`
	if err := tx.QueryRowContext(ctx, query, s.ID, s.TenantID, s.Version).Scan(&s.Version); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NewStateConflictError("班表已被其他操作修改，请刷新后重试")
		}
		return err
	}

	query = `
		UPDATE shifts
		SET deleted_at = NOW(), version = version + 1
		WHERE schedule_id = $1 AND deleted_at IS NULL
	`
	if _, err := tx.ExecContext(ctx, query, s.ID); err != nil {
		return err
	}

	return tx.Commit()
}

// HasOverlappingPublishedSchedule 检查租户内是否已有与 [startDate, endDate] 重叠的已发布班表。
// 三种重叠情形都是边界包含的：对方包含我方起点、对方包含我方终点、对方被我方完全包含。
func (r *Repository) HasOverlappingPublishedSchedule(tenantID int64, startDate time.Time, endDate time.Time, excludeID int64) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM schedules
			WHERE tenant_id = $1
				AND id <> $2
				AND status = 'published'
				AND deleted_at IS NULL
				AND (
					(start_date <= $3 AND end_date >= $3)
					OR (start_date <= $4 AND end_date >= $4)
					OR (start_date >= $3 AND end_date <= $4)
				)
		)
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	exists := false
	if err := r.dbpool.QueryRowContext(ctx, query, tenantID, excludeID, startDate, endDate).Scan(&exists); err != nil {
		return false, err
	}

	return exists, nil
}

// CreateScheduleWithShifts 在同一个事务内创建班表及其全部班次，用于班表复制。
func (r *Repository) CreateScheduleWithShifts(s *domain.Schedule, shifts []*domain.Shift) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.TransactionTimeout)*time.Second)
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `
		INSERT INTO schedules (tenant_id, title, department_id, location, notes, start_date, end_date, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, version
	`
	args := []any{s.TenantID, s.Title, s.DepartmentID, s.Location, s.Notes, s.StartDate, s.EndDate, s.Status}
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&s.ID, &s.CreatedAt, &s.Version); err != nil {
		return err
	}

	for _, shift := range shifts {
		shift.ScheduleID = s.ID
		shift.TenantID = s.TenantID
		if err := insertShiftTx(ctx, tx, shift); err != nil {
			return err
		}
	}

	return tx.Commit()
}
