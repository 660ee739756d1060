package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/sysu-ecnc-dev/shift-coordinator/backend/internal/domain"
)

// 冲突明细以 JSONB 存在班次行里，读写时在这里统一编解码。
func marshalConflicts(conflicts []domain.Conflict) ([]byte, error) {
	if conflicts == nil {
		conflicts = []domain.Conflict{}
	}
	return json.Marshal(conflicts)
}

func unmarshalConflicts(raw []byte, shift *domain.Shift) error {
	shift.ConflictDetails = []domain.Conflict{}
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, &shift.ConflictDetails)
}

const shiftColumns = `
	schedule_id,
	start_time,
	end_time,
	break_minutes,
	role,
	location,
	color,
	notes,
	employee_id,
	assignment_status,
	has_conflicts,
	conflict_details,
	created_at,
	version
`

func shiftDst(shift *domain.Shift, rawConflicts *[]byte) []any {
	return []any{
		&shift.ScheduleID,
		&shift.StartTime,
		&shift.EndTime,
		&shift.BreakMinutes,
		&shift.Role,
		&shift.Location,
		&shift.Color,
		&shift.Notes,
		&shift.EmployeeID,
		&shift.AssignmentStatus,
		&shift.HasConflicts,
		rawConflicts,
		&shift.CreatedAt,
		&shift.Version,
	}
}

func (r *Repository) GetShiftByID(tenantID int64, id int64) (*domain.Shift, error) {
	query := `
		SELECT ` + shiftColumns + `
		FROM shifts
		WHERE id = $1 AND tenant_id = $2 AND deleted_at IS NULL
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	shift := &domain.Shift{
		ID:       id,
		TenantID: tenantID,
	}

	var rawConflicts []byte
	if err := r.dbpool.QueryRowContext(ctx, query, id, tenantID).Scan(shiftDst(shift, &rawConflicts)...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewNotFoundError("班次不存在")
		}
		return nil, err
	}
	if err := unmarshalConflicts(rawConflicts, shift); err != nil {
		return nil, err
	}

	return shift, nil
}

func (r *Repository) scanShifts(rows *sql.Rows, tenantID int64) ([]*domain.Shift, error) {
	shifts := []*domain.Shift{}
	for rows.Next() {
		shift := &domain.Shift{TenantID: tenantID}
		var rawConflicts []byte
		dst := append([]any{&shift.ID}, shiftDst(shift, &rawConflicts)...)
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}
		if err := unmarshalConflicts(rawConflicts, shift); err != nil {
			return nil, err
		}
		shifts = append(shifts, shift)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return shifts, nil
}

func (r *Repository) GetShiftsByScheduleID(tenantID int64, scheduleID int64) ([]*domain.Shift, error) {
	query := `
		SELECT id, ` + shiftColumns + `
		FROM shifts
		WHERE schedule_id = $1 AND tenant_id = $2 AND deleted_at IS NULL
		ORDER BY start_time
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, scheduleID, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanShifts(rows, tenantID)
}

// GetShiftsByScheduleAndEmployee 返回班表内某员工的全部班次，冲突重算时作为候选集合。
func (r *Repository) GetShiftsByScheduleAndEmployee(tenantID int64, scheduleID int64, employeeID int64) ([]*domain.Shift, error) {
	query := `
		SELECT id, ` + shiftColumns + `
		FROM shifts
		WHERE schedule_id = $1 AND tenant_id = $2 AND employee_id = $3 AND deleted_at IS NULL
		ORDER BY start_time
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, scheduleID, tenantID, employeeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanShifts(rows, tenantID)
}

func insertShiftTx(ctx context.Context, tx *sql.Tx, shift *domain.Shift) error {
	query := `
		INSERT INTO shifts (
			tenant_id, schedule_id, start_time, end_time, break_minutes,
			role, location, color, notes, employee_id, assignment_status,
			has_conflicts, conflict_details
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, created_at, version
	`

	rawConflicts, err := marshalConflicts(shift.ConflictDetails)
	if err != nil {
		return err
	}

	args := []any{
		shift.TenantID,
		shift.ScheduleID,
		shift.StartTime,
		shift.EndTime,
		shift.BreakMinutes,
		shift.Role,
		shift.Location,
		shift.Color,
		shift.Notes,
		shift.EmployeeID,
		shift.AssignmentStatus,
		shift.HasConflicts,
		rawConflicts,
	}
	return tx.QueryRowContext(ctx, query, args...).Scan(&shift.ID, &shift.CreatedAt, &shift.Version)
}

func updateShiftConflictsTx(ctx context.Context, tx *sql.Tx, shift *domain.Shift) error {
	query := `
		UPDATE shifts
		SET has_conflicts = $1, conflict_details = $2, version = version + 1
		WHERE id = $3 AND version = $4 AND deleted_at IS NULL
		RETURNING version
	`

	rawConflicts, err := marshalConflicts(shift.ConflictDetails)
	if err != nil {
		return err
	}

	if err := tx.QueryRowContext(ctx, query, shift.HasConflicts, rawConflicts, shift.ID, shift.Version).Scan(&shift.Version); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NewStateConflictError("班次已被其他操作修改，请刷新后重试")
		}
		return err
	}

	return nil
}

// CreateShift 在同一个事务内插入班次并刷新受影响同事班次的冲突标记，
// 保证"变更后立即重算冲突"不会出现中间状态。
func (r *Repository) CreateShift(shift *domain.Shift, peers []*domain.Shift) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.TransactionTimeout)*time.Second)
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := insertShiftTx(ctx, tx, shift); err != nil {
		return err
	}

	for _, peer := range peers {
		if err := updateShiftConflictsTx(ctx, tx, peer); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *Repository) UpdateShift(shift *domain.Shift, peers []*domain.Shift) error {
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
		UPDATE shifts
		SET
			start_time = $1,
			end_time = $2,
			break_minutes = $3,
			role = $4,
			location = $5,
			color = $6,
			notes = $7,
			employee_id = $8,
			assignment_status = $9,
			has_conflicts = $10,
			conflict_details = $11,
			version = version + 1
		WHERE id = $12 AND tenant_id = $13 AND version = $14 AND deleted_at IS NULL
		RETURNING version
	`

	rawConflicts, err := marshalConflicts(shift.ConflictDetails)
	if err != nil {
		return err
	}

	args := []any{
		shift.StartTime,
		shift.EndTime,
		shift.BreakMinutes,
		shift.Role,
		shift.Location,
		shift.Color,
		shift.Notes,
		shift.EmployeeID,
		shift.AssignmentStatus,
		shift.HasConflicts,
		rawConflicts,
		shift.ID,
		shift.TenantID,
		shift.Version,
	}
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&shift.Version); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NewStateConflictError("班次已被其他操作修改，请刷新后重试")
		}
		return err
	}

	for _, peer := range peers {
		if err := updateShiftConflictsTx(ctx, tx, peer); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *Repository) SoftDeleteShift(shift *domain.Shift, peers []*domain.Shift) error {
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
		UPDATE shifts
		SET deleted_at = NOW(), version = version + 1
		WHERE id = $1 AND tenant_id = $2 AND version = $3 AND deleted_at IS NULL
		RETURNING version
	`
	if err := tx.QueryRowContext(ctx, query, shift.ID, shift.TenantID, shift.Version).Scan(&shift.Version); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NewStateConflictError("班次已被其他操作修改，请刷新后重试")
		}
		return err
	}

	for _, peer := range peers {
		if err := updateShiftConflictsTx(ctx, tx, peer); err != nil {
			return err
		}
	}

	return tx.Commit()
}
