package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sysu-ecnc-dev/shift-coordinator/backend/internal/domain"
)

const swapRequestColumns = `
	shift_id,
	requested_by,
	requested_to,
	target_shift_id,
	status,
	reason,
	notes,
	approved_by,
	approved_at,
	rejected_by,
	rejected_at,
	rejection_reason,
	cancelled_by,
	cancelled_at,
	created_at,
	version
`

func swapRequestDst(req *domain.SwapRequest) []any {
	return []any{
		&req.ShiftID,
		&req.RequestedBy,
		&req.RequestedTo,
		&req.TargetShiftID,
		&req.Status,
		&req.Reason,
		&req.Notes,
		&req.ApprovedBy,
		&req.ApprovedAt,
		&req.RejectedBy,
		&req.RejectedAt,
		&req.RejectionReason,
		&req.CancelledBy,
		&req.CancelledAt,
		&req.CreatedAt,
		&req.Version,
	}
}

func insertSwapRequestTx(ctx context.Context, tx *sql.Tx, req *domain.SwapRequest) error {
	query := `
		INSERT INTO shift_swap_requests (
			tenant_id, shift_id, requested_by, requested_to, target_shift_id, status, reason, notes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, version
	`

	args := []any{
		req.TenantID,
		req.ShiftID,
		req.RequestedBy,
		req.RequestedTo,
		req.TargetShiftID,
		req.Status,
		req.Reason,
		req.Notes,
	}
	return tx.QueryRowContext(ctx, query, args...).Scan(&req.ID, &req.CreatedAt, &req.Version)
}

func (r *Repository) CreateSwapRequest(req *domain.SwapRequest) error {
	query := `
		INSERT INTO shift_swap_requests (
			tenant_id, shift_id, requested_by, requested_to, target_shift_id, status, reason, notes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, version
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	args := []any{
		req.TenantID,
		req.ShiftID,
		req.RequestedBy,
		req.RequestedTo,
		req.TargetShiftID,
		req.Status,
		req.Reason,
		req.Notes,
	}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(&req.ID, &req.CreatedAt, &req.Version); err != nil {
		return err
	}

	return nil
}

// CreateSwapRequests 批量插入广播产生的换班申请，要么全部成功要么全部失败。
func (r *Repository) CreateSwapRequests(reqs []*domain.SwapRequest) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.TransactionTimeout)*time.Second)
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, req := range reqs {
		if err := insertSwapRequestTx(ctx, tx, req); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *Repository) GetSwapRequestByID(tenantID int64, id int64) (*domain.SwapRequest, error) {
	query := `
		SELECT ` + swapRequestColumns + `
		FROM shift_swap_requests
		WHERE id = $1 AND tenant_id = $2 AND deleted_at IS NULL
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	req := &domain.SwapRequest{
		ID:       id,
		TenantID: tenantID,
	}

	if err := r.dbpool.QueryRowContext(ctx, query, id, tenantID).Scan(swapRequestDst(req)...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewNotFoundError("换班申请不存在")
		}
		return nil, err
	}

	return req, nil
}

func (r *Repository) GetSwapRequests(tenantID int64, filter domain.SwapRequestFilter) ([]*domain.SwapRequest, error) {
	query := `
		SELECT id, ` + swapRequestColumns + `
		FROM shift_swap_requests
		WHERE tenant_id = $1 AND deleted_at IS NULL
	`

	args := []any{tenantID}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.ShiftID != 0 {
		args = append(args, filter.ShiftID)
		query += fmt.Sprintf(" AND shift_id = $%d", len(args))
	}
	if filter.EmployeeID != 0 {
		args = append(args, filter.EmployeeID)
		query += fmt.Sprintf(" AND (requested_by = $%d OR requested_to = $%d)", len(args), len(args))
	}
	query += " ORDER BY created_at DESC"

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reqs := []*domain.SwapRequest{}
	for rows.Next() {
		req := &domain.SwapRequest{TenantID: tenantID}
		dst := append([]any{&req.ID}, swapRequestDst(req)...)
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}
		reqs = append(reqs, req)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return reqs, nil
}

// ApproveSwapRequest 在同一个事务内完成：
//  1. pending → approved 的条件更新（事务内重查状态，并发竞争的失败方在这里收到 StateConflict）；
//  2. 换班涉及的班次重新指派（带版本守卫，保证不会出现换了一半的指派）；
//  3. 同一源班次的其他 pending 广播申请自动驳回。
func (r *Repository) ApproveSwapRequest(req *domain.SwapRequest, shifts []*domain.Shift, siblingRejectionReason string) error {
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
		UPDATE shift_swap_requests
		SET status = $1, approved_by = $2, approved_at = NOW(), version = version + 1
		WHERE id = $3 AND tenant_id = $4 AND status = $5 AND deleted_at IS NULL
		RETURNING approved_at, version
	`
	args := []any{domain.SwapStatusApproved, req.ApprovedBy, req.ID, req.TenantID, domain.SwapStatusPending}
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&req.ApprovedAt, &req.Version); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NewStateConflictError("只有待处理的换班申请才能进行此操作")
		}
		return err
	}
	req.Status = domain.SwapStatusApproved

	for _, shift := range shifts {
		query := `
			UPDATE shifts
			SET
				employee_id = $1,
				assignment_status = $2,
				has_conflicts = $3,
				conflict_details = $4,
				version = version + 1
			WHERE id = $5 AND tenant_id = $6 AND version = $7 AND deleted_at IS NULL
			RETURNING version
		`

		rawConflicts, err := marshalConflicts(shift.ConflictDetails)
		if err != nil {
			return err
		}

		args := []any{
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
	}

	query = `
		UPDATE shift_swap_requests
		SET
			status = $1,
			rejected_by = $2,
			rejected_at = NOW(),
			rejection_reason = $3,
			version = version + 1
		WHERE shift_id = $4 AND tenant_id = $5 AND id <> $6 AND status = $7 AND deleted_at IS NULL
	`
	args = []any{
		domain.SwapStatusRejected,
		req.ApprovedBy,
		siblingRejectionReason,
		req.ShiftID,
		req.TenantID,
		req.ID,
		domain.SwapStatusPending,
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *Repository) RejectSwapRequest(req *domain.SwapRequest) error {
	query := `
		UPDATE shift_swap_requests
		SET status = $1, rejected_by = $2, rejected_at = NOW(), rejection_reason = $3, version = version + 1
		WHERE id = $4 AND tenant_id = $5 AND status = $6 AND deleted_at IS NULL
		RETURNING rejected_at, version
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	args := []any{domain.SwapStatusRejected, req.RejectedBy, req.RejectionReason, req.ID, req.TenantID, domain.SwapStatusPending}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(&req.RejectedAt, &req.Version); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NewStateConflictError("只有待处理的换班申请才能进行此操作")
		}
		return err
	}
	req.Status = domain.SwapStatusRejected

	return nil
}

func (r *Repository) CancelSwapRequest(req *domain.SwapRequest) error {
	query := `
		UPDATE shift_swap_requests
		SET status = $1, cancelled_by = $2, cancelled_at = NOW(), version = version + 1
		WHERE id = $3 AND tenant_id = $4 AND status = $5 AND deleted_at IS NULL
		RETURNING cancelled_at, version
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	args := []any{domain.SwapStatusCancelled, req.CancelledBy, req.ID, req.TenantID, domain.SwapStatusPending}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(&req.CancelledAt, &req.Version); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NewStateConflictError("只有待处理的换班申请才能进行此操作")
		}
		return err
	}
	req.Status = domain.SwapStatusCancelled

	return nil
}
