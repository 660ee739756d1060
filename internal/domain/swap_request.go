package domain

import "time"

type SwapStatus string

const (
	SwapStatusPending   SwapStatus = "pending"
	SwapStatusApproved  SwapStatus = "approved"
	SwapStatusRejected  SwapStatus = "rejected"
	SwapStatusCancelled SwapStatus = "cancelled"
)

// Valid 判断是否为合法的换班申请状态。
func (s SwapStatus) Valid() bool {
	switch s {
	case SwapStatusPending, SwapStatusApproved, SwapStatusRejected, SwapStatusCancelled:
		return true
	}
	return false
}

// SwapRequest 是换班申请。初始状态 pending，
// approved / rejected / cancelled 都是终态，终态之后不允许再变更。
// TargetShiftID 非空表示双向换班（两个班次互换负责人），
// 为空表示单向转让（把班次转给 RequestedTo）。
type SwapRequest struct {
	ID              int64      `json:"id"`
	TenantID        int64      `json:"tenantID"`
	ShiftID         int64      `json:"shiftID"`
	RequestedBy     int64      `json:"requestedBy"`
	RequestedTo     *int64     `json:"requestedTo,omitempty"`
	TargetShiftID   *int64     `json:"targetShiftID,omitempty"`
	Status          SwapStatus `json:"status"`
	Reason          string     `json:"reason,omitempty"`
	Notes           string     `json:"notes,omitempty"`
	ApprovedBy      *int64     `json:"approvedBy,omitempty"`
	ApprovedAt      *time.Time `json:"approvedAt,omitempty"`
	RejectedBy      *int64     `json:"rejectedBy,omitempty"`
	RejectedAt      *time.Time `json:"rejectedAt,omitempty"`
	RejectionReason string     `json:"rejectionReason,omitempty"`
	CancelledBy     *int64     `json:"cancelledBy,omitempty"`
	CancelledAt     *time.Time `json:"cancelledAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	DeletedAt       *time.Time `json:"-"`
	Version         int32      `json:"-"`
}

// SwapRequestFilter 是查询换班申请时的过滤条件，零值字段表示不过滤。
type SwapRequestFilter struct {
	Status     SwapStatus
	ShiftID    int64
	EmployeeID int64 // 申请人或被申请人
}
