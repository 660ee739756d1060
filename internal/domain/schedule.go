package domain

import "time"

type ScheduleStatus string

const (
	ScheduleStatusDraft     ScheduleStatus = "draft"
	ScheduleStatusPublished ScheduleStatus = "published"
	ScheduleStatusLocked    ScheduleStatus = "locked"
)

// Schedule 是租户内一段日期范围的班表容器。
// 状态机：draft → published → locked，locked 可以带理由解锁回 published，
// published 可以撤回到 draft。只有 draft 状态允许删除（软删除）。
type Schedule struct {
	ID           int64          `json:"id"`
	TenantID     int64          `json:"tenantID"`
	Title        string         `json:"title"`
	DepartmentID *int64         `json:"departmentID,omitempty"`
	Location     string         `json:"location,omitempty"`
	Notes        string         `json:"notes,omitempty"`
	StartDate    time.Time      `json:"startDate"`
	EndDate      time.Time      `json:"endDate"`
	Status       ScheduleStatus `json:"status"`
	PublishedAt  *time.Time     `json:"publishedAt,omitempty"`
	PublishedBy  *int64         `json:"publishedBy,omitempty"`
	LockedAt     *time.Time     `json:"lockedAt,omitempty"`
	LockedBy     *int64         `json:"lockedBy,omitempty"`
	LockReason   string         `json:"lockReason,omitempty"`
	UnlockReason string         `json:"unlockReason,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"`
	DeletedAt    *time.Time     `json:"-"`
	Version      int32          `json:"-"`
}
