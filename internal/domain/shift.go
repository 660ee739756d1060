package domain

import "time"

type AssignmentStatus string

const (
	AssignmentStatusUnassigned AssignmentStatus = "unassigned"
	AssignmentStatusAssigned   AssignmentStatus = "assigned"
	AssignmentStatusAccepted   AssignmentStatus = "accepted"
	AssignmentStatusDeclined   AssignmentStatus = "declined"
	AssignmentStatusSwapped    AssignmentStatus = "swapped"
)

type ConflictType string

const (
	ConflictTypeOverlap ConflictType = "overlap"
	// 以下三种类型是预留的扩展点，检测规则尚未实现
	ConflictTypeRestPeriod   ConflictType = "rest_period"
	ConflictTypeMaxHours     ConflictType = "max_hours"
	ConflictTypeAvailability ConflictType = "availability"
)

type ConflictSeverity string

const (
	ConflictSeverityError   ConflictSeverity = "error"
	ConflictSeverityWarning ConflictSeverity = "warning"
	ConflictSeverityInfo    ConflictSeverity = "info"
)

// Conflict 是挂在班次上的冲突记录，每次变更后重新计算，不单独持久化。
type Conflict struct {
	Type               ConflictType     `json:"type"`
	Severity           ConflictSeverity `json:"severity"`
	Message            string           `json:"message"`
	ConflictingShiftID *int64           `json:"conflictingShiftID,omitempty"`
}

// Shift 是班表内的一个班次，归属且仅归属于它的班表，
// 班表锁定后禁止任何变更。
type Shift struct {
	ID               int64            `json:"id"`
	TenantID         int64            `json:"tenantID"`
	ScheduleID       int64            `json:"scheduleID"`
	StartTime        time.Time        `json:"startTime"`
	EndTime          time.Time        `json:"endTime"`
	BreakMinutes     int32            `json:"breakMinutes"`
	Role             string           `json:"role,omitempty"`
	Location         string           `json:"location,omitempty"`
	Color            string           `json:"color,omitempty"`
	Notes            string           `json:"notes,omitempty"`
	EmployeeID       *int64           `json:"employeeID,omitempty"`
	AssignmentStatus AssignmentStatus `json:"assignmentStatus"`
	HasConflicts     bool             `json:"hasConflicts"`
	ConflictDetails  []Conflict       `json:"conflictDetails"`
	CreatedAt        time.Time        `json:"createdAt"`
	DeletedAt        *time.Time       `json:"-"`
	Version          int32            `json:"-"`
}

// ConflictSummary 是整个班表的冲突汇总，CanPublish 等价于 TotalConflicts == 0。
type ConflictSummary struct {
	ScheduleID     int64         `json:"scheduleID"`
	TotalConflicts int           `json:"totalConflicts"`
	ByEmployee     map[int64]int `json:"byEmployee"`
	ShiftIDs       []int64       `json:"shiftIDs"`
	CanPublish     bool          `json:"canPublish"`
}
