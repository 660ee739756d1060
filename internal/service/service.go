package service

import (
	"time"

	"github.com/sysu-ecnc-dev/shift-coordinator/backend/internal/domain"
)

// 各个核心组件只依赖这里声明的仓储接口，
// 生产环境由 internal/repository 的 Postgres 实现注入，
// 单元测试则注入内存假实现，状态机可以脱离数据库单独验证。

type ScheduleRepository interface {
	CreateSchedule(s *domain.Schedule) error
	GetScheduleByID(tenantID int64, id int64) (*domain.Schedule, error)
	GetAllSchedules(tenantID int64) ([]*domain.Schedule, error)
	UpdateSchedule(s *domain.Schedule) error
	SoftDeleteSchedule(s *domain.Schedule) error
	HasOverlappingPublishedSchedule(tenantID int64, startDate time.Time, endDate time.Time, excludeID int64) (bool, error)
	CreateScheduleWithShifts(s *domain.Schedule, shifts []*domain.Shift) error
}

type ShiftRepository interface {
	GetShiftByID(tenantID int64, id int64) (*domain.Shift, error)
	GetShiftsByScheduleID(tenantID int64, scheduleID int64) ([]*domain.Shift, error)
	GetShiftsByScheduleAndEmployee(tenantID int64, scheduleID int64, employeeID int64) ([]*domain.Shift, error)
	CreateShift(shift *domain.Shift, peers []*domain.Shift) error
	UpdateShift(shift *domain.Shift, peers []*domain.Shift) error
	SoftDeleteShift(shift *domain.Shift, peers []*domain.Shift) error
}

type SwapRepository interface {
	CreateSwapRequest(req *domain.SwapRequest) error
	CreateSwapRequests(reqs []*domain.SwapRequest) error
	GetSwapRequestByID(tenantID int64, id int64) (*domain.SwapRequest, error)
	GetSwapRequests(tenantID int64, filter domain.SwapRequestFilter) ([]*domain.SwapRequest, error)
	ApproveSwapRequest(req *domain.SwapRequest, shifts []*domain.Shift, siblingRejectionReason string) error
	RejectSwapRequest(req *domain.SwapRequest) error
	CancelSwapRequest(req *domain.SwapRequest) error
}

type EmployeeRepository interface {
	GetEmployeeByID(tenantID int64, id int64) (*domain.Employee, error)
	GetActiveEmployeesByRole(tenantID int64, role string, excludeID int64) ([]*domain.Employee, error)
}

// NotificationDispatcher 是尽力而为的通知旁路：没有返回值，
// 实现方自行记录失败，调用方的核心操作永远不会因为通知失败而失败。
type NotificationDispatcher interface {
	Dispatch(msg *domain.NotificationMessage)
}

// Service 是所有核心组件的聚合入口。
type Service struct {
	Schedules *ScheduleService
	Shifts    *ShiftService
	Swaps     *SwapService
}

func NewService(
	scheduleRepo ScheduleRepository,
	shiftRepo ShiftRepository,
	swapRepo SwapRepository,
	employeeRepo EmployeeRepository,
	dispatcher NotificationDispatcher,
) *Service {
	shifts := NewShiftService(scheduleRepo, shiftRepo)
	return &Service{
		Schedules: NewScheduleService(scheduleRepo, shiftRepo),
		Shifts:    shifts,
		Swaps:     NewSwapService(swapRepo, shiftRepo, scheduleRepo, employeeRepo, dispatcher),
	}
}
