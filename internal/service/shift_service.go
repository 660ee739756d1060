package service

import (
	"time"

	"github.com/sysu-ecnc-dev/shift-coordinator/backend/internal/domain"
	"github.com/sysu-ecnc-dev/shift-coordinator/backend/internal/utils"
)

// ShiftService 负责班次的增删改和冲突检测。
// 每次班次变更都会在同一个事务内对受影响员工的班次集合重算冲突。
type ShiftService struct {
	scheduleRepo ScheduleRepository
	shiftRepo    ShiftRepository
}

func NewShiftService(scheduleRepo ScheduleRepository, shiftRepo ShiftRepository) *ShiftService {
	return &ShiftService{
		scheduleRepo: scheduleRepo,
		shiftRepo:    shiftRepo,
	}
}

type CreateShiftInput struct {
	StartTime    time.Time
	EndTime      time.Time
	BreakMinutes int32
	Role         string
	Location     string
	Color        string
	Notes        string
	EmployeeID   *int64
}

type UpdateShiftInput struct {
	StartTime    *time.Time
	EndTime      *time.Time
	BreakMinutes *int32
	Role         *string
	Location     *string
	Color        *string
	Notes        *string
	EmployeeID   *int64
	Unassign     bool
}

type DuplicateShiftInput struct {
	Date              time.Time
	IncludeAssignment bool
}

func (s *ShiftService) lockGuard(tenantID int64, scheduleID int64) (*domain.Schedule, error) {
	schedule, err := s.scheduleRepo.GetScheduleByID(tenantID, scheduleID)
	if err != nil {
		return nil, err
	}
	if schedule.Status == domain.ScheduleStatusLocked {
		return nil, domain.NewStateConflictError("班表已锁定，禁止修改班次")
	}
	return schedule, nil
}

// assignedPeers 返回员工在班表内除 excludeID 以外的所有班次。
func (s *ShiftService) assignedPeers(tenantID int64, scheduleID int64, employeeID int64, excludeID int64) ([]*domain.Shift, error) {
	shifts, err := s.shiftRepo.GetShiftsByScheduleAndEmployee(tenantID, scheduleID, employeeID)
	if err != nil {
		return nil, err
	}

	peers := make([]*domain.Shift, 0, len(shifts))
	for _, shift := range shifts {
		if shift.ID == excludeID {
			continue
		}
		peers = append(peers, shift)
	}
	return peers, nil
}

func (s *ShiftService) Create(tenantID int64, scheduleID int64, in CreateShiftInput) (*domain.Shift, error) {
	if _, err := s.lockGuard(tenantID, scheduleID); err != nil {
		return nil, err
	}
	if err := utils.ValidateShiftWindow(in.StartTime, in.EndTime); err != nil {
		return nil, err
	}
	if err := utils.ValidateBreakMinutes(in.BreakMinutes); err != nil {
		return nil, err
	}

	shift := &domain.Shift{
		TenantID:         tenantID,
		ScheduleID:       scheduleID,
		StartTime:        in.StartTime,
		EndTime:          in.EndTime,
		BreakMinutes:     in.BreakMinutes,
		Role:             in.Role,
		Location:         in.Location,
		Color:            in.Color,
		Notes:            in.Notes,
		EmployeeID:       in.EmployeeID,
		AssignmentStatus: domain.AssignmentStatusUnassigned,
		ConflictDetails:  []domain.Conflict{},
	}
	if in.EmployeeID != nil {
		shift.AssignmentStatus = domain.AssignmentStatusAssigned
	}

	peers := []*domain.Shift{}
	if shift.EmployeeID != nil {
		var err error
		peers, err = s.assignedPeers(tenantID, scheduleID, *shift.EmployeeID, 0)
		if err != nil {
			return nil, err
		}
		recomputeConflictSet(append(peers, shift))
	}

	if err := s.shiftRepo.CreateShift(shift, peers); err != nil {
		return nil, err
	}

	return shift, nil
}

func (s *ShiftService) Update(tenantID int64, shiftID int64, in UpdateShiftInput) (*domain.Shift, error) {
	shift, err := s.shiftRepo.GetShiftByID(tenantID, shiftID)
	if err != nil {
		return nil, err
	}
	if _, err := s.lockGuard(tenantID, shift.ScheduleID); err != nil {
		return nil, err
	}

	var oldEmployeeID *int64
	if shift.EmployeeID != nil {
		v := *shift.EmployeeID
		oldEmployeeID = &v
	}

	if in.StartTime != nil {
		shift.StartTime = *in.StartTime
	}
	if in.EndTime != nil {
		shift.EndTime = *in.EndTime
	}
	if in.BreakMinutes != nil {
		shift.BreakMinutes = *in.BreakMinutes
	}
	if in.Role != nil {
		shift.Role = *in.Role
	}
	if in.Location != nil {
		shift.Location = *in.Location
	}
	if in.Color != nil {
		shift.Color = *in.Color
	}
	if in.Notes != nil {
		shift.Notes = *in.Notes
	}
	if in.Unassign {
		shift.EmployeeID = nil
		shift.AssignmentStatus = domain.AssignmentStatusUnassigned
	} else if in.EmployeeID != nil {
		shift.EmployeeID = in.EmployeeID
		shift.AssignmentStatus = domain.AssignmentStatusAssigned
	}

	if err := utils.ValidateShiftWindow(shift.StartTime, shift.EndTime); err != nil {
		return nil, err
	}
	if err := utils.ValidateBreakMinutes(shift.BreakMinutes); err != nil {
		return nil, err
	}

	peers := []*domain.Shift{}

	if shift.EmployeeID != nil {
		newPeers, err := s.assignedPeers(tenantID, shift.ScheduleID, *shift.EmployeeID, shift.ID)
		if err != nil {
			return nil, err
		}
		recomputeConflictSet(append(newPeers, shift))
		peers = append(peers, newPeers...)
	} else {
		shift.HasConflicts = false
		shift.ConflictDetails = []domain.Conflict{}
	}

	// 改派后原员工的班次集合也要重算，避免残留过期的冲突标记
	if oldEmployeeID != nil && (shift.EmployeeID == nil || *shift.EmployeeID != *oldEmployeeID) {
		oldPeers, err := s.assignedPeers(tenantID, shift.ScheduleID, *oldEmployeeID, shift.ID)
		if err != nil {
			return nil, err
		}
		recomputeConflictSet(oldPeers)
		peers = append(peers, oldPeers...)
	}

	if err := s.shiftRepo.UpdateShift(shift, peers); err != nil {
		return nil, err
	}

	return shift, nil
}

func (s *ShiftService) Delete(tenantID int64, shiftID int64) error {
	shift, err := s.shiftRepo.GetShiftByID(tenantID, shiftID)
	if err != nil {
		return err
	}
	if _, err := s.lockGuard(tenantID, shift.ScheduleID); err != nil {
		return err
	}

	peers := []*domain.Shift{}
	if shift.EmployeeID != nil {
		peers, err = s.assignedPeers(tenantID, shift.ScheduleID, *shift.EmployeeID, shift.ID)
		if err != nil {
			return err
		}
		recomputeConflictSet(peers)
	}

	return s.shiftRepo.SoftDeleteShift(shift, peers)
}

// Duplicate 把班次克隆到新的日期，保留一天内的起止时刻。
// 跨夜班次（结束时刻不晚于开始时刻）的结束日期顺延一天。
func (s *ShiftService) Duplicate(tenantID int64, shiftID int64, in DuplicateShiftInput) (*domain.Shift, error) {
	source, err := s.shiftRepo.GetShiftByID(tenantID, shiftID)
	if err != nil {
		return nil, err
	}
	if _, err := s.lockGuard(tenantID, source.ScheduleID); err != nil {
		return nil, err
	}

	year, month, day := in.Date.Date()
	loc := source.StartTime.Location()
	startTime := time.Date(year, month, day,
		source.StartTime.Hour(), source.StartTime.Minute(), source.StartTime.Second(), 0, loc)
	endTime := time.Date(year, month, day,
		source.EndTime.Hour(), source.EndTime.Minute(), source.EndTime.Second(), 0, loc)
	if !endTime.After(startTime) {
		endTime = endTime.AddDate(0, 0, 1)
	}

	clone := &domain.Shift{
		TenantID:         tenantID,
		ScheduleID:       source.ScheduleID,
		StartTime:        startTime,
		EndTime:          endTime,
		BreakMinutes:     source.BreakMinutes,
		Role:             source.Role,
		Location:         source.Location,
		Color:            source.Color,
		Notes:            source.Notes,
		AssignmentStatus: domain.AssignmentStatusUnassigned,
		ConflictDetails:  []domain.Conflict{},
	}
	if in.IncludeAssignment && source.EmployeeID != nil {
		employeeID := *source.EmployeeID
		clone.EmployeeID = &employeeID
		clone.AssignmentStatus = domain.AssignmentStatusAssigned
	}

	peers := []*domain.Shift{}
	if clone.EmployeeID != nil {
		peers, err = s.assignedPeers(tenantID, clone.ScheduleID, *clone.EmployeeID, 0)
		if err != nil {
			return nil, err
		}
		recomputeConflictSet(append(peers, clone))
	}

	if err := s.shiftRepo.CreateShift(clone, peers); err != nil {
		return nil, err
	}

	return clone, nil
}

func (s *ShiftService) GetByID(tenantID int64, shiftID int64) (*domain.Shift, error) {
	return s.shiftRepo.GetShiftByID(tenantID, shiftID)
}

func (s *ShiftService) GetBySchedule(tenantID int64, scheduleID int64) ([]*domain.Shift, error) {
	if _, err := s.scheduleRepo.GetScheduleByID(tenantID, scheduleID); err != nil {
		return nil, err
	}
	return s.shiftRepo.GetShiftsByScheduleID(tenantID, scheduleID)
}

// GetConflictSummary 汇总整个班表的冲突情况，CanPublish 等价于 TotalConflicts == 0。
func (s *ShiftService) GetConflictSummary(tenantID int64, scheduleID int64) (*domain.ConflictSummary, error) {
	if _, err := s.scheduleRepo.GetScheduleByID(tenantID, scheduleID); err != nil {
		return nil, err
	}

	shifts, err := s.shiftRepo.GetShiftsByScheduleID(tenantID, scheduleID)
	if err != nil {
		return nil, err
	}

	summary := &domain.ConflictSummary{
		ScheduleID: scheduleID,
		ByEmployee: map[int64]int{},
		ShiftIDs:   []int64{},
	}
	for _, shift := range shifts {
		if !shift.HasConflicts {
			continue
		}
		summary.TotalConflicts += len(shift.ConflictDetails)
		summary.ShiftIDs = append(summary.ShiftIDs, shift.ID)
		if shift.EmployeeID != nil {
			summary.ByEmployee[*shift.EmployeeID] += len(shift.ConflictDetails)
		}
	}
	summary.CanPublish = summary.TotalConflicts == 0

	return summary, nil
}
