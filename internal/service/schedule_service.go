package service

import (
	"time"

	"github.com/sysu-ecnc-dev/shift-coordinator/backend/internal/domain"
)

// ScheduleService 负责班表的生命周期状态机：
// draft → published → locked，locked 可带理由解锁回 published，
// published 可撤回 draft。同时维护租户内已发布班表日期范围互斥的约束。
type ScheduleService struct {
	scheduleRepo ScheduleRepository
	shiftRepo    ShiftRepository
}

func NewScheduleService(scheduleRepo ScheduleRepository, shiftRepo ShiftRepository) *ScheduleService {
	return &ScheduleService{
		scheduleRepo: scheduleRepo,
		shiftRepo:    shiftRepo,
	}
}

type CreateScheduleInput struct {
	Title        string
	StartDate    time.Time
	EndDate      time.Time
	DepartmentID *int64
	Location     string
	Notes        string
}

type UpdateScheduleInput struct {
	Title        *string
	StartDate    *time.Time
	EndDate      *time.Time
	DepartmentID *int64
	Location     *string
	Notes        *string
}

type CopyScheduleInput struct {
	Title              string
	StartDate          time.Time
	IncludeAssignments bool
}

func validateScheduleDates(startDate time.Time, endDate time.Time) error {
	if endDate.Before(startDate) {
		return domain.NewValidationError("班表结束日期不能早于开始日期")
	}
	return nil
}

func (s *ScheduleService) Create(tenantID int64, in CreateScheduleInput) (*domain.Schedule, error) {
	if in.Title == "" {
		return nil, domain.NewValidationError("班表标题不能为空")
	}
	if err := validateScheduleDates(in.StartDate, in.EndDate); err != nil {
		return nil, err
	}

	// 创建时也要遵守已发布班表的日期范围互斥约束
	overlapping, err := s.scheduleRepo.HasOverlappingPublishedSchedule(tenantID, in.StartDate, in.EndDate, 0)
	if err != nil {
		return nil, err
	}
	if overlapping {
		return nil, domain.NewStateConflictError("该日期范围内已存在已发布的班表")
	}

	schedule := &domain.Schedule{
		TenantID:     tenantID,
		Title:        in.Title,
		DepartmentID: in.DepartmentID,
		Location:     in.Location,
		Notes:        in.Notes,
		StartDate:    in.StartDate,
		EndDate:      in.EndDate,
		Status:       domain.ScheduleStatusDraft,
	}
	if err := s.scheduleRepo.CreateSchedule(schedule); err != nil {
		return nil, err
	}

	return schedule, nil
}

func (s *ScheduleService) GetByID(tenantID int64, id int64) (*domain.Schedule, error) {
	return s.scheduleRepo.GetScheduleByID(tenantID, id)
}

func (s *ScheduleService) GetAll(tenantID int64) ([]*domain.Schedule, error) {
	return s.scheduleRepo.GetAllSchedules(tenantID)
}

func (s *ScheduleService) Update(tenantID int64, id int64, in UpdateScheduleInput) (*domain.Schedule, error) {
	schedule, err := s.scheduleRepo.GetScheduleByID(tenantID, id)
	if err != nil {
		return nil, err
	}
	if schedule.Status == domain.ScheduleStatusLocked {
		return nil, domain.NewStateConflictError("班表已锁定，禁止修改")
	}

	if in.Title != nil {
		schedule.Title = *in.Title
	}
	if in.StartDate != nil {
		schedule.StartDate = *in.StartDate
	}
	if in.EndDate != nil {
		schedule.EndDate = *in.EndDate
	}
	if in.DepartmentID != nil {
		schedule.DepartmentID = in.DepartmentID
	}
	if in.Location != nil {
		schedule.Location = *in.Location
	}
	if in.Notes != nil {
		schedule.Notes = *in.Notes
	}

	if schedule.Title == "" {
		return nil, domain.NewValidationError("班表标题不能为空")
	}
	if err := validateScheduleDates(schedule.StartDate, schedule.EndDate); err != nil {
		return nil, err
	}

	// 已发布班表修改日期范围后仍需满足互斥约束
	if schedule.Status == domain.ScheduleStatusPublished && (in.StartDate != nil || in.EndDate != nil) {
		overlapping, err := s.scheduleRepo.HasOverlappingPublishedSchedule(tenantID, schedule.StartDate, schedule.EndDate, schedule.ID)
		if err != nil {
			return nil, err
		}
		if overlapping {
			return nil, domain.NewStateConflictError("该日期范围内已存在已发布的班表")
		}
	}

	if err := s.scheduleRepo.UpdateSchedule(schedule); err != nil {
		return nil, err
	}

	return schedule, nil
}

func (s *ScheduleService) Delete(tenantID int64, id int64) error {
	schedule, err := s.scheduleRepo.GetScheduleByID(tenantID, id)
	if err != nil {
		return err
	}
	if schedule.Status != domain.ScheduleStatusDraft {
		return domain.NewStateConflictError("只有草稿状态的班表才能删除")
	}

	return s.scheduleRepo.SoftDeleteSchedule(schedule)
}

func (s *ScheduleService) Publish(tenantID int64, id int64, actorID int64) (*domain.Schedule, error) {
	schedule, err := s.scheduleRepo.GetScheduleByID(tenantID, id)
	if err != nil {
		return nil, err
	}
	if schedule.Status != domain.ScheduleStatusDraft {
		return nil, domain.NewStateConflictError("只有草稿状态的班表才能发布")
	}

	// 存在冲突的班表不允许发布
	shifts, err := s.shiftRepo.GetShiftsByScheduleID(tenantID, id)
	if err != nil {
		return nil, err
	}
	for _, shift := range shifts {
		if shift.HasConflicts {
			return nil, domain.NewStateConflictError("班表存在未解决的班次冲突，无法发布")
		}
	}

	overlapping, err := s.scheduleRepo.HasOverlappingPublishedSchedule(tenantID, schedule.StartDate, schedule.EndDate, schedule.ID)
	if err != nil {
		return nil, err
	}
	if overlapping {
		return nil, domain.NewStateConflictError("该日期范围内已存在已发布的班表")
	}

	now := time.Now()
	schedule.Status = domain.ScheduleStatusPublished
	schedule.PublishedAt = &now
	schedule.PublishedBy = &actorID
	if err := s.scheduleRepo.UpdateSchedule(schedule); err != nil {
		return nil, err
	}

	return schedule, nil
}

func (s *ScheduleService) Unpublish(tenantID int64, id int64) (*domain.Schedule, error) {
	schedule, err := s.scheduleRepo.GetScheduleByID(tenantID, id)
	if err != nil {
		return nil, err
	}
	if schedule.Status != domain.ScheduleStatusPublished {
		return nil, domain.NewStateConflictError("只有已发布的班表才能撤回")
	}

	schedule.Status = domain.ScheduleStatusDraft
	schedule.PublishedAt = nil
	schedule.PublishedBy = nil
	if err := s.scheduleRepo.UpdateSchedule(schedule); err != nil {
		return nil, err
	}

	return schedule, nil
}

func (s *ScheduleService) Lock(tenantID int64, id int64, actorID int64, reason string) (*domain.Schedule, error) {
	schedule, err := s.scheduleRepo.GetScheduleByID(tenantID, id)
	if err != nil {
		return nil, err
	}
	if schedule.Status != domain.ScheduleStatusPublished {
		return nil, domain.NewStateConflictError("只有已发布的班表才能锁定")
	}

	now := time.Now()
	schedule.Status = domain.ScheduleStatusLocked
	schedule.LockedAt = &now
	schedule.LockedBy = &actorID
	schedule.LockReason = reason
	if err := s.scheduleRepo.UpdateSchedule(schedule); err != nil {
		return nil, err
	}

	return schedule, nil
}

func (s *ScheduleService) Unlock(tenantID int64, id int64, actorID int64, reason string) (*domain.Schedule, error) {
	if reason == "" {
		return nil, domain.NewValidationError("解锁必须填写理由")
	}

	schedule, err := s.scheduleRepo.GetScheduleByID(tenantID, id)
	if err != nil {
		return nil, err
	}
	if schedule.Status != domain.ScheduleStatusLocked {
		return nil, domain.NewStateConflictError("只有已锁定的班表才能解锁")
	}

	schedule.Status = domain.ScheduleStatusPublished
	schedule.LockedAt = nil
	schedule.LockedBy = nil
	schedule.LockReason = ""
	schedule.UnlockReason = reason
	if err := s.scheduleRepo.UpdateSchedule(schedule); err != nil {
		return nil, err
	}

	return schedule, nil
}

// Copy 把班表复制到新的日期范围：所有班次的起止时间按源和目标开始日期
// 的差值平移，冲突状态不随复制带过去，由冲突检测器对新班表重新计算。
func (s *ScheduleService) Copy(tenantID int64, id int64, in CopyScheduleInput) (*domain.Schedule, error) {
	source, err := s.scheduleRepo.GetScheduleByID(tenantID, id)
	if err != nil {
		return nil, err
	}

	delta := in.StartDate.Sub(source.StartDate)

	target := &domain.Schedule{
		TenantID:     tenantID,
		Title:        in.Title,
		DepartmentID: source.DepartmentID,
		Location:     source.Location,
		Notes:        source.Notes,
		StartDate:    in.StartDate,
		EndDate:      source.EndDate.Add(delta),
		Status:       domain.ScheduleStatusDraft,
	}
	if target.Title == "" {
		target.Title = source.Title + "（副本）"
	}

	overlapping, err := s.scheduleRepo.HasOverlappingPublishedSchedule(tenantID, target.StartDate, target.EndDate, 0)
	if err != nil {
		return nil, err
	}
	if overlapping {
		return nil, domain.NewStateConflictError("该日期范围内已存在已发布的班表")
	}

	sourceShifts, err := s.shiftRepo.GetShiftsByScheduleID(tenantID, id)
	if err != nil {
		return nil, err
	}

	copies := make([]*domain.Shift, 0, len(sourceShifts))
	for _, shift := range sourceShifts {
		c := &domain.Shift{
			TenantID:         tenantID,
			StartTime:        shift.StartTime.Add(delta),
			EndTime:          shift.EndTime.Add(delta),
			BreakMinutes:     shift.BreakMinutes,
			Role:             shift.Role,
			Location:         shift.Location,
			Color:            shift.Color,
			Notes:            shift.Notes,
			AssignmentStatus: domain.AssignmentStatusUnassigned,
			HasConflicts:     false,
			ConflictDetails:  []domain.Conflict{},
		}
		if in.IncludeAssignments && shift.EmployeeID != nil {
			employeeID := *shift.EmployeeID
			c.EmployeeID = &employeeID
			c.AssignmentStatus = domain.AssignmentStatusAssigned
		}
		copies = append(copies, c)
	}

	if err := s.scheduleRepo.CreateScheduleWithShifts(target, copies); err != nil {
		return nil, err
	}

	return target, nil
}
