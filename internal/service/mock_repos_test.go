package service

import (
	"sort"
	"time"

	"github.com/sysu-ecnc-dev/shift-coordinator/backend/internal/domain"
)

// fakeRepository 是全部仓储接口的内存假实现，
// 行为尽量贴近 Postgres 实现：读取返回副本、写入带版本守卫、
// 条件更新在状态不匹配时返回 StateConflict。
type fakeRepository struct {
	nextID    int64
	schedules map[int64]*domain.Schedule
	shifts    map[int64]*domain.Shift
	swaps     map[int64]*domain.SwapRequest
	employees map[int64]*domain.Employee
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		schedules: map[int64]*domain.Schedule{},
		shifts:    map[int64]*domain.Shift{},
		swaps:     map[int64]*domain.SwapRequest{},
		employees: map[int64]*domain.Employee{},
	}
}

func (f *fakeRepository) newID() int64 {
	f.nextID++
	return f.nextID
}

func cloneConflicts(conflicts []domain.Conflict) []domain.Conflict {
	cloned := make([]domain.Conflict, 0, len(conflicts))
	for _, c := range conflicts {
		cc := c
		if c.ConflictingShiftID != nil {
			id := *c.ConflictingShiftID
			cc.ConflictingShiftID = &id
		}
		cloned = append(cloned, cc)
	}
	return cloned
}

func cloneInt64Ptr(p *int64) *int64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneTimePtr(p *time.Time) *time.Time {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneSchedule(s *domain.Schedule) *domain.Schedule {
	c := *s
	c.DepartmentID = cloneInt64Ptr(s.DepartmentID)
	c.PublishedAt = cloneTimePtr(s.PublishedAt)
	c.PublishedBy = cloneInt64Ptr(s.PublishedBy)
	c.LockedAt = cloneTimePtr(s.LockedAt)
	c.LockedBy = cloneInt64Ptr(s.LockedBy)
	c.DeletedAt = cloneTimePtr(s.DeletedAt)
	return &c
}

func cloneShift(s *domain.Shift) *domain.Shift {
	c := *s
	c.EmployeeID = cloneInt64Ptr(s.EmployeeID)
	c.ConflictDetails = cloneConflicts(s.ConflictDetails)
	c.DeletedAt = cloneTimePtr(s.DeletedAt)
	return &c
}

func cloneSwapRequest(r *domain.SwapRequest) *domain.SwapRequest {
	c := *r
	c.RequestedTo = cloneInt64Ptr(r.RequestedTo)
	c.TargetShiftID = cloneInt64Ptr(r.TargetShiftID)
	c.ApprovedBy = cloneInt64Ptr(r.ApprovedBy)
	c.ApprovedAt = cloneTimePtr(r.ApprovedAt)
	c.RejectedBy = cloneInt64Ptr(r.RejectedBy)
	c.RejectedAt = cloneTimePtr(r.RejectedAt)
	c.CancelledBy = cloneInt64Ptr(r.CancelledBy)
	c.CancelledAt = cloneTimePtr(r.CancelledAt)
	c.DeletedAt = cloneTimePtr(r.DeletedAt)
	return &c
}

/**********************************************
 * ScheduleRepository
 **********************************************/

func (f *fakeRepository) CreateSchedule(s *domain.Schedule) error {
	s.ID = f.newID()
	s.CreatedAt = time.Now()
	s.Version = 1
	f.schedules[s.ID] = cloneSchedule(s)
	return nil
}

func (f *fakeRepository) GetScheduleByID(tenantID int64, id int64) (*domain.Schedule, error) {
	s, ok := f.schedules[id]
	if !ok || s.TenantID != tenantID || s.DeletedAt != nil {
		return nil, domain.NewNotFoundError("班表不存在")
	}
	return cloneSchedule(s), nil
}

func (f *fakeRepository) GetAllSchedules(tenantID int64) ([]*domain.Schedule, error) {
	schedules := []*domain.Schedule{}
	for _, s := range f.schedules {
		if s.TenantID != tenantID || s.DeletedAt != nil {
			continue
		}
		schedules = append(schedules, cloneSchedule(s))
	}
	sort.Slice(schedules, func(i, j int) bool {
		return schedules[i].StartDate.After(schedules[j].StartDate)
	})
	return schedules, nil
}

func (f *fakeRepository) UpdateSchedule(s *domain.Schedule) error {
	stored, ok := f.schedules[s.ID]
	if !ok || stored.TenantID != s.TenantID || stored.DeletedAt != nil || stored.Version != s.Version {
		return domain.NewStateConflictError("班表已被其他操作修改，请刷新后重试")
	}
	s.Version++
	f.schedules[s.ID] = cloneSchedule(s)
	return nil
}

func (f *fakeRepository) SoftDeleteSchedule(s *domain.Schedule) error {
	stored, ok := f.schedules[s.ID]
	if !ok || stored.TenantID != s.TenantID || stored.DeletedAt != nil || stored.Version != s.Version {
		return domain.NewStateConflictError("班表已被其他操作修改，请刷新后重试")
	}
	now := time.Now()
	stored.DeletedAt = &now
	stored.Version++
	for _, shift := range f.shifts {
		if shift.ScheduleID == s.ID && shift.DeletedAt == nil {
			shift.DeletedAt = &now
			shift.Version++
		}
	}
	return nil
}

func (f *fakeRepository) HasOverlappingPublishedSchedule(tenantID int64, startDate time.Time, endDate time.Time, excludeID int64) (bool, error) {
	for _, s := range f.schedules {
		if s.TenantID != tenantID || s.ID == excludeID || s.DeletedAt != nil {
			continue
		}
		if s.Status != domain.ScheduleStatusPublished {
			continue
		}
		// 边界包含的重叠判定，和 SQL 实现保持一致
		if !s.StartDate.After(endDate) && !s.EndDate.Before(startDate) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRepository) CreateScheduleWithShifts(s *domain.Schedule, shifts []*domain.Shift) error {
	if err := f.CreateSchedule(s); err != nil {
		return err
	}
	for _, shift := range shifts {
		shift.ScheduleID = s.ID
		shift.TenantID = s.TenantID
		f.insertShift(shift)
	}
	return nil
}

/**********************************************
 * ShiftRepository
 **********************************************/

func (f *fakeRepository) insertShift(shift *domain.Shift) {
	shift.ID = f.newID()
	shift.CreatedAt = time.Now()
	shift.Version = 1
	f.shifts[shift.ID] = cloneShift(shift)
}

func (f *fakeRepository) GetShiftByID(tenantID int64, id int64) (*domain.Shift, error) {
	shift, ok := f.shifts[id]
	if !ok || shift.TenantID != tenantID || shift.DeletedAt != nil {
		return nil, domain.NewNotFoundError("班次不存在")
	}
	return cloneShift(shift), nil
}

func (f *fakeRepository) GetShiftsByScheduleID(tenantID int64, scheduleID int64) ([]*domain.Shift, error) {
	shifts := []*domain.Shift{}
	for _, shift := range f.shifts {
		if shift.TenantID != tenantID || shift.ScheduleID != scheduleID || shift.DeletedAt != nil {
			continue
		}
		shifts = append(shifts, cloneShift(shift))
	}
	sort.Slice(shifts, func(i, j int) bool {
		return shifts[i].StartTime.Before(shifts[j].StartTime)
	})
	return shifts, nil
}

func (f *fakeRepository) GetShiftsByScheduleAndEmployee(tenantID int64, scheduleID int64, employeeID int64) ([]*domain.Shift, error) {
	shifts := []*domain.Shift{}
	for _, shift := range f.shifts {
		if shift.TenantID != tenantID || shift.ScheduleID != scheduleID || shift.DeletedAt != nil {
			continue
		}
		if shift.EmployeeID == nil || *shift.EmployeeID != employeeID {
			continue
		}
		shifts = append(shifts, cloneShift(shift))
	}
	sort.Slice(shifts, func(i, j int) bool {
		return shifts[i].StartTime.Before(shifts[j].StartTime)
	})
	return shifts, nil
}

func (f *fakeRepository) updateShiftConflicts(peer *domain.Shift) error {
	stored, ok := f.shifts[peer.ID]
	if !ok || stored.DeletedAt != nil || stored.Version != peer.Version {
		return domain.NewStateConflictError("班次已被其他操作修改，请刷新后重试")
	}
	stored.HasConflicts = peer.HasConflicts
	stored.ConflictDetails = cloneConflicts(peer.ConflictDetails)
	stored.Version++
	peer.Version = stored.Version
	return nil
}

func (f *fakeRepository) CreateShift(shift *domain.Shift, peers []*domain.Shift) error {
	f.insertShift(shift)
	for _, peer := range peers {
		if err := f.updateShiftConflicts(peer); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeRepository) UpdateShift(shift *domain.Shift, peers []*domain.Shift) error {
	stored, ok := f.shifts[shift.ID]
	if !ok || stored.TenantID != shift.TenantID || stored.DeletedAt != nil || stored.Version != shift.Version {
		return domain.NewStateConflictError("班次已被其他操作修改，请刷新后重试")
	}
	shift.Version++
	f.shifts[shift.ID] = cloneShift(shift)
	for _, peer := range peers {
		if err := f.updateShiftConflicts(peer); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeRepository) SoftDeleteShift(shift *domain.Shift, peers []*domain.Shift) error {
	stored, ok := f.shifts[shift.ID]
	if !ok || stored.TenantID != shift.TenantID || stored.DeletedAt != nil || stored.Version != shift.Version {
		return domain.NewStateConflictError("班次已被其他操作修改，请刷新后重试")
	}
	now := time.Now()
	stored.DeletedAt = &now
	stored.Version++
	for _, peer := range peers {
		if err := f.updateShiftConflicts(peer); err != nil {
			return err
		}
	}
	return nil
}

/**********************************************
 * SwapRepository
 **********************************************/

func (f *fakeRepository) CreateSwapRequest(req *domain.SwapRequest) error {
	req.ID = f.newID()
	req.CreatedAt = time.Now()
	req.Version = 1
	f.swaps[req.ID] = cloneSwapRequest(req)
	return nil
}

func (f *fakeRepository) CreateSwapRequests(reqs []*domain.SwapRequest) error {
	for _, req := range reqs {
		if err := f.CreateSwapRequest(req); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeRepository) GetSwapRequestByID(tenantID int64, id int64) (*domain.SwapRequest, error) {
	req, ok := f.swaps[id]
	if !ok || req.TenantID != tenantID || req.DeletedAt != nil {
		return nil, domain.NewNotFoundError("换班申请不存在")
	}
	return cloneSwapRequest(req), nil
}

func (f *fakeRepository) GetSwapRequests(tenantID int64, filter domain.SwapRequestFilter) ([]*domain.SwapRequest, error) {
	reqs := []*domain.SwapRequest{}
	for _, req := range f.swaps {
		if req.TenantID != tenantID || req.DeletedAt != nil {
			continue
		}
		if filter.Status != "" && req.Status != filter.Status {
			continue
		}
		if filter.ShiftID != 0 && req.ShiftID != filter.ShiftID {
			continue
		}
		if filter.EmployeeID != 0 {
			participant := req.RequestedBy == filter.EmployeeID ||
				(req.RequestedTo != nil && *req.RequestedTo == filter.EmployeeID)
			if !participant {
				continue
			}
		}
		reqs = append(reqs, cloneSwapRequest(req))
	}
	sort.Slice(reqs, func(i, j int) bool {
		return reqs[i].CreatedAt.After(reqs[j].CreatedAt)
	})
	return reqs, nil
}

func (f *fakeRepository) ApproveSwapRequest(req *domain.SwapRequest, shifts []*domain.Shift, siblingRejectionReason string) error {
	stored, ok := f.swaps[req.ID]
	if !ok || stored.TenantID != req.TenantID || stored.DeletedAt != nil || stored.Status != domain.SwapStatusPending {
		return domain.NewStateConflictError("只有待处理的换班申请才能进行此操作")
	}

	now := time.Now()
	stored.Status = domain.SwapStatusApproved
	stored.ApprovedBy = cloneInt64Ptr(req.ApprovedBy)
	stored.ApprovedAt = &now
	stored.Version++
	req.Status = domain.SwapStatusApproved
	req.ApprovedAt = cloneTimePtr(stored.ApprovedAt)
	req.Version = stored.Version

	for _, shift := range shifts {
		storedShift, ok := f.shifts[shift.ID]
		if !ok || storedShift.DeletedAt != nil || storedShift.Version != shift.Version {
			return domain.NewStateConflictError("班次已被其他操作修改，请刷新后重试")
		}
		storedShift.EmployeeID = cloneInt64Ptr(shift.EmployeeID)
		storedShift.AssignmentStatus = shift.AssignmentStatus
		storedShift.HasConflicts = shift.HasConflicts
		storedShift.ConflictDetails = cloneConflicts(shift.ConflictDetails)
		storedShift.Version++
		shift.Version = storedShift.Version
	}

	for _, sibling := range f.swaps {
		if sibling.ID == req.ID || sibling.ShiftID != req.ShiftID || sibling.TenantID != req.TenantID {
			continue
		}
		if sibling.Status != domain.SwapStatusPending || sibling.DeletedAt != nil {
			continue
		}
		sibling.Status = domain.SwapStatusRejected
		sibling.RejectedBy = cloneInt64Ptr(req.ApprovedBy)
		sibling.RejectedAt = &now
		sibling.RejectionReason = siblingRejectionReason
		sibling.Version++
	}

	return nil
}

func (f *fakeRepository) RejectSwapRequest(req *domain.SwapRequest) error {
	stored, ok := f.swaps[req.ID]
	if !ok || stored.TenantID != req.TenantID || stored.DeletedAt != nil || stored.Status != domain.SwapStatusPending {
		return domain.NewStateConflictError("只有待处理的换班申请才能进行此操作")
	}
	now := time.Now()
	stored.Status = domain.SwapStatusRejected
	stored.RejectedBy = cloneInt64Ptr(req.RejectedBy)
	stored.RejectedAt = &now
	stored.RejectionReason = req.RejectionReason
	stored.Version++
	req.Status = domain.SwapStatusRejected
	req.RejectedAt = cloneTimePtr(stored.RejectedAt)
	req.Version = stored.Version
	return nil
}

func (f *fakeRepository) CancelSwapRequest(req *domain.SwapRequest) error {
	stored, ok := f.swaps[req.ID]
	if !ok || stored.TenantID != req.TenantID || stored.DeletedAt != nil || stored.Status != domain.SwapStatusPending {
		return domain.NewStateConflictError("只有待处理的换班申请才能进行此操作")
	}
	now := time.Now()
	stored.Status = domain.SwapStatusCancelled
	stored.CancelledBy = cloneInt64Ptr(req.CancelledBy)
	stored.CancelledAt = &now
	stored.Version++
	req.Status = domain.SwapStatusCancelled
	req.CancelledAt = cloneTimePtr(stored.CancelledAt)
	req.Version = stored.Version
	return nil
}

/**********************************************
 * EmployeeRepository
 **********************************************/

func (f *fakeRepository) GetEmployeeByID(tenantID int64, id int64) (*domain.Employee, error) {
	employee, ok := f.employees[id]
	if !ok || employee.TenantID != tenantID {
		return nil, domain.NewNotFoundError("员工不存在")
	}
	c := *employee
	return &c, nil
}

func (f *fakeRepository) GetActiveEmployeesByRole(tenantID int64, role string, excludeID int64) ([]*domain.Employee, error) {
	employees := []*domain.Employee{}
	for _, employee := range f.employees {
		if employee.TenantID != tenantID || employee.ID == excludeID {
			continue
		}
		if employee.Role != role || !employee.IsActive {
			continue
		}
		c := *employee
		employees = append(employees, &c)
	}
	sort.Slice(employees, func(i, j int) bool {
		return employees[i].ID < employees[j].ID
	})
	return employees, nil
}

func (f *fakeRepository) addEmployee(tenantID int64, role string, isActive bool) *domain.Employee {
	employee := &domain.Employee{
		ID:          f.newID(),
		TenantID:    tenantID,
		Role:        role,
		AccessLevel: domain.AccessLevelEmployee,
		IsActive:    isActive,
		CreatedAt:   time.Now(),
		Version:     1,
	}
	f.employees[employee.ID] = employee
	return employee
}

// fakeDispatcher 记录投递过的通知，方便断言通知旁路的行为。
type fakeDispatcher struct {
	messages []*domain.NotificationMessage
}

func (d *fakeDispatcher) Dispatch(msg *domain.NotificationMessage) {
	d.messages = append(d.messages, msg)
}

func newTestService() (*Service, *fakeRepository, *fakeDispatcher) {
	repo := newFakeRepository()
	dispatcher := &fakeDispatcher{}
	return NewService(repo, repo, repo, repo, dispatcher), repo, dispatcher
}
