package service

import (
	"github.com/sysu-ecnc-dev/shift-coordinator/backend/internal/domain"
)

const siblingRejectionReason = "该班次的其他换班申请已被批准，本申请由系统自动驳回"

// SwapService 负责换班申请的协商状态机：
// pending → approved / rejected / cancelled，三个终态都不可再变更。
// 每个状态变更都会在事务内重新校验申请仍处于 pending，
// 并发竞争的失败方收到 StateConflict，而不是悄悄覆盖。
type SwapService struct {
	swapRepo     SwapRepository
	shiftRepo    ShiftRepository
	scheduleRepo ScheduleRepository
	employeeRepo EmployeeRepository
	dispatcher   NotificationDispatcher
}

func NewSwapService(
	swapRepo SwapRepository,
	shiftRepo ShiftRepository,
	scheduleRepo ScheduleRepository,
	employeeRepo EmployeeRepository,
	dispatcher NotificationDispatcher,
) *SwapService {
	return &SwapService{
		swapRepo:     swapRepo,
		shiftRepo:    shiftRepo,
		scheduleRepo: scheduleRepo,
		employeeRepo: employeeRepo,
		dispatcher:   dispatcher,
	}
}

type CreateSwapInput struct {
	ShiftID         int64
	RequestedTo     *int64
	TargetShiftID   *int64
	Reason          string
	Notes           string
	BroadcastToRole bool
}

// Create 创建换班申请。定向模式生成一条申请；
// 广播模式按源班次的岗位向租户内所有在职同岗位员工各生成一条独立申请。
// 申请落库后向接收方投递尽力而为的通知，通知失败不影响创建结果。
func (s *SwapService) Create(tenantID int64, requesterID int64, in CreateSwapInput) ([]*domain.SwapRequest, error) {
	shift, err := s.shiftRepo.GetShiftByID(tenantID, in.ShiftID)
	if err != nil {
		return nil, err
	}
	if shift.EmployeeID == nil || *shift.EmployeeID != requesterID {
		return nil, domain.NewValidationError("只能为自己负责的班次发起换班")
	}

	requester, err := s.employeeRepo.GetEmployeeByID(tenantID, requesterID)
	if err != nil {
		return nil, err
	}

	if in.BroadcastToRole {
		return s.createBroadcast(tenantID, requester, shift, in)
	}
	return s.createTargeted(tenantID, requester, shift, in)
}

func (s *SwapService) createTargeted(tenantID int64, requester *domain.Employee, shift *domain.Shift, in CreateSwapInput) ([]*domain.SwapRequest, error) {
	if in.RequestedTo == nil {
		return nil, domain.NewValidationError("定向换班必须指定换班对象")
	}

	recipient, err := s.employeeRepo.GetEmployeeByID(tenantID, *in.RequestedTo)
	if err != nil {
		return nil, err
	}
	if !recipient.IsActive {
		return nil, domain.NewValidationError("换班对象已离职")
	}

	if in.TargetShiftID != nil {
		targetShift, err := s.shiftRepo.GetShiftByID(tenantID, *in.TargetShiftID)
		if err != nil {
			return nil, err
		}
		if targetShift.EmployeeID == nil || *targetShift.EmployeeID != recipient.ID {
			return nil, domain.NewValidationError("目标班次未指派给换班对象")
		}
	}

	req := &domain.SwapRequest{
		TenantID:      tenantID,
		ShiftID:       shift.ID,
		RequestedBy:   requester.ID,
		RequestedTo:   in.RequestedTo,
		TargetShiftID: in.TargetShiftID,
		Status:        domain.SwapStatusPending,
		Reason:        in.Reason,
		Notes:         in.Notes,
	}
	if err := s.swapRepo.CreateSwapRequest(req); err != nil {
		return nil, err
	}

	s.notifyCreated(req, shift, requester, recipient)

	return []*domain.SwapRequest{req}, nil
}

func (s *SwapService) createBroadcast(tenantID int64, requester *domain.Employee, shift *domain.Shift, in CreateSwapInput) ([]*domain.SwapRequest, error) {
	if shift.Role == "" {
		return nil, domain.NewValidationError("班次未设置岗位，无法按岗位广播")
	}

	recipients, err := s.employeeRepo.GetActiveEmployeesByRole(tenantID, shift.Role, requester.ID)
	if err != nil {
		return nil, err
	}
	if len(recipients) == 0 {
		return nil, domain.NewValidationError("没有可接收广播的同岗位员工")
	}

	reqs := make([]*domain.SwapRequest, 0, len(recipients))
	for _, recipient := range recipients {
		recipientID := recipient.ID
		reqs = append(reqs, &domain.SwapRequest{
			TenantID:    tenantID,
			ShiftID:     shift.ID,
			RequestedBy: requester.ID,
			RequestedTo: &recipientID,
			Status:      domain.SwapStatusPending,
			Reason:      in.Reason,
			Notes:       in.Notes,
		})
	}
	if err := s.swapRepo.CreateSwapRequests(reqs); err != nil {
		return nil, err
	}

	for i, req := range reqs {
		s.notifyCreated(req, shift, requester, recipients[i])
	}

	return reqs, nil
}

func (s *SwapService) notifyCreated(req *domain.SwapRequest, shift *domain.Shift, requester *domain.Employee, recipient *domain.Employee) {
	s.dispatcher.Dispatch(&domain.NotificationMessage{
		Type:     domain.NotificationTypeSwapCreated,
		TenantID: req.TenantID,
		To:       recipient.Email,
		Data: domain.SwapCreatedNotificationData{
			RecipientName: recipient.FullName,
			RequesterName: requester.FullName,
			ShiftWindow:   formatShiftWindow(shift),
			Reason:        req.Reason,
			SwapRequestID: req.ID,
		},
	})
}

func (s *SwapService) notifyResolved(notificationType string, req *domain.SwapRequest, shift *domain.Shift) {
	requester, err := s.employeeRepo.GetEmployeeByID(req.TenantID, req.RequestedBy)
	if err != nil {
		// 申请人查不到只影响通知，不影响已完成的状态变更
		return
	}
	s.dispatcher.Dispatch(&domain.NotificationMessage{
		Type:     notificationType,
		TenantID: req.TenantID,
		To:       requester.Email,
		Data: domain.SwapResolvedNotificationData{
			RecipientName:   requester.FullName,
			ShiftWindow:     formatShiftWindow(shift),
			SwapRequestID:   req.ID,
			RejectionReason: req.RejectionReason,
		},
	})
}

// Approve 批准换班申请：
// 双向换班交换源班次和目标班次的负责人，单向换班把源班次转给 RequestedTo。
// 负责人变更、状态流转、兄弟广播申请的自动驳回在同一个事务内完成，
// 事务失败不会留下换了一半的指派。
func (s *SwapService) Approve(tenantID int64, requestID int64, actorID int64) (*domain.SwapRequest, error) {
	req, err := s.swapRepo.GetSwapRequestByID(tenantID, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != domain.SwapStatusPending {
		return nil, domain.NewStateConflictError("只有待处理的换班申请才能进行此操作")
	}

	sourceShift, err := s.shiftRepo.GetShiftByID(tenantID, req.ShiftID)
	if err != nil {
		return nil, err
	}
	// 申请可能在班表锁定前创建，批准时要重新检查锁定状态
	if err := s.ensureScheduleUnlocked(tenantID, sourceShift.ScheduleID); err != nil {
		return nil, err
	}

	var reassigned []*domain.Shift
	if req.TargetShiftID != nil {
		targetShift, err := s.shiftRepo.GetShiftByID(tenantID, *req.TargetShiftID)
		if err != nil {
			return nil, err
		}
		if targetShift.ScheduleID != sourceShift.ScheduleID {
			if err := s.ensureScheduleUnlocked(tenantID, targetShift.ScheduleID); err != nil {
				return nil, err
			}
		}
		sourceShift.EmployeeID, targetShift.EmployeeID = targetShift.EmployeeID, sourceShift.EmployeeID
		sourceShift.AssignmentStatus = domain.AssignmentStatusSwapped
		targetShift.AssignmentStatus = domain.AssignmentStatusSwapped
		reassigned = []*domain.Shift{sourceShift, targetShift}
	} else {
		if req.RequestedTo == nil {
			return nil, domain.NewValidationError("换班申请缺少接收人")
		}
		recipientID := *req.RequestedTo
		sourceShift.EmployeeID = &recipientID
		sourceShift.AssignmentStatus = domain.AssignmentStatusSwapped
		reassigned = []*domain.Shift{sourceShift}
	}

	updates, err := s.recomputeAfterReassign(tenantID, reassigned)
	if err != nil {
		return nil, err
	}

	req.ApprovedBy = &actorID
	if err := s.swapRepo.ApproveSwapRequest(req, updates, siblingRejectionReason); err != nil {
		return nil, err
	}

	s.notifyResolved(domain.NotificationTypeSwapApproved, req, sourceShift)

	return req, nil
}

func (s *SwapService) ensureScheduleUnlocked(tenantID int64, scheduleID int64) error {
	schedule, err := s.scheduleRepo.GetScheduleByID(tenantID, scheduleID)
	if err != nil {
		return err
	}
	if schedule.Status == domain.ScheduleStatusLocked {
		return domain.NewStateConflictError("班表已锁定，禁止修改班次")
	}
	return nil
}

// recomputeAfterReassign 对换班涉及的员工重算冲突，
// 返回需要随批准事务一起落库的班次集合（含换班班次本身和受影响的同事班次）。
func (s *SwapService) recomputeAfterReassign(tenantID int64, reassigned []*domain.Shift) ([]*domain.Shift, error) {
	type setKey struct {
		scheduleID int64
		employeeID int64
	}

	mutated := map[int64]*domain.Shift{}
	affected := map[setKey]bool{}
	for _, shift := range reassigned {
		mutated[shift.ID] = shift
		if shift.EmployeeID != nil {
			affected[setKey{shift.ScheduleID, *shift.EmployeeID}] = true
		}
	}

	updates := []*domain.Shift{}
	seen := map[int64]bool{}
	appendUpdate := func(shift *domain.Shift) {
		if seen[shift.ID] {
			return
		}
		seen[shift.ID] = true
		updates = append(updates, shift)
	}

	// 换班班次必须先进更新列表，它们携带新的负责人
	for _, shift := range reassigned {
		shift.ConflictDetails = []domain.Conflict{}
		shift.HasConflicts = false
		appendUpdate(shift)
	}

	for key := range affected {
		stored, err := s.shiftRepo.GetShiftsByScheduleAndEmployee(tenantID, key.scheduleID, key.employeeID)
		if err != nil {
			return nil, err
		}

		// 数据库里的集合还是换班前的状态，按换班后的归属修正成员
		set := []*domain.Shift{}
		for _, shift := range stored {
			if _, ok := mutated[shift.ID]; ok {
				continue
			}
			set = append(set, shift)
		}
		for _, shift := range reassigned {
			if shift.ScheduleID == key.scheduleID && shift.EmployeeID != nil && *shift.EmployeeID == key.employeeID {
				set = append(set, shift)
			}
		}

		recomputeConflictSet(set)
		for _, shift := range set {
			appendUpdate(shift)
		}
	}

	return updates, nil
}

// Reject 驳回换班申请，必须填写驳回理由。
func (s *SwapService) Reject(tenantID int64, requestID int64, actorID int64, reason string) (*domain.SwapRequest, error) {
	if reason == "" {
		return nil, domain.NewValidationError("驳回必须填写理由")
	}

	req, err := s.swapRepo.GetSwapRequestByID(tenantID, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != domain.SwapStatusPending {
		return nil, domain.NewStateConflictError("只有待处理的换班申请才能进行此操作")
	}

	req.RejectedBy = &actorID
	req.RejectionReason = reason
	if err := s.swapRepo.RejectSwapRequest(req); err != nil {
		return nil, err
	}

	if shift, err := s.shiftRepo.GetShiftByID(tenantID, req.ShiftID); err == nil {
		s.notifyResolved(domain.NotificationTypeSwapRejected, req, shift)
	}

	return req, nil
}

// Cancel 撤销换班申请，只有申请人本人可以撤销。
func (s *SwapService) Cancel(tenantID int64, requestID int64, actorID int64) (*domain.SwapRequest, error) {
	req, err := s.swapRepo.GetSwapRequestByID(tenantID, requestID)
	if err != nil {
		return nil, err
	}
	if req.RequestedBy != actorID {
		return nil, domain.NewValidationError("只有申请人本人才能撤销换班申请")
	}
	if req.Status != domain.SwapStatusPending {
		return nil, domain.NewStateConflictError("只有待处理的换班申请才能进行此操作")
	}

	req.CancelledBy = &actorID
	if err := s.swapRepo.CancelSwapRequest(req); err != nil {
		return nil, err
	}

	return req, nil
}

func (s *SwapService) GetAll(tenantID int64, filter domain.SwapRequestFilter) ([]*domain.SwapRequest, error) {
	return s.swapRepo.GetSwapRequests(tenantID, filter)
}

// GetByEmployee 返回员工作为申请人或接收人参与的所有换班申请，按创建时间倒序。
func (s *SwapService) GetByEmployee(tenantID int64, employeeID int64, status domain.SwapStatus) ([]*domain.SwapRequest, error) {
	return s.swapRepo.GetSwapRequests(tenantID, domain.SwapRequestFilter{
		Status:     status,
		EmployeeID: employeeID,
	})
}
