package service

import (
	"testing"
	"time"

	"github.com/sysu-ecnc-dev/shift-coordinator/backend/internal/domain"
)

func mustCreateShift(t *testing.T, svc *Service, scheduleID int64, start time.Time, end time.Time, employeeID *int64) *domain.Shift {
	t.Helper()
	shift, err := svc.Shifts.Create(testTenantID, scheduleID, CreateShiftInput{
		StartTime:  start,
		EndTime:    end,
		Role:       "前台",
		EmployeeID: employeeID,
	})
	if err != nil {
		t.Fatalf("创建班次失败: %v", err)
	}
	return shift
}

func TestCreateShiftValidation(t *testing.T) {
	svc, _, _ := newTestService()
	schedule := mustCreateSchedule(t, svc, date(2025, 3, 3), date(2025, 3, 9))

	// 结束时间必须晚于开始时间
	_, err := svc.Shifts.Create(testTenantID, schedule.ID, CreateShiftInput{
		StartTime: date(2025, 3, 3).Add(13 * time.Hour),
		EndTime:   date(2025, 3, 3).Add(9 * time.Hour),
	})
	assertDomainError(t, err, domain.ErrCodeValidation)

	// 班次时长不能超过 24 小时
	_, err = svc.Shifts.Create(testTenantID, schedule.ID, CreateShiftInput{
		StartTime: date(2025, 3, 3).Add(9 * time.Hour),
		EndTime:   date(2025, 3, 4).Add(10 * time.Hour),
	})
	assertDomainError(t, err, domain.ErrCodeValidation)

	// 休息时长不能为负数
	_, err = svc.Shifts.Create(testTenantID, schedule.ID, CreateShiftInput{
		StartTime:    date(2025, 3, 3).Add(9 * time.Hour),
		EndTime:      date(2025, 3, 3).Add(13 * time.Hour),
		BreakMinutes: -30,
	})
	assertDomainError(t, err, domain.ErrCodeValidation)

	// 不存在的班表
	_, err = svc.Shifts.Create(testTenantID, 9999, CreateShiftInput{
		StartTime: date(2025, 3, 3).Add(9 * time.Hour),
		EndTime:   date(2025, 3, 3).Add(13 * time.Hour),
	})
	assertDomainError(t, err, domain.ErrCodeNotFound)
}

func TestOverlapConflictFlagsBothShifts(t *testing.T) {
	svc, repo, _ := newTestService()
	employee := repo.addEmployee(testTenantID, "前台", true)
	schedule := mustCreateSchedule(t, svc, date(2025, 3, 3), date(2025, 3, 9))

	first := mustCreateShift(t, svc, schedule.ID, date(2025, 3, 3).Add(9*time.Hour), date(2025, 3, 3).Add(13*time.Hour), &employee.ID)
	if first.HasConflicts {
		t.Fatal("单个班次不应有冲突")
	}

	second := mustCreateShift(t, svc, schedule.ID, date(2025, 3, 3).Add(11*time.Hour), date(2025, 3, 3).Add(15*time.Hour), &employee.ID)
	if !second.HasConflicts || len(second.ConflictDetails) != 1 {
		t.Fatal("重叠班次应被标记冲突")
	}
	conflict := second.ConflictDetails[0]
	if conflict.Type != domain.ConflictTypeOverlap || conflict.Severity != domain.ConflictSeverityError {
		t.Fatalf("冲突类型或级别错误: %+v", conflict)
	}
	if conflict.ConflictingShiftID == nil || *conflict.ConflictingShiftID != first.ID {
		t.Fatal("冲突应引用重叠的对方班次")
	}

	// 重叠是双向的，先创建的班次也要被重新标记
	stored, err := svc.Shifts.GetByID(testTenantID, first.ID)
	if err != nil {
		t.Fatalf("获取班次失败: %v", err)
	}
	if !stored.HasConflicts || len(stored.ConflictDetails) != 1 {
		t.Fatal("先创建的班次也应被标记冲突")
	}
	if stored.ConflictDetails[0].ConflictingShiftID == nil || *stored.ConflictDetails[0].ConflictingShiftID != second.ID {
		t.Fatal("先创建班次的冲突应引用后创建的班次")
	}
}

func TestDisjointAndUnassignedShiftsHaveNoConflicts(t *testing.T) {
	svc, repo, _ := newTestService()
	employee := repo.addEmployee(testTenantID, "前台", true)
	other := repo.addEmployee(testTenantID, "前台", true)
	schedule := mustCreateSchedule(t, svc, date(2025, 3, 3), date(2025, 3, 9))

	// 首尾相接不算重叠
	first := mustCreateShift(t, svc, schedule.ID, date(2025, 3, 3).Add(9*time.Hour), date(2025, 3, 3).Add(13*time.Hour), &employee.ID)
	second := mustCreateShift(t, svc, schedule.ID, date(2025, 3, 3).Add(13*time.Hour), date(2025, 3, 3).Add(17*time.Hour), &employee.ID)
	if first.HasConflicts || second.HasConflicts {
		t.Fatal("首尾相接的班次不应算重叠")
	}

	// 不同员工的重叠时间段不算冲突
	third := mustCreateShift(t, svc, schedule.ID, date(2025, 3, 3).Add(9*time.Hour), date(2025, 3, 3).Add(13*time.Hour), &other.ID)
	if third.HasConflicts {
		t.Fatal("不同员工之间不应产生重叠冲突")
	}

	// 未指派的班次不参与冲突检测
	fourth := mustCreateShift(t, svc, schedule.ID, date(2025, 3, 3).Add(9*time.Hour), date(2025, 3, 3).Add(13*time.Hour), nil)
	if fourth.HasConflicts {
		t.Fatal("未指派的班次不应有冲突")
	}
}

func TestReassignShiftRecomputesBothEmployees(t *testing.T) {
	svc, repo, _ := newTestService()
	alice := repo.addEmployee(testTenantID, "前台", true)
	bob := repo.addEmployee(testTenantID, "前台", true)
	schedule := mustCreateSchedule(t, svc, date(2025, 3, 3), date(2025, 3, 9))

	first := mustCreateShift(t, svc, schedule.ID, date(2025, 3, 3).Add(9*time.Hour), date(2025, 3, 3).Add(13*time.Hour), &alice.ID)
	second := mustCreateShift(t, svc, schedule.ID, date(2025, 3, 3).Add(11*time.Hour), date(2025, 3, 3).Add(15*time.Hour), &alice.ID)
	if !second.HasConflicts {
		t.Fatal("前置条件：两个班次重叠")
	}

	// 改派后冲突消失，原员工剩下的班次也要清掉冲突标记
	updated, err := svc.Shifts.Update(testTenantID, second.ID, UpdateShiftInput{EmployeeID: &bob.ID})
	if err != nil {
		t.Fatalf("改派失败: %v", err)
	}
	if updated.HasConflicts {
		t.Fatal("改派给无冲突员工后不应有冲突")
	}

	stored, err := svc.Shifts.GetByID(testTenantID, first.ID)
	if err != nil {
		t.Fatalf("获取班次失败: %v", err)
	}
	if stored.HasConflicts {
		t.Fatal("原员工剩下的班次应清除冲突标记")
	}
}

func TestDeleteShiftClearsPeerConflicts(t *testing.T) {
	svc, repo, _ := newTestService()
	employee := repo.addEmployee(testTenantID, "前台", true)
	schedule := mustCreateSchedule(t, svc, date(2025, 3, 3), date(2025, 3, 9))

	first := mustCreateShift(t, svc, schedule.ID, date(2025, 3, 3).Add(9*time.Hour), date(2025, 3, 3).Add(13*time.Hour), &employee.ID)
	second := mustCreateShift(t, svc, schedule.ID, date(2025, 3, 3).Add(11*time.Hour), date(2025, 3, 3).Add(15*time.Hour), &employee.ID)

	if err := svc.Shifts.Delete(testTenantID, second.ID); err != nil {
		t.Fatalf("删除失败: %v", err)
	}

	_, err := svc.Shifts.GetByID(testTenantID, second.ID)
	assertDomainError(t, err, domain.ErrCodeNotFound)

	stored, err := svc.Shifts.GetByID(testTenantID, first.ID)
	if err != nil {
		t.Fatalf("获取班次失败: %v", err)
	}
	if stored.HasConflicts {
		t.Fatal("删除重叠班次后对方应清除冲突标记")
	}
}

func TestLockedScheduleRejectsShiftChanges(t *testing.T) {
	svc, repo, _ := newTestService()
	employee := repo.addEmployee(testTenantID, "前台", true)
	schedule := mustCreateSchedule(t, svc, date(2025, 3, 3), date(2025, 3, 9))
	shift := mustCreateShift(t, svc, schedule.ID, date(2025, 3, 3).Add(9*time.Hour), date(2025, 3, 3).Add(13*time.Hour), &employee.ID)

	if _, err := svc.Schedules.Publish(testTenantID, schedule.ID, 100); err != nil {
		t.Fatalf("发布失败: %v", err)
	}
	if _, err := svc.Schedules.Lock(testTenantID, schedule.ID, 100, ""); err != nil {
		t.Fatalf("锁定失败: %v", err)
	}

	_, err := svc.Shifts.Create(testTenantID, schedule.ID, CreateShiftInput{
		StartTime: date(2025, 3, 4).Add(9 * time.Hour),
		EndTime:   date(2025, 3, 4).Add(13 * time.Hour),
	})
	assertDomainError(t, err, domain.ErrCodeStateConflict)

	notes := "改一下"
	_, err = svc.Shifts.Update(testTenantID, shift.ID, UpdateShiftInput{Notes: &notes})
	assertDomainError(t, err, domain.ErrCodeStateConflict)

	err = svc.Shifts.Delete(testTenantID, shift.ID)
	assertDomainError(t, err, domain.ErrCodeStateConflict)

	_, err = svc.Shifts.Duplicate(testTenantID, shift.ID, DuplicateShiftInput{Date: date(2025, 3, 5)})
	assertDomainError(t, err, domain.ErrCodeStateConflict)
}

func TestDuplicateShift(t *testing.T) {
	svc, repo, _ := newTestService()
	employee := repo.addEmployee(testTenantID, "前台", true)
	schedule := mustCreateSchedule(t, svc, date(2025, 3, 3), date(2025, 3, 9))
	source := mustCreateShift(t, svc, schedule.ID, date(2025, 3, 3).Add(9*time.Hour), date(2025, 3, 3).Add(13*time.Hour), &employee.ID)

	clone, err := svc.Shifts.Duplicate(testTenantID, source.ID, DuplicateShiftInput{Date: date(2025, 3, 5)})
	if err != nil {
		t.Fatalf("复制失败: %v", err)
	}
	if !clone.StartTime.Equal(date(2025, 3, 5).Add(9*time.Hour)) || !clone.EndTime.Equal(date(2025, 3, 5).Add(13*time.Hour)) {
		t.Fatalf("复制后的时间错误: %s ~ %s", clone.StartTime, clone.EndTime)
	}
	if clone.EmployeeID != nil || clone.AssignmentStatus != domain.AssignmentStatusUnassigned {
		t.Fatal("默认复制不应保留指派")
	}

	assigned, err := svc.Shifts.Duplicate(testTenantID, source.ID, DuplicateShiftInput{Date: date(2025, 3, 6), IncludeAssignment: true})
	if err != nil {
		t.Fatalf("复制失败: %v", err)
	}
	if assigned.EmployeeID == nil || *assigned.EmployeeID != employee.ID {
		t.Fatal("IncludeAssignment 时应保留指派")
	}
}

func TestDuplicateOvernightShift(t *testing.T) {
	svc, _, _ := newTestService()
	schedule := mustCreateSchedule(t, svc, date(2025, 3, 3), date(2025, 3, 9))
	// 22:00 ~ 次日 06:00 的跨夜班次
	source := mustCreateShift(t, svc, schedule.ID, date(2025, 3, 3).Add(22*time.Hour), date(2025, 3, 4).Add(6*time.Hour), nil)

	clone, err := svc.Shifts.Duplicate(testTenantID, source.ID, DuplicateShiftInput{Date: date(2025, 3, 6)})
	if err != nil {
		t.Fatalf("复制失败: %v", err)
	}
	if !clone.StartTime.Equal(date(2025, 3, 6).Add(22 * time.Hour)) {
		t.Fatalf("跨夜班次开始时间错误: %s", clone.StartTime)
	}
	if !clone.EndTime.Equal(date(2025, 3, 7).Add(6 * time.Hour)) {
		t.Fatalf("跨夜班次结束日期应顺延一天: %s", clone.EndTime)
	}
}

func TestGetConflictSummary(t *testing.T) {
	svc, repo, _ := newTestService()
	alice := repo.addEmployee(testTenantID, "前台", true)
	bob := repo.addEmployee(testTenantID, "前台", true)
	schedule := mustCreateSchedule(t, svc, date(2025, 3, 3), date(2025, 3, 9))

	summary, err := svc.Shifts.GetConflictSummary(testTenantID, schedule.ID)
	if err != nil {
		t.Fatalf("获取冲突汇总失败: %v", err)
	}
	if summary.TotalConflicts != 0 || !summary.CanPublish {
		t.Fatal("空班表应可发布")
	}

	first := mustCreateShift(t, svc, schedule.ID, date(2025, 3, 3).Add(9*time.Hour), date(2025, 3, 3).Add(13*time.Hour), &alice.ID)
	second := mustCreateShift(t, svc, schedule.ID, date(2025, 3, 3).Add(11*time.Hour), date(2025, 3, 3).Add(15*time.Hour), &alice.ID)
	mustCreateShift(t, svc, schedule.ID, date(2025, 3, 4).Add(9*time.Hour), date(2025, 3, 4).Add(13*time.Hour), &bob.ID)

	summary, err = svc.Shifts.GetConflictSummary(testTenantID, schedule.ID)
	if err != nil {
		t.Fatalf("获取冲突汇总失败: %v", err)
	}
	if summary.TotalConflicts != 2 {
		t.Fatalf("期望 2 条冲突，实际 %d", summary.TotalConflicts)
	}
	if summary.CanPublish {
		t.Fatal("存在冲突时不可发布")
	}
	if summary.ByEmployee[alice.ID] != 2 || summary.ByEmployee[bob.ID] != 0 {
		t.Fatalf("按员工统计错误: %+v", summary.ByEmployee)
	}
	if len(summary.ShiftIDs) != 2 {
		t.Fatalf("冲突班次列表错误: %+v", summary.ShiftIDs)
	}
	flagged := map[int64]bool{}
	for _, id := range summary.ShiftIDs {
		flagged[id] = true
	}
	if !flagged[first.ID] || !flagged[second.ID] {
		t.Fatal("冲突班次列表应包含两个重叠班次")
	}
}
