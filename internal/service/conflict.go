package service

import (
	"fmt"

	"github.com/sysu-ecnc-dev/shift-coordinator/backend/internal/domain"
)

func formatShiftWindow(shift *domain.Shift) string {
	return fmt.Sprintf("%s ~ %s", shift.StartTime.Format("2006-01-02 15:04"), shift.EndTime.Format("2006-01-02 15:04"))
}

// detectShiftConflicts 对班次运行冲突检测，candidates 是同一班表内
// 指派给同一员工的其他班次。未指派的班次没有冲突。
// 重叠判定：S.start < C.end 且 S.end > C.start，只报告第一个命中的候选班次。
func detectShiftConflicts(shift *domain.Shift, candidates []*domain.Shift) []domain.Conflict {
	if shift.EmployeeID == nil {
		return nil
	}

	conflicts := []domain.Conflict{}

	for _, candidate := range candidates {
		if candidate.ID == shift.ID && candidate.ID != 0 {
			continue
		}
		if candidate == shift {
			continue
		}
		if candidate.EmployeeID == nil || *candidate.EmployeeID != *shift.EmployeeID {
			continue
		}
		if shift.StartTime.Before(candidate.EndTime) && shift.EndTime.After(candidate.StartTime) {
			conflicts = append(conflicts, domain.Conflict{
				Type:               domain.ConflictTypeOverlap,
				Severity:           domain.ConflictSeverityError,
				Message:            fmt.Sprintf("与班次（%s）的时间重叠", formatShiftWindow(candidate)),
				ConflictingShiftID: &candidate.ID,
			})
			break
		}
	}

	conflicts = append(conflicts, detectRestPeriodConflicts(shift, candidates)...)
	conflicts = append(conflicts, detectMaxHoursConflicts(shift, candidates)...)

	return conflicts
}

// detectRestPeriodConflicts 是休息间隔规则的扩展点，当前不做任何检测。
// 实现时必须维持"每次变更后重算"的约定。
func detectRestPeriodConflicts(_ *domain.Shift, _ []*domain.Shift) []domain.Conflict {
	return nil
}

// detectMaxHoursConflicts 是最长工时规则的扩展点，当前不做任何检测。
func detectMaxHoursConflicts(_ *domain.Shift, _ []*domain.Shift) []domain.Conflict {
	return nil
}

// recomputeConflictSet 对同一员工在同一班表内的整组班次重算冲突标记。
func recomputeConflictSet(shifts []*domain.Shift) {
	for _, shift := range shifts {
		conflicts := detectShiftConflicts(shift, shifts)
		shift.ConflictDetails = conflicts
		shift.HasConflicts = len(conflicts) > 0
	}
}
