package utils

import (
	"time"

	"github.com/sysu-ecnc-dev/shift-coordinator/backend/internal/domain"
)

const maxShiftDuration = 24 * time.Hour

// ValidateShiftWindow 检查班次时间窗：结束时间必须晚于开始时间，时长不能超过 24 小时。
func ValidateShiftWindow(startTime time.Time, endTime time.Time) error {
	if !endTime.After(startTime) {
		return domain.NewValidationError("班次结束时间必须晚于开始时间")
	}
	if endTime.Sub(startTime) > maxShiftDuration {
		return domain.NewValidationError("班次时长不能超过 24 小时")
	}
	return nil
}

func ValidateBreakMinutes(breakMinutes int32) error {
	if breakMinutes < 0 {
		return domain.NewValidationError("休息时长不能为负数")
	}
	return nil
}
