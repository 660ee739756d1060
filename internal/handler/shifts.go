package handler

import (
	"net/http"
	"time"

	"github.com/sysu-ecnc-dev/shift-coordinator/backend/internal/domain"
	"github.com/sysu-ecnc-dev/shift-coordinator/backend/internal/service"
)

func (h *Handler) CreateShift(w http.ResponseWriter, r *http.Request) {
	schedule := r.Context().Value(ScheduleCtx).(*domain.Schedule)

	var req struct {
		StartTime    time.Time `json:"startTime" validate:"required"`
		EndTime      time.Time `json:"endTime" validate:"required"`
		BreakMinutes int32     `json:"breakMinutes"`
		Role         string    `json:"role"`
		Location     string    `json:"location"`
		Color        string    `json:"color"`
		Notes        string    `json:"notes"`
		EmployeeID   *int64    `json:"employeeID"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	shift, err := h.service.Shifts.Create(h.tenantID(r), schedule.ID, service.CreateShiftInput{
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
		BreakMinutes: req.BreakMinutes,
		Role:         req.Role,
		Location:     req.Location,
		Color:        req.Color,
		Notes:        req.Notes,
		EmployeeID:   req.EmployeeID,
	})
	if err != nil {
		h.domainError(w, r, err)
		return
	}

	h.invalidateConflictCache(r.Context(), schedule.ID)
	h.successResponse(w, r, "创建班次成功", shift)
}

func (h *Handler) GetScheduleShifts(w http.ResponseWriter, r *http.Request) {
	schedule := r.Context().Value(ScheduleCtx).(*domain.Schedule)

	shifts, err := h.service.Shifts.GetBySchedule(h.tenantID(r), schedule.ID)
	if err != nil {
		h.domainError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取班次列表成功", shifts)
}

func (h *Handler) UpdateShift(w http.ResponseWriter, r *http.Request) {
	shiftID, err := h.urlID(r)
	if err != nil {
		h.errorResponse(w, r, "班次ID无效")
		return
	}

	var req struct {
		StartTime    *time.Time `json:"startTime"`
		EndTime      *time.Time `json:"endTime"`
		BreakMinutes *int32     `json:"breakMinutes"`
		Role         *string    `json:"role"`
		Location     *string    `json:"location"`
		Color        *string    `json:"color"`
		Notes        *string    `json:"notes"`
		EmployeeID   *int64     `json:"employeeID"`
		Unassign     bool       `json:"unassign"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	shift, err := h.service.Shifts.Update(h.tenantID(r), shiftID, service.UpdateShiftInput{
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
		BreakMinutes: req.BreakMinutes,
		Role:         req.Role,
		Location:     req.Location,
		Color:        req.Color,
		Notes:        req.Notes,
		EmployeeID:   req.EmployeeID,
		Unassign:     req.Unassign,
	})
	if err != nil {
		h.domainError(w, r, err)
		return
	}

	h.invalidateConflictCache(r.Context(), shift.ScheduleID)
	h.successResponse(w, r, "更新班次成功", shift)
}

func (h *Handler) DeleteShift(w http.ResponseWriter, r *http.Request) {
	shiftID, err := h.urlID(r)
	if err != nil {
		h.errorResponse(w, r, "班次ID无效")
		return
	}

	// 先取一次班次拿到所属班表，删除后还要让冲突缓存失效
	shift, err := h.service.Shifts.GetByID(h.tenantID(r), shiftID)
	if err != nil {
		h.domainError(w, r, err)
		return
	}

	if err := h.service.Shifts.Delete(h.tenantID(r), shiftID); err != nil {
		h.domainError(w, r, err)
		return
	}

	h.invalidateConflictCache(r.Context(), shift.ScheduleID)
	h.successResponse(w, r, "删除班次成功", nil)
}

func (h *Handler) DuplicateShift(w http.ResponseWriter, r *http.Request) {
	shiftID, err := h.urlID(r)
	if err != nil {
		h.errorResponse(w, r, "班次ID无效")
		return
	}

	var req struct {
		Date              time.Time `json:"date" validate:"required"`
		IncludeAssignment bool      `json:"includeAssignment"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	clone, err := h.service.Shifts.Duplicate(h.tenantID(r), shiftID, service.DuplicateShiftInput{
		Date:              req.Date,
		IncludeAssignment: req.IncludeAssignment,
	})
	if err != nil {
		h.domainError(w, r, err)
		return
	}

	h.invalidateConflictCache(r.Context(), clone.ScheduleID)
	h.successResponse(w, r, "复制班次成功", clone)
}
