package handler

import (
	"net/http"
	"strconv"

	"github.com/sysu-ecnc-dev/shift-coordinator/backend/internal/domain"
	"github.com/sysu-ecnc-dev/shift-coordinator/backend/internal/service"
)

func (h *Handler) CreateSwapRequest(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ShiftID         int64  `json:"shiftID" validate:"required"`
		RequestedTo     *int64 `json:"requestedTo"`
		TargetShiftID   *int64 `json:"targetShiftID"`
		Reason          string `json:"reason"`
		Notes           string `json:"notes"`
		BroadcastToRole bool   `json:"broadcastToRole"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	reqs, err := h.service.Swaps.Create(h.tenantID(r), h.employeeID(r), service.CreateSwapInput{
		ShiftID:         req.ShiftID,
		RequestedTo:     req.RequestedTo,
		TargetShiftID:   req.TargetShiftID,
		Reason:          req.Reason,
		Notes:           req.Notes,
		BroadcastToRole: req.BroadcastToRole,
	})
	if err != nil {
		h.domainError(w, r, err)
		return
	}

	h.successResponse(w, r, "创建换班申请成功", reqs)
}

func (h *Handler) GetAllSwapRequests(w http.ResponseWriter, r *http.Request) {
	status := domain.SwapStatus(r.URL.Query().Get("status"))
	if status != "" && !status.Valid() {
		h.errorResponse(w, r, "换班申请状态无效")
		return
	}

	filter := domain.SwapRequestFilter{
		Status: status,
	}
	if shiftIDParam := r.URL.Query().Get("shiftID"); shiftIDParam != "" {
		shiftID, err := strconv.ParseInt(shiftIDParam, 10, 64)
		if err != nil {
			h.errorResponse(w, r, "班次ID无效")
			return
		}
		filter.ShiftID = shiftID
	}

	reqs, err := h.service.Swaps.GetAll(h.tenantID(r), filter)
	if err != nil {
		h.domainError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取换班申请列表成功", reqs)
}

func (h *Handler) GetMySwapRequests(w http.ResponseWriter, r *http.Request) {
	status := domain.SwapStatus(r.URL.Query().Get("status"))
	if status != "" && !status.Valid() {
		h.errorResponse(w, r, "换班申请状态无效")
		return
	}

	reqs, err := h.service.Swaps.GetByEmployee(h.tenantID(r), h.employeeID(r), status)
	if err != nil {
		h.domainError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取我的换班申请成功", reqs)
}

func (h *Handler) ApproveSwapRequest(w http.ResponseWriter, r *http.Request) {
	requestID, err := h.urlID(r)
	if err != nil {
		h.errorResponse(w, r, "换班申请ID无效")
		return
	}

	req, err := h.service.Swaps.Approve(h.tenantID(r), requestID, h.employeeID(r))
	if err != nil {
		h.domainError(w, r, err)
		return
	}

	// 换班会改动班次指派，冲突缓存需要失效
	if shift, err := h.service.Shifts.GetByID(h.tenantID(r), req.ShiftID); err == nil {
		h.invalidateConflictCache(r.Context(), shift.ScheduleID)
	}

	h.successResponse(w, r, "批准换班申请成功", req)
}

func (h *Handler) RejectSwapRequest(w http.ResponseWriter, r *http.Request) {
	requestID, err := h.urlID(r)
	if err != nil {
		h.errorResponse(w, r, "换班申请ID无效")
		return
	}

	var body struct {
		Reason string `json:"reason" validate:"required"`
	}
	if err := h.readJSON(r, &body); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(body); err != nil {
		h.badRequest(w, r, err)
		return
	}

	req, err := h.service.Swaps.Reject(h.tenantID(r), requestID, h.employeeID(r), body.Reason)
	if err != nil {
		h.domainError(w, r, err)
		return
	}

	h.successResponse(w, r, "驳回换班申请成功", req)
}

func (h *Handler) CancelSwapRequest(w http.ResponseWriter, r *http.Request) {
	requestID, err := h.urlID(r)
	if err != nil {
		h.errorResponse(w, r, "换班申请ID无效")
		return
	}

	req, err := h.service.Swaps.Cancel(h.tenantID(r), requestID, h.employeeID(r))
	if err != nil {
		h.domainError(w, r, err)
		return
	}

	h.successResponse(w, r, "撤销换班申请成功", req)
}
