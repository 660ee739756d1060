package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sysu-ecnc-dev/shift-coordinator/backend/internal/domain"
	"github.com/sysu-ecnc-dev/shift-coordinator/backend/internal/service"
)

func (h *Handler) CreateSchedule(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title        string    `json:"title" validate:"required"`
		StartDate    time.Time `json:"startDate" validate:"required"`
		EndDate      time.Time `json:"endDate" validate:"required"`
		DepartmentID *int64    `json:"departmentID"`
		Location     string    `json:"location"`
		Notes        string    `json:"notes"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	schedule, err := h.service.Schedules.Create(h.tenantID(r), service.CreateScheduleInput{
		Title:        req.Title,
		StartDate:    req.StartDate,
		EndDate:      req.EndDate,
		DepartmentID: req.DepartmentID,
		Location:     req.Location,
		Notes:        req.Notes,
	})
	if err != nil {
		h.domainError(w, r, err)
		return
	}

	h.successResponse(w, r, "创建班表成功", schedule)
}

func (h *Handler) GetAllSchedules(w http.ResponseWriter, r *http.Request) {
	schedules, err := h.service.Schedules.GetAll(h.tenantID(r))
	if err != nil {
		h.domainError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取班表列表成功", schedules)
}

func (h *Handler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	schedule := r.Context().Value(ScheduleCtx).(*domain.Schedule)

	h.successResponse(w, r, "获取班表成功", schedule)
}

func (h *Handler) UpdateSchedule(w http.ResponseWriter, r *http.Request) {
	schedule := r.Context().Value(ScheduleCtx).(*domain.Schedule)

	var req struct {
		Title        *string    `json:"title"`
		StartDate    *time.Time `json:"startDate"`
		EndDate      *time.Time `json:"endDate"`
		DepartmentID *int64     `json:"departmentID"`
		Location     *string    `json:"location"`
		Notes        *string    `json:"notes"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	updated, err := h.service.Schedules.Update(h.tenantID(r), schedule.ID, service.UpdateScheduleInput{
		Title:        req.Title,
		StartDate:    req.StartDate,
		EndDate:      req.EndDate,
		DepartmentID: req.DepartmentID,
		Location:     req.Location,
		Notes:        req.Notes,
	})
	if err != nil {
		h.domainError(w, r, err)
		return
	}

	h.successResponse(w, r, "更新班表成功", updated)
}

func (h *Handler) DeleteSchedule(w http.ResponseWriter, r *http.Request) {
	schedule := r.Context().Value(ScheduleCtx).(*domain.Schedule)

	if err := h.service.Schedules.Delete(h.tenantID(r), schedule.ID); err != nil {
		h.domainError(w, r, err)
		return
	}

	h.invalidateConflictCache(r.Context(), schedule.ID)
	h.successResponse(w, r, "删除班表成功", nil)
}

func (h *Handler) PublishSchedule(w http.ResponseWriter, r *http.Request) {
	schedule := r.Context().Value(ScheduleCtx).(*domain.Schedule)

	published, err := h.service.Schedules.Publish(h.tenantID(r), schedule.ID, h.employeeID(r))
	if err != nil {
		h.domainError(w, r, err)
		return
	}

	h.successResponse(w, r, "发布班表成功", published)
}

func (h *Handler) UnpublishSchedule(w http.ResponseWriter, r *http.Request) {
	schedule := r.Context().Value(ScheduleCtx).(*domain.Schedule)

	unpublished, err := h.service.Schedules.Unpublish(h.tenantID(r), schedule.ID)
	if err != nil {
		h.domainError(w, r, err)
		return
	}

	h.successResponse(w, r, "撤回班表成功", unpublished)
}

func (h *Handler) LockSchedule(w http.ResponseWriter, r *http.Request) {
	schedule := r.Context().Value(ScheduleCtx).(*domain.Schedule)

	var req struct {
		Reason string `json:"reason"`
	}
	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	locked, err := h.service.Schedules.Lock(h.tenantID(r), schedule.ID, h.employeeID(r), req.Reason)
	if err != nil {
		h.domainError(w, r, err)
		return
	}

	h.successResponse(w, r, "锁定班表成功", locked)
}

func (h *Handler) UnlockSchedule(w http.ResponseWriter, r *http.Request) {
	schedule := r.Context().Value(ScheduleCtx).(*domain.Schedule)

	var req struct {
		Reason string `json:"reason" validate:"required"`
	}
	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	unlocked, err := h.service.Schedules.Unlock(h.tenantID(r), schedule.ID, h.employeeID(r), req.Reason)
	if err != nil {
		h.domainError(w, r, err)
		return
	}

	h.successResponse(w, r, "解锁班表成功", unlocked)
}

func (h *Handler) CopySchedule(w http.ResponseWriter, r *http.Request) {
	schedule := r.Context().Value(ScheduleCtx).(*domain.Schedule)

	var req struct {
		Title              string    `json:"title"`
		StartDate          time.Time `json:"startDate" validate:"required"`
		IncludeAssignments bool      `json:"includeAssignments"`
	}
	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	target, err := h.service.Schedules.Copy(h.tenantID(r), schedule.ID, service.CopyScheduleInput{
		Title:              req.Title,
		StartDate:          req.StartDate,
		IncludeAssignments: req.IncludeAssignments,
	})
	if err != nil {
		h.domainError(w, r, err)
		return
	}

	h.successResponse(w, r, "复制班表成功", target)
}

func conflictCacheKey(scheduleID int64) string {
	return fmt.Sprintf("conflict_summary_%d", scheduleID)
}

func (h *Handler) invalidateConflictCache(ctx context.Context, scheduleID int64) {
	if err := h.redisClient.Del(ctx, conflictCacheKey(scheduleID)).Err(); err != nil {
		slog.Error("冲突汇总缓存失效失败", "scheduleID", scheduleID, "error", err)
	}
}

// GetScheduleConflicts 优先读 redis 缓存，缓存在任何班次变更时被删除。
func (h *Handler) GetScheduleConflicts(w http.ResponseWriter, r *http.Request) {
	schedule := r.Context().Value(ScheduleCtx).(*domain.Schedule)

	cached, err := h.redisClient.Get(r.Context(), conflictCacheKey(schedule.ID)).Result()
	if err == nil {
		summary := &domain.ConflictSummary{}
		if err := json.Unmarshal([]byte(cached), summary); err == nil {
			h.successResponse(w, r, "获取冲突汇总成功", summary)
			return
		}
	} else if err != redis.Nil {
		slog.Error("冲突汇总缓存读取失败", "scheduleID", schedule.ID, "error", err)
	}

	summary, err := h.service.Shifts.GetConflictSummary(h.tenantID(r), schedule.ID)
	if err != nil {
		h.domainError(w, r, err)
		return
	}

	if data, err := json.Marshal(summary); err == nil {
		expiration := time.Duration(h.config.Redis.ConflictCacheExpiration) * time.Second
		if err := h.redisClient.Set(r.Context(), conflictCacheKey(schedule.ID), data, expiration).Err(); err != nil {
			slog.Error("冲突汇总缓存写入失败", "scheduleID", schedule.ID, "error", err)
		}
	}

	h.successResponse(w, r, "获取冲突汇总成功", summary)
}
