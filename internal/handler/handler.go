package handler

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	zh_translations "github.com/go-playground/validator/v10/translations/zh"
	"github.com/redis/go-redis/v9"
	"github.com/sysu-ecnc-dev/shift-coordinator/backend/internal/config"
	"github.com/sysu-ecnc-dev/shift-coordinator/backend/internal/domain"
	"github.com/sysu-ecnc-dev/shift-coordinator/backend/internal/service"
)

type Handler struct {
	validate    *validator.Validate
	config      *config.Config
	service     *service.Service
	translator  ut.Translator
	redisClient *redis.Client

	Mux *chi.Mux
}

func NewHandler(cfg *config.Config, svc *service.Service, rdb *redis.Client) (*Handler, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	zh := zh.New()
	uni := ut.New(zh, zh)
	trans, _ := uni.GetTranslator("zh")
	if err := zh_translations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, err
	}

	return &Handler{
		validate:    validate,
		config:      cfg,
		service:     svc,
		translator:  trans,
		redisClient: rdb,

		Mux: chi.NewRouter(),
	}, nil
}

func (h *Handler) RegisterRoutes() {
	h.Mux.Use(h.logger)
	h.Mux.Use(h.recoverer)

	// 所有 API 都要求登录，令牌由外部的认证系统签发
	h.Mux.Group(func(r chi.Router) {
		r.Use(h.auth)

		r.Route("/schedules", func(r chi.Router) {
			r.Post("/", h.CreateSchedule)
			r.Get("/", h.GetAllSchedules)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(h.schedule)
				r.Get("/", h.GetSchedule)
				r.Patch("/", h.UpdateSchedule)
				r.Delete("/", h.DeleteSchedule)
				r.With(h.RequiredAccess([]domain.AccessLevel{domain.AccessLevelManager, domain.AccessLevelAdmin})).Post("/publish", h.PublishSchedule)
				r.With(h.RequiredAccess([]domain.AccessLevel{domain.AccessLevelManager, domain.AccessLevelAdmin})).Post("/unpublish", h.UnpublishSchedule)
				r.With(h.RequiredAccess([]domain.AccessLevel{domain.AccessLevelManager, domain.AccessLevelAdmin})).Post("/lock", h.LockSchedule)
				r.With(h.RequiredAccess([]domain.AccessLevel{domain.AccessLevelManager, domain.AccessLevelAdmin})).Post("/unlock", h.UnlockSchedule)
				r.Post("/copy", h.CopySchedule)
				r.Get("/conflicts", h.GetScheduleConflicts)
				r.Post("/shifts", h.CreateShift)
				r.Get("/shifts", h.GetScheduleShifts)
			})
		})

		r.Route("/shifts/{id}", func(r chi.Router) {
			r.Patch("/", h.UpdateShift)
			r.Delete("/", h.DeleteShift)
			r.Post("/duplicate", h.DuplicateShift)
		})

		r.Route("/swap-requests", func(r chi.Router) {
			r.Post("/", h.CreateSwapRequest)
			r.Get("/", h.GetAllSwapRequests)
			r.Get("/mine", h.GetMySwapRequests)
			r.Route("/{id}", func(r chi.Router) {
				r.With(h.RequiredAccess([]domain.AccessLevel{domain.AccessLevelManager, domain.AccessLevelAdmin})).Post("/approve", h.ApproveSwapRequest)
				r.With(h.RequiredAccess([]domain.AccessLevel{domain.AccessLevelManager, domain.AccessLevelAdmin})).Post("/reject", h.RejectSwapRequest)
				r.Post("/cancel", h.CancelSwapRequest)
			})
		})
	})
}
