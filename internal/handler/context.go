package handler

type ContextKey string

var (
	TenantCtxKey      ContextKey = "tenantID"
	EmployeeCtxKey    ContextKey = "employeeID"
	AccessLevelCtxKey ContextKey = "accessLevel"
	ScheduleCtx       ContextKey = "schedule"
)
