package domain

import "time"

// AccessLevel 是封闭的权限枚举，只在 handler 边界检查一次，
// 核心服务内部不再根据字符串重新推断权限。
type AccessLevel string

const (
	AccessLevelEmployee AccessLevel = "employee"
	AccessLevelManager  AccessLevel = "manager"
	AccessLevelAdmin    AccessLevel = "admin"
)

// Employee 是核心只读的员工协作对象，增删改由外部的用户系统负责。
// Role 是工作岗位（例如 "前台"、"值班"），广播换班时按它匹配。
type Employee struct {
	ID           int64       `json:"id"`
	TenantID     int64       `json:"tenantID"`
	Username     string      `json:"username"`
	PasswordHash string      `json:"-"`
	FullName     string      `json:"fullName"`
	Email        string      `json:"email"`
	Role         string      `json:"role"`
	AccessLevel  AccessLevel `json:"accessLevel"`
	IsActive     bool        `json:"isActive"`
	CreatedAt    time.Time   `json:"createdAt"`
	Version      int32       `json:"-"`
}
