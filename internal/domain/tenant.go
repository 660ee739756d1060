package domain

import "time"

// Tenant 是数据隔离的边界，所有核心对象都挂在某个租户下。
type Tenant struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}
