package models

import (
	"time"
)

// ActivityTimes 内嵌基类：登记时间与最近活动时间
type ActivityTimes struct {
	RegisteredAt   time.Time `stamp:"on:create" json:"registered_at"`
	LastActivityAt time.Time `stamp:"on:update" json:"last_activity_at"`
}

// 客服坐席
type Agent struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"not null" json:"name"`
	Role string `gorm:"default:'agent'" json:"role"` // agent, supervisor
}

// 工单模型
type Ticket struct {
	ActivityTimes
	ID       uint   `gorm:"primaryKey" json:"id"`
	PublicID string `gorm:"uniqueIndex;size:36" json:"public_id"`
	Title    string `gorm:"not null" json:"title"`
	Body     string `gorm:"type:text" json:"body"`
	Status   string `gorm:"default:'open'" json:"status"` // open, pending, resolved, archived

	AssigneeID *uint  `gorm:"index" json:"assignee_id"`
	Assignee   *Agent `gorm:"foreignKey:AssigneeID" json:"assignee,omitempty"`

	// 状态进入 archived 时盖章
	ArchivedAt *time.Time `stamp:"on:change;track:Status;value:archived" json:"archived_at"`
	// 转交给主管时盖章
	EscalatedAt *time.Time `stamp:"on:change;track:Assignee.Role;value:supervisor" json:"escalated_at"`
}
