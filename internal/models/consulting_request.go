package models

import "time"

const (
	ConsultingStatusPending = "pending"
	ConsultingStatusSent    = "sent"
	ConsultingStatusFailed  = "failed"
)

// ConsultingRequest 咨询请求
type ConsultingRequest struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name       string    `gorm:"type:varchar(255);not null" json:"name"`
	Email      string    `gorm:"type:varchar(255);not null;index" json:"email"`
	Engagement string    `gorm:"type:varchar(128);not null" json:"engagement"`
	TeamSize   string    `gorm:"type:varchar(64);not null" json:"team_size"`
	Details    string    `gorm:"type:text" json:"details"`
	Status     string    `gorm:"type:varchar(16);not null;default:'pending';index" json:"status"`
	Error      string    `gorm:"type:varchar(512);default:''" json:"error,omitempty"`
	CreatedAt  time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (ConsultingRequest) TableName() string {
	return "consulting_requests"
}
