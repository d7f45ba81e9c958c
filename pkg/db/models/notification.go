package models

import "time"

// Notification is a transient targeted message. Exactly one (or none) of
// UserID, AdvisorCode, UserType is set; a notification with no target is
// global. Consumed once via IsRead.
type Notification struct {
	ID          uint      `gorm:"primaryKey;autoIncrement"`
	UserID      *uint     `gorm:"column:user_id;index"`
	AdvisorCode string    `gorm:"column:advisor_code;type:text;index"`
	UserType    string    `gorm:"column:user_type;type:text"`
	Message     string    `gorm:"column:message;type:text"`
	IsRead      bool      `gorm:"column:is_read;not null;default:false;index"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (Notification) TableName() string {
	return "notifications"
}
