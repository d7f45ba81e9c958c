package models

import "time"

// User is the staff directory entry used for view scoping and notification
// routing. Credential storage and login live outside this service; the
// columns here are only what the ledger needs to route email and filter
// views by advisor code.
type User struct {
	ID                 uint      `gorm:"primaryKey;autoIncrement"`
	Username           string    `gorm:"column:username;type:text;uniqueIndex;not null"`
	Email              string    `gorm:"column:email;type:text"`
	UserType           string    `gorm:"column:user_type;type:text;not null"`
	ServiceAdvisorCode string    `gorm:"column:service_advisor_code;type:text;index"`
	CreatedAt          time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (User) TableName() string {
	return "users"
}
