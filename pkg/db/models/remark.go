package models

import "time"

// Remark is a free-text annotation on a PartRecord. FollowUpDate and
// RememberOnDate feed the daily reminder check; ReadAt is a read receipt.
type Remark struct {
	ID             uint       `gorm:"primaryKey;autoIncrement"`
	PartID         uint       `gorm:"column:part_id;not null;index"`
	RemarkText     string     `gorm:"column:remark_text;type:text"`
	FollowUpDate   *time.Time `gorm:"column:follow_up_date"`
	RememberOnDate *time.Time `gorm:"column:remember_on_date"`
	EnteredBy      string     `gorm:"column:entered_by;type:text"`
	ReadAt         *time.Time `gorm:"column:read_at"`
	CreatedAt      time.Time  `gorm:"column:created_at;autoCreateTime"`
}

func (Remark) TableName() string {
	return "item_remarks"
}
