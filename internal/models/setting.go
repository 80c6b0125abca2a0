package models

import "time"

// AppSetting is a single-row-per-key settings table
type AppSetting struct {
	Key       string    `json:"key" gorm:"primaryKey"`
	Value     string    `json:"value" gorm:"type:text"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Setting keys
const (
	SettingBlockedNumbers = "blocked_numbers" // JSON array of phone digits / group ids
	SettingWhatsAppPhone  = "whatsapp_phone"  // outbound sender number shown to operators
)
