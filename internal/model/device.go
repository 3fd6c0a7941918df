package model

import "time"

// Device holds the push endpoint and encryption keys for one browser
// push registration. Created on first subscribe; keys are refreshed
// when the same endpoint subscribes again.
type Device struct {
	ID        int64     `gorm:"primaryKey"`
	Endpoint  string    `gorm:"uniqueIndex;size:512;not null"`
	P256DH    string    `gorm:"column:p256dh;not null"`
	Auth      string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time

	// Associations
	Subscriptions []Subscription `gorm:"foreignKey:DeviceID"`
}
