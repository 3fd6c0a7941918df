package model

import "time"

// Subscription links a device to a channel. The auto-incremented ID is
// the ordering key for paginated fan-out, so pages neither skip nor
// duplicate devices under concurrent inserts.
type Subscription struct {
	ID        int64     `gorm:"primaryKey"`
	Channel   string    `gorm:"uniqueIndex:ux_channel_device,priority:1;size:191;not null"`
	DeviceID  int64     `gorm:"uniqueIndex:ux_channel_device,priority:2;index;not null"`
	CreatedAt time.Time `gorm:"not null"`

	// Associations
	Device Device `gorm:"constraint:OnDelete:CASCADE"`
}
