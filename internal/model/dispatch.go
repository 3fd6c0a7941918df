package model

import "time"

// Dispatch is the dedup ledger row for one notification run. Its mere
// existence for an event id means that id has been handled; it is
// inserted before any delivery attempt and updated with the final
// success count afterwards.
type Dispatch struct {
	EventID   string    `gorm:"primaryKey;size:191"`
	SentCount int       `gorm:"not null;default:0"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time
}
