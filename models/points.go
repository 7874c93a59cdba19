package models

import "time"

// PointTransaction is one append-only entry of the points ledger.
// ReferenceType/ReferenceID tie an award to the row that earned it; the
// unique index makes a referenced award land at most once. Unreferenced
// awards leave both NULL and never collide.
type PointTransaction struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	UserID        uint      `gorm:"uniqueIndex:idx_point_once,priority:1;not null" json:"user_id"`
	Points        int       `gorm:"not null" json:"points"`
	Reason        string    `gorm:"uniqueIndex:idx_point_once,priority:2;size:64;not null" json:"reason"`
	ReferenceType *string   `gorm:"uniqueIndex:idx_point_once,priority:3;size:32" json:"reference_type,omitempty"`
	ReferenceID   *uint     `gorm:"uniqueIndex:idx_point_once,priority:4" json:"reference_id,omitempty"`
	CreatedAt     time.Time `gorm:"index" json:"created_at"`
}
