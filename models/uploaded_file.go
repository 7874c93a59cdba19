package models

import "time"

// UploadedFile records an object written to storage on behalf of a user.
type UploadedFile struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"index;not null" json:"user_id"`
	Bucket      string    `gorm:"size:64;not null" json:"bucket"`
	ObjectKey   string    `gorm:"size:1024;not null" json:"object_key"`
	URL         string    `gorm:"size:1024;not null" json:"url"`
	ContentType string    `gorm:"size:128" json:"content_type"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
}
