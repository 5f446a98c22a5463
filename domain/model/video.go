package model

import "time"

// Video is a rendered video owned by a user, kept in the video catalog.
type Video struct {
	ID        string    `gorm:"column:id;primaryKey" json:"id"`
	TaskID    string    `gorm:"column:task_id;index" json:"task_id"`
	UserID    string    `gorm:"column:user_id;index" json:"user_id"`
	Title     string    `gorm:"column:title" json:"title"`
	FilePath  string    `gorm:"column:file_path" json:"file_path"`
	MimeType  string    `gorm:"column:mime_type" json:"mime_type"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
}

func (Video) TableName() string { return "videos" }
