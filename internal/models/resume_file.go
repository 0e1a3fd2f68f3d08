package models

import "time"

type ResumeFile struct {
	ID         string `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Token      string `gorm:"column:token;type:char(32);index" json:"token"`
	FileName   string `gorm:"column:file_name;type:text" json:"file_name"`
	ObjectName string `gorm:"column:object_name;type:text" json:"object_name"`

	FileSize  int64  `gorm:"column:file_size;type:bigint" json:"file_size"`
	MimeType  string `gorm:"column:mime_type;type:text" json:"mime_type"`
	TextChars int    `gorm:"column:text_chars;type:integer" json:"text_chars"`

	UploadAt time.Time `gorm:"column:upload_at;type:timestamptz" json:"upload_at"`
}

func (ResumeFile) TableName() string { return "resume_files" }
