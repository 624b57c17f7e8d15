package models

import "time"

// Document is the durable metadata record for one uploaded source.
// The chunks themselves live in the vector index, keyed by user and filename.
type Document struct {
	ID       string `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID   string `gorm:"column:user_id;type:text;index" json:"user_id"`
	Filename string `gorm:"column:filename;type:text;index" json:"filename"`

	// pdf | text | csv | single | crawl
	Type string `gorm:"column:type;type:text" json:"type"`

	ChunkCount int       `gorm:"column:chunk_count;type:integer" json:"chunk_count"`
	UploadDate time.Time `gorm:"column:upload_date;type:timestamptz" json:"upload_date"`
}

func (Document) TableName() string { return "documents" }
