package model

import "github.com/google/uuid"

// UploadHistory records every processed spreadsheet upload.
type UploadHistory struct {
	BaseModel
	Filename       string     `gorm:"type:varchar(255);not null" json:"filename"`
	FileType       string     `gorm:"type:varchar(50)" json:"file_type"`
	RowsProcessed  int        `gorm:"default:0" json:"rows_processed"`
	RowsSuccessful int        `gorm:"default:0" json:"rows_successful"`
	RowsFailed     int        `gorm:"default:0" json:"rows_failed"`
	ErrorLog       string     `gorm:"type:text" json:"error_log"` // JSON array of row errors
	UploadedByID   *uuid.UUID `gorm:"column:uploaded_by;type:uuid;index" json:"uploaded_by"`
	UploadedBy     *User      `gorm:"foreignKey:UploadedByID;constraint:OnDelete:SET NULL" json:"-"`
}

// TableName keeps the table name used by existing deployments
func (UploadHistory) TableName() string {
	return "upload_history"
}
