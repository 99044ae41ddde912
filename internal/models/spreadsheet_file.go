package models

import "github.com/google/uuid"

type FileStatus string

const (
	FileStatusUploaded   FileStatus = "uploaded"
	FileStatusProcessing FileStatus = "processing"
	FileStatusProcessed  FileStatus = "processed"
	FileStatusError      FileStatus = "error"
)

type SpreadsheetFile struct {
	BaseModel
	Filename     string     `json:"filename" gorm:"type:varchar(255);not null"`
	OriginalName string     `json:"originalName" gorm:"type:varchar(255);not null"`
	StoragePath  string     `json:"storagePath" gorm:"type:text;not null"`
	FileSize     int64      `json:"fileSize" gorm:"not null;default:0"`
	SheetNames   []string   `json:"sheetNames" gorm:"type:text;serializer:json"`
	OwnerID      uuid.UUID  `json:"ownerID" gorm:"type:uuid;not null;index"`
	Status       FileStatus `json:"status" gorm:"type:varchar(20);not null;default:'uploaded'"`
	TotalRows    int        `json:"totalRows" gorm:"not null;default:0"`
	TotalColumns int        `json:"totalColumns" gorm:"not null;default:0"`
	FileType     string     `json:"fileType" gorm:"type:varchar(10);not null"`

	Owner    User       `json:"-" gorm:"foreignKey:OwnerID;references:ID"`
	Analyses []Analysis `json:"-" gorm:"foreignKey:FileID"`
}

func (SpreadsheetFile) TableName() string {
	return "spreadsheet_files"
}
