package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Note pairs an uploaded file's storage location with its academic metadata.
// Every note has exactly one owner; only the owner may read, mutate or delete
// it. StorageKey is the unique object-storage path assigned at upload time.
type Note struct {
	ID            uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	OwnerID       uuid.UUID `json:"owner_id" gorm:"type:uuid;not null;index"`
	Title         string    `json:"title" gorm:"size:100;not null"`
	Description   string    `json:"description" gorm:"size:500"`
	AcademicYear  string    `json:"academic_year" gorm:"size:32;not null"`
	Semester      string    `json:"semester" gorm:"size:32;not null"`
	SubjectCode   string    `json:"subject_code" gorm:"size:32;not null;index"`
	NotesType     string    `json:"notes_type" gorm:"size:32;not null"`
	FileExtension string    `json:"file_extension" gorm:"size:16;not null"`
	FileSizeBytes int64     `json:"file_size_bytes" gorm:"not null"`
	StorageKey    string    `json:"-" gorm:"uniqueIndex;size:255;not null"`
	Pinned        bool      `json:"pinned" gorm:"default:false"`
	CreatedAt     time.Time `json:"created_at" gorm:"index"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// BeforeCreate sets UUID before creating the record.
func (n *Note) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}
