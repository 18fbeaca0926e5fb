package validation

import (
	"path/filepath"
	"strings"

	apperrors "notesu/internal/errors"
)

// DefaultMaxFileSize is the upload ceiling unless overridden by config.
const DefaultMaxFileSize int64 = 25 << 20 // 25 MiB

// Character caps matching the note columns.
const (
	MaxTitleLength       = 100
	MaxDescriptionLength = 500
)

// allowedExtensions is the set of document types accepted for upload.
var allowedExtensions = map[string]struct{}{
	"pdf": {}, "doc": {}, "docx": {}, "txt": {}, "ppt": {},
	"pptx": {}, "odt": {}, "ods": {}, "odp": {}, "rtf": {},
}

// UploadFields carries the metadata submitted alongside an uploaded file.
type UploadFields struct {
	Title        string
	AcademicYear string
	Semester     string
	SubjectCode  string
	NotesType    string
	Description  string
}

// FileMeta describes the uploaded file. Only metadata participates in
// validation; the bytes are never inspected.
type FileMeta struct {
	Name string
	Size int64
}

// Rules validates upload requests. Pure: same input, same result, no side
// effects.
type Rules struct {
	maxFileSize int64
}

// NewRules creates upload validation rules with the given size ceiling.
// A non-positive max falls back to DefaultMaxFileSize.
func NewRules(maxFileSize int64) *Rules {
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxFileSize
	}
	return &Rules{maxFileSize: maxFileSize}
}

// ValidateUpload checks fields and file in a fixed order, stopping at the
// first failure: required fields, field length caps, file presence, size,
// extension. Rejecting overlong fields here, before the object is written,
// keeps the database column limits out of the storage rollback path.
func (r *Rules) ValidateUpload(fields UploadFields, file *FileMeta) error {
	required := []struct {
		name  string
		value string
	}{
		{"academicYear", fields.AcademicYear},
		{"semester", fields.Semester},
		{"subjectCode", fields.SubjectCode},
		{"notesType", fields.NotesType},
		{"title", fields.Title},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return apperrors.NewMissingField(f.name)
		}
	}

	if len(strings.TrimSpace(fields.Title)) > MaxTitleLength {
		return apperrors.NewFieldTooLong("title", MaxTitleLength)
	}
	if len(strings.TrimSpace(fields.Description)) > MaxDescriptionLength {
		return apperrors.NewFieldTooLong("description", MaxDescriptionLength)
	}

	if file == nil {
		return apperrors.ErrFileRequired
	}
	if file.Size > r.maxFileSize {
		return apperrors.ErrFileTooLarge
	}
	if _, ok := allowedExtensions[FileExtension(file.Name)]; !ok {
		return apperrors.ErrInvalidFileType
	}
	return nil
}

// FileExtension returns the lowercase suffix after the last dot, without the
// dot itself. Empty when the name has no extension.
func FileExtension(name string) string {
	ext := filepath.Ext(name)
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
