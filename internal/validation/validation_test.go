package validation

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "notesu/internal/errors"
)

func validFields() UploadFields {
	return UploadFields{
		Title:        "Calculus Summary",
		AcademicYear: "year1",
		Semester:     "semester1",
		SubjectCode:  "MATH101",
		NotesType:    "lecture_notes",
		Description:  "chapters 1-3",
	}
}

func TestValidateUpload(t *testing.T) {
	rules := NewRules(25 << 20)

	tests := []struct {
		name    string
		mutate  func(*UploadFields)
		file    *FileMeta
		wantErr error
	}{
		{
			name: "valid pdf",
			file: &FileMeta{Name: "notes.pdf", Size: 1024},
		},
		{
			name: "valid docx at exact limit",
			file: &FileMeta{Name: "notes.docx", Size: 25 << 20},
		},
		{
			name:    "missing academic year",
			mutate:  func(f *UploadFields) { f.AcademicYear = "" },
			file:    &FileMeta{Name: "notes.pdf", Size: 1024},
			wantErr: apperrors.NewMissingField("academicYear"),
		},
		{
			name:    "whitespace-only title",
			mutate:  func(f *UploadFields) { f.Title = "   " },
			file:    &FileMeta{Name: "notes.pdf", Size: 1024},
			wantErr: apperrors.NewMissingField("title"),
		},
		{
			name:   "title at cap",
			mutate: func(f *UploadFields) { f.Title = strings.Repeat("t", MaxTitleLength) },
			file:   &FileMeta{Name: "notes.pdf", Size: 1024},
		},
		{
			name:    "title over cap",
			mutate:  func(f *UploadFields) { f.Title = strings.Repeat("t", MaxTitleLength+1) },
			file:    &FileMeta{Name: "notes.pdf", Size: 1024},
			wantErr: apperrors.NewFieldTooLong("title", MaxTitleLength),
		},
		{
			name:    "description over cap",
			mutate:  func(f *UploadFields) { f.Description = strings.Repeat("d", MaxDescriptionLength+1) },
			file:    &FileMeta{Name: "notes.pdf", Size: 1024},
			wantErr: apperrors.NewFieldTooLong("description", MaxDescriptionLength),
		},
		{
			name:    "no file",
			file:    nil,
			wantErr: apperrors.ErrFileRequired,
		},
		{
			name:    "file over limit",
			file:    &FileMeta{Name: "notes.pdf", Size: 26 << 20},
			wantErr: apperrors.ErrFileTooLarge,
		},
		{
			name:    "disallowed extension",
			file:    &FileMeta{Name: "malware.exe", Size: 1024},
			wantErr: apperrors.ErrInvalidFileType,
		},
		{
			name:    "no extension",
			file:    &FileMeta{Name: "notes", Size: 1024},
			wantErr: apperrors.ErrInvalidFileType,
		},
		{
			name: "uppercase extension accepted",
			file: &FileMeta{Name: "NOTES.PDF", Size: 1024},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := validFields()
			if tt.mutate != nil {
				tt.mutate(&fields)
			}
			err := rules.ValidateUpload(fields, tt.file)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			var wantMissing *apperrors.MissingFieldError
			if errors.As(tt.wantErr, &wantMissing) {
				var gotMissing *apperrors.MissingFieldError
				assert.True(t, errors.As(err, &gotMissing))
				assert.Equal(t, wantMissing.Field, gotMissing.Field)
				return
			}
			var wantTooLong *apperrors.FieldTooLongError
			if errors.As(tt.wantErr, &wantTooLong) {
				var gotTooLong *apperrors.FieldTooLongError
				assert.True(t, errors.As(err, &gotTooLong))
				assert.Equal(t, wantTooLong.Field, gotTooLong.Field)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestValidateUpload_ChecksFieldsBeforeFile(t *testing.T) {
	rules := NewRules(0)

	// Missing field wins even when the file is also invalid.
	fields := validFields()
	fields.Semester = ""
	err := rules.ValidateUpload(fields, &FileMeta{Name: "x.exe", Size: 99 << 20})
	var missing *apperrors.MissingFieldError
	assert.True(t, errors.As(err, &missing))
	assert.Equal(t, "semester", missing.Field)

	// Size is checked before extension.
	err = rules.ValidateUpload(validFields(), &FileMeta{Name: "x.exe", Size: 99 << 20})
	assert.ErrorIs(t, err, apperrors.ErrFileTooLarge)
}

func TestValidateUpload_Deterministic(t *testing.T) {
	rules := NewRules(10 << 20)
	fields := validFields()
	file := &FileMeta{Name: "a.ppt", Size: 42}
	for i := 0; i < 3; i++ {
		assert.NoError(t, rules.ValidateUpload(fields, file))
	}
}

func TestFileExtension(t *testing.T) {
	assert.Equal(t, "pdf", FileExtension("a.pdf"))
	assert.Equal(t, "pdf", FileExtension("a.b.PDF"))
	assert.Equal(t, "", FileExtension("noext"))
}
