package handler

import (
	"io"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	apperrors "notesu/internal/errors"
	"notesu/internal/repository"
	"notesu/internal/service"
	"notesu/internal/validation"
)

// NoteHandler handles note listing, upload, mutation and download endpoints.
type NoteHandler struct {
	noteService service.NoteService
}

// NewNoteHandler creates a new note handler.
func NewNoteHandler(noteService service.NoteService) *NoteHandler {
	return &NoteHandler{noteService: noteService}
}

// UpdateNoteRequest is the whitelist patch body. Absent fields stay unchanged.
type UpdateNoteRequest struct {
	Title       *string `json:"title" validate:"omitempty,min=1,max=100"`
	Description *string `json:"description" validate:"omitempty,max=500"`
	NotesType   *string `json:"notes_type" validate:"omitempty,min=1,max=32"`
	Pinned      *bool   `json:"pinned"`
}

// List godoc
// @Summary List the caller's notes
// @Description Paginated by default; mode=all returns the entire set for
// @Description client-side filtering. Search narrows the loaded page only.
// @Tags notes
// @Produce json
// @Param category query string false "Subject code or 'all'"
// @Param sort query string false "newest | oldest | title"
// @Param search query string false "Free-text term"
// @Param cursor query string false "Opaque pagination cursor"
// @Param limit query int false "Page size"
// @Param mode query string false "Set to 'all' for the full set"
// @Success 200 {object} Envelope
// @Failure 400 {object} Envelope
// @Failure 401 {object} Envelope
// @Router /notes [get]
// @Security SessionCookie
func (h *NoteHandler) List(c echo.Context) error {
	ownerID, err := userIDFrom(c)
	if err != nil {
		return respondError(c, err)
	}

	if c.QueryParam("mode") == "all" {
		notes, err := h.noteService.ListAll(c.Request().Context(), ownerID,
			c.QueryParam("category"), c.QueryParam("sort"), c.QueryParam("search"))
		if err != nil {
			return respondError(c, err)
		}
		return respond(c, http.StatusOK, echo.Map{"notes": notes})
	}

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	page, err := h.noteService.List(c.Request().Context(), ownerID, service.ListRequest{
		Category: c.QueryParam("category"),
		Sort:     c.QueryParam("sort"),
		Search:   c.QueryParam("search"),
		Cursor:   c.QueryParam("cursor"),
		Limit:    limit,
	})
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, http.StatusOK, page)
}

// Upload godoc
// @Summary Upload a note file with its metadata
// @Tags notes
// @Accept mpfd
// @Produce json
// @Param file formData file true "Note file"
// @Param title formData string true "Title"
// @Param academicYear formData string true "Academic year"
// @Param semester formData string true "Semester"
// @Param subjectCode formData string true "Subject code"
// @Param notesType formData string true "Notes type"
// @Param description formData string false "Description"
// @Success 201 {object} Envelope
// @Failure 400 {object} Envelope
// @Failure 401 {object} Envelope
// @Router /notes/upload [post]
// @Security SessionCookie
func (h *NoteHandler) Upload(c echo.Context) error {
	ownerID, err := userIDFrom(c)
	if err != nil {
		return respondError(c, err)
	}

	req := service.UploadRequest{
		Fields: validation.UploadFields{
			Title:        c.FormValue("title"),
			AcademicYear: c.FormValue("academicYear"),
			Semester:     c.FormValue("semester"),
			SubjectCode:  c.FormValue("subjectCode"),
			NotesType:    c.FormValue("notesType"),
			Description:  c.FormValue("description"),
		},
	}

	// A missing file is reported by validation, after the field checks.
	if fh, ferr := c.FormFile("file"); ferr == nil {
		src, err := fh.Open()
		if err != nil {
			return respondError(c, apperrors.ErrStorageWrite)
		}
		defer src.Close()
		content, err := io.ReadAll(src)
		if err != nil {
			return respondError(c, apperrors.ErrStorageWrite)
		}
		req.File = &validation.FileMeta{Name: fh.Filename, Size: fh.Size}
		req.Content = content
		req.ContentType = fh.Header.Get("Content-Type")
	}

	note, err := h.noteService.Upload(c.Request().Context(), ownerID, req)
	if err != nil {
		return respondError(c, err)
	}
	return respondMessage(c, http.StatusCreated, echo.Map{"note": note}, "Note uploaded.")
}

// Update godoc
// @Summary Update a note's editable fields
// @Tags notes
// @Accept json
// @Produce json
// @Param id path string true "Note id"
// @Param request body UpdateNoteRequest true "Fields to change"
// @Success 200 {object} Envelope
// @Failure 403 {object} Envelope
// @Failure 404 {object} Envelope
// @Router /notes/{id} [patch]
// @Security SessionCookie
func (h *NoteHandler) Update(c echo.Context) error {
	ownerID, err := userIDFrom(c)
	if err != nil {
		return respondError(c, err)
	}
	noteID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return respondError(c, apperrors.ErrNoteNotFound)
	}

	var req UpdateNoteRequest
	if err := c.Bind(&req); err != nil {
		return respondErrorWith(c, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
	}
	if err := c.Validate(&req); err != nil {
		return respondErrorWith(c, http.StatusBadRequest, err.Error(), "VALIDATION_FAILED")
	}

	note, err := h.noteService.Update(c.Request().Context(), noteID, ownerID, repository.NotePatch{
		Title:       req.Title,
		Description: req.Description,
		NotesType:   req.NotesType,
		Pinned:      req.Pinned,
	})
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, http.StatusOK, echo.Map{"note": note})
}

// Delete godoc
// @Summary Delete a note and its stored file
// @Tags notes
// @Produce json
// @Param id path string true "Note id"
// @Success 200 {object} Envelope
// @Failure 403 {object} Envelope
// @Failure 404 {object} Envelope
// @Router /notes/{id} [delete]
// @Security SessionCookie
func (h *NoteHandler) Delete(c echo.Context) error {
	ownerID, err := userIDFrom(c)
	if err != nil {
		return respondError(c, err)
	}
	noteID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return respondError(c, apperrors.ErrNoteNotFound)
	}

	if err := h.noteService.Delete(c.Request().Context(), noteID, ownerID); err != nil {
		return respondError(c, err)
	}
	return respondMessage(c, http.StatusOK, nil, "Note deleted.")
}

// Download godoc
// @Summary Redirect to a short-lived download URL for the note's file
// @Tags notes
// @Param id path string true "Note id"
// @Success 302
// @Failure 403 {object} Envelope
// @Failure 404 {object} Envelope
// @Router /notes/{id}/file [get]
// @Security SessionCookie
func (h *NoteHandler) Download(c echo.Context) error {
	ownerID, err := userIDFrom(c)
	if err != nil {
		return respondError(c, err)
	}
	noteID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return respondError(c, apperrors.ErrNoteNotFound)
	}

	url, err := h.noteService.DownloadURL(c.Request().Context(), noteID, ownerID)
	if err != nil {
		return respondError(c, err)
	}
	return c.Redirect(http.StatusFound, url)
}
