package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	apperrors "notesu/internal/errors"
	"notesu/internal/model"
	"notesu/internal/query"
)

// NotePatch is the whitelist of fields an owner may change after upload.
// Nil fields are left untouched.
type NotePatch struct {
	Title       *string
	Description *string
	NotesType   *string
	Pinned      *bool
}

// NoteRepository defines note persistence operations. Ownership-scoped
// operations re-check ownership inside the statement itself, never from a
// cached identity.
type NoteRepository interface {
	Insert(ctx context.Context, note *model.Note) error
	Get(ctx context.Context, id uuid.UUID) (*model.Note, error)
	// ListByOwner returns one page of the owner's notes plus a cursor for the
	// next page. It fetches limit+1 rows so hasMore needs no count query.
	ListByOwner(ctx context.Context, ownerID uuid.UUID, q query.Query) (notes []model.Note, nextCursor string, hasMore bool, err error)
	// ListAllByOwner returns the owner's entire note set ordered newest
	// first. Backs the client-side filtering mode and the read cache.
	ListAllByOwner(ctx context.Context, ownerID uuid.UUID) ([]model.Note, error)
	UpdateFields(ctx context.Context, id, ownerID uuid.UUID, patch NotePatch) (*model.Note, error)
	// Delete removes the metadata row and returns it so the caller can
	// remove the stored object afterwards.
	Delete(ctx context.Context, id, ownerID uuid.UUID) (*model.Note, error)
}

type noteRepository struct {
	db *gorm.DB
}

// NewNoteRepository builds a GORM-backed repository.
func NewNoteRepository(db *gorm.DB) NoteRepository {
	return &noteRepository{db: db}
}

// Insert creates the note row. A duplicate storage key surfaces as
// ErrDuplicateStorageKey via the unique constraint.
func (r *noteRepository) Insert(ctx context.Context, note *model.Note) error {
	if err := r.db.WithContext(ctx).Create(note).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperrors.ErrDuplicateStorageKey
		}
		return err
	}
	return nil
}

func (r *noteRepository) Get(ctx context.Context, id uuid.UUID) (*model.Note, error) {
	var note model.Note
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&note).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNoteNotFound
		}
		return nil, err
	}
	return &note, nil
}

func (r *noteRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID, q query.Query) ([]model.Note, string, bool, error) {
	db := r.db.WithContext(ctx).Where("owner_id = ?", ownerID)
	if q.Category != "" && q.Category != query.CategoryAll {
		db = db.Where("subject_code = ?", q.Category)
	}

	// Keyset pagination. The ORDER BY and the cursor predicate must agree
	// with query.Less/query.After or pages skip or repeat rows.
	switch q.Sort {
	case query.SortOldest:
		db = db.Order("created_at ASC, id ASC")
		if c := q.Cursor; c != nil {
			after := time.UnixMicro(c.CreatedAt)
			db = db.Where("created_at > ? OR (created_at = ? AND id > ?)", after, after, c.ID)
		}
	case query.SortTitle:
		db = db.Order("LOWER(title) ASC, id ASC")
		if c := q.Cursor; c != nil {
			db = db.Where("LOWER(title) > ? OR (LOWER(title) = ? AND id > ?)", c.Title, c.Title, c.ID)
		}
	default: // newest
		db = db.Order("created_at DESC, id ASC")
		if c := q.Cursor; c != nil {
			after := time.UnixMicro(c.CreatedAt)
			db = db.Where("created_at < ? OR (created_at = ? AND id > ?)", after, after, c.ID)
		}
	}

	var notes []model.Note
	if err := db.Limit(q.Limit + 1).Find(&notes).Error; err != nil {
		return nil, "", false, err
	}

	hasMore := len(notes) > q.Limit
	if hasMore {
		notes = notes[:q.Limit]
	}
	var nextCursor string
	if hasMore && len(notes) > 0 {
		nextCursor = query.EncodeCursor(notes[len(notes)-1], q.Sort)
	}
	return notes, nextCursor, hasMore, nil
}

func (r *noteRepository) ListAllByOwner(ctx context.Context, ownerID uuid.UUID) ([]model.Note, error) {
	var notes []model.Note
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC, id ASC").
		Find(&notes).Error
	if err != nil {
		return nil, err
	}
	return notes, nil
}

// UpdateFields applies a whitelist patch. Ownership is enforced in the UPDATE
// itself (WHERE id AND owner_id); the initial fetch only distinguishes
// NotFound from NotOwner.
func (r *noteRepository) UpdateFields(ctx context.Context, id, ownerID uuid.UUID, patch NotePatch) (*model.Note, error) {
	existing, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing.OwnerID != ownerID {
		return nil, apperrors.ErrNotOwner
	}

	updates := map[string]interface{}{}
	if patch.Title != nil {
		updates["title"] = *patch.Title
	}
	if patch.Description != nil {
		updates["description"] = *patch.Description
	}
	if patch.NotesType != nil {
		updates["notes_type"] = *patch.NotesType
	}
	if patch.Pinned != nil {
		updates["pinned"] = *patch.Pinned
	}
	if len(updates) == 0 {
		return existing, nil
	}

	res := r.db.WithContext(ctx).Model(&model.Note{}).
		Where("id = ? AND owner_id = ?", id, ownerID).
		Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		// Row vanished between the fetch and the update.
		return nil, apperrors.ErrNoteNotFound
	}
	return r.Get(ctx, id)
}

// Delete removes the row after the same NotFound/NotOwner discrimination.
// A second delete of the same note reports NotFound, not an error.
func (r *noteRepository) Delete(ctx context.Context, id, ownerID uuid.UUID) (*model.Note, error) {
	existing, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing.OwnerID != ownerID {
		return nil, apperrors.ErrNotOwner
	}

	res := r.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, ownerID).
		Delete(&model.Note{})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, apperrors.ErrNoteNotFound
	}
	return existing, nil
}
