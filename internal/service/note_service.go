package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "notesu/internal/errors"
	"notesu/internal/model"
	"notesu/internal/query"
	"notesu/internal/repository"
	"notesu/internal/storage"
	"notesu/internal/validation"
)

// ListCache is the slice of the Redis client the note service uses for the
// short-TTL read cache of a user's full note list.
type ListCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// UploadRequest carries one upload: the metadata fields, the file metadata
// and the file bytes.
type UploadRequest struct {
	Fields      validation.UploadFields
	File        *validation.FileMeta
	Content     []byte
	ContentType string
}

// ListRequest is a paginated listing request.
type ListRequest struct {
	Category string
	Sort     string
	Search   string
	Cursor   string
	Limit    int
}

// NotePage is one page of listing results.
type NotePage struct {
	Notes      []model.Note `json:"notes"`
	NextCursor string       `json:"next_cursor,omitempty"`
	HasMore    bool         `json:"has_more"`
}

// NoteService coordinates upload, listing, mutation and deletion of notes.
type NoteService interface {
	// Upload validates, stores the object, inserts the metadata row and
	// rolls the object back if the insert fails.
	Upload(ctx context.Context, ownerID uuid.UUID, req UploadRequest) (*model.Note, error)
	// List returns one server-filtered page; the free-text search is applied
	// in memory over that page only.
	List(ctx context.Context, ownerID uuid.UUID, req ListRequest) (*NotePage, error)
	// ListAll returns the owner's full note set filtered and sorted in
	// memory, served through the short-TTL read cache.
	ListAll(ctx context.Context, ownerID uuid.UUID, category, sortKey, search string) ([]model.Note, error)
	Update(ctx context.Context, id, ownerID uuid.UUID, patch repository.NotePatch) (*model.Note, error)
	Delete(ctx context.Context, id, ownerID uuid.UUID) error
	DownloadURL(ctx context.Context, id, ownerID uuid.UUID) (string, error)
}

// NoteServiceOptions bundle the tunables for NewNoteService.
type NoteServiceOptions struct {
	MaxUploadBytes int64
	PageSize       int
	CacheTTL       time.Duration
	DBTimeout      time.Duration
	StorageTimeout time.Duration
}

type noteService struct {
	notes  repository.NoteRepository
	store  storage.ObjectStorage
	cache  ListCache
	engine *query.Engine
	rules  *validation.Rules
	logger *slog.Logger

	cacheTTL       time.Duration
	dbTimeout      time.Duration
	storageTimeout time.Duration

	now func() time.Time
}

// NewNoteService creates a new note service.
func NewNoteService(notes repository.NoteRepository, store storage.ObjectStorage, cache ListCache, logger *slog.Logger, opts NoteServiceOptions) NoteService {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.DBTimeout <= 0 {
		opts.DBTimeout = 5 * time.Second
	}
	if opts.StorageTimeout <= 0 {
		opts.StorageTimeout = 30 * time.Second
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 60 * time.Second
	}
	return &noteService{
		notes:          notes,
		store:          store,
		cache:          cache,
		engine:         query.NewEngine(opts.PageSize),
		rules:          validation.NewRules(opts.MaxUploadBytes),
		logger:         logger,
		cacheTTL:       opts.CacheTTL,
		dbTimeout:      opts.DBTimeout,
		storageTimeout: opts.StorageTimeout,
		now:            time.Now,
	}
}

func listCacheKey(ownerID uuid.UUID) string {
	return "notes:all:" + ownerID.String()
}

// Upload runs the orchestration: validate, assign key, write object, insert
// row. Validation failures leave no side effects. An insert failure triggers
// a compensating delete of the just-written object; if that also fails the
// orphaned key is logged for later reconciliation. A duplicate storage key is
// retried once with a fresh timestamp, then given up on.
func (s *noteService) Upload(ctx context.Context, ownerID uuid.UUID, req UploadRequest) (*model.Note, error) {
	if err := s.rules.ValidateUpload(req.Fields, req.File); err != nil {
		return nil, err
	}
	ext := validation.FileExtension(req.File.Name)

	note, err := s.storeAndInsert(ctx, ownerID, req, ext)
	if errors.Is(err, apperrors.ErrDuplicateStorageKey) {
		s.logger.Warn("storage key collision, retrying with fresh timestamp",
			"owner_id", ownerID, "title", req.Fields.Title)
		note, err = s.storeAndInsert(ctx, ownerID, req, ext)
	}
	if err != nil {
		return nil, err
	}

	s.invalidateList(ctx, ownerID)
	return note, nil
}

func (s *noteService) storeAndInsert(ctx context.Context, ownerID uuid.UUID, req UploadRequest, ext string) (*model.Note, error) {
	ts := s.now()
	key := storage.AssignKey(ownerID.String(), req.Fields.Title, ts.UnixMilli(), ext)

	sctx, cancel := context.WithTimeout(ctx, s.storageTimeout)
	defer cancel()
	if err := s.store.Put(sctx, key, req.Content, req.ContentType); err != nil {
		s.logger.Error("object write failed", "storage_key", key, "error", err)
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, apperrors.ErrStorageWrite
	}

	note := &model.Note{
		OwnerID:       ownerID,
		Title:         strings.TrimSpace(req.Fields.Title),
		Description:   strings.TrimSpace(req.Fields.Description),
		AcademicYear:  req.Fields.AcademicYear,
		Semester:      req.Fields.Semester,
		SubjectCode:   req.Fields.SubjectCode,
		NotesType:     req.Fields.NotesType,
		FileExtension: ext,
		FileSizeBytes: req.File.Size,
		StorageKey:    key,
		CreatedAt:     ts,
	}

	dctx, cancel2 := context.WithTimeout(ctx, s.dbTimeout)
	defer cancel2()
	if err := s.notes.Insert(dctx, note); err != nil {
		if errors.Is(err, apperrors.ErrDuplicateStorageKey) {
			// The key belongs to an existing note, so its object must stay.
			return nil, err
		}
		// Compensate: best-effort delete of the just-written object. Uses a
		// fresh context in case the request deadline already expired.
		cctx, cancel3 := context.WithTimeout(context.Background(), s.storageTimeout)
		defer cancel3()
		if delErr := s.store.Delete(cctx, key); delErr != nil {
			s.logger.Warn("orphaned object: compensating delete failed, needs reconciliation",
				"storage_key", key, "insert_error", err, "delete_error", delErr)
		}
		return nil, fmt.Errorf("insert note: %w", err)
	}
	return note, nil
}

func (s *noteService) List(ctx context.Context, ownerID uuid.UUID, req ListRequest) (*NotePage, error) {
	q, err := s.engine.BuildQuery(req.Category, req.Sort, req.Cursor, req.Limit)
	if err != nil {
		return nil, err
	}

	dctx, cancel := context.WithTimeout(ctx, s.dbTimeout)
	defer cancel()
	notes, nextCursor, hasMore, err := s.notes.ListByOwner(dctx, ownerID, q)
	if err != nil {
		return nil, err
	}

	// Free-text search stays client-side: it narrows the loaded page without
	// affecting pagination.
	notes = s.engine.Search(notes, req.Search)
	return &NotePage{Notes: notes, NextCursor: nextCursor, HasMore: hasMore}, nil
}

func (s *noteService) ListAll(ctx context.Context, ownerID uuid.UUID, category, sortKey, search string) ([]model.Note, error) {
	sort, err := query.ParseSort(sortKey)
	if err != nil {
		return nil, err
	}

	notes, err := s.loadAll(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	notes = s.engine.FilterCategory(notes, category)
	notes = s.engine.Search(notes, search)
	s.engine.SortNotes(notes, sort)
	return notes, nil
}

// loadAll fetches the owner's full note set, preferring the read cache. The
// cache is fail-safe: any cache error falls through to the repository.
func (s *noteService) loadAll(ctx context.Context, ownerID uuid.UUID) ([]model.Note, error) {
	key := listCacheKey(ownerID)
	if data, err := s.cache.Get(ctx, key); err == nil && data != nil {
		var notes []model.Note
		if err := json.Unmarshal(data, &notes); err == nil {
			return notes, nil
		}
	}

	dctx, cancel := context.WithTimeout(ctx, s.dbTimeout)
	defer cancel()
	notes, err := s.notes.ListAllByOwner(dctx, ownerID)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(notes); err == nil {
		_ = s.cache.Set(ctx, key, payload, s.cacheTTL)
	}
	return notes, nil
}

func (s *noteService) Update(ctx context.Context, id, ownerID uuid.UUID, patch repository.NotePatch) (*model.Note, error) {
	dctx, cancel := context.WithTimeout(ctx, s.dbTimeout)
	defer cancel()
	note, err := s.notes.UpdateFields(dctx, id, ownerID, patch)
	if err != nil {
		return nil, err
	}
	s.invalidateList(ctx, ownerID)
	return note, nil
}

// Delete removes the metadata row first, then best-effort deletes the stored
// object. Object deletion is idempotent, so a failure here leaves only an
// orphaned object, which is logged.
func (s *noteService) Delete(ctx context.Context, id, ownerID uuid.UUID) error {
	dctx, cancel := context.WithTimeout(ctx, s.dbTimeout)
	defer cancel()
	note, err := s.notes.Delete(dctx, id, ownerID)
	if err != nil {
		return err
	}

	sctx, cancel2 := context.WithTimeout(ctx, s.storageTimeout)
	defer cancel2()
	if err := s.store.Delete(sctx, note.StorageKey); err != nil {
		s.logger.Warn("orphaned object: delete after row removal failed",
			"storage_key", note.StorageKey, "error", err)
	}

	s.invalidateList(ctx, ownerID)
	return nil
}

func (s *noteService) DownloadURL(ctx context.Context, id, ownerID uuid.UUID) (string, error) {
	dctx, cancel := context.WithTimeout(ctx, s.dbTimeout)
	defer cancel()
	note, err := s.notes.Get(dctx, id)
	if err != nil {
		return "", err
	}
	if note.OwnerID != ownerID {
		return "", apperrors.ErrNotOwner
	}

	sctx, cancel2 := context.WithTimeout(ctx, s.storageTimeout)
	defer cancel2()
	return s.store.GetURL(sctx, note.StorageKey)
}

// invalidateList drops the cached note list synchronously so a read right
// after a write never sees stale data.
func (s *noteService) invalidateList(ctx context.Context, ownerID uuid.UUID) {
	if err := s.cache.Delete(ctx, listCacheKey(ownerID)); err != nil {
		s.logger.Warn("note list cache invalidation failed", "owner_id", ownerID, "error", err)
	}
}
