package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "notesu/internal/errors"
	"notesu/internal/model"
	"notesu/internal/query"
	"notesu/internal/repository"
	"notesu/internal/validation"
)

// MockNoteRepository is a mock implementation of NoteRepository.
type MockNoteRepository struct {
	mock.Mock
}

func (m *MockNoteRepository) Insert(ctx context.Context, note *model.Note) error {
	args := m.Called(ctx, note)
	return args.Error(0)
}

func (m *MockNoteRepository) Get(ctx context.Context, id uuid.UUID) (*model.Note, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Note), args.Error(1)
}

func (m *MockNoteRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID, q query.Query) ([]model.Note, string, bool, error) {
	args := m.Called(ctx, ownerID, q)
	var notes []model.Note
	if args.Get(0) != nil {
		notes = args.Get(0).([]model.Note)
	}
	return notes, args.String(1), args.Bool(2), args.Error(3)
}

func (m *MockNoteRepository) ListAllByOwner(ctx context.Context, ownerID uuid.UUID) ([]model.Note, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Note), args.Error(1)
}

func (m *MockNoteRepository) UpdateFields(ctx context.Context, id, ownerID uuid.UUID, patch repository.NotePatch) (*model.Note, error) {
	args := m.Called(ctx, id, ownerID, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Note), args.Error(1)
}

func (m *MockNoteRepository) Delete(ctx context.Context, id, ownerID uuid.UUID) (*model.Note, error) {
	args := m.Called(ctx, id, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Note), args.Error(1)
}

// MockObjectStorage is a mock implementation of storage.ObjectStorage.
type MockObjectStorage struct {
	mock.Mock
}

func (m *MockObjectStorage) Put(ctx context.Context, key string, body []byte, contentType string) error {
	args := m.Called(ctx, key, body, contentType)
	return args.Error(0)
}

func (m *MockObjectStorage) GetURL(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *MockObjectStorage) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

// fakeListCache is an in-memory ListCache recording invalidations.
type fakeListCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	deletes int
}

func newFakeListCache() *fakeListCache {
	return &fakeListCache{entries: map[string][]byte{}}
}

func (f *fakeListCache) Get(ctx context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.entries[key], nil
}

func (f *fakeListCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[key] = value
	return nil
}

func (f *fakeListCache) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.entries, key)
	f.deletes++
	return nil
}

func validUpload() UploadRequest {
	return UploadRequest{
		Fields: validation.UploadFields{
			Title:        "My Notes!!",
			AcademicYear: "year1",
			Semester:     "semester1",
			SubjectCode:  "MATH101",
			NotesType:    "lecture_notes",
		},
		File:        &validation.FileMeta{Name: "scan.pdf", Size: 2048},
		Content:     []byte("pdf bytes"),
		ContentType: "application/pdf",
	}
}

func newNoteServiceForTest(repo *MockNoteRepository, store *MockObjectStorage, cache ListCache) *noteService {
	if cache == nil {
		cache = newFakeListCache()
	}
	svc := NewNoteService(repo, store, cache, nil, NoteServiceOptions{
		MaxUploadBytes: 25 << 20,
		PageSize:       20,
	}).(*noteService)
	svc.now = func() time.Time { return time.UnixMilli(1000) }
	return svc
}

func TestNoteService_Upload_HappyPath(t *testing.T) {
	repo := new(MockNoteRepository)
	store := new(MockObjectStorage)
	cache := newFakeListCache()
	svc := newNoteServiceForTest(repo, store, cache)

	ownerID := uuid.New()
	wantKey := "users/" + ownerID.String() + "/notes/1000_My_Notes.pdf"

	store.On("Put", mock.Anything, wantKey, []byte("pdf bytes"), "application/pdf").Return(nil)
	repo.On("Insert", mock.Anything, mock.AnythingOfType("*model.Note")).Return(nil)

	note, err := svc.Upload(context.Background(), ownerID, validUpload())
	require.NoError(t, err)
	assert.Equal(t, wantKey, note.StorageKey)
	assert.Equal(t, ownerID, note.OwnerID)
	assert.Equal(t, "My Notes!!", note.Title)
	assert.Equal(t, "pdf", note.FileExtension)
	assert.Equal(t, int64(2048), note.FileSizeBytes)

	store.AssertExpectations(t)
	repo.AssertExpectations(t)
}

func TestNoteService_Upload_ValidationFailureHasNoSideEffects(t *testing.T) {
	repo := new(MockNoteRepository)
	store := new(MockObjectStorage)
	svc := newNoteServiceForTest(repo, store, nil)

	req := validUpload()
	req.File.Size = 26 << 20 // over the 25 MiB limit

	_, err := svc.Upload(context.Background(), uuid.New(), req)
	assert.ErrorIs(t, err, apperrors.ErrFileTooLarge)

	store.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
}

func TestNoteService_Upload_StorageFailureSkipsInsert(t *testing.T) {
	repo := new(MockNoteRepository)
	store := new(MockObjectStorage)
	svc := newNoteServiceForTest(repo, store, nil)

	store.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("bucket unreachable"))

	_, err := svc.Upload(context.Background(), uuid.New(), validUpload())
	assert.ErrorIs(t, err, apperrors.ErrStorageWrite)
	repo.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
}

func TestNoteService_Upload_InsertFailureRollsBackObject(t *testing.T) {
	repo := new(MockNoteRepository)
	store := new(MockObjectStorage)
	svc := newNoteServiceForTest(repo, store, nil)

	ownerID := uuid.New()
	wantKey := "users/" + ownerID.String() + "/notes/1000_My_Notes.pdf"

	store.On("Put", mock.Anything, wantKey, mock.Anything, mock.Anything).Return(nil)
	repo.On("Insert", mock.Anything, mock.Anything).Return(errors.New("db down"))
	store.On("Delete", mock.Anything, wantKey).Return(nil)

	_, err := svc.Upload(context.Background(), ownerID, validUpload())
	require.Error(t, err)

	store.AssertCalled(t, "Delete", mock.Anything, wantKey)
}

func TestNoteService_Upload_RollbackFailureStillFails(t *testing.T) {
	repo := new(MockNoteRepository)
	store := new(MockObjectStorage)
	svc := newNoteServiceForTest(repo, store, nil)

	store.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	repo.On("Insert", mock.Anything, mock.Anything).Return(errors.New("db down"))
	// The compensating delete fails; the orphaned key is logged, the upload
	// error still reaches the caller.
	store.On("Delete", mock.Anything, mock.Anything).Return(errors.New("also down"))

	_, err := svc.Upload(context.Background(), uuid.New(), validUpload())
	require.Error(t, err)
	store.AssertExpectations(t)
}

func TestNoteService_Upload_DuplicateKeyRetriesOnce(t *testing.T) {
	repo := new(MockNoteRepository)
	store := new(MockObjectStorage)
	svc := newNoteServiceForTest(repo, store, nil)

	// Advance the clock between attempts so the retry gets a fresh key.
	ts := int64(1000)
	svc.now = func() time.Time {
		ts += 1
		return time.UnixMilli(ts)
	}

	ownerID := uuid.New()
	firstKey := "users/" + ownerID.String() + "/notes/1001_My_Notes.pdf"
	secondKey := "users/" + ownerID.String() + "/notes/1002_My_Notes.pdf"

	store.On("Put", mock.Anything, firstKey, mock.Anything, mock.Anything).Return(nil).Once()
	repo.On("Insert", mock.Anything, mock.MatchedBy(func(n *model.Note) bool {
		return n.StorageKey == firstKey
	})).Return(apperrors.ErrDuplicateStorageKey).Once()

	store.On("Put", mock.Anything, secondKey, mock.Anything, mock.Anything).Return(nil).Once()
	repo.On("Insert", mock.Anything, mock.MatchedBy(func(n *model.Note) bool {
		return n.StorageKey == secondKey
	})).Return(nil).Once()

	note, err := svc.Upload(context.Background(), ownerID, validUpload())
	require.NoError(t, err)
	assert.Equal(t, secondKey, note.StorageKey)

	// The colliding key belongs to an existing note; it must not be deleted.
	store.AssertNotCalled(t, "Delete", mock.Anything, firstKey)
	store.AssertExpectations(t)
	repo.AssertExpectations(t)
}

func TestNoteService_List_AppliesSearchToLoadedPage(t *testing.T) {
	repo := new(MockNoteRepository)
	store := new(MockObjectStorage)
	svc := newNoteServiceForTest(repo, store, nil)

	ownerID := uuid.New()
	page := []model.Note{
		{ID: uuid.New(), Title: "Linear Algebra", SubjectCode: "MATH201"},
		{ID: uuid.New(), Title: "Databases", SubjectCode: "CS305"},
	}
	repo.On("ListByOwner", mock.Anything, ownerID, mock.Anything).Return(page, "next-token", true, nil)

	got, err := svc.List(context.Background(), ownerID, ListRequest{Search: "algebra"})
	require.NoError(t, err)
	require.Len(t, got.Notes, 1)
	assert.Equal(t, "Linear Algebra", got.Notes[0].Title)
	// Pagination state reflects the server page, not the narrowed view.
	assert.Equal(t, "next-token", got.NextCursor)
	assert.True(t, got.HasMore)
}

func TestNoteService_List_RejectsBadSort(t *testing.T) {
	svc := newNoteServiceForTest(new(MockNoteRepository), new(MockObjectStorage), nil)
	_, err := svc.List(context.Background(), uuid.New(), ListRequest{Sort: "bogus"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidSort)
}

func TestNoteService_ListAll_CachesAndInvalidates(t *testing.T) {
	repo := new(MockNoteRepository)
	store := new(MockObjectStorage)
	cache := newFakeListCache()
	svc := newNoteServiceForTest(repo, store, cache)

	ownerID := uuid.New()
	notes := []model.Note{
		{ID: uuid.New(), Title: "B", SubjectCode: "X", CreatedAt: time.UnixMilli(100)},
		{ID: uuid.New(), Title: "A", SubjectCode: "X", CreatedAt: time.UnixMilli(200)},
		{ID: uuid.New(), Title: "C", SubjectCode: "Y", CreatedAt: time.UnixMilli(300)},
	}
	repo.On("ListAllByOwner", mock.Anything, ownerID).Return(notes, nil).Once()

	// First call hits the repository and fills the cache.
	got, err := svc.ListAll(context.Background(), ownerID, "all", "title", "")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"A", "B", "C"}, []string{got[0].Title, got[1].Title, got[2].Title})

	// Second call is served from cache: the repository expectation is Once.
	got, err = svc.ListAll(context.Background(), ownerID, "X", "newest", "")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "A", got[0].Title) // newest of subject X

	// A write invalidates synchronously; the next read goes back to the DB.
	wantKey := "users/" + ownerID.String() + "/notes/1000_My_Notes.pdf"
	store.On("Put", mock.Anything, wantKey, mock.Anything, mock.Anything).Return(nil)
	inserted := validUpload()
	repo.On("Insert", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		n := args.Get(1).(*model.Note)
		n.ID = uuid.New()
	}).Return(nil)
	_, err = svc.Upload(context.Background(), ownerID, inserted)
	require.NoError(t, err)

	fresh := append(notes, model.Note{ID: uuid.New(), Title: "My Notes!!", SubjectCode: "MATH101", CreatedAt: time.UnixMilli(1000)})
	repo.On("ListAllByOwner", mock.Anything, ownerID).Return(fresh, nil).Once()
	got, err = svc.ListAll(context.Background(), ownerID, "all", "newest", "")
	require.NoError(t, err)
	assert.Len(t, got, 4)
	repo.AssertExpectations(t)
}

func TestNoteService_Update_OwnershipErrorsPassThrough(t *testing.T) {
	repo := new(MockNoteRepository)
	svc := newNoteServiceForTest(repo, new(MockObjectStorage), nil)

	noteID, ownerID := uuid.New(), uuid.New()
	repo.On("UpdateFields", mock.Anything, noteID, ownerID, mock.Anything).
		Return(nil, apperrors.ErrNotOwner)

	_, err := svc.Update(context.Background(), noteID, ownerID, repository.NotePatch{})
	assert.ErrorIs(t, err, apperrors.ErrNotOwner)
}

func TestNoteService_Delete_RemovesRowThenObject(t *testing.T) {
	repo := new(MockNoteRepository)
	store := new(MockObjectStorage)
	cache := newFakeListCache()
	svc := newNoteServiceForTest(repo, store, cache)

	noteID, ownerID := uuid.New(), uuid.New()
	note := &model.Note{ID: noteID, OwnerID: ownerID, StorageKey: "users/u/notes/1_a.pdf"}
	repo.On("Delete", mock.Anything, noteID, ownerID).Return(note, nil).Once()
	store.On("Delete", mock.Anything, note.StorageKey).Return(nil).Once()

	require.NoError(t, svc.Delete(context.Background(), noteID, ownerID))
	assert.Equal(t, 1, cache.deletes)

	// Second delete: the row is already gone.
	repo.On("Delete", mock.Anything, noteID, ownerID).Return(nil, apperrors.ErrNoteNotFound).Once()
	err := svc.Delete(context.Background(), noteID, ownerID)
	assert.ErrorIs(t, err, apperrors.ErrNoteNotFound)
	store.AssertNumberOfCalls(t, "Delete", 1)
}

func TestNoteService_Delete_ObjectFailureIsBestEffort(t *testing.T) {
	repo := new(MockNoteRepository)
	store := new(MockObjectStorage)
	svc := newNoteServiceForTest(repo, store, nil)

	noteID, ownerID := uuid.New(), uuid.New()
	note := &model.Note{ID: noteID, OwnerID: ownerID, StorageKey: "users/u/notes/1_a.pdf"}
	repo.On("Delete", mock.Anything, noteID, ownerID).Return(note, nil)
	store.On("Delete", mock.Anything, note.StorageKey).Return(errors.New("unreachable"))

	// The metadata row is gone; the orphaned object is logged, not surfaced.
	assert.NoError(t, svc.Delete(context.Background(), noteID, ownerID))
}

func TestNoteService_DownloadURL_ChecksOwnership(t *testing.T) {
	repo := new(MockNoteRepository)
	store := new(MockObjectStorage)
	svc := newNoteServiceForTest(repo, store, nil)

	noteID, ownerID := uuid.New(), uuid.New()
	note := &model.Note{ID: noteID, OwnerID: ownerID, StorageKey: "users/u/notes/1_a.pdf"}
	repo.On("Get", mock.Anything, noteID).Return(note, nil)

	_, err := svc.DownloadURL(context.Background(), noteID, uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrNotOwner)
	store.AssertNotCalled(t, "GetURL", mock.Anything, mock.Anything)

	store.On("GetURL", mock.Anything, note.StorageKey).Return("https://signed.example/x", nil)
	url, err := svc.DownloadURL(context.Background(), noteID, ownerID)
	require.NoError(t, err)
	assert.Equal(t, "https://signed.example/x", url)
}
