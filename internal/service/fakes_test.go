package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"docvault/internal/audit"
	"docvault/internal/domain"
	"docvault/internal/service/s3"
)

// In-memory store fakes. Insert with a pre-set id tolerates duplicates,
// mirroring the ON CONFLICT DO NOTHING behavior of the postgres layer.

type fakeFolderStore struct {
	mu     sync.Mutex
	nextID int64
	items  map[int64]*domain.Folder
}

func newFakeFolderStore() *fakeFolderStore {
	return &fakeFolderStore{items: make(map[int64]*domain.Folder)}
}

func (s *fakeFolderStore) Insert(_ context.Context, folder *domain.Folder) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if folder.ID == 0 {
		s.nextID++
		folder.ID = s.nextID
	} else {
		if _, ok := s.items[folder.ID]; ok {
			return nil
		}
		if folder.ID > s.nextID {
			s.nextID = folder.ID
		}
	}
	if folder.CreatedAt.IsZero() {
		folder.CreatedAt = time.Now()
	}
	folder.UpdatedAt = time.Now()

	cp := *folder
	s.items[folder.ID] = &cp
	return nil
}

func (s *fakeFolderStore) GetByID(_ context.Context, id int64) (*domain.Folder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	folder, ok := s.items[id]
	if !ok {
		return nil, fmt.Errorf("folder %d: %w", id, domain.ErrNotFound)
	}
	cp := *folder
	return &cp, nil
}

func (s *fakeFolderStore) ListByParent(_ context.Context, dimensionID int64, parentID *int64) ([]domain.Folder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.Folder
	for _, folder := range s.items {
		if folder.DimensionID != dimensionID {
			continue
		}
		if parentID == nil {
			if folder.ParentID == nil {
				out = append(out, *folder)
			}
		} else if folder.ParentID != nil && *folder.ParentID == *parentID {
			out = append(out, *folder)
		}
	}
	return out, nil
}

func (s *fakeFolderStore) UpdateName(_ context.Context, id int64, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	folder, ok := s.items[id]
	if !ok {
		return fmt.Errorf("folder %d: %w", id, domain.ErrNotFound)
	}
	folder.Name = name
	return nil
}

func (s *fakeFolderStore) UpdateParent(_ context.Context, id int64, parentID *int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	folder, ok := s.items[id]
	if !ok {
		return fmt.Errorf("folder %d: %w", id, domain.ErrNotFound)
	}
	folder.ParentID = parentID
	return nil
}

func (s *fakeFolderStore) UpdateStatus(_ context.Context, id int64, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	folder, ok := s.items[id]
	if !ok {
		return fmt.Errorf("folder %d: %w", id, domain.ErrNotFound)
	}
	folder.Status = status
	return nil
}

func (s *fakeFolderStore) UpdateLock(_ context.Context, id int64, locked bool, pinHash *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	folder, ok := s.items[id]
	if !ok {
		return fmt.Errorf("folder %d: %w", id, domain.ErrNotFound)
	}
	folder.IsLocked = locked
	folder.PinHash = pinHash
	return nil
}

func (s *fakeFolderStore) SetArchiveFlags(_ context.Context, id int64, local, cloud *bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	folder, ok := s.items[id]
	if !ok {
		return fmt.Errorf("folder %d: %w", id, domain.ErrNotFound)
	}
	if local != nil {
		folder.LocalArchive = *local
	}
	if cloud != nil {
		folder.CloudArchive = *cloud
	}
	return nil
}

func (s *fakeFolderStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[id]; !ok {
		return fmt.Errorf("folder %d: %w", id, domain.ErrNotFound)
	}
	delete(s.items, id)
	return nil
}

func (s *fakeFolderStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

type fakeFileStore struct {
	mu    sync.Mutex
	items map[uuid.UUID]*domain.File
}

func newFakeFileStore() *fakeFileStore {
	return &fakeFileStore{items: make(map[uuid.UUID]*domain.File)}
}

func (s *fakeFileStore) Insert(_ context.Context, file *domain.File) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if file.ID == uuid.Nil {
		file.ID = uuid.New()
	} else if _, ok := s.items[file.ID]; ok {
		return nil
	}
	if file.CreatedAt.IsZero() {
		file.CreatedAt = time.Now()
	}
	file.UpdatedAt = time.Now()

	cp := *file
	s.items[file.ID] = &cp
	return nil
}

func (s *fakeFileStore) GetByID(_ context.Context, id uuid.UUID) (*domain.File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, ok := s.items[id]
	if !ok {
		return nil, fmt.Errorf("file %s: %w", id, domain.ErrNotFound)
	}
	cp := *file
	return &cp, nil
}

func (s *fakeFileStore) ListByFolder(_ context.Context, dimensionID int64, folderID *int64) ([]domain.File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.File
	for _, file := range s.items {
		if file.DimensionID != dimensionID {
			continue
		}
		if folderID == nil {
			if file.FolderID == nil {
				out = append(out, *file)
			}
		} else if file.FolderID != nil && *file.FolderID == *folderID {
			out = append(out, *file)
		}
	}
	return out, nil
}

func (s *fakeFileStore) UpdateName(_ context.Context, id uuid.UUID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, ok := s.items[id]
	if !ok {
		return fmt.Errorf("file %s: %w", id, domain.ErrNotFound)
	}
	file.Name = name
	return nil
}

func (s *fakeFileStore) UpdateFolder(_ context.Context, id uuid.UUID, folderID *int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, ok := s.items[id]
	if !ok {
		return fmt.Errorf("file %s: %w", id, domain.ErrNotFound)
	}
	file.FolderID = folderID
	return nil
}

func (s *fakeFileStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[id]; !ok {
		return fmt.Errorf("file %s: %w", id, domain.ErrNotFound)
	}
	delete(s.items, id)
	return nil
}

func (s *fakeFileStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

type fakeTrashStore struct {
	mu     sync.Mutex
	nextID int64
	items  map[int64]*domain.TrashRecord
}

func newFakeTrashStore() *fakeTrashStore {
	return &fakeTrashStore{items: make(map[int64]*domain.TrashRecord)}
}

func (s *fakeTrashStore) Insert(_ context.Context, rec *domain.TrashRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	rec.ID = s.nextID
	cp := *rec
	s.items[rec.ID] = &cp
	return nil
}

func (s *fakeTrashStore) GetByID(_ context.Context, id int64) (*domain.TrashRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.items[id]
	if !ok {
		return nil, fmt.Errorf("trash record %d: %w", id, domain.ErrNotFound)
	}
	cp := *rec
	return &cp, nil
}

func (s *fakeTrashStore) ListRoots(_ context.Context, dimensionID int64) ([]domain.TrashRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.TrashRecord
	for _, rec := range s.items {
		if rec.DimensionID == dimensionID && rec.ItemID == rec.RootDeletedFolderID {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (s *fakeTrashStore) ListByRoot(_ context.Context, rootID string) ([]domain.TrashRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.TrashRecord
	for _, rec := range s.items {
		if rec.RootDeletedFolderID == rootID {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (s *fakeTrashStore) DeleteByRoot(_ context.Context, rootID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, rec := range s.items {
		if rec.RootDeletedFolderID == rootID {
			delete(s.items, id)
		}
	}
	return nil
}

func (s *fakeTrashStore) ListExpired(_ context.Context, olderThan time.Time) ([]domain.TrashRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.TrashRecord
	for _, rec := range s.items {
		if rec.DeletedAt.Before(olderThan) {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (s *fakeTrashStore) DeleteExpired(_ context.Context, olderThan time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, rec := range s.items {
		if rec.DeletedAt.Before(olderThan) {
			delete(s.items, id)
		}
	}
	return nil
}

func (s *fakeTrashStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

type fakeDependentStore struct {
	mu        sync.Mutex
	folderIDs []int64
	fileIDs   []uuid.UUID
}

func (s *fakeDependentStore) DeleteForItems(_ context.Context, folderIDs []int64, fileIDs []uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.folderIDs = append(s.folderIDs, folderIDs...)
	s.fileIDs = append(s.fileIDs, fileIDs...)
	return nil
}

type fakeArchiveStore struct {
	mu     sync.Mutex
	nextID int64
	items  map[int64]*domain.ArchiveRecord
}

func newFakeArchiveStore() *fakeArchiveStore {
	return &fakeArchiveStore{items: make(map[int64]*domain.ArchiveRecord)}
}

func (s *fakeArchiveStore) Insert(_ context.Context, rec *domain.ArchiveRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	rec.ID = s.nextID
	rec.ArchivedAt = time.Now()
	cp := *rec
	s.items[rec.ID] = &cp
	return nil
}

func (s *fakeArchiveStore) GetByID(_ context.Context, id int64) (*domain.ArchiveRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.items[id]
	if !ok {
		return nil, fmt.Errorf("archive record %d: %w", id, domain.ErrNotFound)
	}
	cp := *rec
	return &cp, nil
}

func (s *fakeArchiveStore) GetByFolderID(_ context.Context, folderID int64) (*domain.ArchiveRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var latest *domain.ArchiveRecord
	for _, rec := range s.items {
		if rec.FolderID == folderID {
			if latest == nil || rec.ArchivedAt.After(latest.ArchivedAt) {
				latest = rec
			}
		}
	}
	if latest == nil {
		return nil, fmt.Errorf("archive record for folder %d: %w", folderID, domain.ErrNotFound)
	}
	cp := *latest
	return &cp, nil
}

func (s *fakeArchiveStore) ListByDimension(_ context.Context, dimensionID int64) ([]domain.ArchiveRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.ArchiveRecord
	for _, rec := range s.items {
		if rec.DimensionID == dimensionID {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (s *fakeArchiveStore) MarkArchived(_ context.Context, folderID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	found := false
	for _, rec := range s.items {
		if rec.FolderID == folderID {
			rec.Archived = true
			found = true
		}
	}
	if !found {
		return fmt.Errorf("archive record for folder %d: %w", folderID, domain.ErrNotFound)
	}
	return nil
}

// fakeBlobStorage keeps blob contents in a map keyed by path
type fakeBlobStorage struct {
	mu       sync.Mutex
	objects  map[string][]byte
	failKeys map[string]bool
}

func newFakeBlobStorage() *fakeBlobStorage {
	return &fakeBlobStorage{
		objects:  make(map[string][]byte),
		failKeys: make(map[string]bool),
	}
}

func (s *fakeBlobStorage) UploadBytes(key string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.objects[key] = append([]byte(nil), data...)
	return s.ObjectURL(key), nil
}

type fakeBlobObject struct {
	io.ReadCloser
	length int64
}

func (o *fakeBlobObject) ContentLength() int64 { return o.length }
func (o *fakeBlobObject) ContentType() string  { return "application/octet-stream" }

func (s *fakeBlobStorage) GetObject(_ context.Context, key string) (s3.S3Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok := s.objects[key]
	if !ok {
		return nil, fmt.Errorf("object %s not found", key)
	}
	return &fakeBlobObject{
		ReadCloser: io.NopCloser(bytes.NewReader(data)),
		length:     int64(len(data)),
	}, nil
}

func (s *fakeBlobStorage) CopyObject(_ context.Context, srcKey, dstKey string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok := s.objects[srcKey]
	if !ok {
		return "", fmt.Errorf("object %s not found", srcKey)
	}
	s.objects[dstKey] = append([]byte(nil), data...)
	return s.ObjectURL(dstKey), nil
}

func (s *fakeBlobStorage) DeleteObject(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failKeys[key] {
		return fmt.Errorf("object %s delete failed", key)
	}
	delete(s.objects, key)
	return nil
}

func (s *fakeBlobStorage) DeleteObjects(keys []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range keys {
		if s.failKeys[key] {
			continue
		}
		delete(s.objects, key)
	}
}

func (s *fakeBlobStorage) ObjectURL(key string) string {
	return "https://blobs.test/" + key
}

func (s *fakeBlobStorage) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

func (s *fakeBlobStorage) has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[key]
	return ok
}

type fakeColdStorage struct {
	mu         sync.Mutex
	uploads    map[string][]byte
	failUpload bool
}

func newFakeColdStorage() *fakeColdStorage {
	return &fakeColdStorage{uploads: make(map[string][]byte)}
}

func (s *fakeColdStorage) Name() string {
	return "test-cold"
}

func (s *fakeColdStorage) Upload(_ context.Context, path string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failUpload {
		return "", fmt.Errorf("upload of %s failed", path)
	}
	s.uploads[path] = append([]byte(nil), data...)
	return "https://cold.test/" + path, nil
}

func (s *fakeColdStorage) Delete(_ context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.uploads, path)
	return nil
}

func (s *fakeColdStorage) SignedURL(_ context.Context, path string, ttl time.Duration) (string, error) {
	return fmt.Sprintf("https://cold.test/%s?expires=%d", path, int64(ttl.Seconds())), nil
}

type fakeAuditLogger struct {
	mu     sync.Mutex
	events []audit.Event
}

func (l *fakeAuditLogger) Log(_ context.Context, e audit.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}
