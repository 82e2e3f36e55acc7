package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"apicourse/internal/model"
	"apicourse/internal/repository"
	"apicourse/internal/storage"
)

// uploadPrefix is where uploaded objects live in the bucket.
const uploadPrefix = "uploads/"

const (
	defaultFileLimit = 10
	maxFileLimit     = 100
)

// DocumentListResult is one page of stored files.
type DocumentListResult struct {
	Items []model.Document `json:"data"`
	Total int              `json:"total"`
}

// DocumentService stores uploaded files in object storage and their metadata in the database.
type DocumentService interface {
	// Upload streams r to storage under a generated name that keeps the extension of name.
	// The object is removed again when its metadata cannot be saved.
	Upload(ctx context.Context, r io.Reader, name, contentType string, size int64) (*model.Document, error)
	// List pages through stored files, newest first.
	List(ctx context.Context, limit, offset int) (*DocumentListResult, error)
	Get(ctx context.Context, id string) (*model.Document, error)
	// Open streams a file's content. The caller closes the reader.
	Open(ctx context.Context, id string) (io.ReadCloser, *model.Document, error)
	// Delete removes the object and then its metadata.
	Delete(ctx context.Context, id string) error
}

type documentService struct {
	store storage.Storage
	repo  repository.DocumentRepository
	now   func() time.Time
	newID func() string
}

func NewDocumentService(store storage.Storage, repo repository.DocumentRepository) DocumentService {
	return &documentService{store: store, repo: repo, now: time.Now, newID: uuid.NewString}
}

// storedName is the id plus the lower-cased extension of the uploaded name.
func storedName(id, name string) string {
	return id + strings.ToLower(filepath.Ext(name))
}

func (s *documentService) Upload(ctx context.Context, r io.Reader, name, contentType string, size int64) (*model.Document, error) {
	if r == nil {
		return nil, ErrReaderNil
	}
	original := filepath.Base(name)
	id := s.newID()
	filename := storedName(id, original)
	key := uploadPrefix + filename

	info, err := s.store.Put(ctx, key, r, storage.PutObjectOptions{
		Size:        size,
		ContentType: contentType,
		Metadata:    map[string]string{"original-filename": original},
	})
	if err != nil {
		return nil, fmt.Errorf("store %s: %w", filename, err)
	}
	if info.Key == "" {
		info.Key = key
	}

	doc, err := s.repo.Create(ctx, &model.Document{
		ID:           id,
		Filename:     filename,
		OriginalName: original,
		StoragePath:  info.Key,
		Size:         info.Size,
		ContentType:  info.ContentType,
		CreatedAt:    s.now().UTC(),
	})
	if err == nil {
		return doc, nil
	}
	saveErr := fmt.Errorf("save metadata: %w", err)
	if derr := s.store.Delete(ctx, info.Key); derr != nil {
		return nil, errors.Join(saveErr, fmt.Errorf("remove orphaned object %s: %w", info.Key, derr))
	}
	return nil, saveErr
}

func (s *documentService) List(ctx context.Context, limit, offset int) (*DocumentListResult, error) {
	switch {
	case limit <= 0:
		limit = defaultFileLimit
	case limit > maxFileLimit:
		limit = maxFileLimit
	}
	res, err := s.repo.List(ctx, repository.PageQuery{Limit: limit, Offset: max(offset, 0)})
	if err != nil {
		return nil, err
	}
	return &DocumentListResult{Items: res.Items, Total: res.Total}, nil
}

func (s *documentService) lookup(ctx context.Context, id string) (*model.Document, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	doc, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	return doc, err
}

func (s *documentService) Get(ctx context.Context, id string) (*model.Document, error) {
	return s.lookup(ctx, id)
}

func (s *documentService) Open(ctx context.Context, id string) (io.ReadCloser, *model.Document, error) {
	doc, err := s.lookup(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	rc, _, err := s.store.Get(ctx, doc.StoragePath)
	if errors.Is(err, storage.ErrObjectNotFound) {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", doc.StoragePath, err)
	}
	return rc, doc, nil
}

// Delete keeps the metadata when the object cannot be removed, so a retry can finish the job.
// An object that is already gone does not block removing its metadata.
func (s *documentService) Delete(ctx context.Context, id string) error {
	doc, err := s.lookup(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, doc.StoragePath); err != nil && !errors.Is(err, storage.ErrObjectNotFound) {
		return fmt.Errorf("delete %s: %w", doc.StoragePath, err)
	}
	return s.repo.Delete(ctx, id)
}
