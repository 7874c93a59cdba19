package storage

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cppla/spiritfit/apperr"
	"github.com/cppla/spiritfit/models"
)

// MaxUploadSize caps one upload.
const MaxUploadSize = 10 << 20

// Uploader validates images, writes them to an ObjectStore and records them.
type Uploader struct {
	db    *gorm.DB
	store ObjectStore
}

// NewUploader creates an Uploader.
func NewUploader(db *gorm.DB, store ObjectStore) *Uploader {
	return &Uploader{db: db, store: store}
}

// Save stores one image for userID. The file's type is sniffed from its
// content; the name only supplies the extension.
func (u *Uploader) Save(ctx context.Context, userID uint, bucket, filename string, r io.Reader) (models.UploadedFile, error) {
	if userID == 0 {
		return models.UploadedFile{}, apperr.ErrNotAuthenticated
	}
	if !ValidBucket(bucket) {
		return models.UploadedFile{}, apperr.Validation("unknown bucket %q", bucket)
	}

	br := bufio.NewReaderSize(r, 512)
	head, err := br.Peek(512)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return models.UploadedFile{}, apperr.Validation("unreadable upload")
	}
	if len(head) == 0 {
		return models.UploadedFile{}, apperr.Validation("empty upload")
	}
	contentType := http.DetectContentType(head)
	if !strings.HasPrefix(contentType, "image/") {
		return models.UploadedFile{}, apperr.Validation("only images can be uploaded, got %s", contentType)
	}
	ext := strings.ToLower(path.Ext(filename))
	if contentTypeForKey(ext) == "" {
		ext = extensionFor(contentType)
	}

	key := fmt.Sprintf("%d/%s%s", userID, uuid.NewString(), ext)
	counted := &countingReader{r: io.LimitReader(br, MaxUploadSize+1)}
	if err := u.store.Upload(ctx, bucket, key, counted, contentType); err != nil {
		return models.UploadedFile{}, apperr.Persistence("upload file", err)
	}
	if counted.n > MaxUploadSize {
		_ = u.store.Delete(ctx, bucket, key)
		return models.UploadedFile{}, apperr.Validation("file exceeds %d MB", MaxUploadSize>>20)
	}

	rec := models.UploadedFile{
		UserID:      userID,
		Bucket:      bucket,
		ObjectKey:   key,
		URL:         u.store.PublicURL(bucket, key),
		ContentType: contentType,
		Size:        counted.n,
	}
	if err := u.db.WithContext(ctx).Create(&rec).Error; err != nil {
		_ = u.store.Delete(ctx, bucket, key)
		return models.UploadedFile{}, apperr.Persistence("record upload", err)
	}
	return rec, nil
}

// List returns userID's uploads, newest first.
func (u *Uploader) List(ctx context.Context, userID uint) ([]models.UploadedFile, error) {
	var out []models.UploadedFile
	err := u.db.WithContext(ctx).Where("user_id = ?", userID).Order("id DESC").Find(&out).Error
	return out, apperr.Persistence("list uploads", err)
}

// Delete removes one of userID's uploads from the store and the record.
func (u *Uploader) Delete(ctx context.Context, userID, id uint) error {
	var rec models.UploadedFile
	err := u.db.WithContext(ctx).First(&rec, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound("upload")
	}
	if err != nil {
		return apperr.Persistence("load upload", err)
	}
	if rec.UserID != userID {
		return apperr.Forbidden("upload belongs to another user")
	}
	if err := u.store.Delete(ctx, rec.Bucket, rec.ObjectKey); err != nil {
		return apperr.Persistence("delete object", err)
	}
	return apperr.Persistence("delete upload", u.db.WithContext(ctx).Delete(&rec).Error)
}

func extensionFor(contentType string) string {
	for ext, ct := range imageTypes {
		if ct == contentType && ext != ".jpeg" {
			return ext
		}
	}
	return ""
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
