package storage

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/spiritfit/apperr"
	"github.com/cppla/spiritfit/dbtest"
)

// Smallest valid PNG header is enough for content sniffing.
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestLocalStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s := NewLocalStore(dir, "/static/uploads/")
	ctx := context.Background()

	require.NoError(t, s.Upload(ctx, BucketAvatars, "7/a.png", bytes.NewReader(pngHeader), "image/png"))
	got, err := os.ReadFile(filepath.Join(dir, BucketAvatars, "7", "a.png"))
	require.NoError(t, err)
	assert.Equal(t, pngHeader, got)
	assert.Equal(t, "/static/uploads/avatars/7/a.png", s.PublicURL(BucketAvatars, "7/a.png"))

	// Keys cannot climb out of the root.
	require.NoError(t, s.Upload(ctx, BucketAvatars, "../../escape.png", bytes.NewReader(pngHeader), ""))
	_, err = os.Stat(filepath.Join(dir, BucketAvatars, "escape.png"))
	assert.NoError(t, err)
	assert.Error(t, s.Upload(ctx, "../x", "k", bytes.NewReader(pngHeader), ""))

	require.NoError(t, s.Delete(ctx, BucketAvatars, "7/a.png"))
	require.NoError(t, s.Delete(ctx, BucketAvatars, "7/a.png"))
}

func TestUploaderSaveListDelete(t *testing.T) {
	db := dbtest.Open(t)
	owner := dbtest.User(t, db, "bezalel")
	other := dbtest.User(t, db, "oholiab")
	dir := t.TempDir()
	up := NewUploader(db, NewLocalStore(dir, "/static/uploads"))
	ctx := context.Background()

	_, err := up.Save(ctx, owner.ID, "secrets", "a.png", bytes.NewReader(pngHeader))
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = up.Save(ctx, owner.ID, BucketPostImages, "a.png", strings.NewReader("plain text, not an image"))
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = up.Save(ctx, 0, BucketPostImages, "a.png", bytes.NewReader(pngHeader))
	assert.ErrorIs(t, err, apperr.ErrNotAuthenticated)

	rec, err := up.Save(ctx, owner.ID, BucketPostImages, "photo.exe", bytes.NewReader(pngHeader))
	require.NoError(t, err)
	assert.Equal(t, "image/png", rec.ContentType)
	assert.True(t, strings.HasSuffix(rec.ObjectKey, ".png"))
	assert.True(t, strings.HasPrefix(rec.URL, "/static/uploads/post-images/"))
	assert.EqualValues(t, len(pngHeader), rec.Size)

	list, err := up.List(ctx, owner.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	assert.ErrorIs(t, up.Delete(ctx, other.ID, rec.ID), apperr.ErrForbidden)
	require.NoError(t, up.Delete(ctx, owner.ID, rec.ID))
	assert.ErrorIs(t, up.Delete(ctx, owner.ID, rec.ID), apperr.ErrNotFound)
	_, err = os.Stat(filepath.Join(dir, BucketPostImages, rec.ObjectKey))
	assert.True(t, os.IsNotExist(err))
}

func TestUploaderRejectsOversizedFiles(t *testing.T) {
	db := dbtest.Open(t)
	owner := dbtest.User(t, db, "hiram")
	dir := t.TempDir()
	up := NewUploader(db, NewLocalStore(dir, "/static/uploads"))

	big := append(append([]byte{}, pngHeader...), make([]byte, MaxUploadSize)...)
	_, err := up.Save(context.Background(), owner.ID, BucketAvatars, "big.png", bytes.NewReader(big))
	assert.ErrorIs(t, err, apperr.ErrValidation)
	list, err := up.List(context.Background(), owner.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}
