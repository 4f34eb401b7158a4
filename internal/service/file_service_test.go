package service

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/etp-gateway/pkg/errors"
	"github.com/noah-isme/etp-gateway/pkg/storage"
)

type countingStorage struct {
	*storage.LocalStorage
	saves int
}

func (c *countingStorage) Save(owner, name string, data []byte) (storage.Info, error) {
	c.saves++
	return c.LocalStorage.Save(owner, name, data)
}

func newFileFixture(t *testing.T, maxSize int64) (*FileService, *countingStorage) {
	t.Helper()
	local, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	store := &countingStorage{LocalStorage: local}
	signer := storage.NewSignedURLSigner("secret", time.Minute)
	return NewFileService(store, signer, FileConfig{MaxSizeBytes: maxSize, APIPrefix: "/api/v1"}, nil), store
}

func TestFileServiceUploadAndView(t *testing.T) {
	svc, _ := newFileFixture(t, 1024)

	file, err := svc.Upload("u1", "notes.md", 7, strings.NewReader("# hello"))
	require.NoError(t, err)
	assert.Equal(t, "md", file.Type)
	assert.Equal(t, "7 Bytes", file.SizeLabel)

	viewed, err := svc.View("u1", "notes.md")
	require.NoError(t, err)
	assert.Equal(t, "# hello", viewed.Content)
}

func TestFileServiceRejectsOversizeBeforeWriting(t *testing.T) {
	svc, store := newFileFixture(t, 10)

	_, err := svc.Upload("u1", "big.txt", 11, strings.NewReader(strings.Repeat("a", 11)))
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrFileTooLarge.Code, appErr.Code)
	assert.Equal(t, 0, store.saves)

	_, err = svc.Upload("u1", "lying.txt", 1, strings.NewReader(strings.Repeat("a", 50)))
	assert.Equal(t, appErrors.ErrFileTooLarge.Code, appErrors.FromError(err).Code)
	assert.Equal(t, 0, store.saves)
}

func TestFileServiceRejectsBinaryContent(t *testing.T) {
	svc, store := newFileFixture(t, 1024)
	_, err := svc.Upload("u1", "image.png", 3, strings.NewReader("\xff\xfe\xfd"))
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Equal(t, 0, store.saves)
}

func TestFileServiceUploadRequiresOwner(t *testing.T) {
	svc, _ := newFileFixture(t, 1024)
	_, err := svc.Upload("", "notes.md", 1, strings.NewReader("x"))
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestFileServiceUpdateAndClear(t *testing.T) {
	svc, _ := newFileFixture(t, 1024)

	_, err := svc.Update("u1", "notes.md", "new")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	_, err = svc.Upload("u1", "notes.md", 3, strings.NewReader("old"))
	require.NoError(t, err)
	updated, err := svc.Update("u1", "notes.md", "brand new")
	require.NoError(t, err)
	assert.Equal(t, "brand new", updated.Content)

	require.NoError(t, svc.Clear("u1", "notes.md"))
	_, err = svc.View("u1", "notes.md")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestFileServiceSignedDownload(t *testing.T) {
	svc, _ := newFileFixture(t, 1024)
	_, err := svc.Upload("u1", "notes.md", 3, strings.NewReader("abc"))
	require.NoError(t, err)

	link, err := svc.Link("u1", "notes.md")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(link.URL, "/api/v1/files/download?token="))

	file, err := svc.Download(link.Token)
	require.NoError(t, err)
	assert.Equal(t, "abc", file.Content)

	_, err = svc.Download(link.Token + "x")
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "0 Bytes", FormatSize(0))
	assert.Equal(t, "512 Bytes", FormatSize(512))
	assert.Equal(t, "1.5 KB", FormatSize(1536))
	assert.Equal(t, "5 MB", FormatSize(5*1024*1024))
}

func TestFileType(t *testing.T) {
	assert.Equal(t, "md", FileType("README.MD"))
	assert.Equal(t, "txt", FileType("notes"))
}
