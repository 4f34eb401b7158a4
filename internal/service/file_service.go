package service

import (
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/noah-isme/etp-gateway/internal/models"
	appErrors "github.com/noah-isme/etp-gateway/pkg/errors"
	"github.com/noah-isme/etp-gateway/pkg/storage"
)

type fileStorage interface {
	Save(owner, name string, data []byte) (storage.Info, error)
	Read(owner, name string) ([]byte, storage.Info, error)
	Stat(owner, name string) (storage.Info, error)
	Delete(owner, name string) error
}

type linkSigner interface {
	Generate(owner, name string) (string, time.Time, error)
	Parse(token string, allowExpired bool) (owner, name string, expiresAt time.Time, err error)
}

// FileConfig tunes the file utility.
type FileConfig struct {
	MaxSizeBytes int64
	APIPrefix    string
}

// FileService backs the text file viewer and editor.
type FileService struct {
	storage fileStorage
	signer  linkSigner
	cfg     FileConfig
	logger  *zap.Logger
}

// NewFileService constructs a FileService.
func NewFileService(store fileStorage, signer linkSigner, cfg FileConfig, logger *zap.Logger) *FileService {
	if cfg.MaxSizeBytes <= 0 {
		cfg.MaxSizeBytes = 5 * 1024 * 1024
	}
	if cfg.APIPrefix == "" {
		cfg.APIPrefix = "/api/v1"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileService{storage: store, signer: signer, cfg: cfg, logger: logger}
}

// Upload stores a text file for owner. The declared size is checked before
// anything is read or written.
func (s *FileService) Upload(owner, name string, size int64, r io.Reader) (*models.StoredFile, error) {
	if owner == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "please sign in")
	}
	if size > s.cfg.MaxSizeBytes {
		return nil, s.tooLarge()
	}
	data, err := io.ReadAll(io.LimitReader(r, s.cfg.MaxSizeBytes+1))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "failed to read upload")
	}
	return s.write(owner, name, data)
}

// View returns the file with its content.
func (s *FileService) View(owner, name string) (*models.StoredFile, error) {
	data, info, err := s.storage.Read(owner, name)
	if err != nil {
		return nil, s.storageError(err)
	}
	file := describe(info)
	file.Content = string(data)
	return file, nil
}

// Update replaces the content of an existing file.
func (s *FileService) Update(owner, name, content string) (*models.StoredFile, error) {
	if _, err := s.storage.Stat(owner, name); err != nil {
		return nil, s.storageError(err)
	}
	return s.write(owner, name, []byte(content))
}

// Clear removes the file.
func (s *FileService) Clear(owner, name string) error {
	if err := s.storage.Delete(owner, name); err != nil {
		return s.storageError(err)
	}
	return nil
}

// Link issues a signed, expiring download link for the file.
func (s *FileService) Link(owner, name string) (*models.FileLink, error) {
	if _, err := s.storage.Stat(owner, name); err != nil {
		return nil, s.storageError(err)
	}
	token, expiresAt, err := s.signer.Generate(owner, name)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign link")
	}
	url := fmt.Sprintf("%s/files/download?token=%s", strings.TrimRight(s.cfg.APIPrefix, "/"), token)
	return &models.FileLink{URL: url, Token: token, ExpiresAt: expiresAt}, nil
}

// Download resolves a signed token into the file it grants.
func (s *FileService) Download(token string) (*models.StoredFile, error) {
	owner, name, _, err := s.signer.Parse(token, false)
	if err != nil {
		if errors.Is(err, storage.ErrTokenExpired) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "download link expired")
		}
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid download link")
	}
	return s.View(owner, name)
}

func (s *FileService) write(owner, name string, data []byte) (*models.StoredFile, error) {
	if int64(len(data)) > s.cfg.MaxSizeBytes {
		return nil, s.tooLarge()
	}
	if !utf8.Valid(data) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "only text files are supported")
	}
	info, err := s.storage.Save(owner, name, data)
	if err != nil {
		return nil, s.storageError(err)
	}
	s.logger.Debug("file stored", zap.String("owner", owner), zap.String("name", name), zap.Int64("size", info.Size))
	file := describe(info)
	file.Content = string(data)
	return file, nil
}

func (s *FileService) tooLarge() error {
	return appErrors.Clone(appErrors.ErrFileTooLarge, fmt.Sprintf("file size cannot exceed %s", FormatSize(s.cfg.MaxSizeBytes)))
}

func (s *FileService) storageError(err error) error {
	switch {
	case errors.Is(err, storage.ErrNotExist):
		return appErrors.Clone(appErrors.ErrNotFound, "file not found")
	case errors.Is(err, storage.ErrInvalidName):
		return appErrors.Clone(appErrors.ErrValidation, "invalid file name")
	default:
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "file storage failed")
	}
}

func describe(info storage.Info) *models.StoredFile {
	return &models.StoredFile{
		Name:      info.Name,
		Type:      FileType(info.Name),
		Size:      info.Size,
		SizeLabel: FormatSize(info.Size),
		UpdatedAt: info.UpdatedAt,
	}
}

// FileType derives the display type from the file extension.
func FileType(name string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	if ext == "" {
		return "txt"
	}
	return ext
}

// FormatSize renders bytes with up to two decimals, e.g. "1.5 KB".
func FormatSize(bytes int64) string {
	if bytes <= 0 {
		return "0 Bytes"
	}
	units := []string{"Bytes", "KB", "MB", "GB"}
	i := int(math.Floor(math.Log(float64(bytes)) / math.Log(1024)))
	if i >= len(units) {
		i = len(units) - 1
	}
	value := math.Round(float64(bytes)/math.Pow(1024, float64(i))*100) / 100
	return strconv.FormatFloat(value, 'f', -1, 64) + " " + units[i]
}
