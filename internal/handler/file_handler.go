package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/etp-gateway/internal/middleware"
	"github.com/noah-isme/etp-gateway/internal/models"
	appErrors "github.com/noah-isme/etp-gateway/pkg/errors"
	"github.com/noah-isme/etp-gateway/pkg/response"
)

type fileService interface {
	Upload(owner, name string, size int64, r io.Reader) (*models.StoredFile, error)
	View(owner, name string) (*models.StoredFile, error)
	Update(owner, name, content string) (*models.StoredFile, error)
	Clear(owner, name string) error
	Link(owner, name string) (*models.FileLink, error)
	Download(token string) (*models.StoredFile, error)
}

type fileUpdateRequest struct {
	Content *string `json:"content" validate:"required"`
}

// FileHandler exposes the text file viewer and editor.
type FileHandler struct {
	service   fileService
	validator *validator.Validate
	maxBytes  int64
}

// NewFileHandler constructs the handler. maxBytes bounds the multipart body.
func NewFileHandler(svc fileService, validate *validator.Validate, maxBytes int64) *FileHandler {
	if validate == nil {
		validate = validator.New()
	}
	return &FileHandler{service: svc, validator: validate, maxBytes: maxBytes}
}

// Upload godoc
// @Summary Upload a text file
// @Tags Files
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Text file"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 413 {object} response.Envelope
// @Router /files [post]
func (h *FileHandler) Upload(c *gin.Context) {
	if h.maxBytes > 0 {
		// multipart framing needs headroom over the file itself
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes+64*1024)
	}
	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(c, appErrors.ErrFileTooLarge)
			return
		}
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file is required"))
		return
	}
	if h.maxBytes > 0 && header.Size > h.maxBytes {
		response.Error(c, appErrors.ErrFileTooLarge)
		return
	}

	file, err := header.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "failed to open upload"))
		return
	}
	defer file.Close() //nolint:errcheck

	stored, err := h.service.Upload(middleware.IdentityFromContext(c), header.Filename, header.Size, file)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, stored)
}

// View godoc
// @Summary View a file
// @Tags Files
// @Produce json
// @Param name path string true "File name"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /files/{name} [get]
func (h *FileHandler) View(c *gin.Context) {
	stored, err := h.service.View(middleware.IdentityFromContext(c), c.Param("name"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stored)
}

// Update godoc
// @Summary Save edited content
// @Tags Files
// @Accept json
// @Produce json
// @Param name path string true "File name"
// @Param payload body fileUpdateRequest true "New content"
// @Success 200 {object} response.Envelope
// @Failure 413 {object} response.Envelope
// @Router /files/{name} [put]
func (h *FileHandler) Update(c *gin.Context) {
	var req fileUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "content is required"))
		return
	}
	stored, err := h.service.Update(middleware.IdentityFromContext(c), c.Param("name"), *req.Content)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stored)
}

// Clear godoc
// @Summary Remove a file
// @Tags Files
// @Param name path string true "File name"
// @Success 204
// @Router /files/{name} [delete]
func (h *FileHandler) Clear(c *gin.Context) {
	if err := h.service.Clear(middleware.IdentityFromContext(c), c.Param("name")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Link godoc
// @Summary Create a signed download link
// @Tags Files
// @Produce json
// @Param name path string true "File name"
// @Success 200 {object} response.Envelope
// @Router /files/{name}/link [post]
func (h *FileHandler) Link(c *gin.Context) {
	link, err := h.service.Link(middleware.IdentityFromContext(c), c.Param("name"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, link)
}

// Download godoc
// @Summary Download through a signed link
// @Tags Files
// @Produce octet-stream
// @Param token query string true "Signed token"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Router /files/download [get]
func (h *FileHandler) Download(c *gin.Context) {
	stored, err := h.service.Download(c.Query("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, stored.Name, "text/plain; charset=utf-8", []byte(stored.Content))
}
