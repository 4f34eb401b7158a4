package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/etp-gateway/internal/middleware"
	"github.com/noah-isme/etp-gateway/pkg/response"
)

// EnrollmentHandler handles enrollment removal.
type EnrollmentHandler struct {
	enrollments enrollmentService
}

// NewEnrollmentHandler constructs the handler.
func NewEnrollmentHandler(enrollments enrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollments: enrollments}
}

// Delete godoc
// @Summary Unenroll
// @Description Returns the remaining enrollments. On failure the unchanged list accompanies the error
// @Tags Enrollments
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /enrollments/{id} [delete]
func (h *EnrollmentHandler) Delete(c *gin.Context) {
	remaining, err := h.enrollments.Unenroll(c.Request.Context(), middleware.IdentityFromContext(c), c.Param("id"))
	if err != nil {
		response.ErrorWithData(c, err, remaining)
		return
	}
	response.JSON(c, http.StatusOK, remaining)
}
