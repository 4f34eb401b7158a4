package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/etp-gateway/internal/middleware"
	"github.com/noah-isme/etp-gateway/internal/models"
	"github.com/noah-isme/etp-gateway/internal/service"
	"github.com/noah-isme/etp-gateway/pkg/response"
)

type enrollmentService interface {
	Enroll(ctx context.Context, studentID, courseID string) (*models.Enrollment, error)
	List(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error)
	Unenroll(ctx context.Context, studentID, enrollmentID string) ([]models.EnrollmentDetail, error)
	Export(ctx context.Context, profile models.Profile, format service.ExportFormat) (*service.ExportResult, error)
}

// ProfileView is the profile page payload.
type ProfileView struct {
	State       service.ReconcileState    `json:"state"`
	Profile     *models.Profile           `json:"profile"`
	DisplayName string                    `json:"display_name,omitempty"`
	Enrollments []models.EnrollmentDetail `json:"enrollments"`
}

// ProfileHandler serves the signed-in user's profile page.
type ProfileHandler struct {
	snapshots   snapshotReader
	enrollments enrollmentService
}

// NewProfileHandler constructs the handler.
func NewProfileHandler(snapshots snapshotReader, enrollments enrollmentService) *ProfileHandler {
	return &ProfileHandler{snapshots: snapshots, enrollments: enrollments}
}

// Get godoc
// @Summary Profile with enrollment history
// @Description Returns the reconciled profile as currently known; never waits for reconciliation
// @Tags Profile
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /profile [get]
func (h *ProfileHandler) Get(c *gin.Context) {
	identity := middleware.IdentityFromContext(c)
	snapshot := h.snapshots.Snapshot(identity)

	items, err := h.enrollments.List(c.Request.Context(), identity)
	if err != nil {
		response.Error(c, err)
		return
	}

	view := ProfileView{State: snapshot.State, Profile: snapshot.Profile, Enrollments: items}
	if snapshot.Profile != nil {
		view.DisplayName = snapshot.Profile.DisplayName()
	}
	response.JSON(c, http.StatusOK, view, middleware.ExtractMeta(c))
}

// ExportEnrollments godoc
// @Summary Download enrollment history
// @Tags Profile
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv (default) or pdf"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /profile/enrollments/export [get]
func (h *ProfileHandler) ExportEnrollments(c *gin.Context) {
	format := service.ExportFormat(strings.ToLower(c.DefaultQuery("format", string(service.ExportFormatCSV))))
	snapshot := h.snapshots.Snapshot(middleware.IdentityFromContext(c))

	result, err := h.enrollments.Export(c.Request.Context(), currentProfile(c, snapshot.Profile), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, result.Filename, result.ContentType, result.Data)
}
