package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sims-enrollment-api/internal/models"
	"github.com/noah-isme/sims-enrollment-api/internal/service"
	appErrors "github.com/noah-isme/sims-enrollment-api/pkg/errors"
	"github.com/noah-isme/sims-enrollment-api/pkg/response"
)

type enrollmentService interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, *models.Pagination, error)
	Assign(ctx context.Context, req service.AssignStudentsRequest) (*models.AssignmentResult, error)
	BulkAssign(ctx context.Context, req service.BulkAssignRequest) (*models.AssignmentResult, error)
	RegisterRetake(ctx context.Context, failedID string, req service.RetakeRequest) (*models.Enrollment, error)
	Remove(ctx context.Context, id string) error
	Transcript(ctx context.Context, studentID string) (*models.Transcript, error)
}

// EnrollmentHandler exposes enrollment endpoints.
type EnrollmentHandler struct {
	enrollments enrollmentService
}

// NewEnrollmentHandler constructs EnrollmentHandler.
func NewEnrollmentHandler(enrollments enrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollments: enrollments}
}

// List godoc
// @Summary List enrollments
// @Tags Enrollments
// @Produce json
// @Param semester query string false "Semester"
// @Param academicYear query string false "Academic year"
// @Param courseId query string false "Filter by course"
// @Param sectionId query string false "Filter by section"
// @Param studentId query string false "Filter by student"
// @Param status query string false "Filter by status"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /enrollments [get]
func (h *EnrollmentHandler) List(c *gin.Context) {
	filter := models.EnrollmentFilter{
		Semester:     c.Query("semester"),
		AcademicYear: c.Query("academicYear"),
		CourseID:     c.Query("courseId"),
		SectionID:    c.Query("sectionId"),
		StudentID:    c.Query("studentId"),
		Status:       models.EnrollmentStatus(c.Query("status")),
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	enrollments, pagination, err := h.enrollments.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollments, pagination)
}

// Assign godoc
// @Summary Assign students to a course
// @Description Students already enrolled in the course for the semester are skipped.
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param payload body service.AssignStudentsRequest true "Assignment payload"
// @Success 200 {object} response.Envelope
// @Router /enrollments/assign [post]
func (h *EnrollmentHandler) Assign(c *gin.Context) {
	var req service.AssignStudentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.AssignedBy = actorID(c)
	result, err := h.enrollments.Assign(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// BulkAssign godoc
// @Summary Assign a department to a section
// @Description Assigns every active student of the department, optionally one class, to the section.
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param payload body service.BulkAssignRequest true "Bulk assignment payload"
// @Success 200 {object} response.Envelope
// @Router /enrollments/bulk-assign [post]
func (h *EnrollmentHandler) BulkAssign(c *gin.Context) {
	var req service.BulkAssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.AssignedBy = actorID(c)
	result, err := h.enrollments.BulkAssign(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Retake godoc
// @Summary Register a retake for a failed enrollment
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param id path string true "Failed enrollment ID"
// @Param payload body service.RetakeRequest true "Retake payload"
// @Success 201 {object} response.Envelope
// @Router /enrollments/{id}/retake [post]
func (h *EnrollmentHandler) Retake(c *gin.Context) {
	var req service.RetakeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.AssignedBy = actorID(c)
	enrollment, err := h.enrollments.RegisterRetake(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, enrollment)
}

// Delete godoc
// @Summary Remove an enrollment
// @Description Only enrollments without any recorded score can be removed.
// @Tags Enrollments
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 204
// @Failure 409 {object} response.Envelope
// @Router /enrollments/{id} [delete]
func (h *EnrollmentHandler) Delete(c *gin.Context) {
	if err := h.enrollments.Remove(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Transcript godoc
// @Summary Student transcript
// @Tags Enrollments
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/transcript [get]
func (h *EnrollmentHandler) Transcript(c *gin.Context) {
	transcript, err := h.enrollments.Transcript(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, transcript, nil)
}
