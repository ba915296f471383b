package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sims-enrollment-api/internal/models"
	"github.com/noah-isme/sims-enrollment-api/internal/service"
	appErrors "github.com/noah-isme/sims-enrollment-api/pkg/errors"
	"github.com/noah-isme/sims-enrollment-api/pkg/response"
)

type sectionService interface {
	List(ctx context.Context, filter models.SectionFilter) ([]models.SectionDetail, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.SectionDetail, error)
	Create(ctx context.Context, req service.SectionRequest) (*service.SectionSaveResult, error)
	Update(ctx context.Context, id string, req service.SectionRequest) (*service.SectionSaveResult, error)
	Delete(ctx context.Context, id string) (*service.SectionDeletion, error)
	ListCourseSections(ctx context.Context, courseID, semester, academicYear string) ([]models.SectionDetail, error)
	WeeklySchedule(ctx context.Context, facultyID, semester, academicYear string) (*models.WeeklySchedule, error)
}

type rosterExporter interface {
	ExportRoster(ctx context.Context, sectionID, format string) (*service.ExportFile, error)
}

// SectionHandler exposes section management and timetable endpoints.
type SectionHandler struct {
	sections sectionService
	exporter rosterExporter
}

// NewSectionHandler constructs SectionHandler.
func NewSectionHandler(sections sectionService, exporter rosterExporter) *SectionHandler {
	return &SectionHandler{sections: sections, exporter: exporter}
}

// List godoc
// @Summary List sections
// @Tags Sections
// @Produce json
// @Param semester query string false "Semester"
// @Param academicYear query string false "Academic year"
// @Param courseId query string false "Course ID"
// @Param facultyId query string false "Faculty ID"
// @Param room query string false "Room"
// @Param dayOfWeek query int false "Day of week (2..8)"
// @Param active query bool false "Active flag"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /sections [get]
func (h *SectionHandler) List(c *gin.Context) {
	filter := models.SectionFilter{
		Semester:     c.Query("semester"),
		AcademicYear: c.Query("academicYear"),
		CourseID:     c.Query("courseId"),
		FacultyID:    c.Query("facultyId"),
		Room:         c.Query("room"),
	}
	if raw := c.Query("dayOfWeek"); raw != "" {
		day, err := strconv.Atoi(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "dayOfWeek must be a number"))
			return
		}
		filter.DayOfWeek = day
	}
	if raw := c.Query("active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "active must be true or false"))
			return
		}
		filter.Active = &active
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	sections, pagination, err := h.sections.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sections, pagination)
}

// Create godoc
// @Summary Create section
// @Description Rejects the section when its faculty or room is already booked for an overlapping period.
// @Tags Sections
// @Accept json
// @Produce json
// @Param payload body service.SectionRequest true "Section payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /sections [post]
func (h *SectionHandler) Create(c *gin.Context) {
	var req service.SectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.sections.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Update godoc
// @Summary Update section
// @Tags Sections
// @Accept json
// @Produce json
// @Param id path string true "Section ID"
// @Param payload body service.SectionRequest true "Section payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /sections/{id} [put]
func (h *SectionHandler) Update(c *gin.Context) {
	var req service.SectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.sections.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Delete godoc
// @Summary Delete section
// @Description Sections with enrollments are deactivated instead of removed.
// @Tags Sections
// @Produce json
// @Param id path string true "Section ID"
// @Success 200 {object} response.Envelope
// @Router /sections/{id} [delete]
func (h *SectionHandler) Delete(c *gin.Context) {
	result, err := h.sections.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// CourseSections godoc
// @Summary Active sections of a course
// @Tags Sections
// @Produce json
// @Param id path string true "Course ID"
// @Param semester query string false "Semester (defaults to current)"
// @Param academicYear query string false "Academic year (defaults to current)"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/sections [get]
func (h *SectionHandler) CourseSections(c *gin.Context) {
	sections, err := h.sections.ListCourseSections(c.Request.Context(), c.Param("id"), c.Query("semester"), c.Query("academicYear"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sections, nil)
}

// Roster godoc
// @Summary Export section roster with grades
// @Tags Sections
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Section ID"
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Router /sections/{id}/roster [get]
func (h *SectionHandler) Roster(c *gin.Context) {
	claims := claimsFromContext(c)
	sectionID := c.Param("id")
	if claims != nil && claims.Role == models.RoleFaculty {
		section, err := h.sections.Get(c.Request.Context(), sectionID)
		if err != nil {
			response.Error(c, err)
			return
		}
		if section.FacultyID != claims.FacultyID {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "section is taught by another faculty member"))
			return
		}
	}

	file, err := h.exporter.ExportRoster(c.Request.Context(), sectionID, c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", file.Filename))
	c.Data(http.StatusOK, file.ContentType, file.Data)
}

// WeeklySchedule godoc
// @Summary Faculty weekly timetable
// @Tags Sections
// @Produce json
// @Param id path string true "Faculty ID"
// @Param semester query string false "Semester (defaults to current)"
// @Param academicYear query string false "Academic year (defaults to current)"
// @Success 200 {object} response.Envelope
// @Router /faculties/{id}/weekly-schedule [get]
func (h *SectionHandler) WeeklySchedule(c *gin.Context) {
	claims := claimsFromContext(c)
	facultyID := c.Param("id")
	if claims != nil && claims.Role == models.RoleFaculty && claims.FacultyID != facultyID {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "faculty may only view their own schedule"))
		return
	}
	schedule, err := h.sections.WeeklySchedule(c.Request.Context(), facultyID, c.Query("semester"), c.Query("academicYear"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedule, nil)
}
