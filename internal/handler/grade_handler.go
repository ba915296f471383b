package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sims-enrollment-api/internal/models"
	"github.com/noah-isme/sims-enrollment-api/internal/service"
	appErrors "github.com/noah-isme/sims-enrollment-api/pkg/errors"
	"github.com/noah-isme/sims-enrollment-api/pkg/response"
)

type gradeSubmitter interface {
	SubmitGrades(ctx context.Context, req service.SubmitGradesRequest) (*models.GradeSubmissionResult, error)
}

// GradeHandler exposes grade entry.
type GradeHandler struct {
	grades gradeSubmitter
}

// NewGradeHandler constructs GradeHandler.
func NewGradeHandler(grades gradeSubmitter) *GradeHandler {
	return &GradeHandler{grades: grades}
}

// Submit godoc
// @Summary Submit grades for a course
// @Description Entries for enrollments outside the caller's sections are ignored.
// @Tags Grades
// @Accept json
// @Produce json
// @Param payload body service.SubmitGradesRequest true "Grade sheet"
// @Success 200 {object} response.Envelope
// @Router /grades [post]
func (h *GradeHandler) Submit(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if claims.FacultyID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "grade entry requires a faculty profile"))
		return
	}

	var req service.SubmitGradesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.FacultyID = claims.FacultyID

	result, err := h.grades.SubmitGrades(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
