package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sims-enrollment-api/internal/models"
	"github.com/noah-isme/sims-enrollment-api/internal/service"
	"github.com/noah-isme/sims-enrollment-api/pkg/response"
)

type deletionPolicy interface {
	Decide(ctx context.Context, kind models.DeletionKind, id string) (*models.DeletionDecision, error)
}

// DeletionHandler reports how a record may be deleted.
type DeletionHandler struct {
	policy deletionPolicy
}

// NewDeletionHandler constructs DeletionHandler.
func NewDeletionHandler(policy deletionPolicy) *DeletionHandler {
	return &DeletionHandler{policy: policy}
}

// Check godoc
// @Summary Deletion check
// @Description Returns HARD_DELETE or SOFT_DELETE with the dependents that block removal.
// @Tags Admin
// @Produce json
// @Param kind path string true "students, faculties, courses or sections"
// @Param id path string true "Record ID"
// @Success 200 {object} response.Envelope
// @Router /admin/{kind}/{id}/deletion-check [get]
func (h *DeletionHandler) Check(c *gin.Context) {
	kind, err := service.ParseDeletionKind(c.Param("kind"))
	if err != nil {
		response.Error(c, err)
		return
	}
	decision, err := h.policy.Decide(c.Request.Context(), kind, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, decision, nil)
}
