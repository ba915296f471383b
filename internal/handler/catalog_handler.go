package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sims-enrollment-api/internal/service"
	"github.com/noah-isme/sims-enrollment-api/pkg/response"
)

type catalogProvider interface {
	Catalog(ctx context.Context) *service.Catalog
}

// CatalogHandler serves scheduling lookup tables.
type CatalogHandler struct {
	catalog catalogProvider
}

// NewCatalogHandler constructs CatalogHandler.
func NewCatalogHandler(catalog catalogProvider) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// Get godoc
// @Summary Day and period tables
// @Tags Catalog
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /catalog [get]
func (h *CatalogHandler) Get(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.catalog.Catalog(c.Request.Context()), nil)
}
