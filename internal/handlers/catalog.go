// internal/handlers/catalog.go
package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/cardswap/cardswap-backend/internal/i18n"
	"github.com/cardswap/cardswap-backend/internal/services"
	"github.com/cardswap/cardswap-backend/internal/utils"
)

type CatalogHandler struct {
	catalogService *services.CatalogService
}

func NewCatalogHandler(catalogService *services.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalogService: catalogService}
}

// GET /catalog/search?q=
func (h *CatalogHandler) Search(c *gin.Context) {
	query := c.Query("q")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	cards, err := h.catalogService.Search(c.Request.Context(), query, limit)
	if err != nil {
		respondError(c, err, i18n.KeyCardNotFound)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"query": query,
		"cards": cards,
	})
}
