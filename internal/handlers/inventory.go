// internal/handlers/inventory.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/cardswap/cardswap-backend/internal/i18n"
	"github.com/cardswap/cardswap-backend/internal/services"
	"github.com/cardswap/cardswap-backend/internal/utils"
)

type InventoryHandler struct {
	inventoryService *services.InventoryService
}

type PauseRequest struct {
	Paused bool `json:"paused"`
}

func NewInventoryHandler(inventoryService *services.InventoryService) *InventoryHandler {
	return &InventoryHandler{inventoryService: inventoryService}
}

// GET /collection
func (h *InventoryHandler) ListCollection(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	entries, err := h.inventoryService.ListCollection(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, i18n.KeyCollectionMissing)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"collection": entries,
	})
}

// POST /collection
func (h *InventoryHandler) AddCollectionEntry(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req services.CreateCollectionEntryRequest
	if !bindJSON(c, &req) {
		return
	}

	entry, err := h.inventoryService.AddCollectionEntry(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, err, i18n.KeyCardNotFound)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyCollectionUpdated),
		"entry":   entry,
	})
}

// PUT /collection/:id
func (h *InventoryHandler) UpdateCollectionEntry(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	entryID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req services.UpdateCollectionEntryRequest
	if !bindJSON(c, &req) {
		return
	}

	entry, err := h.inventoryService.UpdateCollectionEntry(c.Request.Context(), userID, entryID, &req)
	if err != nil {
		respondError(c, err, i18n.KeyCollectionMissing)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyCollectionUpdated),
		"entry":   entry,
	})
}

// PUT /collection/:id/pause
func (h *InventoryHandler) SetPaused(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	entryID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req PauseRequest
	if !bindJSON(c, &req) {
		return
	}

	entry, err := h.inventoryService.SetPaused(c.Request.Context(), userID, entryID, req.Paused)
	if err != nil {
		respondError(c, err, i18n.KeyCollectionMissing)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyCollectionUpdated),
		"entry":   entry,
	})
}

// DELETE /collection/:id
func (h *InventoryHandler) DeleteCollectionEntry(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	entryID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.inventoryService.DeleteCollectionEntry(c.Request.Context(), userID, entryID); err != nil {
		respondError(c, err, i18n.KeyCollectionMissing)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyCollectionUpdated),
	})
}

// POST /collection/discount
func (h *InventoryHandler) ApplyDiscount(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req services.DiscountRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.inventoryService.ApplyDiscount(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, err, i18n.KeyCollectionMissing)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":    i18n.T(lang, i18n.KeyDiscountApplied, result.Updated),
		"percentage": result.Percentage,
		"updated":    result.Updated,
	})
}

// GET /wishlist
func (h *InventoryHandler) ListWishlist(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	entries, err := h.inventoryService.ListWishlist(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, i18n.KeyWishlistMissing)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"wishlist": entries,
	})
}

// POST /wishlist
func (h *InventoryHandler) AddWishlistEntry(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req services.WishlistEntryRequest
	if !bindJSON(c, &req) {
		return
	}

	entry, err := h.inventoryService.AddWishlistEntry(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, err, i18n.KeyCardNotFound)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyWishlistUpdated),
		"entry":   entry,
	})
}

// PUT /wishlist/:id
func (h *InventoryHandler) UpdateWishlistEntry(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	entryID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req services.WishlistEntryRequest
	if !bindJSON(c, &req) {
		return
	}

	entry, err := h.inventoryService.UpdateWishlistEntry(c.Request.Context(), userID, entryID, &req)
	if err != nil {
		respondError(c, err, i18n.KeyWishlistMissing)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyWishlistUpdated),
		"entry":   entry,
	})
}

// DELETE /wishlist/:id
func (h *InventoryHandler) DeleteWishlistEntry(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	entryID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.inventoryService.DeleteWishlistEntry(c.Request.Context(), userID, entryID); err != nil {
		respondError(c, err, i18n.KeyWishlistMissing)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyWishlistUpdated),
	})
}

// GET /location
func (h *InventoryHandler) GetLocation(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	location, err := h.inventoryService.GetLocation(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, i18n.KeyLocationMissing)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"location": location,
	})
}

// PUT /location
func (h *InventoryHandler) SetLocation(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req services.LocationRequest
	if !bindJSON(c, &req) {
		return
	}

	location, err := h.inventoryService.SetLocation(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, err, i18n.KeyLocationMissing)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":  i18n.T(lang, i18n.KeyLocationUpdated),
		"location": location,
	})
}
