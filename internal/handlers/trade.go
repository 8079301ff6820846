// internal/handlers/trade.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/cardswap/cardswap-backend/internal/i18n"
	"github.com/cardswap/cardswap-backend/internal/services"
	"github.com/cardswap/cardswap-backend/internal/utils"
)

type TradeHandler struct {
	tradeService *services.TradeService
}

func NewTradeHandler(tradeService *services.TradeService) *TradeHandler {
	return &TradeHandler{tradeService: tradeService}
}

// PUT /matches/:id/status
func (h *TradeHandler) SetStatus(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	matchID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req services.SetStatusRequest
	if !bindJSON(c, &req) {
		return
	}

	match, err := h.tradeService.SetStatus(c.Request.Context(), matchID, userID, &req)
	if err != nil {
		respondError(c, err, i18n.KeyMatchNotFound)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyMatchStatusUpdated),
		"match":   match,
	})
}

// PUT /matches/:id/cards/:lineId/exclusion
func (h *TradeHandler) SetLineExclusion(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	matchID, ok := pathID(c, "id")
	if !ok {
		return
	}
	lineID, ok := pathID(c, "lineId")
	if !ok {
		return
	}

	var req services.SetExclusionRequest
	if !bindJSON(c, &req) {
		return
	}

	match, err := h.tradeService.SetLineExclusion(c.Request.Context(), matchID, lineID, userID, &req)
	if err != nil {
		respondError(c, err, i18n.KeyLineNotFound)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyMatchCardsUpdated),
		"match":   match,
	})
}

// PUT /matches/:id/exclusions
func (h *TradeHandler) BulkSetExclusions(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	matchID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req services.BulkExclusionRequest
	if !bindJSON(c, &req) {
		return
	}

	match, err := h.tradeService.BulkSetExclusions(c.Request.Context(), matchID, userID, &req)
	if err != nil {
		respondError(c, err, i18n.KeyLineNotFound)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyMatchCardsUpdated),
		"match":   match,
	})
}

// POST /matches/:id/custom-cards
func (h *TradeHandler) AddCustomCard(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	matchID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req services.AddCustomCardRequest
	if !bindJSON(c, &req) {
		return
	}

	match, err := h.tradeService.AddCustomCard(c.Request.Context(), matchID, userID, &req)
	if err != nil {
		respondError(c, err, i18n.KeyMatchNotFound)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyCustomCardAdded),
		"match":   match,
	})
}

// DELETE /matches/:id/custom-cards/:lineId
func (h *TradeHandler) DeleteCustomCard(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	matchID, ok := pathID(c, "id")
	if !ok {
		return
	}
	lineID, ok := pathID(c, "lineId")
	if !ok {
		return
	}

	match, err := h.tradeService.DeleteCustomCard(c.Request.Context(), matchID, lineID, userID)
	if err != nil {
		respondError(c, err, i18n.KeyLineNotFound)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyCustomCardRemoved),
		"match":   match,
	})
}

// POST /matches/:id/request
func (h *TradeHandler) RequestTrade(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	matchID, ok := pathID(c, "id")
	if !ok {
		return
	}

	match, err := h.tradeService.RequestTrade(c.Request.Context(), matchID, userID)
	if err != nil {
		respondError(c, err, i18n.KeyMatchNotFound)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyTradeRequested),
		"match":   match,
	})
}

// DELETE /matches/:id/request
func (h *TradeHandler) CancelRequest(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	matchID, ok := pathID(c, "id")
	if !ok {
		return
	}

	result, err := h.tradeService.CancelRequest(c.Request.Context(), matchID, userID)
	if err != nil {
		respondError(c, err, i18n.KeyMatchNotFound)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":   i18n.T(lang, i18n.KeyTradeRequestCleared),
		"withdrawn": result.Withdrawn,
		"match":     result.Match,
	})
}

// POST /matches/:id/confirm
func (h *TradeHandler) ConfirmTrade(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	matchID, ok := pathID(c, "id")
	if !ok {
		return
	}

	match, err := h.tradeService.ConfirmTrade(c.Request.Context(), matchID, userID)
	if err != nil {
		respondError(c, err, i18n.KeyMatchNotFound)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyTradeConfirmed),
		"match":   match,
	})
}

// POST /matches/:id/complete
func (h *TradeHandler) MarkCompleted(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	matchID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req services.MarkCompletedRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.tradeService.MarkCompleted(c.Request.Context(), matchID, userID, &req)
	if err != nil {
		respondError(c, err, i18n.KeyMatchNotFound)
		return
	}

	key := i18n.KeyTradeWaiting
	switch result.FinalStatus {
	case "completed":
		key = i18n.KeyTradeCompleted
	case "cancelled":
		key = i18n.KeyTradeCancelled
	}

	utils.SuccessResponse(c, gin.H{
		"message":           i18n.T(lang, key),
		"final_status":      result.FinalStatus,
		"has_conflict":      result.HasConflict,
		"waiting_for_other": result.WaitingForOther,
		"match":             result.Match,
	})
}
