// internal/handlers/match.go
package handlers

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cardswap/cardswap-backend/internal/i18n"
	"github.com/cardswap/cardswap-backend/internal/models"
	"github.com/cardswap/cardswap-backend/internal/services"
	"github.com/cardswap/cardswap-backend/internal/utils"
)

type MatchHandler struct {
	matchService *services.MatchService
}

func NewMatchHandler(matchService *services.MatchService) *MatchHandler {
	return &MatchHandler{matchService: matchService}
}

// POST /matches/compute
func (h *MatchHandler) ComputeMatches(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	matches, err := h.matchService.ComputeMatches(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, i18n.KeyMatchNotFound)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyMatchesComputed, len(matches)),
		"matches": matches,
		"total":   len(matches),
	})
}

// GET /matches
func (h *MatchHandler) ListMatches(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	params := utils.GetPaginationParams(c)

	req := services.ListMatchesRequest{
		SortBy: params.Sort,
		Page:   params.Page,
		Limit:  params.Limit,
	}
	if status := c.Query("status"); status != "" {
		for _, s := range strings.Split(status, ",") {
			if s = strings.TrimSpace(s); s != "" {
				req.Statuses = append(req.Statuses, models.MatchStatus(s))
			}
		}
	}
	if counts, err := strconv.ParseBool(c.DefaultQuery("counts", "false")); err == nil {
		req.IncludeCounts = counts
	}

	page, err := h.matchService.ListMatches(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, err, i18n.KeyMatchNotFound)
		return
	}

	result := utils.CreatePaginationResult(page.Matches, page.Total, utils.PaginationParams{
		Page:  page.Page,
		Limit: page.Limit,
	})
	utils.SetPaginationHeaders(c, result)

	meta := gin.H{"pagination": result.Meta()}
	if page.Counts != nil {
		meta["counts"] = page.Counts
	}
	utils.SuccessResponseWithMeta(c, page.Matches, meta)
}

// GET /matches/:id
func (h *MatchHandler) GetMatch(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	matchID, ok := pathID(c, "id")
	if !ok {
		return
	}

	match, err := h.matchService.GetMatch(c.Request.Context(), matchID, userID)
	if err != nil {
		respondError(c, err, i18n.KeyMatchNotFound)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"match": match,
	})
}

// POST /matches/:id/recalculate
func (h *MatchHandler) RecalculateMatch(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	matchID, ok := pathID(c, "id")
	if !ok {
		return
	}

	result, err := h.matchService.RecalculateMatch(c.Request.Context(), matchID, userID)
	if err != nil {
		respondError(c, err, i18n.KeyMatchNotFound)
		return
	}

	key := i18n.KeyMatchRecalculated
	switch result.Outcome {
	case services.OutcomeCustomCardsPreserved:
		key = i18n.KeyMatchCustomPreserved
	case services.OutcomeNoMatches:
		key = i18n.KeyMatchNoMatches
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, key),
		"outcome": result.Outcome,
		"match":   result.Match,
	})
}

// GET /matches/:id/counterpart-collection
func (h *MatchHandler) CounterpartCollection(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	matchID, ok := pathID(c, "id")
	if !ok {
		return
	}

	entries, err := h.matchService.CounterpartCollection(c.Request.Context(), matchID, userID)
	if err != nil {
		respondError(c, err, i18n.KeyMatchNotFound)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"collection": entries,
	})
}
