// internal/handlers/notification.go
package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/cardswap/cardswap-backend/internal/i18n"
	"github.com/cardswap/cardswap-backend/internal/services"
	"github.com/cardswap/cardswap-backend/internal/utils"
)

type NotificationHandler struct {
	notificationService *services.NotificationService
}

func NewNotificationHandler(notificationService *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

// GET /notifications
func (h *NotificationHandler) List(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	params := utils.GetPaginationParams(c)
	unreadOnly, _ := strconv.ParseBool(c.DefaultQuery("unread", "false"))

	page, err := h.notificationService.List(c.Request.Context(), userID, unreadOnly, params.Page, params.Limit)
	if err != nil {
		respondError(c, err, i18n.KeyNotificationNotFound)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(page.Notifications, page.Total, utils.PaginationParams{
		Page:  page.Page,
		Limit: page.Limit,
	}))
}

// PUT /notifications/:id/read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.notificationService.MarkRead(c.Request.Context(), userID, id); err != nil {
		respondError(c, err, i18n.KeyNotificationNotFound)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyNotificationRead),
	})
}
