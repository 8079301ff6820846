// internal/handlers/common.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/cardswap/cardswap-backend/internal/i18n"
	"github.com/cardswap/cardswap-backend/internal/services"
	"github.com/cardswap/cardswap-backend/internal/utils"
)

type domainError struct {
	err  error
	code string
	key  string
}

// 400-class domain errors, in the order they are checked.
var badRequestErrors = []domainError{
	{services.ErrNoLocation, "NO_LOCATION", i18n.KeyNoLocation},
	{services.ErrNoInventory, "NO_INVENTORY", i18n.KeyNoInventory},
	{services.ErrEmptyTrade, "EMPTY_TRADE", i18n.KeyTradeEmpty},
	{services.ErrInvalidQuantity, "INVALID_QUANTITY", i18n.KeyInvalidQuantity},
	{services.ErrFinalizedTrade, "FINALIZED_TRADE", i18n.KeyTradeFinalized},
	{services.ErrInvalidState, "INVALID_STATE", i18n.KeyTradeInvalidState},
}

// respondError maps a service error onto the response envelope.
func respondError(c *gin.Context, err error, notFoundKey string) {
	lang := utils.GetLangFromContext(c)

	var verrs validator.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		utils.ValidationErrorResponse(c, utils.GetValidationErrors(verrs))
		return
	case errors.Is(err, services.ErrValidation):
		utils.BadRequestResponse(c, err.Error(), nil)
		return
	case errors.Is(err, services.ErrNotFound):
		utils.NotFoundResponse(c, notFoundKey)
		return
	case errors.Is(err, services.ErrOwnership):
		utils.ForbiddenResponse(c, i18n.T(lang, i18n.KeyOwnership))
		return
	case errors.Is(err, services.ErrLockNotAcquired):
		utils.ConflictResponse(c, i18n.T(lang, i18n.KeyRecomputeBusy))
		return
	}

	for _, de := range badRequestErrors {
		if errors.Is(err, de.err) {
			utils.ErrorResponse(c, http.StatusBadRequest, de.code, i18n.T(lang, de.key), nil)
			return
		}
	}

	userID := c.GetString(utils.ContextKeyUserID)
	logrus.WithError(err).WithFields(logrus.Fields{
		"path":    c.Request.URL.Path,
		"user_id": userID,
	}).Error("Request failed")
	_ = c.Error(err)
	utils.InternalErrorResponse(c, "")
}

// currentUser returns the authenticated caller or writes a 401.
func currentUser(c *gin.Context) (uuid.UUID, bool) {
	userID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return uuid.Nil, false
	}
	return userID, true
}

// pathID parses a uuid route parameter or writes a 400.
func pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		lang := utils.GetLangFromContext(c)
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyInvalidID), gin.H{"param": name})
		return uuid.Nil, false
	}
	return id, true
}

func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		lang := utils.GetLangFromContext(c)
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationFailed), err.Error())
		return false
	}
	return true
}
