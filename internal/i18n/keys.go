// internal/i18n/keys.go
package i18n

// Translation keys constants
const (
	// Common
	KeySuccess          = "success"
	KeyError            = "error"
	KeyValidationFailed = "validation.failed"
	KeyInvalidID        = "validation.invalid_id"
	KeyRateLimited      = "rate_limited"
	KeyInternalError    = "internal_error"

	// Authentication
	KeyAuthRequired     = "auth.required"
	KeyAuthInvalidToken = "auth.invalid_token"
	KeyAuthTokenExpired = "auth.token_expired"

	// Matches
	KeyMatchesComputed      = "match.computed"
	KeyMatchNotFound        = "match.not_found"
	KeyMatchRecalculated    = "match.recalculated"
	KeyMatchCustomPreserved = "match.custom_cards_preserved"
	KeyMatchNoMatches       = "match.no_matches"
	KeyMatchStatusUpdated   = "match.status_updated"
	KeyMatchCardsUpdated    = "match.cards_updated"
	KeyNoLocation           = "match.no_location"
	KeyNoInventory          = "match.no_inventory"
	KeyRecomputeBusy        = "match.recompute_busy"
	KeyLineNotFound         = "match.line_not_found"

	// Trade lifecycle
	KeyTradeRequested      = "trade.requested"
	KeyTradeRequestCleared = "trade.request_cleared"
	KeyTradeConfirmed      = "trade.confirmed"
	KeyTradeWaiting        = "trade.waiting_for_other"
	KeyTradeCompleted      = "trade.completed"
	KeyTradeCancelled      = "trade.cancelled"
	KeyTradeInvalidState   = "trade.invalid_state"
	KeyTradeEmpty          = "trade.empty"
	KeyTradeFinalized      = "trade.finalized"
	KeyInvalidQuantity     = "trade.invalid_quantity"
	KeyOwnership           = "trade.ownership"
	KeyCustomCardAdded     = "trade.custom_card_added"
	KeyCustomCardRemoved   = "trade.custom_card_removed"

	// Inventory
	KeyCollectionUpdated = "inventory.collection_updated"
	KeyWishlistUpdated   = "inventory.wishlist_updated"
	KeyLocationUpdated   = "inventory.location_updated"
	KeyDiscountApplied   = "inventory.discount_applied"
	KeyCardNotFound      = "inventory.card_not_found"
	KeyCollectionMissing = "inventory.collection_not_found"
	KeyWishlistMissing   = "inventory.wishlist_not_found"
	KeyLocationMissing   = "inventory.location_not_found"

	// Users
	KeyUserNotFound   = "user.not_found"
	KeyProfileUpdated = "user.profile_updated"

	// Notifications sent to users
	KeyNotifyTradeRequestedTitle     = "notify.trade_requested.title"
	KeyNotifyTradeRequestedMessage   = "notify.trade_requested.message"
	KeyNotifyRequestWithdrawnTitle   = "notify.request_withdrawn.title"
	KeyNotifyRequestWithdrawnMessage = "notify.request_withdrawn.message"
	KeyNotifyRequestRejectedTitle    = "notify.request_rejected.title"
	KeyNotifyRequestRejectedMessage  = "notify.request_rejected.message"
	KeyNotifyInvalidatedTitle        = "notify.request_invalidated.title"
	KeyNotifyInvalidatedMessage      = "notify.request_invalidated.message"
	KeyNotifyConfirmedTitle          = "notify.trade_confirmed.title"
	KeyNotifyConfirmedMessage        = "notify.trade_confirmed.message"
	KeyNotifyCompletionTitle         = "notify.completion_reported.title"
	KeyNotifyCompletionMessage       = "notify.completion_reported.message"
	KeyNotifyCompletedTitle          = "notify.trade_completed.title"
	KeyNotifyCompletedMessage        = "notify.trade_completed.message"
	KeyNotifyCancelledTitle          = "notify.trade_cancelled.title"
	KeyNotifyCancelledMessage        = "notify.trade_cancelled.message"
	KeyNotifyCustomCardTitle         = "notify.custom_card_added.title"
	KeyNotifyCustomCardMessage       = "notify.custom_card_added.message"
	KeyNotificationRead              = "notification.read"
	KeyNotificationNotFound          = "notification.not_found"
)
