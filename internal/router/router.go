// internal/router/router.go
package router

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cardswap/cardswap-backend/internal/config"
	"github.com/cardswap/cardswap-backend/internal/handlers"
	"github.com/cardswap/cardswap-backend/internal/middleware"
	"github.com/cardswap/cardswap-backend/internal/outbox"
	"github.com/cardswap/cardswap-backend/internal/services"
	"github.com/cardswap/cardswap-backend/internal/store"
	"github.com/cardswap/cardswap-backend/internal/utils"
)

const version = "1.0.0"

// Services holds everything the HTTP layer and background workers share.
type Services struct {
	Catalog      *services.CatalogService
	Users        *services.UserService
	Inventory    *services.InventoryService
	Matches      *services.MatchService
	Trades       *services.TradeService
	Settlement   *services.SettlementService
	Notification *services.NotificationService
	Dispatcher   *outbox.Dispatcher
}

// NewServices wires the service graph on top of a store. A nil locker means
// recomputes are only serialized by the database.
func NewServices(st store.Store, cfg *config.Config, locker services.Locker) (*Services, error) {
	catalogService, err := services.NewCatalogService(st, cfg.Catalog)
	if err != nil {
		return nil, err
	}
	notificationService := services.NewNotificationService(st, cfg.Notification)
	settlementService := services.NewSettlementService(st)
	matchService := services.NewMatchService(st, catalogService, locker, cfg.Matching)

	return &Services{
		Catalog:      catalogService,
		Users:        services.NewUserService(st),
		Inventory:    services.NewInventoryService(st, catalogService, cfg.Matching),
		Matches:      matchService,
		Trades:       services.NewTradeService(st, catalogService, notificationService, settlementService, cfg.Matching),
		Settlement:   settlementService,
		Notification: notificationService,
		Dispatcher:   outbox.NewDispatcher(st, matchService, cfg.Outbox, Unretryable),
	}, nil
}

// Unretryable reports recompute failures that only the user can fix.
func Unretryable(err error) bool {
	return errors.Is(err, services.ErrNoLocation) || errors.Is(err, services.ErrNoInventory)
}

func Initialize(svc *Services, cfg *config.Config, db handlers.Pinger) *gin.Engine {
	matchHandler := handlers.NewMatchHandler(svc.Matches)
	tradeHandler := handlers.NewTradeHandler(svc.Trades)
	inventoryHandler := handlers.NewInventoryHandler(svc.Inventory)
	catalogHandler := handlers.NewCatalogHandler(svc.Catalog)
	notificationHandler := handlers.NewNotificationHandler(svc.Notification)
	userHandler := handlers.NewUserHandler(svc.Users)
	healthHandler := handlers.NewHealthHandler(db, version)

	utils.SetJWTConfig(cfg.JWT.SecretKey, cfg.JWT.Issuer)

	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.I18nMiddleware())
	r.Use(middleware.RateLimit(cfg.Server.RateLimit, cfg.Server.RateBurst))

	r.GET("/health", healthHandler.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	ensureProfile := middleware.ProfileEnsurerFunc(func(ctx context.Context, id uuid.UUID, username string) error {
		_, err := svc.Users.EnsureUser(ctx, id, username)
		return err
	})

	// API v1 routes
	v1 := r.Group("/v1")
	v1.Use(middleware.AuthRequired(), middleware.EnsureProfile(ensureProfile, 0))
	{
		v1.GET("/me", userHandler.GetProfile)
		v1.PUT("/me", userHandler.UpdateProfile)

		// Matches
		matches := v1.Group("/matches")
		{
			matches.POST("/compute", matchHandler.ComputeMatches)
			matches.GET("", matchHandler.ListMatches)
			matches.GET("/:id", matchHandler.GetMatch)
			matches.POST("/:id/recalculate", matchHandler.RecalculateMatch)
			matches.GET("/:id/counterpart-collection", matchHandler.CounterpartCollection)

			// Trade negotiation
			matches.PUT("/:id/status", tradeHandler.SetStatus)
			matches.PUT("/:id/cards/:lineId/exclusion", tradeHandler.SetLineExclusion)
			matches.PUT("/:id/exclusions", tradeHandler.BulkSetExclusions)
			matches.POST("/:id/custom-cards", tradeHandler.AddCustomCard)
			matches.DELETE("/:id/custom-cards/:lineId", tradeHandler.DeleteCustomCard)

			// Trade lifecycle
			matches.POST("/:id/request", tradeHandler.RequestTrade)
			matches.DELETE("/:id/request", tradeHandler.CancelRequest)
			matches.POST("/:id/confirm", tradeHandler.ConfirmTrade)
			matches.POST("/:id/complete", tradeHandler.MarkCompleted)
		}

		// Inventory
		collection := v1.Group("/collection")
		{
			collection.GET("", inventoryHandler.ListCollection)
			collection.POST("", inventoryHandler.AddCollectionEntry)
			collection.POST("/discount", inventoryHandler.ApplyDiscount)
			collection.PUT("/:id", inventoryHandler.UpdateCollectionEntry)
			collection.PUT("/:id/pause", inventoryHandler.SetPaused)
			collection.DELETE("/:id", inventoryHandler.DeleteCollectionEntry)
		}

		wishlist := v1.Group("/wishlist")
		{
			wishlist.GET("", inventoryHandler.ListWishlist)
			wishlist.POST("", inventoryHandler.AddWishlistEntry)
			wishlist.PUT("/:id", inventoryHandler.UpdateWishlistEntry)
			wishlist.DELETE("/:id", inventoryHandler.DeleteWishlistEntry)
		}

		v1.GET("/location", inventoryHandler.GetLocation)
		v1.PUT("/location", inventoryHandler.SetLocation)

		v1.GET("/catalog/search", catalogHandler.Search)

		notifications := v1.Group("/notifications")
		{
			notifications.GET("", notificationHandler.List)
			notifications.PUT("/:id/read", notificationHandler.MarkRead)
		}
	}

	return r
}
