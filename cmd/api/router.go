package main

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bookchain-backend/internal/shared"
	"bookchain-backend/internal/shared/middleware"
	"bookchain-backend/pkg/container"
)

// SetupRouter wires every endpoint. Settlement state changes flow through
// the purchase and catalog services; confirmation normally arrives via the
// worker's sweeps, with admin endpoints as the manual escape hatch.
func SetupRouter(c *container.Container) *gin.Engine {
	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())

	v1 := router.Group("/api/v1")

	// Health
	v1.GET("/health", func(ctx *gin.Context) {
		if err := c.DB.HealthCheck(ctx.Request.Context()); err != nil {
			ctx.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": err.Error()})
			return
		}
		ctx.JSON(http.StatusOK, gin.H{"status": "ok", "version": c.Config.App.Version})
	})

	// Identity
	auth := v1.Group("/auth")
	{
		auth.POST("/register", c.UserHandler.Register)
		auth.POST("/login", c.UserHandler.Login)
	}

	authed := v1.Group("")
	authed.Use(middleware.AuthMiddleware(c.JWTManager))
	{
		authed.GET("/users/me", c.UserHandler.Me)

		// Purchases
		authed.POST("/purchases", c.PurchaseHandler.InitiatePurchase)
		authed.GET("/purchases", c.PurchaseHandler.ListMine)

		// Royalties
		authed.GET("/royalties", c.RoyaltyHandler.ListMine)
		authed.GET("/royalties/earnings", c.RoyaltyHandler.Earnings)

		// Content
		authed.GET("/books/:book_id/content", c.BlobHandler.DownloadContent)
	}

	// Catalog reads are public
	v1.GET("/books", c.CatalogHandler.ListBooks)
	v1.GET("/books/:book_id", c.CatalogHandler.GetBook)
	v1.GET("/books/:book_id/cover", c.BlobHandler.DownloadCover)

	// Listing management needs a listing-capable role
	listing := v1.Group("")
	listing.Use(middleware.AuthMiddleware(c.JWTManager))
	listing.Use(middleware.RequireRoles(shared.RoleAuthor, shared.RoleSeller, shared.RoleAdmin))
	{
		listing.POST("/blobs", c.BlobHandler.Upload)
		listing.POST("/books", c.CatalogHandler.CreateListing)
		listing.PUT("/books/:book_id/price", c.CatalogHandler.UpdatePrice)
		listing.DELETE("/books/:book_id", c.CatalogHandler.Deactivate)
	}

	// Operator endpoints
	admin := v1.Group("/admin")
	admin.Use(middleware.AuthMiddleware(c.JWTManager))
	admin.Use(middleware.RequireRoles(shared.RoleAdmin))
	{
		admin.GET("/sync/status", c.SyncHandler.Status)
		admin.POST("/sync/sweep", c.SyncHandler.TriggerSweep)
		admin.POST("/purchases/confirm", c.PurchaseHandler.ConfirmPurchase)
		admin.GET("/blobs/eviction-candidates", c.BlobHandler.EvictionCandidates)
	}

	return router
}
