// Package routes provides HTTP route configuration for the presentation layer.
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AtRiskMedia/tractstack-elements/internal/application/container"
	"github.com/AtRiskMedia/tractstack-elements/internal/presentation/http/handlers"
	"github.com/AtRiskMedia/tractstack-elements/internal/presentation/http/middleware"
)

// SetupRoutes configures all HTTP routes and middleware with dependency injection.
func SetupRoutes(container *container.Container) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if gin.Mode() != gin.TestMode {
		r.Use(gin.Logger())
	}

	r.Use(middleware.CORSMiddleware(container.Options.CORSOrigins))

	// Initialize handlers
	healthHandlers := handlers.NewHealthHandlers(container.URLMappingService, container.CacheManager, container.PerfTracker)
	elementHandlers := handlers.NewElementHandlers(container.ElementService, container.URLMappingService, container.Logger, container.PerfTracker)
	transactionHandlers := handlers.NewTransactionHandlers(container.TransactionService, container.PlanningService, container.Logger, container.PerfTracker)
	fileHandlers := handlers.NewFileHandlers(container.FileService, container.Options.MaxUploadSize, container.Logger, container.PerfTracker)
	adminHandlers := handlers.NewAdminHandlers(container.URLMappingService, container.IntegrityService, container.Broadcaster, container.Logger, container.PerfTracker)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")
	{
		api.GET("/health", healthHandlers.GetHealth)

		// Public reads
		api.GET("/urls/resolve", elementHandlers.ResolveURL)
		api.GET("/elements/:id", elementHandlers.GetElement)
		api.GET("/elements/:id/urls", elementHandlers.GetElementURLs)
		api.POST("/slugs/check", elementHandlers.CheckSlugs)

		api.GET("/ws/changes", adminHandlers.ChangeFeed)

		// Author endpoints
		authed := api.Group("")
		authed.Use(middleware.AuthorMiddleware(container.Options.JWTSecret, container.Logger.Auth()))
		{
			authed.GET("/transactions", transactionHandlers.GetRecentTransactions)
			authed.POST("/transactions/validate", transactionHandlers.ValidateTransaction)
			authed.POST("/transactions/apply", transactionHandlers.ApplyTransaction)

			authed.POST("/pages", transactionHandlers.CreatePage)
			authed.POST("/elements/:id/drafts", transactionHandlers.NewDraft)
			authed.POST("/elements/:id/publish", transactionHandlers.Publish)
			authed.POST("/elements/:id/move", transactionHandlers.Move)
			authed.PUT("/elements/:id/fields", transactionHandlers.UpdateField)
			authed.PUT("/elements/:id/slugs", transactionHandlers.SetSlugs)
			authed.DELETE("/elements/:id", transactionHandlers.Delete)

			authed.POST("/files", fileHandlers.UploadFile)

			authed.POST("/admin/url-mapping/rebuild", adminHandlers.RebuildURLMapping)
			authed.GET("/admin/integrity", adminHandlers.GetIntegrity)
		}
	}

	return r
}
