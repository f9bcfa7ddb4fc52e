// internal/interfaces/http/routes/routes.go
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/cinema-backend/internal/config"
	"github.com/your-org/cinema-backend/internal/domain/movie"
	"github.com/your-org/cinema-backend/internal/interfaces/http/handlers"
	"github.com/your-org/cinema-backend/internal/interfaces/http/middleware"
	"github.com/your-org/cinema-backend/internal/pkg/auth"
)

// Services are the domain services the API exposes
type Services struct {
	Accounts     handlers.AccountService
	UserAdmin    handlers.UserAdminService
	Profiles     handlers.ProfileService
	Movies       handlers.MovieService
	Metadata     handlers.MetadataService
	Interactions handlers.InteractionService
	Favorites    handlers.FavoriteService
	Cart         handlers.CartService
	Orders       handlers.OrderService
	Invoices     handlers.InvoiceOrders
	Receipts     handlers.ReceiptRenderer
	Payments     handlers.PaymentService
	Analytics    handlers.AnalyticsService
}

// SetupRoutes registers every API route under rg
func SetupRoutes(rg *gin.RouterGroup, cfg *config.Config, logger *logrus.Logger, svc *Services) {
	SetupAccountRoutes(rg, cfg, logger, svc)
	SetupCatalogRoutes(rg, cfg, logger, svc)
	SetupSocialRoutes(rg, cfg, logger, svc)
	SetupShoppingRoutes(rg, cfg, logger, svc)
	SetupPaymentRoutes(rg, cfg, logger, svc)
	SetupAdminRoutes(rg, cfg, logger, svc)
}

// SetupAccountRoutes sets up account and profile routes
func SetupAccountRoutes(rg *gin.RouterGroup, cfg *config.Config, logger *logrus.Logger, svc *Services) {
	authHandler := handlers.NewAuthHandler(svc.Accounts, logger)
	adminHandler := handlers.NewUserAdminHandler(svc.UserAdmin, cfg, logger)
	profileHandler := handlers.NewProfileHandler(svc.Profiles, logger)

	accounts := rg.Group("/accounts")
	{
		// Public account endpoints
		accounts.POST("/register", authHandler.Register)
		accounts.POST("/activate", authHandler.Activate)
		accounts.POST("/login", authHandler.Login)
		accounts.POST("/refresh", authHandler.RefreshToken)
		accounts.POST("/logout", authHandler.Logout)
		accounts.POST("/password-reset/request", authHandler.RequestPasswordReset)
		accounts.POST("/password-reset/complete", authHandler.CompletePasswordReset)

		protected := accounts.Group("")
		protected.Use(middleware.AuthMiddleware(cfg))
		{
			protected.GET("/me", authHandler.Me)
			protected.PUT("/change-password", authHandler.ChangePassword)
		}

		admin := accounts.Group("")
		admin.Use(middleware.AuthMiddleware(cfg), middleware.RequirePermission(auth.ActionManageUsers))
		{
			admin.POST("/:id/activate", adminHandler.ActivateUser)
			admin.POST("/:id/change-group", adminHandler.ChangeGroup)
		}
	}

	profiles := rg.Group("/profiles/users")
	{
		profiles.GET("/:user_id", profileHandler.GetProfile)
		profiles.POST("/:user_id", middleware.AuthMiddleware(cfg), profileHandler.CreateProfile)
	}
}

// SetupCatalogRoutes sets up movie and metadata routes
func SetupCatalogRoutes(rg *gin.RouterGroup, cfg *config.Config, logger *logrus.Logger, svc *Services) {
	movieHandler := handlers.NewMovieHandler(svc.Movies, cfg, logger)
	authRequired := middleware.AuthMiddleware(cfg)

	movies := rg.Group("/movies")
	{
		movies.GET("", movieHandler.ListMovies)
		movies.GET("/purchased", authRequired, movieHandler.PurchasedMovies)
		movies.GET("/:id", movieHandler.GetMovie)

		manage := movies.Group("")
		manage.Use(authRequired, middleware.RequirePermission(auth.ActionManageCatalog))
		{
			manage.POST("", movieHandler.CreateMovie)
			manage.PUT("/:id", movieHandler.UpdateMovie)
			manage.DELETE("/:id", movieHandler.DeleteMovie)
		}
	}

	metadata := map[string]movie.Kind{
		"/genres":         movie.KindGenre,
		"/stars":          movie.KindStar,
		"/directors":      movie.KindDirector,
		"/certifications": movie.KindCertification,
	}
	for path, kind := range metadata {
		h := handlers.NewMetadataHandler(svc.Metadata, kind, logger)

		group := rg.Group(path)
		group.GET("", h.List)

		// the service answers non-admins with its own 403 message
		manage := group.Group("")
		manage.Use(authRequired)
		{
			manage.POST("", h.Create)
			manage.PUT("/:id", h.Update)
			manage.DELETE("/:id", h.Delete)
		}
	}
}

// SetupSocialRoutes sets up likes, ratings, comments and favorites
func SetupSocialRoutes(rg *gin.RouterGroup, cfg *config.Config, logger *logrus.Logger, svc *Services) {
	interactionHandler := handlers.NewInteractionHandler(svc.Interactions, logger)
	favoriteHandler := handlers.NewFavoriteHandler(svc.Favorites, cfg, logger)
	authRequired := middleware.AuthMiddleware(cfg)

	rg.GET("/movies/:id/comments", middleware.OptionalAuthMiddleware(cfg), interactionHandler.ListComments)

	movies := rg.Group("/movies/:id")
	movies.Use(authRequired)
	{
		movies.POST("/like", interactionHandler.SetLike)
		movies.DELETE("/like", interactionHandler.RemoveLike)
		movies.POST("/rating", interactionHandler.Rate)
		movies.POST("/comments", interactionHandler.AddComment)

		movies.GET("/favorite", favoriteHandler.CheckFavorite)
		movies.POST("/favorite", favoriteHandler.AddFavorite)
		movies.DELETE("/favorite", favoriteHandler.RemoveFavorite)
	}

	comments := rg.Group("/comments/:id")
	comments.Use(authRequired)
	{
		comments.DELETE("", interactionHandler.DeleteComment)
		comments.POST("/like", interactionHandler.LikeComment)
		comments.DELETE("/like", interactionHandler.UnlikeComment)
	}

	rg.GET("/favorites", authRequired, favoriteHandler.GetFavorites)
}

// SetupShoppingRoutes sets up cart, order and receipt routes
func SetupShoppingRoutes(rg *gin.RouterGroup, cfg *config.Config, logger *logrus.Logger, svc *Services) {
	cartHandler := handlers.NewCartHandler(svc.Cart, logger)
	orderHandler := handlers.NewOrderHandler(svc.Orders, cfg, logger)
	invoiceHandler := handlers.NewInvoiceHandler(svc.Invoices, svc.Receipts, logger)

	cart := rg.Group("/cart")
	cart.Use(middleware.AuthMiddleware(cfg))
	{
		cart.GET("", cartHandler.GetCart)
		cart.POST("/items", cartHandler.AddToCart)
		cart.DELETE("/items/:id", cartHandler.RemoveFromCart)
		cart.DELETE("", cartHandler.ClearCart)
	}

	orders := rg.Group("/orders")
	orders.Use(middleware.AuthMiddleware(cfg))
	{
		orders.POST("", orderHandler.CreateOrder)
		orders.GET("", orderHandler.GetOrders)
		orders.GET("/:id", orderHandler.GetOrder)
		orders.POST("/:id/cancel", orderHandler.CancelOrder)
		orders.DELETE("/:id", orderHandler.DeleteOrder)
		orders.GET("/:id/invoice", invoiceHandler.GenerateInvoice)
		orders.GET("/:id/invoice/data", invoiceHandler.GetInvoiceData)
	}
}

// SetupPaymentRoutes sets up checkout, webhook and refund routes
func SetupPaymentRoutes(rg *gin.RouterGroup, cfg *config.Config, logger *logrus.Logger, svc *Services) {
	paymentHandler := handlers.NewPaymentHandler(svc.Payments, logger)

	payments := rg.Group("/payments")
	{
		// Called by the gateway and the browser returning from checkout
		payments.POST("/webhook", paymentHandler.Webhook)
		payments.GET("/success", paymentHandler.Success)

		protected := payments.Group("")
		protected.Use(middleware.AuthMiddleware(cfg))
		{
			protected.GET("/pay", paymentHandler.Pay)
			protected.GET("/cancel", paymentHandler.Cancel)
			protected.POST("/refund/:order_id", paymentHandler.Refund)
			protected.GET("/history", paymentHandler.History)
		}
	}
}

// SetupAdminRoutes sets up admin related routes
func SetupAdminRoutes(rg *gin.RouterGroup, cfg *config.Config, logger *logrus.Logger, svc *Services) {
	adminHandler := handlers.NewUserAdminHandler(svc.UserAdmin, cfg, logger)
	analyticsHandler := handlers.NewAnalyticsHandler(svc.Analytics, logger)

	admin := rg.Group("/admin")
	admin.Use(middleware.AuthMiddleware(cfg))
	{
		users := admin.Group("/users")
		users.Use(middleware.RequirePermission(auth.ActionManageUsers))
		{
			users.GET("", adminHandler.ListUsers)
			users.GET("/export", adminHandler.ExportUsers)
		}

		analytics := admin.Group("/analytics")
		analytics.Use(middleware.RequirePermission(auth.ActionViewAnalytics))
		{
			analytics.GET("/dashboard", analyticsHandler.GetDashboard)
			analytics.GET("/sales", analyticsHandler.GetSalesAnalytics)
		}
	}
}
