package routes

import (
	"quickbite-api/handlers"
	"quickbite-api/middleware"
	"quickbite-api/models"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(r *gin.Engine, h *handlers.Handler) {
	r.GET("/health", h.Health)
	r.GET("/", h.Welcome)

	authRequired := middleware.AuthRequired(h.Tokens)
	customerOnly := middleware.RoleRequired(models.RoleCustomer)
	staff := middleware.RoleRequired(models.RoleRestaurantOwner, models.RoleAdmin)
	ownerOnly := middleware.RoleRequired(models.RoleRestaurantOwner)
	adminOnly := middleware.RoleRequired(models.RoleAdmin)

	api := r.Group("/api")

	// ── Public routes ──────────────────────────────────────────────
	api.GET("/state-machine", h.GetStateMachineInfo)

	// ── Auth ───────────────────────────────────────────────────────
	auth := api.Group("/auth")
	{
		auth.POST("/register", h.Register)
		auth.POST("/login", h.Login)
		auth.GET("/google", h.GoogleLogin)
		auth.GET("/google/callback", h.GoogleCallback)

		auth.GET("/profile", authRequired, h.GetProfile)
		auth.PATCH("/profile", authRequired, h.UpdateProfile)
		auth.DELETE("/profile", authRequired, h.DeleteAccount)
		auth.PATCH("/profile/password", authRequired, h.ChangePassword)
	}

	// ── Restaurants & menus ────────────────────────────────────────
	restaurants := api.Group("/restaurants")
	{
		restaurants.GET("", h.ListRestaurants)
		restaurants.GET("/mine", authRequired, ownerOnly, h.GetMyRestaurants)
		restaurants.GET("/:id", h.GetRestaurant)
		restaurants.GET("/:id/menu", h.GetMenu)
		restaurants.POST("", authRequired, staff, h.CreateRestaurant)
		restaurants.PUT("/:id", authRequired, staff, h.UpdateRestaurant)
		restaurants.DELETE("/:id", authRequired, staff, h.DeleteRestaurant)
	}

	menu := api.Group("/menu", authRequired, staff)
	{
		menu.POST("", h.AddMenuItem)
		menu.PUT("/:id", h.UpdateMenuItem)
		menu.DELETE("/:id", h.DeleteMenuItem)
	}

	// ── Orders ─────────────────────────────────────────────────────
	orders := api.Group("/orders", authRequired)
	{
		orders.POST("", customerOnly, h.PlaceOrder)
		orders.GET("", h.GetOrders)
		orders.GET("/:id/track", h.TrackOrder)
		orders.PATCH("/:id/status", staff, h.UpdateOrderStatus)
		orders.PATCH("/:id/cancel", customerOnly, h.CancelOrder)
		orders.DELETE("/:id", adminOnly, h.DeleteOrder)
	}

	// ── Admin routes ───────────────────────────────────────────────
	admin := api.Group("/admin", authRequired, adminOnly)
	{
		admin.PUT("/orders/:id/status", h.AdminForceOrderStatus)
	}

	users := api.Group("/users", authRequired, adminOnly)
	{
		users.GET("", h.AdminGetAllUsers)
		users.PATCH("/:id", h.AdminUpdateUser)
		users.DELETE("/:id", h.AdminDeleteUser)
	}
}
