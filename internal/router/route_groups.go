package router

import (
	"fitpass_backend/internal/handlers"
	"fitpass_backend/internal/middleware"
	"fitpass_backend/internal/models"

	"github.com/gin-gonic/gin"
)

var clubStaff = []string{models.RoleClub, models.RoleAdmin}

// SetupPublicAuthRoutes sets up registration, login and token refresh.
func SetupPublicAuthRoutes(group *gin.RouterGroup, authHandler *handlers.AuthHandler) {
	group.POST("/register", authHandler.Register)
	group.POST("/login", authHandler.Login)
	group.POST("/refresh-token", authHandler.RefreshToken)
}

func SetupAuthenticatedAuthRoutes(group *gin.RouterGroup, authHandler *handlers.AuthHandler) {
	group.POST("/logout", authHandler.Logout)
	group.GET("/me", authHandler.GetCurrentUser)
	group.PUT("/me", authHandler.UpdateCurrentUser)
}

// SetupGeocodeRoutes serves the address lookups used by the registration form.
func SetupGeocodeRoutes(apiGroup *gin.RouterGroup, geocodeHandler *handlers.GeocodeHandler) {
	geocodeRoutes := apiGroup.Group("/geocode")
	{
		geocodeRoutes.GET("/autocomplete", geocodeHandler.Autocomplete)
		geocodeRoutes.GET("/search", geocodeHandler.Search)
		geocodeRoutes.GET("/reverse", geocodeHandler.Reverse)
	}
}

func SetupWebhookRoutes(apiGroup *gin.RouterGroup, billingHandler *handlers.BillingHandler) {
	apiGroup.POST("/webhooks/stripe", billingHandler.StripeWebhook)
}

// SetupMeRoutes sets up the caller's own dashboard, favorites and visits.
func SetupMeRoutes(authenticatedGroup *gin.RouterGroup, dashboardHandler *handlers.DashboardHandler,
	clubHandler *handlers.ClubHandler, bookingHandler *handlers.BookingHandler) {
	meRoutes := authenticatedGroup.Group("/me")
	{
		meRoutes.GET("/dashboard", dashboardHandler.GetUserDashboard)
		meRoutes.GET("/favorites", clubHandler.GetFavorites)
		meRoutes.GET("/visits", bookingHandler.GetVisits)
	}
}

// SetupClubRoutes sets up clubs, their favorites, reviews and class creation.
func SetupClubRoutes(authenticatedGroup *gin.RouterGroup, clubHandler *handlers.ClubHandler, classHandler *handlers.ClassHandler) {
	clubRoutes := authenticatedGroup.Group("/clubs")
	{
		clubRoutes.GET("", clubHandler.GetClubs)
		clubRoutes.GET("/:id", clubHandler.GetClubByID)
		clubRoutes.POST("", middleware.RoleAuthMiddleware(models.RoleAdmin), clubHandler.CreateClub)
		clubRoutes.PUT("/:id", middleware.RoleAuthMiddleware(clubStaff...), clubHandler.UpdateClub)

		clubRoutes.POST("/:id/favorite", clubHandler.AddFavorite)
		clubRoutes.DELETE("/:id/favorite", clubHandler.RemoveFavorite)

		clubRoutes.GET("/:id/reviews", clubHandler.GetReviews)
		clubRoutes.POST("/:id/reviews", clubHandler.SubmitReview)
		clubRoutes.DELETE("/:id/reviews", clubHandler.DeleteReview)

		clubRoutes.POST("/:id/classes", middleware.RoleAuthMiddleware(clubStaff...), classHandler.CreateClass)
	}
}

func SetupClassRoutes(authenticatedGroup *gin.RouterGroup, classHandler *handlers.ClassHandler) {
	classRoutes := authenticatedGroup.Group("/classes")
	{
		classRoutes.GET("", classHandler.GetClasses)
		classRoutes.GET("/:id", classHandler.GetClassByID)
		classRoutes.PUT("/:id", middleware.RoleAuthMiddleware(clubStaff...), classHandler.UpdateClass)
		classRoutes.DELETE("/:id", middleware.RoleAuthMiddleware(clubStaff...), classHandler.DeleteClass)
	}
}

// SetupBookingRoutes sets up the booking routes.
func SetupBookingRoutes(authenticatedGroup *gin.RouterGroup, bookingHandler *handlers.BookingHandler) {
	bookingRoutes := authenticatedGroup.Group("/bookings")
	{
		bookingRoutes.POST("", bookingHandler.CreateBooking)
		bookingRoutes.POST("/direct-visit", bookingHandler.CreateDirectVisit)
		bookingRoutes.POST("/check-in", middleware.RoleAuthMiddleware(clubStaff...), bookingHandler.CheckIn)
		bookingRoutes.GET("", bookingHandler.GetBookings)
		bookingRoutes.GET("/:id", bookingHandler.GetBookingByID)
		bookingRoutes.PATCH("/:id/cancel", bookingHandler.CancelBooking)
	}
}

func SetupMembershipRoutes(authenticatedGroup *gin.RouterGroup, membershipHandler *handlers.MembershipHandler) {
	membershipRoutes := authenticatedGroup.Group("/membership")
	{
		membershipRoutes.GET("", membershipHandler.GetMembership)
		membershipRoutes.POST("", membershipHandler.StartMembership)
		membershipRoutes.PUT("/plan", membershipHandler.ChangePlan)
		membershipRoutes.POST("/cancel", membershipHandler.CancelMembership)
		membershipRoutes.POST("/resume", membershipHandler.ResumeMembership)
	}
}

func SetupDailyAccessRoutes(authenticatedGroup *gin.RouterGroup, dailyAccessHandler *handlers.DailyAccessHandler) {
	dailyAccessRoutes := authenticatedGroup.Group("/daily-access")
	{
		dailyAccessRoutes.GET("", dailyAccessHandler.GetOverview)
		dailyAccessRoutes.POST("/gyms", dailyAccessHandler.AddGym)
		dailyAccessRoutes.DELETE("/gyms/:club_id", dailyAccessHandler.RemoveGym)
		dailyAccessRoutes.POST("/gyms/:club_id/replace", dailyAccessHandler.ReplaceGym)
		dailyAccessRoutes.POST("/gyms/:club_id/undo", dailyAccessHandler.UndoChange)
	}
}

func SetupNewsRoutes(authenticatedGroup *gin.RouterGroup, newsHandler *handlers.NewsHandler) {
	newsRoutes := authenticatedGroup.Group("/news")
	{
		newsRoutes.GET("", newsHandler.GetNews)
		newsRoutes.GET("/:id", newsHandler.GetNewsByID)
		newsRoutes.POST("", middleware.RoleAuthMiddleware(clubStaff...), newsHandler.CreateNews)
	}
}

// SetupBillingRoutes sets up payment methods, history and subscription status.
func SetupBillingRoutes(authenticatedGroup *gin.RouterGroup, billingHandler *handlers.BillingHandler) {
	billingRoutes := authenticatedGroup.Group("/billing")
	{
		billingRoutes.GET("/payment-methods", billingHandler.GetPaymentMethods)
		billingRoutes.POST("/payment-methods", billingHandler.AttachPaymentMethod)
		billingRoutes.PUT("/payment-methods/:id/default", billingHandler.SetDefaultPaymentMethod)
		billingRoutes.DELETE("/payment-methods/:id", billingHandler.DetachPaymentMethod)
		billingRoutes.POST("/setup-intent", billingHandler.CreateSetupIntent)
		billingRoutes.GET("/history", billingHandler.GetHistory)
		billingRoutes.GET("/subscription", billingHandler.GetSubscription)
	}
}

// SetupAdminRoutes sets up the admin reports.
func SetupAdminRoutes(authenticatedGroup *gin.RouterGroup, dashboardHandler *handlers.DashboardHandler) {
	adminRoutes := authenticatedGroup.Group("/admin")
	adminRoutes.Use(middleware.RoleAuthMiddleware(models.RoleAdmin))
	{
		adminRoutes.GET("/reports/daily-access-payouts", dashboardHandler.GetDailyAccessPayouts)
	}
}
