package router

import (
	"database/sql"
	"net/http"
	"time"

	"fitpass_backend/internal/billing"
	"fitpass_backend/internal/handlers"
	"fitpass_backend/internal/metrics"
	"fitpass_backend/internal/middleware"
	"fitpass_backend/internal/repositories"
	"fitpass_backend/internal/services"

	"github.com/gin-gonic/gin"
)

// Services bundles the service layer shared by the router and the scheduler.
type Services struct {
	Auth        services.AuthService
	Clubs       services.ClubService
	Classes     services.ClassService
	Bookings    services.BookingService
	Memberships services.MembershipService
	DailyAccess services.DailyAccessService
	Reviews     services.ReviewService
	News        services.NewsService
	Billing     services.BillingService
	Dashboard   services.DashboardService
}

// Options carries the optional integrations. Nil fields disable them.
type Options struct {
	Gateway      billing.Gateway
	Geocoder     services.AddressGeocoder
	CancelWindow time.Duration
	Location     *time.Location
}

// NewServices initializes the repositories and the services on top of them.
func NewServices(db *sql.DB, opts Options) *Services {
	userRepo := repositories.NewUserRepository(db)
	clubRepo := repositories.NewClubRepository(db)
	favoriteRepo := repositories.NewFavoriteRepository(db)
	classRepo := repositories.NewClassRepository(db)
	bookingRepo := repositories.NewBookingRepository(db)
	visitRepo := repositories.NewVisitRepository(db)
	membershipRepo := repositories.NewMembershipRepository(db)
	selectedGymRepo := repositories.NewSelectedGymRepository(db)
	reviewRepo := repositories.NewReviewRepository(db)
	newsRepo := repositories.NewNewsRepository(db)
	paymentRepo := repositories.NewPaymentRepository(db)

	return &Services{
		Auth:    services.NewAuthService(userRepo, db, opts.Geocoder),
		Clubs:   services.NewClubService(clubRepo, favoriteRepo, db, opts.Geocoder),
		Classes: services.NewClassService(classRepo, clubRepo, bookingRepo, membershipRepo, db, opts.Location),
		Bookings: services.NewBookingService(services.BookingDeps{
			Bookings:     bookingRepo,
			Classes:      classRepo,
			Clubs:        clubRepo,
			Memberships:  membershipRepo,
			SelectedGyms: selectedGymRepo,
			Visits:       visitRepo,
		}, db, opts.CancelWindow, opts.Location),
		Memberships: services.NewMembershipService(membershipRepo, selectedGymRepo, userRepo, opts.Gateway, db, opts.Location),
		DailyAccess: services.NewDailyAccessService(selectedGymRepo, membershipRepo, clubRepo, db),
		Reviews:     services.NewReviewService(reviewRepo, clubRepo, visitRepo, db),
		News:        services.NewNewsService(newsRepo, clubRepo, db),
		Billing: services.NewBillingService(opts.Gateway, services.BillingDeps{
			Users:        userRepo,
			Memberships:  membershipRepo,
			SelectedGyms: selectedGymRepo,
			Payments:     paymentRepo,
		}, db, opts.Location),
		Dashboard: services.NewDashboardService(services.DashboardDeps{
			Memberships:  membershipRepo,
			Bookings:     bookingRepo,
			Visits:       visitRepo,
			SelectedGyms: selectedGymRepo,
			Favorites:    favoriteRepo,
		}),
	}
}

// Setup initializes the routing for the application.
func Setup(engine *gin.Engine, svc *Services, geocoder handlers.Geocoder, limiter *middleware.RateLimiter) {
	authHandler := handlers.NewAuthHandler(svc.Auth)
	clubHandler := handlers.NewClubHandler(svc.Clubs, svc.Reviews)
	classHandler := handlers.NewClassHandler(svc.Classes)
	bookingHandler := handlers.NewBookingHandler(svc.Bookings)
	membershipHandler := handlers.NewMembershipHandler(svc.Memberships)
	dailyAccessHandler := handlers.NewDailyAccessHandler(svc.DailyAccess)
	newsHandler := handlers.NewNewsHandler(svc.News)
	billingHandler := handlers.NewBillingHandler(svc.Billing)
	geocodeHandler := handlers.NewGeocodeHandler(geocoder)
	dashboardHandler := handlers.NewDashboardHandler(svc.Dashboard, svc.DailyAccess)

	engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	engine.GET("/metrics", gin.WrapH(metrics.Handler()))

	apiV1 := engine.Group("/api/v1")

	// The webhook is authenticated by its signature and must not be throttled.
	SetupWebhookRoutes(apiV1, billingHandler)

	public := apiV1.Group("")
	public.Use(limiter.Handler())
	{
		SetupPublicAuthRoutes(public.Group("/auth"), authHandler)
		SetupGeocodeRoutes(public, geocodeHandler)
		public.GET("/plans", membershipHandler.GetPlans)
	}

	authenticated := apiV1.Group("")
	authenticated.Use(middleware.AuthMiddleware(), limiter.Handler())
	{
		SetupAuthenticatedAuthRoutes(authenticated.Group("/auth"), authHandler)
		SetupMeRoutes(authenticated, dashboardHandler, clubHandler, bookingHandler)
		SetupClubRoutes(authenticated, clubHandler, classHandler)
		SetupClassRoutes(authenticated, classHandler)
		SetupBookingRoutes(authenticated, bookingHandler)
		SetupMembershipRoutes(authenticated, membershipHandler)
		SetupDailyAccessRoutes(authenticated, dailyAccessHandler)
		SetupNewsRoutes(authenticated, newsHandler)
		SetupBillingRoutes(authenticated, billingHandler)
		SetupAdminRoutes(authenticated, dashboardHandler)
	}
}
