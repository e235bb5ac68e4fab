package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"staybook/internal/infra/config"
	"staybook/internal/infra/obs"
)

type BookingHTTP interface {
	Create(c *gin.Context)
	Get(c *gin.Context)
	SubmitReceipt(c *gin.Context)
	UploadReceipt(c *gin.Context)
	PaymentInstructions(c *gin.Context)
}

type HostBookingHTTP interface {
	List(c *gin.Context)
	Confirm(c *gin.Context)
	Reject(c *gin.Context)
}

type ListingHTTP interface {
	Catalog(c *gin.Context)
	Get(c *gin.Context)
	Availability(c *gin.Context)
}

type HostListingHTTP interface {
	List(c *gin.Context)
	Create(c *gin.Context)
	Update(c *gin.Context)
	Delete(c *gin.Context)
}

type MeHTTP interface {
	ListBookings(c *gin.Context)
	GetBankDetails(c *gin.Context)
	UpdateBankDetails(c *gin.Context)
}

type Handlers struct {
	Booking        BookingHTTP
	HostBooking    HostBookingHTTP
	Listing        ListingHTTP
	HostListing    HostListingHTTP
	Me             MeHTTP
	DevToken       gin.HandlerFunc
	AuthMiddleware gin.HandlerFunc
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           NewRouter(cfg, obsMW, health, h),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// NewRouter registers every route; split from NewServer so tests can drive it with httptest.
func NewRouter(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *gin.Engine {
	router := gin.New()
	router.Use(obsMW.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.AccessLog())
	router.Use(cors.New(corsConfig(cfg.CORSOrigins)))
	if cfg.ReceiptMaxBytes > 0 {
		router.MaxMultipartMemory = cfg.ReceiptMaxBytes
	}
	if h.AuthMiddleware != nil {
		router.Use(h.AuthMiddleware)
	}

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)

	api := router.Group("/api/v1")
	if h.DevToken != nil {
		api.POST("/dev/token", h.DevToken)
	}
	if h.Booking != nil {
		bookings := api.Group("/bookings")
		bookings.POST("", h.Booking.Create)
		bookings.GET("/:id", h.Booking.Get)
		bookings.POST("/:id/receipt", h.Booking.SubmitReceipt)
		bookings.POST("/:id/receipt/upload", h.Booking.UploadReceipt)
		bookings.GET("/:id/payment-instructions", h.Booking.PaymentInstructions)
	}
	if h.Listing != nil {
		api.GET("/listings", h.Listing.Catalog)
		api.GET("/listings/:id", h.Listing.Get)
		api.GET("/listings/:id/availability", h.Listing.Availability)
	}
	if h.HostBooking != nil {
		hostBookings := api.Group("/host/bookings")
		hostBookings.GET("", h.HostBooking.List)
		hostBookings.POST("/:id/confirm", h.HostBooking.Confirm)
		hostBookings.POST("/:id/reject", h.HostBooking.Reject)
	}
	if h.HostListing != nil {
		hostListings := api.Group("/host/listings")
		hostListings.GET("", h.HostListing.List)
		hostListings.POST("", h.HostListing.Create)
		hostListings.PUT("/:id", h.HostListing.Update)
		hostListings.DELETE("/:id", h.HostListing.Delete)
	}
	if h.Me != nil {
		meGroup := api.Group("/me")
		meGroup.GET("/bookings", h.Me.ListBookings)
		meGroup.GET("/bank-details", h.Me.GetBankDetails)
		meGroup.PUT("/bank-details", h.Me.UpdateBankDetails)
	}
	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization", "Idempotency-Key", obs.RequestIDHeader},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			obs.RequestIDHeader,
		},
		MaxAge: 12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}
