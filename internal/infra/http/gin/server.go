package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"chakastays/internal/infra/config"
	"chakastays/internal/infra/obs"
)

type PropertyHTTP interface {
	Search(c *gin.Context)
	Get(c *gin.Context)
	Availability(c *gin.Context)
}

type BookingHTTP interface {
	Check(c *gin.Context)
	Create(c *gin.Context)
	Cancel(c *gin.Context)
}

type HostHTTP interface {
	ListProperties(c *gin.Context)
	CreateProperty(c *gin.Context)
	UpdateProperty(c *gin.Context)
	UploadImage(c *gin.Context)
	BlockDates(c *gin.Context)
	UnblockDates(c *gin.Context)
	Dashboard(c *gin.Context)
}

type MeHTTP interface {
	ListBookings(c *gin.Context)
	ListNotifications(c *gin.Context)
	MarkNotificationRead(c *gin.Context)
	MarkAllNotificationsRead(c *gin.Context)
	ListFavorites(c *gin.Context)
	AddFavorite(c *gin.Context)
	RemoveFavorite(c *gin.Context)
	UpdateProfile(c *gin.Context)
	UploadAvatar(c *gin.Context)
}

type AuthHTTP interface {
	Register(c *gin.Context)
	Login(c *gin.Context)
	Logout(c *gin.Context)
	Me(c *gin.Context)
}

type AdminHTTP interface {
	BanProperty(c *gin.Context)
	UnbanProperty(c *gin.Context)
	RemoveProperty(c *gin.Context)
}

type Handlers struct {
	Property       PropertyHTTP
	Booking        BookingHTTP
	Host           HostHTTP
	Me             MeHTTP
	Admin          AdminHTTP
	Auth           AuthHTTP
	AuthMiddleware gin.HandlerFunc
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           NewRouter(cfg, obsMW, health, h),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// NewRouter builds the gin engine without binding it to an address.
func NewRouter(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *gin.Engine {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.LoggerMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization", "Idempotency-Key"},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			obs.RequestIDHeader,
		},
		MaxAge: 12 * time.Hour,
	}))
	if h.AuthMiddleware != nil {
		router.Use(h.AuthMiddleware)
	}

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)

	api := router.Group("/api/v1")
	if h.Auth != nil {
		api.POST("/auth/register", h.Auth.Register)
		api.POST("/auth/login", h.Auth.Login)
		api.POST("/auth/logout", h.Auth.Logout)
		api.GET("/auth/me", h.Auth.Me)
	}
	if h.Property != nil {
		api.GET("/properties", h.Property.Search)
		api.GET("/properties/:id", h.Property.Get)
		api.GET("/properties/:id/availability", h.Property.Availability)
	}
	if h.Booking != nil {
		api.POST("/bookings/check", h.Booking.Check)
		api.POST("/bookings", h.Booking.Create)
		api.POST("/bookings/:id/cancel", h.Booking.Cancel)
	}
	if h.Host != nil {
		hostGroup := api.Group("/host")
		hostGroup.GET("/properties", h.Host.ListProperties)
		hostGroup.POST("/properties", h.Host.CreateProperty)
		hostGroup.PUT("/properties/:id", h.Host.UpdateProperty)
		hostGroup.POST("/properties/:id/images", h.Host.UploadImage)
		hostGroup.POST("/properties/:id/blocks", h.Host.BlockDates)
		hostGroup.DELETE("/properties/:id/blocks/:blockID", h.Host.UnblockDates)
		hostGroup.GET("/dashboard", h.Host.Dashboard)
	}
	if h.Me != nil {
		meGroup := api.Group("/me")
		meGroup.GET("/bookings", h.Me.ListBookings)
		meGroup.GET("/notifications", h.Me.ListNotifications)
		meGroup.POST("/notifications/read-all", h.Me.MarkAllNotificationsRead)
		meGroup.POST("/notifications/:id/read", h.Me.MarkNotificationRead)
		meGroup.GET("/favorites", h.Me.ListFavorites)
		meGroup.PUT("/favorites/:propertyID", h.Me.AddFavorite)
		meGroup.DELETE("/favorites/:propertyID", h.Me.RemoveFavorite)
		meGroup.PUT("/profile", h.Me.UpdateProfile)
		meGroup.POST("/avatar", h.Me.UploadAvatar)
	}
	if h.Admin != nil {
		adminGroup := api.Group("/admin")
		adminGroup.POST("/properties/:id/ban", h.Admin.BanProperty)
		adminGroup.POST("/properties/:id/unban", h.Admin.UnbanProperty)
		adminGroup.DELETE("/properties/:id", h.Admin.RemoveProperty)
	}

	return router
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
