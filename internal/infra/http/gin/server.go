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

type Handlers struct {
	Public         PublicHandler
	Admin          AdminHandler
	Auth           AuthHandler
	AuthMiddleware gin.HandlerFunc
	// Files serves locally stored contracts; nil when contracts live in S3.
	Files *FilesHandler
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}
	router := NewRouter(cfg.CORSOrigins, obsMW, health, h)
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func NewRouter(origins []string, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.AccessLog())
	corsCfg := cors.Config{
		AllowOrigins:  origins,
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", "Idempotency-Key"},
		ExposeHeaders: []string{"Content-Length", "Content-Type", "Content-Disposition", "X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		corsCfg.AllowOrigins = nil
		corsCfg.AllowAllOrigins = true
	}
	router.Use(cors.New(corsCfg))
	if h.AuthMiddleware != nil {
		router.Use(h.AuthMiddleware)
	}

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)
	if h.Files != nil {
		router.GET("/files/*key", h.Files.Serve)
	}

	api := router.Group("/api/v1")
	api.POST("/auth/login", h.Auth.Login)
	api.POST("/auth/logout", h.Auth.Logout)
	api.GET("/auth/me", h.Auth.Me)

	api.GET("/apartments", h.Public.ListApartments)
	api.GET("/apartments/:id", h.Public.GetApartment)
	api.GET("/apartments/:id/booked-dates", h.Public.BookedDates)
	api.GET("/apartments/:id/availability", h.Public.Availability)
	api.GET("/apartments/:id/quote", h.Public.Quote)
	api.POST("/bookings", h.Public.CreateBooking)
	api.POST("/contact", h.Public.Contact)

	admin := api.Group("/admin", requireOperator)
	admin.GET("/bookings", h.Admin.ListBookings)
	admin.GET("/bookings/:id", h.Admin.GetBooking)
	admin.POST("/bookings/:id/confirm", h.Admin.Confirm)
	admin.POST("/bookings/:id/reject", h.Admin.Reject)
	admin.POST("/bookings/:id/cancel", h.Admin.Cancel)
	admin.PUT("/bookings/:id/status", h.Admin.UpdateStatus)
	admin.PATCH("/bookings/:id", h.Admin.Update)
	admin.PUT("/apartments/:id", h.Admin.SaveApartment)
	admin.PUT("/apartments/:id/seasonal-rates/:week", h.Admin.SetSeasonalRate)
	admin.DELETE("/apartments/:id/seasonal-rates/:week", h.Admin.DeleteSeasonalRate)
	admin.GET("/accounting/export", h.Admin.AccountingExport)
	admin.POST("/reminders/sweep", h.Admin.RunSweep)

	return router
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local", "debug":
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
