package routes

import (
	"net/http"

	ginlogger "github.com/gin-contrib/logger"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"campus_bus/internal/accounts"
	"campus_bus/internal/config"
	"campus_bus/internal/controllers"
	"campus_bus/internal/logger"
	"campus_bus/internal/middleware"
	"campus_bus/internal/tracking"
)

const sessionName = "campus_bus_session"

// SetupRouter wires every route group onto a new engine. It does not start
// listening.
func SetupRouter(s *config.Settings, db *gorm.DB, svc *tracking.Service) *gin.Engine {
	gin.SetMode(s.GinMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(ginlogger.SetLogger(
		ginlogger.WithLogger(func(_ *gin.Context, l zerolog.Logger) zerolog.Logger {
			return l.Output(logger.Output()).With().Logger()
		}),
		ginlogger.WithUTC(true),
		ginlogger.WithSkipPath([]string{"/healthz", "/metrics"}),
	))
	r.Use(middleware.CORS(s.CORSOrigins))

	store := cookie.NewStore([]byte(s.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   7 * 24 * 60 * 60,
		HttpOnly: true,
		Secure:   s.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(sessionName, store))

	tokens := middleware.NewTokenIssuer(s.JWTSecret, s.TokenTTL)
	cache := accounts.NewIdentityCache(db, s.CacheSize, s.CacheTTL)
	r.Use(middleware.LoadIdentity(cache, tokens))

	ctl := controllers.New(db, svc, tokens, s)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	AuthRoutes(r, ctl)
	StudentRoutes(r, ctl)
	DriverRoutes(r, ctl)
	AdminRoutes(r, ctl)
	WebSocketRoutes(r, ctl)

	return r
}
