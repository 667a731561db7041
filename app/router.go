// Package app wires the HTTP surface together
package app

import (
	"context"
	"net/http"
	"time"

	"mediband/api/app/medform"
	"mediband/api/app/respond"
	"mediband/api/app/root"
	"mediband/api/app/upload"
	"mediband/api/app/user"
	"mediband/api/internal"
	"mediband/api/pkg/middleware"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const authBodyLimit = 1 << 20

// NewRouter builds the engine and its routes. The rate limiter cleanup
// runs until ctx is done.
func NewRouter(ctx context.Context, d *internal.Deps) *gin.Engine {
	cfg := d.Config
	router := gin.New()

	router.Use(
		cors.New(cors.Config{
			AllowOrigins:     cfg.Host.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "HEAD", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "TurnstileToken"},
			ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}),
		middleware.NewRequestIDMiddleware(),
		gin.CustomRecovery(respond.Panic),
		ginzap.GinzapWithConfig(zap.L(), &ginzap.Config{
			TimeFormat: "15:04:05.000",
			UTC:        true,
			Skipper: func(c *gin.Context) bool {
				return c.Request.Method == "HEAD"
			},
			Context: func(c *gin.Context) []zapcore.Field {
				fields := []zapcore.Field{}

				if v := c.GetString("requestID"); v != "" {
					fields = append(fields, zap.String("request_id", v))
				}

				if v := c.GetString("userID"); v != "" {
					fields = append(fields, zap.String("userID", v))
				}

				return fields
			},
		}),
	)

	// ClientIP only reads X-Forwarded-For when the peer is one of these
	if err := router.SetTrustedProxies(cfg.Host.TrustedProxies); err != nil {
		zap.L().Error("Invalid trusted proxies, trusting none", zap.Error(err))
		_ = router.SetTrustedProxies(nil)
	}

	router.HandleMethodNotAllowed = true
	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"message":   "Route not found",
			"requestID": middleware.RequestID(c),
		})
	})
	router.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{
			"message":   "Method not allowed",
			"requestID": middleware.RequestID(c),
		})
	})

	// Multipart parts beyond this spill to disk.
	router.MaxMultipartMemory = 8 << 20

	requireSession := middleware.NewSessionMiddleware(d.Auth, cfg.Session.CookieName, true)
	optionalSession := middleware.NewSessionMiddleware(d.Auth, cfg.Session.CookieName, false)
	turnstile := middleware.NewTurnstileMiddleware(middleware.TurnstileConfig{
		Enabled: cfg.Security.TurnstileEnabled,
		Secret:  cfg.Security.TurnstileSecret,
	})
	rateLimiter := middleware.NewRateLimiter(ctx, middleware.RateLimiterConfig{
		PerMinute: cfg.Security.RateLimit,
	}).Middleware()

	authLimit := middleware.BodySizeLimiter(authBodyLimit)
	multipartLimit := middleware.BodySizeLimiter(int64(cfg.Upload.MaxFiles)*cfg.Upload.MaxSize + authBodyLimit)

	// GET /			-> Plain text greeting
	router.GET("/", root.Index)

	// HEAD /api/heartbeat		-> Used to check if the server is alive
	router.HEAD("/api/heartbeat", root.Heartbeat)

	// GET /auth/status		-> Tells whether the caller has a valid session
	router.GET("/auth/status", optionalSession, user.UserStatus)

	// POST /register		-> Registers a new user and logs them in
	router.POST("/register", rateLimiter, authLimit, turnstile, func(c *gin.Context) { user.UserRegister(c, d) })

	// POST /login			-> Logs in a user and sets the session cookie
	router.POST("/login", rateLimiter, authLimit, func(c *gin.Context) { user.UserLogin(c, d) })

	// POST /logout			-> Ends the current session if there is one
	router.POST("/logout", func(c *gin.Context) { user.UserLogout(c, d) })

	// POST /medform		-> Saves a medical record with its prescriptions
	router.POST("/medform", requireSession, multipartLimit, func(c *gin.Context) { medform.MedformSubmit(c, d) })

	dash := router.Group("/dashboard")
	{
		// GET /dashboard/medform		-> Returns the caller's medical record
		dash.GET("/medform", requireSession, func(c *gin.Context) { medform.MedformFetch(c, d) })

		// GET /dashboard/medform/:userId	-> Returns the medical record of any user
		dash.GET("/medform/:userId", optionalSession, func(c *gin.Context) { medform.MedformLookup(c, d) })
	}

	// POST /upload			-> Uploads files and returns their public URLs
	router.POST("/upload", requireSession, multipartLimit, func(c *gin.Context) { upload.FileUpload(c, d) })

	return router
}
