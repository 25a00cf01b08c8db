package routes

import (
	"context"
	"net/http"
	"strings"
	"time"

	"scribe/config"
	"scribe/handlers"
	"scribe/middleware"
	"scribe/models"
	"scribe/repository"
	"scribe/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dependencies are the services the router dispatches to.
type Dependencies struct {
	Config   *config.Config
	Verifier middleware.TokenVerifier
	Auth     handlers.AuthService
	Blogs    handlers.BlogService
	PushSubs repository.PushRepository
	Hub      *websocket.Hub
	Limiter  *middleware.IPRateLimiter
	// Ping reports document store health; nil means always healthy.
	Ping func(ctx context.Context) error
}

func SetupRouter(deps Dependencies) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(), middleware.Metrics())
	router.MaxMultipartMemory = 12 << 20

	router.Use(cors.New(corsConfig(deps.Config.Origins())))

	health := healthHandler(deps.Ping)
	router.GET("/", health)
	router.GET("/health", health)
	router.GET("/api/health", health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	limiter := deps.Limiter
	if limiter == nil {
		limiter = middleware.NewIPRateLimiter(deps.Config.RateLimitPerMinute, time.Minute)
	}
	limited := middleware.RateLimitMiddleware(limiter)
	requireAuth := middleware.JWTAuthMiddleware(deps.Verifier)
	optionalAuth := middleware.OptionalAuthMiddleware(deps.Verifier)

	auth := handlers.NewAuthHandler(deps.Auth)
	blogs := handlers.NewBlogHandler(deps.Blogs)
	push := handlers.NewPushHandler(deps.PushSubs, deps.Config.VAPIDPublicKey)

	api := router.Group("/api")

	// Identity
	api.POST("/register", limited, auth.Register)
	api.POST("/login", limited, auth.Login)
	api.POST("/logout", requireAuth, auth.Logout)
	api.POST("/password-reset", limited, auth.RequestPasswordReset)
	api.POST("/password-reset/confirm", limited, auth.ConfirmPasswordReset)
	api.GET("/me", requireAuth, auth.Me)
	api.GET("/google/auth-url", auth.GoogleAuthURL)
	api.GET("/google/callback", auth.GoogleCallback)

	// Posts
	api.GET("/blogs", blogs.ListPosts)
	api.GET("/blogs/:id", blogs.GetPost)
	api.POST("/blogs", requireAuth, blogs.CreatePost)
	api.PUT("/blogs/:id", requireAuth, blogs.UpdatePost)
	api.DELETE("/blogs/:id", requireAuth, blogs.DeletePost)
	api.POST("/blogs/:id/like", limited, optionalAuth, blogs.LikePost)
	api.POST("/blogs/:id/comments", limited, optionalAuth, blogs.CommentOnPost)

	// Push subscriptions
	api.GET("/vapid-public-key", push.GetVapidPublicKey)
	api.POST("/subscribe", requireAuth, push.Subscribe)

	if deps.Hub != nil {
		router.GET("/ws", gin.WrapF(websocket.Handler(deps.Hub, deps.Verifier)))
	}

	router.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api") || c.Request.URL.Path == "/ws" {
			c.JSON(http.StatusNotFound, models.ErrorResponse{
				Error: "Endpoint not found: " + c.Request.URL.Path,
				Code:  models.CodeNotFound,
			})
			return
		}
		c.String(http.StatusNotFound, "404 page not found")
	})

	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept", "X-Requested-With", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", "Content-Type", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			cfg.AllowCredentials = false
			return cfg
		}
	}
	cfg.AllowOrigins = origins
	return cfg
}

func healthHandler(ping func(ctx context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		status, code := "ok", http.StatusOK
		if ping != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := ping(ctx); err != nil {
				status, code = "degraded", http.StatusServiceUnavailable
			}
		}
		c.JSON(code, gin.H{
			"status":  status,
			"service": "scribe",
			"time":    time.Now().Unix(),
			"ws":      "/ws",
		})
	}
}
