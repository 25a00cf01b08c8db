package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"scribe/assets"
	"scribe/config"
	"scribe/database"
	"scribe/identity"
	"scribe/middleware"
	"scribe/push"
	"scribe/repository"
	"scribe/routes"
	"scribe/services"
	"scribe/websocket"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func main() {
	log.Println("🚀 Starting Scribe server...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("❌ ", err)
	}

	// ===== CONNECT TO MONGODB WITH RETRY =====
	log.Println("🔌 Connecting to MongoDB...")

	var mdb *database.Mongo
	var dbErr error
	for i := 1; i <= 3; i++ {
		if mdb, dbErr = database.ConnectMongo(cfg.MongoURI, cfg.MongoDB); dbErr != nil {
			log.Printf("❌ MongoDB connection attempt %d failed: %v", i, dbErr)
			time.Sleep(2 * time.Second)
			continue
		}
		break
	}
	if dbErr != nil {
		log.Fatal("❌ Failed to connect to MongoDB:", dbErr)
	}
	log.Println("✅ MongoDB connected successfully")

	idxCtx, idxCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := mdb.EnsureIndexes(idxCtx); err != nil {
		log.Printf("⚠️ Could not ensure indexes: %v", err)
	}
	idxCancel()

	// ===== REDIS =====
	var rdb *redis.Client
	if rdb, err = database.ConnectRedis(cfg.RedisURL); err != nil {
		log.Printf("⚠️ Redis unavailable (%v) - logout revocation and password resets are disabled", err)
		rdb = nil
	} else {
		log.Println("✅ Redis connected")
	}

	// ===== GIN MODE =====
	if cfg.GinMode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
		log.Println("⚙️ Running in RELEASE mode")
	} else {
		gin.SetMode(gin.DebugMode)
		log.Println("⚙️ Running in DEBUG mode")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ===== WEBSOCKET =====
	log.Println("🔌 Initializing WebSocket hub...")
	hub := websocket.NewHub(wsOrigins(cfg)...)
	go hub.Run(ctx)

	// ===== SERVICES =====
	posts := repository.NewPostRepository(mdb.Blogs)
	users := repository.NewUserRepository(mdb.Identities, mdb.Users)
	pushSubs := repository.NewPushRepository(mdb.PushSubs)

	var uploader assets.Uploader
	if cfg.CloudinaryURL == "" {
		log.Println("⚠️  Image uploads disabled - set CLOUDINARY_URL")
	} else if cld, err := assets.NewCloudinaryUploader(cfg.CloudinaryURL, cfg.CloudinaryFolder, cfg.CloudinaryUploadPreset); err != nil {
		log.Printf("⚠️  Image uploads disabled: %v", err)
	} else {
		uploader = cld
	}

	var notifier services.Notifier
	if n := push.NewNotifier(pushSubs, cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey, cfg.VAPIDSubscriber); n.Enabled() {
		notifier = n
	}

	var mailer identity.Mailer
	if cfg.SMTPHost != "" {
		mailer = identity.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.MailFrom)
	} else {
		log.Println("⚠️  SMTP not configured - reset mails are written to the log")
		mailer = &identity.LogMailer{}
	}

	auth := identity.NewService(users, rdb, mailer, hub, identity.Options{
		Secret:       cfg.JWTSecret,
		TokenTTL:     cfg.TokenTTL,
		ResetTTL:     cfg.ResetTTL,
		ResetURLBase: cfg.ResetURLBase,
	}).WithGoogle(identity.NewGoogleConfig(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL))

	blogs := services.NewBlogService(posts, uploader, hub, notifier)

	limiter := middleware.NewIPRateLimiter(cfg.RateLimitPerMinute, time.Minute)
	go sweep(ctx, limiter)

	// ===== ROUTER =====
	router := routes.SetupRouter(routes.Dependencies{
		Config:   cfg,
		Verifier: auth,
		Auth:     auth,
		Blogs:    blogs,
		PushSubs: pushSubs,
		Hub:      hub,
		Limiter:  limiter,
		Ping: func(ctx context.Context) error {
			return mdb.Client.Ping(ctx, nil)
		},
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("🌐 Server running on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("❌ Server error:", err)
		}
	}()
	log.Println("✅ Server is ready and accepting connections")

	// ===== GRACEFUL SHUTDOWN =====
	<-ctx.Done()
	log.Println("🛑 Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Println("❌ Forced shutdown:", err)
	}
	blogs.Wait()
	if rdb != nil {
		_ = rdb.Close()
	}
	if err := mdb.Disconnect(); err != nil {
		log.Println("❌ MongoDB disconnect:", err)
	}

	log.Println("👋 Server stopped gracefully")
}

// wsOrigins returns the configured origins, or none (allow all) for "*".
func wsOrigins(cfg *config.Config) []string {
	origins := cfg.Origins()
	for _, o := range origins {
		if o == "*" {
			return nil
		}
	}
	return origins
}

func sweep(ctx context.Context, limiter *middleware.IPRateLimiter) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			limiter.Sweep()
		}
	}
}
