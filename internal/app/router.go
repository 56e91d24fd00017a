package app

import (
	"log"
	"time"

	"reelview/internal/config"
	"reelview/internal/middleware"
	"reelview/internal/model"
	"reelview/internal/repository"
	"reelview/internal/service"
	"reelview/internal/util"
	"reelview/internal/websocket"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func NewRouter(cfg *config.Config) *gin.Engine {
	// Set Gin mode
	if cfg.ServerPort == "5000" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()

	// CORS middleware
	r.Use(corsMiddleware(cfg.ClientURL))

	// Rate limiting middleware (if enabled)
	if cfg.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
		r.Use(rateLimiter.Middleware())
		log.Printf("Rate limiting enabled: %d req/sec, burst: %d", cfg.RateLimitRPS, cfg.RateLimitBurst)
	}

	// Custom request validations
	RegisterValidations()

	// Initialize database
	db, err := initDB(cfg)
	if err != nil {
		panic("Failed to connect to database: " + err.Error())
	}

	// Auto migrate
	if err := db.AutoMigrate(&model.User{}, &model.Review{}, &model.Comment{}, &model.Reaction{}, &model.HelpfulVote{}); err != nil {
		panic("Failed to migrate database: " + err.Error())
	}

	// Initialize Redis with retry logic
	redisClient := initRedisWithRetry(cfg)

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	reviewRepo := repository.NewReviewRepository(db, redisClient)
	commentRepo := repository.NewCommentRepository(db, redisClient)
	reactionRepo := repository.NewReactionRepository(db, redisClient)
	voteRepo := repository.NewVoteRepository(db)

	// Initialize RabbitMQ with retry logic
	rabbitMQ := initRabbitMQWithRetry(cfg)

	// Initialize WebSocket hub
	wsHub := websocket.NewHub()
	go wsHub.Run()
	log.Println("WebSocket hub started")

	// Feed pipeline: publisher pushes comment changes through RabbitMQ when
	// available, the worker drains them into the hub. Without a broker the
	// publisher broadcasts directly.
	feedPublisher := service.NewFeedPublisher(rabbitMQ, wsHub)
	if rabbitMQ != nil {
		feedWorker := service.NewFeedWorker(rabbitMQ, wsHub)
		if err := feedWorker.Start(); err != nil {
			log.Printf("Warning: Failed to start feed worker: %v", err)
		} else {
			log.Println("Feed worker started successfully")
		}
	} else {
		log.Println("Feed worker not started - RabbitMQ connection failed. Feed events broadcast directly.")
	}

	// Initialize services
	authService := service.NewAuthService(userRepo, cfg)
	reviewService := service.NewReviewService(reviewRepo, voteRepo, userRepo)
	commentService := service.NewCommentService(commentRepo, reactionRepo, reviewRepo, feedPublisher)

	// Initialize handlers
	authHandler := NewAuthHandler(authService, cfg.JWTSecret)
	reviewHandler := NewReviewHandler(reviewService, commentService)
	commentHandler := NewCommentHandler(commentService)

	// API routes
	api := r.Group("/api/v1")
	{
		// Auth routes
		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)

			// Protected routes
			auth.GET("/me", authHandler.AuthMiddleware(), authHandler.GetMe)
		}

		// Review routes
		reviews := api.Group("/reviews")
		{
			// Public routes; helpful-vote routes accept either a token or an
			// X-Device-ID header
			reviews.GET("", reviewHandler.GetReviews)
			reviews.GET("/:id", reviewHandler.GetReview)
			reviews.GET("/:id/comments", reviewHandler.GetComments)
			reviews.POST("/:id/helpful", authHandler.OptionalAuthMiddleware(), reviewHandler.VoteHelpful)
			reviews.GET("/:id/helpful", authHandler.OptionalAuthMiddleware(), reviewHandler.CheckHelpful)

			// Protected routes
			reviews.POST("", authHandler.AuthMiddleware(), reviewHandler.CreateReview)
		}

		// Comment routes
		comments := api.Group("/comments")
		{
			// Mixed-auth routes: logged-in, guest and anonymous traffic
			comments.POST("", authHandler.OptionalAuthMiddleware(), commentHandler.CreateComment)
			comments.POST("/:id/report", commentHandler.ReportComment)
			comments.POST("/:id/reactions", authHandler.OptionalAuthMiddleware(), commentHandler.ToggleReaction)
			comments.GET("/reactions", authHandler.OptionalAuthMiddleware(), commentHandler.GetReactions)

			// Protected routes
			comments.PUT("/:id", authHandler.AuthMiddleware(), commentHandler.UpdateComment)
			comments.DELETE("/:id", authHandler.AuthMiddleware(), commentHandler.DeleteComment)
		}
	}

	// WebSocket change feed, one channel per review
	r.GET("/ws/reviews/:id", func(c *gin.Context) {
		websocket.ServeFeed(wsHub, c.Param("id"), c.Writer, c.Request)
	})

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}

func initDB(cfg *config.Config) (*gorm.DB, error) {
	dsn := cfg.DatabaseURL
	if dsn == "" {
		dsn = "host=" + cfg.PostgresHost +
			" port=" + cfg.PostgresPort +
			" user=" + cfg.PostgresUser +
			" password=" + cfg.PostgresPassword +
			" dbname=" + cfg.PostgresDB +
			" sslmode=" + cfg.PostgresSSLMode
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	return db, nil
}

// initRabbitMQWithRetry attempts to connect to RabbitMQ with exponential backoff retry
func initRabbitMQWithRetry(cfg *config.Config) *util.RabbitMQClient {
	maxRetries := 10
	initialDelay := 2 * time.Second
	maxDelay := 30 * time.Second

	for attempt := 1; attempt <= maxRetries; attempt++ {
		rabbitMQ, err := util.NewRabbitMQClient(cfg)
		if err == nil {
			log.Printf("RabbitMQ connected successfully on attempt %d", attempt)
			return rabbitMQ
		}

		if attempt < maxRetries {
			// Calculate delay with exponential backoff
			delay := initialDelay * time.Duration(1<<uint(attempt-1))
			if delay > maxDelay {
				delay = maxDelay
			}

			log.Printf("Failed to connect to RabbitMQ (attempt %d/%d): %v. Retrying in %v...", attempt, maxRetries, err, delay)
			time.Sleep(delay)
		} else {
			log.Printf("Warning: Failed to connect to RabbitMQ after %d attempts: %v. Feed events will broadcast directly.", maxRetries, err)
		}
	}

	return nil
}

// initRedisWithRetry attempts to connect to Redis with exponential backoff retry
func initRedisWithRetry(cfg *config.Config) *util.RedisClient {
	maxRetries := 10
	initialDelay := 2 * time.Second
	maxDelay := 30 * time.Second

	for attempt := 1; attempt <= maxRetries; attempt++ {
		redisClient, err := util.NewRedisClient(cfg)
		if err == nil {
			log.Printf("Redis connected successfully on attempt %d", attempt)
			return redisClient
		}

		if attempt < maxRetries {
			// Calculate delay with exponential backoff
			delay := initialDelay * time.Duration(1<<uint(attempt-1))
			if delay > maxDelay {
				delay = maxDelay
			}

			log.Printf("Failed to connect to Redis (attempt %d/%d): %v. Retrying in %v...", attempt, maxRetries, err, delay)
			time.Sleep(delay)
		} else {
			log.Printf("Warning: Failed to connect to Redis after %d attempts: %v. Caching will be disabled.", maxRetries, err)
			log.Println("Note: Application will continue without Redis caching")
		}
	}

	return nil
}

func corsMiddleware(clientURL string) gin.HandlerFunc {
	// Allowed origins (whitelist)
	allowedOrigins := []string{
		clientURL, // Default from config
		"http://localhost:3000",
	}

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		// Check if origin is in whitelist
		allowed := false
		for _, allowedOrigin := range allowedOrigins {
			if origin == allowedOrigin {
				allowed = true
				break
			}
		}

		// If origin is allowed, set it; otherwise, use default
		if allowed {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		} else {
			c.Writer.Header().Set("Access-Control-Allow-Origin", clientURL)
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Device-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
