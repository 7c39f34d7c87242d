package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/lateralab/soup-backend/internal/config"
	"github.com/lateralab/soup-backend/internal/handler"
	"github.com/lateralab/soup-backend/internal/identity"
	"github.com/lateralab/soup-backend/internal/middleware"
	"github.com/lateralab/soup-backend/internal/response"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Profile *handler.ProfileHandler
	Puzzle  *handler.PuzzleHandler
	Story   *handler.StoryHandler
	Chat    *handler.ChatHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	verifier identity.Verifier,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response carries one.
	router.Use(response.RequestIDMiddleware())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	auth := middleware.RequireUser(verifier)

	// ─── Profile ───────────────────────────────────────────────────────
	me := router.Group("/me")
	me.Use(auth)
	{
		me.GET("", handlers.Profile.Me)
		me.PUT("/language", handlers.Profile.UpdateLanguage)
	}

	// ─── Puzzle catalog ────────────────────────────────────────────────
	puzzles := router.Group("/puzzles")
	puzzles.Use(auth)
	{
		puzzles.GET("", handlers.Puzzle.List)
		puzzles.GET("/:id", handlers.Puzzle.Get)
	}

	// Rate limiter for routes that fan out to paid upstreams
	// (30 requests per minute per IP).
	upstreamLimiter := middleware.NewRateLimiter(30, time.Minute)

	// ─── Story sessions ────────────────────────────────────────────────
	story := router.Group("/story")
	story.Use(auth, upstreamLimiter.Middleware())
	{
		story.POST("/start", handlers.Story.Start)
		story.POST("/append", handlers.Story.Append)
		story.POST("/final", handlers.Story.Final)
	}

	// ─── Answer submission ─────────────────────────────────────────────
	chat := router.Group("/chat")
	chat.Use(auth, upstreamLimiter.Middleware())
	{
		chat.POST("/transcribe", handlers.Chat.Transcribe)
		chat.POST("/evaluate", handlers.Chat.Evaluate)
	}

	return router
}
