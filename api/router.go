package api

import (
	"net/http"

	"musicbox/config"
	"musicbox/db"
	"musicbox/docs"
	"musicbox/session"
	"musicbox/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/cors"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// NewRouter builds the gin engine with every route of the API.
func NewRouter(database *db.Database, sessions session.Registry, cfg *config.Config) *gin.Engine {
	router := gin.New()
	router.Use(utils.RequestLogger())
	// Recovery middleware recovers from any panics and writes a 500 if there was one.
	router.Use(gin.Recovery())

	router.GET("/", HomeHandler)

	// --- Public Routes (No Auth Required) ---
	limiter := utils.NewIPRateLimiter(cfg.Auth.LoginRateLimit, cfg.Auth.LoginRateBurst)
	authGroup := router.Group("/api", utils.RateLimitMiddleware(limiter))
	{
		authGroup.POST("/signup", func(c *gin.Context) {
			SignupHandler(c, database)
		})
		authGroup.POST("/login", func(c *gin.Context) {
			LoginHandler(c, database, sessions)
		})
	}

	// --- Protected Routes (Auth Required) ---
	authMiddleware := utils.AuthMiddleware(sessions)

	playlistGroup := router.Group("/api/playlists", authMiddleware)
	{
		playlistGroup.GET("", func(c *gin.Context) {
			GetPlaylistsHandler(c, database)
		})
		playlistGroup.POST("", func(c *gin.Context) {
			CreatePlaylistHandler(c, database)
		})
		playlistGroup.DELETE("/:playlist_id", func(c *gin.Context) {
			DeletePlaylistHandler(c, database)
		})

		songGroup := playlistGroup.Group("/:playlist_id/songs")
		{
			songGroup.GET("", func(c *gin.Context) {
				GetPlaylistSongsHandler(c, database)
			})
			songGroup.POST("", func(c *gin.Context) {
				AddSongToPlaylistHandler(c, database)
			})
			songGroup.DELETE("/:song_id", func(c *gin.Context) {
				RemoveSongFromPlaylistHandler(c, database)
			})
		}
	}

	catalogGroup := router.Group("/api/songs", authMiddleware)
	{
		catalogGroup.GET("", func(c *gin.Context) {
			GetSongsHandler(c, database)
		})
		catalogGroup.GET("/:song_id", func(c *gin.Context) {
			GetSongByIDHandler(c, database)
		})
	}

	// --- Swagger Route ---
	router.GET("/docs/swagger.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json; charset=utf-8", docs.SwaggerJSON)
	})
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/docs/swagger.json")))

	return router
}

// WithCORS answers cross-origin pre-flight requests for every route of h.
func WithCORS(h http.Handler, cfg config.CORSConfig) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           cfg.MaxAge,
	})(h)
}

// NewHandler is the complete HTTP handler served by the process.
func NewHandler(database *db.Database, sessions session.Registry, cfg *config.Config) http.Handler {
	return WithCORS(NewRouter(database, sessions, cfg), cfg.CORS)
}
