package main

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/hitechparadigm/youtube-video-upload-sub006/config"
	"github.com/hitechparadigm/youtube-video-upload-sub006/handlers"
	"github.com/hitechparadigm/youtube-video-upload-sub006/metrics"
	"github.com/hitechparadigm/youtube-video-upload-sub006/storage"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	log.Printf("Configuration loaded: %s", cfg)

	// Status store: Postgres when DATABASE_URL is set, in-memory otherwise
	var statuses storage.StatusStore
	if cfg.DatabaseURL != "" {
		db, err := storage.Connect(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		statuses, err = storage.NewGormStatusStore(db)
		if err != nil {
			log.Fatalf("Failed to initialize status store: %v", err)
		}
		log.Printf("Using Postgres status store")
	} else {
		statuses = storage.NewMemoryStatusStore()
		log.Printf("DATABASE_URL not set, using in-memory status store")
	}

	m := metrics.New()

	// Create Gin router
	router := gin.Default()

	// Setup CORS
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:5173", "http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
			"time":   time.Now(),
		})
	})

	// Prometheus metrics endpoint
	router.GET("/metrics", gin.WrapH(m.Handler()))

	// Initialize pipeline handler
	pipelineHandler := handlers.NewPipelineHandler(cfg, statuses, m)

	// API routes
	api := router.Group("/api")
	{
		api.POST("/manifest/build", pipelineHandler.BuildManifest)
		api.POST("/assemble", pipelineHandler.Assemble)
		api.GET("/status/:project_id", pipelineHandler.GetStatus)
		api.GET("/download/:project_id", pipelineHandler.Download)
		api.GET("/download-subtitles/:project_id", pipelineHandler.DownloadSubtitles)
	}

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	log.Printf("Starting server on %s", addr)
	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
