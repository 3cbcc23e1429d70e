package main

import (
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"codecoach/config"
	"codecoach/controllers"
	"codecoach/middlewares"
	"codecoach/services"
	"codecoach/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Generous ceiling over the 8000-char code plus 3000-char transcript bounds.
const maxRequestBodyBytes = 64 * 1024

func main() {
	// Load the configuration from the specified YAML file
	configPath := "./config/config.yml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := services.InitEvaluatorService(cfg); err != nil {
		log.Fatalf("Failed to initialize evaluator service: %v", err)
	}
	controllers.Init(cfg)

	hub := websocket.NewHub(cfg.Server.MaxClients)

	// Close client connections cleanly on shutdown signals
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-signals
		log.Printf("Received signal %v, shutting down", sig)
		hub.Shutdown()
		os.Exit(0)
	}()

	router := setupRouter(cfg, hub)
	port := strconv.Itoa(cfg.Server.Port)
	log.Printf("Server starting on port %s", port)

	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func setupRouter(cfg *config.Config, hub *websocket.Hub) *gin.Engine {
	router := gin.Default()

	// Set trusted proxies (adjust as needed)
	router.SetTrustedProxies([]string{"127.0.0.1", "localhost"})

	origin := cfg.Server.CorsOrigin
	if origin == "" {
		origin = "http://localhost:3000"
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{origin},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))
	router.OPTIONS("/*path", func(c *gin.Context) { c.Status(204) })

	router.GET("/health", controllers.Health)
	router.GET("/health/ready", controllers.Ready)

	bodyLimit := middlewares.BodySizeLimit(maxRequestBodyBytes)
	router.POST("/evaluate", bodyLimit, controllers.EvaluateCode)
	router.POST("/transcripts", bodyLimit, controllers.IngestTranscript(hub))
	router.GET("/stats", controllers.HubStats(hub))

	// Live transcription channel for session cores
	router.GET("/ws", hub.Handler)

	return router
}
