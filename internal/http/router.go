package http

import (
	"os"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"go.ngs.io/drifters/internal/usecase"
)

// SetupRouter creates and configures the Gin router.
func SetupRouter(simulationUC *usecase.SimulationUseCase) *gin.Engine {

	router := gin.Default()

	// Setup CORS middleware.
	corsConfig := cors.DefaultConfig()

	// Get allowed origins from environment variable.
	// Default to allow all origins if not specified.
	allowedOrigins := os.Getenv("CORS_ALLOWED_ORIGINS")
	if allowedOrigins != "" {
		corsConfig.AllowOrigins = strings.Split(allowedOrigins, ",")
	} else {
		corsConfig.AllowAllOrigins = true
	}

	router.Use(cors.New(corsConfig))

	// Create handler.
	handler := NewHandler(simulationUC)

	// API v1 routes.
	v1 := router.Group("/v1")
	v1.POST("/trajectories", handler.PostTrajectories)
	v1.GET("/grid", handler.GetGrid)

	// Health check.
	router.GET("/health", handler.HealthCheck)

	return router
}
