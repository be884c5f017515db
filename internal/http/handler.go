package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"go.ngs.io/drifters/internal/usecase"
)

// Handler handles HTTP requests for drifter trajectories.
type Handler struct {
	simulationUC *usecase.SimulationUseCase
}

// NewHandler creates a new HTTP handler.
func NewHandler(simulationUC *usecase.SimulationUseCase) *Handler {
	return &Handler{
		simulationUC: simulationUC,
	}
}

// PostTrajectories handles POST /v1/trajectories.
func (h *Handler) PostTrajectories(c *gin.Context) {
	var req usecase.SimulationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid request body: %v", err)})
		return
	}

	// Execute use case.
	response, err := h.simulationUC.Execute(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, response)
}

// GetGrid handles GET /v1/grid.
func (h *Handler) GetGrid(c *gin.Context) {
	c.JSON(http.StatusOK, h.simulationUC.GridInfo())
}

// HealthCheck handles GET /health.
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}
