package tspsolver

import "github.com/gin-gonic/gin"

// RegisterRoutes mounts the TSP Solver Adapter's HTTP surface.
func RegisterRoutes(r *gin.Engine, h *Handler) {
	r.POST("/solve", h.Solve)
	r.GET("/health", h.Health)
}
