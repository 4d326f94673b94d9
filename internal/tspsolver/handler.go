package tspsolver

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Handler exposes Solver over HTTP (spec §4.B, §6: POST /solve, GET
// /health).
type Handler struct {
	solver *Solver
}

func NewHandler(solver *Solver) *Handler {
	return &Handler{solver: solver}
}

type solveRequest struct {
	Matrix    [][]int `json:"matrix"`
	Distances [][]int `json:"distances"`
}

type solveResponse struct {
	Tour       []int   `json:"tour"`
	TourLength float64 `json:"tour_length"`
}

// Solve handles POST /solve.
func (h *Handler) Solve(c *gin.Context) {
	var req solveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	matrix := req.Matrix
	if matrix == nil {
		matrix = req.Distances
	}
	if matrix == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing 'matrix' or 'distances' field"})
		return
	}

	tour, cost, err := h.solver.Solve(c.Request.Context(), matrix)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, solveResponse{Tour: tour, TourLength: cost})
}

// Health handles GET /health.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}
