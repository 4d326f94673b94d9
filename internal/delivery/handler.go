package delivery

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/saan-system/dispatch/internal/platform/apperror"
	"github.com/saan-system/dispatch/internal/platform/auth"
)

// Handler adapts Service to gin.
type Handler struct {
	service *Service
	loc     *time.Location
}

func NewHandler(service *Service, loc *time.Location) *Handler {
	return &Handler{service: service, loc: loc}
}

// Next handles GET /delivery/next.
func (h *Handler) Next(c *gin.Context) {
	driverID, ok := auth.DriverID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "토큰이 없습니다"})
		return
	}

	result, err := h.service.Next(c.Request.Context(), driverID, time.Now().In(h.loc))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type completeRequest struct {
	ParcelID int64 `json:"parcel_id" binding:"required"`
}

// Complete handles POST /delivery/complete.
func (h *Handler) Complete(c *gin.Context) {
	driverID, ok := auth.DriverID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "토큰이 없습니다"})
		return
	}

	var req completeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.service.Complete(c.Request.Context(), driverID, req.ParcelID, time.Now().In(h.loc)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "completed"})
}

// HubArrived handles POST /delivery/hub-arrived.
func (h *Handler) HubArrived(c *gin.Context) {
	driverID, ok := auth.DriverID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "토큰이 없습니다"})
		return
	}

	if err := h.service.HubArrived(c.Request.Context(), driverID, time.Now().In(h.loc)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "at_hub"})
}

// Status handles GET /delivery/status.
func (h *Handler) Status(c *gin.Context) {
	driverID, ok := auth.DriverID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "토큰이 없습니다"})
		return
	}

	result, err := h.service.Status(c.Request.Context(), driverID, time.Now().In(h.loc))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Import handles POST /delivery/import.
func (h *Handler) Import(c *gin.Context) {
	today := dateOnly(time.Now(), h.loc)
	count, err := h.service.Import(c.Request.Context(), today)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transitioned_count": count})
}

// Assign handles POST /delivery/assign.
func (h *Handler) Assign(c *gin.Context) {
	today := dateOnly(time.Now(), h.loc)
	count, err := h.service.Assign(c.Request.Context(), today)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"assigned_count": count})
}

func respondError(c *gin.Context, err error) {
	status := apperror.StatusCode(err)
	c.JSON(status, gin.H{"error": err.Error()})
}
