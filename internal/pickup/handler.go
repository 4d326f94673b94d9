package pickup

import (
	"net/http"
	"strconv"
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

type webhookRequest struct {
	ParcelID int64 `json:"parcel_id" binding:"required"`
}

// Webhook handles POST /pickup/webhook.
func (h *Handler) Webhook(c *gin.Context) {
	var req webhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	result, err := h.service.Webhook(c.Request.Context(), req.ParcelID, time.Now().In(h.loc))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Next handles GET /pickup/next.
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

// Complete handles POST /pickup/complete.
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

// HubArrived handles POST /pickup/hub-arrived.
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

// AllCompleted handles GET /pickup/all-completed.
func (h *Handler) AllCompleted(c *gin.Context) {
	result, err := h.service.AllCompleted(c.Request.Context(), time.Now().In(h.loc))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Status handles GET /pickup/status, supplemented from the Python
// original's introspection endpoint.
func (h *Handler) Status(c *gin.Context) {
	driverIDStr := c.Query("driver_id")
	driverID, ok := auth.DriverID(c)
	if !ok && driverIDStr != "" {
		parsed, err := strconv.ParseInt(driverIDStr, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid driver_id"})
			return
		}
		driverID = parsed
		ok = true
	}
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

func respondError(c *gin.Context, err error) {
	status := apperror.StatusCode(err)
	c.JSON(status, gin.H{"error": err.Error()})
}
