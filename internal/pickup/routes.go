package pickup

import (
	"github.com/gin-gonic/gin"

	"github.com/saan-system/dispatch/internal/platform/auth"
)

// RegisterRoutes mounts the Pickup Dispatcher's HTTP surface (spec §4.C).
func RegisterRoutes(r *gin.Engine, h *Handler, verifier *auth.Verifier) {
	group := r.Group("/pickup")
	{
		group.POST("/webhook", h.Webhook)
		group.GET("/all-completed", h.AllCompleted)
		group.GET("/status", h.Status)

		authed := group.Group("")
		authed.Use(verifier.Middleware())
		{
			authed.GET("/next", h.Next)
			authed.POST("/complete", h.Complete)
			authed.POST("/hub-arrived", h.HubArrived)
		}
	}
}
