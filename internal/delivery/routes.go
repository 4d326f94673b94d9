package delivery

import (
	"github.com/gin-gonic/gin"

	"github.com/saan-system/dispatch/internal/platform/auth"
)

// RegisterRoutes mounts the Delivery Dispatcher's HTTP surface (spec §4.D).
func RegisterRoutes(r *gin.Engine, h *Handler, verifier *auth.Verifier) {
	group := r.Group("/delivery")
	{
		group.POST("/import", h.Import)
		group.POST("/assign", h.Assign)

		authed := group.Group("")
		authed.Use(verifier.Middleware())
		{
			authed.GET("/next", h.Next)
			authed.POST("/complete", h.Complete)
			authed.POST("/hub-arrived", h.HubArrived)
			authed.GET("/status", h.Status)
		}
	}
}
