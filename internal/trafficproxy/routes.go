package trafficproxy

import "github.com/gin-gonic/gin"

// RegisterRoutes mounts the Traffic Proxy's HTTP surface (spec §4.A, §6).
func RegisterRoutes(r *gin.Engine, h *Handler) {
	r.GET("/search", h.Search)
	r.POST("/route", h.Route)
	r.POST("/matrix", h.Matrix)
	r.POST("/sources_to_targets", h.SourcesToTargets)
	r.GET("/health", h.Health)
	r.GET("/status", h.Status)
	r.GET("/traffic-debug", h.TrafficDebug)
	r.NoRoute(h.ProxyAll)
}
