package main

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/saan-system/dispatch/internal/platform/cache"
	"github.com/saan-system/dispatch/internal/platform/config"
	"github.com/saan-system/dispatch/internal/platform/logger"
	"github.com/saan-system/dispatch/internal/trafficproxy"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using system environment variables")
	}

	cfg := config.Load()
	logEntry := logger.New("trafficproxy")

	mapping, err := trafficproxy.LoadLinkMapping(cfg.TrafficMappingFile)
	if err != nil {
		logEntry.WithError(err).Error("매핑 파일 읽기 오류")
		mapping = &trafficproxy.LinkMapping{ServiceToOSM: map[string]string{}}
	}
	logEntry.WithFields(map[string]interface{}{
		"loaded":  mapping.Loaded,
		"skipped": mapping.Skipped,
	}).Info("매핑 로드 완료")

	table := trafficproxy.NewSpeedTable()
	ingestor := trafficproxy.NewIngestor(mapping, table, cfg.TrafficFeedBaseURL, cfg.TrafficFeedAPIKey, cfg.TrafficRefreshEvery, logEntry)
	ingestor.Start(context.Background())

	var geocodeCache *cache.Cache
	if redisURL := cfg.RedisURL; redisURL != "" {
		gc, err := cache.Connect(redisURL, "geocode")
		if err != nil {
			logEntry.WithError(err).Warn("redis unavailable, continuing without geocode cache")
		} else {
			geocodeCache = gc
		}
	}

	geocoder := trafficproxy.NewGeocoder(cfg.GeocoderAPIKey, geocodeCache)

	handler, err := trafficproxy.NewHandler(cfg.UpstreamRoutingEngineURL, table, geocoder, logEntry)
	if err != nil {
		logEntry.WithError(err).Fatal("invalid upstream routing engine URL")
	}

	r := gin.Default()
	trafficproxy.RegisterRoutes(r, handler)

	logEntry.Infof("traffic proxy starting on port %s", cfg.ServerPort)
	if err := r.Run(":" + cfg.ServerPort); err != nil {
		logEntry.WithError(err).Fatal("failed to start server")
	}
}
