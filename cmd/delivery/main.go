package main

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/saan-system/dispatch/internal/delivery"
	"github.com/saan-system/dispatch/internal/domain/entity"
	"github.com/saan-system/dispatch/internal/platform/auth"
	"github.com/saan-system/dispatch/internal/platform/config"
	"github.com/saan-system/dispatch/internal/platform/database"
	"github.com/saan-system/dispatch/internal/platform/events"
	"github.com/saan-system/dispatch/internal/platform/hub"
	"github.com/saan-system/dispatch/internal/platform/logger"
	"github.com/saan-system/dispatch/internal/platform/routingclient"
	"github.com/saan-system/dispatch/internal/platform/tspclient"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using system environment variables")
	}

	cfg := config.Load()
	log := logger.New("delivery")

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}
	defer db.Close()

	var publisher events.Publisher
	if kafkaBrokers := cfg.KafkaBrokers(); len(kafkaBrokers) > 0 {
		kp := events.NewKafkaPublisher(kafkaBrokers, "dispatch-events", "delivery")
		defer kp.Close()
		publisher = kp
	} else {
		publisher = events.NoOpPublisher{}
	}

	repo := database.NewParcelRepository(db)
	routing := routingclient.New(cfg.RoutingEngineURL)
	tsp := tspclient.New(cfg.TSPAdapterURL)
	hubState := hub.New()
	verifier := auth.NewVerifier(cfg.JWTSecret)
	loc := cfg.Location()

	hubLocation := entity.Location{Lat: cfg.HubLat, Lon: cfg.HubLon, Name: cfg.HubName}

	service := delivery.NewService(repo, routing, tsp, hubState, publisher, hubLocation, loc, log)
	handler := delivery.NewHandler(service, loc)

	r := gin.Default()
	r.GET("/health", func(c *gin.Context) { c.JSON(200, gin.H{"status": "ok", "service": "delivery"}) })
	delivery.RegisterRoutes(r, handler, verifier)

	log.Infof("delivery dispatcher starting on port %s", cfg.ServerPort)
	if err := r.Run(":" + cfg.ServerPort); err != nil {
		log.WithError(err).Fatal("failed to start server")
	}
}
