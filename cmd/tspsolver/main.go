package main

import (
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/saan-system/dispatch/internal/platform/config"
	"github.com/saan-system/dispatch/internal/platform/logger"
	"github.com/saan-system/dispatch/internal/tspsolver"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using system environment variables")
	}

	cfg := config.Load()
	log := logger.New("tspsolver")

	executablePath := os.Getenv("LKH_EXECUTABLE")
	if executablePath == "" {
		executablePath = "/usr/local/bin/LKH"
	}

	solver := tspsolver.New(executablePath)
	handler := tspsolver.NewHandler(solver)

	r := gin.Default()
	tspsolver.RegisterRoutes(r, handler)

	log.Infof("tsp solver adapter starting on port %s", cfg.ServerPort)
	if err := r.Run(":" + cfg.ServerPort); err != nil {
		log.WithError(err).Fatal("failed to start server")
	}
}
