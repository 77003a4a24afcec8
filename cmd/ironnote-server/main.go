package main

import (
	"log"
	"os"

	"github.com/existflow/ironnote/internal/logger"
	"github.com/existflow/ironnote/server"
)

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	level := logger.INFO
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		level = logger.ParseLevel(v)
	}
	if err := logger.Init(logger.Config{Level: level, Console: true}); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Close()

	// empty DATABASE_URL keeps everything in memory
	srv, err := server.New(os.Getenv("DATABASE_URL"))
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}
	defer func() {
		if err := srv.Close(); err != nil {
			log.Printf("Error closing server: %v", err)
		}
	}()

	logger.Info("IronNote server starting", logger.F("port", port))
	if err := srv.Start(":" + port); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
