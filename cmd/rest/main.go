package main

import (
	"context"
	"log"

	"deep-nexus-be/internal/bootstrap"
	"deep-nexus-be/internal/config"
	"deep-nexus-be/internal/server"
	"deep-nexus-be/internal/tracer"
	"deep-nexus-be/pkg/database"
)

func main() {
	shutdownTracer := tracer.InitTracer()
	defer shutdownTracer(context.Background())

	cfg := config.Load()

	gormDB, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		log.Panicf("Unable to connect to GORM DB: %v", err)
	}

	container := bootstrap.NewContainer(gormDB, cfg)

	go func() {
		log.Println("Background: Starting Consumer Service...")
		if err := container.ConsumerService.Consume(context.Background()); err != nil {
			log.Printf("Background Consumer Error: %v", err)
		}
	}()

	if container.EventPublisher != nil {
		defer container.EventPublisher.Close()
	}

	srv := server.New(cfg, container)
	log.Fatal(srv.Run())
}
