package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/openwheels/openwheels-be/internal/api"
	"github.com/openwheels/openwheels-be/internal/config"
	"github.com/openwheels/openwheels-be/internal/database"
	"github.com/openwheels/openwheels-be/internal/logger"
	"github.com/openwheels/openwheels-be/internal/monitoring"
	"github.com/openwheels/openwheels-be/internal/seed"
	"github.com/openwheels/openwheels-be/internal/services"
	"github.com/openwheels/openwheels-be/internal/storage"
	"github.com/openwheels/openwheels-be/internal/websocket"
)

func main() {
	seedFlag := flag.Bool("seed", false, "seed the database with demo data and exit")
	flag.Parse()

	logger.Init()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Set up database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply database migrations")
	}

	// Set up the image blob store
	blobs, err := storage.NewDiskStore(cfg.ImageDataPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize image storage")
	}

	// Set up WebSocket Hub
	hub := websocket.NewHub()
	go hub.Run()

	// Set up services
	eventService := services.NewEventService(db, hub)
	userService := services.NewUserService(db, blobs)
	vehicleService := services.NewVehicleService(db, blobs)
	searchService := services.NewSearchService(db)
	authService := services.NewAuthService(db)

	if *seedFlag {
		if err := seed.Run(userService, vehicleService); err != nil {
			log.Fatal().Err(err).Msg("Failed to seed database")
		}
		return
	}

	// Set up and run the background stats updater
	statUpdater := monitoring.NewStatUpdater(db, hub)
	go statUpdater.Run()

	// Set up and run the scheduled marketplace report
	reporter, err := monitoring.NewReporter(db, eventService, cfg.ReportCron)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to set up report scheduler")
	}
	go reporter.Run()

	// Set up router
	router := api.NewRouter(api.Deps{
		Hub:         hub,
		AuthService: authService,
		UserService: userService,
		VehicleSvc:  vehicleService,
		SearchSvc:   searchService,
		EventSvc:    eventService,
		StatUpdater: statUpdater,
		CORSOrigin:  cfg.CORSOrigin,
	})

	// Set up server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.ServerPort),
		Handler: router,
	}

	// Graceful shutdown
	go func() {
		log.Info().Int("port", cfg.ServerPort).Msg("Server starting")
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("ListenAndServe()")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	statUpdater.Stop()
	reporter.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exiting")
}
