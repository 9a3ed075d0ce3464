package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/openwheels/openwheels-be/internal/api/handlers"
	"github.com/openwheels/openwheels-be/internal/auth"
	"github.com/openwheels/openwheels-be/internal/monitoring"
	"github.com/openwheels/openwheels-be/internal/services"
	"github.com/openwheels/openwheels-be/internal/websocket"
)

// Deps carries everything the router wires into handlers.
type Deps struct {
	Hub         *websocket.Hub
	AuthService services.AuthServiceProvider
	UserService services.UserServiceProvider
	VehicleSvc  services.VehicleServiceProvider
	SearchSvc   services.SearchServiceProvider
	EventSvc    services.EventServiceProvider
	StatUpdater *monitoring.StatUpdater
	CORSOrigin  string
}

// NewRouter creates and configures a new Chi router. Catalog reads are
// public; account reads require authentication; every mutation goes behind
// the token middleware and through the ownership gate in the services.
func NewRouter(d Deps) *chi.Mux {
	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{d.CORSOrigin},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	authHandler := handlers.NewAuthHandler(d.AuthService, d.EventSvc)
	userHandler := handlers.NewUserHandler(d.UserService, d.EventSvc)
	vehicleHandler := handlers.NewVehicleHandler(d.VehicleSvc, d.EventSvc)
	imageHandler := handlers.NewImageHandler(d.VehicleSvc, d.EventSvc)
	searchHandler := handlers.NewSearchHandler(d.SearchSvc)
	eventHandler := handlers.NewEventHandler(d.EventSvc)
	statusHandler := handlers.NewStatusHandler(d.StatUpdater)
	wsHandler := handlers.NewWebSocketHandler(d.Hub)

	requireAuth := auth.Middleware(d.AuthService)

	r.Route("/api/v1", func(r chi.Router) {
		// Live activity feed
		r.Get("/ws", wsHandler.Serve)
		r.Get("/ws/vehicles/{id}", wsHandler.Serve)

		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/signup", authHandler.Signup)

		r.Route("/users", func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/", userHandler.GetAll)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", userHandler.Get)
				r.Put("/", userHandler.Update)
				r.Delete("/", userHandler.Delete)
			})
		})

		r.Route("/vehicles", func(r chi.Router) {
			r.Get("/", vehicleHandler.GetAll)
			r.Get("/search", searchHandler.Search)
			r.Get("/makes", searchHandler.Makes)
			r.Get("/makes/{make}/models", searchHandler.ModelsForMake)
			r.Get("/{id}", vehicleHandler.Get)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Post("/", vehicleHandler.Create)
				r.Put("/{id}", vehicleHandler.Update)
				r.Delete("/{id}", vehicleHandler.Delete)
				r.Post("/{id}/images", imageHandler.Upload)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Delete("/images/{id}", imageHandler.Delete)
		})

		r.Get("/events", eventHandler.GetRecent)
		r.Get("/status", statusHandler.Get)
	})

	return r
}
