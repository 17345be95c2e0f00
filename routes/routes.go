package routes

import (
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware" // Alias to avoid conflict
	"github.com/go-chi/cors"

	"github.com/Dosada05/pong-arena/handlers"
	"github.com/Dosada05/pong-arena/middleware"
	"github.com/Dosada05/pong-arena/services"
)

func InitRoutes(
	tournamentHandler *handlers.TournamentHandler,
	wsHandler *handlers.WebSocketHandler,
	resolver *services.IdentityResolver,
) *chi.Mux {
	router := chi.NewRouter()

	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Route("/tournaments", func(r chi.Router) {
		// Public routes for browsing tournaments.
		r.Get("/", tournamentHandler.ListHandler)
		r.Get("/{tournamentID}", tournamentHandler.GetByIDHandler)
		r.Get("/{tournamentID}/standings", tournamentHandler.StandingsHandler)
		r.Get("/{tournamentID}/matches", tournamentHandler.ListMatchesHandler)
		r.Get("/{tournamentID}/matches/{matchUID}", tournamentHandler.GetMatchHandler)

		// Registration is open to users and guests alike.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Identity(resolver))

			r.Post("/{tournamentID}/join", tournamentHandler.JoinHandler)
			r.Delete("/{tournamentID}/leave", tournamentHandler.LeaveHandler)
		})

		// Lifecycle operations require a registered user.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Identity(resolver))
			r.Use(middleware.RequireUser)

			r.Post("/", tournamentHandler.CreateHandler)
			r.Post("/{tournamentID}/start", tournamentHandler.StartHandler)
			r.Post("/{tournamentID}/cancel", tournamentHandler.CancelHandler)
			r.Post("/{tournamentID}/matches/{matchUID}/result", tournamentHandler.ReportResultHandler)
		})
	})

	// The websocket endpoint resolves identity itself so it can reject bad
	// tokens before the upgrade.
	router.Get("/ws", wsHandler.ServeWs)
	router.Get("/ws/rooms/{roomKey}", wsHandler.ServeWs)

	return router
}
