package httptransport

import (
	"expvar"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"courtside/internal/config"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

// NewRouter mounts the operator API, the admin catalog and the live stream.
// stream may be nil when the websocket feed is served elsewhere.
func NewRouter(catalog Catalog, sessions Sessions, stream http.Handler, cfg config.ServerConfig) *chi.Mux {
	gameHandlers := NewGameHandlers(catalog)
	sessionHandlers := NewSessionHandlers(sessions)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)

	r.With(APILogMiddleware()).Get("/healthz", gameHandlers.Health())
	if stream != nil {
		r.Handle("/ws", stream)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(APILogMiddleware())

		r.Route("/games/{game_id}", func(r chi.Router) {
			r.Get("/", gameHandlers.Get())
			r.Get("/stats", gameHandlers.Stats())

			r.Post("/session", sessionHandlers.Open())
			r.Get("/session", sessionHandlers.State())
			r.Delete("/session", sessionHandlers.Close())
			// Page-unload beacon: persists the clock without tearing the session down.
			r.Post("/session/checkpoint", sessionHandlers.Checkpoint())

			// Writes to the stat and roster record log request and response bodies.
			r.Group(func(r chi.Router) {
				r.Use(BodyCaptureMiddleware(4096))
				r.Post("/stats", sessionHandlers.RecordStat())
				r.Post("/undo", sessionHandlers.Undo())
				r.Post("/substitutions", sessionHandlers.Substitute())
				r.Post("/timeouts", sessionHandlers.StartTimeout())
			})
			r.Delete("/prompt", sessionHandlers.ClearPrompt())

			r.Post("/clock/start", sessionHandlers.StartClock())
			r.Post("/clock/stop", sessionHandlers.StopClock())
			r.Post("/clock/reset", sessionHandlers.ResetClock())
			r.Put("/clock", sessionHandlers.SetClock())

			r.Post("/shot-clock/start", sessionHandlers.StartShotClock())
			r.Post("/shot-clock/stop", sessionHandlers.StopShotClock())
			r.Post("/shot-clock/reset", sessionHandlers.ResetShotClock())
			r.Put("/shot-clock", sessionHandlers.SetShotClock())
			r.Post("/shot-clock/visibility", sessionHandlers.ToggleShotClock())

			r.Put("/quarter", sessionHandlers.SetQuarter())
			r.Post("/advance", sessionHandlers.Advance())

			r.Post("/timeouts/resume", sessionHandlers.ResumeTimeout())

			r.Put("/possession", sessionHandlers.SetPossession())
			r.Put("/possession/arrow", sessionHandlers.SetArrow())
			r.Post("/jump-ball", sessionHandlers.JumpBall())

			r.Post("/close", sessionHandlers.CloseGame())
			r.Post("/complete", sessionHandlers.Complete())

			r.Group(func(r chi.Router) {
				r.Use(AdminAuthMiddleware(cfg.AdminAPIKey))
				r.Put("/roster", gameHandlers.SetRoster())
				r.Put("/rules", gameHandlers.SetRules())
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(AdminAuthMiddleware(cfg.AdminAPIKey))
			r.Get("/games", gameHandlers.List())
			r.Post("/games", gameHandlers.Create())
			r.Post("/tournaments", gameHandlers.CreateTournament())
			r.Get("/debug/vars", expvar.Handler().ServeHTTP)
		})
	})
	return r
}

func LogRoutes(r chi.Router) {
	type routeDef struct {
		Method string
		Path   string
	}
	routes := make([]routeDef, 0, 64)
	err := chi.Walk(r, func(method string, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		routes = append(routes, routeDef{Method: method, Path: route})
		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("walk routes failed")
		return
	}
	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Path == routes[j].Path {
			return routes[i].Method < routes[j].Method
		}
		return routes[i].Path < routes[j].Path
	})
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Registered routes (%d):\n", len(routes)))
	for _, rt := range routes {
		b.WriteString(fmt.Sprintf("  %-6s %s\n", rt.Method, rt.Path))
	}
	log.Debug().Msg(b.String())
}
