// Package httptransport mounts the REST surface: public room and
// leaderboard listings, per-user wallet operations, the admin plane
// and the websocket upgrade endpoint.
package httptransport

import (
	"expvar"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"game-parlor/internal/config"
	"game-parlor/internal/ledger"
	"game-parlor/internal/room"
	"game-parlor/internal/store"
	"game-parlor/internal/ws"
)

func NewRouter(st *store.Store, ldg *ledger.Ledger, mgr *room.Manager, hub *ws.Server, cfg config.ServerConfig) *chi.Mux {
	publicHandlers := NewPublicHandlers(st, mgr)
	userHandlers := NewUserHandlers(st, ldg, cfg)
	adminHandlers := NewAdminHandlers(st, ldg)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)

	r.With(APILogMiddleware()).Get("/healthz", publicHandlers.Health())
	r.Get("/ws", hub.HandleWS)

	r.Route("/api", func(r chi.Router) {
		r.Use(APILogMiddleware())
		r.Get("/public/rooms", publicHandlers.Rooms())
		r.Get("/public/leaderboard", publicHandlers.Leaderboard())

		r.Group(func(r chi.Router) {
			r.Use(UserAuthMiddleware())
			r.Get("/me/balance", userHandlers.Balance())
			r.Get("/me/transactions", userHandlers.Transactions())
			r.Get("/me/history", userHandlers.BalanceHistory())
			r.Post("/me/claim/daily", userHandlers.ClaimDaily())
			r.Post("/me/claim/weekly", userHandlers.ClaimWeekly())
			r.Post("/me/transfer", userHandlers.Transfer())
		})

		r.Group(func(r chi.Router) {
			r.Use(AdminAuthMiddleware(cfg.AdminAPIKey))
			r.Get("/wallets/{user_id}", adminHandlers.Wallet())
			r.Post("/topup", adminHandlers.Topup())
			r.Post("/debit", adminHandlers.Debit())
			r.Post("/freeze", adminHandlers.Freeze())
			r.Get("/ledger", adminHandlers.Ledger())
			r.Get("/rooms", adminHandlers.Rooms())
			r.Get("/settings", adminHandlers.Settings())
			r.Put("/settings", adminHandlers.PutSetting())
			r.Get("/debug/vars", expvar.Handler().ServeHTTP)
		})
	})

	return r
}

// LogRoutes prints the mounted routes at startup.
func LogRoutes(r chi.Router) {
	err := chi.Walk(r, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		log.Debug().Str("method", method).Str("route", route).Msg("route")
		return nil
	})
	if err != nil {
		log.Warn().Err(err).Msg("route walk failed")
	}
}
