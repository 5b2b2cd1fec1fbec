package httptransport

import (
	"encoding/json"
	"net/http"

	"game-parlor/internal/room"
	"game-parlor/internal/store"
)

type PublicHandlers struct {
	store *store.Store
	rooms *room.Manager
}

func NewPublicHandlers(st *store.Store, mgr *room.Manager) *PublicHandlers {
	return &PublicHandlers{store: st, rooms: mgr}
}

func (h *PublicHandlers) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h.store.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "db": "down"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "db": "up"})
	}
}

type roomSummary struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	GameType   string `json:"game_type"`
	HostID     string `json:"host_id"`
	Status     string `json:"status"`
	Players    int    `json:"players"`
	MaxPlayers int    `json:"max_players"`
	BetRoom    bool   `json:"bet_room"`
	BetAmount  int64  `json:"bet_amount,omitempty"`
}

// Rooms lists what is joinable right now, straight from the live
// registry rather than the persisted rows.
func (h *PublicHandlers) Rooms() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		live := h.rooms.List()
		items := make([]roomSummary, 0, len(live))
		for _, rm := range live {
			opts := rm.Options()
			items = append(items, roomSummary{
				ID:         rm.ID,
				Name:       opts.Name,
				GameType:   string(opts.GameType),
				HostID:     opts.HostID,
				Status:     rm.Status(),
				Players:    len(rm.Players()),
				MaxPlayers: opts.MaxPlayers,
				BetRoom:    opts.BetRoom,
				BetAmount:  opts.BetAmount,
			})
		}
		WriteJSON(w, map[string]any{"items": items})
	}
}

func (h *PublicHandlers) Leaderboard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, offset := ParsePagination(r)
		items, err := h.store.Leaderboard(r.Context(), limit, offset)
		if err != nil {
			WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		WriteJSON(w, map[string]any{"items": items, "limit": limit, "offset": offset})
	}
}
