package httptransport

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"game-parlor/internal/ledger"
	"game-parlor/internal/store"
)

type AdminHandlers struct {
	store  *store.Store
	ledger *ledger.Ledger
}

func NewAdminHandlers(st *store.Store, ldg *ledger.Ledger) *AdminHandlers {
	return &AdminHandlers{store: st, ledger: ldg}
}

func (h *AdminHandlers) Wallet() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "user_id")
		wallet, err := h.store.GetWallet(r.Context(), userID)
		if err != nil {
			writeLedgerError(w, err)
			return
		}
		WriteJSON(w, wallet)
	}
}

func (h *AdminHandlers) Topup() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.adjust(w, r, true)
	}
}

func (h *AdminHandlers) Debit() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.adjust(w, r, false)
	}
}

func (h *AdminHandlers) adjust(w http.ResponseWriter, r *http.Request, credit bool) {
	var body struct {
		UserID string `json:"user_id"`
		Amount int64  `json:"amount"`
		Note   string `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		WriteHTTPError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if body.UserID == "" || body.Amount <= 0 {
		WriteHTTPError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	var wallet *store.Wallet
	var err error
	if credit {
		wallet, _, err = h.ledger.AdminCredit(r.Context(), body.UserID, body.Amount, body.Note)
	} else {
		wallet, _, err = h.ledger.AdminDebit(r.Context(), body.UserID, body.Amount, body.Note)
	}
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	WriteJSON(w, map[string]any{"user_id": body.UserID, "balance": wallet.Balance})
}

func (h *AdminHandlers) Freeze() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			UserID string `json:"user_id"`
			Frozen bool   `json:"frozen"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		if body.UserID == "" {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_request")
			return
		}
		wallet, err := h.store.SetWalletFrozen(r.Context(), body.UserID, body.Frozen)
		if err != nil {
			writeLedgerError(w, err)
			return
		}
		WriteJSON(w, map[string]any{"user_id": body.UserID, "frozen": wallet.Frozen()})
	}
}

func (h *AdminHandlers) Ledger() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, offset := ParsePagination(r)
		f := store.TransactionFilter{
			UserID: r.URL.Query().Get("user_id"),
			Type:   r.URL.Query().Get("type"),
			RoomID: r.URL.Query().Get("room_id"),
		}
		if v := r.URL.Query().Get("from"); v != "" {
			if t, err := time.Parse(time.RFC3339, v); err == nil {
				f.From = &t
			}
		}
		if v := r.URL.Query().Get("to"); v != "" {
			if t, err := time.Parse(time.RFC3339, v); err == nil {
				f.To = &t
			}
		}
		items, err := h.store.ListTransactions(r.Context(), f, limit, offset)
		if err != nil {
			WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		WriteJSON(w, map[string]any{"items": items, "limit": limit, "offset": offset})
	}
}

func (h *AdminHandlers) Rooms() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := h.store.ListActiveRooms(r.Context())
		if err != nil {
			WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		WriteJSON(w, map[string]any{"items": items})
	}
}

func (h *AdminHandlers) Settings() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		settings, err := h.store.AllSettings(r.Context())
		if err != nil {
			WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		WriteJSON(w, settings)
	}
}

func (h *AdminHandlers) PutSetting() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Key   string `json:"key"`
			Value string `json:"value"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		if body.Key == "" {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_request")
			return
		}
		if err := h.store.SetSetting(r.Context(), body.Key, body.Value); err != nil {
			WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		WriteJSON(w, map[string]any{"key": body.Key, "value": body.Value})
	}
}
