package httptransport

import (
	"encoding/json"
	"errors"
	"net/http"

	"game-parlor/internal/config"
	"game-parlor/internal/ledger"
	"game-parlor/internal/store"
)

type UserHandlers struct {
	store  *store.Store
	ledger *ledger.Ledger
	cfg    config.ServerConfig
}

func NewUserHandlers(st *store.Store, ldg *ledger.Ledger, cfg config.ServerConfig) *UserHandlers {
	return &UserHandlers{store: st, ledger: ldg, cfg: cfg}
}

func (h *UserHandlers) Balance() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _ := UserFromContext(r.Context())
		wallet, err := h.store.GetWallet(r.Context(), userID)
		if err != nil {
			writeLedgerError(w, err)
			return
		}
		WriteJSON(w, map[string]any{
			"user_id": userID,
			"balance": wallet.Balance,
			"frozen":  wallet.Frozen(),
		})
	}
}

func (h *UserHandlers) Transactions() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _ := UserFromContext(r.Context())
		limit, offset := ParsePagination(r)
		f := store.TransactionFilter{UserID: userID, Type: r.URL.Query().Get("type")}
		items, err := h.store.ListTransactions(r.Context(), f, limit, offset)
		if err != nil {
			WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		WriteJSON(w, map[string]any{"items": items, "limit": limit, "offset": offset})
	}
}

func (h *UserHandlers) BalanceHistory() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _ := UserFromContext(r.Context())
		limit, _ := ParsePagination(r)
		points, err := h.ledger.History(r.Context(), userID, limit)
		if err != nil {
			WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		WriteJSON(w, map[string]any{"items": points})
	}
}

func (h *UserHandlers) ClaimDaily() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _ := UserFromContext(r.Context())
		wallet, rec, err := h.ledger.DailyClaim(r.Context(), userID, h.cfg.DailyClaimBase, h.cfg.DailyClaimBonus)
		if err != nil {
			writeLedgerError(w, err)
			return
		}
		WriteJSON(w, map[string]any{
			"balance": wallet.Balance,
			"amount":  rec.Amount,
			"streak":  wallet.ClaimStreak,
		})
	}
}

func (h *UserHandlers) ClaimWeekly() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _ := UserFromContext(r.Context())
		wallet, rec, err := h.ledger.WeeklyBonus(r.Context(), userID, h.cfg.WeeklyBonus)
		if err != nil {
			writeLedgerError(w, err)
			return
		}
		WriteJSON(w, map[string]any{"balance": wallet.Balance, "amount": rec.Amount})
	}
}

func (h *UserHandlers) Transfer() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _ := UserFromContext(r.Context())
		var body struct {
			ToUserID string `json:"to_user_id"`
			Amount   int64  `json:"amount"`
			Note     string `json:"note"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		if body.ToUserID == "" || body.Amount <= 0 {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_request")
			return
		}
		rec, err := h.ledger.Transfer(r.Context(), userID, body.ToUserID, body.Amount, body.Note)
		if err != nil {
			writeLedgerError(w, err)
			return
		}
		WriteJSON(w, map[string]any{"transaction": rec})
	}
}

// writeLedgerError maps money-path failures onto statuses; the body
// always carries the stable code.
func writeLedgerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		WriteHTTPError(w, http.StatusNotFound, "not_found")
	case errors.Is(err, store.ErrInsufficientBalance):
		WriteHTTPError(w, http.StatusConflict, "insufficient_balance")
	case errors.Is(err, store.ErrWalletFrozen):
		WriteHTTPError(w, http.StatusForbidden, "wallet_frozen")
	case errors.Is(err, store.ErrDailyClaimed):
		WriteHTTPError(w, http.StatusConflict, "daily_already_claimed")
	case errors.Is(err, store.ErrWeeklyClaimed):
		WriteHTTPError(w, http.StatusConflict, "weekly_bonus_not_ready")
	case errors.Is(err, ledger.ErrTransferLimit):
		WriteHTTPError(w, http.StatusBadRequest, "transfer_limit_exceeded")
	case errors.Is(err, store.ErrSelfTransfer):
		WriteHTTPError(w, http.StatusBadRequest, "self_transfer")
	default:
		WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
	}
}
