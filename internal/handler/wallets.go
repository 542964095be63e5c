package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/lessonwire/core/internal/model"
)

// WalletReader is the read-side slice of the store the wallet endpoints need.
type WalletReader interface {
	GetWallet(ctx context.Context, userID int64) (*model.Wallet, error)
	ListTransactions(ctx context.Context, userID int64, limit int) ([]*model.Transaction, error)
}

func (h *Handler) GetWallet(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userID")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid user id"})
		return
	}

	wallet, err := h.wallets.GetWallet(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, wallet)
}

func (h *Handler) ListWalletTransactions(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userID")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid user id"})
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 500 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid limit"})
			return
		}
		limit = n
	}

	entries, err := h.wallets.ListTransactions(r.Context(), userID, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if entries == nil {
		entries = []*model.Transaction{}
	}
	writeJSON(w, http.StatusOK, entries)
}
