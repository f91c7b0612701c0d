// Package handlers provides HTTP handlers for watchlist management.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/fatiainvest/screener/internal/modules/identity"
	"github.com/fatiainvest/screener/internal/modules/watchlist"
)

// Handler provides HTTP handlers for watchlist endpoints
type Handler struct {
	service *watchlist.Service
	log     zerolog.Logger
}

// NewHandler creates a new watchlist handler
func NewHandler(service *watchlist.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "watchlist").Logger(),
	}
}

// HandleList handles GET /api/watchlist
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	tickers, err := h.service.Tickers(identity.UserID(r.Context()))
	if err != nil {
		h.respondError(w, err, "Failed to list watchlist")
		return
	}
	h.writeJSON(w, tickers)
}

// HandleAdd handles POST /api/watchlist
func (h *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Ticker string `json:"ticker"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Ticker == "" {
		http.Error(w, "Ticker is required", http.StatusBadRequest)
		return
	}

	if err := h.service.Add(identity.UserID(r.Context()), body.Ticker); err != nil {
		h.respondError(w, err, "Failed to add to watchlist")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleRemove handles DELETE /api/watchlist/{ticker}
func (h *Handler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	ticker := chi.URLParam(r, "ticker")
	if ticker == "" {
		http.Error(w, "Ticker is required", http.StatusBadRequest)
		return
	}

	if err := h.service.Remove(identity.UserID(r.Context()), ticker); err != nil {
		h.respondError(w, err, "Failed to remove from watchlist")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// respondError maps a missing identity to 401 (the client shows a login
// prompt) and everything else to 500.
func (h *Handler) respondError(w http.ResponseWriter, err error, msg string) {
	if errors.Is(err, identity.ErrAuthRequired) {
		http.Error(w, "Authentication required", http.StatusUnauthorized)
		return
	}
	h.log.Error().Err(err).Msg(msg)
	http.Error(w, msg, http.StatusInternalServerError)
}

func (h *Handler) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode response")
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}
