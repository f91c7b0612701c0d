// Package handlers provides HTTP handlers for the screening endpoints.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/fatiainvest/screener/internal/clients/marketdata"
	"github.com/fatiainvest/screener/internal/modules/dividends"
	"github.com/fatiainvest/screener/internal/modules/identity"
	"github.com/fatiainvest/screener/internal/modules/screener"
	"github.com/fatiainvest/screener/internal/modules/valuation"
)

// DividendSource fetches a dividend ledger from the provider on demand.
type DividendSource interface {
	GetDividendHistory(ctx context.Context, ticker string) ([]dividends.Entry, error)
}

// Handler provides HTTP handlers for screening endpoints
type Handler struct {
	service      *screener.Service
	dividendRepo *dividends.Repository
	source       DividendSource
	prefs        *identity.PreferenceRepository
	log          zerolog.Logger
}

// NewHandler creates a new screener handler
func NewHandler(
	service *screener.Service,
	dividendRepo *dividends.Repository,
	source DividendSource,
	prefs *identity.PreferenceRepository,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		service:      service,
		dividendRepo: dividendRepo,
		source:       source,
		prefs:        prefs,
		log:          log.With().Str("handler", "screener").Logger(),
	}
}

// stateResponse is the wire shape of a session's screening state.
// AuthRequired distinguishes "login required" from a genuinely empty list.
type stateResponse struct {
	Search       string          `json:"search"`
	Mode         string          `json:"mode"`
	Profile      string          `json:"profile"`
	Focused      string          `json:"focused,omitempty"`
	AuthRequired bool            `json:"auth_required"`
	Equities     []screener.View `json:"equities"`
}

func toResponse(state screener.State) stateResponse {
	equities := state.Visible
	if equities == nil {
		equities = []screener.View{}
	}
	return stateResponse{
		Search:       state.Search,
		Mode:         string(state.Mode),
		Profile:      state.Profile.String(),
		Focused:      state.Focused,
		AuthRequired: state.AuthRequired,
		Equities:     equities,
	}
}

// HandleState handles GET /api/equities
func (h *Handler) HandleState(w http.ResponseWriter, r *http.Request) {
	state, err := h.service.State(identity.SessionKey(r.Context()), identity.UserID(r.Context()))
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to compute screening state")
		http.Error(w, "Failed to load equities", http.StatusBadGateway)
		return
	}
	h.writeJSON(w, toResponse(state))
}

// HandleSearch handles PUT /api/session/search
func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Term string `json:"term"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	state, err := h.service.SetSearch(identity.SessionKey(r.Context()), identity.UserID(r.Context()), body.Term)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to apply search term")
		http.Error(w, "Failed to apply search", http.StatusBadGateway)
		return
	}
	h.writeJSON(w, toResponse(state))
}

// HandleFilter handles PUT /api/session/filter
func (h *Handler) HandleFilter(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Mode string `json:"mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	mode, ok := screener.ParseFilterMode(body.Mode)
	if !ok {
		http.Error(w, "Unknown filter mode", http.StatusBadRequest)
		return
	}

	state, err := h.service.SetMode(identity.SessionKey(r.Context()), identity.UserID(r.Context()), mode)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to apply filter mode")
		http.Error(w, "Failed to apply filter", http.StatusBadGateway)
		return
	}
	h.writeJSON(w, toResponse(state))
}

// HandleProfile handles PUT /api/session/profile
// The preference is persisted for authenticated users before the session
// recomputes; anonymous sessions change profile for the session only.
func (h *Handler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Profile string `json:"profile"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	profile := valuation.ParseProfile(body.Profile)

	userID := identity.UserID(r.Context())
	if userID != "" {
		if err := h.prefs.SetInvestorProfile(userID, profile); err != nil {
			h.log.Error().Err(err).Msg("Failed to persist investor profile")
			http.Error(w, "Failed to save profile", http.StatusInternalServerError)
			return
		}
	}

	state, err := h.service.SetProfile(identity.SessionKey(r.Context()), userID, profile)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to apply investor profile")
		http.Error(w, "Failed to apply profile", http.StatusBadGateway)
		return
	}
	h.writeJSON(w, toResponse(state))
}

// HandleSelect handles PUT /api/session/select
func (h *Handler) HandleSelect(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Ticker string `json:"ticker"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	state, err := h.service.Click(identity.SessionKey(r.Context()), identity.UserID(r.Context()), body.Ticker)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to apply selection")
		http.Error(w, "Failed to select equity", http.StatusBadGateway)
		return
	}
	h.writeJSON(w, toResponse(state))
}

// HandleDetail handles GET /api/equities/{ticker}
func (h *Handler) HandleDetail(w http.ResponseWriter, r *http.Request) {
	ticker := chi.URLParam(r, "ticker")
	view, err := h.service.Detail(identity.SessionKey(r.Context()), identity.UserID(r.Context()), ticker)
	if err != nil {
		h.log.Error().Err(err).Str("ticker", ticker).Msg("Failed to load equity detail")
		http.Error(w, "Failed to load equity", http.StatusBadGateway)
		return
	}
	if view == nil {
		http.Error(w, "Equity not found", http.StatusNotFound)
		return
	}
	h.writeJSON(w, view)
}

// HandleDividends handles GET /api/equities/{ticker}/dividends
// Serves the cached ledger when present, otherwise fetches from the provider
// and stores it. A response superseded by a newer request is dropped.
func (h *Handler) HandleDividends(w http.ResponseWriter, r *http.Request) {
	ticker := chi.URLParam(r, "ticker")

	history, err := h.dividendRepo.GetHistory(ticker)
	if err != nil {
		h.log.Error().Err(err).Str("ticker", ticker).Msg("Failed to load dividend history")
		http.Error(w, "Failed to load dividends", http.StatusInternalServerError)
		return
	}

	if len(history) == 0 && h.source != nil {
		history, err = h.source.GetDividendHistory(r.Context(), ticker)
		if errors.Is(err, marketdata.ErrSuperseded) {
			// A newer request for this panel is already in flight; this
			// response must not be rendered.
			w.WriteHeader(http.StatusConflict)
			return
		}
		if err != nil {
			h.log.Warn().Err(err).Str("ticker", ticker).Msg("Provider dividend fetch failed")
			http.Error(w, "Failed to fetch dividends", http.StatusBadGateway)
			return
		}
		if err := h.dividendRepo.ReplaceHistory(ticker, history); err != nil {
			h.log.Warn().Err(err).Str("ticker", ticker).Msg("Failed to cache dividend history")
		}
	}

	if history == nil {
		history = []dividends.Entry{}
	}
	h.writeJSON(w, history)
}

// HandleSectors handles GET /api/sectors
func (h *Handler) HandleSectors(w http.ResponseWriter, r *http.Request) {
	sectors, err := h.service.Sectors()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to load sectors")
		http.Error(w, "Failed to load sectors", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, sectors)
}

func (h *Handler) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode response")
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}
