package bridge

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/salonpos/paxbridge/bridge/models"
	"github.com/salonpos/paxbridge/internal/license"
	"github.com/salonpos/paxbridge/internal/pax"
)

// API is a HTTP API for the bridge service
type API struct {
	bridge *Service
}

func NewAPI(bridge *Service) *API {
	return &API{
		bridge: bridge,
	}
}

func (a *API) AppendRoutes(r chi.Router) {
	r.Route("/terminals", func(r chi.Router) {
		r.Get("/", a.listTerminals)
		r.Route("/{terminalID}", func(r chi.Router) {
			r.Get("/", a.getTerminal)
			r.Post("/sale", a.sale)
		})
	})
	r.Post("/pax/proxy", a.proxy)
}

func (a *API) listTerminals(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.bridge.Terminals())
}

func (a *API) getTerminal(w http.ResponseWriter, r *http.Request) {
	terminalID := chi.URLParam(r, "terminalID")

	t, err := a.bridge.Terminal(terminalID)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	writeJSON(w, http.StatusOK, t)
}

func (a *API) sale(w http.ResponseWriter, r *http.Request) {
	terminalID := chi.URLParam(r, "terminalID")

	in := models.SaleInput{}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := a.bridge.Sale(r.Context(), terminalID, in)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// proxy always answers in the {success, response, error} shape the point of
// sale front end expects.
func (a *API) proxy(w http.ResponseWriter, r *http.Request) {
	req := models.ProxyRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ProxyResponse{Error: err.Error()})
		return
	}

	body, err := a.bridge.Proxy(r.Context(), req.IP, req.Port, req.Payload)
	if err != nil {
		writeJSON(w, statusFor(err), models.ProxyResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, models.ProxyResponse{Success: true, Response: body})
}

func statusFor(err error) int {
	var (
		ce *pax.ConfigurationError
		te *pax.TransportError
	)
	switch {
	case errors.As(err, &ce),
		errors.Is(err, ErrInvalidInput),
		errors.Is(err, pax.ErrNegativeAmount),
		errors.Is(err, pax.ErrReservedByte):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, license.ErrInvalid):
		return http.StatusForbidden
	case errors.Is(err, ErrBusy):
		return http.StatusConflict
	case errors.Is(err, pax.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.As(err, &te):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
