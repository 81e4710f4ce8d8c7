package bridge_test

import (
	"bytes"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"

	"github.com/salonpos/paxbridge/bridge"
	"github.com/salonpos/paxbridge/bridge/models"
	"github.com/salonpos/paxbridge/internal/pax"
	"github.com/salonpos/paxbridge/internal/paxsim"
)

func hostPort(t *testing.T, url string) (string, string) {
	t.Helper()
	host, port, err := net.SplitHostPort(strings.TrimPrefix(url, "http://"))
	require.NoError(t, err)
	return host, port
}

func newRouter(t *testing.T, terminals map[string]*httptest.Server, timeout time.Duration) chi.Router {
	t.Helper()
	cfg := bridge.DefaultConfig()
	cfg.DefaultTimeout = timeout
	for id, srv := range terminals {
		ip, port := hostPort(t, srv.URL)
		cfg.Terminals = append(cfg.Terminals, bridge.TerminalConfig{ID: id, IP: ip, Port: port})
	}

	registry, err := bridge.LoadRegistry(slog.Default(), cfg)
	require.NoError(t, err)

	router := chi.NewRouter()
	bridge.NewAPI(bridge.NewService(slog.Default(), registry, cfg)).AppendRoutes(router)
	return router
}

func postJSON(router http.Handler, path string, v any) *httptest.ResponseRecorder {
	b, _ := json.Marshal(v)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, path, bytes.NewBuffer(b)))
	return w
}

func TestAPI_Terminals(t *testing.T) {
	srv := httptest.NewServer(paxsim.New(slog.Default()))
	defer srv.Close()

	router := newRouter(t, map[string]*httptest.Server{"front": srv, "back": srv}, time.Minute)

	t.Run("list", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/terminals/", nil))
		require.Equal(t, http.StatusOK, w.Code)

		var list []models.Terminal
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
		require.Len(t, list, 2)
		require.Equal(t, "back", list[0].ID)
		require.Equal(t, "front", list[1].ID)
		require.Equal(t, "1m0s", list[0].Timeout)
	})

	t.Run("get", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/terminals/front", nil))
		require.Equal(t, http.StatusOK, w.Code)

		var term models.Terminal
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &term))
		ip, port := hostPort(t, srv.URL)
		require.Equal(t, ip, term.IP)
		require.Equal(t, port, term.Port)
		require.False(t, term.Licensed)
	})

	t.Run("unknown", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/terminals/nope", nil))
		require.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestAPI_Sale(t *testing.T) {
	approving := paxsim.New(slog.Default())
	approvingSrv := httptest.NewServer(approving)
	defer approvingSrv.Close()

	declining := paxsim.New(slog.Default())
	declining.ResponseCode = "100001"
	declining.Message = "DECLINE"
	decliningSrv := httptest.NewServer(declining)
	defer decliningSrv.Close()

	garbled := paxsim.New(slog.Default())
	garbled.Respond = func(*pax.DecodedRequest) [][]string { return [][]string{{"0"}, {"T01"}} }
	garbledSrv := httptest.NewServer(garbled)
	defer garbledSrv.Close()

	router := newRouter(t, map[string]*httptest.Server{
		"approve": approvingSrv,
		"decline": decliningSrv,
		"garbled": garbledSrv,
	}, time.Minute)

	t.Run("approved", func(t *testing.T) {
		w := postJSON(router, "/terminals/approve/sale", models.SaleInput{
			Amount:        decimal.RequireFromString("19.99"),
			InvoiceNumber: "INV-9",
		})
		require.Equal(t, http.StatusOK, w.Code)

		var result models.SaleResult
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
		require.Equal(t, models.OutcomeApproved, result.Outcome)
		require.True(t, result.Approved)
		require.Equal(t, "19.99", result.Amount)
		require.Equal(t, "12/30", result.CardFace)
		require.Equal(t, "TEST CARD", result.CardHolder)
		require.NotEmpty(t, result.ID)
		require.Equal(t, "4242", result.Response.CardLast4)

		require.Equal(t, "1999", approving.LastRequest().Fields.Get("TransactionAmount"))
		require.Equal(t, "INV-9", approving.LastRequest().Fields.Get("InvoiceNumber"))
	})

	t.Run("amount as string", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/terminals/approve/sale", strings.NewReader(`{"amount":"5.5"}`)))
		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, "550", approving.LastRequest().Fields.Get("TransactionAmount"))
	})

	t.Run("declined", func(t *testing.T) {
		w := postJSON(router, "/terminals/decline/sale", models.SaleInput{Amount: decimal.NewFromInt(3)})
		require.Equal(t, http.StatusOK, w.Code)

		var result models.SaleResult
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
		require.Equal(t, models.OutcomeDeclined, result.Outcome)
		require.False(t, result.Approved)
		require.Equal(t, "DECLINE", result.Response.ResponseMessage)
	})

	t.Run("inconclusive", func(t *testing.T) {
		w := postJSON(router, "/terminals/garbled/sale", models.SaleInput{Amount: decimal.NewFromInt(3)})
		require.Equal(t, http.StatusOK, w.Code)

		var result models.SaleResult
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
		require.Equal(t, models.OutcomeInconclusive, result.Outcome)
		require.False(t, result.Approved)
	})

	t.Run("bad body", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/terminals/approve/sale", strings.NewReader("{")))
		require.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("negative amount", func(t *testing.T) {
		hits := approving.Hits()
		w := postJSON(router, "/terminals/approve/sale", models.SaleInput{Amount: decimal.NewFromInt(-1)})
		require.Equal(t, http.StatusBadRequest, w.Code)
		require.Equal(t, hits, approving.Hits())
	})

	t.Run("reserved byte in invoice", func(t *testing.T) {
		w := postJSON(router, "/terminals/approve/sale", models.SaleInput{Amount: decimal.NewFromInt(1), InvoiceNumber: "A\x1cB"})
		require.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown terminal", func(t *testing.T) {
		w := postJSON(router, "/terminals/nope/sale", models.SaleInput{Amount: decimal.NewFromInt(1)})
		require.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestAPI_SaleTransportFailures(t *testing.T) {
	slow := paxsim.New(slog.Default())
	slow.Delay = 3 * time.Second
	slowSrv := httptest.NewServer(slow)
	defer slowSrv.Close()

	gone := httptest.NewServer(http.NotFoundHandler())
	gone.Close()

	router := newRouter(t, map[string]*httptest.Server{"slow": slowSrv, "gone": gone}, 100*time.Millisecond)

	w := postJSON(router, "/terminals/slow/sale", models.SaleInput{Amount: decimal.NewFromInt(1)})
	require.Equal(t, http.StatusGatewayTimeout, w.Code)

	w = postJSON(router, "/terminals/gone/sale", models.SaleInput{Amount: decimal.NewFromInt(1)})
	require.Equal(t, http.StatusBadGateway, w.Code)
}

func TestAPI_Proxy(t *testing.T) {
	sim := paxsim.New(slog.Default())
	srv := httptest.NewServer(sim)
	defer srv.Close()

	router := newRouter(t, nil, time.Minute)
	ip, port := hostPort(t, srv.URL)

	frame, err := pax.NewSaleFrame(pax.SaleRequest{Amount: decimal.RequireFromString("7.25")})
	require.NoError(t, err)
	env, err := frame.Envelope()
	require.NoError(t, err)

	t.Run("forwards envelope", func(t *testing.T) {
		w := postJSON(router, "/pax/proxy", models.ProxyRequest{IP: ip, Port: port, Payload: env})
		require.Equal(t, http.StatusOK, w.Code)

		var out models.ProxyResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
		require.True(t, out.Success)
		require.Empty(t, out.Error)

		resp := pax.ParseResponse([]byte(out.Response))
		require.True(t, resp.LRCValid)
		require.Equal(t, paxsim.ResponseCodeApproved, resp.ResponseCode)
		require.Equal(t, "725", sim.LastRequest().Fields.Get("TransactionAmount"))
	})

	t.Run("missing payload", func(t *testing.T) {
		w := postJSON(router, "/pax/proxy", models.ProxyRequest{IP: ip, Port: port})
		require.Equal(t, http.StatusBadRequest, w.Code)

		var out models.ProxyResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
		require.False(t, out.Success)
		require.NotEmpty(t, out.Error)
	})

	t.Run("bad address", func(t *testing.T) {
		w := postJSON(router, "/pax/proxy", models.ProxyRequest{IP: "", Port: port, Payload: env})
		require.Equal(t, http.StatusBadRequest, w.Code)

		w = postJSON(router, "/pax/proxy", models.ProxyRequest{IP: ip, Port: "99999", Payload: env})
		require.Equal(t, http.StatusBadRequest, w.Code)
	})
}
