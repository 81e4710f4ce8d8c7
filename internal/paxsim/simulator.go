// Package paxsim is a stand-in for a PAX terminal's HTTP listener. It checks
// every request frame the way the device does and answers with a canned T01.
package paxsim

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/slog"

	"github.com/salonpos/paxbridge/internal/pax"
)

const (
	ResponseCodeApproved = "000000"
	MessageApproved      = "APPROVED"

	simulatedAccount = "************4242"
	simulatedExpiry  = "1230"
	simulatedCard    = "01"
	simulatedHolder  = "TEST CARD"
)

var responseCommands = map[string]string{
	pax.CommandSale: "T01",
}

type Simulator struct {
	// ResponseCode and Message default to an approval.
	ResponseCode string
	Message      string
	// Delay holds the answer back, as a customer fumbling with a card would.
	Delay time.Duration
	// Respond, when set, replaces the canned response groups.
	Respond func(req *pax.DecodedRequest) [][]string

	logger *slog.Logger

	mu   sync.Mutex
	last *pax.DecodedRequest
	hits int
}

func New(logger *slog.Logger) *Simulator {
	return &Simulator{
		ResponseCode: ResponseCodeApproved,
		Message:      MessageApproved,
		logger:       logger.With(slog.String("component", "paxsim")),
	}
}

func (s *Simulator) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	req, err := pax.DecodeRequest(r.URL.RawQuery)
	if err != nil {
		s.logger.Warn("rejecting request frame", "err", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !req.LRCValid {
		s.logger.Warn("lrc mismatch", slog.Int("lrc", int(req.LRC)))
		http.Error(w, "lrc mismatch", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.hits++
	hit := s.hits
	s.last = req
	s.mu.Unlock()

	s.logger.Info("request accepted",
		slog.String("command", req.Command),
		slog.String("amount", req.Fields.Get("TransactionAmount")),
		slog.String("invoice", req.Fields.Get("InvoiceNumber")),
	)

	if s.Delay > 0 {
		select {
		case <-time.After(s.Delay):
		case <-r.Context().Done():
			s.logger.Info("caller gave up waiting")
			return
		}
	}

	groups := s.respond(req, hit)
	w.Write([]byte(pax.EncodeResponse(groups)))
}

func (s *Simulator) respond(req *pax.DecodedRequest, hit int) [][]string {
	if s.Respond != nil {
		return s.Respond(req)
	}

	command, ok := responseCommands[req.Command]
	if !ok {
		command = req.Command
	}

	return [][]string{
		{"0"},
		{command},
		{req.Version},
		{s.ResponseCode},
		{s.Message},
		{"00", s.Message, fmt.Sprintf("%06d", hit), hostReference(), strconv.Itoa(hit), "1"},
		{req.TransactionType},
		{req.Fields.Get("TransactionAmount"), "0"},
		{simulatedAccount, "4", simulatedExpiry, "", "", "", simulatedCard, simulatedHolder},
		{strconv.Itoa(hit), req.Fields.Get("ReferenceNumber"), time.Now().Format("20060102150405")},
	}
}

func hostReference() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
}

// LastRequest returns the most recent accepted frame, or nil.
func (s *Simulator) LastRequest() *pax.DecodedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func (s *Simulator) Hits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits
}
