package bridge

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/slog"

	"github.com/salonpos/paxbridge/bridge/models"
	"github.com/salonpos/paxbridge/internal/expiry"
	"github.com/salonpos/paxbridge/internal/pax"
	"github.com/salonpos/paxbridge/terminal"
)

var (
	ErrBusy         = errors.New("terminal busy")
	ErrInvalidInput = errors.New("invalid input")
)

const approvedResponseCode = "000000"

// Service owns the terminals. A terminal runs one transaction at a time, so
// every exchange takes the per-address slot first, whichever route it came
// in through.
type Service struct {
	registry *Registry
	cfg      *Config
	http     *http.Client
	logger   *slog.Logger
	now      func() time.Time

	mu    sync.Mutex
	slots map[string]*slot
}

func NewService(logger *slog.Logger, registry *Registry, cfg *Config) *Service {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Service{
		registry: registry,
		cfg:      cfg,
		http:     terminal.NewHTTPClient(),
		logger:   logger.With(slog.String("component", "bridge")),
		now:      time.Now,
		slots:    make(map[string]*slot),
	}
}

func (s *Service) Terminals() []models.Terminal {
	ids := s.registry.List()
	out := make([]models.Terminal, 0, len(ids))
	for _, id := range ids {
		if t, err := s.Terminal(id); err == nil {
			out = append(out, *t)
		}
	}
	return out
}

func (s *Service) Terminal(id string) (*models.Terminal, error) {
	client, err := s.registry.Get(id)
	if err != nil {
		return nil, err
	}
	cfg := client.Config()
	return &models.Terminal{
		ID:       id,
		IP:       cfg.IP,
		Port:     cfg.Port,
		Timeout:  cfg.Timeout.String(),
		Licensed: cfg.LicenseKey != "",
	}, nil
}

func (s *Service) Sale(ctx context.Context, terminalID string, in models.SaleInput) (*models.SaleResult, error) {
	client, err := s.registry.Get(terminalID)
	if err != nil {
		return nil, err
	}
	if in.Amount.IsNegative() {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, pax.ErrNegativeAmount)
	}

	release, err := s.acquire(ctx, client.Config().Addr())
	if err != nil {
		return nil, err
	}
	defer release()

	resp, err := client.ProcessSale(ctx, pax.SaleRequest{
		Amount:          in.Amount,
		InvoiceNumber:   in.InvoiceNumber,
		ReferenceNumber: in.ReferenceNumber,
	})
	if err != nil {
		return nil, fmt.Errorf("sale on %s: %w", terminalID, err)
	}

	result := &models.SaleResult{
		ID:         uuid.New().String(),
		TerminalID: terminalID,
		Outcome:    outcomeOf(resp),
		Amount:     in.Amount.StringFixed(2),
		CardHolder: resp.AccountInformation.CardholderName(),
		Response:   resp,
	}
	result.Approved = result.Outcome == models.OutcomeApproved

	if yymm, err := resp.AccountInformation.ExpiryYYMM(); err == nil {
		result.CardFace, _ = expiry.CardFace(yymm)
		result.Expired, _ = expiry.IsExpired(yymm, s.now(), nil)
	}

	s.logger.Info("sale finished",
		slog.String("id", result.ID),
		slog.String("terminal", terminalID),
		slog.String("outcome", string(result.Outcome)),
		slog.String("amount", result.Amount),
	)
	return result, nil
}

func outcomeOf(resp *pax.Response) models.Outcome {
	switch {
	case resp.Inconclusive():
		return models.OutcomeInconclusive
	case resp.ResponseCode == approvedResponseCode:
		return models.OutcomeApproved
	default:
		return models.OutcomeDeclined
	}
}

// Proxy forwards an already encoded envelope to ip:port and returns the raw
// Base64 answer.
func (s *Service) Proxy(ctx context.Context, ip, port, payload string) (string, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return "", fmt.Errorf("%w: payload is required", ErrInvalidInput)
	}
	if _, err := pax.DecodeEnvelope(payload); err != nil {
		return "", fmt.Errorf("%w: payload: %w", ErrInvalidInput, err)
	}

	client, err := terminal.NewClient(s.logger, terminal.Config{
		IP:      ip,
		Port:    port,
		Timeout: s.cfg.DefaultTimeout,
	}, terminal.WithHTTPClient(s.http))
	if err != nil {
		return "", err
	}

	release, err := s.acquire(ctx, client.Config().Addr())
	if err != nil {
		return "", err
	}
	defer release()

	body, err := client.Exchange(ctx, payload)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(body)), nil
}

// slot admits one exchange at a time to an address. refs counts holders and
// waiters; the entry is dropped once it reaches zero.
type slot struct {
	ch   chan struct{}
	refs int
}

func (s *Service) acquire(ctx context.Context, addr string) (func(), error) {
	s.mu.Lock()
	sl, ok := s.slots[addr]
	if !ok {
		sl = &slot{ch: make(chan struct{}, 1)}
		s.slots[addr] = sl
	}
	sl.refs++
	s.mu.Unlock()

	select {
	case sl.ch <- struct{}{}:
		return func() {
			<-sl.ch
			s.unref(addr, sl)
		}, nil
	case <-ctx.Done():
		s.unref(addr, sl)
		s.logger.Warn("gave up waiting for terminal", slog.String("addr", addr), "err", ctx.Err())
		return nil, fmt.Errorf("%w: %s: %w", ErrBusy, addr, ctx.Err())
	}
}

func (s *Service) unref(addr string, sl *slot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sl.refs--
	if sl.refs == 0 {
		delete(s.slots, addr)
	}
}
