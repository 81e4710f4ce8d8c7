package terminal

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"

	"golang.org/x/exp/slog"

	"github.com/salonpos/paxbridge/internal/pan"
	"github.com/salonpos/paxbridge/internal/pax"
)

// LicenseValidator checks that the store may drive this terminal.
type LicenseValidator interface {
	Validate(ctx context.Context, licenseKey, terminalIP string) error
}

// Client runs single request/response exchanges against one terminal. It
// does not serialize callers: a terminal handles one transaction at a time
// and that ordering belongs to whoever owns the terminal.
type Client struct {
	cfg     Config
	http    *http.Client
	license LicenseValidator
	logger  *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

func WithLicenseValidator(v LicenseValidator) Option {
	return func(c *Client) {
		c.license = v
	}
}

func NewClient(logger *slog.Logger, cfg Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	c := &Client{
		cfg:    cfg,
		http:   NewHTTPClient(),
		logger: logger.With(slog.String("component", "terminal"), slog.String("addr", cfg.Addr())),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// NewHTTPClient returns a client whose requests carry no headers of their
// own: no Accept-Encoding, and User-Agent is cleared per request in Exchange.
func NewHTTPClient() *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DisableCompression = true
	return &http.Client{Transport: transport}
}

func (c *Client) Config() Config {
	return c.cfg
}

// ProcessSale runs a T00 credit sale and returns the terminal's answer.
// A decline is a normal response; only transport and input problems are
// returned as errors.
func (c *Client) ProcessSale(ctx context.Context, req pax.SaleRequest) (*pax.Response, error) {
	if err := c.validateLicense(ctx); err != nil {
		return nil, err
	}

	frame, err := pax.NewSaleFrame(req)
	if err != nil {
		return nil, fmt.Errorf("building sale frame: %w", err)
	}
	envelope, err := frame.Envelope()
	if err != nil {
		return nil, fmt.Errorf("encoding sale frame: %w", err)
	}

	c.logger.Info("sending sale",
		slog.String("amount", frame.Fields.Get("TransactionAmount")),
		slog.String("invoice", frame.Fields.Get("InvoiceNumber")),
		slog.String("reference", frame.Fields.Get("ReferenceNumber")),
	)
	c.logger.Debug("sale frame", slog.String("raw", pax.HexDump(frame.Raw())), slog.Int("lrc", int(frame.LRC())))

	body, err := c.Exchange(ctx, envelope)
	if err != nil {
		c.logger.Error("sale exchange failed", "err", err)
		return nil, err
	}

	resp := pax.ParseResponse(body)
	c.logger.Info("sale response",
		slog.String("status", resp.Status),
		slog.String("response_code", resp.ResponseCode),
		slog.String("response_message", resp.ResponseMessage),
		slog.String("account", pan.MaskPAN(resp.AccountInformation.Account)),
		slog.Bool("lrc_valid", resp.LRCValid),
		slog.Bool("malformed", resp.Malformed),
	)
	if resp.Inconclusive() {
		c.logger.Warn("inconclusive sale response", slog.Int("tokens", len(resp.RawResponse)))
	}
	return resp, nil
}

// Exchange sends one envelope and waits for the full response body, bounded
// by the configured timeout. The request is aborted when the timeout fires.
func (c *Client) Exchange(ctx context.Context, envelope string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	target := "http://" + c.cfg.Addr() + "/?" + envelope
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &pax.TransportError{Op: "build request", Addr: c.cfg.Addr(), Err: err}
	}
	// an empty value suppresses the default Go-http-client User-Agent
	req.Header.Set("User-Agent", "")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, c.transportError(ctx, "send", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.transportError(ctx, "read", err)
	}
	if resp.StatusCode/100 != 2 {
		return nil, &pax.TransportError{
			Op:   "exchange",
			Addr: c.cfg.Addr(),
			Err:  fmt.Errorf("unexpected status %d: %s", resp.StatusCode, bytes.TrimSpace(body)),
		}
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, &pax.TransportError{Op: "read", Addr: c.cfg.Addr(), Err: pax.ErrEmptyResponse}
	}

	return body, nil
}

func (c *Client) transportError(ctx context.Context, op string, err error) error {
	var ne net.Error
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		err = fmt.Errorf("%w after %s: %w", pax.ErrTimeout, c.cfg.Timeout, err)
	}
	return &pax.TransportError{Op: op, Addr: c.cfg.Addr(), Err: err}
}

func (c *Client) validateLicense(ctx context.Context) error {
	if c.license == nil {
		return nil
	}
	if c.cfg.LicenseKey == "" {
		c.logger.Warn("no license key configured, skipping validation")
		return nil
	}
	if err := c.license.Validate(ctx, c.cfg.LicenseKey, c.cfg.IP); err != nil {
		return fmt.Errorf("license: %w", err)
	}
	return nil
}
