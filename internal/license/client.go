// Package license talks to the store's license server, which decides whether
// a license key may drive a given terminal.
package license

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var ErrInvalid = errors.New("license rejected")

const validatePath = "/api/license/validate"

type Client struct {
	Base string
	HTTP *http.Client
}

func New(base string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{Base: strings.TrimRight(base, "/"), HTTP: hc}
}

type ValidateReq struct {
	LicenseKey string `json:"licenseKey"`
	TerminalIP string `json:"terminalIp"`
}

type ValidateResp struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// Validate returns nil when the server accepts the key for terminalIP and an
// error wrapping ErrInvalid when it refuses it.
func (c *Client) Validate(ctx context.Context, licenseKey, terminalIP string) error {
	b, err := json.Marshal(ValidateReq{LicenseKey: licenseKey, TerminalIP: terminalIP})
	if err != nil {
		return fmt.Errorf("marshal validate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Base+validatePath, bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("build validate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("validate: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 && resp.StatusCode != http.StatusForbidden {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("validate status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload ValidateResp
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return fmt.Errorf("decode validate response: %w", err)
	}
	if !payload.Valid {
		if payload.Error == "" {
			return ErrInvalid
		}
		return fmt.Errorf("%w: %s", ErrInvalid, payload.Error)
	}
	return nil
}
