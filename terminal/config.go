package terminal

import (
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/salonpos/paxbridge/internal/pax"
)

const (
	// DefaultTimeout leaves room for card dip/tap and PIN entry.
	DefaultTimeout = 2 * time.Minute
	DefaultPort    = "10009"
)

// Config is the address of one terminal on the store network.
type Config struct {
	IP         string
	Port       string
	Timeout    time.Duration
	LicenseKey string
}

func (c Config) Validate() error {
	host := strings.TrimSpace(c.IP)
	if host == "" {
		return &pax.ConfigurationError{Field: "ip", Reason: "is required"}
	}
	if net.ParseIP(host) == nil {
		if strings.ContainsAny(host, "/:?#@ \t") {
			return &pax.ConfigurationError{Field: "ip", Reason: "must be an IP address or host name"}
		}
		if strings.Trim(host, "0123456789.") == "" {
			return &pax.ConfigurationError{Field: "ip", Reason: "is not a valid IPv4 address"}
		}
	}

	if c.Port == "" {
		return &pax.ConfigurationError{Field: "port", Reason: "is required"}
	}
	port, err := strconv.Atoi(c.Port)
	if err != nil || port < 1 || port > 65535 {
		return &pax.ConfigurationError{Field: "port", Reason: "must be 1..65535"}
	}

	if c.Timeout < 0 {
		return &pax.ConfigurationError{Field: "timeout", Reason: "must not be negative"}
	}
	return nil
}

func (c Config) Addr() string {
	return net.JoinHostPort(strings.TrimSpace(c.IP), c.Port)
}
