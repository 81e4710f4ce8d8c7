package terminal

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"

	"github.com/salonpos/paxbridge/internal/pax"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name  string
		cfg   Config
		field string
	}{
		{"ok", Config{IP: "192.168.1.50", Port: "10009"}, ""},
		{"host name", Config{IP: "pax-front", Port: "10009"}, ""},
		{"missing ip", Config{Port: "10009"}, "ip"},
		{"blank ip", Config{IP: "  ", Port: "10009"}, "ip"},
		{"url as ip", Config{IP: "http://10.0.0.1", Port: "10009"}, "ip"},
		{"octet out of range", Config{IP: "999.1.1.1", Port: "10009"}, "ip"},
		{"too few octets", Config{IP: "10.0.1", Port: "10009"}, "ip"},
		{"digits only", Config{IP: "12345", Port: "10009"}, "ip"},
		{"missing port", Config{IP: "10.0.0.1"}, "port"},
		{"port text", Config{IP: "10.0.0.1", Port: "abc"}, "port"},
		{"port zero", Config{IP: "10.0.0.1", Port: "0"}, "port"},
		{"port high", Config{IP: "10.0.0.1", Port: "70000"}, "port"},
		{"negative timeout", Config{IP: "10.0.0.1", Port: "10009", Timeout: -time.Second}, "timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.field == "" {
				require.NoError(t, err)
				return
			}
			var ce *pax.ConfigurationError
			require.True(t, errors.As(err, &ce))
			require.Equal(t, tt.field, ce.Field)
		})
	}
}

func TestConfig_Addr(t *testing.T) {
	require.Equal(t, "10.0.0.1:10009", Config{IP: " 10.0.0.1 ", Port: "10009"}.Addr())
	require.Equal(t, "[fe80::1]:10009", Config{IP: "fe80::1", Port: "10009"}.Addr())
}

func TestNewClient_DefaultsTimeout(t *testing.T) {
	c, err := NewClient(slog.Default(), Config{IP: "10.0.0.1", Port: DefaultPort})
	require.NoError(t, err)
	require.Equal(t, DefaultTimeout, c.Config().Timeout)

	_, err = NewClient(slog.Default(), Config{Port: DefaultPort})
	var ce *pax.ConfigurationError
	require.True(t, errors.As(err, &ce))
}
