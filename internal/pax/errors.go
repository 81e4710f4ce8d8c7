package pax

import (
	"errors"
	"fmt"
)

var (
	ErrTimeout        = fmt.Errorf("terminal did not respond in time")
	ErrEmptyResponse  = fmt.Errorf("terminal returned an empty response")
	ErrReservedByte   = fmt.Errorf("value contains a reserved control byte")
	ErrNegativeAmount = fmt.Errorf("amount must not be negative")
	ErrUnknownField   = fmt.Errorf("unknown field")
	ErrMalformedHex   = fmt.Errorf("malformed hex")
	ErrMalformedFrame = fmt.Errorf("malformed frame")
)

// ConfigurationError reports a missing or invalid terminal setting.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (ce *ConfigurationError) Error() string {
	return fmt.Sprintf("terminal config %s: %s", ce.Field, ce.Reason)
}

// TransportError means no transaction took place: the request never reached
// the terminal or no answer came back.
type TransportError struct {
	Op   string
	Addr string
	Err  error
}

func (te *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", te.Op, te.Addr, te.Err)
}

func (te *TransportError) Unwrap() error {
	return te.Err
}

func (te *TransportError) Timeout() bool {
	return errors.Is(te.Err, ErrTimeout)
}

type FieldError struct {
	Key string
	Err error
}

func (fe *FieldError) Error() string {
	return fmt.Sprintf("field %s: %v", fe.Key, fe.Err)
}

func (fe *FieldError) Unwrap() error {
	return fe.Err
}
