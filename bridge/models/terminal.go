package models

import (
	"github.com/shopspring/decimal"

	"github.com/salonpos/paxbridge/internal/pax"
)

type Terminal struct {
	ID       string `json:"id"`
	IP       string `json:"ip"`
	Port     string `json:"port"`
	Timeout  string `json:"timeout"`
	Licensed bool   `json:"licensed"`
}

type Outcome string

const (
	OutcomeApproved     Outcome = "approved"
	OutcomeDeclined     Outcome = "declined"
	OutcomeInconclusive Outcome = "inconclusive"
)

// SaleInput is the body of POST /terminals/{terminalID}/sale. Amount is in
// dollars and accepts a JSON number or string.
type SaleInput struct {
	Amount          decimal.Decimal `json:"amount"`
	InvoiceNumber   string          `json:"invoiceNumber,omitempty"`
	ReferenceNumber string          `json:"referenceNumber,omitempty"`
}

type SaleResult struct {
	ID         string        `json:"id"`
	TerminalID string        `json:"terminalId"`
	Outcome    Outcome       `json:"outcome"`
	Approved   bool          `json:"approved"`
	Amount     string        `json:"amount"`
	CardFace   string        `json:"cardFace,omitempty"`
	CardHolder string        `json:"cardholderName,omitempty"`
	Expired    bool          `json:"cardExpired,omitempty"`
	Response   *pax.Response `json:"response"`
}

type ProxyRequest struct {
	IP      string `json:"ip"`
	Port    string `json:"port"`
	Payload string `json:"payload"`
}

type ProxyResponse struct {
	Success  bool   `json:"success"`
	Response string `json:"response,omitempty"`
	Error    string `json:"error,omitempty"`
}
