package pax

import (
	"bytes"
	"strings"

	"github.com/salonpos/paxbridge/internal/expiry"
	"github.com/salonpos/paxbridge/internal/pan"
)

// Top-level positions of a T01 response.
const (
	posStatus = iota
	posCommand
	posVersion
	posResponseCode
	posResponseMessage
	posHostInformation
	posTransactionType
	posAmountInformation
	posAccountInformation
	posTraceInformation
)

type HostInfo struct {
	ResponseCode    string `json:"hostResponseCode"`
	ResponseMessage string `json:"hostResponseMessage"`
	AuthCode        string `json:"authCode"`
	ReferenceNumber string `json:"hostReferenceNumber"`
	TraceNumber     string `json:"traceNumber"`
	BatchNumber     string `json:"batchNumber"`
}

type AmountInfo struct {
	ApprovedAmount string `json:"approvedAmount"`
	AmountDue      string `json:"amountDue"`
	TipAmount      string `json:"tipAmount"`
	CashBackAmount string `json:"cashBackAmount"`
	MerchantFee    string `json:"merchantFee"`
	TaxAmount      string `json:"taxAmount"`
	Balance1       string `json:"balance1"`
	Balance2       string `json:"balance2"`
}

type AccountInfo struct {
	Account       string `json:"account"`
	EntryMode     string `json:"entryMode"`
	ExpireDate    string `json:"expireDate"`
	EBTType       string `json:"ebtType"`
	VoucherNumber string `json:"voucherNumber"`
	NewAccountNo  string `json:"newAccountNo"`
	CardType      string `json:"cardType"`
	CardHolder    string `json:"cardHolder"`
}

// ExpiryYYMM converts the terminal's MMYY expiry to YYMM.
func (a AccountInfo) ExpiryYYMM() (string, error) {
	return expiry.ParseMMYY(a.ExpireDate)
}

func (a AccountInfo) CardholderName() string {
	return pan.NormalizeCardholderName(a.CardHolder)
}

type TraceInfo struct {
	TransactionNumber string `json:"transactionNumber"`
	ReferenceNumber   string `json:"referenceNumber"`
	TimeStamp         string `json:"timeStamp"`
}

// Response is a parsed terminal answer. Absent positions are empty strings;
// nothing here interprets the response code.
type Response struct {
	Status          string `json:"status"`
	Command         string `json:"command"`
	Version         string `json:"version"`
	ResponseCode    string `json:"responseCode"`
	ResponseMessage string `json:"responseMessage"`
	TransactionType string `json:"transactionType"`

	HostInformation    HostInfo    `json:"hostInformation"`
	AmountInformation  AmountInfo  `json:"amountInformation"`
	AccountInformation AccountInfo `json:"accountInformation"`
	TraceInformation   TraceInfo   `json:"traceInformation"`

	TransactionID string `json:"transactionId"`
	AuthCode      string `json:"authCode"`
	CardLast4     string `json:"cardLast4"`
	CardType      string `json:"cardType"`

	RawResponse []string `json:"rawResponse"`
	LRCValid    bool     `json:"lrcValid"`
	Malformed   bool     `json:"malformed"`
}

// Inconclusive reports a response that can not be taken as either an
// approval or a decline.
func (r *Response) Inconclusive() bool {
	return r.Malformed || r.Status == "" || r.ResponseCode == ""
}

// ParseResponse decodes a Base64 response body. It never fails: an
// undecodable body yields a Malformed response with empty fields.
func ParseResponse(body []byte) *Response {
	raw, err := DecodeEnvelope(string(body))
	if err != nil || len(raw) == 0 {
		return &Response{Malformed: true, RawResponse: []string{}}
	}
	return parseFrame(raw)
}

func parseFrame(raw []byte) *Response {
	resp := &Response{}

	frame := raw
	if n := len(raw); n >= 2 && raw[n-2] == ETX {
		frame = raw[:n-1]
		resp.LRCValid = len(frame) > 0 && frame[0] == STX && LRC(frame) == raw[n-1]
	}

	parts := bytes.Split(frame, []byte{FS})
	tokens := make([]string, len(parts))
	for i, p := range parts {
		p = bytes.ReplaceAll(p, []byte{STX}, nil)
		p = bytes.ReplaceAll(p, []byte{ETX}, nil)
		tokens[i] = string(p)
	}
	resp.RawResponse = tokens

	resp.Status = at(tokens, posStatus)
	resp.Command = at(tokens, posCommand)
	resp.Version = at(tokens, posVersion)
	resp.ResponseCode = at(tokens, posResponseCode)
	resp.ResponseMessage = at(tokens, posResponseMessage)
	resp.TransactionType = at(tokens, posTransactionType)

	host := subValues(at(tokens, posHostInformation))
	resp.HostInformation = HostInfo{
		ResponseCode:    at(host, 0),
		ResponseMessage: at(host, 1),
		AuthCode:        at(host, 2),
		ReferenceNumber: at(host, 3),
		TraceNumber:     at(host, 4),
		BatchNumber:     at(host, 5),
	}

	amount := subValues(at(tokens, posAmountInformation))
	resp.AmountInformation = AmountInfo{
		ApprovedAmount: at(amount, 0),
		AmountDue:      at(amount, 1),
		TipAmount:      at(amount, 2),
		CashBackAmount: at(amount, 3),
		MerchantFee:    at(amount, 4),
		TaxAmount:      at(amount, 5),
		Balance1:       at(amount, 6),
		Balance2:       at(amount, 7),
	}

	account := subValues(at(tokens, posAccountInformation))
	resp.AccountInformation = AccountInfo{
		Account:       at(account, 0),
		EntryMode:     at(account, 1),
		ExpireDate:    at(account, 2),
		EBTType:       at(account, 3),
		VoucherNumber: at(account, 4),
		NewAccountNo:  at(account, 5),
		CardType:      at(account, 6),
		CardHolder:    at(account, 7),
	}

	trace := subValues(at(tokens, posTraceInformation))
	resp.TraceInformation = TraceInfo{
		TransactionNumber: at(trace, 0),
		ReferenceNumber:   at(trace, 1),
		TimeStamp:         at(trace, 2),
	}

	resp.AuthCode = resp.HostInformation.AuthCode
	resp.TransactionID = resp.HostInformation.ReferenceNumber
	if last4 := pan.LastN(pan.NormalizePAN(resp.AccountInformation.Account), 4); pan.IsDigits(last4) {
		resp.CardLast4 = last4
	}
	resp.CardType = resp.AccountInformation.CardType

	return resp
}

func subValues(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, string(US))
}

func at(s []string, i int) string {
	if i < len(s) {
		return s[i]
	}
	return ""
}
