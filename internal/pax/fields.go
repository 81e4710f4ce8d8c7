package pax

import (
	"strings"

	"github.com/shopspring/decimal"
)

const (
	CommandSale         = "T00"
	ProtocolVersion     = "1.28"
	TransactionTypeSale = "01"

	DefaultReferenceNumber = "1"
)

type GroupID int

const (
	GroupAmount GroupID = iota
	GroupAccount
	GroupTrace
	GroupAVS
	GroupCashier
	GroupCommercial
	GroupMOTO
	GroupAdditional

	groupCount
)

type groupSpec struct {
	name string
	keys []string
}

// groupTable is the single source of key order for both the raw frame and
// the encoded frame. Position within keys is significant on the wire.
var groupTable = [groupCount]groupSpec{
	GroupAmount: {"Amount", []string{
		"TransactionAmount", "TipAmount", "CashBackAmount", "MerchantFee", "TaxAmount", "FuelAmount",
	}},
	GroupAccount: {"Account", []string{
		"Account", "EXPD", "CVVCode", "EBTtype", "VoucherNumber", "Force", "FirstName", "LastName",
		"CountryCode", "State_ProvinceCode", "CityName", "EmailAddress",
	}},
	GroupTrace: {"Trace", []string{
		"ReferenceNumber", "InvoiceNumber", "AuthCode", "TransactionNumber", "TimeStamp", "ECRTransID",
	}},
	GroupAVS: {"AVS", []string{
		"ZipCode", "Address", "Address2",
	}},
	GroupCashier: {"Cashier", []string{
		"ClerkID", "ShiftID",
	}},
	GroupCommercial: {"Commercial", []string{
		"PONumber", "CustomerCode", "TaxExempt", "TaxExemptID", "MerchantTaxID", "DestinationZipCode", "ProductDescription",
	}},
	GroupMOTO: {"MOTO/E-commerce", []string{
		"OrderNumber", "Installments", "CurrentInstallment",
	}},
	GroupAdditional: {"Additional", []string{
		"TABLE", "GUEST", "SIGN", "TICKET", "HREF", "TIPREQ", "SIGNUPLOAD", "REPORTSTATUS", "TOKENREQUEST",
		"TOKEN", "CARD TYPE", "CARDTYPEBITMAP", "PASSTHRUDATA", "RETURNREASON", "ORIG", "TRANSDAITE",
		"ORIGPAN", "ORIGEXPIRYDATE", "ORIGTRANSTIME", "DISPROGPROMPTS", "GATEWAYID", "GETSIGN",
	}},
}

type keyPos struct {
	group GroupID
	index int
}

var keyIndex = func() map[string]keyPos {
	m := make(map[string]keyPos)
	for g := GroupID(0); g < groupCount; g++ {
		for i, k := range groupTable[g].keys {
			m[k] = keyPos{group: g, index: i}
		}
	}
	return m
}()

func (g GroupID) String() string {
	if g < 0 || g >= groupCount {
		return "Unknown"
	}
	return groupTable[g].name
}

// Groups returns every group in frame order.
func Groups() []GroupID {
	out := make([]GroupID, 0, groupCount)
	for g := GroupID(0); g < groupCount; g++ {
		out = append(out, g)
	}
	return out
}

// Keys returns a copy of the group's key order.
func Keys(g GroupID) []string {
	if g < 0 || g >= groupCount {
		return nil
	}
	return append([]string(nil), groupTable[g].keys...)
}

// SaleRequest is one sale attempt as handed over by the POS.
type SaleRequest struct {
	Amount          decimal.Decimal
	InvoiceNumber   string
	ReferenceNumber string
}

// Fields holds a value for every key of every group. Unset keys are "".
type Fields struct {
	values [groupCount][]string
}

func NewFields() *Fields {
	f := &Fields{}
	for g := GroupID(0); g < groupCount; g++ {
		f.values[g] = make([]string, len(groupTable[g].keys))
	}
	return f
}

func (f *Fields) Set(key, value string) error {
	pos, ok := keyIndex[key]
	if !ok {
		return &FieldError{Key: key, Err: ErrUnknownField}
	}
	if err := checkReserved(value); err != nil {
		return &FieldError{Key: key, Err: err}
	}
	f.values[pos.group][pos.index] = value
	return nil
}

func (f *Fields) Get(key string) string {
	pos, ok := keyIndex[key]
	if !ok {
		return ""
	}
	return f.values[pos.group][pos.index]
}

// Group returns the group's values in key order.
func (f *Fields) Group(g GroupID) []string {
	if g < 0 || g >= groupCount {
		return nil
	}
	return append([]string(nil), f.values[g]...)
}

// BuildSaleFields fills the field table for a T00 sale.
func BuildSaleFields(req SaleRequest) (*Fields, error) {
	cents, err := AmountToCents(req.Amount)
	if err != nil {
		return nil, &FieldError{Key: "TransactionAmount", Err: err}
	}

	ref := req.ReferenceNumber
	if ref == "" {
		ref = DefaultReferenceNumber
	}

	f := NewFields()
	for _, kv := range [][2]string{
		{"TransactionAmount", cents},
		{"ReferenceNumber", ref},
		{"InvoiceNumber", req.InvoiceNumber},
	} {
		if err := f.Set(kv[0], kv[1]); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// AmountToCents renders a currency amount as integer minor units, rounding
// half away from zero.
func AmountToCents(amount decimal.Decimal) (string, error) {
	if amount.IsNegative() {
		return "", ErrNegativeAmount
	}
	return amount.Shift(2).Round(0).String(), nil
}

func checkReserved(value string) error {
	if strings.IndexAny(value, reservedBytes) >= 0 {
		return ErrReservedByte
	}
	return nil
}
