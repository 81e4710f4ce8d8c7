package pax

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"strings"
)

const (
	STX byte = 0x02 // start of text
	ETX byte = 0x03 // end of text
	FS  byte = 0x1c // group separator
	US  byte = 0x1f // value separator within a group

	reservedBytes = "\x02\x03\x1c\x1f"
)

type tokenKind int

const (
	tokenControl tokenKind = iota
	tokenValue
)

type token struct {
	kind tokenKind
	b    []byte
}

func ctl(b byte) token        { return token{kind: tokenControl, b: []byte{b}} }
func val(s string) token      { return token{kind: tokenValue, b: []byte(s)} }
func (t token) isEmpty() bool { return len(t.b) == 0 }

// Frame is a request message before checksum and transport encoding.
type Frame struct {
	Command         string
	Version         string
	TransactionType string
	Fields          *Fields
}

func NewFrame(command, version, transactionType string, fields *Fields) (*Frame, error) {
	for _, kv := range [][2]string{
		{"Command", command},
		{"Version", version},
		{"TransactionType", transactionType},
	} {
		if err := checkReserved(kv[1]); err != nil {
			return nil, &FieldError{Key: kv[0], Err: err}
		}
	}
	if fields == nil {
		fields = NewFields()
	}
	return &Frame{
		Command:         command,
		Version:         version,
		TransactionType: transactionType,
		Fields:          fields,
	}, nil
}

// NewSaleFrame builds the T00/01 frame for req.
func NewSaleFrame(req SaleRequest) (*Frame, error) {
	fields, err := BuildSaleFields(req)
	if err != nil {
		return nil, err
	}
	return NewFrame(CommandSale, ProtocolVersion, TransactionTypeSale, fields)
}

// tokens walks the frame in wire order, STX through ETX. Both Raw and
// HexTokens are derived from this walk.
func (f *Frame) tokens() []token {
	toks := []token{
		ctl(STX),
		val(f.Command), ctl(FS),
		val(f.Version), ctl(FS),
		val(f.TransactionType),
	}

	for g := GroupID(0); g < groupCount; g++ {
		toks = append(toks, ctl(FS))
		for i, v := range f.Fields.values[g] {
			if i > 0 {
				toks = append(toks, ctl(US))
			}
			if t := val(v); !t.isEmpty() {
				toks = append(toks, t)
			}
		}
	}

	return append(toks, ctl(ETX))
}

// Raw returns the unescaped frame bytes, STX through ETX.
func (f *Frame) Raw() []byte {
	var buf bytes.Buffer
	for _, t := range f.tokens() {
		buf.Write(t.b)
	}
	return buf.Bytes()
}

func (f *Frame) LRC() byte {
	return LRC(f.Raw())
}

// HexTokens returns one hex token per frame token followed by the LRC token.
func (f *Frame) HexTokens() []string {
	toks := f.tokens()
	out := make([]string, 0, len(toks)+1)
	for _, t := range toks {
		if t.kind == tokenControl {
			out = append(out, controlHex(t.b[0]))
			continue
		}
		out = append(out, HexToken(t.b))
	}
	return append(out, HexToken([]byte{f.LRC()}))
}

// Encoded is the space-joined hex form that feeds the transport envelope.
func (f *Frame) Encoded() string {
	return strings.Join(f.HexTokens(), " ")
}

func (f *Frame) Envelope() (string, error) {
	return EnvelopeFromHex(f.Encoded())
}

// LRC is the XOR of every byte after the leading STX, ETX included.
func LRC(raw []byte) byte {
	var lrc byte
	if len(raw) == 0 {
		return lrc
	}
	for _, b := range raw[1:] {
		lrc ^= b
	}
	return lrc
}

// DecodedRequest is a request frame read back from its envelope.
type DecodedRequest struct {
	Command         string
	Version         string
	TransactionType string
	Fields          *Fields
	LRC             byte
	LRCValid        bool
}

// DecodeRequest reverses Frame.Envelope.
func DecodeRequest(envelope string) (*DecodedRequest, error) {
	raw, err := DecodeEnvelope(envelope)
	if err != nil {
		return nil, err
	}
	if len(raw) < 3 || raw[0] != STX || raw[len(raw)-2] != ETX {
		return nil, fmt.Errorf("%w: missing STX/ETX", ErrMalformedFrame)
	}

	frame, lrc := raw[:len(raw)-1], raw[len(raw)-1]
	parts := bytes.Split(frame[1:len(frame)-1], []byte{FS})
	if len(parts) != 3+int(groupCount) {
		return nil, fmt.Errorf("%w: got %d groups, want %d", ErrMalformedFrame, len(parts), 3+int(groupCount))
	}

	fields := NewFields()
	for g := GroupID(0); g < groupCount; g++ {
		values := bytes.Split(parts[3+int(g)], []byte{US})
		if len(values) > len(groupTable[g].keys) {
			return nil, fmt.Errorf("%w: group %s has %d values, want %d", ErrMalformedFrame, g, len(values), len(groupTable[g].keys))
		}
		for i, v := range values {
			fields.values[g][i] = string(v)
		}
	}

	return &DecodedRequest{
		Command:         string(parts[0]),
		Version:         string(parts[1]),
		TransactionType: string(parts[2]),
		Fields:          fields,
		LRC:             lrc,
		LRCValid:        LRC(frame) == lrc,
	}, nil
}

// EncodeResponse frames groups the way a terminal answers: STX, groups
// joined by FS with sub-values joined by US, ETX, LRC, all Base64 encoded.
func EncodeResponse(groups [][]string) string {
	var buf bytes.Buffer
	buf.WriteByte(STX)
	for i, g := range groups {
		if i > 0 {
			buf.WriteByte(FS)
		}
		buf.WriteString(strings.Join(g, string(US)))
	}
	buf.WriteByte(ETX)
	buf.WriteByte(LRC(buf.Bytes()))
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}
