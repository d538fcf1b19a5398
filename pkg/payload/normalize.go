// Package payload recovers a renderable byte stream from a stored document
// value whose encoding is not known until it is read.
//
// Several historical writers stored documents differently: raw binary,
// base64 text, hex text, text carrying C-style \x escapes, and escaped hex
// of base64 text. Normalize tries each encoding in a fixed order and stops
// at the first one that decodes.
package payload

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"strings"
	"unicode"
	"unicode/utf8"

	"poetryhub/pkg/models"
)

// Signature is the leading marker of the document format the app serves.
const Signature = "%PDF"

type Format string

const (
	FormatNone             Format = ""
	FormatBinary           Format = "binary"
	FormatHexEscaped       Format = "hex-escaped"
	FormatHexEscapedBase64 Format = "hex-escaped-base64"
	FormatHex              Format = "hex"
	FormatHexBase64        Format = "hex-base64"
	FormatRaw              Format = "raw"
	FormatBase64           Format = "base64"
	FormatLatin1           Format = "latin1"
)

// Payload is a decoded document.
type Payload struct {
	Data        []byte
	ContentType string
	Format      Format
}

// Document converts the payload into the canonical document value.
func (p Payload) Document() *models.Document {
	return &models.Document{Data: p.Data, ContentType: p.ContentType}
}

// Hypothesis is one decode attempt over trimmed text. Try reports false when
// the text does not fit the hypothesis or fails to decode.
type Hypothesis struct {
	Format Format
	Try    func(s string) ([]byte, bool)
}

// Chain is the order text hypotheses are tried in. The signature check runs
// before base64 so a raw document that happens to fit the base64 alphabet is
// never decoded twice.
var Chain = []Hypothesis{
	{FormatHexEscaped, decodeHexEscaped},
	{FormatHex, decodeHex},
	{FormatRaw, decodeRaw},
	{FormatBase64, decodeBase64},
	{FormatLatin1, decodeLatin1},
}

// Normalize decodes v into document bytes. v may be nil, []byte, string or
// *string; anything else is undecodable. An empty contentType means
// models.DefaultDocumentType. The second result is false when no hypothesis
// produced bytes.
func Normalize(v any, contentType string) (Payload, bool) {
	if contentType == "" {
		contentType = models.DefaultDocumentType
	}

	var s string
	switch val := v.(type) {
	case nil:
		return Payload{}, false
	case []byte:
		if len(val) == 0 {
			return Payload{}, false
		}
		return Payload{Data: bytes.Clone(val), ContentType: contentType, Format: FormatBinary}, true
	case string:
		s = val
	case *string:
		if val == nil {
			return Payload{}, false
		}
		s = *val
	default:
		return Payload{}, false
	}

	s = strings.TrimSpace(s)
	if s == "" {
		return Payload{}, false
	}

	for _, h := range Chain {
		data, ok := h.Try(s)
		if !ok {
			continue
		}
		return Payload{Data: data, ContentType: contentType, Format: refine(h.Format, data, s)}, true
	}
	return Payload{}, false
}

// refine tags hex results that went through the embedded base64 layer.
func refine(f Format, data []byte, s string) Format {
	switch f {
	case FormatHexEscaped:
		if raw, ok := hexDigits(stripEscapes(s)); ok && !bytes.Equal(raw, data) {
			return FormatHexEscapedBase64
		}
	case FormatHex:
		if raw, err := hex.DecodeString(s); err == nil && !bytes.Equal(raw, data) {
			return FormatHexBase64
		}
	}
	return f
}

func decodeHexEscaped(s string) ([]byte, bool) {
	if !strings.Contains(strings.ToLower(s), `\x`) {
		return nil, false
	}
	raw, ok := hexDigits(stripEscapes(s))
	if !ok {
		return nil, false
	}
	return preferEmbeddedBase64(raw), true
}

func decodeHex(s string) ([]byte, bool) {
	if len(s) < 8 || len(s)%2 != 0 || !isHex(s) {
		return nil, false
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, false
	}
	return preferEmbeddedBase64(raw), true
}

func decodeRaw(s string) ([]byte, bool) {
	if !strings.HasPrefix(s, Signature) {
		return nil, false
	}
	return charBytes(s)
}

func decodeBase64(s string) ([]byte, bool) {
	norm := normalizeBase64(s)
	if !looksBase64(norm) {
		return nil, false
	}
	return decodeStdBase64(norm)
}

// decodeLatin1 is the last resort. It only accepts text that carries some
// evidence of being binary: printable ASCII that fit no other hypothesis is
// prose, not a document.
func decodeLatin1(s string) ([]byte, bool) {
	if !utf8.ValidString(s) {
		return []byte(s), true
	}
	evidence := false
	for _, r := range s {
		if r > 0xFF {
			return nil, false
		}
		if r >= 0x7F || (r < 0x20 && r != '\t' && r != '\n' && r != '\r') {
			evidence = true
		}
	}
	if !evidence {
		return nil, false
	}
	return charBytes(s)
}

// preferEmbeddedBase64 decodes raw a second time when its ASCII reading is
// itself base64. Some writers base64-encoded a document and then hex-encoded
// the resulting text.
func preferEmbeddedBase64(raw []byte) []byte {
	norm := normalizeBase64(string(raw))
	if !looksBase64(norm) {
		return raw
	}
	if inner, ok := decodeStdBase64(norm); ok {
		return inner
	}
	return raw
}

// charBytes maps every character to one byte. Text that is not valid UTF-8
// already holds raw bytes and is copied as is.
func charBytes(s string) ([]byte, bool) {
	if !utf8.ValidString(s) {
		return []byte(s), true
	}
	out := make([]byte, 0, len(s))
	for _, r := range s {
		if r > 0xFF {
			return nil, false
		}
		out = append(out, byte(r))
	}
	return out, true
}

func stripEscapes(s string) string {
	s = strings.ReplaceAll(s, `\x`, "")
	s = strings.ReplaceAll(s, `\X`, "")
	return strings.Map(func(r rune) rune {
		if isHexRune(r) {
			return r
		}
		return -1
	}, s)
}

// hexDigits decodes a cleaned digit string of at least two bytes.
func hexDigits(digits string) ([]byte, bool) {
	if len(digits) < 4 || len(digits)%2 != 0 {
		return nil, false
	}
	out, err := hex.DecodeString(digits)
	if err != nil {
		return nil, false
	}
	return out, true
}

func normalizeBase64(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case unicode.IsSpace(r):
			return -1
		case r == '-':
			return '+'
		case r == '_':
			return '/'
		}
		return r
	}, s)
}

// looksBase64 wants the standard alphabet and either a length that is a
// multiple of four or trailing padding.
func looksBase64(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		case c == '+', c == '/', c == '=':
		default:
			return false
		}
	}
	return len(s)%4 == 0 || strings.HasSuffix(s, "=")
}

// decodeStdBase64 accepts at most two pad characters, and only when they
// complete a multiple of four.
func decodeStdBase64(s string) ([]byte, bool) {
	if len(s)%4 == 0 {
		s = strings.TrimSuffix(s, "=")
		s = strings.TrimSuffix(s, "=")
	}
	if strings.Contains(s, "=") || len(s)%4 == 1 {
		return nil, false
	}
	out, err := base64.RawStdEncoding.DecodeString(s)
	if err != nil || len(out) == 0 {
		return nil, false
	}
	return out, true
}

func isHex(s string) bool {
	for _, r := range s {
		if !isHexRune(r) {
			return false
		}
	}
	return true
}

func isHexRune(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}
