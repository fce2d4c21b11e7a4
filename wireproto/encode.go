package wireproto

import (
	"bytes"
	"strings"
)

// Serialize renders m to wire form, without a trailing line
// terminator (the transport appends CRLF). It does not check m: an
// empty Command is written as an empty command field.
//
// Serialisation applies only the wire grammar's quoting rule:
//   - the last parameter is colon-prefixed iff it is empty, contains a
//     space, or starts with ':';
//   - middle parameters are written as given; one containing a space,
//     NUL, CR, or LF is neither rejected nor escaped;
//   - BEL (0x07) and IRC formatting codes are written as given.
//
// ValidateParam and ValidateControlChars perform those checks.
func Serialize(m *Message) []byte {
	var buf bytes.Buffer
	if len(m.Tags) > 0 {
		buf.WriteByte('@')
		for i, t := range m.Tags {
			if i > 0 {
				buf.WriteByte(';')
			}
			buf.WriteString(escapeTagKey(t.Key))
			if t.HasValue {
				buf.WriteByte('=')
				buf.WriteString(escapeTagValue(t.Value))
			}
		}
		buf.WriteByte(' ')
	}
	if m.Prefix != nil {
		buf.WriteByte(':')
		buf.WriteString(m.Prefix.String())
		buf.WriteByte(' ')
	}
	buf.WriteString(m.Command)
	for i, p := range m.Params {
		buf.WriteByte(' ')
		last := i == len(m.Params)-1
		if last && needsColon(p) {
			buf.WriteByte(':')
		}
		buf.WriteString(p)
	}
	return buf.Bytes()
}

// needsColon reports whether the final parameter p requires a leading
// ':' to round-trip: it is empty, contains a space, or itself starts
// with ':'.
func needsColon(p string) bool {
	return p == "" || strings.ContainsRune(p, ' ') || strings.HasPrefix(p, ":")
}

// ValidateParam reports whether p is legal as a non-final parameter:
// no space, NUL, CR, or LF. Callers that build messages programmatically
// (rather than by parsing client input) should validate with this
// before appending to Message.Params.
func ValidateParam(p string) error {
	for i := 0; i < len(p); i++ {
		switch p[i] {
		case ' ', 0, '\r', '\n':
			return ErrIllegalControl
		}
	}
	return nil
}

// ValidateControlChars rejects BEL (0x07); it permits the IRC
// formatting codes (bold, colour, etc.) and NUL is left to the
// caller, since METADATA values are the one context NUL is legal in.
func ValidateControlChars(s string) error {
	for i := 0; i < len(s); i++ {
		if s[i] == 0x07 {
			return ErrIllegalControl
		}
	}
	return nil
}

func escapeTagKey(k string) string {
	// Keys are a restricted charset (letters, digits, '-', '/', '+')
	// per IRCv3 and never require escaping.
	return k
}

func escapeTagValue(v string) string {
	if !strings.ContainsAny(v, ";\\ \r\n") {
		return v
	}
	var b strings.Builder
	b.Grow(len(v) + 4)
	for i := 0; i < len(v); i++ {
		switch v[i] {
		case ';':
			b.WriteString(`\:`)
		case ' ':
			b.WriteString(`\s`)
		case '\\':
			b.WriteString(`\\`)
		case '\r':
			b.WriteString(`\r`)
		case '\n':
			b.WriteString(`\n`)
		default:
			b.WriteByte(v[i])
		}
	}
	return b.String()
}
