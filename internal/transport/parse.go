package transport

import (
	"bytes"
	"strings"
)

var headerDelimiter = []byte(CRLF + CRLF)

// ParseMode selects how a header block is split into lines.
type ParseMode int

const (
	// ModeCRLF splits header lines on CR LF pairs.
	ModeCRLF ParseMode = iota

	// ModeLegacyCR splits header lines on a bare CR. Every line after the
	// first keeps the LF that followed the CR, so field names of a CRLF
	// response start with "\n".
	ModeLegacyCR
)

// String returns the mode name.
func (m ParseMode) String() string {
	switch m {
	case ModeCRLF:
		return "crlf"
	case ModeLegacyCR:
		return "legacy-cr"
	default:
		return "unknown"
	}
}

// SplitResponse splits raw at the first blank line. When raw contains no
// "\r\n\r\n" the whole input is the header block and body is empty.
func SplitResponse(raw []byte) (header, body []byte) {
	i := bytes.Index(raw, headerDelimiter)
	if i < 0 {
		return raw, []byte{}
	}
	return raw[:i], raw[i+len(headerDelimiter):]
}

// ParseHeader parses a header block into a field map and the status code.
//
// The status code is the second token of the status line split on single
// spaces; it is not validated as a number. Field names are lowercased,
// values are kept verbatim including the space after the colon, and a
// repeated field keeps its last value.
func ParseHeader(block []byte, mode ParseMode) (map[string]string, string, error) {
	sep := CRLF
	if mode == ModeLegacyCR {
		sep = "\r"
	}
	lines := strings.Split(string(block), sep)

	tokens := strings.Split(lines[0], " ")
	if len(tokens) < 2 {
		return nil, "", parseError("malformed status line %q", lines[0])
	}
	code := tokens[1]

	headers := make(map[string]string, len(lines)-1)
	for _, line := range lines[1:] {
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, "", parseError("header line without colon %q", line)
		}
		headers[strings.ToLower(name)] = value
	}
	return headers, code, nil
}
