package util

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"
)

// IsTextData checks if a byte slice contains only printable ASCII text
func IsTextData(data []byte) bool {
	for _, b := range data {
		if b < 32 && b != 9 && b != 10 && b != 13 || b > 126 {
			return false
		}
	}
	return true
}

// FormatHex renders data as space separated hex bytes, with the printable
// form appended when every byte is text.
func FormatHex(data []byte) string {
	if len(data) == 0 {
		return "(empty)"
	}
	s := fmt.Sprintf("% x", data)
	if IsTextData(data) {
		s += fmt.Sprintf(" %q", data)
	}
	return s
}

// ParseHex parses a frame written as hex, e.g. "53 04", "5304", "0x53,0x04".
func ParseHex(s string) ([]byte, error) {
	r := strings.NewReplacer(" ", "", ",", "", ":", "", "0x", "", "0X", "")
	clean := r.Replace(strings.TrimSpace(s))
	if clean == "" {
		return nil, fmt.Errorf("empty hex frame")
	}
	data, err := hex.DecodeString(clean)
	if err != nil {
		return nil, fmt.Errorf("invalid hex frame %q: %w", s, err)
	}
	return data, nil
}

// WriteHexDump writes data in hex dump format
func WriteHexDump(w io.Writer, data []byte) {
	for i := 0; i < len(data); i += 16 {
		fmt.Fprintf(w, "%04x  ", i)

		for j := 0; j < 16; j++ {
			if i+j < len(data) {
				fmt.Fprintf(w, "%02x ", data[i+j])
			} else {
				fmt.Fprint(w, "   ")
			}
			if j == 7 {
				fmt.Fprint(w, " ")
			}
		}

		fmt.Fprint(w, " |")
		for j := 0; j < 16 && i+j < len(data); j++ {
			b := data[i+j]
			if b >= 32 && b < 127 {
				fmt.Fprintf(w, "%c", b)
			} else {
				fmt.Fprint(w, ".")
			}
		}
		fmt.Fprintln(w, "|")
	}
}
