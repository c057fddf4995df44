package components

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseHex converts hex strings to bytes. Supports both:
// - Space-separated: "48 65 6C 6C 6F"
// - Continuous: "48656C6C6F"
// An optional 0x prefix per byte group is accepted.
func ParseHex(s string) ([]byte, error) {
	fields := strings.Fields(s)
	for i, f := range fields {
		fields[i] = strings.TrimPrefix(strings.TrimPrefix(f, "0x"), "0X")
	}
	clean := strings.Join(fields, "")
	if clean == "" {
		return nil, fmt.Errorf("empty input")
	}
	if len(clean)%2 != 0 {
		return nil, fmt.Errorf("hex string must have even number of digits (got %d)", len(clean))
	}

	out := make([]byte, 0, len(clean)/2)
	for i := 0; i < len(clean); i += 2 {
		pair := clean[i : i+2]
		b, err := strconv.ParseUint(pair, 16, 8)
		if err != nil {
			return nil, fmt.Errorf("invalid hex byte %q", pair)
		}
		out = append(out, byte(b))
	}
	return out, nil
}
