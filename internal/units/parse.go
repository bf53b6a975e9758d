package units

import (
	"fmt"
	"strconv"
	"strings"
)

// Parse reads a quantity such as "10 pc", "1.5MSun" or "-2.3". A bare
// number parses as dimensionless.
func Parse(s string) (Quantity, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Quantity{}, fmt.Errorf("empty quantity")
	}

	i := numEnd(s)
	if i == 0 {
		return Quantity{}, fmt.Errorf("quantity %q: missing numeric value", s)
	}
	v, err := strconv.ParseFloat(s[:i], 64)
	if err != nil {
		return Quantity{}, fmt.Errorf("quantity %q: %w", s, err)
	}

	sym := strings.TrimSpace(s[i:])
	if sym == "" {
		return Quantity{Value: v, Unit: One}, nil
	}
	u, ok := Lookup(sym)
	if !ok {
		return Quantity{}, fmt.Errorf("quantity %q: unknown unit %q (known: %s)",
			s, sym, strings.Join(Symbols(), ", "))
	}
	return Quantity{Value: v, Unit: u}, nil
}

// MustParse is Parse for literals known to be valid.
func MustParse(s string) Quantity {
	q, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return q
}

// numEnd returns the length of the leading float literal in s.
func numEnd(s string) int {
	i := 0
	seenDigit := false
	for i < len(s) {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
			seenDigit = true
		case c == '+' || c == '-':
			// sign is only valid leading or after an exponent marker
			if i != 0 && s[i-1] != 'e' && s[i-1] != 'E' {
				return i
			}
		case c == '.':
		case (c == 'e' || c == 'E') && seenDigit:
			// exponent must be followed by digits or a sign
			if i+1 >= len(s) {
				return i
			}
			next := s[i+1]
			if next != '+' && next != '-' && (next < '0' || next > '9') {
				return i
			}
		default:
			return i
		}
		i++
	}
	return i
}
