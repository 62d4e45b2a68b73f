package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidSymbol is returned for symbols that are unsafe to embed in queries.
var ErrInvalidSymbol = errors.New("invalid symbol")

// symbolPattern allows an optional index caret, then uppercase letters, digits, dots,
// hyphens and equals signs (^KS200, BRK.A, KRW=X).
var symbolPattern = regexp.MustCompile(`^\^?[A-Z0-9][A-Z0-9.\-=]{0,15}$`)

// NormalizeSymbol upper-cases and validates a symbol.
func NormalizeSymbol(symbol string) (string, error) {
	normalized := strings.ToUpper(strings.TrimSpace(symbol))
	if !symbolPattern.MatchString(normalized) {
		return "", fmt.Errorf("%w: %q", ErrInvalidSymbol, symbol)
	}
	return normalized, nil
}
