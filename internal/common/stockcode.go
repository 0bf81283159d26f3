package common

import (
	"fmt"
	"strings"
)

// Market identifiers for the two mainland exchanges.
const (
	MarketShanghai = "SH"
	MarketShenzhen = "SZ"
)

// MarketForCode infers the exchange from a 6-digit stock code prefix.
// Codes starting with 6 trade in Shanghai; 0, 2, and 3 trade in Shenzhen.
func MarketForCode(code string) (string, error) {
	if len(code) != 6 {
		return "", fmt.Errorf("invalid stock code %q: expected 6 digits", code)
	}
	switch code[0] {
	case '6':
		return MarketShanghai, nil
	case '0', '2', '3':
		return MarketShenzhen, nil
	default:
		return "", fmt.Errorf("invalid stock code %q: unknown market prefix", code)
	}
}

// ToTSCode converts a bare 6-digit code to the provider's suffixed form,
// e.g. "600036" -> "600036.SH".
func ToTSCode(code string) (string, error) {
	market, err := MarketForCode(code)
	if err != nil {
		return "", err
	}
	return code + "." + market, nil
}

// FromTSCode strips the exchange suffix from a provider code,
// e.g. "600036.SH" -> "600036". Codes without a suffix pass through.
func FromTSCode(tsCode string) string {
	if i := strings.IndexByte(tsCode, '.'); i >= 0 {
		return tsCode[:i]
	}
	return tsCode
}

// IsValidStockCode reports whether the code is a 6-digit code with a known
// market prefix.
func IsValidStockCode(code string) bool {
	if len(code) != 6 {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	_, err := MarketForCode(code)
	return err == nil
}
