// Package currency is the trade currency catalog: which codes are known,
// which of them are cryptocurrencies, and the smallest-unit exponent used
// to scale prices in each.
package currency

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Smallest-unit exponents for scaled integer prices.
const (
	CryptoPrecision int32 = 8
	FiatPrecision   int32 = 4
)

// BTC is the base asset of every offer in the book.
const BTC = "BTC"

var (
	ErrInvalidCode     = errors.New("currency: invalid currency code")
	ErrUnsupportedCode = errors.New("currency: unsupported currency code")
)

var cryptoCurrencies = map[string]bool{
	"BTC":  true,
	"BSQ":  true,
	"XMR":  true,
	"ETH":  true,
	"LTC":  true,
	"DCR":  true,
	"ZEC":  true,
	"DASH": true,
}

var fiatCurrencies = map[string]bool{
	"USD": true,
	"EUR": true,
	"GBP": true,
	"CHF": true,
	"JPY": true,
	"CAD": true,
	"AUD": true,
	"BRL": true,
	"SEK": true,
	"NOK": true,
	"PLN": true,
	"CZK": true,
	"INR": true,
	"MXN": true,
	"ARS": true,
}

var codeRegex = regexp.MustCompile(`^[A-Z][A-Z0-9-]{1,7}$`)

// IsCryptoCurrency reports whether code names a cryptocurrency. Unknown
// codes are treated as fiat.
func IsCryptoCurrency(code string) bool {
	return cryptoCurrencies[strings.ToUpper(code)]
}

// IsFiatCurrency reports whether code names a known fiat currency.
func IsFiatCurrency(code string) bool {
	return fiatCurrencies[strings.ToUpper(code)]
}

// Precision returns the number of decimal digits prices in code carry.
func Precision(code string) int32 {
	if IsCryptoCurrency(code) {
		return CryptoPrecision
	}
	return FiatPrecision
}

// Normalize upper-cases code and checks it against the catalog.
func Normalize(code string) (string, error) {
	upper := strings.ToUpper(strings.TrimSpace(code))
	if !codeRegex.MatchString(upper) {
		return "", fmt.Errorf("%w: %q", ErrInvalidCode, code)
	}
	if !cryptoCurrencies[upper] && !fiatCurrencies[upper] {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedCode, upper)
	}
	return upper, nil
}
