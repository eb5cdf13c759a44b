// Package money formats integer minor-unit amounts.
package money

import (
	"errors"
	"strconv"
	"strings"
)

var ErrInvalidAmount = errors.New("invalid_amount")

// zeroDecimal lists ISO 4217 currencies without a minor unit.
var zeroDecimal = map[string]struct{}{
	"JPY": {},
	"KRW": {},
	"VND": {},
	"CLP": {},
	"ISK": {},
	"UGX": {},
}

// Exponent is the number of minor-unit digits for the currency.
func Exponent(currency string) int {
	if _, ok := zeroDecimal[strings.ToUpper(strings.TrimSpace(currency))]; ok {
		return 0
	}
	return 2
}

// Format renders 129900 INR as "1299.00".
func Format(minor int64, currency string) string {
	exp := Exponent(currency)
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	digits := strconv.FormatInt(minor, 10)
	if exp == 0 {
		return sign + digits
	}
	if len(digits) <= exp {
		digits = strings.Repeat("0", exp-len(digits)+1) + digits
	}
	cut := len(digits) - exp
	return sign + digits[:cut] + "." + digits[cut:]
}

// ToMinor parses a decimal major-unit string such as "1299.00" or "999".
func ToMinor(amount string, currency string) (int64, error) {
	amount = strings.TrimSpace(amount)
	if amount == "" || strings.HasPrefix(amount, "-") || strings.HasPrefix(amount, "+") {
		return 0, ErrInvalidAmount
	}
	exp := Exponent(currency)
	whole, frac, hasFrac := strings.Cut(amount, ".")
	if whole == "" || (hasFrac && frac == "") || len(frac) > exp {
		return 0, ErrInvalidAmount
	}
	frac += strings.Repeat("0", exp-len(frac))
	v, err := strconv.ParseInt(whole+frac, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	return v, nil
}
