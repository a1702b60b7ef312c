// Package money holds integer currency helpers. Every amount is an int64 count of
// won; nothing in balance math goes through floating point.
package money

import (
	"fmt"
	"math"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// FormatAmount formats abs(n) with thousands separators. The sign is never
// rendered; callers convey direction with a label.
func FormatAmount(n int64) string {
	if n < 0 {
		return humanize.BigComma(decimal.NewFromInt(n).Abs().BigInt())
	}
	return humanize.Comma(n)
}

// FormatWon is FormatAmount with the won suffix.
func FormatWon(n int64) string {
	return FormatAmount(n) + "원"
}

// RoundUpToTen returns ceil(n/10)*10. It only applies to amounts a member must
// send; negative input is returned unchanged, and so is input with no multiple
// of ten above it in int64 range.
func RoundUpToTen(n int64) int64 {
	if n <= 0 {
		return n
	}
	r := n % 10
	if r == 0 || n > math.MaxInt64-(10-r) {
		return n
	}
	return n + 10 - r
}

var priceNoise = strings.NewReplacer(",", "", " ", "", "원", "", "₩", "", "KRW", "", "krw", "")

// ParseDecimal reads a loosely formatted price such as "12,000원" or "3500.0".
func ParseDecimal(s string) (decimal.Decimal, error) {
	cleaned := priceNoise.Replace(strings.TrimSpace(s))
	if cleaned == "" {
		return decimal.Zero, fmt.Errorf("empty price %q", s)
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid price %q: %w", s, err)
	}
	return d, nil
}

// ToWon rounds d half away from zero to whole won.
func ToWon(d decimal.Decimal) int64 {
	return d.Round(0).IntPart()
}

// Total returns unit*quantity in whole won.
func Total(unit, quantity decimal.Decimal) int64 {
	return ToWon(unit.Mul(quantity))
}
