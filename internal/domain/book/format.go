package book

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// CurrencySuffix follows every formatted price.
const CurrencySuffix = " so'm"

// Star glyphs used by Stars.
const (
	StarFull  = "★"
	StarHalf  = "⯪"
	StarEmpty = "☆"
	// StarSlots is the number of glyphs Stars always renders.
	StarSlots = 5
)

var (
	hundred       = decimal.NewFromInt(100)
	pricePrinter  = message.NewPrinter(language.Uzbek)
	fractionDelta = 1e-9
)

// FormatPrice renders a price as a locale-grouped integer with the currency
// suffix, e.g. "45 000 so'm".
func FormatPrice(price decimal.Decimal) string {
	return pricePrinter.Sprintf("%d", price.Round(0).IntPart()) + CurrencySuffix
}

// Stars renders a rating on a five-slot scale. Whole stars are filled, any
// fractional remainder becomes a half star, and the rest are empty.
func Stars(rating float64) string {
	if math.IsNaN(rating) {
		rating = 0
	}
	rating = min(max(rating, 0), StarSlots)

	full := int(math.Floor(rating))
	half := rating-float64(full) > fractionDelta

	var sb strings.Builder
	sb.WriteString(strings.Repeat(StarFull, full))
	slots := full
	if half {
		sb.WriteString(StarHalf)
		slots++
	}
	sb.WriteString(strings.Repeat(StarEmpty, StarSlots-slots))
	return sb.String()
}

// DiscountPercent returns round((original-price)/original*100) clamped to
// [0, 100]. A non-positive original price yields 0.
func DiscountPercent(original, price decimal.Decimal) int {
	if !original.IsPositive() {
		return 0
	}
	pct := original.Sub(price).Div(original).Mul(hundred).Round(0).IntPart()
	return int(min(max(pct, 0), 100))
}
