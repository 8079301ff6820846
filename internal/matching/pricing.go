// internal/matching/pricing.go
package matching

import (
	"github.com/shopspring/decimal"

	"github.com/cardswap/cardswap-backend/internal/models"
)

var hundred = decimal.NewFromInt(100)

// AskingPrice derives the seller's price for one copy of a collection entry.
//
// Fixed mode uses the fixed price when one is set and otherwise falls back to
// the percentage rule. Percentage mode takes the catalog reference price for
// the entry's finish. The result never drops below floor. An entry whose card
// has no reference price and no fixed price has no asking price.
func AskingPrice(entry *models.CollectionEntry, card *models.CardCatalogEntry, floor decimal.Decimal) decimal.NullDecimal {
	var price decimal.Decimal

	switch {
	case entry.PricingMode == models.PricingModeFixed && entry.FixedPrice.Valid:
		price = entry.FixedPrice.Decimal
	default:
		if card == nil {
			return decimal.NullDecimal{}
		}
		ref := card.ReferencePrice(entry.IsFoil)
		if !ref.Valid {
			return decimal.NullDecimal{}
		}
		price = ref.Decimal.Mul(entry.Percentage).Div(hundred)
	}

	price = price.Round(2)
	if price.LessThan(floor) {
		price = floor
	}

	return decimal.NewNullDecimal(price)
}

// ExceedsMax is true only when both prices are known and asking is above the ceiling.
func ExceedsMax(asking, max decimal.NullDecimal) bool {
	return asking.Valid && max.Valid && asking.Decimal.GreaterThan(max.Decimal)
}
