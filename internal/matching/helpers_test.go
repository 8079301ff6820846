// internal/matching/helpers_test.go
package matching

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cardswap/cardswap-backend/internal/models"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func nullDec(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(dec(s))
}

func testCard(printingID, oracleID, price string) *models.CardCatalogEntry {
	card := &models.CardCatalogEntry{
		PrintingID: printingID,
		OracleID:   oracleID,
		Name:       "Card " + oracleID,
		SetCode:    "TST",
		SetName:    "Test Set",
	}
	if price != "" {
		card.PriceUSD = nullDec(price)
	}
	return card
}

func testCollection(owner uuid.UUID, card *models.CardCatalogEntry, qty int) *models.CollectionEntry {
	c := &models.CollectionEntry{
		UserID:      owner,
		PrintingID:  card.PrintingID,
		Quantity:    qty,
		Condition:   models.ConditionNM,
		PricingMode: models.PricingModePercentage,
		Percentage:  dec("100"),
		Card:        card,
	}
	c.ID = uuid.New()
	return c
}

func testWishlist(owner uuid.UUID, oracleID string, qty int) *models.WishlistEntry {
	w := &models.WishlistEntry{
		UserID:            owner,
		OracleID:          oracleID,
		Quantity:          qty,
		MinCondition:      models.ConditionDMG,
		FoilPreference:    models.FoilAny,
		EditionPreference: models.EditionAny,
		Priority:          5,
	}
	w.ID = uuid.New()
	return w
}
