// internal/matching/eligibility.go
package matching

import (
	"github.com/cardswap/cardswap-backend/internal/models"
)

// ConditionMeets reports whether actual is at least as good as min.
// Unknown conditions never meet anything.
func ConditionMeets(actual, min models.Condition) bool {
	a, m := actual.Rank(), min.Rank()
	if a < 0 || m < 0 {
		return false
	}
	return a <= m
}

func FoilSatisfies(isFoil bool, pref models.FoilPreference) bool {
	switch pref {
	case models.FoilOnly:
		return isFoil
	case models.FoilNonFoil:
		return !isFoil
	default:
		return true
	}
}

func EditionSatisfies(printingID string, w *models.WishlistEntry) bool {
	if w.EditionPreference != models.EditionSpecific {
		return true
	}
	for _, id := range w.PrintingIDs {
		if id == printingID {
			return true
		}
	}
	return false
}

// Eligible is the matching predicate for one wishlist entry against one
// collection entry whose catalog card is known. Quantities are not compared.
func Eligible(w *models.WishlistEntry, c *models.CollectionEntry, card *models.CardCatalogEntry) bool {
	if card == nil || card.OracleID != w.OracleID {
		return false
	}
	return EditionSatisfies(card.PrintingID, w) &&
		ConditionMeets(c.Condition, w.MinCondition) &&
		FoilSatisfies(c.IsFoil, w.FoilPreference)
}
