// internal/matching/pairing.go
package matching

import (
	"bytes"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cardswap/cardswap-backend/internal/models"
)

// namespace for deterministic match and line identities.
var idNamespace = uuid.MustParse("6f1d7c4e-3b0a-4f5e-9a41-2c8d7e5b9f10")

// Candidate is one wishlist entry satisfied by one collection entry.
type Candidate struct {
	Wishlist        *models.WishlistEntry
	Collection      *models.CollectionEntry
	AskingPrice     decimal.NullDecimal
	PriceExceedsMax bool
}

// FindCandidates pairs every wishlist entry with every eligible collection
// entry. Collection entries without a resolved catalog card are ignored. The
// result is ordered by wishlist id then collection id.
func FindCandidates(wishlist []*models.WishlistEntry, collection []*models.CollectionEntry, floor decimal.Decimal) []Candidate {
	byOracle := make(map[string][]*models.CollectionEntry)
	for _, c := range collection {
		if c.Card == nil {
			continue
		}
		byOracle[c.Card.OracleID] = append(byOracle[c.Card.OracleID], c)
	}

	var out []Candidate
	for _, w := range wishlist {
		for _, c := range byOracle[w.OracleID] {
			if !Eligible(w, c, c.Card) {
				continue
			}
			asking := AskingPrice(c, c.Card, floor)
			out = append(out, Candidate{
				Wishlist:        w,
				Collection:      c,
				AskingPrice:     asking,
				PriceExceedsMax: ExceedsMax(asking, w.MaxPrice),
			})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if c := bytes.Compare(out[i].Wishlist.ID[:], out[j].Wishlist.ID[:]); c != 0 {
			return c < 0
		}
		return bytes.Compare(out[i].Collection.ID[:], out[j].Collection.ID[:]) < 0
	})

	return out
}

// PairEvaluation is the outcome of matching two users, seen from self.
type PairEvaluation struct {
	CardsIWant       []Candidate
	CardsTheyWant    []Candidate
	MatchType        models.MatchType
	ValueIWant       decimal.Decimal
	ValueTheyWant    decimal.Decimal
	HasPriceWarnings bool
	PriceEfficiency  float64
	DistanceKm       float64
	Score            float64
}

func (e *PairEvaluation) Empty() bool {
	return len(e.CardsIWant) == 0 && len(e.CardsTheyWant) == 0
}

// EvaluatePair classifies and scores a pair. The zero MatchType is left when both sides are empty.
func EvaluatePair(iWant, theyWant []Candidate, distanceKm float64) PairEvaluation {
	ev := PairEvaluation{
		CardsIWant:    iWant,
		CardsTheyWant: theyWant,
		DistanceKm:    distanceKm,
	}
	if ev.Empty() {
		return ev
	}

	switch {
	case len(iWant) > 0 && len(theyWant) > 0:
		ev.MatchType = models.MatchTypeTwoWay
	case len(iWant) > 0:
		ev.MatchType = models.MatchTypeOneWayBuy
	default:
		ev.MatchType = models.MatchTypeOneWaySell
	}

	ev.ValueIWant, ev.HasPriceWarnings = sumCandidates(iWant)
	var theyWarn bool
	ev.ValueTheyWant, theyWarn = sumCandidates(theyWant)
	ev.HasPriceWarnings = ev.HasPriceWarnings || theyWarn
	ev.PriceEfficiency = PriceEfficiency(iWant)

	ev.Score = Score(ScoreInput{
		MatchType:        ev.MatchType,
		SelfWantsCount:   len(iWant),
		TheyWantCount:    len(theyWant),
		SelfWantsValue:   ev.ValueIWant.InexactFloat64(),
		TheyWantValue:    ev.ValueTheyWant.InexactFloat64(),
		DistanceKm:       distanceKm,
		HasPriceWarnings: ev.HasPriceWarnings,
		PriceEfficiency:  ev.PriceEfficiency,
	})

	return ev
}

// PriceEfficiency is the mean asking/max ratio over lines that carry both prices, clamped to [0,1].
func PriceEfficiency(cands []Candidate) float64 {
	var sum float64
	var n int
	for _, c := range cands {
		max := c.Wishlist.MaxPrice
		if !c.AskingPrice.Valid || !max.Valid || !max.Decimal.IsPositive() {
			continue
		}
		sum += c.AskingPrice.Decimal.Div(max.Decimal).InexactFloat64()
		n++
	}
	if n == 0 {
		return DefaultPriceEfficiency
	}
	return clamp(sum/float64(n), 0, 1)
}

func sumCandidates(cands []Candidate) (decimal.Decimal, bool) {
	total := decimal.Zero
	var warn bool
	for _, c := range cands {
		if c.AskingPrice.Valid {
			total = total.Add(c.AskingPrice.Decimal)
		}
		warn = warn || c.PriceExceedsMax
	}
	return total, warn
}

// CanonicalPair orders two identities so the lower one is user A.
func CanonicalPair(x, y uuid.UUID) (a, b uuid.UUID) {
	if bytes.Compare(x[:], y[:]) <= 0 {
		return x, y
	}
	return y, x
}

// MatchID is the stable identity of the match row for an unordered pair.
func MatchID(x, y uuid.UUID) uuid.UUID {
	a, b := CanonicalPair(x, y)
	return uuid.NewSHA1(idNamespace, append(a[:], b[:]...))
}

// LineID is the stable identity of an algorithmic line inside a match.
func LineID(matchID uuid.UUID, dir models.Direction, wishlistID, collectionID uuid.UUID) uuid.UUID {
	data := make([]byte, 0, 16*3+len(dir))
	data = append(data, matchID[:]...)
	data = append(data, dir...)
	data = append(data, wishlistID[:]...)
	data = append(data, collectionID[:]...)
	return uuid.NewSHA1(idNamespace, data)
}

// BuildMatch turns an evaluation from self's point of view into a canonical
// Match with its lines. Counts, values and match type are reoriented to A/B.
func BuildMatch(selfID, otherID uuid.UUID, ev PairEvaluation) *models.Match {
	a, b := CanonicalPair(selfID, otherID)
	selfIsA := a == selfID

	m := &models.Match{
		UserAID:          a,
		UserBID:          b,
		DistanceKm:       round2(ev.DistanceKm),
		Score:            ev.Score,
		HasPriceWarnings: ev.HasPriceWarnings,
		Status:           models.MatchStatusActive,
	}
	m.ID = MatchID(a, b)
	ApplyEvaluation(m, selfID, ev)

	iWantDir, theyWantDir := models.DirectionAWants, models.DirectionBWants
	if !selfIsA {
		iWantDir, theyWantDir = theyWantDir, iWantDir
	}
	m.Lines = append(BuildLines(m.ID, iWantDir, ev.CardsIWant), BuildLines(m.ID, theyWantDir, ev.CardsTheyWant)...)

	return m
}

// ApplyEvaluation copies the aggregate fields of ev onto m, oriented for selfID.
func ApplyEvaluation(m *models.Match, selfID uuid.UUID, ev PairEvaluation) {
	m.MatchType = ev.MatchType
	m.Score = ev.Score
	m.HasPriceWarnings = ev.HasPriceWarnings
	if m.IsUserA(selfID) {
		m.CardsAWants, m.CardsBWants = len(ev.CardsIWant), len(ev.CardsTheyWant)
		m.ValueAWants, m.ValueBWants = ev.ValueIWant, ev.ValueTheyWant
	} else {
		m.MatchType = ev.MatchType.Mirror()
		m.CardsAWants, m.CardsBWants = len(ev.CardsTheyWant), len(ev.CardsIWant)
		m.ValueAWants, m.ValueBWants = ev.ValueTheyWant, ev.ValueIWant
	}
}

// BuildLines creates one included, non-custom line per candidate.
func BuildLines(matchID uuid.UUID, dir models.Direction, cands []Candidate) []models.MatchCardLine {
	lines := make([]models.MatchCardLine, 0, len(cands))
	for _, c := range cands {
		wID, cID := c.Wishlist.ID, c.Collection.ID
		line := models.MatchCardLine{
			MatchID:           matchID,
			Direction:         dir,
			WishlistEntryID:   &wID,
			CollectionEntryID: &cID,
			CardSnapshot:      c.Collection.Card.Snapshot(),
			AskingPrice:       c.AskingPrice,
			MaxPrice:          c.Wishlist.MaxPrice,
			PriceExceedsMax:   c.PriceExceedsMax,
			Condition:         c.Collection.Condition,
			IsFoil:            c.Collection.IsFoil,
			QuantityAvailable: c.Collection.Quantity,
			QuantityWanted:    c.Wishlist.Quantity,
		}
		line.ID = LineID(matchID, dir, wID, cID)
		lines = append(lines, line)
	}
	return lines
}
