package engine

import (
	"fmt"
	"sort"
)

// BuildDestQuotes runs the liquidity model for every item at a destination
// station and returns the sell-side quotes the opportunity builder joins
// against. Items without history come back with zero liquidity and are
// excluded later, never dropped silently here.
func BuildDestQuotes(src HistorySource, stationID int64, typeIDs []int32, windowDays int, model PriceModel) []DestQuote {
	quotes := make([]DestQuote, 0, len(typeIDs))
	for _, typeID := range typeIDs {
		est := EstimateLiquidity(src, typeID, stationID, windowDays, model)
		quotes = append(quotes, DestQuote{
			TypeID:           typeID,
			StationID:        stationID,
			SellPrice:        est.ReferencePrice,
			MaxSellableUnits: est.MaxSellableUnits,
		})
	}
	return quotes
}

// BuildOpportunities joins source buy costs with destination sell prices
// under the fee model and returns the per-(item, destination) unit
// economics. Pairs with non-positive profit or zero liquidity are dropped
// before ranking; notes report how many were skipped so a thin plan is
// explainable. Shipping is not part of unitProfit: the planner charges it
// per package.
func BuildOpportunities(sources []SourceQuote, dests []DestQuote, fees FeeModel) ([]Opportunity, []string) {
	srcByType := make(map[int32]SourceQuote, len(sources))
	for _, s := range sources {
		srcByType[s.TypeID] = s
	}

	sellFactor := 1 - fees.SalesTaxRate - fees.BrokerFeeRate

	var opps []Opportunity
	var skippedMargin, skippedLiquidity int
	for _, d := range dests {
		s, ok := srcByType[d.TypeID]
		if !ok || s.BestAsk <= 0 {
			continue
		}
		unitProfit := d.SellPrice*sellFactor - s.BestAsk
		if d.MaxSellableUnits <= 0 {
			skippedLiquidity++
			continue
		}
		if unitProfit <= 0 {
			skippedMargin++
			continue
		}
		opps = append(opps, Opportunity{
			TypeID:               d.TypeID,
			TypeName:             s.TypeName,
			DestinationStationID: d.StationID,
			UnitCost:             s.BestAsk,
			UnitProfit:           unitProfit,
			UnitVolumeM3:         s.UnitVolumeM3,
			MaxSellableUnits:     d.MaxSellableUnits,
		})
	}

	// Deterministic output order regardless of input order.
	sort.Slice(opps, func(i, j int) bool {
		if opps[i].DestinationStationID != opps[j].DestinationStationID {
			return opps[i].DestinationStationID < opps[j].DestinationStationID
		}
		return opps[i].TypeID < opps[j].TypeID
	})

	var notes []string
	if skippedMargin > 0 {
		notes = append(notes, fmt.Sprintf("skipped %d item(s) with zero or negative margin", skippedMargin))
	}
	if skippedLiquidity > 0 {
		notes = append(notes, fmt.Sprintf("skipped %d item(s) with no sellable liquidity in window", skippedLiquidity))
	}
	return opps, notes
}
