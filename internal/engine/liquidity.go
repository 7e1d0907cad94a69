package engine

// LiquidityWindow is the trailing slice of daily history used to estimate
// how many units a station can realistically absorb. Derived per request,
// never persisted by the engine.
type LiquidityWindow struct {
	TypeID      int32   `json:"type_id"`
	StationID   int64   `json:"station_id"`
	WindowDays  int     `json:"window_days"`
	DailyVolume []int64 `json:"daily_volume"`
	AvgPrice    float64 `json:"avg_price"`
	LowPrice    float64 `json:"low_price"`
	HighPrice   float64 `json:"high_price"`
}

// LiquidityEstimate is the output of the liquidity model: the units
// sellable within the window and the price the caller should assume.
type LiquidityEstimate struct {
	MaxSellableUnits int64   `json:"max_sellable_units"`
	ReferencePrice   float64 `json:"reference_price"`
	DaysUsed         int     `json:"days_used"`
	// Partial is true when fewer than windowDays of history were available.
	Partial bool `json:"partial"`
}

// BuildLiquidityWindow aggregates the trailing windowDays of points into a
// LiquidityWindow. Shorter series are used as-is; zero points yield a zero
// window, never an error.
func BuildLiquidityWindow(typeID int32, stationID int64, points []HistoryPoint, windowDays int) LiquidityWindow {
	if windowDays < 1 {
		windowDays = 1
	}
	if len(points) > windowDays {
		points = points[len(points)-windowDays:]
	}

	w := LiquidityWindow{
		TypeID:     typeID,
		StationID:  stationID,
		WindowDays: windowDays,
	}

	var volSum int64
	var priceVolSum float64
	for _, p := range points {
		w.DailyVolume = append(w.DailyVolume, p.Volume)
		volSum += p.Volume
		priceVolSum += p.AvgPrice * float64(p.Volume)
		if w.LowPrice == 0 || (p.LowPrice > 0 && p.LowPrice < w.LowPrice) {
			w.LowPrice = p.LowPrice
		}
		if p.HighPrice > w.HighPrice {
			w.HighPrice = p.HighPrice
		}
	}
	if volSum > 0 {
		w.AvgPrice = priceVolSum / float64(volSum)
	} else if len(points) > 0 {
		// No traded volume in the window: fall back to a plain average so
		// the window still carries a usable price mark.
		sum := 0.0
		for _, p := range points {
			sum += p.AvgPrice
		}
		w.AvgPrice = sum / float64(len(points))
	}
	return w
}

// Estimate converts the window into a sellable-units estimate at the given
// price assumption. LOW bounds the worst case, HIGH the best case, AVG the
// central case; the harness exercises all three through this one path.
func (w LiquidityWindow) Estimate(model PriceModel) LiquidityEstimate {
	est := LiquidityEstimate{
		DaysUsed: len(w.DailyVolume),
		Partial:  len(w.DailyVolume) < w.WindowDays,
	}
	for _, v := range w.DailyVolume {
		est.MaxSellableUnits += v
	}
	switch model {
	case PriceLow:
		est.ReferencePrice = w.LowPrice
	case PriceHigh:
		est.ReferencePrice = w.HighPrice
	default:
		est.ReferencePrice = w.AvgPrice
	}
	return est
}

// EstimateLiquidity is the convenience path: fetch, window, estimate.
// A source with no data for the pair yields a zero estimate that downstream
// ranking excludes.
func EstimateLiquidity(src HistorySource, typeID int32, stationID int64, windowDays int, model PriceModel) LiquidityEstimate {
	points := src.History(typeID, stationID, windowDays)
	return BuildLiquidityWindow(typeID, stationID, points, windowDays).Estimate(model)
}

// dayPoint returns the history point for an exact date, if the source has
// one. Used by the simulator, which steps a calendar day at a time.
func dayPoint(points []HistoryPoint, date string) (HistoryPoint, bool) {
	for i := len(points) - 1; i >= 0; i-- {
		if points[i].Date == date {
			return points[i], true
		}
		if points[i].Date < date {
			break
		}
	}
	return HistoryPoint{}, false
}
