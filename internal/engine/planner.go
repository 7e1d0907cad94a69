package engine

import (
	"fmt"
	"math"
	"sort"
)

// Allocator turns a validated request plus candidate opportunities into a
// plan. The greedy-with-caps implementation below trades global optimality
// for a deterministic, explainable heuristic; a solver-backed implementation
// can slot in behind the same method.
type Allocator interface {
	Allocate(req PlanRequest, opps []Opportunity) *PlanResult
}

// ValidationError reports a malformed PlanRequest field. Computation never
// starts on an invalid request.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid plan request: %s %s", e.Field, e.Reason)
}

// Validate checks the request against the engine's input contract.
func (r PlanRequest) Validate() error {
	if r.InvestmentISK <= 0 {
		return &ValidationError{Field: "investment_isk", Reason: "must be positive"}
	}
	if r.PackageCapacityM3 <= 0 {
		return &ValidationError{Field: "package_capacity_m3", Reason: "must be positive"}
	}
	if r.MaxPackagesHint < 1 {
		return &ValidationError{Field: "max_packages_hint", Reason: "must be at least 1"}
	}
	if r.PerDestinationMaxBudgetSharePerItem <= 0 || r.PerDestinationMaxBudgetSharePerItem > 1 {
		return &ValidationError{Field: "per_destination_max_budget_share_per_item", Reason: "must be in (0,1]"}
	}
	if r.MaxPackageCollateralISK <= 0 {
		return &ValidationError{Field: "max_package_collateral_isk", Reason: "must be positive"}
	}
	if r.LiquidityWindowDays < 1 || r.LiquidityWindowDays > 90 {
		return &ValidationError{Field: "liquidity_window_days", Reason: "must be in 1..90"}
	}
	if r.AllocationMode != "" && r.AllocationMode != AllocationModeBest {
		return &ValidationError{Field: "allocation_mode", Reason: fmt.Sprintf("unknown mode %q", r.AllocationMode)}
	}
	return nil
}

// Plan validates the request and runs the allocator for its mode. Pure and
// deterministic: identical inputs yield identical results, ordering included.
func Plan(req PlanRequest, opps []Opportunity) (*PlanResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return (&GreedyAllocator{}).Allocate(req, opps), nil
}

// GreedyAllocator implements allocation mode "best": destinations ranked by
// their best opportunity's efficiency, budget assigned greedily top-down,
// items packed by efficiency within each destination subject to liquidity,
// diversification, capacity and collateral caps.
type GreedyAllocator struct{}

// Allocate runs the greedy plan. The request must already be validated.
func (a *GreedyAllocator) Allocate(req PlanRequest, opps []Opportunity) *PlanResult {
	result := &PlanResult{
		Packages:           []PackagePlan{},
		ItemExposureByDest: make(map[int64]map[int32]ItemExposure),
		DestSpend:          make(map[int64]float64),
	}

	byDest := make(map[int64][]Opportunity)
	for _, o := range opps {
		if o.UnitProfit <= 0 || o.MaxSellableUnits <= 0 || o.UnitCost <= 0 {
			// Builder normally filters these; tolerate raw input.
			continue
		}
		byDest[o.DestinationStationID] = append(byDest[o.DestinationStationID], o)
	}
	if len(byDest) == 0 {
		result.Notes = append(result.Notes, "no profitable opportunities with liquidity available")
		return result
	}

	// Rank within each destination: efficiency desc, then absolute unit
	// profit desc, then typeID asc. The typeID tail makes plans reproducible.
	for dest := range byDest {
		ranked := byDest[dest]
		sort.Slice(ranked, func(i, j int) bool {
			ei, ej := ranked[i].Efficiency(), ranked[j].Efficiency()
			if ei != ej {
				return ei > ej
			}
			if ranked[i].UnitProfit != ranked[j].UnitProfit {
				return ranked[i].UnitProfit > ranked[j].UnitProfit
			}
			return ranked[i].TypeID < ranked[j].TypeID
		})
	}

	// Rank destinations by their best opportunity's efficiency.
	dests := make([]int64, 0, len(byDest))
	for dest := range byDest {
		dests = append(dests, dest)
	}
	sort.Slice(dests, func(i, j int) bool {
		ei := byDest[dests[i]][0].Efficiency()
		ej := byDest[dests[j]][0].Efficiency()
		if ei != ej {
			return ei > ej
		}
		return dests[i] < dests[j]
	})

	remaining := req.InvestmentISK
	for _, dest := range dests {
		if remaining <= 0 {
			result.Notes = append(result.Notes, fmt.Sprintf("global budget exhausted before destination %d", dest))
			continue
		}
		packages, spend, notes := a.allocateDestination(req, dest, byDest[dest], remaining)
		remaining -= spend
		result.Notes = append(result.Notes, notes...)
		result.Packages = append(result.Packages, packages...)
	}

	if len(result.Packages) == 0 && len(result.Notes) == 0 {
		result.Notes = append(result.Notes, "investment too small for any single unit")
	}

	// Aggregate totals and exposure by summation over packages.
	for _, p := range result.Packages {
		result.TotalSpendISK += p.SpendISK
		result.TotalGrossProfitISK += p.GrossProfitISK
		result.TotalShippingISK += p.ShippingISK
		result.TotalNetProfitISK += p.NetProfitISK
		result.DestSpend[p.DestinationStationID] += p.SpendISK

		exposure := result.ItemExposureByDest[p.DestinationStationID]
		if exposure == nil {
			exposure = make(map[int32]ItemExposure)
			result.ItemExposureByDest[p.DestinationStationID] = exposure
		}
		for _, it := range p.Items {
			e := exposure[it.TypeID]
			e.SpendISK = roundIsk(e.SpendISK + it.SpendISK)
			e.Units += it.Units
			exposure[it.TypeID] = e
		}
	}
	result.TotalSpendISK = roundIsk(result.TotalSpendISK)
	result.TotalGrossProfitISK = roundIsk(result.TotalGrossProfitISK)
	result.TotalShippingISK = roundIsk(result.TotalShippingISK)
	result.TotalNetProfitISK = roundIsk(result.TotalNetProfitISK)
	for dest := range result.DestSpend {
		result.DestSpend[dest] = roundIsk(result.DestSpend[dest])
	}
	return result
}

// pkgBuilder accumulates one package as whole units are added to it.
type pkgBuilder struct {
	items    []PlanItem
	spend    float64
	capacity float64
}

func (b *pkgBuilder) add(o Opportunity, units int64) {
	b.spend += float64(units) * o.UnitCost
	b.capacity += float64(units) * o.UnitVolumeM3

	// Merge into an existing line when the same item re-enters the package.
	for i := range b.items {
		if b.items[i].TypeID == o.TypeID {
			b.items[i].Units += units
			return
		}
	}
	b.items = append(b.items, PlanItem{
		TypeID:       o.TypeID,
		TypeName:     o.TypeName,
		Units:        units,
		UnitCost:     o.UnitCost,
		UnitProfit:   o.UnitProfit,
		UnitVolumeM3: o.UnitVolumeM3,
	})
}

// unitsFitting returns how many whole units of o fit the package without
// breaching capacity or collateral limits.
func (b *pkgBuilder) unitsFitting(o Opportunity, capacityM3, collateralISK float64) int64 {
	byCapacity := int64(math.Floor((capacityM3 - b.capacity + floatSlack) / o.UnitVolumeM3))
	byCollateral := int64(math.Floor((collateralISK - b.spend + floatSlack) / o.UnitCost))
	if byCapacity < byCollateral {
		return maxInt64(byCapacity, 0)
	}
	return maxInt64(byCollateral, 0)
}

// floatSlack absorbs binary float error in the floor divisions so an exact
// fit (e.g. 100 m3 item into a 100 m3 package) is not rejected.
const floatSlack = 1e-9

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

// allocateDestination packs one destination's ranked opportunities into up
// to MaxPackagesHint packages, bounded by the destination budget, per-item
// liquidity, and the diversification cap. Returns the finished packages,
// total spend, and human-readable notes for every constraint that truncated
// allocation.
func (a *GreedyAllocator) allocateDestination(req PlanRequest, dest int64, ranked []Opportunity, destBudget float64) ([]PackagePlan, float64, []string) {
	var notes []string

	shipping, ok := req.ShippingCostByStation[dest]
	if !ok {
		notes = append(notes, fmt.Sprintf("destination %d: no shipping cost configured, assuming 0 ISK", dest))
	}

	budget := destBudget
	builders := []*pkgBuilder{{}}
	hintReached := false

	for _, o := range ranked {
		if hintReached {
			break
		}

		byBudget := int64(math.Floor((budget + floatSlack) / o.UnitCost))
		if byBudget <= 0 {
			notes = append(notes, fmt.Sprintf("destination %d: budget exhausted, %s skipped", dest, o.TypeName))
			continue
		}
		byShare := int64(math.Floor((req.PerDestinationMaxBudgetSharePerItem*destBudget + floatSlack) / o.UnitCost))
		if byShare <= 0 {
			notes = append(notes, fmt.Sprintf("destination %d: diversification cap leaves no room for %s", dest, o.TypeName))
			continue
		}

		want := o.MaxSellableUnits
		liquidityBound := true
		if byBudget < want {
			want = byBudget
			liquidityBound = false
		}
		shareBound := false
		if byShare < want {
			want = byShare
			shareBound = true
			liquidityBound = false
		}
		if want <= 0 {
			continue
		}

		// A unit that cannot fit even an empty package can never ship.
		if o.UnitVolumeM3 > req.PackageCapacityM3+floatSlack || o.UnitCost > req.MaxPackageCollateralISK+floatSlack {
			notes = append(notes, fmt.Sprintf("destination %d: %s does not fit package limits, skipped", dest, o.TypeName))
			continue
		}

		placed := int64(0)
		for placed < want {
			cur := builders[len(builders)-1]
			fit := cur.unitsFitting(o, req.PackageCapacityM3, req.MaxPackageCollateralISK)
			if fit <= 0 {
				if len(builders) >= req.MaxPackagesHint {
					hintReached = true
					notes = append(notes, fmt.Sprintf("destination %d: package limit (%d) reached, %d unit(s) of %s left unallocated",
						dest, req.MaxPackagesHint, want-placed, o.TypeName))
					break
				}
				builders = append(builders, &pkgBuilder{})
				continue
			}
			take := want - placed
			if fit < take {
				take = fit
			}
			cur.add(o, take)
			placed += take
			budget -= float64(take) * o.UnitCost
		}

		if placed > 0 && placed == o.MaxSellableUnits && liquidityBound {
			notes = append(notes, fmt.Sprintf("destination %d: liquidity cap reached for %s at %d unit(s)", dest, o.TypeName, placed))
		}
		if placed > 0 && shareBound && placed == byShare {
			notes = append(notes, fmt.Sprintf("destination %d: diversification cap limited %s to %d unit(s)", dest, o.TypeName, placed))
		}
	}

	var packages []PackagePlan
	spend := 0.0
	idx := 0
	for _, b := range builders {
		if len(b.items) == 0 {
			continue
		}
		p := PackagePlan{
			PackageIndex:         idx,
			DestinationStationID: dest,
			ShippingISK:          roundIsk(shipping),
		}
		for _, it := range b.items {
			it.SpendISK = roundIsk(float64(it.Units) * it.UnitCost)
			it.ProfitISK = roundIsk(float64(it.Units) * it.UnitProfit)
			it.VolumeM3 = float64(it.Units) * it.UnitVolumeM3
			p.SpendISK = roundIsk(p.SpendISK + it.SpendISK)
			p.GrossProfitISK = roundIsk(p.GrossProfitISK + it.ProfitISK)
			p.UsedCapacityM3 += it.VolumeM3
			p.Items = append(p.Items, it)
		}
		p.NetProfitISK = roundIsk(p.GrossProfitISK - p.ShippingISK)
		if p.SpendISK > 0 {
			p.Efficiency = p.NetProfitISK / p.SpendISK
		}
		spend += p.SpendISK
		packages = append(packages, p)
		idx++
	}
	return packages, spend, notes
}
