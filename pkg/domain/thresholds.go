package domain

// Thresholds collects every tunable bound named in spec.md §3/§4 so that
// partitioning, column generation, the master, greedy and audit all read
// the same numbers. It is pure data: pkg/config owns parsing it out of the
// solver_config/tenant_policy files and hashing it; domain only knows how
// to apply it.
type Thresholds struct {
	// Gap windows, in minutes, admissible between consecutive tours.
	GapRegularMin int // 30
	GapRegularMax int // 60
	GapSplitMin   int // 240
	GapSplitMax   int // 360

	// Span caps, in minutes.
	SpanRegularMaxMin int // 14h = 840
	SpanSplitMaxMin   int // 16h = 960

	// RestMinMin is the hard rest floor between consecutive working days
	// (660 = 11h, spec.md §8 boundary: exactly 660 passes, 659 fails).
	RestMinMin int

	// HeavyRestMinMin is the rest floor that applies when either the prior
	// or the following day is heavy (3 tours). spec.md §9 leaves this as an
	// open, tenant-configurable question; default equals RestMinMin (11h).
	HeavyRestMinMin int

	MaxToursPerDay            int // 3
	HeavyDayTourCount         int // 3
	NextDayAfterHeavyMaxTours int // 2

	FTEMaxMin int // 55h = 3300, hard
	PTMaxMin  int // 40h = 2400, hard

	// FTESoftTargetMinMin/MaxMin bound the RNG-drawn build-from-seed target
	// (spec.md §4.2 move 1): a column stops growing once total_min lands in
	// this half-open-ish band.
	FTESoftTargetMinMin int // 48h = 2880
	FTESoftTargetMaxMin int // 55h = 3300

	// PTMinHoursSoftMin is the soft PT floor used only as a Stage-2
	// fragmentation penalty (spec.md §9 Open Question #2), never a hard bound.
	PTMinHoursSoftMin int

	FreezeHorizonMin int // 720 = 12h

	// Near-violation ("yellow zone") bands, non-blocking (spec.md §4.5).
	NearViolationRestBandMin int // rest in [RestMinMin, RestMinMin+NearViolationRestBandMin) warns
	NearViolationSpanBandMin int // span in (cap-band, cap] warns

	PoolCap        int // column pool cap, default 20000
	FTEOverflowCap int // default 10

	// Stage-2 lexicographic objective weights (spec.md §4.3).
	WeightSingleton    float64
	WeightUnderfill    float64
	WeightPTDays       float64
	WeightPTUnderfloor float64
}

// DefaultThresholds returns the defaults named throughout spec.md.
func DefaultThresholds() Thresholds {
	return Thresholds{
		GapRegularMin:             30,
		GapRegularMax:             60,
		GapSplitMin:               240,
		GapSplitMax:               360,
		SpanRegularMaxMin:         14 * 60,
		SpanSplitMaxMin:           16 * 60,
		RestMinMin:                660,
		HeavyRestMinMin:           660,
		MaxToursPerDay:            3,
		HeavyDayTourCount:         3,
		NextDayAfterHeavyMaxTours: 2,
		FTEMaxMin:                 55 * 60,
		PTMaxMin:                  40 * 60,
		FTESoftTargetMinMin:       48 * 60,
		FTESoftTargetMaxMin:       55 * 60,
		PTMinHoursSoftMin:         20 * 60,
		FreezeHorizonMin:          720,
		NearViolationRestBandMin:  60,
		NearViolationSpanBandMin:  120,
		PoolCap:                   20000,
		FTEOverflowCap:            10,
		WeightSingleton:           1000,
		WeightUnderfill:           1,
		WeightPTDays:              5,
		WeightPTUnderfloor:        2,
	}
}
