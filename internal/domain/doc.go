// Package domain models blast-induced ground vibration and the damage it is
// expected to cause to nearby structures.
//
// # Attenuation Law
//
// Peak particle velocity (PPV, mm/s) is estimated with the scaled-distance
// law used by open-cast mine operators:
//
//	SD  = D / √Q          D: distance from blast (m), Q: charge per delay (kg)
//	PPV = K · SD^B        K > 0, B < 0: site constants
//
// K and B are empirical and differ between sites. They live in a [SiteTable]
// that is built once and shared by every calculation. A site missing from the
// table uses [DefaultSiteConstants] (K=1100, B=-1.6). Constants can be
// re-derived from field measurements with [FitSiteLaw].
//
// PPV is rounded to two decimals; intermediate math keeps full precision.
//
// # Damage Classification
//
// PPV maps to a five-tier [DamageLevel]. Thresholds are inclusive on the
// lower (safer) tier, so exactly 10 mm/s is None, not Minor:
//
//	≤ 10      None      No observable damage
//	≤ 25      Minor     Fine cracks in plaster, small chips
//	≤ 50      Moderate  Cracks in walls, broken windows
//	≤ 100     Severe    Major structural damage, unsafe conditions
//	> 100     Extreme   Partial or complete building collapse
//
// # Adjustment Factors
//
// [Estimator.PredictImpact] optionally scales the base PPV:
//
//	buildings   ×1.2 when structures are present near the blast
//	delays      min(1, 50/(rowDelay+holeDelay) × 0.8)
//	holes       1 + log10(numHoles) × 0.1
//
// Delay and hole factors only apply when [DelayTiming] is supplied.
//
// # Errors
//
// Every precondition violation returns an [*InvalidInputError] naming the
// field. Nothing in this package performs I/O, and all functions are safe
// for concurrent use.
package domain
