package quality

import "math"

// Derived water-chemistry metrics. All functions are total: inputs outside
// the documented domain return 0 instead of failing, so a bad probe reading
// can never take the sampling cycle down.

// TDSFactorNaCl is the usual conversion factor for NaCl-dominated water.
// Planted-tank keepers often use 0.7 ("442" mix); 0.64 is the meter default.
const TDSFactorNaCl = 0.64

// SalinityPerMS approximates ppt salinity per mS/cm of conductivity for
// seawater-range samples (hobbyist conversion tables).
const SalinityPerMS = 0.662

// TDS estimates total dissolved solids (ppm) from conductivity (mS/cm).
func TDS(ecMS, factor float64) float64 {
	if ecMS < 0 || factor < 0 {
		return 0
	}
	return ecMS * 1000 * factor
}

// CO2 estimates dissolved CO2 (ppm) from pH and carbonate hardness (dKH),
// clamped to [0, 100].
func CO2(ph, khDKH float64) float64 {
	if khDKH <= 0 || ph < 0 || ph > 14 {
		return 0
	}
	co2 := 3.0 * khDKH * math.Pow(10, 7.0-ph)
	if co2 < 0 {
		return 0
	}
	if co2 > 100 {
		return 100
	}
	return co2
}

// ToxicAmmoniaFraction returns the fraction of total ammonia present as
// toxic NH3, from the ammonia/ammonium equilibrium at the given temperature
// and pH. Result is clamped to [0, 1].
func ToxicAmmoniaFraction(tempC, ph float64) float64 {
	if tempC < 0 || tempC > 50 || ph < 0 || ph > 14 {
		return 0
	}
	tK := tempC + 273.15
	pKa := 0.09018 + 2729.92/tK
	f := 1 / (math.Pow(10, pKa-ph) + 1)
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// ActualNH3 converts total ammonia nitrogen (ppm) into toxic NH3 ppm.
func ActualNH3(tanPPM, toxicFraction float64) float64 {
	if tanPPM < 0 || toxicFraction < 0 {
		return 0
	}
	return tanPPM * toxicFraction
}

// MaxDissolvedOxygen returns the saturation limit of dissolved oxygen
// (mg/L) at the given temperature, corrected for salinity (ppt), clamped
// to [0, 20].
func MaxDissolvedOxygen(tempC, salinityPPT float64) float64 {
	if tempC < 0 || tempC > 50 {
		return 0
	}
	do := 14.652 - 0.41022*tempC + 0.007991*tempC*tempC - 0.000077774*tempC*tempC*tempC
	if salinityPPT > 0 {
		do *= 1 - salinityPPT*0.002
	}
	if do < 0 {
		return 0
	}
	if do > 20 {
		return 20
	}
	return do
}

// StockingDensity returns cm of fish per liter of tank volume.
func StockingDensity(totalFishCM, tankVolumeL float64) float64 {
	if tankVolumeL <= 0 || totalFishCM < 0 {
		return 0
	}
	return totalFishCM / tankVolumeL
}

// SalinityFromConductivity approximates salinity (ppt) from conductivity
// (mS/cm) for marine samples.
func SalinityFromConductivity(ecMS float64) float64 {
	if ecMS < 0 {
		return 0
	}
	return ecMS * SalinityPerMS
}
