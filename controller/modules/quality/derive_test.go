package quality

import (
	"math"
	"testing"
)

func almost(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps
}

func TestTDS(t *testing.T) {
	if got := TDS(1.5, 0.64); !almost(got, 960, 1e-9) {
		t.Errorf("expected 960 ppm, got %v", got)
	}
	if got := TDS(-1, 0.64); got != 0 {
		t.Errorf("negative conductivity: expected 0, got %v", got)
	}
}

func TestCO2(t *testing.T) {
	// 4 dKH at pH 7.0: 3 * 4 * 10^0 = 12 ppm.
	if got := CO2(7.0, 4.0); !almost(got, 12.0, 1e-9) {
		t.Errorf("expected 12 ppm, got %v", got)
	}
	// Very low pH saturates the clamp.
	if got := CO2(4.0, 10.0); got != 100 {
		t.Errorf("expected clamp to 100, got %v", got)
	}
	if got := CO2(7.0, 0); got != 0 {
		t.Errorf("zero KH: expected 0, got %v", got)
	}
	if got := CO2(15.0, 4.0); got != 0 {
		t.Errorf("pH out of range: expected 0, got %v", got)
	}
}

func TestToxicAmmoniaFraction(t *testing.T) {
	// At 25°C, pH 7: pKa = 0.09018 + 2729.92/298.15 ≈ 9.246, fraction ≈ 0.0057.
	got := ToxicAmmoniaFraction(25.0, 7.0)
	if !almost(got, 0.0057, 0.0005) {
		t.Errorf("expected ≈0.0057, got %v", got)
	}
	// Higher pH shifts the equilibrium sharply toward NH3.
	if ToxicAmmoniaFraction(25.0, 9.0) <= got {
		t.Error("fraction must grow with pH")
	}
	if ToxicAmmoniaFraction(60.0, 7.0) != 0 {
		t.Error("temperature out of range must yield 0")
	}
	if f := ToxicAmmoniaFraction(25.0, 14.0); f < 0 || f > 1 {
		t.Errorf("fraction must stay within [0,1], got %v", f)
	}
}

func TestActualNH3(t *testing.T) {
	if got := ActualNH3(2.0, 0.01); !almost(got, 0.02, 1e-9) {
		t.Errorf("expected 0.02 ppm, got %v", got)
	}
	if ActualNH3(-1, 0.5) != 0 || ActualNH3(1, -0.5) != 0 {
		t.Error("negative inputs must yield 0")
	}
}

func TestMaxDissolvedOxygen(t *testing.T) {
	// Freshwater at 25°C ≈ 8.18 mg/L by the Truesdale polynomial.
	fresh := MaxDissolvedOxygen(25.0, 0)
	if !almost(fresh, 8.18, 0.05) {
		t.Errorf("expected ≈8.18 mg/L, got %v", fresh)
	}
	salt := MaxDissolvedOxygen(25.0, 35.0)
	if salt >= fresh {
		t.Error("salinity must depress oxygen saturation")
	}
	if !almost(salt, fresh*(1-35.0*0.002), 1e-9) {
		t.Errorf("unexpected salinity correction: %v", salt)
	}
	if MaxDissolvedOxygen(-5, 0) != 0 {
		t.Error("temperature out of range must yield 0")
	}
	if MaxDissolvedOxygen(0, 0) > 20 {
		t.Error("result must be clamped to 20")
	}
}

func TestStockingDensity(t *testing.T) {
	if got := StockingDensity(100, 200); !almost(got, 0.5, 1e-9) {
		t.Errorf("expected 0.5 cm/L, got %v", got)
	}
	if StockingDensity(100, 0) != 0 {
		t.Error("zero volume must yield 0")
	}
}

func TestSalinityFromConductivity(t *testing.T) {
	// Natural seawater ≈ 53 mS/cm → ≈ 35 ppt.
	if got := SalinityFromConductivity(53.0); !almost(got, 35.0, 0.2) {
		t.Errorf("expected ≈35 ppt, got %v", got)
	}
	if SalinityFromConductivity(-1) != 0 {
		t.Error("negative conductivity must yield 0")
	}
}
