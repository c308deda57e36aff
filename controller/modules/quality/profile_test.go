package quality

import "testing"

func TestReefPresetDerivation(t *testing.T) {
	p := ReefProfile()
	// warn_low inherited from the saltwater fish-only base.
	if p.Temperature.WarnLow != 24.0 {
		t.Errorf("reef temperature.warn_low: expected 24.0, got %v", p.Temperature.WarnLow)
	}
	// warn_low overridden by the reef tightening pass.
	if p.PH.WarnLow != 8.1 {
		t.Errorf("reef ph.warn_low: expected 8.1, got %v", p.PH.WarnLow)
	}
	base := SaltwaterFishOnlyProfile()
	if p.Conductivity != base.Conductivity {
		t.Error("reef must inherit the fish-only conductivity ceiling")
	}
	if p.Temperature.CritLow != base.Temperature.CritLow {
		t.Error("reef must inherit the fish-only temperature floor")
	}
}

func TestPlantedPresetDerivation(t *testing.T) {
	p := FreshwaterPlantedProfile()
	base := FreshwaterCommunityProfile()
	if p.Conductivity.WarnHigh <= base.Conductivity.WarnHigh {
		t.Error("planted preset must raise the conductivity ceiling")
	}
	if p.PH.WarnHigh >= base.PH.WarnHigh {
		t.Error("planted preset must tighten the pH band")
	}
	if p.Temperature != base.Temperature {
		t.Error("planted preset must inherit community temperature band")
	}
	if p.Kind != KindPreset {
		t.Errorf("preset builder produced kind %v", p.Kind)
	}
}

func TestPresetOrderingInvariant(t *testing.T) {
	for _, tank := range []TankType{FreshwaterCommunity, FreshwaterPlanted, SaltwaterFishOnly, Reef} {
		p := ProfileFor(tank)
		for name, th := range map[string]Threshold{
			"temperature": p.Temperature,
			"ph":          p.PH,
			"orp":         p.ORP,
			"salinity":    p.Salinity,
		} {
			if !(th.CritLow <= th.WarnLow && th.WarnLow <= th.WarnHigh && th.WarnHigh <= th.CritHigh) {
				t.Errorf("%s/%s: band ordering violated: %+v", tank, name, th)
			}
		}
		if p.NH3.WarnHigh > p.NH3.CritHigh {
			t.Errorf("%s/nh3: warn above crit", tank)
		}
		if p.DissolvedOxygen.CritLow > p.DissolvedOxygen.WarnLow {
			t.Errorf("%s/dissolved_oxygen: crit above warn", tank)
		}
	}
}

func TestSettersMarkCustom(t *testing.T) {
	p := ReefProfile()
	if p.Kind != KindPreset {
		t.Fatalf("expected preset kind, got %v", p.Kind)
	}
	p.SetNH3(HighThreshold{WarnHigh: 0.002, CritHigh: 0.008})
	if p.Kind != KindCustom {
		t.Error("manual setter must flip profile kind to custom")
	}
	if p.TankType != Reef {
		t.Error("tank type must survive manual edits")
	}
	// Other groups untouched.
	if p.PH.WarnLow != 8.1 {
		t.Error("setter must not alter unrelated groups")
	}
}

func TestResetToDefaults(t *testing.T) {
	p := FreshwaterPlantedProfile()
	p.SetPH(Threshold{CritLow: 1, WarnLow: 2, WarnHigh: 3, CritHigh: 4})
	p.ResetToDefaults()
	if p.Kind != KindPreset {
		t.Error("reset must restore preset kind")
	}
	if p != FreshwaterPlantedProfile() {
		t.Error("reset must restore the recorded tank type's preset")
	}
}

func TestProfileForUnknownFallsBack(t *testing.T) {
	p := ProfileFor(TankType("shrimp_rack"))
	if p.TankType != FreshwaterCommunity {
		t.Errorf("unknown tank type must fall back to freshwater community, got %v", p.TankType)
	}
}

func TestSaltwaterFlag(t *testing.T) {
	if FreshwaterCommunity.Saltwater() || FreshwaterPlanted.Saltwater() {
		t.Error("freshwater types must not be marked saltwater")
	}
	if !SaltwaterFishOnly.Saltwater() || !Reef.Saltwater() {
		t.Error("marine types must be marked saltwater")
	}
}
