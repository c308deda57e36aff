package quality

// TankType names a built-in threshold preset.
type TankType string

const (
	FreshwaterCommunity TankType = "freshwater_community"
	FreshwaterPlanted   TankType = "freshwater_planted"
	SaltwaterFishOnly   TankType = "saltwater_fish_only"
	Reef                TankType = "reef"
)

// Saltwater reports whether the tank type keeps marine water, which decides
// whether salinity is a meaningful metric.
func (t TankType) Saltwater() bool {
	return t == SaltwaterFishOnly || t == Reef
}

func (t TankType) Valid() bool {
	switch t {
	case FreshwaterCommunity, FreshwaterPlanted, SaltwaterFishOnly, Reef:
		return true
	}
	return false
}

// ProfileKind tags a profile as an untouched preset or operator-edited.
type ProfileKind string

const (
	KindPreset ProfileKind = "preset"
	KindCustom ProfileKind = "custom"
)

// Threshold is a two-sided warning band. Ordering expected by the engine:
// CritLow <= WarnLow <= WarnHigh <= CritHigh.
type Threshold struct {
	CritLow  float64 `json:"crit_low"`
	WarnLow  float64 `json:"warn_low"`
	WarnHigh float64 `json:"warn_high"`
	CritHigh float64 `json:"crit_high"`
}

// HighThreshold guards metrics where only too-high is dangerous (NH3,
// conductivity ceiling).
type HighThreshold struct {
	WarnHigh float64 `json:"warn_high"`
	CritHigh float64 `json:"crit_high"`
}

// LowThreshold guards metrics where only too-low is dangerous (dissolved
// oxygen).
type LowThreshold struct {
	CritLow float64 `json:"crit_low"`
	WarnLow float64 `json:"warn_low"`
}

// RateLimit holds warn/crit rate-of-change deltas. Units depend on the
// metric: pH units per 24 h for pH, °C per hour for temperature.
type RateLimit struct {
	Warn float64 `json:"warn"`
	Crit float64 `json:"crit"`
}

// ProfileVersion is the persisted schema version. Bump when fields are
// added so stored profiles are never reinterpreted silently.
const ProfileVersion = 1

// Profile is the active threshold bundle. Exactly one profile drives the
// engine at a time; selecting a tank type replaces it wholesale, while any
// single-group setter flips Kind to custom.
type Profile struct {
	Version         int           `json:"version"`
	Kind            ProfileKind   `json:"kind"`
	TankType        TankType      `json:"tank_type"`
	Temperature     Threshold     `json:"temperature"`
	TemperatureRate RateLimit     `json:"temperature_rate"`
	PH              Threshold     `json:"ph"`
	PHRate          RateLimit     `json:"ph_rate"`
	NH3             HighThreshold `json:"nh3"`
	ORP             Threshold     `json:"orp"`
	Conductivity    HighThreshold `json:"conductivity"`
	Salinity        Threshold     `json:"salinity"`
	DissolvedOxygen LowThreshold  `json:"dissolved_oxygen"`
}

// FreshwaterCommunityProfile is the base freshwater preset and the fallback
// when no stored profile loads.
func FreshwaterCommunityProfile() Profile {
	return Profile{
		Version:         ProfileVersion,
		Kind:            KindPreset,
		TankType:        FreshwaterCommunity,
		Temperature:     Threshold{CritLow: 18.0, WarnLow: 22.0, WarnHigh: 28.0, CritHigh: 32.0},
		TemperatureRate: RateLimit{Warn: 1.0, Crit: 2.0},
		PH:              Threshold{CritLow: 5.5, WarnLow: 6.0, WarnHigh: 8.0, CritHigh: 9.0},
		PHRate:          RateLimit{Warn: 0.3, Crit: 1.0},
		NH3:             HighThreshold{WarnHigh: 0.02, CritHigh: 0.05},
		ORP:             Threshold{CritLow: 150.0, WarnLow: 250.0, WarnHigh: 450.0, CritHigh: 550.0},
		Conductivity:    HighThreshold{WarnHigh: 0.8, CritHigh: 1.5},
		Salinity:        Threshold{CritLow: 0.0, WarnLow: 0.0, WarnHigh: 0.5, CritHigh: 1.0},
		DissolvedOxygen: LowThreshold{CritLow: 3.0, WarnLow: 5.0},
	}
}

// FreshwaterPlantedProfile derives from the community preset, tightening pH
// for CO2 injection and raising the conductivity ceiling for fertilization.
func FreshwaterPlantedProfile() Profile {
	p := FreshwaterCommunityProfile()
	p.TankType = FreshwaterPlanted
	p.PH = Threshold{CritLow: 5.8, WarnLow: 6.2, WarnHigh: 7.6, CritHigh: 8.5}
	p.Conductivity = HighThreshold{WarnHigh: 1.2, CritHigh: 2.0}
	return p
}

func SaltwaterFishOnlyProfile() Profile {
	return Profile{
		Version:         ProfileVersion,
		Kind:            KindPreset,
		TankType:        SaltwaterFishOnly,
		Temperature:     Threshold{CritLow: 21.0, WarnLow: 24.0, WarnHigh: 28.0, CritHigh: 30.0},
		TemperatureRate: RateLimit{Warn: 1.0, Crit: 2.0},
		PH:              Threshold{CritLow: 7.4, WarnLow: 7.8, WarnHigh: 8.5, CritHigh: 8.8},
		PHRate:          RateLimit{Warn: 0.2, Crit: 0.5},
		NH3:             HighThreshold{WarnHigh: 0.01, CritHigh: 0.02},
		ORP:             Threshold{CritLow: 200.0, WarnLow: 300.0, WarnHigh: 450.0, CritHigh: 500.0},
		Conductivity:    HighThreshold{WarnHigh: 58.0, CritHigh: 62.0},
		Salinity:        Threshold{CritLow: 28.0, WarnLow: 30.0, WarnHigh: 36.0, CritHigh: 40.0},
		DissolvedOxygen: LowThreshold{CritLow: 4.0, WarnLow: 5.5},
	}
}

// ReefProfile derives from the fish-only preset, then tightens the bands
// corals care about.
func ReefProfile() Profile {
	p := SaltwaterFishOnlyProfile()
	p.TankType = Reef
	p.Temperature.WarnHigh = 27.0
	p.Temperature.CritHigh = 29.0
	p.PH = Threshold{CritLow: 7.7, WarnLow: 8.1, WarnHigh: 8.4, CritHigh: 8.6}
	p.PHRate = RateLimit{Warn: 0.1, Crit: 0.3}
	p.NH3 = HighThreshold{WarnHigh: 0.005, CritHigh: 0.01}
	p.ORP.WarnLow = 350.0
	p.ORP.CritLow = 250.0
	p.Salinity = Threshold{CritLow: 30.0, WarnLow: 32.0, WarnHigh: 36.0, CritHigh: 38.0}
	return p
}

// ProfileFor returns the preset for a tank type, defaulting to the
// freshwater community preset for anything unrecognized.
func ProfileFor(t TankType) Profile {
	switch t {
	case FreshwaterPlanted:
		return FreshwaterPlantedProfile()
	case SaltwaterFishOnly:
		return SaltwaterFishOnlyProfile()
	case Reef:
		return ReefProfile()
	default:
		return FreshwaterCommunityProfile()
	}
}

// ResetToDefaults re-applies the preset for the recorded tank type,
// discarding manual edits.
func (p *Profile) ResetToDefaults() {
	*p = ProfileFor(p.TankType)
}

// Manual per-group setters. Each marks the profile custom; the engine does
// not re-validate ordering at set time (see the API layer).

func (p *Profile) SetTemperature(t Threshold)      { p.Temperature = t; p.Kind = KindCustom }
func (p *Profile) SetTemperatureRate(r RateLimit)  { p.TemperatureRate = r; p.Kind = KindCustom }
func (p *Profile) SetPH(t Threshold)               { p.PH = t; p.Kind = KindCustom }
func (p *Profile) SetPHRate(r RateLimit)           { p.PHRate = r; p.Kind = KindCustom }
func (p *Profile) SetNH3(t HighThreshold)          { p.NH3 = t; p.Kind = KindCustom }
func (p *Profile) SetORP(t Threshold)              { p.ORP = t; p.Kind = KindCustom }
func (p *Profile) SetConductivity(t HighThreshold) { p.Conductivity = t; p.Kind = KindCustom }
func (p *Profile) SetSalinity(t Threshold)         { p.Salinity = t; p.Kind = KindCustom }
func (p *Profile) SetDissolvedOxygen(t LowThreshold) {
	p.DissolvedOxygen = t
	p.Kind = KindCustom
}
