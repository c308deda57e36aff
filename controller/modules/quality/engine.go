package quality

import (
	"math"
	"time"
)

// WarningState is the per-metric severity, ordered so that max() of two
// states picks the more severe one.
type WarningState int

const (
	Unknown WarningState = iota
	Normal
	Warning
	Critical
)

func (s WarningState) String() string {
	switch s {
	case Normal:
		return "normal"
	case Warning:
		return "warning"
	case Critical:
		return "critical"
	default:
		return "unknown"
	}
}

// Metric indexes the engine's fixed state table.
type Metric int

const (
	Temperature Metric = iota
	PH
	NH3
	ORP
	Conductivity
	Salinity
	DissolvedOxygen
	metricCount
)

func (m Metric) String() string {
	switch m {
	case Temperature:
		return "temperature"
	case PH:
		return "ph"
	case NH3:
		return "nh3"
	case ORP:
		return "orp"
	case Conductivity:
		return "conductivity"
	case Salinity:
		return "salinity"
	case DissolvedOxygen:
		return "dissolved_oxygen"
	default:
		return "invalid"
	}
}

// Metrics lists every tracked metric in evaluation order.
func Metrics() []Metric {
	ms := make([]Metric, metricCount)
	for i := range ms {
		ms[i] = Metric(i)
	}
	return ms
}

// hysteresisFactor is the anti-flicker dead-band width as a fraction of the
// warn-to-crit gap. A metric already in WARNING/CRITICAL does not improve
// while the value sits within this margin inside the warning boundary.
const hysteresisFactor = 0.05

const secondsPerDay = 86400.0

// MetricState holds one metric's evaluation history. Owned exclusively by
// the engine; mutated only by that metric's evaluate call.
type MetricState struct {
	State         WarningState `json:"state"`
	Current       float64      `json:"current"`
	Previous      float64      `json:"previous"`
	SampledAt     time.Time    `json:"sampled_at"`
	PrevSampledAt time.Time    `json:"previous_sampled_at"`
	HasHistory    bool         `json:"has_history"`
}

// Engine converts metric values into warning states against the active
// profile. It is not safe to mutate the profile concurrently with
// evaluation; the sampling cycle and the API both go through the quality
// controller's lock.
type Engine struct {
	profile Profile
	states  [metricCount]MetricState
	now     func() time.Time
}

func NewEngine(p Profile) *Engine {
	return &Engine{profile: p, now: time.Now}
}

// SetProfile replaces the active thresholds. Metric history survives a
// profile change; states are re-judged on the next cycle.
func (e *Engine) SetProfile(p Profile) { e.profile = p }

func (e *Engine) Profile() Profile { return e.profile }

// State returns a copy of one metric's state.
func (e *Engine) State(m Metric) MetricState {
	if m < 0 || m >= metricCount {
		return MetricState{}
	}
	return e.states[m]
}

// States returns all metric states keyed by metric name.
func (e *Engine) States() map[string]MetricState {
	out := make(map[string]MetricState, metricCount)
	for i := Metric(0); i < metricCount; i++ {
		out[i.String()] = e.states[i]
	}
	return out
}

func (e *Engine) WarningCount() int {
	n := 0
	for i := range e.states {
		if e.states[i].State == Warning {
			n++
		}
	}
	return n
}

func (e *Engine) CriticalCount() int {
	n := 0
	for i := range e.states {
		if e.states[i].State == Critical {
			n++
		}
	}
	return n
}

func (e *Engine) EvaluateTemperature(v float64) WarningState {
	return e.evaluate(Temperature, v, func(v float64, prev WarningState) WarningState {
		return judgeTwoSided(e.profile.Temperature, v, prev)
	})
}

// EvaluatePH layers the rate-of-change check on top of the absolute bands.
// The two checks are independent escalation paths; the final state is the
// max severity of both.
func (e *Engine) EvaluatePH(v float64) WarningState {
	s := &e.states[PH]
	prev := s.State
	now := e.now()
	var elapsed, delta float64
	hadHistory := s.HasHistory
	if hadHistory {
		elapsed = now.Sub(s.SampledAt).Seconds()
		delta = math.Abs(v - s.Current)
		s.Previous = s.Current
		s.PrevSampledAt = s.SampledAt
	}
	s.Current = v
	s.SampledAt = now
	s.HasHistory = true

	state := judgeTwoSided(e.profile.PH, v, prev)
	// elapsed <= 0 covers both same-instant samples and a clock that went
	// backward; no reliable rate exists in either case.
	if hadHistory && elapsed > 0 && !math.IsNaN(delta) {
		rate := delta / elapsed
		warnRate := e.profile.PHRate.Warn / secondsPerDay
		critRate := e.profile.PHRate.Crit / secondsPerDay
		if critRate > 0 && rate > critRate {
			state = Critical
		} else if warnRate > 0 && rate > warnRate && state < Warning {
			state = Warning
		}
	}
	s.State = state
	return state
}

func (e *Engine) EvaluateNH3(v float64) WarningState {
	return e.evaluate(NH3, v, func(v float64, prev WarningState) WarningState {
		return judgeHighOnly(e.profile.NH3, v, prev)
	})
}

func (e *Engine) EvaluateORP(v float64) WarningState {
	return e.evaluate(ORP, v, func(v float64, prev WarningState) WarningState {
		return judgeTwoSided(e.profile.ORP, v, prev)
	})
}

func (e *Engine) EvaluateConductivity(v float64) WarningState {
	return e.evaluate(Conductivity, v, func(v float64, prev WarningState) WarningState {
		return judgeHighOnly(e.profile.Conductivity, v, prev)
	})
}

func (e *Engine) EvaluateSalinity(v float64) WarningState {
	return e.evaluate(Salinity, v, func(v float64, prev WarningState) WarningState {
		return judgeTwoSided(e.profile.Salinity, v, prev)
	})
}

func (e *Engine) EvaluateDissolvedOxygen(v float64) WarningState {
	return e.evaluate(DissolvedOxygen, v, func(v float64, prev WarningState) WarningState {
		return judgeLowOnly(e.profile.DissolvedOxygen, v, prev)
	})
}

// evaluate records history and applies the judge function. The prior
// cycle's state is captured before any mutation so hysteresis always sees
// the pre-call state.
func (e *Engine) evaluate(m Metric, v float64, judge func(float64, WarningState) WarningState) WarningState {
	s := &e.states[m]
	prev := s.State
	now := e.now()
	if s.HasHistory {
		s.Previous = s.Current
		s.PrevSampledAt = s.SampledAt
	}
	s.Current = v
	s.SampledAt = now
	s.HasHistory = true
	s.State = judge(v, prev)
	return s.State
}

// judgeTwoSided applies the full state machine for a two-sided band:
// critical check, warning check, hysteresis hold, normal. NaN is judged
// critical (fail safe) instead of falling through every comparison.
func judgeTwoSided(t Threshold, v float64, prev WarningState) WarningState {
	if math.IsNaN(v) {
		return Critical
	}
	if v <= t.CritLow || v >= t.CritHigh {
		return Critical
	}
	if v <= t.WarnLow || v >= t.WarnHigh {
		return Warning
	}
	if prev >= Warning {
		hystLow := (t.WarnLow - t.CritLow) * hysteresisFactor
		hystHigh := (t.CritHigh - t.WarnHigh) * hysteresisFactor
		if v < t.WarnLow+hystLow || v > t.WarnHigh-hystHigh {
			return prev
		}
	}
	return Normal
}

func judgeHighOnly(t HighThreshold, v float64, prev WarningState) WarningState {
	if math.IsNaN(v) {
		return Critical
	}
	if v >= t.CritHigh {
		return Critical
	}
	if v >= t.WarnHigh {
		return Warning
	}
	if prev >= Warning {
		hyst := (t.CritHigh - t.WarnHigh) * hysteresisFactor
		if v > t.WarnHigh-hyst {
			return prev
		}
	}
	return Normal
}

func judgeLowOnly(t LowThreshold, v float64, prev WarningState) WarningState {
	if math.IsNaN(v) {
		return Critical
	}
	if v <= t.CritLow {
		return Critical
	}
	if v <= t.WarnLow {
		return Warning
	}
	if prev >= Warning {
		hyst := (t.WarnLow - t.CritLow) * hysteresisFactor
		if v < t.WarnLow+hyst {
			return prev
		}
	}
	return Normal
}
