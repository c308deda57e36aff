package quality

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/openreef/aquamon/controller"
	"github.com/openreef/aquamon/controller/modules/probe"
)

const (
	// Bucket holds the active profile and the water-test record.
	Bucket         = "quality"
	readingsBucket = "quality_readings"

	profileKey   = "profile"
	waterTestKey = "watertest"

	// maxReadings caps the persisted history (1 hour at the 5 s default).
	maxReadings = 720
)

// Converter is the slice of the calibration module the cycle needs.
type Converter interface {
	CalculatePH(mv float64) float64
	CalculateEC(nA, uV float64) float64
}

// Sampler reads the probe board.
type Sampler interface {
	ReadRaw() (probe.RawSample, error)
}

// WaterTest holds operator-entered values the probe cannot measure. NH3 and
// dissolved-oxygen evaluation stay UNKNOWN until these exist.
type WaterTest struct {
	KHdKH       float64   `json:"kh_dkh"`
	TANPPM      float64   `json:"tan_ppm"`
	DOMGL       float64   `json:"do_mg_l"`
	FishCM      float64   `json:"fish_cm"`
	TankVolumeL float64   `json:"tank_volume_l"`
	TDSFactor   float64   `json:"tds_factor"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Reading is one persisted sampling-cycle result.
type Reading struct {
	Ts            int64              `json:"ts"`
	Values        map[string]float64 `json:"values"`
	Derived       map[string]float64 `json:"derived"`
	States        map[string]int     `json:"states"`
	WarningCount  int                `json:"warning_count"`
	CriticalCount int                `json:"critical_count"`
}

// Controller runs the sampling cycle and owns the engine and profile.
type Controller struct {
	c       controller.Controller
	sampler Sampler
	convert Converter
	period  time.Duration

	mu     sync.Mutex
	engine *Engine
	test   WaterTest
	last   *Reading

	runner *cron.Cron
}

func New(c controller.Controller, sampler Sampler, convert Converter, period time.Duration) *Controller {
	if period <= 0 {
		period = 5 * time.Second
	}
	return &Controller{
		c:       c,
		sampler: sampler,
		convert: convert,
		period:  period,
		engine:  NewEngine(FreshwaterCommunityProfile()),
	}
}

// Setup creates buckets and loads the persisted profile and water test.
// A missing or unreadable profile falls back to the freshwater community
// preset.
func (m *Controller) Setup() error {
	for _, b := range []string{Bucket, readingsBucket} {
		if err := m.c.Store().CreateBucket(b); err != nil {
			return err
		}
	}
	p, err := m.loadProfile()
	if err != nil {
		m.c.LogError("quality", "load profile: "+err.Error()+"; using freshwater community defaults")
		p = FreshwaterCommunityProfile()
	}
	m.mu.Lock()
	m.engine.SetProfile(p)
	m.mu.Unlock()

	var test WaterTest
	if err := m.c.Store().Get(Bucket, waterTestKey, &test); err == nil {
		m.mu.Lock()
		m.test = test
		m.mu.Unlock()
	}
	return nil
}

// Start schedules the sampling cycle.
func (m *Controller) Start() {
	m.runner = cron.New()
	spec := fmt.Sprintf("@every %ds", int(m.period.Seconds()))
	if _, err := m.runner.AddFunc(spec, m.runCycle); err != nil {
		m.c.LogError("quality", "schedule sampling cycle: "+err.Error())
		return
	}
	m.runner.Start()
}

func (m *Controller) Stop() {
	if m.runner != nil {
		m.runner.Stop()
	}
}

// runCycle is one sampling pass: read raw, convert, derive, evaluate, emit.
func (m *Controller) runCycle() {
	raw, err := m.sampler.ReadRaw()
	if err != nil {
		m.c.LogError("quality", "probe read: "+err.Error())
		return
	}

	m.mu.Lock()
	before := m.engine.States()
	profile := m.engine.Profile()
	test := m.test

	ph := m.convert.CalculatePH(raw.PHmV)
	ec := m.convert.CalculateEC(raw.ECnA, raw.ECuV)
	temp := raw.TemperatureC
	orp := raw.ORPmV

	values := map[string]float64{
		Temperature.String():  temp,
		PH.String():           ph,
		ORP.String():          orp,
		Conductivity.String(): ec,
	}

	m.engine.EvaluateTemperature(temp)
	m.engine.EvaluatePH(ph)
	m.engine.EvaluateORP(orp)
	m.engine.EvaluateConductivity(ec)

	if profile.TankType.Saltwater() {
		salinity := SalinityFromConductivity(ec)
		values[Salinity.String()] = salinity
		m.engine.EvaluateSalinity(salinity)
	}

	fraction := ToxicAmmoniaFraction(temp, ph)
	if test.TANPPM > 0 {
		nh3 := ActualNH3(test.TANPPM, fraction)
		values[NH3.String()] = nh3
		m.engine.EvaluateNH3(nh3)
	}
	if test.DOMGL > 0 {
		values[DissolvedOxygen.String()] = test.DOMGL
		m.engine.EvaluateDissolvedOxygen(test.DOMGL)
	}

	factor := test.TDSFactor
	if factor <= 0 {
		factor = TDSFactorNaCl
	}
	derived := map[string]float64{
		"tds":              TDS(ec, factor),
		"nh3_fraction":     fraction,
		"max_do":           MaxDissolvedOxygen(temp, values[Salinity.String()]),
		"co2":              CO2(ph, test.KHdKH),
		"stocking_density": StockingDensity(test.FishCM, test.TankVolumeL),
	}

	after := m.engine.States()
	rec := Reading{
		Ts:            raw.Time.Unix(),
		Values:        values,
		Derived:       derived,
		States:        make(map[string]int, len(after)),
		WarningCount:  m.engine.WarningCount(),
		CriticalCount: m.engine.CriticalCount(),
	}
	for name, s := range after {
		rec.States[name] = int(s.State)
	}
	m.last = &rec
	m.mu.Unlock()

	m.persistReading(rec)
	m.emit(rec)
	m.alertOnDegradation(before, after, values)
}

func (m *Controller) persistReading(rec Reading) {
	if err := m.c.Store().Create(readingsBucket, func(id string) interface{} {
		r := rec
		return &r
	}); err != nil {
		m.c.LogError("quality", "persist reading: "+err.Error())
		return
	}
	m.trimReadings()
}

// trimReadings drops the oldest records beyond the retention cap. Keys are
// bbolt sequence numbers, compared numerically.
func (m *Controller) trimReadings() {
	var ids []uint64
	_ = m.c.Store().List(readingsBucket, func(id string, _ []byte) error {
		if n, err := strconv.ParseUint(id, 10, 64); err == nil {
			ids = append(ids, n)
		}
		return nil
	})
	if len(ids) <= maxReadings {
		return
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids[:len(ids)-maxReadings] {
		_ = m.c.Store().Delete(readingsBucket, strconv.FormatUint(id, 10))
	}
}

func (m *Controller) emit(rec Reading) {
	t := m.c.Telemetry()
	for name, v := range rec.Values {
		t.EmitMetric("quality", name, v)
	}
	for name, v := range rec.Derived {
		t.EmitMetric("quality", name, v)
	}
	for name, s := range rec.States {
		t.EmitMetric("quality", name+"_state", float64(s))
	}
	t.EmitMetric("quality", "warning_count", float64(rec.WarningCount))
	t.EmitMetric("quality", "critical_count", float64(rec.CriticalCount))
}

// alertOnDegradation raises one alert per metric whose state got worse this
// cycle and landed at WARNING or above.
func (m *Controller) alertOnDegradation(before, after map[string]MetricState, values map[string]float64) {
	for name, now := range after {
		prev := before[name]
		if now.State > prev.State && now.State >= Warning {
			body := fmt.Sprintf("%s %s (%.3f)", name, now.State, values[name])
			if err := m.c.Telemetry().Alert("quality", body); err != nil {
				m.c.LogError("quality", "alert: "+err.Error())
			}
		}
	}
}

// Profile returns the active profile.
func (m *Controller) Profile() Profile {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.engine.Profile()
}

// SetTankType replaces the active profile with the tank type's preset and
// persists it.
func (m *Controller) SetTankType(t TankType) error {
	if !t.Valid() {
		return fmt.Errorf("unknown tank type: %s", t)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.engine.SetProfile(ProfileFor(t))
	return m.saveProfileLocked()
}

// ResetProfile re-applies the preset for the recorded tank type.
func (m *Controller) ResetProfile() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.engine.Profile()
	p.ResetToDefaults()
	m.engine.SetProfile(p)
	return m.saveProfileLocked()
}

// UpdateProfile applies fn to a copy of the active profile, then activates
// and persists the result. The per-group API setters go through here.
func (m *Controller) UpdateProfile(fn func(*Profile)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.engine.Profile()
	fn(&p)
	m.engine.SetProfile(p)
	return m.saveProfileLocked()
}

// WaterTest returns the current operator-entered values.
func (m *Controller) WaterTest() WaterTest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.test
}

// SetWaterTest stores operator-entered values and persists them.
func (m *Controller) SetWaterTest(t WaterTest) error {
	t.UpdatedAt = time.Now()
	m.mu.Lock()
	m.test = t
	m.mu.Unlock()
	if err := m.c.Store().CreateWithID(Bucket, waterTestKey, &t); err != nil {
		return fmt.Errorf("persist water test: %w", err)
	}
	return nil
}

// LastReading returns the most recent cycle result, or nil before the
// first cycle.
func (m *Controller) LastReading() *Reading {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.last == nil {
		return nil
	}
	r := *m.last
	return &r
}

// Engine state snapshot for the API.
func (m *Controller) States() map[string]MetricState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.engine.States()
}

func (m *Controller) Counts() (warnings, criticals int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.engine.WarningCount(), m.engine.CriticalCount()
}

func (m *Controller) saveProfileLocked() error {
	p := m.engine.Profile()
	p.Version = ProfileVersion
	if err := m.c.Store().CreateWithID(Bucket, profileKey, &p); err != nil {
		return fmt.Errorf("persist profile: %w", err)
	}
	return nil
}

func (m *Controller) loadProfile() (Profile, error) {
	var p Profile
	if err := m.c.Store().Get(Bucket, profileKey, &p); err != nil {
		return Profile{}, err
	}
	if p.Version != ProfileVersion {
		return Profile{}, fmt.Errorf("unsupported profile version %d", p.Version)
	}
	if !p.TankType.Valid() {
		return Profile{}, fmt.Errorf("stored profile has unknown tank type %q", p.TankType)
	}
	return p, nil
}

// Readings lists the persisted history, oldest first.
func (m *Controller) Readings() ([]Reading, error) {
	type keyed struct {
		id  uint64
		rec Reading
	}
	var rows []keyed
	err := m.c.Store().List(readingsBucket, func(id string, v []byte) error {
		var r Reading
		if jErr := json.Unmarshal(v, &r); jErr != nil {
			return nil
		}
		n, _ := strconv.ParseUint(id, 10, 64)
		rows = append(rows, keyed{id: n, rec: r})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].id < rows[j].id })
	out := make([]Reading, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.rec)
	}
	return out, nil
}
