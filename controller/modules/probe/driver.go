package probe

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/Knetic/govaluate"
	"github.com/reef-pi/hal"
)

// Opcodes understood by the probe board firmware.
const (
	opcodeStatus      = 0x01
	opcodePHmV        = 0x10
	opcodeORPmV       = 0x11
	opcodeECCurrent   = 0x12
	opcodeECVoltage   = 0x13
	opcodeTemperature = 0x14
)

var channelOpcodes = map[string]byte{
	ChannelPH:          opcodePHmV,
	ChannelORP:         opcodeORPmV,
	ChannelECCurrent:   opcodeECCurrent,
	ChannelECVoltage:   opcodeECVoltage,
	ChannelTemperature: opcodeTemperature,
}

// RawSample is one full board readout, raw transducer units.
type RawSample struct {
	PHmV         float64   `json:"ph_mv"`
	ORPmV        float64   `json:"orp_mv"`
	ECnA         float64   `json:"ec_na"`
	ECuV         float64   `json:"ec_uv"`
	TemperatureC float64   `json:"temperature"`
	Time         time.Time `json:"time"`
}

// readFloat reads a float32 register from the board.
func (m *Controller) readFloat(opcode byte) (float64, error) {
	if m.devMode {
		return m.simulate(opcode), nil
	}
	addr := m.configI2C()
	if err := m.bus.WriteBytes(addr, []byte{opcode}); err != nil {
		return 0, err
	}
	data, err := m.bus.ReadBytes(addr, 4)
	if err != nil {
		return 0, err
	}
	return float64(math.Float32frombits(binary.LittleEndian.Uint32(data))), nil
}

// Status polls the board state byte (0 idle, 1 busy, 2 error).
func (m *Controller) Status() (int, error) {
	if m.devMode {
		return 0, nil
	}
	addr := m.configI2C()
	if err := m.bus.WriteBytes(addr, []byte{opcodeStatus}); err != nil {
		return 0, err
	}
	st, err := m.bus.ReadBytes(addr, 1)
	if err != nil {
		return 0, err
	}
	return int(st[0]), nil
}

// simulate produces plausible readings so the daemon runs without hardware.
func (m *Controller) simulate(opcode byte) float64 {
	jitter := func(base, span float64) float64 {
		return base + (rand.Float64()-0.5)*span
	}
	switch opcode {
	case opcodePHmV:
		return jitter(-15, 4) // ≈ pH 7.3 on the default slope
	case opcodeORPmV:
		return jitter(320, 20)
	case opcodeECCurrent:
		return jitter(420, 10)
	case opcodeECVoltage:
		return jitter(1000, 5)
	case opcodeTemperature:
		return jitter(25.5, 0.4)
	default:
		return 0
	}
}

// ReadChannel reads one channel and applies its configured transform.
func (m *Controller) ReadChannel(name string) (float64, error) {
	opcode, ok := channelOpcodes[name]
	if !ok {
		return 0, fmt.Errorf("unknown probe channel: %s", name)
	}
	v, err := m.readFloat(opcode)
	if err != nil {
		return 0, err
	}
	return m.transform(name, v)
}

// ReadRaw performs a full board readout. Fails when the board is disabled
// in config; individual channel reads for capture tasks stay available.
func (m *Controller) ReadRaw() (RawSample, error) {
	var s RawSample
	if cfg, err := m.Get("default"); err == nil && !cfg.Enable {
		return s, fmt.Errorf("probe board disabled")
	}
	var err error
	if s.PHmV, err = m.ReadChannel(ChannelPH); err != nil {
		return s, err
	}
	if s.ORPmV, err = m.ReadChannel(ChannelORP); err != nil {
		return s, err
	}
	if s.ECnA, err = m.ReadChannel(ChannelECCurrent); err != nil {
		return s, err
	}
	if s.ECuV, err = m.ReadChannel(ChannelECVoltage); err != nil {
		return s, err
	}
	if s.TemperatureC, err = m.ReadChannel(ChannelTemperature); err != nil {
		return s, err
	}
	s.Time = time.Now()
	return s, nil
}

// transform applies the channel's govaluate expression, if configured.
func (m *Controller) transform(name string, v float64) (float64, error) {
	m.mu.Lock()
	expr, ok := m.transforms[name]
	m.mu.Unlock()
	if !ok {
		return v, nil
	}
	out, err := expr.Evaluate(map[string]interface{}{"x": v})
	if err != nil {
		return 0, fmt.Errorf("transform %s: %w", name, err)
	}
	f, ok := out.(float64)
	if !ok {
		return 0, fmt.Errorf("transform %s: expression did not evaluate to a number", name)
	}
	return f, nil
}

// compileTransforms parses the configured expressions; invalid ones are
// rejected so a bad edit cannot silently zero a channel.
func compileTransforms(cfg Config) (map[string]*govaluate.EvaluableExpression, error) {
	out := make(map[string]*govaluate.EvaluableExpression)
	for name, src := range cfg.Transforms {
		if src == "" {
			continue
		}
		if _, ok := channelOpcodes[name]; !ok {
			return nil, fmt.Errorf("transform for unknown channel: %s", name)
		}
		expr, err := govaluate.NewEvaluableExpression(src)
		if err != nil {
			return nil, fmt.Errorf("transform %s: %w", name, err)
		}
		out[name] = expr
	}
	return out, nil
}

// pin exposes one board channel as a hal analog input.
type pin struct {
	name   string
	number int
	m      *Controller
}

func (p *pin) Name() string { return p.name }
func (p *pin) Number() int  { return p.number }
func (p *pin) Close() error { return nil }

func (p *pin) Value() (float64, error) {
	return p.m.ReadChannel(p.name)
}

func (p *pin) Measure() (float64, error) {
	return p.Value()
}

// Calibrate maps hal measurements onto the calibration module: one
// measurement is a one-point pH calibration, two a two-point. Only the pH
// channel supports this path; EC needs the paired current/voltage raw
// readings and goes through the calibration API instead.
func (p *pin) Calibrate(ms []hal.Measurement) error {
	if p.name != ChannelPH {
		return fmt.Errorf("channel %s does not support hal calibration", p.name)
	}
	if p.m.calibrator == nil {
		return fmt.Errorf("no calibrator wired")
	}
	switch len(ms) {
	case 1:
		return p.m.calibrator.PHOnePoint(ms[0].Expected, ms[0].Observed)
	case 2:
		return p.m.calibrator.PHTwoPoint(ms[0].Expected, ms[0].Observed, ms[1].Expected, ms[1].Observed)
	default:
		return fmt.Errorf("expected 1 or 2 measurements, got %d", len(ms))
	}
}

// Metadata implements hal.Driver.
func (m *Controller) Metadata() hal.Metadata {
	return hal.Metadata{
		Name:         "aquaprobe",
		Description:  "I2C water quality probe board (pH/ORP/EC/temperature)",
		Capabilities: []hal.Capability{hal.AnalogInput},
	}
}

func (m *Controller) Close() error { return nil }

// Pins implements hal.Driver.
func (m *Controller) Pins(cap hal.Capability) ([]hal.Pin, error) {
	if cap != hal.AnalogInput {
		return nil, fmt.Errorf("capability not supported: %v", cap)
	}
	pins := make([]hal.Pin, 0, len(m.pins))
	for _, p := range m.pins {
		pins = append(pins, p)
	}
	return pins, nil
}

// AnalogInputPins implements hal.AnalogInputDriver.
func (m *Controller) AnalogInputPins() []hal.AnalogInputPin {
	pins := make([]hal.AnalogInputPin, 0, len(m.pins))
	for _, p := range m.pins {
		pins = append(pins, p)
	}
	return pins
}

func (m *Controller) AnalogInputPin(n int) (hal.AnalogInputPin, error) {
	for _, p := range m.pins {
		if p.number == n {
			return p, nil
		}
	}
	return nil, fmt.Errorf("no analog input pin %d", n)
}

// AnalogInputPinByName finds a channel pin by channel name.
func (m *Controller) AnalogInputPinByName(name string) (hal.AnalogInputPin, error) {
	for _, p := range m.pins {
		if p.name == name {
			return p, nil
		}
	}
	return nil, fmt.Errorf("no probe channel %s", name)
}
