package calibration

import (
	"errors"
	"math"
	"time"
)

// ErrInvalidCalibration flags calibration inputs that would divide by zero
// or produce a physically implausible electrode response. The stored record
// is left untouched when it is returned.
var ErrInvalidCalibration = errors.New("invalid calibration")

const (
	// DefaultPHSensitivity is the assumed electrode slope (mV per pH unit)
	// for single-point calibrations and uncalibrated probes.
	DefaultPHSensitivity = 52.0

	// Plausibility window for a two-point slope. A real glass electrode
	// responds between roughly a third and one and a half of the Nernstian
	// ideal; anything outside is garbage input.
	minPHSensitivity = 20.0
	maxPHSensitivity = 90.0

	// DefaultCellConstant is used when the EC probe is uncalibrated.
	DefaultCellConstant = 1.0
)

// PHPoint pairs a buffer solution's pH with the electrode reading in it.
type PHPoint struct {
	PH float64 `json:"ph"`
	MV float64 `json:"mv"`
}

// PHRecord is the persisted pH calibration state.
type PHRecord struct {
	Point1      PHPoint   `json:"point1"`
	Point2      PHPoint   `json:"point2"`
	Sensitivity float64   `json:"sensitivity_mv_per_ph"`
	TwoPoint    bool      `json:"two_point"`
	Calibrated  bool      `json:"calibrated"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// DefaultPHRecord anchors conversion at pH 7.0 / 0 mV with the default
// slope, so an uncalibrated probe still produces a best-effort reading.
func DefaultPHRecord() PHRecord {
	return PHRecord{
		Point1:      PHPoint{PH: 7.0, MV: 0},
		Sensitivity: DefaultPHSensitivity,
	}
}

// Convert maps an electrode reading (mV) to pH. Never fails: a zero
// sensitivity falls back to the default slope.
func (r PHRecord) Convert(mv float64) float64 {
	s := r.Sensitivity
	if s == 0 {
		s = DefaultPHSensitivity
	}
	return r.Point1.PH + (mv-r.Point1.MV)/s
}

// ECRecord is the persisted conductivity calibration state.
type ECRecord struct {
	CellConstant float64   `json:"cell_constant_per_cm"`
	Solution     float64   `json:"solution_ms_cm"`
	Temperature  float64   `json:"temperature_c"`
	Calibrated   bool      `json:"calibrated"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func DefaultECRecord() ECRecord {
	return ECRecord{CellConstant: DefaultCellConstant}
}

// Convert maps a raw current/voltage pair from the conductivity cell to
// mS/cm. Returns 0 when the current is zero (open circuit) rather than
// dividing by zero. Temperature is recorded at calibration time for
// reference; no automatic temperature compensation is applied.
func (r ECRecord) Convert(nA, uV float64) float64 {
	if nA == 0 || uV == 0 {
		return 0
	}
	k := r.CellConstant
	if k <= 0 {
		k = DefaultCellConstant
	}
	conductance := nA / uV // 1/resistance, resistance = uV/nA
	return conductance * k * 1000
}

// phOnePoint returns the record for a single-point calibration.
func phOnePoint(bufferPH, mv float64, now time.Time) PHRecord {
	return PHRecord{
		Point1:      PHPoint{PH: bufferPH, MV: mv},
		Sensitivity: DefaultPHSensitivity,
		Calibrated:  true,
		UpdatedAt:   now,
	}
}

// phTwoPoint computes the electrode slope from two buffer readings.
func phTwoPoint(buffer1PH, mv1, buffer2PH, mv2 float64, now time.Time) (PHRecord, error) {
	if buffer1PH == buffer2PH {
		return PHRecord{}, ErrInvalidCalibration
	}
	sensitivity := (mv2 - mv1) / (buffer2PH - buffer1PH)
	if mag := math.Abs(sensitivity); mag < minPHSensitivity || mag > maxPHSensitivity {
		return PHRecord{}, ErrInvalidCalibration
	}
	return PHRecord{
		Point1:      PHPoint{PH: buffer1PH, MV: mv1},
		Point2:      PHPoint{PH: buffer2PH, MV: mv2},
		Sensitivity: sensitivity,
		TwoPoint:    true,
		Calibrated:  true,
		UpdatedAt:   now,
	}, nil
}

// ecCalibrate derives the cell constant from a reading taken in a known
// standard solution.
func ecCalibrate(knownMS, temperatureC, nA, uV float64, now time.Time) (ECRecord, error) {
	if nA == 0 || uV == 0 || knownMS <= 0 {
		return ECRecord{}, ErrInvalidCalibration
	}
	conductance := nA / uV
	cellConstant := knownMS / (conductance * 1000)
	if cellConstant <= 0 {
		return ECRecord{}, ErrInvalidCalibration
	}
	return ECRecord{
		CellConstant: cellConstant,
		Solution:     knownMS,
		Temperature:  temperatureC,
		Calibrated:   true,
		UpdatedAt:    now,
	}, nil
}
