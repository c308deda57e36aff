package calibration

import (
	"fmt"
	"sync"
	"time"

	"github.com/openreef/aquamon/controller"
)

// Bucket is the DB bucket for calibration records.
const Bucket = "calibration"

const (
	phKey = "ph"
	ecKey = "ec"
)

// Controller owns the in-memory calibration records and keeps them in sync
// with the store. Every successful mutating call persists before returning;
// a storage failure is surfaced while the in-memory record stays updated,
// so conversions keep using the freshest data.
type Controller struct {
	c   controller.Controller
	mu  sync.Mutex
	ph  PHRecord
	ec  ECRecord
	now func() time.Time
}

func New(c controller.Controller) *Controller {
	return &Controller{
		c:   c,
		ph:  DefaultPHRecord(),
		ec:  DefaultECRecord(),
		now: time.Now,
	}
}

// Setup creates the bucket and loads any persisted records.
func (m *Controller) Setup() error {
	if err := m.c.Store().CreateBucket(Bucket); err != nil {
		return err
	}
	var ph PHRecord
	if err := m.c.Store().Get(Bucket, phKey, &ph); err == nil {
		m.ph = ph
	}
	var ec ECRecord
	if err := m.c.Store().Get(Bucket, ecKey, &ec); err == nil {
		m.ec = ec
	}
	return nil
}

func (m *Controller) Start() {}
func (m *Controller) Stop()  {}

// PHRecord returns a copy of the current pH calibration.
func (m *Controller) PHRecord() PHRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ph
}

// ECRecord returns a copy of the current EC calibration.
func (m *Controller) ECRecord() ECRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ec
}

// PHOnePoint anchors the conversion at a single buffer reading with the
// default slope.
func (m *Controller) PHOnePoint(bufferPH, mv float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ph = phOnePoint(bufferPH, mv, m.now())
	return m.savePH()
}

// PHTwoPoint derives the slope from two buffer readings.
func (m *Controller) PHTwoPoint(buffer1PH, mv1, buffer2PH, mv2 float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, err := phTwoPoint(buffer1PH, mv1, buffer2PH, mv2, m.now())
	if err != nil {
		return err
	}
	m.ph = rec
	return m.savePH()
}

// CalibrateEC derives the cell constant from a known standard solution.
func (m *Controller) CalibrateEC(knownMS, temperatureC, nA, uV float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, err := ecCalibrate(knownMS, temperatureC, nA, uV, m.now())
	if err != nil {
		return err
	}
	m.ec = rec
	return m.saveEC()
}

// CalculatePH converts an electrode reading (mV) to pH, best effort even
// when uncalibrated.
func (m *Controller) CalculatePH(mv float64) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ph.Convert(mv)
}

// CalculateEC converts a raw current/voltage pair to mS/cm.
func (m *Controller) CalculateEC(nA, uV float64) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ec.Convert(nA, uV)
}

// ClearPH resets the pH calibration to uncalibrated defaults.
func (m *Controller) ClearPH() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ph = DefaultPHRecord()
	return m.savePH()
}

// ClearEC resets the EC calibration to uncalibrated defaults.
func (m *Controller) ClearEC() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ec = DefaultECRecord()
	return m.saveEC()
}

func (m *Controller) savePH() error {
	if err := m.c.Store().CreateWithID(Bucket, phKey, &m.ph); err != nil {
		return fmt.Errorf("persist ph calibration: %w", err)
	}
	return nil
}

func (m *Controller) saveEC() error {
	if err := m.c.Store().CreateWithID(Bucket, ecKey, &m.ec); err != nil {
		return fmt.Errorf("persist ec calibration: %w", err)
	}
	return nil
}
