package calibration

import (
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/openreef/aquamon/controller"
	"github.com/openreef/aquamon/controller/storage"
)

func testCalibration(t *testing.T) *Controller {
	t.Helper()
	store, err := storage.NewStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	m := New(controller.NewTestController(store))
	if err := m.Setup(); err != nil {
		t.Fatal(err)
	}
	return m
}

func TestPHTwoPointRoundTrip(t *testing.T) {
	m := testCalibration(t)
	if err := m.PHTwoPoint(4.0, 0, 10.0, -312); err != nil {
		t.Fatal(err)
	}
	if got := m.CalculatePH(0); math.Abs(got-4.0) > 1e-3 {
		t.Errorf("expected pH 4.0, got %v", got)
	}
	if got := m.CalculatePH(-312); math.Abs(got-10.0) > 1e-3 {
		t.Errorf("expected pH 10.0, got %v", got)
	}
	rec := m.PHRecord()
	if !rec.TwoPoint || !rec.Calibrated {
		t.Error("expected calibrated two-point record")
	}
	if math.Abs(rec.Sensitivity-(-52.0)) > 1e-9 {
		t.Errorf("expected sensitivity -52 mV/pH, got %v", rec.Sensitivity)
	}
}

func TestPHTwoPointGuards(t *testing.T) {
	m := testCalibration(t)
	// Identical buffers would divide by zero.
	if err := m.PHTwoPoint(7.0, 0, 7.0, -100); !errors.Is(err, ErrInvalidCalibration) {
		t.Errorf("expected ErrInvalidCalibration, got %v", err)
	}
	// A 2 mV/pH slope is no Nernstian response.
	if err := m.PHTwoPoint(4.0, 0, 10.0, -12); !errors.Is(err, ErrInvalidCalibration) {
		t.Errorf("expected ErrInvalidCalibration for implausible slope, got %v", err)
	}
	if m.PHRecord().Calibrated {
		t.Error("failed calibration must leave the record unchanged")
	}
}

func TestPHOnePoint(t *testing.T) {
	m := testCalibration(t)
	if err := m.PHOnePoint(7.0, 12.0); err != nil {
		t.Fatal(err)
	}
	rec := m.PHRecord()
	if rec.TwoPoint {
		t.Error("one-point calibration must clear the two-point flag")
	}
	if rec.Sensitivity != DefaultPHSensitivity {
		t.Errorf("expected default sensitivity, got %v", rec.Sensitivity)
	}
	// Reading at the anchor returns the buffer pH.
	if got := m.CalculatePH(12.0); math.Abs(got-7.0) > 1e-9 {
		t.Errorf("expected pH 7.0 at anchor, got %v", got)
	}
}

func TestUncalibratedPHBestEffort(t *testing.T) {
	m := testCalibration(t)
	// pH 7.0 anchor at 0 mV with the 52 mV/pH default.
	if got := m.CalculatePH(0); math.Abs(got-7.0) > 1e-9 {
		t.Errorf("expected pH 7.0, got %v", got)
	}
	if got := m.CalculatePH(52); math.Abs(got-8.0) > 1e-9 {
		t.Errorf("expected pH 8.0, got %v", got)
	}
}

func TestECCalibrationDivideByZeroGuard(t *testing.T) {
	m := testCalibration(t)
	if err := m.CalibrateEC(1.41, 25.0, 0, 1000); !errors.Is(err, ErrInvalidCalibration) {
		t.Errorf("expected ErrInvalidCalibration, got %v", err)
	}
	if m.ECRecord().Calibrated {
		t.Error("failed calibration must leave is_calibrated false")
	}
}

func TestECRoundTrip(t *testing.T) {
	m := testCalibration(t)
	if err := m.CalibrateEC(1.41, 25.0, 500, 1000); err != nil {
		t.Fatal(err)
	}
	rec := m.ECRecord()
	if !rec.Calibrated || rec.CellConstant <= 0 {
		t.Fatalf("unexpected record: %+v", rec)
	}
	// Converting the calibration reading must return the solution value.
	if got := m.CalculateEC(500, 1000); math.Abs(got-1.41) > 1e-6 {
		t.Errorf("expected 1.41 mS/cm, got %v", got)
	}
	// Zero current reads as zero conductivity, never a division.
	if got := m.CalculateEC(0, 1000); got != 0 {
		t.Errorf("expected 0 for open circuit, got %v", got)
	}
}

func TestClearResetsToDefaults(t *testing.T) {
	m := testCalibration(t)
	if err := m.PHTwoPoint(4.0, 0, 10.0, -312); err != nil {
		t.Fatal(err)
	}
	if err := m.CalibrateEC(1.41, 25.0, 500, 1000); err != nil {
		t.Fatal(err)
	}
	if err := m.ClearPH(); err != nil {
		t.Fatal(err)
	}
	if err := m.ClearEC(); err != nil {
		t.Fatal(err)
	}
	if m.PHRecord().Calibrated || m.ECRecord().Calibrated {
		t.Error("clear must reset to uncalibrated defaults")
	}
	if m.ECRecord().CellConstant != DefaultCellConstant {
		t.Errorf("expected default cell constant, got %v", m.ECRecord().CellConstant)
	}
}

func TestCalibrationPersistsAcrossRestart(t *testing.T) {
	store, err := storage.NewStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	c := controller.NewTestController(store)

	m := New(c)
	if err := m.Setup(); err != nil {
		t.Fatal(err)
	}
	if err := m.PHTwoPoint(4.0, 0, 10.0, -312); err != nil {
		t.Fatal(err)
	}

	// Fresh instance over the same store sees the persisted record.
	m2 := New(c)
	if err := m2.Setup(); err != nil {
		t.Fatal(err)
	}
	if got := m2.CalculatePH(-312); math.Abs(got-10.0) > 1e-3 {
		t.Errorf("expected persisted calibration, got pH %v", got)
	}
}
