package probe

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/reef-pi/hal"

	"github.com/openreef/aquamon/controller"
	"github.com/openreef/aquamon/controller/storage"
)

type fakeCalibrator struct {
	onePoint, twoPoint int
}

func (f *fakeCalibrator) PHOnePoint(bufferPH, mv float64) error {
	f.onePoint++
	return nil
}

func (f *fakeCalibrator) PHTwoPoint(b1, mv1, b2, mv2 float64) error {
	f.twoPoint++
	return nil
}

func testProbe(t *testing.T) (*Controller, *fakeCalibrator) {
	t.Helper()
	store, err := storage.NewStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	cal := &fakeCalibrator{}
	m, err := New(true, 0x10, controller.NewTestController(store), cal)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Setup(); err != nil {
		t.Fatal(err)
	}
	return m, cal
}

func TestDevModeReadRaw(t *testing.T) {
	m, _ := testProbe(t)
	s, err := m.ReadRaw()
	if err != nil {
		t.Fatal(err)
	}
	if s.TemperatureC < 20 || s.TemperatureC > 30 {
		t.Errorf("simulated temperature out of range: %v", s.TemperatureC)
	}
	if s.ECnA == 0 || s.ECuV == 0 {
		t.Error("simulated EC pair must be non-zero")
	}
	if s.Time.IsZero() {
		t.Error("sample must be timestamped")
	}
}

func TestChannelTransform(t *testing.T) {
	m, _ := testProbe(t)
	cfg, err := m.Get("default")
	if err != nil {
		t.Fatal(err)
	}
	cfg.Transforms = map[string]string{ChannelTemperature: "x * 0 + 42"}
	if err := m.CreateOrUpdate(cfg); err != nil {
		t.Fatal(err)
	}
	transforms, err := compileTransforms(cfg)
	if err != nil {
		t.Fatal(err)
	}
	m.mu.Lock()
	m.transforms = transforms
	m.mu.Unlock()

	v, err := m.ReadChannel(ChannelTemperature)
	if err != nil {
		t.Fatal(err)
	}
	if v != 42 {
		t.Errorf("expected transformed reading 42, got %v", v)
	}
}

func TestTransformValidation(t *testing.T) {
	cfg := DefaultConfig(0x10)
	cfg.Transforms = map[string]string{ChannelORP: "x +"}
	if _, err := compileTransforms(cfg); err == nil {
		t.Error("expected error for malformed expression")
	}
	cfg.Transforms = map[string]string{"bogus": "x"}
	if _, err := compileTransforms(cfg); err == nil {
		t.Error("expected error for unknown channel")
	}
}

func TestHalPins(t *testing.T) {
	m, cal := testProbe(t)
	pins := m.AnalogInputPins()
	if len(pins) != 5 {
		t.Fatalf("expected 5 channels, got %d", len(pins))
	}
	p, err := m.AnalogInputPinByName(ChannelPH)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.Value(); err != nil {
		t.Fatal(err)
	}
	if err := p.Calibrate([]hal.Measurement{{Expected: 7.0, Observed: -2.0}}); err != nil {
		t.Fatal(err)
	}
	if cal.onePoint != 1 {
		t.Error("expected one-point calibration delegation")
	}
	if err := p.Calibrate([]hal.Measurement{
		{Expected: 4.0, Observed: 170.0},
		{Expected: 7.0, Observed: 8.0},
	}); err != nil {
		t.Fatal(err)
	}
	if cal.twoPoint != 1 {
		t.Error("expected two-point calibration delegation")
	}
	orp, err := m.AnalogInputPinByName(ChannelORP)
	if err != nil {
		t.Fatal(err)
	}
	if err := orp.Calibrate([]hal.Measurement{{Expected: 1, Observed: 1}}); err == nil {
		t.Error("non-pH channels must reject hal calibration")
	}
	if !m.Metadata().HasCapability(hal.AnalogInput) {
		t.Error("driver must advertise analog input capability")
	}
}

func TestCaptureQueue(t *testing.T) {
	m, _ := testProbe(t)
	cfg, _ := m.Get("default")
	cfg.CaptureSamples = 2
	cfg.CaptureDelayMs = 1
	if err := m.CreateOrUpdate(cfg); err != nil {
		t.Fatal(err)
	}

	if err := m.queue.AddTask(ChannelPH); err != nil {
		t.Fatal(err)
	}
	if err := m.queue.AddTask(ChannelPH); err == nil {
		t.Error("duplicate capture must be rejected")
	}
	tasks, err := m.queue.ListTasks()
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 1 || tasks[0].Channel != ChannelPH {
		t.Fatalf("unexpected queue contents: %+v", tasks)
	}

	done := make(chan struct{})
	go func() {
		m.queue.ProcessTasks(func(task Task) {
			m.executeCapture(task)
			m.queue.Stop()
		})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("capture worker did not finish")
	}

	var captures int
	_ = m.c.Store().List(captureBucket, func(_ string, v []byte) error {
		captures++
		return nil
	})
	if captures != 1 {
		t.Errorf("expected one stored capture, got %d", captures)
	}
}

func TestQueueCancel(t *testing.T) {
	m, _ := testProbe(t)
	if err := m.queue.AddTask(ChannelORP); err != nil {
		t.Fatal(err)
	}
	if err := m.queue.RemoveTask(ChannelORP); err != nil {
		t.Fatal(err)
	}
	if err := m.queue.RemoveTask(ChannelORP); err == nil {
		t.Error("expected error canceling an empty queue")
	}
}
