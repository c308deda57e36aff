package probe

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/Knetic/govaluate"
	"github.com/reef-pi/rpi/i2c"

	"github.com/openreef/aquamon/controller"
)

// Calibrator is the slice of the calibration module the hal calibration
// path needs.
type Calibrator interface {
	PHOnePoint(bufferPH, mv float64) error
	PHTwoPoint(buffer1PH, mv1, buffer2PH, mv2 float64) error
}

// Controller is the probe board subsystem: I2C transactions, persisted
// config, capture queue, maintenance reminders and the activity log.
type Controller struct {
	c          controller.Controller
	bus        i2c.Bus
	devMode    bool
	defAddr    byte
	calibrator Calibrator
	queue      *Queue
	pins       []*pin
	quit       chan struct{}

	mu         sync.Mutex
	logs       []string
	transforms map[string]*govaluate.EvaluableExpression
	capturing  string
}

// New constructs the subsystem. In dev mode no I2C bus is opened and all
// readings are simulated.
func New(devMode bool, defAddr byte, c controller.Controller, cal Calibrator) (*Controller, error) {
	m := &Controller{
		c:          c,
		devMode:    devMode,
		defAddr:    defAddr,
		calibrator: cal,
		transforms: make(map[string]*govaluate.EvaluableExpression),
	}
	if !devMode {
		bus, err := i2c.New()
		if err != nil {
			return nil, err
		}
		m.bus = bus
	}
	for i, name := range Channels() {
		m.pins = append(m.pins, &pin{name: name, number: i, m: m})
	}
	return m, nil
}

// Setup creates buckets, bootstraps the default config and compiles
// transforms.
func (m *Controller) Setup() error {
	for _, b := range []string{Bucket, captureBucket, queueBucket} {
		if err := m.c.Store().CreateBucket(b); err != nil {
			return err
		}
	}
	cfg, err := m.Get("default")
	if err != nil {
		cfg = DefaultConfig(m.defAddr)
		if err := m.CreateOrUpdate(cfg); err != nil {
			return err
		}
	}
	transforms, err := compileTransforms(cfg)
	if err != nil {
		// A stored config with a bad expression must not brick the probe;
		// run without transforms and surface the problem.
		m.c.LogError("probe", "invalid transform in stored config: "+err.Error())
		transforms = make(map[string]*govaluate.EvaluableExpression)
	}
	m.mu.Lock()
	m.transforms = transforms
	m.mu.Unlock()
	q, err := NewQueue(m.c.Store())
	if err != nil {
		return err
	}
	m.queue = q
	return nil
}

// Start launches the capture worker and the maintenance reminder.
func (m *Controller) Start() {
	m.quit = make(chan struct{})
	go m.queue.ProcessTasks(func(t Task) { m.executeCapture(t) })
	cfg, err := m.Get("default")
	if err != nil {
		m.c.LogError("probe", "load config: "+err.Error())
		return
	}
	StartSchedule(cfg.MaintenanceSchedule, m.quit, func() {
		m.appendLog("Maintenance due: clean probe and verify calibration")
		if err := m.c.Telemetry().Alert("probe", "probe maintenance due"); err != nil {
			m.c.LogError("probe", "maintenance alert: "+err.Error())
		}
	})
}

func (m *Controller) Stop() {
	if m.quit != nil {
		close(m.quit)
		m.quit = nil
	}
	m.queue.Stop()
}

func (m *Controller) configI2C() byte {
	cfg, err := m.Get("default")
	if err != nil {
		return m.defAddr
	}
	return cfg.I2CAddr
}

// CaptureResult is one settled reading stored for calibration workflows.
type CaptureResult struct {
	Channel string  `json:"channel"`
	Ts      int64   `json:"ts"`
	Value   float64 `json:"value"`
	Samples int     `json:"samples"`
}

// executeCapture averages several settled readings of one channel and
// persists the result, so the operator can calibrate against a stable
// value instead of a single noisy read.
func (m *Controller) executeCapture(task Task) {
	m.mu.Lock()
	m.capturing = task.Channel
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		m.capturing = ""
		m.mu.Unlock()
	}()

	cfg, err := m.Get("default")
	if err != nil {
		m.appendLog(fmt.Sprintf("%s: Capture aborted (%v)", task.Channel, err))
		return
	}
	samples := cfg.CaptureSamples
	if samples <= 0 {
		samples = 1
	}
	delay := time.Duration(cfg.CaptureDelayMs) * time.Millisecond

	m.appendLog(fmt.Sprintf("%s: Capture started (%d samples)", task.Channel, samples))
	var sum float64
	for i := 0; i < samples; i++ {
		v, err := m.ReadChannel(task.Channel)
		if err != nil {
			m.appendLog(fmt.Sprintf("%s: Capture read error: %v", task.Channel, err))
			return
		}
		sum += v
		if i < samples-1 {
			time.Sleep(delay)
		}
	}
	value := sum / float64(samples)
	rec := CaptureResult{
		Channel: task.Channel,
		Ts:      time.Now().Unix(),
		Value:   value,
		Samples: samples,
	}
	if err := m.c.Store().Create(captureBucket, func(id string) interface{} {
		r := rec
		return &r
	}); err != nil {
		m.appendLog(fmt.Sprintf("%s: Capture store error: %v", task.Channel, err))
		return
	}
	m.appendLog(fmt.Sprintf("%s: Capture completed (%.3f)", task.Channel, value))
}

// appendLog adds an entry to the in-memory activity log, capped at 100
// entries.
func (m *Controller) appendLog(msg string) {
	entry := fmt.Sprintf("%s %s", time.Now().Format("15:04:05"), msg)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, entry)
	if len(m.logs) > 100 {
		m.logs = m.logs[len(m.logs)-100:]
	}
}

// CRUD for Config

func (m *Controller) Get(id string) (Config, error) {
	var cfg Config
	return cfg, m.c.Store().Get(Bucket, id, &cfg)
}

func (m *Controller) List() ([]Config, error) {
	var list []Config
	err := m.c.Store().List(Bucket, func(_ string, v []byte) error {
		var c Config
		if err := json.Unmarshal(v, &c); err == nil {
			list = append(list, c)
		}
		return nil
	})
	return list, err
}

func (m *Controller) CreateOrUpdate(cfg Config) error {
	if cfg.ID == "" {
		cfg.ID = "default"
	}
	return m.c.Store().CreateWithID(Bucket, cfg.ID, &cfg)
}
