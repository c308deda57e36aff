package health

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"

	"github.com/openreef/aquamon/controller"
)

const (
	// maxUsage caps the in-memory usage history.
	maxUsage = 120

	checkSpec = "@every 1m"
)

// Usage is one host health sample.
type Usage struct {
	Ts      int64   `json:"ts"`
	Load5   float64 `json:"load5"`
	CPUUsed float64 `json:"cpu_used_pct"`
	MemUsed float64 `json:"mem_used_pct"`
}

// Controller samples host load and memory and emits them as telemetry.
type Controller struct {
	c controller.Controller

	mu    sync.Mutex
	usage []Usage

	runner *cron.Cron
}

func New(c controller.Controller) *Controller {
	return &Controller{c: c}
}

func (m *Controller) Setup() error { return nil }

func (m *Controller) Start() {
	m.runner = cron.New()
	if _, err := m.runner.AddFunc(checkSpec, m.check); err != nil {
		m.c.LogError("health", "schedule health check: "+err.Error())
		return
	}
	m.runner.Start()
	m.check()
}

func (m *Controller) Stop() {
	if m.runner != nil {
		m.runner.Stop()
	}
}

func (m *Controller) check() {
	u := Usage{Ts: time.Now().Unix()}

	if avg, err := load.Avg(); err == nil {
		u.Load5 = avg.Load5
	} else {
		m.c.LogError("health", "load average: "+err.Error())
	}
	// Non-blocking: usage since the previous call, not a fresh interval.
	if pct, err := cpu.Percent(0, false); err == nil && len(pct) > 0 {
		u.CPUUsed = pct[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		u.MemUsed = vm.UsedPercent
	} else {
		m.c.LogError("health", "memory stats: "+err.Error())
	}

	m.mu.Lock()
	m.usage = append(m.usage, u)
	if len(m.usage) > maxUsage {
		m.usage = m.usage[len(m.usage)-maxUsage:]
	}
	m.mu.Unlock()

	t := m.c.Telemetry()
	t.EmitMetric("health", "load5", u.Load5)
	t.EmitMetric("health", "cpu_used_pct", u.CPUUsed)
	t.EmitMetric("health", "mem_used_pct", u.MemUsed)
}

// UsageHistory returns the sampled host metrics, oldest first.
func (m *Controller) UsageHistory() []Usage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Usage{}, m.usage...)
}

// Summary describes the current host state for the dashboard.
type Summary struct {
	Hostname string  `json:"hostname"`
	Uptime   string  `json:"uptime"`
	Load5    float64 `json:"load5"`
	MemUsed  string  `json:"mem_used"`
	MemTotal string  `json:"mem_total"`
}

func (m *Controller) summary() (Summary, error) {
	info, err := host.Info()
	if err != nil {
		return Summary{}, fmt.Errorf("host info: %w", err)
	}
	vm, err := mem.VirtualMemory()
	if err != nil {
		return Summary{}, fmt.Errorf("memory stats: %w", err)
	}
	s := Summary{
		Hostname: info.Hostname,
		Uptime:   (time.Duration(info.Uptime) * time.Second).String(),
		MemUsed:  humanBytes(vm.Used),
		MemTotal: humanBytes(vm.Total),
	}
	if avg, err := load.Avg(); err == nil {
		s.Load5 = avg.Load5
	}
	return s, nil
}
