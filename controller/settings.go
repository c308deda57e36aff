package controller

import (
	"os"

	"gopkg.in/yaml.v2"

	"github.com/openreef/aquamon/controller/telemetry"
	"github.com/openreef/aquamon/controller/utils"
)

// Settings is the daemon's startup configuration, loaded from a yaml file.
type Settings struct {
	Name          string           `yaml:"name"`
	Address       string           `yaml:"address"`
	Database      string           `yaml:"database"`
	DevMode       bool             `yaml:"dev_mode"`
	SamplePeriod  int              `yaml:"sample_period"` // seconds
	ProbeI2CAddr  byte             `yaml:"probe_i2c_addr"`
	Auth          utils.AuthConfig `yaml:"auth"`
	Telemetry     telemetry.Config `yaml:"telemetry"`
	HealthCheck   bool             `yaml:"health_check"`
	EnableProfile bool             `yaml:"enable_pprof"`
}

// DefaultSettings are used when no config file exists; dev mode on so the
// daemon runs on machines without the probe board attached.
var DefaultSettings = Settings{
	Name:         "aquamon",
	Address:      "127.0.0.1:8080",
	Database:     "aquamon.db",
	DevMode:      true,
	SamplePeriod: 5,
	ProbeI2CAddr: 0x10,
	HealthCheck:  true,
}

// LoadSettings reads settings from a yaml file, filling gaps with defaults.
func LoadSettings(path string) (Settings, error) {
	s := DefaultSettings
	data, err := os.ReadFile(path)
	if err != nil {
		return s, err
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, err
	}
	if s.SamplePeriod <= 0 {
		s.SamplePeriod = DefaultSettings.SamplePeriod
	}
	if s.ProbeI2CAddr == 0 {
		s.ProbeI2CAddr = DefaultSettings.ProbeI2CAddr
	}
	return s, nil
}
