package probe

// Bucket names for the probe subsystem.
const (
	Bucket        = "probe"
	captureBucket = "probe_captures"
	queueBucket   = "probe_queue"
)

// Channel names on the water-quality probe board.
const (
	ChannelPH          = "ph_mv"
	ChannelORP         = "orp_mv"
	ChannelECCurrent   = "ec_na"
	ChannelECVoltage   = "ec_uv"
	ChannelTemperature = "temperature"
)

// Channels lists every board channel in read order.
func Channels() []string {
	return []string{ChannelPH, ChannelORP, ChannelECCurrent, ChannelECVoltage, ChannelTemperature}
}

// Config holds the probe board settings.
type Config struct {
	ID      string `json:"id"`
	Enable  bool   `json:"enable"`
	I2CAddr byte   `json:"i2c_addr"`

	// Transforms holds optional govaluate expressions applied to raw
	// channel readings, keyed by channel name. The raw value binds to "x",
	// e.g. "x * 0.5 - 12" for a board with a nonstandard ORP front end.
	Transforms map[string]string `json:"transforms"`

	// MaintenanceSchedule is an RRULE (e.g. "FREQ=WEEKLY") for probe
	// cleaning / calibration-check reminders. Empty disables reminders.
	MaintenanceSchedule string `json:"maintenance_schedule"`

	// CaptureSamples / CaptureDelayMs shape a capture task: how many
	// settled readings to average and the pause between them.
	CaptureSamples int `json:"capture_samples"`
	CaptureDelayMs int `json:"capture_delay_ms"`
}

// DefaultConfig is bootstrapped on first start.
func DefaultConfig(i2cAddr byte) Config {
	if i2cAddr == 0 {
		i2cAddr = 0x10
	}
	return Config{
		ID:             "default",
		Enable:         true,
		I2CAddr:        i2cAddr,
		Transforms:     map[string]string{},
		CaptureSamples: 5,
		CaptureDelayMs: 500,
	}
}
