package telemetry

import (
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/reef-pi/adafruitio"
)

// Telemetry is the metric/alert emission contract handed to subsystems.
type Telemetry interface {
	EmitMetric(module, name string, value float64)
	Alert(module, body string) error
	MetricsHandler() http.Handler
}

// AdafruitIOConfig enables pushing metrics to an Adafruit IO account.
type AdafruitIOConfig struct {
	Enable bool   `json:"enable" yaml:"enable"`
	Token  string `json:"token" yaml:"token"`
	User   string `json:"user" yaml:"user"`
	Prefix string `json:"prefix" yaml:"prefix"`
}

// MQTTConfig enables publishing metrics and alerts to an MQTT broker.
type MQTTConfig struct {
	Enable   bool   `json:"enable" yaml:"enable"`
	Server   string `json:"server" yaml:"server"`
	ClientID string `json:"client_id" yaml:"client_id"`
	Username string `json:"username" yaml:"username"`
	Password string `json:"password" yaml:"password"`
	Prefix   string `json:"prefix" yaml:"prefix"`
}

// Config aggregates all emission targets.
type Config struct {
	AdafruitIO AdafruitIOConfig `json:"adafruitio" yaml:"adafruitio"`
	MQTT       MQTTConfig       `json:"mqtt" yaml:"mqtt"`
	Prometheus bool             `json:"prometheus" yaml:"prometheus"`
}

type telemetry struct {
	config     Config
	mu         sync.Mutex
	registry   *prometheus.Registry
	gauges     map[string]prometheus.Gauge
	mqttClient mqtt.Client
	aio        *adafruitio.Client
}

// Initialize builds a telemetry instance from config. MQTT connection failures
// are logged and disable the target rather than failing startup; the device
// must keep evaluating water quality without a broker.
func Initialize(c Config) Telemetry {
	t := &telemetry{
		config:   c,
		registry: prometheus.NewRegistry(),
		gauges:   make(map[string]prometheus.Gauge),
	}
	if c.AdafruitIO.Enable {
		t.aio = adafruitio.NewClient(c.AdafruitIO.Token)
	}
	if c.MQTT.Enable {
		opts := mqtt.NewClientOptions().
			AddBroker(c.MQTT.Server).
			SetClientID(c.MQTT.ClientID).
			SetUsername(c.MQTT.Username).
			SetPassword(c.MQTT.Password).
			SetAutoReconnect(true).
			SetConnectTimeout(5 * time.Second)
		client := mqtt.NewClient(opts)
		if token := client.Connect(); token.Wait() && token.Error() != nil {
			log.Println("telemetry ERROR: mqtt connect:", token.Error())
		} else {
			t.mqttClient = client
		}
	}
	return t
}

// MetricsHandler serves the prometheus registry, or 404 when disabled.
func (t *telemetry) MetricsHandler() http.Handler {
	if !t.config.Prometheus {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(t.registry, promhttp.HandlerOpts{})
}

func (t *telemetry) EmitMetric(module, name string, value float64) {
	feed := strings.ToLower(module + "-" + name)
	if t.config.Prometheus {
		t.gauge(feed).Set(value)
	}
	if t.mqttClient != nil {
		topic := t.config.MQTT.Prefix + "/" + module + "/" + name
		payload := fmt.Sprintf("%f", value)
		if token := t.mqttClient.Publish(topic, 0, false, payload); token.Wait() && token.Error() != nil {
			log.Println("telemetry ERROR: mqtt publish:", token.Error())
		}
	}
	if t.aio != nil {
		d := adafruitio.Data{Value: value}
		if err := t.aio.SubmitData(t.config.AdafruitIO.User, t.config.AdafruitIO.Prefix+feed, d); err != nil {
			log.Println("telemetry ERROR: adafruitio submit:", err)
		}
	}
}

func (t *telemetry) Alert(module, body string) error {
	log.Println("ALERT:", module, body)
	if t.mqttClient == nil {
		return nil
	}
	topic := t.config.MQTT.Prefix + "/alert/" + module
	if token := t.mqttClient.Publish(topic, 0, false, body); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	return nil
}

func (t *telemetry) gauge(feed string) prometheus.Gauge {
	t.mu.Lock()
	defer t.mu.Unlock()
	g, ok := t.gauges[feed]
	if !ok {
		g = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: strings.Replace(feed, "-", "_", -1),
			Help: "aquamon metric " + feed,
		})
		t.registry.MustRegister(g)
		t.gauges[feed] = g
	}
	return g
}

// NoopTelemetry discards all emissions. Tests use it.
func NoopTelemetry() Telemetry {
	return &telemetry{
		config:   Config{},
		registry: prometheus.NewRegistry(),
		gauges:   make(map[string]prometheus.Gauge),
	}
}
