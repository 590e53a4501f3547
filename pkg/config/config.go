package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ChannelCount is the number of data channels the front-end sends after the timestamp token.
const ChannelCount = 3

// Config represents the application configuration.
type Config struct {
	Serial      SerialConfig      `yaml:"serial"`
	Acquisition AcquisitionConfig `yaml:"acquisition"`
	History     HistoryConfig     `yaml:"history"`
	Record      RecordConfig      `yaml:"record"`
	Channels    []string          `yaml:"channels"`
	Chart       ChartConfig       `yaml:"chart"`
	Log         LogConfig         `yaml:"log"`
	Mock        MockConfig        `yaml:"mock"`
}

// SerialConfig contains serial port configuration.
type SerialConfig struct {
	Port        string        `yaml:"port"`
	BaudRate    int           `yaml:"baud_rate"`
	ReadTimeout time.Duration `yaml:"read_timeout"` // 0 blocks until a full line arrives
}

// AcquisitionConfig contains the acquisition loop parameters.
type AcquisitionConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// HistoryConfig contains rolling history parameters.
type HistoryConfig struct {
	Length int `yaml:"length"`
}

// RecordConfig contains the CSV record sink configuration.
type RecordConfig struct {
	Path            string `yaml:"path"`
	TimestampColumn string `yaml:"timestamp_column"`
}

// ChartConfig contains presentation parameters.
type ChartConfig struct {
	Title  string  `yaml:"title"`
	YLabel string  `yaml:"y_label"`
	YMin   float64 `yaml:"y_min"`
	YMax   float64 `yaml:"y_max"`
	PNG    string  `yaml:"png"` // Chart snapshot written on exit, empty disables
}

// LogConfig contains log file rotation settings.
type LogConfig struct {
	File       string `yaml:"file"` // Empty logs to stderr only
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// MockConfig contains simulated front-end configuration.
type MockConfig struct {
	Base        []float64     `yaml:"base"`         // Resting voltage per channel (V)
	NoiseLevel  float64       `yaml:"noise_level"`  // Noise amplitude (V)
	DriftPeriod time.Duration `yaml:"drift_period"` // Period of the slow concentration drift
	SampleRate  time.Duration `yaml:"sample_rate"`  // Time between emitted lines
}

// Default returns a default configuration with sensible values.
func Default() *Config {
	return &Config{
		Serial: SerialConfig{
			Port:     "",
			BaudRate: 115200,
		},
		Acquisition: AcquisitionConfig{
			Interval: time.Second,
		},
		History: HistoryConfig{
			Length: 100,
		},
		Record: RecordConfig{
			Path:            "measures.csv",
			TimestampColumn: "Hora",
		},
		Channels: []string{"Calcio", "Nitratos", "Potasio"},
		Chart: ChartConfig{
			Title:  "Mediciones IONES",
			YLabel: "Volts",
			YMin:   0,
			YMax:   5,
		},
		Log: LogConfig{
			MaxSizeMB:  10,
			MaxBackups: 4,
			MaxAgeDays: 180,
			Compress:   true,
		},
		Mock: MockConfig{
			// Calibration voltages of the calcium, nitrate and potassium probes at 150 ppm
			Base:        []float64{3.5056, 3.6181, 3.5151},
			NoiseLevel:  0.01,
			DriftPeriod: 2 * time.Minute,
			SampleRate:  time.Second,
		},
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ensureDefaults()

	return cfg, nil
}

// Save saves the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate reports configuration values that cannot be used.
func (c *Config) Validate() error {
	if len(c.Channels) != ChannelCount {
		return fmt.Errorf("expected %d channel names, got %d", ChannelCount, len(c.Channels))
	}
	if c.History.Length <= 0 {
		return fmt.Errorf("history length must be positive, got %d", c.History.Length)
	}
	if c.Acquisition.Interval <= 0 {
		return fmt.Errorf("acquisition interval must be positive, got %s", c.Acquisition.Interval)
	}
	if c.Chart.YMax <= c.Chart.YMin {
		return fmt.Errorf("chart y range is empty: [%g, %g]", c.Chart.YMin, c.Chart.YMax)
	}
	if len(c.Mock.Base) != 0 && len(c.Mock.Base) != ChannelCount {
		return fmt.Errorf("expected %d mock base voltages, got %d", ChannelCount, len(c.Mock.Base))
	}
	return nil
}

// Header returns the CSV header columns: the timestamp column followed by the channel names.
func (c *Config) Header() []string {
	header := make([]string, 0, len(c.Channels)+1)
	header = append(header, c.Record.TimestampColumn)
	return append(header, c.Channels...)
}

// ensureDefaults ensures that all required fields have default values if missing.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Serial.BaudRate == 0 {
		c.Serial.BaudRate = def.Serial.BaudRate
	}

	if c.Acquisition.Interval == 0 {
		c.Acquisition.Interval = def.Acquisition.Interval
	}

	if c.History.Length == 0 {
		c.History.Length = def.History.Length
	}

	if c.Record.Path == "" {
		c.Record.Path = def.Record.Path
	}
	if c.Record.TimestampColumn == "" {
		c.Record.TimestampColumn = def.Record.TimestampColumn
	}

	if len(c.Channels) == 0 {
		c.Channels = def.Channels
	}

	if c.Chart.Title == "" {
		c.Chart.Title = def.Chart.Title
	}
	if c.Chart.YLabel == "" {
		c.Chart.YLabel = def.Chart.YLabel
	}
	if c.Chart.YMin == 0 && c.Chart.YMax == 0 {
		c.Chart.YMin = def.Chart.YMin
		c.Chart.YMax = def.Chart.YMax
	}

	if c.Log.MaxSizeMB == 0 {
		c.Log.MaxSizeMB = def.Log.MaxSizeMB
	}

	if len(c.Mock.Base) == 0 {
		c.Mock.Base = def.Mock.Base
	}
	if c.Mock.DriftPeriod == 0 {
		c.Mock.DriftPeriod = def.Mock.DriftPeriod
	}
	if c.Mock.SampleRate == 0 {
		c.Mock.SampleRate = def.Mock.SampleRate
	}
}
