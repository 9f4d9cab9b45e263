package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/labsim/internal/export"
	"github.com/san-kum/labsim/internal/logging"
	"github.com/san-kum/labsim/internal/sim"
)

const (
	DefaultDataDir      = "runs"
	DefaultStore        = "fs"
	DefaultTicks        = 200
	DefaultTickInterval = 50 * time.Millisecond
)

type Config struct {
	DataDir      string         `yaml:"data_dir"`
	Store        string         `yaml:"store"` // fs or sqlite
	HistoryDepth int            `yaml:"history_depth"`
	Integrator   string         `yaml:"integrator"`
	Ticks        int            `yaml:"ticks"`
	TickInterval time.Duration  `yaml:"tick_interval"`
	MetricsAddr  string         `yaml:"metrics_addr"`
	Log          logging.Config `yaml:"log"`
	// Export overrides the per-kind default export columns when set.
	Export export.Spec `yaml:"export"`
}

func DefaultConfig() *Config {
	return &Config{
		DataDir:      DefaultDataDir,
		Store:        DefaultStore,
		HistoryDepth: sim.DefaultHistoryDepth,
		Integrator:   "verlet",
		Ticks:        DefaultTicks,
		TickInterval: DefaultTickInterval,
		Log:          logging.Config{Level: "info", Format: "text"},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0644)
}

// ExportSpec returns the configured export columns, or the defaults for
// the given model kind.
func (c *Config) ExportSpec(kind string) export.Spec {
	if len(c.Export.PerRun) > 0 || len(c.Export.PerTick) > 0 {
		return c.Export
	}
	return DefaultExport(kind)
}

// ModelOptions translates the config into model construction options.
func (c *Config) ModelOptions(log logging.Logger) []sim.Option {
	var opts []sim.Option
	if log != nil {
		opts = append(opts, sim.WithLogger(log))
	}
	if c.HistoryDepth > 0 {
		opts = append(opts, sim.WithHistoryDepth(c.HistoryDepth))
	}
	if c.Integrator != "" {
		opts = append(opts, sim.WithIntegrator(c.Integrator))
	}
	return opts
}

func DefaultExport(kind string) export.Spec {
	switch kind {
	case sim.KindEnergy2D:
		return export.Spec{
			PerRun:  []string{"background_temperature", "background_conductivity"},
			PerTick: []string{"averageTemperature", "minTemperature", "maxTemperature", "sensorReading"},
		}
	default:
		return export.Spec{
			PerRun:  []string{"numAtoms", "targetTemperature", "gravitationalField"},
			PerTick: []string{"kineticEnergy", "potentialEnergy", "totalEnergy", "temperature"},
		}
	}
}
