package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/san-kum/labsim/internal/config"
	"github.com/san-kum/labsim/internal/logging"
	"github.com/san-kum/labsim/internal/observability"
	"github.com/san-kum/labsim/internal/sim"
	"github.com/san-kum/labsim/internal/storage"
)

// loadConfig reads --config when given and applies the persistent flag
// overrides.
func loadConfig() (*config.Config, error) {
	cfg := config.DefaultConfig()
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if storeKind != "" {
		cfg.Store = storeKind
	}
	return cfg, nil
}

func newLogger(cmd *cobra.Command, cfg *config.Config) logging.Logger {
	return logging.NewWithWriter(cmd.ErrOrStderr(), cfg.Log)
}

// model is a description together with where it came from.
type model struct {
	desc   sim.Description
	name   string
	preset string
	ticks  int
}

// loadModel resolves the model named by --preset or by the file argument.
func loadModel(args []string) (*model, error) {
	switch {
	case preset != "" && len(args) > 0:
		return nil, errors.New("give either a model file or --preset, not both")
	case preset != "":
		p := config.GetPreset(preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %s)", preset, strings.Join(config.ListPresets(), ", "))
		}
		d, err := p.Description()
		if err != nil {
			return nil, fmt.Errorf("preset %s: %w", preset, err)
		}
		return &model{desc: d, name: preset, preset: preset, ticks: p.Ticks}, nil
	case len(args) == 1:
		data, err := os.ReadFile(args[0])
		if err != nil {
			return nil, err
		}
		d, err := sim.ParseDescription(data)
		if err != nil {
			return nil, err
		}
		return &model{desc: d, name: strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))}, nil
	}
	return nil, errors.New("need a model file or --preset")
}

// tickCount picks --ticks when set, then the preset length, then the
// flag default, then the configured default.
func tickCount(cmd *cobra.Command, mdl *model, cfg *config.Config) int {
	n, _ := cmd.Flags().GetInt("ticks")
	if cmd.Flags().Changed("ticks") {
		return n
	}
	if mdl.ticks > 0 {
		return mdl.ticks
	}
	if n > 0 {
		return n
	}
	return cfg.Ticks
}

func openStore(cfg *config.Config) (storage.Store, error) {
	return storage.Open(cfg.Store, cfg.DataDir)
}

// newCollector registers the simulation metrics on a fresh registry so
// that repeated commands in one process do not collide.
func newCollector() (*observability.SimCollector, error) {
	return observability.NewSimCollector(prometheus.NewRegistry())
}
