package cmd

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ScenarioConfig is the optional YAML document a bundled demo scenario can
// load via --config, following cmd/workload_config.go's
// read-file-then-yaml.Unmarshal pattern. The file takes precedence: every
// non-zero value in it replaces the matching flag value, whether that flag
// was set on the command line or left at its default.
type ScenarioConfig struct {
	Seed          int64   `yaml:"seed"`
	RunDuration   float64 `yaml:"run_duration"`
	Warmup        float64 `yaml:"warmup"`
	ArrivalRate   float64 `yaml:"arrival_rate"`
	QueueCapacity int     `yaml:"queue_capacity"`
	ServerCount   int     `yaml:"server_count"`
	ServiceMean   float64 `yaml:"service_mean"`
	TrayCount     int     `yaml:"tray_count"`
	OrderCount    int     `yaml:"order_count"`
}

// loadScenarioConfig reads and parses a YAML scenario file. An empty path
// returns a zero-valued ScenarioConfig (all scenario defaults apply).
func loadScenarioConfig(path string) (*ScenarioConfig, error) {
	if path == "" {
		return &ScenarioConfig{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario config %s: %w", path, err)
	}
	var cfg ScenarioConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing scenario config %s: %w", path, err)
	}
	return &cfg, nil
}
