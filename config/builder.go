package config

import (
	"github.com/varbridge/neuriovars"
)

// BuildOptions converts parsed configuration into SDK options for
// [neuriovars.New].
func BuildOptions(cfg *Config) []neuriovars.Option {
	opts := []neuriovars.Option{
		neuriovars.WithSensorAddress(cfg.Sensor.Address),
		neuriovars.WithInterval(cfg.PollInterval.Duration()),
		neuriovars.WithTimeout(cfg.Sensor.Timeout.Duration()),
		neuriovars.WithStoreAddress(cfg.Store.Address),
		neuriovars.WithVariablePrefix(cfg.Store.Prefix),
	}

	if cfg.Sensor.Auth != "" {
		opts = append(opts, neuriovars.WithCredential(cfg.Sensor.Auth))
	}

	return opts
}
