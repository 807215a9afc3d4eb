package config

import (
	"testing"
	"time"

	"github.com/varbridge/neuriovars"
)

// TestBuildOptions verifies parsed configuration carries through to a bridge.
func TestBuildOptions(t *testing.T) {
	cfg, err := Parse([]byte(`
sensor:
  address: 10.0.0.50
  timeout: 5s
store:
  address: tcp://127.0.0.1:9001
  prefix: /HOUSE
poll_interval: 2s
`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	opts := BuildOptions(cfg)
	if len(opts) != 5 {
		t.Errorf("len(opts) = %d, want 5", len(opts))
	}

	bridge, err := neuriovars.New(opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if got := bridge.SensorURL(); got != "http://10.0.0.50/current-sample" {
		t.Errorf("SensorURL() = %q, want http://10.0.0.50/current-sample", got)
	}
	if got := bridge.Interval(); got != 2*time.Second {
		t.Errorf("Interval() = %v, want 2s", got)
	}
	if got := bridge.Timeout(); got != 5*time.Second {
		t.Errorf("Timeout() = %v, want 5s", got)
	}
	if got := bridge.StoreAddress(); got != "tcp://127.0.0.1:9001" {
		t.Errorf("StoreAddress() = %q, want tcp://127.0.0.1:9001", got)
	}
	if got := bridge.VariablePrefix(); got != "/HOUSE" {
		t.Errorf("VariablePrefix() = %q, want /HOUSE", got)
	}
}

// TestBuildOptions_WithAuth verifies a configured credential adds the
// credential option.
func TestBuildOptions_WithAuth(t *testing.T) {
	cfg, err := Parse([]byte(`
sensor:
  address: 10.0.0.50
  auth: bmV1cmlvOnNlY3JldA==
`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	opts := BuildOptions(cfg)
	if len(opts) != 6 {
		t.Errorf("len(opts) = %d, want 6", len(opts))
	}

	if _, err := neuriovars.New(opts...); err != nil {
		t.Fatalf("New() error = %v", err)
	}
}

// TestBuildOptions_Defaults verifies an empty configuration builds a bridge
// with the documented defaults.
func TestBuildOptions_Defaults(t *testing.T) {
	cfg, err := Parse([]byte(""))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	bridge, err := neuriovars.New(BuildOptions(cfg)...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if got := bridge.SensorURL(); got != "http://192.168.86.31/current-sample" {
		t.Errorf("SensorURL() = %q, want http://192.168.86.31/current-sample", got)
	}
	if got := bridge.Interval(); got != time.Second {
		t.Errorf("Interval() = %v, want 1s", got)
	}
	if got := bridge.StoreAddress(); got != "tcp://127.0.0.1:7090" {
		t.Errorf("StoreAddress() = %q, want tcp://127.0.0.1:7090", got)
	}
	if got := bridge.VariablePrefix(); got != "/CONSUMPTION" {
		t.Errorf("VariablePrefix() = %q, want /CONSUMPTION", got)
	}
}
