package main

import (
	"encoding/json"
	"log/slog"
	"math/rand"
	"net/http"
	"sync"
	"time"
)

// mockSensor simulates a two-phase Neurio sensor. The per-phase load wanders
// around a base level and the energy counters integrate it over time.
type mockSensor struct {
	mu       sync.Mutex
	last     time.Time
	powerL1  float64
	powerL2  float64
	energyL1 float64
	energyL2 float64
}

func newMockSensor() *mockSensor {
	return &mockSensor{
		last:     time.Now(),
		powerL1:  350,
		powerL2:  260,
		energyL1: 100227460449,
		energyL2: 69186339532,
	}
}

// sample advances the simulation and renders one /current-sample payload.
func (m *mockSensor) sample() map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(m.last).Seconds()
	m.last = now

	// integrate energy at the current load, then wander the load
	m.energyL1 += m.powerL1 * elapsed
	m.energyL2 += m.powerL2 * elapsed
	m.powerL1 = drift(m.powerL1, 150, 800)
	m.powerL2 = drift(m.powerL2, 100, 600)

	return map[string]any{
		"sensorId":  "0x0000MOCK00000001",
		"timestamp": now.UTC().Format(time.RFC3339),
		"channels": []map[string]any{
			channel("PHASE_A_CONSUMPTION", 1, m.powerL1, m.energyL1),
			channel("PHASE_B_CONSUMPTION", 2, m.powerL2, m.energyL2),
			channel("CONSUMPTION", 3, m.powerL1+m.powerL2, m.energyL1+m.energyL2),
		},
	}
}

// drift moves a load by up to ±20W, clamped to [min, max].
func drift(p, min, max float64) float64 {
	p += float64(rand.Intn(41) - 20)
	if p < min {
		return min
	}
	if p > max {
		return max
	}
	return p
}

func channel(typ string, ch int, power, energy float64) map[string]any {
	return map[string]any{
		"type":    typ,
		"ch":      ch,
		"p_W":     int(power),
		"q_VAR":   -int(power * 0.3),
		"v_V":     119.0 + rand.Float64()*1.2,
		"eImp_Ws": uint64(energy),
		"eExp_Ws": 0,
	}
}

// StartMockSensor runs a fake Neurio sensor on addr.
// Call this in a goroutine before starting the bridge.
func StartMockSensor(addr string) {
	sensor := newMockSensor()

	http.HandleFunc("/current-sample", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(sensor.sample()); err != nil {
			slog.Error("failed to write response", "error", err)
		}
	})

	if err := http.ListenAndServe(addr, nil); err != nil {
		slog.Error("mock sensor error", "error", err)
	}
}
