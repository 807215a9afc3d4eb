// Standalone mock sensor for testing the CLI.
//
// Usage:
//
//	go run ./example/cmd/mocksensor
//
// Then in other terminals:
//
//	go run ./cmd/vard
//	go run ./cmd/neuriovars run -u 127.0.0.1:9999
package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"sync"
	"time"
)

func main() {
	fmt.Println("Mock Neurio sensor starting on :9999")
	fmt.Println("Serving /current-sample with a wandering two-phase load")
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println()

	var (
		mu       sync.Mutex
		last     = time.Now()
		powerL1  = 350.0
		powerL2  = 260.0
		energyL1 = 100227460449.0
		energyL2 = 69186339532.0
	)

	http.HandleFunc("/current-sample", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		now := time.Now()
		elapsed := now.Sub(last).Seconds()
		last = now

		energyL1 += powerL1 * elapsed
		energyL2 += powerL2 * elapsed
		powerL1 = drift(powerL1, 150, 800)
		powerL2 = drift(powerL2, 100, 600)

		payload := map[string]any{
			"sensorId":  "0x0000MOCK00000001",
			"timestamp": now.UTC().Format(time.RFC3339),
			"channels": []map[string]any{
				channel("PHASE_A_CONSUMPTION", 1, powerL1, energyL1),
				channel("PHASE_B_CONSUMPTION", 2, powerL2, energyL2),
				channel("CONSUMPTION", 3, powerL1+powerL2, energyL1+energyL2),
			},
		}
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(payload)
	})

	if err := http.ListenAndServe(":9999", nil); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

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
