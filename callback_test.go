package neuriovars

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// TestWithCycleCallback_InvokedOnCycle verifies the callback fires once per
// poll cycle while the bridge runs.
func TestWithCycleCallback_InvokedOnCycle(t *testing.T) {
	ts := startTestSensor(t, testPayload)
	_, storeAddr := startTestStore(t)

	var callCount atomic.Int32

	bridge, err := New(
		WithSensorAddress(ts.URL),
		WithStoreAddress(storeAddr),
		WithInterval(50*time.Millisecond),
		WithLogger(discardLogger()),
		WithCycleCallback(func(result CycleResult) {
			callCount.Add(1)
		}),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	if err := bridge.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if got := callCount.Load(); got < 2 {
		t.Errorf("callback invoked %d times, want at least 2", got)
	}
}

// TestWithCycleCallback_ReceivesCompleteResult verifies the callback receives
// a fully populated result after a successful cycle.
func TestWithCycleCallback_ReceivesCompleteResult(t *testing.T) {
	ts := startTestSensor(t, testPayload)
	_, storeAddr := startTestStore(t)

	var (
		mu   sync.Mutex
		got  *CycleResult
		done = make(chan struct{})
		once sync.Once
	)

	bridge, err := New(
		WithSensorAddress(ts.URL),
		WithStoreAddress(storeAddr),
		WithInterval(50*time.Millisecond),
		WithLogger(discardLogger()),
		WithCycleCallback(func(result CycleResult) {
			mu.Lock()
			if got == nil {
				got = &result
			}
			mu.Unlock()
			once.Do(func() { close(done) })
		}),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	runDone := make(chan error, 1)
	go func() {
		runDone <- bridge.Run(ctx)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		cancel()
		t.Fatal("callback was not invoked")
	}
	cancel()
	<-runDone

	mu.Lock()
	defer mu.Unlock()

	if got.Error != nil {
		t.Fatalf("result.Error = %v, want nil", got.Error)
	}
	if got.Stage != StageComplete {
		t.Errorf("Stage = %q, want %q", got.Stage, StageComplete)
	}
	if got.CorrelationID == "" {
		t.Error("CorrelationID is empty")
	}
	if got.SensorID != "0x0000C47F510354D9" {
		t.Errorf("SensorID = %q, want 0x0000C47F510354D9", got.SensorID)
	}
	if got.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d, want %d", got.StatusCode, http.StatusOK)
	}
	if got.Published != 11 {
		t.Errorf("Published = %d, want 11", got.Published)
	}
	if got.CheckedAt.IsZero() {
		t.Error("CheckedAt is zero")
	}
	if got.Latency < 0 {
		t.Errorf("Latency = %v, want >= 0", got.Latency)
	}

	if len(got.Readings) != 3 {
		t.Fatalf("len(Readings) = %d, want 3", len(got.Readings))
	}
	l1 := got.Readings[0]
	if l1.Line != LineL1 {
		t.Errorf("Readings[0].Line = %q, want %q", l1.Line, LineL1)
	}
	if l1.Voltage != 119.497 {
		t.Errorf("Readings[0].Voltage = %v, want 119.497", l1.Voltage)
	}
	if l1.RealPower != 359 {
		t.Errorf("Readings[0].RealPower = %d, want 359", l1.RealPower)
	}
	if l1.ReactivePower != -117 {
		t.Errorf("Readings[0].ReactivePower = %d, want -117", l1.ReactivePower)
	}
	if l1.EnergyImported != 100227460449 {
		t.Errorf("Readings[0].EnergyImported = %d, want 100227460449", l1.EnergyImported)
	}
	total := got.Readings[2]
	if total.Line != LineTotal {
		t.Errorf("Readings[2].Line = %q, want %q", total.Line, LineTotal)
	}
	if total.RealPower != 621 {
		t.Errorf("Readings[2].RealPower = %d, want 621", total.RealPower)
	}
}

// TestWithCycleCallback_ErrorCycle verifies the callback still fires when the
// sensor responds with a server error, carrying the failure stage.
func TestWithCycleCallback_ErrorCycle(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(ts.Close)
	_, storeAddr := startTestStore(t)

	var (
		mu   sync.Mutex
		got  *CycleResult
		done = make(chan struct{})
		once sync.Once
	)

	bridge, err := New(
		WithSensorAddress(ts.URL),
		WithStoreAddress(storeAddr),
		WithInterval(50*time.Millisecond),
		WithLogger(discardLogger()),
		WithCycleCallback(func(result CycleResult) {
			mu.Lock()
			if got == nil {
				got = &result
			}
			mu.Unlock()
			once.Do(func() { close(done) })
		}),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	runDone := make(chan error, 1)
	go func() {
		runDone <- bridge.Run(ctx)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		cancel()
		t.Fatal("callback was not invoked")
	}
	cancel()
	<-runDone

	mu.Lock()
	defer mu.Unlock()

	if got.Error == nil {
		t.Fatal("result.Error = nil, want error")
	}
	if got.Stage != StagePoll {
		t.Errorf("Stage = %q, want %q", got.Stage, StagePoll)
	}
	if got.StatusCode != http.StatusInternalServerError {
		t.Errorf("StatusCode = %d, want %d", got.StatusCode, http.StatusInternalServerError)
	}
	if got.Published != 0 {
		t.Errorf("Published = %d, want 0", got.Published)
	}
	if len(got.Readings) != 0 {
		t.Errorf("len(Readings) = %d, want 0", len(got.Readings))
	}
}

// TestWithCycleCallback_PanicRecovery verifies a panicking callback does not
// crash the bridge and later callbacks still run.
func TestWithCycleCallback_PanicRecovery(t *testing.T) {
	ts := startTestSensor(t, testPayload)
	_, storeAddr := startTestStore(t)

	var logBuf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logBuf, nil))

	var secondCalled atomic.Int32

	bridge, err := New(
		WithSensorAddress(ts.URL),
		WithStoreAddress(storeAddr),
		WithInterval(50*time.Millisecond),
		WithLogger(logger),
		WithCycleCallback(func(result CycleResult) {
			panic("callback exploded")
		}),
		WithCycleCallback(func(result CycleResult) {
			secondCalled.Add(1)
		}),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	if err := bridge.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if secondCalled.Load() == 0 {
		t.Error("second callback never ran after first panicked")
	}
	if !strings.Contains(logBuf.String(), "cycle callback panicked") {
		t.Error("panic was not logged")
	}
}

// TestWithCycleCallback_NilIsSafe verifies registering a nil callback is a
// no-op rather than a crash.
func TestWithCycleCallback_NilIsSafe(t *testing.T) {
	ts := startTestSensor(t, testPayload)
	_, storeAddr := startTestStore(t)

	bridge, err := New(
		WithSensorAddress(ts.URL),
		WithStoreAddress(storeAddr),
		WithInterval(50*time.Millisecond),
		WithLogger(discardLogger()),
		WithCycleCallback(nil),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	if err := bridge.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
}

// TestWithCycleCallback_ExecutionOrder verifies callbacks run in registration
// order on every cycle.
func TestWithCycleCallback_ExecutionOrder(t *testing.T) {
	ts := startTestSensor(t, testPayload)
	_, storeAddr := startTestStore(t)

	var (
		mu    sync.Mutex
		order []int
	)
	record := func(n int) func(CycleResult) {
		return func(result CycleResult) {
			mu.Lock()
			order = append(order, n)
			mu.Unlock()
		}
	}

	bridge, err := New(
		WithSensorAddress(ts.URL),
		WithStoreAddress(storeAddr),
		WithInterval(50*time.Millisecond),
		WithLogger(discardLogger()),
		WithCycleCallback(record(1)),
		WithCycleCallback(record(2)),
		WithCycleCallback(record(3)),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	if err := bridge.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	mu.Lock()
	defer mu.Unlock()

	if len(order) < 3 {
		t.Fatalf("recorded %d invocations, want at least 3", len(order))
	}
	for i, n := range order {
		want := i%3 + 1
		if n != want {
			t.Fatalf("invocation %d was callback %d, want %d (order: %v)", i, n, want, order)
		}
	}
}
