// Package hardware simulates the sensor, scanner and printer devices the
// pipeline would talk to in production. All delays and variances are
// randomized stand-ins for real I/O.
package hardware

import (
	"context"
	"log"
	"math"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prodtrace/smartlabel/internal/models"
)

// DefaultTolerance is applied when a check definition carries none
const DefaultTolerance = 5.0

// Device IDs reported by the simulated hardware
const (
	ScannerDeviceID = "SCANNER_001"
	PrinterDeviceID = "PRINTER_001"
	SensorsDeviceID = "SENSORS_001"
)

// CheckResult is the outcome of one simulated measurement
type CheckResult struct {
	ActualValue string             `json:"actual_value"`
	Status      models.CheckStatus `json:"status"`
	Variance    *float64           `json:"variance,omitempty"`
	Simulation  bool               `json:"simulation"`
}

// ConnectResult describes a simulated device connection
type ConnectResult struct {
	Status     string `json:"status"`
	Message    string `json:"message"`
	DeviceID   string `json:"device_id"`
	Simulation bool   `json:"simulation"`
}

// Simulator produces simulated device interactions with bounded artificial
// latency. A zero-valued delay range disables sleeping, which is what tests
// and SIM_FAST mode use.
type Simulator struct {
	minMeasureDelay time.Duration
	maxMeasureDelay time.Duration
	minConnectDelay time.Duration
	maxConnectDelay time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

// New returns a simulator with production-like delays (connects 0.5-2s,
// measurements 1-3s)
func New() *Simulator {
	return &Simulator{
		minMeasureDelay: 1 * time.Second,
		maxMeasureDelay: 3 * time.Second,
		minConnectDelay: 500 * time.Millisecond,
		maxConnectDelay: 2 * time.Second,
		rng:             rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// NewFast returns a simulator without artificial latency
func NewFast() *Simulator {
	return &Simulator{
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *Simulator) randInt63n(n int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Int63n(n)
}

func (s *Simulator) randFloat64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}

func (s *Simulator) randIntn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Intn(n)
}

func (s *Simulator) sleep(ctx context.Context, min, max time.Duration) {
	if max <= 0 {
		return
	}
	d := min + time.Duration(s.randInt63n(int64(max-min)+1))
	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
}

// isNonNegativeDecimal reports whether v is a plain unsigned decimal number
// such as "12.5". Signed or exponent forms are treated as categorical.
func isNonNegativeDecimal(v string) bool {
	if v == "" || strings.Count(v, ".") > 1 {
		return false
	}
	stripped := strings.ReplaceAll(v, ".", "")
	if stripped == "" {
		return false
	}
	for _, r := range stripped {
		if r < '0' || r > '9' {
			return false
		}
	}
	_, err := strconv.ParseFloat(v, 64)
	return err == nil
}

// SimulateQualityCheck emulates one sensor measurement. Numeric expected
// values get a uniform variance within tolerance; the reported status is
// always "passed" regardless of the variance magnitude (demo policy, kept
// deliberately).
func (s *Simulator) SimulateQualityCheck(ctx context.Context, parameterName, expectedValue string, tolerance *float64) CheckResult {
	log.Printf("🔬 Simulating quality check for %s", parameterName)
	s.sleep(ctx, s.minMeasureDelay, s.maxMeasureDelay)

	tol := DefaultTolerance
	if tolerance != nil {
		tol = *tolerance
	}

	if isNonNegativeDecimal(expectedValue) {
		expected, _ := strconv.ParseFloat(expectedValue, 64)
		variance := (s.randFloat64()*2 - 1) * tol
		actual := expected + variance

		rounded := round2(variance)
		return CheckResult{
			ActualValue: strconv.FormatFloat(round2(actual), 'f', -1, 64),
			Status:      models.CheckPassed,
			Variance:    &rounded,
			Simulation:  true,
		}
	}

	actual := expectedValue
	if actual == "" {
		actual = "OK"
	}
	return CheckResult{
		ActualValue: actual,
		Status:      models.CheckPassed,
		Simulation:  true,
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// ConnectScanner simulates a scanner connection handshake
func (s *Simulator) ConnectScanner(ctx context.Context) ConnectResult {
	log.Println("📷 Simulating scanner connection...")
	s.sleep(ctx, s.minConnectDelay, s.maxConnectDelay)
	return ConnectResult{
		Status:     "connected",
		Message:    "Scanner connected successfully",
		DeviceID:   ScannerDeviceID,
		Simulation: true,
	}
}

// ConnectPrinter simulates a printer connection handshake
func (s *Simulator) ConnectPrinter(ctx context.Context) ConnectResult {
	log.Println("🖨️ Simulating printer connection...")
	s.sleep(ctx, s.minConnectDelay, s.maxConnectDelay)
	return ConnectResult{
		Status:     "connected",
		Message:    "Printer connected successfully",
		DeviceID:   PrinterDeviceID,
		Simulation: true,
	}
}

// ConnectSensors simulates a quality-sensor array connection
func (s *Simulator) ConnectSensors(ctx context.Context) ConnectResult {
	log.Println("🌡️ Simulating sensors connection...")
	s.sleep(ctx, s.minConnectDelay, s.maxConnectDelay)
	return ConnectResult{
		Status:     "connected",
		Message:    "Quality sensors connected successfully",
		DeviceID:   SensorsDeviceID,
		Simulation: true,
	}
}

// Status returns a point-in-time snapshot of the simulated devices
func (s *Simulator) Status() map[string]interface{} {
	return map[string]interface{}{
		"scanner": map[string]interface{}{
			"status":     "connected",
			"device_id":  ScannerDeviceID,
			"last_scan":  time.Now().UTC().Add(-5 * time.Minute).Format(time.RFC3339),
			"simulation": true,
		},
		"printer": map[string]interface{}{
			"status":       "connected",
			"device_id":    PrinterDeviceID,
			"queue_length": s.randIntn(6),
			"simulation":   true,
		},
		"sensors": map[string]interface{}{
			"status":         "connected",
			"device_id":      SensorsDeviceID,
			"active_sensors": []string{"temperature", "weight", "ph"},
			"simulation":     true,
		},
	}
}

// PrintDelay returns a randomized 2-5s simulated print duration (zero in
// fast mode)
func (s *Simulator) PrintDelay() time.Duration {
	if s.maxMeasureDelay <= 0 {
		return 0
	}
	return 2*time.Second + time.Duration(s.randInt63n(int64(3*time.Second)))
}

// PrintSucceeds rolls the simulated ~90% print success rate
func (s *Simulator) PrintSucceeds() bool {
	return s.randFloat64() > 0.1
}
