package hardware

import (
	"context"
	"math"
	"strconv"
	"testing"

	"github.com/prodtrace/smartlabel/internal/models"
)

func TestSimulateNumericCheck(t *testing.T) {
	sim := NewFast()
	tol := 1.0

	for i := 0; i < 50; i++ {
		res := sim.SimulateQualityCheck(context.Background(), "Moisture Content", "12.5", &tol)

		if res.Status != models.CheckPassed {
			t.Fatalf("status = %s, want passed", res.Status)
		}
		if !res.Simulation {
			t.Fatal("result not flagged as simulation")
		}
		if res.Variance == nil {
			t.Fatal("numeric check should report variance")
		}
		if math.Abs(*res.Variance) > tol+0.005 {
			t.Errorf("variance %.4f outside tolerance %.1f", *res.Variance, tol)
		}

		actual, err := strconv.ParseFloat(res.ActualValue, 64)
		if err != nil {
			t.Fatalf("actual value %q not numeric: %v", res.ActualValue, err)
		}
		if actual < 12.5-tol-0.005 || actual > 12.5+tol+0.005 {
			t.Errorf("actual %.4f outside expected band", actual)
		}
		// two decimal places at most
		if rounded := math.Round(actual*100) / 100; rounded != actual {
			t.Errorf("actual %v not rounded to 2 decimals", actual)
		}
	}
}

func TestSimulateAlwaysPasses(t *testing.T) {
	// The simulator reports passed even when variance could exceed a tiny
	// tolerance. This is the intended demo behavior.
	sim := NewFast()
	tol := 0.0001
	for i := 0; i < 20; i++ {
		res := sim.SimulateQualityCheck(context.Background(), "Grain Length", "6.8", &tol)
		if res.Status != models.CheckPassed {
			t.Fatalf("status = %s, want passed", res.Status)
		}
	}
}

func TestSimulateCategoricalCheck(t *testing.T) {
	sim := NewFast()

	res := sim.SimulateQualityCheck(context.Background(), "Color", "Golden Brown", nil)
	if res.ActualValue != "Golden Brown" {
		t.Errorf("actual = %q, want literal expected value", res.ActualValue)
	}
	if res.Status != models.CheckPassed {
		t.Errorf("status = %s, want passed", res.Status)
	}
	if res.Variance != nil {
		t.Error("categorical check should not report variance")
	}
}

func TestSimulateAbsentExpectedValue(t *testing.T) {
	sim := NewFast()

	res := sim.SimulateQualityCheck(context.Background(), "Visual Inspection", "", nil)
	if res.ActualValue != "OK" {
		t.Errorf("actual = %q, want OK", res.ActualValue)
	}
	if res.Status != models.CheckPassed {
		t.Errorf("status = %s, want passed", res.Status)
	}
}

func TestSimulateDefaultTolerance(t *testing.T) {
	sim := NewFast()

	// nil tolerance must not panic and must bound variance by the default
	for i := 0; i < 30; i++ {
		res := sim.SimulateQualityCheck(context.Background(), "Weight", "100", nil)
		if res.Variance == nil {
			t.Fatal("expected variance")
		}
		if math.Abs(*res.Variance) > DefaultTolerance+0.005 {
			t.Errorf("variance %.4f exceeds default tolerance", *res.Variance)
		}
	}
}

func TestIsNonNegativeDecimal(t *testing.T) {
	valid := []string{"0", "12", "12.5", "0.3", "230"}
	invalid := []string{"", "-5", "+5", "1e3", "1.2.3", "OK", "12,5", "."}

	for _, v := range valid {
		if !isNonNegativeDecimal(v) {
			t.Errorf("isNonNegativeDecimal(%q) = false, want true", v)
		}
	}
	for _, v := range invalid {
		if isNonNegativeDecimal(v) {
			t.Errorf("isNonNegativeDecimal(%q) = true, want false", v)
		}
	}
}

func TestConnectSimulations(t *testing.T) {
	sim := NewFast()
	ctx := context.Background()

	for _, res := range []ConnectResult{
		sim.ConnectScanner(ctx),
		sim.ConnectPrinter(ctx),
		sim.ConnectSensors(ctx),
	} {
		if res.Status != "connected" {
			t.Errorf("status = %q, want connected", res.Status)
		}
		if res.DeviceID == "" {
			t.Error("missing device id")
		}
		if !res.Simulation {
			t.Error("connection not flagged as simulation")
		}
	}
}
