package integration

import (
	"bytes"
	"context"
	"math"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/iwvelando/backlog-forecast/internal/config"
	"github.com/iwvelando/backlog-forecast/internal/contract"
	"github.com/iwvelando/backlog-forecast/internal/forecast"
	"github.com/iwvelando/backlog-forecast/internal/output"
	"github.com/iwvelando/backlog-forecast/internal/override"
	"github.com/iwvelando/backlog-forecast/pkg/constants"
	"github.com/iwvelando/backlog-forecast/pkg/contour"
	"github.com/iwvelando/backlog-forecast/pkg/testutil"
	"go.uber.org/zap"
)

var asOf = time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)

func loadExample(t *testing.T) (config.Configuration, []contract.Contract) {
	t.Helper()

	conf, err := config.LoadConfiguration("../../config.yaml.example")
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}
	contracts, err := contract.LoadFile("../../contracts.yaml.example")
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if warnings := contract.Warnings(contracts); len(warnings) != 0 {
		t.Fatalf("unexpected contract warnings: %v", warnings)
	}
	return *conf, contracts
}

func checkConservation(t *testing.T, result forecast.Forecast) {
	t.Helper()

	var chart, projections float64
	for _, month := range result.Summary.Chart {
		chart += month.Total
	}
	for _, p := range result.Projections {
		projections += p.Total
		if p.RemainingPeriods < constants.MinPeriods || p.RemainingPeriods > constants.MaxPeriods {
			t.Errorf("%s: remaining periods %d out of range", p.ContractID, p.RemainingPeriods)
		}
	}
	if math.Abs(chart-result.Summary.GrandTotal) > 0.01 {
		t.Errorf("chart total %.2f != grand total %.2f", chart, result.Summary.GrandTotal)
	}
	if math.Abs(projections-result.Summary.GrandTotal) > 0.01 {
		t.Errorf("projection total %.2f != grand total %.2f", projections, result.Summary.GrandTotal)
	}
}

// TestExampleRevenueForecast runs the example configuration end to end the
// way the CLI does.
func TestExampleRevenueForecast(t *testing.T) {
	conf, contracts := loadExample(t)

	result := forecast.GetForecast(zap.NewNop(), forecast.NewInputs(conf, contracts, nil, asOf))

	if len(result.Projections) != 3 {
		t.Fatalf("expected 3 projections, got %d", len(result.Projections))
	}
	if testutil.FindProjection(result.Projections, "C-1003") != nil {
		t.Errorf("closed contract C-1003 should not be projected")
	}
	if want := 14320000.0; math.Abs(result.Summary.GrandTotal-want) > 0.01 {
		t.Errorf("grand total = %.2f, want %.2f", result.Summary.GrandTotal, want)
	}
	checkConservation(t, result)

	terminal := testutil.FindProjection(result.Projections, "C-1004")
	if terminal == nil {
		t.Fatal("missing C-1004")
	}
	if terminal.RemainingPeriods != 18 {
		t.Errorf("C-1004 override should set remaining periods to 18, got %d", terminal.RemainingPeriods)
	}

	if group := testutil.FindGroup(result.Summary.Departments, "Electrical"); group == nil || math.Abs(group.Total-3320000) > 0.01 {
		t.Errorf("unexpected Electrical group %+v", group)
	}
}

func TestExampleHoursForecast(t *testing.T) {
	conf, contracts := loadExample(t)
	conf.Forecast.Measure = constants.MeasureHours

	result := forecast.GetForecast(zap.NewNop(), forecast.NewInputs(conf, contracts, nil, asOf))

	if want := 28500.0; math.Abs(result.Summary.GrandTotal-want) > 0.01 {
		t.Errorf("grand total = %.2f hours, want %.2f", result.Summary.GrandTotal, want)
	}
	if math.Abs(result.Summary.TradeTotals["Pipefitter"]-18000) > 0.01 {
		t.Errorf("Pipefitter hours = %.2f, want 18000", result.Summary.TradeTotals["Pipefitter"])
	}
	if testutil.FindProjection(result.Projections, "C-1001") != nil {
		t.Errorf("C-1001 has no trades and should be excluded from hours")
	}
	checkConservation(t, result)
}

// TestOverridesSurviveReopen stores an override in sqlite, reopens the store
// and checks the forecast picks it up.
func TestOverridesSurviveReopen(t *testing.T) {
	conf, contracts := loadExample(t)
	path := filepath.Join(t.TempDir(), "overrides.db")
	ctx := context.Background()
	logger := zap.NewNop()

	manager, err := override.Open(ctx, path, false, logger)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	months := 2
	flat := contour.Flat
	if _, err := manager.Set(ctx, "C-1001", override.Entry{EndMonths: &months, Contour: &flat}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := manager.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened, err := override.Open(ctx, path, false, logger)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer reopened.Close()

	result := forecast.GetForecast(logger, forecast.NewInputs(conf, contracts, reopened.Snapshot(), asOf))
	clinic := testutil.FindProjection(result.Projections, "C-1001")
	if clinic == nil {
		t.Fatal("missing C-1001")
	}
	if clinic.Contour != contour.Flat || clinic.IsAutoContour {
		t.Errorf("expected manual flat contour, got %s (auto=%v)", clinic.Contour, clinic.IsAutoContour)
	}
	if clinic.RemainingPeriods != 2 {
		t.Errorf("expected 2 remaining periods, got %d", clinic.RemainingPeriods)
	}
	checkConservation(t, result)
}

func TestExampleOutputs(t *testing.T) {
	conf, contracts := loadExample(t)
	result := forecast.GetForecast(zap.NewNop(), forecast.NewInputs(conf, contracts, nil, asOf))

	var pretty bytes.Buffer
	output.PrettyFormat(&pretty, result)
	for _, want := range []string{"C-1002", "Riley Park", "Electrical"} {
		if !strings.Contains(pretty.String(), want) {
			t.Errorf("pretty output missing %q", want)
		}
	}

	var csv bytes.Buffer
	if err := output.CsvFormat(&csv, result); err != nil {
		t.Fatalf("CsvFormat() error = %v", err)
	}
	lines := strings.Split(strings.TrimSpace(csv.String()), "\n")
	if len(lines) != len(result.Projections)+2 {
		t.Errorf("expected header, %d rows and totals, got %d lines", len(result.Projections), len(lines))
	}

	book, err := output.Workbook(result)
	if err != nil {
		t.Fatalf("Workbook() error = %v", err)
	}
	defer book.Close()
	if idx, err := book.GetSheetIndex(output.SheetTable); err != nil || idx < 0 {
		t.Errorf("workbook missing %s sheet", output.SheetTable)
	}
}
