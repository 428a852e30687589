package config

import (
	"math"
	"strings"
	"testing"

	"github.com/iwvelando/mortgage-compare/pkg/constants"
	"github.com/iwvelando/mortgage-compare/pkg/mortgage"
)

const testConfigPath = "../../test/test_config.yaml"

func TestLoadConfiguration(t *testing.T) {
	tests := []struct {
		name       string
		configPath string
		wantError  bool
	}{
		{
			name:       "Non-existent config file",
			configPath: "nonexistent.yaml",
			wantError:  true,
		},
		{
			name:       "Test fixture",
			configPath: testConfigPath,
			wantError:  false,
		},
		{
			name:       "Example configuration",
			configPath: "../../" + constants.ExampleConfigFile,
			wantError:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config, err := LoadConfiguration(tt.configPath)
			if tt.wantError {
				if err == nil {
					t.Errorf("LoadConfiguration() expected error but got none")
				}
				return
			}
			if err != nil {
				t.Errorf("LoadConfiguration() error = %v", err)
				return
			}
			if config == nil {
				t.Errorf("LoadConfiguration() returned nil config")
			}
		})
	}
}

func TestLoadConfigurationStructure(t *testing.T) {
	config, err := LoadConfiguration(testConfigPath)
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}

	if config.Common.HouseValue != 150000 {
		t.Errorf("Expected HouseValue = 150000, got %v", config.Common.HouseValue)
	}
	if config.Common.Principal != 125000 {
		t.Errorf("Expected Principal = 125000, got %v", config.Common.Principal)
	}
	if config.Common.TermMonths != 300 {
		t.Errorf("Expected TermMonths = 300, got %v", config.Common.TermMonths)
	}
	if config.Common.StartDate != "2025-01" {
		t.Errorf("Expected StartDate = 2025-01, got %v", config.Common.StartDate)
	}
	if config.Logging.Level != "warn" || config.Logging.Format != "console" {
		t.Errorf("Unexpected logging config %+v", config.Logging)
	}

	expectedOffers := []string{
		"2 year fix",
		"5 year fix",
		"10 year fix",
		"2 year fix then standard rate",
		"repeated 2 year remortgage",
		"cashback offer",
	}
	if len(config.Offers) != len(expectedOffers) {
		t.Fatalf("Expected %d offers, got %d", len(expectedOffers), len(config.Offers))
	}
	for i, expectedName := range expectedOffers {
		if config.Offers[i].Name != expectedName {
			t.Errorf("Expected offer name %s, got %s", expectedName, config.Offers[i].Name)
		}
	}

	fix := config.Offers[0]
	if fix.HorizonMonths != 24 || len(fix.Segments) != 1 {
		t.Fatalf("Unexpected first offer %+v", fix)
	}
	if fix.Segments[0].Rate != 1.69 || fix.Segments[0].Fees != 995 || !fix.Segments[0].FeesAddedToLoan {
		t.Errorf("Unexpected first segment %+v", fix.Segments[0])
	}

	cashback := config.Offers[5]
	if cashback.Active {
		t.Error("Expected cashback offer to be inactive")
	}
	if cashback.Principal != 120000 || cashback.Segments[0].Cashback != 500 {
		t.Errorf("Unexpected cashback offer %+v", cashback)
	}

	if len(config.ActiveOffers()) != 5 {
		t.Errorf("Expected 5 active offers, got %d", len(config.ActiveOffers()))
	}
}

func TestLoadConfigurationDefaults(t *testing.T) {
	yaml := `
common:
  principal: 100000
  termMonths: 240
offers:
  - name: only
    active: true
    segments:
      - rate: 4
`
	config, err := LoadConfigurationFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("LoadConfigurationFromReader() error = %v", err)
	}

	if config.Logging.Level != "info" {
		t.Errorf("Expected default logging level info, got %q", config.Logging.Level)
	}
	if config.Output.Format != constants.OutputFormatPretty {
		t.Errorf("Expected default output format, got %q", config.Output.Format)
	}
	if config.Common.RateConvention != constants.RateConventionEffective {
		t.Errorf("Expected default rate convention, got %q", config.Common.RateConvention)
	}
	if config.Solver.Method != constants.SolverMethodBalance {
		t.Errorf("Expected default solver method, got %q", config.Solver.Method)
	}
	if config.Solver.UpperBound != constants.DefaultSolverUpperBound {
		t.Errorf("Expected default upper bound, got %v", config.Solver.UpperBound)
	}
	if config.Solver.MaxIterations != constants.DefaultSolverMaxIterations {
		t.Errorf("Expected default max iterations, got %v", config.Solver.MaxIterations)
	}
}

func TestLoadConfigurationEnvironmentOverride(t *testing.T) {
	t.Setenv("MORTGAGE_COMPARE_SOLVER_METHOD", constants.SolverMethodCashFlow)
	t.Setenv("MORTGAGE_COMPARE_OUTPUT_FORMAT", constants.OutputFormatCSV)

	config, err := LoadConfiguration(testConfigPath)
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}
	if config.Solver.Method != constants.SolverMethodCashFlow {
		t.Errorf("Expected solver method from environment, got %q", config.Solver.Method)
	}
	if config.Output.Format != constants.OutputFormatCSV {
		t.Errorf("Expected output format from environment, got %q", config.Output.Format)
	}
}

func TestInvalidConfigurations(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{
			name: "No offers",
			yaml: "common:\n  principal: 1000\n  termMonths: 12\n",
		},
		{
			name: "No active offers",
			yaml: "common:\n  principal: 1000\n  termMonths: 12\noffers:\n  - name: a\n    active: false\n    segments:\n      - rate: 1\n",
		},
		{
			name: "Offer without name",
			yaml: "common:\n  principal: 1000\n  termMonths: 12\noffers:\n  - active: true\n    segments:\n      - rate: 1\n",
		},
		{
			name: "Offer without segments",
			yaml: "common:\n  principal: 1000\n  termMonths: 12\noffers:\n  - name: a\n    active: true\n",
		},
		{
			name: "Unknown rate convention",
			yaml: "common:\n  principal: 1000\n  termMonths: 12\n  rateConvention: daily\noffers:\n  - name: a\n    active: true\n    segments:\n      - rate: 1\n",
		},
		{
			name: "Unknown output format",
			yaml: "output:\n  format: xml\ncommon:\n  principal: 1000\n  termMonths: 12\noffers:\n  - name: a\n    active: true\n    segments:\n      - rate: 1\n",
		},
		{
			name: "Bad start date",
			yaml: "common:\n  principal: 1000\n  termMonths: 12\n  startDate: January\noffers:\n  - name: a\n    active: true\n    segments:\n      - rate: 1\n",
		},
		{
			name: "Malformed YAML",
			yaml: "common: [",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadConfigurationFromReader(strings.NewReader(tt.yaml)); err == nil {
				t.Error("Expected error but got none")
			}
		})
	}
}

func TestValidateConfiguration(t *testing.T) {
	config, err := LoadConfiguration(testConfigPath)
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}
	if warnings := config.ValidateConfiguration(); len(warnings) != 0 {
		t.Errorf("Expected no warnings for test fixture, got %v", warnings)
	}

	config.Common.Benchmark = "missing"
	config.Common.HouseValue = 100000
	config.Offers = append(config.Offers, config.Offers[0])
	config.Offers[1].HorizonMonths = 400

	warnings := config.ValidateConfiguration()
	expected := []string{"used more than once", "of the house value", "horizon of 400 months", "Benchmark offer 'missing'"}
	for _, fragment := range expected {
		found := false
		for _, warning := range warnings {
			if strings.Contains(warning, fragment) {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("Expected a warning containing %q, got %v", fragment, warnings)
		}
	}
}

func TestOfferBuild(t *testing.T) {
	config, err := LoadConfiguration(testConfigPath)
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}

	tests := []struct {
		offer            string
		expectSequence   bool
		expectedMonths   int
		expectedHorizon  int
		expectedSegments int
	}{
		{"2 year fix", false, 300, 24, 1},
		{"5 year fix", false, 300, 60, 1},
		{"2 year fix then standard rate", true, 300, 60, 2},
		{"repeated 2 year remortgage", true, 300, 60, 3},
		{"cashback offer", false, 300, 60, 1},
	}

	for _, tt := range tests {
		t.Run(tt.offer, func(t *testing.T) {
			offer, ok := config.FindOffer(tt.offer)
			if !ok {
				t.Fatalf("offer %s not found", tt.offer)
			}
			instrument, err := offer.Build(config.Common)
			if err != nil {
				t.Fatalf("Build() error = %v", err)
			}

			seq, isSequence := instrument.(mortgage.Sequence)
			if isSequence != tt.expectSequence {
				t.Fatalf("Build() returned %T", instrument)
			}
			if isSequence && len(seq.Segments()) != tt.expectedSegments {
				t.Errorf("Expected %d segments, got %d", tt.expectedSegments, len(seq.Segments()))
			}
			if instrument.Months() != tt.expectedMonths {
				t.Errorf("Expected %d months, got %d", tt.expectedMonths, instrument.Months())
			}
			if offer.LengthMonths(config.Common) != tt.expectedMonths {
				t.Errorf("LengthMonths() = %d, expected %d", offer.LengthMonths(config.Common), tt.expectedMonths)
			}
			if horizon := offer.Horizon(config.Common, instrument.Months()); horizon != tt.expectedHorizon {
				t.Errorf("Horizon() = %d, expected %d", horizon, tt.expectedHorizon)
			}
		})
	}
}

func TestOfferBuildValues(t *testing.T) {
	common := Common{Principal: 125000, TermMonths: 300, RateConvention: constants.RateConventionNominal}
	offer := Offer{
		Name:   "nominal",
		Active: true,
		Segments: []Segment{
			{Rate: 4.5, Fees: 1000, DurationMonths: 60},
			{Rate: 6},
		},
	}

	instrument, err := offer.Build(common)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	seq := instrument.(mortgage.Sequence)
	segments := seq.Segments()
	if segments[0].Rate != mortgage.FromNominalPercent(4.5) {
		t.Errorf("Expected nominal rate conversion, got %v", segments[0].Rate)
	}
	if segments[0].TermMonths != 300 || segments[0].Duration != 60 {
		t.Errorf("Unexpected first segment %+v", segments[0])
	}
	if segments[1].TermMonths != 0 || segments[1].Duration != 240 {
		t.Errorf("Unexpected second segment %+v", segments[1])
	}

	withFee, err := offer.BuildWithExtraFee(common, 500)
	if err != nil {
		t.Fatalf("BuildWithExtraFee() error = %v", err)
	}
	baseCost, _ := instrument.TotalCost(60)
	feeCost, _ := withFee.TotalCost(60)
	if math.Abs(feeCost-baseCost-500) > 1e-6 {
		t.Errorf("Extra fee changed cost by %v, expected 500", feeCost-baseCost)
	}

	broken := Offer{Name: "broken", Segments: []Segment{{Rate: 4.5, DurationMonths: 400}}}
	if _, err := broken.Build(common); err == nil {
		t.Error("Expected error for duration beyond term")
	}
	if broken.LengthMonths(Common{RateConvention: "daily"}) != 0 {
		t.Error("Expected zero length for unresolvable offer")
	}
}

func TestOfferSchedule(t *testing.T) {
	config, err := LoadConfiguration(testConfigPath)
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}
	offer, _ := config.FindOffer("2 year fix then standard rate")

	schedule, err := offer.Schedule(nil, config.Common)
	if err != nil {
		t.Fatalf("Schedule() error = %v", err)
	}
	if len(schedule) != 300 {
		t.Fatalf("Expected 300 payments, got %d", len(schedule))
	}
	for i, payment := range schedule {
		if payment.Month != i+1 {
			t.Fatalf("payment %d has month %d", i, payment.Month)
		}
	}
	if schedule[24].Date != "2027-01" {
		t.Errorf("Expected first standard rate payment in 2027-01, got %s", schedule[24].Date)
	}
	if schedule[299].RemainingPrincipal != 0 {
		t.Errorf("Expected schedule to end at zero, got %v", schedule[299].RemainingPrincipal)
	}

	instrument, _ := offer.Build(config.Common)
	balance, _ := instrument.BalanceAt(24)
	if math.Abs(schedule[23].RemainingPrincipal-balance) > 1e-6 {
		t.Errorf("Balance at remortgage %v, expected %v", schedule[23].RemainingPrincipal, balance)
	}
	if schedule[24].Payment <= schedule[23].Payment {
		t.Errorf("Expected payment to rise on the standard rate: %v -> %v", schedule[23].Payment, schedule[24].Payment)
	}
}

func TestLoggingConfiguration(t *testing.T) {
	config := Configuration{
		Logging: LoggingConfig{
			Level:  "debug",
			Format: "console",
		},
	}

	if config.Logging.Level != "debug" {
		t.Errorf("Expected logging level 'debug', got '%s'", config.Logging.Level)
	}
	if config.Logging.Format != "console" {
		t.Errorf("Expected logging format 'console', got '%s'", config.Logging.Format)
	}

	emptyConfig := Configuration{}
	if emptyConfig.Logging.Level != "" {
		t.Errorf("Expected empty logging level, got '%s'", emptyConfig.Logging.Level)
	}
}
