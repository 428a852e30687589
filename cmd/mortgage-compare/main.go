package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/iwvelando/mortgage-compare/internal/compare"
	"github.com/iwvelando/mortgage-compare/internal/config"
	"github.com/iwvelando/mortgage-compare/internal/logging"
	"github.com/iwvelando/mortgage-compare/pkg/constants"
	"github.com/iwvelando/mortgage-compare/pkg/output"
	"github.com/iwvelando/mortgage-compare/pkg/validation"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// Process command line flags first to get config location
	configLocation := flag.String("config", constants.DefaultConfigFile, "path to configuration file")
	envFile := flag.String("env-file", ".env", "optional file of MORTGAGE_COMPARE_* overrides")
	outputFormatFlag := flag.String("output-format", "", "type of output override: pretty, csv")
	logLevel := flag.String("log-level", "", "log level override (debug, info, warn, error)")
	schedule := flag.String("schedule", "", "print the amortization schedule of the named offer instead of the comparison")
	flag.Parse()

	// A missing .env file is not an error.
	_ = godotenv.Load(*envFile)

	// Load the config file to get logging configuration
	conf, err := config.LoadConfiguration(*configLocation)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to load configuration at %s\", \"error\": \"%v\"}\n", *configLocation, err)
		os.Exit(1)
	}

	logger, err := logging.New(conf.Logging, *logLevel)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to initialize logger\", \"error\": \"%v\"}\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	// CLI override takes precedence over config
	outputFormat := conf.Output.Format
	if *outputFormatFlag != "" {
		outputFormat = *outputFormatFlag
	}
	if outputFormat == "" {
		outputFormat = constants.OutputFormatPretty
	}

	err = validation.ValidateOutputFormat(outputFormat)
	if err != nil {
		logger.Fatal(err.Error(),
			zap.String("op", "main"),
		)
	}

	warnings := conf.ValidateConfiguration()
	for _, warning := range warnings {
		logger.Warn("Configuration warning: "+warning,
			zap.String("op", "main"),
		)
	}

	if *schedule != "" {
		printSchedule(logger, conf, *schedule, outputFormat)
		return
	}

	comparison, err := compare.Compare(context.Background(), logger, *conf)
	if err != nil {
		logger.Fatal("failed to compare offers",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}

	switch outputFormat {
	case constants.OutputFormatPretty:
		output.PrettyFormat(os.Stdout, comparison)
	case constants.OutputFormatCSV:
		if err := output.CsvFormat(os.Stdout, comparison); err != nil {
			logger.Fatal("failed to write CSV output",
				zap.String("op", "main"),
				zap.Error(err),
			)
		}
	}
}

func printSchedule(logger *zap.Logger, conf *config.Configuration, name, outputFormat string) {
	offer, ok := conf.FindOffer(name)
	if !ok {
		logger.Fatal(fmt.Sprintf("offer %s not found", name),
			zap.String("op", "main"),
		)
	}

	payments, err := offer.Schedule(logger, conf.Common)
	if err != nil {
		logger.Fatal("failed to compute amortization schedule",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}

	switch outputFormat {
	case constants.OutputFormatPretty:
		output.ScheduleFormat(os.Stdout, offer.Name, payments)
	case constants.OutputFormatCSV:
		if err := output.ScheduleCsv(os.Stdout, payments); err != nil {
			logger.Fatal("failed to write CSV output",
				zap.String("op", "main"),
				zap.Error(err),
			)
		}
	}
}
