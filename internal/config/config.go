// Package config defines the data structures related to configuration and
// includes functions for loading and validating a mortgage comparison.
package config

import (
	"fmt"
	"io"
	"strings"

	"github.com/iwvelando/mortgage-compare/pkg/configprocessor"
	"github.com/iwvelando/mortgage-compare/pkg/constants"
	"github.com/iwvelando/mortgage-compare/pkg/datetime"
	"github.com/iwvelando/mortgage-compare/pkg/mortgage"
	"github.com/iwvelando/mortgage-compare/pkg/solver"
	"github.com/iwvelando/mortgage-compare/pkg/validation"
	"github.com/spf13/viper"
)

// Configuration holds all configuration for mortgage-compare.
// Field order is the key order of exported YAML.
type Configuration struct {
	Logging LoggingConfig `yaml:"logging,omitempty" json:"logging,omitempty"`
	Output  OutputConfig  `yaml:"output,omitempty" json:"output,omitempty"`
	Solver  solver.Config `yaml:"solver,omitempty" json:"solver,omitempty"`
	Common  Common        `yaml:"common" json:"common"`
	Offers  []Offer       `yaml:"offers" json:"offers"`
}

// LoggingConfig holds logging configuration options
type LoggingConfig struct {
	Level      string `yaml:"level,omitempty" json:"level,omitempty"`           // debug, info, warn, error
	Format     string `yaml:"format,omitempty" json:"format,omitempty"`         // json, console
	OutputFile string `yaml:"outputFile,omitempty" json:"outputFile,omitempty"` // optional file output
}

// OutputConfig holds output format configuration options
type OutputConfig struct {
	Format string `yaml:"format,omitempty" json:"format,omitempty"` // pretty, csv
}

// Common holds the parameters shared by every offer.
type Common struct {
	HouseValue     float64 `yaml:"houseValue,omitempty" json:"houseValue,omitempty"`
	Principal      float64 `yaml:"principal" json:"principal"`
	TermMonths     int     `yaml:"termMonths" json:"termMonths"`
	HorizonMonths  int     `yaml:"horizonMonths,omitempty" json:"horizonMonths,omitempty"`
	RateConvention string  `yaml:"rateConvention,omitempty" json:"rateConvention,omitempty"` // effective, nominal
	Benchmark      string  `yaml:"benchmark,omitempty" json:"benchmark,omitempty"`
	StartDate      string  `yaml:"startDate,omitempty" json:"startDate,omitempty"`
}

// LoadConfiguration takes a file path as input and loads the YAML-formatted
// configuration there.
func LoadConfiguration(configPath string) (*Configuration, error) {
	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file, %w", err)
	}

	return decode(v)
}

// LoadConfigurationFromReader loads a YAML-formatted configuration from r.
func LoadConfigurationFromReader(r io.Reader) (*Configuration, error) {
	v := newViper()

	if err := v.ReadConfig(r); err != nil {
		return nil, fmt.Errorf("error reading config data, %w", err)
	}

	return decode(v)
}

// newViper returns an isolated viper instance so concurrent loads in the
// server do not share state.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yml")
	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("output.format", constants.OutputFormatPretty)
	v.SetDefault("common.rateConvention", constants.RateConventionEffective)

	defaults := solver.DefaultConfig()
	v.SetDefault("solver.method", defaults.Method)
	v.SetDefault("solver.lowerBound", defaults.LowerBound)
	v.SetDefault("solver.upperBound", defaults.UpperBound)
	v.SetDefault("solver.tolerance", defaults.Tolerance)
	v.SetDefault("solver.maxIterations", defaults.MaxIterations)
	return v
}

func decode(v *viper.Viper) (*Configuration, error) {
	var configuration Configuration
	if err := v.Unmarshal(&configuration); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %w", err)
	}

	if err := configuration.Validate(); err != nil {
		return nil, err
	}

	return &configuration, nil
}

// Validate checks the configuration for errors that make a comparison
// impossible. Problems worth reporting but not fatal are returned by
// ValidateConfiguration instead.
func (c *Configuration) Validate() error {
	if c.Output.Format != "" {
		if err := validation.ValidateOutputFormat(c.Output.Format); err != nil {
			return err
		}
	}
	if _, err := mortgage.FromConvention(0, c.Common.RateConvention); err != nil {
		return err
	}
	if c.Common.StartDate != "" {
		if _, err := datetime.ParseMonth(c.Common.StartDate); err != nil {
			return fmt.Errorf("invalid common start date: %w", err)
		}
	}
	if c.Common.HorizonMonths < 0 {
		return fmt.Errorf("common horizon cannot be negative, got %d", c.Common.HorizonMonths)
	}

	if len(c.Offers) == 0 {
		return fmt.Errorf("at least one offer is required")
	}
	active := 0
	for i, offer := range c.Offers {
		if strings.TrimSpace(offer.Name) == "" {
			return fmt.Errorf("offer %d has no name", i)
		}
		if len(offer.Segments) == 0 {
			return fmt.Errorf("offer %s has no segments", offer.Name)
		}
		if offer.HorizonMonths < 0 {
			return fmt.Errorf("offer %s horizon cannot be negative, got %d", offer.Name, offer.HorizonMonths)
		}
		if offer.Active {
			active++
		}
	}
	if active == 0 {
		return fmt.Errorf("no active offers to compare")
	}

	return nil
}

// ValidateConfiguration performs general validation of the configuration and returns warnings
func (c *Configuration) ValidateConfiguration() []string {
	var offers []configprocessor.OfferInfo
	for _, offer := range c.Offers {
		offers = append(offers, configprocessor.OfferInfo{
			Name:          offer.Name,
			Active:        offer.Active,
			Principal:     offer.Principal,
			HorizonMonths: offer.HorizonMonths,
			LengthMonths:  offer.LengthMonths(c.Common),
		})
	}

	processor := configprocessor.NewProcessor()
	return processor.ValidateConfiguration(configprocessor.CommonInfo{
		HouseValue:    c.Common.HouseValue,
		Principal:     c.Common.Principal,
		HorizonMonths: c.Common.HorizonMonths,
		Benchmark:     c.Common.Benchmark,
	}, offers)
}

// ActiveOffers returns the active offers in configuration order.
func (c *Configuration) ActiveOffers() []Offer {
	var active []Offer
	for _, offer := range c.Offers {
		if offer.Active {
			active = append(active, offer)
		}
	}
	return active
}

// FindOffer returns the offer with the given name.
func (c *Configuration) FindOffer(name string) (Offer, bool) {
	for _, offer := range c.Offers {
		if offer.Name == name {
			return offer, true
		}
	}
	return Offer{}, false
}
