// Package configprocessor provides shared configuration processing utilities.
package configprocessor

import (
	"github.com/iwvelando/mortgage-compare/pkg/validation"
)

// CommonInfo represents the shared comparison parameters
type CommonInfo struct {
	HouseValue    float64
	Principal     float64
	HorizonMonths int
	Benchmark     string
}

// OfferInfo represents offer configuration information
type OfferInfo struct {
	Name          string
	Active        bool
	Principal     float64
	HorizonMonths int
	LengthMonths  int // months covered by the offer's segments
}

// Processor handles configuration processing and validation
type Processor struct{}

// NewProcessor creates a new configuration processor
func NewProcessor() *Processor {
	return &Processor{}
}

// ValidateConfiguration validates the configuration and returns warnings
func (p *Processor) ValidateConfiguration(common CommonInfo, offers []OfferInfo) []string {
	validator := validation.ConfigValidator{
		Common: validation.CommonConfig{
			HouseValue: common.HouseValue,
			Principal:  common.Principal,
			Benchmark:  common.Benchmark,
		},
	}

	for _, offer := range offers {
		// Offers without their own horizon use the shared one.
		horizon := offer.HorizonMonths
		if horizon == 0 {
			horizon = common.HorizonMonths
		}
		validator.Offers = append(validator.Offers, validation.OfferConfig{
			Name:          offer.Name,
			Active:        offer.Active,
			Principal:     offer.Principal,
			HorizonMonths: horizon,
			LengthMonths:  offer.LengthMonths,
		})
	}

	warnings := validator.ValidateAll()
	if len(warnings) == 0 {
		return nil
	}
	return warnings
}
