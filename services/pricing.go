// Package services provides pricing, quote numbering and quote document
// generation for the service calculator.
package services

import (
	"math"
	"strings"
)

// PricingModel describes how a service's base price is applied.
type PricingModel string

const (
	PricingFlat   PricingModel = "flat"
	PricingHourly PricingModel = "hourly"
	PricingRange  PricingModel = "range"
	PricingCustom PricingModel = "custom"
)

// PricingModels lists the accepted pricing models in display order.
var PricingModels = []PricingModel{PricingFlat, PricingHourly, PricingRange, PricingCustom}

// Valid reports whether m is one of the known pricing models.
func (m PricingModel) Valid() bool {
	for _, known := range PricingModels {
		if m == known {
			return true
		}
	}
	return false
}

// DefaultPriceUnit is the unit for services priced per job, which never take a quantity.
const DefaultPriceUnit = "job"

// AddOn is an optional supplemental charge attached to exactly one service.
type AddOn struct {
	ID          string  `json:"id"`
	ServiceID   string  `json:"serviceId"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Description string  `json:"description,omitempty"`
}

// Service is a sellable offering from a business catalog.
type Service struct {
	ID           string       `json:"id"`
	BusinessID   string       `json:"businessId"`
	Name         string       `json:"name"`
	Description  string       `json:"description,omitempty"`
	BasePrice    float64      `json:"basePrice"`
	MaxPrice     float64      `json:"maxPrice,omitempty"` // upper bound for range pricing
	PricingModel PricingModel `json:"pricingModel"`
	PriceUnit    string       `json:"priceUnit,omitempty"`
	Active       bool         `json:"active"`
	SortOrder    int          `json:"sortOrder"`
	AddOns       []AddOn      `json:"addOns"`
}

// Unit returns the price unit label, defaulting to "job".
func (s Service) Unit() string {
	unit := strings.ToLower(strings.TrimSpace(s.PriceUnit))
	if unit == "" {
		if s.PricingModel == PricingHourly {
			return "hour"
		}
		return DefaultPriceUnit
	}
	return unit
}

// RequiresQuantity reports whether the base price is multiplied by a quantity.
// Hourly services and anything priced per unit other than a job do.
func (s Service) RequiresQuantity() bool {
	if s.PricingModel == PricingHourly {
		return true
	}
	return s.Unit() != DefaultPriceUnit
}

// SelectedService is one chosen service with its chosen add-ons.
type SelectedService struct {
	Service  Service `json:"service"`
	Quantity float64 `json:"quantity,omitempty"`
	AddOns   []AddOn `json:"addOns"`
}

// Selection is the ordered list of services a client picked.
type Selection []SelectedService

// PriceBreakdown holds the computed totals for a selection.
type PriceBreakdown struct {
	Subtotal float64 `json:"subtotal"`
	TaxRate  float64 `json:"taxRate"`
	Tax      float64 `json:"tax"`   // Subtotal * TaxRate / 100
	Total    float64 `json:"total"` // Subtotal + Tax
}

// LinePrice returns the effective price of a selected service without add-ons.
// Unit-priced services multiply by quantity; an unusable quantity counts as zero.
func LinePrice(s SelectedService) float64 {
	if !s.Service.RequiresQuantity() {
		return s.Service.BasePrice
	}
	return s.Service.BasePrice * sanitizeNonNegative(s.Quantity)
}

// AddOnsTotal sums the prices of the selected add-ons of one service.
func AddOnsTotal(s SelectedService) float64 {
	var sum float64
	for _, a := range s.AddOns {
		sum += a.Price
	}
	return sum
}

// ComputeTotals aggregates a selection into a price breakdown.
// Add-on prices are independent of quantity. No rounding is applied.
func ComputeTotals(selection Selection, taxRatePercent float64) PriceBreakdown {
	var subtotal float64
	for _, s := range selection {
		subtotal += LinePrice(s)
		subtotal += AddOnsTotal(s)
	}

	rate := sanitizeNonNegative(taxRatePercent)
	var tax float64
	if rate > 0 {
		tax = subtotal * rate / 100
	}

	return PriceBreakdown{
		Subtotal: subtotal,
		TaxRate:  rate,
		Tax:      tax,
		Total:    subtotal + tax,
	}
}

// sanitizeNonNegative maps negative, NaN and infinite values to zero.
func sanitizeNonNegative(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}
