package services

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"

	"servicequote/logging"
)

// ErrBusinessNotFound is returned when a catalog has no business with the given ID.
var ErrBusinessNotFound = errors.New("business not found")

// BusinessProfile is the branding and contact information printed on a quote.
type BusinessProfile struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	ContactEmail   string  `json:"email,omitempty"`
	ContactPhone   string  `json:"phone,omitempty"`
	Address        string  `json:"address,omitempty"`
	BrandColor     string  `json:"brandColor,omitempty"`
	SecondaryColor string  `json:"secondaryColor,omitempty"`
	TaxRate        float64 `json:"taxRate"`
	Logo           []byte  `json:"-"`
}

// Catalog provides a business profile and its sellable services.
type Catalog interface {
	Business(ctx context.Context, businessID string) (BusinessProfile, error)
	ActiveServices(ctx context.Context, businessID string) ([]Service, error)
}

// Demo identifiers used by the demo catalog and demo sessions.
const (
	DemoBusinessID = "demo-biz-1"
	DemoUserID     = "demo-user-1"
	DemoUserEmail  = "demo@arclabs.io"
)

// DemoCatalog is a fixed in-memory catalog for demo mode and the CLI.
type DemoCatalog struct{}

var demoBusiness = BusinessProfile{
	ID:           DemoBusinessID,
	Name:         "Pro Cleaning Services",
	ContactEmail: "contact@procleaning.demo",
	ContactPhone: "(555) 123-4567",
	Address:      "123 Main St, Miami, FL 33101",
	BrandColor:   DefaultBrandColorHex,
}

var demoServices = []Service{
	{
		ID: "svc-1", Name: "Standard Cleaning", Description: "Basic cleaning for homes and apartments",
		BasePrice: 120, PricingModel: PricingFlat, PriceUnit: "job", Active: true, SortOrder: 1,
		AddOns: []AddOn{
			{ID: "ao-1", ServiceID: "svc-1", Name: "Inside Fridge", Price: 25},
			{ID: "ao-2", ServiceID: "svc-1", Name: "Inside Oven", Price: 30},
			{ID: "ao-3", ServiceID: "svc-1", Name: "Window Cleaning", Price: 8},
		},
	},
	{
		ID: "svc-2", Name: "Deep Cleaning", Description: "Thorough cleaning including baseboards, vents, and detailed work",
		BasePrice: 0.15, PricingModel: PricingFlat, PriceUnit: "sqft", Active: true, SortOrder: 2,
		AddOns: []AddOn{
			{ID: "ao-4", ServiceID: "svc-2", Name: "Carpet Shampooing", Price: 75},
			{ID: "ao-5", ServiceID: "svc-2", Name: "Tile & Grout Scrub", Price: 60},
		},
	},
	{
		ID: "svc-3", Name: "Move-In/Move-Out", Description: "Complete cleaning for property transitions",
		BasePrice: 250, PricingModel: PricingFlat, PriceUnit: "job", Active: true, SortOrder: 3,
		AddOns: []AddOn{
			{ID: "ao-6", ServiceID: "svc-3", Name: "Garage Cleaning", Price: 50},
			{ID: "ao-7", ServiceID: "svc-3", Name: "Exterior Windows", Price: 100},
		},
	},
	{
		ID: "svc-4", Name: "Hourly Labor", Description: "General labor at hourly rate",
		BasePrice: 45, PricingModel: PricingHourly, PriceUnit: "hour", Active: true, SortOrder: 4,
	},
	{
		ID: "svc-5", Name: "TV Mounting", Description: "Professional TV installation",
		BasePrice: 100, PricingModel: PricingFlat, PriceUnit: "tv", Active: true, SortOrder: 5,
		AddOns: []AddOn{
			{ID: "ao-10", ServiceID: "svc-5", Name: "Cord Concealment", Price: 50},
			{ID: "ao-11", ServiceID: "svc-5", Name: "Sound Bar Install", Price: 35},
		},
	},
}

// Business returns the demo business profile.
func (DemoCatalog) Business(_ context.Context, businessID string) (BusinessProfile, error) {
	if businessID != DemoBusinessID {
		return BusinessProfile{}, fmt.Errorf("%w: %s", ErrBusinessNotFound, businessID)
	}
	return demoBusiness, nil
}

// ActiveServices returns a copy of the demo services.
func (DemoCatalog) ActiveServices(_ context.Context, businessID string) ([]Service, error) {
	if businessID != DemoBusinessID {
		return nil, fmt.Errorf("%w: %s", ErrBusinessNotFound, businessID)
	}
	out := make([]Service, len(demoServices))
	for i, svc := range demoServices {
		svc.AddOns = append([]AddOn(nil), svc.AddOns...)
		out[i] = svc
	}
	return out, nil
}

// RecordCatalog reads businesses, services and add-ons from PocketBase collections.
type RecordCatalog struct {
	App *pocketbase.PocketBase
}

// Business loads a business record into a profile. A logo that fails to
// decode is dropped with a log line.
func (c RecordCatalog) Business(ctx context.Context, businessID string) (BusinessProfile, error) {
	if err := ctx.Err(); err != nil {
		return BusinessProfile{}, err
	}
	rec, err := c.App.FindRecordById("businesses", businessID)
	if err != nil {
		return BusinessProfile{}, fmt.Errorf("%w: %s", ErrBusinessNotFound, businessID)
	}
	return businessFromRecord(rec), nil
}

// ActiveServices loads the active services of a business with their add-ons,
// ordered by sort order.
func (c RecordCatalog) ActiveServices(ctx context.Context, businessID string) ([]Service, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	records, err := c.App.FindRecordsByFilter(
		"services",
		"business = {:businessId} && active = true",
		"sort_order",
		0,
		0,
		map[string]any{"businessId": businessID},
	)
	if err != nil {
		return nil, fmt.Errorf("loading services: %w", err)
	}

	services := make([]Service, 0, len(records))
	for _, rec := range records {
		svc := serviceFromRecord(rec)
		addOnRecords, err := c.App.FindRecordsByFilter(
			"addons",
			"service = {:serviceId}",
			"name",
			0,
			0,
			map[string]any{"serviceId": rec.Id},
		)
		if err != nil {
			return nil, fmt.Errorf("loading add-ons of service %s: %w", rec.Id, err)
		}
		for _, ar := range addOnRecords {
			svc.AddOns = append(svc.AddOns, AddOn{
				ID:          ar.Id,
				ServiceID:   rec.Id,
				Name:        ar.GetString("name"),
				Price:       ar.GetFloat("price"),
				Description: ar.GetString("description"),
			})
		}
		services = append(services, svc)
	}
	SortServices(services)
	return services, nil
}

func businessFromRecord(rec *core.Record) BusinessProfile {
	profile := BusinessProfile{
		ID:             rec.Id,
		Name:           rec.GetString("name"),
		ContactEmail:   rec.GetString("contact_email"),
		ContactPhone:   rec.GetString("contact_phone"),
		Address:        rec.GetString("address"),
		BrandColor:     rec.GetString("brand_color"),
		SecondaryColor: rec.GetString("secondary_color"),
		TaxRate:        rec.GetFloat("tax_rate"),
	}
	if encoded := rec.GetString("logo_data"); encoded != "" {
		logo, err := decodeLogoData(encoded)
		if err != nil {
			logging.Default().Warn("catalog: ignoring logo", "business", rec.Id, "error", err.Error())
		} else {
			profile.Logo = logo
		}
	}
	return profile
}

func serviceFromRecord(rec *core.Record) Service {
	model := PricingModel(rec.GetString("pricing_model"))
	if !model.Valid() {
		model = PricingFlat
	}
	return Service{
		ID:           rec.Id,
		BusinessID:   rec.GetString("business"),
		Name:         rec.GetString("name"),
		Description:  rec.GetString("description"),
		BasePrice:    rec.GetFloat("base_price"),
		MaxPrice:     rec.GetFloat("max_price"),
		PricingModel: model,
		PriceUnit:    rec.GetString("price_unit"),
		Active:       rec.GetBool("active"),
		SortOrder:    rec.GetInt("sort_order"),
	}
}

// decodeLogoData accepts raw base64 or a base64 data URI.
func decodeLogoData(s string) ([]byte, error) {
	if strings.HasPrefix(s, "data:") {
		idx := strings.Index(s, ",")
		if idx < 0 {
			return nil, errors.New("malformed data URI")
		}
		s = s[idx+1:]
	}
	return base64.StdEncoding.DecodeString(strings.TrimSpace(s))
}
