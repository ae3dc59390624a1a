package collections

import (
	"fmt"

	"servicequote/brandcolor"
	"servicequote/logging"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
)

type addOnDef struct {
	name  string
	price float64
}

type serviceDef struct {
	name         string
	description  string
	basePrice    float64
	pricingModel string
	priceUnit    string
	addOns       []addOnDef
}

// DemoBusinessName is the name of the seeded business.
const DemoBusinessName = "Pro Cleaning Services"

var demoServiceDefs = []serviceDef{
	{
		name: "Standard Cleaning", description: "Basic cleaning for homes and apartments",
		basePrice: 120, pricingModel: "flat", priceUnit: "job",
		addOns: []addOnDef{{"Inside Fridge", 25}, {"Inside Oven", 30}, {"Window Cleaning", 8}},
	},
	{
		name: "Deep Cleaning", description: "Thorough cleaning including baseboards, vents, and detailed work",
		basePrice: 0.15, pricingModel: "flat", priceUnit: "sqft",
		addOns: []addOnDef{{"Carpet Shampooing", 75}, {"Tile & Grout Scrub", 60}},
	},
	{
		name: "Move-In/Move-Out", description: "Complete cleaning for property transitions",
		basePrice: 250, pricingModel: "flat", priceUnit: "job",
		addOns: []addOnDef{{"Garage Cleaning", 50}, {"Exterior Windows", 100}},
	},
	{
		name: "Hourly Labor", description: "General labor at hourly rate",
		basePrice: 45, pricingModel: "hourly", priceUnit: "hour",
	},
	{
		name: "TV Mounting", description: "Professional TV installation",
		basePrice: 100, pricingModel: "flat", priceUnit: "tv",
		addOns: []addOnDef{{"Cord Concealment", 50}, {"Sound Bar Install", 35}},
	},
}

// Seed inserts a demo business with its services and add-ons. It is safe to
// call on every startup because it returns early if any business exists.
func Seed(app *pocketbase.PocketBase) error {
	businessesCol, err := app.FindCollectionByNameOrId("businesses")
	if err != nil {
		return fmt.Errorf("seed: could not find businesses collection: %w", err)
	}
	existing, err := app.FindAllRecords(businessesCol)
	if err != nil {
		return fmt.Errorf("seed: could not query businesses: %w", err)
	}
	if len(existing) > 0 {
		return nil // already seeded
	}

	logging.Default().Info("seed: businesses collection is empty, inserting demo catalog")

	servicesCol, err := app.FindCollectionByNameOrId("services")
	if err != nil {
		return fmt.Errorf("seed: could not find services collection: %w", err)
	}
	addOnsCol, err := app.FindCollectionByNameOrId("addons")
	if err != nil {
		return fmt.Errorf("seed: could not find addons collection: %w", err)
	}

	biz := core.NewRecord(businessesCol)
	biz.Set("name", DemoBusinessName)
	biz.Set("contact_email", "contact@procleaning.demo")
	biz.Set("contact_phone", "(555) 123-4567")
	biz.Set("address", "123 Main St, Miami, FL 33101")
	biz.Set("brand_color", brandcolor.Default)
	biz.Set("tax_rate", 0)
	if err := app.Save(biz); err != nil {
		return fmt.Errorf("seed: could not save business: %w", err)
	}

	for i, d := range demoServiceDefs {
		svc := core.NewRecord(servicesCol)
		svc.Set("business", biz.Id)
		svc.Set("name", d.name)
		svc.Set("description", d.description)
		svc.Set("base_price", d.basePrice)
		svc.Set("pricing_model", d.pricingModel)
		svc.Set("price_unit", d.priceUnit)
		svc.Set("active", true)
		svc.Set("sort_order", i+1)
		if err := app.Save(svc); err != nil {
			return fmt.Errorf("seed: could not save service %q: %w", d.name, err)
		}

		for _, a := range d.addOns {
			ao := core.NewRecord(addOnsCol)
			ao.Set("service", svc.Id)
			ao.Set("name", a.name)
			ao.Set("price", a.price)
			if err := app.Save(ao); err != nil {
				return fmt.Errorf("seed: could not save add-on %q: %w", a.name, err)
			}
		}
	}

	logging.Default().Info("seed: demo catalog inserted", "business", biz.Id, "services", len(demoServiceDefs))
	return nil
}
