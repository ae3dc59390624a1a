package collections

import (
	"servicequote/logging"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
)

// QuoteStatuses are the allowed values of quotes.status, in transition order.
var QuoteStatuses = []string{"pending", "paid"}

// PricingModels are the allowed values of services.pricing_model.
var PricingModels = []string{"flat", "hourly", "range", "custom"}

const (
	maxLogoDataLength  = 2 << 20
	maxQuoteItemsBytes = 1 << 20
)

// Setup programmatically creates/ensures the businesses, services, addons and
// quotes collections exist.
func Setup(app *pocketbase.PocketBase) {
	businesses := ensureCollection(app, "businesses", func(c *core.Collection) {
		if users, err := app.FindCollectionByNameOrId("users"); err == nil {
			c.Fields.Add(&core.RelationField{
				Name:         "owner",
				Required:     false,
				CollectionId: users.Id,
				MaxSelect:    1,
			})
		}
		c.Fields.Add(&core.TextField{Name: "name", Required: true})
		c.Fields.Add(&core.EmailField{Name: "contact_email", Required: false})
		c.Fields.Add(&core.TextField{Name: "contact_phone", Required: false})
		c.Fields.Add(&core.TextField{Name: "address", Required: false})
		c.Fields.Add(&core.TextField{Name: "brand_color", Required: false})
		c.Fields.Add(&core.TextField{Name: "secondary_color", Required: false})
		c.Fields.Add(&core.TextField{Name: "logo_data", Required: false, Max: maxLogoDataLength})
		c.Fields.Add(&core.NumberField{Name: "tax_rate", Required: false})
		c.Fields.Add(&core.AutodateField{Name: "created", OnCreate: true})
		c.Fields.Add(&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true})
	})

	services := ensureCollection(app, "services", func(c *core.Collection) {
		c.Fields.Add(&core.RelationField{
			Name:          "business",
			Required:      true,
			CollectionId:  businesses.Id,
			CascadeDelete: true,
			MaxSelect:     1,
		})
		c.Fields.Add(&core.TextField{Name: "name", Required: true})
		c.Fields.Add(&core.TextField{Name: "description", Required: false})
		// Zero is a valid price, so neither price field is required.
		c.Fields.Add(&core.NumberField{Name: "base_price", Required: false})
		c.Fields.Add(&core.NumberField{Name: "max_price", Required: false})
		c.Fields.Add(&core.SelectField{
			Name:      "pricing_model",
			Required:  true,
			Values:    PricingModels,
			MaxSelect: 1,
		})
		c.Fields.Add(&core.TextField{Name: "price_unit", Required: false})
		c.Fields.Add(&core.BoolField{Name: "active"})
		c.Fields.Add(&core.NumberField{Name: "sort_order", Required: false})
		c.Fields.Add(&core.AutodateField{Name: "created", OnCreate: true})
		c.Fields.Add(&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true})
	})

	ensureCollection(app, "addons", func(c *core.Collection) {
		c.Fields.Add(&core.RelationField{
			Name:          "service",
			Required:      true,
			CollectionId:  services.Id,
			CascadeDelete: true,
			MaxSelect:     1,
		})
		c.Fields.Add(&core.TextField{Name: "name", Required: true})
		c.Fields.Add(&core.NumberField{Name: "price", Required: false})
		c.Fields.Add(&core.TextField{Name: "description", Required: false})
	})

	quotes := ensureCollection(app, "quotes", func(c *core.Collection) {
		// The business is the catalog's business ID, which is not a record
		// when quotes are priced from the demo catalog.
		c.Fields.Add(&core.TextField{Name: "business", Required: true})
		c.Fields.Add(&core.TextField{Name: "invoice_number", Required: true})
		c.Fields.Add(&core.TextField{Name: "client_name", Required: false})
		c.Fields.Add(&core.EmailField{Name: "client_email", Required: true})
		c.Fields.Add(&core.TextField{Name: "client_phone", Required: false})
		c.Fields.Add(&core.JSONField{Name: "items", MaxSize: maxQuoteItemsBytes})
		c.Fields.Add(&core.NumberField{Name: "tax_rate", Required: false})
		c.Fields.Add(&core.NumberField{Name: "subtotal", Required: false})
		c.Fields.Add(&core.NumberField{Name: "tax", Required: false})
		c.Fields.Add(&core.NumberField{Name: "total", Required: false})
		c.Fields.Add(&core.SelectField{
			Name:      "status",
			Required:  true,
			Values:    QuoteStatuses,
			MaxSelect: 1,
		})
		c.Fields.Add(&core.DateField{Name: "paid_at", Required: false})
		c.Fields.Add(&core.AutodateField{Name: "created", OnCreate: true})
		c.Fields.Add(&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true})
	})
	ensureUniqueIndex(app, quotes, "idx_quotes_business_number", "business, invoice_number")

	sequences := ensureCollection(app, "quote_sequences", func(c *core.Collection) {
		c.Fields.Add(&core.TextField{Name: "business", Required: true})
		c.Fields.Add(&core.TextField{Name: "prefix", Required: true})
		c.Fields.Add(&core.NumberField{Name: "last", Required: false, OnlyInt: true})
	})
	ensureUniqueIndex(app, sequences, "idx_quote_sequences_business_prefix", "business, prefix")
}

// ensureUniqueIndex adds a unique index to a collection that lacks it. A
// failure is logged and startup continues, since existing duplicate rows
// block the index until they are cleaned up.
func ensureUniqueIndex(app *pocketbase.PocketBase, c *core.Collection, name, columns string) {
	if c.GetIndex(name) != "" {
		return
	}
	c.AddIndex(name, true, columns, "")
	if err := app.Save(c); err != nil {
		logging.Default().Error(err, "collections: failed to add index", "collection", c.Name, "index", name)
		c.RemoveIndex(name)
		return
	}
	logging.Default().Info("collections: added index", "collection", c.Name, "index", name)
}

// ensureCollection checks if a collection already exists by name. If it does,
// the existing collection is returned. Otherwise a new base collection is
// created, the addFields callback is invoked to populate its fields, and the
// collection is saved.
func ensureCollection(app *pocketbase.PocketBase, name string, addFields func(*core.Collection)) *core.Collection {
	log := logging.Default()

	existing, err := app.FindCollectionByNameOrId(name)
	if err == nil && existing != nil {
		log.Debug("collections: already exists, skipping creation", "collection", name)
		return existing
	}

	collection := core.NewBaseCollection(name)
	addFields(collection)

	if err := app.Save(collection); err != nil {
		log.Fatal(err, "collections: failed to create", "collection", name)
	}

	log.Info("collections: created", "collection", name, "id", collection.Id)
	return collection
}
