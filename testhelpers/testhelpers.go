// Package testhelpers provides utilities for testing PocketBase-based applications.
package testhelpers

import (
	"strings"
	"testing"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"

	"servicequote/collections"
)

// NewTestApp creates a PocketBase instance backed by a temporary directory.
// It bootstraps the app and runs collections.Setup to create all tables.
// The temporary directory is cleaned up automatically when the test finishes.
func NewTestApp(t *testing.T) *pocketbase.PocketBase {
	t.Helper()

	tmpDir := t.TempDir()
	app := pocketbase.NewWithConfig(pocketbase.Config{
		DefaultDataDir: tmpDir,
	})

	if err := app.Bootstrap(); err != nil {
		t.Fatalf("failed to bootstrap test app: %v", err)
	}

	collections.Setup(app)

	return app
}

// AssertHTMLContains checks that body contains every fragment.
func AssertHTMLContains(t *testing.T, body string, fragments ...string) {
	t.Helper()
	for _, frag := range fragments {
		if !strings.Contains(body, frag) {
			t.Errorf("expected body to contain %q, body starts with:\n%s", frag, truncate(body, 500))
		}
	}
}

// CreateTestBusiness creates a business record with a contact email and phone.
func CreateTestBusiness(t *testing.T, app *pocketbase.PocketBase, name, brandColor string) *core.Record {
	t.Helper()

	col, err := app.FindCollectionByNameOrId("businesses")
	if err != nil {
		t.Fatalf("failed to find businesses collection: %v", err)
	}

	record := core.NewRecord(col)
	record.Set("name", name)
	record.Set("contact_email", "hello@example.com")
	record.Set("contact_phone", "(555) 000-1111")
	record.Set("brand_color", brandColor)

	if err := app.Save(record); err != nil {
		t.Fatalf("failed to save test business: %v", err)
	}

	return record
}

// CreateTestService creates an active service for a business. Pass priceUnit
// "job" for flat per-job pricing.
func CreateTestService(t *testing.T, app *pocketbase.PocketBase, businessID, name string, basePrice float64, priceUnit string) *core.Record {
	t.Helper()

	col, err := app.FindCollectionByNameOrId("services")
	if err != nil {
		t.Fatalf("failed to find services collection: %v", err)
	}

	model := "flat"
	if priceUnit == "hour" {
		model = "hourly"
	}

	record := core.NewRecord(col)
	record.Set("business", businessID)
	record.Set("name", name)
	record.Set("description", name+" description")
	record.Set("base_price", basePrice)
	record.Set("pricing_model", model)
	record.Set("price_unit", priceUnit)
	record.Set("active", true)

	if err := app.Save(record); err != nil {
		t.Fatalf("failed to save test service: %v", err)
	}

	return record
}

// CreateTestAddOn creates an add-on attached to a service.
func CreateTestAddOn(t *testing.T, app *pocketbase.PocketBase, serviceID, name string, price float64) *core.Record {
	t.Helper()

	col, err := app.FindCollectionByNameOrId("addons")
	if err != nil {
		t.Fatalf("failed to find addons collection: %v", err)
	}

	record := core.NewRecord(col)
	record.Set("service", serviceID)
	record.Set("name", name)
	record.Set("price", price)

	if err := app.Save(record); err != nil {
		t.Fatalf("failed to save test add-on: %v", err)
	}

	return record
}

// CreateTestQuote creates a quote record with a single flat line item.
func CreateTestQuote(t *testing.T, app *pocketbase.PocketBase, businessID, invoiceNumber, status string, total float64) *core.Record {
	t.Helper()

	col, err := app.FindCollectionByNameOrId("quotes")
	if err != nil {
		t.Fatalf("failed to find quotes collection: %v", err)
	}

	record := core.NewRecord(col)
	record.Set("business", businessID)
	record.Set("invoice_number", invoiceNumber)
	record.Set("client_name", "Test Client")
	record.Set("client_email", "client@example.com")
	record.Set("items", []map[string]any{
		{"serviceName": "Standard Cleaning", "unit": "job", "linePrice": total},
	})
	record.Set("subtotal", total)
	record.Set("total", total)
	record.Set("status", status)

	if err := app.Save(record); err != nil {
		t.Fatalf("failed to save test quote: %v", err)
	}

	return record
}

// CreateTestUser creates a user in the default auth collection.
func CreateTestUser(t *testing.T, app *pocketbase.PocketBase, email, password string) *core.Record {
	t.Helper()

	col, err := app.FindCollectionByNameOrId("users")
	if err != nil {
		t.Fatalf("failed to find users collection: %v", err)
	}

	record := core.NewRecord(col)
	record.SetEmail(email)
	record.SetPassword(password)

	if err := app.Save(record); err != nil {
		t.Fatalf("failed to save test user: %v", err)
	}

	return record
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
