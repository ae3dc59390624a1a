package services

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"servicequote/testhelpers"
)

func TestDemoCatalog(t *testing.T) {
	ctx := context.Background()
	cat := DemoCatalog{}

	biz, err := cat.Business(ctx, DemoBusinessID)
	require.NoError(t, err)
	assert.Equal(t, "Pro Cleaning Services", biz.Name)

	services, err := cat.ActiveServices(ctx, DemoBusinessID)
	require.NoError(t, err)
	require.Len(t, services, 5)
	assert.Equal(t, "svc-1", services[0].ID)
	assert.Len(t, services[0].AddOns, 3)

	// Callers get copies.
	services[0].AddOns[0].Price = 9999
	again, _ := cat.ActiveServices(ctx, DemoBusinessID)
	assert.InDelta(t, 25, again[0].AddOns[0].Price, 1e-9)

	_, err = cat.Business(ctx, "nope")
	assert.True(t, errors.Is(err, ErrBusinessNotFound))
	_, err = cat.ActiveServices(ctx, "nope")
	assert.True(t, errors.Is(err, ErrBusinessNotFound))
}

func TestRecordCatalog(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	ctx := context.Background()

	biz := testhelpers.CreateTestBusiness(t, app, "Sparkle Co", "#336699")
	biz.Set("tax_rate", 8.5)
	biz.Set("logo_data", "data:image/jpeg;base64,"+base64.StdEncoding.EncodeToString(testJPEG(t, 20, 10)))
	require.NoError(t, app.Save(biz))

	std := testhelpers.CreateTestService(t, app, biz.Id, "Standard", 120, "job")
	std.Set("sort_order", 2)
	require.NoError(t, app.Save(std))
	hourly := testhelpers.CreateTestService(t, app, biz.Id, "Labor", 45, "hour")
	hourly.Set("sort_order", 1)
	require.NoError(t, app.Save(hourly))
	inactive := testhelpers.CreateTestService(t, app, biz.Id, "Retired", 10, "job")
	inactive.Set("active", false)
	require.NoError(t, app.Save(inactive))

	testhelpers.CreateTestAddOn(t, app, std.Id, "Inside Oven", 30)
	testhelpers.CreateTestAddOn(t, app, std.Id, "Fridge", 25)

	cat := RecordCatalog{App: app}

	profile, err := cat.Business(ctx, biz.Id)
	require.NoError(t, err)
	assert.Equal(t, "Sparkle Co", profile.Name)
	assert.Equal(t, "#336699", profile.BrandColor)
	assert.InDelta(t, 8.5, profile.TaxRate, 1e-9)
	assert.NotEmpty(t, profile.Logo)

	services, err := cat.ActiveServices(ctx, biz.Id)
	require.NoError(t, err)
	require.Len(t, services, 2)
	assert.Equal(t, "Labor", services[0].Name)
	assert.Equal(t, PricingHourly, services[0].PricingModel)
	assert.True(t, services[0].RequiresQuantity())
	assert.Equal(t, "Standard", services[1].Name)
	require.Len(t, services[1].AddOns, 2)
	assert.Equal(t, "Fridge", services[1].AddOns[0].Name)
	assert.Equal(t, std.Id, services[1].AddOns[0].ServiceID)

	_, err = cat.Business(ctx, "missing00000000")
	assert.ErrorIs(t, err, ErrBusinessNotFound)
}

func TestRecordCatalog_AddOnLookupFailure(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	biz := testhelpers.CreateTestBusiness(t, app, "Sparkle Co", "#336699")
	testhelpers.CreateTestService(t, app, biz.Id, "Standard", 120, "job")

	addons, err := app.FindCollectionByNameOrId("addons")
	require.NoError(t, err)
	require.NoError(t, app.Delete(addons))

	services, err := RecordCatalog{App: app}.ActiveServices(context.Background(), biz.Id)
	assert.Error(t, err, "services must not be offered without their add-ons")
	assert.Nil(t, services)
}

func TestRecordCatalog_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := RecordCatalog{}.ActiveServices(ctx, "x")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDecodeLogoData(t *testing.T) {
	raw := []byte{1, 2, 3}
	enc := base64.StdEncoding.EncodeToString(raw)

	got, err := decodeLogoData(enc)
	require.NoError(t, err)
	assert.Equal(t, raw, got)

	got, err = decodeLogoData("data:image/png;base64," + enc)
	require.NoError(t, err)
	assert.Equal(t, raw, got)

	_, err = decodeLogoData("data:image/png;base64")
	assert.Error(t, err)
}
