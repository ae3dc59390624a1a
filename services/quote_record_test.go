package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"servicequote/services"
	"servicequote/testhelpers"
)

var quoteTime = time.Date(2026, time.March, 5, 14, 30, 0, 0, time.UTC)

func sampleSelection() services.Selection {
	std := services.Service{
		ID: "std", Name: "Standard Cleaning", Description: "Basic cleaning",
		BasePrice: 120, PricingModel: services.PricingFlat, PriceUnit: "job", Active: true,
	}
	deep := services.Service{
		ID: "deep", Name: "Deep Cleaning", BasePrice: 0.15,
		PricingModel: services.PricingFlat, PriceUnit: "sqft", Active: true,
	}
	return services.Selection{
		{Service: std, AddOns: []services.AddOn{{ID: "a1", ServiceID: "std", Name: "Inside Fridge", Price: 25}}},
		{Service: deep, Quantity: 1000},
	}
}

func TestNewQuote_Snapshot(t *testing.T) {
	sel := sampleSelection()
	totals := services.ComputeTotals(sel, 10)

	q, err := services.NewQuote(services.BusinessProfile{ID: "biz"}, sel, totals,
		services.ClientInfo{Name: " Jane ", Email: "jane@example.com"}, "Q2603-0001", quoteTime)
	require.NoError(t, err)

	assert.Equal(t, services.QuoteStatusPending, q.Status)
	assert.Equal(t, "Jane", q.Client.Name)
	require.Len(t, q.Items, 2)
	assert.Equal(t, "Standard Cleaning", q.Items[0].ServiceName)
	assert.InDelta(t, 120, q.Items[0].LinePrice, 1e-9)
	assert.Equal(t, []services.AddOnSnapshot{{Name: "Inside Fridge", Price: 25}}, q.Items[0].AddOns)
	assert.InDelta(t, 1000, q.Items[1].Quantity, 1e-9)
	assert.InDelta(t, 150, q.Items[1].LinePrice, 1e-9)
	assert.InDelta(t, 295, q.Subtotal, 1e-9)
	assert.InDelta(t, 324.5, q.Total, 1e-9)
}

func TestNewQuote_RequiresValidEmail(t *testing.T) {
	sel := sampleSelection()
	totals := services.ComputeTotals(sel, 0)

	for _, email := range []string{"", "not-an-email"} {
		_, err := services.NewQuote(services.BusinessProfile{ID: "biz"}, sel, totals,
			services.ClientInfo{Name: "Jane", Email: email}, "Q2603-0001", quoteTime)
		var verrs validation.Errors
		require.True(t, errors.As(err, &verrs), "email %q: expected validation errors, got %v", email, err)
		assert.Contains(t, verrs, "email")
	}
}

func TestNewQuote_RequiresSelection(t *testing.T) {
	_, err := services.NewQuote(services.BusinessProfile{ID: "biz"}, nil, services.PriceBreakdown{},
		services.ClientInfo{Email: "jane@example.com"}, "Q2603-0001", quoteTime)
	assert.ErrorIs(t, err, services.ErrInvalidSelection)
}

func TestSaveAndLoadQuote(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	biz := testhelpers.CreateTestBusiness(t, app, "Sparkle Co", "#336699")

	sel := sampleSelection()
	q, err := services.NewQuote(services.BusinessProfile{ID: biz.Id}, sel, services.ComputeTotals(sel, 8.5),
		services.ClientInfo{Name: "Jane", Email: "jane@example.com", Phone: "555"}, "Q2603-0001", quoteTime)
	require.NoError(t, err)

	rec, err := services.SaveQuote(app, q)
	require.NoError(t, err)

	loaded, err := services.LoadQuote(app, rec.Id)
	require.NoError(t, err)
	assert.Equal(t, rec.Id, loaded.ID)
	assert.Equal(t, "Q2603-0001", loaded.InvoiceNumber)
	assert.Equal(t, q.Client, loaded.Client)
	assert.Equal(t, q.Items, loaded.Items)
	assert.InDelta(t, q.Total, loaded.Total, 1e-9)
	assert.Equal(t, services.QuoteStatusPending, loaded.Status)
	assert.False(t, loaded.Created.IsZero())
}

func TestLoadQuote_NotFound(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	_, err := services.LoadQuote(app, "doesnotexist123")
	assert.ErrorIs(t, err, services.ErrQuoteNotFound)
}

func TestNextStatus(t *testing.T) {
	tests := []struct {
		current, target string
		want            string
		wantErr         bool
	}{
		{"pending", "paid", "paid", false},
		{"pending", "pending", "pending", false},
		{"paid", "paid", "paid", false},
		{"paid", "pending", "paid", true},
		{"", "paid", "", true},
		{"pending", "refunded", "pending", true},
	}
	for _, tt := range tests {
		got, err := services.NextStatus(tt.current, tt.target)
		if tt.wantErr {
			assert.ErrorIs(t, err, services.ErrInvalidStatusTransition, "%s -> %s", tt.current, tt.target)
		} else {
			assert.NoError(t, err, "%s -> %s", tt.current, tt.target)
		}
		assert.Equal(t, tt.want, got)
	}
}

func TestMarkQuotePaid(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	biz := testhelpers.CreateTestBusiness(t, app, "Sparkle Co", "#336699")
	rec := testhelpers.CreateTestQuote(t, app, biz.Id, "Q2603-0001", "pending", 120)

	changed, err := services.MarkQuotePaid(app, rec.Id, quoteTime)
	require.NoError(t, err)
	assert.True(t, changed)

	loaded, err := services.LoadQuote(app, rec.Id)
	require.NoError(t, err)
	assert.Equal(t, services.QuoteStatusPaid, loaded.Status)
	assert.True(t, loaded.PaidAt.Equal(quoteTime))

	changed, err = services.MarkQuotePaid(app, rec.Id, quoteTime.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, changed, "paid stays paid")

	_, err = services.MarkQuotePaid(app, "doesnotexist123", quoteTime)
	assert.ErrorIs(t, err, services.ErrQuoteNotFound)
}

func TestQuoteToInput_RerendersSnapshot(t *testing.T) {
	sel := sampleSelection()
	totals := services.ComputeTotals(sel, 8.5)
	q, err := services.NewQuote(services.BusinessProfile{ID: "biz"}, sel, totals,
		services.ClientInfo{Email: "jane@example.com"}, "Q2603-0007", quoteTime)
	require.NoError(t, err)

	in := services.QuoteToInput(q, services.BusinessProfile{ID: "biz", Name: "Sparkle Co"})
	assert.Equal(t, "Q2603-0007", in.QuoteNumber)
	assert.Equal(t, quoteTime, in.GeneratedAt)
	assert.Equal(t, totals, in.Totals)

	// Recomputing from the rebuilt selection gives the stored numbers.
	recomputed := services.ComputeTotals(in.Selection, q.TaxRate)
	assert.InDelta(t, q.Subtotal, recomputed.Subtotal, 1e-9)
	assert.InDelta(t, q.Total, recomputed.Total, 1e-9)
	require.NoError(t, services.ValidateSelection(in.Selection))

	doc, err := services.RenderQuote(in)
	require.NoError(t, err)
	assert.Equal(t, 1, doc.PageCount())
}

func TestQuoteToInput_KeepsRangePricing(t *testing.T) {
	moveOut := services.Service{
		ID: "move", Name: "Move Out", BasePrice: 300, MaxPrice: 500,
		PricingModel: services.PricingRange, PriceUnit: "job", Active: true,
	}
	sel := services.Selection{{Service: moveOut}}
	q, err := services.NewQuote(services.BusinessProfile{ID: "biz"}, sel, services.ComputeTotals(sel, 0),
		services.ClientInfo{Email: "jane@example.com"}, "Q2603-0008", quoteTime)
	require.NoError(t, err)
	assert.Equal(t, services.PricingRange, q.Items[0].PricingModel)

	layout := services.LayoutQuote(services.QuoteToInput(q, services.BusinessProfile{ID: "biz"}))
	rows := layout.RowsOfKind(services.RowServiceName)
	require.NotEmpty(t, rows)
	assert.Equal(t, "Starting at $300.00", rows[0].Amount)
}

func TestListQuotesAndStats(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	biz := testhelpers.CreateTestBusiness(t, app, "Sparkle Co", "#336699")
	other := testhelpers.CreateTestBusiness(t, app, "Other Co", "#000000")

	testhelpers.CreateTestQuote(t, app, biz.Id, "Q2603-0001", "pending", 100)
	testhelpers.CreateTestQuote(t, app, biz.Id, "Q2603-0002", "pending", 50)
	testhelpers.CreateTestQuote(t, app, biz.Id, "Q2603-0003", "paid", 200)
	testhelpers.CreateTestQuote(t, app, other.Id, "Q2603-0001", "paid", 999)

	all, err := services.ListQuotes(app, biz.Id, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	pending, err := services.ListQuotes(app, biz.Id, services.QuoteStatusPending)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	stats := services.SummarizeQuotes(all)
	assert.Equal(t, services.DashboardStats{PendingCount: 2, PendingTotal: 150, PaidCount: 1, PaidTotal: 200}, stats)
}

func TestSequenceQuoteNumberer(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	biz := testhelpers.CreateTestBusiness(t, app, "Sparkle Co", "#336699")
	other := testhelpers.CreateTestBusiness(t, app, "Other Co", "#000000")
	n := services.SequenceQuoteNumberer{App: app}
	ctx := t.Context()

	first, err := n.Next(ctx, biz.Id, quoteTime)
	require.NoError(t, err)
	assert.Equal(t, "Q2603-0001", first)

	testhelpers.CreateTestQuote(t, app, biz.Id, first, "pending", 10)
	testhelpers.CreateTestQuote(t, app, biz.Id, "Q2602-0009", "pending", 10) // previous month

	second, err := n.Next(ctx, biz.Id, quoteTime)
	require.NoError(t, err)
	assert.Equal(t, "Q2603-0002", second)

	otherFirst, err := n.Next(ctx, other.Id, quoteTime)
	require.NoError(t, err)
	assert.Equal(t, "Q2603-0001", otherFirst)
}

func TestSequenceQuoteNumberer_ReservesBeforeSave(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	n := services.SequenceQuoteNumberer{App: app}
	ctx := t.Context()

	// Two overlapping requests: both are numbered before either quote is stored.
	a, err := n.Next(ctx, services.DemoBusinessID, quoteTime)
	require.NoError(t, err)
	b, err := n.Next(ctx, services.DemoBusinessID, quoteTime)
	require.NoError(t, err)
	assert.Equal(t, "Q2603-0001", a)
	assert.Equal(t, "Q2603-0002", b)
}

func TestSequenceQuoteNumberer_ContinuesAfterStoredQuotes(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	testhelpers.CreateTestQuote(t, app, "biz1", "Q2603-0007", "paid", 10)

	got, err := services.SequenceQuoteNumberer{App: app}.Next(t.Context(), "biz1", quoteTime)
	require.NoError(t, err)
	assert.Equal(t, "Q2603-0008", got)
}

func TestSequenceQuoteNumberer_Exhausted(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	n := services.SequenceQuoteNumberer{App: app}
	_, err := n.Next(t.Context(), "biz1", quoteTime)
	require.NoError(t, err)

	seq, err := app.FindFirstRecordByFilter("quote_sequences", "business = 'biz1'")
	require.NoError(t, err)
	seq.Set("last", 9999)
	require.NoError(t, app.Save(seq))

	_, err = n.Next(t.Context(), "biz1", quoteTime)
	assert.ErrorIs(t, err, services.ErrQuoteNumbersExhausted)
}

func TestSequenceQuoteNumberer_LookupFailure(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	quotes, err := app.FindCollectionByNameOrId("quotes")
	require.NoError(t, err)
	require.NoError(t, app.Delete(quotes))

	got, err := services.SequenceQuoteNumberer{App: app}.Next(t.Context(), "biz1", quoteTime)
	assert.Error(t, err, "a failed lookup must not restart numbering")
	assert.Empty(t, got)
}

type fixedNumberer struct {
	numbers []string
	calls   int
}

func (f *fixedNumberer) Next(_ context.Context, _ string, _ time.Time) (string, error) {
	n := f.numbers[min(f.calls, len(f.numbers)-1)]
	f.calls++
	return n, nil
}

func TestIssueQuote(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	sel := sampleSelection()
	q, err := services.NewQuote(services.BusinessProfile{ID: "biz1"}, sel, services.ComputeTotals(sel, 0),
		services.ClientInfo{Email: "jane@example.com"}, "", quoteTime)
	require.NoError(t, err)

	issued, err := services.IssueQuote(t.Context(), app, services.SequenceQuoteNumberer{App: app}, q)
	require.NoError(t, err)
	assert.NotEmpty(t, issued.ID)
	assert.Equal(t, "Q2603-0001", issued.InvoiceNumber)

	// A taken number is retried once with the next one.
	retry := &fixedNumberer{numbers: []string{"Q2603-0001", "Q2603-0005"}}
	issued, err = services.IssueQuote(t.Context(), app, retry, q)
	require.NoError(t, err)
	assert.Equal(t, "Q2603-0005", issued.InvoiceNumber)
	assert.Equal(t, 2, retry.calls)

	stuck := &fixedNumberer{numbers: []string{"Q2603-0001"}}
	_, err = services.IssueQuote(t.Context(), app, stuck, q)
	assert.Error(t, err)
	assert.Equal(t, 2, stuck.calls)

	stored, err := services.ListQuotes(app, "biz1", "")
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}
