package services

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rowTexts(rows []LayoutRow) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Text
	}
	return out
}

func manyServices(n int) Selection {
	var sel Selection
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("svc-%02d", i)
		svc := Service{
			ID:           id,
			Name:         fmt.Sprintf("Service %02d", i),
			Description:  strings.Repeat("Detailed cleaning of every surface in the room. ", 3),
			BasePrice:    50 + float64(i),
			PricingModel: PricingFlat,
			PriceUnit:    "job",
			Active:       true,
		}
		sel = append(sel, SelectedService{
			Service: svc,
			AddOns: []AddOn{
				{ID: id + "-a", ServiceID: id, Name: "Extra A", Price: 10},
				{ID: id + "-b", ServiceID: id, Name: "Extra B", Price: 5},
			},
		})
	}
	return sel
}

func TestLayoutQuote_SectionOrder(t *testing.T) {
	layout := LayoutQuote(demoInput(demoSelection("svc-1")))
	require.Equal(t, 1, layout.PageCount())

	var kinds []RowKind
	for _, r := range layout.Rows() {
		if r.Kind == RowSpacer || r.Kind == RowDivider || r.Kind == RowTotalsRule {
			continue
		}
		if len(kinds) == 0 || kinds[len(kinds)-1] != r.Kind {
			kinds = append(kinds, r.Kind)
		}
	}
	assert.Equal(t, []RowKind{
		RowBusinessName, RowDocumentLabel, RowMeta, RowClientHeading, RowClientField,
		RowSectionTitle, RowTableHeader, RowServiceName, RowDescription,
		RowSubtotal, RowTotal, RowContact, RowTerms,
	}, kinds)
}

func TestLayoutQuote_HeaderAndMetadata(t *testing.T) {
	layout := LayoutQuote(demoInput(demoSelection("svc-1")))

	assert.Equal(t, []string{"Pro Cleaning Services"}, rowTexts(layout.RowsOfKind(RowBusinessName)))
	assert.Equal(t, []string{"QUOTE"}, rowTexts(layout.RowsOfKind(RowDocumentLabel)))
	assert.Equal(t, []string{
		"Date: March 5, 2026",
		"Quote #: Q2603-0001",
		"Valid until: April 4, 2026",
	}, rowTexts(layout.RowsOfKind(RowMeta)))
}

func TestLayoutQuote_FallbackBusinessName(t *testing.T) {
	in := demoInput(demoSelection("svc-1"))
	in.Business.Name = "  "
	layout := LayoutQuote(in)
	assert.Equal(t, []string{"Business Name"}, rowTexts(layout.RowsOfKind(RowBusinessName)))
}

func TestLayoutQuote_ClientBlockSkipsMissingFields(t *testing.T) {
	in := demoInput(demoSelection("svc-1"))
	in.Client = ClientInfo{Email: "jane@example.com"}
	layout := LayoutQuote(in)

	assert.Len(t, layout.RowsOfKind(RowClientHeading), 1)
	assert.Equal(t, []string{"jane@example.com"}, rowTexts(layout.RowsOfKind(RowClientField)))
}

func TestLayoutQuote_EmptyClientKeepsHeading(t *testing.T) {
	in := demoInput(demoSelection("svc-1"))
	in.Client = ClientInfo{Name: "  "}
	layout := LayoutQuote(in)
	assert.Equal(t, []string{"Prepared For:"}, rowTexts(layout.RowsOfKind(RowClientHeading)))
	assert.Empty(t, layout.RowsOfKind(RowClientField))
}

func TestLayoutQuote_RangePricePrefix(t *testing.T) {
	sel := demoSelection("svc-1", "svc-3")
	sel[1].Service.PricingModel = PricingRange
	sel[1].Service.MaxPrice = 400

	rows := LayoutQuote(demoInput(sel)).RowsOfKind(RowServiceName)
	require.Len(t, rows, 2)
	assert.Equal(t, "$120.00", rows[0].Amount)
	assert.Equal(t, "Starting at $250.00", rows[1].Amount)
}

func TestLayoutQuote_LineItems(t *testing.T) {
	sel := demoSelection("svc-1", "svc-2")
	sel[0].AddOns = sel[0].Service.AddOns[:2]
	sel[1].Quantity = 1000
	in := demoInput(sel)
	in.Totals = ComputeTotals(sel, 0)
	layout := LayoutQuote(in)

	names := layout.RowsOfKind(RowServiceName)
	require.Len(t, names, 2)
	assert.Equal(t, "Standard Cleaning", names[0].Text)
	assert.Equal(t, "$120.00", names[0].Amount)
	assert.Equal(t, "$150.00", names[1].Amount)
	assert.True(t, names[0].Shaded, "first item is shaded")
	assert.False(t, names[1].Shaded, "second item is not shaded")

	addOns := layout.RowsOfKind(RowAddOn)
	require.Len(t, addOns, 2)
	assert.Equal(t, "+ Inside Fridge", addOns[0].Text)
	assert.Equal(t, "$25.00", addOns[0].Amount)

	qty := layout.RowsOfKind(RowQuantity)
	require.Len(t, qty, 1)
	assert.Equal(t, "1000 sqft x $0.15", qty[0].Text)

	assert.Equal(t, []string{"$325.00"}, amounts(layout.RowsOfKind(RowTotal)))
}

func amounts(rows []LayoutRow) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Amount
	}
	return out
}

func TestLayoutQuote_TaxRowOnlyWithTax(t *testing.T) {
	sel := demoSelection("svc-1")

	in := demoInput(sel)
	in.Totals = ComputeTotals(sel, 0)
	assert.Empty(t, LayoutQuote(in).RowsOfKind(RowTax))

	in.Totals = ComputeTotals(sel, 8.5)
	tax := LayoutQuote(in).RowsOfKind(RowTax)
	require.Len(t, tax, 1)
	assert.Equal(t, "Tax (8.5%):", tax[0].Text)
	assert.Equal(t, "$10.20", tax[0].Amount)
}

func TestLayoutQuote_DescriptionWraps(t *testing.T) {
	sel := demoSelection("svc-1")
	sel[0].Service.Description = strings.Repeat("Baseboards, vents, blinds and light fixtures. ", 8)
	layout := LayoutQuote(demoInput(sel))

	lines := layout.RowsOfKind(RowDescription)
	assert.Greater(t, len(lines), 1)

	m := newTextMeasurer()
	m.pdf.SetFont("Helvetica", "", descriptionFontSize)
	for _, l := range lines {
		assert.LessOrEqual(t, m.pdf.GetStringWidth(l.Text), descriptionWidthMM)
	}
}

func TestLayoutQuote_ContactLine(t *testing.T) {
	in := demoInput(demoSelection("svc-1"))
	assert.Equal(t, []string{"contact@procleaning.demo  |  (555) 123-4567"}, rowTexts(LayoutQuote(in).RowsOfKind(RowContact)))

	in.Business.ContactPhone = ""
	assert.Equal(t, []string{"contact@procleaning.demo"}, rowTexts(LayoutQuote(in).RowsOfKind(RowContact)))

	in.Business.ContactEmail = ""
	assert.Empty(t, LayoutQuote(in).RowsOfKind(RowContact))

	terms := rowTexts(LayoutQuote(in).RowsOfKind(RowTerms))
	assert.Equal(t, []string{
		"This quote is valid for 30 days from the date of issue.",
		"Please contact us to accept this quote or if you have any questions.",
	}, terms)
}

func TestLayoutQuote_ValidityDays(t *testing.T) {
	in := demoInput(demoSelection("svc-1"))
	in.ValidityDays = 14

	layout := LayoutQuote(in)
	assert.Contains(t, rowTexts(layout.RowsOfKind(RowMeta)), "Valid until: March 19, 2026")
	assert.Equal(t, "This quote is valid for 14 days from the date of issue.", rowTexts(layout.RowsOfKind(RowTerms))[0])
}

func TestLayoutQuote_FooterAnchoredNearBottom(t *testing.T) {
	layout := LayoutQuote(demoInput(demoSelection("svc-1")))
	last := layout.Pages[layout.PageCount()-1]

	var footerTop float64
	for _, r := range last.Rows {
		if r.Kind == RowDivider {
			footerTop = r.Y // last divider on the page belongs to the footer
		}
	}
	assert.InDelta(t, footerAnchorMM, footerTop, 1e-9)
}

func TestLayoutQuote_Paginates(t *testing.T) {
	in := demoInput(manyServices(30))
	in.Totals = ComputeTotals(in.Selection, 5)
	layout := LayoutQuote(in)

	require.Greater(t, layout.PageCount(), 1)

	groupPage := map[int]int{}
	for pi, p := range layout.Pages {
		for _, r := range p.Rows {
			assert.Equal(t, pi, r.Page)
			if prev, ok := groupPage[r.Group]; ok {
				assert.Equal(t, prev, r.Page, "group %d split across pages", r.Group)
			}
			groupPage[r.Group] = r.Page

			if r.Kind != RowSpacer && r.Kind != RowDivider && r.Kind != RowContact && r.Kind != RowTerms {
				assert.LessOrEqual(t, r.Y+r.Height, bottomThresholdMM+1e-9, "%s row crosses the bottom threshold", r.Kind)
			}
			assert.LessOrEqual(t, r.Y+r.Height, footerLimitMM+1e-9)
		}
	}

	// The table header is not repeated on later pages.
	assert.Len(t, layout.RowsOfKind(RowTableHeader), 1)
	// Each continuation page starts at the top margin.
	for _, p := range layout.Pages[1:] {
		assert.InDelta(t, pageMarginMM, p.Rows[0].Y, 1e-9)
	}
}

func TestLayoutQuote_OversizeGroupSplitsAtRowBoundaries(t *testing.T) {
	sel := demoSelection("svc-1")
	sel[0].Service.Description = strings.Repeat("A very long description line that keeps going. ", 200)
	layout := LayoutQuote(demoInput(sel))

	require.Greater(t, layout.PageCount(), 1)
	for _, r := range layout.RowsOfKind(RowDescription) {
		assert.LessOrEqual(t, r.Y+r.Height, bottomThresholdMM+1e-9)
	}
}

func TestLayoutQuote_Deterministic(t *testing.T) {
	in := demoInput(manyServices(12))
	assert.Equal(t, LayoutQuote(in), LayoutQuote(in))
}

func TestLayoutQuote_BadColourFallsBack(t *testing.T) {
	in := demoInput(demoSelection("svc-1"))
	in.Business.BrandColor = "notacolor"
	assert.Equal(t, DefaultBrandColor, LayoutQuote(in).BrandColor)

	in.Business.BrandColor = "#123456"
	assert.Equal(t, RGB{0x12, 0x34, 0x56}, LayoutQuote(in).BrandColor)
}

func TestRowKindString(t *testing.T) {
	assert.Equal(t, "service_name", RowServiceName.String())
	assert.Equal(t, "RowKind(99)", RowKind(99).String())
}
