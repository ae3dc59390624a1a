package services

import (
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/phpdave11/gofpdf"
)

// Page geometry in millimetres (A4 portrait).
const (
	pageWidthMM        = 210.0
	pageHeightMM       = 297.0
	pageMarginMM       = 20.0
	contentWidthMM     = pageWidthMM - 2*pageMarginMM
	descriptionWidthMM = contentWidthMM - 40
	serviceNameWidthMM = contentWidthMM * 9 / 12

	// A row group that would cross this line starts a new page.
	bottomThresholdMM = pageHeightMM - 40
	// The footer never starts above this line.
	footerAnchorMM = pageHeightMM - 50
	// The footer must end above this line or it moves to a fresh page.
	footerLimitMM = pageHeightMM - pageMarginMM - 1
)

// Row heights in millimetres.
const (
	businessNameRowMM  = 12.0
	documentLabelRowMM = 10.0
	metaRowMM          = 5.0
	dividerRowMM       = 6.0
	clientHeadingRowMM = 7.0
	clientFieldRowMM   = 5.0
	sectionTitleRowMM  = 8.0
	tableHeaderRowMM   = 8.0
	serviceNameRowMM   = 7.0
	textLineMM         = 4.0
	addOnRowMM         = 5.0
	itemPaddingMM      = 2.0
	subtotalRowMM      = 6.0
	totalRowMM         = 8.0
	contactRowMM       = 6.0
	termsRowMM         = 5.0
	sectionGapMM       = 5.0
)

// Font sizes in points.
const (
	businessNameFontSize  = 24
	documentLabelFontSize = 16
	bodyFontSize          = 10
	descriptionFontSize   = 9
	totalFontSize         = 12
	footerFontSize        = 8
)

// Fixed quote wording.
const (
	fallbackBusinessName = "Business Name"
	documentLabel        = "QUOTE"
	clientHeading        = "Prepared For:"
	servicesHeading      = "Services"
	serviceColumnLabel   = "Service"
	priceColumnLabel     = "Price"
	rangePricePrefix     = "Starting at "
	acceptanceTerms      = "Please contact us to accept this quote or if you have any questions."
)

// RowKind identifies what a layout row draws.
type RowKind int

const (
	RowSpacer RowKind = iota
	RowBusinessName
	RowDocumentLabel
	RowMeta
	RowDivider
	RowClientHeading
	RowClientField
	RowSectionTitle
	RowTableHeader
	RowServiceName
	RowQuantity
	RowDescription
	RowAddOn
	RowTotalsRule
	RowSubtotal
	RowTax
	RowTotal
	RowContact
	RowTerms
)

var rowKindNames = map[RowKind]string{
	RowSpacer:        "spacer",
	RowBusinessName:  "business_name",
	RowDocumentLabel: "document_label",
	RowMeta:          "meta",
	RowDivider:       "divider",
	RowClientHeading: "client_heading",
	RowClientField:   "client_field",
	RowSectionTitle:  "section_title",
	RowTableHeader:   "table_header",
	RowServiceName:   "service_name",
	RowQuantity:      "quantity",
	RowDescription:   "description",
	RowAddOn:         "add_on",
	RowTotalsRule:    "totals_rule",
	RowSubtotal:      "subtotal",
	RowTax:           "tax",
	RowTotal:         "total",
	RowContact:       "contact",
	RowTerms:         "terms",
}

func (k RowKind) String() string {
	if name, ok := rowKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("RowKind(%d)", int(k))
}

// LayoutRow is one horizontal strip of the document.
type LayoutRow struct {
	Kind   RowKind
	Page   int     // zero-based page index
	Y      float64 // top edge in mm from the top of the page
	Height float64
	Text   string // left column
	Amount string // right column, already formatted
	Shaded bool
	Group  int // index of the row group; rows of one group share a page unless the group is taller than a page
}

// LayoutPage holds the rows drawn on one page, top to bottom.
type LayoutPage struct {
	Rows []LayoutRow
}

// QuoteLayout is the fully positioned content of a quote.
type QuoteLayout struct {
	Pages      []LayoutPage
	BrandColor RGB
	HasLogo    bool
}

// PageCount returns the number of pages.
func (l *QuoteLayout) PageCount() int {
	return len(l.Pages)
}

// Rows returns every row in document order.
func (l *QuoteLayout) Rows() []LayoutRow {
	var out []LayoutRow
	for _, p := range l.Pages {
		out = append(out, p.Rows...)
	}
	return out
}

// RowsOfKind returns the rows of one kind in document order.
func (l *QuoteLayout) RowsOfKind(kind RowKind) []LayoutRow {
	var out []LayoutRow
	for _, r := range l.Rows() {
		if r.Kind == kind {
			out = append(out, r)
		}
	}
	return out
}

// rowGroup is a run of rows kept on one page when possible.
type rowGroup struct {
	rows []LayoutRow
}

func (g *rowGroup) add(kind RowKind, height float64, text, amount string) {
	g.rows = append(g.rows, LayoutRow{Kind: kind, Height: height, Text: text, Amount: amount})
}

func (g *rowGroup) height() float64 {
	var h float64
	for _, r := range g.rows {
		h += r.Height
	}
	return h
}

// pager places row groups onto pages.
type pager struct {
	pages  []LayoutPage
	cursor float64
	groups int
}

func newPager() *pager {
	return &pager{pages: []LayoutPage{{}}, cursor: pageMarginMM}
}

func (p *pager) newPage() {
	p.pages = append(p.pages, LayoutPage{})
	p.cursor = pageMarginMM
}

func (p *pager) atTop() bool {
	return p.cursor <= pageMarginMM
}

func (p *pager) emit(r LayoutRow, group int) {
	r.Page = len(p.pages) - 1
	r.Y = p.cursor
	r.Group = group
	p.pages[r.Page].Rows = append(p.pages[r.Page].Rows, r)
	p.cursor += r.Height
}

// place emits a group. If the group would cross the bottom threshold a new
// page starts first. A group taller than a whole page is split at row
// boundaries by the same rule.
func (p *pager) place(g rowGroup) {
	if len(g.rows) == 0 {
		return
	}
	id := p.groups
	p.groups++

	h := g.height()
	if pageMarginMM+h > bottomThresholdMM {
		for _, r := range g.rows {
			if p.cursor+r.Height > bottomThresholdMM && !p.atTop() {
				p.newPage()
			}
			p.emit(r, id)
		}
		return
	}

	if p.cursor+h > bottomThresholdMM && !p.atTop() {
		p.newPage()
	}
	for _, r := range g.rows {
		p.emit(r, id)
	}
}

// placeFooter pins the footer at the anchor line, or at the cursor if the
// content already runs below it.
func (p *pager) placeFooter(g rowGroup) {
	if len(g.rows) == 0 {
		return
	}
	id := p.groups
	p.groups++

	y := math.Max(p.cursor, footerAnchorMM)
	if y+g.height() > footerLimitMM {
		p.newPage()
		y = footerAnchorMM
	}
	if gap := y - p.cursor; gap > 0 {
		p.emit(LayoutRow{Kind: RowSpacer, Height: gap}, id)
	}
	for _, r := range g.rows {
		p.emit(r, id)
	}
}

// textMeasurer wraps text with the same Helvetica metrics the PDF uses.
type textMeasurer struct {
	mu  sync.Mutex
	pdf *gofpdf.Fpdf
}

func newTextMeasurer() *textMeasurer {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Helvetica", "", bodyFontSize)
	return &textMeasurer{pdf: pdf}
}

// wrap splits s into lines no wider than width at the given style and size.
// Explicit newlines are kept as line breaks.
func (m *textMeasurer) wrap(s string, style string, size float64, width float64) []string {
	s = strings.TrimSpace(toLatin1(s))
	if s == "" {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.pdf.SetFont("Helvetica", style, size)

	var lines []string
	for _, line := range m.pdf.SplitText(s, width) {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// toLatin1 replaces characters the core PDF fonts cannot encode.
func toLatin1(s string) string {
	return strings.Map(func(r rune) rune {
		if r > 0xff {
			return '?'
		}
		return r
	}, s)
}

var sharedMeasurer = newTextMeasurer()

// LayoutQuote positions every row of a quote. It is pure: the same input
// always yields the same layout.
func LayoutQuote(in QuoteInput) *QuoteLayout {
	return layoutQuote(in, sharedMeasurer)
}

func layoutQuote(in QuoteInput, m *textMeasurer) *QuoteLayout {
	p := newPager()

	p.place(headerGroup(in))
	p.place(metadataGroup(in))
	p.place(clientGroup(in.Client))

	var title rowGroup
	title.add(RowSectionTitle, sectionTitleRowMM, servicesHeading, "")
	title.add(RowTableHeader, tableHeaderRowMM, serviceColumnLabel, priceColumnLabel)
	p.place(title)

	for i, item := range in.Selection {
		g := serviceGroup(item, m)
		if i%2 == 0 {
			for j := range g.rows {
				g.rows[j].Shaded = true
			}
		}
		p.place(g)
	}

	p.place(totalsGroup(in.Totals))
	p.placeFooter(footerGroup(in.Business, validityDays(in)))

	return &QuoteLayout{
		Pages:      p.pages,
		BrandColor: ParseHexColor(in.Business.BrandColor),
		HasLogo:    len(in.Business.Logo) > 0,
	}
}

func headerGroup(in QuoteInput) rowGroup {
	name := strings.TrimSpace(in.Business.Name)
	if name == "" {
		name = fallbackBusinessName
	}
	var g rowGroup
	g.add(RowBusinessName, businessNameRowMM, name, "")
	g.add(RowDocumentLabel, documentLabelRowMM, documentLabel, "")
	return g
}

func validityDays(in QuoteInput) int {
	if in.ValidityDays <= 0 {
		return DefaultValidityDays
	}
	return in.ValidityDays
}

func validityTerms(days int) string {
	return fmt.Sprintf("This quote is valid for %d days from the date of issue.", days)
}

func metadataGroup(in QuoteInput) rowGroup {
	validity := validityDays(in)
	var g rowGroup
	g.add(RowMeta, metaRowMM, "Date: "+FormatLongDate(in.GeneratedAt), "")
	g.add(RowMeta, metaRowMM, "Quote #: "+in.QuoteNumber, "")
	g.add(RowMeta, metaRowMM, "Valid until: "+FormatLongDate(ExpirationDate(in.GeneratedAt, validity)), "")
	g.add(RowDivider, dividerRowMM, "", "")
	return g
}

func clientGroup(c ClientInfo) rowGroup {
	var g rowGroup
	fields := []string{strings.TrimSpace(c.Name), strings.TrimSpace(c.Email), strings.TrimSpace(c.Phone)}
	g.add(RowClientHeading, clientHeadingRowMM, clientHeading, "")
	for _, f := range fields {
		if f != "" {
			g.add(RowClientField, clientFieldRowMM, f, "")
		}
	}
	g.add(RowSpacer, sectionGapMM, "", "")
	return g
}

func serviceGroup(item SelectedService, m *textMeasurer) rowGroup {
	var g rowGroup
	svc := item.Service
	names := m.wrap(svc.Name, "B", bodyFontSize, serviceNameWidthMM)
	if len(names) == 0 {
		names = []string{""}
	}
	amount := FormatMoney(LinePrice(item))
	if svc.PricingModel == PricingRange {
		amount = rangePricePrefix + amount
	}
	g.add(RowServiceName, serviceNameRowMM, names[0], amount)
	for _, line := range names[1:] {
		g.add(RowServiceName, textLineMM+1, line, "")
	}

	if svc.RequiresQuantity() {
		qty := fmt.Sprintf("%s %s x %s", FormatQuantity(sanitizeNonNegative(item.Quantity)), svc.Unit(), FormatMoney(svc.BasePrice))
		g.add(RowQuantity, textLineMM, qty, "")
	}
	for _, line := range m.wrap(svc.Description, "", descriptionFontSize, descriptionWidthMM) {
		g.add(RowDescription, textLineMM, line, "")
	}
	for _, a := range item.AddOns {
		g.add(RowAddOn, addOnRowMM, "+ "+toLatin1(a.Name), FormatMoney(a.Price))
	}
	g.add(RowSpacer, itemPaddingMM, "", "")
	return g
}

func totalsGroup(t PriceBreakdown) rowGroup {
	var g rowGroup
	g.add(RowTotalsRule, dividerRowMM, "", "")
	g.add(RowSubtotal, subtotalRowMM, "Subtotal:", FormatMoney(t.Subtotal))
	if t.Tax > 0 {
		g.add(RowTax, subtotalRowMM, fmt.Sprintf("Tax (%s%%):", FormatRate(t.TaxRate)), FormatMoney(t.Tax))
	}
	g.add(RowTotal, totalRowMM, "Total:", FormatMoney(t.Total))
	return g
}

func footerGroup(b BusinessProfile, days int) rowGroup {
	var g rowGroup
	g.add(RowDivider, dividerRowMM, "", "")
	if contact := contactLine(b); contact != "" {
		g.add(RowContact, contactRowMM, contact, "")
	}
	g.add(RowTerms, termsRowMM, validityTerms(days), "")
	g.add(RowTerms, termsRowMM, acceptanceTerms, "")
	return g
}

// contactLine joins the business email and phone; absent parts are skipped.
func contactLine(b BusinessProfile) string {
	return joinNonEmpty([]string{strings.TrimSpace(b.ContactEmail), strings.TrimSpace(b.ContactPhone)}, "  |  ")
}

// joinNonEmpty joins non-empty strings with the given separator.
func joinNonEmpty(parts []string, sep string) string {
	var nonEmpty []string
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, sep)
}
