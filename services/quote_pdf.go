package services

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/image"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/page"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/extension"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/orientation"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"servicequote/logging"
)

// ClientInfo identifies who a quote is prepared for.
type ClientInfo struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

// QuoteInput is everything needed to render a quote document.
type QuoteInput struct {
	Business     BusinessProfile
	Selection    Selection
	Totals       PriceBreakdown
	Client       ClientInfo
	GeneratedAt  time.Time
	QuoteNumber  string
	ValidityDays int // zero means DefaultValidityDays
}

// QuoteDocument is a rendered quote. The same render feeds every output.
type QuoteDocument struct {
	doc      core.Document
	layout   *QuoteLayout
	filename string
	validity int
}

// Bytes returns the PDF content.
func (d *QuoteDocument) Bytes() []byte {
	return d.doc.GetBytes()
}

// Reader returns a reader over the PDF content.
func (d *QuoteDocument) Reader() io.Reader {
	return bytes.NewReader(d.doc.GetBytes())
}

// Save writes the PDF to path.
func (d *QuoteDocument) Save(path string) error {
	if err := d.doc.Save(path); err != nil {
		return fmt.Errorf("saving quote pdf: %w", err)
	}
	return nil
}

// DataURI returns the PDF as a base64 data URI suitable for inline preview.
func (d *QuoteDocument) DataURI() string {
	return "data:application/pdf;filename=" + d.filename + ";base64," + d.doc.GetBase64()
}

// Filename returns the suggested download name.
func (d *QuoteDocument) Filename() string {
	return d.filename
}

// PageCount returns the number of pages in the document.
func (d *QuoteDocument) PageCount() int {
	return d.layout.PageCount()
}

// Layout returns the positioned content the document was drawn from.
func (d *QuoteDocument) Layout() *QuoteLayout {
	return d.layout
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// QuoteFilename builds "<business>_<client>_<yyyy-mm-dd>.pdf".
func QuoteFilename(businessName, clientName string, date time.Time) string {
	biz := FilenamePart(businessName, "Quote")
	client := FilenamePart(clientName, "Customer")
	return fmt.Sprintf("%s_%s_%s.pdf", biz, client, date.Format(filenameDateLayout))
}

// FilenamePart reduces s to characters safe in a download name, or returns
// fallback when nothing is left.
func FilenamePart(s, fallback string) string {
	s = strings.Trim(unsafeFilenameChars.ReplaceAllString(strings.TrimSpace(s), "-"), "-")
	if s == "" {
		return fallback
	}
	return s
}

// Colours used for everything that is not brand coloured.
var (
	white      = &props.Color{Red: 255, Green: 255, Blue: 255}
	darkText   = &props.Color{Red: 60, Green: 60, Blue: 60}
	mutedText  = &props.Color{Red: 100, Green: 100, Blue: 100}
	ruleColor  = &props.Color{Red: 200, Green: 200, Blue: 200}
	shadeColor = &props.Color{Red: 245, Green: 245, Blue: 245}
)

// RenderQuote lays out and draws a quote. A logo that cannot be used is
// left out; any drawing failure returns an error and no document.
func RenderQuote(in QuoteInput) (*QuoteDocument, error) {
	log := logging.Default()

	if len(in.Business.Logo) > 0 {
		logo, err := PrepareLogo(in.Business.Logo)
		if err != nil {
			log.Warn("quote_pdf: logo omitted", "business", in.Business.ID, "error", err.Error())
			in.Business.Logo = nil
		} else {
			in.Business.Logo = logo
		}
	}

	layout := LayoutQuote(in)

	cfg := config.NewBuilder().
		WithOrientation(orientation.Vertical).
		WithPageSize(pagesize.A4).
		WithLeftMargin(pageMarginMM).
		WithTopMargin(pageMarginMM).
		WithRightMargin(pageMarginMM).
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
			Size:    7,
			Color:   &props.Color{Red: 120, Green: 120, Blue: 120},
		}).
		Build()

	m := maroto.New(cfg)
	brand := brandColor(layout.BrandColor)

	for _, lp := range layout.Pages {
		pg := page.New()
		for _, r := range lp.Rows {
			pg = pg.Add(drawRow(r, brand, in.Business.Logo))
		}
		m.AddPages(pg)
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("failed to generate quote PDF: %w", err)
	}

	log.Debug("quote_pdf: rendered", "quote", in.QuoteNumber, "pages", layout.PageCount())
	return &QuoteDocument{
		doc:      doc,
		layout:   layout,
		filename: QuoteFilename(in.Business.Name, in.Client.Name, in.GeneratedAt),
		validity: validityDays(in),
	}, nil
}

func brandColor(c RGB) *props.Color {
	return &props.Color{Red: int(c.R), Green: int(c.G), Blue: int(c.B)}
}

// drawRow turns one layout row into a maroto row of exactly the same height.
func drawRow(r LayoutRow, brand *props.Color, logo []byte) core.Row {
	var out core.Row

	switch r.Kind {
	case RowBusinessName:
		nameCol := col.New(8).Add(text.New(r.Text, props.Text{
			Size:  businessNameFontSize,
			Style: fontstyle.Bold,
			Align: align.Left,
			Color: brand,
		}))
		logoCol := col.New(4)
		if len(logo) > 0 {
			logoCol = logoCol.Add(image.NewFromBytes(logo, extension.Png, props.Rect{Center: true, Percent: 100}))
		}
		out = row.New(r.Height).Add(nameCol, logoCol)

	case RowDocumentLabel:
		out = row.New(r.Height).Add(col.New(12).Add(text.New(r.Text, props.Text{
			Size:  documentLabelFontSize,
			Align: align.Left,
			Color: mutedText,
			Top:   1,
		})))

	case RowMeta:
		out = row.New(r.Height).Add(col.New(12).Add(text.New(r.Text, props.Text{
			Size:  bodyFontSize,
			Align: align.Left,
			Color: mutedText,
		})))

	case RowDivider:
		out = row.New(r.Height).Add(line.NewCol(12, props.Line{Color: ruleColor, Thickness: 0.3}))

	case RowTotalsRule:
		out = row.New(r.Height).Add(col.New(8), line.NewCol(4, props.Line{Color: ruleColor, Thickness: 0.3}))

	case RowClientHeading, RowSectionTitle:
		out = row.New(r.Height).Add(col.New(12).Add(text.New(r.Text, props.Text{
			Size:  totalFontSize,
			Style: fontstyle.Bold,
			Align: align.Left,
			Color: darkText,
			Top:   1,
		})))

	case RowClientField:
		out = row.New(r.Height).Add(col.New(12).Add(text.New(r.Text, props.Text{
			Size:  bodyFontSize,
			Align: align.Left,
			Color: darkText,
		})))

	case RowTableHeader:
		headerText := props.Text{Size: bodyFontSize, Style: fontstyle.Bold, Color: white, Top: 2, Left: 2}
		priceText := headerText
		priceText.Align = align.Right
		priceText.Right = 2
		priceText.Left = 0
		out = row.New(r.Height).Add(
			col.New(9).Add(text.New(r.Text, headerText)),
			col.New(3).Add(text.New(r.Amount, priceText)),
		).WithStyle(&props.Cell{BackgroundColor: brand})

	case RowServiceName:
		out = row.New(r.Height).Add(
			col.New(9).Add(text.New(r.Text, props.Text{
				Size: bodyFontSize, Style: fontstyle.Bold, Color: darkText, Top: 2, Left: 2,
			})),
			col.New(3).Add(text.New(r.Amount, props.Text{
				Size: bodyFontSize, Align: align.Right, Color: darkText, Top: 2, Right: 2,
			})),
		)

	case RowQuantity, RowDescription:
		out = row.New(r.Height).Add(
			col.New(10).Add(text.New(r.Text, props.Text{
				Size: descriptionFontSize, Color: mutedText, Left: 2,
			})),
			col.New(2),
		)

	case RowAddOn:
		out = row.New(r.Height).Add(
			col.New(9).Add(text.New(r.Text, props.Text{
				Size: descriptionFontSize, Color: mutedText, Top: 1, Left: 6,
			})),
			col.New(3).Add(text.New(r.Amount, props.Text{
				Size: descriptionFontSize, Align: align.Right, Color: mutedText, Top: 1, Right: 2,
			})),
		)

	case RowSubtotal, RowTax:
		out = row.New(r.Height).Add(
			col.New(6),
			col.New(3).Add(text.New(r.Text, props.Text{Size: bodyFontSize, Color: darkText, Top: 1})),
			col.New(3).Add(text.New(r.Amount, props.Text{Size: bodyFontSize, Align: align.Right, Color: darkText, Top: 1, Right: 2})),
		)

	case RowTotal:
		out = row.New(r.Height).Add(
			col.New(6),
			col.New(3).Add(text.New(r.Text, props.Text{Size: totalFontSize, Style: fontstyle.Bold, Color: darkText, Top: 1})),
			col.New(3).Add(text.New(r.Amount, props.Text{Size: totalFontSize, Style: fontstyle.Bold, Align: align.Right, Color: darkText, Top: 1, Right: 2})),
		)

	case RowContact:
		out = row.New(r.Height).Add(col.New(12).Add(text.New(r.Text, props.Text{
			Size:  descriptionFontSize,
			Align: align.Center,
			Color: darkText,
			Top:   1,
		})))

	case RowTerms:
		out = row.New(r.Height).Add(col.New(12).Add(text.New(r.Text, props.Text{
			Size:  footerFontSize,
			Align: align.Center,
			Color: mutedText,
		})))

	default:
		out = row.New(r.Height)
	}

	if r.Shaded && r.Kind != RowTableHeader {
		out = out.WithStyle(&props.Cell{BackgroundColor: shadeColor})
	}
	return out
}
