package services

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

const quoteSheetName = "Quotes"

// GenerateQuotesExcel writes a quote tracker workbook: one row per quote with
// its client, status and amounts, followed by pending and paid totals.
func GenerateQuotesExcel(businessName string, quotes []Quote, generatedAt time.Time) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), quoteSheetName); err != nil {
		return nil, fmt.Errorf("set sheet name: %w", err)
	}
	sheet := quoteSheetName

	columns := []string{"A", "B", "C", "D", "E", "F", "G", "H", "I"}
	lastCol := columns[len(columns)-1]
	widths := []float64{14, 14, 24, 28, 40, 12, 14, 14, 10}
	for i, c := range columns {
		if err := f.SetColWidth(sheet, c, c, widths[i]); err != nil {
			return nil, fmt.Errorf("set col width %s: %w", c, err)
		}
	}

	titleStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 16}})
	if err != nil {
		return nil, fmt.Errorf("create title style: %w", err)
	}
	subtitleStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Size: 11}})
	if err != nil {
		return nil, fmt.Errorf("create subtitle style: %w", err)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF", Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{strings.ToUpper(DefaultBrandColor.Hex())}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    thinBorders(),
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}
	rowStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Size: 10}, Border: thinBorders()})
	if err != nil {
		return nil, fmt.Errorf("create row style: %w", err)
	}
	moneyFmt := "$#,##0.00"
	moneyStyle, err := f.NewStyle(&excelize.Style{
		Font:         &excelize.Font{Size: 10},
		Border:       thinBorders(),
		CustomNumFmt: &moneyFmt,
	})
	if err != nil {
		return nil, fmt.Errorf("create money style: %w", err)
	}
	summaryLabelStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Alignment: &excelize.Alignment{Horizontal: "right"},
	})
	if err != nil {
		return nil, fmt.Errorf("create summary label style: %w", err)
	}
	summaryValueStyle, err := f.NewStyle(&excelize.Style{
		Font:         &excelize.Font{Bold: true, Size: 11},
		CustomNumFmt: &moneyFmt,
	})
	if err != nil {
		return nil, fmt.Errorf("create summary value style: %w", err)
	}

	title := strings.TrimSpace(businessName)
	if title == "" {
		title = "Quotes"
	} else {
		title += " Quotes"
	}
	if err := f.MergeCell(sheet, "A1", lastCol+"1"); err != nil {
		return nil, fmt.Errorf("merge title: %w", err)
	}
	f.SetCellValue(sheet, "A1", sanitizeExcelCell(title))
	f.SetCellStyle(sheet, "A1", lastCol+"1", titleStyle)

	if err := f.MergeCell(sheet, "A2", lastCol+"2"); err != nil {
		return nil, fmt.Errorf("merge date: %w", err)
	}
	f.SetCellValue(sheet, "A2", "Generated: "+FormatLongDate(generatedAt))
	f.SetCellStyle(sheet, "A2", lastCol+"2", subtitleStyle)

	headers := []string{"Quote #", "Date", "Client", "Email", "Services", "Status", "Subtotal", "Total", "Tax %"}
	for i, h := range headers {
		f.SetCellValue(sheet, columns[i]+"4", h)
	}
	f.SetCellStyle(sheet, "A4", lastCol+"4", headerStyle)

	row := 5
	for _, q := range quotes {
		r := fmt.Sprintf("%d", row)
		f.SetCellValue(sheet, "A"+r, sanitizeExcelCell(q.InvoiceNumber))
		f.SetCellValue(sheet, "B"+r, q.Created.Format(filenameDateLayout))
		f.SetCellValue(sheet, "C"+r, sanitizeExcelCell(q.Client.Name))
		f.SetCellValue(sheet, "D"+r, sanitizeExcelCell(q.Client.Email))
		f.SetCellValue(sheet, "E"+r, sanitizeExcelCell(itemSummary(q.Items)))
		f.SetCellValue(sheet, "F"+r, q.Status)
		f.SetCellValue(sheet, "G"+r, q.Subtotal)
		f.SetCellValue(sheet, "H"+r, q.Total)
		f.SetCellValue(sheet, "I"+r, q.TaxRate)
		f.SetCellStyle(sheet, "A"+r, lastCol+r, rowStyle)
		f.SetCellStyle(sheet, "G"+r, "H"+r, moneyStyle)
		row++
	}

	row++
	stats := SummarizeQuotes(quotes)
	summary := []struct {
		label string
		value float64
	}{
		{fmt.Sprintf("Pending (%d):", stats.PendingCount), stats.PendingTotal},
		{fmt.Sprintf("Paid (%d):", stats.PaidCount), stats.PaidTotal},
	}
	for _, s := range summary {
		r := fmt.Sprintf("%d", row)
		f.SetCellValue(sheet, "G"+r, s.label)
		f.SetCellStyle(sheet, "G"+r, "G"+r, summaryLabelStyle)
		f.SetCellValue(sheet, "H"+r, s.value)
		f.SetCellStyle(sheet, "H"+r, "H"+r, summaryValueStyle)
		row++
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write excel: %w", err)
	}
	return buf.Bytes(), nil
}

// itemSummary lists service names, with the quantity for unit-priced items.
func itemSummary(items []QuoteItemSnapshot) string {
	parts := make([]string, 0, len(items))
	for _, it := range items {
		if it.PerUnit {
			parts = append(parts, fmt.Sprintf("%s (%s %s)", it.ServiceName, FormatQuantity(it.Quantity), it.Unit))
			continue
		}
		parts = append(parts, it.ServiceName)
	}
	return strings.Join(parts, ", ")
}

// sanitizeExcelCell prefixes values Excel would read as formulas with a single quote.
func sanitizeExcelCell(s string) string {
	if len(s) == 0 {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@', '\t', '\r', '|':
		return "'" + s
	}
	return s
}

func thinBorders() []excelize.Border {
	sides := []string{"left", "top", "bottom", "right"}
	borders := make([]excelize.Border, len(sides))
	for i, side := range sides {
		borders[i] = excelize.Border{Type: side, Color: "#000000", Style: 1}
	}
	return borders
}
