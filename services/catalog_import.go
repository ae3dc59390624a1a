package services

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"github.com/spf13/cast"
	"github.com/xuri/excelize/v2"
)

// ErrImportRejected is returned when an import file has row errors and
// nothing was saved.
var ErrImportRejected = errors.New("catalog import has errors")

// ImportError is a problem with one field of one data row. Row numbers
// count the header as row 1.
type ImportError struct {
	Row     int    `json:"row"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

// CatalogImport is the parsed content of a catalog file.
type CatalogImport struct {
	TotalRows int           `json:"totalRows"`
	Services  []Service     `json:"services"`
	Errors    []ImportError `json:"errors"`
	FileName  string        `json:"-"`
}

type catalogColumn struct {
	key      string
	label    string
	required bool
}

// catalogColumns are the headers recognised in a catalog file, matched
// case-insensitively. A trailing " *" marks required columns in the template.
var catalogColumns = []catalogColumn{
	{"name", "Service Name", true},
	{"description", "Description", false},
	{"base_price", "Base Price", true},
	{"pricing_model", "Pricing Model", false},
	{"price_unit", "Price Unit", false},
	{"max_price", "Max Price", false},
	{"sort_order", "Sort Order", false},
	{"add_ons", "Add-ons", false},
}

// ParseCatalogFile reads services from a CSV or XLSX file. The format is
// sniffed from the content and falls back to the file extension. Add-ons are
// listed in one cell as "Name=Price; Name=Price".
func ParseCatalogFile(r io.Reader, fileName string) (*CatalogImport, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading catalog file: %w", err)
	}

	var headers []string
	var rows [][]string
	if isSpreadsheet(data, fileName) {
		headers, rows, err = parseCatalogExcel(data)
	} else {
		headers, rows, err = parseCatalogCSV(data)
	}
	if err != nil {
		return nil, err
	}

	keys, err := mapCatalogHeaders(headers)
	if err != nil {
		return nil, err
	}

	result := &CatalogImport{FileName: fileName}
	for i, row := range rows {
		rowNum := i + 2
		values := make(map[string]string, len(keys))
		empty := true
		for c, key := range keys {
			if key == "" || c >= len(row) {
				continue
			}
			v := strings.TrimSpace(row[c])
			values[key] = v
			if v != "" {
				empty = false
			}
		}
		if empty {
			continue
		}
		result.TotalRows++

		svc, rowErrs := serviceFromImportRow(rowNum, values)
		if len(rowErrs) > 0 {
			result.Errors = append(result.Errors, rowErrs...)
			continue
		}
		result.Services = append(result.Services, svc)
	}
	return result, nil
}

func isSpreadsheet(data []byte, fileName string) bool {
	// Workbooks are zip containers; excelize rejects any other zip.
	for m := mimetype.Detect(data); m != nil; m = m.Parent() {
		if m.Is("application/zip") {
			return true
		}
	}
	return strings.EqualFold(filepath.Ext(fileName), ".xlsx")
}

func parseCatalogCSV(data []byte) ([]string, [][]string, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.TrimLeadingSpace = true
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	all, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse CSV: %w", err)
	}
	if len(all) < 2 {
		return nil, nil, fmt.Errorf("file must contain a header row and at least one data row")
	}
	return all[0], all[1:], nil
}

func parseCatalogExcel(data []byte) ([]string, [][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read sheet: %w", err)
	}
	if len(rows) < 2 {
		return nil, nil, fmt.Errorf("file must contain a header row and at least one data row")
	}
	return rows[0], rows[1:], nil
}

// mapCatalogHeaders returns the column key for each header, "" for unknown
// columns, and fails when a required column is missing.
func mapCatalogHeaders(headers []string) ([]string, error) {
	byLabel := make(map[string]string, len(catalogColumns))
	for _, c := range catalogColumns {
		byLabel[strings.ToLower(c.label)] = c.key
	}

	keys := make([]string, len(headers))
	found := make(map[string]bool, len(headers))
	for i, h := range headers {
		norm := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(strings.ToLower(h)), "*"))
		keys[i] = byLabel[norm]
		found[keys[i]] = true
	}
	for _, c := range catalogColumns {
		if c.required && !found[c.key] {
			return nil, fmt.Errorf("missing required column %q", c.label)
		}
	}
	return keys, nil
}

func serviceFromImportRow(rowNum int, v map[string]string) (Service, []ImportError) {
	var errs []ImportError
	fail := func(field, msg string) {
		errs = append(errs, ImportError{Row: rowNum, Field: field, Message: msg})
	}
	money := func(field, label string) float64 {
		raw := strings.TrimPrefix(strings.ReplaceAll(v[field], ",", ""), "$")
		if raw == "" {
			return 0
		}
		n, err := cast.ToFloat64E(raw)
		if err != nil || n < 0 {
			fail(label, label+" must be a non-negative number")
			return 0
		}
		return n
	}

	svc := Service{
		Name:        v["name"],
		Description: v["description"],
		PriceUnit:   strings.ToLower(v["price_unit"]),
		Active:      true,
	}
	if svc.Name == "" {
		fail("Service Name", "Service Name is required")
	}
	if v["base_price"] == "" {
		fail("Base Price", "Base Price is required")
	}
	svc.BasePrice = money("base_price", "Base Price")
	svc.MaxPrice = money("max_price", "Max Price")

	svc.PricingModel = PricingFlat
	if m := strings.ToLower(v["pricing_model"]); m != "" {
		svc.PricingModel = PricingModel(m)
		if !svc.PricingModel.Valid() {
			fail("Pricing Model", fmt.Sprintf("Pricing Model must be one of %v", PricingModels))
		}
	}
	if svc.PricingModel == PricingRange && svc.MaxPrice < svc.BasePrice {
		fail("Max Price", "Max Price must not be below Base Price for range pricing")
	}
	if s := v["sort_order"]; s != "" {
		n, err := cast.ToIntE(s)
		if err != nil {
			fail("Sort Order", "Sort Order must be a whole number")
		}
		svc.SortOrder = n
	}

	for _, part := range strings.Split(v["add_ons"], ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, price, ok := strings.Cut(part, "=")
		name = strings.TrimSpace(name)
		p, err := cast.ToFloat64E(strings.TrimPrefix(strings.TrimSpace(price), "$"))
		if !ok || name == "" || err != nil || p < 0 {
			fail("Add-ons", fmt.Sprintf("add-on %q must look like Name=Price", part))
			continue
		}
		svc.AddOns = append(svc.AddOns, AddOn{Name: name, Price: p})
	}
	return svc, errs
}

// SaveCatalogImport stores the imported services and their add-ons for a
// business in one transaction. An import with row errors saves nothing.
func SaveCatalogImport(app *pocketbase.PocketBase, businessID string, imp *CatalogImport) (int, error) {
	if len(imp.Errors) > 0 {
		return 0, fmt.Errorf("%w: %d row error(s)", ErrImportRejected, len(imp.Errors))
	}
	if _, err := app.FindRecordById("businesses", businessID); err != nil {
		return 0, fmt.Errorf("%w: %s", ErrBusinessNotFound, businessID)
	}

	err := app.RunInTransaction(func(txApp core.App) error {
		servicesCol, err := txApp.FindCollectionByNameOrId("services")
		if err != nil {
			return fmt.Errorf("services collection not found: %w", err)
		}
		addonsCol, err := txApp.FindCollectionByNameOrId("addons")
		if err != nil {
			return fmt.Errorf("addons collection not found: %w", err)
		}

		for _, svc := range imp.Services {
			rec := core.NewRecord(servicesCol)
			rec.Set("business", businessID)
			rec.Set("name", svc.Name)
			rec.Set("description", svc.Description)
			rec.Set("base_price", svc.BasePrice)
			rec.Set("max_price", svc.MaxPrice)
			rec.Set("pricing_model", string(svc.PricingModel))
			rec.Set("price_unit", svc.PriceUnit)
			rec.Set("active", true)
			rec.Set("sort_order", svc.SortOrder)
			if err := txApp.Save(rec); err != nil {
				return fmt.Errorf("saving service %q: %w", svc.Name, err)
			}
			for _, a := range svc.AddOns {
				ar := core.NewRecord(addonsCol)
				ar.Set("service", rec.Id)
				ar.Set("name", a.Name)
				ar.Set("price", a.Price)
				if err := txApp.Save(ar); err != nil {
					return fmt.Errorf("saving add-on %q: %w", a.Name, err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(imp.Services), nil
}

// GenerateCatalogTemplate builds an empty catalog workbook with the expected
// headers and one example row.
func GenerateCatalogTemplate() ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Services"
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return nil, fmt.Errorf("set sheet name: %w", err)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true, Color: "#FFFFFF", Size: 11},
		Fill:   excelize.Fill{Type: "pattern", Color: []string{strings.ToUpper(DefaultBrandColorHex)}, Pattern: 1},
		Border: thinBorders(),
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	example := []any{"Standard Cleaning", "Basic cleaning for homes", 120, "flat", "job", "", 1, "Inside Fridge=25; Inside Oven=30"}
	for i, c := range catalogColumns {
		label := c.label
		if c.required {
			label += " *"
		}
		header, _ := excelize.CoordinatesToCellName(i+1, 1)
		cell, _ := excelize.CoordinatesToCellName(i+1, 2)
		f.SetCellValue(sheet, header, label)
		f.SetCellValue(sheet, cell, example[i])
	}
	last, _ := excelize.CoordinatesToCellName(len(catalogColumns), 1)
	f.SetCellStyle(sheet, "A1", last, headerStyle)
	f.SetColWidth(sheet, "A", "H", 22)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write template: %w", err)
	}
	return buf.Bytes(), nil
}

// GenerateImportErrorReport lists import errors in a downloadable workbook.
func GenerateImportErrorReport(errs []ImportError) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Errors"
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return nil, fmt.Errorf("set sheet name: %w", err)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF", Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DC2626"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
		Border:    thinBorders(),
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	f.SetCellValue(sheet, "A1", "Row #")
	f.SetCellValue(sheet, "B1", "Field")
	f.SetCellValue(sheet, "C1", "Error")
	f.SetCellStyle(sheet, "A1", "C1", headerStyle)
	f.SetColWidth(sheet, "A", "A", 8)
	f.SetColWidth(sheet, "B", "B", 22)
	f.SetColWidth(sheet, "C", "C", 55)

	for i, e := range errs {
		row := fmt.Sprintf("%d", i+2)
		f.SetCellValue(sheet, "A"+row, e.Row)
		f.SetCellValue(sheet, "B"+row, sanitizeExcelCell(e.Field))
		f.SetCellValue(sheet, "C"+row, sanitizeExcelCell(e.Message))
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write error report: %w", err)
	}
	return buf.Bytes(), nil
}
