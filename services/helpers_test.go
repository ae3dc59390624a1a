package services

import (
	"bytes"
	"context"
	"math"
	"time"
)

// bytesReader wraps a byte slice in a bytes.Reader for use with excelize.OpenReader.
func bytesReader(b []byte) *bytes.Reader {
	return bytes.NewReader(b)
}

// floatClose reports whether two floats are equal within 1e-9.
func floatClose(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

var fixedQuoteTime = time.Date(2026, time.March, 5, 14, 30, 0, 0, time.UTC)

func demoSelection(ids ...string) Selection {
	services, _ := DemoCatalog{}.ActiveServices(context.Background(), DemoBusinessID)
	byID := make(map[string]Service, len(services))
	for _, s := range services {
		byID[s.ID] = s
	}
	var sel Selection
	for _, id := range ids {
		sel = append(sel, SelectedService{Service: byID[id]})
	}
	return sel
}

func demoInput(sel Selection) QuoteInput {
	return QuoteInput{
		Business:    demoBusiness,
		Selection:   sel,
		Totals:      ComputeTotals(sel, 0),
		Client:      ClientInfo{Name: "Jane Client", Email: "jane@example.com", Phone: "(555) 987-6543"},
		GeneratedAt: fixedQuoteTime,
		QuoteNumber: "Q2603-0001",
	}
}
