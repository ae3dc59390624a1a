package handlers

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"servicequote/services"
	"servicequote/testhelpers"
)

func TestHandleDashboard(t *testing.T) {
	d := newTestDeps(t)
	pending := createDemoQuote(t, d, services.ClientInfo{Name: "Jane Client", Email: "jane@example.com"})
	paid := createDemoQuote(t, d, services.ClientInfo{Email: "paid@example.com"})
	if _, err := services.MarkQuotePaid(d.App, paid.ID, handlerTestTime); err != nil {
		t.Fatalf("mark paid: %v", err)
	}

	req := withSession(httptest.NewRequest(http.MethodGet, "/dashboard", nil), demoSession())
	rec := httptest.NewRecorder()
	if err := HandleDashboard(d)(newTestRequestEvent(d.App, req, rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	body := rec.Body.String()
	testhelpers.AssertHTMLContains(t, body,
		"<!DOCTYPE html>",
		"Pro Cleaning Services",
		"Demo mode",
		`<tr id="quote-`+pending.ID+`">`,
		"Jane Client",
		"paid@example.com",
		`hx-post="/quotes/`+pending.ID+`/paid"`,
	)
	if strings.Contains(body, `hx-post="/quotes/`+paid.ID+`/paid"`) {
		t.Error("paid quote should not offer mark paid")
	}
}

func TestHandleDashboard_HTMXFragment(t *testing.T) {
	d := newTestDeps(t)

	req := withSession(httptest.NewRequest(http.MethodGet, "/dashboard", nil), demoSession())
	req.Header.Set("HX-Request", "true")
	rec := httptest.NewRecorder()
	if err := HandleDashboard(d)(newTestRequestEvent(d.App, req, rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if strings.Contains(rec.Body.String(), "<!DOCTYPE html>") {
		t.Error("HTMX request should get a fragment")
	}
	testhelpers.AssertHTMLContains(t, rec.Body.String(), "No quotes yet.")
}

func TestHandleQuotesExport(t *testing.T) {
	d := newTestDeps(t)
	q := createDemoQuote(t, d, services.ClientInfo{Email: "jane@example.com"})

	req := withSession(httptest.NewRequest(http.MethodGet, "/dashboard/quotes.xlsx", nil), demoSession())
	rec := httptest.NewRecorder()
	if err := HandleQuotesExport(d)(newTestRequestEvent(d.App, req, rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	cd := rec.Header().Get("Content-Disposition")
	if !strings.Contains(cd, `filename="Pro-Cleaning-Services_quotes_2026-03-05.xlsx"`) {
		t.Errorf("Content-Disposition = %q", cd)
	}

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	if err != nil {
		t.Fatalf("not a workbook: %v", err)
	}
	defer f.Close()
	number, _ := f.GetCellValue("Quotes", "A5")
	if number != q.InvoiceNumber {
		t.Errorf("A5 = %q, want %q", number, q.InvoiceNumber)
	}
}
