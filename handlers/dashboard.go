package handlers

import (
	"fmt"
	"net/http"

	"github.com/pocketbase/pocketbase/core"

	"servicequote/logging"
	"servicequote/services"
	"servicequote/templates"
)

func quoteRow(q services.Quote) templates.QuoteRow {
	created := ""
	if !q.Created.IsZero() {
		created = services.FormatLongDate(q.Created)
	}
	return templates.QuoteRow{
		ID:      q.ID,
		Number:  q.InvoiceNumber,
		Client:  q.Client.Name,
		Email:   q.Client.Email,
		Created: created,
		Total:   services.FormatMoney(q.Total),
		Paid:    q.Status == services.QuoteStatusPaid,
	}
}

// HandleDashboard lists the signed-in business's pending and paid quotes.
func HandleDashboard(d Deps) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		session := GetSession(e.Request)
		biz := d.business(e, session.BusinessID)

		quotes, err := services.ListQuotes(d.App, session.BusinessID, "")
		if err != nil {
			logging.Default().Error(err, "dashboard: failed to list quotes", "business", session.BusinessID)
			return e.String(http.StatusInternalServerError, "Failed to load quotes")
		}

		stats := services.SummarizeQuotes(quotes)
		data := templates.DashboardData{
			BusinessName: biz.Name,
			UserEmail:    session.Email,
			Demo:         session.IsDemo(),
			Stats: []templates.StatCard{
				{Label: "Pending", Count: stats.PendingCount, Total: services.FormatMoney(stats.PendingTotal)},
				{Label: "Paid", Count: stats.PaidCount, Total: services.FormatMoney(stats.PaidTotal)},
			},
		}
		for _, q := range quotes {
			switch q.Status {
			case services.QuoteStatusPaid:
				data.Paid = append(data.Paid, quoteRow(q))
			default:
				data.Pending = append(data.Pending, quoteRow(q))
			}
		}

		brand := services.ParseHexColor(biz.BrandColor).Hex()
		if e.Request.Header.Get("HX-Request") == "true" {
			return templates.Dashboard(data).Render(e.Request.Context(), e.Response)
		}
		e.Response.Header().Set("Content-Type", "text/html; charset=utf-8")
		return templates.Page("Dashboard", brand, templates.Dashboard(data)).Render(e.Request.Context(), e.Response)
	}
}

// HandleQuotesExport downloads the signed-in business's quotes as an Excel workbook.
func HandleQuotesExport(d Deps) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		session := GetSession(e.Request)
		biz := d.business(e, session.BusinessID)

		quotes, err := services.ListQuotes(d.App, session.BusinessID, e.Request.URL.Query().Get("status"))
		if err != nil {
			logging.Default().Error(err, "export: failed to list quotes", "business", session.BusinessID)
			return e.String(http.StatusInternalServerError, "Failed to load quotes")
		}

		now := d.now()
		xlsx, err := services.GenerateQuotesExcel(biz.Name, quotes, now)
		if err != nil {
			logging.Default().Error(err, "export: failed to generate Excel")
			return e.String(http.StatusInternalServerError, "Failed to generate Excel file")
		}

		filename := fmt.Sprintf("%s_quotes_%s.xlsx", services.FilenamePart(biz.Name, "Business"), now.Format("2006-01-02"))
		e.Response.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		e.Response.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
		_, err = e.Response.Write(xlsx)
		return err
	}
}
