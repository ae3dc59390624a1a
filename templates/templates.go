// Package templates holds the HTML views of the quote dashboard. Components
// are plain templ.Component values so handlers render them the same way
// whether the response is a full page or an HTMX fragment.
package templates

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"

	"servicequote/brandcolor"
)

// esc escapes text for HTML element and attribute content.
func esc(s string) string {
	return templ.EscapeString(s)
}

func write(w io.Writer, parts ...string) error {
	for _, p := range parts {
		if _, err := io.WriteString(w, p); err != nil {
			return err
		}
	}
	return nil
}

// Page wraps body in the shared document shell.
func Page(title, brandColor string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if brandColor == "" {
			brandColor = brandcolor.Default
		}
		err := write(w,
			`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`,
			`<meta name="viewport" content="width=device-width, initial-scale=1">`,
			`<title>`, esc(title), `</title>`,
			`<script src="https://unpkg.com/htmx.org@2.0.4"></script>`,
			`<style>:root{--brand:`, esc(brandColor), `}</style>`,
			`</head><body>`,
		)
		if err != nil {
			return err
		}
		if err := body.Render(ctx, w); err != nil {
			return err
		}
		return write(w, `</body></html>`)
	})
}

// StatCard is one figure on the dashboard header.
type StatCard struct {
	Label string
	Count int
	Total string
}

// QuoteRow is a quote as listed on the dashboard.
type QuoteRow struct {
	ID      string
	Number  string
	Client  string
	Email   string
	Created string
	Total   string
	Paid    bool
}

// DashboardData is everything the dashboard page shows.
type DashboardData struct {
	BusinessName string
	UserEmail    string
	Demo         bool
	Stats        []StatCard
	Pending      []QuoteRow
	Paid         []QuoteRow
}

// Dashboard lists pending and paid quotes with their totals.
func Dashboard(data DashboardData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString(`<header class="dashboard-header"><h1>`)
		b.WriteString(esc(data.BusinessName))
		b.WriteString(`</h1>`)
		if data.Demo {
			b.WriteString(`<span class="badge">Demo mode</span>`)
		}
		if data.UserEmail != "" {
			b.WriteString(`<span class="user">` + esc(data.UserEmail) + `</span>`)
		}
		b.WriteString(`<form method="post" action="/session/signout"><button type="submit">Sign out</button></form>`)
		b.WriteString(`<a href="/dashboard/quotes.xlsx">Export to Excel</a></header>`)

		if !data.Demo {
			b.WriteString(`<section id="catalog-import"><h2>Import Services</h2>`)
			b.WriteString(`<form hx-post="/dashboard/services/import" hx-encoding="multipart/form-data" hx-swap="none">`)
			b.WriteString(`<input type="file" name="file" accept=".csv,.xlsx" required>`)
			b.WriteString(`<button type="submit">Upload</button></form>`)
			b.WriteString(`<a href="/dashboard/services/template">Download template</a></section>`)
		}

		b.WriteString(`<section class="stats">`)
		for _, s := range data.Stats {
			fmt.Fprintf(&b, `<div class="stat"><h3>%s</h3><p class="count">%d</p><p class="total">%s</p></div>`,
				esc(s.Label), s.Count, esc(s.Total))
		}
		b.WriteString(`</section>`)

		writeQuoteTable(&b, "Pending Quotes", "pending", data.Pending)
		writeQuoteTable(&b, "Paid Quotes", "paid", data.Paid)

		return write(w, b.String())
	})
}

func writeQuoteTable(b *strings.Builder, title, id string, rows []QuoteRow) {
	fmt.Fprintf(b, `<section id="%s-quotes"><h2>%s</h2>`, id, esc(title))
	if len(rows) == 0 {
		b.WriteString(`<p class="empty">No quotes yet.</p></section>`)
		return
	}
	b.WriteString(`<table><thead><tr><th>Quote #</th><th>Client</th><th>Date</th><th>Total</th><th></th></tr></thead><tbody>`)
	writeQuoteRows(b, rows)
	b.WriteString(`</tbody></table></section>`)
}

// PreviewData describes the inline PDF preview page.
type PreviewData struct {
	ID       string
	Number   string
	Client   string
	Total    string
	Paid     bool
	DataURI  string
	Filename string
	CanEmail bool
}

// QuotePreview embeds the rendered PDF and offers download, email and
// mark-paid actions.
func QuotePreview(data PreviewData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		status := "Pending"
		if data.Paid {
			status = "Paid"
		}
		var b strings.Builder
		b.WriteString(`<main class="quote-preview"><header><h1>Quote ` + esc(data.Number) + `</h1>`)
		b.WriteString(`<p>` + esc(data.Client) + ` &middot; ` + esc(data.Total) + ` &middot; <span class="status">` + status + `</span></p>`)
		b.WriteString(`<nav><a href="/quotes/` + esc(data.ID) + `/pdf" download="` + esc(data.Filename) + `">Download PDF</a>`)
		if data.CanEmail {
			b.WriteString(` <button hx-post="/quotes/` + esc(data.ID) + `/email" hx-swap="none">Email to client</button>`)
		}
		if !data.Paid {
			b.WriteString(` <button hx-post="/quotes/` + esc(data.ID) + `/paid" hx-swap="none">Mark paid</button>`)
		}
		b.WriteString(`</nav></header>`)
		b.WriteString(`<iframe class="pdf" title="Quote PDF" src="` + esc(data.DataURI) + `" width="100%" height="900"></iframe></main>`)
		return write(w, b.String())
	})
}

// QuoteRowFragment re-renders a single dashboard row after an HTMX update.
func QuoteRowFragment(r QuoteRow) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		writeQuoteRows(&b, []QuoteRow{r})
		return write(w, b.String())
	})
}

func writeQuoteRows(b *strings.Builder, rows []QuoteRow) {
	for _, r := range rows {
		client := r.Client
		if client == "" {
			client = r.Email
		}
		b.WriteString(`<tr id="quote-` + esc(r.ID) + `">`)
		b.WriteString(`<td><a href="/quotes/` + esc(r.ID) + `/preview">` + esc(r.Number) + `</a></td>`)
		b.WriteString(`<td>` + esc(client) + `</td>`)
		b.WriteString(`<td>` + esc(r.Created) + `</td>`)
		b.WriteString(`<td>` + esc(r.Total) + `</td><td>`)
		b.WriteString(`<a href="/quotes/` + esc(r.ID) + `/pdf">PDF</a>`)
		if !r.Paid {
			b.WriteString(` <button hx-post="/quotes/` + esc(r.ID) + `/paid" hx-target="closest tr" hx-swap="outerHTML">Mark paid</button>`)
		}
		b.WriteString(`</td></tr>`)
	}
}

// Home is the landing page for visitors who are not signed in.
func Home() templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return write(w,
			`<main class="home"><h1>Service Quotes</h1>`,
			`<form method="post" action="/session/signin"><h2>Sign in</h2>`,
			`<input type="email" name="email" placeholder="Email" required>`,
			`<input type="password" name="password" placeholder="Password" required>`,
			`<button type="submit">Sign in</button></form>`,
			`<form method="post" action="/session/signup"><h2>Create an account</h2>`,
			`<input type="text" name="businessName" placeholder="Business name">`,
			`<input type="email" name="email" placeholder="Email" required>`,
			`<input type="password" name="password" placeholder="Password" minlength="8" required>`,
			`<button type="submit">Sign up</button></form>`,
			`<form method="post" action="/session/demo"><button type="submit">Try the demo</button></form>`,
			`</main>`,
		)
	})
}
